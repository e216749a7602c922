package httpapi

import (
	"errors"
	"net/http"

	"github.com/dmitrijs2005/soundfilter/internal/common"
	"github.com/gin-gonic/gin"
)

// errorResponse is the body of every non-2xx answer.
type errorResponse struct {
	Message       string            `json:"message"`
	Status        int               `json:"status"`
	Errors        map[string]string `json:"errors,omitempty"`
	GeneralErrors []string          `json:"generalErrors,omitempty"`
}

var kindStatus = []struct {
	kind   error
	status int
}{
	{common.ErrorBadRequest, http.StatusBadRequest},
	{common.ErrorUnauthorized, http.StatusUnauthorized},
	{common.ErrInvalidToken, http.StatusUnauthorized},
	{common.ErrTokenExpired, http.StatusUnauthorized},
	{common.ErrRefreshTokenExpired, http.StatusUnauthorized},
	{common.ErrorForbidden, http.StatusForbidden},
	{common.ErrorNotFound, http.StatusNotFound},
	{common.ErrVersionConflict, http.StatusConflict},
	{common.ErrorUnprocessable, http.StatusUnprocessableEntity},
}

var defaultMessages = map[int]string{
	http.StatusBadRequest:          "Bad request",
	http.StatusUnauthorized:        "Unauthorized",
	http.StatusForbidden:           "Forbidden",
	http.StatusNotFound:            "Not found",
	http.StatusConflict:            "Conflict",
	http.StatusUnprocessableEntity: "Unprocessable entity",
}

func statusOf(err error) int {
	for _, ks := range kindStatus {
		if errors.Is(err, ks.kind) {
			return ks.status
		}
	}
	return http.StatusInternalServerError
}

// respondError renders err and aborts the chain. RequestErrors carry their
// own message; other errors get a generic one and server errors are logged.
func (s *Server) respondError(c *gin.Context, err error) {
	status := statusOf(err)
	body := errorResponse{Status: status}

	var re *common.RequestError
	switch {
	case errors.As(err, &re):
		body.Message = re.Message
		body.Errors = re.Fields
	case status == http.StatusInternalServerError:
		body.Message = "Unexpected error"
	default:
		body.Message = defaultMessages[status]
	}

	if status >= http.StatusInternalServerError {
		s.logger.Error(c.Request.Context(), "request failed", "route", c.FullPath(), "error", err)
	}

	c.AbortWithStatusJSON(status, body)
}

func (s *Server) respondStatus(c *gin.Context, status int, message string) {
	c.AbortWithStatusJSON(status, errorResponse{Message: message, Status: status})
}

// respond writes body as 200 JSON, or renders err.
func (s *Server) respond(c *gin.Context, body any, err error) {
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, body)
}
