package httpapi

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/dmitrijs2005/soundfilter/internal/common"
	"github.com/dmitrijs2005/soundfilter/internal/logging"
	"github.com/dmitrijs2005/soundfilter/internal/server/auth"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

const callerIDKey = "callerID"

func CORS(origins []string) gin.HandlerFunc {
	config := cors.Config{
		AllowOrigins:     origins,
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Authorization", "Content-Type", "X-Requested-With"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	if len(origins) == 0 {
		config.AllowOrigins = nil
		config.AllowOriginFunc = func(string) bool { return false }
	}
	return cors.New(config)
}

func RequestLogger(logger logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		logger.Info(c.Request.Context(), "request",
			"method", c.Request.Method,
			"route", c.FullPath(),
			"status", c.Writer.Status(),
			"duration", time.Since(start),
		)
	}
}

func MaxBodySize(limit int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		if limit > 0 {
			c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, limit)
		}
		c.Next()
	}
}

// requireAuth accepts an access token as a Bearer header or as the
// access_token cookie and stores the caller id on the context.
func (s *Server) requireAuth(c *gin.Context) {
	token := bearerToken(c.GetHeader("Authorization"))
	if token == "" {
		token, _ = c.Cookie(common.AccessTokenCookieName)
	}
	if token == "" {
		s.respondError(c, common.NewRequestError(common.ErrorUnauthorized, "Missing access token"))
		return
	}

	userID, err := auth.GetUserIDFromToken(token, s.jwtSecret)
	if err != nil {
		msg := "Invalid access token"
		if errors.Is(err, common.ErrTokenExpired) {
			msg = "Access token expired"
		}
		s.respondError(c, common.NewRequestError(common.ErrorUnauthorized, "%s", msg))
		return
	}

	c.Set(callerIDKey, userID)
	c.Next()
}

func callerID(c *gin.Context) int64 {
	return c.GetInt64(callerIDKey)
}

func bearerToken(header string) string {
	scheme, token, ok := strings.Cut(strings.TrimSpace(header), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}
