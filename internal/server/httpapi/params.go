package httpapi

import (
	"errors"
	"io"
	"math"
	"net/http"
	"strconv"
	"strings"

	"github.com/dmitrijs2005/soundfilter/internal/common"
	"github.com/dmitrijs2005/soundfilter/internal/server/services"
	"github.com/gin-gonic/gin"
)

// pathID parses a positive integer path parameter. It answers 400 and
// returns false when the value is malformed.
func (s *Server) pathID(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		s.respondError(c, common.BadRequest("Invalid %s", name))
		return 0, false
	}
	return id, true
}

// formFile reads a multipart file part fully into memory. The body size
// middleware bounds how much can be read.
func (s *Server) formFile(c *gin.Context, field string) (services.FileUpload, bool) {
	fh, err := c.FormFile(field)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			s.respondStatus(c, http.StatusRequestEntityTooLarge, "Request body is too large")
			return services.FileUpload{}, false
		}
		s.respondError(c, common.BadRequest("File is required"))
		return services.FileUpload{}, false
	}

	f, err := fh.Open()
	if err != nil {
		s.respondError(c, err)
		return services.FileUpload{}, false
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		s.respondError(c, err)
		return services.FileUpload{}, false
	}

	return services.FileUpload{
		FileName:    fh.Filename,
		ContentType: fh.Header.Get("Content-Type"),
		Data:        data,
	}, true
}

// formValue returns a value from the form body, falling back to the query
// string.
func formValue(c *gin.Context, name string) (string, bool) {
	if v, ok := c.GetPostForm(name); ok {
		return strings.TrimSpace(v), true
	}
	if v, ok := c.GetQuery(name); ok {
		return strings.TrimSpace(v), true
	}
	return "", false
}

func requiredFloat(c *gin.Context, name string) (float64, error) {
	v, ok := formValue(c, name)
	if !ok || v == "" {
		return 0, common.BadRequest("%s is required", name)
	}
	return parseFloat(name, v)
}

func optionalFloat(c *gin.Context, name string) (*float64, error) {
	v, ok := formValue(c, name)
	if !ok || v == "" {
		return nil, nil
	}
	f, err := parseFloat(name, v)
	if err != nil {
		return nil, err
	}
	return &f, nil
}

// parseFloat rejects NaN and infinities, which strconv accepts.
func parseFloat(name, v string) (float64, error) {
	f, err := strconv.ParseFloat(v, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, common.BadRequest("%s must be a number", name)
	}
	return f, nil
}

// optionalInt returns nil when the parameter is absent or empty, so an
// explicit zero stays distinguishable from a missing value.
func optionalInt(c *gin.Context, name string) (*int, error) {
	v, ok := formValue(c, name)
	if !ok || v == "" {
		return nil, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return nil, common.BadRequest("%s must be an integer", name)
	}
	return &n, nil
}

func optionalBool(c *gin.Context, name string) (bool, error) {
	v, ok := formValue(c, name)
	if !ok || v == "" {
		return false, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, common.BadRequest("%s must be true or false", name)
	}
	return b, nil
}

func optionalString(c *gin.Context, name string) string {
	v, _ := formValue(c, name)
	return v
}
