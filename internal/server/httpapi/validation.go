package httpapi

import (
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"strings"
	"sync"
	"unicode"

	"github.com/dmitrijs2005/soundfilter/internal/common"
	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

const passwordMinLength = 8

var registerOnce sync.Once

// registerValidators adds the password rule to gin's validator and makes
// field errors use JSON names.
func registerValidators() {
	registerOnce.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			return
		}
		_ = v.RegisterValidation("password", validatePassword)
		v.RegisterTagNameFunc(func(f reflect.StructField) string {
			name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
			if name == "-" {
				return ""
			}
			return name
		})
	})
}

func validatePassword(fl validator.FieldLevel) bool {
	return isStrongPassword(fl.Field().String())
}

// isStrongPassword requires the minimum length plus at least one upper case
// letter, one lower case letter and one digit.
func isStrongPassword(p string) bool {
	if len([]rune(p)) < passwordMinLength {
		return false
	}
	var upper, lower, digit bool
	for _, r := range p {
		switch {
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsLower(r):
			lower = true
		case unicode.IsDigit(r):
			digit = true
		}
	}
	return upper && lower && digit
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "must not be empty"
	case "email":
		return "must be a valid email address"
	case "password":
		return fmt.Sprintf("must be at least %d characters and contain an upper case letter, a lower case letter and a digit", passwordMinLength)
	case "eqfield":
		return "Passwords do not match"
	case "max":
		return fmt.Sprintf("must be at most %s characters", fe.Param())
	default:
		return "is invalid"
	}
}

// bindJSON decodes and validates the body into dst. Validation failures are
// answered with 422 and per-field messages, malformed bodies with 400.
func (s *Server) bindJSON(c *gin.Context, dst any) bool {
	err := c.ShouldBindJSON(dst)
	if err == nil {
		return true
	}

	var ve validator.ValidationErrors
	if errors.As(err, &ve) {
		fields := make(map[string]string, len(ve))
		for _, fe := range ve {
			fields[fe.Field()] = fieldMessage(fe)
		}
		s.respondError(c, common.Unprocessable(fields))
		return false
	}

	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		s.respondStatus(c, http.StatusRequestEntityTooLarge, "Request body is too large")
		return false
	}

	s.respondError(c, common.BadRequest("Malformed request body"))
	return false
}
