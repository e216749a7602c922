package common

import "fmt"

// RequestError is an error that is safe to show to the API caller. Kind is one
// of the sentinel errors above and decides the response status; Message is the
// human readable text. Fields carries per-field validation messages.
type RequestError struct {
	Kind    error
	Message string
	Fields  map[string]string
}

func (e *RequestError) Error() string {
	return e.Message
}

func (e *RequestError) Unwrap() error {
	return e.Kind
}

// NewRequestError builds a RequestError of the given kind.
func NewRequestError(kind error, format string, args ...any) *RequestError {
	return &RequestError{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

func BadRequest(format string, args ...any) *RequestError {
	return NewRequestError(ErrorBadRequest, format, args...)
}

func NotFound(format string, args ...any) *RequestError {
	return NewRequestError(ErrorNotFound, format, args...)
}

func Forbidden(format string, args ...any) *RequestError {
	return NewRequestError(ErrorForbidden, format, args...)
}

func Internal(format string, args ...any) *RequestError {
	return NewRequestError(ErrorInternal, format, args...)
}

// Unprocessable reports payload validation failures keyed by field name.
func Unprocessable(fields map[string]string) *RequestError {
	return &RequestError{Kind: ErrorUnprocessable, Message: "Unprocessable entity", Fields: fields}
}
