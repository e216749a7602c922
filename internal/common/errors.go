// Package common defines shared constants, sentinel errors and small helpers
// used across the SoundFilter server. Callers should use errors.Is to match
// the sentinel values.
package common

import "errors"

var (
	// Repository-level errors.
	ErrorNotFound      = errors.New("not found")
	ErrorAlreadyExists = errors.New("already exists")

	// Service-level errors, one per response class.
	ErrorBadRequest    = errors.New("bad request")
	ErrorUnauthorized  = errors.New("unauthorized")
	ErrorForbidden     = errors.New("forbidden")
	ErrorUnprocessable = errors.New("unprocessable entity")
	ErrorInternal      = errors.New("internal error")
	ErrVersionConflict = errors.New("version conflict")

	// Auth errors (invalid or malformed token).
	ErrInvalidToken = errors.New("invalid token")

	// Token lifecycle errors.
	ErrTokenExpired        = errors.New("token expired")
	ErrRefreshTokenExpired = errors.New("refresh token expired")
)
