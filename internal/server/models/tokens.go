package models

import "time"

type RefreshToken struct {
	ID        int64
	UserID    int64
	Token     string
	Expires   time.Time
	CreatedAt time.Time
}

// VerificationCode is sent to a new user to confirm their e-mail address.
type VerificationCode struct {
	ID        int64
	UserID    int64
	Code      string
	EmailSent bool
	CreatedAt time.Time
}

type PasswordResetToken struct {
	ID        int64
	UserID    int64
	Token     string
	ExpiresAt time.Time
	EmailSent bool
	CreatedAt time.Time
}
