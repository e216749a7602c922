// Package models defines server-side data models persisted in the database.
package models

import "time"

const (
	RoleUser  = "USER"
	RoleAdmin = "ADMIN"
)

type User struct {
	ID              int64
	Email           string
	PasswordHash    string
	FirstName       string
	LastName        string
	Verified        bool
	Role            string
	ProfileImageURL string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}
