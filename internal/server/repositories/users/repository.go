package users

import (
	"context"

	"github.com/dmitrijs2005/soundfilter/internal/server/models"
)

type Repository interface {
	Create(ctx context.Context, user *models.User) (*models.User, error)
	GetByID(ctx context.Context, id int64) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	MarkVerified(ctx context.Context, id int64) error
	UpdateNames(ctx context.Context, id int64, firstName, lastName string) error
	UpdatePassword(ctx context.Context, id int64, passwordHash string) error
	UpdateProfileImage(ctx context.Context, id int64, url string) error
}
