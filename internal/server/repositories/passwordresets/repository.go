package passwordresets

import (
	"context"
	"time"

	"github.com/dmitrijs2005/soundfilter/internal/server/models"
)

type Repository interface {
	Create(ctx context.Context, userID int64, token string, validity time.Duration) (*models.PasswordResetToken, error)
	GetByID(ctx context.Context, id int64) (*models.PasswordResetToken, error)
	GetByToken(ctx context.Context, token string) (*models.PasswordResetToken, error)
	MarkEmailSent(ctx context.Context, id int64) error
	Delete(ctx context.Context, id int64) error
}
