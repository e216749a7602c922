package verificationcodes

import (
	"context"

	"github.com/dmitrijs2005/soundfilter/internal/server/models"
)

type Repository interface {
	Create(ctx context.Context, userID int64, code string) (*models.VerificationCode, error)
	GetByID(ctx context.Context, id int64) (*models.VerificationCode, error)
	GetByCode(ctx context.Context, code string) (*models.VerificationCode, error)
	MarkEmailSent(ctx context.Context, id int64) error
	Delete(ctx context.Context, id int64) error
}
