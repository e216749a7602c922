package uploadedfiles

import (
	"context"

	"github.com/dmitrijs2005/soundfilter/internal/server/models"
)

type Repository interface {
	Create(ctx context.Context, f *models.UploadedFile) (*models.UploadedFile, error)
	ListByUser(ctx context.Context, userID int64) ([]*models.UploadedFile, error)
}
