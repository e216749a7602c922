package projects

import (
	"context"

	"github.com/dmitrijs2005/soundfilter/internal/server/models"
)

// AudioReplacement describes a new committed audio object for a project.
type AudioReplacement struct {
	OldURL   string
	NewURL   string
	Format   string
	FileSize int64
}

type Repository interface {
	Create(ctx context.Context, p *models.Project) (*models.Project, error)
	GetByID(ctx context.Context, id int64) (*models.Project, error)
	ListByUser(ctx context.Context, userID int64) ([]*models.Project, error)
	UpdateDetails(ctx context.Context, id int64, name, description string) error
	ReplaceAudio(ctx context.Context, id int64, r AudioReplacement) (*models.Project, error)
	SetTranscription(ctx context.Context, id int64, text string) error
	Delete(ctx context.Context, id int64) error
}
