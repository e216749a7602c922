package refreshtokens

import (
	"context"
	"time"

	"github.com/dmitrijs2005/soundfilter/internal/server/models"
)

// Repository stores the refresh half of a login session. Tokens are single
// use: rotation consumes the old one before a new pair is issued.
type Repository interface {
	Create(ctx context.Context, userID int64, token string, validity time.Duration) error
	// Consume deletes token and returns the row it held. Of two concurrent
	// calls for the same token only one gets the row.
	Consume(ctx context.Context, token string) (*models.RefreshToken, error)
	Delete(ctx context.Context, token string) error
	// DeleteByUser ends every session of userID and reports how many ended.
	DeleteByUser(ctx context.Context, userID int64) (int64, error)
}
