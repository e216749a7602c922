// Package refreshtokens keeps login sessions in the refresh_tokens table.
package refreshtokens

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/soundfilter/internal/common"
	"github.com/dmitrijs2005/soundfilter/internal/dbx"
	"github.com/dmitrijs2005/soundfilter/internal/server/models"
)

const (
	insertSQL = `
		INSERT INTO refresh_tokens (user_id, token, expires_at)
		VALUES ($1, $2, $3)`

	consumeSQL = `
		DELETE FROM refresh_tokens
		WHERE token = $1
		RETURNING id, user_id, expires_at, created_at`

	deleteSQL = `DELETE FROM refresh_tokens WHERE token = $1`

	deleteByUserSQL = `DELETE FROM refresh_tokens WHERE user_id = $1`
)

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Create(ctx context.Context, userID int64, token string, validity time.Duration) error {
	expiresAt := time.Now().Add(validity).UTC()
	if _, err := r.db.ExecContext(ctx, insertSQL, userID, token, expiresAt); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

// Consume returns common.ErrorNotFound for unknown or already used tokens.
// Expired rows are still returned so the caller can tell the two apart.
func (r *PostgresRepository) Consume(ctx context.Context, token string) (*models.RefreshToken, error) {
	rt := models.RefreshToken{Token: token}
	err := r.db.QueryRowContext(ctx, consumeSQL, token).Scan(&rt.ID, &rt.UserID, &rt.Expires, &rt.CreatedAt)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return nil, common.ErrorNotFound
	case err != nil:
		return nil, fmt.Errorf("db error: %w", err)
	}
	return &rt, nil
}

// Delete is a no-op for unknown tokens, so logging out twice succeeds.
func (r *PostgresRepository) Delete(ctx context.Context, token string) error {
	if _, err := r.db.ExecContext(ctx, deleteSQL, token); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *PostgresRepository) DeleteByUser(ctx context.Context, userID int64) (int64, error) {
	res, err := r.db.ExecContext(ctx, deleteByUserSQL, userID)
	if err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	return n, nil
}
