// Package passwordresets stores password reset tokens issued by the
// forgot-password flow.
package passwordresets

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

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Create stores token for userID, valid until now+validity.
func (r *PostgresRepository) Create(ctx context.Context, userID int64, token string, validity time.Duration) (*models.PasswordResetToken, error) {
	query := `
		INSERT INTO password_reset_tokens (user_id, token, expires_at)
		VALUES ($1, $2, $3)
		RETURNING id, created_at
	`
	t := &models.PasswordResetToken{UserID: userID, Token: token, ExpiresAt: time.Now().Add(validity)}
	if err := r.db.QueryRowContext(ctx, query, userID, token, t.ExpiresAt).Scan(&t.ID, &t.CreatedAt); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return t, nil
}

func (r *PostgresRepository) GetByID(ctx context.Context, id int64) (*models.PasswordResetToken, error) {
	return r.getOne(ctx, `WHERE id = $1`, id)
}

func (r *PostgresRepository) GetByToken(ctx context.Context, token string) (*models.PasswordResetToken, error) {
	return r.getOne(ctx, `WHERE token = $1`, token)
}

func (r *PostgresRepository) MarkEmailSent(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `UPDATE password_reset_tokens SET email_sent = TRUE WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return dbx.ExpectOneRow(res)
}

func (r *PostgresRepository) Delete(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM password_reset_tokens WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return dbx.ExpectOneRow(res)
}

func (r *PostgresRepository) getOne(ctx context.Context, where string, arg any) (*models.PasswordResetToken, error) {
	query := `SELECT id, user_id, token, expires_at, email_sent, created_at FROM password_reset_tokens ` + where

	t := &models.PasswordResetToken{}
	err := r.db.QueryRowContext(ctx, query, arg).Scan(&t.ID, &t.UserID, &t.Token, &t.ExpiresAt, &t.EmailSent, &t.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return t, nil
}
