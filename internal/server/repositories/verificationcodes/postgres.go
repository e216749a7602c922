// Package verificationcodes stores the one-off codes used to confirm a new
// user's e-mail address.
package verificationcodes

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

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

func (r *PostgresRepository) Create(ctx context.Context, userID int64, code string) (*models.VerificationCode, error) {
	query := `
		INSERT INTO verification_codes (user_id, code)
		VALUES ($1, $2)
		RETURNING id, created_at
	`
	vc := &models.VerificationCode{UserID: userID, Code: code}
	if err := r.db.QueryRowContext(ctx, query, userID, code).Scan(&vc.ID, &vc.CreatedAt); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return vc, nil
}

func (r *PostgresRepository) GetByID(ctx context.Context, id int64) (*models.VerificationCode, error) {
	return r.getOne(ctx, `WHERE id = $1`, id)
}

func (r *PostgresRepository) GetByCode(ctx context.Context, code string) (*models.VerificationCode, error) {
	return r.getOne(ctx, `WHERE code = $1`, code)
}

// MarkEmailSent flags the code as delivered so a redelivered job skips it.
func (r *PostgresRepository) MarkEmailSent(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `UPDATE verification_codes SET email_sent = TRUE WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return dbx.ExpectOneRow(res)
}

func (r *PostgresRepository) Delete(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM verification_codes WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return dbx.ExpectOneRow(res)
}

func (r *PostgresRepository) getOne(ctx context.Context, where string, arg any) (*models.VerificationCode, error) {
	query := `SELECT id, user_id, code, email_sent, created_at FROM verification_codes ` + where

	vc := &models.VerificationCode{}
	err := r.db.QueryRowContext(ctx, query, arg).Scan(&vc.ID, &vc.UserID, &vc.Code, &vc.EmailSent, &vc.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return vc, nil
}
