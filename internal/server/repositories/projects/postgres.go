// Package projects provides PostgreSQL-backed persistence for audio projects.
package projects

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/soundfilter/internal/common"
	"github.com/dmitrijs2005/soundfilter/internal/dbx"
	"github.com/dmitrijs2005/soundfilter/internal/server/models"
)

// PostgresRepository implements project storage over a dbx.DBTX (*sql.DB or *sql.Tx).
type PostgresRepository struct {
	db dbx.DBTX
}

// NewPostgresRepository constructs a repository bound to the given DBTX.
func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

const projectColumns = `id, user_id, name, description, audio_url, audio_format, file_size,
	transcription_text, duration_in_seconds, created_at, updated_at`

type scanner interface {
	Scan(dest ...any) error
}

func scanProject(s scanner) (*models.Project, error) {
	p := &models.Project{}
	err := s.Scan(
		&p.ID, &p.UserID, &p.Name, &p.Description, &p.AudioURL, &p.AudioFormat, &p.FileSize,
		&p.TranscriptionText, &p.DurationInSeconds, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return p, nil
}

func (r *PostgresRepository) Create(ctx context.Context, p *models.Project) (*models.Project, error) {
	query := `
		INSERT INTO audio_projects (user_id, name, description, audio_url, audio_format, file_size)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at, updated_at
	`
	err := r.db.QueryRowContext(ctx, query,
		p.UserID, p.Name, p.Description, p.AudioURL, p.AudioFormat, p.FileSize,
	).Scan(&p.ID, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return p, nil
}

// GetByID returns the project or common.ErrorNotFound.
func (r *PostgresRepository) GetByID(ctx context.Context, id int64) (*models.Project, error) {
	query := `SELECT ` + projectColumns + ` FROM audio_projects WHERE id = $1`

	p, err := scanProject(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return p, nil
}

// ListByUser returns the user's projects, newest first.
func (r *PostgresRepository) ListByUser(ctx context.Context, userID int64) ([]*models.Project, error) {
	query := `SELECT ` + projectColumns + ` FROM audio_projects WHERE user_id = $1 ORDER BY created_at DESC, id DESC`

	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to select projects: %w", err)
	}
	defer rows.Close()

	result := make([]*models.Project, 0)
	for rows.Next() {
		p, err := scanProject(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func (r *PostgresRepository) UpdateDetails(ctx context.Context, id int64, name, description string) error {
	query := `UPDATE audio_projects SET name = $2, description = $3, updated_at = now() WHERE id = $1`
	res, err := r.db.ExecContext(ctx, query, id, name, description)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return dbx.ExpectOneRow(res)
}

// ReplaceAudio points the project at a new audio object, provided it still
// references rep.OldURL. If another replacement committed first, no row is
// updated and common.ErrVersionConflict is returned.
func (r *PostgresRepository) ReplaceAudio(ctx context.Context, id int64, rep AudioReplacement) (*models.Project, error) {
	query := `
		UPDATE audio_projects
		SET audio_url = $3, audio_format = $4, file_size = $5, updated_at = now()
		WHERE id = $1 AND audio_url = $2
		RETURNING ` + projectColumns

	p, err := scanProject(r.db.QueryRowContext(ctx, query, id, rep.OldURL, rep.NewURL, rep.Format, rep.FileSize))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrVersionConflict
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return p, nil
}

func (r *PostgresRepository) SetTranscription(ctx context.Context, id int64, text string) error {
	query := `UPDATE audio_projects SET transcription_text = $2, updated_at = now() WHERE id = $1`
	res, err := r.db.ExecContext(ctx, query, id, text)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return dbx.ExpectOneRow(res)
}

func (r *PostgresRepository) Delete(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM audio_projects WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return dbx.ExpectOneRow(res)
}
