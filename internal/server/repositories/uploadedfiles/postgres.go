// Package uploadedfiles records every blob the server places in object storage.
package uploadedfiles

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/soundfilter/internal/dbx"
	"github.com/dmitrijs2005/soundfilter/internal/server/models"
)

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Create(ctx context.Context, f *models.UploadedFile) (*models.UploadedFile, error) {
	query := `
		INSERT INTO uploaded_files (user_id, original_file_name, size, extension, url)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at, uploaded_at
	`
	err := r.db.QueryRowContext(ctx, query, f.UserID, f.OriginalFileName, f.Size, f.Extension, f.URL).
		Scan(&f.ID, &f.CreatedAt, &f.UploadedAt)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return f, nil
}

func (r *PostgresRepository) ListByUser(ctx context.Context, userID int64) ([]*models.UploadedFile, error) {
	query := `
		SELECT id, user_id, original_file_name, size, extension, url, created_at, uploaded_at
		FROM uploaded_files
		WHERE user_id = $1
		ORDER BY id
	`
	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to select uploaded files: %w", err)
	}
	defer rows.Close()

	var result []*models.UploadedFile
	for rows.Next() {
		var item models.UploadedFile
		if err := rows.Scan(
			&item.ID, &item.UserID, &item.OriginalFileName, &item.Size, &item.Extension, &item.URL,
			&item.CreatedAt, &item.UploadedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, &item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}
