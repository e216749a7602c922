// Package repomanager provides a concrete RepositoryManager for PostgreSQL,
// wiring together repository constructors and database migrations (via goose).
package repomanager

import (
	"context"
	"database/sql"

	"github.com/dmitrijs2005/soundfilter/internal/dbx"
	"github.com/dmitrijs2005/soundfilter/internal/server/migrations"
	"github.com/dmitrijs2005/soundfilter/internal/server/repositories/passwordresets"
	"github.com/dmitrijs2005/soundfilter/internal/server/repositories/projects"
	"github.com/dmitrijs2005/soundfilter/internal/server/repositories/refreshtokens"
	"github.com/dmitrijs2005/soundfilter/internal/server/repositories/uploadedfiles"
	"github.com/dmitrijs2005/soundfilter/internal/server/repositories/users"
	"github.com/dmitrijs2005/soundfilter/internal/server/repositories/verificationcodes"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
)

// PostgresRepositoryManager vends PostgreSQL-backed repository implementations
// and exposes a schema migration hook.
type PostgresRepositoryManager struct{}

func (m *PostgresRepositoryManager) Users(db dbx.DBTX) users.Repository {
	return users.NewPostgresRepository(db)
}

func (m *PostgresRepositoryManager) RefreshTokens(db dbx.DBTX) refreshtokens.Repository {
	return refreshtokens.NewPostgresRepository(db)
}

func (m *PostgresRepositoryManager) Projects(db dbx.DBTX) projects.Repository {
	return projects.NewPostgresRepository(db)
}

func (m *PostgresRepositoryManager) UploadedFiles(db dbx.DBTX) uploadedfiles.Repository {
	return uploadedfiles.NewPostgresRepository(db)
}

func (m *PostgresRepositoryManager) VerificationCodes(db dbx.DBTX) verificationcodes.Repository {
	return verificationcodes.NewPostgresRepository(db)
}

func (m *PostgresRepositoryManager) PasswordResets(db dbx.DBTX) passwordresets.Repository {
	return passwordresets.NewPostgresRepository(db)
}

// gooseUpContext is a seam for testing goose.UpContext.
var gooseUpContext = func(ctx context.Context, db *sql.DB, dir string, opts ...goose.OptionsFunc) error {
	return goose.UpContext(ctx, db, dir, opts...)
}

// RunMigrations sets up goose with the embedded migrations and runs them
// against the provided database connection.
func (m *PostgresRepositoryManager) RunMigrations(ctx context.Context, db *sql.DB) error {
	goose.SetBaseFS(migrations.Migrations)
	if err := goose.SetDialect("pgx"); err != nil {
		return err
	}
	if err := gooseUpContext(ctx, db, "."); err != nil {
		return err
	}
	return nil
}

// NewPostgresRepositoryManager constructs a PostgreSQL-backed RepositoryManager.
func NewPostgresRepositoryManager(db *sql.DB) (RepositoryManager, error) {
	return &PostgresRepositoryManager{}, nil
}
