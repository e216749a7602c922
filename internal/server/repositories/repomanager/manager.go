package repomanager

import (
	"context"
	"database/sql"

	"github.com/dmitrijs2005/soundfilter/internal/dbx"
	"github.com/dmitrijs2005/soundfilter/internal/server/repositories/passwordresets"
	"github.com/dmitrijs2005/soundfilter/internal/server/repositories/projects"
	"github.com/dmitrijs2005/soundfilter/internal/server/repositories/refreshtokens"
	"github.com/dmitrijs2005/soundfilter/internal/server/repositories/uploadedfiles"
	"github.com/dmitrijs2005/soundfilter/internal/server/repositories/users"
	"github.com/dmitrijs2005/soundfilter/internal/server/repositories/verificationcodes"
)

// RepositoryManager vends repositories bound to a DBTX, so that services can
// use the same repositories inside and outside a transaction.
type RepositoryManager interface {
	RunMigrations(context.Context, *sql.DB) error
	Users(db dbx.DBTX) users.Repository
	RefreshTokens(db dbx.DBTX) refreshtokens.Repository
	Projects(db dbx.DBTX) projects.Repository
	UploadedFiles(db dbx.DBTX) uploadedfiles.Repository
	VerificationCodes(db dbx.DBTX) verificationcodes.Repository
	PasswordResets(db dbx.DBTX) passwordresets.Repository
}
