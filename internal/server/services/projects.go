package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/dmitrijs2005/soundfilter/internal/common"
	"github.com/dmitrijs2005/soundfilter/internal/dbx"
	"github.com/dmitrijs2005/soundfilter/internal/logging"
	"github.com/dmitrijs2005/soundfilter/internal/server/models"
	"github.com/dmitrijs2005/soundfilter/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/soundfilter/internal/server/storage"
)

const (
	msgProjectNotFound = "Project not found"
	msgProjectAccess   = "This user doesn't have access to this project"
)

type CreateProjectInput struct {
	Name        string
	Description string
	File        FileUpload
}

// ProjectService manages audio projects and owns the ownership check used by
// every project-scoped operation.
type ProjectService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	store       storage.ObjectStore
	logger      logging.Logger
}

func NewProjectService(db *sql.DB, m repomanager.RepositoryManager, store storage.ObjectStore, logger logging.Logger) *ProjectService {
	return &ProjectService{
		db:          db,
		repomanager: m,
		store:       store,
		logger:      logger.With("module", "projects"),
	}
}

// authorize loads projectID and checks that callerID owns it. Not-found is
// reported before forbidden.
func (s *ProjectService) authorize(ctx context.Context, callerID, projectID int64) (*models.Project, error) {
	p, err := s.repomanager.Projects(s.db).GetByID(ctx, projectID)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.NotFound(msgProjectNotFound)
		}
		return nil, fmt.Errorf("error loading project: %w", err)
	}
	if p.UserID != callerID {
		return nil, common.Forbidden(msgProjectAccess)
	}
	return p, nil
}

// CreateFromUpload stores the uploaded audio and creates a project around it.
// The audio format is taken from the file extension.
func (s *ProjectService) CreateFromUpload(ctx context.Context, callerID int64, in CreateProjectInput) (*UserResponse, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, common.BadRequest("Project name is required")
	}
	if len(in.File.Data) == 0 {
		return nil, common.BadRequest("File is required")
	}
	ext := in.File.Extension()
	if !common.IsSupportedAudioFormat(ext) {
		return nil, common.BadRequest("Unsupported format: %s", ext)
	}

	key := storage.NewObjectKey(callerID, storage.CategoryAudio, ext)
	url, err := s.store.Put(ctx, key, in.File.Data, common.AudioContentType(ext))
	if err != nil {
		return nil, common.Internal("Error storing audio: %v", err)
	}
	size := int64(len(in.File.Data))

	var resp *UserResponse
	err = dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		_, err := s.repomanager.UploadedFiles(tx).Create(ctx, &models.UploadedFile{
			UserID:           callerID,
			OriginalFileName: in.File.FileName,
			Size:             size,
			Extension:        ext,
			URL:              url,
		})
		if err != nil {
			return fmt.Errorf("error recording upload: %w", err)
		}

		_, err = s.repomanager.Projects(tx).Create(ctx, &models.Project{
			UserID:      callerID,
			Name:        name,
			Description: strings.TrimSpace(in.Description),
			AudioURL:    url,
			AudioFormat: ext,
			FileSize:    size,
		})
		if err != nil {
			return fmt.Errorf("error creating project: %w", err)
		}

		resp, err = loadUserResponse(ctx, s.repomanager, tx, callerID)
		return err
	})
	if err != nil {
		deleteObjectQuietly(ctx, s.store, s.logger, url)
		return nil, err
	}

	s.logger.Info(ctx, "project created", "user_id", callerID, "key", key, "size", size)
	return resp, nil
}

// List returns the caller's projects, newest first.
func (s *ProjectService) List(ctx context.Context, callerID int64) ([]ProjectResponse, error) {
	projects, err := s.repomanager.Projects(s.db).ListByUser(ctx, callerID)
	if err != nil {
		return nil, fmt.Errorf("error listing projects: %w", err)
	}
	out := make([]ProjectResponse, 0, len(projects))
	for _, p := range projects {
		out = append(out, newProjectResponse(p))
	}
	return out, nil
}

func (s *ProjectService) Get(ctx context.Context, callerID, projectID int64) (*ProjectResponse, error) {
	p, err := s.authorize(ctx, callerID, projectID)
	if err != nil {
		return nil, err
	}
	resp := newProjectResponse(p)
	return &resp, nil
}

func (s *ProjectService) UpdateDetails(ctx context.Context, callerID, projectID int64, name, description string) (*UserResponse, error) {
	if _, err := s.authorize(ctx, callerID, projectID); err != nil {
		return nil, err
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, common.BadRequest("Project name is required")
	}

	err := s.repomanager.Projects(s.db).UpdateDetails(ctx, projectID, name, strings.TrimSpace(description))
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.NotFound(msgProjectNotFound)
		}
		return nil, fmt.Errorf("error updating project: %w", err)
	}

	return loadUserResponse(ctx, s.repomanager, s.db, callerID)
}

// Delete removes the project row and then, best-effort, its audio object.
func (s *ProjectService) Delete(ctx context.Context, callerID, projectID int64) (*UserResponse, error) {
	p, err := s.authorize(ctx, callerID, projectID)
	if err != nil {
		return nil, err
	}

	if err := s.repomanager.Projects(s.db).Delete(ctx, projectID); err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.NotFound(msgProjectNotFound)
		}
		return nil, fmt.Errorf("error deleting project: %w", err)
	}

	if p.AudioURL != "" {
		deleteObjectQuietly(ctx, s.store, s.logger, p.AudioURL)
	}

	return loadUserResponse(ctx, s.repomanager, s.db, callerID)
}
