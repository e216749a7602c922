// Package services contains server-side business logic: users and sessions,
// audio projects and the processor-backed audio operations. Every call
// receives the caller's user id explicitly.
package services

import (
	"context"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/dmitrijs2005/soundfilter/internal/dbx"
	"github.com/dmitrijs2005/soundfilter/internal/server/models"
	"github.com/dmitrijs2005/soundfilter/internal/server/repositories/repomanager"
)

// FileUpload is a file received from the client.
type FileUpload struct {
	FileName    string
	ContentType string
	Data        []byte
}

// Extension returns the lower-cased file extension without the dot.
func (f FileUpload) Extension() string {
	return strings.ToLower(strings.TrimPrefix(path.Ext(f.FileName), "."))
}

type ProjectResponse struct {
	ID                int64     `json:"id"`
	Name              string    `json:"name"`
	Description       string    `json:"description"`
	Extension         string    `json:"extension"`
	AudioURL          string    `json:"audioUrl"`
	FileSize          int64     `json:"fileSize"`
	TranscriptionText *string   `json:"transcriptionText,omitempty"`
	CreatedAt         time.Time `json:"createdAt"`
	UpdatedAt         time.Time `json:"updatedAt"`
}

// UserResponse is the user profile together with all of the user's projects.
// Most user and project mutations answer with it.
type UserResponse struct {
	ID              int64             `json:"id"`
	Role            string            `json:"role"`
	FirstName       string            `json:"firstName"`
	LastName        string            `json:"lastName"`
	Email           string            `json:"email"`
	Verified        bool              `json:"verified"`
	ProfileImageURL string            `json:"profileImageUrl,omitempty"`
	AudioProjects   []ProjectResponse `json:"audioProjects"`
}

func newProjectResponse(p *models.Project) ProjectResponse {
	return ProjectResponse{
		ID:                p.ID,
		Name:              p.Name,
		Description:       p.Description,
		Extension:         p.AudioFormat,
		AudioURL:          p.AudioURL,
		FileSize:          p.FileSize,
		TranscriptionText: p.TranscriptionText,
		CreatedAt:         p.CreatedAt,
		UpdatedAt:         p.UpdatedAt,
	}
}

func newUserResponse(u *models.User, projects []*models.Project) *UserResponse {
	resp := &UserResponse{
		ID:              u.ID,
		Role:            u.Role,
		FirstName:       u.FirstName,
		LastName:        u.LastName,
		Email:           u.Email,
		Verified:        u.Verified,
		ProfileImageURL: u.ProfileImageURL,
		AudioProjects:   make([]ProjectResponse, 0, len(projects)),
	}
	for _, p := range projects {
		resp.AudioProjects = append(resp.AudioProjects, newProjectResponse(p))
	}
	return resp
}

// loadUserResponse reads the user and their projects through db.
func loadUserResponse(ctx context.Context, rm repomanager.RepositoryManager, db dbx.DBTX, userID int64) (*UserResponse, error) {
	user, err := rm.Users(db).GetByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("error loading user: %w", err)
	}
	projects, err := rm.Projects(db).ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("error loading projects: %w", err)
	}
	return newUserResponse(user, projects), nil
}
