package services

import (
	"context"
	"testing"

	"github.com/dmitrijs2005/soundfilter/internal/common"
	"github.com/dmitrijs2005/soundfilter/internal/server/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProjectService_CreateFromUpload(t *testing.T) {
	env := newTestEnv(t)
	u := env.seedUser(t, "ann@example.com", "Secret123")

	resp, err := env.projects.CreateFromUpload(context.Background(), u.ID, CreateProjectInput{
		Name:        " Podcast ",
		Description: "episode 1",
		File:        FileUpload{FileName: "Episode.MP3", ContentType: "audio/mpeg", Data: []byte("id3-data")},
	})
	require.NoError(t, err)

	require.Len(t, resp.AudioProjects, 1)
	p := resp.AudioProjects[0]
	assert.Equal(t, "Podcast", p.Name)
	assert.Equal(t, "episode 1", p.Description)
	assert.Equal(t, "mp3", p.Extension)
	assert.Equal(t, int64(8), p.FileSize)
	assert.Contains(t, p.AudioURL, "/audio-file/")
	assert.True(t, env.objectExists(t, p.AudioURL))

	require.Len(t, env.state.uploads, 1)
	assert.Equal(t, "Episode.MP3", env.state.uploads[0].OriginalFileName)
	assert.Equal(t, p.AudioURL, env.state.uploads[0].URL)
}

func TestProjectService_CreateFromUploadValidation(t *testing.T) {
	env := newTestEnv(t)
	u := env.seedUser(t, "ann@example.com", "Secret123")
	ctx := context.Background()

	_, err := env.projects.CreateFromUpload(ctx, u.ID, CreateProjectInput{Name: "x", File: FileUpload{FileName: "a.exe", Data: []byte("x")}})
	requireRequestError(t, err, common.ErrorBadRequest, "Unsupported format: exe")

	_, err = env.projects.CreateFromUpload(ctx, u.ID, CreateProjectInput{Name: " ", File: FileUpload{FileName: "a.mp3", Data: []byte("x")}})
	requireRequestError(t, err, common.ErrorBadRequest, "Project name is required")

	_, err = env.projects.CreateFromUpload(ctx, u.ID, CreateProjectInput{Name: "x", File: FileUpload{FileName: "a.mp3"}})
	requireRequestError(t, err, common.ErrorBadRequest, "File is required")

	assert.Equal(t, 0, env.store.Len())
	assert.Empty(t, env.state.projects)
}

func TestProjectService_ListAndGet(t *testing.T) {
	env := newTestEnv(t)
	u := env.seedUser(t, "ann@example.com", "Secret123")
	other := env.seedUser(t, "bob@example.com", "Secret123")
	p1 := env.seedProject(t, u.ID, "mp3", []byte("a"))
	p2 := env.seedProject(t, u.ID, "wav", []byte("b"))
	env.seedProject(t, other.ID, "mp3", []byte("c"))
	ctx := context.Background()

	list, err := env.projects.List(ctx, u.ID)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, p2.ID, list[0].ID)
	assert.Equal(t, p1.ID, list[1].ID)

	got, err := env.projects.Get(ctx, u.ID, p1.ID)
	require.NoError(t, err)
	assert.Equal(t, p1.AudioURL, got.AudioURL)

	_, err = env.projects.Get(ctx, other.ID, p1.ID)
	requireRequestError(t, err, common.ErrorForbidden, "This user doesn't have access to this project")

	_, err = env.projects.Get(ctx, u.ID, 777)
	requireRequestError(t, err, common.ErrorNotFound, "Project not found")

	empty, err := env.projects.List(ctx, 999)
	require.NoError(t, err)
	assert.NotNil(t, empty)
	assert.Empty(t, empty)
}

func TestProjectService_UpdateDetails(t *testing.T) {
	env := newTestEnv(t)
	u := env.seedUser(t, "ann@example.com", "Secret123")
	other := env.seedUser(t, "bob@example.com", "Secret123")
	p := env.seedProject(t, u.ID, "mp3", []byte("a"))
	ctx := context.Background()

	resp, err := env.projects.UpdateDetails(ctx, u.ID, p.ID, "Renamed", "new description")
	require.NoError(t, err)
	require.Len(t, resp.AudioProjects, 1)
	assert.Equal(t, "Renamed", resp.AudioProjects[0].Name)
	assert.Equal(t, "new description", resp.AudioProjects[0].Description)

	_, err = env.projects.UpdateDetails(ctx, u.ID, p.ID, "", "x")
	requireRequestError(t, err, common.ErrorBadRequest, "Project name is required")

	_, err = env.projects.UpdateDetails(ctx, other.ID, p.ID, "Hijack", "")
	requireRequestError(t, err, common.ErrorForbidden, "")
	assert.Equal(t, "Renamed", env.project(t, p.ID).Name)
}

func TestProjectService_Delete(t *testing.T) {
	env := newTestEnv(t)
	u := env.seedUser(t, "ann@example.com", "Secret123")
	other := env.seedUser(t, "bob@example.com", "Secret123")
	p := env.seedProject(t, u.ID, "mp3", []byte("a"))
	ctx := context.Background()

	_, err := env.projects.Delete(ctx, other.ID, p.ID)
	requireRequestError(t, err, common.ErrorForbidden, "")
	assert.True(t, env.objectExists(t, p.AudioURL))

	resp, err := env.projects.Delete(ctx, u.ID, p.ID)
	require.NoError(t, err)
	assert.Empty(t, resp.AudioProjects)
	assert.Equal(t, 0, env.store.Len())

	_, err = env.projects.Delete(ctx, u.ID, p.ID)
	requireRequestError(t, err, common.ErrorNotFound, "Project not found")
}

func TestProjectService_DeleteForeignURL(t *testing.T) {
	env := newTestEnv(t)
	u := env.seedUser(t, "ann@example.com", "Secret123")
	p, err := env.rm.Projects(nil).Create(context.Background(), &models.Project{
		UserID: u.ID, Name: "legacy", AudioURL: "https://cdn.example.com/a.mp3", AudioFormat: "mp3",
	})
	require.NoError(t, err)

	_, err = env.projects.Delete(context.Background(), u.ID, p.ID)
	require.NoError(t, err)
	assert.Empty(t, env.state.projects)
}
