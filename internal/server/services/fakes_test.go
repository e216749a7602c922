package services

import (
	"context"
	"database/sql"
	"net/http/httptest"
	"slices"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/dmitrijs2005/soundfilter/internal/common"
	"github.com/dmitrijs2005/soundfilter/internal/dbx"
	"github.com/dmitrijs2005/soundfilter/internal/logging"
	"github.com/dmitrijs2005/soundfilter/internal/server/auth"
	"github.com/dmitrijs2005/soundfilter/internal/server/config"
	"github.com/dmitrijs2005/soundfilter/internal/server/jobs"
	"github.com/dmitrijs2005/soundfilter/internal/server/mailer"
	"github.com/dmitrijs2005/soundfilter/internal/server/models"
	"github.com/dmitrijs2005/soundfilter/internal/server/processor"
	"github.com/dmitrijs2005/soundfilter/internal/server/repositories/passwordresets"
	"github.com/dmitrijs2005/soundfilter/internal/server/repositories/projects"
	"github.com/dmitrijs2005/soundfilter/internal/server/repositories/refreshtokens"
	"github.com/dmitrijs2005/soundfilter/internal/server/repositories/uploadedfiles"
	"github.com/dmitrijs2005/soundfilter/internal/server/repositories/users"
	"github.com/dmitrijs2005/soundfilter/internal/server/repositories/verificationcodes"
	"github.com/dmitrijs2005/soundfilter/internal/server/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"
)

// --- in-memory database shared by the fake repositories ---

type fakeState struct {
	mu       sync.Mutex
	nextID   int64
	users    map[int64]*models.User
	projects map[int64]*models.Project
	refresh  map[string]*models.RefreshToken
	codes    map[int64]*models.VerificationCode
	resets   map[int64]*models.PasswordResetToken
	uploads  []*models.UploadedFile

	// beforeReplace runs inside ReplaceAudio before the url check, to
	// simulate a concurrent writer.
	beforeReplace func(p *models.Project)
	replaceErr    error
}

func newFakeState() *fakeState {
	return &fakeState{
		users:    map[int64]*models.User{},
		projects: map[int64]*models.Project{},
		refresh:  map[string]*models.RefreshToken{},
		codes:    map[int64]*models.VerificationCode{},
		resets:   map[int64]*models.PasswordResetToken{},
	}
}

func (s *fakeState) id() int64 {
	s.nextID++
	return s.nextID
}

type fakeRepoManager struct{ s *fakeState }

func (m *fakeRepoManager) RunMigrations(context.Context, *sql.DB) error { return nil }
func (m *fakeRepoManager) Users(dbx.DBTX) users.Repository                { return &fakeUsers{m.s} }
func (m *fakeRepoManager) RefreshTokens(dbx.DBTX) refreshtokens.Repository {
	return &fakeRefreshTokens{m.s}
}
func (m *fakeRepoManager) Projects(dbx.DBTX) projects.Repository { return &fakeProjects{m.s} }
func (m *fakeRepoManager) UploadedFiles(dbx.DBTX) uploadedfiles.Repository {
	return &fakeUploads{m.s}
}
func (m *fakeRepoManager) VerificationCodes(dbx.DBTX) verificationcodes.Repository {
	return &fakeCodes{m.s}
}
func (m *fakeRepoManager) PasswordResets(dbx.DBTX) passwordresets.Repository {
	return &fakeResets{m.s}
}

type fakeUsers struct{ s *fakeState }

func (r *fakeUsers) Create(_ context.Context, u *models.User) (*models.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, existing := range r.s.users {
		if strings.EqualFold(existing.Email, u.Email) {
			return nil, common.ErrorAlreadyExists
		}
	}
	cp := *u
	cp.ID = r.s.id()
	cp.CreatedAt, cp.UpdatedAt = time.Now(), time.Now()
	r.s.users[cp.ID] = &cp
	out := cp
	return &out, nil
}

func (r *fakeUsers) GetByID(_ context.Context, id int64) (*models.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	u, ok := r.s.users[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	cp := *u
	return &cp, nil
}

func (r *fakeUsers) GetByEmail(_ context.Context, email string) (*models.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, u := range r.s.users {
		if strings.EqualFold(u.Email, email) {
			cp := *u
			return &cp, nil
		}
	}
	return nil, common.ErrorNotFound
}

func (r *fakeUsers) update(id int64, fn func(u *models.User)) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	u, ok := r.s.users[id]
	if !ok {
		return common.ErrorNotFound
	}
	fn(u)
	u.UpdatedAt = time.Now()
	return nil
}

func (r *fakeUsers) MarkVerified(_ context.Context, id int64) error {
	return r.update(id, func(u *models.User) { u.Verified = true })
}

func (r *fakeUsers) UpdateNames(_ context.Context, id int64, first, last string) error {
	return r.update(id, func(u *models.User) { u.FirstName, u.LastName = first, last })
}

func (r *fakeUsers) UpdatePassword(_ context.Context, id int64, hash string) error {
	return r.update(id, func(u *models.User) { u.PasswordHash = hash })
}

func (r *fakeUsers) UpdateProfileImage(_ context.Context, id int64, url string) error {
	return r.update(id, func(u *models.User) { u.ProfileImageURL = url })
}

type fakeRefreshTokens struct{ s *fakeState }

func (r *fakeRefreshTokens) Create(_ context.Context, userID int64, token string, validity time.Duration) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.refresh[token] = &models.RefreshToken{ID: r.s.id(), UserID: userID, Token: token, Expires: time.Now().Add(validity)}
	return nil
}

func (r *fakeRefreshTokens) Consume(_ context.Context, token string) (*models.RefreshToken, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	t, ok := r.s.refresh[token]
	if !ok {
		return nil, common.ErrorNotFound
	}
	delete(r.s.refresh, token)
	cp := *t
	return &cp, nil
}

func (r *fakeRefreshTokens) DeleteByUser(_ context.Context, userID int64) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var n int64
	for tok, t := range r.s.refresh {
		if t.UserID == userID {
			delete(r.s.refresh, tok)
			n++
		}
	}
	return n, nil
}

func (r *fakeRefreshTokens) Delete(_ context.Context, token string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.refresh[token]; !ok {
		return common.ErrorNotFound
	}
	delete(r.s.refresh, token)
	return nil
}

type fakeProjects struct{ s *fakeState }

func (r *fakeProjects) Create(_ context.Context, p *models.Project) (*models.Project, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	cp := *p
	cp.ID = r.s.id()
	cp.CreatedAt, cp.UpdatedAt = time.Now(), time.Now()
	r.s.projects[cp.ID] = &cp
	out := cp
	return &out, nil
}

func (r *fakeProjects) GetByID(_ context.Context, id int64) (*models.Project, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	p, ok := r.s.projects[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	cp := *p
	return &cp, nil
}

func (r *fakeProjects) ListByUser(_ context.Context, userID int64) ([]*models.Project, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := []*models.Project{}
	for _, p := range r.s.projects {
		if p.UserID == userID {
			cp := *p
			out = append(out, &cp)
		}
	}
	slices.SortFunc(out, func(a, b *models.Project) int { return int(b.ID - a.ID) })
	return out, nil
}

func (r *fakeProjects) UpdateDetails(_ context.Context, id int64, name, description string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	p, ok := r.s.projects[id]
	if !ok {
		return common.ErrorNotFound
	}
	p.Name, p.Description = name, description
	return nil
}

func (r *fakeProjects) ReplaceAudio(_ context.Context, id int64, rep projects.AudioReplacement) (*models.Project, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.replaceErr != nil {
		return nil, r.s.replaceErr
	}
	p, ok := r.s.projects[id]
	if ok && r.s.beforeReplace != nil {
		r.s.beforeReplace(p)
	}
	if !ok || p.AudioURL != rep.OldURL {
		return nil, common.ErrVersionConflict
	}
	p.AudioURL, p.AudioFormat, p.FileSize = rep.NewURL, rep.Format, rep.FileSize
	p.UpdatedAt = time.Now()
	cp := *p
	return &cp, nil
}

func (r *fakeProjects) SetTranscription(_ context.Context, id int64, text string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	p, ok := r.s.projects[id]
	if !ok {
		return common.ErrorNotFound
	}
	p.TranscriptionText = &text
	return nil
}

func (r *fakeProjects) Delete(_ context.Context, id int64) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.projects[id]; !ok {
		return common.ErrorNotFound
	}
	delete(r.s.projects, id)
	return nil
}

type fakeUploads struct{ s *fakeState }

func (r *fakeUploads) Create(_ context.Context, f *models.UploadedFile) (*models.UploadedFile, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	cp := *f
	cp.ID = r.s.id()
	r.s.uploads = append(r.s.uploads, &cp)
	out := cp
	return &out, nil
}

func (r *fakeUploads) ListByUser(_ context.Context, userID int64) ([]*models.UploadedFile, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := []*models.UploadedFile{}
	for _, f := range r.s.uploads {
		if f.UserID == userID {
			cp := *f
			out = append(out, &cp)
		}
	}
	return out, nil
}

type fakeCodes struct{ s *fakeState }

func (r *fakeCodes) Create(_ context.Context, userID int64, code string) (*models.VerificationCode, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	vc := &models.VerificationCode{ID: r.s.id(), UserID: userID, Code: code, CreatedAt: time.Now()}
	r.s.codes[vc.ID] = vc
	cp := *vc
	return &cp, nil
}

func (r *fakeCodes) GetByID(_ context.Context, id int64) (*models.VerificationCode, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	vc, ok := r.s.codes[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	cp := *vc
	return &cp, nil
}

func (r *fakeCodes) GetByCode(_ context.Context, code string) (*models.VerificationCode, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, vc := range r.s.codes {
		if vc.Code == code {
			cp := *vc
			return &cp, nil
		}
	}
	return nil, common.ErrorNotFound
}

func (r *fakeCodes) MarkEmailSent(_ context.Context, id int64) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	vc, ok := r.s.codes[id]
	if !ok {
		return common.ErrorNotFound
	}
	vc.EmailSent = true
	return nil
}

func (r *fakeCodes) Delete(_ context.Context, id int64) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.codes[id]; !ok {
		return common.ErrorNotFound
	}
	delete(r.s.codes, id)
	return nil
}

type fakeResets struct{ s *fakeState }

func (r *fakeResets) Create(_ context.Context, userID int64, token string, validity time.Duration) (*models.PasswordResetToken, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	t := &models.PasswordResetToken{ID: r.s.id(), UserID: userID, Token: token, ExpiresAt: time.Now().Add(validity)}
	r.s.resets[t.ID] = t
	cp := *t
	return &cp, nil
}

func (r *fakeResets) GetByID(_ context.Context, id int64) (*models.PasswordResetToken, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	t, ok := r.s.resets[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	cp := *t
	return &cp, nil
}

func (r *fakeResets) GetByToken(_ context.Context, token string) (*models.PasswordResetToken, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, t := range r.s.resets {
		if t.Token == token {
			cp := *t
			return &cp, nil
		}
	}
	return nil, common.ErrorNotFound
}

func (r *fakeResets) MarkEmailSent(_ context.Context, id int64) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	t, ok := r.s.resets[id]
	if !ok {
		return common.ErrorNotFound
	}
	t.EmailSent = true
	return nil
}

func (r *fakeResets) Delete(_ context.Context, id int64) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.resets[id]; !ok {
		return common.ErrorNotFound
	}
	delete(r.s.resets, id)
	return nil
}

// --- processor and mail fakes ---

type processorCall struct {
	endpoint string
	audio    processor.Audio
	fields   map[string]string
}

type fakeProcessor struct {
	mu            sync.Mutex
	calls         []processorCall
	out           []byte
	err           error
	transcription *processor.Transcription
}

func (f *fakeProcessor) record(endpoint string, audio processor.Audio, fields []processor.Field) {
	m := map[string]string{}
	for _, fl := range fields {
		m[fl.Name] = fl.Value
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, processorCall{endpoint: endpoint, audio: audio, fields: m})
}

func (f *fakeProcessor) Process(_ context.Context, endpoint string, audio processor.Audio, fields []processor.Field) ([]byte, error) {
	f.record(endpoint, audio, fields)
	if f.err != nil {
		return nil, f.err
	}
	return f.out, nil
}

func (f *fakeProcessor) Transcribe(_ context.Context, audio processor.Audio) (*processor.Transcription, error) {
	f.record(processor.EndpointTranscribe, audio, nil)
	if f.err != nil {
		return nil, f.err
	}
	cp := *f.transcription
	cp.Words = slices.Clone(f.transcription.Words)
	return &cp, nil
}

func (f *fakeProcessor) Health(context.Context) (*processor.Health, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &processor.Health{Status: "healthy", TTSModelLoaded: true}, nil
}

func (f *fakeProcessor) Calls() []processorCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	return slices.Clone(f.calls)
}

type fakeSender struct {
	mu   sync.Mutex
	sent []mailer.Message
	err  error
}

func (f *fakeSender) Send(_ context.Context, msg mailer.Message) error {
	if f.err != nil {
		return f.err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, msg)
	return nil
}

// --- wiring ---

type testEnv struct {
	cfg      *config.Config
	state    *fakeState
	rm       *fakeRepoManager
	store    *storage.MemoryStore
	proc     *fakeProcessor
	queue    *jobs.MemoryQueue
	sender   *fakeSender
	users    *UserService
	projects *ProjectService
	audio    *AudioService
	notifier *Notifier
}

func newTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	store := storage.NewMemoryStore("", "soundfilter")
	srv := httptest.NewServer(store)
	t.Cleanup(srv.Close)
	store.SetBaseURL(srv.URL)

	cfg := &config.Config{
		SecretKey:                    "k",
		AccessTokenValidityDuration:  time.Hour,
		RefreshTokenValidityDuration: 2 * time.Hour,
		ResetTokenValidityDuration:   time.Hour,
		DownloadTimeout:              5 * time.Second,
		ApplicationName:              "SoundFilter",
		BaseURL:                      "http://app.local/",
	}

	db := newTestDB(t)
	state := newFakeState()
	rm := &fakeRepoManager{s: state}
	proc := &fakeProcessor{out: []byte("processed-audio")}
	queue := jobs.NewMemoryQueue(16)
	sender := &fakeSender{}
	log := logging.Nop{}

	projectSvc := NewProjectService(db, rm, store, log)
	return &testEnv{
		cfg:      cfg,
		state:    state,
		rm:       rm,
		store:    store,
		proc:     proc,
		queue:    queue,
		sender:   sender,
		users:    NewUserService(db, rm, store, queue, cfg, log),
		projects: projectSvc,
		audio:    NewAudioService(projectSvc, proc, cfg, log),
		notifier: NewNotifier(db, rm, sender, cfg, log),
	}
}

func (e *testEnv) seedUser(t *testing.T, email, password string) *models.User {
	t.Helper()
	hash, err := auth.HashPassword(password)
	require.NoError(t, err)
	u, err := e.rm.Users(nil).Create(context.Background(), &models.User{
		Email: email, PasswordHash: hash, FirstName: "Ann", LastName: "Lee", Role: models.RoleUser,
	})
	require.NoError(t, err)
	return u
}

// seedProject stores data in the object store and creates a project for it.
func (e *testEnv) seedProject(t *testing.T, ownerID int64, format string, data []byte) *models.Project {
	t.Helper()
	url, err := e.store.Put(context.Background(), storage.NewObjectKey(ownerID, storage.CategoryAudio, format), data, common.AudioContentType(format))
	require.NoError(t, err)
	p, err := e.rm.Projects(nil).Create(context.Background(), &models.Project{
		UserID: ownerID, Name: "demo", AudioURL: url, AudioFormat: format, FileSize: int64(len(data)),
	})
	require.NoError(t, err)
	return p
}

func (e *testEnv) project(t *testing.T, id int64) *models.Project {
	t.Helper()
	p, err := e.rm.Projects(nil).GetByID(context.Background(), id)
	require.NoError(t, err)
	return p
}

func (e *testEnv) objectExists(t *testing.T, url string) bool {
	t.Helper()
	key, err := e.store.KeyFromURL(url)
	require.NoError(t, err)
	_, ok := e.store.Get(key)
	return ok
}

// nextJob returns the next queued job or fails.
func (e *testEnv) nextJob(t *testing.T) *jobs.Job {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	d, err := e.queue.Receive(ctx)
	require.NoError(t, err)
	require.NoError(t, d.Ack(ctx))
	return d.Job()
}

func requireRequestError(t *testing.T, err error, kind error, message string) {
	t.Helper()
	require.Error(t, err)
	require.ErrorIs(t, err, kind)
	var re *common.RequestError
	require.ErrorAs(t, err, &re)
	if message != "" {
		assert.Equal(t, message, re.Message)
	}
}
