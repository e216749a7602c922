// Package httpapi exposes the services over HTTP with gin.
package httpapi

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/dmitrijs2005/soundfilter/internal/logging"
	"github.com/dmitrijs2005/soundfilter/internal/server/config"
	"github.com/dmitrijs2005/soundfilter/internal/server/processor"
	"github.com/dmitrijs2005/soundfilter/internal/server/services"
	"github.com/gin-gonic/gin"
)

const shutdownTimeout = 15 * time.Second

type UserService interface {
	Register(ctx context.Context, in services.RegisterInput) (*services.UserResponse, error)
	VerifyEmail(ctx context.Context, code string) error
	Login(ctx context.Context, email, password string) (*services.TokenPair, error)
	RefreshToken(ctx context.Context, refreshToken string) (*services.TokenPair, error)
	Logout(ctx context.Context, refreshToken string) error
	Me(ctx context.Context, userID int64) (*services.UserResponse, error)
	ForgotPassword(ctx context.Context, email string) error
	ResetPassword(ctx context.Context, resetToken, password string) error
	ChangePassword(ctx context.Context, callerID int64, oldPassword, newPassword string) (*services.UserResponse, error)
	UpdateNames(ctx context.Context, callerID, userID int64, firstName, lastName string) (*services.UserResponse, error)
	UpdateProfilePicture(ctx context.Context, callerID, userID int64, file services.FileUpload) (*services.UserResponse, error)
}

type ProjectService interface {
	CreateFromUpload(ctx context.Context, callerID int64, in services.CreateProjectInput) (*services.UserResponse, error)
	List(ctx context.Context, callerID int64) ([]services.ProjectResponse, error)
	Get(ctx context.Context, callerID, projectID int64) (*services.ProjectResponse, error)
	UpdateDetails(ctx context.Context, callerID, projectID int64, name, description string) (*services.UserResponse, error)
	Delete(ctx context.Context, callerID, projectID int64) (*services.UserResponse, error)
}

type AudioService interface {
	CheckAccess(ctx context.Context, callerID, projectID int64) error
	Mute(ctx context.Context, callerID, projectID int64, params services.MuteParams) (*services.ModificationResponse, error)
	ReplaceWithTone(ctx context.Context, callerID, projectID int64, params services.ToneParams) (*services.ModificationResponse, error)
	ReplaceWithTTS(ctx context.Context, callerID, projectID int64, params services.TTSParams) (*services.ModificationResponse, error)
	ConvertFormat(ctx context.Context, callerID, projectID int64, params services.ConvertParams) (*services.ModificationResponse, error)
	Transcribe(ctx context.Context, callerID, projectID int64) (*services.TranscriptionResponse, error)
	ProcessorHealth(ctx context.Context) (*processor.Health, error)
}

// Services groups the business logic the API serves.
type Services struct {
	Users    UserService
	Projects ProjectService
	Audio    AudioService
}

type Server struct {
	engine       *gin.Engine
	address      string
	users        UserService
	projects     ProjectService
	audio        AudioService
	jwtSecret    []byte
	accessTTL    time.Duration
	loginPageURL string
	logger       logging.Logger
}

func NewServer(cfg *config.Config, svc Services, logger logging.Logger) *Server {
	registerValidators()

	s := &Server{
		engine:       gin.New(),
		address:      cfg.HTTPAddress,
		users:        svc.Users,
		projects:     svc.Projects,
		audio:        svc.Audio,
		jwtSecret:    []byte(cfg.SecretKey),
		accessTTL:    cfg.AccessTokenValidityDuration,
		loginPageURL: cfg.LoginPageURL,
		logger:       logger.With("module", "http_server"),
	}

	s.engine.Use(gin.Recovery())
	s.engine.Use(RequestLogger(s.logger))
	s.engine.Use(MaxBodySize(cfg.MaxUploadBytes))
	s.engine.Use(CORS(cfg.AllowedOrigins))

	s.registerRoutes()
	return s
}

// MountObjects serves h for GET and HEAD under prefix. It is used for the
// in-memory object store, whose URLs point back at this server.
func (s *Server) MountObjects(prefix string, h http.Handler) {
	wrapped := gin.WrapH(h)
	s.engine.GET(prefix+"/*key", wrapped)
	s.engine.HEAD(prefix+"/*key", wrapped)
}

func (s *Server) Handler() http.Handler {
	return s.engine
}

// Run serves until ctx is canceled and then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.address,
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		s.logger.Info(ctx, "Stopping HTTP server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			s.logger.Error(shutdownCtx, "shutdown failed", "error", err)
		}
	}()

	s.logger.Info(ctx, "Starting HTTP server", "address", s.address)

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
