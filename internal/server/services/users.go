package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dmitrijs2005/soundfilter/internal/common"
	"github.com/dmitrijs2005/soundfilter/internal/dbx"
	"github.com/dmitrijs2005/soundfilter/internal/logging"
	"github.com/dmitrijs2005/soundfilter/internal/server/auth"
	"github.com/dmitrijs2005/soundfilter/internal/server/config"
	"github.com/dmitrijs2005/soundfilter/internal/server/jobs"
	"github.com/dmitrijs2005/soundfilter/internal/server/models"
	"github.com/dmitrijs2005/soundfilter/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/soundfilter/internal/server/storage"
)

// TokenPair bundles a short-lived access token and a long-lived refresh token.
type TokenPair struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

type RegisterInput struct {
	Email     string
	Password  string
	FirstName string
	LastName  string
}

// UserService handles accounts and sessions:
// - Register/VerifyEmail: create users and confirm their e-mail
// - Login/RefreshToken/Logout: mint, rotate and revoke tokens
// - ForgotPassword/ResetPassword/ChangePassword: password lifecycle
// - UpdateNames/UpdateProfilePicture: profile edits
type UserService struct {
	db                           *sql.DB
	repomanager                  repomanager.RepositoryManager
	store                        storage.ObjectStore
	queue                        jobs.Queue
	logger                       logging.Logger
	jwtSecret                    []byte
	accessTokenValidityDuration  time.Duration
	refreshTokenValidityDuration time.Duration
	resetTokenValidityDuration   time.Duration
}

func NewUserService(db *sql.DB, m repomanager.RepositoryManager, store storage.ObjectStore, queue jobs.Queue,
	cfg *config.Config, logger logging.Logger) *UserService {
	return &UserService{
		db:                           db,
		repomanager:                  m,
		store:                        store,
		queue:                        queue,
		logger:                       logger.With("module", "users"),
		jwtSecret:                    []byte(cfg.SecretKey),
		accessTokenValidityDuration:  cfg.AccessTokenValidityDuration,
		refreshTokenValidityDuration: cfg.RefreshTokenValidityDuration,
		resetTokenValidityDuration:   cfg.ResetTokenValidityDuration,
	}
}

// Register creates an unverified user together with a verification code and
// queues the welcome e-mail. A taken e-mail is reported as a field error.
func (s *UserService) Register(ctx context.Context, in RegisterInput) (*UserResponse, error) {
	hash, err := auth.HashPassword(in.Password)
	if err != nil {
		return nil, fmt.Errorf("error hashing password: %w", err)
	}

	var (
		user *models.User
		code *models.VerificationCode
	)
	err = dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		u, err := s.repomanager.Users(tx).Create(ctx, &models.User{
			Email:        normalizeEmail(in.Email),
			PasswordHash: hash,
			FirstName:    strings.TrimSpace(in.FirstName),
			LastName:     strings.TrimSpace(in.LastName),
			Role:         models.RoleUser,
		})
		if err != nil {
			if errors.Is(err, common.ErrorAlreadyExists) {
				return common.Unprocessable(map[string]string{"email": "Email is already taken"})
			}
			return fmt.Errorf("error creating user: %w", err)
		}

		secret, err := common.MakeRandHexString(16)
		if err != nil {
			return err
		}
		code, err = s.repomanager.VerificationCodes(tx).Create(ctx, u.ID, secret)
		if err != nil {
			return fmt.Errorf("error creating verification code: %w", err)
		}
		user = u
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.enqueue(ctx, jobs.TypeWelcomeEmail, code.ID)
	return newUserResponse(user, nil), nil
}

// VerifyEmail marks the owner of code as verified and consumes the code.
func (s *UserService) VerifyEmail(ctx context.Context, code string) error {
	vc, err := s.repomanager.VerificationCodes(s.db).GetByCode(ctx, code)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return common.BadRequest("Invalid verification code")
		}
		return fmt.Errorf("error searching verification code: %w", err)
	}

	return dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		if err := s.repomanager.Users(tx).MarkVerified(ctx, vc.UserID); err != nil {
			return fmt.Errorf("error verifying user: %w", err)
		}
		if err := s.repomanager.VerificationCodes(tx).Delete(ctx, vc.ID); err != nil {
			return fmt.Errorf("error deleting verification code: %w", err)
		}
		return nil
	})
}

// Login verifies the e-mail/password pair and returns a new TokenPair. Unknown
// e-mail and wrong password are indistinguishable to the caller.
func (s *UserService) Login(ctx context.Context, email, password string) (*TokenPair, error) {
	user, err := s.repomanager.Users(s.db).GetByEmail(ctx, normalizeEmail(email))
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrorUnauthorized
		}
		return nil, common.ErrorInternal
	}

	ok, err := auth.CheckPassword(user.PasswordHash, password)
	if err != nil {
		return nil, common.ErrorInternal
	}
	if !ok {
		return nil, common.ErrorUnauthorized
	}

	return s.generateTokenPair(ctx, user.ID, s.db)
}

// RefreshToken consumes a refresh token and issues a fresh TokenPair in the
// same transaction, so a token can be rotated only once. An expired token is
// still consumed and yields ErrRefreshTokenExpired.
func (s *UserService) RefreshToken(ctx context.Context, refreshToken string) (*TokenPair, error) {
	var tokenPair *TokenPair
	expired := false

	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		token, err := s.repomanager.RefreshTokens(tx).Consume(ctx, refreshToken)
		if err != nil {
			if errors.Is(err, common.ErrorNotFound) {
				return common.ErrInvalidToken
			}
			return fmt.Errorf("error consuming refresh token: %w", err)
		}

		if token.Expires.Before(time.Now()) {
			expired = true
			return nil
		}

		tokenPair, err = s.generateTokenPair(ctx, token.UserID, tx)
		return err
	})
	if err != nil {
		return nil, err
	}
	if expired {
		return nil, common.ErrRefreshTokenExpired
	}

	return tokenPair, nil
}

// Logout revokes refreshToken. Unknown tokens are ignored.
func (s *UserService) Logout(ctx context.Context, refreshToken string) error {
	if refreshToken == "" {
		return nil
	}
	err := s.repomanager.RefreshTokens(s.db).Delete(ctx, refreshToken)
	if err != nil && !errors.Is(err, common.ErrorNotFound) {
		return fmt.Errorf("error deleting refresh token: %w", err)
	}
	return nil
}

// Me returns the caller's profile. A token whose user is gone is unauthorized.
func (s *UserService) Me(ctx context.Context, userID int64) (*UserResponse, error) {
	resp, err := loadUserResponse(ctx, s.repomanager, s.db, userID)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrorUnauthorized
		}
		return nil, err
	}
	return resp, nil
}

// ForgotPassword creates a reset token and queues the reset e-mail.
func (s *UserService) ForgotPassword(ctx context.Context, email string) error {
	user, err := s.repomanager.Users(s.db).GetByEmail(ctx, normalizeEmail(email))
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return common.NotFound("User not found")
		}
		return fmt.Errorf("error searching user: %w", err)
	}

	secret, err := common.MakeRandHexString(32)
	if err != nil {
		return err
	}
	token, err := s.repomanager.PasswordResets(s.db).Create(ctx, user.ID, secret, s.resetTokenValidityDuration)
	if err != nil {
		return fmt.Errorf("error creating password reset token: %w", err)
	}

	s.enqueue(ctx, jobs.TypePasswordResetEmail, token.ID)
	return nil
}

// ResetPassword sets a new password using a reset token. The token is
// single-use.
func (s *UserService) ResetPassword(ctx context.Context, resetToken, password string) error {
	token, err := s.repomanager.PasswordResets(s.db).GetByToken(ctx, resetToken)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return common.NotFound("Password reset token not found")
		}
		return fmt.Errorf("error searching password reset token: %w", err)
	}
	if token.ExpiresAt.Before(time.Now()) {
		return common.BadRequest("Password reset token has expired")
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		return fmt.Errorf("error hashing password: %w", err)
	}

	return dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		if err := s.repomanager.Users(tx).UpdatePassword(ctx, token.UserID, hash); err != nil {
			return fmt.Errorf("error updating password: %w", err)
		}
		if err := s.repomanager.PasswordResets(tx).Delete(ctx, token.ID); err != nil {
			return fmt.Errorf("error deleting password reset token: %w", err)
		}
		return s.endSessions(ctx, tx, token.UserID)
	})
}

// ChangePassword replaces the caller's password after checking the old one.
func (s *UserService) ChangePassword(ctx context.Context, callerID int64, oldPassword, newPassword string) (*UserResponse, error) {
	users := s.repomanager.Users(s.db)
	user, err := users.GetByID(ctx, callerID)
	if err != nil {
		return nil, fmt.Errorf("error loading user: %w", err)
	}

	ok, err := auth.CheckPassword(user.PasswordHash, oldPassword)
	if err != nil {
		return nil, fmt.Errorf("error checking password: %w", err)
	}
	if !ok {
		return nil, common.BadRequest("Wrong Password")
	}

	hash, err := auth.HashPassword(newPassword)
	if err != nil {
		return nil, fmt.Errorf("error hashing password: %w", err)
	}
	err = dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		if err := s.repomanager.Users(tx).UpdatePassword(ctx, callerID, hash); err != nil {
			return fmt.Errorf("error updating password: %w", err)
		}
		return s.endSessions(ctx, tx, callerID)
	})
	if err != nil {
		return nil, err
	}

	return loadUserResponse(ctx, s.repomanager, s.db, callerID)
}

// UpdateNames changes first and last name of userID, which must be the caller.
func (s *UserService) UpdateNames(ctx context.Context, callerID, userID int64, firstName, lastName string) (*UserResponse, error) {
	if callerID != userID {
		return nil, common.Forbidden("You can only update your own profile")
	}

	err := s.repomanager.Users(s.db).UpdateNames(ctx, userID, strings.TrimSpace(firstName), strings.TrimSpace(lastName))
	if err != nil {
		return nil, fmt.Errorf("error updating user: %w", err)
	}

	return loadUserResponse(ctx, s.repomanager, s.db, userID)
}

// UpdateProfilePicture stores file as the new profile image of userID, which
// must be the caller. The previous image is removed best-effort.
func (s *UserService) UpdateProfilePicture(ctx context.Context, callerID, userID int64, file FileUpload) (*UserResponse, error) {
	if callerID != userID {
		return nil, common.Forbidden("You can only update your own profile")
	}
	if len(file.Data) == 0 {
		return nil, common.BadRequest("File is required")
	}
	ext := file.Extension()
	if ext == "" {
		return nil, common.BadRequest("File extension is missing")
	}

	user, err := s.repomanager.Users(s.db).GetByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("error loading user: %w", err)
	}

	contentType := file.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	key := storage.NewObjectKey(userID, storage.CategoryProfilePicture, ext)
	url, err := s.store.Put(ctx, key, file.Data, contentType)
	if err != nil {
		return nil, common.Internal("Error storing file: %v", err)
	}

	err = dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		_, err := s.repomanager.UploadedFiles(tx).Create(ctx, &models.UploadedFile{
			UserID:           userID,
			OriginalFileName: file.FileName,
			Size:             int64(len(file.Data)),
			Extension:        ext,
			URL:              url,
		})
		if err != nil {
			return fmt.Errorf("error recording upload: %w", err)
		}
		if err := s.repomanager.Users(tx).UpdateProfileImage(ctx, userID, url); err != nil {
			return fmt.Errorf("error updating profile image: %w", err)
		}
		return nil
	})
	if err != nil {
		deleteObjectQuietly(ctx, s.store, s.logger, url)
		return nil, err
	}

	if user.ProfileImageURL != "" {
		deleteObjectQuietly(ctx, s.store, s.logger, user.ProfileImageURL)
	}

	return loadUserResponse(ctx, s.repomanager, s.db, userID)
}

// --- helpers below ---

func (s *UserService) enqueue(ctx context.Context, typ string, recordID int64) {
	enqueueRecordJob(ctx, s.queue, s.logger, typ, recordID)
}

func (s *UserService) generateAccessToken(userID int64) (string, error) {
	return auth.GenerateToken(userID, s.jwtSecret, s.accessTokenValidityDuration)
}

func (s *UserService) generateRefreshToken() (string, error) {
	return common.MakeRandHexString(32)
}

func (s *UserService) generateTokenPair(ctx context.Context, userID int64, tx dbx.DBTX) (*TokenPair, error) {
	accessToken, err := s.generateAccessToken(userID)
	if err != nil {
		return nil, common.ErrorInternal
	}

	refreshToken, err := s.generateRefreshToken()
	if err != nil {
		return nil, common.ErrorInternal
	}

	err = s.repomanager.RefreshTokens(tx).Create(ctx, userID, refreshToken, s.refreshTokenValidityDuration)
	if err != nil {
		return nil, common.ErrorInternal
	}

	return &TokenPair{AccessToken: accessToken, RefreshToken: refreshToken}, nil
}

// endSessions revokes every refresh token of userID after a password change.
// Access tokens already issued stay valid until they expire.
func (s *UserService) endSessions(ctx context.Context, tx dbx.DBTX, userID int64) error {
	n, err := s.repomanager.RefreshTokens(tx).DeleteByUser(ctx, userID)
	if err != nil {
		return fmt.Errorf("error revoking sessions: %w", err)
	}
	s.logger.Info(ctx, "sessions revoked", "user_id", userID, "count", n)
	return nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// enqueueRecordJob queues a job pointing at a database row. A failure is
// logged, not returned: the row is already committed.
func enqueueRecordJob(ctx context.Context, q jobs.Queue, logger logging.Logger, typ string, recordID int64) {
	job, err := jobs.NewJob(typ, jobs.RecordPayload{RecordID: recordID})
	if err == nil {
		err = q.Enqueue(ctx, job)
	}
	if err != nil {
		logger.Error(ctx, "enqueue failed", "job_type", typ, "record_id", recordID, "error", err)
	}
}

// deleteObjectQuietly removes the object behind url. Failures are logged and
// swallowed; urls that do not belong to the store are skipped.
func deleteObjectQuietly(ctx context.Context, store storage.ObjectStore, logger logging.Logger, url string) {
	key, err := store.KeyFromURL(url)
	if err != nil {
		logger.Warn(ctx, "skipping delete of foreign object", "url", url, "error", err)
		return
	}
	if err := store.Delete(ctx, key); err != nil {
		logger.Warn(ctx, "failed to delete object", "key", key, "error", err)
	}
}
