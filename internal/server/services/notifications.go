package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/dmitrijs2005/soundfilter/internal/common"
	"github.com/dmitrijs2005/soundfilter/internal/logging"
	"github.com/dmitrijs2005/soundfilter/internal/server/config"
	"github.com/dmitrijs2005/soundfilter/internal/server/jobs"
	"github.com/dmitrijs2005/soundfilter/internal/server/mailer"
	"github.com/dmitrijs2005/soundfilter/internal/server/repositories/repomanager"
)

// Notifier handles the e-mail jobs queued by UserService. Each handler
// reloads its row and skips rows whose e-mail was already sent, so a job
// delivered twice sends at most one extra message.
type Notifier struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	sender      mailer.Sender
	appName     string
	baseURL     string
	logger      logging.Logger
}

func NewNotifier(db *sql.DB, m repomanager.RepositoryManager, sender mailer.Sender, cfg *config.Config, logger logging.Logger) *Notifier {
	return &Notifier{
		db:          db,
		repomanager: m,
		sender:      sender,
		appName:     cfg.ApplicationName,
		baseURL:     strings.TrimRight(cfg.BaseURL, "/"),
		logger:      logger.With("module", "notifier"),
	}
}

// Register installs the e-mail handlers on pool.
func (n *Notifier) Register(pool *jobs.Pool) {
	pool.Handle(jobs.TypeWelcomeEmail, n.SendWelcomeEmail)
	pool.Handle(jobs.TypePasswordResetEmail, n.SendPasswordResetEmail)
}

// SendWelcomeEmail sends the verification link for the code in job.
func (n *Notifier) SendWelcomeEmail(ctx context.Context, job *jobs.Job) error {
	var payload jobs.RecordPayload
	if err := job.Decode(&payload); err != nil {
		n.logger.Error(ctx, "dropping malformed job", "job_id", job.ID, "error", err)
		return nil
	}

	codes := n.repomanager.VerificationCodes(n.db)
	code, err := codes.GetByID(ctx, payload.RecordID)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			// Already verified: the code is deleted on use.
			return nil
		}
		return fmt.Errorf("error loading verification code: %w", err)
	}
	if code.EmailSent {
		return nil
	}

	user, err := n.repomanager.Users(n.db).GetByID(ctx, code.UserID)
	if err != nil {
		return fmt.Errorf("error loading user: %w", err)
	}

	html, err := mailer.RenderWelcome(mailer.WelcomeData{
		ApplicationName:  n.appName,
		FirstName:        user.FirstName,
		VerificationLink: n.baseURL + "/api/users/verify-email?token=" + url.QueryEscape(code.Code),
	})
	if err != nil {
		return err
	}

	msg := mailer.Message{To: []string{user.Email}, Subject: mailer.WelcomeSubject, HTML: html}
	if err := n.sender.Send(ctx, msg); err != nil {
		return err
	}

	n.logger.Info(ctx, "welcome email sent", "user_id", user.ID)
	return codes.MarkEmailSent(ctx, code.ID)
}

// SendPasswordResetEmail sends the reset link for the token in job.
func (n *Notifier) SendPasswordResetEmail(ctx context.Context, job *jobs.Job) error {
	var payload jobs.RecordPayload
	if err := job.Decode(&payload); err != nil {
		n.logger.Error(ctx, "dropping malformed job", "job_id", job.ID, "error", err)
		return nil
	}

	resets := n.repomanager.PasswordResets(n.db)
	token, err := resets.GetByID(ctx, payload.RecordID)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			// Already used.
			return nil
		}
		return fmt.Errorf("error loading password reset token: %w", err)
	}
	if token.EmailSent {
		return nil
	}

	user, err := n.repomanager.Users(n.db).GetByID(ctx, token.UserID)
	if err != nil {
		return fmt.Errorf("error loading user: %w", err)
	}

	html, err := mailer.RenderPasswordReset(mailer.PasswordResetData{
		ApplicationName: n.appName,
		FirstName:       user.FirstName,
		Link:            n.baseURL + "/auth/reset-password?token=" + url.QueryEscape(token.Token),
	})
	if err != nil {
		return err
	}

	msg := mailer.Message{To: []string{user.Email}, Subject: mailer.PasswordResetSubject, HTML: html}
	if err := n.sender.Send(ctx, msg); err != nil {
		return err
	}

	n.logger.Info(ctx, "password reset email sent", "user_id", user.ID)
	return resets.MarkEmailSent(ctx, token.ID)
}
