// Package server wires the SoundFilter backend together: database and
// migrations, object storage, the job queue with its e-mail workers, the
// audio processor client and the HTTP API. It also handles graceful shutdown.
package server

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/dmitrijs2005/soundfilter/internal/logging"
	"github.com/dmitrijs2005/soundfilter/internal/server/config"
	"github.com/dmitrijs2005/soundfilter/internal/server/httpapi"
	"github.com/dmitrijs2005/soundfilter/internal/server/jobs"
	"github.com/dmitrijs2005/soundfilter/internal/server/mailer"
	"github.com/dmitrijs2005/soundfilter/internal/server/processor"
	"github.com/dmitrijs2005/soundfilter/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/soundfilter/internal/server/services"
	"github.com/dmitrijs2005/soundfilter/internal/server/storage"
	_ "github.com/jackc/pgx/v5/stdlib"
)

type App struct {
	config *config.Config
	logger logging.Logger
	db     *sql.DB
	server *httpapi.Server
	pool   *jobs.Pool
}

func NewApp(ctx context.Context, c *config.Config) (*App, error) {
	logger := logging.NewJSONLogger(os.Stdout, c.LogLevel)

	db, err := sql.Open("pgx", c.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}

	app, err := newApp(ctx, c, db, logger)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return app, nil
}

func newApp(ctx context.Context, c *config.Config, db *sql.DB, logger logging.Logger) (*App, error) {
	rm, err := repomanager.NewPostgresRepositoryManager(db)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}
	if err := rm.RunMigrations(ctx, db); err != nil {
		return nil, fmt.Errorf("migrations: %w", err)
	}

	store, err := storage.NewFromConfig(ctx, c)
	if err != nil {
		return nil, fmt.Errorf("storage init error: %w", err)
	}

	queue, err := jobs.NewFromConfig(ctx, c)
	if err != nil {
		return nil, fmt.Errorf("queue init error: %w", err)
	}

	sender := mailer.NewSMTPSender(mailer.SMTPOptions{
		Host:     c.SMTPHost,
		Port:     c.SMTPPort,
		User:     c.SMTPUser,
		Password: c.SMTPPassword,
		From:     c.SMTPSender,
	})

	pool := jobs.NewPool(queue, c.Workers, logger)
	services.NewNotifier(db, rm, sender, c, logger).Register(pool)

	projects := services.NewProjectService(db, rm, store, logger)
	audio := services.NewAudioService(projects, processor.New(c.ProcessorBaseURL, c.ProcessorTimeout), c, logger)
	users := services.NewUserService(db, rm, store, queue, c, logger)

	srv := httpapi.NewServer(c, httpapi.Services{Users: users, Projects: projects, Audio: audio}, logger)
	if mem, ok := store.(*storage.MemoryStore); ok {
		srv.MountObjects(storage.MemoryMountPath, mem)
	}

	return &App{config: c, logger: logger, db: db, server: srv, pool: pool}, nil
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

func (app *App) startHTTPServer(ctx context.Context, cancelFunc context.CancelFunc) {
	if err := app.server.Run(ctx); err != nil {
		app.logger.Error(ctx, "http server stopped", "error", err)
		cancelFunc()
	}
}

func (app *App) startWorkers(ctx context.Context, cancelFunc context.CancelFunc) {
	if err := app.pool.Run(ctx); err != nil && ctx.Err() == nil {
		app.logger.Error(ctx, "job workers stopped", "error", err)
		cancelFunc()
	}
}

// Run blocks until a termination signal arrives or ctx is canceled, then
// waits for the HTTP server and the workers to stop.
func (app *App) Run(ctx context.Context) {
	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting app...")

	app.initSignalHandler(cancelFunc)

	var wg sync.WaitGroup

	wg.Add(2)
	go func() {
		defer wg.Done()
		app.startHTTPServer(ctx, cancelFunc)
	}()
	go func() {
		defer wg.Done()
		app.startWorkers(ctx, cancelFunc)
	}()

	wg.Wait()

	if err := app.db.Close(); err != nil {
		app.logger.Error(ctx, "db close", "error", err)
	}
	app.logger.Info(ctx, "App stopped")
}
