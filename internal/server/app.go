// Package server initializes and runs the time-trial backend. It wires
// the repositories, the replay blob store, the simulator pool, and the
// domain services, and handles graceful shutdown.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/nfmw/ttserver/internal/logging"
	"github.com/nfmw/ttserver/internal/server/arbiter"
	"github.com/nfmw/ttserver/internal/server/blobstore"
	"github.com/nfmw/ttserver/internal/server/config"
	"github.com/nfmw/ttserver/internal/server/records"
	"github.com/nfmw/ttserver/internal/server/sessions"
	"github.com/nfmw/ttserver/internal/server/shared/db"
	"github.com/nfmw/ttserver/internal/server/submissions"
	"github.com/nfmw/ttserver/internal/server/users"
)

type App struct {
	config            *config.Config
	logger            logging.Logger
	manager           db.RepositoryManager
	sessionService    *sessions.Service
	userService       *users.Service
	recordService     *records.Service
	submissionService *submissions.Service
}

func NewApp(ctx context.Context, cfg *config.Config) (*App, error) {

	slogger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	logger := logging.NewSlogLogger(slogger)

	manager, err := db.NewPostgresRepositoryManager(cfg.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}

	blobs, err := newBlobStore(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("blob store init error: %w", err)
	}

	pool := arbiter.NewPool(
		arbiter.NewExternal(cfg.SimulatorPath),
		int64(cfg.ArbiterWorkers),
		cfg.ArbiterTimeout,
	)

	ss := sessions.NewService(manager.Conn(), logger)
	us := users.NewService(manager.Users(), ss, logger)
	rs := records.NewService(manager.Records(), blobs, pool, manager.Users(), logger)
	sub := submissions.NewService(pool, manager.Records(), blobs, logger)

	return &App{
		config:            cfg,
		logger:            logger,
		manager:           manager,
		sessionService:    ss,
		userService:       us,
		recordService:     rs,
		submissionService: sub,
	}, nil
}

func newBlobStore(ctx context.Context, cfg *config.Config) (blobstore.BlobStore, error) {
	switch cfg.BlobBackend {
	case "s3":
		return blobstore.NewS3Store(ctx, cfg)
	case "fs":
		return blobstore.NewFilesystem(cfg.FilestoreRoot)
	default:
		return nil, fmt.Errorf("unknown blob backend %q", cfg.BlobBackend)
	}
}

// Sessions exposes the token service to the transport layer.
func (app *App) Sessions() *sessions.Service { return app.sessionService }

// Users exposes the account service to the transport layer.
func (app *App) Users() *users.Service { return app.userService }

// Records exposes the record read paths to the transport layer.
func (app *App) Records() *records.Service { return app.recordService }

// Submissions exposes the replay intake pipeline to the transport layer.
func (app *App) Submissions() *submissions.Service { return app.submissionService }

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	// Channel to catch OS signals.
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

func (app *App) Run(ctx context.Context) {

	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting app...")

	app.initSignalHandler(cancelFunc)

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		app.submissionService.RunSweep(ctx)
	}()

	wg.Wait()

	if err := app.manager.Close(); err != nil {
		app.logger.Error(ctx, "db close error", "error", err)
	}
}
