// Package server wires the application together: configuration, database,
// object store, analysis queue and the HTTP endpoint, plus graceful
// shutdown on OS signals.
package server

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/dmitrijs2005/cipherdrive/internal/logging"
	"github.com/dmitrijs2005/cipherdrive/internal/server/api"
	"github.com/dmitrijs2005/cipherdrive/internal/server/config"
	"github.com/dmitrijs2005/cipherdrive/internal/server/queue"
	"github.com/dmitrijs2005/cipherdrive/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/cipherdrive/internal/server/services"
	"github.com/dmitrijs2005/cipherdrive/internal/server/storage"
)

type App struct {
	config *config.Config
	logger logging.Logger
	db     *sql.DB
	queue  *queue.RedisQueue
	server *api.HTTPServer
}

func NewApp(ctx context.Context, cfg *config.Config) (*App, error) {

	sl := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	logger := logging.NewSlogLogger(sl)

	db, err := sql.Open("pgx", cfg.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}

	rm := repomanager.NewPostgresRepositoryManager()
	if err := rm.RunMigrations(ctx, db); err != nil {
		return nil, fmt.Errorf("migration error: %w", err)
	}

	store, err := storage.NewS3Store(ctx, storage.Options{
		Region:       cfg.S3Region,
		User:         cfg.S3RootUser,
		Password:     cfg.S3RootPassword,
		Bucket:       cfg.S3Bucket,
		BaseEndpoint: cfg.S3BaseEndpoint,
	})
	if err != nil {
		return nil, fmt.Errorf("object store init error: %w", err)
	}
	if err := store.EnsureBucket(ctx); err != nil {
		return nil, fmt.Errorf("bucket init error: %w", err)
	}

	rq := queue.NewRedisQueue(cfg.RedisURL, cfg.AnalysisQueue)

	userSvc := services.NewUserService(db, rm, cfg)
	keySvc := services.NewKeyService(db, rm)
	nodeSvc := services.NewNodeService(db, rm, store)
	transferSvc := services.NewTransferService(db, rm, store, rq, logger, cfg)
	shareSvc := services.NewShareService(db, rm)

	srv := api.NewHTTPServer(cfg.EndpointAddr, logger, cfg.SecretKey,
		userSvc, keySvc, nodeSvc, transferSvc, shareSvc)

	return &App{config: cfg, logger: logger, db: db, queue: rq, server: srv}, nil
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
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
		if err := app.server.Run(ctx); err != nil {
			app.logger.Error(ctx, err.Error())
			cancelFunc()
		}
	}()

	wg.Wait()

	if err := app.queue.Close(); err != nil {
		app.logger.Error(ctx, err.Error())
	}
	if err := app.db.Close(); err != nil {
		app.logger.Error(ctx, err.Error())
	}
}
