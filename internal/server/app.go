// Package server wires the document store: Postgres repositories, the
// services on top of them and the gRPC endpoint.
package server

import (
	"context"
	"database/sql"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/dmitrijs2005/spendsync/internal/logging"
	"github.com/dmitrijs2005/spendsync/internal/server/config"
	gs "github.com/dmitrijs2005/spendsync/internal/server/grpc"
	"github.com/dmitrijs2005/spendsync/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/spendsync/internal/server/services"
)

// Replaced in tests.
var (
	openDB = func(dsn string) (*sql.DB, error) { return sql.Open("pgx", dsn) }

	newRepositoryManager = func() repomanager.RepositoryManager {
		return repomanager.NewPostgresRepositoryManager()
	}
)

type App struct {
	config *config.Config
	logger logging.Logger
	db     *sql.DB
	server *gs.GRPCServer
}

// NewApp connects to the database, migrates it and builds the services.
func NewApp(ctx context.Context, cfg *config.Config, logger logging.Logger) (*App, error) {
	db, err := openDB(cfg.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("db ping error: %w", err)
	}

	rm := newRepositoryManager()
	if err := rm.RunMigrations(ctx, db); err != nil {
		db.Close()
		return nil, fmt.Errorf("db migration error: %w", err)
	}

	users := services.NewUserService(db, rm, cfg)
	if n, err := users.PurgeExpiredTokens(ctx); err != nil {
		logger.Warn(ctx, "failed to purge expired refresh tokens", "error", err)
	} else if n > 0 {
		logger.Info(ctx, "Purged expired refresh tokens", "count", n)
	}

	hub := services.NewHub(logger.With("module", "hub"))
	documents := services.NewDocumentService(db, rm, hub)
	backups := services.NewBackupService(cfg)

	return &App{
		config: cfg,
		logger: logger,
		db:     db,
		server: gs.NewGRPCServer(cfg.EndpointAddrGRPC, logger, users, documents, backups, cfg.SecretKey),
	}, nil
}

// Run serves until ctx is cancelled or a termination signal arrives.
func (app *App) Run(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)
	defer stop()

	app.logger.Info(ctx, "Starting app")
	if err := app.server.Run(ctx); err != nil {
		return fmt.Errorf("grpc server error: %w", err)
	}
	app.logger.Info(ctx, "App stopped")
	return nil
}

func (app *App) Close() error {
	return app.db.Close()
}
