package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/dmitrijs2005/spendsync/internal/buildinfo"
	"github.com/dmitrijs2005/spendsync/internal/logging"
	"github.com/dmitrijs2005/spendsync/internal/server"
	"github.com/dmitrijs2005/spendsync/internal/server/config"
)

func main() {
	buildinfo.PrintBuildData(os.Stdout)

	ctx := context.Background()
	logger := logging.NewJSON(os.Stdout, slog.LevelInfo)
	cfg := config.LoadConfig()

	app, err := server.NewApp(ctx, cfg, logger)
	if err != nil {
		logger.Error(ctx, "failed to start", "error", err)
		os.Exit(1)
	}
	defer app.Close()

	if err := app.Run(ctx); err != nil {
		logger.Error(ctx, "server stopped with error", "error", err)
	}
}
