package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"

	api "dabble-backend/cmd/api"
	"dabble-backend/internal/app"
	"dabble-backend/pkg/config"
	"dabble-backend/pkg/logger"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Failed to load config:", err)
	}

	appLog, err := logger.New(cfg.LogMode)
	if err != nil {
		log.Fatal("Failed to create logger:", err)
	}
	defer appLog.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Initialize database, repositories and services
	a, err := app.Build(ctx, cfg, appLog)
	if err != nil {
		appLog.Fatal("Failed to initialize application", "error", err)
	}
	defer a.Close()

	// SWEEP_INTERVAL=0 leaves delivery to an external cron running cmd/sweep.
	a.Start(cfg.SweepInterval > 0)

	handler := api.NewHandler(a)
	if err := handler.Start(ctx, ":"+cfg.Port); err != nil {
		appLog.Error("Server stopped with error", "error", err)
	}
}
