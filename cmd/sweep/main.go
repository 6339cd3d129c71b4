// Command sweep runs one prompt delivery sweep and exits. It is meant to be
// invoked by an external scheduler such as cron.
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"dabble-backend/internal/app"
	"dabble-backend/pkg/config"
	"dabble-backend/pkg/logger"
)

func main() {
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

	a, err := app.Build(ctx, cfg, appLog)
	if err != nil {
		appLog.Fatal("Failed to initialize application", "error", err)
	}

	// Analysis workers drain follow-up jobs queued by this run before exit.
	a.Start(false)
	result, err := a.Sweep.RunOnce(ctx)
	a.Close()
	if err != nil {
		appLog.Error("Sweep failed", "error", err)
		appLog.Sync()
		os.Exit(1)
	}
	appLog.Info("Sweep finished", "sent", result.Sent, "skipped", result.Skipped, "errored", result.Errored)
	if result.Errored > 0 {
		appLog.Sync()
		os.Exit(2)
	}
}
