package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"tirelire/internal/backend"
	"tirelire/internal/config"
	"tirelire/internal/ledger"
	applog "tirelire/internal/log"
	"tirelire/internal/services"
)

// recurring-worker runs the due-expense sweep on its own schedule, for
// deployments where the HTTP server is not the one generating
// transactions from recurring expenses.
func main() {
	// Load .env file for local development (ignore errors in production/docker)
	_ = godotenv.Load()

	logger := applog.New(applog.DefaultConfig())
	applog.SetDefault(logger)

	logger.Info("Starting recurring-worker")

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", applog.FieldError, err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	result, err := backend.Build(ctx, cfg, logger)
	if err != nil {
		logger.Error("Backend initialization failed", applog.FieldError, err, "backend", cfg.DataBackend)
		os.Exit(1)
	}
	if result.Cleanup != nil {
		defer func() {
			if err := result.Cleanup(); err != nil {
				logger.Error("Backend cleanup failed", applog.FieldError, err)
			}
		}()
	}

	l := ledger.New(result.Store, logger)
	if err := l.Load(ctx); err != nil {
		logger.Error("Ledger load failed", applog.FieldError, err)
		os.Exit(1)
	}

	processor := services.NewRecurringProcessor(l, logger)
	processor.Run(ctx, cfg.SweepInterval)

	logger.Info("recurring-worker stopped")
}
