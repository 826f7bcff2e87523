// Package backend builds the record store the rest of the application
// runs on, selected by configuration: sqlite (the normal setup), sheets
// (spreadsheet as the primary store, no local mirror), or memory.
package backend

import (
	"context"
	"fmt"

	"tirelire/internal/amqp"
	"tirelire/internal/config"
	"tirelire/internal/log"
	"tirelire/internal/records"
	"tirelire/internal/records/memory"
	"tirelire/internal/remote/google"
	"tirelire/internal/storage"
)

type Type string

const (
	SQLiteBackend Type = "sqlite"
	SheetsBackend Type = "sheets"
	MemoryBackend Type = "memory"
)

func (t Type) String() string {
	return string(t)
}

func (t Type) IsValid() bool {
	switch t {
	case SQLiteBackend, SheetsBackend, MemoryBackend:
		return true
	default:
		return false
	}
}

// CleanupFunc releases the resources a backend holds.
type CleanupFunc func() error

// Result carries the built store and its cleanup.
type Result struct {
	Store   records.Store
	Cleanup CleanupFunc
}

// Build creates the record store for the configured backend. For sqlite,
// an AMQP publisher is attached when AMQP_URL is set; without it the sync
// worker's reconciliation pass is the only mirror path.
func Build(ctx context.Context, cfg *config.Config, logger *log.Logger) (*Result, error) {
	logger = logger.WithComponent(log.ComponentBackend)

	t := Type(cfg.DataBackend)
	if !t.IsValid() {
		return nil, fmt.Errorf("invalid backend type: %s", cfg.DataBackend)
	}

	switch t {
	case SQLiteBackend:
		repo, err := storage.NewSQLiteRepository(cfg.SQLiteDBPath)
		if err != nil {
			return nil, fmt.Errorf("initialize SQLite repository: %w", err)
		}

		var store records.Store = repo
		cleanup := CleanupFunc(repo.Close)
		if cfg.AMQPURL != "" {
			client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
			if err != nil {
				logger.Warn("AMQP client unavailable, continuing without sync publishing",
					log.FieldError, err.Error())
			} else {
				store = NewPublishingStore(repo, client, logger)
				cleanup = func() error {
					client.Close()
					return repo.Close()
				}
				logger.Info("AMQP sync publishing enabled",
					"exchange", cfg.AMQPExchange,
					"queue", cfg.AMQPQueue)
			}
		}

		logger.Info("initialized sqlite backend", "db_path", cfg.SQLiteDBPath)
		return &Result{Store: store, Cleanup: cleanup}, nil

	case SheetsBackend:
		client, err := google.NewFromEnv(ctx)
		if err != nil {
			return nil, fmt.Errorf("initialize Google Sheets client: %w", err)
		}
		logger.Info("initialized sheets backend", "spreadsheet_id", cfg.GoogleSpreadsheetID)
		return &Result{Store: client, Cleanup: nil}, nil

	case MemoryBackend:
		logger.Info("initialized memory backend")
		return &Result{Store: memory.New(), Cleanup: nil}, nil

	default:
		return nil, fmt.Errorf("unsupported backend type: %s", t)
	}
}
