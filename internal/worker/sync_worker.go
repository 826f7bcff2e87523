// Package worker mirrors locally committed records to the remote record
// store. It consumes sync messages from AMQP and sweeps the pending rows
// at startup and on a timer, so a lost message only delays a mirror, never
// loses it.
package worker

import (
	"context"
	"fmt"

	"tirelire/internal/amqp"
	"tirelire/internal/log"
	"tirelire/internal/records"
	"tirelire/internal/storage"
)

type SyncWorker struct {
	storage   *storage.SQLiteRepository
	remote    records.Store
	batchSize int
	logger    *log.Logger
}

func NewSyncWorker(st *storage.SQLiteRepository, remote records.Store, batchSize int, logger *log.Logger) *SyncWorker {
	if batchSize <= 0 {
		batchSize = 50
	}
	return &SyncWorker{
		storage:   st,
		remote:    remote,
		batchSize: batchSize,
		logger:    logger.WithComponent(log.ComponentWorker),
	}
}

// HandleMessage mirrors the record a sync message points at. The message
// carries only coordinates; the current row is fetched from the database,
// so replays and reordered deliveries converge on the latest state.
func (w *SyncWorker) HandleMessage(ctx context.Context, msg *amqp.RecordSyncMessage) error {
	row, ok, err := w.storage.GetRecord(ctx, msg.EntityType, msg.ID)
	if err != nil {
		return fmt.Errorf("get record from storage: %w", err)
	}
	if !ok {
		// Row already purged, nothing left to mirror.
		w.logger.Debug("record gone, skipping sync message",
			log.FieldEntityType, msg.EntityType,
			log.FieldRecordID, msg.ID)
		return nil
	}
	return w.mirror(ctx, storage.PendingRecord{
		EntityType: row.EntityType,
		ID:         row.ID,
		Version:    row.Version,
		Deleted:    row.Deleted,
		Record:     row.Record,
	})
}

func (w *SyncWorker) mirror(ctx context.Context, row storage.PendingRecord) error {
	var err error
	if row.Deleted {
		err = w.remote.Delete(ctx, row.EntityType, []string{row.ID})
	} else {
		err = w.remote.Save(ctx, row.EntityType, row.Record)
	}
	if err != nil {
		if markErr := w.storage.MarkSyncError(ctx, row.EntityType, row.ID, err); markErr != nil {
			w.logger.Error("marking sync error failed",
				log.FieldEntityType, row.EntityType,
				log.FieldRecordID, row.ID,
				log.FieldError, markErr.Error())
		}
		return fmt.Errorf("mirror record %s/%s: %w", row.EntityType, row.ID, err)
	}

	if err := w.storage.MarkSynced(ctx, row.EntityType, row.ID, row.Version); err != nil {
		return fmt.Errorf("mark record synced: %w", err)
	}
	w.logger.Info("record mirrored",
		log.FieldEntityType, row.EntityType,
		log.FieldRecordID, row.ID,
		"version", row.Version,
		"deleted", row.Deleted)
	return nil
}

// ProcessPending mirrors every pending row, batch by batch. Returns the
// number of rows mirrored; stops at the first batch that makes no
// progress so a dead remote cannot spin the loop.
func (w *SyncWorker) ProcessPending(ctx context.Context) (int, error) {
	total := 0
	for {
		rows, err := w.storage.GetPendingSync(ctx, w.batchSize)
		if err != nil {
			return total, fmt.Errorf("get pending records: %w", err)
		}
		if len(rows) == 0 {
			return total, nil
		}

		mirrored := 0
		for _, row := range rows {
			if ctx.Err() != nil {
				return total, ctx.Err()
			}
			if err := w.mirror(ctx, row); err != nil {
				w.logger.Error("pending mirror failed",
					log.FieldEntityType, row.EntityType,
					log.FieldRecordID, row.ID,
					log.FieldError, err.Error())
				continue
			}
			mirrored++
			total++
		}
		if mirrored == 0 {
			return total, nil
		}
	}
}

// StartupSyncCheck recovers from whatever happened while the worker was
// down: errored rows go back to pending, then everything pending is
// mirrored.
func (w *SyncWorker) StartupSyncCheck(ctx context.Context) error {
	retried, err := w.storage.RetryErrored(ctx)
	if err != nil {
		return fmt.Errorf("retry errored records: %w", err)
	}
	if retried > 0 {
		w.logger.Info("errored records queued for retry", log.FieldCount, retried)
	}

	mirrored, err := w.ProcessPending(ctx)
	if err != nil {
		return fmt.Errorf("process pending records: %w", err)
	}
	w.logger.Info("startup sync check finished", log.FieldCount, mirrored)
	return nil
}
