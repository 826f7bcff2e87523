package worker

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"testing"

	"tirelire/internal/amqp"
	"tirelire/internal/log"
	"tirelire/internal/records"
	"tirelire/internal/records/memory"
	"tirelire/internal/storage"
)

func newTestWorker(t *testing.T) (*SyncWorker, *storage.SQLiteRepository, *memory.Store) {
	t.Helper()
	repo, err := storage.NewSQLiteRepository(filepath.Join(t.TempDir(), "tirelire.db"))
	if err != nil {
		t.Fatalf("NewSQLiteRepository: %v", err)
	}
	t.Cleanup(func() { repo.Close() })
	remote := memory.New()
	logger := log.New(log.Config{Handler: slog.NewTextHandler(io.Discard, nil)})
	return NewSyncWorker(repo, remote, 10, logger), repo, remote
}

func TestHandleMessageMirrorsRecord(t *testing.T) {
	w, repo, remote := newTestWorker(t)
	ctx := context.Background()

	rec := records.Record{records.FieldID: "tx-1", records.FieldDescription: "Courses"}
	if err := repo.Save(ctx, records.TypeTransaction, rec); err != nil {
		t.Fatalf("Save: %v", err)
	}

	msg := amqp.NewRecordSyncMessage(records.TypeTransaction, "tx-1", amqp.OpSync, 1)
	if err := w.HandleMessage(ctx, msg); err != nil {
		t.Fatalf("HandleMessage: %v", err)
	}

	if remote.Count(records.TypeTransaction) != 1 {
		t.Error("record not mirrored to the remote store")
	}
	pending, err := repo.GetPendingSync(ctx, 10)
	if err != nil {
		t.Fatalf("GetPendingSync: %v", err)
	}
	if len(pending) != 0 {
		t.Errorf("still %d pending rows after mirror, want 0", len(pending))
	}
}

func TestHandleMessageForGoneRecordIsNoop(t *testing.T) {
	w, _, remote := newTestWorker(t)

	msg := amqp.NewRecordSyncMessage(records.TypeTransaction, "missing", amqp.OpSync, 1)
	if err := w.HandleMessage(context.Background(), msg); err != nil {
		t.Fatalf("HandleMessage: %v", err)
	}
	if remote.Count(records.TypeTransaction) != 0 {
		t.Error("nothing should be mirrored for a purged record")
	}
}

func TestHandleMessagePropagatesDelete(t *testing.T) {
	w, repo, remote := newTestWorker(t)
	ctx := context.Background()

	rec := records.Record{records.FieldID: "tx-1"}
	if err := repo.Save(ctx, records.TypeTransaction, rec); err != nil {
		t.Fatalf("Save: %v", err)
	}
	remote.Put(records.TypeTransaction, rec)

	if err := repo.Delete(ctx, records.TypeTransaction, []string{"tx-1"}); err != nil {
		t.Fatalf("Delete: %v", err)
	}

	msg := amqp.NewRecordSyncMessage(records.TypeTransaction, "tx-1", amqp.OpDelete, 2)
	if err := w.HandleMessage(ctx, msg); err != nil {
		t.Fatalf("HandleMessage: %v", err)
	}
	if remote.Count(records.TypeTransaction) != 0 {
		t.Error("delete must reach the remote store")
	}
	// Tombstone purged once mirrored.
	if _, ok, err := repo.GetRecord(ctx, records.TypeTransaction, "tx-1"); err != nil || ok {
		t.Errorf("tombstone still in storage, ok=%v err=%v", ok, err)
	}
}

func TestHandleMessageMarksErrorOnRemoteFailure(t *testing.T) {
	w, repo, remote := newTestWorker(t)
	ctx := context.Background()

	rec := records.Record{records.FieldID: "tx-1"}
	if err := repo.Save(ctx, records.TypeTransaction, rec); err != nil {
		t.Fatalf("Save: %v", err)
	}

	remote.FailNext = true
	msg := amqp.NewRecordSyncMessage(records.TypeTransaction, "tx-1", amqp.OpSync, 1)
	if err := w.HandleMessage(ctx, msg); err == nil {
		t.Fatal("expected error from failing remote")
	}

	// The row is parked as errored, not pending.
	pending, err := repo.GetPendingSync(ctx, 10)
	if err != nil {
		t.Fatalf("GetPendingSync: %v", err)
	}
	if len(pending) != 0 {
		t.Error("failed row must not stay pending")
	}
}

func TestStartupSyncCheckRecoversEverything(t *testing.T) {
	w, repo, remote := newTestWorker(t)
	ctx := context.Background()

	// Two pending rows plus one errored row from a previous run.
	for _, id := range []string{"tx-1", "tx-2", "tx-3"} {
		if err := repo.Save(ctx, records.TypeTransaction, records.Record{records.FieldID: id}); err != nil {
			t.Fatalf("Save: %v", err)
		}
	}
	if err := repo.MarkSyncError(ctx, records.TypeTransaction, "tx-3", context.DeadlineExceeded); err != nil {
		t.Fatalf("MarkSyncError: %v", err)
	}

	if err := w.StartupSyncCheck(ctx); err != nil {
		t.Fatalf("StartupSyncCheck: %v", err)
	}
	if remote.Count(records.TypeTransaction) != 3 {
		t.Errorf("mirrored %d records, want 3", remote.Count(records.TypeTransaction))
	}
}

func TestProcessPendingStopsWithoutProgress(t *testing.T) {
	w, repo, remote := newTestWorker(t)
	ctx := context.Background()

	if err := repo.Save(ctx, records.TypeTransaction, records.Record{records.FieldID: "tx-1"}); err != nil {
		t.Fatalf("Save: %v", err)
	}

	remote.FailNext = true
	mirrored, err := w.ProcessPending(ctx)
	if err != nil {
		t.Fatalf("ProcessPending: %v", err)
	}
	if mirrored != 0 {
		t.Errorf("mirrored = %d, want 0", mirrored)
	}
}
