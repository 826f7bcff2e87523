package storage

import (
	"context"
	"path/filepath"
	"testing"

	"tirelire/internal/records"
)

func newTestRepo(t *testing.T) *SQLiteRepository {
	t.Helper()
	repo, err := NewSQLiteRepository(filepath.Join(t.TempDir(), "tirelire.db"))
	if err != nil {
		t.Fatalf("NewSQLiteRepository: %v", err)
	}
	t.Cleanup(func() { repo.Close() })
	return repo
}

func TestSaveQueryRoundTrip(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	rec := records.Record{
		records.FieldID:          "tx-1",
		records.FieldDescription: "Courses",
		records.FieldAmount:      42.5,
	}
	if err := repo.Save(ctx, records.TypeTransaction, rec); err != nil {
		t.Fatalf("Save: %v", err)
	}

	got, err := repo.Query(ctx, records.TypeTransaction, records.All())
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("got %d records, want 1", len(got))
	}
	if got[0].ID() != "tx-1" {
		t.Errorf("id = %q, want tx-1", got[0].ID())
	}
	if got[0][records.FieldAmount] != 42.5 {
		t.Errorf("amount = %v, want 42.5", got[0][records.FieldAmount])
	}

	byID, err := repo.Query(ctx, records.TypeTransaction, records.FieldEquals(records.FieldID, "tx-1"))
	if err != nil {
		t.Fatalf("Query by id: %v", err)
	}
	if len(byID) != 1 {
		t.Errorf("query by id returned %d records, want 1", len(byID))
	}

	other, err := repo.Query(ctx, records.TypeSavingsGoal, records.All())
	if err != nil {
		t.Fatalf("Query other type: %v", err)
	}
	if len(other) != 0 {
		t.Errorf("other entity type returned %d records, want 0", len(other))
	}
}

func TestSaveUpsertsAndBumpsVersion(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	rec := records.Record{records.FieldID: "tx-1", records.FieldDescription: "v1"}
	if err := repo.Save(ctx, records.TypeTransaction, rec); err != nil {
		t.Fatalf("Save: %v", err)
	}
	rec[records.FieldDescription] = "v2"
	if err := repo.Save(ctx, records.TypeTransaction, rec); err != nil {
		t.Fatalf("Save again: %v", err)
	}

	got, _, err := repo.GetRecord(ctx, records.TypeTransaction, "tx-1")
	if err != nil {
		t.Fatalf("GetRecord: %v", err)
	}
	if got.Version != 2 {
		t.Errorf("version = %d, want 2", got.Version)
	}
	if got.Record[records.FieldDescription] != "v2" {
		t.Errorf("description = %v, want v2", got.Record[records.FieldDescription])
	}
}

func TestSaveBatchIsAtomic(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	err := repo.SaveBatch(ctx, []records.SaveOp{
		{EntityType: records.TypeTransaction, Record: records.Record{records.FieldID: "tx-1"}},
		{EntityType: records.TypeRecurringExpense, Record: records.Record{records.FieldID: "re-1"}},
	})
	if err != nil {
		t.Fatalf("SaveBatch: %v", err)
	}

	txs, _ := repo.Query(ctx, records.TypeTransaction, records.All())
	res, _ := repo.Query(ctx, records.TypeRecurringExpense, records.All())
	if len(txs) != 1 || len(res) != 1 {
		t.Errorf("got %d transactions and %d recurring, want 1 and 1", len(txs), len(res))
	}
}

func TestDeleteTombstonesUntilSynced(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	rec := records.Record{records.FieldID: "tx-1"}
	if err := repo.Save(ctx, records.TypeTransaction, rec); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if err := repo.Delete(ctx, records.TypeTransaction, []string{"tx-1"}); err != nil {
		t.Fatalf("Delete: %v", err)
	}

	got, err := repo.Query(ctx, records.TypeTransaction, records.All())
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if len(got) != 0 {
		t.Error("deleted record must not be visible to queries")
	}

	pending, err := repo.GetPendingSync(ctx, 10)
	if err != nil {
		t.Fatalf("GetPendingSync: %v", err)
	}
	if len(pending) != 1 || !pending[0].Deleted {
		t.Fatalf("pending = %+v, want one tombstone", pending)
	}

	if err := repo.MarkSynced(ctx, records.TypeTransaction, "tx-1", pending[0].Version); err != nil {
		t.Fatalf("MarkSynced: %v", err)
	}
	if _, ok, err := repo.GetRecord(ctx, records.TypeTransaction, "tx-1"); err != nil || ok {
		t.Errorf("tombstone must be purged after sync, ok=%v err=%v", ok, err)
	}
}

func TestMarkSyncedSkipsNewerVersion(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	rec := records.Record{records.FieldID: "tx-1", records.FieldDescription: "v1"}
	if err := repo.Save(ctx, records.TypeTransaction, rec); err != nil {
		t.Fatalf("Save: %v", err)
	}
	// The row changes while version 1 is in flight.
	rec[records.FieldDescription] = "v2"
	if err := repo.Save(ctx, records.TypeTransaction, rec); err != nil {
		t.Fatalf("Save again: %v", err)
	}

	if err := repo.MarkSynced(ctx, records.TypeTransaction, "tx-1", 1); err != nil {
		t.Fatalf("MarkSynced: %v", err)
	}
	pending, err := repo.GetPendingSync(ctx, 10)
	if err != nil {
		t.Fatalf("GetPendingSync: %v", err)
	}
	if len(pending) != 1 {
		t.Error("newer version must stay pending after a stale ack")
	}
}

func TestMarkSyncErrorAndRetry(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	if err := repo.Save(ctx, records.TypeTransaction, records.Record{records.FieldID: "tx-1"}); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if err := repo.MarkSyncError(ctx, records.TypeTransaction, "tx-1", context.DeadlineExceeded); err != nil {
		t.Fatalf("MarkSyncError: %v", err)
	}

	pending, err := repo.GetPendingSync(ctx, 10)
	if err != nil {
		t.Fatalf("GetPendingSync: %v", err)
	}
	if len(pending) != 0 {
		t.Error("errored rows must not be returned as pending")
	}

	n, err := repo.RetryErrored(ctx)
	if err != nil {
		t.Fatalf("RetryErrored: %v", err)
	}
	if n != 1 {
		t.Errorf("retried %d rows, want 1", n)
	}
	pending, _ = repo.GetPendingSync(ctx, 10)
	if len(pending) != 1 {
		t.Error("retried row must be pending again")
	}
}
