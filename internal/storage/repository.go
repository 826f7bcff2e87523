// Package storage is the SQLite record store. Records live in one generic
// table keyed by (entity_type, id), body as JSON, with sync bookkeeping
// columns consumed by the sync worker.
package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"tirelire/internal/records"

	_ "modernc.org/sqlite"
)

const (
	SyncPending = "pending"
	SyncDone    = "synced"
	SyncError   = "error"
)

type SQLiteRepository struct {
	db *sql.DB
}

var _ records.Store = (*SQLiteRepository)(nil)

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{db: db}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

const upsertRecord = `
INSERT INTO records (entity_type, id, body, version, deleted, sync_status, sync_error, updated_at)
VALUES (?, ?, ?, 1, 0, 'pending', NULL, ?)
ON CONFLICT (entity_type, id) DO UPDATE SET
    body = excluded.body,
    version = records.version + 1,
    deleted = 0,
    sync_status = 'pending',
    sync_error = NULL,
    updated_at = excluded.updated_at`

func (r *SQLiteRepository) Save(ctx context.Context, entityType string, rec records.Record) error {
	body, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal record: %w", err)
	}
	_, err = r.db.ExecContext(ctx, upsertRecord, entityType, rec.ID(), string(body), time.Now().UTC())
	if err != nil {
		return fmt.Errorf("save record: %w", err)
	}
	return nil
}

// SaveBatch writes all records in one database transaction.
func (r *SQLiteRepository) SaveBatch(ctx context.Context, ops []records.SaveOp) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin batch: %w", err)
	}
	defer tx.Rollback()

	now := time.Now().UTC()
	for _, op := range ops {
		body, err := json.Marshal(op.Record)
		if err != nil {
			return fmt.Errorf("marshal record: %w", err)
		}
		if _, err := tx.ExecContext(ctx, upsertRecord, op.EntityType, op.Record.ID(), string(body), now); err != nil {
			return fmt.Errorf("save record in batch: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit batch: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) Query(ctx context.Context, entityType string, pred records.Predicate) ([]records.Record, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT body FROM records WHERE entity_type = ? AND deleted = 0`, entityType)
	if err != nil {
		return nil, fmt.Errorf("query records: %w", err)
	}
	defer rows.Close()

	var out []records.Record
	for rows.Next() {
		var body string
		if err := rows.Scan(&body); err != nil {
			return nil, fmt.Errorf("scan record: %w", err)
		}
		var rec records.Record
		if err := json.Unmarshal([]byte(body), &rec); err != nil {
			return nil, fmt.Errorf("unmarshal record: %w", err)
		}
		if pred.Matches(rec) {
			out = append(out, rec)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate records: %w", err)
	}
	return out, nil
}

// Delete tombstones the rows so the sync worker can propagate the deletion;
// the row is removed for good once the remote mirror confirms.
func (r *SQLiteRepository) Delete(ctx context.Context, entityType string, ids []string) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin delete: %w", err)
	}
	defer tx.Rollback()

	now := time.Now().UTC()
	for _, id := range ids {
		_, err := tx.ExecContext(ctx, `
UPDATE records SET deleted = 1, version = version + 1, sync_status = 'pending', sync_error = NULL, updated_at = ?
WHERE entity_type = ? AND id = ?`, now, entityType, id)
		if err != nil {
			return fmt.Errorf("delete record: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit delete: %w", err)
	}
	return nil
}

// PendingRecord is one row awaiting remote sync.
type PendingRecord struct {
	EntityType string
	ID         string
	Version    int64
	Deleted    bool
	Record     records.Record
	UpdatedAt  time.Time
}

// GetPendingSync returns rows not yet mirrored remotely, oldest first.
func (r *SQLiteRepository) GetPendingSync(ctx context.Context, limit int) ([]PendingRecord, error) {
	rows, err := r.db.QueryContext(ctx, `
SELECT entity_type, id, body, version, deleted, updated_at
FROM records WHERE sync_status = 'pending'
ORDER BY updated_at ASC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query pending records: %w", err)
	}
	defer rows.Close()

	var out []PendingRecord
	for rows.Next() {
		var p PendingRecord
		var body string
		var deleted int
		if err := rows.Scan(&p.EntityType, &p.ID, &body, &p.Version, &deleted, &p.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan pending record: %w", err)
		}
		p.Deleted = deleted != 0
		if err := json.Unmarshal([]byte(body), &p.Record); err != nil {
			return nil, fmt.Errorf("unmarshal pending record: %w", err)
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate pending records: %w", err)
	}
	return out, nil
}

// GetRecord fetches one row regardless of sync state. The worker uses it
// to resolve a sync message to the current row version.
func (r *SQLiteRepository) GetRecord(ctx context.Context, entityType, id string) (PendingRecord, bool, error) {
	var p PendingRecord
	var body string
	var deleted int
	err := r.db.QueryRowContext(ctx, `
SELECT entity_type, id, body, version, deleted, updated_at
FROM records WHERE entity_type = ? AND id = ?`, entityType, id).
		Scan(&p.EntityType, &p.ID, &body, &p.Version, &deleted, &p.UpdatedAt)
	if err == sql.ErrNoRows {
		return PendingRecord{}, false, nil
	}
	if err != nil {
		return PendingRecord{}, false, fmt.Errorf("get record: %w", err)
	}
	p.Deleted = deleted != 0
	if err := json.Unmarshal([]byte(body), &p.Record); err != nil {
		return PendingRecord{}, false, fmt.Errorf("unmarshal record: %w", err)
	}
	return p, true, nil
}

// MarkSynced confirms the remote mirror for one row version. Tombstoned
// rows are purged; a row changed since version stays pending.
func (r *SQLiteRepository) MarkSynced(ctx context.Context, entityType, id string, version int64) error {
	res, err := r.db.ExecContext(ctx, `
DELETE FROM records WHERE entity_type = ? AND id = ? AND version = ? AND deleted = 1`,
		entityType, id, version)
	if err != nil {
		return fmt.Errorf("purge synced tombstone: %w", err)
	}
	if n, _ := res.RowsAffected(); n > 0 {
		return nil
	}
	_, err = r.db.ExecContext(ctx, `
UPDATE records SET sync_status = 'synced', sync_error = NULL
WHERE entity_type = ? AND id = ? AND version = ? AND sync_status = 'pending'`,
		entityType, id, version)
	if err != nil {
		return fmt.Errorf("mark record synced: %w", err)
	}
	return nil
}

// MarkSyncError records a failed mirror attempt without losing the row.
func (r *SQLiteRepository) MarkSyncError(ctx context.Context, entityType, id string, syncErr error) error {
	_, err := r.db.ExecContext(ctx, `
UPDATE records SET sync_status = 'error', sync_error = ?
WHERE entity_type = ? AND id = ?`, syncErr.Error(), entityType, id)
	if err != nil {
		return fmt.Errorf("mark record sync error: %w", err)
	}
	return nil
}

// RetryErrored flips errored rows back to pending so the startup
// reconciliation picks them up again.
func (r *SQLiteRepository) RetryErrored(ctx context.Context) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE records SET sync_status = 'pending' WHERE sync_status = 'error'`)
	if err != nil {
		return 0, fmt.Errorf("retry errored records: %w", err)
	}
	n, _ := res.RowsAffected()
	return n, nil
}
