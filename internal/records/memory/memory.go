// Package memory provides an in-memory record store, used by tests and the
// "memory" backend for local development without a database.
package memory

import (
	"context"
	"fmt"
	"sync"

	"tirelire/internal/records"
)

type Store struct {
	mu   sync.Mutex
	data map[string]map[string]records.Record

	// FailNext makes the next mutating call return an error. Tests use it
	// to exercise the rollback path.
	FailNext bool
}

var _ records.Store = (*Store)(nil)

func New() *Store {
	return &Store{data: make(map[string]map[string]records.Record)}
}

func (s *Store) Save(_ context.Context, entityType string, rec records.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FailNext {
		s.FailNext = false
		return fmt.Errorf("memory store: injected failure")
	}
	s.saveLocked(entityType, rec)
	return nil
}

func (s *Store) SaveBatch(_ context.Context, ops []records.SaveOp) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FailNext {
		s.FailNext = false
		return fmt.Errorf("memory store: injected failure")
	}
	for _, op := range ops {
		s.saveLocked(op.EntityType, op.Record)
	}
	return nil
}

func (s *Store) Query(_ context.Context, entityType string, pred records.Predicate) ([]records.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []records.Record
	for _, rec := range s.data[entityType] {
		if pred.Matches(rec) {
			out = append(out, cloneRecord(rec))
		}
	}
	return out, nil
}

func (s *Store) Delete(_ context.Context, entityType string, ids []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FailNext {
		s.FailNext = false
		return fmt.Errorf("memory store: injected failure")
	}
	byID := s.data[entityType]
	for _, id := range ids {
		delete(byID, id)
	}
	return nil
}

// Count returns the number of stored records of a type. Test helper.
func (s *Store) Count(entityType string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.data[entityType])
}

// Put stores a raw record without going through Save. Test helper for
// seeding malformed records.
func (s *Store) Put(entityType string, rec records.Record) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.saveLocked(entityType, rec)
}

func (s *Store) saveLocked(entityType string, rec records.Record) {
	byID, ok := s.data[entityType]
	if !ok {
		byID = make(map[string]records.Record)
		s.data[entityType] = byID
	}
	id := rec.ID()
	if id == "" {
		id = fmt.Sprintf("mem:%d", len(byID)+1)
	}
	byID[id] = cloneRecord(rec)
}

func cloneRecord(rec records.Record) records.Record {
	out := make(records.Record, len(rec))
	for k, v := range rec {
		out[k] = v
	}
	return out
}
