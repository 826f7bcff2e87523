package backend

import (
	"context"

	"tirelire/internal/amqp"
	"tirelire/internal/log"
	"tirelire/internal/records"
	"tirelire/internal/storage"
)

// Publisher is the slice of the AMQP client the store decorator needs.
type Publisher interface {
	PublishRecordSync(ctx context.Context, msg *amqp.RecordSyncMessage) error
}

// PublishingStore wraps the SQLite store and announces every committed
// write on AMQP so the sync worker mirrors it promptly. A failed publish
// is logged and swallowed: the row stays pending in the database and the
// worker's periodic reconciliation picks it up.
type PublishingStore struct {
	repo      *storage.SQLiteRepository
	publisher Publisher
	logger    *log.Logger
}

var _ records.Store = (*PublishingStore)(nil)

func NewPublishingStore(repo *storage.SQLiteRepository, publisher Publisher, logger *log.Logger) *PublishingStore {
	return &PublishingStore{
		repo:      repo,
		publisher: publisher,
		logger:    logger.WithComponent(log.ComponentAMQP),
	}
}

func (s *PublishingStore) Save(ctx context.Context, entityType string, rec records.Record) error {
	if err := s.repo.Save(ctx, entityType, rec); err != nil {
		return err
	}
	s.announce(ctx, entityType, rec.ID(), amqp.OpSync)
	return nil
}

func (s *PublishingStore) SaveBatch(ctx context.Context, ops []records.SaveOp) error {
	if err := s.repo.SaveBatch(ctx, ops); err != nil {
		return err
	}
	for _, op := range ops {
		s.announce(ctx, op.EntityType, op.Record.ID(), amqp.OpSync)
	}
	return nil
}

func (s *PublishingStore) Query(ctx context.Context, entityType string, pred records.Predicate) ([]records.Record, error) {
	return s.repo.Query(ctx, entityType, pred)
}

func (s *PublishingStore) Delete(ctx context.Context, entityType string, ids []string) error {
	if err := s.repo.Delete(ctx, entityType, ids); err != nil {
		return err
	}
	for _, id := range ids {
		s.announce(ctx, entityType, id, amqp.OpDelete)
	}
	return nil
}

func (s *PublishingStore) announce(ctx context.Context, entityType, id, op string) {
	var version int64
	if row, ok, err := s.repo.GetRecord(ctx, entityType, id); err == nil && ok {
		version = row.Version
	}
	msg := amqp.NewRecordSyncMessage(entityType, id, op, version)
	if err := s.publisher.PublishRecordSync(ctx, msg); err != nil {
		s.logger.Warn("sync publish failed, reconciliation will cover it",
			log.FieldEntityType, entityType,
			log.FieldRecordID, id,
			log.FieldError, err.Error())
	}
}
