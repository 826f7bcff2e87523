package amqp

import (
	"encoding/json"
	"time"
)

// Sync operations carried by a message.
const (
	OpSync   = "sync"
	OpDelete = "delete"
)

// RecordSyncMessage tells the sync worker one record changed. It carries
// only the coordinates and version; the worker fetches the current row
// from the database, so a burst of messages for one record collapses into
// mirroring its latest state.
type RecordSyncMessage struct {
	EntityType string    `json:"entityType"`
	ID         string    `json:"id"`
	Op         string    `json:"op"`
	Version    int64     `json:"version"`
	Timestamp  time.Time `json:"timestamp"`
}

func NewRecordSyncMessage(entityType, id, op string, version int64) *RecordSyncMessage {
	return &RecordSyncMessage{
		EntityType: entityType,
		ID:         id,
		Op:         op,
		Version:    version,
		Timestamp:  time.Now(),
	}
}

// ToJSON converts the message to JSON bytes
func (m *RecordSyncMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// RecordSyncMessageFromJSON creates a message from JSON bytes
func RecordSyncMessageFromJSON(data []byte) (*RecordSyncMessage, error) {
	var msg RecordSyncMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
