package outbox

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"sync"
	"time"

	"arbiter/internal/shared/events"
)

type memoryRow struct {
	message   Message
	published bool
}

type memoryDedup struct {
	payloadHash string
	expiresAt   time.Time
}

// MemoryStore keeps outbox rows in insertion order plus the dedup table.
type MemoryStore struct {
	mu    sync.RWMutex
	rows  []*memoryRow
	index map[string]*memoryRow
	dedup map[string]memoryDedup
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		index: make(map[string]*memoryRow),
		dedup: make(map[string]memoryDedup),
	}
}

func (s *MemoryStore) AppendOutbox(_ context.Context, envelope events.Envelope) error {
	payload, err := json.Marshal(envelope)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	id := strings.TrimSpace(envelope.EventID)
	if existing, ok := s.index[id]; ok {
		if !bytes.Equal(existing.message.Payload, payload) {
			return ErrPayloadConflict
		}
		return nil
	}
	row := &memoryRow{message: Message{
		OutboxID:     id,
		EventType:    envelope.EventType,
		PartitionKey: envelope.PartitionKey,
		Payload:      payload,
		CreatedAt:    envelope.OccurredAt.UTC(),
	}}
	s.rows = append(s.rows, row)
	s.index[id] = row
	return nil
}

func (s *MemoryStore) ListPendingOutbox(_ context.Context, limit int) ([]Message, error) {
	if limit <= 0 {
		limit = 100
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	items := make([]Message, 0, limit)
	for _, row := range s.rows {
		if row.published {
			continue
		}
		message := row.message
		message.Payload = append([]byte(nil), row.message.Payload...)
		items = append(items, message)
		if len(items) == limit {
			break
		}
	}
	return items, nil
}

func (s *MemoryStore) MarkOutboxPublished(_ context.Context, outboxID string, _ time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	row, ok := s.index[strings.TrimSpace(outboxID)]
	if !ok {
		return nil
	}
	row.published = true
	return nil
}

func (s *MemoryStore) ReserveEvent(_ context.Context, eventID string, payloadHash string, expiresAt time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := strings.TrimSpace(eventID)
	if existing, ok := s.dedup[key]; ok && existing.expiresAt.After(time.Now().UTC()) {
		if existing.payloadHash != payloadHash {
			return false, ErrPayloadConflict
		}
		return true, nil
	}
	s.dedup[key] = memoryDedup{payloadHash: payloadHash, expiresAt: expiresAt.UTC()}
	return false, nil
}

func (s *MemoryStore) ReleaseEvent(_ context.Context, eventID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.dedup, strings.TrimSpace(eventID))
	return nil
}

// Envelopes returns every appended envelope of eventType in append order.
func (s *MemoryStore) Envelopes(eventType string) []events.Envelope {
	s.mu.RLock()
	defer s.mu.RUnlock()

	items := make([]events.Envelope, 0)
	for _, row := range s.rows {
		if row.message.EventType != eventType {
			continue
		}
		var envelope events.Envelope
		if err := json.Unmarshal(row.message.Payload, &envelope); err != nil {
			continue
		}
		items = append(items, envelope)
	}
	return items
}

var _ Writer = (*MemoryStore)(nil)
var _ Repository = (*MemoryStore)(nil)
var _ DedupStore = (*MemoryStore)(nil)
var _ DedupReleaser = (*MemoryStore)(nil)
