// Package outbox carries the outbox rows written next to state changes, the
// relay that publishes them and the event dedup contract used by consumers.
package outbox

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strings"
	"time"

	"arbiter/internal/shared/events"
)

var ErrPayloadConflict = errors.New("outbox payload conflict")

// Message is one persisted outbox row. OutboxID equals the envelope event id.
type Message struct {
	OutboxID     string
	EventType    string
	PartitionKey string
	Payload      []byte
	CreatedAt    time.Time
}

type Writer interface {
	AppendOutbox(ctx context.Context, envelope events.Envelope) error
}

type Repository interface {
	ListPendingOutbox(ctx context.Context, limit int) ([]Message, error)
	MarkOutboxPublished(ctx context.Context, outboxID string, publishedAt time.Time) error
}

// DedupStore reports alreadyProcessed=true when eventID was reserved before
// with the same payload hash.
type DedupStore interface {
	ReserveEvent(ctx context.Context, eventID string, payloadHash string, expiresAt time.Time) (bool, error)
}

// DedupReleaser drops a reservation so a redelivered event is processed
// again.
type DedupReleaser interface {
	ReleaseEvent(ctx context.Context, eventID string) error
}

type Publisher interface {
	Publish(ctx context.Context, topic string, event events.Envelope) error
}

type Subscriber interface {
	Subscribe(
		ctx context.Context,
		topic string,
		consumerGroup string,
		handler func(context.Context, events.Envelope) error,
	) error
}

func HashPayload(payload []byte) string {
	sum := sha256.Sum256(payload)
	return hex.EncodeToString(sum[:])
}

// Reserve claims event for consumerGroup. Different groups reserve the same
// event independently.
func Reserve(
	ctx context.Context,
	store DedupStore,
	consumerGroup string,
	event events.Envelope,
	now time.Time,
	ttl time.Duration,
) (bool, error) {
	if store == nil {
		return false, nil
	}
	if ttl <= 0 {
		ttl = 7 * 24 * time.Hour
	}
	return store.ReserveEvent(ctx, dedupKey(consumerGroup, event), HashPayload(event.Data), now.Add(ttl))
}

// Release undoes Reserve for consumerGroup. Stores without DedupReleaser
// keep the reservation.
func Release(ctx context.Context, store DedupStore, consumerGroup string, event events.Envelope) error {
	releaser, ok := store.(DedupReleaser)
	if !ok {
		return nil
	}
	return releaser.ReleaseEvent(ctx, dedupKey(consumerGroup, event))
}

func dedupKey(consumerGroup string, event events.Envelope) string {
	return strings.TrimSpace(consumerGroup) + ":" + strings.TrimSpace(event.EventID)
}
