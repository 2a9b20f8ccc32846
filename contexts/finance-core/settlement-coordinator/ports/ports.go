package ports

import (
	"context"
	"time"

	"arbiter/contexts/finance-core/settlement-coordinator/domain/entities"
	"arbiter/internal/shared/events"
)

type SettlementFilter struct {
	SourceRef string
	Status    entities.SettlementStatus
	Limit     int
}

type SettlementRepository interface {
	SaveSettlement(ctx context.Context, settlement entities.Settlement) error
	GetSettlement(ctx context.Context, settlementID string) (entities.Settlement, bool, error)
	ListSettlements(ctx context.Context, filter SettlementFilter) ([]entities.Settlement, error)
}

type OutboxWriter interface {
	AppendOutbox(ctx context.Context, envelope events.Envelope) error
}

type EventSubscriber interface {
	Subscribe(
		ctx context.Context,
		topic string,
		consumerGroup string,
		handler func(context.Context, events.Envelope) error,
	) error
}

type EventDedupStore interface {
	ReserveEvent(ctx context.Context, eventID string, payloadHash string, expiresAt time.Time) (bool, error)
}

type Clock interface {
	Now() time.Time
}

type IDGenerator interface {
	NewID(ctx context.Context) (string, error)
}
