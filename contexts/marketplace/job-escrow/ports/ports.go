package ports

import (
	"context"
	"time"

	"arbiter/contexts/marketplace/job-escrow/domain/entities"
	"arbiter/internal/shared/events"
)

type JobRepository interface {
	// CreateJob fails with ErrJobExists when the id is taken.
	CreateJob(ctx context.Context, job entities.Job) error
	SaveJob(ctx context.Context, job entities.Job) error
	GetJob(ctx context.Context, jobID string) (entities.Job, bool, error)
	ListJobs(ctx context.Context) ([]entities.Job, error)
}

type OperationRepository interface {
	SaveOperation(ctx context.Context, operation entities.DisputeOperation) error
	GetOperation(ctx context.Context, operationID string) (entities.DisputeOperation, bool, error)
	HasPendingOperation(ctx context.Context, jobID string, kind entities.OperationKind) (bool, error)
}

type PayoutRequest struct {
	Recipient string
	Amount    int64
	Memo      string
	Source    string
	SourceRef string
}

type PayoutIssuer interface {
	IssuePayout(ctx context.Context, request PayoutRequest) (string, error)
}

type ReputationCrediter interface {
	CreditReputation(ctx context.Context, account string, amount int64, reason string, reference string) error
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
