package ports

import (
	"context"
	"time"

	"arbiter/contexts/governance/poll-engine/domain/entities"
	"arbiter/internal/shared/events"
)

type PollRepository interface {
	// CreatePoll stores the poll together with its empty result.
	CreatePoll(ctx context.Context, poll entities.Poll, result entities.PollResult) error
	SavePoll(ctx context.Context, poll entities.Poll) error
	GetPoll(ctx context.Context, pollID string) (entities.Poll, bool, error)
	ListPolls(ctx context.Context) ([]entities.Poll, error)
	GetResult(ctx context.Context, pollID string) (entities.PollResult, bool, error)
	SaveResult(ctx context.Context, result entities.PollResult) error
}

type BallotRepository interface {
	SaveBallot(ctx context.Context, ballot entities.Ballot) error
	GetBallot(ctx context.Context, ballotID string) (entities.Ballot, bool, error)
}

type PayoutRequest struct {
	Recipient string
	Amount    int64
	Memo      string
	Source    string
	SourceRef string
}

// PayoutIssuer starts an asynchronous settlement and returns its id.
type PayoutIssuer interface {
	IssuePayout(ctx context.Context, request PayoutRequest) (string, error)
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
