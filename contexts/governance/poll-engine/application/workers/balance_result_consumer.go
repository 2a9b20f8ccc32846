package workers

import (
	"context"
	"log/slog"
	"strings"
	"time"

	application "arbiter/contexts/governance/poll-engine/application"
	"arbiter/contexts/governance/poll-engine/application/commands"
	"arbiter/contexts/governance/poll-engine/ports"
	"arbiter/internal/shared/events"
	"arbiter/internal/shared/outbox"
)

const defaultBalanceResultCG = "poll-engine-balance-cg"

// BalanceResultConsumer feeds balance_of replies into VoteUseCase.
type BalanceResultConsumer struct {
	Subscriber    ports.EventSubscriber
	Dedup         ports.EventDedupStore
	Votes         commands.VoteUseCase
	Clock         ports.Clock
	ConsumerGroup string
	DedupTTL      time.Duration
	Logger        *slog.Logger
}

func (c BalanceResultConsumer) Start(ctx context.Context) error {
	logger := application.ResolveLogger(c.Logger)
	group := resolveGroup(c.ConsumerGroup, defaultBalanceResultCG)
	if err := c.Subscriber.Subscribe(ctx, events.TopicPollLedgerCompleted, group, c.Handle); err != nil {
		logger.Error("balance result consumer subscribe failed",
			"event", "poll_balance_consumer_subscribe_failed",
			"module", "governance/poll-engine",
			"layer", "worker",
			"topic", events.TopicPollLedgerCompleted,
			"consumer_group", group,
			"error", err.Error(),
		)
		return err
	}
	logger.Info("balance result consumer started",
		"event", "poll_balance_consumer_started",
		"module", "governance/poll-engine",
		"layer", "worker",
		"consumer_group", group,
	)
	return nil
}

func (c BalanceResultConsumer) Handle(ctx context.Context, event events.Envelope) error {
	logger := application.ResolveLogger(c.Logger)
	group := resolveGroup(c.ConsumerGroup, defaultBalanceResultCG)
	if alreadyProcessed, err := outbox.Reserve(ctx, c.Dedup, group, event, now(c.Clock), c.DedupTTL); err != nil {
		return err
	} else if alreadyProcessed {
		logger.Debug("balance result replay skipped",
			"event", "poll_balance_result_replayed",
			"module", "governance/poll-engine",
			"layer", "worker",
			"event_id", event.EventID,
		)
		return nil
	}

	var result events.LedgerCallCompleted
	if err := event.Decode(&result); err != nil {
		logger.Error("balance result decode failed",
			"event", "poll_balance_result_decode_failed",
			"module", "governance/poll-engine",
			"layer", "worker",
			"event_id", event.EventID,
			"error", err.Error(),
		)
		return err
	}
	return c.Votes.HandleBalanceResult(ctx, result)
}

func resolveGroup(group string, fallback string) string {
	if group = strings.TrimSpace(group); group != "" {
		return group
	}
	return fallback
}

func now(clock ports.Clock) time.Time {
	if clock == nil {
		return time.Now().UTC()
	}
	return clock.Now().UTC()
}
