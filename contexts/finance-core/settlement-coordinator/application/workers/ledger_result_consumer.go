package workers

import (
	"context"
	"log/slog"
	"strings"
	"time"

	application "arbiter/contexts/finance-core/settlement-coordinator/application"
	"arbiter/contexts/finance-core/settlement-coordinator/application/commands"
	"arbiter/contexts/finance-core/settlement-coordinator/ports"
	"arbiter/internal/shared/events"
	"arbiter/internal/shared/outbox"
)

const defaultLedgerResultCG = "settlement-coordinator-ledger-cg"

// LedgerResultConsumer delivers ledger replies to PayoutUseCase.HandleLedgerResult.
type LedgerResultConsumer struct {
	Subscriber    ports.EventSubscriber
	Dedup         ports.EventDedupStore
	Payouts       commands.PayoutUseCase
	Clock         ports.Clock
	ConsumerGroup string
	DedupTTL      time.Duration
	Logger        *slog.Logger
}

func (c LedgerResultConsumer) Start(ctx context.Context) error {
	logger := application.ResolveLogger(c.Logger)
	group := c.group()
	if err := c.Subscriber.Subscribe(ctx, events.TopicSettlementLedgerCompleted, group, c.Handle); err != nil {
		logger.Error("ledger result consumer subscribe failed",
			"event", "settlement_ledger_consumer_subscribe_failed",
			"module", "finance-core/settlement-coordinator",
			"layer", "worker",
			"topic", events.TopicSettlementLedgerCompleted,
			"consumer_group", group,
			"error", err.Error(),
		)
		return err
	}
	logger.Info("ledger result consumer started",
		"event", "settlement_ledger_consumer_started",
		"module", "finance-core/settlement-coordinator",
		"layer", "worker",
		"consumer_group", group,
	)
	return nil
}

func (c LedgerResultConsumer) Handle(ctx context.Context, event events.Envelope) error {
	logger := application.ResolveLogger(c.Logger)
	if alreadyProcessed, err := outbox.Reserve(ctx, c.Dedup, c.group(), event, c.now(), c.DedupTTL); err != nil {
		return err
	} else if alreadyProcessed {
		logger.Debug("ledger result replay skipped",
			"event", "settlement_ledger_result_replayed",
			"module", "finance-core/settlement-coordinator",
			"layer", "worker",
			"event_id", event.EventID,
		)
		return nil
	}

	var result events.LedgerCallCompleted
	if err := event.Decode(&result); err != nil {
		logger.Error("ledger result decode failed",
			"event", "settlement_ledger_result_decode_failed",
			"module", "finance-core/settlement-coordinator",
			"layer", "worker",
			"event_id", event.EventID,
			"error", err.Error(),
		)
		return err
	}
	return c.Payouts.HandleLedgerResult(ctx, result)
}

func (c LedgerResultConsumer) group() string {
	if group := strings.TrimSpace(c.ConsumerGroup); group != "" {
		return group
	}
	return defaultLedgerResultCG
}

func (c LedgerResultConsumer) now() time.Time {
	if c.Clock == nil {
		return time.Now().UTC()
	}
	return c.Clock.Now().UTC()
}
