package ledger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"arbiter/internal/shared/events"
	"arbiter/internal/shared/outbox"
)

const defaultGatewayCG = "ledger-gateway-cg"

type Clock interface {
	Now() time.Time
}

// Gateway executes ledger.call.requested messages against Service and
// appends the outcome to the outbox under the request's reply topic.
type Gateway struct {
	Service       Service
	Subscriber    outbox.Subscriber
	Outbox        outbox.Writer
	Dedup         outbox.DedupStore
	Clock         Clock
	ConsumerGroup string
	DedupTTL      time.Duration
	Logger        *slog.Logger

	// Pending keeps outcomes whose reply append failed. Without it a
	// redelivered request calls the ledger again.
	Pending *PendingReplies
}

// PendingReplies holds executed call outcomes by request event id until
// their reply reaches the outbox.
type PendingReplies struct {
	mu    sync.Mutex
	items map[string]events.LedgerCallCompleted
}

func NewPendingReplies() *PendingReplies {
	return &PendingReplies{items: make(map[string]events.LedgerCallCompleted)}
}

func (p *PendingReplies) Len() int {
	if p == nil {
		return 0
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.items)
}

func (p *PendingReplies) take(eventID string) (events.LedgerCallCompleted, bool) {
	if p == nil {
		return events.LedgerCallCompleted{}, false
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	result, ok := p.items[eventID]
	delete(p.items, eventID)
	return result, ok
}

func (p *PendingReplies) keep(eventID string, result events.LedgerCallCompleted) {
	if p == nil {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.items[eventID] = result
}

func (g Gateway) Start(ctx context.Context) error {
	group := strings.TrimSpace(g.ConsumerGroup)
	if group == "" {
		group = defaultGatewayCG
	}
	if err := g.Subscriber.Subscribe(ctx, events.TopicLedgerCallRequested, group, g.Handle); err != nil {
		g.logger().Error("ledger gateway subscribe failed",
			"event", "ledger_gateway_subscribe_failed",
			"module", "internal/platform/ledger",
			"layer", "worker",
			"topic", events.TopicLedgerCallRequested,
			"error", err.Error(),
		)
		return err
	}
	g.logger().Info("ledger gateway subscribed",
		"event", "ledger_gateway_started",
		"module", "internal/platform/ledger",
		"layer", "worker",
		"consumer_group", group,
	)
	return nil
}

// Handle consumes one request envelope.
func (g Gateway) Handle(ctx context.Context, event events.Envelope) error {
	logger := g.logger()
	group := strings.TrimSpace(g.ConsumerGroup)
	if group == "" {
		group = defaultGatewayCG
	}
	if alreadyProcessed, err := outbox.Reserve(ctx, g.Dedup, group, event, g.now(), g.DedupTTL); err != nil {
		return err
	} else if alreadyProcessed {
		logger.Debug("ledger call replay skipped",
			"event", "ledger_gateway_replayed",
			"module", "internal/platform/ledger",
			"layer", "worker",
			"event_id", event.EventID,
		)
		return nil
	}

	var request events.LedgerCallRequested
	if err := event.Decode(&request); err != nil {
		logger.Error("ledger call decode failed",
			"event", "ledger_gateway_decode_failed",
			"module", "internal/platform/ledger",
			"layer", "worker",
			"event_id", event.EventID,
			"error", err.Error(),
		)
		return err
	}
	if strings.TrimSpace(request.ReplyTopic) == "" {
		return fmt.Errorf("ledger call %s has no reply topic", request.CallID)
	}

	result, reused := g.Pending.take(event.EventID)
	if !reused {
		result = g.Execute(ctx, request)
	}
	reply, err := events.NewEnvelope(
		event.EventID+".reply",
		request.ReplyTopic,
		"ledger-gateway",
		request.CallID,
		request.Account,
		g.now(),
		result,
	)
	if err != nil {
		return err
	}
	if err := g.Outbox.AppendOutbox(ctx, reply); err != nil {
		logger.Error("ledger call reply append failed",
			"event", "ledger_gateway_reply_failed",
			"module", "internal/platform/ledger",
			"layer", "worker",
			"call_id", request.CallID,
			"error", err.Error(),
		)
		g.Pending.keep(event.EventID, result)
		if releaseErr := outbox.Release(ctx, g.Dedup, group, event); releaseErr != nil {
			logger.Error("ledger call reservation release failed",
				"event", "ledger_gateway_release_failed",
				"module", "internal/platform/ledger",
				"layer", "worker",
				"event_id", event.EventID,
				"error", releaseErr.Error(),
			)
		}
		return err
	}
	return nil
}

// Execute performs request synchronously and classifies the outcome.
func (g Gateway) Execute(ctx context.Context, request events.LedgerCallRequested) events.LedgerCallCompleted {
	result := events.LedgerCallCompleted{
		CallID:  request.CallID,
		Kind:    request.Kind,
		Account: request.Account,
	}

	var err error
	switch request.Kind {
	case events.LedgerCallRegisterRecipient:
		err = g.Service.RegisterRecipient(ctx, request.Account)
	case events.LedgerCallTransferFunds:
		err = g.Service.TransferFunds(ctx, request.Account, request.Amount, request.Memo)
	case events.LedgerCallBalanceOf:
		result.Balance, err = g.Service.BalanceOf(ctx, request.Account)
	default:
		err = fmt.Errorf("%w: unknown call kind %q", ErrRejected, request.Kind)
	}

	switch {
	case err == nil:
		result.Status = events.CallSucceeded
	case errors.Is(err, ErrNotReady), errors.Is(err, context.DeadlineExceeded):
		result.Status = events.CallNotReady
		result.Error = err.Error()
	default:
		result.Status = events.CallFailed
		result.Error = err.Error()
	}

	level := slog.LevelInfo
	if result.Status != events.CallSucceeded {
		level = slog.LevelWarn
	}
	g.logger().Log(ctx, level, "ledger call executed",
		"event", "ledger_gateway_call_executed",
		"module", "internal/platform/ledger",
		"layer", "worker",
		"call_id", request.CallID,
		"kind", string(request.Kind),
		"account", request.Account,
		"status", string(result.Status),
	)
	return result
}

func (g Gateway) now() time.Time {
	if g.Clock == nil {
		return time.Now().UTC()
	}
	return g.Clock.Now().UTC()
}

func (g Gateway) logger() *slog.Logger {
	if g.Logger == nil {
		return slog.Default()
	}
	return g.Logger
}
