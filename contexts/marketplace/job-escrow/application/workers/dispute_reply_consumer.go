package workers

import (
	"context"
	"log/slog"
	"strings"
	"time"

	application "arbiter/contexts/marketplace/job-escrow/application"
	"arbiter/contexts/marketplace/job-escrow/application/commands"
	"arbiter/contexts/marketplace/job-escrow/ports"
	"arbiter/internal/shared/events"
	"arbiter/internal/shared/outbox"
)

const defaultDisputeReplyCG = "job-escrow-dispute-cg"

// DisputeReplyConsumer delivers poll engine replies to DisputeUseCase.
type DisputeReplyConsumer struct {
	Subscriber    ports.EventSubscriber
	Dedup         ports.EventDedupStore
	Disputes      commands.DisputeUseCase
	Clock         ports.Clock
	ConsumerGroup string
	DedupTTL      time.Duration
	Logger        *slog.Logger
}

func (c DisputeReplyConsumer) Start(ctx context.Context) error {
	logger := application.ResolveLogger(c.Logger)
	group := c.group()
	for topic, handler := range map[string]func(context.Context, events.Envelope) error{
		events.TopicJobDisputePollCreated:    c.HandlePollCreated,
		events.TopicJobDisputeWinnerResolved: c.HandleWinnerResolved,
	} {
		if err := c.Subscriber.Subscribe(ctx, topic, group, handler); err != nil {
			logger.Error("dispute reply consumer subscribe failed",
				"event", "job_dispute_consumer_subscribe_failed",
				"module", "marketplace/job-escrow",
				"layer", "worker",
				"topic", topic,
				"consumer_group", group,
				"error", err.Error(),
			)
			return err
		}
	}
	logger.Info("dispute reply consumer started",
		"event", "job_dispute_consumer_started",
		"module", "marketplace/job-escrow",
		"layer", "worker",
		"consumer_group", group,
	)
	return nil
}

func (c DisputeReplyConsumer) HandlePollCreated(ctx context.Context, event events.Envelope) error {
	var reply events.PollCreationCompleted
	if ok, err := c.accept(ctx, event, &reply); err != nil || !ok {
		return err
	}
	return c.Disputes.HandlePollCreated(ctx, reply)
}

func (c DisputeReplyConsumer) HandleWinnerResolved(ctx context.Context, event events.Envelope) error {
	var reply events.PollWinnerResolved
	if ok, err := c.accept(ctx, event, &reply); err != nil || !ok {
		return err
	}
	return c.Disputes.HandleWinnerResolved(ctx, reply)
}

// accept reserves the event and decodes it into target. It reports false for
// replays.
func (c DisputeReplyConsumer) accept(ctx context.Context, event events.Envelope, target any) (bool, error) {
	logger := application.ResolveLogger(c.Logger)
	alreadyProcessed, err := outbox.Reserve(ctx, c.Dedup, c.group(), event, c.now(), c.DedupTTL)
	if err != nil {
		return false, err
	}
	if alreadyProcessed {
		logger.Debug("dispute reply replay skipped",
			"event", "job_dispute_reply_replayed",
			"module", "marketplace/job-escrow",
			"layer", "worker",
			"event_id", event.EventID,
		)
		return false, nil
	}
	if err := event.Decode(target); err != nil {
		logger.Error("dispute reply decode failed",
			"event", "job_dispute_reply_decode_failed",
			"module", "marketplace/job-escrow",
			"layer", "worker",
			"event_id", event.EventID,
			"event_type", event.EventType,
			"error", err.Error(),
		)
		return false, err
	}
	return true, nil
}

func (c DisputeReplyConsumer) group() string {
	if group := strings.TrimSpace(c.ConsumerGroup); group != "" {
		return group
	}
	return defaultDisputeReplyCG
}

func (c DisputeReplyConsumer) now() time.Time {
	if c.Clock == nil {
		return time.Now().UTC()
	}
	return c.Clock.Now().UTC()
}
