package workers

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	application "arbiter/contexts/governance/poll-engine/application"
	"arbiter/contexts/governance/poll-engine/application/commands"
	"arbiter/contexts/governance/poll-engine/application/queries"
	"arbiter/contexts/governance/poll-engine/domain/entities"
	domainerrors "arbiter/contexts/governance/poll-engine/domain/errors"
	"arbiter/contexts/governance/poll-engine/ports"
	"arbiter/internal/shared/events"
	"arbiter/internal/shared/outbox"
)

const defaultPollRequestCG = "poll-engine-requests-cg"

// PollRequestConsumer serves poll creation and winner requests sent by other
// contexts and answers on the reply topic named in each request.
type PollRequestConsumer struct {
	Subscriber    ports.EventSubscriber
	Dedup         ports.EventDedupStore
	Outbox        ports.OutboxWriter
	Polls         commands.PollUseCase
	Queries       queries.PollQueries
	Clock         ports.Clock
	ConsumerGroup string
	DedupTTL      time.Duration
	Logger        *slog.Logger
}

func (c PollRequestConsumer) Start(ctx context.Context) error {
	logger := application.ResolveLogger(c.Logger)
	group := resolveGroup(c.ConsumerGroup, defaultPollRequestCG)
	subscriptions := map[string]func(context.Context, events.Envelope) error{
		events.TopicPollCreationRequested: c.HandleCreation,
		events.TopicPollWinnerRequested:   c.HandleWinner,
	}
	for topic, handler := range subscriptions {
		if err := c.Subscriber.Subscribe(ctx, topic, group, handler); err != nil {
			logger.Error("poll request consumer subscribe failed",
				"event", "poll_request_consumer_subscribe_failed",
				"module", "governance/poll-engine",
				"layer", "worker",
				"topic", topic,
				"consumer_group", group,
				"error", err.Error(),
			)
			return err
		}
	}
	logger.Info("poll request consumer started",
		"event", "poll_request_consumer_started",
		"module", "governance/poll-engine",
		"layer", "worker",
		"consumer_group", group,
	)
	return nil
}

func (c PollRequestConsumer) HandleCreation(ctx context.Context, event events.Envelope) error {
	var request events.PollCreationRequested
	if skip, err := c.accept(ctx, event, &request); skip || err != nil {
		return err
	}

	options := make([]entities.Option, 0, len(request.Options))
	for _, option := range request.Options {
		options = append(options, entities.Option{OptionID: option.OptionID, Label: option.Label})
	}
	reply := events.PollCreationCompleted{RequestID: request.RequestID}
	poll, err := c.Polls.CreatePoll(ctx, commands.CreatePollCommand{
		Creator:  request.Creator,
		Question: request.Question,
		Options:  options,
		StartsAt: request.StartsAt,
		EndsAt:   request.EndsAt,
		Budget:   request.Budget,
	})
	if err != nil {
		reply.Status = events.CallFailed
		reply.Error = err.Error()
	} else {
		reply.Status = events.CallSucceeded
		reply.PollID = poll.PollID
	}
	return c.reply(ctx, event, request.ReplyTopic, request.RequestID, reply)
}

func (c PollRequestConsumer) HandleWinner(ctx context.Context, event events.Envelope) error {
	var request events.PollWinnerRequested
	if skip, err := c.accept(ctx, event, &request); skip || err != nil {
		return err
	}

	reply := events.PollWinnerResolved{RequestID: request.RequestID, PollID: request.PollID}
	winner, err := c.Queries.ResolveWinner(ctx, request.PollID)
	switch {
	case err == nil:
		reply.Status = events.CallSucceeded
		reply.Winner = winner
	case errors.Is(err, domainerrors.ErrPollNotEnded):
		reply.Status = events.CallNotReady
		reply.Error = err.Error()
	default:
		reply.Status = events.CallFailed
		reply.Error = err.Error()
	}
	return c.reply(ctx, event, request.ReplyTopic, request.RequestID, reply)
}

func (c PollRequestConsumer) accept(ctx context.Context, event events.Envelope, target any) (bool, error) {
	logger := application.ResolveLogger(c.Logger)
	group := resolveGroup(c.ConsumerGroup, defaultPollRequestCG)
	if alreadyProcessed, err := outbox.Reserve(ctx, c.Dedup, group, event, now(c.Clock), c.DedupTTL); err != nil {
		return true, err
	} else if alreadyProcessed {
		logger.Debug("poll request replay skipped",
			"event", "poll_request_replayed",
			"module", "governance/poll-engine",
			"layer", "worker",
			"event_id", event.EventID,
			"event_type", event.EventType,
		)
		return true, nil
	}
	if err := event.Decode(target); err != nil {
		logger.Error("poll request decode failed",
			"event", "poll_request_decode_failed",
			"module", "governance/poll-engine",
			"layer", "worker",
			"event_id", event.EventID,
			"event_type", event.EventType,
			"error", err.Error(),
		)
		return true, err
	}
	return false, nil
}

func (c PollRequestConsumer) reply(
	ctx context.Context,
	request events.Envelope,
	replyTopic string,
	requestID string,
	payload any,
) error {
	logger := application.ResolveLogger(c.Logger)
	replyTopic = strings.TrimSpace(replyTopic)
	if replyTopic == "" {
		logger.Warn("poll request has no reply topic",
			"event", "poll_request_reply_missing",
			"module", "governance/poll-engine",
			"layer", "worker",
			"event_id", request.EventID,
			"request_id", requestID,
		)
		return nil
	}
	envelope, err := events.NewEnvelope(
		request.EventID+".reply",
		replyTopic,
		"poll-engine",
		requestID,
		request.PartitionKey,
		now(c.Clock),
		payload,
	)
	if err != nil {
		return err
	}
	if err := c.Outbox.AppendOutbox(ctx, envelope); err != nil {
		logger.Error("poll request reply append failed",
			"event", "poll_request_reply_failed",
			"module", "governance/poll-engine",
			"layer", "worker",
			"request_id", requestID,
			"error", err.Error(),
		)
		return err
	}
	return nil
}
