package commands

import (
	"context"
	"log/slog"
	"strings"
	"time"

	application "arbiter/contexts/governance/poll-engine/application"
	"arbiter/contexts/governance/poll-engine/domain/entities"
	domainerrors "arbiter/contexts/governance/poll-engine/domain/errors"
	"arbiter/contexts/governance/poll-engine/ports"
	"arbiter/internal/shared/lanes"
)

type CreatePollCommand struct {
	Creator  string
	Question string
	Options  []entities.Option
	StartsAt time.Time
	EndsAt   time.Time
	Budget   int64
}

type UpdateWindowCommand struct {
	PollID   string
	Caller   string
	StartsAt time.Time
	EndsAt   time.Time
}

// PollUseCase maintains the poll registry.
type PollUseCase struct {
	Polls  ports.PollRepository
	Clock  ports.Clock
	Lanes  *lanes.Set
	Logger *slog.Logger
}

// CreatePoll registers a poll with an empty result. It has no ledger side
// effects.
func (uc PollUseCase) CreatePoll(ctx context.Context, cmd CreatePollCommand) (entities.Poll, error) {
	logger := application.ResolveLogger(uc.Logger)
	poll, err := normalizePoll(cmd)
	if err != nil {
		logger.Warn("poll create validation failed",
			"event", "poll_create_validation_failed",
			"module", "governance/poll-engine",
			"layer", "application",
			"creator", strings.TrimSpace(cmd.Creator),
			"error", err.Error(),
		)
		return entities.Poll{}, err
	}

	pollID, err := NewPollID()
	if err != nil {
		return entities.Poll{}, err
	}
	now := uc.now()
	poll.PollID = pollID
	poll.CreatedAt = now
	poll.UpdatedAt = now
	if err := uc.Polls.CreatePoll(ctx, poll, entities.NewPollResult(pollID)); err != nil {
		return entities.Poll{}, err
	}

	logger.Info("poll created",
		"event", "poll_created",
		"module", "governance/poll-engine",
		"layer", "application",
		"poll_id", poll.PollID,
		"creator", poll.Creator,
		"option_count", len(poll.Options),
		"budget", poll.Budget,
		"starts_at", poll.StartsAt,
		"ends_at", poll.EndsAt,
	)
	return poll, nil
}

// UpdateWindow moves the voting window. Only the creator may call it; it is
// accepted whether or not voting has started or ended.
func (uc PollUseCase) UpdateWindow(ctx context.Context, cmd UpdateWindowCommand) (entities.Poll, error) {
	logger := application.ResolveLogger(uc.Logger)
	pollID := strings.TrimSpace(cmd.PollID)
	release := uc.Lanes.Acquire(pollKey(pollID))
	defer release()

	poll, found, err := uc.Polls.GetPoll(ctx, pollID)
	if err != nil {
		return entities.Poll{}, err
	}
	if !found {
		return entities.Poll{}, domainerrors.ErrPollNotFound
	}
	if strings.TrimSpace(cmd.Caller) != poll.Creator {
		logger.Warn("poll window update forbidden",
			"event", "poll_window_update_forbidden",
			"module", "governance/poll-engine",
			"layer", "application",
			"poll_id", pollID,
			"caller", strings.TrimSpace(cmd.Caller),
		)
		return entities.Poll{}, domainerrors.ErrNotPollCreator
	}
	if !cmd.StartsAt.Before(cmd.EndsAt) {
		return entities.Poll{}, domainerrors.ErrInvalidWindow
	}

	poll.StartsAt = cmd.StartsAt.UTC()
	poll.EndsAt = cmd.EndsAt.UTC()
	poll.UpdatedAt = uc.now()
	if err := uc.Polls.SavePoll(ctx, poll); err != nil {
		return entities.Poll{}, err
	}
	logger.Info("poll window updated",
		"event", "poll_window_updated",
		"module", "governance/poll-engine",
		"layer", "application",
		"poll_id", poll.PollID,
		"starts_at", poll.StartsAt,
		"ends_at", poll.EndsAt,
	)
	return poll, nil
}

func (uc PollUseCase) now() time.Time {
	if uc.Clock == nil {
		return time.Now().UTC()
	}
	return uc.Clock.Now().UTC()
}

func normalizePoll(cmd CreatePollCommand) (entities.Poll, error) {
	creator := strings.TrimSpace(cmd.Creator)
	if creator == "" {
		return entities.Poll{}, domainerrors.ErrInvalidCreator
	}
	question := strings.TrimSpace(cmd.Question)
	if question == "" {
		return entities.Poll{}, domainerrors.ErrInvalidQuestion
	}
	if len(cmd.Options) == 0 {
		return entities.Poll{}, domainerrors.ErrNoOptions
	}
	options := make([]entities.Option, 0, len(cmd.Options))
	seen := make(map[string]struct{}, len(cmd.Options))
	for _, option := range cmd.Options {
		optionID := strings.TrimSpace(option.OptionID)
		if optionID == "" {
			return entities.Poll{}, domainerrors.ErrNoOptions
		}
		if _, ok := seen[optionID]; ok {
			return entities.Poll{}, domainerrors.ErrDuplicateOption
		}
		seen[optionID] = struct{}{}
		options = append(options, entities.Option{OptionID: optionID, Label: strings.TrimSpace(option.Label)})
	}
	if cmd.Budget < 0 {
		return entities.Poll{}, domainerrors.ErrNegativeBudget
	}
	if !cmd.StartsAt.Before(cmd.EndsAt) {
		return entities.Poll{}, domainerrors.ErrInvalidWindow
	}
	return entities.Poll{
		Creator:  creator,
		Question: question,
		Options:  options,
		StartsAt: cmd.StartsAt.UTC(),
		EndsAt:   cmd.EndsAt.UTC(),
		Budget:   cmd.Budget,
	}, nil
}

func pollKey(pollID string) string {
	return "poll:" + pollID
}
