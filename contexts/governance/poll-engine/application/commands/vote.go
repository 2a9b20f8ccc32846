package commands

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	application "arbiter/contexts/governance/poll-engine/application"
	"arbiter/contexts/governance/poll-engine/domain/entities"
	domainerrors "arbiter/contexts/governance/poll-engine/domain/errors"
	"arbiter/contexts/governance/poll-engine/ports"
	"arbiter/internal/shared/events"
	"arbiter/internal/shared/faults"
	"arbiter/internal/shared/lanes"
)

const sourceService = "poll-engine"

type RequestVoteCommand struct {
	PollID     string
	Voter      string
	Selections []entities.Selection
}

type CastVoteCommand struct {
	PollID     string
	Voter      string
	Weight     int64
	Selections []entities.Selection
}

// VoteUseCase records stake-weighted votes. RequestVote looks up the voter's
// balance through the ledger; CastVote applies a vote with a known weight.
type VoteUseCase struct {
	Polls   ports.PollRepository
	Ballots ports.BallotRepository
	Outbox  ports.OutboxWriter
	Clock   ports.Clock
	IDGen   ports.IDGenerator
	Lanes   *lanes.Set
	Logger  *slog.Logger
}

// RequestVote stores an awaiting ballot and issues a balance_of call for the
// voter. The vote is cast by HandleBalanceResult once the balance arrives.
func (uc VoteUseCase) RequestVote(ctx context.Context, cmd RequestVoteCommand) (entities.Ballot, error) {
	logger := application.ResolveLogger(uc.Logger)
	pollID := strings.TrimSpace(cmd.PollID)
	voter := strings.TrimSpace(cmd.Voter)
	if voter == "" {
		return entities.Ballot{}, domainerrors.ErrInvalidVoter
	}

	poll, found, err := uc.Polls.GetPoll(ctx, pollID)
	if err != nil {
		return entities.Ballot{}, err
	}
	if !found {
		return entities.Ballot{}, domainerrors.ErrPollNotFound
	}
	selections, err := normalizeSelections(poll, cmd.Selections)
	if err != nil {
		return entities.Ballot{}, err
	}
	if !poll.AcceptsVotesAt(uc.now()) {
		return entities.Ballot{}, domainerrors.ErrVotingClosed
	}
	if result, found, err := uc.Polls.GetResult(ctx, pollID); err != nil {
		return entities.Ballot{}, err
	} else if found {
		if _, voted := result.Voters[voter]; voted {
			return entities.Ballot{}, domainerrors.ErrAlreadyVoted
		}
	}

	ballotID, err := uc.IDGen.NewID(ctx)
	if err != nil {
		return entities.Ballot{}, err
	}
	now := uc.now()
	ballot := entities.Ballot{
		BallotID:   ballotID,
		PollID:     pollID,
		Voter:      voter,
		Selections: selections,
		Status:     entities.BallotStatusAwaitingBalance,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := uc.Ballots.SaveBallot(ctx, ballot); err != nil {
		return entities.Ballot{}, err
	}

	if err := uc.requestBalance(ctx, ballot); err != nil {
		ballot.Status = entities.BallotStatusFailed
		ballot.FailureReason = err.Error()
		ballot.UpdatedAt = uc.now()
		if saveErr := uc.Ballots.SaveBallot(ctx, ballot); saveErr != nil {
			return entities.Ballot{}, saveErr
		}
		return ballot, domainerrors.ErrLedgerCallFailed
	}

	logger.Info("ballot awaiting balance",
		"event", "poll_ballot_requested",
		"module", "governance/poll-engine",
		"layer", "application",
		"ballot_id", ballot.BallotID,
		"poll_id", ballot.PollID,
		"voter", ballot.Voter,
	)
	return ballot, nil
}

// CastVote adds Weight to every selected option and records the voter once.
func (uc VoteUseCase) CastVote(ctx context.Context, cmd CastVoteCommand) (entities.VoteRecord, error) {
	logger := application.ResolveLogger(uc.Logger)
	pollID := strings.TrimSpace(cmd.PollID)
	voter := strings.TrimSpace(cmd.Voter)
	if voter == "" {
		return entities.VoteRecord{}, domainerrors.ErrInvalidVoter
	}
	if cmd.Weight <= 0 {
		logger.Warn("vote rejected without stake",
			"event", "poll_vote_no_stake",
			"module", "governance/poll-engine",
			"layer", "application",
			"poll_id", pollID,
			"voter", voter,
		)
		return entities.VoteRecord{}, domainerrors.ErrNoStake
	}

	release := uc.Lanes.Acquire(pollKey(pollID))
	defer release()

	poll, found, err := uc.Polls.GetPoll(ctx, pollID)
	if err != nil {
		return entities.VoteRecord{}, err
	}
	if !found {
		return entities.VoteRecord{}, domainerrors.ErrPollNotFound
	}
	now := uc.now()
	if !poll.AcceptsVotesAt(now) {
		return entities.VoteRecord{}, domainerrors.ErrVotingClosed
	}
	selections, err := normalizeSelections(poll, cmd.Selections)
	if err != nil {
		return entities.VoteRecord{}, err
	}

	result, found, err := uc.Polls.GetResult(ctx, pollID)
	if err != nil {
		return entities.VoteRecord{}, err
	}
	if !found {
		result = entities.NewPollResult(pollID)
	}
	if _, voted := result.Voters[voter]; voted {
		logger.Warn("duplicate vote rejected",
			"event", "poll_vote_duplicate",
			"module", "governance/poll-engine",
			"layer", "application",
			"poll_id", pollID,
			"voter", voter,
		)
		return entities.VoteRecord{}, domainerrors.ErrAlreadyVoted
	}

	record := result.Apply(voter, cmd.Weight, selections, now)
	if err := uc.Polls.SaveResult(ctx, result); err != nil {
		return entities.VoteRecord{}, err
	}
	logger.Info("vote cast",
		"event", "poll_vote_cast",
		"module", "governance/poll-engine",
		"layer", "application",
		"poll_id", pollID,
		"voter", voter,
		"option_id", record.OptionID,
		"weight", record.Weight,
		"total_voted_stake", result.TotalVotedStake,
	)
	return record, nil
}

// HandleBalanceResult casts the ballot identified by result.CallID with the
// reported balance as weight. Ledger failures fail the ballot; vote
// rejections are recorded on it.
func (uc VoteUseCase) HandleBalanceResult(ctx context.Context, result events.LedgerCallCompleted) error {
	logger := application.ResolveLogger(uc.Logger)
	release := uc.Lanes.Acquire("ballot:" + result.CallID)
	defer release()

	ballot, found, err := uc.Ballots.GetBallot(ctx, result.CallID)
	if err != nil {
		return err
	}
	if !found || !ballot.Pending() || result.Kind != events.LedgerCallBalanceOf {
		logger.Warn("balance result ignored",
			"event", "poll_balance_result_ignored",
			"module", "governance/poll-engine",
			"layer", "application",
			"ballot_id", result.CallID,
			"kind", string(result.Kind),
			"found", found,
		)
		return nil
	}

	if result.Status != events.CallSucceeded {
		ballot.Status = entities.BallotStatusFailed
		ballot.FailureReason = strings.TrimSpace(result.Error)
		if ballot.FailureReason == "" {
			ballot.FailureReason = string(result.Status)
		}
		ballot.UpdatedAt = uc.now()
		if err := uc.Ballots.SaveBallot(ctx, ballot); err != nil {
			return err
		}
		logger.Error("ballot balance lookup failed",
			"event", "poll_ballot_balance_failed",
			"module", "governance/poll-engine",
			"layer", "application",
			"ballot_id", ballot.BallotID,
			"poll_id", ballot.PollID,
			"voter", ballot.Voter,
			"status", string(result.Status),
			"reason", ballot.FailureReason,
		)
		return nil
	}

	_, castErr := uc.CastVote(ctx, CastVoteCommand{
		PollID:     ballot.PollID,
		Voter:      ballot.Voter,
		Weight:     result.Balance,
		Selections: ballot.Selections,
	})
	ballot.Weight = result.Balance
	ballot.UpdatedAt = uc.now()
	switch {
	case castErr == nil:
		ballot.Status = entities.BallotStatusCast
	case isRejection(castErr):
		ballot.Status = entities.BallotStatusRejected
		ballot.FailureReason = castErr.Error()
	default:
		return castErr
	}
	return uc.Ballots.SaveBallot(ctx, ballot)
}

func (uc VoteUseCase) requestBalance(ctx context.Context, ballot entities.Ballot) error {
	eventID, err := uc.IDGen.NewID(ctx)
	if err != nil {
		return err
	}
	envelope, err := events.NewEnvelope(
		eventID,
		events.TopicLedgerCallRequested,
		sourceService,
		ballot.BallotID,
		ballot.Voter,
		uc.now(),
		events.LedgerCallRequested{
			CallID:     ballot.BallotID,
			Kind:       events.LedgerCallBalanceOf,
			Account:    ballot.Voter,
			ReplyTopic: events.TopicPollLedgerCompleted,
		},
	)
	if err != nil {
		return err
	}
	return uc.Outbox.AppendOutbox(ctx, envelope)
}

func (uc VoteUseCase) now() time.Time {
	if uc.Clock == nil {
		return time.Now().UTC()
	}
	return uc.Clock.Now().UTC()
}

func normalizeSelections(poll entities.Poll, selections []entities.Selection) ([]entities.Selection, error) {
	items := make([]entities.Selection, 0, len(selections))
	seen := make(map[string]struct{}, len(selections))
	anySelected := false
	for _, selection := range selections {
		optionID := strings.TrimSpace(selection.OptionID)
		if !poll.HasOption(optionID) {
			return nil, domainerrors.ErrUnknownOption
		}
		if _, dup := seen[optionID]; dup {
			return nil, domainerrors.ErrDuplicateSelection
		}
		seen[optionID] = struct{}{}
		anySelected = anySelected || selection.Selected
		items = append(items, entities.Selection{OptionID: optionID, Selected: selection.Selected})
	}
	if !anySelected {
		return nil, domainerrors.ErrNoSelection
	}
	return items, nil
}

func isRejection(err error) bool {
	return errors.Is(err, faults.ErrValidation) ||
		errors.Is(err, faults.ErrDuplicateAction) ||
		errors.Is(err, faults.ErrNotFound)
}
