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

type ClaimRewardCommand struct {
	PollID string
	Caller string
}

type ClaimRewardResult struct {
	PollID       string
	Voter        string
	OptionID     string
	Payout       int64
	SettlementID string
}

// ClaimUseCase pays winning voters their share of the poll budget.
type ClaimUseCase struct {
	Polls   ports.PollRepository
	Payouts ports.PayoutIssuer
	Clock   ports.Clock
	Lanes   *lanes.Set
	Logger  *slog.Logger
}

// ClaimReward marks the caller's record claimed, persists it, and only then
// issues the payout. A failed payout is logged and the claim stays recorded.
func (uc ClaimUseCase) ClaimReward(ctx context.Context, cmd ClaimRewardCommand) (ClaimRewardResult, error) {
	logger := application.ResolveLogger(uc.Logger)
	pollID := strings.TrimSpace(cmd.PollID)
	caller := strings.TrimSpace(cmd.Caller)

	release := uc.Lanes.Acquire(pollKey(pollID))
	defer release()

	poll, found, err := uc.Polls.GetPoll(ctx, pollID)
	if err != nil {
		return ClaimRewardResult{}, err
	}
	if !found {
		return ClaimRewardResult{}, domainerrors.ErrPollNotFound
	}
	now := uc.now()
	if !poll.EndedAt(now) {
		return ClaimRewardResult{}, domainerrors.ErrPollNotEnded
	}
	result, found, err := uc.Polls.GetResult(ctx, pollID)
	if err != nil {
		return ClaimRewardResult{}, err
	}
	if !found {
		return ClaimRewardResult{}, domainerrors.ErrNoVoteRecord
	}
	record, ok := result.Voters[caller]
	if !ok {
		return ClaimRewardResult{}, domainerrors.ErrNoVoteRecord
	}

	winner := entities.ResolveWinner(result.Tally)
	if record.OptionID != winner {
		logger.Warn("reward claim on losing side",
			"event", "poll_claim_wrong_side",
			"module", "governance/poll-engine",
			"layer", "application",
			"poll_id", pollID,
			"voter", caller,
			"option_id", record.OptionID,
			"winner", winner,
		)
		return ClaimRewardResult{}, domainerrors.ErrWrongSide
	}
	if record.Claimed {
		return ClaimRewardResult{}, domainerrors.ErrAlreadyClaimed
	}

	payout := entities.RewardShare(poll.Budget, record.Weight, result.Tally[winner])
	record.Claimed = true
	claimedAt := now
	record.ClaimedAt = &claimedAt
	result.Voters[caller] = record
	if err := uc.Polls.SaveResult(ctx, result); err != nil {
		return ClaimRewardResult{}, err
	}

	claim := ClaimRewardResult{
		PollID:   pollID,
		Voter:    caller,
		OptionID: record.OptionID,
		Payout:   payout,
	}
	if payout == 0 {
		logger.Info("reward claim has nothing to pay",
			"event", "poll_claim_zero_payout",
			"module", "governance/poll-engine",
			"layer", "application",
			"poll_id", pollID,
			"voter", caller,
			"weight", record.Weight,
			"budget", poll.Budget,
		)
		return claim, nil
	}

	settlementID, err := uc.Payouts.IssuePayout(ctx, ports.PayoutRequest{
		Recipient: caller,
		Amount:    payout,
		Memo:      "poll reward",
		Source:    sourceService,
		SourceRef: pollID,
	})
	if err != nil {
		logger.Error("reward payout could not be issued",
			"event", "poll_claim_payout_failed",
			"module", "governance/poll-engine",
			"layer", "application",
			"poll_id", pollID,
			"voter", caller,
			"amount", payout,
			"error", err.Error(),
		)
		return claim, nil
	}
	claim.SettlementID = settlementID

	logger.Info("reward claimed",
		"event", "poll_claim_completed",
		"module", "governance/poll-engine",
		"layer", "application",
		"poll_id", pollID,
		"voter", caller,
		"amount", payout,
		"settlement_id", settlementID,
	)
	return claim, nil
}

func (uc ClaimUseCase) now() time.Time {
	if uc.Clock == nil {
		return time.Now().UTC()
	}
	return uc.Clock.Now().UTC()
}
