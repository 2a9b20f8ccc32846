package commands

import (
	"context"
	"log/slog"

	"arbiter/contexts/marketplace/job-escrow/ports"
)

const sourceService = "job-escrow"

// PayoutOutcome reports one payout issued after a job ended. Error is set
// when the payout could not be started; it is never retried.
type PayoutOutcome struct {
	Recipient    string
	Amount       int64
	SettlementID string
	Error        string
}

// releaser issues payouts and reputation credits after a job has been
// committed as ended. Every failure is logged and swallowed.
type releaser struct {
	payouts    ports.PayoutIssuer
	reputation ports.ReputationCrediter
	logger     *slog.Logger
}

func (r releaser) pay(ctx context.Context, jobID string, recipient string, amount int64, memo string) PayoutOutcome {
	outcome := PayoutOutcome{Recipient: recipient, Amount: amount}
	if amount <= 0 {
		r.logger.Info("job payout skipped",
			"event", "job_payout_zero",
			"module", "marketplace/job-escrow",
			"layer", "application",
			"job_id", jobID,
			"recipient", recipient,
		)
		return outcome
	}
	settlementID, err := r.payouts.IssuePayout(ctx, ports.PayoutRequest{
		Recipient: recipient,
		Amount:    amount,
		Memo:      memo,
		Source:    sourceService,
		SourceRef: jobID,
	})
	if err != nil {
		outcome.Error = err.Error()
		r.logger.Error("job payout could not be issued",
			"event", "job_payout_failed",
			"module", "marketplace/job-escrow",
			"layer", "application",
			"job_id", jobID,
			"recipient", recipient,
			"amount", amount,
			"error", err.Error(),
		)
		return outcome
	}
	outcome.SettlementID = settlementID
	return outcome
}

func (r releaser) credit(ctx context.Context, jobID string, account string, amount int64, reason string) {
	if err := r.reputation.CreditReputation(ctx, account, amount, reason, jobID); err != nil {
		r.logger.Error("job reputation credit failed",
			"event", "job_reputation_credit_failed",
			"module", "marketplace/job-escrow",
			"layer", "application",
			"job_id", jobID,
			"account", account,
			"amount", amount,
			"error", err.Error(),
		)
	}
}

func jobKey(jobID string) string {
	return "job:" + jobID
}
