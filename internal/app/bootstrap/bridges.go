package bootstrap

import (
	"context"

	reputationapp "arbiter/contexts/community-experience/reputation-ledger/application"
	settlementcommands "arbiter/contexts/finance-core/settlement-coordinator/application/commands"
	pollports "arbiter/contexts/governance/poll-engine/ports"
	jobports "arbiter/contexts/marketplace/job-escrow/ports"
)

// pollPayouts routes poll reward payouts through the settlement coordinator.
type pollPayouts struct {
	payouts settlementcommands.PayoutUseCase
}

func (p pollPayouts) IssuePayout(ctx context.Context, request pollports.PayoutRequest) (string, error) {
	settlement, err := p.payouts.Payout(ctx, settlementcommands.PayoutCommand{
		Recipient: request.Recipient,
		Amount:    request.Amount,
		Memo:      request.Memo,
		Source:    request.Source,
		SourceRef: request.SourceRef,
	})
	if err != nil {
		return "", err
	}
	return settlement.SettlementID, nil
}

// jobPayouts routes escrow releases through the settlement coordinator.
type jobPayouts struct {
	payouts settlementcommands.PayoutUseCase
}

func (p jobPayouts) IssuePayout(ctx context.Context, request jobports.PayoutRequest) (string, error) {
	settlement, err := p.payouts.Payout(ctx, settlementcommands.PayoutCommand{
		Recipient: request.Recipient,
		Amount:    request.Amount,
		Memo:      request.Memo,
		Source:    request.Source,
		SourceRef: request.SourceRef,
	})
	if err != nil {
		return "", err
	}
	return settlement.SettlementID, nil
}

type reputationCredits struct {
	service reputationapp.Service
}

func (r reputationCredits) CreditReputation(
	ctx context.Context,
	account string,
	amount int64,
	reason string,
	reference string,
) error {
	_, err := r.service.Credit(ctx, reputationapp.CreditCommand{
		Account:   account,
		Amount:    amount,
		Reason:    reason,
		Reference: reference,
	})
	return err
}
