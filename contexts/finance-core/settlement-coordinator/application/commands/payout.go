package commands

import (
	"context"
	"log/slog"
	"strings"
	"time"

	application "arbiter/contexts/finance-core/settlement-coordinator/application"
	"arbiter/contexts/finance-core/settlement-coordinator/domain/entities"
	domainerrors "arbiter/contexts/finance-core/settlement-coordinator/domain/errors"
	"arbiter/contexts/finance-core/settlement-coordinator/ports"
	"arbiter/internal/shared/events"
	"arbiter/internal/shared/lanes"
)

const sourceService = "settlement-coordinator"

// PayoutCommand asks for amount to be moved to Recipient. Source and
// SourceRef identify the operation that owes the payout.
type PayoutCommand struct {
	Recipient string
	Amount    int64
	Memo      string
	Source    string
	SourceRef string
}

// PayoutUseCase owns the register-then-transfer chain of every settlement.
type PayoutUseCase struct {
	Settlements ports.SettlementRepository
	Outbox      ports.OutboxWriter
	Clock       ports.Clock
	IDGen       ports.IDGenerator
	Lanes       *lanes.Set
	Logger      *slog.Logger
}

// Payout commits a registering settlement and issues register_recipient. It
// returns as soon as the call is queued; the outcome arrives through
// HandleLedgerResult.
func (uc PayoutUseCase) Payout(ctx context.Context, cmd PayoutCommand) (entities.Settlement, error) {
	logger := application.ResolveLogger(uc.Logger)
	recipient := strings.TrimSpace(cmd.Recipient)
	if recipient == "" {
		return entities.Settlement{}, domainerrors.ErrInvalidRecipient
	}
	if cmd.Amount <= 0 {
		logger.Warn("payout rejected",
			"event", "settlement_payout_rejected",
			"module", "finance-core/settlement-coordinator",
			"layer", "application",
			"recipient", recipient,
			"amount", cmd.Amount,
		)
		return entities.Settlement{}, domainerrors.ErrInvalidAmount
	}

	settlementID, err := uc.IDGen.NewID(ctx)
	if err != nil {
		return entities.Settlement{}, err
	}
	release := uc.Lanes.Acquire(settlementID)
	defer release()

	now := uc.now()
	settlement := entities.Settlement{
		SettlementID: settlementID,
		Recipient:    recipient,
		Amount:       cmd.Amount,
		Memo:         strings.TrimSpace(cmd.Memo),
		Source:       strings.TrimSpace(cmd.Source),
		SourceRef:    strings.TrimSpace(cmd.SourceRef),
		Status:       entities.SettlementStatusRegistering,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := uc.Settlements.SaveSettlement(ctx, settlement); err != nil {
		return entities.Settlement{}, err
	}

	if err := uc.issue(ctx, settlement, events.LedgerCallRegisterRecipient); err != nil {
		settlement.Fail(entities.PhaseRegister, err.Error(), uc.now())
		if saveErr := uc.Settlements.SaveSettlement(ctx, settlement); saveErr != nil {
			return entities.Settlement{}, saveErr
		}
		return settlement, domainerrors.ErrLedgerCallFailed
	}

	logger.Info("payout registered",
		"event", "settlement_payout_registering",
		"module", "finance-core/settlement-coordinator",
		"layer", "application",
		"settlement_id", settlement.SettlementID,
		"recipient", settlement.Recipient,
		"amount", settlement.Amount,
		"source", settlement.Source,
		"source_ref", settlement.SourceRef,
	)
	return settlement, nil
}

// HandleLedgerResult applies one ledger reply to its settlement. Replies for
// unknown or already settled records are ignored.
func (uc PayoutUseCase) HandleLedgerResult(ctx context.Context, result events.LedgerCallCompleted) error {
	logger := application.ResolveLogger(uc.Logger)
	release := uc.Lanes.Acquire(result.CallID)
	defer release()

	settlement, found, err := uc.Settlements.GetSettlement(ctx, result.CallID)
	if err != nil {
		return err
	}
	if !found || settlement.Settled() {
		logger.Warn("ledger result ignored",
			"event", "settlement_ledger_result_ignored",
			"module", "finance-core/settlement-coordinator",
			"layer", "application",
			"settlement_id", result.CallID,
			"kind", string(result.Kind),
			"status", string(result.Status),
			"found", found,
		)
		return nil
	}

	now := uc.now()
	switch {
	case settlement.Status == entities.SettlementStatusRegistering && result.Kind == events.LedgerCallRegisterRecipient:
		if result.Status != events.CallSucceeded {
			settlement.Fail(entities.PhaseRegister, failureReason(result), now)
			return uc.saveFailed(ctx, settlement)
		}
		settlement.Status = entities.SettlementStatusTransferring
		settlement.UpdatedAt = now
		if err := uc.Settlements.SaveSettlement(ctx, settlement); err != nil {
			return err
		}
		if err := uc.issue(ctx, settlement, events.LedgerCallTransferFunds); err != nil {
			settlement.Fail(entities.PhaseTransfer, err.Error(), uc.now())
			return uc.saveFailed(ctx, settlement)
		}
		logger.Info("payout transfer issued",
			"event", "settlement_payout_transferring",
			"module", "finance-core/settlement-coordinator",
			"layer", "application",
			"settlement_id", settlement.SettlementID,
			"recipient", settlement.Recipient,
			"amount", settlement.Amount,
		)
		return nil

	case settlement.Status == entities.SettlementStatusTransferring && result.Kind == events.LedgerCallTransferFunds:
		if result.Status != events.CallSucceeded {
			settlement.Fail(entities.PhaseTransfer, failureReason(result), now)
			return uc.saveFailed(ctx, settlement)
		}
		settlement.Complete(now)
		if err := uc.Settlements.SaveSettlement(ctx, settlement); err != nil {
			return err
		}
		logger.Info("payout completed",
			"event", "settlement_payout_completed",
			"module", "finance-core/settlement-coordinator",
			"layer", "application",
			"settlement_id", settlement.SettlementID,
			"recipient", settlement.Recipient,
			"amount", settlement.Amount,
			"source_ref", settlement.SourceRef,
		)
		return nil

	default:
		logger.Warn("ledger result does not match settlement phase",
			"event", "settlement_ledger_result_out_of_phase",
			"module", "finance-core/settlement-coordinator",
			"layer", "application",
			"settlement_id", settlement.SettlementID,
			"settlement_status", string(settlement.Status),
			"kind", string(result.Kind),
		)
		return nil
	}
}

func (uc PayoutUseCase) issue(ctx context.Context, settlement entities.Settlement, kind events.LedgerCallKind) error {
	eventID, err := uc.IDGen.NewID(ctx)
	if err != nil {
		return err
	}
	request := events.LedgerCallRequested{
		CallID:     settlement.SettlementID,
		Kind:       kind,
		Account:    settlement.Recipient,
		ReplyTopic: events.TopicSettlementLedgerCompleted,
	}
	if kind == events.LedgerCallTransferFunds {
		request.Amount = settlement.Amount
		request.Memo = settlement.Memo
	}
	envelope, err := events.NewEnvelope(
		eventID,
		events.TopicLedgerCallRequested,
		sourceService,
		settlement.SettlementID,
		settlement.Recipient,
		uc.now(),
		request,
	)
	if err != nil {
		return err
	}
	return uc.Outbox.AppendOutbox(ctx, envelope)
}

func (uc PayoutUseCase) saveFailed(ctx context.Context, settlement entities.Settlement) error {
	if err := uc.Settlements.SaveSettlement(ctx, settlement); err != nil {
		return err
	}
	application.ResolveLogger(uc.Logger).Error("payout failed",
		"event", "settlement_payout_failed",
		"module", "finance-core/settlement-coordinator",
		"layer", "application",
		"settlement_id", settlement.SettlementID,
		"recipient", settlement.Recipient,
		"amount", settlement.Amount,
		"phase", string(settlement.FailedPhase),
		"reason", settlement.FailureReason,
		"source_ref", settlement.SourceRef,
	)
	return nil
}

func (uc PayoutUseCase) now() time.Time {
	if uc.Clock == nil {
		return time.Now().UTC()
	}
	return uc.Clock.Now().UTC()
}

func failureReason(result events.LedgerCallCompleted) string {
	if reason := strings.TrimSpace(result.Error); reason != "" {
		return reason
	}
	return string(result.Status)
}
