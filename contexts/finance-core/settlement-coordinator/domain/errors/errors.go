package errors

import "arbiter/internal/shared/faults"

var (
	ErrInvalidRecipient   = faults.Validation("recipient is required")
	ErrInvalidAmount      = faults.Validation("payout amount must be greater than zero")
	ErrInvalidStatus      = faults.Validation("unknown settlement status")
	ErrSettlementNotFound = faults.NotFound("settlement not found")
	ErrLedgerCallFailed   = faults.ExternalService("ledger call could not be issued")
)
