// Package ledger is the boundary to the ExternalLedgerService: the consumed
// capability, its adapters, and the gateway worker that turns
// ledger.call.requested messages into calls and replies.
package ledger

import (
	"context"
	"errors"
)

var (
	ErrRecipientNotRegistered = errors.New("recipient is not registered with the ledger")
	ErrRejected               = errors.New("ledger rejected the call")
	ErrNotReady               = errors.New("ledger result is not ready")
)

// Service is the external value-transfer and balance-query collaborator.
type Service interface {
	// RegisterRecipient is idempotent.
	RegisterRecipient(ctx context.Context, account string) error
	// TransferFunds requires a prior successful registration of recipient.
	TransferFunds(ctx context.Context, recipient string, amount int64, memo string) error
	BalanceOf(ctx context.Context, account string) (int64, error)
}
