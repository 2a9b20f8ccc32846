package application

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"arbiter/contexts/community-experience/reputation-ledger/domain/entities"
	domainerrors "arbiter/contexts/community-experience/reputation-ledger/domain/errors"
	"arbiter/contexts/community-experience/reputation-ledger/ports"
)

type CreditCommand struct {
	Account   string
	Amount    int64
	Reason    string
	Reference string
}

type Service struct {
	Points ports.PointsRepository
	Clock  ports.Clock
	IDGen  ports.IDGenerator
	Logger *slog.Logger
}

// Credit adds amount to the account. There is no cap, decay or debit.
func (s Service) Credit(ctx context.Context, cmd CreditCommand) (entities.Entry, error) {
	logger := resolveLogger(s.Logger)
	account := strings.TrimSpace(cmd.Account)
	if account == "" {
		return entities.Entry{}, domainerrors.ErrInvalidAccount
	}
	if cmd.Amount < 0 {
		logger.Warn("reputation credit rejected",
			"event", "reputation_credit_rejected",
			"module", "community-experience/reputation-ledger",
			"layer", "application",
			"account", account,
			"amount", cmd.Amount,
		)
		return entities.Entry{}, domainerrors.ErrNegativeCredit
	}

	creditID, err := s.IDGen.NewID(ctx)
	if err != nil {
		return entities.Entry{}, err
	}
	entry, err := s.Points.AddCredit(ctx, entities.Credit{
		CreditID:  creditID,
		Account:   account,
		Amount:    cmd.Amount,
		Reason:    strings.TrimSpace(cmd.Reason),
		Reference: strings.TrimSpace(cmd.Reference),
		CreatedAt: s.now(),
	})
	if err != nil {
		return entities.Entry{}, err
	}

	logger.Info("reputation credited",
		"event", "reputation_credited",
		"module", "community-experience/reputation-ledger",
		"layer", "application",
		"account", account,
		"amount", cmd.Amount,
		"reason", cmd.Reason,
		"reference", cmd.Reference,
		"points", entry.Points,
	)
	return entry, nil
}

// GetPoints returns a zero entry for accounts that were never credited.
func (s Service) GetPoints(ctx context.Context, account string) (entities.Entry, error) {
	account = strings.TrimSpace(account)
	if account == "" {
		return entities.Entry{}, domainerrors.ErrInvalidAccount
	}
	entry, found, err := s.Points.GetEntry(ctx, account)
	if err != nil {
		return entities.Entry{}, err
	}
	if !found {
		return entities.Entry{Account: account}, nil
	}
	return entry, nil
}

func (s Service) ListCredits(ctx context.Context, account string, limit int) ([]entities.Credit, error) {
	account = strings.TrimSpace(account)
	if account == "" {
		return nil, domainerrors.ErrInvalidAccount
	}
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	return s.Points.ListCredits(ctx, account, limit)
}

func (s Service) now() time.Time {
	if s.Clock == nil {
		return time.Now().UTC()
	}
	return s.Clock.Now().UTC()
}

func resolveLogger(logger *slog.Logger) *slog.Logger {
	if logger == nil {
		return slog.Default()
	}
	return logger
}
