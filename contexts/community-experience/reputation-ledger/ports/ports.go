package ports

import (
	"context"
	"time"

	"arbiter/contexts/community-experience/reputation-ledger/domain/entities"
)

type PointsRepository interface {
	// AddCredit journals credit and adds its amount to the account total in
	// one step, returning the new total.
	AddCredit(ctx context.Context, credit entities.Credit) (entities.Entry, error)
	GetEntry(ctx context.Context, account string) (entities.Entry, bool, error)
	ListCredits(ctx context.Context, account string, limit int) ([]entities.Credit, error)
}

type Clock interface {
	Now() time.Time
}

type IDGenerator interface {
	NewID(ctx context.Context) (string, error)
}
