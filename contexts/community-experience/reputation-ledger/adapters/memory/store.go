package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"arbiter/contexts/community-experience/reputation-ledger/domain/entities"
	domainerrors "arbiter/contexts/community-experience/reputation-ledger/domain/errors"
	"arbiter/contexts/community-experience/reputation-ledger/ports"

	"github.com/google/uuid"
)

type Store struct {
	mu      sync.RWMutex
	entries map[string]entities.Entry
	credits []entities.Credit
	seen    map[string]struct{}
}

func NewStore() *Store {
	return &Store{
		entries: make(map[string]entities.Entry),
		seen:    make(map[string]struct{}),
	}
}

func (s *Store) AddCredit(_ context.Context, credit entities.Credit) (entities.Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.seen[credit.CreditID]; ok {
		return entities.Entry{}, domainerrors.ErrDuplicateCredit
	}
	s.seen[credit.CreditID] = struct{}{}
	s.credits = append(s.credits, credit)

	account := strings.TrimSpace(credit.Account)
	entry := s.entries[account]
	entry.Account = account
	entry.Points += credit.Amount
	entry.UpdatedAt = credit.CreatedAt
	s.entries[account] = entry
	return entry, nil
}

func (s *Store) GetEntry(_ context.Context, account string) (entities.Entry, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	entry, ok := s.entries[strings.TrimSpace(account)]
	return entry, ok, nil
}

func (s *Store) ListCredits(_ context.Context, account string, limit int) ([]entities.Credit, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	account = strings.TrimSpace(account)
	items := make([]entities.Credit, 0)
	for _, credit := range s.credits {
		if credit.Account == account {
			items = append(items, credit)
		}
	}
	sort.SliceStable(items, func(i, j int) bool {
		return items[i].CreatedAt.After(items[j].CreatedAt)
	})
	if limit > 0 && len(items) > limit {
		items = items[:limit]
	}
	return items, nil
}

func (s *Store) Now() time.Time {
	return time.Now().UTC()
}

func (s *Store) NewID(_ context.Context) (string, error) {
	return uuid.NewString(), nil
}

var _ ports.PointsRepository = (*Store)(nil)
var _ ports.Clock = (*Store)(nil)
var _ ports.IDGenerator = (*Store)(nil)
