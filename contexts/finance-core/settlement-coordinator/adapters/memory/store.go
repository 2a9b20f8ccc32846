package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"arbiter/contexts/finance-core/settlement-coordinator/domain/entities"
	"arbiter/contexts/finance-core/settlement-coordinator/ports"

	"github.com/google/uuid"
)

type Store struct {
	mu          sync.RWMutex
	settlements map[string]entities.Settlement
}

func NewStore() *Store {
	return &Store{settlements: make(map[string]entities.Settlement)}
}

func (s *Store) SaveSettlement(_ context.Context, settlement entities.Settlement) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.settlements[settlement.SettlementID] = cloneSettlement(settlement)
	return nil
}

func (s *Store) GetSettlement(_ context.Context, settlementID string) (entities.Settlement, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	item, ok := s.settlements[strings.TrimSpace(settlementID)]
	if !ok {
		return entities.Settlement{}, false, nil
	}
	return cloneSettlement(item), true, nil
}

func (s *Store) ListSettlements(_ context.Context, filter ports.SettlementFilter) ([]entities.Settlement, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	items := make([]entities.Settlement, 0)
	for _, item := range s.settlements {
		if filter.SourceRef != "" && item.SourceRef != filter.SourceRef {
			continue
		}
		if filter.Status != "" && item.Status != filter.Status {
			continue
		}
		items = append(items, cloneSettlement(item))
	}
	sort.Slice(items, func(i, j int) bool {
		if items[i].CreatedAt.Equal(items[j].CreatedAt) {
			return items[i].SettlementID < items[j].SettlementID
		}
		return items[i].CreatedAt.Before(items[j].CreatedAt)
	})
	if filter.Limit > 0 && len(items) > filter.Limit {
		items = items[:filter.Limit]
	}
	return items, nil
}

func (s *Store) Now() time.Time {
	return time.Now().UTC()
}

func (s *Store) NewID(_ context.Context) (string, error) {
	return uuid.NewString(), nil
}

func cloneSettlement(item entities.Settlement) entities.Settlement {
	if item.CompletedAt != nil {
		completedAt := *item.CompletedAt
		item.CompletedAt = &completedAt
	}
	return item
}

var _ ports.SettlementRepository = (*Store)(nil)
var _ ports.Clock = (*Store)(nil)
var _ ports.IDGenerator = (*Store)(nil)
