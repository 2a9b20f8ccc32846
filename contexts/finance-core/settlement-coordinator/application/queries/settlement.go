package queries

import (
	"context"
	"strings"

	"arbiter/contexts/finance-core/settlement-coordinator/domain/entities"
	domainerrors "arbiter/contexts/finance-core/settlement-coordinator/domain/errors"
	"arbiter/contexts/finance-core/settlement-coordinator/ports"
)

type SettlementQueries struct {
	Settlements ports.SettlementRepository
}

func (q SettlementQueries) GetSettlement(ctx context.Context, settlementID string) (entities.Settlement, bool, error) {
	return q.Settlements.GetSettlement(ctx, strings.TrimSpace(settlementID))
}

func (q SettlementQueries) ListSettlements(ctx context.Context, filter ports.SettlementFilter) ([]entities.Settlement, error) {
	filter.SourceRef = strings.TrimSpace(filter.SourceRef)
	if filter.Status != "" && !entities.ValidStatus(filter.Status) {
		return nil, domainerrors.ErrInvalidStatus
	}
	if filter.Limit <= 0 || filter.Limit > 200 {
		filter.Limit = 50
	}
	return q.Settlements.ListSettlements(ctx, filter)
}
