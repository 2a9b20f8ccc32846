package httpadapter

import (
	"context"
	"log/slog"
	"time"

	"arbiter/contexts/finance-core/settlement-coordinator/application/queries"
	"arbiter/contexts/finance-core/settlement-coordinator/domain/entities"
	domainerrors "arbiter/contexts/finance-core/settlement-coordinator/domain/errors"
	"arbiter/contexts/finance-core/settlement-coordinator/ports"
	httptransport "arbiter/contexts/finance-core/settlement-coordinator/transport/http"
)

type Handler struct {
	Settlements queries.SettlementQueries
	Logger      *slog.Logger
}

func (h Handler) GetSettlementHandler(ctx context.Context, settlementID string) (httptransport.SettlementResponse, error) {
	settlement, found, err := h.Settlements.GetSettlement(ctx, settlementID)
	if err != nil {
		return httptransport.SettlementResponse{}, err
	}
	if !found {
		return httptransport.SettlementResponse{}, domainerrors.ErrSettlementNotFound
	}
	return mapSettlement(settlement), nil
}

func (h Handler) ListSettlementsHandler(
	ctx context.Context,
	sourceRef string,
	status string,
	limit int,
) (httptransport.ListSettlementsResponse, error) {
	items, err := h.Settlements.ListSettlements(ctx, ports.SettlementFilter{
		SourceRef: sourceRef,
		Status:    entities.SettlementStatus(status),
		Limit:     limit,
	})
	if err != nil {
		return httptransport.ListSettlementsResponse{}, err
	}
	resp := httptransport.ListSettlementsResponse{
		Items: make([]httptransport.SettlementResponse, 0, len(items)),
	}
	for _, item := range items {
		resp.Items = append(resp.Items, mapSettlement(item))
	}
	return resp, nil
}

func mapSettlement(item entities.Settlement) httptransport.SettlementResponse {
	resp := httptransport.SettlementResponse{
		SettlementID:  item.SettlementID,
		Recipient:     item.Recipient,
		Amount:        item.Amount,
		Memo:          item.Memo,
		Source:        item.Source,
		SourceRef:     item.SourceRef,
		Status:        string(item.Status),
		FailedPhase:   string(item.FailedPhase),
		FailureReason: item.FailureReason,
		CreatedAt:     item.CreatedAt.UTC().Format(time.RFC3339),
		UpdatedAt:     item.UpdatedAt.UTC().Format(time.RFC3339),
	}
	if item.CompletedAt != nil {
		resp.CompletedAt = item.CompletedAt.UTC().Format(time.RFC3339)
	}
	return resp
}
