package httpadapter

import (
	"context"
	"log/slog"
	"time"

	"arbiter/contexts/community-experience/reputation-ledger/application"
	httptransport "arbiter/contexts/community-experience/reputation-ledger/transport/http"
)

type Handler struct {
	Service application.Service
	Logger  *slog.Logger
}

func (h Handler) GetPointsHandler(ctx context.Context, account string) (httptransport.PointsResponse, error) {
	entry, err := h.Service.GetPoints(ctx, account)
	if err != nil {
		return httptransport.PointsResponse{}, err
	}
	credits, err := h.Service.ListCredits(ctx, account, 20)
	if err != nil {
		return httptransport.PointsResponse{}, err
	}

	resp := httptransport.PointsResponse{
		Account: entry.Account,
		Points:  entry.Points,
		Credits: make([]httptransport.CreditItem, 0, len(credits)),
	}
	if !entry.UpdatedAt.IsZero() {
		resp.UpdatedAt = entry.UpdatedAt.UTC().Format(time.RFC3339)
	}
	for _, credit := range credits {
		resp.Credits = append(resp.Credits, httptransport.CreditItem{
			CreditID:  credit.CreditID,
			Amount:    credit.Amount,
			Reason:    credit.Reason,
			Reference: credit.Reference,
			CreatedAt: credit.CreatedAt.UTC().Format(time.RFC3339),
		})
	}
	return resp, nil
}
