package httpserver

import (
	"net/http"
	"strconv"

	reputationhttp "arbiter/contexts/community-experience/reputation-ledger/transport/http"
	settlementhttp "arbiter/contexts/finance-core/settlement-coordinator/transport/http"
	"arbiter/internal/shared/faults"
)

func writeSettlementError(w http.ResponseWriter, status int, code string, message string) {
	writeJSON(w, status, settlementhttp.ErrorResponse{Code: code, Message: message})
}

func writeSettlementDomainError(w http.ResponseWriter, err error) {
	status := taxonomyStatus(err)
	if status == http.StatusInternalServerError {
		writeSettlementError(w, status, "internal_error", "internal server error")
		return
	}
	writeSettlementError(w, status, faults.Code(err), err.Error())
}

func writeReputationError(w http.ResponseWriter, status int, code string, message string) {
	writeJSON(w, status, reputationhttp.ErrorResponse{Code: code, Message: message})
}

func writeReputationDomainError(w http.ResponseWriter, err error) {
	status := taxonomyStatus(err)
	if status == http.StatusInternalServerError {
		writeReputationError(w, status, "internal_error", "internal server error")
		return
	}
	writeReputationError(w, status, faults.Code(err), err.Error())
}

func (s *Server) handleListSettlements(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	limit := 0
	if limitRaw := query.Get("limit"); limitRaw != "" {
		parsed, err := strconv.Atoi(limitRaw)
		if err != nil {
			writeSettlementError(w, http.StatusBadRequest, "invalid_limit", "limit must be an integer")
			return
		}
		limit = parsed
	}
	resp, err := s.settlements.Handler.ListSettlementsHandler(r.Context(), query.Get("source_ref"), query.Get("status"), limit)
	if err != nil {
		writeSettlementDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleGetSettlement(w http.ResponseWriter, r *http.Request) {
	resp, err := s.settlements.Handler.GetSettlementHandler(r.Context(), r.PathValue("settlement_id"))
	if err != nil {
		writeSettlementDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleGetReputation(w http.ResponseWriter, r *http.Request) {
	resp, err := s.reputation.Handler.GetPointsHandler(r.Context(), r.PathValue("account"))
	if err != nil {
		writeReputationDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}
