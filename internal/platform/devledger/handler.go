package devledger

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"arbiter/internal/platform/ledger"
)

type TransferReceiptResponse struct {
	ReceiptID string `json:"receipt_id"`
	Sequence  uint64 `json:"sequence"`
}

// Handler serves the dev ledger JSON API consumed by ledger.HTTPClient.
func (l *Ledger) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /v1/recipients", l.handleRegister)
	mux.HandleFunc("POST /v1/transfers", l.handleTransfer)
	mux.HandleFunc("GET /v1/balances/{account}", l.handleBalance)
	mux.HandleFunc("GET /v1/receipts", l.handleReceipts)
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
		if !l.ready.Load() {
			writeError(w, http.StatusServiceUnavailable, "not_ready", ledger.ErrNotReady.Error())
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	return mux
}

func (l *Ledger) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req ledger.RegisterRecipientRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", "request body must be valid JSON")
		return
	}
	if err := l.RegisterRecipient(r.Context(), req.Account); err != nil {
		writeLedgerError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"account": strings.TrimSpace(req.Account)})
}

func (l *Ledger) handleTransfer(w http.ResponseWriter, r *http.Request) {
	var req ledger.TransferRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", "request body must be valid JSON")
		return
	}
	receipt, err := l.Transfer(r.Context(), req.Recipient, req.Amount, req.Memo)
	if err != nil {
		writeLedgerError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, TransferReceiptResponse{ReceiptID: receipt.ReceiptID, Sequence: receipt.Sequence})
}

func (l *Ledger) handleBalance(w http.ResponseWriter, r *http.Request) {
	account := r.PathValue("account")
	balance, err := l.BalanceOf(r.Context(), account)
	if err != nil {
		writeLedgerError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ledger.BalanceResponse{Account: account, Balance: balance})
}

func (l *Ledger) handleReceipts(w http.ResponseWriter, _ *http.Request) {
	receipts, err := l.Receipts()
	if err != nil {
		writeLedgerError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": receipts})
}

func writeLedgerError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ledger.ErrNotReady):
		writeError(w, http.StatusServiceUnavailable, "not_ready", err.Error())
	case errors.Is(err, ledger.ErrRecipientNotRegistered):
		writeError(w, http.StatusConflict, "recipient_not_registered", err.Error())
	case errors.Is(err, ledger.ErrRejected):
		writeError(w, http.StatusBadRequest, "rejected", err.Error())
	default:
		writeError(w, http.StatusInternalServerError, "internal_error", "internal server error")
	}
}

func writeError(w http.ResponseWriter, status int, code string, message string) {
	writeJSON(w, status, ledger.ErrorResponse{Code: code, Message: message})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
