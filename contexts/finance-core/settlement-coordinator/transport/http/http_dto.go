package http

type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type SettlementResponse struct {
	SettlementID  string `json:"settlement_id"`
	Recipient     string `json:"recipient"`
	Amount        int64  `json:"amount"`
	Memo          string `json:"memo,omitempty"`
	Source        string `json:"source,omitempty"`
	SourceRef     string `json:"source_ref,omitempty"`
	Status        string `json:"status"`
	FailedPhase   string `json:"failed_phase,omitempty"`
	FailureReason string `json:"failure_reason,omitempty"`
	CreatedAt     string `json:"created_at"`
	UpdatedAt     string `json:"updated_at"`
	CompletedAt   string `json:"completed_at,omitempty"`
}

type ListSettlementsResponse struct {
	Items []SettlementResponse `json:"items"`
}
