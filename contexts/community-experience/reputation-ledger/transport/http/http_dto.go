package http

type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type CreditItem struct {
	CreditID  string `json:"credit_id"`
	Amount    int64  `json:"amount"`
	Reason    string `json:"reason"`
	Reference string `json:"reference,omitempty"`
	CreatedAt string `json:"created_at"`
}

type PointsResponse struct {
	Account   string       `json:"account"`
	Points    int64        `json:"points"`
	UpdatedAt string       `json:"updated_at,omitempty"`
	Credits   []CreditItem `json:"recent_credits"`
}
