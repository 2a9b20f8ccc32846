package http

import "time"

type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type OpenJobRequest struct {
	JobID  string `json:"job_id,omitempty"`
	Budget int64  `json:"budget"`
}

type CounterpartyRequest struct {
	Counterparty string `json:"counterparty"`
}

type CompleteRequest struct {
	Success bool `json:"success"`
}

type DisputeOptionDTO struct {
	OptionID string `json:"option_id"`
	Label    string `json:"label"`
}

type OpenDisputeRequest struct {
	Counterparty string             `json:"counterparty"`
	Question     string             `json:"question,omitempty"`
	Options      []DisputeOptionDTO `json:"options,omitempty"`
	StartsAt     time.Time          `json:"starts_at"`
	EndsAt       time.Time          `json:"ends_at"`
}

type ResolveDisputeRequest struct {
	Counterparty string `json:"counterparty"`
	PollID       string `json:"poll_id,omitempty"`
}

type ConfirmDTO struct {
	Party            string `json:"party"`
	CreatorAccepted  bool   `json:"creator_accepted"`
	CreatorCompleted bool   `json:"creator_completed"`
	PartyAccepted    bool   `json:"party_accepted"`
	PartyCompleted   bool   `json:"party_completed"`
}

type JobResponse struct {
	JobID         string       `json:"job_id"`
	Creator       string       `json:"creator"`
	Budget        int64        `json:"budget"`
	Status        string       `json:"status"`
	Started       bool         `json:"started"`
	Ended         bool         `json:"ended"`
	DisputePollID string       `json:"dispute_poll_id,omitempty"`
	Confirms      []ConfirmDTO `json:"confirms"`
	CreatedAt     string       `json:"created_at"`
	UpdatedAt     string       `json:"updated_at"`
}

type ListJobsResponse struct {
	Items []JobResponse `json:"items"`
}

type PayoutDTO struct {
	Recipient    string `json:"recipient"`
	Amount       int64  `json:"amount"`
	SettlementID string `json:"settlement_id,omitempty"`
	Error        string `json:"error,omitempty"`
}

type EndJobResponse struct {
	Job     JobResponse `json:"job"`
	Payouts []PayoutDTO `json:"payouts"`
}

type OperationResponse struct {
	OperationID  string `json:"operation_id"`
	Kind         string `json:"kind"`
	JobID        string `json:"job_id"`
	Counterparty string `json:"counterparty"`
	PollID       string `json:"poll_id,omitempty"`
	Status       string `json:"status"`
	Detail       string `json:"detail,omitempty"`
	CreatedAt    string `json:"created_at"`
	UpdatedAt    string `json:"updated_at"`
}
