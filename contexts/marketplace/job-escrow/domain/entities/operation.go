package entities

import "time"

type OperationKind string

const (
	OperationOpenDispute    OperationKind = "open_dispute"
	OperationResolveDispute OperationKind = "resolve_dispute"
)

type OperationStatus string

const (
	OperationPending   OperationStatus = "pending"
	OperationSucceeded OperationStatus = "succeeded"
	OperationFailed    OperationStatus = "failed"
)

// DisputeOperation tracks one asynchronous poll request made for a job.
type DisputeOperation struct {
	OperationID  string
	Kind         OperationKind
	JobID        string
	Counterparty string
	PollID       string
	Status       OperationStatus
	Detail       string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

func (o DisputeOperation) Pending() bool {
	return o.Status == OperationPending
}
