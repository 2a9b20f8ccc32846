package entities

import "time"

// Entry is the cumulative points balance of one account.
type Entry struct {
	Account   string
	Points    int64
	UpdatedAt time.Time
}

// Credit is one journaled increment.
type Credit struct {
	CreditID  string
	Account   string
	Amount    int64
	Reason    string
	Reference string
	CreatedAt time.Time
}

const (
	ReasonJobCompleted    = "job_completed"
	ReasonDisputeResolved = "dispute_resolved"
)
