package entities

import "time"

type BallotStatus string

const (
	BallotStatusAwaitingBalance BallotStatus = "awaiting_balance"
	BallotStatusCast            BallotStatus = "cast"
	BallotStatusRejected        BallotStatus = "rejected"
	BallotStatusFailed          BallotStatus = "failed"
)

// Ballot is a vote waiting for the voter's ledger balance, keyed by the
// correlation id of the balance_of call.
type Ballot struct {
	BallotID      string
	PollID        string
	Voter         string
	Selections    []Selection
	Status        BallotStatus
	Weight        int64
	FailureReason string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

func (b Ballot) Pending() bool {
	return b.Status == BallotStatusAwaitingBalance
}
