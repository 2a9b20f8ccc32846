package entities

import "time"

type SettlementStatus string

const (
	SettlementStatusRegistering  SettlementStatus = "registering"
	SettlementStatusTransferring SettlementStatus = "transferring"
	SettlementStatusCompleted    SettlementStatus = "completed"
	SettlementStatusFailed       SettlementStatus = "failed"
)

type SettlementPhase string

const (
	PhaseRegister SettlementPhase = "register"
	PhaseTransfer SettlementPhase = "transfer"
)

// Settlement is one pending or finished payout keyed by its correlation id.
type Settlement struct {
	SettlementID  string
	Recipient     string
	Amount        int64
	Memo          string
	Source        string
	SourceRef     string
	Status        SettlementStatus
	FailedPhase   SettlementPhase
	FailureReason string
	CreatedAt     time.Time
	UpdatedAt     time.Time
	CompletedAt   *time.Time
}

// Settled reports whether the record reached a terminal status.
func (s Settlement) Settled() bool {
	return s.Status == SettlementStatusCompleted || s.Status == SettlementStatusFailed
}

func (s *Settlement) Fail(phase SettlementPhase, reason string, at time.Time) {
	s.Status = SettlementStatusFailed
	s.FailedPhase = phase
	s.FailureReason = reason
	s.UpdatedAt = at
}

func (s *Settlement) Complete(at time.Time) {
	s.Status = SettlementStatusCompleted
	s.UpdatedAt = at
	completedAt := at
	s.CompletedAt = &completedAt
}

func ValidStatus(status SettlementStatus) bool {
	switch status {
	case SettlementStatusRegistering, SettlementStatusTransferring, SettlementStatusCompleted, SettlementStatusFailed:
		return true
	default:
		return false
	}
}
