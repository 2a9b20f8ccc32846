package entities

import (
	"math/big"
	"time"
)

type JobStatus string

const (
	JobStatusOpen      JobStatus = "open"
	JobStatusClaimed   JobStatus = "claimed"
	JobStatusActive    JobStatus = "active"
	JobStatusCompleted JobStatus = "completed"
	JobStatusDisputed  JobStatus = "disputed"
	JobStatusEnded     JobStatus = "ended"
)

// Confirm holds the two-party confirmation flags for one counterparty.
type Confirm struct {
	CreatorAccepted  bool
	CreatorCompleted bool
	PartyAccepted    bool
	PartyCompleted   bool
}

type Job struct {
	JobID         string
	Creator       string
	Budget        int64
	Confirms      map[string]Confirm
	Started       bool
	Ended         bool
	DisputePollID string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// Status is derived from the flags; it is never stored.
func (j Job) Status() JobStatus {
	switch {
	case j.Ended:
		return JobStatusEnded
	case j.DisputePollID != "":
		return JobStatusDisputed
	case j.Started:
		for _, confirm := range j.Confirms {
			if confirm.CreatorAccepted && confirm.PartyCompleted {
				return JobStatusCompleted
			}
		}
		return JobStatusActive
	}
	for _, confirm := range j.Confirms {
		if confirm.PartyAccepted {
			return JobStatusClaimed
		}
	}
	return JobStatusOpen
}

func (j Job) Confirm(party string) (Confirm, bool) {
	confirm, ok := j.Confirms[party]
	return confirm, ok
}

func (j *Job) SetConfirm(party string, confirm Confirm) {
	if j.Confirms == nil {
		j.Confirms = make(map[string]Confirm)
	}
	j.Confirms[party] = confirm
}

func (j Job) Clone() Job {
	confirms := make(map[string]Confirm, len(j.Confirms))
	for party, confirm := range j.Confirms {
		confirms[party] = confirm
	}
	j.Confirms = confirms
	return j
}

// PercentOf returns floor(amount*percent/100).
func PercentOf(amount int64, percent int64) int64 {
	if amount <= 0 || percent <= 0 {
		return 0
	}
	product := new(big.Int).Mul(big.NewInt(amount), big.NewInt(percent))
	return product.Quo(product, big.NewInt(100)).Int64()
}
