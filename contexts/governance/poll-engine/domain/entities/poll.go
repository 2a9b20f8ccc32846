package entities

import (
	"math/big"
	"time"
)

// Binary outcome options used by resolved polls and job disputes.
const (
	OptionFirst  = "v1"
	OptionSecond = "v2"
)

type Option struct {
	OptionID string
	Label    string
}

// Poll is the registry entry. The voting window is [StartsAt, EndsAt).
type Poll struct {
	PollID    string
	Creator   string
	Question  string
	Options   []Option
	StartsAt  time.Time
	EndsAt    time.Time
	Budget    int64
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (p Poll) AcceptsVotesAt(now time.Time) bool {
	return !now.Before(p.StartsAt) && now.Before(p.EndsAt)
}

// EndedAt reports whether now is strictly past the end of the window.
func (p Poll) EndedAt(now time.Time) bool {
	return now.After(p.EndsAt)
}

func (p Poll) HasOption(optionID string) bool {
	for _, option := range p.Options {
		if option.OptionID == optionID {
			return true
		}
	}
	return false
}

type Selection struct {
	OptionID string
	Selected bool
}

type VoteRecord struct {
	Voter     string
	OptionID  string
	Weight    int64
	Claimed   bool
	VotedAt   time.Time
	ClaimedAt *time.Time
}

// PollResult is the tally of one poll. Voters holds at most one record per
// voter.
type PollResult struct {
	PollID          string
	Tally           map[string]int64
	Voters          map[string]VoteRecord
	TotalVotedStake int64
}

func NewPollResult(pollID string) PollResult {
	return PollResult{
		PollID: pollID,
		Tally:  make(map[string]int64),
		Voters: make(map[string]VoteRecord),
	}
}

func (r PollResult) Clone() PollResult {
	clone := PollResult{
		PollID:          r.PollID,
		Tally:           make(map[string]int64, len(r.Tally)),
		Voters:          make(map[string]VoteRecord, len(r.Voters)),
		TotalVotedStake: r.TotalVotedStake,
	}
	for option, weight := range r.Tally {
		clone.Tally[option] = weight
	}
	for voter, record := range r.Voters {
		if record.ClaimedAt != nil {
			claimedAt := *record.ClaimedAt
			record.ClaimedAt = &claimedAt
		}
		clone.Voters[voter] = record
	}
	return clone
}

// Apply adds weight to every selected option and stores the voter record.
// An option counts at most once per voter. The record keeps the last selected
// option in submission order. The caller checks that the voter has no record
// yet.
func (r *PollResult) Apply(voter string, weight int64, selections []Selection, at time.Time) VoteRecord {
	if r.Tally == nil {
		r.Tally = make(map[string]int64)
	}
	if r.Voters == nil {
		r.Voters = make(map[string]VoteRecord)
	}
	record := VoteRecord{Voter: voter, Weight: weight, VotedAt: at}
	counted := make(map[string]bool, len(selections))
	for _, selection := range selections {
		if !selection.Selected || counted[selection.OptionID] {
			continue
		}
		counted[selection.OptionID] = true
		r.Tally[selection.OptionID] += weight
		record.OptionID = selection.OptionID
	}
	r.Voters[voter] = record
	r.TotalVotedStake += weight
	return record
}

// ResolveWinner returns "v1" only when its tally is strictly greater than the
// tally of "v2". Ties and empty tallies go to "v2".
func ResolveWinner(tally map[string]int64) string {
	if tally[OptionFirst] > tally[OptionSecond] {
		return OptionFirst
	}
	return OptionSecond
}

// RewardShare is floor(budget*weight/winningTally), computed without
// overflow. A non-positive winning tally yields zero.
func RewardShare(budget int64, weight int64, winningTally int64) int64 {
	if budget <= 0 || weight <= 0 || winningTally <= 0 {
		return 0
	}
	product := new(big.Int).Mul(big.NewInt(budget), big.NewInt(weight))
	return product.Quo(product, big.NewInt(winningTally)).Int64()
}
