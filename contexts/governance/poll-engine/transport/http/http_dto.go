package http

import "time"

type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type OptionDTO struct {
	OptionID string `json:"option_id"`
	Label    string `json:"label"`
}

type SelectionDTO struct {
	OptionID string `json:"option_id"`
	Selected bool   `json:"selected"`
}

type CreatePollRequest struct {
	Question string      `json:"question"`
	Options  []OptionDTO `json:"options"`
	StartsAt time.Time   `json:"starts_at"`
	EndsAt   time.Time   `json:"ends_at"`
	Budget   int64       `json:"budget"`
}

type UpdateWindowRequest struct {
	StartsAt time.Time `json:"starts_at"`
	EndsAt   time.Time `json:"ends_at"`
}

type VoteRequest struct {
	Selections []SelectionDTO `json:"selections"`
}

type PollResponse struct {
	PollID    string      `json:"poll_id"`
	Creator   string      `json:"creator"`
	Question  string      `json:"question"`
	Options   []OptionDTO `json:"options"`
	StartsAt  string      `json:"starts_at"`
	EndsAt    string      `json:"ends_at"`
	Budget    int64       `json:"budget"`
	CreatedAt string      `json:"created_at"`
	UpdatedAt string      `json:"updated_at"`
}

type ListPollsResponse struct {
	Items []PollResponse `json:"items"`
}

type VoterDTO struct {
	Voter    string `json:"voter"`
	OptionID string `json:"option_id"`
	Weight   int64  `json:"weight"`
	Claimed  bool   `json:"claimed"`
}

type ResultsResponse struct {
	PollID          string           `json:"poll_id"`
	Tally           map[string]int64 `json:"tally"`
	Voters          []VoterDTO       `json:"voters"`
	TotalVotedStake int64            `json:"total_voted_stake"`
}

type BallotResponse struct {
	BallotID      string         `json:"ballot_id"`
	PollID        string         `json:"poll_id"`
	Voter         string         `json:"voter"`
	Selections    []SelectionDTO `json:"selections"`
	Status        string         `json:"status"`
	Weight        int64          `json:"weight,omitempty"`
	FailureReason string         `json:"failure_reason,omitempty"`
}

type WinnerResponse struct {
	PollID string `json:"poll_id"`
	Winner string `json:"winner"`
}

type ClaimResponse struct {
	PollID       string `json:"poll_id"`
	Voter        string `json:"voter"`
	OptionID     string `json:"option_id"`
	Payout       int64  `json:"payout"`
	SettlementID string `json:"settlement_id,omitempty"`
}
