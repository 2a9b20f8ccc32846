package events

import "time"

type PollOption struct {
	OptionID string `json:"option_id"`
	Label    string `json:"label"`
}

// PollCreationRequested asks the poll engine to open a poll on behalf of
// another context.
type PollCreationRequested struct {
	RequestID  string       `json:"request_id"`
	Creator    string       `json:"creator"`
	Question   string       `json:"question"`
	Options    []PollOption `json:"options"`
	StartsAt   time.Time    `json:"starts_at"`
	EndsAt     time.Time    `json:"ends_at"`
	Budget     int64        `json:"budget"`
	ReplyTopic string       `json:"reply_topic"`
}

type PollCreationCompleted struct {
	RequestID string     `json:"request_id"`
	Status    CallStatus `json:"status"`
	PollID    string     `json:"poll_id,omitempty"`
	Error     string     `json:"error,omitempty"`
}

type PollWinnerRequested struct {
	RequestID  string `json:"request_id"`
	PollID     string `json:"poll_id"`
	ReplyTopic string `json:"reply_topic"`
}

// PollWinnerResolved carries the winner, or not_ready while the poll window
// is still open.
type PollWinnerResolved struct {
	RequestID string     `json:"request_id"`
	PollID    string     `json:"poll_id"`
	Status    CallStatus `json:"status"`
	Winner    string     `json:"winner,omitempty"`
	Error     string     `json:"error,omitempty"`
}
