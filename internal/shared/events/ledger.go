package events

// LedgerCallKind names one ExternalLedgerService capability.
type LedgerCallKind string

const (
	LedgerCallRegisterRecipient LedgerCallKind = "register_recipient"
	LedgerCallTransferFunds     LedgerCallKind = "transfer_funds"
	LedgerCallBalanceOf         LedgerCallKind = "balance_of"
)

// CallStatus is the outcome delivered to a result-handling entry point.
type CallStatus string

const (
	CallSucceeded CallStatus = "succeeded"
	CallFailed    CallStatus = "failed"
	CallNotReady  CallStatus = "not_ready"
)

// LedgerCallRequested asks the ledger gateway to perform one call and send
// the outcome to ReplyTopic.
type LedgerCallRequested struct {
	CallID     string         `json:"call_id"`
	Kind       LedgerCallKind `json:"kind"`
	Account    string         `json:"account"`
	Amount     int64          `json:"amount,omitempty"`
	Memo       string         `json:"memo,omitempty"`
	ReplyTopic string         `json:"reply_topic"`
}

// LedgerCallCompleted is the gateway reply for a LedgerCallRequested.
type LedgerCallCompleted struct {
	CallID  string         `json:"call_id"`
	Kind    LedgerCallKind `json:"kind"`
	Status  CallStatus     `json:"status"`
	Account string         `json:"account"`
	Balance int64          `json:"balance,omitempty"`
	Error   string         `json:"error,omitempty"`
}
