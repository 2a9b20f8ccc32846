package events

const (
	TopicLedgerCallRequested = "ledger.call.requested"

	TopicSettlementLedgerCompleted = "settlement.ledger.completed"
	TopicPollLedgerCompleted       = "poll.ledger.completed"

	TopicPollCreationRequested = "poll.creation.requested"
	TopicPollWinnerRequested   = "poll.winner.requested"

	TopicJobDisputePollCreated    = "job.dispute.poll_created"
	TopicJobDisputeWinnerResolved = "job.dispute.winner_resolved"
)
