package errors

import "arbiter/internal/shared/faults"

var (
	ErrInvalidCreator     = faults.Validation("poll creator is required")
	ErrInvalidQuestion    = faults.Validation("poll question is required")
	ErrNoOptions          = faults.Validation("poll requires at least one option")
	ErrDuplicateOption    = faults.Validation("poll option ids must be unique")
	ErrNegativeBudget     = faults.Validation("poll budget must not be negative")
	ErrInvalidWindow      = faults.Validation("poll window start must be before end")
	ErrInvalidVoter       = faults.Validation("voter is required")
	ErrNoStake            = faults.Validation("voter has no stake")
	ErrNoSelection        = faults.Validation("at least one option must be selected")
	ErrUnknownOption      = faults.Validation("selection references an unknown option")
	ErrDuplicateSelection = faults.Validation("selection repeats an option")
	ErrVotingClosed       = faults.Validation("poll is not accepting votes")
	ErrPollNotEnded       = faults.Validation("poll has not ended")
	ErrNotPollCreator     = faults.Authorization("only the poll creator may update the window")
	ErrWrongSide          = faults.Authorization("wrong side")
	ErrAlreadyVoted       = faults.DuplicateAction("voter already voted in this poll")
	ErrAlreadyClaimed     = faults.DuplicateAction("reward already claimed")
	ErrPollExists         = faults.DuplicateAction("poll already exists")
	ErrPollNotFound       = faults.NotFound("poll not found")
	ErrBallotNotFound     = faults.NotFound("ballot not found")
	ErrNoVoteRecord       = faults.NotFound("no vote recorded for caller")
	ErrLedgerCallFailed   = faults.ExternalService("ledger call could not be issued")
)
