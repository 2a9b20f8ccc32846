package errors

import "arbiter/internal/shared/faults"

var (
	ErrInvalidCreator           = faults.Validation("job creator is required")
	ErrInvalidBudget            = faults.Validation("job budget must be greater than zero")
	ErrInvalidParty             = faults.Validation("party is required")
	ErrCounterpartyNotClaimed   = faults.Validation("counterparty has not claimed the job")
	ErrNotAccepted              = faults.Validation("caller has no accepted confirmation for this job")
	ErrCounterpartyNotCompleted = faults.Validation("counterparty has not completed the job")
	ErrDisputeNotAccepted       = faults.Validation("both parties must accept the job before a dispute")
	ErrInvalidDisputeWindow     = faults.Validation("dispute window start must be before end")
	ErrNoDisputePoll            = faults.Validation("job has no dispute poll")
	ErrNotJobCreator            = faults.Authorization("only the job creator may perform this action")
	ErrNotProtocolOwner         = faults.Authorization("only the protocol owner may manage disputes")
	ErrJobExists                = faults.DuplicateAction("job already exists")
	ErrJobAlreadyStarted        = faults.DuplicateAction("job already started")
	ErrJobAlreadyEnded          = faults.DuplicateAction("job already ended")
	ErrDisputeAlreadyOpen       = faults.DuplicateAction("job already has a dispute poll")
	ErrJobNotFound              = faults.NotFound("job not found")
	ErrOperationNotFound        = faults.NotFound("job operation not found")
	ErrPollRequestFailed        = faults.ExternalService("poll request could not be issued")
)
