package errors

import "arbiter/internal/shared/faults"

var (
	ErrInvalidAccount  = faults.Validation("account is required")
	ErrNegativeCredit  = faults.Validation("credit amount must not be negative")
	ErrDuplicateCredit = faults.DuplicateAction("credit already recorded")
)
