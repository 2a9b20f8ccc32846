// Package faults holds the error taxonomy shared by every bounded context.
//
// Contexts declare their own sentinel errors with the constructors below so
// callers can match either the precise sentinel or its kind with errors.Is.
package faults

import "errors"

var (
	ErrValidation      = errors.New("validation error")
	ErrAuthorization   = errors.New("authorization error")
	ErrNotFound        = errors.New("not found")
	ErrDuplicateAction = errors.New("duplicate action")
	ErrExternalService = errors.New("external service error")
)

// Error is a domain error tagged with one taxonomy kind.
type Error struct {
	Kind    error
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Kind
}

func Validation(message string) error {
	return &Error{Kind: ErrValidation, Message: message}
}

func Authorization(message string) error {
	return &Error{Kind: ErrAuthorization, Message: message}
}

func NotFound(message string) error {
	return &Error{Kind: ErrNotFound, Message: message}
}

func DuplicateAction(message string) error {
	return &Error{Kind: ErrDuplicateAction, Message: message}
}

func ExternalService(message string) error {
	return &Error{Kind: ErrExternalService, Message: message}
}

// Code returns the stable wire code for err's kind, or "internal_error".
func Code(err error) string {
	switch {
	case errors.Is(err, ErrValidation):
		return "validation_error"
	case errors.Is(err, ErrAuthorization):
		return "authorization_error"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrDuplicateAction):
		return "duplicate_action"
	case errors.Is(err, ErrExternalService):
		return "external_service_error"
	default:
		return "internal_error"
	}
}
