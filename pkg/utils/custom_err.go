package utils

import "errors"

var (
	ErrValidation         = errors.New("validation error")
	ErrNotFound           = errors.New("not found")
	ErrForbidden          = errors.New("forbidden")
	ErrInvalidState       = errors.New("invalid state")
	ErrInvalidTransition  = errors.New("invalid transition")
	ErrAtCapacity         = errors.New("at capacity")
	ErrAlreadyPaid        = errors.New("already paid")
	ErrDuplicate          = errors.New("duplicate")
	ErrGateway            = errors.New("gateway error")
	ErrGatewayDeclined    = errors.New("gateway declined")
	ErrVerificationFailed = errors.New("verification failed")
	ErrDatabaseError      = errors.New("database error")
)

// ErrorKind returns the taxonomy name reported to API clients.
func ErrorKind(err error) string {
	switch {
	case errors.Is(err, ErrValidation):
		return "ValidationError"
	case errors.Is(err, ErrNotFound):
		return "NotFound"
	case errors.Is(err, ErrForbidden):
		return "Forbidden"
	case errors.Is(err, ErrInvalidTransition):
		return "InvalidTransition"
	case errors.Is(err, ErrInvalidState):
		return "InvalidState"
	case errors.Is(err, ErrAtCapacity):
		return "AtCapacity"
	case errors.Is(err, ErrAlreadyPaid):
		return "AlreadyPaid"
	case errors.Is(err, ErrDuplicate):
		return "Duplicate"
	case errors.Is(err, ErrGatewayDeclined):
		return "GatewayDeclined"
	case errors.Is(err, ErrGateway):
		return "GatewayError"
	case errors.Is(err, ErrVerificationFailed):
		return "VerificationFailed"
	default:
		return "InternalError"
	}
}
