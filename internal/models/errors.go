package models

import "errors"

// Error taxonomy. Handlers map these to HTTP status classes; services wrap
// them with context via fmt.Errorf and %w so errors.Is keeps working.
var (
	ErrValidation        = errors.New("validation failed")
	ErrInsufficientFunds = errors.New("insufficient balance")
	ErrInvalidRoundState = errors.New("invalid round state")
	ErrAlreadySettled    = errors.New("round already settled")
	ErrNotReady          = errors.New("round not ready to settle")
	ErrNotFound          = errors.New("not found")
	ErrGateway           = errors.New("payment gateway unavailable")
	ErrMaintenance       = errors.New("maintenance mode is on")
	ErrPaymentClosed     = errors.New("payment record is closed")
	ErrBonusNotReady     = errors.New("daily bonus already claimed")
)

// ErrorCode returns the machine-readable code exposed in API responses.
func ErrorCode(err error) string {
	switch {
	case errors.Is(err, ErrInsufficientFunds):
		return "INSUFFICIENT_FUNDS"
	case errors.Is(err, ErrAlreadySettled):
		return "ALREADY_SETTLED"
	case errors.Is(err, ErrNotReady):
		return "NOT_READY"
	case errors.Is(err, ErrInvalidRoundState):
		return "INVALID_ROUND_STATE"
	case errors.Is(err, ErrNotFound):
		return "NOT_FOUND"
	case errors.Is(err, ErrGateway):
		return "GATEWAY_ERROR"
	case errors.Is(err, ErrMaintenance):
		return "MAINTENANCE"
	case errors.Is(err, ErrPaymentClosed):
		return "PAYMENT_CLOSED"
	case errors.Is(err, ErrBonusNotReady):
		return "BONUS_NOT_READY"
	case errors.Is(err, ErrValidation):
		return "VALIDATION_ERROR"
	default:
		return "INTERNAL_ERROR"
	}
}
