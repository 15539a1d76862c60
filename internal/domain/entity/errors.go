package entity

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound            = errors.New("not found")
	ErrDuplicate           = errors.New("already exists")
	ErrForbidden           = errors.New("forbidden")
	ErrSessionNotWaiting   = errors.New("support session is not waiting")
	ErrSessionNotActive    = errors.New("support session is not active")
	ErrSessionClosed       = errors.New("support session is closed")
	ErrNoOpenSession       = errors.New("no open support session")
	ErrInvalidStatus       = errors.New("invalid order status")
	ErrOrderTerminal       = errors.New("order is in a terminal status")
	ErrStatusRegression    = errors.New("order status cannot move backwards")
	ErrCancelWindowExpired = errors.New("cancellation window expired")
	ErrOrderChanged        = errors.New("order status was changed concurrently")
)

// ValidationError carries a user-facing hint for a rejected input.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Message)
}

// NewValidationError is a small helper for callers returning error.
func NewValidationError(field, message string) error {
	return &ValidationError{Field: field, Message: message}
}

// AsValidation unwraps a *ValidationError if present.
func AsValidation(err error) (*ValidationError, bool) {
	var ve *ValidationError
	if errors.As(err, &ve) {
		return ve, true
	}
	return nil, false
}
