package model

import "errors"

// Error codes for the reservation domain
const (
	ErrCodeNotFound      = "RSV001"
	ErrCodeNotOwner      = "RSV002"
	ErrCodeNotPending    = "RSV003"
	ErrCodeExpired       = "RSV004"
	ErrCodeMaxPerUser    = "RSV005"
	ErrCodeCodeExhausted = "RSV006"
	ErrCodeReasonMissing = "RSV007"
	ErrCodeSweepBusy     = "RSV008"
)

var (
	ErrReservationNotFound = errors.New("reservation not found")
	ErrNotOwner            = errors.New("reservation belongs to another user")
	ErrNotPending          = errors.New("reservation is not pending")
	ErrReservationExpired  = errors.New("reservation has expired")
	ErrMaxPerUserExceeded  = errors.New("per-user quantity limit exceeded")
	ErrCodeExhausted       = errors.New("could not generate a unique reservation code")
	ErrReasonRequired      = errors.New("cancellation reason is required")
	ErrSweepInProgress     = errors.New("a sweep is already running")
)

// ReservationError wraps a domain error with a stable code for API clients.
type ReservationError struct {
	Code    string
	Message string
	Err     error
}

func (e *ReservationError) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *ReservationError) Unwrap() error {
	return e.Err
}

func NewReservationError(code, message string, err error) *ReservationError {
	return &ReservationError{Code: code, Message: message, Err: err}
}
