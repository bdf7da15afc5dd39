package domain

import (
	"errors"
	"fmt"
	"strings"
)

type ErrorKind string

const (
	KindValidation     ErrorKind = "VALIDATION"
	KindNotFound       ErrorKind = "NOT_FOUND"
	KindConflict       ErrorKind = "CONFLICT"
	KindUnavailable    ErrorKind = "UNAVAILABLE"
	KindInfrastructure ErrorKind = "INFRASTRUCTURE"
)

var (
	ErrLockHeld            = errors.New("lock already held")
	ErrSeatsUnavailable    = errors.New("seats already claimed")
	ErrSeatClaimShortfall  = errors.New("seat claim affected fewer rows than requested")
	ErrShowtimeUnavailable = errors.New("showtime not available")
	ErrEventNotFound       = errors.New("event not found")
	ErrBookingNotFound     = errors.New("booking not found")
	ErrBookingCancelled    = errors.New("booking already cancelled")
	ErrBookingTransition   = errors.New("illegal booking status transition")
	ErrInvalidRequest      = errors.New("invalid request")
)

// Error is the only error type the booking core hands to callers.
type Error struct {
	Kind    ErrorKind
	Message string
	// Field names the offending request field for validation errors.
	Field string
	// Seats lists conflicting seat ids for seat conflicts.
	Seats []string
	Err   error
}

func (e *Error) Error() string {
	msg := e.Message
	if len(e.Seats) > 0 {
		msg = fmt.Sprintf("%s: [%s]", msg, strings.Join(e.Seats, ","))
	}
	if e.Err != nil && msg == "" {
		return e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

func NewValidationError(field, message string) *Error {
	return &Error{Kind: KindValidation, Field: field, Message: message, Err: ErrInvalidRequest}
}

func NewNotFoundError(message string, cause error) *Error {
	return &Error{Kind: KindNotFound, Message: message, Err: cause}
}

func NewConflictError(message string, cause error, seats ...string) *Error {
	return &Error{Kind: KindConflict, Message: message, Seats: seats, Err: cause}
}

func NewUnavailableError(message string, cause error) *Error {
	return &Error{Kind: KindUnavailable, Message: message, Err: cause}
}

func NewInfrastructureError(message string, cause error) *Error {
	return &Error{Kind: KindInfrastructure, Message: message, Err: cause}
}

// KindOf classifies err. Anything that is not a *Error is treated as an
// infrastructure failure.
func KindOf(err error) ErrorKind {
	if err == nil {
		return ""
	}
	var de *Error
	if errors.As(err, &de) {
		return de.Kind
	}
	return KindInfrastructure
}

// IsRetryable reports whether a caller may safely retry the operation.
func IsRetryable(err error) bool {
	switch KindOf(err) {
	case KindConflict, KindInfrastructure:
		return true
	default:
		return false
	}
}
