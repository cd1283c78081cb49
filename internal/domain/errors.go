package domain

import "errors"

var (
	ErrBookingNotFound  = errors.New("booking not found")
	ErrCustomerNotFound = errors.New("customer not found")
	ErrEventNotFound    = errors.New("event not found")
)

var (
	ErrInsufficientCapacity   = errors.New("insufficient capacity")
	ErrInvalidStateTransition = errors.New("invalid state transition")
	ErrAlreadyCancelled       = errors.New("booking already cancelled")
	ErrConcurrentUpdate       = errors.New("booking was modified concurrently")
	ErrInvalidArgument        = errors.New("invalid argument")
	ErrEventExists            = errors.New("event capacity already registered")
)

var (
	ErrUpstreamUnavailable = errors.New("capacity service unavailable")
	ErrInternalConsistency = errors.New("capacity invariant violated")
)

// IsNotFound covers every absent-entity condition.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrBookingNotFound) ||
		errors.Is(err, ErrCustomerNotFound) ||
		errors.Is(err, ErrEventNotFound)
}

// Code returns the stable machine-readable code for err.
func Code(err error) string {
	switch {
	case err == nil:
		return ""
	case IsNotFound(err):
		return "not_found"
	case errors.Is(err, ErrInsufficientCapacity):
		return "insufficient_capacity"
	case errors.Is(err, ErrAlreadyCancelled):
		return "already_cancelled"
	case errors.Is(err, ErrInvalidStateTransition):
		return "invalid_state_transition"
	case errors.Is(err, ErrConcurrentUpdate):
		return "concurrent_update"
	case errors.Is(err, ErrInvalidArgument):
		return "invalid_argument"
	case errors.Is(err, ErrEventExists):
		return "already_exists"
	case errors.Is(err, ErrUpstreamUnavailable):
		return "upstream_unavailable"
	case errors.Is(err, ErrInternalConsistency):
		return "internal_consistency"
	default:
		return "internal_error"
	}
}
