package domain

import (
	"fmt"
	"time"
)

type BookingStatus string

const (
	BookingStatusPending   BookingStatus = "PENDING"
	BookingStatusConfirmed BookingStatus = "CONFIRMED"
	BookingStatusCancelled BookingStatus = "CANCELLED"
)

// Action is a lifecycle operation applied to an existing booking.
type Action string

const (
	ActionUpdate  Action = "update"
	ActionConfirm Action = "confirm"
	ActionCancel  Action = "cancel"
)

// transitions is the only place lifecycle rules live. A missing entry is an
// illegal move.
var transitions = map[BookingStatus]map[Action]BookingStatus{
	BookingStatusPending: {
		ActionUpdate:  BookingStatusPending,
		ActionConfirm: BookingStatusConfirmed,
		ActionCancel:  BookingStatusCancelled,
	},
	BookingStatusConfirmed: {
		ActionCancel: BookingStatusCancelled,
	},
	BookingStatusCancelled: {},
}

// attempted is the status an action aims for, used in error messages.
var attempted = map[Action]BookingStatus{
	ActionUpdate:  BookingStatusPending,
	ActionConfirm: BookingStatusConfirmed,
	ActionCancel:  BookingStatusCancelled,
}

// Transition returns the status reached by applying a to s.
func (s BookingStatus) Transition(a Action) (BookingStatus, error) {
	if next, ok := transitions[s][a]; ok {
		return next, nil
	}
	if s == BookingStatusCancelled && a == ActionCancel {
		return s, ErrAlreadyCancelled
	}
	return s, &TransitionError{Current: s, Attempted: attempted[a], Action: a}
}

func (s BookingStatus) Valid() bool {
	_, ok := transitions[s]
	return ok
}

type Booking struct {
	ID          string
	CustomerID  int64
	EventID     int64
	TicketCount int
	// TotalPriceCents is TicketCount times the unit price captured at the last
	// pricing-relevant operation.
	TotalPriceCents  int64
	Status           BookingStatus
	Version          int64
	CapacityReleased bool
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// TransitionError reports an illegal lifecycle move.
type TransitionError struct {
	Current   BookingStatus
	Attempted BookingStatus
	Action    Action
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("%s: cannot %s booking in status %s (attempted %s)", ErrInvalidStateTransition, e.Action, e.Current, e.Attempted)
}

func (e *TransitionError) Unwrap() error {
	return ErrInvalidStateTransition
}
