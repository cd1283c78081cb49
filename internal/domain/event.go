package domain

import (
	"fmt"
	"time"
)

type LifecycleEventType string

const (
	EventBookingCreated   LifecycleEventType = "booking_created"
	EventBookingUpdated   LifecycleEventType = "booking_updated"
	EventBookingConfirmed LifecycleEventType = "booking_confirmed"
	EventBookingCancelled LifecycleEventType = "booking_cancelled"
)

// LifecycleEvent is the outbound snapshot of a booking after a transition.
// Consumers dedupe by (BookingID, Status).
type LifecycleEvent struct {
	Type        LifecycleEventType `json:"type"`
	BookingID   string             `json:"booking_id"`
	CustomerID  int64              `json:"customer_id"`
	EventID     int64              `json:"event_id"`
	TicketCount int                `json:"ticket_count"`
	TotalPrice  string             `json:"total_price"`
	Status      BookingStatus      `json:"status"`
	Timestamp   time.Time          `json:"timestamp"`
}

func NewLifecycleEvent(t LifecycleEventType, b *Booking, at time.Time) LifecycleEvent {
	return LifecycleEvent{
		Type:        t,
		BookingID:   b.ID,
		CustomerID:  b.CustomerID,
		EventID:     b.EventID,
		TicketCount: b.TicketCount,
		TotalPrice:  FormatCents(b.TotalPriceCents),
		Status:      b.Status,
		Timestamp:   at.UTC(),
	}
}

// DedupeKey identifies a delivery for at-least-once consumers.
func (e LifecycleEvent) DedupeKey() string {
	return e.BookingID + ":" + string(e.Status)
}

// FormatCents renders an amount in cents as a decimal string, e.g. 1250 -> "12.50".
func FormatCents(cents int64) string {
	sign := ""
	if cents < 0 {
		sign = "-"
		cents = -cents
	}
	return fmt.Sprintf("%s%d.%02d", sign, cents/100, cents%100)
}
