package email

import (
	"context"
	"fmt"

	"github.com/Domenick1991/rapidreserve/internal/domain"
	"github.com/rs/zerolog"
)

// Sender delivers customer notifications. Delivery is a structured log line
// until a mail provider is wired in.
type Sender struct {
	log zerolog.Logger
}

func NewSender(log zerolog.Logger) *Sender {
	return &Sender{log: log}
}

func (s *Sender) Send(ctx context.Context, event domain.LifecycleEvent) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.log.Info().
		Int64("customer_id", event.CustomerID).
		Str("booking_id", event.BookingID).
		Str("subject", Subject(event)).
		Msg("send email")
	return nil
}

func Subject(event domain.LifecycleEvent) string {
	switch event.Type {
	case domain.EventBookingCreated:
		return fmt.Sprintf("Booking %s received: %d ticket(s), %s", event.BookingID, event.TicketCount, event.TotalPrice)
	case domain.EventBookingUpdated:
		return fmt.Sprintf("Booking %s changed: %d ticket(s), %s", event.BookingID, event.TicketCount, event.TotalPrice)
	case domain.EventBookingConfirmed:
		return fmt.Sprintf("Booking %s confirmed", event.BookingID)
	case domain.EventBookingCancelled:
		return fmt.Sprintf("Booking %s cancelled", event.BookingID)
	default:
		return fmt.Sprintf("Booking %s is %s", event.BookingID, event.Status)
	}
}
