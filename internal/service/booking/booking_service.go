package booking

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Domenick1991/rapidreserve/internal/capacity"
	"github.com/Domenick1991/rapidreserve/internal/domain"
	"github.com/Domenick1991/rapidreserve/internal/repository"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

type BookingUseCase interface {
	CreateBooking(ctx context.Context, input CreateBookingInput) (*domain.Booking, error)
	GetBooking(ctx context.Context, id string) (*domain.Booking, error)
	ListCustomerBookings(ctx context.Context, customerID int64) ([]domain.Booking, error)
	UpdateBooking(ctx context.Context, id string, input UpdateBookingInput) (*domain.Booking, error)
	ConfirmBooking(ctx context.Context, id string) (*domain.Booking, error)
	CancelBooking(ctx context.Context, id string) (*domain.Booking, error)
	RepairUnreleasedCapacity(ctx context.Context, grace time.Duration) (int, error)
}

// CapacityClient is the booking side's view of the capacity ledger.
type CapacityClient interface {
	TryReserve(ctx context.Context, eventID int64, quantity int, token string) capacity.Reservation
	Release(ctx context.Context, eventID int64, quantity int, token string) (capacity.Snapshot, error)
}

type EventPublisher interface {
	Publish(ctx context.Context, event domain.LifecycleEvent)
}

type CreateBookingInput struct {
	CustomerID  int64 `json:"customer_id"`
	EventID     int64 `json:"event_id"`
	TicketCount int   `json:"ticket_count"`
}

type UpdateBookingInput struct {
	EventID     int64 `json:"event_id"`
	TicketCount int   `json:"ticket_count"`
}

const repairBatchSize = 100

type BookingService struct {
	bookings  repository.BookingRepository
	customers repository.CustomerRepository
	capacity  CapacityClient
	publisher EventPublisher
	log       zerolog.Logger
	now       func() time.Time
	newID     func() string
}

type BookingServiceOption func(*BookingService)

func WithLogger(log zerolog.Logger) BookingServiceOption {
	return func(s *BookingService) {
		s.log = log
	}
}

func WithClock(now func() time.Time) BookingServiceOption {
	return func(s *BookingService) {
		s.now = now
	}
}

func WithIDGenerator(newID func() string) BookingServiceOption {
	return func(s *BookingService) {
		s.newID = newID
	}
}

func NewBookingService(
	bookings repository.BookingRepository,
	customers repository.CustomerRepository,
	capacity CapacityClient,
	publisher EventPublisher,
	opts ...BookingServiceOption,
) *BookingService {
	s := &BookingService{
		bookings:  bookings,
		customers: customers,
		capacity:  capacity,
		publisher: publisher,
		log:       zerolog.Nop(),
		now:       time.Now,
		newID:     uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CreateBooking reserves capacity first and persists second. The booking id
// doubles as the reservation token, so a retried reserve is applied once.
func (s *BookingService) CreateBooking(ctx context.Context, input CreateBookingInput) (*domain.Booking, error) {
	if input.CustomerID <= 0 || input.EventID <= 0 || input.TicketCount <= 0 {
		return nil, fmt.Errorf("%w: customer %d event %d tickets %d",
			domain.ErrInvalidArgument, input.CustomerID, input.EventID, input.TicketCount)
	}
	if err := s.ensureCustomer(ctx, input.CustomerID); err != nil {
		return nil, err
	}

	id := s.newID()
	res := s.capacity.TryReserve(ctx, input.EventID, input.TicketCount, id)
	if res.Outcome == capacity.Unavailable {
		s.log.Warn().Err(res.Reason).
			Str("token", id).
			Int64("event_id", input.EventID).
			Int("quantity", input.TicketCount).
			Msg("reserve outcome unknown, booking not created")
	}
	if res.Outcome != capacity.Reserved {
		return nil, res.Reason
	}

	booking := &domain.Booking{
		ID:              id,
		CustomerID:      input.CustomerID,
		EventID:         input.EventID,
		TicketCount:     input.TicketCount,
		TotalPriceCents: res.Snapshot.UnitPriceCents * int64(input.TicketCount),
		Status:          domain.BookingStatusPending,
	}
	if err := s.bookings.Create(ctx, booking); err != nil {
		s.compensateRelease(ctx, booking.EventID, booking.TicketCount, id+":rollback", "create")
		return nil, fmt.Errorf("persist booking: %w", err)
	}

	s.log.Info().Str("booking_id", id).Int64("event_id", booking.EventID).Int("tickets", booking.TicketCount).Msg("booking created")
	s.publish(ctx, domain.EventBookingCreated, booking)
	return booking, nil
}

func (s *BookingService) GetBooking(ctx context.Context, id string) (*domain.Booking, error) {
	return s.bookings.GetByID(ctx, id)
}

func (s *BookingService) ListCustomerBookings(ctx context.Context, customerID int64) ([]domain.Booking, error) {
	if err := s.ensureCustomer(ctx, customerID); err != nil {
		return nil, err
	}
	return s.bookings.ListByCustomer(ctx, customerID)
}

func (s *BookingService) ConfirmBooking(ctx context.Context, id string) (*domain.Booking, error) {
	booking, err := s.bookings.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	next, err := booking.Status.Transition(domain.ActionConfirm)
	if err != nil {
		return nil, err
	}
	booking.Status = next
	if err := s.save(ctx, booking, domain.ActionConfirm); err != nil {
		return nil, err
	}

	s.log.Info().Str("booking_id", id).Msg("booking confirmed")
	s.publish(ctx, domain.EventBookingConfirmed, booking)
	return booking, nil
}

// CancelBooking commits the status first and returns the seats second. A
// failed release leaves capacity_released unset for the repair sweep.
func (s *BookingService) CancelBooking(ctx context.Context, id string) (*domain.Booking, error) {
	booking, err := s.bookings.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	next, err := booking.Status.Transition(domain.ActionCancel)
	if err != nil {
		return nil, err
	}
	booking.Status = next
	booking.CapacityReleased = false
	if err := s.save(ctx, booking, domain.ActionCancel); err != nil {
		return nil, err
	}

	// A failed release leaves capacity_released false; RunRepair retries it.
	_ = s.releaseCancelled(ctx, booking)

	s.log.Info().Str("booking_id", id).Bool("capacity_released", booking.CapacityReleased).Msg("booking cancelled")
	s.publish(ctx, domain.EventBookingCancelled, booking)
	return booking, nil
}

func (s *BookingService) UpdateBooking(ctx context.Context, id string, input UpdateBookingInput) (*domain.Booking, error) {
	if input.EventID <= 0 || input.TicketCount <= 0 {
		return nil, fmt.Errorf("%w: event %d tickets %d", domain.ErrInvalidArgument, input.EventID, input.TicketCount)
	}

	booking, err := s.bookings.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if _, err := booking.Status.Transition(domain.ActionUpdate); err != nil {
		return nil, err
	}

	opID := s.newID()
	token := func(step string) string {
		return booking.ID + ":" + opID + ":" + step
	}

	var (
		unitPrice int64
		undo      func()
	)
	oldEvent, oldCount := booking.EventID, booking.TicketCount

	switch {
	case input.EventID == oldEvent && input.TicketCount > oldCount:
		delta := input.TicketCount - oldCount
		res := s.capacity.TryReserve(ctx, oldEvent, delta, token("reserve"))
		if res.Outcome != capacity.Reserved {
			return nil, res.Reason
		}
		unitPrice = res.Snapshot.UnitPriceCents
		undo = func() {
			s.compensateRelease(ctx, oldEvent, delta, token("undo-reserve"), "update")
		}

	case input.EventID == oldEvent:
		unitPrice = booking.TotalPriceCents / int64(oldCount)
		if surplus := oldCount - input.TicketCount; surplus > 0 {
			snap, err := s.capacity.Release(ctx, oldEvent, surplus, token("release"))
			if err != nil {
				if errors.Is(err, domain.ErrUpstreamUnavailable) {
					s.compensateReserve(ctx, oldEvent, surplus, token("undo-release"), "update")
				}
				return nil, err
			}
			unitPrice = snap.UnitPriceCents
			undo = func() {
				s.compensateReserve(ctx, oldEvent, surplus, token("undo-release"), "update")
			}
		}

	default:
		if _, err := s.capacity.Release(ctx, oldEvent, oldCount, token("release-old")); err != nil {
			if errors.Is(err, domain.ErrUpstreamUnavailable) {
				s.compensateReserve(ctx, oldEvent, oldCount, token("undo-release-old"), "update")
			}
			return nil, err
		}
		res := s.capacity.TryReserve(ctx, input.EventID, input.TicketCount, token("reserve-new"))
		if res.Outcome != capacity.Reserved {
			if err := s.restoreOld(ctx, booking, token("restore-old")); err != nil {
				return nil, fmt.Errorf("%w (moving to event %d failed: %v)", err, input.EventID, res.Reason)
			}
			return nil, res.Reason
		}
		unitPrice = res.Snapshot.UnitPriceCents
		newEvent, newCount := input.EventID, input.TicketCount
		undo = func() {
			s.compensateRelease(ctx, newEvent, newCount, token("undo-reserve-new"), "update")
			s.compensateReserve(ctx, oldEvent, oldCount, token("undo-release-old"), "update")
		}
	}

	booking.EventID = input.EventID
	booking.TicketCount = input.TicketCount
	booking.TotalPriceCents = unitPrice * int64(input.TicketCount)
	if err := s.save(ctx, booking, domain.ActionUpdate); err != nil {
		if undo != nil {
			undo()
		}
		return nil, err
	}

	s.log.Info().Str("booking_id", id).Int64("event_id", booking.EventID).Int("tickets", booking.TicketCount).Msg("booking updated")
	s.publish(ctx, domain.EventBookingUpdated, booking)
	return booking, nil
}

// RepairUnreleasedCapacity returns seats of bookings that were cancelled more
// than grace ago but whose release never completed. It reuses the cancel
// token, so a release that did reach the ledger is not applied twice.
func (s *BookingService) RepairUnreleasedCapacity(ctx context.Context, grace time.Duration) (int, error) {
	pending, err := s.bookings.ListUnreleasedCancelled(ctx, s.now().Add(-grace), repairBatchSize)
	if err != nil {
		return 0, fmt.Errorf("list unreleased bookings: %w", err)
	}

	repaired := 0
	for i := range pending {
		if ctx.Err() != nil {
			break
		}
		if err := s.releaseCancelled(ctx, &pending[i]); err == nil {
			repaired++
		}
	}
	if repaired > 0 {
		s.log.Info().Int("repaired", repaired).Int("pending", len(pending)).Msg("cancelled capacity repaired")
	}
	return repaired, nil
}

// RunRepair runs RepairUnreleasedCapacity every interval until ctx is done.
func (s *BookingService) RunRepair(ctx context.Context, every, grace time.Duration) error {
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if _, err := s.RepairUnreleasedCapacity(ctx, grace); err != nil && ctx.Err() == nil {
				s.log.Warn().Err(err).Msg("capacity repair sweep failed")
			}
		}
	}
}

func (s *BookingService) releaseCancelled(ctx context.Context, booking *domain.Booking) error {
	ctx = context.WithoutCancel(ctx)
	if _, err := s.capacity.Release(ctx, booking.EventID, booking.TicketCount, booking.ID+":cancel"); err != nil {
		ev := s.log.Warn()
		if errors.Is(err, domain.ErrInternalConsistency) {
			ev = s.log.Error()
		}
		ev.Err(err).
			Str("booking_id", booking.ID).
			Int64("event_id", booking.EventID).
			Int("tickets", booking.TicketCount).
			Msg("capacity release after cancel failed, left for repair")
		return err
	}
	if err := s.bookings.MarkCapacityReleased(ctx, booking.ID); err != nil {
		s.log.Warn().Err(err).Str("booking_id", booking.ID).Msg("mark capacity released failed")
		return err
	}
	booking.CapacityReleased = true
	return nil
}

func (s *BookingService) restoreOld(ctx context.Context, booking *domain.Booking, token string) error {
	res := s.capacity.TryReserve(context.WithoutCancel(ctx), booking.EventID, booking.TicketCount, token)
	if res.Outcome == capacity.Reserved {
		return nil
	}
	s.log.Error().Err(res.Reason).
		Str("booking_id", booking.ID).
		Int64("event_id", booking.EventID).
		Int("tickets", booking.TicketCount).
		Str("outcome", res.Outcome.String()).
		Msg("could not restore capacity of original event")
	return fmt.Errorf("%w: restore %d seats on event %d for booking %s: %v",
		domain.ErrInternalConsistency, booking.TicketCount, booking.EventID, booking.ID, res.Reason)
}

// save persists booking with a version check. On a lost race the stored
// state decides the error: an action that is no longer legal reports why.
func (s *BookingService) save(ctx context.Context, booking *domain.Booking, action domain.Action) error {
	err := s.bookings.Update(ctx, booking)
	if !errors.Is(err, domain.ErrConcurrentUpdate) {
		return err
	}

	current, getErr := s.bookings.GetByID(ctx, booking.ID)
	if getErr != nil {
		return err
	}
	if _, terr := current.Status.Transition(action); terr != nil {
		return terr
	}
	return err
}

func (s *BookingService) compensateRelease(ctx context.Context, eventID int64, quantity int, token, op string) {
	if _, err := s.capacity.Release(context.WithoutCancel(ctx), eventID, quantity, token); err != nil {
		s.log.Error().Err(err).
			Str("op", op).
			Int64("event_id", eventID).
			Int("quantity", quantity).
			Str("token", token).
			Msg("compensating release failed")
	}
}

func (s *BookingService) compensateReserve(ctx context.Context, eventID int64, quantity int, token, op string) {
	res := s.capacity.TryReserve(context.WithoutCancel(ctx), eventID, quantity, token)
	if res.Outcome != capacity.Reserved {
		s.log.Error().Err(res.Reason).
			Str("op", op).
			Int64("event_id", eventID).
			Int("quantity", quantity).
			Str("token", token).
			Msg("compensating reserve failed")
	}
}

func (s *BookingService) ensureCustomer(ctx context.Context, customerID int64) error {
	ok, err := s.customers.Exists(ctx, customerID)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: %d", domain.ErrCustomerNotFound, customerID)
	}
	return nil
}

func (s *BookingService) publish(ctx context.Context, t domain.LifecycleEventType, booking *domain.Booking) {
	s.publisher.Publish(ctx, domain.NewLifecycleEvent(t, booking, s.now()))
}

var _ BookingUseCase = (*BookingService)(nil)
