package booking

import (
	"context"
	"time"

	"github.com/Domenick1991/rapidreserve/internal/capacity"
	"github.com/Domenick1991/rapidreserve/internal/domain"
	"github.com/stretchr/testify/mock"
)

type MockBookingRepository struct {
	mock.Mock
}

func (m *MockBookingRepository) Create(ctx context.Context, booking *domain.Booking) error {
	args := m.Called(ctx, booking)
	return args.Error(0)
}

func (m *MockBookingRepository) GetByID(ctx context.Context, id string) (*domain.Booking, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	// Hand out a copy so the service cannot mutate the fixture.
	b := *args.Get(0).(*domain.Booking)
	return &b, args.Error(1)
}

func (m *MockBookingRepository) ListByCustomer(ctx context.Context, customerID int64) ([]domain.Booking, error) {
	args := m.Called(ctx, customerID)
	return args.Get(0).([]domain.Booking), args.Error(1)
}

func (m *MockBookingRepository) Update(ctx context.Context, booking *domain.Booking) error {
	args := m.Called(ctx, booking)
	return args.Error(0)
}

func (m *MockBookingRepository) MarkCapacityReleased(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockBookingRepository) ListUnreleasedCancelled(ctx context.Context, before time.Time, limit int) ([]domain.Booking, error) {
	args := m.Called(ctx, before, limit)
	return args.Get(0).([]domain.Booking), args.Error(1)
}

type MockCustomerRepository struct {
	mock.Mock
}

func (m *MockCustomerRepository) Exists(ctx context.Context, id int64) (bool, error) {
	args := m.Called(ctx, id)
	return args.Bool(0), args.Error(1)
}

type MockCapacityClient struct {
	mock.Mock
}

func (m *MockCapacityClient) TryReserve(ctx context.Context, eventID int64, quantity int, token string) capacity.Reservation {
	args := m.Called(ctx, eventID, quantity, token)
	return args.Get(0).(capacity.Reservation)
}

func (m *MockCapacityClient) Release(ctx context.Context, eventID int64, quantity int, token string) (capacity.Snapshot, error) {
	args := m.Called(ctx, eventID, quantity, token)
	return args.Get(0).(capacity.Snapshot), args.Error(1)
}

type MockPublisher struct {
	mock.Mock
}

func (m *MockPublisher) Publish(ctx context.Context, event domain.LifecycleEvent) {
	m.Called(ctx, event)
}

func reserved(available int, unitPrice int64) capacity.Reservation {
	return capacity.Reservation{
		Outcome:  capacity.Reserved,
		Snapshot: capacity.Snapshot{Available: available, UnitPriceCents: unitPrice},
	}
}

func rejected(reason error) capacity.Reservation {
	return capacity.Reservation{Outcome: capacity.Rejected, Reason: reason}
}

func unavailable() capacity.Reservation {
	return capacity.Reservation{Outcome: capacity.Unavailable, Reason: domain.ErrUpstreamUnavailable}
}

func eventOfType(t domain.LifecycleEventType) any {
	return mock.MatchedBy(func(e domain.LifecycleEvent) bool { return e.Type == t })
}
