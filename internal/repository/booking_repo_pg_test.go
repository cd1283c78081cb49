package repository

import (
	"context"
	"testing"
	"time"

	"github.com/Domenick1991/rapidreserve/internal/domain"
	"github.com/Domenick1991/rapidreserve/internal/testutil"
	"github.com/Domenick1991/rapidreserve/migrations"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewBookingRepository(t *testing.T) {
	pool := &pgxpool.Pool{}
	repo := NewBookingRepository(pool)
	assert.NotNil(t, repo)
}

func TestPGBookingRepository_MalformedIDIsNotFound(t *testing.T) {
	repo := NewBookingRepository(&pgxpool.Pool{})

	_, err := repo.GetByID(context.Background(), "not-a-uuid")
	assert.ErrorIs(t, err, domain.ErrBookingNotFound)

	err = repo.MarkCapacityReleased(context.Background(), "42")
	assert.ErrorIs(t, err, domain.ErrBookingNotFound)
}

func seedCustomer(t *testing.T, pool *pgxpool.Pool) int64 {
	t.Helper()
	var id int64
	err := pool.QueryRow(context.Background(),
		`INSERT INTO customers (email, full_name) VALUES ($1, 'Test Customer') RETURNING id`,
		uuid.NewString()+"@example.com").Scan(&id)
	require.NoError(t, err)
	return id
}

func newPendingBooking(customerID, eventID int64, count int) *domain.Booking {
	return &domain.Booking{
		ID:              uuid.NewString(),
		CustomerID:      customerID,
		EventID:         eventID,
		TicketCount:     count,
		TotalPriceCents: int64(count) * 2500,
		Status:          domain.BookingStatusPending,
	}
}

func TestPGBookingRepository(t *testing.T) {
	ctx := context.Background()
	pool := testutil.NewTestPool(t, migrations.Booking)
	repo := NewBookingRepository(pool)
	customers := NewCustomerRepository(pool)

	customerID := seedCustomer(t, pool)

	t.Run("customer exists", func(t *testing.T) {
		ok, err := customers.Exists(ctx, customerID)
		require.NoError(t, err)
		assert.True(t, ok)

		ok, err = customers.Exists(ctx, -42)
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("create and get", func(t *testing.T) {
		b := newPendingBooking(customerID, 1, 2)
		require.NoError(t, repo.Create(ctx, b))
		assert.Equal(t, int64(1), b.Version)
		assert.False(t, b.CreatedAt.IsZero())

		got, err := repo.GetByID(ctx, b.ID)
		require.NoError(t, err)
		assert.Equal(t, b.ID, got.ID)
		assert.Equal(t, domain.BookingStatusPending, got.Status)
		assert.Equal(t, int64(5000), got.TotalPriceCents)
	})

	t.Run("create for unknown customer", func(t *testing.T) {
		err := repo.Create(ctx, newPendingBooking(-7, 1, 1))
		assert.ErrorIs(t, err, domain.ErrCustomerNotFound)
	})

	t.Run("get missing", func(t *testing.T) {
		_, err := repo.GetByID(ctx, uuid.NewString())
		assert.ErrorIs(t, err, domain.ErrBookingNotFound)
	})

	t.Run("list newest first", func(t *testing.T) {
		other := seedCustomer(t, pool)
		first := newPendingBooking(other, 1, 1)
		require.NoError(t, repo.Create(ctx, first))
		time.Sleep(5 * time.Millisecond)
		second := newPendingBooking(other, 2, 1)
		require.NoError(t, repo.Create(ctx, second))

		list, err := repo.ListByCustomer(ctx, other)
		require.NoError(t, err)
		require.Len(t, list, 2)
		assert.Equal(t, second.ID, list[0].ID)
		assert.Equal(t, first.ID, list[1].ID)
	})

	t.Run("update checks version", func(t *testing.T) {
		b := newPendingBooking(customerID, 3, 2)
		require.NoError(t, repo.Create(ctx, b))

		stale := *b
		b.Status = domain.BookingStatusConfirmed
		require.NoError(t, repo.Update(ctx, b))
		assert.Equal(t, int64(2), b.Version)

		stale.Status = domain.BookingStatusCancelled
		err := repo.Update(ctx, &stale)
		assert.ErrorIs(t, err, domain.ErrConcurrentUpdate)

		got, err := repo.GetByID(ctx, b.ID)
		require.NoError(t, err)
		assert.Equal(t, domain.BookingStatusConfirmed, got.Status)
	})

	t.Run("unreleased cancelled bookings", func(t *testing.T) {
		b := newPendingBooking(customerID, 4, 1)
		require.NoError(t, repo.Create(ctx, b))
		b.Status = domain.BookingStatusCancelled
		require.NoError(t, repo.Update(ctx, b))

		list, err := repo.ListUnreleasedCancelled(ctx, time.Now().Add(time.Minute), 100)
		require.NoError(t, err)
		assert.True(t, containsBooking(list, b.ID))

		require.NoError(t, repo.MarkCapacityReleased(ctx, b.ID))

		list, err = repo.ListUnreleasedCancelled(ctx, time.Now().Add(time.Minute), 100)
		require.NoError(t, err)
		assert.False(t, containsBooking(list, b.ID))
	})

	t.Run("mark released requires cancelled", func(t *testing.T) {
		b := newPendingBooking(customerID, 5, 1)
		require.NoError(t, repo.Create(ctx, b))
		assert.ErrorIs(t, repo.MarkCapacityReleased(ctx, b.ID), domain.ErrBookingNotFound)
	})
}

func containsBooking(list []domain.Booking, id string) bool {
	for _, b := range list {
		if b.ID == id {
			return true
		}
	}
	return false
}
