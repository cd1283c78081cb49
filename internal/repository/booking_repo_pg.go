package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Domenick1991/rapidreserve/internal/domain"
	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/postgres"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const (
	tableBookings = "bookings"

	colID               = "id"
	colCustomerID       = "customer_id"
	colEventID          = "event_id"
	colTicketCount      = "ticket_count"
	colTotalPriceCents  = "total_price_cents"
	colStatus           = "status"
	colVersion          = "version"
	colCapacityReleased = "capacity_released"
	colCreatedAt        = "created_at"
	colUpdatedAt        = "updated_at"
)

var bookingColumns = []any{
	colID, colCustomerID, colEventID, colTicketCount, colTotalPriceCents,
	colStatus, colVersion, colCapacityReleased, colCreatedAt, colUpdatedAt,
}

type BookingRepository interface {
	Create(ctx context.Context, booking *domain.Booking) error
	GetByID(ctx context.Context, id string) (*domain.Booking, error)
	ListByCustomer(ctx context.Context, customerID int64) ([]domain.Booking, error)
	// Update writes booking if its stored version still equals booking.Version
	// and bumps the version. A stale version yields domain.ErrConcurrentUpdate.
	Update(ctx context.Context, booking *domain.Booking) error
	MarkCapacityReleased(ctx context.Context, id string) error
	ListUnreleasedCancelled(ctx context.Context, before time.Time, limit int) ([]domain.Booking, error)
}

type PGBookingRepository struct {
	db      *pgxpool.Pool
	dialect goqu.DialectWrapper
}

func NewBookingRepository(db *pgxpool.Pool) BookingRepository {
	return &PGBookingRepository{db: db, dialect: goqu.Dialect("postgres")}
}

func (r *PGBookingRepository) Create(ctx context.Context, booking *domain.Booking) error {
	query, args, err := r.dialect.Insert(tableBookings).Prepared(true).
		Rows(goqu.Record{
			colID:               booking.ID,
			colCustomerID:       booking.CustomerID,
			colEventID:          booking.EventID,
			colTicketCount:      booking.TicketCount,
			colTotalPriceCents:  booking.TotalPriceCents,
			colStatus:           booking.Status,
			colCapacityReleased: booking.CapacityReleased,
		}).
		Returning(colVersion, colCreatedAt, colUpdatedAt).
		ToSQL()
	if err != nil {
		return fmt.Errorf("build insert booking: %w", err)
	}

	if err := r.db.QueryRow(ctx, query, args...).Scan(&booking.Version, &booking.CreatedAt, &booking.UpdatedAt); err != nil {
		if isForeignKeyViolation(err) {
			return domain.ErrCustomerNotFound
		}
		return fmt.Errorf("insert booking: %w", err)
	}
	return nil
}

// GetByID treats an id that is not a UUID as unknown; the column type would
// reject it otherwise.
func (r *PGBookingRepository) GetByID(ctx context.Context, id string) (*domain.Booking, error) {
	if !validBookingID(id) {
		return nil, fmt.Errorf("%w: %q", domain.ErrBookingNotFound, id)
	}
	query, args, err := r.dialect.From(tableBookings).Prepared(true).
		Select(bookingColumns...).
		Where(goqu.Ex{colID: id}).
		ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build get booking: %w", err)
	}

	b, err := scanBooking(r.db.QueryRow(ctx, query, args...))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrBookingNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get booking: %w", err)
	}
	return b, nil
}

func (r *PGBookingRepository) ListByCustomer(ctx context.Context, customerID int64) ([]domain.Booking, error) {
	query, args, err := r.dialect.From(tableBookings).Prepared(true).
		Select(bookingColumns...).
		Where(goqu.Ex{colCustomerID: customerID}).
		Order(goqu.I(colCreatedAt).Desc()).
		ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build list bookings: %w", err)
	}
	return r.list(ctx, query, args)
}

func (r *PGBookingRepository) Update(ctx context.Context, booking *domain.Booking) error {
	query, args, err := r.dialect.Update(tableBookings).Prepared(true).
		Set(goqu.Record{
			colEventID:          booking.EventID,
			colTicketCount:      booking.TicketCount,
			colTotalPriceCents:  booking.TotalPriceCents,
			colStatus:           booking.Status,
			colCapacityReleased: booking.CapacityReleased,
			colVersion:          goqu.L(colVersion + " + 1"),
			colUpdatedAt:        goqu.L("now()"),
		}).
		Where(goqu.Ex{colID: booking.ID, colVersion: booking.Version}).
		Returning(colVersion, colUpdatedAt).
		ToSQL()
	if err != nil {
		return fmt.Errorf("build update booking: %w", err)
	}

	err = r.db.QueryRow(ctx, query, args...).Scan(&booking.Version, &booking.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.ErrConcurrentUpdate
	}
	if err != nil {
		return fmt.Errorf("update booking: %w", err)
	}
	return nil
}

func (r *PGBookingRepository) MarkCapacityReleased(ctx context.Context, id string) error {
	if !validBookingID(id) {
		return fmt.Errorf("%w: %q", domain.ErrBookingNotFound, id)
	}
	query, args, err := r.dialect.Update(tableBookings).Prepared(true).
		Set(goqu.Record{colCapacityReleased: true}).
		Where(goqu.Ex{colID: id, colStatus: domain.BookingStatusCancelled}).
		ToSQL()
	if err != nil {
		return fmt.Errorf("build mark released: %w", err)
	}

	tag, err := r.db.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("mark capacity released: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrBookingNotFound
	}
	return nil
}

func (r *PGBookingRepository) ListUnreleasedCancelled(ctx context.Context, before time.Time, limit int) ([]domain.Booking, error) {
	query, args, err := r.dialect.From(tableBookings).Prepared(true).
		Select(bookingColumns...).
		Where(
			goqu.C(colStatus).Eq(domain.BookingStatusCancelled),
			goqu.C(colCapacityReleased).IsFalse(),
			goqu.C(colUpdatedAt).Lt(before),
		).
		Order(goqu.I(colUpdatedAt).Asc()).
		Limit(uint(limit)).
		ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build list unreleased: %w", err)
	}
	return r.list(ctx, query, args)
}

func (r *PGBookingRepository) list(ctx context.Context, query string, args []any) ([]domain.Booking, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list bookings: %w", err)
	}
	defer rows.Close()

	bookings := make([]domain.Booking, 0)
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, fmt.Errorf("scan booking: %w", err)
		}
		bookings = append(bookings, *b)
	}
	return bookings, rows.Err()
}

func validBookingID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}

func scanBooking(row pgx.Row) (*domain.Booking, error) {
	var b domain.Booking
	if err := row.Scan(&b.ID, &b.CustomerID, &b.EventID, &b.TicketCount, &b.TotalPriceCents,
		&b.Status, &b.Version, &b.CapacityReleased, &b.CreatedAt, &b.UpdatedAt); err != nil {
		return nil, err
	}
	return &b, nil
}

var _ BookingRepository = (*PGBookingRepository)(nil)
