package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Domenick1991/rapidreserve/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const capacityColumns = `event_id, total_capacity, available_capacity, ticket_price_cents, updated_at`

type PGCapacityRepository struct {
	db *pgxpool.Pool
}

func NewCapacityRepository(db *pgxpool.Pool) CapacityRepository {
	return &PGCapacityRepository{db: db}
}

func (r *PGCapacityRepository) Register(ctx context.Context, c domain.EventCapacity) error {
	tag, err := r.db.Exec(ctx, `INSERT INTO event_capacity (event_id, total_capacity, available_capacity, ticket_price_cents)
		VALUES ($1, $2, $3, $4) ON CONFLICT (event_id) DO NOTHING`,
		c.EventID, c.Total, c.Available, c.UnitPriceCents)
	if err != nil {
		return fmt.Errorf("register event capacity: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrEventExists
	}
	return nil
}

// Reserve locks the event row, claims the token and decrements in one guarded
// UPDATE. The row lock serializes reservations and replays on the same event.
// The token insert shares the transaction, so a rejected or failed attempt
// leaves no token behind.
func (r *PGCapacityRepository) Reserve(ctx context.Context, eventID int64, quantity int, token string) (domain.EventCapacity, error) {
	var out domain.EventCapacity
	err := withTx(ctx, r.db, func(tx pgx.Tx) error {
		current, err := lockEvent(ctx, tx, eventID)
		if err != nil {
			return err
		}
		replay, err := claimToken(ctx, tx, eventID, token, "reserve", quantity)
		if err != nil {
			return err
		}
		if replay {
			out = current
			return nil
		}

		row := tx.QueryRow(ctx, `UPDATE event_capacity
			SET available_capacity = available_capacity - $2, updated_at = now()
			WHERE event_id = $1 AND available_capacity >= $2
			RETURNING `+capacityColumns, eventID, quantity)
		out, err = scanCapacity(row)
		if errors.Is(err, pgx.ErrNoRows) {
			if out, err = snapshot(ctx, tx, eventID); err != nil {
				return err
			}
			return domain.ErrInsufficientCapacity
		}
		if err != nil {
			return fmt.Errorf("reserve capacity: %w", err)
		}
		return nil
	})
	return out, err
}

func (r *PGCapacityRepository) Release(ctx context.Context, eventID int64, quantity int, token string) (domain.EventCapacity, error) {
	var out domain.EventCapacity
	err := withTx(ctx, r.db, func(tx pgx.Tx) error {
		current, err := lockEvent(ctx, tx, eventID)
		if err != nil {
			return err
		}
		replay, err := claimToken(ctx, tx, eventID, token, "release", quantity)
		if err != nil {
			return err
		}
		if replay {
			out = current
			return nil
		}

		row := tx.QueryRow(ctx, `UPDATE event_capacity
			SET available_capacity = available_capacity + $2, updated_at = now()
			WHERE event_id = $1 AND available_capacity + $2 <= total_capacity
			RETURNING `+capacityColumns, eventID, quantity)
		out, err = scanCapacity(row)
		if errors.Is(err, pgx.ErrNoRows) {
			if out, err = snapshot(ctx, tx, eventID); err != nil {
				return err
			}
			return fmt.Errorf("%w: event %d release %d with available %d of %d",
				domain.ErrInternalConsistency, eventID, quantity, out.Available, out.Total)
		}
		if err != nil {
			return fmt.Errorf("release capacity: %w", err)
		}
		return nil
	})
	return out, err
}

func (r *PGCapacityRepository) Snapshot(ctx context.Context, eventID int64) (domain.EventCapacity, error) {
	row := r.db.QueryRow(ctx, `SELECT `+capacityColumns+` FROM event_capacity WHERE event_id = $1`, eventID)
	c, err := scanCapacity(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.EventCapacity{}, domain.ErrEventNotFound
	}
	if err != nil {
		return domain.EventCapacity{}, fmt.Errorf("get capacity: %w", err)
	}
	return c, nil
}

func (r *PGCapacityRepository) PurgeTokens(ctx context.Context, before time.Time) (int64, error) {
	tag, err := r.db.Exec(ctx, `DELETE FROM capacity_tokens WHERE applied_at < $1`, before)
	if err != nil {
		return 0, fmt.Errorf("purge capacity tokens: %w", err)
	}
	return tag.RowsAffected(), nil
}

// claimToken records token inside tx. It reports true when the token was
// already applied to this event.
func claimToken(ctx context.Context, tx pgx.Tx, eventID int64, token, op string, quantity int) (bool, error) {
	if token == "" {
		return false, nil
	}
	tag, err := tx.Exec(ctx, `INSERT INTO capacity_tokens (event_id, token, operation, quantity)
		VALUES ($1, $2, $3, $4) ON CONFLICT (event_id, token) DO NOTHING`, eventID, token, op, quantity)
	if err != nil {
		if isForeignKeyViolation(err) {
			return false, fmt.Errorf("%w: %d", domain.ErrEventNotFound, eventID)
		}
		return false, fmt.Errorf("claim token: %w", err)
	}
	return tag.RowsAffected() == 0, nil
}

// lockEvent reads the event row FOR UPDATE. Unknown events fail here, before
// any token is written.
func lockEvent(ctx context.Context, tx pgx.Tx, eventID int64) (domain.EventCapacity, error) {
	c, err := scanCapacity(tx.QueryRow(ctx, `SELECT `+capacityColumns+` FROM event_capacity WHERE event_id = $1 FOR UPDATE`, eventID))
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.EventCapacity{}, fmt.Errorf("%w: %d", domain.ErrEventNotFound, eventID)
	}
	if err != nil {
		return domain.EventCapacity{}, fmt.Errorf("lock capacity: %w", err)
	}
	return c, nil
}

func snapshot(ctx context.Context, tx pgx.Tx, eventID int64) (domain.EventCapacity, error) {
	c, err := scanCapacity(tx.QueryRow(ctx, `SELECT `+capacityColumns+` FROM event_capacity WHERE event_id = $1`, eventID))
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.EventCapacity{}, domain.ErrEventNotFound
	}
	if err != nil {
		return domain.EventCapacity{}, fmt.Errorf("get capacity: %w", err)
	}
	return c, nil
}

func scanCapacity(row pgx.Row) (domain.EventCapacity, error) {
	var c domain.EventCapacity
	err := row.Scan(&c.EventID, &c.Total, &c.Available, &c.UnitPriceCents, &c.UpdatedAt)
	return c, err
}

var _ CapacityRepository = (*PGCapacityRepository)(nil)
