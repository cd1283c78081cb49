package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// CustomerRepository is the read-only view of customer accounts the booking
// side needs. Account management lives elsewhere.
type CustomerRepository interface {
	Exists(ctx context.Context, id int64) (bool, error)
}

type PGCustomerRepository struct {
	db *pgxpool.Pool
}

func NewCustomerRepository(db *pgxpool.Pool) CustomerRepository {
	return &PGCustomerRepository{db: db}
}

func (r *PGCustomerRepository) Exists(ctx context.Context, id int64) (bool, error) {
	var exists bool
	if err := r.db.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM customers WHERE id = $1)`, id).Scan(&exists); err != nil {
		return false, fmt.Errorf("check customer: %w", err)
	}
	return exists, nil
}

var _ CustomerRepository = (*PGCustomerRepository)(nil)
