package repository

import (
	"context"
	"time"

	"github.com/Domenick1991/rapidreserve/internal/domain"
)

// CapacityRepository is the storage side of the capacity ledger. Reserve and
// Release are single atomic steps per event; a token already applied to the
// event makes the call a no-op that returns the current row.
type CapacityRepository interface {
	Register(ctx context.Context, c domain.EventCapacity) error
	Reserve(ctx context.Context, eventID int64, quantity int, token string) (domain.EventCapacity, error)
	Release(ctx context.Context, eventID int64, quantity int, token string) (domain.EventCapacity, error)
	Snapshot(ctx context.Context, eventID int64) (domain.EventCapacity, error)
	PurgeTokens(ctx context.Context, before time.Time) (int64, error)
}
