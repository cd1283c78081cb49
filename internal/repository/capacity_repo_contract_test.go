package repository

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/Domenick1991/rapidreserve/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testCapacityRepository runs the same behaviour checks against every ledger
// backend. Each subtest registers its own event id.
func testCapacityRepository(t *testing.T, repo CapacityRepository) {
	ctx := context.Background()
	var nextID atomic.Int64
	nextID.Store(time.Now().UnixNano() % 1_000_000_000)
	register := func(t *testing.T, total int) int64 {
		t.Helper()
		id := nextID.Add(1)
		require.NoError(t, repo.Register(ctx, domain.EventCapacity{
			EventID: id, Total: total, Available: total, UnitPriceCents: 2500,
		}))
		return id
	}

	t.Run("register twice", func(t *testing.T) {
		id := register(t, 10)
		err := repo.Register(ctx, domain.EventCapacity{EventID: id, Total: 5, Available: 5})
		assert.ErrorIs(t, err, domain.ErrEventExists)
	})

	t.Run("reserve and release", func(t *testing.T) {
		id := register(t, 10)

		c, err := repo.Reserve(ctx, id, 4, "r-1")
		require.NoError(t, err)
		assert.Equal(t, 6, c.Available)
		assert.Equal(t, 10, c.Total)
		assert.Equal(t, int64(2500), c.UnitPriceCents)

		c, err = repo.Release(ctx, id, 3, "rel-1")
		require.NoError(t, err)
		assert.Equal(t, 9, c.Available)
	})

	t.Run("exact remaining capacity", func(t *testing.T) {
		id := register(t, 3)
		c, err := repo.Reserve(ctx, id, 3, "all")
		require.NoError(t, err)
		assert.Equal(t, 0, c.Available)

		c, err = repo.Reserve(ctx, id, 1, "one-more")
		assert.ErrorIs(t, err, domain.ErrInsufficientCapacity)
		assert.Equal(t, 0, c.Available)
	})

	t.Run("insufficient leaves state unchanged", func(t *testing.T) {
		id := register(t, 2)
		_, err := repo.Reserve(ctx, id, 3, "too-many")
		assert.ErrorIs(t, err, domain.ErrInsufficientCapacity)

		c, err := repo.Snapshot(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, 2, c.Available)

		// A rejected attempt records nothing, so the same token may succeed later.
		c, err = repo.Reserve(ctx, id, 2, "too-many")
		require.NoError(t, err)
		assert.Equal(t, 0, c.Available)
	})

	t.Run("replayed token is applied once", func(t *testing.T) {
		id := register(t, 10)
		for i := 0; i < 3; i++ {
			c, err := repo.Reserve(ctx, id, 2, "booking-a")
			require.NoError(t, err)
			assert.Equal(t, 8, c.Available)
		}
		for i := 0; i < 3; i++ {
			c, err := repo.Release(ctx, id, 2, "booking-a:cancel")
			require.NoError(t, err)
			assert.Equal(t, 10, c.Available)
		}
	})

	t.Run("release beyond total", func(t *testing.T) {
		id := register(t, 5)
		_, err := repo.Reserve(ctx, id, 1, "x")
		require.NoError(t, err)

		_, err = repo.Release(ctx, id, 2, "overflow")
		assert.ErrorIs(t, err, domain.ErrInternalConsistency)

		c, err := repo.Snapshot(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, 4, c.Available)
	})

	t.Run("unknown event", func(t *testing.T) {
		_, err := repo.Reserve(ctx, -1, 1, "nope")
		assert.ErrorIs(t, err, domain.ErrEventNotFound)
		_, err = repo.Release(ctx, -1, 1, "nope")
		assert.ErrorIs(t, err, domain.ErrEventNotFound)
		_, err = repo.Snapshot(ctx, -1)
		assert.ErrorIs(t, err, domain.ErrEventNotFound)
	})

	t.Run("concurrent reservations never oversell", func(t *testing.T) {
		const capacity, workers = 20, 50
		id := register(t, capacity)

		var (
			wg       sync.WaitGroup
			reserved atomic.Int64
			rejected atomic.Int64
		)
		for i := 0; i < workers; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				_, err := repo.Reserve(ctx, id, 1, fmt.Sprintf("w-%d", i))
				switch {
				case err == nil:
					reserved.Add(1)
				case assert.ErrorIs(t, err, domain.ErrInsufficientCapacity):
					rejected.Add(1)
				}
			}(i)
		}
		wg.Wait()

		assert.Equal(t, int64(capacity), reserved.Load())
		assert.Equal(t, int64(workers-capacity), rejected.Load())

		c, err := repo.Snapshot(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, 0, c.Available)
		assert.True(t, c.Consistent())
	})

	t.Run("concurrent replays of one token", func(t *testing.T) {
		id := register(t, 10)
		var wg sync.WaitGroup
		for i := 0; i < 10; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, err := repo.Reserve(ctx, id, 3, "same-token")
				assert.NoError(t, err)
			}()
		}
		wg.Wait()

		c, err := repo.Snapshot(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, 7, c.Available)
	})
}
