package repository

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/Domenick1991/rapidreserve/internal/domain"
)

// MemCapacityRepository keeps the ledger in process memory. Each event has its
// own lock, so callers on different events never contend.
type MemCapacityRepository struct {
	mu     sync.RWMutex
	events map[int64]*memEvent
	now    func() time.Time
}

type memEvent struct {
	mu     sync.Mutex
	c      domain.EventCapacity
	tokens map[string]time.Time
}

func NewMemCapacityRepository() *MemCapacityRepository {
	return &MemCapacityRepository{
		events: make(map[int64]*memEvent),
		now:    time.Now,
	}
}

func (r *MemCapacityRepository) Register(_ context.Context, c domain.EventCapacity) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.events[c.EventID]; ok {
		return domain.ErrEventExists
	}
	c.UpdatedAt = r.now().UTC()
	r.events[c.EventID] = &memEvent{c: c, tokens: make(map[string]time.Time)}
	return nil
}

func (r *MemCapacityRepository) Reserve(_ context.Context, eventID int64, quantity int, token string) (domain.EventCapacity, error) {
	ev, err := r.event(eventID)
	if err != nil {
		return domain.EventCapacity{}, err
	}

	ev.mu.Lock()
	defer ev.mu.Unlock()

	if ev.applied(token) {
		return ev.c, nil
	}
	if quantity > ev.c.Available {
		return ev.c, domain.ErrInsufficientCapacity
	}
	ev.c.Available -= quantity
	ev.c.UpdatedAt = r.now().UTC()
	ev.record(token, ev.c.UpdatedAt)
	return ev.c, nil
}

func (r *MemCapacityRepository) Release(_ context.Context, eventID int64, quantity int, token string) (domain.EventCapacity, error) {
	ev, err := r.event(eventID)
	if err != nil {
		return domain.EventCapacity{}, err
	}

	ev.mu.Lock()
	defer ev.mu.Unlock()

	if ev.applied(token) {
		return ev.c, nil
	}
	if ev.c.Available+quantity > ev.c.Total {
		return ev.c, fmt.Errorf("%w: event %d release %d with available %d of %d",
			domain.ErrInternalConsistency, eventID, quantity, ev.c.Available, ev.c.Total)
	}
	ev.c.Available += quantity
	ev.c.UpdatedAt = r.now().UTC()
	ev.record(token, ev.c.UpdatedAt)
	return ev.c, nil
}

func (r *MemCapacityRepository) Snapshot(_ context.Context, eventID int64) (domain.EventCapacity, error) {
	ev, err := r.event(eventID)
	if err != nil {
		return domain.EventCapacity{}, err
	}

	ev.mu.Lock()
	defer ev.mu.Unlock()
	return ev.c, nil
}

func (r *MemCapacityRepository) PurgeTokens(_ context.Context, before time.Time) (int64, error) {
	r.mu.RLock()
	events := make([]*memEvent, 0, len(r.events))
	for _, ev := range r.events {
		events = append(events, ev)
	}
	r.mu.RUnlock()

	var purged int64
	for _, ev := range events {
		ev.mu.Lock()
		for token, at := range ev.tokens {
			if at.Before(before) {
				delete(ev.tokens, token)
				purged++
			}
		}
		ev.mu.Unlock()
	}
	return purged, nil
}

func (r *MemCapacityRepository) event(eventID int64) (*memEvent, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ev, ok := r.events[eventID]
	if !ok {
		return nil, domain.ErrEventNotFound
	}
	return ev, nil
}

func (e *memEvent) applied(token string) bool {
	if token == "" {
		return false
	}
	_, ok := e.tokens[token]
	return ok
}

func (e *memEvent) record(token string, at time.Time) {
	if token != "" {
		e.tokens[token] = at
	}
}

var _ CapacityRepository = (*MemCapacityRepository)(nil)
