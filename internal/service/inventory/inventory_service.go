package inventory

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Domenick1991/rapidreserve/internal/domain"
	"github.com/Domenick1991/rapidreserve/internal/repository"
	"github.com/rs/zerolog"
)

type LedgerUseCase interface {
	RegisterEvent(ctx context.Context, eventID int64, total int, unitPriceCents int64) (domain.EventCapacity, error)
	Reserve(ctx context.Context, eventID int64, quantity int, token string) (domain.EventCapacity, error)
	Release(ctx context.Context, eventID int64, quantity int, token string) (domain.EventCapacity, error)
	Snapshot(ctx context.Context, eventID int64) (domain.EventCapacity, error)
}

// SnapshotCache holds informational copies of ledger rows. Nothing reads it
// to make a capacity decision.
type SnapshotCache interface {
	GetCapacity(ctx context.Context, eventID int64) (*domain.EventCapacity, error)
	SetCapacity(ctx context.Context, capacity domain.EventCapacity) error
	InvalidateCapacity(ctx context.Context, eventID int64) error
}

type InventoryService struct {
	ledger         repository.CapacityRepository
	cache          SnapshotCache
	log            zerolog.Logger
	tokenRetention time.Duration
	now            func() time.Time
}

type Option func(*InventoryService)

func WithSnapshotCache(cache SnapshotCache) Option {
	return func(s *InventoryService) {
		s.cache = cache
	}
}

func WithLogger(log zerolog.Logger) Option {
	return func(s *InventoryService) {
		s.log = log
	}
}

func WithTokenRetention(d time.Duration) Option {
	return func(s *InventoryService) {
		s.tokenRetention = d
	}
}

func NewInventoryService(ledger repository.CapacityRepository, opts ...Option) *InventoryService {
	s := &InventoryService{
		ledger:         ledger,
		log:            zerolog.Nop(),
		tokenRetention: 24 * time.Hour,
		now:            time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *InventoryService) RegisterEvent(ctx context.Context, eventID int64, total int, unitPriceCents int64) (domain.EventCapacity, error) {
	if eventID <= 0 || total < 0 || unitPriceCents < 0 {
		return domain.EventCapacity{}, fmt.Errorf("%w: event %d total %d price %d", domain.ErrInvalidArgument, eventID, total, unitPriceCents)
	}

	c := domain.EventCapacity{EventID: eventID, Total: total, Available: total, UnitPriceCents: unitPriceCents}
	if err := s.ledger.Register(ctx, c); err != nil {
		return domain.EventCapacity{}, err
	}
	s.log.Info().Int64("event_id", eventID).Int("total", total).Msg("event capacity registered")
	return s.ledger.Snapshot(ctx, eventID)
}

func (s *InventoryService) Reserve(ctx context.Context, eventID int64, quantity int, token string) (domain.EventCapacity, error) {
	if err := validateChange(eventID, quantity); err != nil {
		return domain.EventCapacity{}, err
	}

	c, err := s.ledger.Reserve(ctx, eventID, quantity, token)
	if err != nil {
		s.checkConsistency(err, "reserve", eventID, quantity, token)
		return c, err
	}
	s.invalidate(ctx, eventID)
	return c, nil
}

func (s *InventoryService) Release(ctx context.Context, eventID int64, quantity int, token string) (domain.EventCapacity, error) {
	if err := validateChange(eventID, quantity); err != nil {
		return domain.EventCapacity{}, err
	}

	c, err := s.ledger.Release(ctx, eventID, quantity, token)
	if err != nil {
		s.checkConsistency(err, "release", eventID, quantity, token)
		return c, err
	}
	s.invalidate(ctx, eventID)
	return c, nil
}

func (s *InventoryService) Snapshot(ctx context.Context, eventID int64) (domain.EventCapacity, error) {
	if s.cache != nil {
		if cached, err := s.cache.GetCapacity(ctx, eventID); err == nil && cached != nil {
			return *cached, nil
		}
	}

	c, err := s.ledger.Snapshot(ctx, eventID)
	if err != nil {
		return domain.EventCapacity{}, err
	}
	s.refresh(ctx, c)
	return c, nil
}

// PurgeExpiredTokens forgets idempotency tokens older than the retention
// window. A retry arriving after that is applied again.
func (s *InventoryService) PurgeExpiredTokens(ctx context.Context) (int64, error) {
	purged, err := s.ledger.PurgeTokens(ctx, s.now().Add(-s.tokenRetention))
	if err != nil {
		return 0, err
	}
	if purged > 0 {
		s.log.Debug().Int64("purged", purged).Msg("expired capacity tokens purged")
	}
	return purged, nil
}

// RunTokenSweep purges expired tokens every interval until ctx is done.
func (s *InventoryService) RunTokenSweep(ctx context.Context, every time.Duration) error {
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if _, err := s.PurgeExpiredTokens(ctx); err != nil && ctx.Err() == nil {
				s.log.Warn().Err(err).Msg("token sweep failed")
			}
		}
	}
}

func (s *InventoryService) checkConsistency(err error, op string, eventID int64, quantity int, token string) {
	if !errors.Is(err, domain.ErrInternalConsistency) {
		return
	}
	s.log.Error().Err(err).
		Str("op", op).
		Int64("event_id", eventID).
		Int("quantity", quantity).
		Str("token", token).
		Msg("capacity invariant violation rejected")
}

func (s *InventoryService) refresh(ctx context.Context, c domain.EventCapacity) {
	if s.cache == nil {
		return
	}
	if err := s.cache.SetCapacity(ctx, c); err != nil {
		s.log.Debug().Err(err).Int64("event_id", c.EventID).Msg("snapshot cache write failed")
	}
}

// invalidate drops the cached row after a write. Only reads repopulate the
// cache, so concurrent writes cannot leave an older row behind for the TTL.
func (s *InventoryService) invalidate(ctx context.Context, eventID int64) {
	if s.cache == nil {
		return
	}
	if err := s.cache.InvalidateCapacity(ctx, eventID); err != nil {
		s.log.Warn().Err(err).Int64("event_id", eventID).Msg("snapshot cache invalidation failed")
	}
}

func validateChange(eventID int64, quantity int) error {
	if eventID <= 0 || quantity <= 0 {
		return fmt.Errorf("%w: event %d quantity %d", domain.ErrInvalidArgument, eventID, quantity)
	}
	return nil
}

var _ LedgerUseCase = (*InventoryService)(nil)
