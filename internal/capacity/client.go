package capacity

import (
	"context"
	"errors"
	"fmt"

	"github.com/Domenick1991/rapidreserve/config"
	"github.com/Domenick1991/rapidreserve/internal/domain"
	"github.com/Domenick1991/rapidreserve/internal/inventoryrpc"
	"github.com/cenkalti/backoff/v3"
	"github.com/rs/zerolog"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"
)

type Outcome int

const (
	Reserved Outcome = iota + 1
	Rejected
	Unavailable
)

func (o Outcome) String() string {
	switch o {
	case Reserved:
		return "reserved"
	case Rejected:
		return "rejected"
	case Unavailable:
		return "unavailable"
	default:
		return "unknown"
	}
}

// Snapshot is the ledger state of an event as reported by the last call.
type Snapshot struct {
	EventID        int64
	Total          int
	Available      int
	UnitPriceCents int64
}

// Reservation is the result of TryReserve. Reason is set unless the outcome
// is Reserved; for Rejected it wraps a domain error such as
// domain.ErrInsufficientCapacity or domain.ErrEventNotFound.
type Reservation struct {
	Outcome  Outcome
	Reason   error
	Snapshot Snapshot
}

type Client struct {
	ledger inventoryrpc.LedgerClient
	cfg    config.CapacityClientConfig
	log    zerolog.Logger
}

func NewClient(ledger inventoryrpc.LedgerClient, cfg config.CapacityClientConfig, log zerolog.Logger) *Client {
	return &Client{ledger: ledger, cfg: cfg, log: log}
}

// Dial opens a connection to the inventory service. The caller closes the
// returned connection.
func Dial(target string, cfg config.CapacityClientConfig, log zerolog.Logger) (*Client, *grpc.ClientConn, error) {
	conn, err := grpc.NewClient(target, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, nil, fmt.Errorf("dial inventory %s: %w", target, err)
	}
	return NewClient(inventoryrpc.NewLedgerClient(conn), cfg, log), conn, nil
}

// TryReserve asks the ledger to take quantity seats. The token makes retries
// safe: the ledger applies a given token at most once.
func (c *Client) TryReserve(ctx context.Context, eventID int64, quantity int, token string) Reservation {
	reply, err := c.call(ctx, "reserve", eventID, func(ctx context.Context) (*inventoryrpc.CapacityReply, error) {
		return c.ledger.Reserve(ctx, &inventoryrpc.ReserveRequest{EventID: eventID, Quantity: quantity, Token: token})
	})
	switch {
	case err == nil:
		return Reservation{Outcome: Reserved, Snapshot: toSnapshot(reply)}
	case errors.Is(err, domain.ErrUpstreamUnavailable):
		return Reservation{Outcome: Unavailable, Reason: err}
	default:
		return Reservation{Outcome: Rejected, Reason: err}
	}
}

func (c *Client) Release(ctx context.Context, eventID int64, quantity int, token string) (Snapshot, error) {
	reply, err := c.call(ctx, "release", eventID, func(ctx context.Context) (*inventoryrpc.CapacityReply, error) {
		return c.ledger.Release(ctx, &inventoryrpc.ReleaseRequest{EventID: eventID, Quantity: quantity, Token: token})
	})
	if err != nil {
		return Snapshot{}, err
	}
	return toSnapshot(reply), nil
}

func (c *Client) Snapshot(ctx context.Context, eventID int64) (Snapshot, error) {
	reply, err := c.call(ctx, "snapshot", eventID, func(ctx context.Context) (*inventoryrpc.CapacityReply, error) {
		return c.ledger.Snapshot(ctx, &inventoryrpc.SnapshotRequest{EventID: eventID})
	})
	if err != nil {
		return Snapshot{}, err
	}
	return toSnapshot(reply), nil
}

// call runs fn with a per-attempt timeout. Transport failures are retried
// with exponential backoff; ledger answers are returned at once.
func (c *Client) call(ctx context.Context, op string, eventID int64, fn func(context.Context) (*inventoryrpc.CapacityReply, error)) (*inventoryrpc.CapacityReply, error) {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = c.cfg.InitialBackoff
	b.MaxInterval = c.cfg.MaxBackoff
	b.MaxElapsedTime = 0
	policy := backoff.WithContext(backoff.WithMaxRetries(b, c.cfg.MaxRetries), ctx)

	var (
		reply   *inventoryrpc.CapacityReply
		attempt int
	)
	err := backoff.Retry(func() error {
		attempt++
		callCtx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
		defer cancel()

		r, err := fn(callCtx)
		if err == nil {
			err = validateReply(r, eventID)
		}
		if err == nil {
			reply = r
			return nil
		}

		mapped := fromStatus(err)
		if !errors.Is(mapped, domain.ErrUpstreamUnavailable) {
			return backoff.Permanent(mapped)
		}
		c.log.Warn().Err(err).
			Str("op", op).
			Int64("event_id", eventID).
			Int("attempt", attempt).
			Msg("capacity call failed")
		return mapped
	}, policy)
	if err != nil {
		if !isDomainError(err) {
			err = fmt.Errorf("%w: %s: %v", domain.ErrUpstreamUnavailable, op, err)
		}
		return nil, err
	}
	return reply, nil
}

func validateReply(r *inventoryrpc.CapacityReply, eventID int64) error {
	if r == nil {
		return fmt.Errorf("%w: empty reply", domain.ErrUpstreamUnavailable)
	}
	s := toSnapshot(r)
	if r.EventID != eventID || r.UnitPriceCents < 0 || !(domain.EventCapacity{Total: s.Total, Available: s.Available}).Consistent() {
		return fmt.Errorf("%w: malformed reply %+v", domain.ErrUpstreamUnavailable, *r)
	}
	return nil
}

func fromStatus(err error) error {
	if isDomainError(err) {
		return err
	}
	st, ok := status.FromError(err)
	if !ok {
		return fmt.Errorf("%w: %v", domain.ErrUpstreamUnavailable, err)
	}
	switch st.Code() {
	case codes.NotFound:
		return fmt.Errorf("%w: %s", domain.ErrEventNotFound, st.Message())
	case codes.FailedPrecondition:
		return fmt.Errorf("%w: %s", domain.ErrInsufficientCapacity, st.Message())
	case codes.OutOfRange:
		return fmt.Errorf("%w: %s", domain.ErrInternalConsistency, st.Message())
	case codes.InvalidArgument:
		return fmt.Errorf("%w: %s", domain.ErrInvalidArgument, st.Message())
	default:
		return fmt.Errorf("%w: %s: %s", domain.ErrUpstreamUnavailable, st.Code(), st.Message())
	}
}

func isDomainError(err error) bool {
	return domain.IsNotFound(err) ||
		errors.Is(err, domain.ErrInsufficientCapacity) ||
		errors.Is(err, domain.ErrInternalConsistency) ||
		errors.Is(err, domain.ErrInvalidArgument) ||
		errors.Is(err, domain.ErrUpstreamUnavailable)
}

func toSnapshot(r *inventoryrpc.CapacityReply) Snapshot {
	return Snapshot{
		EventID:        r.EventID,
		Total:          r.Total,
		Available:      r.Available,
		UnitPriceCents: r.UnitPriceCents,
	}
}
