package inventory_service_api

import (
	"context"
	"errors"

	"github.com/Domenick1991/rapidreserve/internal/domain"
	"github.com/Domenick1991/rapidreserve/internal/inventoryrpc"
	"github.com/Domenick1991/rapidreserve/internal/service/inventory"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// Server implements the CapacityLedger gRPC interface.
type Server struct {
	ledger inventory.LedgerUseCase
}

func NewServer(ledger inventory.LedgerUseCase) *Server {
	return &Server{ledger: ledger}
}

func (s *Server) Reserve(ctx context.Context, req *inventoryrpc.ReserveRequest) (*inventoryrpc.CapacityReply, error) {
	c, err := s.ledger.Reserve(ctx, req.EventID, req.Quantity, req.Token)
	if err != nil {
		return nil, toStatus(err)
	}
	return toReply(c), nil
}

func (s *Server) Release(ctx context.Context, req *inventoryrpc.ReleaseRequest) (*inventoryrpc.CapacityReply, error) {
	c, err := s.ledger.Release(ctx, req.EventID, req.Quantity, req.Token)
	if err != nil {
		return nil, toStatus(err)
	}
	return toReply(c), nil
}

func (s *Server) Snapshot(ctx context.Context, req *inventoryrpc.SnapshotRequest) (*inventoryrpc.CapacityReply, error) {
	c, err := s.ledger.Snapshot(ctx, req.EventID)
	if err != nil {
		return nil, toStatus(err)
	}
	return toReply(c), nil
}

func toReply(c domain.EventCapacity) *inventoryrpc.CapacityReply {
	return &inventoryrpc.CapacityReply{
		EventID:        c.EventID,
		Total:          c.Total,
		Available:      c.Available,
		UnitPriceCents: c.UnitPriceCents,
	}
}

// statusCode maps ledger outcomes onto gRPC codes. The capacity client relies
// on FailedPrecondition meaning "not enough seats" and OutOfRange meaning an
// invariant violation.
func statusCode(err error) codes.Code {
	switch {
	case errors.Is(err, domain.ErrEventNotFound):
		return codes.NotFound
	case errors.Is(err, domain.ErrInsufficientCapacity):
		return codes.FailedPrecondition
	case errors.Is(err, domain.ErrInternalConsistency):
		return codes.OutOfRange
	case errors.Is(err, domain.ErrInvalidArgument):
		return codes.InvalidArgument
	case errors.Is(err, domain.ErrEventExists):
		return codes.AlreadyExists
	case errors.Is(err, context.DeadlineExceeded):
		return codes.DeadlineExceeded
	case errors.Is(err, context.Canceled):
		return codes.Canceled
	default:
		return codes.Internal
	}
}

func toStatus(err error) error {
	return status.Error(statusCode(err), err.Error())
}

var _ inventoryrpc.LedgerServer = (*Server)(nil)
