package inventoryrpc

import (
	"context"

	"google.golang.org/grpc"
)

const (
	ServiceName = "inventory.v1.CapacityLedger"

	ReserveMethod  = "/" + ServiceName + "/Reserve"
	ReleaseMethod  = "/" + ServiceName + "/Release"
	SnapshotMethod = "/" + ServiceName + "/Snapshot"
)

// LedgerClient is the client API for the CapacityLedger service.
type LedgerClient interface {
	Reserve(ctx context.Context, in *ReserveRequest, opts ...grpc.CallOption) (*CapacityReply, error)
	Release(ctx context.Context, in *ReleaseRequest, opts ...grpc.CallOption) (*CapacityReply, error)
	Snapshot(ctx context.Context, in *SnapshotRequest, opts ...grpc.CallOption) (*CapacityReply, error)
}

type ledgerClient struct {
	cc grpc.ClientConnInterface
}

func NewLedgerClient(cc grpc.ClientConnInterface) LedgerClient {
	return &ledgerClient{cc: cc}
}

func (c *ledgerClient) Reserve(ctx context.Context, in *ReserveRequest, opts ...grpc.CallOption) (*CapacityReply, error) {
	out := new(CapacityReply)
	if err := c.cc.Invoke(ctx, ReserveMethod, in, out, withCodec(opts)...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *ledgerClient) Release(ctx context.Context, in *ReleaseRequest, opts ...grpc.CallOption) (*CapacityReply, error) {
	out := new(CapacityReply)
	if err := c.cc.Invoke(ctx, ReleaseMethod, in, out, withCodec(opts)...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *ledgerClient) Snapshot(ctx context.Context, in *SnapshotRequest, opts ...grpc.CallOption) (*CapacityReply, error) {
	out := new(CapacityReply)
	if err := c.cc.Invoke(ctx, SnapshotMethod, in, out, withCodec(opts)...); err != nil {
		return nil, err
	}
	return out, nil
}

func withCodec(opts []grpc.CallOption) []grpc.CallOption {
	return append([]grpc.CallOption{grpc.CallContentSubtype(CodecName)}, opts...)
}

// LedgerServer is the server API for the CapacityLedger service.
type LedgerServer interface {
	Reserve(ctx context.Context, in *ReserveRequest) (*CapacityReply, error)
	Release(ctx context.Context, in *ReleaseRequest) (*CapacityReply, error)
	Snapshot(ctx context.Context, in *SnapshotRequest) (*CapacityReply, error)
}

func RegisterLedgerServer(s grpc.ServiceRegistrar, srv LedgerServer) {
	s.RegisterService(&LedgerServiceDesc, srv)
}

func reserveHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(ReserveRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(LedgerServer).Reserve(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: ReserveMethod}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(LedgerServer).Reserve(ctx, req.(*ReserveRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func releaseHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(ReleaseRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(LedgerServer).Release(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: ReleaseMethod}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(LedgerServer).Release(ctx, req.(*ReleaseRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func snapshotHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(SnapshotRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(LedgerServer).Snapshot(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: SnapshotMethod}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(LedgerServer).Snapshot(ctx, req.(*SnapshotRequest))
	}
	return interceptor(ctx, in, info, handler)
}

var LedgerServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*LedgerServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Reserve", Handler: reserveHandler},
		{MethodName: "Release", Handler: releaseHandler},
		{MethodName: "Snapshot", Handler: snapshotHandler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "inventory/v1/ledger",
}
