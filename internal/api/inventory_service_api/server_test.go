package inventory_service_api

import (
	"context"
	"net"
	"testing"

	"github.com/Domenick1991/rapidreserve/internal/inventoryrpc"
	"github.com/Domenick1991/rapidreserve/internal/repository"
	"github.com/Domenick1991/rapidreserve/internal/service/inventory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"
)

func newLedgerClient(t *testing.T) (inventoryrpc.LedgerClient, *inventory.InventoryService) {
	t.Helper()
	svc := inventory.NewInventoryService(repository.NewMemCapacityRepository())

	lis := bufconn.Listen(1 << 20)
	srv := grpc.NewServer()
	inventoryrpc.RegisterLedgerServer(srv, NewServer(svc))
	go func() { _ = srv.Serve(lis) }()
	t.Cleanup(srv.Stop)

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	return inventoryrpc.NewLedgerClient(conn), svc
}

func TestServer_ReserveRelease(t *testing.T) {
	ctx := context.Background()
	client, svc := newLedgerClient(t)
	_, err := svc.RegisterEvent(ctx, 1, 10, 1999)
	require.NoError(t, err)

	reply, err := client.Reserve(ctx, &inventoryrpc.ReserveRequest{EventID: 1, Quantity: 6, Token: "b-1"})
	require.NoError(t, err)
	assert.Equal(t, 4, reply.Available)
	assert.Equal(t, 10, reply.Total)
	assert.Equal(t, int64(1999), reply.UnitPriceCents)

	reply, err = client.Release(ctx, &inventoryrpc.ReleaseRequest{EventID: 1, Quantity: 6, Token: "b-1:cancel"})
	require.NoError(t, err)
	assert.Equal(t, 10, reply.Available)

	reply, err = client.Snapshot(ctx, &inventoryrpc.SnapshotRequest{EventID: 1})
	require.NoError(t, err)
	assert.Equal(t, 10, reply.Available)
}

func TestServer_StatusCodes(t *testing.T) {
	ctx := context.Background()
	client, svc := newLedgerClient(t)
	_, err := svc.RegisterEvent(ctx, 1, 2, 100)
	require.NoError(t, err)

	tests := []struct {
		name string
		call func() error
		want codes.Code
	}{
		{
			name: "insufficient",
			call: func() error {
				_, err := client.Reserve(ctx, &inventoryrpc.ReserveRequest{EventID: 1, Quantity: 3, Token: "x"})
				return err
			},
			want: codes.FailedPrecondition,
		},
		{
			name: "unknown event",
			call: func() error {
				_, err := client.Reserve(ctx, &inventoryrpc.ReserveRequest{EventID: 99, Quantity: 1, Token: "y"})
				return err
			},
			want: codes.NotFound,
		},
		{
			name: "release overflow",
			call: func() error {
				_, err := client.Release(ctx, &inventoryrpc.ReleaseRequest{EventID: 1, Quantity: 1, Token: "z"})
				return err
			},
			want: codes.OutOfRange,
		},
		{
			name: "zero quantity",
			call: func() error {
				_, err := client.Reserve(ctx, &inventoryrpc.ReserveRequest{EventID: 1, Quantity: 0})
				return err
			},
			want: codes.InvalidArgument,
		},
		{
			name: "snapshot unknown",
			call: func() error {
				_, err := client.Snapshot(ctx, &inventoryrpc.SnapshotRequest{EventID: 99})
				return err
			},
			want: codes.NotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.call()
			require.Error(t, err)
			assert.Equal(t, tt.want, status.Code(err))
		})
	}
}
