package testutil

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/Domenick1991/rapidreserve/migrations"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

// NewTestPool returns a pool on a migrated database. TEST_DATABASE_URL points
// at an existing server; otherwise a postgres container is started. The test
// is skipped in -short mode or when no container runtime is available.
func NewTestPool(t *testing.T, sets ...migrations.Set) *pgxpool.Pool {
	t.Helper()
	if testing.Short() {
		t.Skip("postgres tests skipped in short mode")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		testcontainers.SkipIfProviderIsNotHealthy(t)
		var err error
		dsn, err = startPostgres(ctx, t)
		if err != nil {
			t.Skipf("postgres container unavailable: %v", err)
		}
	}

	pool, err := pgxpool.New(ctx, dsn)
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	require.NoError(t, pool.Ping(ctx))
	for _, set := range sets {
		require.NoError(t, migrations.Apply(ctx, pool, set))
	}
	return pool
}

func startPostgres(ctx context.Context, t *testing.T) (string, error) {
	req := testcontainers.ContainerRequest{
		Image:        "postgres:16-alpine",
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_USER":     "reserve",
			"POSTGRES_PASSWORD": "reserve",
			"POSTGRES_DB":       "reserve",
		},
		WaitingFor: wait.ForLog("database system is ready to accept connections").
			WithOccurrence(2).
			WithStartupTimeout(time.Minute),
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		return "", err
	}
	t.Cleanup(func() {
		_ = container.Terminate(context.Background())
	})

	host, err := container.Host(ctx)
	if err != nil {
		return "", err
	}
	port, err := container.MappedPort(ctx, "5432/tcp")
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("postgres://reserve:reserve@%s:%s/reserve?sslmode=disable", host, port.Port()), nil
}
