package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	data := `
http:
  address: ":8000"
database:
  host: db
  port: 5432
  user: app
  password: secret
  name: bookings
  ssl_mode: disable
kafka:
  brokers: ["kafka:9092"]
capacity_client:
  timeout: 750ms
  max_retries: 4
inventory:
  storage: memory
`
	require.NoError(t, os.WriteFile(path, []byte(data), 0o600))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, ":8000", cfg.HTTP.Address)
	assert.Equal(t, "host=db port=5432 user=app password=secret dbname=bookings sslmode=disable", cfg.Database.DSN())
	assert.Equal(t, []string{"kafka:9092"}, cfg.Kafka.Brokers)
	assert.Equal(t, 750*time.Millisecond, cfg.CapacityClient.Timeout)
	assert.Equal(t, uint64(4), cfg.CapacityClient.MaxRetries)
	assert.Equal(t, "memory", cfg.Inventory.Storage)

	// defaults
	assert.Equal(t, "booking-lifecycle", cfg.Kafka.LifecycleTopic)
	assert.Equal(t, ":9090", cfg.GRPC.Address)
	assert.Equal(t, 500*time.Millisecond, cfg.Publisher.AttemptTimeout)
	assert.Equal(t, "info", cfg.Log.Level)
}

func TestLoadConfig_MissingFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestPath(t *testing.T) {
	t.Setenv("CONFIG_PATH", "")
	assert.Equal(t, "config.yaml", Path())

	t.Setenv("CONFIG_PATH", "/etc/rapidreserve.yaml")
	assert.Equal(t, "/etc/rapidreserve.yaml", Path())
}
