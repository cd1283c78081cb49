package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	HTTP           HTTPConfig           `yaml:"http"`
	GRPC           GRPCConfig           `yaml:"grpc"`
	Database       DatabaseConfig       `yaml:"database"`
	Redis          RedisConfig          `yaml:"redis"`
	Kafka          KafkaConfig          `yaml:"kafka"`
	Booking        BookingConfig        `yaml:"booking"`
	Inventory      InventoryConfig      `yaml:"inventory"`
	CapacityClient CapacityClientConfig `yaml:"capacity_client"`
	Publisher      PublisherConfig      `yaml:"publisher"`
	Worker         WorkerConfig         `yaml:"worker"`
	Log            LogConfig            `yaml:"log"`
}

type HTTPConfig struct {
	Address          string `yaml:"address"`
	InventoryAddress string `yaml:"inventory_address"`
	SwaggerDir       string `yaml:"swagger_dir"`
	GinMode          string `yaml:"gin_mode"`
}

type GRPCConfig struct {
	Address string `yaml:"address"`
}

type DatabaseConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Name     string `yaml:"name"`
	SSLMode  string `yaml:"ssl_mode"`
}

func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s", d.Host, d.Port, d.User, d.Password, d.Name, d.SSLMode)
}

type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

type KafkaConfig struct {
	Brokers        []string `yaml:"brokers"`
	LifecycleTopic string   `yaml:"lifecycle_topic"`
	GroupID        string   `yaml:"group_id"`
}

type BookingConfig struct {
	// InventoryTarget is the gRPC address of the inventory service.
	InventoryTarget string `yaml:"inventory_target"`
}

type InventoryConfig struct {
	// Storage selects the ledger backend: "postgres" or "memory".
	Storage        string        `yaml:"storage"`
	SnapshotTTL    time.Duration `yaml:"snapshot_cache_ttl"`
	TokenRetention time.Duration `yaml:"token_retention"`
	TokenSweep     time.Duration `yaml:"token_sweep_interval"`
}

type CapacityClientConfig struct {
	Timeout        time.Duration `yaml:"timeout"`
	MaxRetries     uint64        `yaml:"max_retries"`
	InitialBackoff time.Duration `yaml:"initial_backoff"`
	MaxBackoff     time.Duration `yaml:"max_backoff"`
}

type PublisherConfig struct {
	AttemptTimeout time.Duration `yaml:"attempt_timeout"`
	QueueSize      int           `yaml:"queue_size"`
	MaxElapsed     time.Duration `yaml:"max_elapsed"`
}

type WorkerConfig struct {
	RepairInterval time.Duration `yaml:"repair_interval"`
	RepairGrace    time.Duration `yaml:"repair_grace"`
	DedupeTTL      time.Duration `yaml:"dedupe_ttl"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Pretty bool   `yaml:"pretty"`
}

func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	cfg.applyDefaults()

	return &cfg, nil
}

// Path returns the config file location from CONFIG_PATH.
func Path() string {
	if p := os.Getenv("CONFIG_PATH"); p != "" {
		return p
	}
	return "config.yaml"
}

func (c *Config) applyDefaults() {
	if c.HTTP.Address == "" {
		c.HTTP.Address = ":8080"
	}
	if c.HTTP.InventoryAddress == "" {
		c.HTTP.InventoryAddress = ":8081"
	}
	if c.HTTP.GinMode == "" {
		c.HTTP.GinMode = "release"
	}
	if c.GRPC.Address == "" {
		c.GRPC.Address = ":9090"
	}
	if c.Booking.InventoryTarget == "" {
		c.Booking.InventoryTarget = "localhost:9090"
	}
	if c.Kafka.LifecycleTopic == "" {
		c.Kafka.LifecycleTopic = "booking-lifecycle"
	}
	if c.Kafka.GroupID == "" {
		c.Kafka.GroupID = "booking-notifications"
	}
	if c.Inventory.Storage == "" {
		c.Inventory.Storage = "postgres"
	}
	if c.Inventory.SnapshotTTL == 0 {
		c.Inventory.SnapshotTTL = 2 * time.Second
	}
	if c.Inventory.TokenRetention == 0 {
		c.Inventory.TokenRetention = 24 * time.Hour
	}
	if c.Inventory.TokenSweep == 0 {
		c.Inventory.TokenSweep = 10 * time.Minute
	}
	if c.CapacityClient.Timeout == 0 {
		c.CapacityClient.Timeout = 2 * time.Second
	}
	if c.CapacityClient.MaxRetries == 0 {
		c.CapacityClient.MaxRetries = 2
	}
	if c.CapacityClient.InitialBackoff == 0 {
		c.CapacityClient.InitialBackoff = 100 * time.Millisecond
	}
	if c.CapacityClient.MaxBackoff == 0 {
		c.CapacityClient.MaxBackoff = time.Second
	}
	if c.Publisher.AttemptTimeout == 0 {
		c.Publisher.AttemptTimeout = 500 * time.Millisecond
	}
	if c.Publisher.QueueSize == 0 {
		c.Publisher.QueueSize = 1024
	}
	if c.Publisher.MaxElapsed == 0 {
		c.Publisher.MaxElapsed = 5 * time.Minute
	}
	if c.Worker.RepairInterval == 0 {
		c.Worker.RepairInterval = time.Minute
	}
	if c.Worker.RepairGrace == 0 {
		c.Worker.RepairGrace = 30 * time.Second
	}
	if c.Worker.DedupeTTL == 0 {
		c.Worker.DedupeTTL = 24 * time.Hour
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
}
