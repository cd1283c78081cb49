package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/Domenick1991/rapidreserve/config"
	"github.com/Domenick1991/rapidreserve/internal/bootstrap"
	"github.com/Domenick1991/rapidreserve/internal/cache"
	"github.com/Domenick1991/rapidreserve/internal/logging"
	"github.com/Domenick1991/rapidreserve/internal/repository"
	"github.com/Domenick1991/rapidreserve/internal/service/inventory"
	"github.com/Domenick1991/rapidreserve/migrations"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

func main() {
	cfg, err := config.LoadConfig(config.Path())
	if err != nil {
		boot := zerolog.New(os.Stderr)
		boot.Fatal().Err(err).Msg("load config")
	}
	log := logging.New(cfg.Log, "inventory")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Fatal().Err(err).Msg("inventory service stopped")
	}
	log.Info().Msg("inventory service stopped")
}

func run(ctx context.Context, cfg *config.Config, log zerolog.Logger) error {
	ledger, closeLedger, err := openLedger(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeLedger()

	opts := []inventory.Option{
		inventory.WithLogger(logging.Component(log, "ledger")),
		inventory.WithTokenRetention(cfg.Inventory.TokenRetention),
	}
	if cfg.Redis.Addr != "" {
		snapshots := cache.NewRedisCache(cfg.Redis, cfg.Inventory.SnapshotTTL, cfg.Worker.DedupeTTL)
		defer snapshots.Close()
		if err := snapshots.Ping(ctx); err != nil {
			log.Warn().Err(err).Msg("redis not reachable, snapshot reads go to the ledger")
		}
		opts = append(opts, inventory.WithSnapshotCache(snapshots))
	}
	svc := inventory.NewInventoryService(ledger, opts...)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return svc.RunTokenSweep(gctx, cfg.Inventory.TokenSweep)
	})
	g.Go(func() error {
		return bootstrap.RunInventory(gctx, cfg, log, svc)
	})
	return g.Wait()
}

func openLedger(ctx context.Context, cfg *config.Config) (repository.CapacityRepository, func(), error) {
	switch cfg.Inventory.Storage {
	case "memory":
		return repository.NewMemCapacityRepository(), func() {}, nil
	case "postgres":
		pool, err := pgxpool.New(ctx, cfg.Database.DSN())
		if err != nil {
			return nil, nil, err
		}
		if err := migrations.Apply(ctx, pool, migrations.Inventory); err != nil {
			pool.Close()
			return nil, nil, err
		}
		return repository.NewCapacityRepository(pool), pool.Close, nil
	default:
		return nil, nil, fmt.Errorf("unknown inventory storage %q", cfg.Inventory.Storage)
	}
}
