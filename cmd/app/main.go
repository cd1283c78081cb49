package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/Domenick1991/rapidreserve/config"
	"github.com/Domenick1991/rapidreserve/internal/bootstrap"
	"github.com/Domenick1991/rapidreserve/internal/capacity"
	"github.com/Domenick1991/rapidreserve/internal/kafka"
	"github.com/Domenick1991/rapidreserve/internal/logging"
	"github.com/Domenick1991/rapidreserve/internal/publisher"
	"github.com/Domenick1991/rapidreserve/internal/repository"
	"github.com/Domenick1991/rapidreserve/internal/service/booking"
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
	log := logging.New(cfg.Log, "booking")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Fatal().Err(err).Msg("booking service stopped")
	}
	log.Info().Msg("booking service stopped")
}

func run(ctx context.Context, cfg *config.Config, log zerolog.Logger) error {
	pool, err := pgxpool.New(ctx, cfg.Database.DSN())
	if err != nil {
		return err
	}
	defer pool.Close()
	if err := migrations.Apply(ctx, pool, migrations.Booking); err != nil {
		return err
	}

	capacityClient, conn, err := capacity.Dial(cfg.Booking.InventoryTarget, cfg.CapacityClient, logging.Component(log, "capacity_client"))
	if err != nil {
		return err
	}
	defer conn.Close()

	producer := kafka.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.LifecycleTopic)
	defer producer.Close()
	if err := producer.CheckConnection(ctx); err != nil {
		log.Warn().Err(err).Msg("kafka not reachable at startup, lifecycle events will be retried")
	}
	events := publisher.New(producer, cfg.Publisher, logging.Component(log, "publisher"))

	bookingService := booking.NewBookingService(
		repository.NewBookingRepository(pool),
		repository.NewCustomerRepository(pool),
		capacityClient,
		events,
		booking.WithLogger(logging.Component(log, "booking")),
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return events.Run(gctx)
	})
	g.Go(func() error {
		return bootstrap.RunBookingAPI(gctx, cfg, log, bookingService, capacityClient)
	})
	return g.Wait()
}
