package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/Domenick1991/rapidreserve/api"
	"github.com/Domenick1991/rapidreserve/config"
	inventoryapi "github.com/Domenick1991/rapidreserve/internal/api/inventory_service_api"
	"github.com/Domenick1991/rapidreserve/internal/inventoryrpc"
	"github.com/Domenick1991/rapidreserve/internal/logging"
	"github.com/Domenick1991/rapidreserve/internal/service/booking"
	"github.com/Domenick1991/rapidreserve/internal/service/inventory"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	httpSwagger "github.com/swaggo/http-swagger"
	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"
)

const shutdownTimeout = 5 * time.Second

// RunBookingAPI serves the booking HTTP API and blocks until ctx is canceled
// or the server fails.
func RunBookingAPI(ctx context.Context, cfg *config.Config, log zerolog.Logger, bookings booking.BookingUseCase, availability api.AvailabilityReader) error {
	srv := &http.Server{
		Addr:              cfg.HTTP.Address,
		Handler:           NewBookingRouter(cfg.HTTP, log, bookings, availability),
		ReadHeaderTimeout: 5 * time.Second,
	}
	log.Info().Str("addr", srv.Addr).Msg("booking http listening")
	return serveHTTP(ctx, srv)
}

func NewBookingRouter(cfg config.HTTPConfig, log zerolog.Logger, bookings booking.BookingUseCase, availability api.AvailabilityReader) *gin.Engine {
	gin.SetMode(cfg.GinMode)
	router := gin.New()
	router.Use(logging.RequestLogger(log), logging.Recovery(log))

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	v1 := router.Group("/api/v1")
	api.NewBookingHandler(bookings).Register(v1)
	api.NewEventHandler(availability).Register(v1)

	if cfg.SwaggerDir != "" {
		router.Static("/swagger", cfg.SwaggerDir)
		router.GET("/docs/*any", gin.WrapH(httpSwagger.Handler(
			httpSwagger.URL("/swagger/bookings.swagger.json"),
		)))
	}
	return router
}

// RunInventory serves the ledger over gRPC and its HTTP gateway. It blocks
// until ctx is canceled or either server fails.
func RunInventory(ctx context.Context, cfg *config.Config, log zerolog.Logger, ledger inventory.LedgerUseCase) error {
	grpcSrv := grpc.NewServer(grpc.ChainUnaryInterceptor(logging.UnaryServerInterceptor(log)))
	inventoryrpc.RegisterLedgerServer(grpcSrv, inventoryapi.NewServer(ledger))

	mux, err := inventoryapi.NewGateway(ledger)
	if err != nil {
		return fmt.Errorf("build inventory gateway: %w", err)
	}
	httpSrv := &http.Server{
		Addr:              cfg.HTTP.InventoryAddress,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	lis, err := net.Listen("tcp", cfg.GRPC.Address)
	if err != nil {
		return fmt.Errorf("listen gRPC %s: %w", cfg.GRPC.Address, err)
	}
	log.Info().Str("grpc", cfg.GRPC.Address).Str("http", httpSrv.Addr).Msg("inventory listening")

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return serveGRPC(gctx, grpcSrv, lis)
	})
	g.Go(func() error {
		return serveHTTP(gctx, httpSrv)
	})
	return g.Wait()
}

func serveHTTP(ctx context.Context, srv *http.Server) error {
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server %s: %w", srv.Addr, err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown http server: %w", err)
		}
		return nil
	})
	return g.Wait()
}

func serveGRPC(ctx context.Context, srv *grpc.Server, lis net.Listener) error {
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := srv.Serve(lis); err != nil {
			return fmt.Errorf("grpc server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		srv.GracefulStop()
		return nil
	})
	return g.Wait()
}
