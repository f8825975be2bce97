package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/RodolfoDevApp/eventshop-stock-go/internal/api"
	"github.com/RodolfoDevApp/eventshop-stock-go/internal/application"
	"github.com/RodolfoDevApp/eventshop-stock-go/internal/config"
	"github.com/RodolfoDevApp/eventshop-stock-go/internal/domain"
	"github.com/RodolfoDevApp/eventshop-stock-go/internal/infrastructure/db"
	"github.com/RodolfoDevApp/eventshop-stock-go/internal/infrastructure/memory"
	"github.com/RodolfoDevApp/eventshop-stock-go/internal/infrastructure/messaging"
	outboxinfra "github.com/RodolfoDevApp/eventshop-stock-go/internal/infrastructure/outbox"
	"github.com/RodolfoDevApp/eventshop-stock-go/internal/logging"
	"github.com/RodolfoDevApp/eventshop-stock-go/internal/telemetry"
)

type stores struct {
	stock        domain.StockRepository
	reservations domain.ReservationRepository
	orders       domain.OrderRepository
	payments     domain.PaymentRepository
	catalog      domain.ProductCatalog
	outbox       domain.OutboxRepository
	close        func() error
}

func openStores(ctx context.Context, cfg config.Config) (*stores, error) {
	if cfg.StoreDriver == config.StoreMemory {
		log.Printf("Using in-memory store, nothing survives a restart")
		return &stores{
			stock:        memory.NewStockRepository(),
			reservations: memory.NewReservationRepository(),
			orders:       memory.NewOrderRepository(),
			payments:     memory.NewPaymentRepository(),
			catalog:      memory.NewProductCatalog(),
			outbox:       memory.NewOutboxRepository(),
			close:        func() error { return nil },
		}, nil
	}

	dbConn, err := sql.Open("pgx", cfg.PgDsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := dbConn.PingContext(ctx); err != nil {
		dbConn.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	if err := db.EnsureSchema(ctx, dbConn); err != nil {
		dbConn.Close()
		return nil, fmt.Errorf("ensure schema: %w", err)
	}
	return &stores{
		stock:        db.NewPgStockRepository(dbConn),
		reservations: db.NewPgReservationRepository(dbConn),
		orders:       db.NewPgOrderRepository(dbConn),
		payments:     db.NewPgPaymentRepository(dbConn),
		catalog:      db.NewPgProductCatalog(dbConn),
		outbox:       db.NewPgOutboxRepository(dbConn),
		close:        dbConn.Close,
	}, nil
}

func main() {
	cfg := config.Load()
	logger, flush, err := logging.New(cfg)
	if err != nil {
		log.Fatalf("failed to build logger: %v", err)
	}
	defer flush()
	logger.Info("starting stock service",
		zap.String("port", cfg.HttpPort),
		zap.String("store", string(cfg.StoreDriver)))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTelemetry, err := telemetry.Setup(ctx, cfg)
	if err != nil {
		logger.Fatal("failed to set up telemetry", zap.Error(err))
	}

	st, err := openStores(ctx, cfg)
	if err != nil {
		logger.Fatal("failed to open store", zap.Error(err))
	}
	defer st.close()

	// Application services
	outboxWriter := application.NewOutboxWriter(st.outbox)
	ledger := application.NewStockLedger(st.stock, outboxWriter, cfg)
	reservations := application.NewReservationService(st.reservations, ledger, cfg.OperationTimeout)
	machine := application.NewOrderStateMachine(st.orders, reservations, ledger, outboxWriter, cfg.OperationTimeout)
	placement := application.NewOrderPlacement(st.orders, reservations, outboxWriter, cfg.OperationTimeout)
	payments := application.NewPaymentCoordinator(st.payments, st.orders, machine, outboxWriter, cfg.OperationTimeout)
	query := application.NewInventoryQuery(st.stock, st.catalog, ledger, reservations, cfg.OperationTimeout, cfg.LowStockDefaultLimit)
	sweeper := application.NewReservationSweeper(
		st.reservations,
		reservations,
		cfg.CartExpiry,
		cfg.SweepBatchSize,
		cfg.OperationTimeout,
	)

	// Event buses
	var publisher outboxinfra.Publisher = messaging.LogPublisher{}
	if cfg.StoreDriver == config.StorePostgres {
		buses := messaging.NewBuses(cfg.RabbitUri, cfg.ServiceName)
		publisher = buses.Producer
		if err := messaging.RegisterSubscriptions(ctx, buses, messaging.Handlers{
			OrderPlaced:    application.NewOrderPlacedHandler(placement),
			OrderCancelled: application.NewOrderCancelledHandler(machine),
			PaymentStatus:  application.NewPaymentStatusHandler(payments),
			ProductCreated: application.NewProductCreatedHandler(ledger, st.catalog, cfg.OperationTimeout),
		}); err != nil {
			logger.Fatal("failed to start subscriptions", zap.Error(err))
		}
	}

	dispatcher := outboxinfra.NewDispatcher(st.outbox, publisher, cfg.OutboxMaxRetry, cfg.OutboxBatchSize)

	// HTTP API
	apiServer := api.NewServer(cfg, api.Services{
		Ledger:       ledger,
		Reservations: reservations,
		Query:        query,
		Orders:       machine,
		Placement:    placement,
		Payments:     payments,
	})
	httpSrv := &http.Server{
		Addr:              ":" + cfg.HttpPort,
		Handler:           apiServer.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return outboxinfra.NewScheduler(dispatcher, cfg.OutboxIntervalSec).Run(gctx)
	})
	g.Go(func() error {
		return outboxinfra.NewScheduler(sweeper, cfg.SweepIntervalSec).Run(gctx)
	})
	g.Go(func() error {
		logger.Info("http listening", zap.String("addr", httpSrv.Addr))
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down stock service")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpSrv.Shutdown(shutdownCtx); err != nil {
			logger.Warn("http shutdown", zap.Error(err))
		}
		if err := shutdownTelemetry(shutdownCtx); err != nil {
			logger.Warn("telemetry shutdown", zap.Error(err))
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		logger.Error("stock service stopped", zap.Error(err))
	}
}
