package main

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	customercache "github.com/jcmexdev/ecommerce-orders/internal/order-service/adapters/cache"
	ordergrpc "github.com/jcmexdev/ecommerce-orders/internal/order-service/adapters/grpc"
	"github.com/jcmexdev/ecommerce-orders/internal/order-service/adapters/httpx"
	"github.com/jcmexdev/ecommerce-orders/internal/order-service/app"
	"github.com/jcmexdev/ecommerce-orders/internal/order-service/ports"
	"github.com/jcmexdev/ecommerce-orders/internal/orderlog"
	orderlogsqlite "github.com/jcmexdev/ecommerce-orders/internal/orderlog/sqlite"
	"github.com/jcmexdev/ecommerce-orders/internal/pkg/cache"
	"github.com/jcmexdev/ecommerce-orders/internal/pkg/config"
	"github.com/jcmexdev/ecommerce-orders/internal/pkg/telemetry"
)

const shutdownTimeout = 10 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}
	telemetry.InitLogger(telemetry.ParseLevel(cfg.LogLevel))

	if err := run(cfg); err != nil {
		slog.Error("order service stopped", "error", err)
		os.Exit(1)
	}
}

func run(cfg config.Config) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.TracingEnabled {
		shutdown, err := telemetry.SetupTracer(ctx, telemetry.TracerConfig{
			ServiceName: cfg.ServiceName,
			Endpoint:    cfg.OTLPEndpoint,
			Environment: cfg.Environment,
		})
		if err != nil {
			return err
		}
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := shutdown(shutdownCtx); err != nil {
				slog.Error("tracer shutdown error", "error", err)
			}
		}()
	}

	store, err := openStorage(ctx, cfg)
	if err != nil {
		return err
	}
	defer store.close()

	var (
		customers   ports.CustomerRepository = store.customers
		invalidator customerInvalidator
	)
	if cfg.RedisAddr != "" {
		redisCache := cache.NewRedisCache(cfg.RedisAddr, cfg.ServiceName)
		defer redisCache.Close()
		if err := redisCache.Ping(ctx); err != nil {
			slog.Warn("redis unreachable, customer lookups will bypass the cache", "addr", cfg.RedisAddr, "error", err)
		}
		cached := customercache.NewCustomerRepository(customers, redisCache, cfg.CustomerCacheTTL)
		customers, invalidator = cached, cached
	}

	if cfg.SeedDemoData {
		if err := seedDemoData(ctx, store.seeder, invalidator); err != nil {
			return err
		}
		slog.Info("demo data seeded")
	}

	var service app.Service = app.NewOrderService(
		customers,
		store.products,
		store.orders,
		store.tx,
		app.WithStockConflictRetries(cfg.StockConflictRetries),
	)

	var handlerOpts []httpx.HandlerOption
	if cfg.AuditDBPath != "" {
		if err := ensureDir(cfg.AuditDBPath); err != nil {
			return err
		}
		auditRepo, err := orderlogsqlite.Open(cfg.AuditDBPath)
		if err != nil {
			return err
		}
		defer auditRepo.Close()
		service = orderlog.NewRecorder(service, auditRepo)
		handlerOpts = append(handlerOpts, httpx.WithOrderLog(auditRepo))
	}

	return serve(ctx, cfg, service, handlerOpts...)
}

// serve runs the HTTP and gRPC servers until ctx is cancelled or either of
// them fails, then stops both.
func serve(ctx context.Context, cfg config.Config, service app.Service, handlerOpts ...httpx.HandlerOption) error {
	httpServer := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           httpx.NewRouter(httpx.NewHandler(service, handlerOpts...)),
		ReadHeaderTimeout: 5 * time.Second,
	}

	grpcAddr := ":" + cfg.GRPCPort
	lis, err := net.Listen("tcp", grpcAddr)
	if err != nil {
		return err
	}
	grpcServer, healthServer := ordergrpc.NewServer(service)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		slog.Info("order service HTTP running", "addr", httpServer.Addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		slog.Info("order service gRPC running", "addr", grpcAddr)
		return grpcServer.Serve(lis)
	})

	g.Go(func() error {
		<-gctx.Done()
		slog.Info("shutting down")

		healthServer.Shutdown()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		err := httpServer.Shutdown(shutdownCtx)
		grpcServer.GracefulStop()
		return err
	})

	return g.Wait()
}
