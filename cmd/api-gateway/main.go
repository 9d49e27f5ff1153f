// Command api-gateway serves the orders HTTP API and forwards every call to
// a remote order service over gRPC.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	ordergrpc "github.com/jcmexdev/ecommerce-orders/internal/order-service/adapters/grpc"
	"github.com/jcmexdev/ecommerce-orders/internal/order-service/adapters/httpx"
	"github.com/jcmexdev/ecommerce-orders/internal/pkg/config"
	"github.com/jcmexdev/ecommerce-orders/internal/pkg/interceptors"
	"github.com/jcmexdev/ecommerce-orders/internal/pkg/telemetry"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}
	telemetry.InitLogger(telemetry.ParseLevel(cfg.LogLevel))

	if err := run(cfg); err != nil {
		slog.Error("api gateway stopped", "error", err)
		os.Exit(1)
	}
}

func run(cfg config.Config) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.TracingEnabled {
		shutdown, err := telemetry.SetupTracer(ctx, telemetry.TracerConfig{
			ServiceName: "api-gateway",
			Endpoint:    cfg.OTLPEndpoint,
			Environment: cfg.Environment,
		})
		if err != nil {
			return err
		}
		defer func() {
			if err := shutdown(context.Background()); err != nil {
				slog.Error("tracer shutdown error", "error", err)
			}
		}()
	}

	conn, err := grpc.NewClient(cfg.OrderServiceAddr,
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithStatsHandler(otelgrpc.NewClientHandler()),
		grpc.WithUnaryInterceptor(interceptors.UnaryClientInterceptor()),
	)
	if err != nil {
		return err
	}
	defer conn.Close()

	server := &http.Server{
		Addr:              ":" + cfg.GatewayHTTPPort,
		Handler:           httpx.NewRouter(httpx.NewHandler(ordergrpc.NewClient(conn))),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("api gateway running", "addr", server.Addr, "order_service", cfg.OrderServiceAddr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}
