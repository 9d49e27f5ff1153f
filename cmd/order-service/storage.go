package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/jcmexdev/ecommerce-orders/internal/order-service/adapters/memory"
	"github.com/jcmexdev/ecommerce-orders/internal/order-service/adapters/postgres"
	"github.com/jcmexdev/ecommerce-orders/internal/order-service/adapters/sqlite"
	"github.com/jcmexdev/ecommerce-orders/internal/order-service/domain"
	"github.com/jcmexdev/ecommerce-orders/internal/order-service/ports"
	"github.com/jcmexdev/ecommerce-orders/internal/pkg/config"
)

type seeder interface {
	SeedCustomers(ctx context.Context, customers ...domain.Customer) error
	SeedProducts(ctx context.Context, products ...domain.Product) error
}

// storage bundles the repositories of one backend.
type storage struct {
	customers ports.CustomerRepository
	products  ports.ProductRepository
	orders    ports.OrderRepository
	tx        ports.Transactor
	seeder    seeder
	close     func()
}

func openStorage(ctx context.Context, cfg config.Config) (*storage, error) {
	switch cfg.Storage {
	case config.StorageSQLite:
		if err := ensureDir(cfg.SQLitePath); err != nil {
			return nil, err
		}
		store, err := sqlite.Open(cfg.SQLitePath)
		if err != nil {
			return nil, err
		}
		slog.Info("using sqlite storage", "path", cfg.SQLitePath)
		return &storage{
			customers: store.Customers(),
			products:  store.Products(),
			orders:    store.Orders(),
			tx:        store,
			seeder:    store,
			close: func() {
				if err := store.Close(); err != nil {
					slog.Error("failed to close sqlite storage", "error", err)
				}
			},
		}, nil

	case config.StoragePostgres:
		pool, err := postgres.Connect(ctx, cfg.PostgresDSN)
		if err != nil {
			return nil, fmt.Errorf("postgres: %w", err)
		}
		store := postgres.NewStore(pool)
		if err := store.Migrate(ctx); err != nil {
			pool.Close()
			return nil, fmt.Errorf("postgres: %w", err)
		}
		slog.Info("using postgres storage")
		return &storage{
			customers: store.Customers(),
			products:  store.Products(),
			orders:    store.Orders(),
			tx:        store,
			seeder:    store,
			close:     pool.Close,
		}, nil

	default:
		store := memory.NewStore()
		slog.Info("using in-memory storage")
		return &storage{
			customers: store.Customers(),
			products:  store.Products(),
			orders:    store.Orders(),
			tx:        store,
			seeder:    store,
			close:     func() {},
		}, nil
	}
}

// ensureDir creates the parent directory of a database file.
func ensureDir(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create directory for %q: %w", path, err)
	}
	return nil
}
