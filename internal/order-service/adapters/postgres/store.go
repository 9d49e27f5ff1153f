// Package postgres stores customers, products and orders in PostgreSQL
// through a pgx connection pool.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/jcmexdev/ecommerce-orders/internal/order-service/domain"
	"github.com/jcmexdev/ecommerce-orders/internal/order-service/ports"
)

var (
	_ ports.CustomerRepository = (*CustomerRepository)(nil)
	_ ports.ProductRepository  = (*ProductRepository)(nil)
	_ ports.OrderRepository    = (*OrderRepository)(nil)
	_ ports.Transactor         = (*Store)(nil)
)

const (
	CustomerResource = "customer"
	ProductResource  = "product"
	OrderResource    = "order"
)

const schema = `
CREATE TABLE IF NOT EXISTS customers (
    id    TEXT PRIMARY KEY,
    name  TEXT NOT NULL DEFAULT '',
    email TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS products (
    id       TEXT    PRIMARY KEY,
    name     TEXT    NOT NULL DEFAULT '',
    price    NUMERIC NOT NULL,
    quantity INTEGER NOT NULL CHECK (quantity >= 0)
);

CREATE TABLE IF NOT EXISTS orders (
    id          UUID        PRIMARY KEY,
    customer_id TEXT        NOT NULL REFERENCES customers(id),
    created_at  TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS order_products (
    order_id   UUID    NOT NULL REFERENCES orders(id),
    position   INTEGER NOT NULL,
    product_id TEXT    NOT NULL REFERENCES products(id),
    quantity   INTEGER NOT NULL CHECK (quantity > 0),
    price      NUMERIC NOT NULL,
    PRIMARY KEY (order_id, position)
);

CREATE INDEX IF NOT EXISTS idx_orders_customer_id ON orders(customer_id);
`

type txKey struct{}

type txState struct {
	store *Store
	tx    pgx.Tx
}

// querier is the subset shared by *pgxpool.Pool and pgx.Tx.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type Store struct {
	pool *pgxpool.Pool
	now  func() time.Time
}

func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool, now: time.Now}
}

// Connect creates a pool for connString and verifies connectivity.
func Connect(ctx context.Context, connString string) (*pgxpool.Pool, error) {
	pool, err := pgxpool.New(ctx, connString)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return pool, nil
}

// Migrate creates the tables when they do not exist.
func (s *Store) Migrate(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}

func (s *Store) Customers() *CustomerRepository { return &CustomerRepository{store: s} }
func (s *Store) Products() *ProductRepository   { return &ProductRepository{store: s} }
func (s *Store) Orders() *OrderRepository       { return &OrderRepository{store: s} }

// WithinTx runs fn in a transaction carried by the context passed to fn.
// Nested calls join the outer transaction.
func (s *Store) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if s.txFrom(ctx) != nil {
		return fn(ctx)
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}

	if err := fn(context.WithValue(ctx, txKey{}, txState{store: s, tx: tx})); err != nil {
		if rbErr := tx.Rollback(ctx); rbErr != nil && !errors.Is(rbErr, pgx.ErrTxClosed) {
			return errors.Join(err, fmt.Errorf("rollback: %w", rbErr))
		}
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// SeedCustomers upserts customers.
func (s *Store) SeedCustomers(ctx context.Context, customers ...domain.Customer) error {
	query := `
		INSERT INTO customers (id, name, email) VALUES ($1, $2, $3)
		ON CONFLICT (id) DO UPDATE SET name = EXCLUDED.name, email = EXCLUDED.email`

	return s.WithinTx(ctx, func(ctx context.Context) error {
		for _, c := range customers {
			if _, err := s.conn(ctx).Exec(ctx, query, c.ID, c.Name, c.Email); err != nil {
				return fmt.Errorf("seed customer %s: %w", c.ID, err)
			}
		}
		return nil
	})
}

// SeedProducts upserts products, replacing price and quantity.
func (s *Store) SeedProducts(ctx context.Context, products ...domain.Product) error {
	query := `
		INSERT INTO products (id, name, price, quantity) VALUES ($1, $2, $3::numeric, $4)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name, price = EXCLUDED.price, quantity = EXCLUDED.quantity`

	return s.WithinTx(ctx, func(ctx context.Context) error {
		for _, p := range products {
			if p.Quantity < 0 {
				return fmt.Errorf("seed product %s: negative quantity %d", p.ID, p.Quantity)
			}
			if _, err := s.conn(ctx).Exec(ctx, query, p.ID, p.Name, p.Price.String(), p.Quantity); err != nil {
				return fmt.Errorf("seed product %s: %w", p.ID, err)
			}
		}
		return nil
	})
}

func (s *Store) txFrom(ctx context.Context) pgx.Tx {
	state, ok := ctx.Value(txKey{}).(txState)
	if !ok || state.store != s {
		return nil
	}
	return state.tx
}

func (s *Store) conn(ctx context.Context) querier {
	if tx := s.txFrom(ctx); tx != nil {
		return tx
	}
	return s.pool
}
