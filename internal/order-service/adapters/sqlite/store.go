// Package sqlite stores customers, products and orders in a single SQLite
// database file.
//
// The pool is limited to one connection, so a transaction owns the database
// for its whole duration and every query made with its context must go
// through it. Repositories resolve the transaction from the context for that
// reason.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jcmexdev/ecommerce-orders/internal/order-service/domain"
	"github.com/jcmexdev/ecommerce-orders/internal/order-service/ports"

	// Pure-Go driver, registered as "sqlite".
	_ "modernc.org/sqlite"
)

var (
	_ ports.CustomerRepository = (*CustomerRepository)(nil)
	_ ports.ProductRepository  = (*ProductRepository)(nil)
	_ ports.OrderRepository    = (*OrderRepository)(nil)
	_ ports.Transactor         = (*Store)(nil)
)

const schema = `
CREATE TABLE IF NOT EXISTS customers (
    id      TEXT PRIMARY KEY,
    name    TEXT NOT NULL DEFAULT '',
    email   TEXT NOT NULL DEFAULT ''
);

-- price is a decimal string; SQLite REAL would round it.
CREATE TABLE IF NOT EXISTS products (
    id       TEXT    PRIMARY KEY,
    name     TEXT    NOT NULL DEFAULT '',
    price    TEXT    NOT NULL,
    quantity INTEGER NOT NULL CHECK (quantity >= 0)
);

CREATE TABLE IF NOT EXISTS orders (
    id          TEXT PRIMARY KEY,
    customer_id TEXT NOT NULL REFERENCES customers(id),
    created_at  TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS order_products (
    order_id   TEXT    NOT NULL REFERENCES orders(id),
    position   INTEGER NOT NULL,
    product_id TEXT    NOT NULL REFERENCES products(id),
    quantity   INTEGER NOT NULL CHECK (quantity > 0),
    price      TEXT    NOT NULL,
    PRIMARY KEY (order_id, position)
);

CREATE INDEX IF NOT EXISTS idx_orders_customer_id ON orders(customer_id);
`

type txKey struct{}

type txState struct {
	store *Store
	tx    *sql.Tx
}

// querier is the subset shared by *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type Store struct {
	db  *sql.DB
	now func() time.Time
}

// Open opens (or creates) the database at path and applies the schema.
//
//	store, err := sqlite.Open("./data/orders.db")
func Open(path string) (*Store, error) {
	dsn := fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=foreign_keys(on)&_pragma=busy_timeout(5000)", path)

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("sqlite: open %q: %w", path, err)
	}
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("sqlite: apply schema: %w", err)
	}

	return &Store{db: db, now: time.Now}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
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

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlite: begin tx: %w", err)
	}

	if err := fn(context.WithValue(ctx, txKey{}, txState{store: s, tx: tx})); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
			return errors.Join(err, fmt.Errorf("sqlite: rollback: %w", rbErr))
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("sqlite: commit: %w", err)
	}
	return nil
}

// SeedCustomers upserts customers.
func (s *Store) SeedCustomers(ctx context.Context, customers ...domain.Customer) error {
	const q = `
		INSERT INTO customers (id, name, email) VALUES (?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET name = excluded.name, email = excluded.email`

	return s.WithinTx(ctx, func(ctx context.Context) error {
		for _, c := range customers {
			if _, err := s.conn(ctx).ExecContext(ctx, q, c.ID, c.Name, c.Email); err != nil {
				return fmt.Errorf("sqlite: seed customer %q: %w", c.ID, err)
			}
		}
		return nil
	})
}

// SeedProducts upserts products, replacing price and quantity.
func (s *Store) SeedProducts(ctx context.Context, products ...domain.Product) error {
	const q = `
		INSERT INTO products (id, name, price, quantity) VALUES (?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			name = excluded.name, price = excluded.price, quantity = excluded.quantity`

	return s.WithinTx(ctx, func(ctx context.Context) error {
		for _, p := range products {
			if p.Quantity < 0 {
				return fmt.Errorf("sqlite: seed product %q: negative quantity %d", p.ID, p.Quantity)
			}
			if _, err := s.conn(ctx).ExecContext(ctx, q, p.ID, p.Name, p.Price, p.Quantity); err != nil {
				return fmt.Errorf("sqlite: seed product %q: %w", p.ID, err)
			}
		}
		return nil
	})
}

func (s *Store) txFrom(ctx context.Context) *sql.Tx {
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
	return s.db
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("sqlite: parse time %q: %w", s, err)
	}
	return t, nil
}
