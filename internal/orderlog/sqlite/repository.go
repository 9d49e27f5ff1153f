// Package sqlite provides a SQLite-backed implementation of
// orderlog.Repository.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jcmexdev/ecommerce-orders/internal/orderlog"

	// Pure-Go driver, registered as "sqlite".
	_ "modernc.org/sqlite"
)

var _ orderlog.Repository = (*Repository)(nil)

// schema is append-only: one row per order creation attempt.
const schema = `
CREATE TABLE IF NOT EXISTS order_logs (
    id            INTEGER PRIMARY KEY AUTOINCREMENT,

    -- Empty unless the attempt was accepted.
    order_id      TEXT NOT NULL DEFAULT '',
    customer_id   TEXT NOT NULL,

    -- ACCEPTED, REJECTED or FAILED.
    status        TEXT NOT NULL,
    error_kind    TEXT NOT NULL DEFAULT '',
    error_message TEXT NOT NULL DEFAULT '',

    -- JSON request body.
    payload       TEXT,

    -- W3C ids of the span that handled the attempt.
    trace_id      TEXT NOT NULL DEFAULT '',
    span_id       TEXT NOT NULL DEFAULT '',

    recorded_at   TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_order_logs_customer_id ON order_logs(customer_id, recorded_at);
CREATE INDEX IF NOT EXISTS idx_order_logs_trace_id ON order_logs(trace_id);
`

// Repository is the SQLite implementation of orderlog.Repository.
type Repository struct {
	db *sql.DB
}

// Open opens (or creates) the database at path and applies the schema.
//
//	repo, err := sqlite.Open("./data/order_log.db")
func Open(path string) (*Repository, error) {
	dsn := fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)", path)

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("sqlite: open %q: %w", path, err)
	}
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("sqlite: apply schema: %w", err)
	}

	return &Repository{db: db}, nil
}

// Close releases the database connection.
func (r *Repository) Close() error {
	return r.db.Close()
}

// Save inserts a new entry. It is safe to call concurrently.
func (r *Repository) Save(ctx context.Context, entry *orderlog.Entry) error {
	const q = `
		INSERT INTO order_logs
			(order_id, customer_id, status, error_kind, error_message, payload, trace_id, span_id, recorded_at)
		VALUES
			(?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err := r.db.ExecContext(ctx, q,
		entry.OrderID,
		entry.CustomerID,
		string(entry.Status),
		entry.ErrorKind,
		entry.ErrorMessage,
		nullableString(entry.Payload),
		entry.TraceID,
		entry.SpanID,
		formatTime(entry.RecordedAt),
	)
	if err != nil {
		return fmt.Errorf("sqlite: save order log for customer %q: %w", entry.CustomerID, err)
	}
	return nil
}

func (r *Repository) ListByCustomer(ctx context.Context, customerID string, limit int) ([]orderlog.Entry, error) {
	const q = `
		SELECT order_id, customer_id, status, error_kind, error_message, COALESCE(payload, ''),
		       trace_id, span_id, recorded_at
		FROM   order_logs
		WHERE  customer_id = ?
		ORDER  BY recorded_at DESC, id DESC
		LIMIT  ?`

	rows, err := r.db.QueryContext(ctx, q, customerID, limit)
	if err != nil {
		return nil, fmt.Errorf("sqlite: list order logs for %q: %w", customerID, err)
	}
	defer rows.Close()

	var entries []orderlog.Entry
	for rows.Next() {
		var (
			entry      orderlog.Entry
			recordedAt string
		)
		if err := rows.Scan(
			&entry.OrderID,
			&entry.CustomerID,
			&entry.Status,
			&entry.ErrorKind,
			&entry.ErrorMessage,
			&entry.Payload,
			&entry.TraceID,
			&entry.SpanID,
			&recordedAt,
		); err != nil {
			return nil, fmt.Errorf("sqlite: scan order log: %w", err)
		}
		if entry.RecordedAt, err = parseRFC3339(recordedAt); err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: list order logs for %q: %w", customerID, err)
	}
	return entries, nil
}

// nullableString stores NULL instead of an empty payload.
func nullableString(s string) any {
	if s == "" {
		return nil
	}
	return s
}
