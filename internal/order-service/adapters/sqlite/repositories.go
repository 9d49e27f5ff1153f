package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/jcmexdev/ecommerce-orders/internal/order-service/domain"
)

type CustomerRepository struct {
	store *Store
}

func (r *CustomerRepository) FindByID(ctx context.Context, id string) (domain.Customer, bool, error) {
	const q = `SELECT id, name, email FROM customers WHERE id = ?`

	var c domain.Customer
	err := r.store.conn(ctx).QueryRowContext(ctx, q, id).Scan(&c.ID, &c.Name, &c.Email)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Customer{}, false, nil
	}
	if err != nil {
		return domain.Customer{}, false, fmt.Errorf("sqlite: find customer %q: %w", id, err)
	}
	return c, true, nil
}

type ProductRepository struct {
	store *Store
}

// FindAllByID returns the products among ids that exist. Unknown ids are
// skipped and repeated ids yield one product.
func (r *ProductRepository) FindAllByID(ctx context.Context, ids []string) ([]domain.Product, error) {
	unique := make([]any, 0, len(ids))
	seen := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		unique = append(unique, id)
	}
	if len(unique) == 0 {
		return []domain.Product{}, nil
	}

	q := `SELECT id, name, price, quantity FROM products WHERE id IN (` +
		strings.TrimSuffix(strings.Repeat("?,", len(unique)), ",") + `)`

	rows, err := r.store.conn(ctx).QueryContext(ctx, q, unique...)
	if err != nil {
		return nil, fmt.Errorf("sqlite: find products: %w", err)
	}
	defer rows.Close()

	products := make([]domain.Product, 0, len(unique))
	for rows.Next() {
		var p domain.Product
		if err := rows.Scan(&p.ID, &p.Name, &p.Price, &p.Quantity); err != nil {
			return nil, fmt.Errorf("sqlite: scan product: %w", err)
		}
		products = append(products, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: find products: %w", err)
	}
	return products, nil
}

// UpdateQuantity applies every adjustment or none. A row whose quantity no
// longer equals the observed value fails the batch with
// domain.ErrStockConflict.
func (r *ProductRepository) UpdateQuantity(ctx context.Context, adjustments []domain.QuantityAdjustment) error {
	const q = `UPDATE products SET quantity = ? WHERE id = ? AND quantity = ?`

	return r.store.WithinTx(ctx, func(ctx context.Context) error {
		conn := r.store.conn(ctx)
		for _, a := range adjustments {
			if a.Remaining < 0 {
				return fmt.Errorf("sqlite: product %q: remaining quantity %d is negative", a.ProductID, a.Remaining)
			}

			res, err := conn.ExecContext(ctx, q, a.Remaining, a.ProductID, a.Observed)
			if err != nil {
				return fmt.Errorf("sqlite: update quantity for %q: %w", a.ProductID, err)
			}
			n, err := res.RowsAffected()
			if err != nil {
				return fmt.Errorf("sqlite: update quantity for %q: %w", a.ProductID, err)
			}
			if n == 1 {
				continue
			}

			var current int
			err = conn.QueryRowContext(ctx, `SELECT quantity FROM products WHERE id = ?`, a.ProductID).Scan(&current)
			if errors.Is(err, sql.ErrNoRows) {
				return &domain.NotFoundError{Resource: "product", Key: "id", Value: a.ProductID}
			}
			if err != nil {
				return fmt.Errorf("sqlite: read quantity for %q: %w", a.ProductID, err)
			}
			return fmt.Errorf("sqlite: product %q: observed %d, current %d: %w",
				a.ProductID, a.Observed, current, domain.ErrStockConflict)
		}
		return nil
	})
}

type OrderRepository struct {
	store *Store
}

func (r *OrderRepository) Create(ctx context.Context, draft domain.OrderDraft) (*domain.Order, error) {
	const (
		insertOrder = `INSERT INTO orders (id, customer_id, created_at) VALUES (?, ?, ?)`
		insertLine  = `
			INSERT INTO order_products (order_id, position, product_id, quantity, price)
			VALUES (?, ?, ?, ?, ?)`
	)

	order := &domain.Order{
		ID:         uuid.NewString(),
		CustomerID: draft.Customer.ID,
		Lines:      make([]domain.OrderLine, 0, len(draft.Lines)),
		CreatedAt:  r.store.now().UTC(),
	}

	err := r.store.WithinTx(ctx, func(ctx context.Context) error {
		if _, found, err := r.store.Customers().FindByID(ctx, draft.Customer.ID); err != nil {
			return err
		} else if !found {
			return &domain.NotFoundError{Resource: "customer", Key: "id", Value: draft.Customer.ID}
		}

		conn := r.store.conn(ctx)
		if _, err := conn.ExecContext(ctx, insertOrder, order.ID, order.CustomerID, formatTime(order.CreatedAt)); err != nil {
			return fmt.Errorf("sqlite: insert order: %w", err)
		}
		for i, l := range draft.Lines {
			if _, err := conn.ExecContext(ctx, insertLine, order.ID, i, l.ProductID, l.Quantity, l.Price); err != nil {
				return fmt.Errorf("sqlite: insert order line %q: %w", l.ProductID, err)
			}
			order.Lines = append(order.Lines, l)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return order, nil
}

func (r *OrderRepository) FindByID(ctx context.Context, id string) (*domain.Order, error) {
	const (
		selectOrder = `SELECT id, customer_id, created_at FROM orders WHERE id = ?`
		selectLines = `
			SELECT product_id, quantity, price
			FROM   order_products
			WHERE  order_id = ?
			ORDER  BY position`
	)

	conn := r.store.conn(ctx)

	var (
		order     domain.Order
		createdAt string
	)
	err := conn.QueryRowContext(ctx, selectOrder, id).Scan(&order.ID, &order.CustomerID, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, &domain.NotFoundError{Resource: "order", Key: "id", Value: id}
	}
	if err != nil {
		return nil, fmt.Errorf("sqlite: find order %q: %w", id, err)
	}
	if order.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}

	rows, err := conn.QueryContext(ctx, selectLines, id)
	if err != nil {
		return nil, fmt.Errorf("sqlite: find lines of order %q: %w", id, err)
	}
	defer rows.Close()

	for rows.Next() {
		var l domain.OrderLine
		if err := rows.Scan(&l.ProductID, &l.Quantity, &l.Price); err != nil {
			return nil, fmt.Errorf("sqlite: scan order line: %w", err)
		}
		order.Lines = append(order.Lines, l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: find lines of order %q: %w", id, err)
	}
	return &order, nil
}
