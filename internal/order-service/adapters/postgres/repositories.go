package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/jcmexdev/ecommerce-orders/internal/order-service/domain"
)

// CustomerRepository provides read access to customers.
type CustomerRepository struct {
	store *Store
}

func (r *CustomerRepository) FindByID(ctx context.Context, id string) (domain.Customer, bool, error) {
	query := "SELECT id, name, email FROM customers WHERE id = $1"

	var c domain.Customer
	err := r.store.conn(ctx).QueryRow(ctx, query, id).Scan(&c.ID, &c.Name, &c.Email)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Customer{}, false, nil
		}
		return domain.Customer{}, false, fmt.Errorf("failed to retrieve customer with id %s: %w", id, err)
	}
	return c, true, nil
}

// ProductRepository reads products and applies quantity adjustments.
type ProductRepository struct {
	store *Store
}

// FindAllByID returns the products among ids that exist. Inside a transaction
// the rows stay locked until it ends.
func (r *ProductRepository) FindAllByID(ctx context.Context, ids []string) ([]domain.Product, error) {
	query := "SELECT id, name, price::text, quantity FROM products WHERE id = ANY($1) ORDER BY id"
	if r.store.txFrom(ctx) != nil {
		query += " FOR UPDATE"
	}

	rows, err := r.store.conn(ctx).Query(ctx, query, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to retrieve products: %w", err)
	}
	defer rows.Close()

	products := make([]domain.Product, 0, len(ids))
	for rows.Next() {
		var (
			p     domain.Product
			price string
		)
		if err := rows.Scan(&p.ID, &p.Name, &price, &p.Quantity); err != nil {
			return nil, fmt.Errorf("scan product: %w", err)
		}
		if p.Price, err = decimal.NewFromString(price); err != nil {
			return nil, fmt.Errorf("decode price of product %s: %w", p.ID, err)
		}
		products = append(products, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to retrieve products: %w", err)
	}
	return products, nil
}

// UpdateQuantity applies every adjustment or none. A row whose quantity no
// longer equals the observed value fails the batch with
// domain.ErrStockConflict.
func (r *ProductRepository) UpdateQuantity(ctx context.Context, adjustments []domain.QuantityAdjustment) error {
	query := "UPDATE products SET quantity = $1 WHERE id = $2 AND quantity = $3"

	return r.store.WithinTx(ctx, func(ctx context.Context) error {
		conn := r.store.conn(ctx)
		for _, a := range adjustments {
			if a.Remaining < 0 {
				return fmt.Errorf("product %s: remaining quantity %d is negative", a.ProductID, a.Remaining)
			}

			tag, err := conn.Exec(ctx, query, a.Remaining, a.ProductID, a.Observed)
			if err != nil {
				return fmt.Errorf("failed to update quantity for product %s: %w", a.ProductID, err)
			}
			if tag.RowsAffected() == 1 {
				continue
			}

			var current int
			err = conn.QueryRow(ctx, "SELECT quantity FROM products WHERE id = $1", a.ProductID).Scan(&current)
			if errors.Is(err, pgx.ErrNoRows) {
				return &domain.NotFoundError{Resource: ProductResource, Key: "id", Value: a.ProductID}
			}
			if err != nil {
				return fmt.Errorf("read quantity for product %s: %w", a.ProductID, err)
			}
			return fmt.Errorf("product %s: observed %d, current %d: %w",
				a.ProductID, a.Observed, current, domain.ErrStockConflict)
		}
		return nil
	})
}

// OrderRepository persists orders and their lines.
type OrderRepository struct {
	store *Store
}

func (r *OrderRepository) Create(ctx context.Context, draft domain.OrderDraft) (*domain.Order, error) {
	insertOrder := "INSERT INTO orders (id, customer_id, created_at) VALUES ($1, $2, $3)"
	insertLine := `
		INSERT INTO order_products (order_id, position, product_id, quantity, price)
		VALUES ($1, $2, $3, $4, $5::numeric)`

	id := uuid.New()
	order := &domain.Order{
		ID:         id.String(),
		CustomerID: draft.Customer.ID,
		Lines:      make([]domain.OrderLine, 0, len(draft.Lines)),
		CreatedAt:  r.store.now().UTC().Truncate(time.Microsecond),
	}

	err := r.store.WithinTx(ctx, func(ctx context.Context) error {
		if _, found, err := r.store.Customers().FindByID(ctx, draft.Customer.ID); err != nil {
			return err
		} else if !found {
			return &domain.NotFoundError{Resource: CustomerResource, Key: "id", Value: draft.Customer.ID}
		}

		conn := r.store.conn(ctx)
		if _, err := conn.Exec(ctx, insertOrder, id, order.CustomerID, order.CreatedAt); err != nil {
			return fmt.Errorf("failed to create order: %w", err)
		}

		batch := &pgx.Batch{}
		for i, l := range draft.Lines {
			batch.Queue(insertLine, id, i, l.ProductID, l.Quantity, l.Price.String())
			order.Lines = append(order.Lines, l)
		}
		if err := r.store.txFrom(ctx).SendBatch(ctx, batch).Close(); err != nil {
			return fmt.Errorf("failed to create order lines: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return order, nil
}

func (r *OrderRepository) FindByID(ctx context.Context, id string) (*domain.Order, error) {
	orderID, err := uuid.Parse(id)
	if err != nil {
		return nil, &domain.NotFoundError{Resource: OrderResource, Key: "id", Value: id}
	}

	conn := r.store.conn(ctx)

	var order domain.Order
	err = conn.QueryRow(ctx, "SELECT id::text, customer_id, created_at FROM orders WHERE id = $1", orderID).
		Scan(&order.ID, &order.CustomerID, &order.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, &domain.NotFoundError{Resource: OrderResource, Key: "id", Value: id}
		}
		return nil, fmt.Errorf("failed to retrieve order with id %s: %w", id, err)
	}
	order.CreatedAt = order.CreatedAt.UTC()

	rows, err := conn.Query(ctx, `
		SELECT product_id, quantity, price::text
		FROM   order_products
		WHERE  order_id = $1
		ORDER  BY position`, orderID)
	if err != nil {
		return nil, fmt.Errorf("failed to retrieve lines of order %s: %w", id, err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			l     domain.OrderLine
			price string
		)
		if err := rows.Scan(&l.ProductID, &l.Quantity, &price); err != nil {
			return nil, fmt.Errorf("scan order line: %w", err)
		}
		if l.Price, err = decimal.NewFromString(price); err != nil {
			return nil, fmt.Errorf("decode price of order line %s: %w", l.ProductID, err)
		}
		order.Lines = append(order.Lines, l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to retrieve lines of order %s: %w", id, err)
	}
	return &order, nil
}
