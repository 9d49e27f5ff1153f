// Package ports declares the collaborators the order service depends on.
// Adapters under internal/order-service/adapters implement them.
package ports

import (
	"context"

	"github.com/jcmexdev/ecommerce-orders/internal/order-service/domain"
)

type CustomerRepository interface {
	// FindByID reports found=false when the customer does not exist.
	FindByID(ctx context.Context, id string) (customer domain.Customer, found bool, err error)
}

type ProductRepository interface {
	// FindAllByID returns only the products that exist, in no particular order.
	FindAllByID(ctx context.Context, ids []string) ([]domain.Product, error)

	// UpdateQuantity applies the whole batch or nothing. It fails with a
	// *domain.NotFoundError for an unknown product and with
	// domain.ErrStockConflict when a quantity no longer equals Observed.
	UpdateQuantity(ctx context.Context, adjustments []domain.QuantityAdjustment) error
}

type OrderRepository interface {
	// Create persists the order and its lines and returns the stored form.
	Create(ctx context.Context, draft domain.OrderDraft) (*domain.Order, error)
	FindByID(ctx context.Context, id string) (*domain.Order, error)
}

// Transactor runs fn inside one transaction. The transaction travels in the
// context handed to fn; repositories of the same store pick it up from there.
// Returning an error from fn rolls the transaction back.
type Transactor interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context) error) error
}
