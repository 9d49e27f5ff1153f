// Package memory keeps customers, products and orders in process memory. It is
// used for local development and as the reference store in tests.
package memory

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/jcmexdev/ecommerce-orders/internal/order-service/domain"
	"github.com/jcmexdev/ecommerce-orders/internal/order-service/ports"
)

var (
	_ ports.CustomerRepository = (*CustomerRepository)(nil)
	_ ports.ProductRepository  = (*ProductRepository)(nil)
	_ ports.OrderRepository    = (*OrderRepository)(nil)
	_ ports.Transactor         = (*Store)(nil)
)

type txKey struct{}

// Store serialises every operation behind one mutex. A transaction holds the
// mutex for its whole duration and restores the previous state on error.
type Store struct {
	mu        sync.Mutex
	customers map[string]domain.Customer
	products  map[string]domain.Product
	orders    map[string]*domain.Order
	now       func() time.Time
}

func NewStore() *Store {
	return &Store{
		customers: make(map[string]domain.Customer),
		products:  make(map[string]domain.Product),
		orders:    make(map[string]*domain.Order),
		now:       time.Now,
	}
}

func (s *Store) Customers() *CustomerRepository { return &CustomerRepository{store: s} }
func (s *Store) Products() *ProductRepository   { return &ProductRepository{store: s} }
func (s *Store) Orders() *OrderRepository       { return &OrderRepository{store: s} }

func (s *Store) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if s.inTx(ctx) {
		return fn(ctx)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	products := maps.Clone(s.products)
	orders := maps.Clone(s.orders)

	if err := fn(context.WithValue(ctx, txKey{}, s)); err != nil {
		s.products = products
		s.orders = orders
		return err
	}
	return nil
}

func (s *Store) SeedCustomers(ctx context.Context, customers ...domain.Customer) error {
	defer s.lock(ctx)()
	for _, c := range customers {
		s.customers[c.ID] = c
	}
	return nil
}

func (s *Store) SeedProducts(ctx context.Context, products ...domain.Product) error {
	defer s.lock(ctx)()
	for _, p := range products {
		if p.Quantity < 0 {
			return fmt.Errorf("seed product %s: negative quantity %d", p.ID, p.Quantity)
		}
		s.products[p.ID] = p
	}
	return nil
}

func (s *Store) inTx(ctx context.Context) bool {
	owner, _ := ctx.Value(txKey{}).(*Store)
	return owner == s
}

// lock takes the store mutex unless ctx already runs inside this store's
// transaction, which holds it.
func (s *Store) lock(ctx context.Context) func() {
	if s.inTx(ctx) {
		return func() {}
	}
	s.mu.Lock()
	return s.mu.Unlock
}

type CustomerRepository struct {
	store *Store
}

func (r *CustomerRepository) FindByID(ctx context.Context, id string) (domain.Customer, bool, error) {
	defer r.store.lock(ctx)()
	c, ok := r.store.customers[id]
	return c, ok, nil
}

type ProductRepository struct {
	store *Store
}

func (r *ProductRepository) FindAllByID(ctx context.Context, ids []string) ([]domain.Product, error) {
	defer r.store.lock(ctx)()

	found := make([]domain.Product, 0, len(ids))
	seen := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		if p, ok := r.store.products[id]; ok {
			found = append(found, p)
		}
	}
	return found, nil
}

func (r *ProductRepository) UpdateQuantity(ctx context.Context, adjustments []domain.QuantityAdjustment) error {
	defer r.store.lock(ctx)()

	for _, a := range adjustments {
		p, ok := r.store.products[a.ProductID]
		if !ok {
			return &domain.NotFoundError{Resource: "product", Key: "id", Value: a.ProductID}
		}
		if a.Remaining < 0 {
			return fmt.Errorf("product %s: remaining quantity %d is negative", a.ProductID, a.Remaining)
		}
		if p.Quantity != a.Observed {
			return fmt.Errorf("product %s: observed %d, current %d: %w",
				a.ProductID, a.Observed, p.Quantity, domain.ErrStockConflict)
		}
	}

	for _, a := range adjustments {
		p := r.store.products[a.ProductID]
		p.Quantity = a.Remaining
		r.store.products[a.ProductID] = p
	}
	return nil
}

type OrderRepository struct {
	store *Store
}

func (r *OrderRepository) Create(ctx context.Context, draft domain.OrderDraft) (*domain.Order, error) {
	defer r.store.lock(ctx)()

	if _, ok := r.store.customers[draft.Customer.ID]; !ok {
		return nil, &domain.NotFoundError{Resource: "customer", Key: "id", Value: draft.Customer.ID}
	}

	order := &domain.Order{
		ID:         uuid.NewString(),
		CustomerID: draft.Customer.ID,
		Lines:      slices.Clone(draft.Lines),
		CreatedAt:  r.store.now().UTC(),
	}
	r.store.orders[order.ID] = order

	return cloneOrder(order), nil
}

func (r *OrderRepository) FindByID(ctx context.Context, id string) (*domain.Order, error) {
	defer r.store.lock(ctx)()

	order, ok := r.store.orders[id]
	if !ok {
		return nil, &domain.NotFoundError{Resource: "order", Key: "id", Value: id}
	}
	return cloneOrder(order), nil
}

func cloneOrder(o *domain.Order) *domain.Order {
	c := *o
	c.Lines = slices.Clone(o.Lines)
	return &c
}
