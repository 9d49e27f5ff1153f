package app

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/jcmexdev/ecommerce-orders/internal/order-service/domain"
)

type mockCustomerRepository struct {
	mock.Mock
}

func (m *mockCustomerRepository) FindByID(ctx context.Context, id string) (domain.Customer, bool, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(domain.Customer), args.Bool(1), args.Error(2)
}

type mockProductRepository struct {
	mock.Mock
}

func (m *mockProductRepository) FindAllByID(ctx context.Context, ids []string) ([]domain.Product, error) {
	args := m.Called(ctx, ids)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Product), args.Error(1)
}

func (m *mockProductRepository) UpdateQuantity(ctx context.Context, adjustments []domain.QuantityAdjustment) error {
	args := m.Called(ctx, adjustments)
	return args.Error(0)
}

type mockOrderRepository struct {
	mock.Mock
}

func (m *mockOrderRepository) Create(ctx context.Context, draft domain.OrderDraft) (*domain.Order, error) {
	args := m.Called(ctx, draft)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Order), args.Error(1)
}

func (m *mockOrderRepository) FindByID(ctx context.Context, id string) (*domain.Order, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Order), args.Error(1)
}

// passthroughTx runs fn directly and counts attempts.
type passthroughTx struct {
	calls int
}

func (p *passthroughTx) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	p.calls++
	return fn(ctx)
}

// orderFromDraft is the order a well-behaved store returns for draft.
func orderFromDraft(id string, draft domain.OrderDraft) *domain.Order {
	return &domain.Order{ID: id, CustomerID: draft.Customer.ID, Lines: draft.Lines}
}
