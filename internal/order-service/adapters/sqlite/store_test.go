package sqlite

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"github.com/jcmexdev/ecommerce-orders/internal/order-service/app"
	"github.com/jcmexdev/ecommerce-orders/internal/order-service/domain"
)

func newSeededStore(t *testing.T) *Store {
	t.Helper()

	s, err := Open(filepath.Join(t.TempDir(), "orders.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	ctx := context.Background()
	require.NoError(t, s.SeedCustomers(ctx, domain.Customer{ID: "C1", Name: "Ada", Email: "ada@example.com"}))
	require.NoError(t, s.SeedProducts(ctx,
		domain.Product{ID: "P1", Name: "Pen", Price: decimal.RequireFromString("10.50"), Quantity: 5},
		domain.Product{ID: "P2", Name: "Pad", Price: decimal.NewFromInt(20), Quantity: 1},
	))
	return s
}

func quantities(t *testing.T, s *Store) map[string]int {
	t.Helper()
	products, err := s.Products().FindAllByID(context.Background(), []string{"P1", "P2"})
	require.NoError(t, err)
	out := make(map[string]int, len(products))
	for _, p := range products {
		out[p.ID] = p.Quantity
	}
	return out
}

func TestOpen_IsIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "orders.db")

	first, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, first.Close())

	second, err := Open(path)
	require.NoError(t, err)
	assert.NoError(t, second.Close())
}

func TestCustomerRepository_FindByID(t *testing.T) {
	s := newSeededStore(t)

	c, found, err := s.Customers().FindByID(context.Background(), "C1")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, domain.Customer{ID: "C1", Name: "Ada", Email: "ada@example.com"}, c)

	_, found, err = s.Customers().FindByID(context.Background(), "C9")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestProductRepository_FindAllByID(t *testing.T) {
	s := newSeededStore(t)

	testCases := map[string]struct {
		ids         []string
		expectedIDs []string
	}{
		"should return only existing products": {
			ids:         []string{"P1", "P9"},
			expectedIDs: []string{"P1"},
		},
		"should collapse repeated ids": {
			ids:         []string{"P2", "P2", "P1"},
			expectedIDs: []string{"P1", "P2"},
		},
		"should return an empty result for unknown ids": {
			ids:         []string{"P8", "P9"},
			expectedIDs: []string{},
		},
		"should return an empty result for no ids": {
			ids:         nil,
			expectedIDs: []string{},
		},
	}

	for name, tc := range testCases {
		t.Run(name, func(t *testing.T) {
			products, err := s.Products().FindAllByID(context.Background(), tc.ids)
			require.NoError(t, err)

			ids := make([]string, 0, len(products))
			for _, p := range products {
				ids = append(ids, p.ID)
			}
			assert.ElementsMatch(t, tc.expectedIDs, ids)
		})
	}
}

func TestProductRepository_PreservesDecimalPrice(t *testing.T) {
	s := newSeededStore(t)

	products, err := s.Products().FindAllByID(context.Background(), []string{"P1"})
	require.NoError(t, err)
	require.Len(t, products, 1)
	assert.True(t, decimal.RequireFromString("10.50").Equal(products[0].Price))
}

func TestProductRepository_UpdateQuantity(t *testing.T) {
	testCases := map[string]struct {
		adjustments    []domain.QuantityAdjustment
		expectedErr    error
		expectNotFound bool
		expected       map[string]int
	}{
		"should apply every adjustment": {
			adjustments: []domain.QuantityAdjustment{
				{ProductID: "P1", Observed: 5, Remaining: 3},
				{ProductID: "P2", Observed: 1, Remaining: 0},
			},
			expected: map[string]int{"P1": 3, "P2": 0},
		},
		"should roll back the batch on a stale observation": {
			adjustments: []domain.QuantityAdjustment{
				{ProductID: "P1", Observed: 5, Remaining: 3},
				{ProductID: "P2", Observed: 4, Remaining: 0},
			},
			expectedErr: domain.ErrStockConflict,
			expected:    map[string]int{"P1": 5, "P2": 1},
		},
		"should roll back the batch on an unknown product": {
			adjustments: []domain.QuantityAdjustment{
				{ProductID: "P1", Observed: 5, Remaining: 3},
				{ProductID: "P9", Observed: 1, Remaining: 0},
			},
			expectNotFound: true,
			expected:       map[string]int{"P1": 5, "P2": 1},
		},
	}

	for name, tc := range testCases {
		t.Run(name, func(t *testing.T) {
			s := newSeededStore(t)

			err := s.Products().UpdateQuantity(context.Background(), tc.adjustments)

			switch {
			case tc.expectedErr != nil:
				assert.ErrorIs(t, err, tc.expectedErr)
			case tc.expectNotFound:
				var notFound *domain.NotFoundError
				assert.ErrorAs(t, err, &notFound)
			default:
				assert.NoError(t, err)
			}
			assert.Equal(t, tc.expected, quantities(t, s))
		})
	}
}

func TestOrderRepository_CreateAndFind(t *testing.T) {
	s := newSeededStore(t)
	ctx := context.Background()

	draft := domain.OrderDraft{
		Customer: domain.Customer{ID: "C1"},
		Lines: []domain.OrderLine{
			{ProductID: "P2", Quantity: 1, Price: decimal.NewFromInt(20)},
			{ProductID: "P1", Quantity: 2, Price: decimal.RequireFromString("10.50")},
		},
	}

	created, err := s.Orders().Create(ctx, draft)
	require.NoError(t, err)
	assert.NotEmpty(t, created.ID)

	found, err := s.Orders().FindByID(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, created.ID, found.ID)
	assert.Equal(t, "C1", found.CustomerID)
	assert.True(t, created.CreatedAt.Equal(found.CreatedAt))
	require.Len(t, found.Lines, 2)
	assert.Equal(t, "P2", found.Lines[0].ProductID)
	assert.Equal(t, "P1", found.Lines[1].ProductID)
	assert.Equal(t, "41", found.Total().String())

	_, err = s.Orders().FindByID(ctx, "missing")
	var notFound *domain.NotFoundError
	require.ErrorAs(t, err, &notFound)
	assert.Equal(t, "order", notFound.Resource)
}

func TestOrderRepository_CreateRejectsUnknownCustomer(t *testing.T) {
	s := newSeededStore(t)

	_, err := s.Orders().Create(context.Background(), domain.OrderDraft{Customer: domain.Customer{ID: "C9"}})

	var notFound *domain.NotFoundError
	require.ErrorAs(t, err, &notFound)
	assert.Equal(t, "customer", notFound.Resource)
}

func TestStore_WithinTxRollsBack(t *testing.T) {
	s := newSeededStore(t)
	boom := errors.New("boom")
	var orderID string

	err := s.WithinTx(context.Background(), func(ctx context.Context) error {
		order, err := s.Orders().Create(ctx, domain.OrderDraft{Customer: domain.Customer{ID: "C1"}})
		if err != nil {
			return err
		}
		orderID = order.ID
		if err := s.Products().UpdateQuantity(ctx, []domain.QuantityAdjustment{
			{ProductID: "P1", Observed: 5, Remaining: 0},
		}); err != nil {
			return err
		}
		return boom
	})

	assert.ErrorIs(t, err, boom)
	assert.Equal(t, map[string]int{"P1": 5, "P2": 1}, quantities(t, s))
	_, err = s.Orders().FindByID(context.Background(), orderID)
	assert.Error(t, err)
}

func TestStore_ConcurrentBuyersForLastUnit(t *testing.T) {
	s := newSeededStore(t)
	svc := app.NewOrderService(s.Customers(), s.Products(), s.Orders(), s)

	const buyers = 10
	results := make([]error, buyers)

	var g errgroup.Group
	for i := range buyers {
		g.Go(func() error {
			_, results[i] = svc.CreateOrder(context.Background(), app.CreateOrderRequest{
				CustomerID: "C1",
				Products:   []domain.OrderLineRequest{{ProductID: "P2", Quantity: 1}},
			})
			return nil
		})
	}
	require.NoError(t, g.Wait())

	var created int
	for _, err := range results {
		if err == nil {
			created++
			continue
		}
		assert.Equal(t, domain.KindInsufficientStock, domain.KindOf(err))
	}
	assert.Equal(t, 1, created)
	assert.Equal(t, 0, quantities(t, s)["P2"])
}
