//go:build integration

package postgres

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/jcmexdev/ecommerce-orders/internal/order-service/app"
	"github.com/jcmexdev/ecommerce-orders/internal/order-service/domain"
)

var (
	poolOnce   sync.Once
	sharedPool *pgxpool.Pool
	poolErr    error
)

// setupTestDB starts one PostgreSQL container per test binary and empties
// the tables before every test.
func setupTestDB(t *testing.T) *pgxpool.Pool {
	t.Helper()
	ctx := context.Background()

	poolOnce.Do(func() {
		container, err := tcpostgres.RunContainer(ctx,
			testcontainers.WithImage("postgres:16-alpine"),
			tcpostgres.WithDatabase("orders_test"),
			tcpostgres.WithUsername("orders"),
			tcpostgres.WithPassword("orders"),
			testcontainers.WithWaitStrategy(
				wait.ForLog("database system is ready to accept connections").
					WithOccurrence(2).
					WithStartupTimeout(60*time.Second),
			),
		)
		if err != nil {
			poolErr = err
			return
		}

		dsn, err := container.ConnectionString(ctx, "sslmode=disable")
		if err != nil {
			poolErr = err
			return
		}
		sharedPool, poolErr = Connect(ctx, dsn)
	})
	require.NoError(t, poolErr)

	require.NoError(t, NewStore(sharedPool).Migrate(ctx))
	_, err := sharedPool.Exec(ctx, "TRUNCATE TABLE order_products, orders, products, customers")
	require.NoError(t, err)
	return sharedPool
}

func newSeededStore(t *testing.T) *Store {
	t.Helper()
	s := NewStore(setupTestDB(t))
	ctx := context.Background()
	require.NoError(t, s.SeedCustomers(ctx, domain.Customer{ID: "C1", Name: "Ada"}))
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

func TestCustomerRepository_FindByID(t *testing.T) {
	s := newSeededStore(t)

	testCases := map[string]struct {
		id            string
		expectedFound bool
	}{
		"should find existing customer":  {id: "C1", expectedFound: true},
		"should report missing customer": {id: "C9", expectedFound: false},
	}

	for name, tc := range testCases {
		t.Run(name, func(t *testing.T) {
			_, found, err := s.Customers().FindByID(context.Background(), tc.id)
			require.NoError(t, err)
			assert.Equal(t, tc.expectedFound, found)
		})
	}
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

	created, err := s.Orders().Create(ctx, domain.OrderDraft{
		Customer: domain.Customer{ID: "C1"},
		Lines: []domain.OrderLine{
			{ProductID: "P2", Quantity: 1, Price: decimal.NewFromInt(20)},
			{ProductID: "P1", Quantity: 2, Price: decimal.RequireFromString("10.50")},
		},
	})
	require.NoError(t, err)

	found, err := s.Orders().FindByID(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, created.ID, found.ID)
	assert.True(t, created.CreatedAt.Equal(found.CreatedAt))
	require.Len(t, found.Lines, 2)
	assert.Equal(t, "P2", found.Lines[0].ProductID)
	assert.True(t, decimal.NewFromInt(41).Equal(found.Total()))

	_, err = s.Orders().FindByID(ctx, "not-a-uuid")
	var notFound *domain.NotFoundError
	assert.ErrorAs(t, err, &notFound)
}

func TestStore_ConcurrentBuyersForLastUnit(t *testing.T) {
	s := newSeededStore(t)
	svc := app.NewOrderService(s.Customers(), s.Products(), s.Orders(), s)

	const buyers = 10
	results := make([]error, buyers)

	var wg sync.WaitGroup
	for i := range buyers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, results[i] = svc.CreateOrder(context.Background(), app.CreateOrderRequest{
				CustomerID: "C1",
				Products:   []domain.OrderLineRequest{{ProductID: "P2", Quantity: 1}},
			})
		}()
	}
	wg.Wait()

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
