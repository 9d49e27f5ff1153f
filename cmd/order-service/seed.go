package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/shopspring/decimal"

	"github.com/jcmexdev/ecommerce-orders/internal/order-service/domain"
)

var (
	demoCustomers = []domain.Customer{
		{ID: "C1", Name: "Ada Lovelace", Email: "ada@example.com"},
		{ID: "C2", Name: "Alan Turing", Email: "alan@example.com"},
	}

	demoProducts = []domain.Product{
		{ID: "P1", Name: "Fountain pen", Price: decimal.RequireFromString("10.00"), Quantity: 5},
		{ID: "P2", Name: "Notebook", Price: decimal.RequireFromString("20.00"), Quantity: 1},
		{ID: "P3", Name: "Ink bottle", Price: decimal.RequireFromString("7.25"), Quantity: 40},
	}
)

// customerInvalidator drops cached customers, see adapters/cache.
type customerInvalidator interface {
	Invalidate(ctx context.Context, id string) error
}

// seedDemoData upserts the demo catalogue. Seeded customers are evicted from
// the cache, when there is one, so a previous run's entries are not served.
func seedDemoData(ctx context.Context, s seeder, cache customerInvalidator) error {
	if err := s.SeedCustomers(ctx, demoCustomers...); err != nil {
		return fmt.Errorf("seed customers: %w", err)
	}
	if err := s.SeedProducts(ctx, demoProducts...); err != nil {
		return fmt.Errorf("seed products: %w", err)
	}

	if cache == nil {
		return nil
	}
	for _, c := range demoCustomers {
		if err := cache.Invalidate(ctx, c.ID); err != nil {
			slog.WarnContext(ctx, "failed to evict seeded customer from cache", "customer_id", c.ID, "error", err)
		}
	}
	return nil
}
