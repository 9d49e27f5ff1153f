// Package cache puts a read-through cache in front of customer lookups.
package cache

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/jcmexdev/ecommerce-orders/internal/order-service/domain"
	"github.com/jcmexdev/ecommerce-orders/internal/order-service/ports"
	"github.com/jcmexdev/ecommerce-orders/internal/pkg/cache"
)

const customerOperation = "customer"

var _ ports.CustomerRepository = (*CustomerRepository)(nil)

// CustomerRepository serves customers from the cache and falls back to next
// on a miss. Absent customers are never cached, and cache failures degrade to
// a plain lookup.
type CustomerRepository struct {
	next  ports.CustomerRepository
	cache cache.Cache
	ttl   time.Duration
}

func NewCustomerRepository(next ports.CustomerRepository, c cache.Cache, ttl time.Duration) *CustomerRepository {
	return &CustomerRepository{next: next, cache: c, ttl: ttl}
}

type cachedCustomer struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

func (r *CustomerRepository) FindByID(ctx context.Context, id string) (domain.Customer, bool, error) {
	key := r.cache.GenerateKey(customerOperation, id)

	raw, hit, err := r.cache.Get(ctx, key)
	if err != nil {
		slog.WarnContext(ctx, "customer cache read failed", "customer_id", id, "error", err)
	}
	if hit {
		var c cachedCustomer
		if err := json.Unmarshal([]byte(raw), &c); err == nil {
			return domain.Customer{ID: c.ID, Name: c.Name, Email: c.Email}, true, nil
		}
		slog.WarnContext(ctx, "discarding undecodable customer cache entry", "customer_id", id)
	}

	customer, found, err := r.next.FindByID(ctx, id)
	if err != nil || !found {
		return customer, found, err
	}

	payload, err := json.Marshal(cachedCustomer{ID: customer.ID, Name: customer.Name, Email: customer.Email})
	if err == nil {
		err = r.cache.Set(ctx, key, payload, r.ttl)
	}
	if err != nil {
		slog.WarnContext(ctx, "customer cache write failed", "customer_id", id, "error", err)
	}
	return customer, true, nil
}

// Invalidate drops the cached entry for id.
func (r *CustomerRepository) Invalidate(ctx context.Context, id string) error {
	return r.cache.Delete(ctx, r.cache.GenerateKey(customerOperation, id))
}
