package app

import (
	"fmt"

	"github.com/jcmexdev/ecommerce-orders/internal/order-service/domain"
)

// catalog is the product state observed during validation, keyed by id. Every
// later step reads prices and quantities from here instead of the store.
type catalog map[string]domain.Product

func newCatalog(products []domain.Product) catalog {
	c := make(catalog, len(products))
	for _, p := range products {
		c[p.ID] = p
	}
	return c
}

func (c catalog) lookup(id string) (domain.Product, bool) {
	p, ok := c[id]
	return p, ok
}

func (c catalog) missing(ids []string) []string {
	var missing []string
	for _, id := range ids {
		if _, ok := c.lookup(id); !ok {
			missing = append(missing, id)
		}
	}
	return missing
}

func (c catalog) shortages(requested []domain.OrderLineRequest) []domain.StockShortage {
	var shortages []domain.StockShortage
	for _, l := range requested {
		p, _ := c.lookup(l.ProductID)
		if p.Quantity < l.Quantity {
			shortages = append(shortages, domain.StockShortage{
				ProductID: l.ProductID,
				Requested: l.Quantity,
				Available: p.Quantity,
			})
		}
	}
	return shortages
}

// snapshot freezes the observed unit price on every line.
func (c catalog) snapshot(requested []domain.OrderLineRequest) ([]domain.OrderLine, error) {
	lines := make([]domain.OrderLine, 0, len(requested))
	for _, l := range requested {
		p, ok := c.lookup(l.ProductID)
		if !ok {
			return nil, fmt.Errorf("%w: product %s was not looked up", ErrInvariantViolation, l.ProductID)
		}
		lines = append(lines, domain.OrderLine{
			ProductID: l.ProductID,
			Quantity:  l.Quantity,
			Price:     p.Price,
		})
	}
	return lines, nil
}

// adjustments derives the new quantities from the persisted lines, not from
// the request, in case the store normalised them.
func (c catalog) adjustments(lines []domain.OrderLine) ([]domain.QuantityAdjustment, error) {
	ordered := make(map[string]int, len(lines))
	order := make([]string, 0, len(lines))
	for _, l := range lines {
		if _, ok := ordered[l.ProductID]; !ok {
			order = append(order, l.ProductID)
		}
		ordered[l.ProductID] += l.Quantity
	}

	adjustments := make([]domain.QuantityAdjustment, 0, len(order))
	for _, id := range order {
		p, ok := c.lookup(id)
		if !ok {
			return nil, fmt.Errorf("%w: persisted product %s was not looked up", ErrInvariantViolation, id)
		}
		remaining := p.Quantity - ordered[id]
		if remaining < 0 {
			return nil, fmt.Errorf("%w: product %s would drop to %d", ErrInvariantViolation, id, remaining)
		}
		adjustments = append(adjustments, domain.QuantityAdjustment{
			ProductID: id,
			Observed:  p.Quantity,
			Remaining: remaining,
		})
	}
	return adjustments, nil
}
