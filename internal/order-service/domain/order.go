package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type Customer struct {
	ID    string
	Name  string
	Email string
}

type Product struct {
	ID       string
	Name     string
	Price    decimal.Decimal
	Quantity int
}

// OrderLineRequest is one product requested by the caller. It only lives for
// the duration of a single create request.
type OrderLineRequest struct {
	ProductID string
	Quantity  int
}

// OrderLine is a persisted line item. Price is the unit price captured when the
// order was validated and is never recomputed.
type OrderLine struct {
	ProductID string
	Quantity  int
	Price     decimal.Decimal
}

func (l OrderLine) Subtotal() decimal.Decimal {
	return l.Price.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

// OrderDraft is what the order store receives; it assigns the id and timestamps.
type OrderDraft struct {
	Customer Customer
	Lines    []OrderLine
}

type Order struct {
	ID         string
	CustomerID string
	Lines      []OrderLine
	CreatedAt  time.Time
}

func (o Order) Total() decimal.Decimal {
	total := decimal.Zero
	for _, l := range o.Lines {
		total = total.Add(l.Subtotal())
	}
	return total
}

// QuantityAdjustment sets a product's available quantity to Remaining, provided
// it still equals Observed when the write is applied.
type QuantityAdjustment struct {
	ProductID string
	Observed  int
	Remaining int
}
