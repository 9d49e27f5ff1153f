package domain

import (
	"errors"
	"fmt"
	"strings"
)

// Kind classifies the domain failures of order creation so transports can
// render them without inspecting messages.
type Kind string

const (
	KindUnknown             Kind = ""
	KindInvalidOrderRequest Kind = "INVALID_ORDER_REQUEST"
	KindCustomerNotFound    Kind = "CUSTOMER_NOT_FOUND"
	KindProductsNotFound    Kind = "PRODUCTS_NOT_FOUND"
	KindProductNotFound     Kind = "PRODUCT_NOT_FOUND"
	KindInsufficientStock   Kind = "INSUFFICIENT_STOCK"
)

// ErrStockConflict is returned by product stores when a quantity changed
// between the read and the conditional write.
var ErrStockConflict = errors.New("product quantity changed concurrently")

type kinded interface {
	Kind() Kind
}

// KindOf returns the domain kind carried by err, or KindUnknown.
func KindOf(err error) Kind {
	var k kinded
	if errors.As(err, &k) {
		return k.Kind()
	}
	return KindUnknown
}

type InvalidOrderRequestError struct {
	Reason string
}

func (e *InvalidOrderRequestError) Error() string {
	return "invalid order request: " + e.Reason
}

func (e *InvalidOrderRequestError) Kind() Kind { return KindInvalidOrderRequest }

type CustomerNotFoundError struct {
	CustomerID string
}

func (e *CustomerNotFoundError) Error() string {
	return fmt.Sprintf("could not find any customer with the given id %q", e.CustomerID)
}

func (e *CustomerNotFoundError) Kind() Kind { return KindCustomerNotFound }

// ProductsNotFoundError means none of the requested ids resolved.
type ProductsNotFoundError struct {
	ProductIDs []string
}

func (e *ProductsNotFoundError) Error() string {
	return "could not find any products with the given ids"
}

func (e *ProductsNotFoundError) Kind() Kind { return KindProductsNotFound }

// ProductNotFoundError lists every requested id missing from the lookup, in
// request order.
type ProductNotFoundError struct {
	ProductIDs []string
}

func (e *ProductNotFoundError) Error() string {
	return fmt.Sprintf("could not find product: [%s]", strings.Join(e.ProductIDs, ", "))
}

func (e *ProductNotFoundError) Kind() Kind { return KindProductNotFound }

type StockShortage struct {
	ProductID string
	Requested int
	Available int
}

// InsufficientStockError carries every line whose requested quantity exceeds
// the available stock. The message reports the first one.
type InsufficientStockError struct {
	Shortages []StockShortage
}

func (e *InsufficientStockError) Error() string {
	if len(e.Shortages) == 0 {
		return "insufficient stock"
	}
	first := e.Shortages[0]
	return fmt.Sprintf("the quantity %d is not available for %s", first.Requested, first.ProductID)
}

func (e *InsufficientStockError) Kind() Kind { return KindInsufficientStock }

// NotFoundError represents a lookup by key that matched nothing.
type NotFoundError struct {
	Resource string
	Key      string
	Value    string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s with %s %s not found", e.Resource, e.Key, e.Value)
}
