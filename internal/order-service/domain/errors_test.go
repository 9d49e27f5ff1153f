package domain

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrors_Error(t *testing.T) {
	testCases := map[string]struct {
		err      error
		expected string
	}{
		"should describe invalid request": {
			err:      &InvalidOrderRequestError{Reason: "products must not be empty"},
			expected: "invalid order request: products must not be empty",
		},
		"should quote the missing customer id": {
			err:      &CustomerNotFoundError{CustomerID: "C9"},
			expected: `could not find any customer with the given id "C9"`,
		},
		"should report products not found": {
			err:      &ProductsNotFoundError{ProductIDs: []string{"P1"}},
			expected: "could not find any products with the given ids",
		},
		"should join every missing product id": {
			err:      &ProductNotFoundError{ProductIDs: []string{"P9", "P8"}},
			expected: "could not find product: [P9, P8]",
		},
		"should report the first shortage": {
			err: &InsufficientStockError{Shortages: []StockShortage{
				{ProductID: "P2", Requested: 5, Available: 1},
				{ProductID: "P1", Requested: 9, Available: 5},
			}},
			expected: "the quantity 5 is not available for P2",
		},
		"should fall back when no shortage is recorded": {
			err:      &InsufficientStockError{},
			expected: "insufficient stock",
		},
		"should format not found error": {
			err:      &NotFoundError{Resource: "order", Key: "id", Value: "42"},
			expected: "order with id 42 not found",
		},
	}

	for name, tc := range testCases {
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, tc.expected, tc.err.Error())
		})
	}
}

func TestKindOf(t *testing.T) {
	testCases := map[string]struct {
		err      error
		expected Kind
	}{
		"should detect invalid request": {
			err:      &InvalidOrderRequestError{},
			expected: KindInvalidOrderRequest,
		},
		"should detect customer not found through wrapping": {
			err:      fmt.Errorf("create order: %w", &CustomerNotFoundError{CustomerID: "C1"}),
			expected: KindCustomerNotFound,
		},
		"should detect products not found": {
			err:      &ProductsNotFoundError{},
			expected: KindProductsNotFound,
		},
		"should detect product not found": {
			err:      &ProductNotFoundError{},
			expected: KindProductNotFound,
		},
		"should detect insufficient stock": {
			err:      &InsufficientStockError{},
			expected: KindInsufficientStock,
		},
		"should return unknown for infrastructure errors": {
			err:      errors.New("connection refused"),
			expected: KindUnknown,
		},
		"should return unknown for stock conflicts": {
			err:      fmt.Errorf("update quantity: %w", ErrStockConflict),
			expected: KindUnknown,
		},
		"should return unknown for nil": {
			err:      nil,
			expected: KindUnknown,
		},
	}

	for name, tc := range testCases {
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, tc.expected, KindOf(tc.err))
		})
	}
}
