package httpx

import (
	"time"

	"github.com/shopspring/decimal"
)

type CreateOrderRequest struct {
	CustomerID string               `json:"customer_id"`
	Products   []CreateOrderLineDTO `json:"products"`
}

type CreateOrderLineDTO struct {
	ID       string `json:"id"`
	Quantity int    `json:"quantity"`
}

type OrderResponse struct {
	ID            string              `json:"id"`
	CustomerID    string              `json:"customer_id"`
	Total         decimal.Decimal     `json:"total"`
	OrderProducts []OrderLineResponse `json:"order_products"`
	CreatedAt     time.Time           `json:"created_at"`
}

type OrderLineResponse struct {
	ProductID string          `json:"product_id"`
	Quantity  int             `json:"quantity"`
	Price     decimal.Decimal `json:"price"`
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
	Details any    `json:"details,omitempty"`
}

type ShortageDetail struct {
	ProductID string `json:"product_id"`
	Requested int    `json:"requested"`
	Available int    `json:"available"`
}

type OrderLogResponse struct {
	OrderID      string    `json:"order_id,omitempty"`
	CustomerID   string    `json:"customer_id"`
	Status       string    `json:"status"`
	ErrorKind    string    `json:"error_kind,omitempty"`
	ErrorMessage string    `json:"error_message,omitempty"`
	TraceID      string    `json:"trace_id,omitempty"`
	RecordedAt   time.Time `json:"recorded_at"`
}

type OrderLogListResponse struct {
	Entries []OrderLogResponse `json:"entries"`
}
