package orderlog

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"go.opentelemetry.io/otel/trace"

	"github.com/jcmexdev/ecommerce-orders/internal/order-service/app"
	"github.com/jcmexdev/ecommerce-orders/internal/order-service/domain"
)

// TraceInfo holds the OTel identifiers extracted from a context.
type TraceInfo struct {
	// TraceID is the W3C trace ID, empty without an active span.
	TraceID string
	SpanID  string
}

// ExtractTraceInfo reads the active OpenTelemetry span from ctx.
func ExtractTraceInfo(ctx context.Context) TraceInfo {
	sc := trace.SpanFromContext(ctx).SpanContext()
	if !sc.IsValid() {
		return TraceInfo{}
	}
	return TraceInfo{
		TraceID: sc.TraceID().String(),
		SpanID:  sc.SpanID().String(),
	}
}

type payloadLine struct {
	ID       string `json:"id"`
	Quantity int    `json:"quantity"`
}

type payload struct {
	CustomerID string        `json:"customer_id"`
	Products   []payloadLine `json:"products"`
}

// NewEntry builds the audit row for one attempt from its request and result.
func NewEntry(ctx context.Context, req app.CreateOrderRequest, order *domain.Order, err error) *Entry {
	ti := ExtractTraceInfo(ctx)

	entry := &Entry{
		CustomerID: req.CustomerID,
		Payload:    encodePayload(req),
		TraceID:    ti.TraceID,
		SpanID:     ti.SpanID,
		RecordedAt: time.Now().UTC(),
	}

	switch kind := domain.KindOf(err); {
	case err == nil:
		entry.Status = StatusAccepted
		if order != nil {
			entry.OrderID = order.ID
		}
	case kind != domain.KindUnknown:
		entry.Status = StatusRejected
		entry.ErrorKind = string(kind)
		entry.ErrorMessage = err.Error()
	case errors.Is(err, domain.ErrStockConflict):
		entry.Status = StatusRejected
		entry.ErrorKind = "STOCK_CONFLICT"
		entry.ErrorMessage = err.Error()
	default:
		entry.Status = StatusFailed
		entry.ErrorMessage = err.Error()
	}
	return entry
}

func encodePayload(req app.CreateOrderRequest) string {
	p := payload{CustomerID: req.CustomerID, Products: make([]payloadLine, len(req.Products))}
	for i, l := range req.Products {
		p.Products[i] = payloadLine{ID: l.ProductID, Quantity: l.Quantity}
	}
	b, err := json.Marshal(p)
	if err != nil {
		return ""
	}
	return string(b)
}
