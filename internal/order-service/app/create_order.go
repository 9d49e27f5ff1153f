package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/jcmexdev/ecommerce-orders/internal/order-service/domain"
	"github.com/jcmexdev/ecommerce-orders/internal/order-service/ports"
)

const (
	tracerName = "github.com/jcmexdev/ecommerce-orders/internal/order-service/app"

	DefaultStockConflictRetries = 2

	// MaxLineQuantity bounds a line after duplicates are merged. It matches
	// the INTEGER columns of the SQL stores.
	MaxLineQuantity = math.MaxInt32
)

// ErrInvariantViolation marks states the validation steps should have made
// impossible, such as a persisted line whose product was never looked up.
var ErrInvariantViolation = errors.New("order invariant violated")

// Service is what the transports and decorators depend on.
type Service interface {
	CreateOrder(ctx context.Context, req CreateOrderRequest) (*domain.Order, error)
	GetOrder(ctx context.Context, id string) (*domain.Order, error)
}

var _ Service = (*OrderService)(nil)

type CreateOrderRequest struct {
	CustomerID string
	Products   []domain.OrderLineRequest
}

// OrderService validates and commits orders against the injected stores.
type OrderService struct {
	customers ports.CustomerRepository
	products  ports.ProductRepository
	orders    ports.OrderRepository
	tx        ports.Transactor

	conflictRetries int
	tracer          trace.Tracer
}

type Option func(*OrderService)

// WithStockConflictRetries bounds how many times an attempt that lost a race
// on product quantities is validated again from scratch.
func WithStockConflictRetries(n int) Option {
	return func(s *OrderService) {
		if n >= 0 {
			s.conflictRetries = n
		}
	}
}

func NewOrderService(
	customers ports.CustomerRepository,
	products ports.ProductRepository,
	orders ports.OrderRepository,
	tx ports.Transactor,
	opts ...Option,
) *OrderService {
	s := &OrderService{
		customers:       customers,
		products:        products,
		orders:          orders,
		tx:              tx,
		conflictRetries: DefaultStockConflictRetries,
		tracer:          otel.Tracer(tracerName),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CreateOrder runs the whole validation, persistence and inventory sequence
// inside one transaction. Domain failures are returned as the typed errors of
// package domain; store failures are returned as the store produced them.
func (s *OrderService) CreateOrder(ctx context.Context, req CreateOrderRequest) (*domain.Order, error) {
	ctx, span := s.tracer.Start(ctx, "OrderService.CreateOrder", trace.WithAttributes(
		attribute.String("customer.id", req.CustomerID),
		attribute.Int("order.requested_lines", len(req.Products)),
	))
	defer span.End()

	requested, err := normalizeLines(req.Products)
	if err != nil {
		return nil, fail(span, err)
	}

	for attempt := 0; ; attempt++ {
		var order *domain.Order
		err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
			var err error
			order, err = s.createOrder(ctx, req.CustomerID, requested)
			return err
		})
		if err == nil {
			span.SetAttributes(attribute.String("order.id", order.ID))
			slog.InfoContext(ctx, "order created",
				"order_id", order.ID,
				"customer_id", order.CustomerID,
				"lines", len(order.Lines),
				"total", order.Total().String(),
			)
			return order, nil
		}

		if errors.Is(err, domain.ErrStockConflict) && attempt < s.conflictRetries {
			span.AddEvent("stock conflict, revalidating")
			slog.WarnContext(ctx, "stock changed while creating order, revalidating",
				"customer_id", req.CustomerID,
				"attempt", attempt+1,
			)
			continue
		}
		return nil, fail(span, err)
	}
}

func (s *OrderService) GetOrder(ctx context.Context, id string) (*domain.Order, error) {
	return s.orders.FindByID(ctx, id)
}

func (s *OrderService) createOrder(ctx context.Context, customerID string, requested []domain.OrderLineRequest) (*domain.Order, error) {
	customer, found, err := s.customers.FindByID(ctx, customerID)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, &domain.CustomerNotFoundError{CustomerID: customerID}
	}

	ids := productIDs(requested)
	existing, err := s.products.FindAllByID(ctx, ids)
	if err != nil {
		return nil, err
	}
	if len(existing) == 0 {
		return nil, &domain.ProductsNotFoundError{ProductIDs: ids}
	}

	products := newCatalog(existing)
	if missing := products.missing(ids); len(missing) > 0 {
		return nil, &domain.ProductNotFoundError{ProductIDs: missing}
	}
	if shortages := products.shortages(requested); len(shortages) > 0 {
		return nil, &domain.InsufficientStockError{Shortages: shortages}
	}

	lines, err := products.snapshot(requested)
	if err != nil {
		return nil, err
	}

	order, err := s.orders.Create(ctx, domain.OrderDraft{Customer: customer, Lines: lines})
	if err != nil {
		return nil, err
	}

	adjustments, err := products.adjustments(order.Lines)
	if err != nil {
		return nil, err
	}
	if err := s.products.UpdateQuantity(ctx, adjustments); err != nil {
		return nil, err
	}

	return order, nil
}

func fail(span trace.Span, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	if kind := domain.KindOf(err); kind != domain.KindUnknown {
		span.SetAttributes(attribute.String("order.error_kind", string(kind)))
	}
	return err
}

// normalizeLines rejects empty requests and quantities outside
// 1..MaxLineQuantity and merges repeated product ids by summing their
// quantities, keeping first-seen order.
func normalizeLines(lines []domain.OrderLineRequest) ([]domain.OrderLineRequest, error) {
	if len(lines) == 0 {
		return nil, &domain.InvalidOrderRequestError{Reason: "products must not be empty"}
	}

	merged := make([]domain.OrderLineRequest, 0, len(lines))
	position := make(map[string]int, len(lines))
	for _, l := range lines {
		if l.ProductID == "" {
			return nil, &domain.InvalidOrderRequestError{Reason: "product id must not be empty"}
		}
		if l.Quantity <= 0 {
			return nil, &domain.InvalidOrderRequestError{
				Reason: fmt.Sprintf("quantity for product %s must be positive, got %d", l.ProductID, l.Quantity),
			}
		}
		if l.Quantity > MaxLineQuantity {
			return nil, quantityTooLarge(l.ProductID)
		}
		if i, ok := position[l.ProductID]; ok {
			if merged[i].Quantity > MaxLineQuantity-l.Quantity {
				return nil, quantityTooLarge(l.ProductID)
			}
			merged[i].Quantity += l.Quantity
			continue
		}
		position[l.ProductID] = len(merged)
		merged = append(merged, l)
	}
	return merged, nil
}

func quantityTooLarge(productID string) error {
	return &domain.InvalidOrderRequestError{
		Reason: fmt.Sprintf("quantity for product %s must not exceed %d", productID, MaxLineQuantity),
	}
}

func productIDs(lines []domain.OrderLineRequest) []string {
	ids := make([]string, len(lines))
	for i, l := range lines {
		ids[i] = l.ProductID
	}
	return ids
}
