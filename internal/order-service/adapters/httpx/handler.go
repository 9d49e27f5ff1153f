package httpx

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/jcmexdev/ecommerce-orders/internal/order-service/app"
	"github.com/jcmexdev/ecommerce-orders/internal/order-service/domain"
	"github.com/jcmexdev/ecommerce-orders/internal/orderlog"
	"github.com/jcmexdev/ecommerce-orders/internal/pkg/interceptors"
)

const (
	defaultOrderLogLimit = 50
	maxOrderLogLimit     = 500
)

// OrderLogReader lists the audit trail of a customer's order attempts.
type OrderLogReader interface {
	ListByCustomer(ctx context.Context, customerID string, limit int) ([]orderlog.Entry, error)
}

// Handler exposes order creation and lookup over HTTP.
type Handler struct {
	orders    app.Service
	orderLogs OrderLogReader
}

type HandlerOption func(*Handler)

// WithOrderLog enables GET /customers/{id}/order-logs.
func WithOrderLog(r OrderLogReader) HandlerOption {
	return func(h *Handler) {
		h.orderLogs = r
	}
}

func NewHandler(orders app.Service, opts ...HandlerOption) *Handler {
	h := &Handler{orders: orders}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

func (h *Handler) CreateOrder(w http.ResponseWriter, r *http.Request) {
	var req CreateOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", err.Error(), nil)
		return
	}

	lines := make([]domain.OrderLineRequest, 0, len(req.Products))
	for _, p := range req.Products {
		lines = append(lines, domain.OrderLineRequest{ProductID: p.ID, Quantity: p.Quantity})
	}

	slog.InfoContext(r.Context(), "creating order",
		"request_id", interceptors.RequestIDFromContext(r.Context()),
		"customer_id", req.CustomerID,
	)

	order, err := h.orders.CreateOrder(r.Context(), app.CreateOrderRequest{
		CustomerID: req.CustomerID,
		Products:   lines,
	})
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, mapOrderToResponse(order))
}

func (h *Handler) GetOrderByID(w http.ResponseWriter, r *http.Request) {
	orderID := chi.URLParam(r, "id")
	if orderID == "" {
		writeError(w, http.StatusBadRequest, "order_id_required", "", nil)
		return
	}

	order, err := h.orders.GetOrder(r.Context(), orderID)
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, mapOrderToResponse(order))
}

// ListOrderLogs returns a customer's order attempts, newest first. The limit
// query parameter defaults to 50 and is capped at 500.
func (h *Handler) ListOrderLogs(w http.ResponseWriter, r *http.Request) {
	if h.orderLogs == nil {
		writeError(w, http.StatusNotFound, "order_log_disabled", "the order log is not enabled", nil)
		return
	}

	limit := defaultOrderLogLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, "invalid_limit", "limit must be a positive integer", nil)
			return
		}
		limit = min(n, maxOrderLogLimit)
	}

	customerID := chi.URLParam(r, "id")
	entries, err := h.orderLogs.ListByCustomer(r.Context(), customerID, limit)
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}

	out := make([]OrderLogResponse, len(entries))
	for i, e := range entries {
		out[i] = OrderLogResponse{
			OrderID:      e.OrderID,
			CustomerID:   e.CustomerID,
			Status:       string(e.Status),
			ErrorKind:    e.ErrorKind,
			ErrorMessage: e.ErrorMessage,
			TraceID:      e.TraceID,
			RecordedAt:   e.RecordedAt,
		}
	}
	writeJSON(w, http.StatusOK, OrderLogListResponse{Entries: out})
}

func (h *Handler) Health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// writeDomainError renders typed domain failures with their own status and
// hides everything else behind a 500.
func (h *Handler) writeDomainError(w http.ResponseWriter, r *http.Request, err error) {
	if kind := domain.KindOf(err); kind != domain.KindUnknown {
		status := http.StatusNotFound
		var details any

		switch kind {
		case domain.KindInvalidOrderRequest:
			status = http.StatusBadRequest
		case domain.KindInsufficientStock:
			status = http.StatusConflict
			var insufficient *domain.InsufficientStockError
			if errors.As(err, &insufficient) {
				details = mapShortages(insufficient.Shortages)
			}
		case domain.KindProductNotFound:
			var notFound *domain.ProductNotFoundError
			if errors.As(err, &notFound) {
				details = map[string][]string{"product_ids": notFound.ProductIDs}
			}
		case domain.KindProductsNotFound:
			var notFound *domain.ProductsNotFoundError
			if errors.As(err, &notFound) {
				details = map[string][]string{"product_ids": notFound.ProductIDs}
			}
		}

		writeError(w, status, strings.ToLower(string(kind)), err.Error(), details)
		return
	}

	var notFound *domain.NotFoundError
	switch {
	case errors.As(err, &notFound):
		writeError(w, http.StatusNotFound, notFound.Resource+"_not_found", err.Error(), nil)
	case errors.Is(err, domain.ErrStockConflict):
		writeError(w, http.StatusConflict, "stock_conflict", "stock changed concurrently, retry the order", nil)
	default:
		slog.ErrorContext(r.Context(), "order request failed",
			"request_id", interceptors.RequestIDFromContext(r.Context()),
			"error", err,
		)
		writeError(w, http.StatusInternalServerError, "internal_error", "internal server error", nil)
	}
}

func mapOrderToResponse(order *domain.Order) OrderResponse {
	lines := make([]OrderLineResponse, len(order.Lines))
	for i, l := range order.Lines {
		lines[i] = OrderLineResponse{
			ProductID: l.ProductID,
			Quantity:  l.Quantity,
			Price:     l.Price,
		}
	}
	return OrderResponse{
		ID:            order.ID,
		CustomerID:    order.CustomerID,
		Total:         order.Total(),
		OrderProducts: lines,
		CreatedAt:     order.CreatedAt,
	}
}

func mapShortages(shortages []domain.StockShortage) []ShortageDetail {
	out := make([]ShortageDetail, len(shortages))
	for i, s := range shortages {
		out[i] = ShortageDetail{ProductID: s.ProductID, Requested: s.Requested, Available: s.Available}
	}
	return out
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, msg string, details any) {
	writeJSON(w, status, ErrorResponse{
		Error:   code,
		Message: msg,
		Details: details,
	})
}
