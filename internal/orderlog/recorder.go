package orderlog

import (
	"context"
	"log/slog"

	"github.com/jcmexdev/ecommerce-orders/internal/order-service/app"
	"github.com/jcmexdev/ecommerce-orders/internal/order-service/domain"
)

var _ app.Service = (*Recorder)(nil)

// Recorder writes one audit entry per CreateOrder call made through it. A
// failing repository is logged and never changes the result of the call.
type Recorder struct {
	next app.Service
	repo Repository
}

func NewRecorder(next app.Service, repo Repository) *Recorder {
	return &Recorder{next: next, repo: repo}
}

func (r *Recorder) CreateOrder(ctx context.Context, req app.CreateOrderRequest) (*domain.Order, error) {
	order, err := r.next.CreateOrder(ctx, req)

	entry := NewEntry(ctx, req, order, err)
	if saveErr := r.repo.Save(context.WithoutCancel(ctx), entry); saveErr != nil {
		slog.ErrorContext(ctx, "failed to record order attempt",
			"customer_id", req.CustomerID,
			"status", string(entry.Status),
			"error", saveErr,
		)
	}

	return order, err
}

func (r *Recorder) GetOrder(ctx context.Context, id string) (*domain.Order, error) {
	return r.next.GetOrder(ctx, id)
}
