package grpc

import (
	"context"
	"fmt"

	"google.golang.org/genproto/googleapis/rpc/errdetails"
	"google.golang.org/grpc"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/jcmexdev/ecommerce-orders/internal/order-service/adapters/grpc/mappers"
	"github.com/jcmexdev/ecommerce-orders/internal/order-service/app"
	"github.com/jcmexdev/ecommerce-orders/internal/order-service/domain"
)

var _ app.Service = (*Client)(nil)

// Client calls a remote OrderService. Failures carrying an orders.v1
// ErrorInfo come back as the matching domain error; anything else is the
// gRPC status error wrapped with the method name.
type Client struct {
	cc grpc.ClientConnInterface
}

func NewClient(cc grpc.ClientConnInterface) *Client {
	return &Client{cc: cc}
}

func (c *Client) CreateOrder(ctx context.Context, req app.CreateOrderRequest) (*domain.Order, error) {
	in, err := mappers.CreateOrderRequestToProto(req)
	if err != nil {
		return nil, fmt.Errorf("grpc CreateOrder: encode request: %w", err)
	}

	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, CreateOrderFullMethod, in, out); err != nil {
		return nil, fmt.Errorf("grpc CreateOrder: %w", fromStatus(err))
	}
	return mappers.OrderFromProto(out)
}

func (c *Client) GetOrder(ctx context.Context, id string) (*domain.Order, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, GetOrderFullMethod, mappers.GetOrderRequestToProto(id), out); err != nil {
		return nil, fmt.Errorf("grpc GetOrder: %w", fromStatus(err))
	}
	return mappers.OrderFromProto(out)
}

// fromStatus rebuilds the domain error described by the ErrorInfo detail
// that toStatus attaches. Errors without one are returned unchanged.
func fromStatus(err error) error {
	st, ok := status.FromError(err)
	if !ok {
		return err
	}

	var info *errdetails.ErrorInfo
	for _, d := range st.Details() {
		if i, isInfo := d.(*errdetails.ErrorInfo); isInfo && i.GetDomain() == errorDomain {
			info = i
			break
		}
	}
	if info == nil {
		return err
	}

	md := info.GetMetadata()
	switch info.GetReason() {
	case string(domain.KindInvalidOrderRequest):
		return &domain.InvalidOrderRequestError{Reason: md["reason"]}
	case string(domain.KindCustomerNotFound):
		return &domain.CustomerNotFoundError{CustomerID: md["customer_id"]}
	case string(domain.KindProductsNotFound):
		var ids []string
		if decodeMetadata(md["product_ids"], &ids) != nil {
			return err
		}
		return &domain.ProductsNotFoundError{ProductIDs: ids}
	case string(domain.KindProductNotFound):
		var ids []string
		if decodeMetadata(md["product_ids"], &ids) != nil {
			return err
		}
		return &domain.ProductNotFoundError{ProductIDs: ids}
	case string(domain.KindInsufficientStock):
		var details []shortageDetail
		if decodeMetadata(md["shortages"], &details) != nil {
			return err
		}
		return &domain.InsufficientStockError{Shortages: shortagesFromDetails(details)}
	case reasonStockConflict:
		return fmt.Errorf("%w: %s", domain.ErrStockConflict, st.Message())
	}

	if md["resource"] != "" {
		return &domain.NotFoundError{Resource: md["resource"], Key: md["key"], Value: md["value"]}
	}
	return err
}
