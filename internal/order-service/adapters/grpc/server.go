// Package grpc serves the order service over gRPC as orders.v1.OrderService.
//
// Requests and responses are google.protobuf.Struct messages shaped like the
// HTTP JSON bodies, so the service descriptor is declared here instead of
// being generated.
package grpc

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"google.golang.org/genproto/googleapis/rpc/errdetails"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/jcmexdev/ecommerce-orders/internal/order-service/adapters/grpc/mappers"
	"github.com/jcmexdev/ecommerce-orders/internal/order-service/app"
	"github.com/jcmexdev/ecommerce-orders/internal/order-service/domain"
	"github.com/jcmexdev/ecommerce-orders/internal/pkg/interceptors"
)

const (
	ServiceName = "orders.v1.OrderService"

	CreateOrderFullMethod = "/" + ServiceName + "/CreateOrder"
	GetOrderFullMethod    = "/" + ServiceName + "/GetOrder"

	errorDomain = "orders.v1"

	reasonStockConflict = "STOCK_CONFLICT"
)

type OrderServiceServer interface {
	CreateOrder(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error)
	GetOrder(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error)
}

var ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*OrderServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "CreateOrder", Handler: createOrderHandler},
		{MethodName: "GetOrder", Handler: getOrderHandler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "orders/v1/order_service.proto",
}

func RegisterOrderServiceServer(s grpc.ServiceRegistrar, srv OrderServiceServer) {
	s.RegisterService(&ServiceDesc, srv)
}

// NewServer builds a gRPC server with tracing, request-id and logging
// interceptors, the order service and the standard health service.
func NewServer(orders app.Service, opts ...grpc.ServerOption) (*grpc.Server, *health.Server) {
	opts = append([]grpc.ServerOption{
		grpc.StatsHandler(otelgrpc.NewServerHandler()),
		grpc.ChainUnaryInterceptor(
			interceptors.UnaryServerInterceptor(),
			interceptors.LoggingServerInterceptor(),
		),
	}, opts...)

	server := grpc.NewServer(opts...)
	RegisterOrderServiceServer(server, NewOrderServer(orders))

	healthServer := health.NewServer()
	healthServer.SetServingStatus(ServiceName, healthpb.HealthCheckResponse_SERVING)
	healthpb.RegisterHealthServer(server, healthServer)

	return server, healthServer
}

type orderServer struct {
	orders app.Service
}

func NewOrderServer(orders app.Service) OrderServiceServer {
	return &orderServer{orders: orders}
}

func (s *orderServer) CreateOrder(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	req, err := mappers.CreateOrderRequestFromProto(in)
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}

	order, err := s.orders.CreateOrder(ctx, req)
	if err != nil {
		return nil, toStatus(ctx, err)
	}
	return orderResponse(order)
}

func (s *orderServer) GetOrder(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	id, err := mappers.GetOrderRequestFromProto(in)
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}
	if id == "" {
		return nil, status.Error(codes.InvalidArgument, "id is required")
	}

	order, err := s.orders.GetOrder(ctx, id)
	if err != nil {
		return nil, toStatus(ctx, err)
	}
	return orderResponse(order)
}

func orderResponse(order *domain.Order) (*structpb.Struct, error) {
	out, err := mappers.OrderToProto(order)
	if err != nil {
		return nil, status.Errorf(codes.Internal, "encode order: %v", err)
	}
	return out, nil
}

// toStatus maps domain failures to status codes and attaches an ErrorInfo
// whose reason is the domain kind and whose metadata carries the fields
// needed to rebuild the error on the client side.
func toStatus(ctx context.Context, err error) error {
	var (
		code     codes.Code
		reason   string
		metadata map[string]string
	)

	var (
		invalid      *domain.InvalidOrderRequestError
		customer     *domain.CustomerNotFoundError
		insufficient *domain.InsufficientStockError
		notFound     *domain.NotFoundError
	)
	switch kind := domain.KindOf(err); {
	case errors.As(err, &invalid):
		code, reason = codes.InvalidArgument, string(kind)
		metadata = map[string]string{"reason": invalid.Reason}
	case errors.As(err, &customer):
		code, reason = codes.NotFound, string(kind)
		metadata = map[string]string{"customer_id": customer.CustomerID}
	case kind == domain.KindProductsNotFound, kind == domain.KindProductNotFound:
		code, reason = codes.NotFound, string(kind)
		metadata = map[string]string{"product_ids": encodeMetadata(productIDs(err))}
	case errors.As(err, &insufficient):
		code, reason = codes.FailedPrecondition, string(kind)
		metadata = map[string]string{"shortages": encodeMetadata(shortageDetails(insufficient.Shortages))}
	case errors.As(err, &notFound):
		code, reason = codes.NotFound, strings.ToUpper(notFound.Resource)+"_NOT_FOUND"
		metadata = map[string]string{
			"resource": notFound.Resource,
			"key":      notFound.Key,
			"value":    notFound.Value,
		}
	case errors.Is(err, domain.ErrStockConflict):
		code, reason = codes.Aborted, reasonStockConflict
	default:
		slog.ErrorContext(ctx, "order request failed",
			"request_id", interceptors.RequestIDFromContext(ctx),
			"error", err,
		)
		return status.Error(codes.Internal, "internal error")
	}

	st := status.New(code, err.Error())
	if detailed, detailErr := st.WithDetails(&errdetails.ErrorInfo{
		Reason:   reason,
		Domain:   errorDomain,
		Metadata: metadata,
	}); detailErr == nil {
		st = detailed
	}
	return st.Err()
}

func productIDs(err error) []string {
	var missing *domain.ProductNotFoundError
	if errors.As(err, &missing) {
		return missing.ProductIDs
	}
	var none *domain.ProductsNotFoundError
	if errors.As(err, &none) {
		return none.ProductIDs
	}
	return nil
}

func createOrderHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(structpb.Struct)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(OrderServiceServer).CreateOrder(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: CreateOrderFullMethod}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(OrderServiceServer).CreateOrder(ctx, req.(*structpb.Struct))
	}
	return interceptor(ctx, in, info, handler)
}

func getOrderHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(structpb.Struct)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(OrderServiceServer).GetOrder(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: GetOrderFullMethod}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(OrderServiceServer).GetOrder(ctx, req.(*structpb.Struct))
	}
	return interceptor(ctx, in, info, handler)
}
