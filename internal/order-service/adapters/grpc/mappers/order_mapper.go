// Package mappers converts between the Struct messages of the OrderService
// gRPC API and the order domain.
package mappers

import (
	"fmt"
	"math"
	"time"

	"github.com/shopspring/decimal"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/jcmexdev/ecommerce-orders/internal/order-service/app"
	"github.com/jcmexdev/ecommerce-orders/internal/order-service/domain"
)

// MalformedMessageError reports a Struct that does not have the expected
// shape.
type MalformedMessageError struct {
	Field  string
	Reason string
}

func (e *MalformedMessageError) Error() string {
	return fmt.Sprintf("malformed message: %s %s", e.Field, e.Reason)
}

func CreateOrderRequestFromProto(in *structpb.Struct) (app.CreateOrderRequest, error) {
	fields := in.GetFields()

	customerID, err := optionalString(fields, "customer_id")
	if err != nil {
		return app.CreateOrderRequest{}, err
	}

	var products []*structpb.Value
	if v, ok := fields["products"]; ok {
		list, isList := v.GetKind().(*structpb.Value_ListValue)
		if !isList {
			return app.CreateOrderRequest{}, &MalformedMessageError{Field: "products", Reason: "must be a list"}
		}
		products = list.ListValue.GetValues()
	}

	lines := make([]domain.OrderLineRequest, 0, len(products))
	for i, v := range products {
		item := v.GetStructValue()
		if item == nil {
			return app.CreateOrderRequest{}, &MalformedMessageError{Field: fmt.Sprintf("products[%d]", i), Reason: "must be an object"}
		}

		id, err := optionalString(item.GetFields(), "id")
		if err != nil {
			return app.CreateOrderRequest{}, err
		}
		quantity, err := integer(item.GetFields(), "quantity")
		if err != nil {
			return app.CreateOrderRequest{}, err
		}
		lines = append(lines, domain.OrderLineRequest{ProductID: id, Quantity: quantity})
	}

	return app.CreateOrderRequest{CustomerID: customerID, Products: lines}, nil
}

func CreateOrderRequestToProto(req app.CreateOrderRequest) (*structpb.Struct, error) {
	products := make([]any, len(req.Products))
	for i, l := range req.Products {
		products[i] = map[string]any{"id": l.ProductID, "quantity": l.Quantity}
	}
	return structpb.NewStruct(map[string]any{
		"customer_id": req.CustomerID,
		"products":    products,
	})
}

func GetOrderRequestFromProto(in *structpb.Struct) (string, error) {
	return optionalString(in.GetFields(), "id")
}

func GetOrderRequestToProto(id string) *structpb.Struct {
	return &structpb.Struct{Fields: map[string]*structpb.Value{"id": structpb.NewStringValue(id)}}
}

// OrderToProto renders money as decimal strings so no precision is lost.
func OrderToProto(o *domain.Order) (*structpb.Struct, error) {
	lines := make([]any, len(o.Lines))
	for i, l := range o.Lines {
		lines[i] = map[string]any{
			"product_id": l.ProductID,
			"quantity":   l.Quantity,
			"price":      l.Price.String(),
		}
	}
	return structpb.NewStruct(map[string]any{
		"id":             o.ID,
		"customer_id":    o.CustomerID,
		"total":          o.Total().String(),
		"order_products": lines,
		"created_at":     o.CreatedAt.UTC().Format(time.RFC3339Nano),
	})
}

func OrderFromProto(in *structpb.Struct) (*domain.Order, error) {
	fields := in.GetFields()

	createdAt, err := time.Parse(time.RFC3339Nano, fields["created_at"].GetStringValue())
	if err != nil {
		return nil, &MalformedMessageError{Field: "created_at", Reason: err.Error()}
	}

	order := &domain.Order{
		ID:         fields["id"].GetStringValue(),
		CustomerID: fields["customer_id"].GetStringValue(),
		CreatedAt:  createdAt,
	}

	for i, v := range fields["order_products"].GetListValue().GetValues() {
		item := v.GetStructValue().GetFields()

		price, err := decimal.NewFromString(item["price"].GetStringValue())
		if err != nil {
			return nil, &MalformedMessageError{Field: fmt.Sprintf("order_products[%d].price", i), Reason: err.Error()}
		}
		quantity, err := integer(item, "quantity")
		if err != nil {
			return nil, err
		}
		order.Lines = append(order.Lines, domain.OrderLine{
			ProductID: item["product_id"].GetStringValue(),
			Quantity:  quantity,
			Price:     price,
		})
	}
	return order, nil
}

func optionalString(fields map[string]*structpb.Value, name string) (string, error) {
	v, ok := fields[name]
	if !ok {
		return "", nil
	}
	s, isString := v.GetKind().(*structpb.Value_StringValue)
	if !isString {
		return "", &MalformedMessageError{Field: name, Reason: "must be a string"}
	}
	return s.StringValue, nil
}

func integer(fields map[string]*structpb.Value, name string) (int, error) {
	v, ok := fields[name]
	if !ok {
		return 0, nil
	}
	n, isNumber := v.GetKind().(*structpb.Value_NumberValue)
	if !isNumber {
		return 0, &MalformedMessageError{Field: name, Reason: "must be a number"}
	}
	if n.NumberValue != math.Trunc(n.NumberValue) || math.Abs(n.NumberValue) > math.MaxInt32 {
		return 0, &MalformedMessageError{Field: name, Reason: "must be a whole number"}
	}
	return int(n.NumberValue), nil
}
