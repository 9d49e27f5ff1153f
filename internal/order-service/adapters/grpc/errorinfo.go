package grpc

import (
	"encoding/json"

	"github.com/jcmexdev/ecommerce-orders/internal/order-service/domain"
)

// ErrorInfo metadata values are strings, so lists travel as JSON arrays.
// Product ids may contain any character, including separators.

type shortageDetail struct {
	ProductID string `json:"product_id"`
	Requested int    `json:"requested"`
	Available int    `json:"available"`
}

func shortageDetails(shortages []domain.StockShortage) []shortageDetail {
	out := make([]shortageDetail, len(shortages))
	for i, s := range shortages {
		out[i] = shortageDetail{ProductID: s.ProductID, Requested: s.Requested, Available: s.Available}
	}
	return out
}

func shortagesFromDetails(details []shortageDetail) []domain.StockShortage {
	out := make([]domain.StockShortage, len(details))
	for i, d := range details {
		out[i] = domain.StockShortage{ProductID: d.ProductID, Requested: d.Requested, Available: d.Available}
	}
	return out
}

func encodeMetadata(v any) string {
	b, err := json.Marshal(v)
	if err != nil {
		return ""
	}
	return string(b)
}

func decodeMetadata(raw string, v any) error {
	return json.Unmarshal([]byte(raw), v)
}
