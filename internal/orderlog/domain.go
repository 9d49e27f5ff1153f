// Package orderlog keeps an append-only audit trail of order creation
// attempts.
//
// Each attempt is written as one row carrying its outcome and the trace it
// ran under, so a rejected order can be followed from the log into the
// distributed trace.
package orderlog

import "time"

// Status is the outcome of a single order creation attempt.
type Status string

const (
	// StatusAccepted means the order was persisted and stock decremented.
	StatusAccepted Status = "ACCEPTED"
	// StatusRejected means a domain rule refused the order.
	StatusRejected Status = "REJECTED"
	// StatusFailed means infrastructure failed before an outcome was reached.
	StatusFailed Status = "FAILED"
)

// Entry is a single row in the order_logs table.
type Entry struct {
	// OrderID is empty unless the attempt was accepted.
	OrderID    string
	CustomerID string
	Status     Status

	// ErrorKind is the domain kind of a rejection, empty otherwise.
	ErrorKind    string
	ErrorMessage string

	// Payload is the JSON-serialised request.
	Payload string

	TraceID string
	SpanID  string

	RecordedAt time.Time
}
