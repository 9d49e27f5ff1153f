package orderlog

import "context"

// Repository persists audit entries.
type Repository interface {
	// Save appends a row; entries are never updated.
	Save(ctx context.Context, entry *Entry) error
	// ListByCustomer returns a customer's entries, newest first.
	ListByCustomer(ctx context.Context, customerID string, limit int) ([]Entry, error)
}
