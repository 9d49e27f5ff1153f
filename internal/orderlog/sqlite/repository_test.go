package sqlite

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jcmexdev/ecommerce-orders/internal/orderlog"
)

func openRepository(t *testing.T) *Repository {
	t.Helper()
	repo, err := Open(filepath.Join(t.TempDir(), "order_log.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = repo.Close() })
	return repo
}

func TestRepository_SaveAndList(t *testing.T) {
	repo := openRepository(t)
	ctx := context.Background()
	base := time.Date(2026, 5, 6, 7, 8, 9, 0, time.UTC)

	entries := []*orderlog.Entry{
		{
			OrderID:    "order-1",
			CustomerID: "C1",
			Status:     orderlog.StatusAccepted,
			Payload:    `{"customer_id":"C1"}`,
			TraceID:    "4bf92f3577b34da6a3ce929d0e0e4736",
			SpanID:     "00f067aa0ba902b7",
			RecordedAt: base,
		},
		{
			CustomerID:   "C1",
			Status:       orderlog.StatusRejected,
			ErrorKind:    "INSUFFICIENT_STOCK",
			ErrorMessage: "the quantity 5 is not available for P2",
			RecordedAt:   base.Add(time.Second),
		},
		{
			CustomerID: "C2",
			Status:     orderlog.StatusFailed,
			RecordedAt: base.Add(2 * time.Second),
		},
	}
	for _, e := range entries {
		require.NoError(t, repo.Save(ctx, e))
	}

	listed, err := repo.ListByCustomer(ctx, "C1", 10)
	require.NoError(t, err)
	require.Len(t, listed, 2)

	assert.Equal(t, orderlog.StatusRejected, listed[0].Status)
	assert.Equal(t, "INSUFFICIENT_STOCK", listed[0].ErrorKind)
	assert.Empty(t, listed[0].Payload)

	assert.Equal(t, *entries[0], listed[1])
}

func TestRepository_ListHonoursLimit(t *testing.T) {
	repo := openRepository(t)
	ctx := context.Background()

	for i := range 3 {
		require.NoError(t, repo.Save(ctx, &orderlog.Entry{
			CustomerID: "C1",
			Status:     orderlog.StatusAccepted,
			OrderID:    string(rune('a' + i)),
			RecordedAt: time.Now().UTC(),
		}))
	}

	listed, err := repo.ListByCustomer(ctx, "C1", 2)
	require.NoError(t, err)
	assert.Len(t, listed, 2)
}

func TestRepository_ListUnknownCustomer(t *testing.T) {
	listed, err := openRepository(t).ListByCustomer(context.Background(), "nobody", 5)

	require.NoError(t, err)
	assert.Empty(t, listed)
}
