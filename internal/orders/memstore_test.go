package orders

import (
	"context"
	"testing"
	"time"

	"sigflow/internal/model"
	"sigflow/internal/types"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateOrderDeduplicatesBySignal(t *testing.T) {
	s := NewMemStore()
	ctx := context.Background()

	first, created, err := s.CreateOrder(ctx, model.Order{SignalID: "sig-1", CreatedAt: time.Now()})
	require.NoError(t, err)
	require.True(t, created)
	assert.Equal(t, types.OrderStatusPending, first.Status)
	assert.EqualValues(t, 0, first.Version)

	second, created, err := s.CreateOrder(ctx, model.Order{SignalID: "sig-1", CreatedAt: time.Now()})
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, first.ID, second.ID)
}

func TestTransitionsBumpVersion(t *testing.T) {
	s := NewMemStore()
	ctx := context.Background()
	o, _, err := s.CreateOrder(ctx, model.Order{SignalID: "sig-1"})
	require.NoError(t, err)

	fill := decimal.RequireFromString("1.0850")
	executed, err := s.MarkExecuted(ctx, o.ID, o.Version, fill, time.Now())
	require.NoError(t, err)
	assert.Equal(t, types.OrderStatusExecuted, executed.Status)
	assert.EqualValues(t, 1, executed.Version)
	require.NotNil(t, executed.FillPrice)

	closed, err := s.MarkClosed(ctx, o.ID, executed.Version, decimal.RequireFromString("1.0900"), time.Now())
	require.NoError(t, err)
	assert.Equal(t, types.OrderStatusClosed, closed.Status)
	assert.EqualValues(t, 2, closed.Version)
}

func TestTransitionStaleVersionConflicts(t *testing.T) {
	s := NewMemStore()
	ctx := context.Background()
	o, _, err := s.CreateOrder(ctx, model.Order{SignalID: "sig-1"})
	require.NoError(t, err)

	fill := decimal.RequireFromString("1.0850")
	_, err = s.MarkExecuted(ctx, o.ID, o.Version, fill, time.Now())
	require.NoError(t, err)

	// Second writer still holds version 0.
	_, err = s.MarkExecuted(ctx, o.ID, o.Version, fill, time.Now())
	assert.ErrorIs(t, err, ErrVersionConflict)
}

func TestTransitionWrongStatusConflicts(t *testing.T) {
	s := NewMemStore()
	ctx := context.Background()
	o, _, err := s.CreateOrder(ctx, model.Order{SignalID: "sig-1"})
	require.NoError(t, err)

	// Closing a pending order must fail even with the right version.
	_, err = s.MarkClosed(ctx, o.ID, o.Version, decimal.RequireFromString("1.09"), time.Now())
	assert.ErrorIs(t, err, ErrVersionConflict)
}

func TestMarkRejected(t *testing.T) {
	s := NewMemStore()
	ctx := context.Background()
	o, _, err := s.CreateOrder(ctx, model.Order{SignalID: "sig-1"})
	require.NoError(t, err)

	rejected, err := s.MarkRejected(ctx, o.ID, o.Version, "instrument_unavailable: no venue for DOGEUSD")
	require.NoError(t, err)
	assert.Equal(t, types.OrderStatusRejected, rejected.Status)
	assert.NotEmpty(t, rejected.RejectReason)
}

func TestGetOrderNotFound(t *testing.T) {
	s := NewMemStore()
	_, err := s.GetOrder(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestListOrdersByStatus(t *testing.T) {
	s := NewMemStore()
	ctx := context.Background()
	base := time.Now()
	for i := 0; i < 3; i++ {
		_, _, err := s.CreateOrder(ctx, model.Order{
			SignalID:  "sig-" + string(rune('a'+i)),
			CreatedAt: base.Add(time.Duration(i) * time.Second),
		})
		require.NoError(t, err)
	}
	first, err := s.GetOrder(ctx, "ord-1")
	require.NoError(t, err)
	_, err = s.MarkExecuted(ctx, first.ID, first.Version, decimal.RequireFromString("1.08"), time.Now())
	require.NoError(t, err)

	pending, err := s.ListOrdersByStatus(ctx, types.OrderStatusPending, 10)
	require.NoError(t, err)
	assert.Len(t, pending, 2)

	executed, err := s.ListOrdersByStatus(ctx, types.OrderStatusExecuted, 10)
	require.NoError(t, err)
	require.Len(t, executed, 1)
	assert.Equal(t, first.ID, executed[0].ID)
}

func TestHistoryAppendsInOrder(t *testing.T) {
	s := NewMemStore()
	ctx := context.Background()
	o, _, err := s.CreateOrder(ctx, model.Order{SignalID: "sig-1"})
	require.NoError(t, err)

	require.NoError(t, s.AppendHistory(ctx, o.ID, types.OrderStatusPending, "order created"))
	require.NoError(t, s.AppendHistory(ctx, o.ID, types.OrderStatusExecuted, "filled at 1.0850"))

	hist, err := s.ListHistory(ctx, o.ID)
	require.NoError(t, err)
	require.Len(t, hist, 2)
	assert.Equal(t, types.OrderStatusPending, hist[0].Status)
	assert.Equal(t, types.OrderStatusExecuted, hist[1].Status)
}
