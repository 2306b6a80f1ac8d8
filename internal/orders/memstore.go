package orders

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"sigflow/internal/model"
	"sigflow/internal/types"

	"github.com/shopspring/decimal"
)

// MemStore mirrors Store's transition semantics in memory, including the
// version precondition. It backs the service when DB_DSN is unset and the
// engine tests.
type MemStore struct {
	mu       sync.Mutex
	seq      int64
	byID     map[string]model.Order
	bySignal map[string]string
	history  map[string][]model.OrderHistory
}

func NewMemStore() *MemStore {
	return &MemStore{
		byID:     make(map[string]model.Order),
		bySignal: make(map[string]string),
		history:  make(map[string][]model.OrderHistory),
	}
}

func (s *MemStore) CreateOrder(_ context.Context, o model.Order) (model.Order, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if id, ok := s.bySignal[o.SignalID]; ok {
		return s.byID[id], false, nil
	}
	s.seq++
	o.ID = fmt.Sprintf("ord-%d", s.seq)
	o.Status = types.OrderStatusPending
	o.Version = 0
	s.byID[o.ID] = o
	s.bySignal[o.SignalID] = o.ID
	return o, true, nil
}

func (s *MemStore) GetOrder(_ context.Context, id string) (model.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.byID[id]
	if !ok {
		return model.Order{}, ErrNotFound
	}
	return o, nil
}

func (s *MemStore) ListOrdersByStatus(_ context.Context, status types.OrderStatus, limit int) ([]model.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.Order
	for _, o := range s.byID {
		if o.Status == status {
			out = append(out, o)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *MemStore) ListOrders(_ context.Context, limit int) ([]model.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]model.Order, 0, len(s.byID))
	for _, o := range s.byID {
		out = append(out, o)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *MemStore) MarkExecuted(_ context.Context, id string, version int64, fill decimal.Decimal, at time.Time) (model.Order, error) {
	return s.transition(id, version, types.OrderStatusPending, func(o *model.Order) {
		o.Status = types.OrderStatusExecuted
		o.FillPrice = &fill
		o.ExecutedAt = &at
	})
}

func (s *MemStore) MarkClosed(_ context.Context, id string, version int64, price decimal.Decimal, at time.Time) (model.Order, error) {
	return s.transition(id, version, types.OrderStatusExecuted, func(o *model.Order) {
		o.Status = types.OrderStatusClosed
		o.ClosedPrice = &price
		o.ClosedAt = &at
	})
}

func (s *MemStore) MarkRejected(_ context.Context, id string, version int64, reason string) (model.Order, error) {
	return s.transition(id, version, types.OrderStatusPending, func(o *model.Order) {
		o.Status = types.OrderStatusRejected
		o.RejectReason = reason
	})
}

func (s *MemStore) transition(id string, version int64, from types.OrderStatus, apply func(*model.Order)) (model.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.byID[id]
	if !ok {
		return model.Order{}, ErrNotFound
	}
	if o.Version != version || o.Status != from {
		return model.Order{}, ErrVersionConflict
	}
	apply(&o)
	o.Version++
	s.byID[id] = o
	return o, nil
}

func (s *MemStore) AppendHistory(_ context.Context, orderID string, status types.OrderStatus, detail string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seq++
	s.history[orderID] = append(s.history[orderID], model.OrderHistory{
		ID:        fmt.Sprintf("hist-%d", s.seq),
		OrderID:   orderID,
		Status:    status,
		Detail:    detail,
		CreatedAt: time.Now().UTC(),
	})
	return nil
}

func (s *MemStore) ListHistory(_ context.Context, orderID string) ([]model.OrderHistory, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]model.OrderHistory, len(s.history[orderID]))
	copy(out, s.history[orderID])
	return out, nil
}
