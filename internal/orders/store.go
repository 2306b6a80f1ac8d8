package orders

import (
	"context"
	"errors"
	"time"

	"sigflow/internal/model"
	"sigflow/internal/types"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

var (
	ErrNotFound = errors.New("order not found")
	// ErrVersionConflict means the stored version or status no longer matches
	// the expected transition precondition.
	ErrVersionConflict = errors.New("order version conflict")
)

const orderColumns = "id, signal_id, side, instrument, entry_price, stop_loss, take_profit, raw_text, status, fill_price, closed_price, reject_reason, version, created_at, executed_at, closed_at"

type Store struct {
	pool *pgxpool.Pool
}

func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// CreateOrder inserts a pending order for a signal. The unique signal_id
// constraint makes redelivered queue messages land on the existing row; the
// returned bool reports whether this call created it.
func (s *Store) CreateOrder(ctx context.Context, o model.Order) (model.Order, bool, error) {
	var id string
	err := s.pool.QueryRow(ctx,
		`insert into orders (signal_id, side, instrument, entry_price, stop_loss, take_profit, raw_text, status, version, created_at)
		values ($1,$2,$3,$4,$5,$6,$7,$8,0,$9)
		on conflict (signal_id) do nothing
		returning id`,
		o.SignalID, string(o.Signal.Side), o.Signal.Instrument, o.Signal.EntryPrice, o.Signal.StopLoss, o.Signal.TakeProfit, o.Signal.RawText, string(types.OrderStatusPending), o.CreatedAt).Scan(&id)
	if err == nil {
		created, getErr := s.GetOrder(ctx, id)
		return created, true, getErr
	}
	if err != pgx.ErrNoRows {
		return model.Order{}, false, err
	}
	existing, err := s.getBySignalID(ctx, o.SignalID)
	return existing, false, err
}

func (s *Store) GetOrder(ctx context.Context, id string) (model.Order, error) {
	return scanOrder(s.pool.QueryRow(ctx, "select "+orderColumns+" from orders where id = $1", id))
}

func (s *Store) getBySignalID(ctx context.Context, signalID string) (model.Order, error) {
	return scanOrder(s.pool.QueryRow(ctx, "select "+orderColumns+" from orders where signal_id = $1", signalID))
}

func (s *Store) ListOrdersByStatus(ctx context.Context, status types.OrderStatus, limit int) ([]model.Order, error) {
	rows, err := s.pool.Query(ctx, "select "+orderColumns+" from orders where status = $1 order by created_at limit $2", string(status), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanAll(rows)
}

func (s *Store) ListOrders(ctx context.Context, limit int) ([]model.Order, error) {
	rows, err := s.pool.Query(ctx, "select "+orderColumns+" from orders order by created_at desc limit $1", limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanAll(rows)
}

// MarkExecuted applies PENDING -> EXECUTED guarded by the version check. A
// zero-row update means another writer got there first.
func (s *Store) MarkExecuted(ctx context.Context, id string, version int64, fill decimal.Decimal, at time.Time) (model.Order, error) {
	return s.transition(ctx,
		`update orders set status=$4, fill_price=$5, executed_at=$6, version=version+1
		where id=$1 and version=$2 and status=$3
		returning `+orderColumns,
		id, version, string(types.OrderStatusPending), string(types.OrderStatusExecuted), fill, at)
}

// MarkClosed applies EXECUTED -> CLOSED guarded by the version check.
func (s *Store) MarkClosed(ctx context.Context, id string, version int64, price decimal.Decimal, at time.Time) (model.Order, error) {
	return s.transition(ctx,
		`update orders set status=$4, closed_price=$5, closed_at=$6, version=version+1
		where id=$1 and version=$2 and status=$3
		returning `+orderColumns,
		id, version, string(types.OrderStatusExecuted), string(types.OrderStatusClosed), price, at)
}

// MarkRejected applies PENDING -> REJECTED guarded by the version check.
func (s *Store) MarkRejected(ctx context.Context, id string, version int64, reason string) (model.Order, error) {
	return s.transition(ctx,
		`update orders set status=$4, reject_reason=$5, version=version+1
		where id=$1 and version=$2 and status=$3
		returning `+orderColumns,
		id, version, string(types.OrderStatusPending), string(types.OrderStatusRejected), reason)
}

func (s *Store) transition(ctx context.Context, sql string, args ...any) (model.Order, error) {
	o, err := scanOrder(s.pool.QueryRow(ctx, sql, args...))
	if err == ErrNotFound {
		return model.Order{}, ErrVersionConflict
	}
	return o, err
}

func (s *Store) AppendHistory(ctx context.Context, orderID string, status types.OrderStatus, detail string) error {
	_, err := s.pool.Exec(ctx, "insert into order_history (order_id, status, detail, created_at) values ($1,$2,$3,$4)", orderID, string(status), detail, time.Now().UTC())
	return err
}

func (s *Store) ListHistory(ctx context.Context, orderID string) ([]model.OrderHistory, error) {
	rows, err := s.pool.Query(ctx, "select id, order_id, status, detail, created_at from order_history where order_id = $1 order by created_at, id", orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.OrderHistory
	for rows.Next() {
		var h model.OrderHistory
		var status string
		if err := rows.Scan(&h.ID, &h.OrderID, &status, &h.Detail, &h.CreatedAt); err != nil {
			return nil, err
		}
		h.Status = types.OrderStatus(status)
		out = append(out, h)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanOrder(row rowScanner) (model.Order, error) {
	var o model.Order
	var side, status string
	err := row.Scan(&o.ID, &o.SignalID, &side, &o.Signal.Instrument, &o.Signal.EntryPrice, &o.Signal.StopLoss, &o.Signal.TakeProfit, &o.Signal.RawText, &status, &o.FillPrice, &o.ClosedPrice, &o.RejectReason, &o.Version, &o.CreatedAt, &o.ExecutedAt, &o.ClosedAt)
	if err == pgx.ErrNoRows {
		return o, ErrNotFound
	}
	if err != nil {
		return o, err
	}
	o.Signal.Side = types.Side(side)
	o.Status = types.OrderStatus(status)
	return o, nil
}

func scanAll(rows pgx.Rows) ([]model.Order, error) {
	var out []model.Order
	for rows.Next() {
		var o model.Order
		var side, status string
		if err := rows.Scan(&o.ID, &o.SignalID, &side, &o.Signal.Instrument, &o.Signal.EntryPrice, &o.Signal.StopLoss, &o.Signal.TakeProfit, &o.Signal.RawText, &status, &o.FillPrice, &o.ClosedPrice, &o.RejectReason, &o.Version, &o.CreatedAt, &o.ExecutedAt, &o.ClosedAt); err != nil {
			return nil, err
		}
		o.Signal.Side = types.Side(side)
		o.Status = types.OrderStatus(status)
		out = append(out, o)
	}
	return out, rows.Err()
}
