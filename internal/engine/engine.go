// Package engine owns the order lifecycle state machine: it drains the
// ingestion queue with a bounded worker pool, drives PENDING -> EXECUTED
// through the broker, and closes executed orders when the close seam fires.
package engine

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"sigflow/internal/broker"
	"sigflow/internal/events"
	"sigflow/internal/model"
	"sigflow/internal/orders"
	"sigflow/internal/queue"
	"sigflow/internal/signal"
	"sigflow/internal/types"

	"github.com/shopspring/decimal"
)

type Store interface {
	CreateOrder(ctx context.Context, o model.Order) (model.Order, bool, error)
	GetOrder(ctx context.Context, id string) (model.Order, error)
	ListOrdersByStatus(ctx context.Context, status types.OrderStatus, limit int) ([]model.Order, error)
	MarkExecuted(ctx context.Context, id string, version int64, fill decimal.Decimal, at time.Time) (model.Order, error)
	MarkClosed(ctx context.Context, id string, version int64, price decimal.Decimal, at time.Time) (model.Order, error)
	MarkRejected(ctx context.Context, id string, version int64, reason string) (model.Order, error)
	AppendHistory(ctx context.Context, orderID string, status types.OrderStatus, detail string) error
}

type Publisher interface {
	Publish(topic events.Topic, evt events.Event)
}

// SignalStore updates the audit row of the raw webhook signal as its order
// progresses. Optional.
type SignalStore interface {
	SetStatus(ctx context.Context, id string, status types.SignalStatus, errMsg string) error
}

// Envelope is the queue payload carrying one validated signal.
type Envelope struct {
	SignalID string       `json:"signal_id"`
	Signal   model.Signal `json:"signal"`
}

type Config struct {
	Workers       int
	CloseInterval time.Duration
	// Quote prices manual closes. Optional; the fill price is used when nil
	// or failing.
	Quote signal.QuoteFunc
}

type Engine struct {
	store   Store
	queue   queue.Queue
	broker  broker.Adapter
	pub     Publisher
	signals SignalStore
	cfg     Config

	locks  *keyedLocks
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func New(store Store, q queue.Queue, b broker.Adapter, pub Publisher, signals SignalStore, cfg Config) *Engine {
	if cfg.Workers <= 0 {
		cfg.Workers = 4
	}
	if cfg.CloseInterval <= 0 {
		cfg.CloseInterval = 2 * time.Second
	}
	return &Engine{store: store, queue: q, broker: b, pub: pub, signals: signals, cfg: cfg, locks: newKeyedLocks()}
}

// Start launches the worker pool and the close evaluator.
func (e *Engine) Start(ctx context.Context) {
	ctx, e.cancel = context.WithCancel(ctx)
	for i := 0; i < e.cfg.Workers; i++ {
		e.wg.Add(1)
		go e.runWorker(ctx)
	}
	e.wg.Add(1)
	go e.runCloseEvaluator(ctx)
}

// Stop halts dequeueing and waits up to timeout for in-flight items to
// finish. Items still unacked after that come back through the queue's
// visibility timeout.
func (e *Engine) Stop(timeout time.Duration) {
	if e.cancel != nil {
		e.cancel()
	}
	done := make(chan struct{})
	go func() {
		e.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(timeout):
		log.Printf("engine: drain timeout after %s, abandoning in-flight items", timeout)
	}
}

const dequeueRetryDelay = time.Second

func (e *Engine) runWorker(ctx context.Context) {
	defer e.wg.Done()
	for {
		msg, err := e.queue.Dequeue(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			// Transient queue failure. The worker must survive it, or a few
			// DB blips would shrink the pool until nothing drains the queue.
			log.Printf("engine: dequeue failed, retrying in %s: %v", dequeueRetryDelay, err)
			select {
			case <-ctx.Done():
				return
			case <-time.After(dequeueRetryDelay):
			}
			continue
		}
		// In-flight work completes even if shutdown started mid-message.
		workCtx := context.WithoutCancel(ctx)
		if err := e.process(workCtx, msg); err != nil {
			log.Printf("engine: processing message %s failed, redelivering: %v", msg.ID, err)
			if err := e.queue.Nack(workCtx, msg.ID); err != nil {
				log.Printf("engine: nack %s: %v", msg.ID, err)
			}
			continue
		}
		if err := e.queue.Ack(workCtx, msg.ID); err != nil {
			log.Printf("engine: ack %s: %v", msg.ID, err)
		}
	}
}

// process takes one queued signal through PENDING and on to EXECUTED or
// REJECTED. A returned error means the message should be redelivered;
// duplicate deliveries return nil so the message is acked.
func (e *Engine) process(ctx context.Context, msg *queue.Message) error {
	var env Envelope
	if err := json.Unmarshal(msg.Payload, &env); err != nil {
		// A payload that cannot be decoded will never succeed; drop it.
		log.Printf("engine: undecodable payload on message %s: %v", msg.ID, err)
		return nil
	}

	o, created, err := e.store.CreateOrder(ctx, model.Order{
		SignalID:  env.SignalID,
		Signal:    env.Signal,
		CreatedAt: time.Now().UTC(),
	})
	if err != nil {
		return fmt.Errorf("create order: %w", err)
	}

	e.locks.lock(o.ID)
	defer e.locks.unlock(o.ID)

	if !created {
		// Redelivery. Only resume if the first delivery died before the
		// terminal transition.
		if o.Status != types.OrderStatusPending {
			log.Printf("engine: duplicate delivery for order %s (status %s), no-op", o.ID, o.Status)
			return nil
		}
	} else {
		e.setSignalStatus(ctx, env.SignalID, types.SignalStatusProcessing, "")
		e.appendHistory(ctx, o.ID, types.OrderStatusPending, "order created")
		e.pub.Publish(events.TopicOrders, events.Event{
			Type:    "order.pending",
			OrderID: o.ID,
			Status:  string(types.OrderStatusPending),
			Data: map[string]any{
				"instrument":  o.Signal.Instrument,
				"side":        o.Signal.Side,
				"entry_price": o.Signal.EntryPrice,
			},
			TS: time.Now().UnixMilli(),
		})
	}

	fill, err := e.broker.Execute(ctx, o)
	if err != nil {
		var bErr *broker.BrokerError
		if errors.As(err, &bErr) {
			return e.reject(ctx, o, bErr)
		}
		return fmt.Errorf("broker execute: %w", err)
	}

	updated, err := e.applyTransition(ctx, o, func(cur model.Order) (model.Order, error) {
		return e.store.MarkExecuted(ctx, cur.ID, cur.Version, fill.Price, fill.At)
	}, types.OrderStatusExecuted)
	if err != nil {
		return err
	}
	if updated == nil {
		return nil // duplicate, already executed
	}

	e.setSignalStatus(ctx, env.SignalID, types.SignalStatusProcessed, "")
	e.appendHistory(ctx, o.ID, types.OrderStatusExecuted, "filled at "+fill.Price.String())
	e.pub.Publish(events.TopicOrders, events.Event{
		Type:    "order.executed",
		OrderID: o.ID,
		Status:  string(types.OrderStatusExecuted),
		Data:    map[string]any{"fill_price": fill.Price},
		TS:      time.Now().UnixMilli(),
	})
	return nil
}

func (e *Engine) reject(ctx context.Context, o model.Order, bErr *broker.BrokerError) error {
	updated, err := e.applyTransition(ctx, o, func(cur model.Order) (model.Order, error) {
		return e.store.MarkRejected(ctx, cur.ID, cur.Version, bErr.Error())
	}, types.OrderStatusRejected)
	if err != nil {
		return err
	}
	if updated == nil {
		return nil
	}
	e.setSignalStatus(ctx, o.SignalID, types.SignalStatusFailed, bErr.Error())
	e.appendHistory(ctx, o.ID, types.OrderStatusRejected, bErr.Error())
	e.pub.Publish(events.TopicOrders, events.Event{
		Type:    "order.rejected",
		OrderID: o.ID,
		Status:  string(types.OrderStatusRejected),
		Reason:  bErr.Error(),
		TS:      time.Now().UnixMilli(),
	})
	return nil
}

// applyTransition runs the guarded store update. On a version conflict it
// re-reads once: if the order already reached target the caller sees a
// duplicate (nil, nil); otherwise one retry from the fresh state, then the
// attempt is discarded.
func (e *Engine) applyTransition(ctx context.Context, o model.Order, apply func(model.Order) (model.Order, error), target types.OrderStatus) (*model.Order, error) {
	updated, err := apply(o)
	if err == nil {
		return &updated, nil
	}
	if !errors.Is(err, orders.ErrVersionConflict) {
		return nil, err
	}
	cur, err := e.store.GetOrder(ctx, o.ID)
	if err != nil {
		return nil, err
	}
	if cur.Status == target {
		log.Printf("engine: order %s already %s, duplicate transition dropped", o.ID, target)
		return nil, nil
	}
	updated, err = apply(cur)
	if err == nil {
		return &updated, nil
	}
	if errors.Is(err, orders.ErrVersionConflict) {
		log.Printf("engine: order %s still conflicting after re-read, dropping transition to %s", o.ID, target)
		return nil, nil
	}
	return nil, err
}

func (e *Engine) runCloseEvaluator(ctx context.Context) {
	defer e.wg.Done()
	ticker := time.NewTicker(e.cfg.CloseInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			e.evaluateCloses(context.WithoutCancel(ctx))
		}
	}
}

func (e *Engine) evaluateCloses(ctx context.Context) {
	open, err := e.store.ListOrdersByStatus(ctx, types.OrderStatusExecuted, 500)
	if err != nil {
		log.Printf("engine: listing executed orders: %v", err)
		return
	}
	for _, o := range open {
		cls, err := e.broker.SimulateClose(ctx, o)
		if err != nil {
			log.Printf("engine: simulate close for %s: %v", o.ID, err)
			continue
		}
		if cls == nil {
			continue
		}
		if err := e.close(ctx, o.ID, cls.Price, cls.Reason); err != nil {
			log.Printf("engine: closing order %s: %v", o.ID, err)
		}
	}
}

// CloseOrder closes an executed order on an external command, at the current
// simulated quote when one is available.
func (e *Engine) CloseOrder(ctx context.Context, orderID string) (model.Order, error) {
	o, err := e.store.GetOrder(ctx, orderID)
	if err != nil {
		return model.Order{}, err
	}
	price := decimal.Decimal{}
	if o.FillPrice != nil {
		price = *o.FillPrice
	}
	if e.cfg.Quote != nil {
		if q, err := e.cfg.Quote(o.Signal.Instrument); err == nil {
			price = q
		}
	}
	if err := e.close(ctx, orderID, price, types.CloseReasonManual); err != nil {
		return model.Order{}, err
	}
	return e.store.GetOrder(ctx, orderID)
}

func (e *Engine) close(ctx context.Context, orderID string, price decimal.Decimal, reason string) error {
	e.locks.lock(orderID)
	defer e.locks.unlock(orderID)

	o, err := e.store.GetOrder(ctx, orderID)
	if err != nil {
		return err
	}
	if o.Status != types.OrderStatusExecuted {
		return fmt.Errorf("order %s is %s, not executed", orderID, o.Status)
	}
	updated, err := e.applyTransition(ctx, o, func(cur model.Order) (model.Order, error) {
		return e.store.MarkClosed(ctx, cur.ID, cur.Version, price, time.Now().UTC())
	}, types.OrderStatusClosed)
	if err != nil {
		return err
	}
	if updated == nil {
		return nil
	}
	e.appendHistory(ctx, orderID, types.OrderStatusClosed, "closed ("+reason+") at "+price.String())
	e.pub.Publish(events.TopicOrders, events.Event{
		Type:    "order.closed",
		OrderID: orderID,
		Status:  string(types.OrderStatusClosed),
		Reason:  reason,
		Data:    map[string]any{"closed_price": price},
		TS:      time.Now().UnixMilli(),
	})
	return nil
}

func (e *Engine) setSignalStatus(ctx context.Context, signalID string, status types.SignalStatus, errMsg string) {
	if e.signals == nil || signalID == "" {
		return
	}
	if err := e.signals.SetStatus(ctx, signalID, status, errMsg); err != nil {
		log.Printf("engine: updating signal %s to %s: %v", signalID, status, err)
	}
}

func (e *Engine) appendHistory(ctx context.Context, orderID string, status types.OrderStatus, detail string) {
	if err := e.store.AppendHistory(ctx, orderID, status, detail); err != nil {
		log.Printf("engine: history for order %s: %v", orderID, err)
	}
}
