package queue

import (
	"context"
	"errors"
	"log"
	"strconv"
	"sync"
	"time"
)

// Memory is the in-process queue used when no database is configured and in
// tests. Unacked messages are redelivered after the visibility timeout, which
// mirrors the Postgres queue's contract closely enough that the engine cannot
// tell them apart.
type Memory struct {
	visibility time.Duration

	mu      sync.Mutex
	nextID  int64
	ready   chan *Message
	pending map[string]*time.Timer
}

func NewMemory(visibility time.Duration) *Memory {
	if visibility <= 0 {
		visibility = 30 * time.Second
	}
	return &Memory{
		visibility: visibility,
		ready:      make(chan *Message, 1024),
		pending:    make(map[string]*time.Timer),
	}
}

func (q *Memory) Enqueue(_ context.Context, signalID string, payload []byte) error {
	q.mu.Lock()
	q.nextID++
	msg := &Message{ID: strconv.FormatInt(q.nextID, 10), SignalID: signalID, Payload: payload}
	q.mu.Unlock()
	select {
	case q.ready <- msg:
		return nil
	default:
		return errors.New("queue full")
	}
}

func (q *Memory) Dequeue(ctx context.Context) (*Message, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case msg := <-q.ready:
		q.mu.Lock()
		msg.Attempts++
		delivered := *msg
		q.pending[msg.ID] = time.AfterFunc(q.visibility, func() { q.redeliver(msg) })
		q.mu.Unlock()
		return &delivered, nil
	}
}

func (q *Memory) Ack(_ context.Context, msgID string) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if t, ok := q.pending[msgID]; ok {
		t.Stop()
		delete(q.pending, msgID)
	}
	return nil
}

func (q *Memory) Nack(_ context.Context, msgID string) error {
	q.mu.Lock()
	t, ok := q.pending[msgID]
	q.mu.Unlock()
	if ok && t.Stop() {
		// Fire the redelivery path now instead of waiting out the timeout.
		t.Reset(0)
	}
	return nil
}

func (q *Memory) redeliver(msg *Message) {
	q.mu.Lock()
	delete(q.pending, msg.ID)
	q.mu.Unlock()
	select {
	case q.ready <- msg:
	default:
		// Saturated. This runs on the timer goroutine, so blocking until a
		// consumer frees a slot is safe and the message is never lost.
		log.Printf("queue: ready channel full, waiting to redeliver message %s", msg.ID)
		q.ready <- msg
	}
}
