// Package queue decouples webhook receipt from order processing. Both
// implementations give at-least-once delivery: a dequeued message that is
// never acked becomes visible again after the visibility timeout.
package queue

import "context"

type Message struct {
	ID       string
	SignalID string
	Payload  []byte
	Attempts int
}

type Queue interface {
	Enqueue(ctx context.Context, signalID string, payload []byte) error
	// Dequeue blocks until a message is available or ctx is done.
	Dequeue(ctx context.Context) (*Message, error)
	Ack(ctx context.Context, msgID string) error
	// Nack makes the message immediately visible for redelivery.
	Nack(ctx context.Context, msgID string) error
}
