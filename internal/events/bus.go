package events

import (
	"log"
	"sync"
)

type Topic string

const (
	TopicOrders         Topic = "orders"
	TopicInvalidSignals Topic = "invalid_signals"
)

// Event is the record delivered to topic subscribers.
type Event struct {
	Type    string `json:"type"`
	OrderID string `json:"order_id,omitempty"`
	Status  string `json:"status,omitempty"`
	Reason  string `json:"reason,omitempty"`
	Data    any    `json:"data,omitempty"`
	TS      int64  `json:"ts"`
}

// Bus fans events out to topic-scoped subscriber groups. Publish preserves
// per-publisher call order per topic; delivery to a full subscriber channel is
// dropped rather than blocking the publisher. There is no replay: a subscriber
// sees only events published after it attached.
type Bus struct {
	mu   sync.RWMutex
	subs map[Topic]map[chan Event]struct{}
}

func NewBus() *Bus {
	return &Bus{subs: make(map[Topic]map[chan Event]struct{})}
}

func (b *Bus) Subscribe(topic Topic) chan Event {
	ch := make(chan Event, 100)
	b.mu.Lock()
	if b.subs[topic] == nil {
		b.subs[topic] = make(map[chan Event]struct{})
	}
	b.subs[topic][ch] = struct{}{}
	b.mu.Unlock()
	return ch
}

func (b *Bus) Unsubscribe(topic Topic, ch chan Event) {
	b.mu.Lock()
	if group, ok := b.subs[topic]; ok {
		if _, ok := group[ch]; ok {
			delete(group, ch)
			close(ch)
		}
	}
	b.mu.Unlock()
}

func (b *Bus) Publish(topic Topic, evt Event) {
	b.mu.RLock()
	for ch := range b.subs[topic] {
		select {
		case ch <- evt:
		default:
			log.Printf("events: dropped %s event on %s for slow subscriber", evt.Type, topic)
		}
	}
	b.mu.RUnlock()
}
