package events

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPublishPreservesOrderPerTopic(t *testing.T) {
	bus := NewBus()
	sub := bus.Subscribe(TopicOrders)
	defer bus.Unsubscribe(TopicOrders, sub)

	for i := 0; i < 10; i++ {
		bus.Publish(TopicOrders, Event{Type: fmt.Sprintf("evt-%d", i)})
	}
	for i := 0; i < 10; i++ {
		select {
		case evt := <-sub:
			assert.Equal(t, fmt.Sprintf("evt-%d", i), evt.Type)
		case <-time.After(time.Second):
			t.Fatalf("missing event %d", i)
		}
	}
}

func TestTopicsAreIsolated(t *testing.T) {
	bus := NewBus()
	ordersSub := bus.Subscribe(TopicOrders)
	invalidSub := bus.Subscribe(TopicInvalidSignals)
	defer bus.Unsubscribe(TopicOrders, ordersSub)
	defer bus.Unsubscribe(TopicInvalidSignals, invalidSub)

	bus.Publish(TopicInvalidSignals, Event{Type: "signal.invalid"})

	select {
	case evt := <-invalidSub:
		assert.Equal(t, "signal.invalid", evt.Type)
	case <-time.After(time.Second):
		t.Fatal("invalid_signals subscriber got nothing")
	}
	select {
	case evt := <-ordersSub:
		t.Fatalf("orders subscriber leaked %q", evt.Type)
	default:
	}
}

func TestNoReplayForLateSubscriber(t *testing.T) {
	bus := NewBus()
	bus.Publish(TopicOrders, Event{Type: "order.pending"})

	sub := bus.Subscribe(TopicOrders)
	defer bus.Unsubscribe(TopicOrders, sub)
	select {
	case evt := <-sub:
		t.Fatalf("late subscriber replayed %q", evt.Type)
	default:
	}
}

func TestSlowSubscriberDoesNotBlockPublish(t *testing.T) {
	bus := NewBus()
	sub := bus.Subscribe(TopicOrders)
	defer bus.Unsubscribe(TopicOrders, sub)

	done := make(chan struct{})
	go func() {
		// Past the buffer size, extra events must be dropped, not queued.
		for i := 0; i < 500; i++ {
			bus.Publish(TopicOrders, Event{Type: "order.executed"})
		}
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("publish blocked on a slow subscriber")
	}
}

func TestUnsubscribeClosesChannel(t *testing.T) {
	bus := NewBus()
	sub := bus.Subscribe(TopicOrders)
	bus.Unsubscribe(TopicOrders, sub)

	_, open := <-sub
	require.False(t, open)

	// Publishing after unsubscribe must not panic on the closed channel.
	bus.Publish(TopicOrders, Event{Type: "order.closed"})
}
