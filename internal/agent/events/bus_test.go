package events

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingSubscriber struct {
	mu   sync.Mutex
	seen []Event
}

func (r *recordingSubscriber) HandleEvent(e Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seen = append(r.seen, e)
}

func (r *recordingSubscriber) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.seen)
}

func waitUntil(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(time.Millisecond)
	}
	require.Fail(t, "condition not met before timeout")
}

func TestBusDeliversToSubscriber(t *testing.T) {
	bus := NewBus(nil)
	sub := &recordingSubscriber{}
	subscription := bus.Subscribe(sub, 8)
	defer subscription.Close()

	bus.Publish(Event{Kind: KindTurnStart, TraceID: "t1"})
	waitUntil(t, time.Second, func() bool { return sub.count() == 1 })
}

func TestBusRedactsBeforeDelivery(t *testing.T) {
	bus := NewBus(nil)
	sub := &recordingSubscriber{}
	subscription := bus.Subscribe(sub, 8)
	defer subscription.Close()

	bus.Publish(Event{Kind: KindLLMRequestParams, Data: map[string]any{"api_key": "sk-123"}})
	waitUntil(t, time.Second, func() bool { return sub.count() == 1 })

	sub.mu.Lock()
	defer sub.mu.Unlock()
	assert.Equal(t, redactedPlaceholder, sub.seen[0].Data["api_key"])
}

type blockingSubscriber struct {
	release chan struct{}
	handled atomic.Int64
}

func (b *blockingSubscriber) HandleEvent(e Event) {
	<-b.release
	b.handled.Add(1)
}

// TestBusDropsForSlowSubscriberWithoutBlockingPublisherOrOthers verifies the
// core non-blocking guarantee: a subscriber that never drains its channel
// must not stall Publish, and must not prevent delivery to a healthy
// subscriber published at the same time.
func TestBusDropsForSlowSubscriberWithoutBlockingPublisherOrOthers(t *testing.T) {
	bus := NewBus(nil)
	slow := &blockingSubscriber{release: make(chan struct{})}
	slowSub := bus.Subscribe(slow, 1)
	defer slowSub.Close()

	fast := &recordingSubscriber{}
	fastSub := bus.Subscribe(fast, 8)
	defer fastSub.Close()

	done := make(chan struct{})
	go func() {
		for i := 0; i < 5; i++ {
			bus.Publish(Event{Kind: KindToolCallStarted, TraceID: "t"})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Publish blocked on a slow subscriber")
	}

	waitUntil(t, time.Second, func() bool { return fast.count() == 5 })
	assert.Greater(t, bus.Dropped(), int64(0))

	close(slow.release)
}
