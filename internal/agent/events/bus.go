package events

import (
	"sync"
	"sync/atomic"

	"github.com/agentcore/orchestrator/internal/agent/telemetry"
)

// Subscriber receives a redacted copy of every published Event. Unlike the
// publisher, a Subscriber runs in its own goroutine — the bus never blocks
// on it and never aborts fan-out because of it.
type Subscriber interface {
	HandleEvent(e Event)
}

// Subscription is returned by Subscribe; Close stops delivery to the
// subscriber and is safe to call more than once.
type Subscription interface {
	Close()
}

type subscription struct {
	ch     chan Event
	done   chan struct{}
	closer sync.Once
	bus    *Bus
}

func (s *subscription) Close() {
	s.closer.Do(func() {
		close(s.done)
		s.bus.remove(s)
	})
}

// Bus fans Events out to subscribers non-blockingly: each subscriber is fed
// through its own bounded channel, and an event that would block on a full
// channel is dropped for that subscriber rather than stalling the publisher
// or any other subscriber. This mirrors the registration/snapshot-before-
// iterate shape of a synchronous fan-out bus, but trades the "stop on first
// subscriber error" guarantee for availability: a wedged subscriber loses
// events instead of wedging the whole orchestrator.
type Bus struct {
	logger telemetry.Logger

	mu   sync.RWMutex
	subs map[*subscription]struct{}

	dropped atomic.Int64
}

// NewBus constructs an empty Bus. logger may be nil, in which case a no-op
// logger is used.
func NewBus(logger telemetry.Logger) *Bus {
	if logger == nil {
		logger = telemetry.NewNoopLogger()
	}
	return &Bus{logger: logger, subs: make(map[*subscription]struct{})}
}

// Subscribe registers sub to receive events through a channel buffered to
// bufferSize. A non-positive bufferSize is treated as 1.
func (b *Bus) Subscribe(sub Subscriber, bufferSize int) Subscription {
	if bufferSize <= 0 {
		bufferSize = 1
	}
	s := &subscription{
		ch:   make(chan Event, bufferSize),
		done: make(chan struct{}),
		bus:  b,
	}
	b.mu.Lock()
	b.subs[s] = struct{}{}
	b.mu.Unlock()

	go func() {
		for {
			select {
			case e := <-s.ch:
				sub.HandleEvent(e)
			case <-s.done:
				return
			}
		}
	}()
	return s
}

func (b *Bus) remove(s *subscription) {
	b.mu.Lock()
	delete(b.subs, s)
	b.mu.Unlock()
}

// Publish redacts e.Data and fans it out to every current subscriber. It
// never blocks: a subscriber whose buffer is full simply misses this event,
// and the drop is counted and logged.
func (b *Bus) Publish(e Event) {
	e.Data = Redact(e.Data)

	b.mu.RLock()
	snapshot := make([]*subscription, 0, len(b.subs))
	for s := range b.subs {
		snapshot = append(snapshot, s)
	}
	b.mu.RUnlock()

	for _, s := range snapshot {
		select {
		case s.ch <- e:
		default:
			n := b.dropped.Add(1)
			b.logger.Warn(nil, "events: dropped event, subscriber buffer full",
				"kind", string(e.Kind), "trace_id", e.TraceID, "total_dropped", n)
		}
	}
}

// Dropped returns the running count of events dropped across all
// subscribers since the bus was created.
func (b *Bus) Dropped() int64 {
	return b.dropped.Load()
}

// Close stops every currently-registered subscriber's delivery goroutine.
func (b *Bus) Close() {
	b.mu.Lock()
	subs := make([]*subscription, 0, len(b.subs))
	for s := range b.subs {
		subs = append(subs, s)
	}
	b.mu.Unlock()
	for _, s := range subs {
		s.Close()
	}
}
