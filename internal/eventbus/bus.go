// Package eventbus is the typed publish/subscribe fabric decoupling the
// decision core from dashboards, persistence, and external integrations.
// A Bus is explicitly constructed at service start and closed at shutdown;
// there is no package-level singleton. Publishing never blocks: each
// subscriber owns a bounded queue and overflow is dropped and counted, so
// a slow or failing subscriber cannot stall a tick.
package eventbus

import (
	"sync"
	"sync/atomic"

	"launch-sentinel/internal/domain"
)

// DefaultQueueSize is the per-subscriber queue depth when none is given.
const DefaultQueueSize = 256

// Bus fans events out to subscribers. Safe for concurrent use.
type Bus struct {
	queueSize int

	mu     sync.RWMutex
	nextID uint64
	subs   map[uint64]*Subscription
	closed bool

	published atomic.Uint64
	dropped   atomic.Uint64
}

// Subscription is one subscriber's bounded event queue.
type Subscription struct {
	id      uint64
	bus     *Bus
	kinds   map[domain.EventKind]struct{} // nil means all kinds
	ch      chan domain.Event
	dropped atomic.Uint64
}

// New creates a bus with the given per-subscriber queue depth.
// queueSize <= 0 falls back to DefaultQueueSize.
func New(queueSize int) *Bus {
	if queueSize <= 0 {
		queueSize = DefaultQueueSize
	}
	return &Bus{
		queueSize: queueSize,
		subs:      make(map[uint64]*Subscription),
	}
}

// Subscribe registers a subscriber for the given kinds; no kinds means all
// events. Returns nil on a closed bus.
func (b *Bus) Subscribe(kinds ...domain.EventKind) *Subscription {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return nil
	}

	var filter map[domain.EventKind]struct{}
	if len(kinds) > 0 {
		filter = make(map[domain.EventKind]struct{}, len(kinds))
		for _, k := range kinds {
			filter[k] = struct{}{}
		}
	}

	b.nextID++
	sub := &Subscription{
		id:    b.nextID,
		bus:   b,
		kinds: filter,
		ch:    make(chan domain.Event, b.queueSize),
	}
	b.subs[sub.id] = sub
	return sub
}

// Publish fans the event out to all matching subscribers without blocking.
// Full queues drop the event for that subscriber only.
func (b *Bus) Publish(e domain.Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		return
	}
	b.published.Add(1)

	for _, sub := range b.subs {
		if !sub.wants(e.Kind) {
			continue
		}
		select {
		case sub.ch <- e:
		default:
			sub.dropped.Add(1)
			b.dropped.Add(1)
		}
	}
}

// Published returns the total events accepted for fan-out.
func (b *Bus) Published() uint64 {
	return b.published.Load()
}

// Dropped returns the total per-subscriber overflow drops.
func (b *Bus) Dropped() uint64 {
	return b.dropped.Load()
}

// Close drops all subscribers and closes their channels. Publishing after
// Close is a no-op.
func (b *Bus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return
	}
	b.closed = true
	for id, sub := range b.subs {
		close(sub.ch)
		delete(b.subs, id)
	}
}

// Events returns the subscriber's receive channel. The channel is closed
// on Unsubscribe or bus Close.
func (s *Subscription) Events() <-chan domain.Event {
	return s.ch
}

// Dropped returns how many events overflowed this subscriber's queue.
func (s *Subscription) Dropped() uint64 {
	return s.dropped.Load()
}

// Unsubscribe removes the subscriber and closes its channel. Remaining
// queued events stay readable until drained.
func (s *Subscription) Unsubscribe() {
	b := s.bus
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, ok := b.subs[s.id]; !ok {
		return
	}
	delete(b.subs, s.id)
	close(s.ch)
}

func (s *Subscription) wants(kind domain.EventKind) bool {
	if s.kinds == nil {
		return true
	}
	_, ok := s.kinds[kind]
	return ok
}
