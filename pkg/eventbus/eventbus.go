// Package eventbus provides an in-process publish/subscribe bus used to fan
// out lifecycle events (task changes, execution outcomes) to interested
// modules without coupling them to each other.
package eventbus

import (
	"log/slog"
	"sync"
	"time"
)

// DefaultBufferSize is the per-subscriber channel capacity.
const DefaultBufferSize = 256

// Event is a single bus message. Payload carries a module-defined struct;
// subscribers type-assert based on Type.
type Event struct {
	Type      string
	Payload   any
	Timestamp time.Time
}

type subscriber struct {
	ch    chan Event
	types map[string]struct{}
}

// Bus fans events out to subscribers. Publishing never blocks: when a
// subscriber's buffer is full the oldest buffered event is dropped to make
// room, so slow consumers lose history instead of stalling publishers.
type Bus struct {
	mu         sync.RWMutex
	subs       map[*subscriber]struct{}
	bufferSize int
	closed     bool
}

// New creates a bus with the default per-subscriber buffer size.
func New() *Bus {
	return NewWithBuffer(DefaultBufferSize)
}

// NewWithBuffer creates a bus with an explicit per-subscriber buffer size.
func NewWithBuffer(size int) *Bus {
	if size <= 0 {
		size = DefaultBufferSize
	}
	return &Bus{
		subs:       make(map[*subscriber]struct{}),
		bufferSize: size,
	}
}

// Subscribe registers interest in the given event types and returns the
// delivery channel plus an unsubscribe function. With no types the subscriber
// receives every event. The unsubscribe function closes the channel and is
// safe to call more than once.
func (b *Bus) Subscribe(types ...string) (<-chan Event, func()) {
	sub := &subscriber{
		ch: make(chan Event, b.bufferSize),
	}
	if len(types) > 0 {
		sub.types = make(map[string]struct{}, len(types))
		for _, t := range types {
			sub.types[t] = struct{}{}
		}
	}

	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		close(sub.ch)
		return sub.ch, func() {}
	}
	b.subs[sub] = struct{}{}
	b.mu.Unlock()

	var once sync.Once
	unsubscribe := func() {
		once.Do(func() {
			b.mu.Lock()
			if _, ok := b.subs[sub]; ok {
				delete(b.subs, sub)
				close(sub.ch)
			}
			b.mu.Unlock()
		})
	}
	return sub.ch, unsubscribe
}

// Publish delivers the event to every matching subscriber. A zero Timestamp
// is stamped with the current time.
func (b *Bus) Publish(evt Event) {
	if evt.Timestamp.IsZero() {
		evt.Timestamp = time.Now().UTC()
	}

	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return
	}

	for sub := range b.subs {
		if sub.types != nil {
			if _, ok := sub.types[evt.Type]; !ok {
				continue
			}
		}
		select {
		case sub.ch <- evt:
		default:
			// Buffer full: drop the oldest event so the newest is kept.
			select {
			case dropped := <-sub.ch:
				slog.Warn("Event bus subscriber buffer full, dropped oldest event",
					slog.String("dropped_type", dropped.Type),
					slog.String("incoming_type", evt.Type))
			default:
			}
			select {
			case sub.ch <- evt:
			default:
			}
		}
	}
}

// SubscriberCount reports the number of active subscribers.
func (b *Bus) SubscriberCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}

// Close shuts the bus down and closes all subscriber channels. Publishes
// after Close are discarded.
func (b *Bus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	for sub := range b.subs {
		close(sub.ch)
	}
	b.subs = make(map[*subscriber]struct{})
}
