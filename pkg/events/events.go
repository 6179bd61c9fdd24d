// Package events delivers layout notifications to whoever needs to know that
// slots were rebuilt.
//
// Two delivery styles are supported and can be mixed:
//
//   - Bus calls listeners synchronously, in registration order, on the
//     goroutine that publishes.
//   - Queue buffers events until the host drains them, typically once per
//     simulation step.
//
// A Queue is itself a listener and can be subscribed to a Bus.
package events

import (
	"fmt"
	"sync"

	"github.com/google/uuid"
)

// Kind identifies an event.
type Kind int

const (
	// LayoutChanged fires after a regeneration swapped in a new registry.
	// Slots handed out before it are stale and must be re-acquired.
	LayoutChanged Kind = iota

	// FallbackApplied fires when the solver could not fit the boundary and
	// collapsed every instance onto the anchor. It is a warning, not an
	// error.
	FallbackApplied
)

var kindNames = [...]string{
	LayoutChanged:   "layout_changed",
	FallbackApplied: "fallback_applied",
}

func (k Kind) String() string {
	if k >= 0 && int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "unknown"
}

// MarshalText implements encoding.TextMarshaler.
func (k Kind) MarshalText() ([]byte, error) { return []byte(k.String()), nil }

// UnmarshalText implements encoding.TextUnmarshaler.
func (k *Kind) UnmarshalText(b []byte) error {
	for i, name := range kindNames {
		if string(b) == name {
			*k = Kind(i)
			return nil
		}
	}
	return fmt.Errorf("unknown event kind: %q", b)
}

// Event describes one notification.
type Event struct {
	Kind       Kind      `json:"kind"`
	Generation uuid.UUID `json:"generation"`
	Instances  int       `json:"instances"`
	Slots      int       `json:"slots"`
}

// Listener receives events.
type Listener func(Event)

// Bus is a synchronous publish/subscribe hub. The zero value is ready to
// use and it is safe for concurrent use.
type Bus struct {
	mu        sync.RWMutex
	next      uint64
	listeners []subscription
}

type subscription struct {
	id uint64
	fn Listener
}

// NewBus returns an empty bus.
func NewBus() *Bus { return &Bus{} }

// Subscribe registers fn and returns a function that removes it again.
// Calling the returned function more than once is harmless.
func (b *Bus) Subscribe(fn Listener) (unsubscribe func()) {
	if fn == nil {
		return func() {}
	}
	b.mu.Lock()
	b.next++
	id := b.next
	b.listeners = append(b.listeners, subscription{id: id, fn: fn})
	b.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() { b.remove(id) })
	}
}

func (b *Bus) remove(id uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i, s := range b.listeners {
		if s.id == id {
			b.listeners = append(b.listeners[:i:i], b.listeners[i+1:]...)
			return
		}
	}
}

// Publish delivers e to every listener registered at the time of the call.
// Listeners may subscribe or unsubscribe from within a callback.
func (b *Bus) Publish(e Event) {
	b.mu.RLock()
	subs := make([]subscription, len(b.listeners))
	copy(subs, b.listeners)
	b.mu.RUnlock()

	for _, s := range subs {
		s.fn(e)
	}
}

// Len returns the number of registered listeners.
func (b *Bus) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.listeners)
}

// Queue buffers events for a single consumer. Producers may push from any
// goroutine. When full, the oldest event is dropped.
type Queue struct {
	mu      sync.Mutex
	events  []Event
	limit   int
	dropped int
}

// DefaultQueueLimit bounds a queue created with a non-positive limit.
const DefaultQueueLimit = 256

// NewQueue returns a queue holding at most limit events.
func NewQueue(limit int) *Queue {
	if limit <= 0 {
		limit = DefaultQueueLimit
	}
	return &Queue{limit: limit}
}

// Push appends e, evicting the oldest event when the queue is full.
func (q *Queue) Push(e Event) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.events) >= q.limit {
		q.events = q.events[1:]
		q.dropped++
	}
	q.events = append(q.events, e)
}

// Listener adapts the queue for Bus.Subscribe.
func (q *Queue) Listener() Listener { return q.Push }

// Drain returns all pending events in FIFO order and empties the queue.
// It returns nil when nothing is pending.
func (q *Queue) Drain() []Event {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.events) == 0 {
		return nil
	}
	out := q.events
	q.events = nil
	return out
}

// Len returns the number of pending events.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.events)
}

// Dropped returns how many events were evicted because the queue was full.
func (q *Queue) Dropped() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.dropped
}
