package consent

import "sync"

// EventKind identifies a local consent event.
type EventKind string

const (
	// EventLoaded fires once per Start with the stored record, or nil.
	EventLoaded EventKind = "consent:loaded"
	// EventFinalized fires every time a decision is written.
	EventFinalized EventKind = "consent:finalized"
)

// Event is delivered to subscribers. Record is a copy; listeners may keep it.
type Event struct {
	Kind   EventKind
	Record *Record
}

// Bus delivers events to subscribers in subscription order.
type Bus struct {
	mu     sync.Mutex
	nextID int
	subs   map[EventKind][]subscription
}

type subscription struct {
	id int
	fn func(Event)
}

// NewBus creates an empty Bus.
func NewBus() *Bus {
	return &Bus{subs: make(map[EventKind][]subscription)}
}

// Subscribe registers fn for kind and returns a function that removes it.
func (b *Bus) Subscribe(kind EventKind, fn func(Event)) func() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.nextID++
	id := b.nextID
	b.subs[kind] = append(b.subs[kind], subscription{id: id, fn: fn})
	return func() { b.unsubscribe(kind, id) }
}

func (b *Bus) unsubscribe(kind EventKind, id int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	subs := b.subs[kind]
	for i, s := range subs {
		if s.id == id {
			b.subs[kind] = append(subs[:i:i], subs[i+1:]...)
			return
		}
	}
}

// Emit delivers an event to every current subscriber of kind.
func (b *Bus) Emit(kind EventKind, r *Record) {
	b.mu.Lock()
	subs := append([]subscription(nil), b.subs[kind]...)
	b.mu.Unlock()

	for _, s := range subs {
		s.fn(Event{Kind: kind, Record: r.Clone()})
	}
}

// Reset removes every subscriber.
func (b *Bus) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subs = make(map[EventKind][]subscription)
}
