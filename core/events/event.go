package events

import "sync"

// Event represents a structured state change emitted by the ledger.
type Event interface {
	EventType() string
}

// Emitter broadcasts events to downstream subscribers (e.g. RPC, indexers).
type Emitter interface {
	Emit(Event)
}

// NoopEmitter is a helper that satisfies the Emitter interface while discarding
// all events. It is useful when a component wants to optionally expose events.
type NoopEmitter struct{}

// Emit implements the Emitter interface.
func (NoopEmitter) Emit(Event) {}

// Buffer collects events in emission order. The ledger hands one to each
// operation and only forwards its contents once the operation commits.
type Buffer struct {
	events []Event
}

// Emit implements the Emitter interface.
func (b *Buffer) Emit(evt Event) {
	if b == nil || evt == nil {
		return
	}
	b.events = append(b.events, evt)
}

// Events returns the buffered events.
func (b *Buffer) Events() []Event {
	if b == nil {
		return nil
	}
	out := make([]Event, len(b.events))
	copy(out, b.events)
	return out
}

// Reset drops the buffered events.
func (b *Buffer) Reset() {
	if b == nil {
		return
	}
	b.events = nil
}

// Flush forwards every buffered event to dst and empties the buffer.
func (b *Buffer) Flush(dst Emitter) {
	if b == nil {
		return
	}
	if dst != nil {
		for _, evt := range b.events {
			dst.Emit(evt)
		}
	}
	b.events = nil
}

// Multi fans events out to several emitters.
type Multi struct {
	mu      sync.RWMutex
	targets []Emitter
}

// NewMulti returns a fan-out emitter over targets; nil targets are skipped.
func NewMulti(targets ...Emitter) *Multi {
	m := &Multi{}
	for _, t := range targets {
		m.Add(t)
	}
	return m
}

// Add registers another target.
func (m *Multi) Add(target Emitter) {
	if target == nil {
		return
	}
	m.mu.Lock()
	m.targets = append(m.targets, target)
	m.mu.Unlock()
}

// Emit implements the Emitter interface.
func (m *Multi) Emit(evt Event) {
	m.mu.RLock()
	targets := append([]Emitter(nil), m.targets...)
	m.mu.RUnlock()
	for _, t := range targets {
		t.Emit(evt)
	}
}
