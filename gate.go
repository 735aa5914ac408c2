package lifebound

import (
	"slices"
	"sync"
)

type gateEntry struct {
	e   Emitter[bool]
	mu  sync.Mutex
	gen uint64
}

// deliver forwards the value of generation gen unless a newer one was
// already delivered.
func (en *gateEntry) deliver(v bool, gen uint64) {
	en.mu.Lock()
	if gen <= en.gen {
		en.mu.Unlock()
		return
	}
	en.gen = gen
	en.mu.Unlock()
	en.e.Next(v)
}

// Gate is a condition gate: a boolean that is either open (true) or
// closed (false), observed as a stream of edges.
//
// Set emits only on change, synchronously, to the observers subscribed at
// that moment. Every subscriber first receives the current value.
type Gate struct {
	mu      sync.Mutex
	value   bool
	gen     uint64
	closed  bool
	entries []*gateEntry
}

// NewGate returns a gate with the given initial value.
func NewGate(initial bool) *Gate {
	return &Gate{value: initial, gen: 1}
}

// Value reports the gate's current value.
func (g *Gate) Value() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.value
}

// Set changes the gate's value. Setting the current value, or setting a
// closed gate, does nothing.
func (g *Gate) Set(v bool) {
	g.mu.Lock()
	if g.closed || g.value == v {
		g.mu.Unlock()
		return
	}
	g.value = v
	g.gen++
	gen := g.gen
	entries := slices.Clone(g.entries)
	g.mu.Unlock()

	for _, en := range entries {
		en.deliver(v, gen)
	}
}

// Close completes every observer. The gate keeps its last value.
func (g *Gate) Close() {
	g.mu.Lock()
	if g.closed {
		g.mu.Unlock()
		return
	}
	g.closed = true
	entries := g.entries
	g.entries = nil
	g.mu.Unlock()

	for _, en := range entries {
		en.e.Complete()
	}
}

// Stream emits the current value on subscribe, then every change.
func (g *Gate) Stream() *Stream[bool] {
	return NewStream(func(e Emitter[bool]) func() {
		g.mu.Lock()
		v, gen, closed := g.value, g.gen, g.closed
		en := &gateEntry{e: e}
		if !closed {
			g.entries = append(g.entries, en)
		}
		g.mu.Unlock()

		en.deliver(v, gen)
		if closed {
			e.Complete()
			return nil
		}

		return func() {
			g.mu.Lock()
			g.entries = slices.DeleteFunc(g.entries, func(x *gateEntry) bool { return x == en })
			g.mu.Unlock()
		}
	})
}
