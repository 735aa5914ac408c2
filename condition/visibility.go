package condition

import "github.com/baxromumarov/lifebound"

// Visibility is a visibility source backed by a condition gate. The host
// calls Set whenever the page, window or session changes visibility.
type Visibility struct {
	gate *lifebound.Gate
}

// NewVisibility returns a visibility source with the given initial state.
func NewVisibility(visible bool) *Visibility {
	return &Visibility{gate: lifebound.NewGate(visible)}
}

// Set records the current visibility. Observers are notified only when it
// changes.
func (v *Visibility) Set(visible bool) { v.gate.Set(visible) }

// Visible reports the current visibility.
func (v *Visibility) Visible() bool { return v.gate.Value() }

// Gate returns the underlying gate.
func (v *Visibility) Gate() *lifebound.Gate { return v.gate }

// Changes emits the current visibility on subscribe, then every change.
func (v *Visibility) Changes() *lifebound.Stream[bool] { return v.gate.Stream() }

// Close completes every observer of the visibility source.
func (v *Visibility) Close() { v.gate.Close() }
