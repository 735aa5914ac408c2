package condition

import (
	"sync"
	"time"

	"github.com/baxromumarov/lifebound"
)

// Navigation is a completed navigation.
type Navigation struct {
	Path     string
	Previous string
	At       time.Time
}

// RouterOption configures a [Router].
type RouterOption func(*Router)

// WithRouterClock stamps navigations with c instead of the system clock.
func WithRouterClock(c lifebound.Clock) RouterOption {
	if c == nil {
		panic("condition: WithRouterClock requires non-nil clock")
	}
	return func(r *Router) {
		r.clock = c
	}
}

// Router is an in-process navigation source. The host reports every
// completed navigation with [Router.Navigate]; binders observe them through
// [Router.Events] and [Router.Matches].
type Router struct {
	clock  lifebound.Clock
	events *lifebound.Subject[Navigation]

	mu   sync.Mutex
	path string
}

// NewRouter returns a router positioned at initial.
func NewRouter(initial string, opts ...RouterOption) *Router {
	r := &Router{
		clock:  lifebound.SystemClock,
		events: lifebound.NewSubject[Navigation](),
		path:   initial,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Navigate records a completed navigation to path and publishes it to the
// current observers of [Router.Events]. Navigating to the current path
// still publishes an event.
func (r *Router) Navigate(path string) {
	r.mu.Lock()
	prev := r.path
	r.path = path
	r.mu.Unlock()

	r.events.Next(Navigation{Path: path, Previous: prev, At: r.clock.Now()})
}

// Path returns the current path.
func (r *Router) Path() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.path
}

// Events streams every navigation completed after subscription.
func (r *Router) Events() *lifebound.Stream[Navigation] {
	return r.events.Stream()
}

// Matches returns a gate that is open while the current path matches p.
// stop detaches the gate from the router and closes it.
func (r *Router) Matches(p *Pattern) (gate *lifebound.Gate, stop func()) {
	gate = lifebound.NewGate(p.Match(r.Path()))
	sub := r.Events().Subscribe(lifebound.Observer[Navigation]{
		Next:     func(n Navigation) { gate.Set(p.Match(n.Path)) },
		Error:    func(error) { gate.Close() },
		Complete: gate.Close,
	})
	// A navigation between NewGate and Subscribe is not in the stream.
	gate.Set(p.Match(r.Path()))

	return gate, func() {
		sub.Close()
		gate.Close()
	}
}

// Close completes every navigation observer. Streams bound with
// [UntilNavigation] complete; route gates close.
func (r *Router) Close() {
	r.events.Complete()
}
