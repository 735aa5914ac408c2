package lifebound

import "sync"

// GlobalKey is the supersession key used when an operation has no key of
// its own.
const GlobalKey = ""

// Coordinator tracks, per logical operation key, the signal of the one
// operation currently allowed to run. Starting a new operation under a key
// cancels the previous one.
type Coordinator struct {
	cfg config

	mu        sync.Mutex
	current   map[string]*Signal
	destroyed bool
}

// NewCoordinator returns an empty coordinator.
func NewCoordinator(opts ...Option) *Coordinator {
	return &Coordinator{
		cfg:     newConfig(opts),
		current: make(map[string]*Signal),
	}
}

// Begin starts a new operation under key and returns its signal. The
// previous signal for key is replaced under the coordinator's lock, so
// there is never more than one current signal per key, and is fired before
// Begin returns: the previous operation's teardown has run by the time the
// caller starts the new one.
//
// On a destroyed coordinator Begin returns an already fired signal and
// reports [WarnBeginAfterDestroy].
func (c *Coordinator) Begin(key string) *Signal {
	next := NewSignal()

	c.mu.Lock()
	if c.destroyed {
		c.mu.Unlock()
		next.Fire()
		c.cfg.reporter.Report(Warning{
			Kind:    WarnBeginAfterDestroy,
			Message: "lifebound: operation started after coordinator was destroyed; cancelled immediately",
			Owner:   c.cfg.name,
		})
		return next
	}
	prev := c.current[key]
	c.current[key] = next
	c.mu.Unlock()

	if prev != nil {
		prev.Fire()
	}
	return next
}

// release forgets sig if it is still the current signal for key.
func (c *Coordinator) release(key string, sig *Signal) {
	c.mu.Lock()
	if c.current[key] == sig {
		delete(c.current, key)
	}
	c.mu.Unlock()
}

// Cancel fires and forgets the current signal for key. It reports whether
// an operation was running.
func (c *Coordinator) Cancel(key string) bool {
	c.mu.Lock()
	sig, ok := c.current[key]
	delete(c.current, key)
	c.mu.Unlock()

	if ok {
		sig.Fire()
	}
	return ok
}

// CancelAll fires and forgets every current signal.
func (c *Coordinator) CancelAll() {
	c.mu.Lock()
	current := c.current
	c.current = make(map[string]*Signal)
	c.mu.Unlock()

	for _, sig := range current {
		sig.Fire()
	}
}

// Destroy cancels every operation and rejects new ones. Only the first call
// has an effect.
func (c *Coordinator) Destroy() {
	c.mu.Lock()
	if c.destroyed {
		c.mu.Unlock()
		return
	}
	c.destroyed = true
	c.mu.Unlock()

	c.CancelAll()
}

// Active reports whether an operation is running under key.
func (c *Coordinator) Active(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.current[key]
	return ok
}

// Len returns the number of keys with a running operation.
func (c *Coordinator) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.current)
}

// Supersede applies cancel-previous-on-new under key: every subscription to
// the returned stream is a new operation that first cancels the operation
// previously running under the same key (whose stream completes and whose
// source is torn down synchronously), then subscribes src bound to a fresh
// signal.
//
//	search := lifebound.Supersede(coord, "search", lifebound.FromFunc(query))
//	search.Subscribe(obs) // a second Subscribe cancels the first request
func Supersede[T any](c *Coordinator, key string, src *Stream[T]) *Stream[T] {
	return NewStream(func(e Emitter[T]) func() {
		sig := c.Begin(key)
		sub := TakeUntil(src, sig).Subscribe(Observer[T]{
			Next: e.Next,
			Error: func(err error) {
				c.release(key, sig)
				e.Error(err)
			},
			Complete: func() {
				c.release(key, sig)
				e.Complete()
			},
		})
		return func() {
			sub.Close()
			c.release(key, sig)
		}
	})
}
