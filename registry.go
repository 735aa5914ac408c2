package lifebound

import "sync"

// Registry is the set of live subscriptions of one owner.
//
// Entries are keyed by handle identity. Closed entries are dropped lazily
// by [Registry.ActiveCount] and [Registry.HasActive]. Once destroyed, a
// registry closes everything added to it instead of registering it.
type Registry struct {
	cfg config

	mu        sync.Mutex
	entries   map[Handle]struct{}
	destroyed bool
}

// NewRegistry returns an empty registry.
func NewRegistry(opts ...Option) *Registry {
	return newRegistry(newConfig(opts))
}

func newRegistry(cfg config) *Registry {
	return &Registry{
		cfg:     cfg,
		entries: make(map[Handle]struct{}),
	}
}

// Add registers handles. Nil and already closed handles are skipped.
//
// After the registry has been destroyed, Add closes every handle passed to
// it and reports a single [WarnAddAfterDestroy] warning.
func (r *Registry) Add(handles ...Handle) {
	r.mu.Lock()
	if r.destroyed {
		r.mu.Unlock()
		r.rejectAll(handles)
		return
	}
	for _, h := range handles {
		if h == nil || h.Closed() {
			continue
		}
		r.entries[h] = struct{}{}
	}
	r.mu.Unlock()
}

func (r *Registry) rejectAll(handles []Handle) {
	var n int
	for _, h := range handles {
		if h == nil {
			continue
		}
		n++
		h.Close()
	}
	if n == 0 {
		return
	}
	r.cfg.reporter.Report(Warning{
		Kind:    WarnAddAfterDestroy,
		Message: "lifebound: subscription added after owner was destroyed; closed immediately",
		Owner:   r.cfg.name,
	})
}

// Remove deregisters h without closing it; the caller takes over its
// teardown. It reports whether h was registered.
func (r *Registry) Remove(h Handle) bool {
	if h == nil {
		return false
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.entries[h]; !ok {
		return false
	}
	delete(r.entries, h)
	return true
}

// TeardownAll closes every registered handle and empties the registry.
// Handles are closed outside the registry's lock, so a teardown may use the
// registry. Calling it again is a no-op until new handles are added.
func (r *Registry) TeardownAll() {
	r.mu.Lock()
	entries := r.entries
	r.entries = make(map[Handle]struct{})
	r.mu.Unlock()

	for h := range entries {
		h.Close()
	}
}

// Destroy permanently marks the registry destroyed, then tears down every
// entry. Only the first call has an effect.
func (r *Registry) Destroy() {
	if r.markDestroyed() {
		r.TeardownAll()
	}
}

func (r *Registry) markDestroyed() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.destroyed {
		return false
	}
	r.destroyed = true
	return true
}

// Destroyed reports whether the registry has been destroyed.
func (r *Registry) Destroyed() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.destroyed
}

// ActiveCount returns the number of registered handles that are still open,
// dropping closed ones as a side effect.
func (r *Registry) ActiveCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	for h := range r.entries {
		if h.Closed() {
			delete(r.entries, h)
		}
	}
	return len(r.entries)
}

// HasActive reports whether any registered handle is still open.
func (r *Registry) HasActive() bool {
	return r.ActiveCount() > 0
}
