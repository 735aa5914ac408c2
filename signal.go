package lifebound

import (
	"context"
	"slices"
	"sync"
	"sync/atomic"
)

const (
	listenerPending int32 = iota
	listenerCalled
	listenerStopped
)

type listener struct {
	fn    func()
	state atomic.Int32
}

// Signal is a single-shot cancellation event. It starts pending and moves
// to fired exactly once; every listener runs at most once.
//
// Signals are safe for concurrent use. Listeners run synchronously on the
// goroutine that calls [Signal.Fire], outside the signal's lock.
type Signal struct {
	mu        sync.Mutex
	fired     bool
	done      chan struct{}
	listeners []*listener
}

// NewSignal returns a pending signal.
func NewSignal() *Signal {
	return &Signal{done: make(chan struct{})}
}

// Fire moves the signal to the fired state and runs every listener that was
// registered at that moment, in registration order. Calling Fire on a fired
// signal has no effect.
//
// The listener set is snapshotted before the first callback runs: a
// listener registered by another listener during the pass is not part of
// it (it runs immediately from [Signal.OnFire] instead). If a listener
// panics, the remaining listeners still run and the first panic is
// re-raised as a [*PanicError] once the pass is over.
func (s *Signal) Fire() {
	s.mu.Lock()
	if s.fired {
		s.mu.Unlock()
		return
	}
	s.fired = true
	snapshot := s.listeners
	s.listeners = nil
	close(s.done)
	s.mu.Unlock()

	var first *PanicError
	for _, l := range snapshot {
		if !l.state.CompareAndSwap(listenerPending, listenerCalled) {
			continue
		}
		if pe := callListener(l.fn); pe != nil && first == nil {
			first = pe
		}
	}
	if first != nil {
		panic(first)
	}
}

func callListener(fn func()) (pe *PanicError) {
	defer func() {
		if r := recover(); r != nil {
			pe = newPanicError(r)
		}
	}()
	fn()
	return nil
}

// OnFire registers fn to run when the signal fires. If the signal has
// already fired, fn runs immediately on the calling goroutine before
// OnFire returns.
//
// The returned stop function detaches fn. It reports true if the call
// prevented fn from running and false if fn already ran, is running, or
// was stopped before.
func (s *Signal) OnFire(fn func()) (stop func() bool) {
	if fn == nil {
		panic("lifebound: OnFire requires non-nil listener")
	}

	l := &listener{fn: fn}

	s.mu.Lock()
	if s.fired {
		s.mu.Unlock()
		l.state.Store(listenerCalled)
		fn()
		return func() bool { return false }
	}
	s.listeners = append(s.listeners, l)
	s.mu.Unlock()

	return func() bool {
		if !l.state.CompareAndSwap(listenerPending, listenerStopped) {
			return false
		}
		s.mu.Lock()
		s.listeners = slices.DeleteFunc(s.listeners, func(x *listener) bool { return x == l })
		s.mu.Unlock()
		return true
	}
}

// Fired reports whether the signal has fired.
func (s *Signal) Fired() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.fired
}

// Done returns a channel that is closed when the signal fires.
func (s *Signal) Done() <-chan struct{} {
	return s.done
}

// Listeners returns the number of listeners still waiting for the signal.
func (s *Signal) Listeners() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.listeners)
}

// Context returns a copy of parent that is cancelled with cause
// [ErrSignalFired] when the signal fires. This is the abort handle passed
// to transport operations. Calling cancel releases the listener.
func (s *Signal) Context(parent context.Context) (ctx context.Context, cancel context.CancelFunc) {
	ctx, cancelCause := context.WithCancelCause(parent)
	stop := s.OnFire(func() { cancelCause(ErrSignalFired) })
	return ctx, func() {
		stop()
		cancelCause(context.Canceled)
	}
}

// SignalFromContext returns a signal that fires when ctx is done. A ctx
// that is already done yields a fired signal.
func SignalFromContext(ctx context.Context) *Signal {
	s := NewSignal()
	if ctx.Err() != nil {
		s.Fire()
		return s
	}
	stop := context.AfterFunc(ctx, s.Fire)
	s.OnFire(func() { stop() })
	return s
}

// AnySignal returns a signal that fires as soon as any of signals fires.
// Once it fires it detaches from the remaining inputs.
func AnySignal(signals ...*Signal) *Signal {
	out := NewSignal()
	stops := make([]func() bool, 0, len(signals))
	for _, sig := range signals {
		if out.Fired() {
			break
		}
		stops = append(stops, sig.OnFire(out.Fire))
	}
	out.OnFire(func() {
		for _, stop := range stops {
			stop()
		}
	})
	return out
}
