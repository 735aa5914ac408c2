package lifebound

import (
	"context"
	"sync"
)

// TakeUntil binds the lifetime of src to signals. The returned stream
// forwards every event of src until any signal fires, then completes
// without error and tears src down exactly once.
//
// If a signal has already fired at subscription time the stream completes
// immediately and src is never subscribed. If src terminates first, the
// binder detaches from every signal.
func TakeUntil[T any](src *Stream[T], signals ...*Signal) *Stream[T] {
	if len(signals) == 0 {
		return src
	}
	return NewStream(func(e Emitter[T]) func() {
		stops := make([]func() bool, 0, len(signals))
		for _, sig := range signals {
			stops = append(stops, sig.OnFire(e.Complete))
			if e.Closed() {
				break
			}
		}

		var upstream *Subscription
		if !e.Closed() {
			upstream = src.Subscribe(Forward(e))
		}

		return func() {
			for _, stop := range stops {
				stop()
			}
			if upstream != nil {
				upstream.Close()
			}
		}
	})
}

// TakeUntilEmit is [TakeUntil] driven by a notifier stream: src is bound
// until notifier emits its first value or terminates.
func TakeUntilEmit[T, N any](src *Stream[T], notifier *Stream[N]) *Stream[T] {
	return NewStream(func(e Emitter[T]) func() {
		sig := NewSignal()
		note := notifier.Subscribe(Observer[N]{
			Next:     func(N) { sig.Fire() },
			Error:    func(error) { sig.Fire() },
			Complete: sig.Fire,
		})
		sub := TakeUntil(src, sig).Subscribe(Forward(e))
		return func() {
			note.Close()
			sub.Close()
		}
	})
}

// TakeWhile binds src to a condition gate with hard-stop semantics: the
// stream completes and tears src down on the gate's first true→false edge.
// A gate that is closed (false) at subscription completes the stream
// before src is subscribed.
func TakeWhile[T any](src *Stream[T], gate *Gate) *Stream[T] {
	return NewStream(func(e Emitter[T]) func() {
		gateSub := gate.Stream().Subscribe(Observer[bool]{
			Next: func(open bool) {
				if !open {
					e.Complete()
				}
			},
		})

		var upstream *Subscription
		if !e.Closed() {
			upstream = src.Subscribe(Forward(e))
		}

		return func() {
			gateSub.Close()
			if upstream != nil {
				upstream.Close()
			}
		}
	})
}

type pauseConfig struct {
	buffer int
}

// PauseOption configures [Pause].
type PauseOption func(*pauseConfig)

// WithBuffer keeps up to n values that arrive while the gate is closed, in
// arrival order. When the buffer is full the oldest value is dropped. The
// buffer is flushed synchronously on the false→true edge, before any newer
// value. WithBuffer panics if n is negative.
func WithBuffer(n int) PauseOption {
	if n < 0 {
		panic("lifebound: WithBuffer requires n >= 0")
	}
	return func(c *pauseConfig) {
		c.buffer = n
	}
}

// Pause gates src with pause/resume semantics. src stays subscribed; while
// the gate is closed its values are dropped (or buffered, see
// [WithBuffer]), while it is open they are forwarded. Switching is
// synchronous with the gate's own edge.
//
// Termination of src is forwarded immediately; values still buffered at
// that point are discarded.
func Pause[T any](src *Stream[T], gate *Gate, opts ...PauseOption) *Stream[T] {
	var cfg pauseConfig
	for _, opt := range opts {
		opt(&cfg)
	}

	return NewStream(func(e Emitter[T]) func() {
		var (
			mu   sync.Mutex
			open bool
			buf  []T
		)

		gateSub := gate.Stream().Subscribe(Observer[bool]{
			Next: func(v bool) {
				mu.Lock()
				open = v
				if !v {
					mu.Unlock()
					return
				}
				pending := buf
				buf = nil
				mu.Unlock()

				for _, x := range pending {
					e.Next(x)
				}
			},
		})

		upstream := src.Subscribe(Observer[T]{
			Next: func(v T) {
				mu.Lock()
				if open {
					mu.Unlock()
					e.Next(v)
					return
				}
				if cfg.buffer > 0 {
					if len(buf) == cfg.buffer {
						buf = buf[1:]
					}
					buf = append(buf, v)
				}
				mu.Unlock()
			},
			Error:    e.Error,
			Complete: e.Complete,
		})

		return func() {
			gateSub.Close()
			upstream.Close()
		}
	})
}

// Switch gates src with resubscribe semantics: src is subscribed on every
// false→true edge of the gate and torn down on every true→false edge, so
// each edge causes exactly one subscribe or one unsubscribe.
//
// Errors from src are forwarded. Completion of src only ends the current
// activation; the stream itself completes when the gate is closed.
func Switch[T any](src *Stream[T], gate *Gate) *Stream[T] {
	return NewStream(func(e Emitter[T]) func() {
		var (
			mu    sync.Mutex
			want  bool
			done  bool
			inner *Subscription
		)

		deactivate := func() {
			mu.Lock()
			sub := inner
			inner = nil
			mu.Unlock()
			if sub != nil {
				sub.Close()
			}
		}

		activate := func() {
			mu.Lock()
			if done || (inner != nil && !inner.Closed()) {
				mu.Unlock()
				return
			}
			mu.Unlock()

			sub := src.Subscribe(Observer[T]{
				Next:  e.Next,
				Error: e.Error,
			})

			mu.Lock()
			keep := want && !done && (inner == nil || inner.Closed())
			if keep {
				inner = sub
			}
			mu.Unlock()
			if !keep {
				sub.Close()
			}
		}

		gateSub := gate.Stream().Subscribe(Observer[bool]{
			Next: func(v bool) {
				mu.Lock()
				want = v
				mu.Unlock()
				if v {
					activate()
				} else {
					deactivate()
				}
			},
			Complete: e.Complete,
		})

		return func() {
			mu.Lock()
			done = true
			mu.Unlock()
			gateSub.Close()
			deactivate()
		}
	})
}

// Bind ties src to the lifetime of o: the stream completes when o is
// destroyed. A nil owner degrades to a pass-through and reports one
// [WarnNoOwner] warning through the reporter set by [WithReporter], or the
// default slog reporter.
func Bind[T any](o *Owner, src *Stream[T], opts ...Option) *Stream[T] {
	if o == nil {
		newConfig(opts).reporter.Report(Warning{
			Kind:    WarnNoOwner,
			Message: "lifebound: Bind called with nil owner; stream is not bound",
		})
		return src
	}
	return TakeUntil(src, o.signal)
}

// UntilDestroyed ties src to the lifetime of the [Owner] carried by ctx.
//
// Outside an owner context it returns src unchanged and reports one
// [WarnNoOwner] warning through [ReporterFromContext]; it never fails.
func UntilDestroyed[T any](ctx context.Context, src *Stream[T]) *Stream[T] {
	o, ok := OwnerFromContext(ctx)
	if !ok {
		ReporterFromContext(ctx).Report(Warning{
			Kind:    WarnNoOwner,
			Message: "lifebound: UntilDestroyed called outside an owner context; stream is not bound",
		})
		return src
	}
	return TakeUntil(src, o.signal)
}
