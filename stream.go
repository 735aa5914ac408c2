package lifebound

import (
	"context"
	"sync"
	"sync/atomic"
	"time"
)

// Observer receives the events of one subscription. Any callback may be nil.
type Observer[T any] struct {
	Next     func(T)
	Error    func(error)
	Complete func()
}

// Emitter is handed to a stream's producer to push events downstream.
//
// Emissions after a terminal event or after the subscription was closed are
// dropped. Emitter methods must not be called concurrently.
type Emitter[T any] interface {
	Next(v T)
	Error(err error)
	Complete()

	// Closed reports whether the downstream subscription has ended.
	// Producers should stop emitting once it returns true.
	Closed() bool
}

// Producer starts one subscription of a [Stream]. It returns the teardown
// that releases whatever the subscription holds; nil means nothing to
// release.
type Producer[T any] func(e Emitter[T]) (teardown func())

// Stream is a cold, push-based stream: every call to Subscribe runs the
// producer afresh.
type Stream[T any] struct {
	produce Producer[T]
}

// NewStream creates a stream from a producer. It panics if p is nil.
func NewStream[T any](p Producer[T]) *Stream[T] {
	if p == nil {
		panic("lifebound: NewStream requires non-nil producer")
	}
	return &Stream[T]{produce: p}
}

// Subscribe starts the stream and returns its teardown handle.
//
// At most one terminal event reaches o. The producer's teardown runs
// exactly once: after a terminal event, or when the subscription is closed,
// whichever comes first. If that happens while the producer is still
// running, teardown runs as soon as the producer returns.
func (s *Stream[T]) Subscribe(o Observer[T], opts ...SubscriptionOption) *Subscription {
	k := &sink[T]{obs: o}
	k.sub = NewSubscription(k.release, opts...)
	k.ready(s.produce(k))
	return k.sub
}

type sink[T any] struct {
	obs     Observer[T]
	sub     *Subscription
	stopped atomic.Bool

	mu        sync.Mutex
	teardown  func()
	started   bool
	cancelled bool
	tornDown  bool
}

func (k *sink[T]) Next(v T) {
	if k.stopped.Load() {
		return
	}
	if k.obs.Next != nil {
		k.obs.Next(v)
	}
}

func (k *sink[T]) Error(err error) {
	if !k.stopped.CompareAndSwap(false, true) {
		return
	}
	if k.obs.Error != nil {
		k.obs.Error(err)
	}
	k.sub.Close()
}

func (k *sink[T]) Complete() {
	if !k.stopped.CompareAndSwap(false, true) {
		return
	}
	if k.obs.Complete != nil {
		k.obs.Complete()
	}
	k.sub.Close()
}

func (k *sink[T]) Closed() bool {
	return k.stopped.Load()
}

// ready records the producer's teardown. A subscription that ended while
// the producer was running is torn down here.
func (k *sink[T]) ready(teardown func()) {
	k.mu.Lock()
	k.teardown = teardown
	k.started = true
	run := k.cancelled && !k.tornDown
	if run {
		k.tornDown = true
	}
	k.mu.Unlock()

	if run && teardown != nil {
		teardown()
	}
}

// release is the Subscription's teardown.
func (k *sink[T]) release() {
	k.stopped.Store(true)

	k.mu.Lock()
	k.cancelled = true
	if !k.started || k.tornDown {
		k.mu.Unlock()
		return
	}
	k.tornDown = true
	teardown := k.teardown
	k.mu.Unlock()

	if teardown != nil {
		teardown()
	}
}

// Forward returns an observer that passes every event to e unchanged.
func Forward[T any](e Emitter[T]) Observer[T] {
	return Observer[T]{
		Next:     e.Next,
		Error:    e.Error,
		Complete: e.Complete,
	}
}

// FromSlice creates a stream that emits every item synchronously on
// subscribe, then completes.
func FromSlice[T any](items []T) *Stream[T] {
	return NewStream(func(e Emitter[T]) func() {
		for _, v := range items {
			if e.Closed() {
				return nil
			}
			e.Next(v)
		}
		e.Complete()
		return nil
	})
}

// Of creates a stream that emits values then completes.
func Of[T any](values ...T) *Stream[T] {
	return FromSlice(values)
}

// Empty creates a stream that completes immediately.
func Empty[T any]() *Stream[T] {
	return NewStream(func(e Emitter[T]) func() {
		e.Complete()
		return nil
	})
}

// Never creates a stream that emits nothing and never terminates.
func Never[T any]() *Stream[T] {
	return NewStream(func(Emitter[T]) func() { return nil })
}

// Fail creates a stream that errors immediately with err.
func Fail[T any](err error) *Stream[T] {
	return NewStream(func(e Emitter[T]) func() {
		e.Error(err)
		return nil
	})
}

// FromChan creates a stream that forwards values received from ch on a
// dedicated goroutine and completes when ch is closed. Closing the
// subscription stops the goroutine; ch itself is left open.
func FromChan[T any](ch <-chan T) *Stream[T] {
	return NewStream(func(e Emitter[T]) func() {
		stop := make(chan struct{})
		go func() {
			for {
				select {
				case <-stop:
					return
				case v, ok := <-ch:
					if !ok {
						e.Complete()
						return
					}
					e.Next(v)
				}
			}
		}()
		return func() { close(stop) }
	})
}

// FromFunc wraps an asynchronous operation, typically a transport call.
// Every subscription invokes fn once on its own goroutine with a context
// that is cancelled (cause [ErrUnsubscribed]) when the subscription is torn
// down. The result is emitted followed by completion, or the error is
// emitted. A result that arrives after teardown is discarded.
func FromFunc[T any](fn func(ctx context.Context) (T, error)) *Stream[T] {
	if fn == nil {
		panic("lifebound: FromFunc requires non-nil function")
	}
	return NewStream(func(e Emitter[T]) func() {
		ctx, cancel := context.WithCancelCause(context.Background())
		go func() {
			v, err := fn(ctx)
			if ctx.Err() != nil {
				return
			}
			if err != nil {
				e.Error(err)
				return
			}
			e.Next(v)
			e.Complete()
		}()
		return func() { cancel(ErrUnsubscribed) }
	})
}

// Interval emits 0, 1, 2, ... every d on clock. It panics if d <= 0.
func Interval(clock Clock, d time.Duration) *Stream[int] {
	if d <= 0 {
		panic("lifebound: Interval requires d > 0")
	}
	if clock == nil {
		clock = SystemClock
	}
	return NewStream(func(e Emitter[int]) func() {
		var (
			mu   sync.Mutex
			stop func() bool
			done bool
			n    int
		)

		var tick func()
		tick = func() {
			mu.Lock()
			if done {
				mu.Unlock()
				return
			}
			v := n
			n++
			mu.Unlock()

			e.Next(v)

			mu.Lock()
			if !done {
				stop = clock.AfterFunc(d, tick)
			}
			mu.Unlock()
		}

		mu.Lock()
		stop = clock.AfterFunc(d, tick)
		mu.Unlock()

		return func() {
			mu.Lock()
			done = true
			s := stop
			mu.Unlock()
			s()
		}
	})
}
