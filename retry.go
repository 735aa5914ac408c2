package lifebound

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sethvargo/go-retry"
	"github.com/sony/gobreaker"
)

// RetryPolicy bounds [RetryWithBackoff]. After the n-th failure (n counted
// from zero) the next attempt waits min(InitialDelay*2^n, MaxDelay).
type RetryPolicy struct {
	// MaxRetries is the number of attempts after the first one.
	MaxRetries int
	// InitialDelay is the wait before the first retry. Must be > 0.
	InitialDelay time.Duration
	// MaxDelay caps every wait. Zero means uncapped.
	MaxDelay time.Duration
}

func (p RetryPolicy) validate() {
	if p.MaxRetries < 0 {
		panic("lifebound: RetryWithBackoff requires MaxRetries >= 0")
	}
	if p.InitialDelay <= 0 {
		panic("lifebound: RetryWithBackoff requires InitialDelay > 0")
	}
	if p.MaxDelay < 0 {
		panic("lifebound: RetryWithBackoff requires MaxDelay >= 0")
	}
}

// schedule returns a fresh delay sequence for one top-level subscription.
func (p RetryPolicy) schedule() retry.Backoff {
	b := retry.NewExponential(p.InitialDelay)
	if p.MaxDelay > 0 {
		b = retry.WithCappedDuration(p.MaxDelay, b)
	}
	return retry.WithMaxRetries(uint64(p.MaxRetries), b)
}

// OpState is the state of one coordinated operation.
type OpState int

const (
	// StateIdle: nothing in flight. Initial state, and the state after the
	// operation completed.
	StateIdle OpState = iota
	// StateRunning: an attempt is subscribed.
	StateRunning
	// StateBackingOff: an attempt failed and the next one is scheduled.
	StateBackingOff
	// StateFailed: retries are exhausted. Terminal.
	StateFailed
	// StateCancelled: torn down before finishing. Terminal.
	StateCancelled
)

func (s OpState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRunning:
		return "running"
	case StateBackingOff:
		return "backing-off"
	case StateFailed:
		return "failed"
	case StateCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

func (s OpState) terminal() bool {
	return s == StateFailed || s == StateCancelled
}

type retryConfig struct {
	clock   Clock
	hook    func(OpState)
	breaker *gobreaker.TwoStepCircuitBreaker
}

// RetryOption configures [RetryWithBackoff].
type RetryOption func(*retryConfig)

// WithRetryClock schedules backoff waits on c instead of [SystemClock].
func WithRetryClock(c Clock) RetryOption {
	if c == nil {
		panic("lifebound: WithRetryClock requires non-nil clock")
	}
	return func(cfg *retryConfig) {
		cfg.clock = c
	}
}

// WithStateHook calls fn on every state transition of each subscription.
// fn runs synchronously and must not block.
func WithStateHook(fn func(OpState)) RetryOption {
	return func(cfg *retryConfig) {
		cfg.hook = fn
	}
}

// WithBreaker runs every attempt through cb. An attempt rejected by an open
// breaker fails with the breaker's error, wrapping the last error of the
// source if there was one, and is retried like any other failure. An
// attempt that errors, or is torn down before emitting, is reported to cb
// as a failure.
func WithBreaker(cb *gobreaker.TwoStepCircuitBreaker) RetryOption {
	return func(cfg *retryConfig) {
		cfg.breaker = cb
	}
}

// RetryWithBackoff resubscribes src after each error until p is exhausted.
// Each retry is a fresh subscription to src, never a replay.
//
// Values are forwarded as they arrive; a successful emission does not reset
// the attempt count, only a new top-level subscription does. The backoff
// wait is cancelled when the returned stream is torn down, and a timer that
// fires afterwards does nothing. On exhaustion the last error is delivered
// unchanged; with [WithBreaker], a final attempt rejected by the breaker
// delivers the breaker's error wrapping the last error of the source.
func RetryWithBackoff[T any](src *Stream[T], p RetryPolicy, opts ...RetryOption) *Stream[T] {
	p.validate()
	cfg := retryConfig{clock: SystemClock}
	for _, opt := range opts {
		opt(&cfg)
	}

	return NewStream(func(e Emitter[T]) func() {
		r := &retrier[T]{
			src:      src,
			e:        e,
			cfg:      cfg,
			schedule: p.schedule(),
		}
		r.run()
		return r.stop
	})
}

type retrier[T any] struct {
	src      *Stream[T]
	e        Emitter[T]
	cfg      retryConfig
	schedule retry.Backoff

	mu       sync.Mutex
	state    OpState
	stopped  bool
	finished bool
	attempt  uint64
	inner    *Subscription
	timer    func() bool
	settle   func(success bool)
	produced bool
	lastErr  error
}

// transition moves to s unless the current state is terminal.
func (r *retrier[T]) transition(s OpState) {
	r.mu.Lock()
	if r.state.terminal() || r.state == s {
		r.mu.Unlock()
		return
	}
	r.state = s
	r.mu.Unlock()

	if r.cfg.hook != nil {
		r.cfg.hook(s)
	}
}

func (r *retrier[T]) run() {
	r.mu.Lock()
	if r.stopped {
		r.mu.Unlock()
		return
	}
	r.attempt++
	attempt := r.attempt
	r.timer = nil
	r.produced = false
	lastErr := r.lastErr
	r.mu.Unlock()

	settle := func(bool) {}
	if r.cfg.breaker != nil {
		done, err := r.cfg.breaker.Allow()
		if err != nil {
			if lastErr != nil {
				err = fmt.Errorf("%w: %w", err, lastErr)
			}
			r.fail(err)
			return
		}
		var once atomic.Bool
		settle = func(success bool) {
			if once.CompareAndSwap(false, true) {
				done(success)
			}
		}
	}

	r.transition(StateRunning)

	r.mu.Lock()
	r.settle = settle
	r.mu.Unlock()

	sub := r.src.Subscribe(Observer[T]{
		Next: func(v T) {
			r.mu.Lock()
			r.produced = true
			r.mu.Unlock()
			r.e.Next(v)
		},
		Error: func(err error) {
			settle(false)
			r.mu.Lock()
			r.lastErr = err
			r.mu.Unlock()
			r.fail(err)
		},
		Complete: func() {
			settle(true)
			r.mu.Lock()
			r.finished = true
			r.mu.Unlock()
			r.transition(StateIdle)
			r.e.Complete()
		},
	})

	r.mu.Lock()
	current := attempt == r.attempt && !r.stopped
	if current {
		r.inner = sub
	}
	r.mu.Unlock()
	if !current {
		sub.Close()
	}
}

func (r *retrier[T]) fail(err error) {
	delay, exhausted := r.schedule.Next()
	if exhausted {
		r.transition(StateFailed)
		r.e.Error(err)
		return
	}

	r.transition(StateBackingOff)

	r.mu.Lock()
	if r.stopped {
		r.mu.Unlock()
		return
	}
	r.inner = nil
	r.timer = r.cfg.clock.AfterFunc(delay, r.run)
	r.mu.Unlock()
}

// stop is the teardown of the retried stream.
func (r *retrier[T]) stop() {
	r.mu.Lock()
	if r.stopped {
		r.mu.Unlock()
		return
	}
	r.stopped = true
	inner, timer, settle := r.inner, r.timer, r.settle
	finished, produced := r.finished, r.produced
	r.inner, r.timer = nil, nil
	r.mu.Unlock()

	if timer != nil {
		timer()
	}
	if inner != nil {
		inner.Close()
	}
	// A cancelled attempt only counts as a success if the backend answered.
	if settle != nil {
		settle(produced)
	}
	if !finished {
		r.transition(StateCancelled)
	}
}
