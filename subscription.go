package lifebound

import (
	"sync/atomic"

	"github.com/google/uuid"
)

// Handle is a teardown handle that a [Registry] can own.
//
// Close must be idempotent and Closed must be monotonic. Handles are keyed
// by identity, so implementations must be comparable (pointer receivers).
type Handle interface {
	Close()
	Closed() bool
}

// Subscription is the teardown handle of one active subscription.
//
// The teardown callback runs at most once, on the first call to Close.
// Closing an already closed subscription is a silent no-op.
type Subscription struct {
	id       string
	tag      string
	closed   atomic.Bool
	teardown func()
	reporter Reporter
}

// SubscriptionOption configures a [Subscription].
type SubscriptionOption func(*Subscription)

// WithID sets a caller-supplied identifier instead of a random UUID.
func WithID(id string) SubscriptionOption {
	return func(s *Subscription) {
		if id != "" {
			s.id = id
		}
	}
}

// WithTag attaches a human-readable tag.
func WithTag(tag string) SubscriptionOption {
	return func(s *Subscription) {
		s.tag = tag
	}
}

// WithTeardownReporter routes teardown panics to r.
func WithTeardownReporter(r Reporter) SubscriptionOption {
	return func(s *Subscription) {
		if r != nil {
			s.reporter = r
		}
	}
}

// NewSubscription returns an open subscription that calls teardown when
// closed. teardown may be nil.
func NewSubscription(teardown func(), opts ...SubscriptionOption) *Subscription {
	s := &Subscription{teardown: teardown}
	for _, opt := range opts {
		opt(s)
	}
	if s.id == "" {
		s.id = uuid.NewString()
	}
	return s
}

// ID returns the subscription's identifier.
func (s *Subscription) ID() string { return s.id }

// Tag returns the subscription's tag, if any.
func (s *Subscription) Tag() string { return s.tag }

// Closed reports whether Close has been called.
func (s *Subscription) Closed() bool { return s.closed.Load() }

// Close marks the subscription closed and runs its teardown. Only the first
// call has an effect; the closed flag is set before teardown runs, so a
// teardown that closes its own subscription does not recurse.
//
// A panicking teardown is recovered and reported as [WarnTeardownPanic].
func (s *Subscription) Close() {
	if !s.closed.CompareAndSwap(false, true) {
		return
	}
	if s.teardown == nil {
		return
	}

	defer func() {
		if r := recover(); r != nil {
			rep := s.reporter
			if rep == nil {
				rep = SlogReporter(nil)
			}
			rep.Report(Warning{
				Kind:         WarnTeardownPanic,
				Message:      "lifebound: teardown panicked",
				Subscription: s.id,
				Tag:          s.tag,
				Err:          newPanicError(r),
			})
		}
	}()
	s.teardown()
}

func (s *Subscription) String() string {
	if s.tag != "" {
		return s.tag + "#" + s.id
	}
	return s.id
}
