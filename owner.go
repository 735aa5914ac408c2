package lifebound

import (
	"context"
	"sync/atomic"
)

// Owner is a lifecycle scope (a component, session or form) whose teardown
// ends every stream and subscription bound to it.
//
// An owner is destroyed exactly once, either explicitly via
// [Owner.Destroy] or when its parent context is done. Destruction:
//
//  1. marks the owner's [Registry] destroyed, so nothing can be added
//     post-mortem;
//  2. fires the owner's [Signal]: bound streams complete and the
//     [Owner.OnDestroy] callbacks run;
//  3. tears down every subscription left in the registry;
//  4. cancels [Owner.Context] with cause [ErrOwnerDestroyed].
//
// Example usage:
//
//	owner := lifebound.NewOwner(ctx, "profile-page")
//	lifebound.Subscribe(owner, updates, lifebound.Observer[Update]{
//	    Next: render,
//	})
//	...
//	owner.Destroy()
type Owner struct {
	name     string
	cfg      config
	signal   *Signal
	registry *Registry

	ctx       context.Context
	cancel    context.CancelCauseFunc
	destroyed atomic.Bool
}

// NewOwner creates an owner that is destroyed no later than parent is done.
func NewOwner(parent context.Context, name string, opts ...Option) *Owner {
	cfg := newConfig(opts)
	cfg.name = name

	ctx, cancel := context.WithCancelCause(parent)
	o := &Owner{
		name:     name,
		cfg:      cfg,
		signal:   NewSignal(),
		registry: newRegistry(cfg),
		cancel:   cancel,
	}
	o.ctx = ContextWithOwner(ContextWithReporter(ctx, cfg.reporter), o)

	// Runs on parent cancellation; after an explicit Destroy it is a no-op.
	context.AfterFunc(ctx, o.Destroy)

	return o
}

// Destroy tears the owner down. It is idempotent and safe to call from
// within a teardown or destroy callback.
func (o *Owner) Destroy() {
	if !o.destroyed.CompareAndSwap(false, true) {
		return
	}
	o.registry.markDestroyed()

	o.fire()
	o.registry.TeardownAll()
	o.cancel(ErrOwnerDestroyed)
}

// fire fires the owner signal. A panicking destroy callback is reported as
// [WarnTeardownPanic] instead of escaping Destroy, which may be running on
// the parent context's AfterFunc goroutine.
func (o *Owner) fire() {
	defer func() {
		if r := recover(); r != nil {
			o.cfg.reporter.Report(Warning{
				Kind:    WarnTeardownPanic,
				Message: "lifebound: destroy callback panicked",
				Owner:   o.name,
				Err:     newPanicError(r),
			})
		}
	}()
	o.signal.Fire()
}

// Destroyed reports whether the owner has been destroyed.
func (o *Owner) Destroyed() bool {
	return o.destroyed.Load()
}

// OnDestroy registers fn to run once when the owner is destroyed, or
// immediately if it already was. Any number of callbacks may be registered.
func (o *Owner) OnDestroy(fn func()) (stop func() bool) {
	return o.signal.OnFire(fn)
}

// Name returns the owner's name.
func (o *Owner) Name() string { return o.name }

// Signal returns the signal fired on destruction.
func (o *Owner) Signal() *Signal { return o.signal }

// Registry returns the owner's subscription registry.
func (o *Owner) Registry() *Registry { return o.registry }

// Context returns a context that carries the owner (see [UntilDestroyed])
// and its reporter, and is cancelled when the owner is destroyed.
func (o *Owner) Context() context.Context { return o.ctx }

// Track registers handles with the owner's registry.
func (o *Owner) Track(handles ...Handle) {
	o.registry.Add(handles...)
}

// Subscribe binds src to o, subscribes obs and registers the resulting
// subscription with o's registry. With a nil owner it behaves like [Bind]:
// the stream is subscribed unbound and a warning is reported.
func Subscribe[T any](o *Owner, src *Stream[T], obs Observer[T], opts ...SubscriptionOption) *Subscription {
	if o != nil {
		opts = append([]SubscriptionOption{WithTeardownReporter(o.cfg.reporter)}, opts...)
	}
	sub := Bind(o, src).Subscribe(obs, opts...)
	if o != nil {
		o.registry.Add(sub)
	}
	return sub
}

type ownerKey struct{}

// ContextWithOwner returns a copy of ctx carrying o.
func ContextWithOwner(ctx context.Context, o *Owner) context.Context {
	return context.WithValue(ctx, ownerKey{}, o)
}

// OwnerFromContext returns the owner carried by ctx, if any.
func OwnerFromContext(ctx context.Context) (*Owner, bool) {
	o, ok := ctx.Value(ownerKey{}).(*Owner)
	return o, ok && o != nil
}
