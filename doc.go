// Package lifebound ties the lifetime of stream subscriptions to the
// lifetime of their owner.
//
// An owner is anything with a teardown: a component, a session, a form.
// Every subscription bound to an owner ends when the owner is destroyed,
// and each teardown runs exactly once.
//
// # Owners
//
// [NewOwner] creates an [Owner] that is destroyed explicitly with
// [Owner.Destroy] or when its parent context is done:
//
//	owner := lifebound.NewOwner(ctx, "profile-page")
//	defer owner.Destroy()
//
//	lifebound.Subscribe(owner, updates, lifebound.Observer[Update]{
//	    Next: render,
//	})
//
// [Subscribe] binds the stream to the owner and registers the subscription
// with the owner's [Registry]. [Owner.Context] carries the owner, so code
// that only has a context can bind with [UntilDestroyed].
//
// # Signals
//
// A [Signal] is a single-shot cancellation event. Listeners registered with
// [Signal.OnFire] run once when it fires, or immediately if it already
// has. [Signal.Context] and [SignalFromContext] bridge signals and
// contexts; [AnySignal] merges them.
//
// # Binders
//
// Binders derive a stream whose lifetime is limited by signals or gates:
//
//   - [TakeUntil]: complete when any signal fires.
//   - [TakeUntilEmit]: complete when a notifier stream emits.
//   - [TakeWhile]: complete when a [Gate] closes.
//   - [Pause]: drop (or buffer, see [WithBuffer]) values while a gate is
//     closed.
//   - [Switch]: subscribe on every gate opening, unsubscribe on every
//     closing.
//   - [Bind], [UntilDestroyed]: complete when an owner is destroyed.
//
// A binder used without an owner degrades to a pass-through and reports a
// [Warning]; it never fails.
//
// # Coordination
//
// A [Coordinator] keeps one running operation per key. [Supersede] makes
// every new subscription cancel the previous one under the same key, and
// the previous teardown has run before the new operation starts.
// [RetryWithBackoff] resubscribes a failing stream with exponential,
// cancellable waits and delivers the last error unchanged once the policy
// is exhausted. Transport calls are wrapped with [FromFunc], whose context
// is cancelled on teardown.
//
// # Warnings
//
// Policy decisions such as adding to a destroyed registry are reported as
// [Warning] values through a [Reporter]. The default logs them with
// log/slog; [WithReporter] replaces it.
//
// # Streams
//
// [Stream] is a minimal cold, push-based stream: each [Stream.Subscribe]
// runs its [Producer] afresh, at most one terminal event is delivered and
// the producer's teardown runs exactly once. [Subject] and [Gate] are hot
// sources for external events and conditions.
//
// The [github.com/baxromumarov/lifebound/condition] subpackage adapts
// navigation and visibility sources to gates, and
// [github.com/baxromumarov/lifebound/debug] records tracked subscriptions
// for leak detection.
package lifebound
