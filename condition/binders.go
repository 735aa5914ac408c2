package condition

import "github.com/baxromumarov/lifebound"

func unbound(cfg binderConfig, binder, source string) {
	cfg.reporter.Report(lifebound.Warning{
		Kind:    lifebound.WarnNoSource,
		Message: "condition: " + binder + " called without a " + source + "; stream is not bound",
	})
}

// UntilNavigation completes src at the next navigation reported by r.
// A nil router degrades to a pass-through with a [lifebound.WarnNoSource]
// warning sent to the reporter set by [WithReporter].
func UntilNavigation[T any](src *lifebound.Stream[T], r *Router, opts ...Option) *lifebound.Stream[T] {
	cfg := newBinderConfig(opts)
	if r == nil {
		unbound(cfg, "UntilNavigation", "router")
		return src
	}
	return lifebound.TakeUntilEmit(src, r.Events())
}

// WhileRoute keeps src alive while the current path matches p and completes
// it when a navigation leaves the pattern. Each subscription gets its own
// route gate, released on teardown.
//
//	settings := condition.MustCompilePattern("/settings/**")
//	condition.WhileRoute(updates, router, settings).Subscribe(obs)
func WhileRoute[T any](src *lifebound.Stream[T], r *Router, p *Pattern, opts ...Option) *lifebound.Stream[T] {
	cfg := newBinderConfig(opts)
	if r == nil {
		unbound(cfg, "WhileRoute", "router")
		return src
	}
	return lifebound.NewStream(func(e lifebound.Emitter[T]) func() {
		gate, stop := r.Matches(p)
		sub := lifebound.TakeWhile(src, gate).Subscribe(lifebound.Forward(e))
		return func() {
			sub.Close()
			stop()
		}
	})
}

// UntilHidden completes src the first time v becomes hidden.
func UntilHidden[T any](src *lifebound.Stream[T], v *Visibility, opts ...Option) *lifebound.Stream[T] {
	cfg := newBinderConfig(opts)
	if v == nil {
		unbound(cfg, "UntilHidden", "visibility source")
		return src
	}
	return lifebound.TakeWhile(src, v.gate)
}

// PauseWhileHidden keeps src subscribed but drops its values while v is
// hidden. With [WithBuffer] the latest values are kept and
// delivered when v becomes visible again.
func PauseWhileHidden[T any](src *lifebound.Stream[T], v *Visibility, opts ...Option) *lifebound.Stream[T] {
	cfg := newBinderConfig(opts)
	if v == nil {
		unbound(cfg, "PauseWhileHidden", "visibility source")
		return src
	}
	return lifebound.Pause(src, v.gate, cfg.pause...)
}

// WhileVisible subscribes src each time v becomes visible and tears it
// down each time v becomes hidden.
func WhileVisible[T any](src *lifebound.Stream[T], v *Visibility, opts ...Option) *lifebound.Stream[T] {
	cfg := newBinderConfig(opts)
	if v == nil {
		unbound(cfg, "WhileVisible", "visibility source")
		return src
	}
	return lifebound.Switch(src, v.gate)
}
