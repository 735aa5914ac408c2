package lifebound

import (
	"context"
	"log/slog"
)

// WarningKind classifies a policy warning.
type WarningKind int

const (
	// WarnNoOwner: a binder was used without a reachable owner and degraded
	// to a pass-through.
	WarnNoOwner WarningKind = iota + 1

	// WarnAddAfterDestroy: handles were added to a destroyed registry and
	// closed on the spot.
	WarnAddAfterDestroy

	// WarnBeginAfterDestroy: an operation was started on a destroyed
	// coordinator and cancelled on the spot.
	WarnBeginAfterDestroy

	// WarnTeardownPanic: a teardown callback panicked. The panic was
	// recovered and the handle is closed.
	WarnTeardownPanic

	// WarnNoSource: a condition binder was given no navigation or
	// visibility source and degraded to a pass-through.
	WarnNoSource
)

func (k WarningKind) String() string {
	switch k {
	case WarnNoOwner:
		return "no_owner"
	case WarnAddAfterDestroy:
		return "add_after_destroy"
	case WarnBeginAfterDestroy:
		return "begin_after_destroy"
	case WarnTeardownPanic:
		return "teardown_panic"
	case WarnNoSource:
		return "no_source"
	default:
		return "unknown"
	}
}

// Warning is a diagnostic emitted by a policy decision. Warnings are never
// returned as errors.
type Warning struct {
	Kind    WarningKind
	Message string

	// Owner names the owner, registry or coordinator involved, if any.
	Owner string

	// Subscription and Tag identify the handle involved, if any.
	Subscription string
	Tag          string

	Err error
}

// Reporter receives policy warnings. Implementations must be safe for
// concurrent use and must not panic.
type Reporter interface {
	Report(w Warning)
}

// ReporterFunc adapts a function to [Reporter].
type ReporterFunc func(w Warning)

func (f ReporterFunc) Report(w Warning) { f(w) }

// SlogReporter returns a [Reporter] that logs every warning at warn level.
// A nil logger resolves to [slog.Default] on each report, so a later
// [slog.SetDefault] is honoured.
func SlogReporter(l *slog.Logger) Reporter {
	return ReporterFunc(func(w Warning) {
		log := l
		if log == nil {
			log = slog.Default()
		}

		attrs := make([]slog.Attr, 0, 5)
		attrs = append(attrs, slog.String("kind", w.Kind.String()))
		if w.Owner != "" {
			attrs = append(attrs, slog.String("owner", w.Owner))
		}
		if w.Subscription != "" {
			attrs = append(attrs, slog.String("subscription", w.Subscription))
		}
		if w.Tag != "" {
			attrs = append(attrs, slog.String("tag", w.Tag))
		}
		if w.Err != nil {
			attrs = append(attrs, slog.Any("error", w.Err))
		}
		log.LogAttrs(context.Background(), slog.LevelWarn, w.Message, attrs...)
	})
}

type reporterKey struct{}

// ContextWithReporter returns a copy of ctx carrying r. Context-driven
// binders such as [UntilDestroyed] report through it.
func ContextWithReporter(ctx context.Context, r Reporter) context.Context {
	return context.WithValue(ctx, reporterKey{}, r)
}

// ReporterFromContext returns the reporter stored in ctx, or a
// [SlogReporter] for the default logger.
func ReporterFromContext(ctx context.Context) Reporter {
	if r, ok := ctx.Value(reporterKey{}).(Reporter); ok && r != nil {
		return r
	}
	return SlogReporter(nil)
}
