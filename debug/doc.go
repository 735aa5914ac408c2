// Package debug keeps per-subscription records of tracked streams for
// introspection and leak detection.
//
// A [Registry] is created explicitly and passed to [Track]:
//
//	reg := debug.New(debug.DefaultConfig())
//	defer reg.Close()
//
//	feed := debug.Track(reg, updates, debug.Meta{Name: "feed", Owner: "profile"})
//
// Tracking is passive: values, errors and completion reach the observer
// exactly as they would without it. A disabled registry returns the stream
// unchanged.
//
// Finished records are kept for Config.Retention so they can still be
// inspected, then purged. [Registry.LeakScore] counts active records that
// are old and quiet; it is a heuristic, not a proof. [NewCollector] exposes
// the aggregate as Prometheus metrics.
package debug
