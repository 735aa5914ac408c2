package lifebound

import "time"

// Clock is the time source used by every component that waits: retry
// backoff, debug record retention and periodic leak checks.
type Clock interface {
	Now() time.Time

	// AfterFunc arranges for f to run once d has elapsed and returns a
	// function that cancels the call. stop reports false if f already ran
	// or was already stopped, like [time.Timer.Stop].
	AfterFunc(d time.Duration, f func()) (stop func() bool)
}

// SystemClock is the wall clock. Callbacks run in their own goroutine.
var SystemClock Clock = systemClock{}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

func (systemClock) AfterFunc(d time.Duration, f func()) func() bool {
	return time.AfterFunc(d, f).Stop
}
