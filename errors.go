package lifebound

import "errors"

var (
	// ErrSignalFired is the cancellation cause of contexts derived from a
	// [Signal] via [Signal.Context] once the signal fires.
	ErrSignalFired = errors.New("lifebound: signal fired")

	// ErrOwnerDestroyed is the cancellation cause of an [Owner]'s context.
	ErrOwnerDestroyed = errors.New("lifebound: owner destroyed")

	// ErrUnsubscribed is the cancellation cause handed to a [FromFunc]
	// operation whose subscription was torn down before it finished.
	ErrUnsubscribed = errors.New("lifebound: unsubscribed")
)
