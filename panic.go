package lifebound

import (
	"fmt"
	"runtime"
)

// PanicError wraps a value recovered from a panicking teardown or signal
// listener together with the goroutine stack captured at that point.
//
// Teardown panics never escape [Subscription.Close]; they are reported as a
// [WarnTeardownPanic] warning carrying the *PanicError. Listener panics are
// re-raised by [Signal.Fire] after every listener has run.
type PanicError struct {
	// Value is the original value passed to panic().
	Value any

	// Stack is the goroutine stack trace at the point of panic.
	Stack string
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("panic: %v\n\n%s", e.Value, e.Stack)
}

// Unwrap returns the panic value when it is an error.
func (e *PanicError) Unwrap() error {
	if err, ok := e.Value.(error); ok {
		return err
	}
	return nil
}

func newPanicError(v any) *PanicError {
	if pe, ok := v.(*PanicError); ok {
		return pe
	}
	// 8 KiB is enough for most stack traces. runtime.Stack truncates
	// gracefully if the buffer is too small.
	buf := make([]byte, 8192)
	n := runtime.Stack(buf, false)
	return &PanicError{
		Value: v,
		Stack: string(buf[:n]),
	}
}
