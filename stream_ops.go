package lifebound

import (
	"context"
	"sync"
)

// Map transforms every value with fn.
// Note: This is a function and not a method because Go does not support
// generic methods on generic types.
func Map[T, R any](s *Stream[T], fn func(T) R) *Stream[R] {
	if fn == nil {
		panic("lifebound: Map requires non-nil function")
	}
	return NewStream(func(e Emitter[R]) func() {
		return s.Subscribe(Observer[T]{
			Next:     func(v T) { e.Next(fn(v)) },
			Error:    e.Error,
			Complete: e.Complete,
		}).Close
	})
}

// Filter forwards only the values for which keep returns true.
func Filter[T any](s *Stream[T], keep func(T) bool) *Stream[T] {
	if keep == nil {
		panic("lifebound: Filter requires non-nil predicate")
	}
	return NewStream(func(e Emitter[T]) func() {
		return s.Subscribe(Observer[T]{
			Next: func(v T) {
				if keep(v) {
					e.Next(v)
				}
			},
			Error:    e.Error,
			Complete: e.Complete,
		}).Close
	})
}

// Tap calls the side observer for every event before forwarding it
// unchanged. The side observer cannot alter or delay the stream.
func Tap[T any](s *Stream[T], side Observer[T]) *Stream[T] {
	return NewStream(func(e Emitter[T]) func() {
		return s.Subscribe(Observer[T]{
			Next: func(v T) {
				if side.Next != nil {
					side.Next(v)
				}
				e.Next(v)
			},
			Error: func(err error) {
				if side.Error != nil {
					side.Error(err)
				}
				e.Error(err)
			},
			Complete: func() {
				if side.Complete != nil {
					side.Complete()
				}
				e.Complete()
			},
		}).Close
	})
}

// Merge subscribes to every stream and forwards all values. It completes
// once all inputs complete and errors with the first input error, tearing
// down the other inputs.
func Merge[T any](streams ...*Stream[T]) *Stream[T] {
	if len(streams) == 0 {
		return Empty[T]()
	}
	return NewStream(func(e Emitter[T]) func() {
		var (
			mu        sync.Mutex
			remaining = len(streams)
			subs      = make([]*Subscription, 0, len(streams))
		)

		for _, s := range streams {
			if e.Closed() {
				break
			}
			sub := s.Subscribe(Observer[T]{
				Next:  e.Next,
				Error: e.Error,
				Complete: func() {
					mu.Lock()
					remaining--
					last := remaining == 0
					mu.Unlock()
					if last {
						e.Complete()
					}
				},
			})
			mu.Lock()
			subs = append(subs, sub)
			mu.Unlock()
		}

		return func() {
			mu.Lock()
			all := subs
			subs = nil
			mu.Unlock()
			for _, sub := range all {
				sub.Close()
			}
		}
	})
}

// Collect subscribes to s and blocks until it terminates or ctx is done.
// It returns the values received so far alongside any error, following the
// io.Reader convention of partial results.
func Collect[T any](ctx context.Context, s *Stream[T]) ([]T, error) {
	var (
		mu    sync.Mutex
		items []T
		err   error
		done  = make(chan struct{})
		once  sync.Once
	)
	finish := func() { once.Do(func() { close(done) }) }

	sub := s.Subscribe(Observer[T]{
		Next: func(v T) {
			mu.Lock()
			items = append(items, v)
			mu.Unlock()
		},
		Error: func(e error) {
			mu.Lock()
			err = e
			mu.Unlock()
			finish()
		},
		Complete: finish,
	})

	select {
	case <-done:
	case <-ctx.Done():
		sub.Close()
		mu.Lock()
		defer mu.Unlock()
		return items, ctx.Err()
	}

	mu.Lock()
	defer mu.Unlock()
	return items, err
}
