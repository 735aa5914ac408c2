package lifebound

import (
	"slices"
	"sync"
)

type subjectEntry[T any] struct {
	e Emitter[T]
}

// Subject is a hot, multicast event source: an adapter for external event
// streams such as navigation or form events. Observers only see events
// emitted after they subscribed; a terminated subject replays its terminal
// event to late subscribers.
type Subject[T any] struct {
	mu      sync.Mutex
	entries []*subjectEntry[T]
	done    bool
	err     error
}

// NewSubject returns an open subject.
func NewSubject[T any]() *Subject[T] {
	return &Subject[T]{}
}

func (s *Subject[T]) snapshot() []*subjectEntry[T] {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.done {
		return nil
	}
	return slices.Clone(s.entries)
}

// Next delivers v to the observers subscribed when Next was called.
func (s *Subject[T]) Next(v T) {
	for _, en := range s.snapshot() {
		en.e.Next(v)
	}
}

// Error terminates the subject with err. Later calls are ignored.
func (s *Subject[T]) Error(err error) {
	for _, en := range s.terminate(err) {
		en.e.Error(err)
	}
}

// Complete terminates the subject. Later calls are ignored.
func (s *Subject[T]) Complete() {
	for _, en := range s.terminate(nil) {
		en.e.Complete()
	}
}

func (s *Subject[T]) terminate(err error) []*subjectEntry[T] {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.done {
		return nil
	}
	s.done = true
	s.err = err
	entries := s.entries
	s.entries = nil
	return entries
}

// Observers returns the number of live subscriptions.
func (s *Subject[T]) Observers() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// Stream returns a stream view of the subject.
func (s *Subject[T]) Stream() *Stream[T] {
	return NewStream(func(e Emitter[T]) func() {
		s.mu.Lock()
		if s.done {
			err := s.err
			s.mu.Unlock()
			if err != nil {
				e.Error(err)
			} else {
				e.Complete()
			}
			return nil
		}
		en := &subjectEntry[T]{e: e}
		s.entries = append(s.entries, en)
		s.mu.Unlock()

		return func() {
			s.mu.Lock()
			s.entries = slices.DeleteFunc(s.entries, func(x *subjectEntry[T]) bool { return x == en })
			s.mu.Unlock()
		}
	})
}
