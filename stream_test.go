package lifebound

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/baxromumarov/lifebound/internal/clocktest"
)

// events records what an observer saw.
type events[T any] struct {
	values    []T
	err       error
	completed int
	errored   int
}

func (ev *events[T]) observer() Observer[T] {
	return Observer[T]{
		Next: func(v T) { ev.values = append(ev.values, v) },
		Error: func(err error) {
			ev.errored++
			ev.err = err
		},
		Complete: func() { ev.completed++ },
	}
}

// spy is a controllable source that counts subscriptions and teardowns.
type spy[T any] struct {
	subscribes atomic.Int32
	teardowns  atomic.Int32
	emitter    Emitter[T]
}

func (p *spy[T]) stream() *Stream[T] {
	return NewStream(func(e Emitter[T]) func() {
		p.subscribes.Add(1)
		p.emitter = e
		return func() { p.teardowns.Add(1) }
	})
}

func TestStream_FromSlice(t *testing.T) {
	var ev events[int]
	sub := FromSlice([]int{1, 2, 3}).Subscribe(ev.observer())

	assert.Equal(t, []int{1, 2, 3}, ev.values)
	assert.Equal(t, 1, ev.completed)
	assert.True(t, sub.Closed(), "terminal event closes the subscription")
}

func TestStream_IsCold(t *testing.T) {
	var p spy[int]
	s := p.stream()

	s.Subscribe(Observer[int]{})
	s.Subscribe(Observer[int]{})

	assert.Equal(t, int32(2), p.subscribes.Load(), "every Subscribe runs the producer")
}

func TestStream_AtMostOneTerminal(t *testing.T) {
	var ev events[int]
	NewStream(func(e Emitter[int]) func() {
		e.Next(1)
		e.Complete()
		e.Error(errors.New("late"))
		e.Complete()
		e.Next(2)
		return nil
	}).Subscribe(ev.observer())

	assert.Equal(t, []int{1}, ev.values)
	assert.Equal(t, 1, ev.completed)
	assert.Equal(t, 0, ev.errored)
}

func TestStream_TeardownOnceAfterTerminalAndClose(t *testing.T) {
	var p spy[int]
	sub := p.stream().Subscribe(Observer[int]{})

	p.emitter.Complete()
	sub.Close()
	sub.Close()

	assert.Equal(t, int32(1), p.teardowns.Load())
}

func TestStream_TerminalDuringProducerDefersTeardown(t *testing.T) {
	var order []string
	NewStream(func(e Emitter[int]) func() {
		e.Complete()
		order = append(order, "producer-returned")
		return func() { order = append(order, "teardown") }
	}).Subscribe(Observer[int]{})

	assert.Equal(t, []string{"producer-returned", "teardown"}, order)
}

func TestStream_CloseStopsDelivery(t *testing.T) {
	var p spy[int]
	var ev events[int]
	sub := p.stream().Subscribe(ev.observer())

	p.emitter.Next(1)
	sub.Close()
	p.emitter.Next(2)
	p.emitter.Complete()

	assert.Equal(t, []int{1}, ev.values)
	assert.Equal(t, 0, ev.completed, "closing is not a terminal event")
	assert.True(t, p.emitter.Closed())
	assert.Equal(t, int32(1), p.teardowns.Load())
}

func TestNewStream_PanicsOnNil(t *testing.T) {
	mustPanic(t, "NewStream requires non-nil producer", func() {
		NewStream[int](nil)
	})
}

func TestStream_EmptyNeverFail(t *testing.T) {
	var empty events[int]
	Empty[int]().Subscribe(empty.observer())
	assert.Equal(t, 1, empty.completed)

	var never events[int]
	sub := Never[int]().Subscribe(never.observer())
	assert.False(t, sub.Closed())
	sub.Close()
	assert.Equal(t, 0, never.completed)

	boom := errors.New("boom")
	var fail events[int]
	Fail[int](boom).Subscribe(fail.observer())
	assert.Same(t, boom, fail.err)
}

func TestFromChan(t *testing.T) {
	ch := make(chan int, 3)
	ch <- 1
	ch <- 2
	ch <- 3
	close(ch)

	items, err := Collect(context.Background(), FromChan(ch))
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2, 3}, items)
}

func TestFromFunc_Result(t *testing.T) {
	items, err := Collect(context.Background(), FromFunc(func(ctx context.Context) (string, error) {
		return "pong", nil
	}))
	require.NoError(t, err)
	assert.Equal(t, []string{"pong"}, items)
}

func TestFromFunc_Error(t *testing.T) {
	boom := errors.New("transport failed")
	items, err := Collect(context.Background(), FromFunc(func(ctx context.Context) (string, error) {
		return "", boom
	}))
	assert.Empty(t, items)
	assert.ErrorIs(t, err, boom)
}

func TestFromFunc_TeardownCancelsContext(t *testing.T) {
	started := make(chan struct{})
	cause := make(chan error, 1)
	var delivered atomic.Bool

	sub := FromFunc(func(ctx context.Context) (int, error) {
		close(started)
		<-ctx.Done()
		cause <- context.Cause(ctx)
		return 42, nil
	}).Subscribe(Observer[int]{
		Next: func(int) { delivered.Store(true) },
	})

	<-started
	sub.Close()

	select {
	case err := <-cause:
		assert.ErrorIs(t, err, ErrUnsubscribed)
	case <-time.After(time.Second):
		t.Fatal("operation context was not cancelled")
	}
	assert.False(t, delivered.Load(), "a result after teardown is discarded")
}

func TestInterval(t *testing.T) {
	clock := clocktest.New(time.Unix(0, 0))
	var ev events[int]
	sub := Interval(clock, time.Second).Subscribe(ev.observer())

	clock.Advance(3 * time.Second)
	assert.Equal(t, []int{0, 1, 2}, ev.values)

	sub.Close()
	assert.Equal(t, 0, clock.Pending(), "teardown cancels the pending tick")
	clock.Advance(5 * time.Second)
	assert.Len(t, ev.values, 3)
}

func TestInterval_PanicsOnNonPositive(t *testing.T) {
	mustPanic(t, "Interval requires d > 0", func() {
		Interval(nil, 0)
	})
}

func TestMapFilterTap(t *testing.T) {
	var tapped []int
	s := Map(
		Filter(FromSlice([]int{1, 2, 3, 4, 5}), func(v int) bool { return v%2 == 1 }),
		func(v int) int { return v * 10 },
	)
	s = Tap(s, Observer[int]{Next: func(v int) { tapped = append(tapped, v) }})

	items, err := Collect(context.Background(), s)
	require.NoError(t, err)
	assert.Equal(t, []int{10, 30, 50}, items)
	assert.Equal(t, items, tapped)
}

func TestMerge(t *testing.T) {
	var a, b spy[int]
	var ev events[int]
	Merge(a.stream(), b.stream()).Subscribe(ev.observer())

	a.emitter.Next(1)
	b.emitter.Next(2)
	a.emitter.Complete()
	assert.Equal(t, 0, ev.completed, "merge waits for every input")

	b.emitter.Complete()
	assert.Equal(t, []int{1, 2}, ev.values)
	assert.Equal(t, 1, ev.completed)
}

func TestMerge_ErrorTearsDownOthers(t *testing.T) {
	var a, b spy[int]
	var ev events[int]
	boom := errors.New("boom")
	Merge(a.stream(), b.stream()).Subscribe(ev.observer())

	a.emitter.Error(boom)

	assert.Same(t, boom, ev.err)
	assert.Equal(t, int32(1), b.teardowns.Load())
}

func TestCollect_ContextDone(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	var p spy[int]
	s := p.stream()

	go func() {
		for p.subscribes.Load() == 0 {
			time.Sleep(time.Millisecond)
		}
		cancel()
	}()

	items, err := Collect(ctx, s)
	assert.Empty(t, items)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, int32(1), p.teardowns.Load())
}

func TestSubject(t *testing.T) {
	subj := NewSubject[string]()
	var early, late events[string]

	subEarly := subj.Stream().Subscribe(early.observer())
	subj.Next("a")
	subj.Stream().Subscribe(late.observer())
	subj.Next("b")
	assert.Equal(t, 2, subj.Observers())

	subEarly.Close()
	assert.Equal(t, 1, subj.Observers())
	subj.Next("c")
	subj.Complete()

	assert.Equal(t, []string{"a", "b"}, early.values)
	assert.Equal(t, []string{"b", "c"}, late.values)
	assert.Equal(t, 1, late.completed)

	var after events[string]
	subj.Stream().Subscribe(after.observer())
	assert.Equal(t, 1, after.completed, "terminated subject replays completion")
}

func TestSubject_ErrorReplayed(t *testing.T) {
	subj := NewSubject[int]()
	boom := errors.New("boom")
	subj.Error(boom)
	subj.Complete()

	var ev events[int]
	subj.Stream().Subscribe(ev.observer())
	assert.Same(t, boom, ev.err)
	assert.Equal(t, 0, ev.completed)
}
