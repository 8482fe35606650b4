package pulsewatch

import (
	"context"
	"sync"

	"github.com/zoobzio/capitan"
)

// List stream buffer bounds.
const (
	DefaultListCapacity = 256
	MinListCapacity     = 64
	MaxListCapacity     = 1024
)

// ListCallback receives the results of a list or by-index query. OnItem may
// be called any number of times, followed by exactly one OnEnd or OnError.
// The item pointer is only valid for the duration of the call.
type ListCallback[T any] interface {
	OnItem(item *T)
	OnEnd()
	OnError(err error)
}

// ListStream turns a list callback into a bounded, ordered stream of owned
// items. The callback side never blocks: it runs on the loop goroutine.
type ListStream[T Owner[T]] struct {
	ctx      context.Context
	kind     Kind
	capacity int

	mu      sync.Mutex
	items   chan T
	closed  bool
	err     error
	dropped int
}

// NewListStream creates a stream and the callback that feeds it. Capacity
// is clamped to [MinListCapacity, MaxListCapacity]; zero or less selects
// DefaultListCapacity. ctx is used for signal emission only.
func NewListStream[T Owner[T]](ctx context.Context, capacity int) (*ListStream[T], ListCallback[T]) {
	switch {
	case capacity <= 0:
		capacity = DefaultListCapacity
	case capacity < MinListCapacity:
		capacity = MinListCapacity
	case capacity > MaxListCapacity:
		capacity = MaxListCapacity
	}

	s := &ListStream[T]{
		ctx:      ctx,
		capacity: capacity,
		items:    make(chan T, capacity),
	}
	var zero T
	if e, ok := any(zero).(Entity); ok {
		s.kind = e.Kind()
	}
	return s, listCallback[T]{s}
}

// Capacity returns the buffer size in items.
func (s *ListStream[T]) Capacity() int {
	return s.capacity
}

// Next returns the next item. It returns false once the stream has ended
// and drained, or when ctx is done.
func (s *ListStream[T]) Next(ctx context.Context) (T, bool) {
	select {
	case v, ok := <-s.items:
		return v, ok
	case <-ctx.Done():
		var zero T
		return zero, false
	}
}

// Items returns the underlying channel. It is closed after the last item.
func (s *ListStream[T]) Items() <-chan T {
	return s.items
}

// Err returns the error the list ended with, if any. Errors are diagnostic;
// the stream simply ends.
func (s *ListStream[T]) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// Dropped returns the number of items lost to a full buffer.
func (s *ListStream[T]) Dropped() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dropped
}

func (s *ListStream[T]) push(item *T) {
	if item == nil {
		return
	}
	v := (*item).Owned()

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		capitan.Emit(s.ctx, ListItemRejected, KeyKind.Field(s.kind.String()))
		return
	}
	select {
	case s.items <- v:
		s.mu.Unlock()
	default:
		s.dropped++
		s.mu.Unlock()
		capitan.Emit(s.ctx, ListItemDropped,
			KeyKind.Field(s.kind.String()),
			KeyCapacity.Field(s.capacity),
		)
	}
}

func (s *ListStream[T]) finish(err error) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.err = err
	close(s.items)
	s.mu.Unlock()

	if err != nil {
		capitan.Emit(s.ctx, ListFailed,
			KeyKind.Field(s.kind.String()),
			KeyError.Field(err.Error()),
		)
	}
}

type listCallback[T Owner[T]] struct {
	s *ListStream[T]
}

func (c listCallback[T]) OnItem(item *T)    { c.s.push(item) }
func (c listCallback[T]) OnEnd()            { c.s.finish(nil) }
func (c listCallback[T]) OnError(err error) { c.s.finish(err) }
