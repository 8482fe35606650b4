package pulsewatch

import (
	"context"
	"sync"

	"github.com/zoobzio/capitan"
)

// Waker is a one-shot wake-up signal registered with a Future.
type Waker struct {
	ch   chan struct{}
	once sync.Once
}

// NewWaker creates an unsignalled waker.
func NewWaker() *Waker {
	return &Waker{ch: make(chan struct{})}
}

// Wake signals the waker. Later calls have no effect.
func (w *Waker) Wake() {
	w.once.Do(func() { close(w.ch) })
}

// Done returns a channel that is closed once Wake has been called.
func (w *Waker) Done() <-chan struct{} {
	return w.ch
}

type futureState int

const (
	futureRunning futureState = iota
	futureDone
	futureConsumed
)

// Future adapts a one-shot native callback into an awaitable value. The
// completion function may be called from the loop goroutine while another
// goroutine polls; both sides go through the same mutex.
type Future[T any] struct {
	mu     sync.Mutex
	state  futureState
	result T
	waker  *Waker
}

// NewCallbackFuture returns a future and the function that completes it.
// Hand the function to the native API as its one-shot callback.
//
// The function must be called at most once. Later calls are ignored and
// reported through FutureCallbackRepeated.
func NewCallbackFuture[T any]() (*Future[T], func(T)) {
	f := &Future[T]{}
	return f, f.complete
}

func (f *Future[T]) complete(v T) {
	f.mu.Lock()
	if f.state != futureRunning {
		f.mu.Unlock()
		capitan.Emit(context.Background(), FutureCallbackRepeated)
		return
	}
	f.result = v
	f.state = futureDone
	w := f.waker
	f.waker = nil
	f.mu.Unlock()

	if w != nil {
		w.Wake()
	}
}

// Poll checks for the result. While the callback has not fired, Poll
// registers w to be woken on completion and returns ok=false. Polling again
// with the same waker is fine; a different waker gets ErrWakerBusy. Once
// the result has been returned, further polls get ErrFutureConsumed.
func (f *Future[T]) Poll(w *Waker) (T, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var zero T
	switch f.state {
	case futureRunning:
		if f.waker != nil && f.waker != w {
			return zero, false, ErrWakerBusy
		}
		f.waker = w
		return zero, false, nil
	case futureDone:
		v := f.result
		f.result = zero
		f.state = futureConsumed
		return v, true, nil
	default:
		return zero, false, ErrFutureConsumed
	}
}

// Await blocks until the callback fires or ctx is done. A cancelled wait
// releases its waker so that the future can be polled again; the native
// operation itself keeps running.
func (f *Future[T]) Await(ctx context.Context) (T, error) {
	for {
		w := NewWaker()
		v, ok, err := f.Poll(w)
		if err != nil || ok {
			return v, err
		}

		select {
		case <-w.Done():
		case <-ctx.Done():
			f.release(w)
			var zero T
			return zero, ctx.Err()
		}
	}
}

// release drops w if it is the registered waker.
func (f *Future[T]) release(w *Waker) {
	f.mu.Lock()
	if f.waker == w {
		f.waker = nil
	}
	f.mu.Unlock()
}
