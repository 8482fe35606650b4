package pulsewatch

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/zoobzio/capitan"
)

func TestFuture_PollBeforeAndAfterCallback(t *testing.T) {
	f, complete := NewCallbackFuture[int]()
	w := NewWaker()

	if _, ok, err := f.Poll(w); ok || err != nil {
		t.Fatalf("expected pending, got ok=%v err=%v", ok, err)
	}

	complete(42)

	select {
	case <-w.Done():
	default:
		t.Fatal("expected waker to be signalled")
	}

	v, ok, err := f.Poll(w)
	if err != nil || !ok || v != 42 {
		t.Fatalf("expected 42, got %d ok=%v err=%v", v, ok, err)
	}
}

func TestFuture_SameWakerTwice(t *testing.T) {
	f, _ := NewCallbackFuture[string]()
	w := NewWaker()

	for i := 0; i < 2; i++ {
		if _, _, err := f.Poll(w); err != nil {
			t.Fatalf("poll %d: unexpected error %v", i, err)
		}
	}
}

func TestFuture_DistinctWakerIsBusy(t *testing.T) {
	f, _ := NewCallbackFuture[string]()
	if _, _, err := f.Poll(NewWaker()); err != nil {
		t.Fatalf("unexpected error %v", err)
	}
	if _, _, err := f.Poll(NewWaker()); !errors.Is(err, ErrWakerBusy) {
		t.Fatalf("expected ErrWakerBusy, got %v", err)
	}
}

func TestFuture_ConsumedAfterResult(t *testing.T) {
	f, complete := NewCallbackFuture[bool]()
	complete(true)

	if v, ok, err := f.Poll(NewWaker()); !ok || !v || err != nil {
		t.Fatalf("expected true, got %v ok=%v err=%v", v, ok, err)
	}
	if _, _, err := f.Poll(NewWaker()); !errors.Is(err, ErrFutureConsumed) {
		t.Fatalf("expected ErrFutureConsumed, got %v", err)
	}
}

func TestFuture_RepeatedCallbackIsIgnoredAndReported(t *testing.T) {
	var mu sync.Mutex
	var repeats int
	capitan.Hook(FutureCallbackRepeated, func(_ context.Context, _ *capitan.Event) {
		mu.Lock()
		repeats++
		mu.Unlock()
	})

	f, complete := NewCallbackFuture[int]()
	complete(1)
	complete(2)

	v, ok, err := f.Poll(NewWaker())
	if err != nil || !ok || v != 1 {
		t.Fatalf("expected first result 1, got %d ok=%v err=%v", v, ok, err)
	}

	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		mu.Lock()
		n := repeats
		mu.Unlock()
		if n >= 1 {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Error("expected a repeated-callback event")
}

func TestFuture_AwaitFromAnotherGoroutine(t *testing.T) {
	f, complete := NewCallbackFuture[int]()

	go func() {
		time.Sleep(10 * time.Millisecond)
		complete(7)
	}()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	v, err := f.Await(ctx)
	if err != nil || v != 7 {
		t.Fatalf("expected 7, got %d err=%v", v, err)
	}
}

func TestFuture_AwaitCancelledReleasesWaker(t *testing.T) {
	f, complete := NewCallbackFuture[int]()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := f.Await(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}

	// A fresh waker can register again.
	w := NewWaker()
	if _, _, err := f.Poll(w); err != nil {
		t.Fatalf("expected waker slot to be free, got %v", err)
	}

	complete(3)
	if v, ok, _ := f.Poll(w); !ok || v != 3 {
		t.Fatalf("expected 3, got %d ok=%v", v, ok)
	}
}
