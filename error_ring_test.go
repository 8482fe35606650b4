package pulsewatch

import (
	"errors"
	"fmt"
	"testing"
)

func TestRing_NilSafe(t *testing.T) {
	var r *errorRing

	r.push(ErrBufferFull)
	r.clear()

	if r.all() != nil {
		t.Error("expected nil from nil ring")
	}
}

func TestRing_DisabledSizes(t *testing.T) {
	if newErrorRing(0) != nil {
		t.Error("expected nil ring for size 0")
	}
	if newRing[RawNotification](-1) != nil {
		t.Error("expected nil ring for negative size")
	}
}

func TestRing_OldestFirst(t *testing.T) {
	r := newErrorRing(3)
	r.push(ErrConnection)
	r.push(ErrBufferFull)

	errs := r.all()
	if len(errs) != 2 {
		t.Fatalf("expected 2 errors, got %d", len(errs))
	}
	if !errors.Is(errs[0], ErrConnection) || !errors.Is(errs[1], ErrBufferFull) {
		t.Errorf("unexpected order: %v", errs)
	}
}

func TestRing_WrapsAndEvictsOldest(t *testing.T) {
	r := newRing[RawNotification](3)
	for i := uint32(1); i <= 5; i++ {
		r.push(RawNotification{Kind: KindSink, Operation: OperationNew, ID: i})
	}

	got := r.all()
	if len(got) != 3 {
		t.Fatalf("expected 3 items, got %d", len(got))
	}
	for i, n := range got {
		if want := uint32(i + 3); n.ID != want {
			t.Errorf("item %d: expected id %d, got %d", i, want, n.ID)
		}
	}
}

func TestRing_ClearThenPush(t *testing.T) {
	r := newErrorRing(2)
	for i := 0; i < 4; i++ {
		r.push(fmt.Errorf("fetch %d: %w", i, ErrNoEntity))
	}
	r.clear()

	if errs := r.all(); errs != nil {
		t.Fatalf("expected nil after clear, got %v", errs)
	}

	r.push(ErrChannelClosed)
	errs := r.all()
	if len(errs) != 1 || !errors.Is(errs[0], ErrChannelClosed) {
		t.Errorf("expected only ErrChannelClosed, got %v", errs)
	}
}
