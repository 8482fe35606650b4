package pulsewatch

import (
	"context"
	"reflect"
	"testing"
	"time"
)

func chanOf(msgs ...ChangeMessage) <-chan ChangeMessage {
	ch := make(chan ChangeMessage, len(msgs))
	for _, m := range msgs {
		ch <- m
	}
	close(ch)
	return ch
}

func collectAll(t *testing.T, ch <-chan ChangeMessage) []ChangeMessage {
	t.Helper()
	timeout := time.After(time.Second)
	var out []ChangeMessage
	for {
		select {
		case m, ok := <-ch:
			if !ok {
				return out
			}
			out = append(out, m)
		case <-timeout:
			t.Fatalf("timeout, collected %v", out)
		}
	}
}

func TestAssemble_SnapshotsPrecedeLive(t *testing.T) {
	ctx := context.Background()

	// The live message is ready before the slow snapshot produces anything.
	live := chanOf(Delete(9))
	slow := make(chan ChangeMessage)
	go func() {
		defer close(slow)
		for i := uint32(1); i <= 3; i++ {
			time.Sleep(5 * time.Millisecond)
			slow <- Add(i, Sink{ID: i})
		}
	}()

	got := collectAll(t, Assemble(ctx, live, slow, chanOf(Add(5, Source{ID: 5}))))
	want := []ChangeMessage{
		Add(1, Sink{ID: 1}),
		Add(2, Sink{ID: 2}),
		Add(3, Sink{ID: 3}),
		Add(5, Source{ID: 5}),
		Delete(9),
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
}

func TestAssemble_NoSnapshots(t *testing.T) {
	got := collectAll(t, Assemble(context.Background(), chanOf(Delete(1), Delete(2))))
	if !reflect.DeepEqual(got, []ChangeMessage{Delete(1), Delete(2)}) {
		t.Fatalf("unexpected %v", got)
	}
}

func TestAssemble_StopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	never := make(chan ChangeMessage)
	out := Assemble(ctx, never, never)

	cancel()
	select {
	case _, ok := <-out:
		if ok {
			t.Fatal("expected closed channel")
		}
	case <-time.After(time.Second):
		t.Fatal("Assemble did not stop")
	}
}

func TestSnapshot_UsesEntityIndex(t *testing.T) {
	stream, cb := NewListStream[SinkInput](context.Background(), 0)
	for _, id := range []uint32{4, 8} {
		item := SinkInput{ID: id, Sink: 1}
		cb.OnItem(&item)
	}
	cb.OnEnd()

	got := collectAll(t, Snapshot(context.Background(), stream))
	want := []ChangeMessage{Add(4, SinkInput{ID: 4, Sink: 1}), Add(8, SinkInput{ID: 8, Sink: 1})}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
}
