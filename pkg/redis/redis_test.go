package redis

import (
	"context"
	"errors"
	"reflect"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/testcontainers/testcontainers-go"
	tcredis "github.com/testcontainers/testcontainers-go/modules/redis"
	"github.com/zoobzio/pulsewatch"
	"github.com/zoobzio/pulsewatch/pkg/memory"
	pwtesting "github.com/zoobzio/pulsewatch/testing"
)

func setupRedis(t *testing.T) *redis.Client {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping redis container test in short mode")
	}
	ctx := context.Background()

	container, err := tcredis.Run(ctx, "redis:7-alpine")
	if err != nil {
		t.Fatalf("failed to start redis container: %v", err)
	}
	t.Cleanup(func() {
		if err := testcontainers.TerminateContainer(container); err != nil {
			t.Logf("failed to terminate container: %v", err)
		}
	})

	endpoint, err := container.Endpoint(ctx, "")
	if err != nil {
		t.Fatalf("failed to get endpoint: %v", err)
	}

	client := redis.NewClient(&redis.Options{Addr: endpoint})
	t.Cleanup(func() { client.Close() })
	return client
}

func TestEnvelope_RoundTrip(t *testing.T) {
	msgs := []pulsewatch.ChangeMessage{
		pulsewatch.Add(1, pwtesting.Sink(1, "speakers")),
		pulsewatch.Add(2, pwtesting.Source(2, "mic")),
		pulsewatch.Add(3, pwtesting.SinkInput(3, 1, "music")),
		pulsewatch.Add(4, pwtesting.SourceOutput(4, 2, "call")),
		pulsewatch.Delete(5),
	}
	for _, want := range msgs {
		data, err := Encode(want)
		if err != nil {
			t.Fatalf("Encode(%s) failed: %v", want, err)
		}
		got, err := Decode(data)
		if err != nil {
			t.Fatalf("Decode(%s) failed: %v", want, err)
		}
		if !reflect.DeepEqual(got, want) {
			t.Errorf("round trip mismatch\nwant %+v\ngot  %+v", want, got)
		}
	}
}

func TestDecode_Errors(t *testing.T) {
	if _, err := Decode([]byte("not json")); err == nil {
		t.Error("expected error for invalid payload")
	}
	if _, err := Decode([]byte(`{"type": 9, "id": 1}`)); err == nil {
		t.Error("expected error for unknown change type")
	}
	_, err := Decode([]byte(`{"type": 1, "id": 1, "kind": 5, "entity": {}}`))
	if !errors.Is(err, ErrUnsupportedKind) {
		t.Errorf("expected ErrUnsupportedKind, got %v", err)
	}
}

func TestMirror_Keys(t *testing.T) {
	m := New(nil, WithPrefix("studio"))
	if m.HashKey(pulsewatch.KindSinkInput) != "studio:sink-input" {
		t.Errorf("unexpected hash key %q", m.HashKey(pulsewatch.KindSinkInput))
	}
	if m.Channel() != "studio:changes" {
		t.Errorf("unexpected channel %q", m.Channel())
	}
}

func TestMirror_ApplyAndLoad(t *testing.T) {
	client := setupRedis(t)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	m := New(client)
	s1, s2 := pwtesting.Sink(1, "a"), pwtesting.Sink(2, "b")
	in := pwtesting.SinkInput(7, 1, "music")

	for _, msg := range []pulsewatch.ChangeMessage{
		pulsewatch.Add(2, s2),
		pulsewatch.Add(1, s1),
		pulsewatch.Add(7, in),
		pulsewatch.Delete(2),
	} {
		if err := m.Apply(ctx, msg); err != nil {
			t.Fatalf("Apply(%s) failed: %v", msg, err)
		}
	}

	sinks, err := m.Sinks(ctx)
	if err != nil {
		t.Fatalf("Sinks failed: %v", err)
	}
	if len(sinks) != 1 || !reflect.DeepEqual(sinks[0], s1) {
		t.Errorf("expected only sink 1, got %+v", sinks)
	}

	got, err := m.Get(ctx, pulsewatch.KindSinkInput, 7)
	if err != nil || !reflect.DeepEqual(got, in) {
		t.Errorf("expected sink input 7, got %+v %v", got, err)
	}
	if _, err := m.Get(ctx, pulsewatch.KindSink, 2); !errors.Is(err, redis.Nil) {
		t.Errorf("expected redis.Nil for deleted sink, got %v", err)
	}

	if err := m.Clear(ctx); err != nil {
		t.Fatalf("Clear failed: %v", err)
	}
	if n, _ := m.Len(ctx, pulsewatch.KindSink); n != 0 {
		t.Errorf("expected empty after Clear, got %d", n)
	}
}

func TestMirror_FollowSeesPublishedChanges(t *testing.T) {
	client := setupRedis(t)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	m := New(client)
	ch, err := m.Follow(ctx)
	if err != nil {
		t.Fatalf("Follow failed: %v", err)
	}

	want := pulsewatch.Add(3, pwtesting.Source(3, "mic"))
	if err := m.Apply(ctx, want); err != nil {
		t.Fatalf("Apply failed: %v", err)
	}

	select {
	case got := <-ch:
		if !reflect.DeepEqual(got, want) {
			t.Errorf("expected %+v, got %+v", want, got)
		}
	case <-ctx.Done():
		t.Fatal("timeout waiting for published change")
	}

	cancel()
	select {
	case _, ok := <-ch:
		if ok {
			t.Error("expected channel to close")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting for channel close")
	}
}

func TestMirror_AsBridgeMiddleware(t *testing.T) {
	client := setupRedis(t)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	server := memory.New()
	if err := server.Seed(pwtesting.Sink(1, "a"), pwtesting.Source(2, "mic")); err != nil {
		t.Fatalf("seed failed: %v", err)
	}

	m := New(client, WithoutPublish())
	b := pwtesting.StartBridge(t, server, pulsewatch.WithMiddleware(m.Processor()))
	pwtesting.Collect(t, b.Changes(), 2, 5*time.Second)

	if n, err := m.Len(ctx, pulsewatch.KindSink); err != nil || n != 1 {
		t.Errorf("expected 1 sink mirrored, got %d %v", n, err)
	}
	if n, err := m.Len(ctx, pulsewatch.KindSource); err != nil || n != 1 {
		t.Errorf("expected 1 source mirrored, got %d %v", n, err)
	}
}
