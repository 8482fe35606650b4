// Package testing provides test utilities and fixtures for pulsewatch bridges.
package testing

import (
	"context"
	"reflect"
	"sync"
	"testing"
	"time"

	"github.com/zoobzio/pulsewatch"
	"github.com/zoobzio/pulsewatch/pkg/memory"
)

// Sink returns a small but complete sink fixture.
func Sink(id uint32, name string) pulsewatch.Sink {
	desc := name + " output"
	driver := "module-null-sink.c"
	port := pulsewatch.Port{Name: "analog-output", Description: &desc, Priority: 9000, Available: pulsewatch.PortAvailabilityYes}
	return pulsewatch.Sink{
		ID:          id,
		Name:        name,
		Description: &desc,
		SampleSpec:  pulsewatch.SampleSpec{Format: 3, Channels: 2, Rate: 48000},
		ChannelMap:  []pulsewatch.ChannelPosition{1, 2},
		Volume:      pulsewatch.ChannelVolumes{pulsewatch.VolumeNorm, pulsewatch.VolumeNorm},
		Driver:      &driver,
		Properties:  pulsewatch.Proplist{"device.class": "abstract"},
		BaseVolume:  pulsewatch.VolumeNorm,
		State:       pulsewatch.DeviceStateIdle,
		Ports:       []pulsewatch.Port{port},
		ActivePort:  &port,
	}
}

// Source returns a source fixture.
func Source(id uint32, name string) pulsewatch.Source {
	desc := name + " input"
	return pulsewatch.Source{
		ID:          id,
		Name:        name,
		Description: &desc,
		SampleSpec:  pulsewatch.SampleSpec{Format: 3, Channels: 1, Rate: 44100},
		ChannelMap:  []pulsewatch.ChannelPosition{0},
		Volume:      pulsewatch.ChannelVolumes{pulsewatch.VolumeNorm},
		Properties:  pulsewatch.Proplist{"device.class": "sound"},
		State:       pulsewatch.DeviceStateSuspended,
	}
}

// SinkInput returns a playback stream fixture connected to sink.
func SinkInput(id, sink uint32, name string) pulsewatch.SinkInput {
	client := id + 100
	return pulsewatch.SinkInput{
		ID:         id,
		Name:       name,
		Client:     &client,
		Sink:       sink,
		SampleSpec: pulsewatch.SampleSpec{Format: 3, Channels: 2, Rate: 48000},
		Volume:     pulsewatch.ChannelVolumes{pulsewatch.VolumeNorm / 2, pulsewatch.VolumeNorm / 2},
		Properties: pulsewatch.Proplist{"application.name": name},
		HasVolume:  true,
	}
}

// SourceOutput returns a record stream fixture connected to source.
func SourceOutput(id, source uint32, name string) pulsewatch.SourceOutput {
	return pulsewatch.SourceOutput{
		ID:         id,
		Name:       name,
		Source:     source,
		SampleSpec: pulsewatch.SampleSpec{Format: 3, Channels: 1, Rate: 16000},
		Properties: pulsewatch.Proplist{"application.name": name},
	}
}

// WaitFor polls a condition until it returns true or timeout is reached.
// Returns true if the condition was met, false if timeout occurred.
func WaitFor(t *testing.T, timeout time.Duration, condition func() bool) bool {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if condition() {
			return true
		}
		time.Sleep(10 * time.Millisecond)
	}
	return false
}

// Collect reads exactly n messages from ch, failing the test if the channel
// closes early or timeout elapses.
func Collect(t *testing.T, ch <-chan pulsewatch.ChangeMessage, n int, timeout time.Duration) []pulsewatch.ChangeMessage {
	t.Helper()
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	got := make([]pulsewatch.ChangeMessage, 0, n)
	for len(got) < n {
		select {
		case m, ok := <-ch:
			if !ok {
				t.Fatalf("channel closed after %d of %d messages: %v", len(got), n, got)
			}
			got = append(got, m)
		case <-timer.C:
			t.Fatalf("timeout after %d of %d messages: %v", len(got), n, got)
		}
	}
	return got
}

// RequireNoMessage fails the test if a message arrives within wait.
func RequireNoMessage(t *testing.T, ch <-chan pulsewatch.ChangeMessage, wait time.Duration) {
	t.Helper()
	select {
	case m, ok := <-ch:
		if ok {
			t.Fatalf("unexpected message %s", m)
		}
	case <-time.After(wait):
	}
}

// RequireMessages fails the test unless got equals want element by element,
// entities included.
func RequireMessages(t *testing.T, got, want []pulsewatch.ChangeMessage) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("expected %d messages %v, got %d %v", len(want), want, len(got), got)
	}
	for i := range want {
		if got[i].Type != want[i].Type || got[i].ID != want[i].ID {
			t.Fatalf("message %d: expected %s, got %s", i, want[i], got[i])
		}
		if !reflect.DeepEqual(got[i].Entity, want[i].Entity) {
			t.Fatalf("message %d: entity mismatch\nexpected %+v\ngot      %+v", i, want[i].Entity, got[i].Entity)
		}
	}
}

// StartBridge starts a Bridge on server and stops it when the test ends.
func StartBridge(t *testing.T, server *memory.Server, opts ...pulsewatch.Option) *pulsewatch.Bridge {
	t.Helper()
	b := pulsewatch.New(server, opts...).StartupTimeout(5 * time.Second)
	if err := b.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	t.Cleanup(b.Stop)
	return b
}

// MetricsRecorder is a pulsewatch.MetricsProvider that counts every call.
// It is safe for concurrent use.
type MetricsRecorder struct {
	mu           sync.Mutex
	transitions  []pulsewatch.State
	notification map[pulsewatch.Kind]int
	forwarded    map[pulsewatch.ChangeType]int
	dropped      int
	latencies    int
}

// NewMetricsRecorder creates an empty MetricsRecorder.
func NewMetricsRecorder() *MetricsRecorder {
	return &MetricsRecorder{
		notification: make(map[pulsewatch.Kind]int),
		forwarded:    make(map[pulsewatch.ChangeType]int),
	}
}

func (r *MetricsRecorder) OnStateChange(_, to pulsewatch.State) {
	r.mu.Lock()
	r.transitions = append(r.transitions, to)
	r.mu.Unlock()
}

func (r *MetricsRecorder) OnNotification(k pulsewatch.Kind, _ pulsewatch.Operation) {
	r.mu.Lock()
	r.notification[k]++
	r.mu.Unlock()
}

func (r *MetricsRecorder) OnMessageForwarded(t pulsewatch.ChangeType) {
	r.mu.Lock()
	r.forwarded[t]++
	r.mu.Unlock()
}

func (r *MetricsRecorder) OnItemDropped(_ pulsewatch.Kind, n int) {
	r.mu.Lock()
	r.dropped += n
	r.mu.Unlock()
}

func (r *MetricsRecorder) OnForwardLatency(time.Duration) {
	r.mu.Lock()
	r.latencies++
	r.mu.Unlock()
}

// Transitions returns the states entered, in order.
func (r *MetricsRecorder) Transitions() []pulsewatch.State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]pulsewatch.State(nil), r.transitions...)
}

// Notifications returns how many notifications of kind k were seen.
func (r *MetricsRecorder) Notifications(k pulsewatch.Kind) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.notification[k]
}

// Forwarded returns how many messages of type t were delivered.
func (r *MetricsRecorder) Forwarded(t pulsewatch.ChangeType) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.forwarded[t]
}

// Dropped returns the total number of dropped items.
func (r *MetricsRecorder) Dropped() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.dropped
}

// Latencies returns the number of latency samples.
func (r *MetricsRecorder) Latencies() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.latencies
}

var _ pulsewatch.MetricsProvider = (*MetricsRecorder)(nil)
