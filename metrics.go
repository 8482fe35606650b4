package pulsewatch

import "time"

// MetricsProvider allows integration with metrics systems like Prometheus, StatsD, etc.
// Implement this interface to receive callbacks on key bridge events.
type MetricsProvider interface {
	// OnStateChange is called when the bridge transitions between states.
	OnStateChange(from, to State)

	// OnNotification is called for every notification taken off the raw
	// queue, before routing.
	OnNotification(kind Kind, op Operation)

	// OnMessageForwarded is called when a message reaches the output channel.
	OnMessageForwarded(change ChangeType)

	// OnItemDropped is called when items are lost to a full buffer. Kind is
	// KindUnspecified when the kind is not known.
	OnItemDropped(kind Kind, count int)

	// OnForwardLatency is called with the time a message spent between the
	// assembler and the output channel, including time blocked on a slow
	// consumer.
	OnForwardLatency(d time.Duration)
}

// NoOpMetricsProvider is a no-op implementation of MetricsProvider.
// Use this as an embedded type to implement only the methods you need.
type NoOpMetricsProvider struct{}

func (NoOpMetricsProvider) OnStateChange(_, _ State)           {}
func (NoOpMetricsProvider) OnNotification(_ Kind, _ Operation) {}
func (NoOpMetricsProvider) OnMessageForwarded(_ ChangeType)    {}
func (NoOpMetricsProvider) OnItemDropped(_ Kind, _ int)        {}
func (NoOpMetricsProvider) OnForwardLatency(_ time.Duration)   {}

// Ensure NoOpMetricsProvider implements MetricsProvider.
var _ MetricsProvider = NoOpMetricsProvider{}
