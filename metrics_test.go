package pulsewatch

import (
	"testing"
	"time"
)

func TestNoOpMetricsProvider_DoesNotPanic(_ *testing.T) {
	var m NoOpMetricsProvider

	m.OnStateChange(StateConnecting, StateStreaming)
	m.OnNotification(KindSink, OperationNew)
	m.OnMessageForwarded(ChangeAdd)
	m.OnItemDropped(KindSource, 3)
	m.OnForwardLatency(5 * time.Millisecond)
}
