package pulsewatch

// State represents the current state of a Bridge.
type State int32

const (
	// StateIdle indicates Start has not been called.
	StateIdle State = iota

	// StateConnecting indicates the connection is being established.
	StateConnecting

	// StateSubscribing indicates the connection is ready and the
	// subscription has been requested but not yet acknowledged.
	StateSubscribing

	// StateStreaming indicates snapshots and live changes are flowing.
	StateStreaming

	// StateFailed indicates the connection or the loop failed. The output
	// channel is closed and the Bridge does not reconnect.
	StateFailed

	// StateStopped indicates the Bridge was stopped by its owner.
	StateStopped
)

// String returns the string representation of the state.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateConnecting:
		return "connecting"
	case StateSubscribing:
		return "subscribing"
	case StateStreaming:
		return "streaming"
	case StateFailed:
		return "failed"
	case StateStopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// Terminal reports whether the Bridge has finished.
func (s State) Terminal() bool {
	return s == StateFailed || s == StateStopped
}
