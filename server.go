package pulsewatch

// ConnState is the lifecycle state of a device-server connection.
type ConnState int32

const (
	ConnUnconnected ConnState = iota
	ConnConnecting
	ConnAuthorizing
	ConnSettingName
	ConnReady
	ConnFailed
	ConnTerminated
)

// String returns the string representation of the connection state.
func (s ConnState) String() string {
	switch s {
	case ConnUnconnected:
		return "unconnected"
	case ConnConnecting:
		return "connecting"
	case ConnAuthorizing:
		return "authorizing"
	case ConnSettingName:
		return "setting-name"
	case ConnReady:
		return "ready"
	case ConnFailed:
		return "failed"
	case ConnTerminated:
		return "terminated"
	default:
		return "unknown"
	}
}

// Terminal reports whether the connection can no longer become Ready.
func (s ConnState) Terminal() bool {
	return s == ConnFailed || s == ConnTerminated
}

// Dialer creates a connection to a device server. Providers under pkg/
// implement it.
type Dialer interface {
	// Dial allocates the main loop and an unconnected context bound to it.
	Dial() (Mainloop, Context, error)
}

// Mainloop drives a connection. Every callback registered on the Context,
// including list callbacks passed to its Introspector, runs on the goroutine
// that calls Iterate or Run.
type Mainloop interface {
	// Iterate runs one loop iteration. With block set it waits for at least
	// one event to dispatch.
	Iterate(block bool) error

	// Run dispatches events until Quit is called or the connection fails.
	// A requested quit returns ErrLoopQuit.
	Run() error

	// Quit asks the loop to return. Safe to call from any goroutine.
	Quit()
}

// Context is a single connection to the device server.
type Context interface {
	// Connect starts connecting. Progress is reported through the state
	// callback while the loop iterates.
	Connect() error

	// State returns the current connection state.
	State() ConnState

	// SetStateCallback installs the state-change callback.
	SetStateCallback(fn func(ConnState))

	// SetSubscribeCallback installs the notification callback. It is called
	// once per server event.
	SetSubscribeCallback(fn func(RawNotification))

	// Subscribe selects the kinds to be notified about. ack receives the
	// server's answer.
	Subscribe(mask SubscriptionMask, ack func(ok bool))

	// Introspect returns the query interface for this connection.
	Introspect() Introspector

	// Disconnect closes the connection.
	Disconnect()
}

// Introspector queries entities. Each call delivers its results through the
// supplied callback on the loop goroutine; by-index calls deliver at most
// one item. Methods may be called from any goroutine.
type Introspector interface {
	SinkInfoList(cb ListCallback[Sink])
	SinkInfoByIndex(index uint32, cb ListCallback[Sink])
	SourceInfoList(cb ListCallback[Source])
	SourceInfoByIndex(index uint32, cb ListCallback[Source])
	SinkInputInfoList(cb ListCallback[SinkInput])
	SinkInputInfoByIndex(index uint32, cb ListCallback[SinkInput])
	SourceOutputInfoList(cb ListCallback[SourceOutput])
	SourceOutputInfoByIndex(index uint32, cb ListCallback[SourceOutput])
}
