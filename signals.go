package pulsewatch

import "github.com/zoobzio/capitan"

// Bridge lifecycle signals.
var (
	// BridgeStarted is emitted when Start begins dialing.
	BridgeStarted = capitan.NewSignal(
		"pulsewatch.bridge.started",
		"Bridge started",
	)

	// BridgeStopped is emitted once the output channel has been closed.
	BridgeStopped = capitan.NewSignal(
		"pulsewatch.bridge.stopped",
		"Bridge stopped",
	)

	// BridgeStateChanged is emitted when a Bridge transitions between states.
	BridgeStateChanged = capitan.NewSignal(
		"pulsewatch.bridge.state.changed",
		"Bridge state transition",
	)

	// BridgeConnectionFailed is emitted when the connection fails before or
	// after reaching Ready.
	BridgeConnectionFailed = capitan.NewSignal(
		"pulsewatch.bridge.connection.failed",
		"Device server connection failed",
	)
)

// Subscription signals.
var (
	// SubscriptionArmed is emitted when the server acknowledges the subscription.
	SubscriptionArmed = capitan.NewSignal(
		"pulsewatch.subscription.armed",
		"Subscription acknowledged",
	)

	// SubscriptionFailed is emitted when the server rejects the subscription.
	SubscriptionFailed = capitan.NewSignal(
		"pulsewatch.subscription.failed",
		"Subscription rejected",
	)
)

// Notification signals.
var (
	// NotificationReceived is emitted for every native notification.
	NotificationReceived = capitan.NewSignal(
		"pulsewatch.notification.received",
		"Subscription notification received",
	)

	// NotificationMalformed is emitted when a notification lacks its kind or
	// operation.
	NotificationMalformed = capitan.NewSignal(
		"pulsewatch.notification.malformed",
		"Malformed notification dropped",
	)

	// NotificationIgnored is emitted for notifications about unsupported kinds.
	NotificationIgnored = capitan.NewSignal(
		"pulsewatch.notification.ignored",
		"Notification for unsupported kind ignored",
	)

	// NotificationDropped is emitted when the raw notification buffer is full.
	NotificationDropped = capitan.NewSignal(
		"pulsewatch.notification.dropped",
		"Notification buffer full",
	)
)

// List stream signals.
var (
	// ListItemDropped is emitted when a list item arrives at a full buffer.
	ListItemDropped = capitan.NewSignal(
		"pulsewatch.list.item.dropped",
		"List item dropped, buffer full",
	)

	// ListItemRejected is emitted when a list item arrives after the end.
	ListItemRejected = capitan.NewSignal(
		"pulsewatch.list.item.rejected",
		"List item after end rejected",
	)

	// ListFailed is emitted when a list operation ends with an error.
	ListFailed = capitan.NewSignal(
		"pulsewatch.list.failed",
		"List operation failed",
	)
)

// FutureCallbackRepeated is emitted when a one-shot callback fires again.
var FutureCallbackRepeated = capitan.NewSignal(
	"pulsewatch.future.callback.repeated",
	"One-shot callback invoked more than once",
)

// Forwarding signals.
var (
	// MessageForwarded is emitted when a message reaches the output channel.
	MessageForwarded = capitan.NewSignal(
		"pulsewatch.message.forwarded",
		"Change message forwarded",
	)

	// ForwardBlocked is emitted when the output channel is full and the
	// pump starts waiting for the consumer.
	ForwardBlocked = capitan.NewSignal(
		"pulsewatch.message.forward.blocked",
		"Output channel full",
	)

	// ForwardFailed is emitted when the pipeline rejects a message.
	ForwardFailed = capitan.NewSignal(
		"pulsewatch.message.forward.failed",
		"Change message pipeline failed",
	)
)
