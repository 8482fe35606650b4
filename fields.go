package pulsewatch

import "github.com/zoobzio/capitan"

// Field keys for Bridge events.
var (
	// KeyState is the current state of the Bridge.
	KeyState = capitan.NewStringKey("state")

	// KeyOldState is the previous state before a transition.
	KeyOldState = capitan.NewStringKey("old_state")

	// KeyNewState is the new state after a transition.
	KeyNewState = capitan.NewStringKey("new_state")

	// KeyError is the error message when an operation fails.
	KeyError = capitan.NewStringKey("error")

	// KeyKind is the entity kind of a notification or message.
	KeyKind = capitan.NewStringKey("kind")

	// KeyOperation is the notification operation.
	KeyOperation = capitan.NewStringKey("operation")

	// KeyID is the entity index.
	KeyID = capitan.NewIntKey("id")

	// KeyCapacity is the capacity of the buffer involved.
	KeyCapacity = capitan.NewIntKey("capacity")

	// KeyConnState is the device-server connection state.
	KeyConnState = capitan.NewStringKey("conn_state")

	// KeyChange is the change message type.
	KeyChange = capitan.NewStringKey("change")

	// KeyTimeout is the configured startup timeout.
	KeyTimeout = capitan.NewDurationKey("timeout")
)
