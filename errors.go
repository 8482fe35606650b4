package pulsewatch

import (
	"errors"
	"fmt"
)

var (
	// ErrConnection is the root of every connection failure.
	ErrConnection = errors.New("device server connection failed")

	// ErrCallbackProtocol reports a notification that lacks its kind or
	// operation. Such notifications are dropped.
	ErrCallbackProtocol = errors.New("malformed subscription notification")

	// ErrBufferFull reports that a bounded buffer rejected an item.
	ErrBufferFull = errors.New("buffer full")

	// ErrChannelClosed reports that the receiving side has gone away.
	ErrChannelClosed = errors.New("channel closed")

	// ErrWakerBusy is returned by Future.Poll when a different waker is
	// already registered.
	ErrWakerBusy = errors.New("future already has a registered waker")

	// ErrFutureConsumed is returned by Future.Poll after the result was taken.
	ErrFutureConsumed = errors.New("future result already consumed")

	// ErrNoEntity is reported by providers when a by-index lookup misses.
	ErrNoEntity = errors.New("no such entity")

	// ErrLoopQuit is returned by Mainloop.Run after Quit was called.
	ErrLoopQuit = errors.New("main loop quit")

	// ErrAlreadyStarted is returned by Bridge.Start on a second call.
	ErrAlreadyStarted = errors.New("bridge already started")
)

// ConnectionError is a fatal failure to reach or keep the Ready state.
type ConnectionError struct {
	State ConnState
	Err   error
}

// Error implements error.
func (e *ConnectionError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%v (state %s)", ErrConnection, e.State)
	}
	return fmt.Sprintf("%v (state %s): %v", ErrConnection, e.State, e.Err)
}

// Unwrap returns ErrConnection and the underlying cause.
func (e *ConnectionError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrConnection}
	}
	return []error{ErrConnection, e.Err}
}
