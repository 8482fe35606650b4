// Package mainloop provides the callback queue shared by the device server
// providers. Callbacks run on whichever goroutine calls Iterate or Run, in
// the order they were posted.
package mainloop

import (
	"sync"

	"github.com/zoobzio/pulsewatch"
)

// Loop is a FIFO of callbacks. It implements pulsewatch.Mainloop.
type Loop struct {
	mu    sync.Mutex
	queue []func()
	quit  bool
	wake  chan struct{}
}

// New creates an empty Loop.
func New() *Loop {
	return &Loop{wake: make(chan struct{}, 1)}
}

// Post schedules fn to run on the loop goroutine. Safe from any goroutine.
// Callbacks posted after Quit never run.
func (l *Loop) Post(fn func()) {
	l.mu.Lock()
	if l.quit {
		l.mu.Unlock()
		return
	}
	l.queue = append(l.queue, fn)
	l.mu.Unlock()
	l.signal()
}

// Pending returns the number of queued callbacks.
func (l *Loop) Pending() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.queue)
}

func (l *Loop) signal() {
	select {
	case l.wake <- struct{}{}:
	default:
	}
}

// Iterate runs at most one callback. With block set it waits for one to
// be posted.
func (l *Loop) Iterate(block bool) error {
	for {
		l.mu.Lock()
		if l.quit {
			l.mu.Unlock()
			return pulsewatch.ErrLoopQuit
		}
		if len(l.queue) > 0 {
			fn := l.queue[0]
			l.queue[0] = nil
			l.queue = l.queue[1:]
			l.mu.Unlock()
			fn()
			return nil
		}
		l.mu.Unlock()

		if !block {
			return nil
		}
		<-l.wake
	}
}

// Run iterates until Quit.
func (l *Loop) Run() error {
	for {
		if err := l.Iterate(true); err != nil {
			return err
		}
	}
}

// Quit stops the loop. The loop stays quit.
func (l *Loop) Quit() {
	l.mu.Lock()
	l.quit = true
	l.queue = nil
	l.mu.Unlock()
	l.signal()
}

var _ pulsewatch.Mainloop = (*Loop)(nil)
