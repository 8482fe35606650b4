package memory

import (
	"sync"

	"github.com/zoobzio/pulsewatch"
	"github.com/zoobzio/pulsewatch/internal/mainloop"
)

// conn implements pulsewatch.Context against a Server.
type conn struct {
	server *Server
	loop   *mainloop.Loop

	mu         sync.Mutex
	state      pulsewatch.ConnState
	stateCb    func(pulsewatch.ConnState)
	notifyCb   func(pulsewatch.RawNotification)
	mask       pulsewatch.SubscriptionMask
	subscribed bool
}

func (c *conn) post(fn func()) {
	c.loop.Post(fn)
}

// Connect implements pulsewatch.Context.
func (c *conn) Connect() error {
	s := c.server
	if s.refuseConnect {
		return ErrRefused
	}

	s.mu.Lock()
	s.conns[c] = struct{}{}
	s.mu.Unlock()

	c.post(func() { c.setState(pulsewatch.ConnConnecting) })
	if s.stallConnect {
		return nil
	}
	c.post(func() { c.setState(pulsewatch.ConnAuthorizing) })
	c.post(func() { c.setState(pulsewatch.ConnSettingName) })
	if s.failConnect {
		c.post(func() { c.setState(pulsewatch.ConnFailed) })
		return nil
	}
	c.post(func() { c.setState(pulsewatch.ConnReady) })
	return nil
}

// State implements pulsewatch.Context.
func (c *conn) State() pulsewatch.ConnState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

func (c *conn) setState(s pulsewatch.ConnState) {
	c.mu.Lock()
	c.state = s
	cb := c.stateCb
	c.mu.Unlock()
	if cb != nil {
		cb(s)
	}
}

// SetStateCallback implements pulsewatch.Context.
func (c *conn) SetStateCallback(fn func(pulsewatch.ConnState)) {
	c.mu.Lock()
	c.stateCb = fn
	c.mu.Unlock()
}

// SetSubscribeCallback implements pulsewatch.Context.
func (c *conn) SetSubscribeCallback(fn func(pulsewatch.RawNotification)) {
	c.mu.Lock()
	c.notifyCb = fn
	c.mu.Unlock()
}

// Subscribe implements pulsewatch.Context. The answer arrives on the loop.
func (c *conn) Subscribe(mask pulsewatch.SubscriptionMask, ack func(bool)) {
	c.post(func() {
		if c.server.rejectSubscribe {
			ack(false)
			return
		}
		c.mu.Lock()
		c.mask = mask
		c.subscribed = true
		c.mu.Unlock()
		ack(true)
	})
}

// notify schedules delivery of n if the subscription covers it.
func (c *conn) notify(n pulsewatch.RawNotification) {
	c.post(func() {
		c.mu.Lock()
		cb := c.notifyCb
		deliver := c.subscribed && (!n.Kind.Valid() || c.mask.Has(n.Kind))
		c.mu.Unlock()
		if deliver && cb != nil {
			cb(n)
		}
	})
}

// Introspect implements pulsewatch.Context.
func (c *conn) Introspect() pulsewatch.Introspector {
	return introspector{c}
}

// Disconnect implements pulsewatch.Context.
func (c *conn) Disconnect() {
	c.server.mu.Lock()
	delete(c.server.conns, c)
	c.server.mu.Unlock()

	c.mu.Lock()
	c.state = pulsewatch.ConnTerminated
	c.subscribed = false
	c.mu.Unlock()
}
