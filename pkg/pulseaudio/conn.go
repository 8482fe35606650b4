package pulseaudio

import (
	"context"
	"fmt"
	"net"
	"sync"
	"sync/atomic"

	"github.com/jfreymuth/pulse/proto"
	"github.com/zoobzio/pulsewatch"
	"github.com/zoobzio/pulsewatch/internal/mainloop"
)

// protocolVersion is the native protocol version requested during auth.
const protocolVersion = 32

// conn implements pulsewatch.Context over a protocol client.
type conn struct {
	provider *Provider
	loop     *mainloop.Loop

	state atomic.Int32

	mu       sync.Mutex
	client   *proto.Client
	socket   net.Conn
	stateCb  func(pulsewatch.ConnState)
	notifyCb func(pulsewatch.RawNotification)

	ctx    context.Context
	cancel context.CancelFunc
}

func newConn(p *Provider, l *mainloop.Loop) *conn {
	ctx, cancel := context.WithCancel(context.Background())
	return &conn{provider: p, loop: l, ctx: ctx, cancel: cancel}
}

// Connect starts the handshake in the background. Progress is reported
// through the state callback, on the loop.
func (c *conn) Connect() error {
	cookie, err := c.provider.cookie()
	if err != nil {
		return err
	}
	c.post(func() { c.setState(pulsewatch.ConnConnecting) })
	go c.handshake(cookie)
	return nil
}

func (c *conn) handshake(cookie []byte) {
	socket, err := c.provider.dial()
	if err != nil {
		c.post(func() { c.setState(pulsewatch.ConnFailed) })
		return
	}

	client := &proto.Client{Callback: c.onMessage}
	client.SetTimeout(c.provider.requestTimeout)

	c.mu.Lock()
	if c.ctx.Err() != nil {
		c.mu.Unlock()
		socket.Close()
		return
	}
	c.client, c.socket = client, socket
	c.mu.Unlock()
	client.Open(socket)

	c.post(func() { c.setState(pulsewatch.ConnAuthorizing) })
	var auth proto.AuthReply
	if err := client.Request(&proto.Auth{Version: protocolVersion, Cookie: cookie}, &auth); err != nil {
		c.post(func() { c.setState(pulsewatch.ConnFailed) })
		return
	}
	client.SetVersion(auth.Version)

	c.post(func() { c.setState(pulsewatch.ConnSettingName) })
	props := proto.PropList{"application.name": proto.PropListString(c.provider.clientName)}
	if err := client.Request(&proto.SetClientName{Props: props}, &proto.SetClientNameReply{}); err != nil {
		c.post(func() { c.setState(pulsewatch.ConnFailed) })
		return
	}

	c.post(func() { c.setState(pulsewatch.ConnReady) })
	go c.watch(client)
}

// watch pings the server until the connection ends. A ping that fails means
// the server is gone or stuck.
func (c *conn) watch(client *proto.Client) {
	if c.provider.heartbeat <= 0 {
		return
	}
	for {
		timer := c.provider.clock.NewTimer(c.provider.heartbeat)
		select {
		case <-c.ctx.Done():
			timer.Stop()
			return
		case <-timer.C():
		}
		if err := client.Request(&proto.GetServerInfo{}, nil); err != nil {
			c.fail()
			return
		}
	}
}

// fail reports a lost connection unless Disconnect caused it.
func (c *conn) fail() {
	if c.ctx.Err() != nil {
		return
	}
	c.post(func() { c.setState(pulsewatch.ConnFailed) })
}

// onMessage runs on the protocol reader goroutine.
func (c *conn) onMessage(msg any) {
	switch m := msg.(type) {
	case *proto.SubscribeEvent:
		n := pulsewatch.DecodeEvent(uint32(m.Event), m.Index)
		c.post(func() {
			c.mu.Lock()
			cb := c.notifyCb
			c.mu.Unlock()
			if cb != nil {
				cb(n)
			}
		})
	case *proto.ConnectionClosed:
		c.fail()
	}
}

func (c *conn) post(fn func()) {
	c.loop.Post(fn)
}

// State implements pulsewatch.Context.
func (c *conn) State() pulsewatch.ConnState {
	return pulsewatch.ConnState(c.state.Load())
}

func (c *conn) setState(s pulsewatch.ConnState) {
	if c.State().Terminal() {
		return
	}
	c.state.Store(int32(s))
	c.mu.Lock()
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

// Subscribe implements pulsewatch.Context.
func (c *conn) Subscribe(mask pulsewatch.SubscriptionMask, ack func(bool)) {
	client := c.protocol()
	if client == nil {
		c.post(func() { ack(false) })
		return
	}
	go func() {
		err := client.Request(&proto.Subscribe{Mask: proto.SubscriptionMask(mask)}, nil)
		c.post(func() { ack(err == nil) })
	}()
}

// Introspect implements pulsewatch.Context.
func (c *conn) Introspect() pulsewatch.Introspector {
	return introspector{c}
}

// Disconnect implements pulsewatch.Context.
func (c *conn) Disconnect() {
	c.cancel()
	c.mu.Lock()
	socket := c.socket
	c.client, c.socket = nil, nil
	c.mu.Unlock()
	if socket != nil {
		socket.Close()
	}
	c.state.Store(int32(pulsewatch.ConnTerminated))
}

func (c *conn) protocol() *proto.Client {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.client
}

// request runs a protocol request off the loop and reports the outcome on
// it. Requests after Disconnect fail with pulsewatch.ErrConnection.
func (c *conn) request(args proto.RequestArgs, reply proto.Reply, done func(error)) {
	client := c.protocol()
	if client == nil {
		c.post(func() { done(fmt.Errorf("%w: not connected", pulsewatch.ErrConnection)) })
		return
	}
	go func() {
		err := client.Request(args, reply)
		c.post(func() { done(err) })
	}()
}
