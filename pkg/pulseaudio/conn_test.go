package pulseaudio

import (
	"encoding/binary"
	"io"
	"net"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jfreymuth/pulse/proto"
	"github.com/zoobzio/clockz"
	"github.com/zoobzio/pulsewatch"
)

const noIndex = 0xFFFFFFFF

// request is one command received by the fake server.
type request struct {
	command uint32
	args    []byte
}

// fakeServer speaks just enough of the native protocol to take a client
// through auth, naming, subscription and heartbeats.
type fakeServer struct {
	t    *testing.T
	path string
	ln   net.Listener

	rejectSubscribe bool
	hangUpOnHeartbeat   atomic.Bool

	mu       sync.Mutex
	conn     net.Conn
	requests chan request
}

func newFakeServer(t *testing.T) *fakeServer {
	t.Helper()
	// unix socket paths are short; t.TempDir can exceed the limit
	dir, err := os.MkdirTemp("", "pw")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { os.RemoveAll(dir) })

	path := filepath.Join(dir, "native")
	ln, err := net.Listen("unix", path)
	if err != nil {
		t.Fatalf("listen failed: %v", err)
	}
	s := &fakeServer{t: t, path: path, ln: ln, requests: make(chan request, 64)}
	t.Cleanup(func() {
		ln.Close()
		s.mu.Lock()
		if s.conn != nil {
			s.conn.Close()
		}
		s.mu.Unlock()
	})
	go s.serve()
	return s
}

func (s *fakeServer) serve() {
	conn, err := s.ln.Accept()
	if err != nil {
		return
	}
	s.mu.Lock()
	s.conn = conn
	s.mu.Unlock()

	header := make([]byte, 20)
	for {
		if _, err := io.ReadFull(conn, header); err != nil {
			return
		}
		payload := make([]byte, binary.BigEndian.Uint32(header[0:4]))
		if _, err := io.ReadFull(conn, payload); err != nil {
			return
		}
		if len(payload) < 10 {
			continue
		}
		cmd := binary.BigEndian.Uint32(payload[1:5])
		tag := binary.BigEndian.Uint32(payload[6:10])
		s.requests <- request{command: cmd, args: payload[10:]}

		switch cmd {
		case proto.OpAuth:
			s.reply(tag, u32(protocolVersion))
		case proto.OpSetClientName:
			s.reply(tag, u32(7))
		case proto.OpSubscribe:
			if s.rejectSubscribe {
				s.write(frame(proto.OpError, tag, u32(uint32(proto.ErrAccessDenied))))
				continue
			}
			s.reply(tag)
		case proto.OpGetServerInfo:
			if s.hangUpOnHeartbeat.Load() {
				conn.Close()
				return
			}
			s.reply(tag)
		default:
			s.write(frame(proto.OpError, tag, u32(uint32(proto.ErrUnknownCommand))))
		}
	}
}

func (s *fakeServer) reply(tag uint32, fields ...[]byte) {
	s.write(frame(proto.OpReply, tag, fields...))
}

// event pushes a subscription event to the client.
func (s *fakeServer) event(event, index uint32) {
	s.write(frame(proto.OpSubscribeEvent, noIndex, u32(event), u32(index)))
}

func (s *fakeServer) write(payload []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.conn == nil {
		return
	}
	header := make([]byte, 20)
	binary.BigEndian.PutUint32(header[0:4], uint32(len(payload)))
	binary.BigEndian.PutUint32(header[4:8], noIndex)
	s.conn.Write(append(header, payload...)) //nolint:errcheck
}

// next returns the next request, failing after a timeout.
func (s *fakeServer) next() request {
	s.t.Helper()
	select {
	case r := <-s.requests:
		return r
	case <-time.After(2 * time.Second):
		s.t.Fatal("timeout waiting for request")
		return request{}
	}
}

func u32(v uint32) []byte {
	b := make([]byte, 5)
	b[0] = 'L'
	binary.BigEndian.PutUint32(b[1:], v)
	return b
}

func frame(cmd, tag uint32, fields ...[]byte) []byte {
	out := append(u32(cmd), u32(tag)...)
	for _, f := range fields {
		out = append(out, f...)
	}
	return out
}

// session is a connection driven by its own loop goroutine.
type session struct {
	ctx    pulsewatch.Context
	loop   pulsewatch.Mainloop
	states chan pulsewatch.ConnState
	notify chan pulsewatch.RawNotification
}

func connect(t *testing.T, p *Provider) *session {
	t.Helper()
	loop, ctx, err := p.Dial()
	if err != nil {
		t.Fatalf("dial failed: %v", err)
	}
	s := &session{
		ctx:    ctx,
		loop:   loop,
		states: make(chan pulsewatch.ConnState, 16),
		notify: make(chan pulsewatch.RawNotification, 16),
	}
	ctx.SetStateCallback(func(st pulsewatch.ConnState) { s.states <- st })
	ctx.SetSubscribeCallback(func(n pulsewatch.RawNotification) { s.notify <- n })
	if err := ctx.Connect(); err != nil {
		t.Fatalf("connect failed: %v", err)
	}
	go loop.Run() //nolint:errcheck
	t.Cleanup(func() {
		ctx.Disconnect()
		loop.Quit()
	})
	return s
}

func (s *session) waitState(t *testing.T, want pulsewatch.ConnState) {
	t.Helper()
	timeout := time.After(2 * time.Second)
	for {
		select {
		case st := <-s.states:
			if st == want {
				return
			}
			if st.Terminal() {
				t.Fatalf("expected %s, connection ended in %s", want, st)
			}
		case <-timeout:
			t.Fatalf("timeout waiting for %s", want)
		}
	}
}

func (s *session) subscribe(t *testing.T, mask pulsewatch.SubscriptionMask) bool {
	t.Helper()
	acks := make(chan bool, 1)
	s.ctx.Subscribe(mask, func(ok bool) { acks <- ok })
	select {
	case ok := <-acks:
		return ok
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting for subscribe ack")
		return false
	}
}

func newTestProvider(t *testing.T, server *fakeServer, opts ...Option) *Provider {
	t.Helper()
	cookie := filepath.Join(t.TempDir(), "cookie")
	if err := os.WriteFile(cookie, make([]byte, 256), 0o600); err != nil {
		t.Fatal(err)
	}
	base := []Option{
		WithServer("unix:" + server.path),
		WithCookie(cookie),
		WithClientName("pulsewatch-test"),
		WithHeartbeat(0),
		WithRequestTimeout(2 * time.Second),
	}
	return New(append(base, opts...)...)
}

func TestConn_HandshakeReachesReady(t *testing.T) {
	server := newFakeServer(t)
	s := connect(t, newTestProvider(t, server))

	s.waitState(t, pulsewatch.ConnReady)

	if r := server.next(); r.command != proto.OpAuth {
		t.Errorf("expected auth first, got command %d", r.command)
	}
	if r := server.next(); r.command != proto.OpSetClientName {
		t.Errorf("expected client name second, got command %d", r.command)
	}
	if s.ctx.State() != pulsewatch.ConnReady {
		t.Errorf("expected ConnReady, got %s", s.ctx.State())
	}
}

func TestConn_SubscribeSendsMaskAndDeliversEvents(t *testing.T) {
	server := newFakeServer(t)
	s := connect(t, newTestProvider(t, server))
	s.waitState(t, pulsewatch.ConnReady)
	server.next()
	server.next()

	if !s.subscribe(t, pulsewatch.MaskAll) {
		t.Fatal("expected subscription to be acknowledged")
	}
	r := server.next()
	if r.command != proto.OpSubscribe {
		t.Fatalf("expected subscribe, got command %d", r.command)
	}
	if len(r.args) != 5 || binary.BigEndian.Uint32(r.args[1:]) != uint32(pulsewatch.MaskAll) {
		t.Errorf("unexpected mask argument % x", r.args)
	}

	server.event(0x0010, 5) // sink changed
	server.event(0x0022, 9) // sink input removed

	want := []pulsewatch.RawNotification{
		{Kind: pulsewatch.KindSink, Operation: pulsewatch.OperationChanged, ID: 5},
		{Kind: pulsewatch.KindSinkInput, Operation: pulsewatch.OperationRemoved, ID: 9},
	}
	for i, w := range want {
		select {
		case got := <-s.notify:
			if got != w {
				t.Errorf("notification %d: expected %s, got %s", i, w, got)
			}
		case <-time.After(2 * time.Second):
			t.Fatalf("timeout waiting for notification %d", i)
		}
	}
}

func TestConn_RejectedSubscription(t *testing.T) {
	server := newFakeServer(t)
	server.rejectSubscribe = true
	s := connect(t, newTestProvider(t, server))
	s.waitState(t, pulsewatch.ConnReady)

	if s.subscribe(t, pulsewatch.MaskSink) {
		t.Error("expected subscription to be refused")
	}
}

func TestConn_HeartbeatDetectsLostServer(t *testing.T) {
	server := newFakeServer(t)
	clock := clockz.NewFakeClock()
	s := connect(t, newTestProvider(t, server, WithHeartbeat(time.Second), WithClock(clock)))
	s.waitState(t, pulsewatch.ConnReady)
	server.next()
	server.next()

	tick := func() {
		t.Helper()
		deadline := time.Now().Add(2 * time.Second)
		for !clock.HasWaiters() {
			if time.Now().After(deadline) {
				t.Fatal("heartbeat timer never armed")
			}
			time.Sleep(5 * time.Millisecond)
		}
		clock.Advance(time.Second)
		clock.BlockUntilReady()
	}

	tick()
	if r := server.next(); r.command != proto.OpGetServerInfo {
		t.Fatalf("expected heartbeat request, got command %d", r.command)
	}
	if s.ctx.State() != pulsewatch.ConnReady {
		t.Fatalf("answered heartbeat should keep the connection ready, got %s", s.ctx.State())
	}

	server.hangUpOnHeartbeat.Store(true)
	tick()
	s.waitState(t, pulsewatch.ConnFailed)
}

func TestConn_DisconnectIsNotAFailure(t *testing.T) {
	server := newFakeServer(t)
	s := connect(t, newTestProvider(t, server))
	s.waitState(t, pulsewatch.ConnReady)

	s.ctx.Disconnect()

	select {
	case st := <-s.states:
		t.Errorf("unexpected state after disconnect: %s", st)
	case <-time.After(100 * time.Millisecond):
	}
	if s.ctx.State() != pulsewatch.ConnTerminated {
		t.Errorf("expected ConnTerminated, got %s", s.ctx.State())
	}
}
