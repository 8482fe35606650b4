// Package memory provides an in-process device server for tests, demos and
// fixture-driven providers. It implements pulsewatch.Dialer with a
// deterministic loop: every callback runs on the goroutine that calls
// Iterate or Run, in the order it was scheduled.
package memory

import (
	"errors"
	"fmt"
	"maps"
	"slices"
	"sync"

	"github.com/zoobzio/pulsewatch"
	"github.com/zoobzio/pulsewatch/internal/mainloop"
)

// ErrRefused is returned by Connect when the server was told to refuse.
var ErrRefused = errors.New("connection refused")

// Server holds the entity tables and the connections dialed from it.
type Server struct {
	mu            sync.Mutex
	sinks         table[pulsewatch.Sink]
	sources       table[pulsewatch.Source]
	sinkInputs    table[pulsewatch.SinkInput]
	sourceOutputs table[pulsewatch.SourceOutput]
	conns         map[*conn]struct{}

	dialErr         error
	refuseConnect   bool
	failConnect     bool
	stallConnect    bool
	rejectSubscribe bool
}

// Option configures a Server.
type Option func(*Server)

// WithDialError makes Dial fail with err.
func WithDialError(err error) Option {
	return func(s *Server) { s.dialErr = err }
}

// WithRefusedConnect makes Connect return ErrRefused.
func WithRefusedConnect() Option {
	return func(s *Server) { s.refuseConnect = true }
}

// WithFailedConnect makes the connection go to Failed instead of Ready.
func WithFailedConnect() Option {
	return func(s *Server) { s.failConnect = true }
}

// WithStalledConnect leaves the connection in Connecting forever.
func WithStalledConnect() Option {
	return func(s *Server) { s.stallConnect = true }
}

// WithRejectedSubscribe makes the server answer subscriptions with false.
func WithRejectedSubscribe() Option {
	return func(s *Server) { s.rejectSubscribe = true }
}

// New creates an empty Server.
func New(opts ...Option) *Server {
	s := &Server{
		sinks:         newTable[pulsewatch.Sink](),
		sources:       newTable[pulsewatch.Source](),
		sinkInputs:    newTable[pulsewatch.SinkInput](),
		sourceOutputs: newTable[pulsewatch.SourceOutput](),
		conns:         make(map[*conn]struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Dial implements pulsewatch.Dialer.
func (s *Server) Dial() (pulsewatch.Mainloop, pulsewatch.Context, error) {
	if s.dialErr != nil {
		return nil, nil, s.dialErr
	}
	l := mainloop.New()
	c := &conn{server: s, loop: l}
	return l, c, nil
}

// Seed stores entities without notifying anyone.
func (s *Server) Seed(entities ...pulsewatch.Entity) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, e := range entities {
		if _, err := s.store(e); err != nil {
			return err
		}
	}
	return nil
}

// Put stores an entity and notifies subscribers with New or Changed.
func (s *Server) Put(e pulsewatch.Entity) error {
	s.mu.Lock()
	existed, err := s.store(e)
	s.mu.Unlock()
	if err != nil {
		return err
	}

	op := pulsewatch.OperationNew
	if existed {
		op = pulsewatch.OperationChanged
	}
	s.Emit(pulsewatch.RawNotification{Kind: e.Kind(), Operation: op, ID: e.Index()})
	return nil
}

// Remove deletes an entity and notifies subscribers. Removing an unknown
// index still notifies, as a real server may.
func (s *Server) Remove(kind pulsewatch.Kind, id uint32) {
	s.mu.Lock()
	switch kind {
	case pulsewatch.KindSink:
		s.sinks.remove(id)
	case pulsewatch.KindSource:
		s.sources.remove(id)
	case pulsewatch.KindSinkInput:
		s.sinkInputs.remove(id)
	case pulsewatch.KindSourceOutput:
		s.sourceOutputs.remove(id)
	}
	s.mu.Unlock()

	s.Emit(pulsewatch.RawNotification{Kind: kind, Operation: pulsewatch.OperationRemoved, ID: id})
}

// Emit delivers a notification as-is to every subscribed connection whose
// mask covers its kind. Notifications without a valid kind bypass the mask.
func (s *Server) Emit(n pulsewatch.RawNotification) {
	for _, c := range s.connections() {
		c.notify(n)
	}
}

// Fail moves every connection to Failed.
func (s *Server) Fail() {
	for _, c := range s.connections() {
		c.post(func() { c.setState(pulsewatch.ConnFailed) })
	}
}

// Terminate moves every connection to Terminated.
func (s *Server) Terminate() {
	for _, c := range s.connections() {
		c.post(func() { c.setState(pulsewatch.ConnTerminated) })
	}
}

// Connections returns the number of live connections.
func (s *Server) Connections() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.conns)
}

// Len returns the number of stored entities of kind k.
func (s *Server) Len(k pulsewatch.Kind) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch k {
	case pulsewatch.KindSink:
		return len(s.sinks.rows)
	case pulsewatch.KindSource:
		return len(s.sources.rows)
	case pulsewatch.KindSinkInput:
		return len(s.sinkInputs.rows)
	case pulsewatch.KindSourceOutput:
		return len(s.sourceOutputs.rows)
	default:
		return 0
	}
}

// store keeps an owned copy, so callers may reuse what they passed in.
func (s *Server) store(e pulsewatch.Entity) (bool, error) {
	switch v := pulsewatch.OwnedEntity(e).(type) {
	case pulsewatch.Sink:
		return s.sinks.put(v), nil
	case pulsewatch.Source:
		return s.sources.put(v), nil
	case pulsewatch.SinkInput:
		return s.sinkInputs.put(v), nil
	case pulsewatch.SourceOutput:
		return s.sourceOutputs.put(v), nil
	default:
		return false, fmt.Errorf("unsupported entity %T", e)
	}
}

func (s *Server) connections() []*conn {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Collect(maps.Keys(s.conns))
}

// table is one entity collection keyed by index.
type table[T pulsewatch.Entity] struct {
	rows map[uint32]T
}

func newTable[T pulsewatch.Entity]() table[T] {
	return table[T]{rows: make(map[uint32]T)}
}

func (t table[T]) put(v T) bool {
	_, existed := t.rows[v.Index()]
	t.rows[v.Index()] = v
	return existed
}

func (t table[T]) remove(id uint32) {
	delete(t.rows, id)
}

func (t table[T]) get(id uint32) (T, bool) {
	v, ok := t.rows[id]
	return v, ok
}

func (t table[T]) all() []T {
	keys := slices.Sorted(maps.Keys(t.rows))
	out := make([]T, 0, len(keys))
	for _, k := range keys {
		out = append(out, t.rows[k])
	}
	return out
}
