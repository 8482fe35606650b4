// Package file provides a device server backed by a fixture file. The
// fixture lists sinks, sources, sink inputs and source outputs; while the
// server is watching, every edit is diffed against the previous contents
// and published as New, Changed and Removed notifications.
//
// Fixture (YAML):
//
//	sinks:
//	  - index: 1
//	    name: speakers
//	    volume: [65536, 65536]
//	sink_inputs:
//	  - index: 4
//	    name: music
//	    sink: 1
package file

import (
	"context"
	"fmt"
	"os"
	"reflect"
	"slices"
	"sync"

	"github.com/zoobzio/capitan"
	"github.com/zoobzio/pulsewatch"
	"github.com/zoobzio/pulsewatch/pkg/memory"
)

// Signals emitted while watching a fixture.
var (
	FixtureReloaded = capitan.NewSignal("pulsewatch.file.reloaded", "Fixture file was reloaded and diffed")
	FixtureInvalid  = capitan.NewSignal("pulsewatch.file.invalid", "Fixture file could not be decoded")
)

// Field keys for fixture signals.
var (
	KeyPath    = capitan.NewStringKey("path")
	KeyPuts    = capitan.NewIntKey("puts")
	KeyRemoves = capitan.NewIntKey("removes")
	KeyError   = capitan.NewStringKey("error")
)

// Fixture is the file format.
type Fixture struct {
	Sinks         []pulsewatch.Sink         `yaml:"sinks" json:"sinks"`
	Sources       []pulsewatch.Source       `yaml:"sources" json:"sources"`
	SinkInputs    []pulsewatch.SinkInput    `yaml:"sink_inputs" json:"sink_inputs"`
	SourceOutputs []pulsewatch.SourceOutput `yaml:"source_outputs" json:"source_outputs"`
}

// Entities returns every record in the fixture, sinks first.
func (f Fixture) Entities() []pulsewatch.Entity {
	out := make([]pulsewatch.Entity, 0, len(f.Sinks)+len(f.Sources)+len(f.SinkInputs)+len(f.SourceOutputs))
	for _, v := range f.Sinks {
		out = append(out, v)
	}
	for _, v := range f.Sources {
		out = append(out, v)
	}
	for _, v := range f.SinkInputs {
		out = append(out, v)
	}
	for _, v := range f.SourceOutputs {
		out = append(out, v)
	}
	return out
}

// key identifies a record across fixture versions.
type key struct {
	kind pulsewatch.Kind
	id   uint32
}

func index(f Fixture) map[key]pulsewatch.Entity {
	out := make(map[key]pulsewatch.Entity)
	for _, e := range f.Entities() {
		out[key{e.Kind(), e.Index()}] = e
	}
	return out
}

// Diff lists what changed between two fixtures: records to remove and
// records to put, each ordered by kind then index.
func Diff(prev, next Fixture) (removed []pulsewatch.RawNotification, put []pulsewatch.Entity) {
	before, after := index(prev), index(next)

	for k := range before {
		if _, ok := after[k]; !ok {
			removed = append(removed, pulsewatch.RawNotification{Kind: k.kind, Operation: pulsewatch.OperationRemoved, ID: k.id})
		}
	}
	for k, e := range after {
		if old, ok := before[k]; !ok || !reflect.DeepEqual(old, e) {
			put = append(put, e)
		}
	}

	slices.SortFunc(removed, func(a, b pulsewatch.RawNotification) int {
		return compareKey(key{a.Kind, a.ID}, key{b.Kind, b.ID})
	})
	slices.SortFunc(put, func(a, b pulsewatch.Entity) int {
		return compareKey(key{a.Kind(), a.Index()}, key{b.Kind(), b.Index()})
	})
	return removed, put
}

func compareKey(a, b key) int {
	if a.kind != b.kind {
		return int(a.kind) - int(b.kind)
	}
	switch {
	case a.id < b.id:
		return -1
	case a.id > b.id:
		return 1
	}
	return 0
}

// Server is a memory server kept in sync with a fixture file.
type Server struct {
	*memory.Server

	path  string
	codec pulsewatch.Codec

	mu      sync.Mutex
	current Fixture
}

// Option configures a Server.
type Option func(*Server)

// WithCodec sets the fixture codec. Default: chosen from the file
// extension by pulsewatch.CodecFor.
func WithCodec(c pulsewatch.Codec) Option {
	return func(s *Server) { s.codec = c }
}

// WithMemoryOptions passes options to the underlying memory server.
func WithMemoryOptions(opts ...memory.Option) Option {
	return func(s *Server) { s.Server = memory.New(opts...) }
}

// New loads the fixture at path and seeds a server with it.
func New(path string, opts ...Option) (*Server, error) {
	s := &Server{path: path, codec: pulsewatch.CodecFor(path)}
	for _, opt := range opts {
		opt(s)
	}
	if s.Server == nil {
		s.Server = memory.New()
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read fixture: %w", err)
	}
	f, err := s.decode(data)
	if err != nil {
		return nil, err
	}
	if err := s.Seed(f.Entities()...); err != nil {
		return nil, err
	}
	s.current = f
	return s, nil
}

// Current returns the last fixture applied.
func (s *Server) Current() Fixture {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current
}

// Watch follows the fixture file until ctx is done. Each successfully
// decoded version is applied with Apply; undecodable versions are reported
// and skipped. Watch returns once the file is being watched.
func (s *Server) Watch(ctx context.Context) error {
	ch, err := watch(ctx, s.path)
	if err != nil {
		return err
	}
	go func() {
		for data := range ch {
			f, err := s.decode(data)
			if err != nil {
				capitan.Emit(ctx, FixtureInvalid, KeyPath.Field(s.path), KeyError.Field(err.Error()))
				continue
			}
			s.Apply(ctx, f)
		}
	}()
	return nil
}

// Apply replaces the server contents with f, notifying subscribers of every
// difference. Removals are published before puts.
func (s *Server) Apply(ctx context.Context, f Fixture) {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed, put := Diff(s.current, f)
	for _, n := range removed {
		s.Remove(n.Kind, n.ID)
	}
	for _, e := range put {
		// Entities from a decoded fixture are always supported kinds.
		_ = s.Put(e)
	}
	s.current = f

	if len(removed)+len(put) > 0 {
		capitan.Emit(ctx, FixtureReloaded,
			KeyPath.Field(s.path),
			KeyPuts.Field(len(put)),
			KeyRemoves.Field(len(removed)),
		)
	}
}

func (s *Server) decode(data []byte) (Fixture, error) {
	var f Fixture
	if err := s.codec.Unmarshal(data, &f); err != nil {
		return Fixture{}, fmt.Errorf("failed to decode fixture: %w", err)
	}
	return f, nil
}
