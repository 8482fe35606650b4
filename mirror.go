package pulsewatch

import (
	"context"
	"maps"
	"slices"
	"sync"
)

// Mirror is a consumer that reconciles ChangeMessages into one map per kind.
// An Add upserts into the map of its entity's kind. A Delete carries no kind
// and removes the ID from every map.
type Mirror struct {
	mu            sync.RWMutex
	sinks         map[uint32]Sink
	sources       map[uint32]Source
	sinkInputs    map[uint32]SinkInput
	sourceOutputs map[uint32]SourceOutput
}

// NewMirror creates an empty Mirror.
func NewMirror() *Mirror {
	return &Mirror{
		sinks:         make(map[uint32]Sink),
		sources:       make(map[uint32]Source),
		sinkInputs:    make(map[uint32]SinkInput),
		sourceOutputs: make(map[uint32]SourceOutput),
	}
}

// Apply reconciles one message.
func (m *Mirror) Apply(msg ChangeMessage) {
	m.mu.Lock()
	defer m.mu.Unlock()

	switch msg.Type {
	case ChangeDelete:
		delete(m.sinks, msg.ID)
		delete(m.sources, msg.ID)
		delete(m.sinkInputs, msg.ID)
		delete(m.sourceOutputs, msg.ID)
	case ChangeAdd:
		switch e := msg.Entity.(type) {
		case Sink:
			m.sinks[msg.ID] = e
		case Source:
			m.sources[msg.ID] = e
		case SinkInput:
			m.sinkInputs[msg.ID] = e
		case SourceOutput:
			m.sourceOutputs[msg.ID] = e
		}
	}
}

// Consume applies messages from ch until it closes or ctx is done.
func (m *Mirror) Consume(ctx context.Context, ch <-chan ChangeMessage) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			m.Apply(msg)
		}
	}
}

// Sink returns the sink with the given index.
func (m *Mirror) Sink(id uint32) (Sink, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.sinks[id]
	return v, ok
}

// Source returns the source with the given index.
func (m *Mirror) Source(id uint32) (Source, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.sources[id]
	return v, ok
}

// SinkInput returns the sink input with the given index.
func (m *Mirror) SinkInput(id uint32) (SinkInput, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.sinkInputs[id]
	return v, ok
}

// SourceOutput returns the source output with the given index.
func (m *Mirror) SourceOutput(id uint32) (SourceOutput, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.sourceOutputs[id]
	return v, ok
}

// Sinks returns every sink ordered by index.
func (m *Mirror) Sinks() []Sink {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return sortedValues(m.sinks)
}

// Sources returns every source ordered by index.
func (m *Mirror) Sources() []Source {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return sortedValues(m.sources)
}

// SinkInputs returns every sink input ordered by index.
func (m *Mirror) SinkInputs() []SinkInput {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return sortedValues(m.sinkInputs)
}

// SourceOutputs returns every source output ordered by index.
func (m *Mirror) SourceOutputs() []SourceOutput {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return sortedValues(m.sourceOutputs)
}

// Len returns the number of entities of kind k.
func (m *Mirror) Len(k Kind) int {
	m.mu.RLock()
	defer m.mu.RUnlock()

	switch k {
	case KindSink:
		return len(m.sinks)
	case KindSource:
		return len(m.sources)
	case KindSinkInput:
		return len(m.sinkInputs)
	case KindSourceOutput:
		return len(m.sourceOutputs)
	default:
		return 0
	}
}

func sortedValues[T any](src map[uint32]T) []T {
	keys := slices.Sorted(maps.Keys(src))
	out := make([]T, 0, len(keys))
	for _, k := range keys {
		out = append(out, src[k])
	}
	return out
}
