package pulsewatch

import (
	"context"
	"math/rand"
	"reflect"
	"testing"
)

// oracle is the reference reconciliation: one map from index to entity.
// A Delete drops the index whatever kind it belonged to.
type oracle map[uint32]Entity

func (o oracle) apply(m ChangeMessage) {
	switch m.Type {
	case ChangeAdd:
		o[m.ID] = m.Entity
	case ChangeDelete:
		delete(o, m.ID)
	}
}

func TestMirror_AddAndDelete(t *testing.T) {
	m := NewMirror()
	m.Apply(Add(1, Sink{ID: 1, Name: "a"}))
	m.Apply(Add(2, SinkInput{ID: 2, Sink: 1}))

	if s, ok := m.Sink(1); !ok || s.Name != "a" {
		t.Fatalf("expected sink 1, got %+v %v", s, ok)
	}
	if m.Len(KindSinkInput) != 1 {
		t.Fatalf("expected 1 sink input, got %d", m.Len(KindSinkInput))
	}

	m.Apply(Add(1, Sink{ID: 1, Name: "b"}))
	if s, _ := m.Sink(1); s.Name != "b" {
		t.Errorf("expected upsert to replace, got %q", s.Name)
	}

	m.Apply(Delete(2))
	if _, ok := m.SinkInput(2); ok {
		t.Error("expected sink input 2 removed")
	}
	if m.Len(KindSink) != 1 {
		t.Error("delete of another index removed a sink")
	}
}

func TestMirror_DeleteClearsEveryKind(t *testing.T) {
	m := NewMirror()
	m.Apply(Add(4, Sink{ID: 4}))
	m.Apply(Add(4, Source{ID: 4}))
	m.Apply(Add(4, SinkInput{ID: 4}))
	m.Apply(Add(4, SourceOutput{ID: 4}))

	m.Apply(Delete(4))
	for _, k := range SupportedKinds {
		if n := m.Len(k); n != 0 {
			t.Errorf("expected %s empty, got %d", k, n)
		}
	}
}

func TestMirror_SortedAccessors(t *testing.T) {
	m := NewMirror()
	for _, id := range []uint32{9, 3, 6} {
		m.Apply(Add(id, Source{ID: id}))
	}
	var ids []uint32
	for _, s := range m.Sources() {
		ids = append(ids, s.ID)
	}
	if !reflect.DeepEqual(ids, []uint32{3, 6, 9}) {
		t.Errorf("expected sorted ids, got %v", ids)
	}
	if len(m.Sinks()) != 0 || len(m.SinkInputs()) != 0 || len(m.SourceOutputs()) != 0 {
		t.Error("expected other kinds empty")
	}
}

func TestMirror_ReplayMatchesOracle(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	m := NewMirror()
	o := oracle{}

	for i := 0; i < 2000; i++ {
		id := uint32(rng.Intn(16))
		var msg ChangeMessage
		if rng.Intn(3) == 0 {
			msg = Delete(id)
		} else {
			// Indices are unique across kinds on a real server.
			switch id % 4 {
			case 0:
				msg = Add(id, Sink{ID: id, Volume: ChannelVolumes{Volume(i)}})
			case 1:
				msg = Add(id, Source{ID: id, Volume: ChannelVolumes{Volume(i)}})
			case 2:
				msg = Add(id, SinkInput{ID: id, Volume: ChannelVolumes{Volume(i)}})
			default:
				msg = Add(id, SourceOutput{ID: id, Volume: ChannelVolumes{Volume(i)}})
			}
		}
		m.Apply(msg)
		o.apply(msg)
	}

	total := 0
	for _, k := range SupportedKinds {
		total += m.Len(k)
	}
	if total != len(o) {
		t.Fatalf("expected %d entities, got %d", len(o), total)
	}
	for id, want := range o {
		var got Entity
		var ok bool
		switch want.(type) {
		case Sink:
			got, ok = m.Sink(id)
		case Source:
			got, ok = m.Source(id)
		case SinkInput:
			got, ok = m.SinkInput(id)
		case SourceOutput:
			got, ok = m.SourceOutput(id)
		}
		if !ok || !reflect.DeepEqual(got, want) {
			t.Errorf("id %d: expected %+v, got %+v", id, want, got)
		}
	}
}

func TestMirror_Consume(t *testing.T) {
	ch := make(chan ChangeMessage, 3)
	ch <- Add(1, Sink{ID: 1})
	ch <- Add(2, Sink{ID: 2})
	ch <- Delete(1)
	close(ch)

	m := NewMirror()
	if err := m.Consume(context.Background(), ch); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if m.Len(KindSink) != 1 {
		t.Fatalf("expected 1 sink, got %d", m.Len(KindSink))
	}
}

func TestMirror_ConsumeStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := NewMirror().Consume(ctx, make(chan ChangeMessage)); err != context.Canceled {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}
