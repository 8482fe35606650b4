package pulsewatch

import (
	"slices"
	"strings"
)

// Owner is implemented by records handed to callbacks that may still alias
// memory owned by the caller (decode buffers, reused scratch records).
// Owned returns a deep copy that is valid after the callback returns.
//
// Leaf records implement Owned field by field; the helpers below compose
// the recursion for optional, boxed and sequence shapes so that no record
// repeats it. Scalars and enums carry no borrowed data and are copied by
// assignment.
type Owner[T any] interface {
	Owned() T
}

// OwnText detaches a string from any larger buffer it was sliced from.
func OwnText(s string) string {
	return strings.Clone(s)
}

// OwnOptionalText copies an optional string.
func OwnOptionalText(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.Clone(*s)
	return &v
}

// OwnOptional copies an optional scalar.
func OwnOptional[T any](v *T) *T {
	if v == nil {
		return nil
	}
	c := *v
	return &c
}

// OwnBoxed copies a boxed record through its Owned method.
func OwnBoxed[T Owner[T]](v *T) *T {
	if v == nil {
		return nil
	}
	c := (*v).Owned()
	return &c
}

// OwnSlice copies a sequence of records element-wise.
func OwnSlice[T Owner[T]](s []T) []T {
	if s == nil {
		return nil
	}
	out := make([]T, len(s))
	for i := range s {
		out[i] = s[i].Owned()
	}
	return out
}

// OwnScalars copies a sequence of scalars.
func OwnScalars[S ~[]E, E any](s S) S {
	return slices.Clone(s)
}

// OwnProplist copies a property list, detaching keys and values.
func OwnProplist(p Proplist) Proplist {
	if p == nil {
		return nil
	}
	out := make(Proplist, len(p))
	for k, v := range p {
		out[strings.Clone(k)] = strings.Clone(v)
	}
	return out
}

// Owned implements Owner.
func (p Port) Owned() Port {
	return Port{
		Name:        OwnText(p.Name),
		Description: OwnOptionalText(p.Description),
		Priority:    p.Priority,
		Available:   p.Available,
	}
}

// Owned implements Owner.
func (f FormatInfo) Owned() FormatInfo {
	return FormatInfo{
		Encoding:   f.Encoding,
		Properties: OwnProplist(f.Properties),
	}
}

// Owned implements Owner.
func (s Sink) Owned() Sink {
	return Sink{
		ID:                s.ID,
		Name:              OwnText(s.Name),
		Description:       OwnOptionalText(s.Description),
		SampleSpec:        s.SampleSpec,
		ChannelMap:        OwnScalars(s.ChannelMap),
		OwnerModule:       OwnOptional(s.OwnerModule),
		Volume:            OwnScalars(s.Volume),
		Mute:              s.Mute,
		MonitorSource:     s.MonitorSource,
		MonitorSourceName: OwnOptionalText(s.MonitorSourceName),
		Latency:           s.Latency,
		Driver:            OwnOptionalText(s.Driver),
		Flags:             s.Flags,
		Properties:        OwnProplist(s.Properties),
		ConfiguredLatency: s.ConfiguredLatency,
		BaseVolume:        s.BaseVolume,
		State:             s.State,
		VolumeSteps:       s.VolumeSteps,
		Card:              OwnOptional(s.Card),
		Ports:             OwnSlice(s.Ports),
		ActivePort:        OwnBoxed(s.ActivePort),
		Formats:           OwnSlice(s.Formats),
	}
}

// Owned implements Owner.
func (s Source) Owned() Source {
	return Source{
		ID:                s.ID,
		Name:              OwnText(s.Name),
		Description:       OwnOptionalText(s.Description),
		SampleSpec:        s.SampleSpec,
		ChannelMap:        OwnScalars(s.ChannelMap),
		OwnerModule:       OwnOptional(s.OwnerModule),
		Volume:            OwnScalars(s.Volume),
		Mute:              s.Mute,
		MonitorOfSink:     OwnOptional(s.MonitorOfSink),
		MonitorOfSinkName: OwnOptionalText(s.MonitorOfSinkName),
		Latency:           s.Latency,
		Driver:            OwnOptionalText(s.Driver),
		Flags:             s.Flags,
		Properties:        OwnProplist(s.Properties),
		ConfiguredLatency: s.ConfiguredLatency,
		BaseVolume:        s.BaseVolume,
		State:             s.State,
		VolumeSteps:       s.VolumeSteps,
		Card:              OwnOptional(s.Card),
		Ports:             OwnSlice(s.Ports),
		ActivePort:        OwnBoxed(s.ActivePort),
		Formats:           OwnSlice(s.Formats),
	}
}

// Owned implements Owner.
func (s SinkInput) Owned() SinkInput {
	return SinkInput{
		ID:             s.ID,
		Name:           OwnText(s.Name),
		OwnerModule:    OwnOptional(s.OwnerModule),
		Client:         OwnOptional(s.Client),
		Sink:           s.Sink,
		SampleSpec:     s.SampleSpec,
		ChannelMap:     OwnScalars(s.ChannelMap),
		Volume:         OwnScalars(s.Volume),
		BufferLatency:  s.BufferLatency,
		SinkLatency:    s.SinkLatency,
		ResampleMethod: OwnOptionalText(s.ResampleMethod),
		Driver:         OwnOptionalText(s.Driver),
		Mute:           s.Mute,
		Properties:     OwnProplist(s.Properties),
		Corked:         s.Corked,
		HasVolume:      s.HasVolume,
		VolumeWritable: s.VolumeWritable,
		Format:         s.Format.Owned(),
	}
}

// Owned implements Owner.
func (s SourceOutput) Owned() SourceOutput {
	return SourceOutput{
		ID:             s.ID,
		Name:           OwnText(s.Name),
		OwnerModule:    OwnOptional(s.OwnerModule),
		Client:         OwnOptional(s.Client),
		Source:         s.Source,
		SampleSpec:     s.SampleSpec,
		ChannelMap:     OwnScalars(s.ChannelMap),
		Volume:         OwnScalars(s.Volume),
		BufferLatency:  s.BufferLatency,
		SourceLatency:  s.SourceLatency,
		ResampleMethod: OwnOptionalText(s.ResampleMethod),
		Driver:         OwnOptionalText(s.Driver),
		Mute:           s.Mute,
		Properties:     OwnProplist(s.Properties),
		Corked:         s.Corked,
		HasVolume:      s.HasVolume,
		VolumeWritable: s.VolumeWritable,
		Format:         s.Format.Owned(),
	}
}

// OwnedEntity returns a self-contained copy of any supported entity.
// Other entities are returned as they are.
func OwnedEntity(e Entity) Entity {
	switch v := e.(type) {
	case Sink:
		return v.Owned()
	case Source:
		return v.Owned()
	case SinkInput:
		return v.Owned()
	case SourceOutput:
		return v.Owned()
	default:
		return e
	}
}

// Ensure the records implement Owner.
var (
	_ Owner[Port]         = Port{}
	_ Owner[FormatInfo]   = FormatInfo{}
	_ Owner[Sink]         = Sink{}
	_ Owner[Source]       = Source{}
	_ Owner[SinkInput]    = SinkInput{}
	_ Owner[SourceOutput] = SourceOutput{}
)
