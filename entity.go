package pulsewatch

import "time"

// Entity is a snapshot of one managed object. Sink, Source, SinkInput and
// SourceOutput implement it.
type Entity interface {
	Kind() Kind
	Index() uint32
}

// Volume is a linear software volume where VolumeNorm is 100%.
type Volume uint32

// Common volume levels.
const (
	VolumeMuted Volume = 0
	VolumeNorm  Volume = 0x10000
)

// ChannelVolumes holds one volume per channel.
type ChannelVolumes []Volume

// Average returns the mean channel volume, or VolumeMuted for no channels.
func (cv ChannelVolumes) Average() Volume {
	if len(cv) == 0 {
		return VolumeMuted
	}
	var sum uint64
	for _, v := range cv {
		sum += uint64(v)
	}
	return Volume(sum / uint64(len(cv)))
}

// ChannelPosition identifies a speaker position in a channel map.
type ChannelPosition uint8

// SampleFormat is the sample encoding of a stream or device.
type SampleFormat uint8

// SampleSpec describes the sample format, channel count and rate.
type SampleSpec struct {
	Format   SampleFormat `yaml:"format" json:"format"`
	Channels uint8        `yaml:"channels" json:"channels"`
	Rate     uint32       `yaml:"rate" json:"rate"`
}

// Proplist is a free-form property list attached to most entities.
type Proplist map[string]string

// PortAvailability reports whether a port has something plugged in.
type PortAvailability uint32

const (
	PortAvailabilityUnknown PortAvailability = iota
	PortAvailabilityNo
	PortAvailabilityYes
)

// Port is a sink or source port.
type Port struct {
	Name        string           `yaml:"name" json:"name"`
	Description *string          `yaml:"description,omitempty" json:"description,omitempty"`
	Priority    uint32           `yaml:"priority" json:"priority"`
	Available   PortAvailability `yaml:"available" json:"available"`
}

// FormatInfo describes a stream or device encoding.
type FormatInfo struct {
	Encoding   uint8    `yaml:"encoding" json:"encoding"`
	Properties Proplist `yaml:"properties,omitempty" json:"properties,omitempty"`
}

// DeviceState is the runtime state of a sink or source.
type DeviceState int32

const (
	DeviceStateInvalid   DeviceState = -1
	DeviceStateRunning   DeviceState = 0
	DeviceStateIdle      DeviceState = 1
	DeviceStateSuspended DeviceState = 2
)

// Sink is an output device.
type Sink struct {
	ID                uint32            `yaml:"index" json:"index"`
	Name              string            `yaml:"name" json:"name"`
	Description       *string           `yaml:"description,omitempty" json:"description,omitempty"`
	SampleSpec        SampleSpec        `yaml:"sample_spec" json:"sample_spec"`
	ChannelMap        []ChannelPosition `yaml:"channel_map,omitempty" json:"channel_map,omitempty"`
	OwnerModule       *uint32           `yaml:"owner_module,omitempty" json:"owner_module,omitempty"`
	Volume            ChannelVolumes    `yaml:"volume,omitempty" json:"volume,omitempty"`
	Mute              bool              `yaml:"mute" json:"mute"`
	MonitorSource     uint32            `yaml:"monitor_source" json:"monitor_source"`
	MonitorSourceName *string           `yaml:"monitor_source_name,omitempty" json:"monitor_source_name,omitempty"`
	Latency           time.Duration     `yaml:"latency" json:"latency"`
	Driver            *string           `yaml:"driver,omitempty" json:"driver,omitempty"`
	Flags             uint32            `yaml:"flags" json:"flags"`
	Properties        Proplist          `yaml:"properties,omitempty" json:"properties,omitempty"`
	ConfiguredLatency time.Duration     `yaml:"configured_latency" json:"configured_latency"`
	BaseVolume        Volume            `yaml:"base_volume" json:"base_volume"`
	State             DeviceState       `yaml:"state" json:"state"`
	VolumeSteps       uint32            `yaml:"volume_steps" json:"volume_steps"`
	Card              *uint32           `yaml:"card,omitempty" json:"card,omitempty"`
	Ports             []Port            `yaml:"ports,omitempty" json:"ports,omitempty"`
	ActivePort        *Port             `yaml:"active_port,omitempty" json:"active_port,omitempty"`
	Formats           []FormatInfo      `yaml:"formats,omitempty" json:"formats,omitempty"`
}

// Kind implements Entity.
func (Sink) Kind() Kind { return KindSink }

// Index implements Entity.
func (s Sink) Index() uint32 { return s.ID }

// Source is an input device, including the monitor source of every sink.
type Source struct {
	ID                uint32            `yaml:"index" json:"index"`
	Name              string            `yaml:"name" json:"name"`
	Description       *string           `yaml:"description,omitempty" json:"description,omitempty"`
	SampleSpec        SampleSpec        `yaml:"sample_spec" json:"sample_spec"`
	ChannelMap        []ChannelPosition `yaml:"channel_map,omitempty" json:"channel_map,omitempty"`
	OwnerModule       *uint32           `yaml:"owner_module,omitempty" json:"owner_module,omitempty"`
	Volume            ChannelVolumes    `yaml:"volume,omitempty" json:"volume,omitempty"`
	Mute              bool              `yaml:"mute" json:"mute"`
	MonitorOfSink     *uint32           `yaml:"monitor_of_sink,omitempty" json:"monitor_of_sink,omitempty"`
	MonitorOfSinkName *string           `yaml:"monitor_of_sink_name,omitempty" json:"monitor_of_sink_name,omitempty"`
	Latency           time.Duration     `yaml:"latency" json:"latency"`
	Driver            *string           `yaml:"driver,omitempty" json:"driver,omitempty"`
	Flags             uint32            `yaml:"flags" json:"flags"`
	Properties        Proplist          `yaml:"properties,omitempty" json:"properties,omitempty"`
	ConfiguredLatency time.Duration     `yaml:"configured_latency" json:"configured_latency"`
	BaseVolume        Volume            `yaml:"base_volume" json:"base_volume"`
	State             DeviceState       `yaml:"state" json:"state"`
	VolumeSteps       uint32            `yaml:"volume_steps" json:"volume_steps"`
	Card              *uint32           `yaml:"card,omitempty" json:"card,omitempty"`
	Ports             []Port            `yaml:"ports,omitempty" json:"ports,omitempty"`
	ActivePort        *Port             `yaml:"active_port,omitempty" json:"active_port,omitempty"`
	Formats           []FormatInfo      `yaml:"formats,omitempty" json:"formats,omitempty"`
}

// Kind implements Entity.
func (Source) Kind() Kind { return KindSource }

// Index implements Entity.
func (s Source) Index() uint32 { return s.ID }

// SinkInput is a playback stream connected to a sink.
type SinkInput struct {
	ID             uint32            `yaml:"index" json:"index"`
	Name           string            `yaml:"name" json:"name"`
	OwnerModule    *uint32           `yaml:"owner_module,omitempty" json:"owner_module,omitempty"`
	Client         *uint32           `yaml:"client,omitempty" json:"client,omitempty"`
	Sink           uint32            `yaml:"sink" json:"sink"`
	SampleSpec     SampleSpec        `yaml:"sample_spec" json:"sample_spec"`
	ChannelMap     []ChannelPosition `yaml:"channel_map,omitempty" json:"channel_map,omitempty"`
	Volume         ChannelVolumes    `yaml:"volume,omitempty" json:"volume,omitempty"`
	BufferLatency  time.Duration     `yaml:"buffer_latency" json:"buffer_latency"`
	SinkLatency    time.Duration     `yaml:"sink_latency" json:"sink_latency"`
	ResampleMethod *string           `yaml:"resample_method,omitempty" json:"resample_method,omitempty"`
	Driver         *string           `yaml:"driver,omitempty" json:"driver,omitempty"`
	Mute           bool              `yaml:"mute" json:"mute"`
	Properties     Proplist          `yaml:"properties,omitempty" json:"properties,omitempty"`
	Corked         bool              `yaml:"corked" json:"corked"`
	HasVolume      bool              `yaml:"has_volume" json:"has_volume"`
	VolumeWritable bool              `yaml:"volume_writable" json:"volume_writable"`
	Format         FormatInfo        `yaml:"format" json:"format"`
}

// Kind implements Entity.
func (SinkInput) Kind() Kind { return KindSinkInput }

// Index implements Entity.
func (s SinkInput) Index() uint32 { return s.ID }

// SourceOutput is a record stream connected to a source.
type SourceOutput struct {
	ID             uint32            `yaml:"index" json:"index"`
	Name           string            `yaml:"name" json:"name"`
	OwnerModule    *uint32           `yaml:"owner_module,omitempty" json:"owner_module,omitempty"`
	Client         *uint32           `yaml:"client,omitempty" json:"client,omitempty"`
	Source         uint32            `yaml:"source" json:"source"`
	SampleSpec     SampleSpec        `yaml:"sample_spec" json:"sample_spec"`
	ChannelMap     []ChannelPosition `yaml:"channel_map,omitempty" json:"channel_map,omitempty"`
	Volume         ChannelVolumes    `yaml:"volume,omitempty" json:"volume,omitempty"`
	BufferLatency  time.Duration     `yaml:"buffer_latency" json:"buffer_latency"`
	SourceLatency  time.Duration     `yaml:"source_latency" json:"source_latency"`
	ResampleMethod *string           `yaml:"resample_method,omitempty" json:"resample_method,omitempty"`
	Driver         *string           `yaml:"driver,omitempty" json:"driver,omitempty"`
	Mute           bool              `yaml:"mute" json:"mute"`
	Properties     Proplist          `yaml:"properties,omitempty" json:"properties,omitempty"`
	Corked         bool              `yaml:"corked" json:"corked"`
	HasVolume      bool              `yaml:"has_volume" json:"has_volume"`
	VolumeWritable bool              `yaml:"volume_writable" json:"volume_writable"`
	Format         FormatInfo        `yaml:"format" json:"format"`
}

// Kind implements Entity.
func (SourceOutput) Kind() Kind { return KindSourceOutput }

// Index implements Entity.
func (s SourceOutput) Index() uint32 { return s.ID }

// Ensure the records implement Entity.
var (
	_ Entity = Sink{}
	_ Entity = Source{}
	_ Entity = SinkInput{}
	_ Entity = SourceOutput{}
)
