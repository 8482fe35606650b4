package pulseaudio

import (
	"time"

	"github.com/jfreymuth/pulse/proto"
	"github.com/zoobzio/pulsewatch"
)

// undefined marks an absent index in protocol replies.
const undefined = 0xFFFFFFFF

func optionalIndex(v uint32) *uint32 {
	if v == undefined {
		return nil
	}
	return &v
}

func optionalText(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func micros(us proto.Microseconds) time.Duration {
	return time.Duration(us) * time.Microsecond
}

func sampleSpec(s proto.SampleSpec) pulsewatch.SampleSpec {
	return pulsewatch.SampleSpec{
		Format:   pulsewatch.SampleFormat(s.Format),
		Channels: uint8(s.Channels),
		Rate:     s.Rate,
	}
}

func channelMap(m proto.ChannelMap) []pulsewatch.ChannelPosition {
	if len(m) == 0 {
		return nil
	}
	out := make([]pulsewatch.ChannelPosition, len(m))
	for i, p := range m {
		out[i] = pulsewatch.ChannelPosition(p)
	}
	return out
}

func volumes(cv proto.ChannelVolumes) pulsewatch.ChannelVolumes {
	if len(cv) == 0 {
		return nil
	}
	out := make(pulsewatch.ChannelVolumes, len(cv))
	for i, v := range cv {
		out[i] = pulsewatch.Volume(v)
	}
	return out
}

func proplist(p proto.PropList) pulsewatch.Proplist {
	if len(p) == 0 {
		return nil
	}
	out := make(pulsewatch.Proplist, len(p))
	for k, v := range p {
		out[k] = v.String()
	}
	return out
}

func formatInfo(f proto.FormatInfo) pulsewatch.FormatInfo {
	return pulsewatch.FormatInfo{
		Encoding:   uint8(f.Encoding),
		Properties: proplist(f.Properties),
	}
}

func formats(fs []proto.FormatInfo) []pulsewatch.FormatInfo {
	if len(fs) == 0 {
		return nil
	}
	out := make([]pulsewatch.FormatInfo, len(fs))
	for i, f := range fs {
		out[i] = formatInfo(f)
	}
	return out
}

func port(name, description string, priority, available uint32) pulsewatch.Port {
	return pulsewatch.Port{
		Name:        name,
		Description: optionalText(description),
		Priority:    priority,
		Available:   pulsewatch.PortAvailability(available),
	}
}

// activePort returns a copy of the port called name, or nil.
func activePort(ports []pulsewatch.Port, name string) *pulsewatch.Port {
	for _, p := range ports {
		if p.Name == name {
			return &p
		}
	}
	return nil
}

func deviceState(s uint32) pulsewatch.DeviceState {
	return pulsewatch.DeviceState(int32(s))
}

func sinkFromReply(r *proto.GetSinkInfoReply) pulsewatch.Sink {
	var ports []pulsewatch.Port
	for _, p := range r.Ports {
		ports = append(ports, port(p.Name, p.Description, p.Priority, p.Available))
	}
	return pulsewatch.Sink{
		ID:                r.SinkIndex,
		Name:              r.SinkName,
		Description:       optionalText(r.Device),
		SampleSpec:        sampleSpec(r.SampleSpec),
		ChannelMap:        channelMap(r.ChannelMap),
		OwnerModule:       optionalIndex(r.ModuleIndex),
		Volume:            volumes(r.ChannelVolumes),
		Mute:              r.Mute,
		MonitorSource:     r.MonitorSourceIndex,
		MonitorSourceName: optionalText(r.MonitorSourceName),
		Latency:           micros(r.Latency),
		Driver:            optionalText(r.Driver),
		Flags:             r.Flags,
		Properties:        proplist(r.Properties),
		ConfiguredLatency: micros(r.RequestedLatency),
		BaseVolume:        pulsewatch.Volume(r.BaseVolume),
		State:             deviceState(r.State),
		VolumeSteps:       r.NumVolumeSteps,
		Card:              optionalIndex(r.CardIndex),
		Ports:             ports,
		ActivePort:        activePort(ports, r.ActivePortName),
		Formats:           formats(r.Formats),
	}
}

func sourceFromReply(r *proto.GetSourceInfoReply) pulsewatch.Source {
	var ports []pulsewatch.Port
	for _, p := range r.Ports {
		ports = append(ports, port(p.Name, p.Description, p.Priority, p.Available))
	}
	return pulsewatch.Source{
		ID:                r.SourceIndex,
		Name:              r.SourceName,
		Description:       optionalText(r.Device),
		SampleSpec:        sampleSpec(r.SampleSpec),
		ChannelMap:        channelMap(r.ChannelMap),
		OwnerModule:       optionalIndex(r.ModuleIndex),
		Volume:            volumes(r.ChannelVolumes),
		Mute:              r.Mute,
		MonitorOfSink:     optionalIndex(r.MonitorSourceIndex),
		MonitorOfSinkName: optionalText(r.MonitorSourceName),
		Latency:           micros(r.Latency),
		Driver:            optionalText(r.Driver),
		Flags:             r.Flags,
		Properties:        proplist(r.Properties),
		ConfiguredLatency: micros(r.RequestedLatency),
		BaseVolume:        pulsewatch.Volume(r.BaseVolume),
		State:             deviceState(r.State),
		VolumeSteps:       r.NumVolumeSteps,
		Card:              optionalIndex(r.CardIndex),
		Ports:             ports,
		ActivePort:        activePort(ports, r.ActivePortName),
		Formats:           formats(r.Formats),
	}
}

func sinkInputFromReply(r *proto.GetSinkInputInfoReply) pulsewatch.SinkInput {
	return pulsewatch.SinkInput{
		ID:             r.SinkInputIndex,
		Name:           r.MediaName,
		OwnerModule:    optionalIndex(r.ModuleIndex),
		Client:         optionalIndex(r.ClientIndex),
		Sink:           r.SinkIndex,
		SampleSpec:     sampleSpec(r.SampleSpec),
		ChannelMap:     channelMap(r.ChannelMap),
		Volume:         volumes(r.ChannelVolumes),
		BufferLatency:  micros(r.SinkInputLatency),
		SinkLatency:    micros(r.SinkLatency),
		ResampleMethod: optionalText(r.ResampleMethod),
		Driver:         optionalText(r.Driver),
		Mute:           r.Muted,
		Properties:     proplist(r.Properties),
		Corked:         r.Corked,
		HasVolume:      r.VolumeReadable,
		VolumeWritable: r.VolumeWritable,
		Format:         formatInfo(r.FormatInfo),
	}
}

func sourceOutputFromReply(r *proto.GetSourceOutputInfoReply) pulsewatch.SourceOutput {
	return pulsewatch.SourceOutput{
		ID:             r.SourceOutpuIndex,
		Name:           r.MediaName,
		OwnerModule:    optionalIndex(r.ModuleIndex),
		Client:         optionalIndex(r.ClientIndex),
		Source:         r.SourceIndex,
		SampleSpec:     sampleSpec(r.SampleSpec),
		ChannelMap:     channelMap(r.ChannelMap),
		Volume:         volumes(r.ChannelVolumes),
		BufferLatency:  micros(r.SourceOutpuLatency),
		SourceLatency:  micros(r.SourceLatency),
		ResampleMethod: optionalText(r.ResampleMethod),
		Driver:         optionalText(r.Driver),
		Mute:           r.Muted,
		Properties:     proplist(r.Properties),
		Corked:         r.Corked,
		HasVolume:      r.VolumeReadable,
		VolumeWritable: r.VolumeWritable,
		Format:         formatInfo(r.FormatInfo),
	}
}
