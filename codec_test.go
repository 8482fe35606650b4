package pulsewatch

import (
	"strings"
	"testing"
	"time"
)

func TestJSONCodec_Unmarshal(t *testing.T) {
	var cfg Config
	data := []byte(`{"server": "unix:/run/pulse/native", "list_capacity": 128}`)

	if err := (JSONCodec{}).Unmarshal(data, &cfg); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}
	if cfg.Server != "unix:/run/pulse/native" {
		t.Errorf("expected server to be decoded, got %q", cfg.Server)
	}
	if cfg.ListCapacity != 128 {
		t.Errorf("expected list capacity 128, got %d", cfg.ListCapacity)
	}
}

func TestJSONCodec_UnmarshalInvalid(t *testing.T) {
	var cfg Config
	if err := (JSONCodec{}).Unmarshal([]byte(`{not valid json}`), &cfg); err == nil {
		t.Error("expected error for invalid JSON")
	}
}

func TestYAMLCodec_Unmarshal(t *testing.T) {
	var cfg Config
	data := []byte("client_name: mixer\nstartup_timeout: 2s\n")

	if err := (YAMLCodec{}).Unmarshal(data, &cfg); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}
	if cfg.ClientName != "mixer" {
		t.Errorf("expected client name 'mixer', got %q", cfg.ClientName)
	}
	if cfg.StartupTimeout != 2*time.Second {
		t.Errorf("expected 2s timeout, got %v", cfg.StartupTimeout)
	}
}

func TestCodec_MarshalEntity(t *testing.T) {
	desc := "Built-in Audio"
	sink := Sink{ID: 3, Name: "alsa_output", Description: &desc}

	for _, codec := range []Codec{JSONCodec{}, YAMLCodec{}} {
		data, err := codec.Marshal(sink)
		if err != nil {
			t.Fatalf("%s: Marshal failed: %v", codec.ContentType(), err)
		}
		if !strings.Contains(string(data), "alsa_output") {
			t.Errorf("%s: expected name in output, got %s", codec.ContentType(), data)
		}

		var back Sink
		if err := codec.Unmarshal(data, &back); err != nil {
			t.Fatalf("%s: Unmarshal failed: %v", codec.ContentType(), err)
		}
		if back.ID != 3 || back.Description == nil || *back.Description != desc {
			t.Errorf("%s: unexpected round trip: %+v", codec.ContentType(), back)
		}
	}
}

func TestCodec_ContentType(t *testing.T) {
	if ct := (JSONCodec{}).ContentType(); ct != "application/json" {
		t.Errorf("expected 'application/json', got %q", ct)
	}
	if ct := (YAMLCodec{}).ContentType(); ct != "application/x-yaml" {
		t.Errorf("expected 'application/x-yaml', got %q", ct)
	}
}

func TestCodecFor(t *testing.T) {
	tests := []struct {
		path string
		want string
	}{
		{"server.json", "application/json"},
		{"SERVER.JSON", "application/json"},
		{"server.yaml", "application/x-yaml"},
		{"server.yml", "application/x-yaml"},
		{"server", "application/x-yaml"},
	}
	for _, tt := range tests {
		if got := CodecFor(tt.path).ContentType(); got != tt.want {
			t.Errorf("CodecFor(%q): expected %q, got %q", tt.path, tt.want, got)
		}
	}
}
