package pulsewatch

import "testing"

func TestState_String(t *testing.T) {
	tests := []struct {
		state State
		want  string
	}{
		{StateIdle, "idle"},
		{StateConnecting, "connecting"},
		{StateSubscribing, "subscribing"},
		{StateStreaming, "streaming"},
		{StateFailed, "failed"},
		{StateStopped, "stopped"},
		{State(999), "unknown"},
	}
	for _, tt := range tests {
		if s := tt.state.String(); s != tt.want {
			t.Errorf("expected %q, got %q", tt.want, s)
		}
	}
}

func TestState_Values(t *testing.T) {
	if StateIdle != 0 {
		t.Errorf("expected StateIdle=0, got %d", StateIdle)
	}
	if StateStopped != 5 {
		t.Errorf("expected StateStopped=5, got %d", StateStopped)
	}
}

func TestState_Terminal(t *testing.T) {
	for _, s := range []State{StateIdle, StateConnecting, StateSubscribing, StateStreaming} {
		if s.Terminal() {
			t.Errorf("%s should not be terminal", s)
		}
	}
	if !StateFailed.Terminal() || !StateStopped.Terminal() {
		t.Error("failed and stopped should be terminal")
	}
}

func TestConnState_String(t *testing.T) {
	if s := ConnSettingName.String(); s != "setting-name" {
		t.Errorf("expected 'setting-name', got %q", s)
	}
	if s := ConnState(42).String(); s != "unknown" {
		t.Errorf("expected 'unknown', got %q", s)
	}
	if !ConnTerminated.Terminal() || ConnReady.Terminal() {
		t.Error("unexpected terminal classification")
	}
}
