package wizard

import (
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"github.com/infrasonar/ping-probe/internal/check"
	"github.com/infrasonar/ping-probe/internal/config"
)

func TestSplitLines(t *testing.T) {
	tests := []struct {
		in   string
		want []string
	}{
		{"", nil},
		{"  \n\n  ", nil},
		{"192.0.2.1", []string{"192.0.2.1"}},
		{"192.0.2.1\n example.org \n\n2001:db8::1\n", []string{"192.0.2.1", "example.org", "2001:db8::1"}},
	}
	for _, tt := range tests {
		if got := splitLines(tt.in); !reflect.DeepEqual(got, tt.want) {
			t.Errorf("splitLines(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestValidateRange(t *testing.T) {
	validate := validateRange(1, 9)

	for _, ok := range []string{"1", "5", "9", " 3 "} {
		if err := validate(ok); err != nil {
			t.Errorf("validateRange(1,9)(%q) = %v, want nil", ok, err)
		}
	}
	for _, bad := range []string{"0", "10", "-1", "five", ""} {
		if err := validate(bad); err == nil {
			t.Errorf("validateRange(1,9)(%q) = nil, want error", bad)
		}
	}
}

func TestValidateSeconds(t *testing.T) {
	validate := validateSeconds(10)

	if err := validate("10"); err != nil {
		t.Errorf("validateSeconds(10)(10) = %v, want nil", err)
	}
	if err := validate("9"); err == nil {
		t.Error("validateSeconds(10)(9) = nil, want error")
	}
	if err := validate("soon"); err == nil {
		t.Error("validateSeconds(10)(soon) = nil, want error")
	}
}

func TestWriteConfigRoundTrip(t *testing.T) {
	cfg := config.Default()
	cfg.Probe.Name = "edge-ping"
	cfg.Probe.CheckInterval = 30 * time.Second
	cfg.Assets = []config.AssetConfig{
		{ID: 1, Name: "gateway", Ping: check.Config{Address: "192.0.2.1", Count: 3}},
	}
	cfg.Hub.Enabled = true
	cfg.Hub.URL = "wss://hub.example.org/probe"

	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := New().writeConfig(cfg, path); err != nil {
		t.Fatalf("writeConfig() error = %v", err)
	}

	loaded, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load() of written config = %v", err)
	}
	if loaded.Probe.Name != "edge-ping" || loaded.Probe.CheckInterval != 30*time.Second {
		t.Errorf("probe = %+v, round trip lost settings", loaded.Probe)
	}
	if !reflect.DeepEqual(loaded.Assets, cfg.Assets) {
		t.Errorf("assets = %+v, want %+v", loaded.Assets, cfg.Assets)
	}
	if loaded.Hub.URL != cfg.Hub.URL {
		t.Errorf("hub url = %q, want %q", loaded.Hub.URL, cfg.Hub.URL)
	}
}
