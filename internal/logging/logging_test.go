package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"info", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
		{"ERROR", slog.LevelError},
		{"", slog.LevelInfo},
		{"bogus", slog.LevelInfo},
	}
	for _, tt := range tests {
		if got := parseLevel(tt.in); got != tt.want {
			t.Errorf("parseLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestNewLoggerJSON(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLoggerWithWriter("info", "json", &buf)

	logger.Info("check ok", KeyAsset, "host-a", KeyDropped, 0)

	var record map[string]any
	if err := json.Unmarshal(buf.Bytes(), &record); err != nil {
		t.Fatalf("output is not JSON: %v", err)
	}
	if record["msg"] != "check ok" {
		t.Errorf("msg = %v, want %q", record["msg"], "check ok")
	}
	if record[KeyAsset] != "host-a" {
		t.Errorf("%s = %v, want host-a", KeyAsset, record[KeyAsset])
	}
}

func TestNewLoggerText(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLoggerWithWriter("info", "text", &buf)

	logger.Info("check ok", KeyAsset, "host-a")

	got := buf.String()
	if !strings.Contains(got, "msg=\"check ok\"") || !strings.Contains(got, "asset=host-a") {
		t.Errorf("unexpected text output: %s", got)
	}
}

func TestNewLoggerAutoFallsBackToJSON(t *testing.T) {
	// A bytes.Buffer is not a terminal.
	var buf bytes.Buffer
	logger := NewLoggerWithWriter("info", "auto", &buf)

	logger.Info("check ok")

	var record map[string]any
	if err := json.Unmarshal(buf.Bytes(), &record); err != nil {
		t.Errorf("auto format on a non-terminal must emit JSON, got: %s", buf.String())
	}
}

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLoggerWithWriter("warn", "json", &buf)

	logger.Debug("hidden")
	logger.Info("hidden")
	logger.Warn("shown")

	lines := strings.Count(strings.TrimSpace(buf.String()), "\n") + 1
	if buf.Len() == 0 || lines != 1 {
		t.Errorf("want exactly one record, got: %s", buf.String())
	}
}

func TestNopLogger(t *testing.T) {
	logger := NopLogger()
	if logger == nil {
		t.Fatal("NopLogger() = nil")
	}
	logger.Error("discarded")
}
