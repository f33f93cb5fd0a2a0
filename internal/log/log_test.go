package log

import (
	"bytes"
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
		{"error", slog.LevelError},
		{"", slog.LevelInfo},
		{"verbose", slog.LevelInfo},
	}
	for _, tt := range tests {
		if got := ParseLevel(tt.in); got != tt.want {
			t.Errorf("ParseLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestNewTeesToFile(t *testing.T) {
	t.Setenv("GO_ENV", "")

	var file bytes.Buffer
	l := New(Options{Level: "debug", File: &file})
	l.Debug("step finished", "step", "capture")

	out := file.String()
	if !strings.Contains(out, "step finished") || !strings.Contains(out, "step=capture") {
		t.Errorf("file output = %q", out)
	}
	if strings.Contains(out, "\x1b[") {
		t.Errorf("file output contains color codes: %q", out)
	}
}

func TestNewProductionJSON(t *testing.T) {
	t.Setenv("GO_ENV", "production")

	var file bytes.Buffer
	New(Options{File: &file}).Info("ready", "component", "scout")

	if !strings.HasPrefix(file.String(), "{") || !strings.Contains(file.String(), `"component":"scout"`) {
		t.Errorf("expected JSON line, got %q", file.String())
	}
}

func TestLevelFilters(t *testing.T) {
	t.Setenv("GO_ENV", "")

	var file bytes.Buffer
	l := New(Options{Level: "warn", File: &file})
	l.Info("hidden")
	l.Warn("shown")

	if strings.Contains(file.String(), "hidden") || !strings.Contains(file.String(), "shown") {
		t.Errorf("level filtering broken: %q", file.String())
	}
}
