package debug

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"
)

func TestTimerDisabled(t *testing.T) {
	var buf bytes.Buffer
	timer := NewTimer(false, slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})))
	timer.Track("resize")()

	if buf.Len() != 0 {
		t.Errorf("expected no output, got %q", buf.String())
	}

	var nilTimer *Timer
	nilTimer.Track("noop")()
}

func TestTimerEnabled(t *testing.T) {
	var buf bytes.Buffer
	timer := NewTimer(true, slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})))
	timer.Track("resize")()

	out := buf.String()
	if !strings.Contains(out, "step=resize") {
		t.Errorf("expected step name in output, got %q", out)
	}
	if !strings.Contains(out, "elapsed=") {
		t.Errorf("expected elapsed in output, got %q", out)
	}
}
