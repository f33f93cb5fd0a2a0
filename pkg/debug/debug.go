// Package debug provides opt-in step timing.
package debug

import (
	"log/slog"
	"time"
)

// Timer logs how long named steps take when enabled.
// The zero value is disabled and safe to use.
type Timer struct {
	Enabled bool
	Logger  *slog.Logger
}

// NewTimer creates a timer that logs at debug level through logger.
func NewTimer(enabled bool, logger *slog.Logger) *Timer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Timer{Enabled: enabled, Logger: logger}
}

// Track starts timing a step and returns the function that finishes it.
//
//	defer timer.Track("annotate")()
func (t *Timer) Track(name string) func() {
	if t == nil || !t.Enabled {
		return func() {}
	}
	start := time.Now()
	t.Logger.Debug("started", "step", name)
	return func() {
		t.Logger.Debug("finished", "step", name, "elapsed", time.Since(start))
	}
}
