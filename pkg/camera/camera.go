package camera

import (
	"context"
	"errors"
	"fmt"
	_ "image/jpeg"
	"log/slog"
	"os"
	"os/exec"
	"strings"
	"time"
)

var (
	// ErrNotOpened is returned when the capture device cannot be opened.
	ErrNotOpened = errors.New("camera: cannot open device")

	// ErrEmptyFrame is returned when the device delivers no image data.
	ErrEmptyFrame = errors.New("camera: empty frame")

	// ErrUnsupported is returned when a backend is not compiled in.
	ErrUnsupported = errors.New("camera: backend not supported in this build")
)

// Frame is one captured still, JPEG encoded.
type Frame struct {
	Data       []byte
	Width      int
	Height     int
	CapturedAt time.Time
}

// Empty reports whether the frame carries no image data.
func (f *Frame) Empty() bool {
	return f == nil || len(f.Data) == 0
}

// Capturer takes single still frames.
type Capturer interface {
	// Capture blocks until a frame is available or ctx is done.
	Capture(ctx context.Context) (*Frame, error)

	// Name identifies the backend in logs.
	Name() string

	// Close releases the device.
	Close() error
}

// Probe inputs, replaced in tests.
var (
	lookPath  = exec.LookPath
	modelPath = "/proc/device-tree/model"
)

// stillCommands are tried in order when no StillCommand is configured.
var stillCommands = []string{"rpicam-still", "libcamera-still"}

// New creates a Capturer. With BackendAuto the host is probed once.
func New(cfg Config) (Capturer, error) {
	if errs := cfg.Validate(); len(errs) > 0 {
		return nil, fmt.Errorf("camera: invalid config: %s", strings.Join(errs, "; "))
	}

	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	backend := cfg.Backend
	if backend == BackendAuto || backend == "" {
		backend = detectBackend(cfg)
	}

	cfg.Logger.Info("creating camera",
		"component", "camera",
		"backend", backend,
		"width", cfg.Width,
		"height", cfg.Height,
	)

	switch backend {
	case BackendStill:
		return NewStill(cfg)
	case BackendWebcam:
		return newWebcam(cfg)
	default:
		return nil, fmt.Errorf("camera: unsupported backend: %s", backend)
	}
}

// detectBackend picks Still on a Raspberry Pi or when a still binary is on PATH.
func detectBackend(cfg Config) Backend {
	if data, err := os.ReadFile(modelPath); err == nil && strings.Contains(string(data), "Raspberry Pi") {
		return BackendStill
	}
	if cfg.StillCommand != "" {
		if _, err := lookPath(cfg.StillCommand); err == nil {
			return BackendStill
		}
	}
	for _, name := range stillCommands {
		if _, err := lookPath(name); err == nil {
			return BackendStill
		}
	}
	return BackendWebcam
}

// sleepCtx waits for d or until ctx is done.
func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
