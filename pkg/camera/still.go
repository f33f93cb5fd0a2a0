package camera

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"log/slog"
	"os/exec"
	"strconv"
	"strings"
	"time"
)

// Still captures through the Raspberry Pi camera stack by running
// rpicam-still with JPEG output on stdout.
type Still struct {
	cfg     Config
	command string
	logger  *slog.Logger
}

// NewStill creates a Still capturer. The binary is resolved now so that a
// missing camera stack fails at startup.
func NewStill(cfg Config) (*Still, error) {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	command := cfg.StillCommand
	if command == "" {
		for _, name := range stillCommands {
			if _, err := lookPath(name); err == nil {
				command = name
				break
			}
		}
	}
	if command == "" {
		return nil, fmt.Errorf("%w: none of %s found", ErrNotOpened, strings.Join(stillCommands, ", "))
	}

	return &Still{
		cfg:     cfg,
		command: command,
		logger:  cfg.Logger.With("component", "camera.still"),
	}, nil
}

// Name returns the backend name.
func (s *Still) Name() string {
	return "still:" + s.command
}

// Args returns the command line used for a capture.
func (s *Still) Args() []string {
	c := s.cfg
	args := []string{
		"-n",
		"--immediate",
		"-t", "1",
		"--width", strconv.Itoa(c.Width),
		"--height", strconv.Itoa(c.Height),
		"-q", strconv.Itoa(c.Quality),
		"-e", "jpg",
	}

	if c.ExposureMode != "" && c.ExposureMode != "normal" {
		args = append(args, "--exposure", c.ExposureMode)
	}
	if c.ExposureValue != 0 {
		args = append(args, "--ev", strconv.FormatFloat(c.ExposureValue, 'f', -1, 64))
	}
	if c.Brightness != 0 {
		args = append(args, "--brightness", strconv.FormatFloat(c.Brightness, 'f', -1, 64))
	}
	if c.ZoomLevel > 1.0 {
		size := 1.0 / c.ZoomLevel
		off := (1.0 - size) / 2
		args = append(args, "--roi", fmt.Sprintf("%.4f,%.4f,%.4f,%.4f", off, off, size, size))
	}
	if c.AfMode != "" {
		args = append(args, "--autofocus-mode", c.AfMode)
	}

	return append(args, "-o", "-")
}

// Capture runs one still capture.
func (s *Still) Capture(ctx context.Context) (*Frame, error) {
	if s.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.Timeout)
		defer cancel()
	}

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, s.command, s.Args()...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	start := time.Now()
	if err := cmd.Run(); err != nil {
		msg := strings.TrimSpace(stderr.String())
		if msg == "" {
			return nil, fmt.Errorf("camera: %s: %w", s.command, err)
		}
		return nil, fmt.Errorf("camera: %s: %w: %s", s.command, err, msg)
	}

	if stdout.Len() == 0 {
		return nil, ErrEmptyFrame
	}

	frame := &Frame{
		Data:       stdout.Bytes(),
		CapturedAt: time.Now(),
	}
	if cfg, _, err := image.DecodeConfig(bytes.NewReader(frame.Data)); err == nil {
		frame.Width, frame.Height = cfg.Width, cfg.Height
	}

	s.logger.Debug("frame captured",
		"bytes", len(frame.Data),
		"width", frame.Width,
		"height", frame.Height,
		"elapsed", time.Since(start),
	)

	return frame, nil
}

// Close is a no-op; each capture owns its process.
func (s *Still) Close() error {
	return nil
}

// Verify Still implements Capturer at compile time.
var _ Capturer = (*Still)(nil)
