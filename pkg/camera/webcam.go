//go:build !nocv

package camera

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"time"

	"gocv.io/x/gocv"
)

// Webcam captures from a local video device through OpenCV. The device is
// opened for every capture and released right after, so other programs can
// use the camera between iterations.
type Webcam struct {
	cfg    Config
	logger *slog.Logger
}

func newWebcam(cfg Config) (Capturer, error) {
	return NewWebcam(cfg), nil
}

// NewWebcam creates a Webcam capturer.
func NewWebcam(cfg Config) *Webcam {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Webcam{
		cfg:    cfg,
		logger: cfg.Logger.With("component", "camera.webcam"),
	}
}

// Name returns the backend name.
func (w *Webcam) Name() string {
	return fmt.Sprintf("webcam:%d", w.cfg.Device)
}

// Capture opens the device, lets exposure settle, reads one frame and
// returns it JPEG encoded.
func (w *Webcam) Capture(ctx context.Context) (*Frame, error) {
	vc, err := gocv.OpenVideoCapture(w.cfg.Device)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNotOpened, err)
	}
	defer vc.Close()

	if !vc.IsOpened() {
		return nil, ErrNotOpened
	}

	vc.Set(gocv.VideoCaptureFrameWidth, float64(w.cfg.Width))
	vc.Set(gocv.VideoCaptureFrameHeight, float64(w.cfg.Height))

	if err := sleepCtx(ctx, w.cfg.Warmup); err != nil {
		return nil, err
	}

	mat := gocv.NewMat()
	defer mat.Close()

	if ok := vc.Read(&mat); !ok || mat.Empty() {
		return nil, ErrEmptyFrame
	}

	buf, err := gocv.IMEncodeWithParams(gocv.JPEGFileExt, mat, []int{int(gocv.IMWriteJpegQuality), w.cfg.Quality})
	if err != nil {
		return nil, fmt.Errorf("camera: encode frame: %w", err)
	}
	defer buf.Close()

	frame := &Frame{
		Data:       bytes.Clone(buf.GetBytes()),
		Width:      mat.Cols(),
		Height:     mat.Rows(),
		CapturedAt: time.Now(),
	}

	w.logger.Debug("frame captured",
		"bytes", len(frame.Data),
		"width", frame.Width,
		"height", frame.Height,
	)

	return frame, nil
}

// Close is a no-op; the device is released after every capture.
func (w *Webcam) Close() error {
	return nil
}

// Verify Webcam implements Capturer at compile time.
var _ Capturer = (*Webcam)(nil)
