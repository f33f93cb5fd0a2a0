// Package camera captures still frames from a USB webcam or a Raspberry Pi
// camera module.
package camera

import (
	"log/slog"
	"time"
)

// Backend names a capture implementation.
type Backend string

const (
	// BackendAuto probes the host once and picks Still on a Pi, Webcam elsewhere.
	BackendAuto Backend = "auto"

	// BackendWebcam reads from a V4L2/AVFoundation device through OpenCV.
	BackendWebcam Backend = "webcam"

	// BackendStill shells out to rpicam-still (or libcamera-still).
	BackendStill Backend = "still"
)

// Config holds all camera configuration parameters.
type Config struct {
	Backend Backend `json:"backend"`

	// === Webcam ===
	Device int           `json:"device"` // OpenCV device index
	Warmup time.Duration `json:"warmup"` // Delay between opening the device and reading

	// === Resolution ===
	Width   int `json:"width"`   // Requested frame width in pixels
	Height  int `json:"height"`  // Requested frame height in pixels
	Quality int `json:"quality"` // JPEG quality 1-100

	// === Still (Pi camera module) ===
	// StillCommand overrides the binary used for the Still backend.
	StillCommand string `json:"still_command"`

	// Timeout bounds a single Still capture.
	Timeout time.Duration `json:"timeout"`

	// ExposureMode controls how the AE algorithm balances shutter/gain.
	// Values: "normal", "short", "long"
	ExposureMode string `json:"exposure_mode"`

	// ExposureValue is EV compensation in stops (-2.0 to +2.0).
	ExposureValue float64 `json:"exposure_value"`

	// Brightness adjustment (-1.0 to +1.0).
	Brightness float64 `json:"brightness"`

	// ZoomLevel is digital zoom factor (1.0 to 4.0), applied as a centred ROI.
	ZoomLevel float64 `json:"zoom_level"`

	// AfMode controls autofocus behavior.
	// Values: "manual", "auto", "continuous"
	AfMode string `json:"af_mode"`

	Logger *slog.Logger `json:"-"`
}

// Sensor limits shared by the supported Pi camera modules.
const (
	SensorMaxWidth  = 4608
	SensorMaxHeight = 2592
	SensorMaxZoom   = 4.0
)

// DefaultConfig returns the 1600x1200 capture used for grid analysis.
func DefaultConfig() Config {
	return Config{
		Backend: BackendAuto,
		Device:  0,
		Warmup:  2 * time.Second,

		Width:   1600,
		Height:  1200,
		Quality: 95,

		Timeout: 10 * time.Second,

		ExposureMode:  "normal",
		ExposureValue: 0.0,
		Brightness:    0.0,
		ZoomLevel:     1.0,
		AfMode:        "auto",
	}
}

// LegacyConfig returns the 640x480 webcam configuration used by earlier releases.
// Use this if higher resolution causes issues.
func LegacyConfig() Config {
	cfg := DefaultConfig()
	cfg.Width = 640
	cfg.Height = 480
	return cfg
}

// Validate checks if the config values are within valid ranges.
// Returns a list of validation errors, or nil if valid.
func (c *Config) Validate() []string {
	var errors []string

	switch c.Backend {
	case BackendAuto, BackendWebcam, BackendStill, "":
	default:
		errors = append(errors, "backend must be auto, webcam, or still")
	}

	if c.Device < 0 {
		errors = append(errors, "device must not be negative")
	}
	if c.Warmup < 0 {
		errors = append(errors, "warmup must not be negative")
	}

	// Resolution
	if c.Width < 160 || c.Width > SensorMaxWidth {
		errors = append(errors, "width must be between 160 and 4608")
	}
	if c.Height < 120 || c.Height > SensorMaxHeight {
		errors = append(errors, "height must be between 120 and 2592")
	}
	if c.Quality < 1 || c.Quality > 100 {
		errors = append(errors, "quality must be between 1 and 100")
	}

	validExposureModes := map[string]bool{"normal": true, "short": true, "long": true}
	if c.ExposureMode != "" && !validExposureModes[c.ExposureMode] {
		errors = append(errors, "exposure_mode must be normal, short, or long")
	}

	if c.ExposureValue < -2.0 || c.ExposureValue > 2.0 {
		errors = append(errors, "exposure_value must be between -2.0 and 2.0")
	}
	if c.Brightness < -1.0 || c.Brightness > 1.0 {
		errors = append(errors, "brightness must be between -1.0 and 1.0")
	}
	if c.ZoomLevel < 1.0 || c.ZoomLevel > SensorMaxZoom {
		errors = append(errors, "zoom_level must be between 1.0 and 4.0")
	}

	validAfModes := map[string]bool{"manual": true, "auto": true, "continuous": true}
	if c.AfMode != "" && !validAfModes[c.AfMode] {
		errors = append(errors, "af_mode must be manual, auto, or continuous")
	}

	return errors
}
