package grid

import (
	"image/color"
	"log/slog"
)

// Compositing selects where the bars go relative to the photo.
type Compositing int

const (
	// Pad adds the bars outside the photo, growing the canvas by LeftWidth x TopHeight.
	Pad Compositing = iota

	// Overlay paints the bars over the resized photo, keeping its size.
	// This matches images annotated by earlier versions of the tool.
	Overlay
)

// String returns the flag name of the compositing mode.
func (c Compositing) String() string {
	if c == Overlay {
		return "overlay"
	}
	return "pad"
}

// ParseCompositing converts a flag value to a Compositing mode.
func ParseCompositing(s string) (Compositing, bool) {
	switch s {
	case "pad", "":
		return Pad, true
	case "overlay":
		return Overlay, true
	}
	return Pad, false
}

// LegacyTopLabelOffset is the horizontal nudge that Overlay images were produced with.
const LegacyTopLabelOffset = 20

// Config holds annotator settings.
type Config struct {
	Width     int // Target photo width; height follows the aspect ratio
	TopHeight int // Height of the lettered bar
	LeftWidth int // Width of the numbered bar

	BarColor  color.Color
	TextColor color.Color

	FontPath string  // TrueType/OpenType font to try first
	FontSize float64 // Points at 72 DPI

	// TopLabelOffset shifts every top label horizontally, in pixels.
	TopLabelOffset float64

	// TopLabelY is the vertical centre of the top labels.
	// Zero picks TopHeight/2 for Pad and 10 for Overlay.
	TopLabelY float64

	Compositing Compositing

	Logger *slog.Logger
}

// Option is a functional option for configuring the annotator.
type Option func(*Config)

// WithWidth sets the target photo width.
func WithWidth(w int) Option {
	return func(c *Config) { c.Width = w }
}

// WithBars sets the top bar height and left bar width.
func WithBars(top, left int) Option {
	return func(c *Config) {
		c.TopHeight = top
		c.LeftWidth = left
	}
}

// WithColors sets the bar fill and label colors.
func WithColors(bar, text color.Color) Option {
	return func(c *Config) {
		c.BarColor = bar
		c.TextColor = text
	}
}

// WithFont sets the font file and size.
func WithFont(path string, size float64) Option {
	return func(c *Config) {
		c.FontPath = path
		c.FontSize = size
	}
}

// WithTopLabelOffset sets the horizontal top label correction.
func WithTopLabelOffset(px float64) Option {
	return func(c *Config) { c.TopLabelOffset = px }
}

// WithCompositing sets the compositing mode.
// Overlay also switches the top label offset to the legacy value.
func WithCompositing(mode Compositing) Option {
	return func(c *Config) {
		c.Compositing = mode
		if mode == Overlay {
			c.TopLabelOffset = LegacyTopLabelOffset
		}
	}
}

// WithLogger sets the structured logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Config) { c.Logger = l }
}

// DefaultConfig returns the standard 800px grid with 50px blue bars.
func DefaultConfig() *Config {
	return &Config{
		Width:       800,
		TopHeight:   50,
		LeftWidth:   50,
		BarColor:    color.RGBA{0, 0, 255, 255},
		TextColor:   color.White,
		FontPath:    "resources/ArialBlack.ttf",
		FontSize:    40,
		Compositing: Pad,
		Logger:      slog.Default(),
	}
}

// Apply applies functional options to the config.
func (c *Config) Apply(opts ...Option) {
	for _, opt := range opts {
		opt(c)
	}
}

func (c *Config) topLabelY() float64 {
	if c.TopLabelY != 0 {
		return c.TopLabelY
	}
	if c.Compositing == Overlay {
		return 10
	}
	return float64(c.TopHeight) / 2
}
