// Package analysis turns a saved frame and a prompt into a model answer:
// it annotates the frame with the grid, keeps a copy on disk and sends both
// to a vision provider.
package analysis

import (
	"context"
	"errors"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"log/slog"
	"os"
	"runtime/debug"

	_ "golang.org/x/image/webp"

	gdebug "github.com/teslashibe/gridscout/pkg/debug"
	"github.com/teslashibe/gridscout/pkg/grid"
	"github.com/teslashibe/gridscout/pkg/inference"
	"github.com/teslashibe/gridscout/pkg/storage"
)

// ErrPanic wraps a recovered panic.
var ErrPanic = errors.New("analysis: panic")

// Result is the outcome of one analysis. Exactly one of Text or Err is meaningful.
type Result struct {
	Text          string
	Err           error
	AnnotatedPath string // Empty if the annotated image was not saved
}

// OK reports whether the model answered.
func (r Result) OK() bool {
	return r.Err == nil
}

// String renders the answer, or "Error: <msg>" on failure.
func (r Result) String() string {
	if r.Err != nil {
		return "Error: " + r.Err.Error()
	}
	return r.Text
}

// Config holds analyzer settings.
type Config struct {
	JPEGQuality int // Quality of the saved annotated image
	MaxTokens   int // Response budget; zero uses the provider default
	Timer       *gdebug.Timer
	Logger      *slog.Logger
}

// Option is a functional option for configuring the analyzer.
type Option func(*Config)

// WithJPEGQuality sets the quality of the saved annotated image.
func WithJPEGQuality(q int) Option {
	return func(c *Config) { c.JPEGQuality = q }
}

// WithMaxTokens sets the response budget.
func WithMaxTokens(n int) Option {
	return func(c *Config) { c.MaxTokens = n }
}

// WithTimer enables step timing.
func WithTimer(t *gdebug.Timer) Option {
	return func(c *Config) { c.Timer = t }
}

// WithLogger sets the structured logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Config) { c.Logger = l }
}

// DefaultConfig returns q85 JPEGs and a 300 token budget.
func DefaultConfig() *Config {
	return &Config{
		JPEGQuality: inference.DefaultJPEGQuality,
		MaxTokens:   300,
		Logger:      slog.Default(),
	}
}

// Analyzer annotates frames and queries a vision provider.
type Analyzer struct {
	provider  inference.Provider
	annotator *grid.Annotator
	store     *storage.Store
	config    *Config
	logger    *slog.Logger
}

// New creates an analyzer.
func New(provider inference.Provider, annotator *grid.Annotator, store *storage.Store, opts ...Option) *Analyzer {
	cfg := DefaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}
	return &Analyzer{
		provider:  provider,
		annotator: annotator,
		store:     store,
		config:    cfg,
		logger:    cfg.Logger.With("component", "analysis"),
	}
}

// Analyze annotates the image at imagePath, saves the annotated copy and asks
// the provider about it. It never panics and never returns a bare
// error: every failure ends up in Result.Err.
func (a *Analyzer) Analyze(ctx context.Context, prompt, imagePath string) (res Result) {
	defer a.config.Timer.Track("analyze")()

	defer func() {
		if r := recover(); r != nil {
			a.logger.Error("panic during analysis", "panic", r, "stack", string(debug.Stack()))
			res = Result{Err: fmt.Errorf("%w: %v", ErrPanic, r)}
		}
	}()

	res, err := a.analyze(ctx, prompt, imagePath)
	if err != nil {
		a.logger.Error("analysis failed", "image", imagePath, "error", err)
		res.Err = err
	}
	return res
}

func (a *Analyzer) analyze(ctx context.Context, prompt, imagePath string) (Result, error) {
	var res Result

	if err := a.store.EnsureDir(); err != nil {
		return res, err
	}

	src, err := a.decode(imagePath)
	if err != nil {
		return res, err
	}

	done := a.config.Timer.Track("annotate")
	annotated, _ := a.annotator.Annotate(src)
	done()

	done = a.config.Timer.Track("save")
	path, err := a.store.SaveAnnotated(annotated, a.config.JPEGQuality)
	done()
	if err != nil {
		return res, err
	}
	res.AnnotatedPath = path

	done = a.config.Timer.Track("vision")
	resp, err := a.provider.Vision(ctx, &inference.VisionRequest{
		Image:     annotated,
		Prompt:    prompt,
		MaxTokens: a.config.MaxTokens,
	})
	done()
	if err != nil {
		return res, err
	}

	a.logger.Debug("answer received",
		"annotated", path,
		"tokens", resp.Usage.TotalTokens,
		"latency_ms", resp.LatencyMs,
	)

	res.Text = resp.Content
	return res, nil
}

func (a *Analyzer) decode(path string) (image.Image, error) {
	defer a.config.Timer.Track("decode")()

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("analysis: open image: %w", err)
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("analysis: decode %s: %w", path, err)
	}
	return img, nil
}
