// Package scout runs the capture, analyze and speak loop.
//
// Each iteration takes the next prompt round-robin, captures a frame, saves
// it, asks the analyzer about it and optionally reads the answer aloud. A
// failed or panicking iteration is logged and the loop carries on after the
// usual delay; only context cancellation stops it.
package scout

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"runtime/debug"
	"time"

	"github.com/google/uuid"

	"github.com/teslashibe/gridscout/pkg/analysis"
	"github.com/teslashibe/gridscout/pkg/camera"
	gdebug "github.com/teslashibe/gridscout/pkg/debug"
	"github.com/teslashibe/gridscout/pkg/prompts"
)

// DefaultDelay is the pause between iterations.
const DefaultDelay = 5 * time.Second

// ErrMissingDep is returned by New when a required collaborator is nil.
var ErrMissingDep = errors.New("scout: missing dependency")

// Capturer takes still frames.
type Capturer interface {
	Capture(ctx context.Context) (*camera.Frame, error)
}

// FrameStore persists raw frames and returns their path.
type FrameStore interface {
	SaveFrame(data []byte) (string, error)
}

// Analyzer answers a prompt about an image on disk.
type Analyzer interface {
	Analyze(ctx context.Context, prompt, imagePath string) analysis.Result
}

// Speaker reads text aloud.
type Speaker interface {
	Speak(ctx context.Context, text string) error
}

// Deps are the collaborators of a Scout.
type Deps struct {
	Camera   Capturer
	Store    FrameStore
	Analyzer Analyzer
	Speaker  Speaker // Required only when Config.Speech is set
	Prompts  *prompts.Set
}

// Config holds loop settings.
type Config struct {
	Delay      time.Duration // Pause between iterations
	Speech     bool          // Speak successful answers
	Iterations int           // Stop after this many iterations; zero runs until cancelled
	Timer      *gdebug.Timer
	Output     io.Writer // Receives the prompt and answer of every iteration
	Logger     *slog.Logger
}

// DefaultConfig returns a 5s delay with speech off, printing answers to stdout.
func DefaultConfig() Config {
	return Config{
		Delay:  DefaultDelay,
		Output: os.Stdout,
		Logger: slog.Default(),
	}
}

// Iteration describes one pass through the loop.
type Iteration struct {
	ID          string
	PromptIndex int
	Prompt      string
	FramePath   string          // Empty when capture or save failed
	Result      analysis.Result // Zero when analysis did not run
	Analyzed    bool
	Spoken      bool
	Err         error // Capture, save or speech failure, or a recovered panic
}

// Scout is the main loop.
type Scout struct {
	deps   Deps
	cfg    Config
	logger *slog.Logger

	sleep func(ctx context.Context, d time.Duration) error
}

// New validates the collaborators and creates a Scout.
func New(deps Deps, cfg Config) (*Scout, error) {
	switch {
	case deps.Camera == nil:
		return nil, fmt.Errorf("%w: camera", ErrMissingDep)
	case deps.Store == nil:
		return nil, fmt.Errorf("%w: store", ErrMissingDep)
	case deps.Analyzer == nil:
		return nil, fmt.Errorf("%w: analyzer", ErrMissingDep)
	case deps.Prompts == nil:
		return nil, fmt.Errorf("%w: prompts", ErrMissingDep)
	case cfg.Speech && deps.Speaker == nil:
		return nil, fmt.Errorf("%w: speaker", ErrMissingDep)
	}

	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Output == nil {
		cfg.Output = io.Discard
	}

	return &Scout{
		deps:   deps,
		cfg:    cfg,
		logger: cfg.Logger.With("component", "scout"),
		sleep:  sleepCtx,
	}, nil
}

// Run loops until ctx is cancelled or Config.Iterations is reached.
// It returns ctx.Err() on cancellation and nil otherwise.
func (s *Scout) Run(ctx context.Context) error {
	s.logger.Info("scout started",
		"prompts", s.deps.Prompts.Len(),
		"speech", s.cfg.Speech,
		"delay", s.cfg.Delay,
	)

	for n := 1; ; n++ {
		s.RunOnce(ctx)

		if s.cfg.Iterations > 0 && n >= s.cfg.Iterations {
			s.logger.Info("scout finished", "iterations", n)
			return nil
		}
		if err := s.sleep(ctx, s.cfg.Delay); err != nil {
			s.logger.Info("scout stopped", "iterations", n)
			return err
		}
	}
}

// RunOnce performs a single iteration without the trailing delay.
// It never panics.
func (s *Scout) RunOnce(ctx context.Context) (it Iteration) {
	it.ID = uuid.NewString()
	logger := s.logger.With("iteration", it.ID)
	defer s.cfg.Timer.Track("iteration")()

	defer func() {
		if r := recover(); r != nil {
			logger.Error("iteration panicked", "panic", r, "stack", string(debug.Stack()))
			it.Err = fmt.Errorf("scout: panic: %v", r)
		}
	}()

	it.PromptIndex, it.Prompt = s.deps.Prompts.Next()
	logger.Debug("prompt selected", "index", it.PromptIndex)

	frame, err := s.capture(ctx)
	if err != nil {
		logger.Error("capture failed, skipping analysis", "error", err)
		it.Err = err
		s.speak(ctx, logger, &it)
		return it
	}

	done := s.cfg.Timer.Track("save_frame")
	path, err := s.deps.Store.SaveFrame(frame.Data)
	done()
	if err != nil {
		logger.Error("failed to save frame, skipping analysis", "error", err)
		it.Err = err
		s.speak(ctx, logger, &it)
		return it
	}
	it.FramePath = path

	it.Result = s.deps.Analyzer.Analyze(ctx, it.Prompt, path)
	it.Analyzed = true

	fmt.Fprintln(s.cfg.Output, "User Prompt:", it.Prompt)
	fmt.Fprintln(s.cfg.Output, "Answer:", it.Result.String())

	s.speak(ctx, logger, &it)
	return it
}

func (s *Scout) capture(ctx context.Context) (*camera.Frame, error) {
	defer s.cfg.Timer.Track("capture")()

	frame, err := s.deps.Camera.Capture(ctx)
	if err != nil {
		return nil, err
	}
	if frame.Empty() {
		return nil, camera.ErrEmptyFrame
	}
	return frame, nil
}

// speak reads a successful answer aloud when speech is on.
func (s *Scout) speak(ctx context.Context, logger *slog.Logger, it *Iteration) {
	if !s.cfg.Speech {
		logger.Debug("speech disabled")
		return
	}
	if !it.Analyzed || !it.Result.OK() {
		logger.Info("speech skipped, no answer")
		return
	}

	defer s.cfg.Timer.Track("speak")()
	if err := s.deps.Speaker.Speak(ctx, it.Result.Text); err != nil {
		logger.Error("speech failed", "error", err)
		it.Err = err
		return
	}
	it.Spoken = true
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
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
