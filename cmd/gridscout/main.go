// gridscout captures a frame, overlays a lettered grid, asks a vision model
// about it and optionally speaks the answer, forever or once.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	stdlog "log"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/teslashibe/gridscout/internal/config"
	"github.com/teslashibe/gridscout/internal/log"
	"github.com/teslashibe/gridscout/pkg/analysis"
	"github.com/teslashibe/gridscout/pkg/audio"
	"github.com/teslashibe/gridscout/pkg/camera"
	"github.com/teslashibe/gridscout/pkg/debug"
	"github.com/teslashibe/gridscout/pkg/grid"
	"github.com/teslashibe/gridscout/pkg/inference"
	"github.com/teslashibe/gridscout/pkg/prompts"
	"github.com/teslashibe/gridscout/pkg/scout"
	"github.com/teslashibe/gridscout/pkg/storage"
	"github.com/teslashibe/gridscout/pkg/tts"
)

type options struct {
	configPath  string
	once        bool
	find        string
	prompts     string
	speech      bool
	delay       time.Duration
	iterations  int
	backend     string
	model       string
	detail      string
	camera      string
	device      int
	compositing string
	font        string
	outDir      string
	ttsMode     string
	voice       string
	timing      bool
	logLevel    string
	logFile     string
}

func main() {
	opts := parseFlags()

	var logOpts log.Options
	logOpts.Level = opts.logLevel
	if opts.logFile != "" {
		f, err := os.OpenFile(opts.logFile, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			stdlog.Fatalf("❌ Cannot open log file: %v", err)
		}
		defer f.Close()
		logOpts.File = f
	}
	log.Init(logOpts)
	logger := log.L()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	s, cleanup, err := build(ctx, opts, logger)
	if err != nil {
		stdlog.Fatalf("❌ Configuration error: %v", err)
	}
	defer cleanup()

	if opts.once {
		it := s.RunOnce(ctx)
		if it.Err != nil || !it.Result.OK() {
			cleanup()
			os.Exit(1)
		}
		return
	}

	if err := s.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("scout stopped", "error", err)
	}
}

func parseFlags() options {
	var o options
	flag.StringVar(&o.configPath, "config", config.DefaultPath, "Credentials file")
	flag.BoolVar(&o.once, "once", false, "Run a single iteration and exit (non-zero on failure)")
	flag.StringVar(&o.find, "find", "", "Ask where this object is instead of using prompt files")
	flag.StringVar(&o.prompts, "prompts", "", "Comma separated prompt files (up to 3)")
	flag.BoolVar(&o.speech, "speech", false, "Speak answers")
	flag.DurationVar(&o.delay, "delay", scout.DefaultDelay, "Pause between iterations")
	flag.IntVar(&o.iterations, "iterations", 0, "Stop after this many iterations (0 = forever)")
	flag.StringVar(&o.backend, "backend", "openai", "Vision backend: openai, gemini")
	flag.StringVar(&o.model, "model", "", "Vision model (default depends on backend)")
	flag.StringVar(&o.detail, "detail", "", "OpenAI image detail: low, high, auto")
	flag.StringVar(&o.camera, "camera", "default", "Camera preset ("+strings.Join(camera.PresetNames(), ", ")+") or backend (auto, webcam, still)")
	flag.IntVar(&o.device, "device", 0, "Webcam device index")
	flag.StringVar(&o.compositing, "compositing", "pad", "Grid placement: pad, overlay")
	flag.StringVar(&o.font, "font", grid.DefaultConfig().FontPath, "Label font file")
	flag.StringVar(&o.outDir, "out", "images", "Directory for captured and annotated images")
	flag.StringVar(&o.ttsMode, "tts", "elevenlabs", "Speech provider: elevenlabs, openai (the other is used as fallback)")
	flag.StringVar(&o.voice, "voice", "", "ElevenLabs voice ID or preset name")
	flag.BoolVar(&o.timing, "timing", false, "Log step timings at debug level")
	flag.StringVar(&o.logLevel, "log-level", "info", "Log level: debug, info, warn, error")
	flag.StringVar(&o.logFile, "log-file", "", "Also write logs to this file")
	flag.Parse()

	// Trailing words are part of the target: gridscout -once -find red cup
	if o.find != "" && flag.NArg() > 0 {
		o.find = strings.Join(append([]string{o.find}, flag.Args()...), " ")
	}
	if o.timing && o.logLevel == "info" {
		o.logLevel = "debug"
	}
	return o
}

// build wires every collaborator. The returned cleanup releases the camera,
// the vision client and the font.
func build(ctx context.Context, o options, logger *slog.Logger) (*scout.Scout, func(), error) {
	creds, err := config.Load(o.configPath)
	if err != nil {
		return nil, nil, err
	}
	if err := creds.Validate(o.backend); err != nil {
		return nil, nil, err
	}

	mode, ok := grid.ParseCompositing(o.compositing)
	if !ok {
		return nil, nil, fmt.Errorf("unknown compositing mode %q", o.compositing)
	}

	camCfg, err := cameraConfig(o.camera, o.device)
	if err != nil {
		return nil, nil, err
	}
	camCfg.Logger = logger

	var closers []func() error
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
		closers = nil
	}

	provider, err := visionProvider(ctx, o, creds, logger)
	if err != nil {
		return nil, nil, err
	}
	closers = append(closers, provider.Close)

	cam, err := camera.New(camCfg)
	if err != nil {
		cleanup()
		return nil, nil, err
	}
	closers = append(closers, cam.Close)

	annotator := grid.New(
		grid.WithFont(o.font, grid.DefaultConfig().FontSize),
		grid.WithCompositing(mode),
		grid.WithLogger(logger),
	)
	closers = append(closers, annotator.Close)
	if annotator.Fallback() {
		logger.Info("grid labels use the built-in font", "font", o.font)
	}

	timer := debug.NewTimer(o.timing, logger)
	store := storage.New(o.outDir, storage.WithLogger(logger))
	analyzer := analysis.New(provider, annotator, store,
		analysis.WithTimer(timer),
		analysis.WithLogger(logger),
	)

	var set *prompts.Set
	if o.find != "" {
		set = prompts.ForTarget(o.find)
	} else {
		var paths []string
		if o.prompts != "" {
			paths = strings.Split(o.prompts, ",")
		}
		set = prompts.Load(paths, logger)
	}
	for i, p := range set.All() {
		logger.Debug("prompt loaded", "index", i, "prompt", p)
	}

	deps := scout.Deps{
		Camera:   cam,
		Store:    store,
		Analyzer: analyzer,
		Prompts:  set,
	}
	if o.speech {
		speaker, closeTTS, err := voice(o, creds, logger)
		if err != nil {
			cleanup()
			return nil, nil, err
		}
		closers = append(closers, closeTTS)
		deps.Speaker = speaker
	}

	cfg := scout.DefaultConfig()
	cfg.Delay = o.delay
	cfg.Speech = o.speech
	cfg.Iterations = o.iterations
	cfg.Timer = timer
	cfg.Logger = logger

	s, err := scout.New(deps, cfg)
	if err != nil {
		cleanup()
		return nil, nil, err
	}
	return s, cleanup, nil
}

func cameraConfig(name string, device int) (camera.Config, error) {
	var cfg camera.Config
	switch b := camera.Backend(name); b {
	case camera.BackendAuto, camera.BackendWebcam, camera.BackendStill:
		cfg = camera.DefaultConfig()
		cfg.Backend = b
	default:
		preset := camera.GetPreset(name)
		if preset == nil {
			return cfg, fmt.Errorf("unknown camera %q (presets: %s)", name, strings.Join(camera.PresetNames(), ", "))
		}
		cfg = *preset
	}
	cfg.Device = device
	return cfg, nil
}

func visionProvider(ctx context.Context, o options, creds config.Credentials, logger *slog.Logger) (inference.Provider, error) {
	switch o.backend {
	case "gemini":
		opts := []inference.Option{inference.WithAPIKey(creds.GeminiKey), inference.WithLogger(logger)}
		if o.model != "" {
			opts = append(opts, inference.WithVisionModel(o.model))
		}
		return inference.NewGemini(ctx, opts...)
	case "openai":
		opts := []inference.Option{
			inference.WithAPIKey(creds.OpenAIKey),
			inference.WithImageDetail(o.detail),
			inference.WithLogger(logger),
		}
		if o.model != "" {
			opts = append(opts, inference.WithVisionModel(o.model))
		}
		return inference.NewClient(opts...)
	default:
		return nil, fmt.Errorf("unknown vision backend %q", o.backend)
	}
}

// voice builds the speech provider chain: the selected provider first and
// the other one as fallback when its key is configured.
func voice(o options, creds config.Credentials, logger *slog.Logger) (*scout.Voice, func() error, error) {
	var providers []tts.Provider

	eleven := func() {
		if creds.ElevenLabsKey == "" {
			return
		}
		opts := []tts.Option{tts.WithAPIKey(creds.ElevenLabsKey), tts.WithLogger(logger)}
		if o.voice != "" {
			opts = append(opts, tts.WithVoice(o.voice))
		}
		if p, err := tts.NewElevenLabs(opts...); err == nil {
			providers = append(providers, p)
		} else {
			logger.Warn("elevenlabs unavailable", "error", err)
		}
	}
	openai := func() {
		if creds.OpenAIKey == "" {
			return
		}
		if p, err := tts.NewOpenAI(tts.WithAPIKey(creds.OpenAIKey), tts.WithLogger(logger)); err == nil {
			providers = append(providers, p)
		} else {
			logger.Warn("openai tts unavailable", "error", err)
		}
	}

	switch o.ttsMode {
	case "elevenlabs":
		eleven()
		openai()
	case "openai":
		openai()
		eleven()
	default:
		return nil, nil, fmt.Errorf("unknown tts provider %q", o.ttsMode)
	}

	player := audio.NewPlayer(audio.Config{
		Command: audio.DefaultCommand,
		Args:    audio.DefaultConfig().Args,
		Logger:  logger,
	})
	return newVoice(logger, player, providers...)
}

// newVoice chains providers in order and plays through player. The chain is
// closed again when the player cannot be found.
func newVoice(logger *slog.Logger, player *audio.Player, providers ...tts.Provider) (*scout.Voice, func() error, error) {
	chain, err := tts.NewChain(logger, providers...)
	if err != nil {
		return nil, nil, err
	}
	if err := player.Available(); err != nil {
		return nil, nil, errors.Join(err, chain.Close())
	}
	return &scout.Voice{Provider: chain, Player: player}, chain.Close, nil
}
