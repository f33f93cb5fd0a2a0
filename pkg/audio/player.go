// Package audio plays synthesized speech on the local machine.
package audio

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os/exec"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/teslashibe/gridscout/pkg/tts"
)

// DefaultCommand is the player that receives audio on stdin.
const DefaultCommand = "ffplay"

// Config holds player settings.
type Config struct {
	// Command is the player binary. Audio is written to its stdin.
	Command string

	// Args precede the input arguments. Defaults suit ffplay.
	Args []string

	Logger *slog.Logger
}

// DefaultConfig plays through ffplay without a window and exits at end of input.
func DefaultConfig() Config {
	return Config{
		Command: DefaultCommand,
		Args:    []string{"-nodisp", "-autoexit", "-loglevel", "quiet"},
		Logger:  slog.Default(),
	}
}

// Player pipes audio streams into a local player process.
// One stream plays at a time; Play blocks until playback ends.
type Player struct {
	cfg    Config
	logger *slog.Logger

	// Callbacks
	OnPlaybackStart func()
	OnPlaybackEnd   func()

	mu      sync.Mutex
	playing bool
}

// NewPlayer creates a player.
func NewPlayer(cfg Config) *Player {
	if cfg.Command == "" {
		cfg.Command = DefaultCommand
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Player{
		cfg:    cfg,
		logger: cfg.Logger.With("component", "audio"),
	}
}

// Available reports whether the player binary can be found.
func (p *Player) Available() error {
	if _, err := exec.LookPath(p.cfg.Command); err != nil {
		return fmt.Errorf("audio: %s not found: %w", p.cfg.Command, err)
	}
	return nil
}

// InputArgs returns the arguments describing stdin for the given format.
// Containers such as MP3 are probed by the player; headerless PCM is not.
func InputArgs(format tts.AudioFormat) []string {
	channels := "mono"
	if format.Channels == 2 {
		channels = "stereo"
	}

	switch {
	case format.Encoding.IsPCM():
		return []string{"-f", "s16le", "-ar", strconv.Itoa(format.SampleRate), "-ch_layout", channels, "-"}
	case format.Encoding == tts.EncodingULaw:
		return []string{"-f", "mulaw", "-ar", strconv.Itoa(format.SampleRate), "-ch_layout", channels, "-"}
	default:
		return []string{"-"}
	}
}

// Play streams audio into the player and waits for it to exit.
// The stream is always closed. Cancelling ctx stops playback.
func (p *Player) Play(ctx context.Context, stream tts.AudioStream) error {
	var closeOnce sync.Once
	closeStream := func() { closeOnce.Do(func() { stream.Close() }) }
	defer closeStream()

	args := append(append([]string(nil), p.cfg.Args...), InputArgs(stream.Format())...)

	var stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, p.cfg.Command, args...)
	cmd.Stderr = &stderr
	cmd.WaitDelay = 2 * time.Second
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return fmt.Errorf("audio: stdin: %w", err)
	}

	p.mu.Lock()
	if p.playing {
		p.mu.Unlock()
		return fmt.Errorf("audio: already playing")
	}
	p.playing = true
	p.mu.Unlock()

	start := time.Now()
	if err := cmd.Start(); err != nil {
		p.setPlaying(false)
		return fmt.Errorf("audio: start %s: %w", p.cfg.Command, err)
	}
	defer func() {
		p.setPlaying(false)
		if p.OnPlaybackEnd != nil {
			p.OnPlaybackEnd()
		}
	}()
	if p.OnPlaybackStart != nil {
		p.OnPlaybackStart()
	}

	copied := make(chan struct{})
	go func() {
		defer close(copied)
		io.Copy(stdin, stream)
		stdin.Close()
	}()

	err = cmd.Wait()
	// A stalled stream keeps the copy blocked in Read until it is closed.
	closeStream()
	<-copied

	if ctx.Err() != nil {
		return ctx.Err()
	}
	if err != nil {
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return fmt.Errorf("audio: %s: %w: %s", p.cfg.Command, err, msg)
		}
		return fmt.Errorf("audio: %s: %w", p.cfg.Command, err)
	}

	p.logger.Debug("playback finished", "elapsed", time.Since(start))
	return nil
}

func (p *Player) setPlaying(v bool) {
	p.mu.Lock()
	p.playing = v
	p.mu.Unlock()
}

// IsPlaying returns whether audio is currently playing.
func (p *Player) IsPlaying() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.playing
}
