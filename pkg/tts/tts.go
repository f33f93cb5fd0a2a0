// Package tts turns model answers into speech.
//
// ElevenLabs is the primary voice; OpenAI's speech endpoint can stand in for
// it through a Chain. Providers hand back an AudioStream that the audio
// package pipes straight into a local player, so nothing is written to disk.
//
//	provider, _ := tts.NewElevenLabs(tts.WithAPIKey(os.Getenv("ELEVENLABS_API_KEY")))
//	defer provider.Close()
//
//	stream, _ := provider.Stream(ctx, "Letter: C")
//	defer stream.Close()
package tts

import (
	"bytes"
	"context"
	"io"
	"time"
)

// Provider defines the TTS provider interface.
type Provider interface {
	// Synthesize converts text to audio, returning the complete audio buffer.
	Synthesize(ctx context.Context, text string) (*AudioResult, error)

	// Stream converts text to audio, returning bytes as the service produces them.
	Stream(ctx context.Context, text string) (AudioStream, error)

	// Health checks provider connectivity and API key validity.
	Health(ctx context.Context) error

	// Close releases any resources held by the provider.
	Close() error
}

// AudioStream is encoded audio read incrementally. Read returns io.EOF at the end.
type AudioStream interface {
	io.ReadCloser

	// Format returns the audio format metadata.
	Format() AudioFormat
}

// AudioResult represents a complete audio synthesis result.
type AudioResult struct {
	Audio     []byte
	Format    AudioFormat
	CharCount int
	LatencyMs int64 // Time until the full body was received
}

// AudioFormat describes the audio encoding parameters.
type AudioFormat struct {
	Encoding   Encoding
	SampleRate int
	Channels   int
}

// Encoding names an output format. Values match the ElevenLabs output_format parameter.
type Encoding string

const (
	EncodingMP3   Encoding = "mp3_44100_128" // MP3 128kbps, the default
	EncodingPCM16 Encoding = "pcm_16000"     // 16kHz mono PCM16
	EncodingPCM22 Encoding = "pcm_22050"     // 22.05kHz mono PCM16
	EncodingPCM24 Encoding = "pcm_24000"     // 24kHz mono PCM16
	EncodingPCM44 Encoding = "pcm_44100"     // 44.1kHz mono PCM16
	EncodingULaw  Encoding = "ulaw_8000"     // μ-law 8kHz
)

// IsPCM reports whether the encoding is headerless 16-bit PCM.
func (e Encoding) IsPCM() bool {
	switch e {
	case EncodingPCM16, EncodingPCM22, EncodingPCM24, EncodingPCM44:
		return true
	}
	return false
}

// MIME returns the Accept header value for the encoding.
func (e Encoding) MIME() string {
	switch {
	case e.IsPCM():
		return "audio/pcm"
	case e == EncodingULaw:
		return "audio/basic"
	default:
		return "audio/mpeg"
	}
}

// SampleRateFromEncoding extracts the sample rate from an encoding type.
func SampleRateFromEncoding(enc Encoding) int {
	switch enc {
	case EncodingPCM16:
		return 16000
	case EncodingPCM22:
		return 22050
	case EncodingPCM24:
		return 24000
	case EncodingULaw:
		return 8000
	default:
		return 44100
	}
}

// FormatOf returns mono metadata for an encoding.
func FormatOf(enc Encoding) AudioFormat {
	return AudioFormat{Encoding: enc, SampleRate: SampleRateFromEncoding(enc), Channels: 1}
}

// VoiceSettings controls ElevenLabs voice characteristics.
type VoiceSettings struct {
	Stability       float64 `json:"stability"`
	SimilarityBoost float64 `json:"similarity_boost"`
	Style           float64 `json:"style"`
	SpeakerBoost    bool    `json:"use_speaker_boost"`
}

// DefaultVoiceSettings returns the service defaults.
func DefaultVoiceSettings() VoiceSettings {
	return VoiceSettings{
		Stability:       0.5,
		SimilarityBoost: 0.75,
		SpeakerBoost:    true,
	}
}

// bodyStream adapts an HTTP response body.
type bodyStream struct {
	io.ReadCloser
	format AudioFormat
}

func (s *bodyStream) Format() AudioFormat { return s.format }

// NewBufferStream wraps complete audio as an AudioStream.
func NewBufferStream(data []byte, format AudioFormat) AudioStream {
	return &bodyStream{ReadCloser: io.NopCloser(bytes.NewReader(data)), format: format}
}

func sinceMs(t time.Time) int64 {
	return time.Since(t).Milliseconds()
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}
