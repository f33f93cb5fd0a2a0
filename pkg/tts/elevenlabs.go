package tts

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
)

const (
	elevenLabsBaseURL  = "https://api.elevenlabs.io/v1"
	providerElevenLabs = "elevenlabs"
)

// ElevenLabs model IDs
const (
	ModelFlashV2_5      = "eleven_flash_v2_5" // Lowest latency, the default
	ModelTurboV2_5      = "eleven_turbo_v2_5"
	ModelMultilingualV2 = "eleven_multilingual_v2" // Best quality, slowest
)

// ElevenLabs speaks through the ElevenLabs REST API.
type ElevenLabs struct {
	req     *requester
	config  *Config
	baseURL string
}

// NewElevenLabs creates the provider. Voice preset names such as "scout"
// are resolved to IDs.
func NewElevenLabs(opts ...Option) (*ElevenLabs, error) {
	cfg := DefaultConfig()
	cfg.Apply(opts...)
	cfg.VoiceID = ResolveElevenLabsVoice(cfg.VoiceID)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	e := &ElevenLabs{
		config:  cfg,
		baseURL: strings.TrimSuffix(orDefault(cfg.BaseURL, elevenLabsBaseURL), "/"),
	}
	e.req = newRequester(providerElevenLabs, cfg,
		func(r *http.Request) { r.Header.Set("xi-api-key", cfg.APIKey) },
		elevenLabsErrorMessage,
	)
	return e, nil
}

// speech builds POST /text-to-speech/{voice}[/stream]?output_format=...
func (e *ElevenLabs) speech(text, suffix string) speechCall {
	return speechCall{
		url: fmt.Sprintf("%s/text-to-speech/%s%s?output_format=%s",
			e.baseURL, url.PathEscape(e.config.VoiceID), suffix, url.QueryEscape(string(e.config.OutputFormat))),
		body: struct {
			Text          string        `json:"text"`
			ModelID       string        `json:"model_id"`
			VoiceSettings VoiceSettings `json:"voice_settings"`
		}{text, e.config.ModelID, e.config.VoiceSettings},
		format: FormatOf(e.config.OutputFormat),
	}
}

// Synthesize returns the whole clip.
func (e *ElevenLabs) Synthesize(ctx context.Context, text string) (*AudioResult, error) {
	return e.req.synthesize(ctx, text, e.speech(text, ""))
}

// Stream uses the /stream endpoint so playback can start on the first chunk.
func (e *ElevenLabs) Stream(ctx context.Context, text string) (AudioStream, error) {
	return e.req.openStream(ctx, text, e.speech(text, "/stream"))
}

// Voices lists the voices available to the account.
func (e *ElevenLabs) Voices(ctx context.Context) ([]Voice, error) {
	var out struct {
		Voices []Voice `json:"voices"`
	}
	if err := e.req.getJSON(ctx, e.baseURL+"/voices", &out); err != nil {
		return nil, err
	}
	return out.Voices, nil
}

// Health fetches the account, which fails on a bad key.
func (e *ElevenLabs) Health(ctx context.Context) error {
	return e.req.getJSON(ctx, e.baseURL+"/user", nil)
}

func (e *ElevenLabs) Close() error {
	e.req.close()
	return nil
}

func (e *ElevenLabs) VoiceID() string { return e.config.VoiceID }

func (e *ElevenLabs) ModelID() string { return e.config.ModelID }

// elevenLabsErrorMessage reads {"detail":{"status":..., "message":...}}.
func elevenLabsErrorMessage(body []byte) (string, string) {
	var errResp struct {
		Detail struct {
			Message string `json:"message"`
			Status  string `json:"status"`
		} `json:"detail"`
	}
	if json.Unmarshal(body, &errResp) != nil {
		return "", ""
	}
	return errResp.Detail.Message, errResp.Detail.Status
}

var _ Provider = (*ElevenLabs)(nil)
