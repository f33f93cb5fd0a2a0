package tts

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
)

const (
	openAIBaseURL  = "https://api.openai.com/v1"
	providerOpenAI = "openai"
)

// OpenAI voices
const (
	VoiceAlloy   = "alloy"
	VoiceEcho    = "echo"
	VoiceFable   = "fable"
	VoiceOnyx    = "onyx"
	VoiceNova    = "nova"
	VoiceShimmer = "shimmer"
)

// OpenAI speech models
const (
	ModelTTS1   = "tts-1"
	ModelTTS1HD = "tts-1-hd"
)

// OpenAI speaks through /audio/speech. Output is always MP3; it is the
// fallback voice when ElevenLabs is out of quota.
type OpenAI struct {
	req     *requester
	config  *Config
	baseURL string
}

// NewOpenAI creates the provider with tts-1 and the shimmer voice unless overridden.
func NewOpenAI(opts ...Option) (*OpenAI, error) {
	cfg := DefaultConfig()
	cfg.ModelID = ModelTTS1
	cfg.VoiceID = VoiceShimmer
	cfg.Apply(opts...)
	cfg.OutputFormat = EncodingMP3

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	o := &OpenAI{
		config:  cfg,
		baseURL: strings.TrimSuffix(orDefault(cfg.BaseURL, openAIBaseURL), "/"),
	}
	o.req = newRequester(providerOpenAI, cfg,
		func(r *http.Request) { r.Header.Set("Authorization", "Bearer "+cfg.APIKey) },
		openAIErrorMessage,
	)
	return o, nil
}

func (o *OpenAI) speech(text string) speechCall {
	return speechCall{
		url: o.baseURL + "/audio/speech",
		body: struct {
			Model          string `json:"model"`
			Voice          string `json:"voice"`
			Input          string `json:"input"`
			ResponseFormat string `json:"response_format"`
		}{o.config.ModelID, o.config.VoiceID, text, "mp3"},
		format: FormatOf(EncodingMP3),
	}
}

func (o *OpenAI) Synthesize(ctx context.Context, text string) (*AudioResult, error) {
	return o.req.synthesize(ctx, text, o.speech(text))
}

// Stream reads the chunked MP3 body as it arrives.
func (o *OpenAI) Stream(ctx context.Context, text string) (AudioStream, error) {
	return o.req.openStream(ctx, text, o.speech(text))
}

// Health lists models, which fails on a bad key.
func (o *OpenAI) Health(ctx context.Context) error {
	return o.req.getJSON(ctx, o.baseURL+"/models", nil)
}

func (o *OpenAI) Close() error {
	o.req.close()
	return nil
}

func (o *OpenAI) VoiceID() string { return o.config.VoiceID }

func openAIErrorMessage(body []byte) (string, string) {
	var errResp struct {
		Error struct {
			Message string `json:"message"`
			Code    string `json:"code"`
		} `json:"error"`
	}
	if json.Unmarshal(body, &errResp) != nil {
		return "", ""
	}
	return errResp.Error.Message, errResp.Error.Code
}

var _ Provider = (*OpenAI)(nil)
