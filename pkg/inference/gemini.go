package inference

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"google.golang.org/genai"

	"github.com/teslashibe/gridscout/internal/httpc"
)

const providerGemini = "gemini"

// DefaultGeminiModel is the vision model used when none is configured.
const DefaultGeminiModel = "gemini-2.0-flash"

// Gemini implements Provider on top of the Google Gen AI SDK.
type Gemini struct {
	client *genai.Client
	config *Config
	logger *slog.Logger
}

// NewGemini creates a Gemini provider. BaseURL, when set, overrides the API endpoint.
func NewGemini(ctx context.Context, opts ...Option) (*Gemini, error) {
	cfg := DefaultConfig()
	cfg.BaseURL = ""
	cfg.VisionModel = DefaultGeminiModel
	cfg.Apply(opts...)

	if cfg.APIKey == "" {
		return nil, WrapError(providerGemini, ErrNoAPIKey)
	}

	cc := &genai.ClientConfig{
		APIKey:     cfg.APIKey,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: httpc.NewClient(cfg.Timeout),
	}
	if cfg.BaseURL != "" {
		cc.HTTPOptions = genai.HTTPOptions{BaseURL: cfg.BaseURL}
	}

	client, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, WrapError(providerGemini, fmt.Errorf("create client: %w", err))
	}

	return &Gemini{
		client: client,
		config: cfg,
		logger: cfg.Logger.With("component", "inference.gemini"),
	}, nil
}

// Vision sends the prompt and the JPEG-encoded image as inline data.
func (g *Gemini) Vision(ctx context.Context, req *VisionRequest) (*VisionResponse, error) {
	start := time.Now()

	if req.Image == nil {
		return nil, WrapError(providerGemini, ErrNoImage)
	}

	model := orDefault(req.Model, g.config.VisionModel)

	data, err := EncodeJPEG(req.Image, g.config.JPEGQuality)
	if err != nil {
		return nil, WrapError(providerGemini, fmt.Errorf("encode image: %w", err))
	}

	maxTokens := orDefault(req.MaxTokens, g.config.MaxTokens)

	parts := []*genai.Part{
		genai.NewPartFromText(req.Prompt),
		genai.NewPartFromBytes(data, "image/jpeg"),
	}
	contents := []*genai.Content{genai.NewContentFromParts(parts, genai.RoleUser)}

	resp, err := g.client.Models.GenerateContent(ctx, model, contents, &genai.GenerateContentConfig{
		MaxOutputTokens: int32(maxTokens),
	})
	if err != nil {
		return nil, geminiError(err)
	}

	if len(resp.Candidates) == 0 {
		return nil, WrapError(providerGemini, ErrNoChoices)
	}

	out := &VisionResponse{
		Content:      resp.Text(),
		FinishReason: string(resp.Candidates[0].FinishReason),
		Model:        model,
		LatencyMs:    time.Since(start).Milliseconds(),
	}
	if u := resp.UsageMetadata; u != nil {
		out.Usage = Usage{
			PromptTokens:     int(u.PromptTokenCount),
			CompletionTokens: int(u.CandidatesTokenCount),
			TotalTokens:      int(u.TotalTokenCount),
		}
	}

	g.logger.Debug("vision response",
		"model", model,
		"tokens", out.Usage.TotalTokens,
		"latency_ms", out.LatencyMs,
	)

	return out, nil
}

// Health checks that the configured model is reachable with the API key.
func (g *Gemini) Health(ctx context.Context) error {
	if _, err := g.client.Models.Get(ctx, g.config.VisionModel, nil); err != nil {
		return geminiError(fmt.Errorf("health check: %w", err))
	}
	return nil
}

// Close releases resources. The SDK client holds no long-lived connections of its own.
func (g *Gemini) Close() error {
	return nil
}

// Verify Gemini implements Provider at compile time.
var _ Provider = (*Gemini)(nil)

// geminiError turns SDK API errors into *APIError so both providers report
// HTTP failures the same way.
func geminiError(err error) error {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return &APIError{
			Provider:   providerGemini,
			StatusCode: apiErr.Code,
			Code:       apiErr.Status,
			Message:    apiErr.Message,
		}
	}
	return WrapError(providerGemini, err)
}
