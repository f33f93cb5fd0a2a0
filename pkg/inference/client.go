package inference

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/teslashibe/gridscout/internal/httpc"
)

const providerClient = "openai"

// Client talks to an OpenAI-compatible chat completions endpoint.
// Anything that accepts image_url content parts works (OpenAI, vLLM, Ollama).
type Client struct {
	baseURL string
	config  *Config
	http    *http.Client
	logger  *slog.Logger
}

// NewClient creates a client. It performs no network calls.
func NewClient(opts ...Option) (*Client, error) {
	cfg := DefaultConfig()
	cfg.Apply(opts...)

	return &Client{
		baseURL: strings.TrimSuffix(cfg.BaseURL, "/"),
		config:  cfg,
		http:    httpc.NewClient(cfg.Timeout),
		logger:  cfg.Logger.With("component", "inference.client"),
	}, nil
}

type chatRequest struct {
	Model               string        `json:"model"`
	Messages            []chatMessage `json:"messages"`
	MaxCompletionTokens int           `json:"max_completion_tokens,omitempty"`
}

type chatMessage struct {
	Role    string        `json:"role"`
	Content []contentPart `json:"content"`
}

type contentPart struct {
	Type     string    `json:"type"`
	Text     string    `json:"text,omitempty"`
	ImageURL *imageURL `json:"image_url,omitempty"`
}

type imageURL struct {
	URL    string `json:"url"`
	Detail string `json:"detail,omitempty"`
}

type chatResponse struct {
	Model   string `json:"model"`
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
		TotalTokens      int `json:"total_tokens"`
	} `json:"usage"`
}

// Vision sends one user message holding the prompt and the image as a JPEG
// data URL and returns the first choice.
func (c *Client) Vision(ctx context.Context, req *VisionRequest) (*VisionResponse, error) {
	if req.Image == nil {
		return nil, WrapError(providerClient, ErrNoImage)
	}
	start := time.Now()

	b64, err := EncodeImageBase64(req.Image, c.config.JPEGQuality)
	if err != nil {
		return nil, WrapError(providerClient, fmt.Errorf("encode image: %w", err))
	}

	body := chatRequest{
		Model: orDefault(req.Model, c.config.VisionModel),
		Messages: []chatMessage{{
			Role: "user",
			Content: []contentPart{
				{Type: "text", Text: req.Prompt},
				{Type: "image_url", ImageURL: &imageURL{URL: DataURL(b64), Detail: c.config.ImageDetail}},
			},
		}},
		MaxCompletionTokens: orDefault(req.MaxTokens, c.config.MaxTokens),
	}

	var out chatResponse
	if err := c.call(ctx, http.MethodPost, "/chat/completions", body, &out); err != nil {
		return nil, err
	}
	if len(out.Choices) == 0 {
		return nil, WrapError(providerClient, ErrNoChoices)
	}

	resp := &VisionResponse{
		Content:      out.Choices[0].Message.Content,
		FinishReason: out.Choices[0].FinishReason,
		Model:        out.Model,
		LatencyMs:    time.Since(start).Milliseconds(),
		Usage: Usage{
			PromptTokens:     out.Usage.PromptTokens,
			CompletionTokens: out.Usage.CompletionTokens,
			TotalTokens:      out.Usage.TotalTokens,
		},
	}
	c.logger.Debug("vision response",
		"model", resp.Model,
		"finish", resp.FinishReason,
		"tokens", resp.Usage.TotalTokens,
		"latency_ms", resp.LatencyMs,
	)
	return resp, nil
}

// Health lists models, which fails fast on a bad key.
func (c *Client) Health(ctx context.Context) error {
	return c.call(ctx, http.MethodGet, "/models", nil, nil)
}

// Close drops idle connections.
func (c *Client) Close() error {
	c.http.CloseIdleConnections()
	return nil
}

// call sends in as JSON (when non-nil) and decodes a 200 answer into out
// (when non-nil). Other statuses become *APIError. 429 and 5xx answers are
// retried only when MaxRetries > 0.
func (c *Client) call(ctx context.Context, method, path string, in, out any) error {
	var payload []byte
	if in != nil {
		var err error
		if payload, err = json.Marshal(in); err != nil {
			return WrapError(providerClient, fmt.Errorf("marshal request: %w", err))
		}
	}

	for attempt := 0; ; attempt++ {
		req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bytes.NewReader(payload))
		if err != nil {
			return WrapError(providerClient, err)
		}
		if in != nil {
			req.Header.Set("Content-Type", "application/json")
		}
		if c.config.APIKey != "" {
			req.Header.Set("Authorization", "Bearer "+c.config.APIKey)
		}

		resp, err := c.http.Do(req)
		if err != nil {
			return WrapError(providerClient, err)
		}

		if resp.StatusCode == http.StatusOK {
			defer resp.Body.Close()
			if out == nil {
				return nil
			}
			if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
				return WrapError(providerClient, fmt.Errorf("decode response: %w", err))
			}
			return nil
		}

		apiErr := readAPIError(resp)
		if !apiErr.IsRetryable() || attempt >= c.config.MaxRetries {
			return apiErr
		}

		c.logger.Warn("retrying request", "path", path, "attempt", attempt+1, "status", apiErr.StatusCode)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(c.config.RetryDelay * time.Duration(attempt+1)):
		}
	}
}

// readAPIError consumes resp and extracts an OpenAI-style error body,
// falling back to the raw text.
func readAPIError(resp *http.Response) *APIError {
	defer resp.Body.Close()
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))

	e := &APIError{
		Provider:   providerClient,
		StatusCode: resp.StatusCode,
		Message:    strings.TrimSpace(string(body)),
	}

	var parsed struct {
		Error struct {
			Message string `json:"message"`
			Code    string `json:"code"`
		} `json:"error"`
	}
	if json.Unmarshal(body, &parsed) == nil && parsed.Error.Message != "" {
		e.Message = parsed.Error.Message
		e.Code = parsed.Error.Code
	}
	return e
}

// orDefault returns v unless it is the zero value, then def.
func orDefault[T comparable](v, def T) T {
	var zero T
	if v == zero {
		return def
	}
	return v
}

var _ Provider = (*Client)(nil)
