package tts

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

// requester is the HTTP side of a provider. Providers only describe
// requests; sending, retrying and error decoding happen here.
type requester struct {
	provider string
	config   *Config
	client   *http.Client // Bounded by Config.Timeout
	stream   *http.Client // Bounded by the caller's context only
	logger   *slog.Logger
	auth     func(*http.Request)
	errorMsg func(body []byte) (message, code string)
}

func newRequester(provider string, cfg *Config, auth func(*http.Request), errorMsg func([]byte) (string, string)) *requester {
	return &requester{
		provider: provider,
		config:   cfg,
		client:   httpc.NewClient(cfg.Timeout),
		stream:   httpc.NewClient(0),
		logger:   cfg.Logger.With("component", "tts."+provider),
		auth:     auth,
		errorMsg: errorMsg,
	}
}

// speechCall is one text-to-speech POST.
type speechCall struct {
	url    string
	body   any
	format AudioFormat
}

func (r *requester) synthesize(ctx context.Context, text string, call speechCall) (*AudioResult, error) {
	start := time.Now()

	resp, err := r.send(ctx, r.client, text, call)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	audio, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, WrapError(r.provider, fmt.Errorf("read audio: %w", err))
	}

	res := &AudioResult{Audio: audio, Format: call.format, CharCount: len(text), LatencyMs: sinceMs(start)}
	r.logger.Debug("synthesized", "chars", res.CharCount, "bytes", len(audio), "latency_ms", res.LatencyMs)
	return res, nil
}

// openStream returns as soon as headers arrive; the body is read by the player.
func (r *requester) openStream(ctx context.Context, text string, call speechCall) (AudioStream, error) {
	start := time.Now()
	resp, err := r.send(ctx, r.stream, text, call)
	if err != nil {
		return nil, err
	}
	r.logger.Debug("stream opened", "chars", len(text), "ttfb_ms", sinceMs(start))
	return &bodyStream{ReadCloser: resp.Body, format: call.format}, nil
}

func (r *requester) send(ctx context.Context, client *http.Client, text string, call speechCall) (*http.Response, error) {
	if strings.TrimSpace(text) == "" {
		return nil, WrapError(r.provider, ErrEmptyText)
	}
	return r.do(ctx, client, http.MethodPost, call.url, call.body, call.format.Encoding.MIME())
}

// getJSON decodes a GET answer into out; a nil out discards the body.
func (r *requester) getJSON(ctx context.Context, url string, out any) error {
	resp, err := r.do(ctx, r.client, http.MethodGet, url, nil, "application/json")
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return WrapError(r.provider, fmt.Errorf("decode %s: %w", url, err))
	}
	return nil
}

// do sends one request, retrying 429 and 5xx while Config.MaxRetries allows.
// Anything but 200 comes back as *APIError.
func (r *requester) do(ctx context.Context, client *http.Client, method, url string, payload any, accept string) (*http.Response, error) {
	var body []byte
	if payload != nil {
		var err error
		if body, err = json.Marshal(payload); err != nil {
			return nil, WrapError(r.provider, fmt.Errorf("marshal request: %w", err))
		}
	}

	for attempt := 0; ; attempt++ {
		req, err := http.NewRequestWithContext(ctx, method, url, bytes.NewReader(body))
		if err != nil {
			return nil, WrapError(r.provider, err)
		}
		if payload != nil {
			req.Header.Set("Content-Type", "application/json")
		}
		req.Header.Set("Accept", accept)
		r.auth(req)

		resp, err := client.Do(req)
		if err != nil {
			return nil, WrapError(r.provider, err)
		}
		if resp.StatusCode == http.StatusOK {
			return resp, nil
		}

		apiErr := r.readError(resp)
		if !apiErr.IsRetryable() || attempt >= r.config.MaxRetries {
			return nil, apiErr
		}

		r.logger.Warn("retrying request", "attempt", attempt+1, "status", apiErr.StatusCode)
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(r.config.RetryDelay * time.Duration(attempt+1)):
		}
	}
}

func (r *requester) readError(resp *http.Response) *APIError {
	defer resp.Body.Close()
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))

	message, code := r.errorMsg(body)
	if message == "" {
		message = string(bytes.TrimSpace(body))
	}
	return &APIError{StatusCode: resp.StatusCode, Message: message, Code: code, Provider: r.provider}
}

func (r *requester) close() {
	r.client.CloseIdleConnections()
	r.stream.CloseIdleConnections()
}
