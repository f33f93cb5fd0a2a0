package inference

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/teslashibe/gridscout/internal/log"
)

func TestNewGeminiRequiresKey(t *testing.T) {
	_, err := NewGemini(context.Background(), WithLogger(log.Discard()))
	if !errors.Is(err, ErrNoAPIKey) {
		t.Errorf("expected ErrNoAPIKey, got %v", err)
	}
}

func TestGeminiVision(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/models/"+DefaultGeminiModel+":generateContent") {
			t.Errorf("unexpected path %s", r.URL.Path)
		}

		var body struct {
			Contents []struct {
				Role  string `json:"role"`
				Parts []struct {
					Text       string `json:"text"`
					InlineData *struct {
						MIMEType string `json:"mimeType"`
					} `json:"inlineData"`
				} `json:"parts"`
			} `json:"contents"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		if len(body.Contents) != 1 || len(body.Contents[0].Parts) != 2 {
			t.Fatalf("unexpected contents: %+v", body.Contents)
		}
		if body.Contents[0].Parts[0].Text != "Describe the image" {
			t.Errorf("prompt = %q", body.Contents[0].Parts[0].Text)
		}
		if d := body.Contents[0].Parts[1].InlineData; d == nil || d.MIMEType != "image/jpeg" {
			t.Errorf("expected inline JPEG, got %+v", d)
		}

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"candidates": [{"content": {"role": "model", "parts": [{"text": "A red square."}]}, "finishReason": "STOP"}],
			"usageMetadata": {"promptTokenCount": 260, "candidatesTokenCount": 5, "totalTokenCount": 265}
		}`))
	}))
	defer server.Close()

	g, err := NewGemini(context.Background(),
		WithAPIKey("test-key"),
		WithBaseURL(server.URL),
		WithLogger(log.Discard()),
	)
	if err != nil {
		t.Fatalf("NewGemini: %v", err)
	}
	defer g.Close()

	resp, err := g.Vision(context.Background(), &VisionRequest{
		Image:  testImage(),
		Prompt: "Describe the image",
	})
	if err != nil {
		t.Fatalf("Vision failed: %v", err)
	}
	if resp.Content != "A red square." {
		t.Errorf("Content = %q", resp.Content)
	}
	if resp.Usage.TotalTokens != 265 {
		t.Errorf("TotalTokens = %d, want 265", resp.Usage.TotalTokens)
	}
}

func TestGeminiAPIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"error": {"code": 400, "message": "Image too large", "status": "INVALID_ARGUMENT"}}`))
	}))
	defer server.Close()

	g, err := NewGemini(context.Background(),
		WithAPIKey("test-key"),
		WithBaseURL(server.URL),
		WithLogger(log.Discard()),
	)
	if err != nil {
		t.Fatalf("NewGemini: %v", err)
	}

	_, err = g.Vision(context.Background(), &VisionRequest{Image: testImage(), Prompt: "x"})

	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected *APIError, got %T: %v", err, err)
	}
	if apiErr.StatusCode != http.StatusBadRequest || apiErr.Code != "INVALID_ARGUMENT" {
		t.Errorf("got %+v", apiErr)
	}
	if apiErr.Provider != providerGemini || apiErr.IsRetryable() {
		t.Errorf("unexpected provider/retryable: %+v", apiErr)
	}
}
