// Package inference sends images and prompts to remote vision-language models.
//
// Providers share one interface so the caller can switch between an
// OpenAI-compatible endpoint and Gemini without changing code.
//
// Example usage:
//
//	client, _ := inference.NewClient(
//	    inference.WithAPIKey(os.Getenv("OPENAI_API_KEY")),
//	    inference.WithVisionModel("gpt-4o"),
//	)
//	defer client.Close()
//
//	resp, _ := client.Vision(ctx, &inference.VisionRequest{
//	    Image:  frame,
//	    Prompt: "Under what letter is the door?",
//	})
package inference

import (
	"context"
	"image"
)

// Provider is the vision inference interface.
type Provider interface {
	// Vision answers a prompt about an image.
	Vision(ctx context.Context, req *VisionRequest) (*VisionResponse, error)

	// Health checks provider connectivity and API key validity.
	Health(ctx context.Context) error

	// Close releases any resources held by the provider.
	Close() error
}

// VisionRequest for image analysis.
type VisionRequest struct {
	// Image to analyze. Sent as a base64 JPEG.
	Image image.Image

	// Prompt describing what to analyze or ask about the image.
	Prompt string

	// Model overrides the default vision model.
	Model string

	// MaxTokens caps the response length. Zero uses the provider default.
	MaxTokens int
}

// VisionResponse from image analysis.
type VisionResponse struct {
	// Content is the natural language response.
	Content string

	// FinishReason indicates why generation stopped (stop, length).
	FinishReason string

	// Usage tracks token consumption.
	Usage Usage

	// Model used for analysis.
	Model string

	// LatencyMs is the response time in milliseconds.
	LatencyMs int64
}

// Usage tracks token consumption for billing and limits.
type Usage struct {
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
}
