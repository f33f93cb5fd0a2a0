package inference

import (
	"log/slog"
	"time"
)

// Defaults for the OpenAI backend.
const (
	DefaultBaseURL     = "https://api.openai.com/v1"
	DefaultVisionModel = "gpt-4o"
	DefaultMaxTokens   = 300
)

// Config is shared by every provider; fields a provider has no use for are ignored.
type Config struct {
	BaseURL string // Empty selects the provider's public endpoint
	APIKey  string

	VisionModel string
	MaxTokens   int // Response budget per request
	JPEGQuality int // Quality of the image payload

	// ImageDetail is sent as image_url.detail ("low", "high", "auto").
	// Empty leaves it to the API.
	ImageDetail string

	Timeout time.Duration

	// No retries unless MaxRetries > 0. Backoff is RetryDelay * attempt.
	MaxRetries int
	RetryDelay time.Duration

	Logger *slog.Logger
}

// Option configures a provider.
type Option func(*Config)

// WithBaseURL points the provider at another endpoint, e.g. a local
// "http://localhost:11434/v1" or a test server.
func WithBaseURL(url string) Option { return func(c *Config) { c.BaseURL = url } }

func WithAPIKey(key string) Option { return func(c *Config) { c.APIKey = key } }

func WithVisionModel(model string) Option { return func(c *Config) { c.VisionModel = model } }

func WithMaxTokens(n int) Option { return func(c *Config) { c.MaxTokens = n } }

func WithJPEGQuality(q int) Option { return func(c *Config) { c.JPEGQuality = q } }

// WithImageDetail asks for a given vision resolution. Grid labels are small,
// so "high" helps on large frames at the cost of more prompt tokens.
func WithImageDetail(detail string) Option { return func(c *Config) { c.ImageDetail = detail } }

func WithTimeout(d time.Duration) Option { return func(c *Config) { c.Timeout = d } }

// WithRetry retries 429 and 5xx answers up to maxRetries times.
func WithRetry(maxRetries int, delay time.Duration) Option {
	return func(c *Config) {
		c.MaxRetries = maxRetries
		c.RetryDelay = delay
	}
}

func WithLogger(l *slog.Logger) Option { return func(c *Config) { c.Logger = l } }

// DefaultConfig returns the OpenAI settings: gpt-4o, 300 tokens, JPEG q85, 60s.
func DefaultConfig() *Config {
	return &Config{
		BaseURL:     DefaultBaseURL,
		VisionModel: DefaultVisionModel,
		MaxTokens:   DefaultMaxTokens,
		JPEGQuality: DefaultJPEGQuality,
		Timeout:     60 * time.Second,
		RetryDelay:  100 * time.Millisecond,
		Logger:      slog.Default(),
	}
}

// Apply applies opts in order.
func (c *Config) Apply(opts ...Option) {
	for _, opt := range opts {
		opt(c)
	}
}
