// Package config loads API credentials for gridscout commands.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
)

// DefaultPath is where credentials are read from when no path is given.
const DefaultPath = "config.json"

// ErrNoVisionKey is returned when no vision API key is available from any source.
var ErrNoVisionKey = errors.New("config: CHATGPT_API_KEY (or OPENAI_API_KEY) is required")

// Credentials holds the API keys read from the local config file.
type Credentials struct {
	OpenAIKey     string `json:"CHATGPT_API_KEY"`
	ElevenLabsKey string `json:"ELEVEN_LABS_API_KEY"`
	GeminiKey     string `json:"GEMINI_API_KEY,omitempty"`
}

// Load reads credentials from a JSON file and applies environment overrides.
// A missing or malformed file is an error; callers are expected to exit.
func Load(path string) (Credentials, error) {
	if path == "" {
		path = DefaultPath
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return Credentials{}, fmt.Errorf("read %s: %w", path, err)
	}

	var c Credentials
	if err := json.Unmarshal(data, &c); err != nil {
		return Credentials{}, fmt.Errorf("parse %s: %w", path, err)
	}

	c.ApplyEnv()
	return c, nil
}

// ApplyEnv overrides file values with OPENAI_API_KEY, ELEVENLABS_API_KEY and GEMINI_API_KEY.
func (c *Credentials) ApplyEnv() {
	if v := os.Getenv("OPENAI_API_KEY"); v != "" {
		c.OpenAIKey = v
	}
	if v := os.Getenv("ELEVENLABS_API_KEY"); v != "" {
		c.ElevenLabsKey = v
	}
	if v := os.Getenv("GEMINI_API_KEY"); v != "" {
		c.GeminiKey = v
	}
}

// Validate checks that the key for the selected vision backend is present.
func (c Credentials) Validate(backend string) error {
	switch backend {
	case "gemini":
		if c.GeminiKey == "" {
			return errors.New("config: GEMINI_API_KEY is required for the gemini backend")
		}
	default:
		if c.OpenAIKey == "" {
			return ErrNoVisionKey
		}
	}
	return nil
}
