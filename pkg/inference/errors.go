package inference

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	ErrNoAPIKey            = errors.New("inference: API key required")
	ErrNoImage             = errors.New("inference: image required")
	ErrNoChoices           = errors.New("inference: no choices returned")
	ErrProviderUnavailable = errors.New("inference: provider unavailable")
)

// APIError is a non-success answer from a vision API, normalized across
// providers so callers can branch on the status alone.
type APIError struct {
	Provider   string
	StatusCode int
	Code       string // Provider error code or status name, may be empty
	Message    string
}

func (e *APIError) Error() string {
	msg := fmt.Sprintf("inference [%s]: %d %s", e.Provider, e.StatusCode, http.StatusText(e.StatusCode))
	if e.Code != "" {
		msg += " (" + e.Code + ")"
	}
	if e.Message != "" {
		msg += ": " + e.Message
	}
	return msg
}

// IsRateLimited reports a 429, usually quota exhaustion for vision models.
func (e *APIError) IsRateLimited() bool { return e.StatusCode == http.StatusTooManyRequests }

// IsUnauthorized reports a rejected API key.
func (e *APIError) IsUnauthorized() bool {
	return e.StatusCode == http.StatusUnauthorized || e.StatusCode == http.StatusForbidden
}

// IsRetryable reports whether the same request may succeed later.
func (e *APIError) IsRetryable() bool {
	switch {
	case e.IsRateLimited(), e.StatusCode >= 500:
		return true
	default:
		return false
	}
}

// ProviderError tags an error with the provider that produced it.
type ProviderError struct {
	Provider string
	Err      error
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("inference [%s]: %v", e.Provider, e.Err)
}

func (e *ProviderError) Unwrap() error { return e.Err }

// WrapError returns nil for a nil err. API errors are returned as is since
// they already name their provider.
func WrapError(provider string, err error) error {
	if err == nil {
		return nil
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return err
	}
	return &ProviderError{Provider: provider, Err: err}
}
