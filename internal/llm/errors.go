package llm

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"ledgerchat/internal/config"
)

// ErrMissingCredential means the selected provider has no API key. It is fatal and never retried.
var ErrMissingCredential = config.ErrMissingCredential

// ProviderError wraps a failed provider call with what the provider told us.
type ProviderError struct {
	Provider   string
	Model      string
	StatusCode int    // HTTP status, 0 when unknown
	Status     string // provider status string, e.g. RESOURCE_EXHAUSTED
	Err        error
}

func (e *ProviderError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s %s: status %d: %v", e.Provider, e.Model, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("%s %s: %v", e.Provider, e.Model, e.Err)
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}

var rateLimitMarkers = []string{
	"quota",
	"rate limit",
	"too many requests",
	"resource_exhausted",
	"resource exhausted",
}

var notFoundMarkers = []string{
	"not found",
	"not_found",
}

// IsRateLimit reports whether err looks like a quota or rate-limit rejection.
func IsRateLimit(err error) bool {
	if err == nil {
		return false
	}
	var pe *ProviderError
	if errors.As(err, &pe) {
		if pe.StatusCode == http.StatusTooManyRequests || strings.EqualFold(pe.Status, "RESOURCE_EXHAUSTED") {
			return true
		}
	}
	return containsAny(err.Error(), rateLimitMarkers)
}

// IsModelNotFound reports whether err says the requested model does not exist.
func IsModelNotFound(err error) bool {
	if err == nil {
		return false
	}
	var pe *ProviderError
	if errors.As(err, &pe) {
		if pe.StatusCode == http.StatusNotFound || strings.EqualFold(pe.Status, "NOT_FOUND") {
			return true
		}
	}
	return containsAny(err.Error(), notFoundMarkers)
}

func containsAny(s string, markers []string) bool {
	lower := strings.ToLower(s)
	for _, m := range markers {
		if strings.Contains(lower, m) {
			return true
		}
	}
	return false
}
