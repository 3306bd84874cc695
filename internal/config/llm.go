package config

import "time"

// Provider names.
const (
	ProviderGemini = "gemini"
	ProviderOpenAI = "openai"
)

// Default models. The fallback is only used when the preferred model is reported missing.
const (
	DefaultGeminiModel         = "gemini-2.5-flash"
	DefaultGeminiFallbackModel = "gemini-2.0-flash"
	DefaultOpenAIModel         = "gpt-4o-mini"
)

// LLMConfig configures the generative-AI provider.
type LLMConfig struct {
	Provider string `yaml:"provider"` // gemini, openai

	GeminiAPIKey  string `yaml:"gemini_api_key"`
	OpenAIAPIKey  string `yaml:"openai_api_key"`
	OpenAIBaseURL string `yaml:"openai_base_url"`

	// Model is the preferred model for every call site.
	Model string `yaml:"model"`

	// FallbackModel is tried once when Model is reported as not found.
	FallbackModel string `yaml:"fallback_model"`

	Timeout string `yaml:"timeout"`

	// Client-side pacing in front of the provider
	RequestsPerSecond float64 `yaml:"requests_per_second"`
	Burst             int     `yaml:"burst"`
}

// APIKey returns the credential of the selected provider.
func (c LLMConfig) APIKey() string {
	if c.Provider == ProviderOpenAI {
		return c.OpenAIAPIKey
	}
	return c.GeminiAPIKey
}

// RetryConfig holds the retry budget of each call site.
// Chat gets the largest budget; suggestions are best-effort and fail fast.
type RetryConfig struct {
	Chat        CallPolicy `yaml:"chat"`
	Suggestions CallPolicy `yaml:"suggestions"`
	MindMap     CallPolicy `yaml:"mind_map"`
}

// CallPolicy is the retry budget of one call site.
type CallPolicy struct {
	MaxAttempts int    `yaml:"max_attempts"`
	BaseDelay   string `yaml:"base_delay"`
}

// GetBaseDelay returns the first backoff delay, defaulting to one second.
func (p CallPolicy) GetBaseDelay() time.Duration {
	return parseDuration(p.BaseDelay, time.Second)
}
