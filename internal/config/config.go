package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// ErrMissingCredential is returned by Validate when the selected provider has no API key.
var ErrMissingCredential = errors.New("provider credential not configured")

// Config holds all ledgerchat configuration.
type Config struct {
	Name string `yaml:"name"`

	// LLM provider and model selection
	LLM LLMConfig `yaml:"llm"`

	// Retry budgets per call site
	Retry RetryConfig `yaml:"retry"`

	// Knowledge base limits
	Knowledge KnowledgeConfig `yaml:"knowledge"`

	// HTTP API
	Server ServerConfig `yaml:"server"`

	// Logging
	Logging LoggingConfig `yaml:"logging"`
}

// KnowledgeConfig bounds the in-memory knowledge base.
type KnowledgeConfig struct {
	MaxURLs      int   `yaml:"max_urls"`
	MaxFileBytes int64 `yaml:"max_file_bytes"`
	// MultiCompany scopes documents to the active company profile.
	MultiCompany bool   `yaml:"multi_company"`
	WatchDir     string `yaml:"watch_dir"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Addr         string `yaml:"addr"`
	ReadTimeout  string `yaml:"read_timeout"`
	WriteTimeout string `yaml:"write_timeout"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Name: "ledgerchat",

		LLM: LLMConfig{
			Provider:          ProviderGemini,
			Model:             DefaultGeminiModel,
			FallbackModel:     DefaultGeminiFallbackModel,
			Timeout:           "120s",
			RequestsPerSecond: 2,
			Burst:             4,
		},

		Retry: RetryConfig{
			Chat:        CallPolicy{MaxAttempts: 5, BaseDelay: "2s"},
			Suggestions: CallPolicy{MaxAttempts: 2, BaseDelay: "1s"},
			MindMap:     CallPolicy{MaxAttempts: 3, BaseDelay: "2s"},
		},

		Knowledge: KnowledgeConfig{
			MaxURLs:      20,
			MaxFileBytes: 10 * 1024 * 1024,
			MultiCompany: true,
		},

		Server: ServerConfig{
			Addr:         ":8080",
			ReadTimeout:  "30s",
			WriteTimeout: "180s",
		},

		Logging: LoggingConfig{
			Level:     "info",
			Format:    "text",
			DebugMode: false,
		},
	}
}

// Load loads configuration from a YAML file.
// A missing file yields the defaults; environment overrides always apply.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil && !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
		if err == nil {
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("failed to parse config: %w", err)
			}
		}
	}

	cfg.applyEnvOverrides()
	return cfg, nil
}

// Save writes the configuration to a YAML file.
func (c *Config) Save(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

// applyEnvOverrides applies environment variable overrides.
func (c *Config) applyEnvOverrides() {
	// Legacy single key, kept for parity with older deployments
	if key := os.Getenv("API_KEY"); key != "" && c.LLM.GeminiAPIKey == "" {
		c.LLM.GeminiAPIKey = key
	}
	if key := os.Getenv("GEMINI_API_KEY"); key != "" {
		c.LLM.GeminiAPIKey = key
	}
	if key := os.Getenv("OPENAI_API_KEY"); key != "" {
		c.LLM.OpenAIAPIKey = key
	}
	if url := os.Getenv("OPENAI_BASE_URL"); url != "" {
		c.LLM.OpenAIBaseURL = url
	}

	if provider := os.Getenv("LEDGERCHAT_PROVIDER"); provider != "" {
		c.LLM.Provider = provider
	}
	if c.LLM.Provider == ProviderOpenAI && c.LLM.Model == DefaultGeminiModel {
		c.LLM.Model = DefaultOpenAIModel
		c.LLM.FallbackModel = ""
	}
	if model := os.Getenv("LEDGERCHAT_MODEL"); model != "" {
		c.LLM.Model = model
	}
	if addr := os.Getenv("LEDGERCHAT_ADDR"); addr != "" {
		c.Server.Addr = addr
	}
}

// GetLLMTimeout returns the LLM timeout as a duration.
func (c *Config) GetLLMTimeout() time.Duration {
	return parseDuration(c.LLM.Timeout, 120*time.Second)
}

// GetReadTimeout returns the HTTP read timeout.
func (c *Config) GetReadTimeout() time.Duration {
	return parseDuration(c.Server.ReadTimeout, 30*time.Second)
}

// GetWriteTimeout returns the HTTP write timeout. It must outlive a chat call with retries.
func (c *Config) GetWriteTimeout() time.Duration {
	return parseDuration(c.Server.WriteTimeout, 180*time.Second)
}

// ValidProviders lists all supported LLM providers.
var ValidProviders = []string{ProviderGemini, ProviderOpenAI}

// Validate validates the configuration.
func (c *Config) Validate() error {
	validProvider := false
	for _, p := range ValidProviders {
		if c.LLM.Provider == p {
			validProvider = true
			break
		}
	}
	if !validProvider {
		return fmt.Errorf("invalid LLM provider: %s (valid: %v)", c.LLM.Provider, ValidProviders)
	}

	if c.LLM.APIKey() == "" {
		switch c.LLM.Provider {
		case ProviderOpenAI:
			return fmt.Errorf("%w: set OPENAI_API_KEY", ErrMissingCredential)
		default:
			return fmt.Errorf("%w: set GEMINI_API_KEY", ErrMissingCredential)
		}
	}

	if c.Knowledge.MaxURLs <= 0 {
		return fmt.Errorf("knowledge.max_urls must be positive")
	}
	if c.Knowledge.MaxFileBytes <= 0 {
		return fmt.Errorf("knowledge.max_file_bytes must be positive")
	}

	for name, p := range map[string]CallPolicy{
		"chat":        c.Retry.Chat,
		"suggestions": c.Retry.Suggestions,
		"mind_map":    c.Retry.MindMap,
	} {
		if p.MaxAttempts < 1 {
			return fmt.Errorf("retry.%s.max_attempts must be at least 1", name)
		}
	}

	return nil
}

func parseDuration(s string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil {
		return fallback
	}
	return d
}
