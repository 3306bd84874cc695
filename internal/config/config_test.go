package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// =============================================================================
// UNIFIED CONFIG TESTS
// =============================================================================

func clearLLMEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{"API_KEY", "GEMINI_API_KEY", "OPENAI_API_KEY", "OPENAI_BASE_URL", "LEDGERCHAT_PROVIDER", "LEDGERCHAT_MODEL", "LEDGERCHAT_ADDR"} {
		t.Setenv(key, "")
	}
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	if cfg.Name != "ledgerchat" {
		t.Errorf("expected Name=ledgerchat, got %s", cfg.Name)
	}
	if cfg.LLM.Provider != ProviderGemini {
		t.Errorf("expected Provider=gemini, got %s", cfg.LLM.Provider)
	}
	if cfg.Knowledge.MaxURLs != 20 {
		t.Errorf("expected MaxURLs=20, got %d", cfg.Knowledge.MaxURLs)
	}
	if cfg.Knowledge.MaxFileBytes != 10*1024*1024 {
		t.Errorf("expected MaxFileBytes=10MiB, got %d", cfg.Knowledge.MaxFileBytes)
	}
	if cfg.Retry.Chat.MaxAttempts <= cfg.Retry.Suggestions.MaxAttempts {
		t.Errorf("chat budget (%d) should exceed suggestions budget (%d)", cfg.Retry.Chat.MaxAttempts, cfg.Retry.Suggestions.MaxAttempts)
	}
}

func TestConfig_SaveLoad(t *testing.T) {
	clearLLMEnv(t)

	path := filepath.Join(t.TempDir(), "ledgerchat.yaml")

	cfg := DefaultConfig()
	cfg.LLM.Provider = ProviderOpenAI
	cfg.LLM.OpenAIAPIKey = "sk-test"
	cfg.LLM.Model = "gpt-4o"
	cfg.Retry.Chat.BaseDelay = "3s"

	require.NoError(t, cfg.Save(path))

	loaded, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, ProviderOpenAI, loaded.LLM.Provider)
	assert.Equal(t, "sk-test", loaded.LLM.OpenAIAPIKey)
	assert.Equal(t, "gpt-4o", loaded.LLM.Model)
	assert.Equal(t, 3*time.Second, loaded.Retry.Chat.GetBaseDelay())
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	clearLLMEnv(t)

	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig().Server.Addr, cfg.Server.Addr)
}

func TestLoad_InvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "broken.yaml")
	require.NoError(t, os.WriteFile(path, []byte("llm: [unterminated"), 0644))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestGetTimeouts_Fallbacks(t *testing.T) {
	cfg := &Config{}
	assert.Equal(t, 120*time.Second, cfg.GetLLMTimeout())
	assert.Equal(t, 30*time.Second, cfg.GetReadTimeout())
	assert.Equal(t, 180*time.Second, cfg.GetWriteTimeout())

	cfg.LLM.Timeout = "5s"
	assert.Equal(t, 5*time.Second, cfg.GetLLMTimeout())
}

func TestValidate(t *testing.T) {
	t.Run("missing gemini key is a credential error", func(t *testing.T) {
		cfg := DefaultConfig()
		err := cfg.Validate()
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrMissingCredential))
		assert.Contains(t, err.Error(), "GEMINI_API_KEY")
	})

	t.Run("missing openai key names the right variable", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.LLM.Provider = ProviderOpenAI
		cfg.LLM.GeminiAPIKey = "unused"
		err := cfg.Validate()
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrMissingCredential))
		assert.Contains(t, err.Error(), "OPENAI_API_KEY")
	})

	t.Run("unknown provider", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.LLM.Provider = "zai"
		assert.Error(t, cfg.Validate())
	})

	t.Run("zero retry budget", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.LLM.GeminiAPIKey = "key"
		cfg.Retry.Suggestions.MaxAttempts = 0
		assert.Error(t, cfg.Validate())
	})

	t.Run("valid", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.LLM.GeminiAPIKey = "key"
		assert.NoError(t, cfg.Validate())
	})
}

func TestLoggingConfig_IsCategoryEnabled(t *testing.T) {
	cfg := LoggingConfig{}
	assert.True(t, cfg.IsCategoryEnabled("api"))

	cfg.Categories = map[string]bool{"api": false}
	assert.False(t, cfg.IsCategoryEnabled("api"))
	assert.True(t, cfg.IsCategoryEnabled("server"))
}
