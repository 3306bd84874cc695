package llm

import (
	"context"
	"fmt"
	"time"

	"ledgerchat/internal/config"
	"ledgerchat/internal/logging"
)

// NewClient builds the provider client selected in cfg. It is called once at process
// start; a missing credential returns ErrMissingCredential before any network use.
func NewClient(ctx context.Context, cfg config.LLMConfig, timeout time.Duration) (Client, error) {
	var (
		client Client
		err    error
	)

	switch cfg.Provider {
	case config.ProviderGemini, "":
		client, err = NewGeminiClient(ctx, GeminiConfig{
			APIKey:  cfg.GeminiAPIKey,
			Timeout: timeout,
		})
	case config.ProviderOpenAI:
		client, err = NewOpenAIClient(OpenAIConfig{
			APIKey:  cfg.OpenAIAPIKey,
			BaseURL: cfg.OpenAIBaseURL,
			Timeout: timeout,
		})
	default:
		return nil, fmt.Errorf("unsupported provider: %s (valid: %v)", cfg.Provider, config.ValidProviders)
	}
	if err != nil {
		return nil, err
	}

	if cfg.RequestsPerSecond > 0 {
		logging.BootDebug("pacing %s at %.2f req/s burst %d", client.Provider(), cfg.RequestsPerSecond, cfg.Burst)
		client = NewPacedClient(client, cfg.RequestsPerSecond, cfg.Burst)
	}

	logging.Boot("LLM client ready: provider=%s model=%s fallback=%s", client.Provider(), cfg.Model, cfg.FallbackModel)
	return client, nil
}
