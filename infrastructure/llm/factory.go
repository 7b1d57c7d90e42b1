package llm

import (
	"fmt"

	"go.uber.org/zap"

	"eden-backend/application/ports"
	"eden-backend/infrastructure/config"
	"eden-backend/pkg/observability"
)

// NewProviderFromConfig builds the configured provider wrapped in the
// resilience guards.
func NewProviderFromConfig(cfg *config.Config, metrics *observability.Collector, logger *zap.Logger) (ports.LLMProvider, error) {
	var inner ports.LLMProvider
	switch cfg.LLMProvider {
	case config.ProviderAnthropic:
		inner = NewAnthropicProvider(cfg.AnthropicAPIKey, cfg.LLMModel, "", cfg.LLMTimeout)
	case config.ProviderOpenAI:
		inner = NewOpenAIProvider(cfg.OpenAIAPIKey, cfg.LLMModel, cfg.OpenAIBaseURL)
	case config.ProviderLocal:
		inner = NewLocalProvider()
	default:
		return nil, fmt.Errorf("unknown LLM provider %q", cfg.LLMProvider)
	}

	rc := DefaultResilienceConfig()
	rc.Timeout = cfg.LLMTimeout
	rc.RequestsPerSecond = cfg.LLMRequestsPerSecond
	if cfg.LLMProvider == config.ProviderLocal {
		rc.RequestsPerSecond = 0
	}

	logger.Info("LLM provider configured",
		zap.String("provider", inner.Name()),
		zap.String("model", cfg.LLMModel),
	)
	return NewResilientProvider(inner, rc, metrics, logger), nil
}
