package llm

import (
	"context"
	"fmt"

	"mlassistant/config"
	"mlassistant/logger"
	"mlassistant/models"
)

// Generator completes a role-tagged conversation. Implementations must not retry.
type Generator interface {
	Complete(ctx context.Context, messages []models.Message, temperature float64) (string, error)
}

// New builds the generator selected by cfg.LLMProvider.
func New(cfg *config.Config, log *logger.Logger) (Generator, error) {
	switch cfg.LLMProvider {
	case config.ProviderOpenAI:
		return NewLangChainGenerator(cfg.OpenAIAPIKey, cfg.OpenAIBaseURL, cfg.ChatModel, log)
	case config.ProviderAnthropic:
		return NewAnthropicGenerator(cfg.AnthropicAPIKey, cfg.AnthropicModel, log)
	default:
		return nil, fmt.Errorf("unsupported LLM provider %q", cfg.LLMProvider)
	}
}
