package llm

import (
	"context"
	"fmt"

	"mlassistant/logger"
	"mlassistant/models"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"
)

// LangChainGenerator talks to OpenAI, or any OpenAI-compatible endpoint such as Groq.
type LangChainGenerator struct {
	llm llms.Model
	log *logger.Logger
}

func NewLangChainGenerator(apiKey, baseURL, model string, log *logger.Logger) (*LangChainGenerator, error) {
	opts := []openai.Option{
		openai.WithModel(model),
		openai.WithToken(apiKey),
	}
	if baseURL != "" {
		opts = append(opts, openai.WithBaseURL(baseURL))
	}

	client, err := openai.New(opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create OpenAI client: %w", err)
	}

	return NewLangChainGeneratorFromModel(client, log), nil
}

func NewLangChainGeneratorFromModel(model llms.Model, log *logger.Logger) *LangChainGenerator {
	return &LangChainGenerator{
		llm: model,
		log: log.With("service", "LangChainGenerator"),
	}
}

func (g *LangChainGenerator) Complete(ctx context.Context, messages []models.Message, temperature float64) (string, error) {
	history := make([]llms.MessageContent, 0, len(messages))
	for _, msg := range messages {
		role, err := chatMessageType(msg.Role)
		if err != nil {
			return "", err
		}
		history = append(history, llms.TextParts(role, msg.Content))
	}

	g.log.Debug("Calling LLM", "messages", len(history), "temperature", temperature)
	resp, err := g.llm.GenerateContent(ctx, history, llms.WithTemperature(temperature))
	if err != nil {
		g.log.Error("LLM call failed", "error", err)
		return "", fmt.Errorf("failed to generate LLM response: %w", err)
	}

	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("no choices in LLM response")
	}

	return resp.Choices[0].Content, nil
}

func chatMessageType(role models.Role) (llms.ChatMessageType, error) {
	switch role {
	case models.RoleSystem:
		return llms.ChatMessageTypeSystem, nil
	case models.RoleUser:
		return llms.ChatMessageTypeHuman, nil
	case models.RoleAssistant:
		return llms.ChatMessageTypeAI, nil
	default:
		return "", fmt.Errorf("unsupported message role %q", role)
	}
}
