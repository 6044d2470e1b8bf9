package llm

import (
	"context"
	"fmt"
	"strings"

	"mlassistant/logger"
	"mlassistant/models"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

const anthropicMaxTokens = 4096

type messageCreator interface {
	New(ctx context.Context, body anthropic.MessageNewParams, opts ...option.RequestOption) (*anthropic.Message, error)
}

type AnthropicGenerator struct {
	messages messageCreator
	model    anthropic.Model
	log      *logger.Logger
}

func NewAnthropicGenerator(apiKey, model string, log *logger.Logger) (*AnthropicGenerator, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("anthropic API key is required")
	}
	client := anthropic.NewClient(option.WithAPIKey(apiKey))

	return &AnthropicGenerator{
		messages: &client.Messages,
		model:    anthropic.Model(model),
		log:      log.With("service", "AnthropicGenerator"),
	}, nil
}

func (g *AnthropicGenerator) Complete(ctx context.Context, messages []models.Message, temperature float64) (string, error) {
	params, err := g.buildParams(messages, temperature)
	if err != nil {
		return "", err
	}

	g.log.Debug("Calling Anthropic API", "model", g.model, "messages", len(params.Messages), "system_blocks", len(params.System))
	response, err := g.messages.New(ctx, params)
	if err != nil {
		g.log.Error("Failed to call Anthropic API", "error", err)
		return "", fmt.Errorf("failed to call Anthropic API: %w", err)
	}

	var text strings.Builder
	for _, block := range response.Content {
		if block.Type == "text" {
			text.WriteString(block.Text)
		}
	}

	g.log.Debug("Anthropic response received", "stop_reason", response.StopReason, "content_blocks", len(response.Content))
	return text.String(), nil
}

// buildParams moves system messages into the top-level system prompt, which is where the
// Messages API expects them.
func (g *AnthropicGenerator) buildParams(messages []models.Message, temperature float64) (anthropic.MessageNewParams, error) {
	var system []anthropic.TextBlockParam
	var anthropicMessages []anthropic.MessageParam

	for _, msg := range messages {
		switch msg.Role {
		case models.RoleSystem:
			system = append(system, anthropic.TextBlockParam{Text: msg.Content})
		case models.RoleUser:
			anthropicMessages = append(anthropicMessages, anthropic.NewUserMessage(anthropic.NewTextBlock(msg.Content)))
		case models.RoleAssistant:
			anthropicMessages = append(anthropicMessages, anthropic.NewAssistantMessage(anthropic.NewTextBlock(msg.Content)))
		default:
			return anthropic.MessageNewParams{}, fmt.Errorf("unsupported message role %q", msg.Role)
		}
	}

	if len(anthropicMessages) == 0 {
		return anthropic.MessageNewParams{}, fmt.Errorf("at least one user or assistant message is required")
	}

	return anthropic.MessageNewParams{
		Model:       g.model,
		MaxTokens:   anthropicMaxTokens,
		System:      system,
		Messages:    anthropicMessages,
		Temperature: anthropic.Float(temperature),
	}, nil
}
