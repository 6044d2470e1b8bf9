package router

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"mlassistant/logger"
	"mlassistant/models"
	"mlassistant/services/llm"

	"github.com/samber/lo"
)

var enumerationPrefix = regexp.MustCompile(`^\s*\d+[.):\-]\s*`)

type Classifier struct {
	llm         llm.Generator
	temperature float64
	log         *logger.Logger
}

func NewClassifier(generator llm.Generator, temperature float64, log *logger.Logger) *Classifier {
	return &Classifier{
		llm:         generator,
		temperature: temperature,
		log:         log.With("service", "Classifier"),
	}
}

// Classify picks the response strategy for a student message. Quiz requests are detected by
// keyword before any model call; everything else is labelled by the model and normalized.
func (c *Classifier) Classify(ctx context.Context, query string) (models.RouteDecision, error) {
	chapter, _ := ExtractChapter(query)

	if isQuizRequest(query) {
		c.log.Info("Routed by keyword", "route", models.RouteQuizRequest, "chapter", chapter)
		return models.RouteDecision{Type: models.RouteQuizRequest, Chapter: chapter}, nil
	}

	raw, err := c.llm.Complete(ctx, []models.Message{
		models.NewSystemMessage(classifierSystemPrompt),
		models.NewUserMessage(query),
	}, c.temperature)
	if err != nil {
		return models.RouteDecision{}, fmt.Errorf("failed to classify query: %w", err)
	}

	route := CleanLabel(raw)
	c.log.Info("Routed by model", "raw_label", raw, "route", route, "chapter", chapter)
	return models.RouteDecision{Type: route, Chapter: chapter}, nil
}

func isQuizRequest(query string) bool {
	lower := strings.ToLower(query)
	return lo.SomeBy(quizKeywords, func(keyword string) bool {
		return strings.Contains(lower, keyword)
	})
}

// CleanLabel maps free-form classifier output onto a valid route. It never fails: anything it
// cannot recognize becomes general_explanation.
func CleanLabel(raw string) models.Route {
	label := strings.ToLower(strings.TrimSpace(raw))
	label = enumerationPrefix.ReplaceAllString(label, "")
	label = strings.TrimSpace(strings.ReplaceAll(label, "*", ""))

	switch {
	case containsAny(label, "rag", "document", "course"):
		return models.RouteRAGQuery
	case containsAny(label, "general", "explanation"):
		return models.RouteGeneralExplanation
	case containsAny(label, "quiz", "test", "practice"):
		return models.RouteQuizRequest
	default:
		return models.RouteGeneralExplanation
	}
}

func containsAny(s string, substrs ...string) bool {
	return lo.SomeBy(substrs, func(sub string) bool {
		return strings.Contains(s, sub)
	})
}
