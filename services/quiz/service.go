package quiz

import (
	"context"
	"fmt"
	"strings"

	"mlassistant/logger"
	"mlassistant/models"
	"mlassistant/services/llm"

	"github.com/samber/lo"
)

const DefaultQuestionCount = 5

type Service struct {
	catalog     *Catalog
	llm         llm.Generator
	temperature float64
	log         *logger.Logger
}

func NewService(catalog *Catalog, generator llm.Generator, temperature float64, log *logger.Logger) *Service {
	return &Service{
		catalog:     catalog,
		llm:         generator,
		temperature: temperature,
		log:         log.With("service", "QuizService"),
	}
}

// GenerateQuiz builds a quiz for chapter, or a random quiz of n topics when chapter is empty.
// A chapter with no topics is reported in the returned text, not as an error.
func (s *Service) GenerateQuiz(ctx context.Context, chapter string, n int) (string, error) {
	s.log.Info("Starting quiz generation", "chapter", chapter, "question_count", n)

	chosen, ok := s.SelectTopics(chapter, n)
	if !ok {
		s.log.Warn("No topics found for chapter", "chapter", chapter)
		return fmt.Sprintf("No topics found for chapter %s", chapter), nil
	}

	s.log.Info("Selected quiz topics", "count", len(chosen), "ids", lo.Map(chosen, func(t models.Topic, _ int) string { return t.ID }))

	quiz, err := s.llm.Complete(ctx, []models.Message{
		models.NewSystemMessage(quizSystemPrompt),
		models.NewUserMessage(RenderTopicBlock(chosen)),
	}, s.temperature)
	if err != nil {
		s.log.Error("Failed to generate quiz", "error", err)
		return "", fmt.Errorf("failed to generate quiz: %w", err)
	}

	s.log.Info("Successfully generated quiz", "length", len(quiz))
	return quiz, nil
}

// SelectTopics applies the selection policy. A chapter request returns every matching topic
// in catalog order regardless of n. Without a chapter, min(n, catalog size) distinct topics
// are sampled at random and their sampled order is kept. ok is false when nothing matches.
func (s *Service) SelectTopics(chapter string, n int) ([]models.Topic, bool) {
	if n <= 0 {
		n = DefaultQuestionCount
	}

	pool := s.catalog.ByChapter(chapter)
	if len(pool) == 0 {
		return nil, false
	}

	if chapter != "" {
		return pool, true
	}
	return lo.Samples(pool, min(n, len(pool))), true
}

func RenderTopicBlock(topics []models.Topic) string {
	lines := lo.Map(topics, func(t models.Topic, _ int) string {
		return fmt.Sprintf("%s | %s", t.ID, t.Question)
	})
	return strings.Join(lines, "\n\n")
}
