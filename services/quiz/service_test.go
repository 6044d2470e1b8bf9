package quiz

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"mlassistant/logger"
	"mlassistant/models"
	"mlassistant/services/llm/llmtest"

	"github.com/samber/lo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func smallCatalog() *Catalog {
	return NewCatalog([]models.Topic{
		{ID: "1.1", Question: "What is supervised learning?"},
		{ID: "1.2", Question: "Explain the bias-variance tradeoff."},
		{ID: "2.1", Question: "How does gradient descent work?"},
	})
}

func tenTopicCatalog() *Catalog {
	topics := make([]models.Topic, 0, 10)
	for i := 1; i <= 10; i++ {
		topics = append(topics, models.Topic{ID: fmt.Sprintf("%d.1", i), Question: fmt.Sprintf("Question %d", i)})
	}
	return NewCatalog(topics)
}

func ids(topics []models.Topic) []string {
	return lo.Map(topics, func(t models.Topic, _ int) string { return t.ID })
}

func TestSelectTopics_ChapterIsExhaustiveAndOrdered(t *testing.T) {
	svc := NewService(smallCatalog(), llmtest.NewGenerator(), 0.4, logger.Nop())

	chosen, ok := svc.SelectTopics("1", 1)
	require.True(t, ok)
	assert.Equal(t, []string{"1.1", "1.2"}, ids(chosen), "chapter selection is not capped by n")
}

func TestSelectTopics_SectionPrefix(t *testing.T) {
	svc := NewService(smallCatalog(), llmtest.NewGenerator(), 0.4, logger.Nop())

	chosen, ok := svc.SelectTopics("1.2", 5)
	require.True(t, ok)
	assert.Equal(t, []string{"1.2"}, ids(chosen))
}

func TestSelectTopics_RandomSampleWithoutReplacement(t *testing.T) {
	catalog := tenTopicCatalog()
	svc := NewService(catalog, llmtest.NewGenerator(), 0.4, logger.Nop())
	all := ids(catalog.Topics())

	for i := 0; i < 50; i++ {
		chosen, ok := svc.SelectTopics("", 3)
		require.True(t, ok)
		require.Len(t, chosen, 3)

		got := ids(chosen)
		assert.Len(t, lo.Uniq(got), 3, "no repeats")
		assert.Subset(t, all, got)
	}
}

func TestSelectTopics_RandomSampleCappedByPool(t *testing.T) {
	svc := NewService(smallCatalog(), llmtest.NewGenerator(), 0.4, logger.Nop())

	chosen, ok := svc.SelectTopics("", 10)
	require.True(t, ok)
	assert.ElementsMatch(t, []string{"1.1", "1.2", "2.1"}, ids(chosen))
}

func TestSelectTopics_DefaultCount(t *testing.T) {
	svc := NewService(tenTopicCatalog(), llmtest.NewGenerator(), 0.4, logger.Nop())

	chosen, ok := svc.SelectTopics("", 0)
	require.True(t, ok)
	assert.Len(t, chosen, DefaultQuestionCount)
}

func TestGenerateQuiz_EmptyChapter(t *testing.T) {
	gen := llmtest.NewGenerator("should not be used")
	svc := NewService(smallCatalog(), gen, 0.4, logger.Nop())

	out, err := svc.GenerateQuiz(context.Background(), "9", 5)
	require.NoError(t, err)
	assert.Equal(t, "No topics found for chapter 9", out)
	assert.Zero(t, gen.CallCount())
}

func TestGenerateQuiz_SendsTopicBlockAndReturnsVerbatim(t *testing.T) {
	reply := "## Topic 1.1 — Supervised learning\n\n**Reflection:** ...\n"
	gen := llmtest.NewGenerator(reply)
	svc := NewService(smallCatalog(), gen, 0.4, logger.Nop())

	out, err := svc.GenerateQuiz(context.Background(), "1", 5)
	require.NoError(t, err)
	assert.Equal(t, reply, out)

	calls := gen.Calls()
	require.Len(t, calls, 1)
	assert.Equal(t, 0.4, calls[0].Temperature)
	require.Len(t, calls[0].Messages, 2)
	assert.Equal(t, models.NewSystemMessage(quizSystemPrompt), calls[0].Messages[0])
	assert.Equal(t, models.NewUserMessage(
		"1.1 | What is supervised learning?\n\n1.2 | Explain the bias-variance tradeoff.",
	), calls[0].Messages[1])
}

func TestGenerateQuiz_GenerationFailurePropagates(t *testing.T) {
	gen := &llmtest.Generator{Err: errors.New("model offline")}
	svc := NewService(smallCatalog(), gen, 0.4, logger.Nop())

	out, err := svc.GenerateQuiz(context.Background(), "", 2)
	require.Error(t, err)
	assert.Empty(t, out)
	assert.Contains(t, err.Error(), "model offline")
}

func TestRenderTopicBlock(t *testing.T) {
	assert.Equal(t, "", RenderTopicBlock(nil))
	assert.Equal(t, "3.2 | Why normalize features?", RenderTopicBlock([]models.Topic{{ID: "3.2", Question: "Why normalize features?"}}))
}
