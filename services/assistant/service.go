package assistant

import (
	"context"
	"errors"
	"fmt"

	"mlassistant/logger"
	"mlassistant/models"
	"mlassistant/services/llm"
)

var (
	ErrEmptyConversation = errors.New("conversation has no messages")
	ErrNoUserMessage     = errors.New("last message is not from the user")
	ErrUnknownRoute      = errors.New("unknown route")
)

type Classifier interface {
	Classify(ctx context.Context, query string) (models.RouteDecision, error)
}

type Retriever interface {
	Search(ctx context.Context, query string) (string, error)
}

type QuizGenerator interface {
	GenerateQuiz(ctx context.Context, chapter string, n int) (string, error)
}

type Stage string

const (
	StageRouting    Stage = "routing"
	StageRetrieving Stage = "retrieving"
	StageExplaining Stage = "explaining"
	StageQuizzing   Stage = "quizzing"
	StageDone       Stage = "done"
)

var routeStages = map[models.Route]Stage{
	models.RouteRAGQuery:           StageRetrieving,
	models.RouteGeneralExplanation: StageExplaining,
	models.RouteQuizRequest:        StageQuizzing,
}

type Options struct {
	TeacherTemperature float64
	QuizQuestionCount  int
}

type Service struct {
	classifier Classifier
	retriever  Retriever
	quiz       QuizGenerator
	llm        llm.Generator
	opts       Options
	log        *logger.Logger
}

func NewService(classifier Classifier, retriever Retriever, quiz QuizGenerator, generator llm.Generator, opts Options, log *logger.Logger) *Service {
	return &Service{
		classifier: classifier,
		retriever:  retriever,
		quiz:       quiz,
		llm:        generator,
		opts:       opts,
		log:        log.With("service", "AssistantService"),
	}
}

// Invoke runs one turn: route the latest user message, produce exactly one assistant reply and
// return the extended state. The input state is never modified. On error the returned state is
// the input unchanged.
func (s *Service) Invoke(ctx context.Context, state models.ConversationState) (models.ConversationState, error) {
	s.log.Info("Starting turn", "messages", len(state.Messages), "stage", StageRouting)

	last, ok := state.LastMessage()
	if !ok {
		return state, ErrEmptyConversation
	}
	if last.Role != models.RoleUser {
		return state, fmt.Errorf("%w: got %q", ErrNoUserMessage, last.Role)
	}

	decision, err := s.classifier.Classify(ctx, last.Content)
	if err != nil {
		s.log.Error("Routing failed", "error", err)
		return state, fmt.Errorf("failed to route message: %w", err)
	}

	next := state.Clone()
	next.Route = decision.Type
	next.Chapter = decision.Chapter

	stage, ok := routeStages[next.Route]
	if !ok {
		s.log.Error("Classifier returned a route with no handler", "route", next.Route)
		return state, fmt.Errorf("%w: %q", ErrUnknownRoute, next.Route)
	}
	s.log.Info("Router decided", "route", next.Route, "chapter", next.Chapter, "stage", stage)

	reply, err := s.runStage(ctx, stage, next, last.Content)
	if err != nil {
		s.log.Error("Stage failed", "stage", stage, "error", err)
		return state, err
	}

	next.Messages = append(next.Messages, models.NewAssistantMessage(reply))
	s.log.Info("Turn completed", "stage", StageDone, "messages", len(next.Messages))
	return next, nil
}

func (s *Service) runStage(ctx context.Context, stage Stage, state models.ConversationState, query string) (string, error) {
	switch stage {
	case StageRetrieving:
		return s.answerFromCourse(ctx, state, query)
	case StageExplaining:
		return s.explain(ctx, state)
	case StageQuizzing:
		return s.generateQuiz(ctx, state)
	default:
		return "", fmt.Errorf("%w: no handler for stage %q", ErrUnknownRoute, stage)
	}
}

func (s *Service) answerFromCourse(ctx context.Context, state models.ConversationState, query string) (string, error) {
	courseContext, err := s.retriever.Search(ctx, query)
	if err != nil {
		return "", fmt.Errorf("failed to search course documents: %w", err)
	}

	system := models.NewSystemMessage(fmt.Sprintf(courseContextPrompt, courseContext))
	reply, err := s.llm.Complete(ctx, withSystem(system, state.Messages), s.opts.TeacherTemperature)
	if err != nil {
		return "", fmt.Errorf("failed to generate course answer: %w", err)
	}
	return reply, nil
}

func (s *Service) explain(ctx context.Context, state models.ConversationState) (string, error) {
	system := models.NewSystemMessage(generalExplanationPrompt)
	reply, err := s.llm.Complete(ctx, withSystem(system, state.Messages), s.opts.TeacherTemperature)
	if err != nil {
		return "", fmt.Errorf("failed to generate explanation: %w", err)
	}
	return reply, nil
}

func (s *Service) generateQuiz(ctx context.Context, state models.ConversationState) (string, error) {
	quiz, err := s.quiz.GenerateQuiz(ctx, state.Chapter, s.opts.QuizQuestionCount)
	if err != nil {
		return "", fmt.Errorf("failed to generate quiz: %w", err)
	}
	return quiz, nil
}

func withSystem(system models.Message, history []models.Message) []models.Message {
	out := make([]models.Message, 0, len(history)+1)
	out = append(out, system)
	return append(out, history...)
}
