package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"mlassistant/db"
	"mlassistant/logger"
	"mlassistant/models"

	"github.com/google/uuid"
)

const defaultConversationTitle = "New conversation"

var ErrEmptyMessage = errors.New("message content is required")

// Invoker runs one assistant turn over a conversation state.
type Invoker interface {
	Invoke(ctx context.Context, state models.ConversationState) (models.ConversationState, error)
}

type ConversationService struct {
	repo      db.ConversationRepository
	assistant Invoker
	locks     *keyedMutex
	log       *logger.Logger
}

func NewConversationService(repo db.ConversationRepository, assistant Invoker, log *logger.Logger) *ConversationService {
	return &ConversationService{
		repo:      repo,
		assistant: assistant,
		locks:     newKeyedMutex(),
		log:       log.With("service", "ConversationService"),
	}
}

func (s *ConversationService) CreateConversation(ctx context.Context, req *models.CreateConversationRequest) (*models.Conversation, error) {
	title := strings.TrimSpace(req.Title)
	if title == "" {
		title = defaultConversationTitle
	}

	conv := &models.Conversation{
		ID:    uuid.NewString(),
		Title: title,
		State: models.ConversationState{Messages: []models.Message{}},
	}
	if err := s.repo.CreateConversation(ctx, conv); err != nil {
		s.log.Error("Failed to create conversation", "error", err)
		return nil, fmt.Errorf("failed to create conversation: %w", err)
	}

	s.log.Info("Created conversation", "conversation_id", conv.ID)
	return conv, nil
}

func (s *ConversationService) GetConversation(ctx context.Context, id string) (*models.Conversation, error) {
	return s.repo.GetConversation(ctx, id)
}

func (s *ConversationService) ListConversations(ctx context.Context) ([]*models.Conversation, error) {
	conversations, err := s.repo.ListConversations(ctx)
	if err != nil {
		s.log.Error("Failed to list conversations", "error", err)
		return nil, err
	}
	return conversations, nil
}

func (s *ConversationService) DeleteConversation(ctx context.Context, id string) error {
	unlock := s.locks.Lock(id)
	defer unlock()

	if err := s.repo.DeleteConversation(ctx, id); err != nil {
		return err
	}
	s.log.Info("Deleted conversation", "conversation_id", id)
	return nil
}

// SendMessage runs one turn for the conversation. Turns on the same conversation run one at a
// time. The user message is stored before the assistant runs, so a failed turn keeps it and
// stores no reply.
func (s *ConversationService) SendMessage(ctx context.Context, id string, req *models.SendMessageRequest) (*models.Conversation, error) {
	content := strings.TrimSpace(req.Content)
	if content == "" {
		return nil, ErrEmptyMessage
	}

	unlock := s.locks.Lock(id)
	defer unlock()

	conv, err := s.repo.GetConversation(ctx, id)
	if err != nil {
		return nil, err
	}

	userMsg := models.NewUserMessage(content)
	if err := s.repo.AppendMessage(ctx, id, userMsg); err != nil {
		return nil, err
	}
	conv.State.Messages = append(conv.State.Messages, userMsg)

	s.log.Info("Running turn", "conversation_id", id, "messages", len(conv.State.Messages))
	next, err := s.assistant.Invoke(ctx, conv.State)
	if err != nil {
		s.log.Error("Turn failed", "conversation_id", id, "error", err)
		return nil, err
	}

	reply, ok := next.LastMessage()
	if !ok || reply.Role != models.RoleAssistant {
		return nil, fmt.Errorf("assistant returned no reply for conversation %s", id)
	}
	if err := s.repo.CompleteTurn(ctx, id, reply, next.Route, next.Chapter); err != nil {
		s.log.Error("Failed to store reply", "conversation_id", id, "error", err)
		return nil, err
	}

	return s.repo.GetConversation(ctx, id)
}

// keyedMutex hands out one mutex per key and forgets keys nobody holds or waits on.
type keyedMutex struct {
	mu    sync.Mutex
	locks map[string]*refMutex
}

type refMutex struct {
	sync.Mutex
	refs int
}

func newKeyedMutex() *keyedMutex {
	return &keyedMutex{locks: make(map[string]*refMutex)}
}

func (k *keyedMutex) Lock(key string) (unlock func()) {
	k.mu.Lock()
	m, ok := k.locks[key]
	if !ok {
		m = &refMutex{}
		k.locks[key] = m
	}
	m.refs++
	k.mu.Unlock()

	m.Lock()
	return func() {
		m.Unlock()
		k.mu.Lock()
		m.refs--
		if m.refs == 0 {
			delete(k.locks, key)
		}
		k.mu.Unlock()
	}
}
