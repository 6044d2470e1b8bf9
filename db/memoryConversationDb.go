package db

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"mlassistant/models"
)

// MemoryConversationRepository keeps conversations in process. Used when DB_URL is unset and in tests.
type MemoryConversationRepository struct {
	mu            sync.RWMutex
	conversations map[string]*models.Conversation
	now           func() time.Time
}

func NewMemoryConversationRepository() *MemoryConversationRepository {
	return &MemoryConversationRepository{
		conversations: make(map[string]*models.Conversation),
		now:           time.Now,
	}
}

func (r *MemoryConversationRepository) CreateConversation(ctx context.Context, conv *models.Conversation) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.conversations[conv.ID]; exists {
		return fmt.Errorf("failed to create conversation: id %s already exists", conv.ID)
	}

	now := r.now()
	conv.CreatedAt = now
	conv.UpdatedAt = now
	r.conversations[conv.ID] = copyConversation(conv, true)
	return nil
}

func (r *MemoryConversationRepository) GetConversation(ctx context.Context, id string) (*models.Conversation, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	conv, ok := r.conversations[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrConversationNotFound, id)
	}
	return copyConversation(conv, true), nil
}

func (r *MemoryConversationRepository) ListConversations(ctx context.Context) ([]*models.Conversation, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	conversations := make([]*models.Conversation, 0, len(r.conversations))
	for _, conv := range r.conversations {
		conversations = append(conversations, copyConversation(conv, false))
	}
	sort.SliceStable(conversations, func(i, j int) bool {
		if conversations[i].UpdatedAt.Equal(conversations[j].UpdatedAt) {
			return conversations[i].ID < conversations[j].ID
		}
		return conversations[i].UpdatedAt.After(conversations[j].UpdatedAt)
	})
	return conversations, nil
}

func (r *MemoryConversationRepository) AppendMessage(ctx context.Context, id string, msg models.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	conv, ok := r.conversations[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrConversationNotFound, id)
	}
	conv.State.Messages = append(conv.State.Messages, msg)
	conv.UpdatedAt = r.now()
	return nil
}

func (r *MemoryConversationRepository) CompleteTurn(ctx context.Context, id string, reply models.Message, route models.Route, chapter string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	conv, ok := r.conversations[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrConversationNotFound, id)
	}
	conv.State.Messages = append(conv.State.Messages, reply)
	conv.State.Route = route
	conv.State.Chapter = chapter
	conv.UpdatedAt = r.now()
	return nil
}

func (r *MemoryConversationRepository) DeleteConversation(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.conversations[id]; !ok {
		return fmt.Errorf("%w: %s", ErrConversationNotFound, id)
	}
	delete(r.conversations, id)
	return nil
}

func (r *MemoryConversationRepository) Close() error {
	return nil
}

func copyConversation(conv *models.Conversation, withMessages bool) *models.Conversation {
	out := *conv
	if withMessages {
		out.State.Messages = append([]models.Message{}, conv.State.Messages...)
	} else {
		out.State.Messages = nil
	}
	return &out
}
