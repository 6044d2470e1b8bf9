package models

import "time"

// ConversationState is what the assistant reads and returns for one turn.
// Messages is in conversation order; Route and Chapter describe the latest turn only.
type ConversationState struct {
	Messages []Message `json:"messages" jsonschema:"required"`
	Route    Route     `json:"route,omitempty"`
	Chapter  string    `json:"chapter,omitempty"`
}

// LastMessage returns the most recent message, if any.
func (s ConversationState) LastMessage() (Message, bool) {
	if len(s.Messages) == 0 {
		return Message{}, false
	}
	return s.Messages[len(s.Messages)-1], true
}

// Clone copies the message slice so appends never alias the caller's backing array.
func (s ConversationState) Clone() ConversationState {
	out := s
	out.Messages = make([]Message, len(s.Messages), len(s.Messages)+1)
	copy(out.Messages, s.Messages)
	return out
}

type Conversation struct {
	ID        string            `json:"id"`
	Title     string            `json:"title"`
	State     ConversationState `json:"state"`
	CreatedAt time.Time         `json:"created_at"`
	UpdatedAt time.Time         `json:"updated_at"`
}

type CreateConversationRequest struct {
	Title string `json:"title,omitempty"`
}

type SendMessageRequest struct {
	Content string `json:"content" jsonschema:"required,description=The student's message"`
}
