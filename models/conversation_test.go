package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestConversationState_CloneDoesNotAlias(t *testing.T) {
	original := ConversationState{Messages: []Message{NewUserMessage("hi")}}
	clone := original.Clone()
	clone.Messages = append(clone.Messages, NewAssistantMessage("hello"))
	clone.Messages[0].Content = "changed"

	assert.Len(t, original.Messages, 1)
	assert.Equal(t, "hi", original.Messages[0].Content)
}

func TestConversationState_LastMessage(t *testing.T) {
	_, ok := ConversationState{}.LastMessage()
	assert.False(t, ok)

	msg, ok := ConversationState{Messages: []Message{NewUserMessage("a"), NewAssistantMessage("b")}}.LastMessage()
	assert.True(t, ok)
	assert.Equal(t, RoleAssistant, msg.Role)
}

func TestMessage_Validate(t *testing.T) {
	assert.NoError(t, NewUserMessage("x").Validate())
	assert.NoError(t, NewSystemMessage("x").Validate())
	assert.Error(t, Message{Role: "tool", Content: "x"}.Validate())
}

func TestRoute_Valid(t *testing.T) {
	assert.True(t, RouteRAGQuery.Valid())
	assert.True(t, RouteGeneralExplanation.Valid())
	assert.True(t, RouteQuizRequest.Valid())
	assert.False(t, Route("").Valid())
	assert.False(t, Route("smalltalk").Valid())
}
