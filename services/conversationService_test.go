package services

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"mlassistant/db"
	"mlassistant/logger"
	"mlassistant/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type echoInvoker struct {
	err      error
	inFlight atomic.Int32
	maxSeen  atomic.Int32
}

func (e *echoInvoker) Invoke(ctx context.Context, state models.ConversationState) (models.ConversationState, error) {
	n := e.inFlight.Add(1)
	defer e.inFlight.Add(-1)
	for {
		seen := e.maxSeen.Load()
		if n <= seen || e.maxSeen.CompareAndSwap(seen, n) {
			break
		}
	}
	time.Sleep(time.Millisecond)

	if e.err != nil {
		return state, e.err
	}
	last, _ := state.LastMessage()
	next := state.Clone()
	next.Route = models.RouteGeneralExplanation
	next.Chapter = "3"
	next.Messages = append(next.Messages, models.NewAssistantMessage("echo: "+last.Content))
	return next, nil
}

func newTestConversationService(inv Invoker) (*ConversationService, *db.MemoryConversationRepository) {
	repo := db.NewMemoryConversationRepository()
	return NewConversationService(repo, inv, logger.Nop()), repo
}

func TestConversationService_CreateConversation(t *testing.T) {
	svc, _ := newTestConversationService(&echoInvoker{})
	ctx := context.Background()

	conv, err := svc.CreateConversation(ctx, &models.CreateConversationRequest{Title: "  "})
	require.NoError(t, err)
	assert.Equal(t, defaultConversationTitle, conv.Title)
	assert.Len(t, conv.ID, 36)

	named, err := svc.CreateConversation(ctx, &models.CreateConversationRequest{Title: "Exam prep"})
	require.NoError(t, err)
	assert.Equal(t, "Exam prep", named.Title)
	assert.NotEqual(t, conv.ID, named.ID)

	list, err := svc.ListConversations(ctx)
	require.NoError(t, err)
	assert.Len(t, list, 2)
}

func TestConversationService_SendMessage(t *testing.T) {
	svc, _ := newTestConversationService(&echoInvoker{})
	ctx := context.Background()

	conv, err := svc.CreateConversation(ctx, &models.CreateConversationRequest{})
	require.NoError(t, err)

	updated, err := svc.SendMessage(ctx, conv.ID, &models.SendMessageRequest{Content: " what is dropout? "})
	require.NoError(t, err)

	assert.Equal(t, []models.Message{
		models.NewUserMessage("what is dropout?"),
		models.NewAssistantMessage("echo: what is dropout?"),
	}, updated.State.Messages)
	assert.Equal(t, models.RouteGeneralExplanation, updated.State.Route)
	assert.Equal(t, "3", updated.State.Chapter)
}

func TestConversationService_FailedTurnKeepsUserMessage(t *testing.T) {
	boom := errors.New("llm down")
	svc, repo := newTestConversationService(&echoInvoker{err: boom})
	ctx := context.Background()

	conv, err := svc.CreateConversation(ctx, &models.CreateConversationRequest{})
	require.NoError(t, err)

	_, err = svc.SendMessage(ctx, conv.ID, &models.SendMessageRequest{Content: "hello"})
	require.ErrorIs(t, err, boom)

	stored, err := repo.GetConversation(ctx, conv.ID)
	require.NoError(t, err)
	assert.Equal(t, []models.Message{models.NewUserMessage("hello")}, stored.State.Messages)
	assert.Empty(t, stored.State.Route)
}

type failingTurnRepo struct {
	*db.MemoryConversationRepository
	err error
}

func (f *failingTurnRepo) CompleteTurn(ctx context.Context, id string, reply models.Message, route models.Route, chapter string) error {
	return f.err
}

func TestConversationService_FailedReplyStoreLeavesNoPartialTurn(t *testing.T) {
	boom := errors.New("connection reset")
	repo := &failingTurnRepo{MemoryConversationRepository: db.NewMemoryConversationRepository(), err: boom}
	svc := NewConversationService(repo, &echoInvoker{}, logger.Nop())
	ctx := context.Background()

	conv, err := svc.CreateConversation(ctx, &models.CreateConversationRequest{})
	require.NoError(t, err)

	_, err = svc.SendMessage(ctx, conv.ID, &models.SendMessageRequest{Content: "hello"})
	require.ErrorIs(t, err, boom)

	stored, err := repo.GetConversation(ctx, conv.ID)
	require.NoError(t, err)
	assert.Equal(t, []models.Message{models.NewUserMessage("hello")}, stored.State.Messages)
	assert.Empty(t, stored.State.Route)
	assert.Empty(t, stored.State.Chapter)
}

func TestConversationService_SendMessageErrors(t *testing.T) {
	svc, _ := newTestConversationService(&echoInvoker{})
	ctx := context.Background()

	_, err := svc.SendMessage(ctx, "missing", &models.SendMessageRequest{Content: "hi"})
	assert.ErrorIs(t, err, db.ErrConversationNotFound)

	conv, err := svc.CreateConversation(ctx, &models.CreateConversationRequest{})
	require.NoError(t, err)
	_, err = svc.SendMessage(ctx, conv.ID, &models.SendMessageRequest{Content: "   "})
	assert.ErrorIs(t, err, ErrEmptyMessage)
}

func TestConversationService_TurnsOnOneConversationAreSerialized(t *testing.T) {
	inv := &echoInvoker{}
	svc, _ := newTestConversationService(inv)
	ctx := context.Background()

	conv, err := svc.CreateConversation(ctx, &models.CreateConversationRequest{})
	require.NoError(t, err)

	const turns = 8
	var wg sync.WaitGroup
	for i := 0; i < turns; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.SendMessage(ctx, conv.ID, &models.SendMessageRequest{Content: "ping"})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), inv.maxSeen.Load())

	final, err := svc.GetConversation(ctx, conv.ID)
	require.NoError(t, err)
	require.Len(t, final.State.Messages, 2*turns)
	for i, msg := range final.State.Messages {
		if i%2 == 0 {
			assert.Equal(t, models.NewUserMessage("ping"), msg)
		} else {
			assert.Equal(t, models.NewAssistantMessage("echo: ping"), msg)
		}
	}
	assert.Empty(t, svc.locks.locks, "idle keys are released")
}

func TestConversationService_DeleteConversation(t *testing.T) {
	svc, _ := newTestConversationService(&echoInvoker{})
	ctx := context.Background()

	conv, err := svc.CreateConversation(ctx, &models.CreateConversationRequest{})
	require.NoError(t, err)

	require.NoError(t, svc.DeleteConversation(ctx, conv.ID))
	_, err = svc.GetConversation(ctx, conv.ID)
	assert.ErrorIs(t, err, db.ErrConversationNotFound)
	assert.ErrorIs(t, svc.DeleteConversation(ctx, conv.ID), db.ErrConversationNotFound)
}
