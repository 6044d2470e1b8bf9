// Package llmtest provides a scripted Generator for tests.
package llmtest

import (
	"context"
	"sync"

	"mlassistant/models"
)

type Call struct {
	Messages    []models.Message
	Temperature float64
}

// Generator replays Replies in order and records every call. Once Replies is exhausted it
// keeps returning the last reply. Err, when set, is returned from every call.
type Generator struct {
	Replies []string
	Err     error

	mu    sync.Mutex
	calls []Call
}

func NewGenerator(replies ...string) *Generator {
	return &Generator{Replies: replies}
}

func (g *Generator) Complete(ctx context.Context, messages []models.Message, temperature float64) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	copied := make([]models.Message, len(messages))
	copy(copied, messages)
	g.calls = append(g.calls, Call{Messages: copied, Temperature: temperature})

	if g.Err != nil {
		return "", g.Err
	}
	if len(g.Replies) == 0 {
		return "", nil
	}
	idx := len(g.calls) - 1
	if idx >= len(g.Replies) {
		idx = len(g.Replies) - 1
	}
	return g.Replies[idx], nil
}

func (g *Generator) Calls() []Call {
	g.mu.Lock()
	defer g.mu.Unlock()
	out := make([]Call, len(g.calls))
	copy(out, g.calls)
	return out
}

func (g *Generator) CallCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.calls)
}
