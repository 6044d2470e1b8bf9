package retrieval

import (
	"context"
	"errors"
	"testing"

	"mlassistant/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeEmbedder struct {
	gotText string
	vector  []float32
	err     error
}

func (f *fakeEmbedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	f.gotText = text
	return f.vector, f.err
}

type fakeIndex struct {
	gotVector []float32
	gotTopK   int
	docs      []Document
	err       error
}

func (f *fakeIndex) Query(ctx context.Context, vector []float32, topK int) ([]Document, error) {
	f.gotVector = vector
	f.gotTopK = topK
	return f.docs, f.err
}

func TestSearch_FormatsInIndexOrder(t *testing.T) {
	embedder := &fakeEmbedder{vector: []float32{0.1, 0.2}}
	index := &fakeIndex{docs: []Document{
		{Text: "Gradient descent updates weights.", Score: 0.9, Metadata: map[string]any{"source": "week1.pdf"}},
		{Text: "Learning rate controls step size.", Score: 0.7, Metadata: map[string]any{}},
	}}
	svc := NewService(embedder, index, 5, logger.Nop())

	out, err := svc.Search(context.Background(), "what is gradient descent")
	require.NoError(t, err)

	want := contextHeader +
		"**From week1.pdf:**\nGradient descent updates weights.\n\n---\n\n" +
		"**From unknown:**\nLearning rate controls step size.\n\n---\n\n"
	assert.Equal(t, want, out)
	assert.Equal(t, "what is gradient descent", embedder.gotText)
	assert.Equal(t, []float32{0.1, 0.2}, index.gotVector)
	assert.Equal(t, 5, index.gotTopK)
}

func TestSearch_EmptyResultIsHeaderOnly(t *testing.T) {
	svc := NewService(&fakeEmbedder{vector: []float32{1}}, &fakeIndex{}, 5, logger.Nop())

	out, err := svc.Search(context.Background(), "anything")
	require.NoError(t, err)
	assert.Equal(t, contextHeader, out)
}

func TestSearch_EmbeddingFailure(t *testing.T) {
	index := &fakeIndex{}
	svc := NewService(&fakeEmbedder{err: errors.New("quota exceeded")}, index, 5, logger.Nop())

	_, err := svc.Search(context.Background(), "anything")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "quota exceeded")
	assert.Nil(t, index.gotVector, "index must not be queried without an embedding")
}

func TestSearch_IndexFailure(t *testing.T) {
	svc := NewService(&fakeEmbedder{vector: []float32{1}}, &fakeIndex{err: errors.New("unavailable")}, 5, logger.Nop())

	_, err := svc.Search(context.Background(), "anything")
	assert.ErrorContains(t, err, "unavailable")
}

func TestFormatContext_UnusableSourceFallsBack(t *testing.T) {
	tests := []struct {
		name     string
		metadata map[string]any
	}{
		{name: "missing", metadata: map[string]any{}},
		{name: "nil metadata", metadata: nil},
		{name: "empty", metadata: map[string]any{"source": ""}},
		{name: "not a string", metadata: map[string]any{"source": 42.0}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := FormatContext([]Document{{Text: "x", Metadata: tt.metadata}})
			assert.Equal(t, contextHeader+"**From unknown:**\nx\n\n---\n\n", out)
		})
	}
}
