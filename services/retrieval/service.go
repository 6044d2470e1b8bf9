package retrieval

import (
	"context"
	"fmt"
	"strings"

	"mlassistant/logger"
)

const (
	contextHeader = "📚 **Relevant excerpts from course materials:**\n\n"
	unknownSource = "unknown"
)

// Document is one passage returned by the vector index.
type Document struct {
	ID       string
	Text     string
	Score    float32
	Metadata map[string]any
}

type Embedder interface {
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
}

type Index interface {
	Query(ctx context.Context, vector []float32, topK int) ([]Document, error)
}

type Service struct {
	embedder Embedder
	index    Index
	topK     int
	log      *logger.Logger
}

func NewService(embedder Embedder, index Index, topK int, log *logger.Logger) *Service {
	return &Service{
		embedder: embedder,
		index:    index,
		topK:     topK,
		log:      log.With("service", "RetrievalService"),
	}
}

// Search returns the passages closest to query, formatted for a system prompt. An empty result
// still yields the header.
func (s *Service) Search(ctx context.Context, query string) (string, error) {
	s.log.Info("Starting course document search", "top_k", s.topK)

	vector, err := s.embedder.EmbedQuery(ctx, query)
	if err != nil {
		s.log.Error("Failed to embed query", "error", err)
		return "", fmt.Errorf("failed to generate query embedding: %w", err)
	}

	docs, err := s.index.Query(ctx, vector, s.topK)
	if err != nil {
		s.log.Error("Failed to query vector index", "error", err)
		return "", fmt.Errorf("failed to query vector index: %w", err)
	}

	if len(docs) == 0 {
		s.log.Warn("No course passages matched query")
	} else {
		s.log.Info("Retrieved course passages", "count", len(docs))
	}

	return FormatContext(docs), nil
}

// FormatContext renders documents in the order given.
func FormatContext(docs []Document) string {
	var b strings.Builder
	b.WriteString(contextHeader)
	for _, doc := range docs {
		fmt.Fprintf(&b, "**From %s:**\n%s\n\n---\n\n", sourceOf(doc), doc.Text)
	}
	return b.String()
}

// sourceOf labels a passage with its "source" metadata. A missing, empty or non-string source
// is shown as "unknown".
func sourceOf(doc Document) string {
	if src, ok := doc.Metadata["source"].(string); ok && src != "" {
		return src
	}
	return unknownSource
}
