package docindex

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"mlassistant/logger"
	"mlassistant/models"
	"mlassistant/services/llm"
	"mlassistant/services/pinecone"

	"github.com/samber/lo"
)

var indexedExtensions = []string{".md", ".markdown", ".txt"}

// Embedder is satisfied by langchaingo's embeddings.Embedder.
type Embedder interface {
	EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error)
}

type VectorStore interface {
	Upsert(ctx context.Context, vectors []pinecone.Vector) error
	DeleteByPrefixExcept(ctx context.Context, prefix string, keep []string) (int, error)
}

type Stats struct {
	Files  int
	Chunks int
	Failed []string
}

type Indexer struct {
	embedder Embedder
	store    VectorStore
	enricher llm.Generator
	log      *logger.Logger
}

func NewIndexer(embedder Embedder, store VectorStore, log *logger.Logger) *Indexer {
	return &Indexer{
		embedder: embedder,
		store:    store,
		log:      log.With("service", "DocIndexer"),
	}
}

// WithEnricher makes the indexer ask generator for a standalone summary of each chunk and embed
// that summary alongside the chunk text.
func (ix *Indexer) WithEnricher(generator llm.Generator) *Indexer {
	ix.enricher = generator
	return ix
}

// IndexDirectory indexes every markdown or text file under dir. Sources are paths relative to
// dir. A file that fails is recorded in Stats.Failed and the walk continues.
func (ix *Indexer) IndexDirectory(ctx context.Context, dir string) (Stats, error) {
	var stats Stats

	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !lo.Contains(indexedExtensions, strings.ToLower(filepath.Ext(path))) {
			return nil
		}

		rel, err := filepath.Rel(dir, path)
		if err != nil {
			return err
		}
		source := filepath.ToSlash(rel)

		content, err := os.ReadFile(path)
		if err != nil {
			ix.log.Error("Failed to read document", "source", source, "error", err)
			stats.Failed = append(stats.Failed, source)
			return nil
		}

		count, err := ix.IndexDocument(ctx, source, string(content))
		if err != nil {
			ix.log.Error("Failed to index document", "source", source, "error", err)
			stats.Failed = append(stats.Failed, source)
			return nil
		}

		stats.Files++
		stats.Chunks += count
		return nil
	})
	if err != nil {
		return stats, fmt.Errorf("failed to walk %s: %w", dir, err)
	}

	ix.log.Info("Indexing completed", "files", stats.Files, "chunks", stats.Chunks, "failed", len(stats.Failed))
	return stats, nil
}

// IndexDocument replaces every previously indexed chunk of source with the chunks of content.
// New chunks are upserted before stale ones are removed, so a failed run leaves the previous
// chunks of source in place.
func (ix *Indexer) IndexDocument(ctx context.Context, source, content string) (int, error) {
	chunks := ChunkMarkdown(source, content)
	ix.log.Info("Chunked document", "source", source, "chunks", len(chunks))

	if len(chunks) == 0 {
		if err := ix.pruneStale(ctx, source, nil); err != nil {
			return 0, err
		}
		return 0, nil
	}

	texts := make([]string, len(chunks))
	for i, chunk := range chunks {
		texts[i] = ix.embeddingText(ctx, chunk, content)
	}

	embeddings, err := ix.embedder.EmbedDocuments(ctx, texts)
	if err != nil {
		return 0, fmt.Errorf("failed to embed chunks: %w", err)
	}
	if len(embeddings) != len(chunks) {
		return 0, fmt.Errorf("embedder returned %d vectors for %d chunks", len(embeddings), len(chunks))
	}

	vectors := make([]pinecone.Vector, len(chunks))
	for i, chunk := range chunks {
		vectors[i] = pinecone.Vector{
			ID:       chunk.ID,
			Values:   embeddings[i],
			Metadata: chunkMetadata(chunk),
		}
	}

	if err := ix.store.Upsert(ctx, vectors); err != nil {
		return 0, fmt.Errorf("failed to upsert chunks: %w", err)
	}

	if err := ix.pruneStale(ctx, source, lo.Map(chunks, func(c Chunk, _ int) string { return c.ID })); err != nil {
		return 0, err
	}
	return len(chunks), nil
}

// pruneStale deletes chunks of source left over from a longer previous version.
func (ix *Indexer) pruneStale(ctx context.Context, source string, keep []string) error {
	deleted, err := ix.store.DeleteByPrefixExcept(ctx, IDPrefix(source), keep)
	if err != nil {
		return fmt.Errorf("failed to delete stale vectors: %w", err)
	}
	if deleted > 0 {
		ix.log.Info("Removed stale chunks", "source", source, "count", deleted)
	}
	return nil
}

func (ix *Indexer) embeddingText(ctx context.Context, chunk Chunk, document string) string {
	text := chunk.EmbeddingText()
	if ix.enricher == nil {
		return text
	}

	summary, err := ix.enrich(ctx, chunk, document)
	if err != nil {
		ix.log.Warn("Enrichment failed, embedding chunk as is", "chunk_id", chunk.ID, "error", err)
		return text
	}
	return summary + "\n\n" + text
}

func (ix *Indexer) enrich(ctx context.Context, chunk Chunk, document string) (string, error) {
	prompt := fmt.Sprintf(enrichUserPrompt, chunk.Heading, strings.Join(chunk.HeadingPath, " → "), chunk.Content, document)
	summary, err := ix.enricher.Complete(ctx, []models.Message{
		models.NewSystemMessage(enrichSystemPrompt),
		models.NewUserMessage(prompt),
	}, enrichTemperature)
	if err != nil {
		return "", err
	}
	summary = strings.TrimSpace(summary)
	if summary == "" {
		return "", fmt.Errorf("empty summary")
	}
	return summary, nil
}

func chunkMetadata(chunk Chunk) map[string]any {
	return map[string]any{
		"source":       chunk.Source,
		"text":         chunk.Content,
		"heading":      chunk.Heading,
		"heading_path": lo.ToAnySlice(chunk.HeadingPath),
		"chunk_index":  chunk.ChunkIndex,
	}
}
