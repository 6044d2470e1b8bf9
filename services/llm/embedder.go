package llm

import (
	"fmt"

	"github.com/tmc/langchaingo/embeddings"
	"github.com/tmc/langchaingo/llms/openai"
)

// EmbeddingDimensions lists the vector sizes of the OpenAI embedding models we index with.
var EmbeddingDimensions = map[string]int32{
	"text-embedding-3-small": 1536,
	"text-embedding-3-large": 3072,
	"text-embedding-ada-002": 1536,
}

// NewEmbedder returns an OpenAI embedder. Embeddings always go to OpenAI, even when chat
// completions are served by another provider.
func NewEmbedder(apiKey, model string) (embeddings.Embedder, error) {
	client, err := openai.New(
		openai.WithToken(apiKey),
		openai.WithEmbeddingModel(model),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create OpenAI embedding client: %w", err)
	}

	embedder, err := embeddings.NewEmbedder(client)
	if err != nil {
		return nil, fmt.Errorf("failed to create embedder: %w", err)
	}
	return embedder, nil
}
