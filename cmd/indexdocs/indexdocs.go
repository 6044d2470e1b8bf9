package main

import (
	"fmt"
	"os"

	"mlassistant/config"
	"mlassistant/logger"
	"mlassistant/services/docindex"
	"mlassistant/services/llm"
	"mlassistant/services/pinecone"

	"github.com/spf13/cobra"
)

var (
	docsDir   string
	dimension int32
	enrich    bool
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "indexdocs",
		Short: "Index course materials into the vector index",
		Long: `Walk a directory of markdown and text course materials, split each file at its
headings, embed the chunks and upsert them into the Pinecone index used by the
assistant. Re-indexing a file replaces its previous chunks.

Examples:
  indexdocs
  indexdocs --dir ./course_materials/docs
  indexdocs --enrich`,
		SilenceUsage: true,
		RunE:         runIndex,
	}

	cmd.Flags().StringVar(&docsDir, "dir", "course_materials/docs", "Directory of course materials to index")
	cmd.Flags().Int32Var(&dimension, "dimension", 0, "Embedding dimension used when creating the index (default: derived from EMBEDDING_MODEL)")
	cmd.Flags().BoolVar(&enrich, "enrich", false, "Summarize each chunk with the chat model before embedding")

	return cmd
}

func runIndex(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	log, err := logger.New(cfg.LogMode)
	if err != nil {
		return err
	}
	defer log.Sync()

	if cfg.PineconeAPIKey == "" {
		return fmt.Errorf("PINECONE_API_KEY environment variable is required")
	}
	if cfg.OpenAIAPIKey == "" {
		return fmt.Errorf("OPENAI_API_KEY environment variable is required")
	}

	if dimension == 0 {
		d, ok := llm.EmbeddingDimensions[cfg.EmbeddingModel]
		if !ok {
			return fmt.Errorf("unknown dimension for embedding model %q, pass --dimension", cfg.EmbeddingModel)
		}
		dimension = d
	}

	ctx := cmd.Context()
	log.Info("Starting document indexing", "dir", docsDir, "index", cfg.PineconeIndexName, "namespace", cfg.PineconeNamespace)

	embedder, err := llm.NewEmbedder(cfg.OpenAIAPIKey, cfg.EmbeddingModel)
	if err != nil {
		return err
	}

	pc, err := pinecone.NewClient(cfg.PineconeAPIKey)
	if err != nil {
		return err
	}
	if err := pinecone.EnsureIndex(ctx, pc, cfg.PineconeIndexName, dimension, log); err != nil {
		return fmt.Errorf("failed to ensure Pinecone index: %w", err)
	}

	store, err := pinecone.Open(ctx, pc, cfg.PineconeIndexName, cfg.PineconeNamespace, log)
	if err != nil {
		return err
	}
	defer store.Close()

	indexer := docindex.NewIndexer(embedder, store, log)
	if enrich {
		generator, err := llm.New(cfg, log)
		if err != nil {
			return fmt.Errorf("failed to initialize generation service: %w", err)
		}
		indexer.WithEnricher(generator)
	}

	stats, err := indexer.IndexDirectory(ctx, docsDir)
	if err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Indexed %d chunks from %d files\n", stats.Chunks, stats.Files)
	if len(stats.Failed) > 0 {
		return fmt.Errorf("failed to index %d files: %v", len(stats.Failed), stats.Failed)
	}
	return nil
}
