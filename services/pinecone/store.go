package pinecone

import (
	"context"
	"fmt"
	"strings"
	"time"

	"mlassistant/logger"
	"mlassistant/services/retrieval"

	"github.com/pinecone-io/go-pinecone/v3/pinecone"
	"github.com/samber/lo"
	"google.golang.org/protobuf/types/known/structpb"
)

// Store holds one connection to a namespace of a Pinecone index for the lifetime of the process.
type Store struct {
	client    *pinecone.Client
	conn      *pinecone.IndexConnection
	indexName string
	namespace string
	log       *logger.Logger
}

type Vector struct {
	ID       string
	Values   []float32
	Metadata map[string]any
}

// NewClient creates a Pinecone control-plane client.
func NewClient(apiKey string) (*pinecone.Client, error) {
	pc, err := pinecone.NewClient(pinecone.NewClientParams{
		ApiKey: apiKey,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Pinecone client: %w", err)
	}
	return pc, nil
}

// Open resolves the index host and opens a data-plane connection. Callers must Close the store.
func Open(ctx context.Context, pc *pinecone.Client, indexName, namespace string, log *logger.Logger) (*Store, error) {
	log = log.With("service", "PineconeStore", "index", indexName, "namespace", namespace)
	log.Info("Opening Pinecone index connection")

	idxDesc, err := pc.DescribeIndex(ctx, indexName)
	if err != nil {
		return nil, fmt.Errorf("failed to describe index: %w", err)
	}

	conn, err := pc.Index(pinecone.NewIndexConnParams{
		Host:      idxDesc.Host,
		Namespace: namespace,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create index connection: %w", err)
	}

	log.Info("Pinecone index connection ready", "host", idxDesc.Host)
	return &Store{
		client:    pc,
		conn:      conn,
		indexName: indexName,
		namespace: namespace,
		log:       log,
	}, nil
}

func (s *Store) Close() error {
	if s.conn == nil {
		return nil
	}
	return s.conn.Close()
}

// Query returns the topK nearest documents, most similar first.
func (s *Store) Query(ctx context.Context, vector []float32, topK int) ([]retrieval.Document, error) {
	result, err := s.conn.QueryByVectorValues(ctx, &pinecone.QueryByVectorValuesRequest{
		Vector:          vector,
		TopK:            uint32(topK),
		IncludeValues:   false,
		IncludeMetadata: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to query vectors: %w", err)
	}

	s.log.Debug("Pinecone query returned", "matches", len(result.Matches), "top_k", topK)

	docs := make([]retrieval.Document, 0, len(result.Matches))
	for _, match := range result.Matches {
		if match == nil || match.Vector == nil {
			continue
		}
		docs = append(docs, documentFromMatch(match))
	}
	return docs, nil
}

func documentFromMatch(match *pinecone.ScoredVector) retrieval.Document {
	doc := retrieval.Document{
		ID:       match.Vector.Id,
		Score:    match.Score,
		Metadata: map[string]any{},
	}
	if match.Vector.Metadata != nil {
		doc.Metadata = match.Vector.Metadata.AsMap()
	}
	if text, ok := doc.Metadata["text"].(string); ok {
		doc.Text = text
	}
	return doc
}

func (s *Store) Upsert(ctx context.Context, vectors []Vector) error {
	const batchSize = 10

	for i := 0; i < len(vectors); i += batchSize {
		end := min(i+batchSize, len(vectors))

		batch := make([]*pinecone.Vector, 0, end-i)
		for _, v := range vectors[i:end] {
			metadata, err := structpb.NewStruct(v.Metadata)
			if err != nil {
				return fmt.Errorf("failed to create metadata struct for vector %s: %w", v.ID, err)
			}
			values := v.Values
			batch = append(batch, &pinecone.Vector{
				Id:       v.ID,
				Values:   &values,
				Metadata: metadata,
			})
		}

		count, err := s.conn.UpsertVectors(ctx, batch)
		if err != nil {
			return fmt.Errorf("failed to upsert vector batch: %w", err)
		}
		s.log.Info("Upserted vectors", "count", count, "batch", i/batchSize+1)
	}
	return nil
}

// DeleteByPrefixExcept removes every vector whose ID starts with prefix and is not in keep.
func (s *Store) DeleteByPrefixExcept(ctx context.Context, prefix string, keep []string) (int, error) {
	kept := lo.Keyify(keep)
	limit := uint32(100)
	deleted := 0
	var token *string

	for {
		listResp, err := s.conn.ListVectors(ctx, &pinecone.ListVectorsRequest{
			Prefix:          &prefix,
			Limit:           &limit,
			PaginationToken: token,
		})
		if err != nil {
			// A namespace that was never written to has nothing to delete.
			if strings.Contains(err.Error(), "Namespace not found") {
				return deleted, nil
			}
			return deleted, fmt.Errorf("failed to list vectors: %w", err)
		}

		ids := make([]string, 0, len(listResp.VectorIds))
		for _, id := range listResp.VectorIds {
			if id == nil {
				continue
			}
			if _, ok := kept[*id]; !ok {
				ids = append(ids, *id)
			}
		}

		if len(ids) > 0 {
			if err := s.conn.DeleteVectorsById(ctx, ids); err != nil {
				return deleted, fmt.Errorf("failed to delete vector batch: %w", err)
			}
			deleted += len(ids)
		}

		if listResp.NextPaginationToken == nil {
			break
		}
		token = listResp.NextPaginationToken
	}

	s.log.Info("Deleted vectors by prefix", "prefix", prefix, "kept", len(kept), "count", deleted)
	return deleted, nil
}

// EnsureIndex creates a serverless cosine index when it does not exist yet and waits until it is ready.
func EnsureIndex(ctx context.Context, pc *pinecone.Client, indexName string, dimension int32, log *logger.Logger) error {
	indexes, err := pc.ListIndexes(ctx)
	if err != nil {
		return fmt.Errorf("failed to list indexes: %w", err)
	}

	for _, idx := range indexes {
		if idx.Name == indexName {
			log.Info("Index already exists", "index", indexName)
			return nil
		}
	}

	log.Info("Creating Pinecone index", "index", indexName, "dimension", dimension)
	deletionProtection := pinecone.DeletionProtectionDisabled
	metric := pinecone.Cosine

	_, err = pc.CreateServerlessIndex(ctx, &pinecone.CreateServerlessIndexRequest{
		Name:               indexName,
		Dimension:          &dimension,
		Metric:             &metric,
		Cloud:              pinecone.Aws,
		Region:             "us-east-1",
		DeletionProtection: &deletionProtection,
		Tags:               &pinecone.IndexTags{"project": "ml-course-assistant"},
	})
	if err != nil {
		return fmt.Errorf("failed to create index: %w", err)
	}

	for {
		idx, err := pc.DescribeIndex(ctx, indexName)
		if err != nil {
			return fmt.Errorf("failed to describe index: %w", err)
		}
		if idx.Status != nil && idx.Status.Ready {
			log.Info("Index is ready", "index", indexName)
			return nil
		}
		log.Info("Waiting for index to be ready", "index", indexName)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(10 * time.Second):
		}
	}
}
