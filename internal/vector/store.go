package vector

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/firebase/genkit/go/ai"
	"github.com/pgvector/pgvector-go"

	"github.com/matchmeal/matchmeal/internal/log"
)

// searchTimeout bounds vector search queries so a slow index never blocks a
// coaching request.
const searchTimeout = 10 * time.Second

// Embedder is the slice of ai.Embedder the store needs.
type Embedder interface {
	Embed(ctx context.Context, req *ai.EmbedRequest) (*ai.EmbedResponse, error)
}

// Store manages documents with vector search over one collection.
// It handles embedding generation and similarity search; the collection name
// fixes which logical index ("food" or "tool") the store addresses.
//
// Store is safe for concurrent reads. Writes (Upsert, DeleteAll) are expected
// to run during startup or offline indexing, before steady-state traffic.
type Store struct {
	queries    Querier
	embedder   Embedder
	collection string
	logger     log.Logger
}

// New creates a Store bound to a collection.
func New(queries Querier, embedder Embedder, collection string, logger log.Logger) (*Store, error) {
	if queries == nil {
		return nil, errors.New("querier is required")
	}
	if embedder == nil {
		return nil, errors.New("embedder is required")
	}
	if collection == "" {
		return nil, errors.New("collection is required")
	}
	if logger == nil {
		logger = log.NewNop()
	}
	return &Store{
		queries:    queries,
		embedder:   embedder,
		collection: collection,
		logger:     logger,
	}, nil
}

// Upsert embeds and writes documents into the collection.
// Documents are embedded in a single batch request per call.
func (s *Store) Upsert(ctx context.Context, docs []Document) error {
	if len(docs) == 0 {
		return nil
	}

	input := make([]*ai.Document, len(docs))
	for i, d := range docs {
		input[i] = &ai.Document{Content: []*ai.Part{ai.NewTextPart(d.Content)}}
	}

	resp, err := s.embedder.Embed(ctx, &ai.EmbedRequest{Input: input})
	if err != nil {
		return fmt.Errorf("generating embeddings: %w", err)
	}
	if len(resp.Embeddings) != len(docs) {
		return fmt.Errorf("embedder returned %d vectors for %d documents", len(resp.Embeddings), len(docs))
	}

	for i, d := range docs {
		metadataJSON, err := json.Marshal(d.Metadata)
		if err != nil {
			return fmt.Errorf("marshaling metadata for %q: %w", d.ID, err)
		}

		row := Row{
			ID:         d.ID,
			Collection: s.collection,
			Content:    d.Content,
			Metadata:   metadataJSON,
		}
		embedding := pgvector.NewVector(resp.Embeddings[i].Embedding)
		if err := s.queries.UpsertDocument(ctx, row, embedding); err != nil {
			return err
		}
	}

	s.logger.Debug("upserted documents", "collection", s.collection, "count", len(docs))
	return nil
}

// Search returns the k most similar documents to the query, optionally
// constrained by numeric metadata filters. An empty collection yields an
// empty result, not an error.
func (s *Store) Search(ctx context.Context, query string, k int, filters ...Filter) ([]Result, error) {
	queryCtx, cancel := context.WithTimeout(ctx, searchTimeout)
	defer cancel()

	resp, err := s.embedder.Embed(queryCtx, &ai.EmbedRequest{
		Input: []*ai.Document{{Content: []*ai.Part{ai.NewTextPart(query)}}},
	})
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, fmt.Errorf("embedding generation timeout: %w", err)
		}
		return nil, fmt.Errorf("generating query embedding: %w", err)
	}
	if len(resp.Embeddings) == 0 || len(resp.Embeddings[0].Embedding) == 0 {
		return nil, errors.New("empty embedding returned for query")
	}

	queryVec := pgvector.NewVector(resp.Embeddings[0].Embedding)
	rows, err := s.queries.SearchDocuments(queryCtx, s.collection, queryVec, filters, k)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, fmt.Errorf("search query timeout: %w", err)
		}
		return nil, fmt.Errorf("search failed: %w", err)
	}

	return s.rowsToResults(rows), nil
}

// All returns every document in the collection.
func (s *Store) All(ctx context.Context, limit int) ([]Result, error) {
	rows, err := s.queries.ListCollection(ctx, s.collection, limit)
	if err != nil {
		return nil, fmt.Errorf("listing documents: %w", err)
	}
	return s.rowsToResults(rows), nil
}

// Count returns the number of documents in the collection.
func (s *Store) Count(ctx context.Context) (int, error) {
	count, err := s.queries.CountCollection(ctx, s.collection)
	if err != nil {
		return 0, fmt.Errorf("count failed: %w", err)
	}
	return int(count), nil
}

// DeleteAll removes every document in the collection.
func (s *Store) DeleteAll(ctx context.Context) error {
	return s.queries.DeleteCollection(ctx, s.collection)
}

// rowsToResults converts database rows to business model Results.
func (s *Store) rowsToResults(rows []Row) []Result {
	results := make([]Result, 0, len(rows))
	for _, row := range rows {
		var metadata map[string]any
		if err := json.Unmarshal(row.Metadata, &metadata); err != nil {
			s.logger.Warn("failed to parse metadata", "document_id", row.ID, "error", err)
			metadata = map[string]any{}
		}

		var createdAt time.Time
		if row.CreatedAt.Valid {
			createdAt = row.CreatedAt.Time
		}

		results = append(results, Result{
			Document: Document{
				ID:         row.ID,
				Collection: row.Collection,
				Content:    row.Content,
				Metadata:   metadata,
				CreatedAt:  createdAt,
			},
			Similarity: row.Similarity,
		})
	}
	return results
}
