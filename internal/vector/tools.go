package vector

import (
	"context"
	"fmt"

	"github.com/matchmeal/matchmeal/internal/log"
)

// maxToolDocs caps full-enumeration reads of the tool collection. The
// catalog is a fixed process-wide set, far below this bound.
const maxToolDocs = 200

// ToolIndex is the similarity index over tool-catalog descriptions.
//
// Reindexing is destructive-then-additive: every existing entry is deleted
// before the current catalog is re-inserted, keyed by tool name, so stored
// descriptions always reflect the latest catalog even when descriptions
// changed between process restarts.
type ToolIndex struct {
	store  *Store
	logger log.Logger
}

// NewToolIndex creates a ToolIndex over the tool collection.
func NewToolIndex(queries Querier, embedder Embedder, logger log.Logger) (*ToolIndex, error) {
	if logger == nil {
		logger = log.NewNop()
	}
	store, err := New(queries, embedder, CollectionTool, logger)
	if err != nil {
		return nil, err
	}
	return &ToolIndex{store: store, logger: logger}, nil
}

// Reindex replaces the tool collection with the given catalog entries.
// Idempotent: reindexing an unchanged catalog yields the same document count.
func (t *ToolIndex) Reindex(ctx context.Context, tools []ToolDoc) error {
	if err := t.store.DeleteAll(ctx); err != nil {
		return fmt.Errorf("clearing tool index: %w", err)
	}

	docs := make([]Document, 0, len(tools))
	for _, tool := range tools {
		docs = append(docs, Document{
			ID:         tool.Name, // tool name is the document key
			Collection: CollectionTool,
			Content:    tool.Description,
			Metadata:   map[string]any{"name": tool.Name},
		})
	}

	if err := t.store.Upsert(ctx, docs); err != nil {
		return fmt.Errorf("indexing tool catalog: %w", err)
	}

	t.logger.Info("tool index rebuilt", "tools", len(docs))
	return nil
}

// Search returns the k tool documents most similar to the query.
func (t *ToolIndex) Search(ctx context.Context, query string, k int) ([]Result, error) {
	return t.store.Search(ctx, query, k)
}

// AllToolDocs returns every indexed tool. Used as the recall stage when the
// catalog is small enough that exhaustive enumeration beats approximate
// search.
func (t *ToolIndex) AllToolDocs(ctx context.Context) ([]Result, error) {
	return t.store.All(ctx, maxToolDocs)
}

// Count returns the number of indexed tool documents.
func (t *ToolIndex) Count(ctx context.Context) (int, error) {
	return t.store.Count(ctx)
}
