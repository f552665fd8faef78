package vector

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/matchmeal/matchmeal/internal/foodsource"
	"github.com/matchmeal/matchmeal/internal/log"
)

// loadBatchSize bounds memory use and embedding request size during bulk
// food loading.
const loadBatchSize = 100

// FoodIndex is the similarity index over food-item documents.
//
// Loading is append-only and idempotent at startup: when the index already
// holds documents, bulk loading is skipped entirely. Duplicate food names
// across source files coexist as distinct documents.
type FoodIndex struct {
	store  *Store
	logger log.Logger
}

// NewFoodIndex creates a FoodIndex over the food collection.
func NewFoodIndex(queries Querier, embedder Embedder, logger log.Logger) (*FoodIndex, error) {
	if logger == nil {
		logger = log.NewNop()
	}
	store, err := New(queries, embedder, CollectionFood, logger)
	if err != nil {
		return nil, err
	}
	return &FoodIndex{store: store, logger: logger}, nil
}

// Load bulk-indexes food documents in batches.
// If the index already holds documents the load is skipped (load-once guard),
// so repeated startups never duplicate the corpus.
func (f *FoodIndex) Load(ctx context.Context, foods []foodsource.Food) error {
	count, err := f.store.Count(ctx)
	if err != nil {
		return fmt.Errorf("checking food index state: %w", err)
	}
	if count > 0 {
		f.logger.Info("food index already populated, skipping load", "documents", count)
		return nil
	}

	docs := make([]Document, 0, loadBatchSize)
	loaded := 0
	for _, food := range foods {
		docs = append(docs, foodDocument(food))
		if len(docs) == loadBatchSize {
			if err := f.store.Upsert(ctx, docs); err != nil {
				return fmt.Errorf("loading food batch: %w", err)
			}
			loaded += len(docs)
			docs = docs[:0]
		}
	}
	if len(docs) > 0 {
		if err := f.store.Upsert(ctx, docs); err != nil {
			return fmt.Errorf("loading food batch: %w", err)
		}
		loaded += len(docs)
	}

	f.logger.Info("food index loaded", "documents", loaded)
	return nil
}

// Search returns the k foods most similar to the query, optionally filtered
// by numeric metadata constraints (e.g. sodium < 600). Failures degrade to an
// empty result: an empty or unreachable index must not break a coaching
// request, the tools render "no matching items" instead.
func (f *FoodIndex) Search(ctx context.Context, query string, k int, filters ...Filter) []Result {
	results, err := f.store.Search(ctx, query, k, filters...)
	if err != nil {
		f.logger.Warn("food search failed, returning empty result",
			"query_length", len(query), "error", err)
		return nil
	}
	return results
}

// Count returns the number of indexed food documents.
func (f *FoodIndex) Count(ctx context.Context) (int, error) {
	return f.store.Count(ctx)
}

// foodDocument renders a food row into an indexable document.
// The content blob is what gets embedded; exact numbers live in metadata so
// filters and tools read real values, not prose.
func foodDocument(food foodsource.Food) Document {
	content := fmt.Sprintf(
		"음식명: %s, 카테고리: %s, 칼로리 %.0fkcal, 단백질 %.1fg, 지방 %.1fg, 탄수화물 %.1fg, 당류 %.1fg, 나트륨 %.0fmg",
		food.Name, food.Category, food.Calories, food.Protein, food.Fat,
		food.Carbohydrate, food.Sugar, food.Sodium)

	return Document{
		// Duplicate names may coexist, so identity is a fresh UUID.
		ID:         uuid.NewString(),
		Collection: CollectionFood,
		Content:    content,
		Metadata: map[string]any{
			"name":         food.Name,
			"category":     food.Category,
			"calories":     food.Calories,
			"protein":      food.Protein,
			"fat":          food.Fat,
			"carbohydrate": food.Carbohydrate,
			"sugar":        food.Sugar,
			"sodium":       food.Sodium,
		},
	}
}
