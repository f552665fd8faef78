package vector

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"github.com/firebase/genkit/go/ai"
	"github.com/pgvector/pgvector-go"

	"github.com/matchmeal/matchmeal/internal/foodsource"
	"github.com/matchmeal/matchmeal/internal/log"
)

// fakeEmbedder returns a fixed-dimension vector for any input.
type fakeEmbedder struct {
	err   error
	calls int
}

func (f *fakeEmbedder) Embed(_ context.Context, req *ai.EmbedRequest) (*ai.EmbedResponse, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	resp := &ai.EmbedResponse{}
	for range req.Input {
		resp.Embeddings = append(resp.Embeddings, &ai.Embedding{Embedding: []float32{0.1, 0.2, 0.3}})
	}
	return resp, nil
}

// memQuerier is an in-memory Querier for unit tests.
type memQuerier struct {
	rows      map[string]Row // keyed by document ID
	failAll   bool
	upserts   int
	deletions int
}

func newMemQuerier() *memQuerier {
	return &memQuerier{rows: make(map[string]Row)}
}

var errQuerierDown = errors.New("querier down")

func (m *memQuerier) UpsertDocument(_ context.Context, row Row, _ pgvector.Vector) error {
	if m.failAll {
		return errQuerierDown
	}
	m.upserts++
	m.rows[row.ID] = row
	return nil
}

func (m *memQuerier) SearchDocuments(_ context.Context, collection string, _ pgvector.Vector, filters []Filter, limit int) ([]Row, error) {
	if m.failAll {
		return nil, errQuerierDown
	}
	var out []Row
	for _, r := range m.rows {
		if r.Collection != collection || !matchesFilters(r, filters) {
			continue
		}
		r.Similarity = 0.9
		out = append(out, r)
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

func (m *memQuerier) ListCollection(_ context.Context, collection string, limit int) ([]Row, error) {
	if m.failAll {
		return nil, errQuerierDown
	}
	var out []Row
	for _, r := range m.rows {
		if r.Collection == collection {
			out = append(out, r)
			if len(out) == limit {
				break
			}
		}
	}
	return out, nil
}

func (m *memQuerier) CountCollection(_ context.Context, collection string) (int64, error) {
	if m.failAll {
		return 0, errQuerierDown
	}
	var n int64
	for _, r := range m.rows {
		if r.Collection == collection {
			n++
		}
	}
	return n, nil
}

func (m *memQuerier) DeleteCollection(_ context.Context, collection string) error {
	if m.failAll {
		return errQuerierDown
	}
	m.deletions++
	for id, r := range m.rows {
		if r.Collection == collection {
			delete(m.rows, id)
		}
	}
	return nil
}

func matchesFilters(r Row, filters []Filter) bool {
	if len(filters) == 0 {
		return true
	}
	var metadata map[string]any
	if err := json.Unmarshal(r.Metadata, &metadata); err != nil {
		return false
	}
	for _, f := range filters {
		v, ok := metadata[f.Field].(float64)
		if !ok {
			return false
		}
		switch f.Op {
		case OpLT:
			ok = v < f.Value
		case OpLTE:
			ok = v <= f.Value
		case OpGT:
			ok = v > f.Value
		case OpGTE:
			ok = v >= f.Value
		case OpEQ:
			ok = v == f.Value
		}
		if !ok {
			return false
		}
	}
	return true
}

func sampleFoods(n int) []foodsource.Food {
	foods := make([]foodsource.Food, 0, n)
	for i := 0; i < n; i++ {
		foods = append(foods, foodsource.Food{
			Name:     fmt.Sprintf("food-%d", i),
			Calories: float64(100 + i),
			Sodium:   float64(i * 100),
		})
	}
	return foods
}

func TestFoodIndex_LoadOnceGuard(t *testing.T) {
	ctx := context.Background()
	q := newMemQuerier()
	idx, err := NewFoodIndex(q, &fakeEmbedder{}, log.NewNop())
	if err != nil {
		t.Fatal(err)
	}

	foods := sampleFoods(7)
	if err := idx.Load(ctx, foods); err != nil {
		t.Fatalf("first load: %v", err)
	}
	first, _ := idx.Count(ctx)

	// Second load must be a no-op, not a doubling.
	if err := idx.Load(ctx, foods); err != nil {
		t.Fatalf("second load: %v", err)
	}
	second, _ := idx.Count(ctx)

	if first != 7 || second != 7 {
		t.Errorf("expected 7 documents after both loads, got %d then %d", first, second)
	}
}

func TestFoodIndex_LoadBatches(t *testing.T) {
	ctx := context.Background()
	q := newMemQuerier()
	emb := &fakeEmbedder{}
	idx, err := NewFoodIndex(q, emb, log.NewNop())
	if err != nil {
		t.Fatal(err)
	}

	if err := idx.Load(ctx, sampleFoods(250)); err != nil {
		t.Fatalf("Load: %v", err)
	}

	count, _ := idx.Count(ctx)
	if count != 250 {
		t.Errorf("expected 250 documents, got %d", count)
	}
	// 3 embed batches (100+100+50), one embedder call each.
	if emb.calls != 3 {
		t.Errorf("expected 3 batched embed calls, got %d", emb.calls)
	}
}

func TestFoodIndex_SearchWithFilter(t *testing.T) {
	ctx := context.Background()
	q := newMemQuerier()
	idx, err := NewFoodIndex(q, &fakeEmbedder{}, log.NewNop())
	if err != nil {
		t.Fatal(err)
	}
	if err := idx.Load(ctx, sampleFoods(10)); err != nil {
		t.Fatal(err)
	}

	results := idx.Search(ctx, "저염식", 10, Filter{Field: "sodium", Op: OpLT, Value: 300})
	if len(results) != 3 { // sodium 0, 100, 200
		t.Fatalf("expected 3 low-sodium results, got %d", len(results))
	}
	for _, r := range results {
		if r.Float("sodium") >= 300 {
			t.Errorf("filter violated: %v", r.Metadata)
		}
	}
}

func TestFoodIndex_SearchFailureDegradesToEmpty(t *testing.T) {
	ctx := context.Background()
	q := newMemQuerier()
	q.failAll = true
	idx, err := NewFoodIndex(q, &fakeEmbedder{}, log.NewNop())
	if err != nil {
		t.Fatal(err)
	}

	if results := idx.Search(ctx, "anything", 5); results != nil {
		t.Errorf("expected empty result on failure, got %v", results)
	}
}

func TestToolIndex_ReindexIdempotent(t *testing.T) {
	ctx := context.Background()
	q := newMemQuerier()
	idx, err := NewToolIndex(q, &fakeEmbedder{}, log.NewNop())
	if err != nil {
		t.Fatal(err)
	}

	tools := []ToolDoc{
		{Name: "analyze_health_and_nutrition", Description: "신체 정보와 섭취량 분석"},
		{Name: "recommend_food_from_db", Description: "조건에 맞는 음식 검색"},
	}

	if err := idx.Reindex(ctx, tools); err != nil {
		t.Fatalf("first reindex: %v", err)
	}
	first, _ := idx.Count(ctx)

	if err := idx.Reindex(ctx, tools); err != nil {
		t.Fatalf("second reindex: %v", err)
	}
	second, _ := idx.Count(ctx)

	if first != 2 || second != 2 {
		t.Errorf("reindex must be idempotent: got %d then %d", first, second)
	}
}

func TestToolIndex_ReindexReplacesStaleEntries(t *testing.T) {
	ctx := context.Background()
	q := newMemQuerier()
	idx, err := NewToolIndex(q, &fakeEmbedder{}, log.NewNop())
	if err != nil {
		t.Fatal(err)
	}

	if err := idx.Reindex(ctx, []ToolDoc{{Name: "old_tool", Description: "gone next restart"}}); err != nil {
		t.Fatal(err)
	}
	if err := idx.Reindex(ctx, []ToolDoc{{Name: "new_tool", Description: "current"}}); err != nil {
		t.Fatal(err)
	}

	docs, err := idx.AllToolDocs(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(docs) != 1 || docs[0].Name() != "new_tool" {
		t.Errorf("stale entries must be removed: %+v", docs)
	}
}

func TestStore_UpsertEmbedderFailure(t *testing.T) {
	ctx := context.Background()
	store, err := New(newMemQuerier(), &fakeEmbedder{err: errors.New("quota exceeded")}, CollectionFood, log.NewNop())
	if err != nil {
		t.Fatal(err)
	}

	err = store.Upsert(ctx, []Document{{ID: "x", Content: "y"}})
	if err == nil {
		t.Fatal("expected embed error to propagate from Upsert")
	}
}

func TestBuildFilterSQL(t *testing.T) {
	where, args, err := buildFilterSQL([]Filter{
		{Field: "sodium", Op: OpLT, Value: 600},
		{Field: "protein", Op: OpGTE, Value: 20},
	}, 3)
	if err != nil {
		t.Fatalf("buildFilterSQL: %v", err)
	}
	want := " AND (metadata->>$3)::numeric < $4 AND (metadata->>$5)::numeric >= $6"
	if where != want {
		t.Errorf("where = %q, want %q", where, want)
	}
	if len(args) != 4 {
		t.Errorf("expected 4 args, got %v", args)
	}
}

func TestBuildFilterSQL_RejectsUnknownOperator(t *testing.T) {
	if _, _, err := buildFilterSQL([]Filter{{Field: "x", Op: Op("; DROP TABLE"), Value: 1}}, 1); err == nil {
		t.Fatal("expected unknown operator to be rejected")
	}
}
