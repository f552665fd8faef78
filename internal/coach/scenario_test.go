package coach

import (
	"context"
	"testing"

	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/genkit"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matchmeal/matchmeal/internal/catalog"
	"github.com/matchmeal/matchmeal/internal/log"
	"github.com/matchmeal/matchmeal/internal/selector"
	"github.com/matchmeal/matchmeal/internal/testutil"
	"github.com/matchmeal/matchmeal/internal/vector"
)

// catalogToolDocs serves the tool index straight from catalog docs,
// standing in for the pgvector-backed index.
type catalogToolDocs struct {
	docs []vector.ToolDoc
}

func (c *catalogToolDocs) results() []vector.Result {
	out := make([]vector.Result, 0, len(c.docs))
	for _, d := range c.docs {
		out = append(out, vector.Result{Document: vector.Document{
			ID:       d.Name,
			Content:  d.Description,
			Metadata: map[string]any{"name": d.Name},
		}})
	}
	return out
}

func (c *catalogToolDocs) Search(context.Context, string, int) ([]vector.Result, error) {
	return c.results(), nil
}

func (c *catalogToolDocs) AllToolDocs(context.Context) ([]vector.Result, error) {
	return c.results(), nil
}

// Full pipeline: selection through the real selector, the tool loop
// against the real catalog, and the voice contract on the final answer.
func TestScenario_SpicyFoodRecommendation(t *testing.T) {
	mock := testutil.NewMockLLM("매콤한 낙지볶음 어때요? 나트륨이 걱정되면 국물은 남기는 걸 추천해요.")
	// First call on this message is the selection stage; the second is the
	// tool-requesting turn.
	mock.AddResponseOnce("매운 음식 추천",
		`{"reasoning":"음식 DB 검색이 필요합니다.","selected_tools":["recommend_food_from_db"]}`)
	mock.AddToolResponse("매운 음식 추천", []*ai.ToolRequest{{
		Name:  "recommend_food_from_db",
		Ref:   "call-1",
		Input: map[string]any{"condition": "general", "query": "매운 음식"},
	}}, "")

	g := genkit.Init(context.Background())
	mock.Register(g)

	cat, err := catalog.New(emptyFoods{}, log.NewNop())
	require.NoError(t, err)
	refs := cat.Register(g)

	sel, err := selector.New(g, &catalogToolDocs{docs: cat.Docs()}, cat, testutil.MockModelName, log.NewNop())
	require.NoError(t, err)

	c, err := New(Config{
		Genkit:     g,
		Selector:   sel,
		Tools:      cat,
		ToolRefs:   refs,
		FastModel:  testutil.MockModelName,
		HeavyModel: testutil.MockModelName,
		Logger:     log.NewNop(),
	})
	require.NoError(t, err)

	answer := collect(t, c.RespondStream(context.Background(), Request{
		Context: "사용자가 매운 음식 추천을 원함",
		Profile: Profile{Allergies: "없음"},
		Tier:    TierHeavy,
		Persona: PersonaCoach,
	}))

	assert.Contains(t, answer, "낙지볶음")
	assert.NotContains(t, answer, "recommend_food_from_db")

	// Three model calls: selection, tool turn, final answer.
	calls := mock.Calls()
	require.Len(t, calls, 3)
	assert.Contains(t, calls[0].Response, "selected_tools")
}
