package catalog

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matchmeal/matchmeal/internal/log"
	"github.com/matchmeal/matchmeal/internal/vector"
)

// fakeFoods records search calls and replays canned results.
type fakeFoods struct {
	results     []vector.Result
	lastQuery   string
	lastK       int
	lastFilters []vector.Filter
}

func (f *fakeFoods) Search(_ context.Context, query string, k int, filters ...vector.Filter) []vector.Result {
	f.lastQuery = query
	f.lastK = k
	f.lastFilters = filters
	return f.results
}

func foodResult(name string, meta map[string]any) vector.Result {
	meta["name"] = name
	return vector.Result{Document: vector.Document{Content: name, Metadata: meta}}
}

func newTestCatalog(t *testing.T, foods FoodSearcher) *Catalog {
	t.Helper()
	c, err := New(foods, log.NewNop())
	require.NoError(t, err)
	return c
}

func TestCatalog_UniqueNamesAndLookup(t *testing.T) {
	c := newTestCatalog(t, &fakeFoods{})

	names := c.Names()
	assert.Len(t, names, 14)

	seen := make(map[string]bool)
	for _, name := range names {
		assert.False(t, seen[name], "duplicate tool name %q", name)
		seen[name] = true

		d, ok := c.Lookup(name)
		require.True(t, ok)
		assert.Equal(t, name, d.Name)
		assert.NotEmpty(t, d.Description)
	}

	_, ok := c.Lookup("no_such_tool")
	assert.False(t, ok)
}

func TestCatalog_RunUnknownToolReturnsProse(t *testing.T) {
	c := newTestCatalog(t, &fakeFoods{})

	out := c.Run(context.Background(), "ghost_tool", nil)
	assert.Contains(t, out, "ghost_tool")
	assert.Contains(t, out, "찾을 수 없습니다")
}

func TestCatalog_DocsMirrorCatalog(t *testing.T) {
	c := newTestCatalog(t, &fakeFoods{})

	docs := c.Docs()
	require.Len(t, docs, c.Size())
	for i, doc := range docs {
		assert.Equal(t, c.Names()[i], doc.Name)
		assert.NotEmpty(t, doc.Description)
	}
}

func TestAnalyzeHealth_BMRDeterminism(t *testing.T) {
	c := newTestCatalog(t, &fakeFoods{})

	// 10*70 + 6.25*170 - 5*30 + 5 = 1617.5, target 1617.5*1.375 = 2224.1
	out := c.Run(context.Background(), "analyze_health_and_nutrition", map[string]any{
		"age":       30,
		"gender":    "MALE",
		"height_cm": 170.0,
		"weight_kg": 70.0,
	})
	assert.Contains(t, out, "BMR 1617kcal")
	assert.Contains(t, out, "일일 권장 2224kcal")
}

func TestAnalyzeHealth_FemaleOffset(t *testing.T) {
	c := newTestCatalog(t, &fakeFoods{})

	// 10*60 + 6.25*165 - 5*25 + (-161) = 1345.25
	out := c.Run(context.Background(), "analyze_health_and_nutrition", map[string]any{
		"age":       25,
		"gender":    "FEMALE",
		"height_cm": 165.0,
		"weight_kg": 60.0,
	})
	assert.Contains(t, out, "BMR 1345kcal")
}

func TestAnalyzeHealth_ZeroTargetGuard(t *testing.T) {
	c := newTestCatalog(t, &fakeFoods{})

	// Degenerate inputs produce target 0; the percent must be 0, not a panic.
	out := c.Run(context.Background(), "analyze_health_and_nutrition", map[string]any{
		"age":              0,
		"gender":           "FEMALE",
		"height_cm":        25.76,
		"weight_kg":        0.0,
		"current_calories": 500.0,
	})
	assert.Contains(t, out, "권장량의 0%")
}

func TestAnalyzeHealth_DefaultsTolerated(t *testing.T) {
	c := newTestCatalog(t, &fakeFoods{})

	// No parameters at all: defaults age 30 / MALE / 170cm / 70kg apply.
	out := c.Run(context.Background(), "analyze_health_and_nutrition", nil)
	assert.Contains(t, out, "BMR 1617kcal")
	assert.Contains(t, out, "질병: 없음")
}

func TestRecommendFood_ConditionFilters(t *testing.T) {
	tests := []struct {
		condition string
		field     string
		op        vector.Op
		value     float64
	}{
		{"high_bp", "sodium", vector.OpLT, 600},
		{"diabetes", "sugar", vector.OpLT, 5},
		{"diet", "calories", vector.OpLT, 400},
		{"muscle", "protein", vector.OpGTE, 20},
	}

	for _, tt := range tests {
		t.Run(tt.condition, func(t *testing.T) {
			foods := &fakeFoods{}
			c := newTestCatalog(t, foods)

			c.Run(context.Background(), "recommend_food_from_db", map[string]any{
				"query":            "저녁 메뉴",
				"health_condition": tt.condition,
			})

			require.Len(t, foods.lastFilters, 1)
			assert.Equal(t, tt.field, foods.lastFilters[0].Field)
			assert.Equal(t, tt.op, foods.lastFilters[0].Op)
			assert.Equal(t, tt.value, foods.lastFilters[0].Value)
			assert.Equal(t, 5, foods.lastK)
		})
	}
}

func TestRecommendFood_GeneralIsUnfiltered(t *testing.T) {
	foods := &fakeFoods{}
	c := newTestCatalog(t, foods)

	c.Run(context.Background(), "recommend_food_from_db", map[string]any{
		"query":            "매운 음식",
		"health_condition": "general",
	})
	assert.Empty(t, foods.lastFilters)
}

func TestRecommendFood_EmptyResultProse(t *testing.T) {
	c := newTestCatalog(t, &fakeFoods{})

	out := c.Run(context.Background(), "recommend_food_from_db", map[string]any{
		"query": "우주 음식",
	})
	assert.Contains(t, out, "조건에 맞는 메뉴가 없습니다")
}

func TestRecommendFood_HighlightsConditionDetail(t *testing.T) {
	foods := &fakeFoods{results: []vector.Result{
		foodResult("콩나물국", map[string]any{"calories": 50.0, "sodium": 320.0}),
	}}
	c := newTestCatalog(t, foods)

	out := c.Run(context.Background(), "recommend_food_from_db", map[string]any{
		"query":            "국물",
		"health_condition": "high_bp",
	})
	assert.Contains(t, out, "콩나물국")
	assert.Contains(t, out, "나트륨 320mg")
}

func TestExerciseBurn_KnownAndUnknownMET(t *testing.T) {
	c := newTestCatalog(t, &fakeFoods{})

	// 달리기: 8.0 * 70 * (30/60) = 280kcal
	out := c.Run(context.Background(), "calculate_exercise_burn", map[string]any{
		"exercise":  "달리기",
		"weight_kg": 70.0,
		"minutes":   30.0,
	})
	assert.Contains(t, out, "280kcal")

	// unknown exercise falls back to MET 4.0: 4.0 * 70 * 0.5 = 140kcal
	out = c.Run(context.Background(), "calculate_exercise_burn", map[string]any{
		"exercise":  "저글링",
		"weight_kg": 70.0,
		"minutes":   30.0,
	})
	assert.Contains(t, out, "140kcal")
}

func TestMaintenanceCalories_ActivityFactors(t *testing.T) {
	c := newTestCatalog(t, &fakeFoods{})

	// BMR 1617.5 * 1.55 = 2507.1
	out := c.Run(context.Background(), "calculate_maintenance_calories", map[string]any{
		"age": 30, "gender": "MALE", "height_cm": 170.0, "weight_kg": 70.0,
		"activity_level": "moderate",
	})
	assert.Contains(t, out, "2507kcal")

	// Unknown level falls back to light (1.375): 2224kcal.
	out = c.Run(context.Background(), "calculate_maintenance_calories", map[string]any{
		"age": 30, "gender": "MALE", "height_cm": 170.0, "weight_kg": 70.0,
		"activity_level": "extreme",
	})
	assert.Contains(t, out, "2224kcal")
}

func TestWaterIntake(t *testing.T) {
	c := newTestCatalog(t, &fakeFoods{})

	// 70 * 33 = 2310ml
	out := c.Run(context.Background(), "calculate_water_intake", map[string]any{
		"weight_kg": 70.0,
	})
	assert.Contains(t, out, "2310ml")

	// exercise bonus: 2310 + 30*12 = 2670ml → 2.7L
	out = c.Run(context.Background(), "calculate_water_intake", map[string]any{
		"weight_kg":        70.0,
		"exercise_minutes": 30.0,
	})
	assert.Contains(t, out, "360ml")
	assert.Contains(t, out, "2.7L")
}

func TestNutritionStandard_AgeBands(t *testing.T) {
	c := newTestCatalog(t, &fakeFoods{})

	tests := []struct {
		age  int
		band string
		fat  string
	}{
		{15, "19-29", "지방 25%"}, // minors use the 19-29 band
		{25, "19-29", "지방 25%"},
		{40, "30-49", "지방 25%"},
		{55, "50-64", "지방 20%"},
		{70, "65+", "지방 20%"},
	}

	for _, tt := range tests {
		out := c.Run(context.Background(), "get_nutrition_standard", map[string]any{"age": tt.age})
		assert.Contains(t, out, tt.band, "age %d", tt.age)
		assert.Contains(t, out, tt.fat, "age %d", tt.age)
	}
}

func TestAdviceTools_GracefulFallback(t *testing.T) {
	c := newTestCatalog(t, &fakeFoods{})
	ctx := context.Background()

	tests := []struct {
		tool     string
		input    map[string]any
		fallback string
	}{
		{"get_recipe_steps", map[string]any{"menu": "화성식 스튜"}, "레시피 정보가 없습니다"},
		{"suggest_food_pairing", map[string]any{"food": "말린 해파리"}, "궁합 정보가 없습니다"},
		{"advise_for_symptom", map[string]any{"symptom": "기분 좋음"}, "식이 정보가 없습니다"},
		{"advise_for_deficiency", map[string]any{"nutrient": "미스터리"}, "보충 정보가 없습니다"},
		{"generate_shopping_list", nil, "메뉴가 없습니다"},
	}

	for _, tt := range tests {
		out := c.Run(ctx, tt.tool, tt.input)
		assert.Contains(t, out, tt.fallback, "tool %s", tt.tool)
	}
}

func TestRecipeSteps_KnownMenu(t *testing.T) {
	c := newTestCatalog(t, &fakeFoods{})

	out := c.Run(context.Background(), "get_recipe_steps", map[string]any{"menu": "김치찌개"})
	assert.Contains(t, out, "1. ")
	assert.Contains(t, out, "돼지고기")
}

func TestShoppingList_DeduplicatesIngredients(t *testing.T) {
	c := newTestCatalog(t, &fakeFoods{})

	out := c.Run(context.Background(), "generate_shopping_list", map[string]any{
		"menus": []any{"김치찌개", "된장찌개"},
	})
	// 두부 appears in both recipes but must be listed once.
	assert.Equal(t, 1, strings.Count(out, "두부"))
	assert.Contains(t, out, "돼지고기")
	assert.Contains(t, out, "된장")
}

func TestSeasonalFoods_ExplicitMonth(t *testing.T) {
	c := newTestCatalog(t, &fakeFoods{})

	out := c.Run(context.Background(), "get_seasonal_foods", map[string]any{"month": 10})
	assert.Contains(t, out, "10월")
	assert.Contains(t, out, "대하")
}

func TestParamCoercion(t *testing.T) {
	input := map[string]any{
		"float":  12.5,
		"int":    7,
		"string": "1,250.5",
		"junk":   "not a number",
		"list":   []any{"a", " b ", ""},
		"csv":    "x, y,z",
	}

	assert.Equal(t, 12.5, floatParam(input, "float", 0))
	assert.Equal(t, 7.0, floatParam(input, "int", 0))
	assert.Equal(t, 1250.5, floatParam(input, "string", 0))
	assert.Equal(t, 9.9, floatParam(input, "junk", 9.9))
	assert.Equal(t, 3.3, floatParam(input, "missing", 3.3))
	assert.Equal(t, []string{"a", "b"}, stringSliceParam(input, "list"))
	assert.Equal(t, []string{"x", "y", "z"}, stringSliceParam(input, "csv"))
	assert.Equal(t, "기본", stringParam(input, "missing", "기본"))
}
