package catalog

import (
	"context"
	"fmt"
	"strings"

	"github.com/matchmeal/matchmeal/internal/vector"
)

// conditionFilters maps health-condition tags to food metadata filters.
// Unknown tags mean an unfiltered search.
var conditionFilters = map[string][]vector.Filter{
	"high_bp":  {{Field: "sodium", Op: vector.OpLT, Value: 600}},
	"diabetes": {{Field: "sugar", Op: vector.OpLT, Value: 5}},
	"diet":     {{Field: "calories", Op: vector.OpLT, Value: 400}},
	"muscle":   {{Field: "protein", Op: vector.OpGTE, Value: 20}},
}

func recommendFoodTool(foods FoodSearcher) *Descriptor {
	return &Descriptor{
		Name: "recommend_food_from_db",
		Description: "음식 데이터베이스에서 조건에 맞는 음식을 검색합니다. " +
			"health_condition 옵션: 'general', 'high_bp'(고혈압), 'diabetes'(당뇨), 'diet'(다이어트), 'muscle'(근성장).",
		run: func(ctx context.Context, input map[string]any) (string, error) {
			query := stringParam(input, "query", "")
			condition := stringParam(input, "health_condition", "general")

			results := foods.Search(ctx, query, 5, conditionFilters[condition]...)

			var sb strings.Builder
			fmt.Fprintf(&sb, "[검색 결과 (조건: %s)]\n", condition)
			if len(results) == 0 {
				sb.WriteString("조건에 맞는 메뉴가 없습니다.")
				return sb.String(), nil
			}

			for _, r := range results {
				detail := ""
				switch condition {
				case "high_bp":
					detail = fmt.Sprintf(", 나트륨 %.0fmg", r.Float("sodium"))
				case "diabetes":
					detail = fmt.Sprintf(", 당류 %.1fg", r.Float("sugar"))
				}
				fmt.Fprintf(&sb, "- %s (%.0fkcal%s)\n", r.Name(), r.Float("calories"), detail)
			}
			return sb.String(), nil
		},
	}
}

func compareFoodsTool(foods FoodSearcher) *Descriptor {
	return &Descriptor{
		Name: "compare_foods",
		Description: "두 가지 음식의 칼로리와 주요 영양소(단백질, 지방, 탄수화물, 나트륨)를 비교합니다. " +
			"food_a와 food_b에 음식 이름을 받습니다.",
		run: func(ctx context.Context, input map[string]any) (string, error) {
			nameA := stringParam(input, "food_a", "")
			nameB := stringParam(input, "food_b", "")
			if nameA == "" || nameB == "" {
				return "비교할 두 가지 음식 이름이 필요합니다.", nil
			}

			docA := firstResult(ctx, foods, nameA)
			docB := firstResult(ctx, foods, nameB)
			if docA == nil || docB == nil {
				return "비교할 음식 정보를 찾을 수 없습니다.", nil
			}

			var sb strings.Builder
			sb.WriteString("[음식 비교]\n")
			for _, d := range []*vector.Result{docA, docB} {
				fmt.Fprintf(&sb, "- %s: %.0fkcal, 단백질 %.1fg, 지방 %.1fg, 탄수화물 %.1fg, 나트륨 %.0fmg\n",
					d.Name(), d.Float("calories"), d.Float("protein"),
					d.Float("fat"), d.Float("carbohydrate"), d.Float("sodium"))
			}

			switch {
			case docA.Float("calories") < docB.Float("calories"):
				fmt.Fprintf(&sb, "칼로리는 %s 쪽이 더 낮습니다.", docA.Name())
			case docA.Float("calories") > docB.Float("calories"):
				fmt.Fprintf(&sb, "칼로리는 %s 쪽이 더 낮습니다.", docB.Name())
			default:
				sb.WriteString("두 음식의 칼로리는 비슷합니다.")
			}
			return sb.String(), nil
		},
	}
}

// snackFilters narrows snack suggestions per goal tag.
var snackFilters = map[string][]vector.Filter{
	"diet":   {{Field: "calories", Op: vector.OpLT, Value: 200}},
	"muscle": {{Field: "protein", Op: vector.OpGTE, Value: 10}},
}

func snackTool(foods FoodSearcher) *Descriptor {
	return &Descriptor{
		Name: "suggest_snack",
		Description: "목표에 맞는 간식을 추천합니다. goal 옵션: 'diet'(저칼로리), 'muscle'(고단백), " +
			"그 외에는 일반 간식을 추천합니다.",
		run: func(ctx context.Context, input map[string]any) (string, error) {
			goal := stringParam(input, "goal", "general")

			results := foods.Search(ctx, "간식", 3, snackFilters[goal]...)
			if len(results) == 0 {
				return "[간식 추천] 추천할 간식 데이터가 없습니다. 견과류 한 줌이나 플레인 요거트를 권해 드립니다.", nil
			}

			var sb strings.Builder
			fmt.Fprintf(&sb, "[간식 추천 (목표: %s)]\n", goal)
			for _, r := range results {
				fmt.Fprintf(&sb, "- %s (%.0fkcal, 단백질 %.1fg)\n",
					r.Name(), r.Float("calories"), r.Float("protein"))
			}
			return sb.String(), nil
		},
	}
}

func firstResult(ctx context.Context, foods FoodSearcher, query string) *vector.Result {
	results := foods.Search(ctx, query, 1)
	if len(results) == 0 {
		return nil
	}
	return &results[0]
}
