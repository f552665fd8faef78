package api

import (
	"fmt"
	"strings"

	"github.com/matchmeal/matchmeal/internal/coach"
)

// UserProfile mirrors the profile block the app backend sends with every
// AI request. It is never persisted here; only its rendered summary ends
// up in a history record's question text.
type UserProfile struct {
	UserID    *int64  `json:"user_id,omitempty"`
	Name      string  `json:"name"`
	Age       int     `json:"age"`
	Gender    string  `json:"gender"`
	HeightCm  float64 `json:"height_cm"`
	WeightKg  float64 `json:"weight_kg"`
	BMI       float64 `json:"bmi"`
	BMIStatus string  `json:"bmi_status"`
	Allergies string  `json:"allergies"`
	Diseases  string  `json:"diseases"`
}

func (p UserProfile) toCoach() coach.Profile {
	return coach.Profile{
		UserID:    p.UserID,
		Name:      p.Name,
		Age:       p.Age,
		Gender:    p.Gender,
		HeightCm:  p.HeightCm,
		WeightKg:  p.WeightKg,
		BMI:       p.BMI,
		BMIStatus: p.BMIStatus,
		Allergies: p.Allergies,
		Diseases:  p.Diseases,
	}
}

// IntakeSummary is today's consumption totals.
type IntakeSummary struct {
	Calories float64 `json:"calories"`
	Sodium   float64 `json:"sodium"`
	Sugar    float64 `json:"sugar"`
}

// PeriodInfo bounds a multi-day analysis window.
type PeriodInfo struct {
	StartDate     string `json:"start_date"`
	EndDate       string `json:"end_date"`
	TotalDays     int    `json:"total_days"`
	RecordedMeals int    `json:"recorded_meals"`
}

// PeriodNutritionStats aggregates a window's nutrition numbers.
type PeriodNutritionStats struct {
	AvgCalories float64 `json:"avg_calories"`
	TotalSodium float64 `json:"total_sodium"`
	TotalSugar  float64 `json:"total_sugar"`
}

// PeriodFeedbackRequest asks for feedback over a recorded period.
type PeriodFeedbackRequest struct {
	UserProfile    UserProfile          `json:"user_profile"`
	PeriodInfo     PeriodInfo           `json:"period_info"`
	NutritionStats PeriodNutritionStats `json:"nutrition_stats"`
	MenuList       []string             `json:"menu_list"`
}

// RecommendRequest asks for a menu recommendation.
type RecommendRequest struct {
	UserProfile   UserProfile   `json:"user_profile"`
	CurrentIntake IntakeSummary `json:"current_intake"`
	MealType      string        `json:"meal_type"`
	Flavors       []string      `json:"flavors"`
}

// MealPlanRequest asks for a multi-day meal plan.
type MealPlanRequest struct {
	UserProfile UserProfile `json:"user_profile"`
	PeriodInfo  PeriodInfo  `json:"period_info"`
	Flavors     []string    `json:"flavors"`
}

// ChatRequest is a free-form conversation turn with history.
type ChatRequest struct {
	UserProfile UserProfile   `json:"user_profile"`
	History     []ChatTurn    `json:"history"`
	Message     string        `json:"message"`
	Persona     coach.Persona `json:"persona,omitempty"`
}

// ChatTurn is one prior conversation message.
type ChatTurn struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

func toCoachHistory(turns []ChatTurn) []coach.Turn {
	out := make([]coach.Turn, 0, len(turns))
	for _, t := range turns {
		out = append(out, coach.Turn{Role: t.Role, Content: t.Content})
	}
	return out
}

// AnswerResponse is the non-streaming answer envelope.
type AnswerResponse struct {
	Answer string `json:"answer"`
}

// The endpoint layer owns turning structured request fields into the
// free-text context string the orchestrator consumes.

func renderFeedbackContext(req PeriodFeedbackRequest) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "[기간별 식단 피드백 요청]\n")
	fmt.Fprintf(&sb, "분석 기간: %s ~ %s (%d일, 기록된 끼니 %d회)\n",
		req.PeriodInfo.StartDate, req.PeriodInfo.EndDate,
		req.PeriodInfo.TotalDays, req.PeriodInfo.RecordedMeals)
	fmt.Fprintf(&sb, "기간 평균 칼로리: %.0fkcal\n", req.NutritionStats.AvgCalories)
	fmt.Fprintf(&sb, "나트륨 총량: %.0fmg, 당류 총량: %.0fg\n",
		req.NutritionStats.TotalSodium, req.NutritionStats.TotalSugar)
	if len(req.MenuList) > 0 {
		fmt.Fprintf(&sb, "자주 먹은 메뉴: %s\n", strings.Join(req.MenuList, ", "))
	}
	sb.WriteString("이 기간의 식단을 분석하고 구체적인 피드백과 보완 메뉴를 제안해 주세요.")
	return sb.String()
}

func renderRecommendContext(req RecommendRequest) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "[맞춤 메뉴 추천 요청]\n")
	fmt.Fprintf(&sb, "오늘 섭취량: 칼로리 %.0fkcal, 나트륨 %.0fmg, 당류 %.0fg\n",
		req.CurrentIntake.Calories, req.CurrentIntake.Sodium, req.CurrentIntake.Sugar)
	if req.MealType != "" {
		fmt.Fprintf(&sb, "추천받을 끼니: %s\n", req.MealType)
	}
	if len(req.Flavors) > 0 {
		fmt.Fprintf(&sb, "원하는 맛: %s\n", strings.Join(req.Flavors, ", "))
	}
	sb.WriteString("지금 먹기 좋은 메뉴를 추천해 주세요.")
	return sb.String()
}

func renderMealPlanContext(req MealPlanRequest) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "[식단 구성 요청]\n")
	fmt.Fprintf(&sb, "대상 기간: %s ~ %s (%d일)\n",
		req.PeriodInfo.StartDate, req.PeriodInfo.EndDate, req.PeriodInfo.TotalDays)
	if len(req.Flavors) > 0 {
		fmt.Fprintf(&sb, "원하는 맛: %s\n", strings.Join(req.Flavors, ", "))
	}
	sb.WriteString("아침/점심/저녁으로 구성된 구체적인 식단을 짜 주세요. 실제 메뉴명과 칼로리를 포함해 주세요.")
	return sb.String()
}
