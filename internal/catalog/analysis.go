package catalog

import (
	"context"
	"fmt"
	"strings"
)

// basalMetabolicRate computes BMR via Mifflin-St Jeor.
// Gender offset: male +5, anything else -161.
func basalMetabolicRate(age int, gender string, heightCm, weightKg float64) float64 {
	offset := -161.0
	if strings.EqualFold(gender, "MALE") {
		offset = 5.0
	}
	return 10*weightKg + 6.25*heightCm - 5*float64(age) + offset
}

func analyzeHealthTool() *Descriptor {
	return &Descriptor{
		Name: "analyze_health_and_nutrition",
		Description: "사용자의 신체 정보(BMI, BMR)와 오늘 섭취 칼로리를 분석합니다. " +
			"나이, 성별(MALE/FEMALE), 키(cm), 몸무게(kg), 현재 섭취 칼로리, 질환, 알레르기를 받아 " +
			"기초대사량과 일일 권장 칼로리 대비 섭취율을 계산합니다.",
		run: func(_ context.Context, input map[string]any) (string, error) {
			age := intParam(input, "age", 30)
			gender := stringParam(input, "gender", "MALE")
			height := floatParam(input, "height_cm", 170)
			weight := floatParam(input, "weight_kg", 70)
			current := floatParam(input, "current_calories", 0)
			diseases := stringParam(input, "diseases", "없음")
			allergies := stringParam(input, "allergies", "없음")

			bmr := basalMetabolicRate(age, gender, height, weight)
			target := bmr * 1.375

			percent := 0
			if target != 0 {
				percent = int(current / target * 100)
			}

			return fmt.Sprintf(
				"[신체 분석] BMR %dkcal, 일일 권장 %dkcal\n"+
					"[현재 상태] %dkcal 섭취 (권장량의 %d%%)\n"+
					"[건강 정보] 질병: %s, 알레르기: %s",
				int(bmr), int(target), int(current), percent, diseases, allergies), nil
		},
	}
}

// activityFactors maps activity level tags to TDEE coefficients.
var activityFactors = map[string]float64{
	"sedentary":   1.2,
	"light":       1.375,
	"moderate":    1.55,
	"active":      1.725,
	"very_active": 1.9,
}

func maintenanceCaloriesTool() *Descriptor {
	return &Descriptor{
		Name: "calculate_maintenance_calories",
		Description: "유지 칼로리(TDEE)를 계산합니다. 기초대사량에 활동 수준 계수를 곱합니다. " +
			"활동 수준: sedentary(좌식), light(가벼운 활동), moderate(보통), active(활발), very_active(매우 활발).",
		run: func(_ context.Context, input map[string]any) (string, error) {
			age := intParam(input, "age", 30)
			gender := stringParam(input, "gender", "MALE")
			height := floatParam(input, "height_cm", 170)
			weight := floatParam(input, "weight_kg", 70)
			level := strings.ToLower(stringParam(input, "activity_level", "light"))

			factor, ok := activityFactors[level]
			if !ok {
				factor = activityFactors["light"]
				level = "light"
			}

			bmr := basalMetabolicRate(age, gender, height, weight)
			tdee := bmr * factor

			return fmt.Sprintf(
				"[유지 칼로리] 기초대사량 %dkcal, 활동 수준 '%s' (계수 %.3f) 기준 하루 유지 칼로리는 약 %dkcal입니다.",
				int(bmr), level, factor, int(tdee)), nil
		},
	}
}

// metValues lists MET coefficients per exercise. Unknown exercises fall
// back to defaultMET.
var metValues = map[string]float64{
	"걷기":   3.5,
	"달리기":  8.0,
	"수영":   6.0,
	"자전거":  7.5,
	"등산":   6.5,
	"요가":   2.5,
	"헬스":   5.0,
	"줄넘기":  10.0,
	"축구":   7.0,
	"배드민턴": 5.5,
}

const defaultMET = 4.0

func exerciseBurnTool() *Descriptor {
	return &Descriptor{
		Name: "calculate_exercise_burn",
		Description: "운동 소모 칼로리를 계산합니다. 운동 종류(걷기, 달리기, 수영, 자전거, 등산, 요가, 헬스, 줄넘기, 축구, 배드민턴), " +
			"몸무게(kg), 운동 시간(분)을 받아 MET 기반으로 소모 칼로리를 추정합니다.",
		run: func(_ context.Context, input map[string]any) (string, error) {
			exercise := stringParam(input, "exercise", "걷기")
			weight := floatParam(input, "weight_kg", 70)
			minutes := floatParam(input, "minutes", 30)

			met, ok := metValues[exercise]
			if !ok {
				met = defaultMET
			}
			burned := met * weight * (minutes / 60)

			return fmt.Sprintf(
				"[운동 분석] %s %d분 (MET %.1f) 기준 약 %dkcal를 소모합니다.",
				exercise, int(minutes), met, int(burned)), nil
		},
	}
}

func waterIntakeTool() *Descriptor {
	return &Descriptor{
		Name: "calculate_water_intake",
		Description: "하루 권장 수분 섭취량을 계산합니다. 몸무게(kg)당 33ml를 기본으로 하고, " +
			"운동 시간(분)이 있으면 분당 12ml를 추가합니다.",
		run: func(_ context.Context, input map[string]any) (string, error) {
			weight := floatParam(input, "weight_kg", 70)
			minutes := floatParam(input, "exercise_minutes", 0)

			base := weight * 33
			bonus := minutes * 12
			total := base + bonus

			if bonus > 0 {
				return fmt.Sprintf(
					"[수분 섭취] 기본 %dml + 운동 보충 %dml = 하루 약 %.1fL를 권장합니다.",
					int(base), int(bonus), total/1000), nil
			}
			return fmt.Sprintf("[수분 섭취] 하루 약 %.1fL(%dml)를 권장합니다.", total/1000, int(total)), nil
		},
	}
}

// ratio is a recommended carb/protein/fat energy split.
type ratio struct {
	carb, protein, fat float64
}

// nutritionStandards holds the age-band macronutrient ratio table.
// Minors use the 19-29 band.
var nutritionStandards = map[string]ratio{
	"19-29": {carb: 0.55, protein: 0.20, fat: 0.25},
	"30-49": {carb: 0.55, protein: 0.20, fat: 0.25},
	"50-64": {carb: 0.60, protein: 0.20, fat: 0.20},
	"65+":   {carb: 0.60, protein: 0.20, fat: 0.20},
}

func ageBand(age int) string {
	switch {
	case age <= 29:
		return "19-29"
	case age <= 49:
		return "30-49"
	case age <= 64:
		return "50-64"
	default:
		return "65+"
	}
}

func nutritionStandardTool() *Descriptor {
	return &Descriptor{
		Name: "get_nutrition_standard",
		Description: "연령대별 권장 탄수화물:단백질:지방 에너지 비율을 조회합니다. " +
			"나이를 받아 해당 연령 구간(19-29, 30-49, 50-64, 65+)의 권장 비율을 반환합니다.",
		run: func(_ context.Context, input map[string]any) (string, error) {
			age := intParam(input, "age", 30)
			band := ageBand(age)
			r := nutritionStandards[band]

			return fmt.Sprintf(
				"[영양 기준] %s세 권장 비율은 탄수화물 %d%% : 단백질 %d%% : 지방 %d%%입니다.",
				band, int(r.carb*100), int(r.protein*100), int(r.fat*100)), nil
		},
	}
}
