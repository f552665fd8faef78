package catalog

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// Static lookup tables for the advice-style tools. Entries are coarse on
// purpose: the model rewrites them into conversational answers, so they
// only need to carry the facts.

var recipeSteps = map[string][]string{
	"김치찌개":     {"돼지고기를 들기름에 볶는다", "신김치를 넣고 함께 볶는다", "물과 김칫국물을 붓고 끓인다", "두부와 대파를 넣고 한소끔 더 끓인다"},
	"된장찌개":     {"멸치 육수를 낸다", "된장을 풀고 감자와 양파를 넣는다", "두부와 애호박을 넣고 끓인다", "청양고추와 대파로 마무리한다"},
	"계란말이":     {"계란을 풀어 소금으로 간한다", "당근과 파를 잘게 썰어 섞는다", "약불에서 여러 번 말아가며 부친다", "한 김 식힌 뒤 썬다"},
	"닭가슴살 샐러드": {"닭가슴살을 삶아 결대로 찢는다", "채소를 씻어 한입 크기로 자른다", "올리브유와 발사믹으로 드레싱을 만든다", "재료를 섞고 드레싱을 끼얹는다"},
	"오트밀죽":     {"오트밀에 물이나 우유를 붓는다", "약불에서 저어가며 끓인다", "소금 또는 꿀로 간한다", "견과류를 올려 마무리한다"},
}

var foodPairings = map[string]string{
	"삼겹살":  "쌈채소와 마늘 — 지방 섭취를 보완하는 식이섬유 조합입니다.",
	"치킨":   "무 절임과 맥주 대신 탄산수 — 나트륨 배출을 돕습니다.",
	"라면":   "계란과 파 — 부족한 단백질을 보충합니다.",
	"고구마":  "우유 — 탄수화물과 단백질의 균형을 맞춥니다.",
	"두부":   "김치 — 식물성 단백질에 유산균을 더합니다.",
	"닭가슴살": "브로콜리 — 근성장 식단의 대표 조합입니다.",
}

var seasonalFoods = map[int][]string{
	1:  {"굴", "한라봉", "시금치"},
	2:  {"바지락", "딸기", "냉이"},
	3:  {"주꾸미", "달래", "쑥"},
	4:  {"참돔", "두릅", "키조개"},
	5:  {"멍게", "매실", "완두콩"},
	6:  {"전복", "참외", "감자"},
	7:  {"장어", "복숭아", "옥수수"},
	8:  {"전갱이", "포도", "가지"},
	9:  {"전어", "무화과", "버섯"},
	10: {"대하", "감", "고구마"},
	11: {"꼬막", "사과", "배추"},
	12: {"과메기", "귤", "무"},
}

var symptomAdvice = map[string]string{
	"피로":   "비타민 B군과 철분이 풍부한 소고기, 시금치, 달걀을 섭취하고 수분을 충분히 드세요.",
	"변비":   "식이섬유가 많은 고구마, 사과, 미역과 함께 물을 하루 1.5L 이상 드세요.",
	"소화불량": "기름진 음식을 피하고 죽, 바나나, 생강차처럼 위에 부담이 적은 음식을 드세요.",
	"두통":   "수분 부족이 원인일 수 있습니다. 물을 마시고 마그네슘이 풍부한 견과류를 드세요.",
	"붓기":   "나트륨 섭취를 줄이고 칼륨이 풍부한 바나나, 오이, 팥물을 드세요.",
	"빈혈":   "철분이 풍부한 간, 굴, 시금치를 비타민C와 함께 섭취하면 흡수율이 올라갑니다.",
}

var deficiencyAdvice = map[string]string{
	"단백질":  "닭가슴살, 두부, 달걀, 그릭요거트로 매 끼니 단백질을 채우세요.",
	"철분":   "소고기, 굴, 시금치가 좋습니다. 비타민C와 함께 먹으면 흡수가 잘 됩니다.",
	"칼슘":   "우유, 멸치, 케일을 꾸준히 드세요. 비타민D가 흡수를 돕습니다.",
	"비타민C": "파프리카, 키위, 딸기에 특히 많습니다. 생으로 먹는 것이 좋습니다.",
	"비타민D": "연어, 달걀노른자, 버섯과 함께 햇볕을 20분 이상 쬐세요.",
	"식이섬유": "현미, 귀리, 브로콜리, 사과를 식단에 더하세요.",
	"마그네슘": "아몬드, 바나나, 다크초콜릿이 좋은 공급원입니다.",
}

// shoppingIngredients maps a menu to its core ingredients for list building.
var shoppingIngredients = map[string][]string{
	"김치찌개":     {"돼지고기", "신김치", "두부", "대파"},
	"된장찌개":     {"된장", "감자", "양파", "두부", "애호박"},
	"계란말이":     {"계란", "당근", "대파"},
	"닭가슴살 샐러드": {"닭가슴살", "샐러드 채소", "올리브유", "발사믹 식초"},
	"오트밀죽":     {"오트밀", "우유", "견과류", "꿀"},
}

func recipeStepsTool() *Descriptor {
	return &Descriptor{
		Name:        "get_recipe_steps",
		Description: "음식 이름(menu)을 받아 기본 조리 순서를 알려줍니다.",
		run: func(_ context.Context, input map[string]any) (string, error) {
			menu := stringParam(input, "menu", "")
			steps, ok := recipeSteps[menu]
			if !ok {
				return fmt.Sprintf("'%s'의 레시피 정보가 없습니다.", menu), nil
			}

			var sb strings.Builder
			fmt.Fprintf(&sb, "[%s 조리 순서]\n", menu)
			for i, step := range steps {
				fmt.Fprintf(&sb, "%d. %s\n", i+1, step)
			}
			return sb.String(), nil
		},
	}
}

func foodPairingTool() *Descriptor {
	return &Descriptor{
		Name:        "suggest_food_pairing",
		Description: "음식 이름(food)을 받아 영양 균형을 맞추는 궁합 음식을 추천합니다.",
		run: func(_ context.Context, input map[string]any) (string, error) {
			food := stringParam(input, "food", "")
			pairing, ok := foodPairings[food]
			if !ok {
				return fmt.Sprintf("'%s'의 궁합 정보가 없습니다. 채소 반찬을 곁들이는 것을 기본으로 추천합니다.", food), nil
			}
			return fmt.Sprintf("[궁합 추천] %s + %s", food, pairing), nil
		},
	}
}

func seasonalFoodsTool() *Descriptor {
	return &Descriptor{
		Name:        "get_seasonal_foods",
		Description: "월(month, 1~12)을 받아 해당 달의 제철 음식을 알려줍니다. 월이 없으면 이번 달 기준입니다.",
		run: func(_ context.Context, input map[string]any) (string, error) {
			month := intParam(input, "month", int(time.Now().Month()))
			foods, ok := seasonalFoods[month]
			if !ok {
				return "해당 월의 제철 음식 정보가 없습니다.", nil
			}
			return fmt.Sprintf("[%d월 제철 음식] %s", month, strings.Join(foods, ", ")), nil
		},
	}
}

func symptomAdviceTool() *Descriptor {
	return &Descriptor{
		Name:        "advise_for_symptom",
		Description: "증상(symptom: 피로, 변비, 소화불량, 두통, 붓기, 빈혈)을 받아 도움이 되는 식이 조언을 합니다.",
		run: func(_ context.Context, input map[string]any) (string, error) {
			symptom := stringParam(input, "symptom", "")
			advice, ok := symptomAdvice[symptom]
			if !ok {
				return fmt.Sprintf("'%s' 증상의 식이 정보가 없습니다. 증상이 계속되면 전문의 상담을 권합니다.", symptom), nil
			}
			return fmt.Sprintf("[증상 조언: %s] %s", symptom, advice), nil
		},
	}
}

func deficiencyAdviceTool() *Descriptor {
	return &Descriptor{
		Name:        "advise_for_deficiency",
		Description: "부족한 영양소(nutrient: 단백질, 철분, 칼슘, 비타민C, 비타민D, 식이섬유, 마그네슘)를 받아 보충 식품을 추천합니다.",
		run: func(_ context.Context, input map[string]any) (string, error) {
			nutrient := stringParam(input, "nutrient", "")
			advice, ok := deficiencyAdvice[nutrient]
			if !ok {
				return fmt.Sprintf("'%s' 영양소의 보충 정보가 없습니다.", nutrient), nil
			}
			return fmt.Sprintf("[영양소 보충: %s] %s", nutrient, advice), nil
		},
	}
}

func shoppingListTool() *Descriptor {
	return &Descriptor{
		Name:        "generate_shopping_list",
		Description: "메뉴 목록(menus)을 받아 필요한 재료를 묶은 장보기 목록을 만듭니다.",
		run: func(_ context.Context, input map[string]any) (string, error) {
			menus := stringSliceParam(input, "menus")
			if len(menus) == 0 {
				return "장보기 목록을 만들 메뉴가 없습니다.", nil
			}

			seen := make(map[string]bool)
			var items []string
			var unknown []string
			for _, menu := range menus {
				ingredients, ok := shoppingIngredients[menu]
				if !ok {
					unknown = append(unknown, menu)
					continue
				}
				for _, item := range ingredients {
					if !seen[item] {
						seen[item] = true
						items = append(items, item)
					}
				}
			}

			var sb strings.Builder
			sb.WriteString("[장보기 목록]\n")
			if len(items) == 0 {
				sb.WriteString("등록된 재료 정보가 없습니다. 메뉴를 직접 확인해 주세요.\n")
			}
			for _, item := range items {
				fmt.Fprintf(&sb, "- %s\n", item)
			}
			if len(unknown) > 0 {
				fmt.Fprintf(&sb, "(재료 정보 없음: %s)", strings.Join(unknown, ", "))
			}
			return sb.String(), nil
		},
	}
}
