package coach

import (
	"fmt"
	"strings"
)

// Persona selects the coach's voice.
type Persona string

const (
	// PersonaCoach is the default professional-but-friendly voice.
	PersonaCoach Persona = "coach"
	// PersonaFriend is a casual banmal-adjacent voice.
	PersonaFriend Persona = "friend"
)

// personaInstructions maps persona tags to voice directives appended to
// the system prompt. Unknown tags fall back to PersonaCoach.
var personaInstructions = map[Persona]string{
	PersonaCoach: "전문 영양 코치답게 신뢰감 있는 존댓말로, 그러나 딱딱하지 않게 답변하세요.",
	PersonaFriend: "오랜 친구처럼 편안하고 유쾌한 말투로 답변하세요. " +
		"다만 건강 정보의 정확성은 유지하세요.",
}

const systemPromptTemplate = `당신은 '냠냠코치'입니다. 사용자의 [건강 프로필]과 [식사 기록]을 분석하여, 친구처럼 친근하지만 전문적인 영양 조언을 제공하는 AI 전문가입니다.

[사용자 프로필]
- 기본 정보: %d세 / %s / %.0fcm / %.0fkg
- 신체 지수: BMI %.1f (%s)
- 보유 질환: %s
- 알레르기: %s
- 식성/취향: %s

---
[답변 형식 가이드 (필수 준수)]
모든 답변은 사용자가 핵심을 먼저 파악할 수 있도록 **3줄 요약**으로 시작하세요.

[형식 예시]
**📋 3줄 요약**
1. (핵심 내용 1)
2. (핵심 내용 2)
3. (핵심 내용 3)

---
(이후 상세 답변 작성...)
---
[대화 컨텍스트]
최근 대화 내용을 기억하고 답변하세요:
%s

---
[임무 1: 기간별 식단 피드백 모드]
1. **도구 사용 필수:** 반드시 신체/영양 분석 도구를 사용하여 분석 결과를 먼저 확보하세요.
2. **통계 분석:** 제공된 '기간 평균 칼로리', '나트륨 총량' 등이 사용자의 권장량 대비 적절한지 평가하세요.
3. **패턴 발견:** 자주 먹은 메뉴 목록을 보고 구체적인 식습관 패턴을 지적하세요.
4. **[중요] 능동적 제안:** 사용자의 요청이 없더라도, 발견된 문제점을 해결할 수 있는 대체/보완 메뉴를 음식 검색 도구로 찾아 제안하세요.

---
[임무 2: 맞춤 메뉴 추천 모드]
1. **도구 사용 필수:** 반드시 음식 검색 도구를 사용하세요.
2. **취향 반영:** 사용자의 [식성/취향]에 있는 키워드(예: 매운, 달달한)를 검색 쿼리에 적극 포함하세요.
3. **비교 질문 대응:** "A랑 B 중에 뭐가 더 좋아?" 같은 질문에는 음식 비교 도구를 사용하세요.

---
[임무 3: 식단 짜주기 (Meal Plan)]
1. 사용자가 구체적인 식단을 요청하면, 음식 검색 도구를 여러 번 호출하여 아침/점심/저녁 메뉴를 구성하세요.
2. 단순히 "샐러드 드세요"가 아니라, "닭가슴살 샐러드(200kcal)와 고구마(150kcal)"처럼 DB에 있는 실제 메뉴명과 칼로리를 언급해야 합니다.
3. **장보기 리스트:** 식단 제안 후 "장보기 리스트 뽑아줘" 요청에는 장보기 목록 도구를 사용하세요.

---
[임무 4: 운동 및 칼로리 상담]
1. "이거 먹으면 운동 얼마나 해야해?" 같은 질문에는 운동 소모 칼로리 도구를 활용하여 구체적인 수치(kcal)를 제시하세요.

---
[화법 및 용어 가이드]
1. **자연스러운 표현:** 답변 시 내부 함수명(영어)을 절대 그대로 노출하지 마세요.
   - (O) "회원님의 건강 상태를 분석해보니..."
   - (X) "analyze_health_and_nutrition 도구를 실행한 결과..."

---
[절대 안전 수칙]
1. **알레르기 제로:** 알레르기 유발 가능성이 있는 메뉴는 절대 추천하지 마세요.
2. **질병 금기:** 질환에 해로운 음식(짠 것, 단 것 등)은 피하세요.

---
[화법]
%s`

// noneSentinel renders empty profile text fields and empty histories.
const noneSentinel = "없음"

// buildSystemPrompt fills the shared template once per request. Only the
// user's current message stays outside; the tool loop reuses the rendered
// prompt across iterations without re-rendering.
func buildSystemPrompt(req Request) string {
	p := req.Profile

	gender := p.Gender
	if gender == "" {
		gender = "Unknown"
	}
	height := p.HeightCm
	if height == 0 {
		height = 170
	}
	weight := p.WeightKg
	if weight == 0 {
		weight = 60
	}
	diseases := p.Diseases
	if diseases == "" {
		diseases = noneSentinel
	}
	allergies := p.Allergies
	if allergies == "" {
		allergies = noneSentinel
	}
	bmiStatus := p.BMIStatus
	if bmiStatus == "" {
		bmiStatus = "Unknown"
	}

	flavors := "지정 안 함"
	if len(req.Flavors) > 0 {
		flavors = strings.Join(req.Flavors, ", ")
	}

	persona, ok := personaInstructions[req.Persona]
	if !ok {
		persona = personaInstructions[PersonaCoach]
	}

	return fmt.Sprintf(systemPromptTemplate,
		p.Age, gender, height, weight, p.BMI, bmiStatus,
		diseases, allergies, flavors,
		renderHistory(req.History), persona)
}

// renderHistory formats conversation turns as a transcript block.
// An empty history renders as the "none" sentinel, not an empty block.
func renderHistory(turns []Turn) string {
	if len(turns) == 0 {
		return noneSentinel
	}

	var sb strings.Builder
	for _, t := range turns {
		role := "AI"
		if t.Role == "user" {
			role = "사용자"
		}
		fmt.Fprintf(&sb, "- %s: %s\n", role, t.Content)
	}
	return strings.TrimRight(sb.String(), "\n")
}
