// Package selector picks the subset of catalog tools relevant to one
// request. Recall comes from the tool vector index, precision from a
// lightweight model call. Selection is fail-open: any failure along the
// way degrades to "no tools" and the parent request continues as a plain
// chat response.
package selector

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/genkit"

	"github.com/matchmeal/matchmeal/internal/log"
	"github.com/matchmeal/matchmeal/internal/vector"
)

// smallCatalogMax is the catalog size up to which the recall stage
// enumerates every tool instead of running a similarity search.
// Exhaustive enumeration is both more accurate and immune to
// index-size-related search failures at this scale.
const smallCatalogMax = 20

// searchTopK is the recall depth above the small-catalog threshold.
const searchTopK = 10

const selectionPrompt = `당신은 주어진 질문을 해결하기 위해 가장 적절한 도구를 선택하는 AI 어시스턴트입니다.

[사용 가능한 도구 목록]
%s

[지시사항]
1. 사용자의 질문을 분석하여 위 도구 목록 중 하나 이상이 필요한지 판단하세요.
2. 도구가 필요하다면 해당 도구의 정확한 이름을 리스트로 반환하세요.
3. 도구가 전혀 필요 없는 단순 대화(인사, 날씨, 농담 등)라면 빈 리스트 []를 반환하세요.
4. 반드시 아래 JSON 형식으로만 응답하세요.

{
    "reasoning": "선택 이유",
    "selected_tools": ["tool_name1", ...]
}`

// ToolDocs is the slice of the tool index the selector reads.
type ToolDocs interface {
	Search(ctx context.Context, query string, k int) ([]vector.Result, error)
	AllToolDocs(ctx context.Context) ([]vector.Result, error)
}

// CatalogView answers name-validity and size questions about the live
// tool catalog.
type CatalogView interface {
	Names() []string
	Size() int
}

// decision is the strict JSON shape the precision model must return.
type decision struct {
	Reasoning     string   `json:"reasoning"`
	SelectedTools []string `json:"selected_tools"`
}

// Selector selects tool names for a query.
type Selector struct {
	g       *genkit.Genkit
	index   ToolDocs
	catalog CatalogView
	model   string
	logger  log.Logger
}

// New creates a Selector. model is the fast-tier model name used for the
// precision stage.
func New(g *genkit.Genkit, index ToolDocs, catalog CatalogView, model string, logger log.Logger) (*Selector, error) {
	if g == nil {
		return nil, fmt.Errorf("selector: genkit instance is required")
	}
	if index == nil {
		return nil, fmt.Errorf("selector: tool index is required")
	}
	if catalog == nil {
		return nil, fmt.Errorf("selector: catalog is required")
	}
	if model == "" {
		return nil, fmt.Errorf("selector: model name is required")
	}
	if logger == nil {
		logger = log.NewNop()
	}
	return &Selector{g: g, index: index, catalog: catalog, model: model, logger: logger}, nil
}

// Select returns the tool names relevant to query. The result is always a
// subset of the live catalog's names; on any failure it is empty, never
// an error.
func (s *Selector) Select(ctx context.Context, query string) []string {
	candidates, err := s.recall(ctx, query)
	if err != nil {
		s.logger.Warn("tool recall failed, continuing without tools", "error", err)
		return nil
	}

	valid := make(map[string]bool, s.catalog.Size())
	for _, name := range s.catalog.Names() {
		valid[name] = true
	}

	// Drop stale index entries whose tool no longer exists.
	var lines []string
	candidateNames := make(map[string]bool)
	for _, doc := range candidates {
		name := doc.Name()
		if !valid[name] {
			continue
		}
		candidateNames[name] = true
		lines = append(lines, fmt.Sprintf("- %s: %s", name, doc.Content))
	}

	// Fast path for small talk: no candidates, no model call.
	if len(lines) == 0 {
		return nil
	}

	selected, err := s.decide(ctx, query, strings.Join(lines, "\n"))
	if err != nil {
		s.logger.Warn("tool selection model failed, continuing without tools", "error", err)
		return nil
	}

	var final []string
	for _, name := range selected {
		if candidateNames[name] {
			final = append(final, name)
		}
	}

	s.logger.Debug("tools selected", "query", query, "selected", final)
	return final
}

// recall fetches candidate tool documents from the index.
func (s *Selector) recall(ctx context.Context, query string) ([]vector.Result, error) {
	if s.catalog.Size() <= smallCatalogMax {
		return s.index.AllToolDocs(ctx)
	}
	return s.index.Search(ctx, query, searchTopK)
}

// decide runs the precision stage and parses the model's JSON verdict.
func (s *Selector) decide(ctx context.Context, query, candidateList string) ([]string, error) {
	resp, err := genkit.Generate(ctx, s.g,
		ai.WithModelName(s.model),
		ai.WithSystem(fmt.Sprintf(selectionPrompt, candidateList)),
		ai.WithPrompt(query),
	)
	if err != nil {
		return nil, fmt.Errorf("selection generate: %w", err)
	}

	text := stripCodeFences(resp.Text())
	var d decision
	if err := json.Unmarshal([]byte(text), &d); err != nil {
		return nil, fmt.Errorf("parsing selection JSON: %w (raw: %q)", err, truncate(text, 200))
	}
	return d.SelectedTools, nil
}

// stripCodeFences removes ```json ... ``` wrapping from model output.
func stripCodeFences(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "```") {
		if idx := strings.Index(s, "\n"); idx != -1 {
			s = s[idx+1:]
		}
		if idx := strings.LastIndex(s, "```"); idx != -1 {
			s = s[:idx]
		}
		s = strings.TrimSpace(s)
	}
	return s
}

// truncate shortens s to at most n bytes for logging.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
