// Package testutil provides shared test infrastructure: a deterministic
// mock model and embedder registered through Genkit, and a disposable
// Postgres container with the project schema applied.
package testutil

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"math"
	"strings"
	"sync"

	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/genkit"
)

// MockModelName is the Genkit name the mock model registers under.
const MockModelName = "mock/coach-model"

// MockLLM returns canned responses by substring-matching the last user
// message. Rules are checked in registration order; first match wins.
// Safe for concurrent use.
type MockLLM struct {
	mu       sync.Mutex
	rules    []mockRule
	fallback string
	err      error
	calls    []MockCall
}

type mockRule struct {
	pattern  string
	response string
	tools    []*ai.ToolRequest
	once     bool
	err      error
}

// MockCall records one generate call against the mock.
type MockCall struct {
	UserMessage string
	Response    string
}

// NewMockLLM creates a mock model that answers fallback when no rule
// matches.
func NewMockLLM(fallback string) *MockLLM {
	return &MockLLM{fallback: fallback}
}

// AddResponse registers a pattern → text response rule.
func (m *MockLLM) AddResponse(pattern, response string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rules = append(m.rules, mockRule{pattern: strings.ToLower(pattern), response: response})
}

// AddResponseOnce registers a rule that is consumed after its first
// match. Useful when successive pipeline stages ask about the same user
// message and must get different answers.
func (m *MockLLM) AddResponseOnce(pattern, response string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rules = append(m.rules, mockRule{pattern: strings.ToLower(pattern), response: response, once: true})
}

// AddToolResponse registers a pattern that makes the model request the
// given tool calls alongside the text response. After a rule fires once
// it is consumed, so the follow-up turn falls through to later rules or
// the fallback; without this the tool loop would re-trigger forever.
func (m *MockLLM) AddToolResponse(pattern string, tools []*ai.ToolRequest, response string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rules = append(m.rules, mockRule{pattern: strings.ToLower(pattern), response: response, tools: tools})
}

// AddResponseThenFail registers a one-shot rule that streams partial as
// a chunk and then fails the call with err, simulating a connection that
// drops mid-generation.
func (m *MockLLM) AddResponseThenFail(pattern, partial string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rules = append(m.rules, mockRule{pattern: strings.ToLower(pattern), response: partial, once: true, err: err})
}

// FailWith makes every subsequent generate call return err.
func (m *MockLLM) FailWith(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

// Calls returns a copy of all recorded calls.
func (m *MockLLM) Calls() []MockCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := make([]MockCall, len(m.calls))
	copy(cp, m.calls)
	return cp
}

// Register defines the mock as a Genkit model.
func (m *MockLLM) Register(g *genkit.Genkit) ai.Model {
	return genkit.DefineModel(g, MockModelName, &ai.ModelOptions{
		Label: "Mock Coach Model",
		Supports: &ai.ModelSupports{
			Multiturn:  true,
			Tools:      true,
			SystemRole: true,
		},
	}, m.generate)
}

func (m *MockLLM) generate(ctx context.Context, req *ai.ModelRequest, cb ai.ModelStreamCallback) (*ai.ModelResponse, error) {
	var userText string
	for i := len(req.Messages) - 1; i >= 0; i-- {
		if req.Messages[i].Role == ai.RoleUser {
			userText = req.Messages[i].Text()
			break
		}
	}

	m.mu.Lock()
	if m.err != nil {
		err := m.err
		m.mu.Unlock()
		return nil, err
	}

	var matched *mockRule
	lower := strings.ToLower(userText)
	for i := range m.rules {
		if m.rules[i].pattern != "" && strings.Contains(lower, m.rules[i].pattern) {
			matched = &m.rules[i]
			break
		}
	}

	responseText := m.fallback
	var tools []*ai.ToolRequest
	var ruleErr error
	if matched != nil {
		responseText = matched.response
		tools = matched.tools
		ruleErr = matched.err
		if matched.once || len(tools) > 0 {
			matched.pattern = "" // consume one-shot rule
		}
	}

	m.calls = append(m.calls, MockCall{UserMessage: userText, Response: responseText})
	m.mu.Unlock()

	var parts []*ai.Part
	for _, tr := range tools {
		parts = append(parts, &ai.Part{Kind: ai.PartToolRequest, ToolRequest: tr})
	}
	parts = append(parts, ai.NewTextPart(responseText))

	if cb != nil {
		// Stream the whole turn as one chunk carrying every part, so
		// consumers exercise their tool-request filtering.
		if err := cb(ctx, &ai.ModelResponseChunk{Content: parts}); err != nil {
			return nil, err
		}
	}
	if ruleErr != nil {
		return nil, ruleErr
	}

	return &ai.ModelResponse{
		Request: req,
		Message: &ai.Message{Role: ai.RoleModel, Content: parts},
	}, nil
}

// MockEmbedder produces deterministic embeddings: a unit vector derived
// from a SHA-256 of the content, so identical content always embeds
// identically. Safe for concurrent use.
type MockEmbedder struct {
	dim int
}

// NewMockEmbedder creates a mock embedder emitting dim-sized vectors.
func NewMockEmbedder(dim int) *MockEmbedder {
	return &MockEmbedder{dim: dim}
}

// Embed implements the narrow embedder interface consumed by the vector
// package.
func (e *MockEmbedder) Embed(_ context.Context, req *ai.EmbedRequest) (*ai.EmbedResponse, error) {
	embeddings := make([]*ai.Embedding, len(req.Input))
	for i, doc := range req.Input {
		embeddings[i] = &ai.Embedding{Embedding: deterministicVector(documentText(doc), e.dim)}
	}
	return &ai.EmbedResponse{Embeddings: embeddings}, nil
}

func documentText(doc *ai.Document) string {
	var sb strings.Builder
	for _, p := range doc.Content {
		if p.Kind == ai.PartText {
			sb.WriteString(p.Text)
		}
	}
	return sb.String()
}

// deterministicVector maps content to a normalized vector seeded from its
// SHA-256, so identical content always embeds identically.
func deterministicVector(content string, dim int) []float32 {
	hash := sha256.Sum256([]byte(content))
	vec := make([]float32, dim)

	for i := range vec {
		idx := (i * 4) % len(hash)
		bits := binary.LittleEndian.Uint32([]byte{
			hash[idx%32], hash[(idx+1)%32], hash[(idx+2)%32], hash[(idx+3)%32],
		})
		vec[i] = (float32(bits)/float32(math.MaxUint32))*2 - 1
	}

	var norm float32
	for _, v := range vec {
		norm += v * v
	}
	norm = float32(math.Sqrt(float64(norm)))
	if norm > 0 {
		for i := range vec {
			vec[i] /= norm
		}
	}
	return vec
}
