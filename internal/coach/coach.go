// Package coach is the top-level orchestrator. It builds a profile- and
// persona-conditioned prompt, picks a model tier per request class,
// drives the bounded tool-calling loop, and exposes the answer as an
// incremental text stream. Failures mid-stream degrade to one apologetic
// terminal chunk; the stream always ends cleanly from the consumer's
// point of view.
package coach

import (
	"context"
	"fmt"
	"time"

	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/genkit"
	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/matchmeal/matchmeal/internal/log"
)

// Tier routes a request to the fast or heavy model. The routing decision
// belongs to the caller (endpoint class), not the orchestrator.
type Tier string

const (
	// TierFast serves low-latency chat-class requests.
	TierFast Tier = "fast"
	// TierHeavy serves analysis, recommendation, and meal-plan requests.
	TierHeavy Tier = "heavy"
)

// DefaultMaxToolTurns bounds the tool-calling loop. Meal-plan requests
// legitimately invoke the food-search tool many times; the cap exists so
// a looping model cannot run forever.
const DefaultMaxToolTurns = 25

// Profile is the per-request user profile. It is never persisted; only
// its rendered summary ends up inside a history record's question text.
type Profile struct {
	UserID    *int64
	Name      string
	Age       int
	Gender    string
	HeightCm  float64
	WeightKg  float64
	BMI       float64
	BMIStatus string
	Allergies string
	Diseases  string
}

// Turn is one conversation turn supplied by the caller.
type Turn struct {
	Role    string
	Content string
}

// Request carries everything the orchestrator needs for one response.
type Request struct {
	Context string
	Profile Profile
	History []Turn
	Flavors []string
	Tier    Tier
	Persona Persona
}

// ToolSelector picks tool names for a query. Implemented by
// selector.Selector; fail-open by contract.
type ToolSelector interface {
	Select(ctx context.Context, query string) []string
}

// ToolRunner resolves and executes catalog tools. Implemented by
// catalog.Catalog.
type ToolRunner interface {
	Run(ctx context.Context, name string, input map[string]any) string
}

// Config assembles a Coach.
type Config struct {
	Genkit     *genkit.Genkit
	Selector   ToolSelector
	Tools      ToolRunner
	ToolRefs   []ai.Tool // Genkit-registered tools, for schema exposure
	FastModel  string
	HeavyModel string
	// MaxToolTurns caps the tool loop; zero means DefaultMaxToolTurns.
	MaxToolTurns int
	// RateLimiter throttles outbound model calls; nil installs a default.
	RateLimiter *rate.Limiter
	Logger      log.Logger
}

func (cfg Config) validate() error {
	if cfg.Genkit == nil {
		return fmt.Errorf("coach: genkit instance is required")
	}
	if cfg.Selector == nil {
		return fmt.Errorf("coach: tool selector is required")
	}
	if cfg.Tools == nil {
		return fmt.Errorf("coach: tool runner is required")
	}
	if cfg.FastModel == "" || cfg.HeavyModel == "" {
		return fmt.Errorf("coach: both model tiers are required")
	}
	return nil
}

// Coach orchestrates one response per call. Safe for concurrent use;
// all per-request state lives on the stack of the serving goroutine.
type Coach struct {
	g          *genkit.Genkit
	selector   ToolSelector
	tools      ToolRunner
	refsByName map[string]ai.Tool
	fastModel  string
	heavyModel string
	maxTurns   int
	limiter    *rate.Limiter
	logger     log.Logger
}

// New creates a Coach from cfg.
func New(cfg Config) (*Coach, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	limiter := cfg.RateLimiter
	if limiter == nil {
		limiter = rate.NewLimiter(10, 30)
	}
	maxTurns := cfg.MaxToolTurns
	if maxTurns <= 0 {
		maxTurns = DefaultMaxToolTurns
	}
	logger := cfg.Logger
	if logger == nil {
		logger = log.NewNop()
	}

	refs := make(map[string]ai.Tool, len(cfg.ToolRefs))
	for _, t := range cfg.ToolRefs {
		refs[t.Name()] = t
	}

	return &Coach{
		g:          cfg.Genkit,
		selector:   cfg.Selector,
		tools:      cfg.Tools,
		refsByName: refs,
		fastModel:  cfg.FastModel,
		heavyModel: cfg.HeavyModel,
		maxTurns:   maxTurns,
		limiter:    limiter,
		logger:     logger,
	}, nil
}

// RespondStream produces the response as a finite, non-restartable chunk
// stream. The channel closes when the response is complete; errors are
// converted into one terminal apologetic chunk, never a panic or a
// dangling channel.
func (c *Coach) RespondStream(ctx context.Context, req Request) <-chan string {
	out := make(chan string)

	emit := func(text string) error {
		if text == "" {
			return nil
		}
		select {
		case out <- text:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	go func() {
		defer close(out)
		if err := c.respond(ctx, req, emit); err != nil {
			if ctx.Err() != nil {
				// Transport closed; nobody is listening for an apology.
				return
			}
			c.logger.Error("response generation failed", "error", err)
			_ = emit(fmt.Sprintf("\n\n죄송해요, 답변을 만드는 중에 문제가 생겼어요. 잠시 후 다시 시도해 주세요. (%s)",
				truncateErr(err, 120)))
		}
	}()

	return out
}

// Respond is the non-streaming legacy mode: the full answer as one string.
func (c *Coach) Respond(ctx context.Context, req Request) (string, error) {
	var answer []byte
	for chunk := range c.RespondStream(ctx, req) {
		answer = append(answer, chunk...)
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return string(answer), nil
}

// respond runs selection then generation, forwarding text through emit.
func (c *Coach) respond(ctx context.Context, req Request, emit func(string) error) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limit wait: %w", err)
	}

	start := time.Now()
	system := buildSystemPrompt(req)

	selected := c.selector.Select(ctx, req.Context)
	c.logger.Info("request routed",
		"tier", req.Tier, "persona", req.Persona, "tools", selected)

	model := c.heavyModel
	if req.Tier == TierFast {
		model = c.fastModel
	}

	messages := []*ai.Message{
		ai.NewSystemMessage(ai.NewTextPart(system)),
		ai.NewUserMessage(ai.NewTextPart(req.Context)),
	}

	var err error
	if len(selected) == 0 {
		err = c.plainStream(ctx, model, messages, emit)
	} else {
		err = c.toolLoop(ctx, model, messages, selected, emit)
	}
	if err != nil {
		return err
	}

	c.logger.Debug("response complete", "elapsed", time.Since(start))
	return nil
}

// plainStream is the no-tools branch: a single-turn generation with
// chunks forwarded as produced.
func (c *Coach) plainStream(ctx context.Context, model string, messages []*ai.Message, emit func(string) error) error {
	_, err := genkit.Generate(ctx, c.g,
		ai.WithModelName(model),
		ai.WithMessages(messages...),
		ai.WithStreaming(forwardTextChunks(emit)),
	)
	if err != nil {
		return fmt.Errorf("generating chat response: %w", err)
	}
	return nil
}

// toolLoop drives the bounded tool-calling loop. Each round trip either
// finishes with a final answer (already streamed) or yields tool requests
// that are dispatched through the catalog and appended as a tool-role
// message for the next turn.
func (c *Coach) toolLoop(ctx context.Context, model string, messages []*ai.Message, selected []string, emit func(string) error) error {
	var toolRefs []ai.ToolRef
	for _, name := range selected {
		if ref, ok := c.refsByName[name]; ok {
			toolRefs = append(toolRefs, ref)
		}
	}
	if len(toolRefs) == 0 {
		return c.plainStream(ctx, model, messages, emit)
	}

	for turn := 0; turn < c.maxTurns; turn++ {
		resp, err := genkit.Generate(ctx, c.g,
			ai.WithModelName(model),
			ai.WithMessages(messages...),
			ai.WithTools(toolRefs...),
			ai.WithReturnToolRequests(true),
			ai.WithStreaming(forwardTextChunks(emit)),
		)
		if err != nil {
			return fmt.Errorf("tool loop turn %d: %w", turn+1, err)
		}
		if resp.Message == nil {
			return fmt.Errorf("tool loop turn %d: empty model message", turn+1)
		}

		requests := ensureRefs(toolRequestParts(resp.Message))
		if len(requests) == 0 {
			return nil // final answer, already streamed
		}

		responses := make([]*ai.Part, 0, len(requests))
		for _, part := range requests {
			tr := part.ToolRequest
			input, _ := tr.Input.(map[string]any)
			output := c.tools.Run(ctx, tr.Name, input)
			c.logger.Debug("tool dispatched", "tool", tr.Name, "turn", turn+1)

			responses = append(responses, ai.NewToolResponsePart(&ai.ToolResponse{
				Name:   tr.Name,
				Ref:    tr.Ref,
				Output: output,
			}))
		}

		messages = append(messages, resp.Message,
			&ai.Message{Role: ai.RoleTool, Content: responses})
	}

	return fmt.Errorf("tool loop exceeded %d turns without a final answer", c.maxTurns)
}

// forwardTextChunks adapts emit into a model streaming callback. Chunks
// carrying a tool-request part are suppressed entirely: raw tool-call
// syntax must never reach the end user.
func forwardTextChunks(emit func(string) error) ai.ModelStreamCallback {
	return func(ctx context.Context, chunk *ai.ModelResponseChunk) error {
		var text string
		for _, part := range chunk.Content {
			if part.Kind == ai.PartToolRequest {
				return nil
			}
			if part.Kind == ai.PartText {
				text += part.Text
			}
		}
		return emit(text)
	}
}

// toolRequestParts extracts the tool-request parts of a model message.
func toolRequestParts(msg *ai.Message) []*ai.Part {
	var parts []*ai.Part
	for _, part := range msg.Content {
		if part.Kind == ai.PartToolRequest && part.ToolRequest != nil {
			parts = append(parts, part)
		}
	}
	return parts
}

// ensureRefs synthesizes a correlation identifier for any tool request
// missing one. Some upstream providers omit the identifier, and the
// protocol layer rejects a response whose Ref does not match a request.
func ensureRefs(requests []*ai.Part) []*ai.Part {
	for _, part := range requests {
		if part.ToolRequest.Ref == "" {
			part.ToolRequest.Ref = uuid.NewString()
		}
	}
	return requests
}

func truncateErr(err error, n int) string {
	s := err.Error()
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
