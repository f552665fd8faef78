// Package catalog defines the closed set of domain tools the coach can call.
//
// Every tool is a pure computation or a read-only query against the food
// index. Tools take loosely-typed keyword parameters (the model sends JSON
// objects), tolerate missing or malformed values, and always return a
// human-readable Korean string, never a structured error. Dispatch goes
// through a name lookup table built once at startup.
package catalog

import (
	"context"
	"fmt"

	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/genkit"

	"github.com/matchmeal/matchmeal/internal/log"
	"github.com/matchmeal/matchmeal/internal/vector"
)

// FoodSearcher is the slice of the food index the tools need.
type FoodSearcher interface {
	Search(ctx context.Context, query string, k int, filters ...vector.Filter) []vector.Result
}

// Handler executes one tool invocation. Input is the raw parameter map
// decoded from the model's tool-call JSON.
type Handler func(ctx context.Context, input map[string]any) (string, error)

// Descriptor is one named tool. Immutable once the catalog is built.
// The description doubles as the tool's document body in the tool index.
type Descriptor struct {
	Name        string
	Description string
	run         Handler
}

// Catalog is the process-wide tool registry. Built once at startup,
// read-only afterwards; safe for concurrent use.
type Catalog struct {
	tools  []*Descriptor
	byName map[string]*Descriptor
	logger log.Logger
}

// New builds the full tool catalog against the given food index.
func New(foods FoodSearcher, logger log.Logger) (*Catalog, error) {
	if foods == nil {
		return nil, fmt.Errorf("catalog: food searcher is required")
	}
	if logger == nil {
		return nil, fmt.Errorf("catalog: logger is required")
	}

	c := &Catalog{byName: make(map[string]*Descriptor), logger: logger}

	all := []*Descriptor{
		analyzeHealthTool(),
		recommendFoodTool(foods),
		exerciseBurnTool(),
		maintenanceCaloriesTool(),
		compareFoodsTool(foods),
		recipeStepsTool(),
		foodPairingTool(),
		seasonalFoodsTool(),
		symptomAdviceTool(),
		snackTool(foods),
		deficiencyAdviceTool(),
		waterIntakeTool(),
		shoppingListTool(),
		nutritionStandardTool(),
	}

	for _, d := range all {
		if _, dup := c.byName[d.Name]; dup {
			return nil, fmt.Errorf("catalog: duplicate tool name %q", d.Name)
		}
		c.tools = append(c.tools, d)
		c.byName[d.Name] = d
	}

	return c, nil
}

// Register defines every tool with Genkit so the generate call can hand the
// model their schemas. Execution still goes through Run, not Genkit's
// automatic dispatch.
func (c *Catalog) Register(g *genkit.Genkit) []ai.Tool {
	refs := make([]ai.Tool, 0, len(c.tools))
	for _, d := range c.tools {
		d := d
		refs = append(refs, genkit.DefineTool(g, d.Name, d.Description,
			func(tc *ai.ToolContext, input map[string]any) (string, error) {
				return d.run(tc.Context, input)
			}))
	}
	return refs
}

// Lookup returns the descriptor for name, or false if the catalog has no
// such tool.
func (c *Catalog) Lookup(name string) (*Descriptor, bool) {
	d, ok := c.byName[name]
	return d, ok
}

// Run dispatches one tool call by name. Unknown names and handler errors
// come back as descriptive result strings so the model can read them and
// recover; they never abort the surrounding request.
func (c *Catalog) Run(ctx context.Context, name string, input map[string]any) string {
	d, ok := c.byName[name]
	if !ok {
		return fmt.Sprintf("'%s' 도구를 찾을 수 없습니다.", name)
	}
	out, err := d.run(ctx, input)
	if err != nil {
		c.logger.Warn("tool execution failed", "tool", name, "error", err)
		return fmt.Sprintf("도구 실행 오류: %v", err)
	}
	return out
}

// Names returns every tool name in registration order.
func (c *Catalog) Names() []string {
	names := make([]string, 0, len(c.tools))
	for _, d := range c.tools {
		names = append(names, d.Name)
	}
	return names
}

// Docs renders the catalog as tool-index documents.
func (c *Catalog) Docs() []vector.ToolDoc {
	docs := make([]vector.ToolDoc, 0, len(c.tools))
	for _, d := range c.tools {
		docs = append(docs, vector.ToolDoc{Name: d.Name, Description: d.Description})
	}
	return docs
}

// Size returns the number of registered tools.
func (c *Catalog) Size() int {
	return len(c.tools)
}
