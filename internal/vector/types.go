// Package vector manages the persistent similarity indexes backing the
// coaching pipeline: a food index (nutrition documents with numeric metadata
// filters) and a tool index (tool-catalog descriptions used for selection
// recall). Both live in one PostgreSQL table, distinguished by collection
// name, with embeddings stored via pgvector.
package vector

import (
	"time"
)

// Collection names stored in the documents table.
const (
	// CollectionFood holds food-item documents with macro/micronutrient metadata.
	CollectionFood = "food"

	// CollectionTool holds tool-catalog descriptions keyed by tool name.
	CollectionTool = "tool"
)

// Document is a single indexed document.
type Document struct {
	ID         string
	Collection string
	Content    string
	Metadata   map[string]any
	CreatedAt  time.Time
}

// Result is a document returned from similarity search.
type Result struct {
	Document
	Similarity float64
}

// Name returns the document's metadata name, or "" when absent.
// Food and tool documents both carry their identity under the "name" key.
func (d Document) Name() string {
	if v, ok := d.Metadata["name"].(string); ok {
		return v
	}
	return ""
}

// Float returns a numeric metadata field as float64.
// JSON round-tripping stores all numbers as float64; anything else reads as 0.
func (d Document) Float(field string) float64 {
	switch v := d.Metadata[field].(type) {
	case float64:
		return v
	case int:
		return float64(v)
	default:
		return 0
	}
}

// Op is a metadata comparison operator for filtered search.
type Op string

// Supported filter operators. The SQL builder whitelists these; anything
// else is rejected before reaching the database.
const (
	OpLT  Op = "<"
	OpLTE Op = "<="
	OpGT  Op = ">"
	OpGTE Op = ">="
	OpEQ  Op = "="
)

// Filter constrains search results by a numeric metadata field.
type Filter struct {
	Field string
	Op    Op
	Value float64
}

// ToolDoc is the minimal projection of a catalog tool for indexing.
// The tool name doubles as the document ID, which makes reindexing
// idempotent per tool.
type ToolDoc struct {
	Name        string
	Description string
}
