package vector

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"
)

// Row is the raw database representation of a document.
type Row struct {
	ID         string
	Collection string
	Content    string
	Metadata   []byte
	CreatedAt  pgtype.Timestamptz
	Similarity float64
}

// Querier defines the database operations the Store needs.
// Following Go convention the interface is defined by the consumer, not the
// provider, so tests can substitute an in-memory implementation.
type Querier interface {
	// UpsertDocument inserts or updates a document by ID.
	UpsertDocument(ctx context.Context, row Row, embedding pgvector.Vector) error

	// SearchDocuments performs vector similarity search within a collection,
	// optionally constrained by numeric metadata filters.
	SearchDocuments(ctx context.Context, collection string, query pgvector.Vector, filters []Filter, limit int) ([]Row, error)

	// ListCollection returns every document in a collection (no similarity).
	ListCollection(ctx context.Context, collection string, limit int) ([]Row, error)

	// CountCollection counts documents in a collection.
	CountCollection(ctx context.Context, collection string) (int64, error)

	// DeleteCollection removes every document in a collection.
	DeleteCollection(ctx context.Context, collection string) error
}

// PGQuerier is the pgx-backed Querier implementation.
type PGQuerier struct {
	pool *pgxpool.Pool
}

// NewPGQuerier creates a Querier over the given connection pool.
func NewPGQuerier(pool *pgxpool.Pool) *PGQuerier {
	return &PGQuerier{pool: pool}
}

// UpsertDocument inserts or updates a document by ID.
func (q *PGQuerier) UpsertDocument(ctx context.Context, row Row, embedding pgvector.Vector) error {
	_, err := q.pool.Exec(ctx, `
		INSERT INTO documents (id, collection, content, embedding, metadata)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (id) DO UPDATE
		SET collection = EXCLUDED.collection,
		    content    = EXCLUDED.content,
		    embedding  = EXCLUDED.embedding,
		    metadata   = EXCLUDED.metadata`,
		row.ID, row.Collection, row.Content, embedding, row.Metadata)
	if err != nil {
		return fmt.Errorf("upserting document %q: %w", row.ID, err)
	}
	return nil
}

// SearchDocuments performs cosine-distance nearest-neighbor search.
//
// SECURITY: filter fields are passed as bind parameters and operators are
// whitelisted via buildFilterSQL; no user input is interpolated into SQL.
func (q *PGQuerier) SearchDocuments(ctx context.Context, collection string, query pgvector.Vector, filters []Filter, limit int) ([]Row, error) {
	where, args, err := buildFilterSQL(filters, 3)
	if err != nil {
		return nil, err
	}

	sql := fmt.Sprintf(`
		SELECT id, collection, content, metadata, created_at,
		       1 - (embedding <=> $1) AS similarity
		FROM documents
		WHERE collection = $2%s
		ORDER BY embedding <=> $1
		LIMIT %d`, where, limit)

	allArgs := append([]any{query, collection}, args...)
	rows, err := q.pool.Query(ctx, sql, allArgs...)
	if err != nil {
		return nil, fmt.Errorf("searching collection %q: %w", collection, err)
	}
	defer rows.Close()

	var out []Row
	for rows.Next() {
		var r Row
		if err := rows.Scan(&r.ID, &r.Collection, &r.Content, &r.Metadata, &r.CreatedAt, &r.Similarity); err != nil {
			return nil, fmt.Errorf("scanning search row: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// ListCollection returns every document in a collection, newest first.
func (q *PGQuerier) ListCollection(ctx context.Context, collection string, limit int) ([]Row, error) {
	rows, err := q.pool.Query(ctx, `
		SELECT id, collection, content, metadata, created_at
		FROM documents
		WHERE collection = $1
		ORDER BY created_at DESC
		LIMIT $2`, collection, limit)
	if err != nil {
		return nil, fmt.Errorf("listing collection %q: %w", collection, err)
	}
	defer rows.Close()

	var out []Row
	for rows.Next() {
		var r Row
		if err := rows.Scan(&r.ID, &r.Collection, &r.Content, &r.Metadata, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning list row: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// CountCollection counts documents in a collection.
func (q *PGQuerier) CountCollection(ctx context.Context, collection string) (int64, error) {
	var count int64
	err := q.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM documents WHERE collection = $1`, collection).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("counting collection %q: %w", collection, err)
	}
	return count, nil
}

// DeleteCollection removes every document in a collection.
func (q *PGQuerier) DeleteCollection(ctx context.Context, collection string) error {
	_, err := q.pool.Exec(ctx, `DELETE FROM documents WHERE collection = $1`, collection)
	if err != nil {
		return fmt.Errorf("deleting collection %q: %w", collection, err)
	}
	return nil
}

// buildFilterSQL renders metadata filters as parameterized SQL conditions.
// argOffset is the 1-based index of the first free bind parameter.
func buildFilterSQL(filters []Filter, argOffset int) (string, []any, error) {
	if len(filters) == 0 {
		return "", nil, nil
	}

	var sb strings.Builder
	args := make([]any, 0, len(filters)*2)
	n := argOffset

	for _, f := range filters {
		switch f.Op {
		case OpLT, OpLTE, OpGT, OpGTE, OpEQ:
			// whitelisted
		default:
			return "", nil, fmt.Errorf("unsupported filter operator %q", f.Op)
		}
		if f.Field == "" {
			return "", nil, fmt.Errorf("empty filter field")
		}
		fmt.Fprintf(&sb, " AND (metadata->>$%d)::numeric %s $%d", n, f.Op, n+1)
		args = append(args, f.Field, f.Value)
		n += 2
	}

	return sb.String(), args, nil
}
