// Package history persists consolidated AI interaction records.
// One record exists per completed request; records are written once after
// the response stream ends and never updated or deleted here.
package history

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/matchmeal/matchmeal/internal/log"
)

// AiType classifies a history record by request class.
type AiType string

const (
	TypeFeedback       AiType = "FEEDBACK"
	TypeRecommendation AiType = "RECOMMENDATION"
	TypeChat           AiType = "CHAT"
	TypeMealPlan       AiType = "MEAL_PLAN"
)

// Valid reports whether t is a known record type.
func (t AiType) Valid() bool {
	switch t {
	case TypeFeedback, TypeRecommendation, TypeChat, TypeMealPlan:
		return true
	}
	return false
}

// Record is one stored interaction.
type Record struct {
	ID        int64      `json:"id"`
	UserID    *int64     `json:"-"`
	RefDate   *time.Time `json:"refDate,omitempty"`
	AiType    AiType     `json:"type"`
	Question  string     `json:"question"`
	Answer    string     `json:"answer"`
	CreatedAt time.Time  `json:"createdAt"`
}

// Querier is the storage dependency, satisfied by *pgxpool.Pool in
// production and fakes in tests.
type Querier interface {
	InsertRecord(ctx context.Context, r Record) error
	RecentRecords(ctx context.Context, userID int64, limit int) ([]Record, error)
}

// Store writes and reads ai_chatbot rows.
type Store struct {
	queries Querier
	logger  log.Logger
}

// New creates a Store.
func New(queries Querier, logger log.Logger) (*Store, error) {
	if queries == nil {
		return nil, fmt.Errorf("history: querier is required")
	}
	if logger == nil {
		logger = log.NewNop()
	}
	return &Store{queries: queries, logger: logger}, nil
}

// Save stores one interaction. Unknown ai_type values fall back to CHAT
// rather than failing: losing type fidelity beats losing the record.
func (s *Store) Save(ctx context.Context, userID *int64, aiType AiType, question, answer string, refDate *time.Time) error {
	if !aiType.Valid() {
		s.logger.Warn("unknown history ai_type, storing as CHAT", "ai_type", aiType)
		aiType = TypeChat
	}

	r := Record{
		UserID:   userID,
		RefDate:  refDate,
		AiType:   aiType,
		Question: question,
		Answer:   answer,
	}
	if err := s.queries.InsertRecord(ctx, r); err != nil {
		return fmt.Errorf("saving history record: %w", err)
	}

	s.logger.Debug("history saved", "ai_type", aiType, "answer_len", len(answer))
	return nil
}

// Recent returns the user's newest records, newest first.
func (s *Store) Recent(ctx context.Context, userID int64, limit int) ([]Record, error) {
	if limit <= 0 {
		limit = 50
	}
	records, err := s.queries.RecentRecords(ctx, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("fetching history: %w", err)
	}
	return records, nil
}

// PGQuerier is the pgx-backed Querier.
type PGQuerier struct {
	pool *pgxpool.Pool
}

// NewPGQuerier creates a PGQuerier over pool.
func NewPGQuerier(pool *pgxpool.Pool) *PGQuerier {
	return &PGQuerier{pool: pool}
}

const insertRecordSQL = `
INSERT INTO ai_chatbot (user_id, ref_date, ai_type, user_question, ai_response)
VALUES ($1, $2, $3, $4, $5)`

// InsertRecord appends one history row.
func (q *PGQuerier) InsertRecord(ctx context.Context, r Record) error {
	refDate := pgtype.Date{}
	if r.RefDate != nil {
		refDate = pgtype.Date{Time: *r.RefDate, Valid: true}
	}

	_, err := q.pool.Exec(ctx, insertRecordSQL,
		r.UserID, refDate, string(r.AiType), r.Question, r.Answer)
	return err
}

const recentRecordsSQL = `
SELECT id, user_id, ref_date, ai_type, user_question, ai_response, created_at
FROM ai_chatbot
WHERE user_id = $1
ORDER BY id DESC
LIMIT $2`

// RecentRecords reads the newest rows for one user.
func (q *PGQuerier) RecentRecords(ctx context.Context, userID int64, limit int) ([]Record, error) {
	rows, err := q.pool.Query(ctx, recentRecordsSQL, userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		var (
			r       Record
			refDate pgtype.Date
			created pgtype.Timestamptz
		)
		if err := rows.Scan(&r.ID, &r.UserID, &refDate, &r.AiType, &r.Question, &r.Answer, &created); err != nil {
			return nil, err
		}
		if refDate.Valid {
			d := refDate.Time
			r.RefDate = &d
		}
		r.CreatedAt = created.Time
		records = append(records, r)
	}
	return records, rows.Err()
}
