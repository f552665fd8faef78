package coach

import (
	"context"
	"strings"
	"time"

	"github.com/matchmeal/matchmeal/internal/history"
	"github.com/matchmeal/matchmeal/internal/log"
)

// persistTimeout bounds the history write after the stream ends.
const persistTimeout = 5 * time.Second

// HistorySaver is the persistence collaborator. Implemented by
// history.Store.
type HistorySaver interface {
	Save(ctx context.Context, userID *int64, aiType history.AiType, question, answer string, refDate *time.Time) error
}

// RecordMeta identifies the history record a stream should produce.
type RecordMeta struct {
	UserID   *int64
	AiType   history.AiType
	Question string
	RefDate  *time.Time
}

// Recorder wraps response streams so that exactly one history record is
// written per completed stream. Because the coach folds generation errors
// into a terminal chunk, a stream that failed mid-way still completes
// here, and the stored answer carries both the partial content and the
// error marker.
type Recorder struct {
	saver  HistorySaver
	logger log.Logger
}

// NewRecorder creates a Recorder.
func NewRecorder(saver HistorySaver, logger log.Logger) *Recorder {
	if logger == nil {
		logger = log.NewNop()
	}
	return &Recorder{saver: saver, logger: logger}
}

// Stream forwards chunks from in to the returned channel, accumulating
// the full answer. When in closes, one history record is saved. If ctx
// is cancelled first (transport gone), the in-flight work is abandoned
// and nothing is persisted. Persistence failures are logged, never
// surfaced: the user already has their answer.
func (r *Recorder) Stream(ctx context.Context, in <-chan string, meta RecordMeta) <-chan string {
	out := make(chan string)

	go func() {
		defer close(out)

		var answer strings.Builder
		for chunk := range in {
			answer.WriteString(chunk)
			select {
			case out <- chunk:
			case <-ctx.Done():
				r.logger.Debug("stream abandoned before completion, skipping persistence")
				return
			}
		}

		// The request context may complete immediately after the last
		// chunk; detach so the save still lands.
		saveCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), persistTimeout)
		defer cancel()

		if err := r.saver.Save(saveCtx, meta.UserID, meta.AiType, meta.Question, answer.String(), meta.RefDate); err != nil {
			r.logger.Error("persisting history failed", "ai_type", meta.AiType, "error", err)
		}
	}()

	return out
}

// Collect drains a stream into one aggregated answer string, persisting
// through the same exactly-once path. Used by the non-streaming endpoints.
func (r *Recorder) Collect(ctx context.Context, in <-chan string, meta RecordMeta) string {
	var answer strings.Builder
	for chunk := range r.Stream(ctx, in, meta) {
		answer.WriteString(chunk)
	}
	return answer.String()
}
