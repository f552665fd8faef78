package coach

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matchmeal/matchmeal/internal/history"
	"github.com/matchmeal/matchmeal/internal/log"
)

type savedRecord struct {
	userID   *int64
	aiType   history.AiType
	question string
	answer   string
	refDate  *time.Time
}

type fakeSaver struct {
	mu    sync.Mutex
	saved []savedRecord
	err   error
	done  chan struct{}
}

func newFakeSaver() *fakeSaver {
	return &fakeSaver{done: make(chan struct{}, 16)}
}

func (f *fakeSaver) Save(_ context.Context, userID *int64, aiType history.AiType, question, answer string, refDate *time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.saved = append(f.saved, savedRecord{userID, aiType, question, answer, refDate})
	f.done <- struct{}{}
	return f.err
}

func (f *fakeSaver) records() []savedRecord {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]savedRecord(nil), f.saved...)
}

// waitSaved blocks until n saves happened, or fails the test.
func (f *fakeSaver) waitSaved(t *testing.T, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		select {
		case <-f.done:
		case <-time.After(2 * time.Second):
			t.Fatalf("timed out waiting for save %d of %d", i+1, n)
		}
	}
}

func chunkStream(chunks ...string) <-chan string {
	ch := make(chan string)
	go func() {
		defer close(ch)
		for _, c := range chunks {
			ch <- c
		}
	}()
	return ch
}

func TestStream_ForwardsAndPersistsOnce(t *testing.T) {
	saver := newFakeSaver()
	r := NewRecorder(saver, log.NewNop())

	userID := int64(42)
	meta := RecordMeta{UserID: &userID, AiType: history.TypeChat, Question: "뭐 먹지?"}

	var got []string
	for chunk := range r.Stream(context.Background(), chunkStream("오늘은 ", "비빔밥 ", "어때요?"), meta) {
		got = append(got, chunk)
	}
	saver.waitSaved(t, 1)

	assert.Equal(t, []string{"오늘은 ", "비빔밥 ", "어때요?"}, got)
	records := saver.records()
	require.Len(t, records, 1)
	assert.Equal(t, "오늘은 비빔밥 어때요?", records[0].answer)
	assert.Equal(t, history.TypeChat, records[0].aiType)
	assert.Equal(t, "뭐 먹지?", records[0].question)
	require.NotNil(t, records[0].userID)
	assert.Equal(t, int64(42), *records[0].userID)
}

func TestStream_PartialThenErrorStillPersistsOnce(t *testing.T) {
	// The coach folds a mid-stream failure into a terminal apologetic
	// chunk; from the recorder's side the stream simply completes. The
	// stored answer must contain both the partial content and the marker.
	saver := newFakeSaver()
	r := NewRecorder(saver, log.NewNop())

	in := chunkStream("추천 메뉴는 김치", "\n\n죄송해요, 답변을 만드는 중에 문제가 생겼어요.")
	for range r.Stream(context.Background(), in, RecordMeta{AiType: history.TypeRecommendation, Question: "q"}) {
	}
	saver.waitSaved(t, 1)

	records := saver.records()
	require.Len(t, records, 1)
	assert.Contains(t, records[0].answer, "추천 메뉴는 김치")
	assert.Contains(t, records[0].answer, "죄송해요")
}

func TestStream_AbandonedTransportSkipsPersistence(t *testing.T) {
	saver := newFakeSaver()
	r := NewRecorder(saver, log.NewNop())

	ctx, cancel := context.WithCancel(context.Background())

	in := make(chan string)
	out := r.Stream(ctx, in, RecordMeta{AiType: history.TypeChat, Question: "q"})

	in <- "첫 번째 청크"
	<-out
	// Transport goes away while the producer still has chunks to send.
	cancel()
	in <- "아무도 받지 못할 청크"
	close(in)

	// The output channel closes without a save.
	for range out {
	}
	select {
	case <-saver.done:
		t.Fatal("abandoned stream must not persist a record")
	case <-time.After(100 * time.Millisecond):
	}
}

func TestStream_SaveFailureDoesNotAffectDeliveredStream(t *testing.T) {
	saver := newFakeSaver()
	saver.err = errors.New("db down")
	r := NewRecorder(saver, log.NewNop())

	var got string
	for chunk := range r.Stream(context.Background(), chunkStream("무사히 전달"), RecordMeta{AiType: history.TypeChat}) {
		got += chunk
	}
	saver.waitSaved(t, 1)

	assert.Equal(t, "무사히 전달", got)
}

func TestCollect_AggregatesAndPersists(t *testing.T) {
	saver := newFakeSaver()
	r := NewRecorder(saver, log.NewNop())

	answer := r.Collect(context.Background(), chunkStream("a", "b", "c"),
		RecordMeta{AiType: history.TypeMealPlan, Question: "식단 짜줘"})
	saver.waitSaved(t, 1)

	assert.Equal(t, "abc", answer)
	records := saver.records()
	require.Len(t, records, 1)
	assert.Equal(t, history.TypeMealPlan, records[0].aiType)
	assert.Equal(t, "abc", records[0].answer)
}
