package history

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matchmeal/matchmeal/internal/log"
)

type fakeQuerier struct {
	inserted []Record
	err      error
}

func (f *fakeQuerier) InsertRecord(_ context.Context, r Record) error {
	if f.err != nil {
		return f.err
	}
	r.ID = int64(len(f.inserted) + 1)
	r.CreatedAt = time.Now()
	f.inserted = append(f.inserted, r)
	return nil
}

func (f *fakeQuerier) RecentRecords(_ context.Context, userID int64, limit int) ([]Record, error) {
	if f.err != nil {
		return nil, f.err
	}
	var out []Record
	for i := len(f.inserted) - 1; i >= 0 && len(out) < limit; i-- {
		r := f.inserted[i]
		if r.UserID != nil && *r.UserID == userID {
			out = append(out, r)
		}
	}
	return out, nil
}

func TestSave_StoresRecord(t *testing.T) {
	q := &fakeQuerier{}
	s, err := New(q, log.NewNop())
	require.NoError(t, err)

	userID := int64(7)
	refDate := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	err = s.Save(context.Background(), &userID, TypeFeedback, "오늘 식단 어때?", "좋아요!", &refDate)
	require.NoError(t, err)

	require.Len(t, q.inserted, 1)
	assert.Equal(t, TypeFeedback, q.inserted[0].AiType)
	assert.Equal(t, "오늘 식단 어때?", q.inserted[0].Question)
	require.NotNil(t, q.inserted[0].RefDate)
	assert.Equal(t, refDate, *q.inserted[0].RefDate)
}

func TestSave_UnknownTypeFallsBackToChat(t *testing.T) {
	q := &fakeQuerier{}
	s, err := New(q, log.NewNop())
	require.NoError(t, err)

	err = s.Save(context.Background(), nil, AiType("NONSENSE"), "q", "a", nil)
	require.NoError(t, err)
	assert.Equal(t, TypeChat, q.inserted[0].AiType)
}

func TestSave_WrapsStoreError(t *testing.T) {
	q := &fakeQuerier{err: errors.New("connection refused")}
	s, err := New(q, log.NewNop())
	require.NoError(t, err)

	err = s.Save(context.Background(), nil, TypeChat, "q", "a", nil)
	assert.ErrorContains(t, err, "saving history record")
}

func TestRecent_NewestFirstAndScoped(t *testing.T) {
	q := &fakeQuerier{}
	s, err := New(q, log.NewNop())
	require.NoError(t, err)

	ctx := context.Background()
	alice, bob := int64(1), int64(2)
	require.NoError(t, s.Save(ctx, &alice, TypeChat, "첫 질문", "a1", nil))
	require.NoError(t, s.Save(ctx, &bob, TypeChat, "남의 질문", "b1", nil))
	require.NoError(t, s.Save(ctx, &alice, TypeChat, "둘째 질문", "a2", nil))

	records, err := s.Recent(ctx, alice, 10)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "둘째 질문", records[0].Question)
	assert.Equal(t, "첫 질문", records[1].Question)
}

func TestAiTypeValid(t *testing.T) {
	for _, valid := range []AiType{TypeFeedback, TypeRecommendation, TypeChat, TypeMealPlan} {
		assert.True(t, valid.Valid())
	}
	assert.False(t, AiType("chat").Valid())
	assert.False(t, AiType("").Valid())
}
