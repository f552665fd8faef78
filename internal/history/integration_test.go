//go:build integration
// +build integration

package history_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matchmeal/matchmeal/internal/history"
	"github.com/matchmeal/matchmeal/internal/log"
	"github.com/matchmeal/matchmeal/internal/testutil"
)

func TestPGQuerier_SaveAndRecent(t *testing.T) {
	tdb, cleanup := testutil.SetupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store, err := history.New(history.NewPGQuerier(tdb.Pool), log.NewNop())
	require.NoError(t, err)

	userID := int64(7)
	otherID := int64(8)
	refDate := time.Date(2026, 8, 7, 0, 0, 0, 0, time.UTC)

	require.NoError(t, store.Save(ctx, &userID, history.TypeChat, "오늘 뭐 먹지?", "김치찌개 어때요?", nil))
	require.NoError(t, store.Save(ctx, &userID, history.TypeFeedback, "주간 피드백 요청", "균형이 좋아요.", &refDate))
	require.NoError(t, store.Save(ctx, &otherID, history.TypeChat, "남의 질문", "남의 답변", nil))

	records, err := store.Recent(ctx, userID, 10)
	require.NoError(t, err)
	require.Len(t, records, 2)

	// Newest first.
	assert.Equal(t, history.TypeFeedback, records[0].AiType)
	require.NotNil(t, records[0].RefDate)
	assert.Equal(t, "2026-08-07", records[0].RefDate.Format("2006-01-02"))
	assert.Equal(t, "오늘 뭐 먹지?", records[1].Question)

	// Limit caps the page.
	records, err = store.Recent(ctx, userID, 1)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, history.TypeFeedback, records[0].AiType)
}

func TestPGQuerier_AnonymousRecordsNotListedPerUser(t *testing.T) {
	tdb, cleanup := testutil.SetupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store, err := history.New(history.NewPGQuerier(tdb.Pool), log.NewNop())
	require.NoError(t, err)

	require.NoError(t, store.Save(ctx, nil, history.TypeChat, "익명 질문", "익명 답변", nil))

	records, err := store.Recent(ctx, 0, 10)
	require.NoError(t, err)
	assert.Empty(t, records)
}
