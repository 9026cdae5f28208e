package mocks

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lueurxax/feedback-triage/internal/core/domain"
	coreerrors "github.com/lueurxax/feedback-triage/internal/core/errors"
)

func TestStoreUpsertIsIdempotent(t *testing.T) {
	store := NewStore()
	ctx := context.Background()

	rec := domain.FeedbackRecord{ID: "f1", Source: domain.SourceGooglePlay, SourceID: "r-1", Text: "slow login", Likes: 3}

	res, err := store.UpsertFeedback(ctx, rec)
	require.NoError(t, err)
	assert.True(t, res.Created)

	res, err = store.UpsertFeedback(ctx, rec)
	require.NoError(t, err)
	assert.False(t, res.Created)
	assert.False(t, res.TextChanged)

	all, err := store.ListFeedback(ctx, domain.FeedbackFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 1)

	rec.Text = "slow login since update"
	res, err = store.UpsertFeedback(ctx, rec)
	require.NoError(t, err)
	assert.True(t, res.TextChanged)
}

func TestStoreUpsertKeepsStatus(t *testing.T) {
	store := NewStore()
	ctx := context.Background()

	rec := domain.FeedbackRecord{ID: "f1", Source: domain.SourceAppStore, SourceID: "x", Text: "crash"}
	_, err := store.UpsertFeedback(ctx, rec)
	require.NoError(t, err)

	require.NoError(t, store.TransitionFeedbackStatus(ctx, "f1", domain.StatusOpen, domain.StatusInProgress, time.Now()))

	_, err = store.UpsertFeedback(ctx, rec)
	require.NoError(t, err)

	got, err := store.GetFeedback(ctx, "f1")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusInProgress, got.Status)
}

func TestStoreEnqueueRejectsLiveDuplicate(t *testing.T) {
	store := NewStore()
	ctx := context.Background()

	ok, err := store.EnqueueAnalysis(ctx, "m1")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = store.EnqueueAnalysis(ctx, "m1")
	require.NoError(t, err)
	assert.False(t, ok)

	items := store.QueueItems()
	require.Len(t, items, 1)

	claimed, err := store.ClaimQueueItem(ctx, items[0].ID)
	require.NoError(t, err)
	require.True(t, claimed)
	require.NoError(t, store.CompleteQueueItem(ctx, items[0].ID))

	ok, err = store.EnqueueAnalysis(ctx, "m1")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestStoreClaimIsExactlyOnce(t *testing.T) {
	store := NewStore()
	ctx := context.Background()

	_, err := store.EnqueueAnalysis(ctx, "m1")
	require.NoError(t, err)

	id := store.QueueItems()[0].ID

	var (
		wg   sync.WaitGroup
		wins atomic.Int32
	)

	for i := 0; i < 16; i++ {
		wg.Add(1)

		go func() {
			defer wg.Done()

			ok, err := store.ClaimQueueItem(ctx, id)
			if err == nil && ok {
				wins.Add(1)
			}
		}()
	}

	wg.Wait()
	assert.Equal(t, int32(1), wins.Load())

	item, _ := store.QueueItem(id)
	assert.Equal(t, domain.QueueStatusProcessing, item.Status)
	assert.Equal(t, 1, item.Attempts)
}

func TestStoreRequeueOnlyFromFailed(t *testing.T) {
	store := NewStore()
	ctx := context.Background()

	_, err := store.EnqueueAnalysis(ctx, "m1")
	require.NoError(t, err)

	id := store.QueueItems()[0].ID

	assert.ErrorIs(t, store.RequeueFailedQueueItem(ctx, id), coreerrors.ErrNotRequeueable)
	assert.ErrorIs(t, store.RequeueFailedQueueItem(ctx, "missing"), coreerrors.ErrQueueItemNotFound)

	_, err = store.ClaimQueueItem(ctx, id)
	require.NoError(t, err)
	require.NoError(t, store.FailQueueItem(ctx, id, domain.ErrorKindProvider, "boom"))
	require.NoError(t, store.RequeueFailedQueueItem(ctx, id))

	item, _ := store.QueueItem(id)
	assert.Equal(t, domain.QueueStatusPending, item.Status)
	assert.Empty(t, item.ErrorMessage)
}

func TestStoreUpsertAnalysisIsIdempotent(t *testing.T) {
	clock := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	store := NewStore()
	store.Now = func() time.Time { return clock }
	ctx := context.Background()

	require.NoError(t, store.UpsertAnalysis(ctx, domain.AnalysisResult{
		MsgID: "m1", TicketTypeID: "tt-bug", ThemeText: "crash", Tags: []string{"crash"}, Sentiment: domain.SentimentNegative,
	}))

	first, err := store.GetAnalysis(ctx, "m1")
	require.NoError(t, err)

	clock = clock.Add(time.Minute)

	require.NoError(t, store.UpsertAnalysis(ctx, domain.AnalysisResult{
		MsgID: "m1", TicketTypeID: "tt-question", ThemeText: "login", Tags: []string{"login", "sso"}, AnswerText: "Try again",
	}))

	got, err := store.GetAnalysis(ctx, "m1")
	require.NoError(t, err)
	assert.Equal(t, 1, store.Analyses())
	assert.Equal(t, first.ID, got.ID)
	assert.Equal(t, first.CreatedAt, got.CreatedAt)
	assert.Equal(t, clock, got.UpdatedAt)
	assert.Equal(t, "tt-question", got.TicketTypeID)
	assert.Equal(t, "login", got.ThemeText)
	assert.Equal(t, []string{"login", "sso"}, got.Tags)
	assert.Equal(t, "Try again", got.AnswerText)
	assert.Equal(t, domain.SentimentUnknown, got.Sentiment)
}
