package ingest

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lueurxax/feedback-triage/internal/core/domain"
	coreerrors "github.com/lueurxax/feedback-triage/internal/core/errors"
	"github.com/lueurxax/feedback-triage/internal/core/ports/mocks"
)

var testNow = time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

func intPtr(i int) *int { return &i }

func TestNormalize(t *testing.T) {
	rec, err := Normalize(RawFeedback{
		Source:   " Google_Play ",
		SourceID: " gp-1 ",
		Text:     "  Café app crashes  ",
		Author:   "Olena",
		Date:     "2026-02-01 09:30:00",
		Likes:    -4,
		Rating:   intPtr(2),
	}, testNow)
	require.NoError(t, err)

	assert.Equal(t, domain.SourceGooglePlay, rec.Source)
	assert.Equal(t, "gp-1", rec.SourceID)
	assert.Equal(t, "Café app crashes", rec.Text)
	assert.Equal(t, time.Date(2026, 2, 1, 9, 30, 0, 0, time.UTC), rec.Date)
	assert.Equal(t, 0, rec.Likes)
	require.NotNil(t, rec.Rating)
	assert.Equal(t, domain.SentimentNegative, rec.Sentiment)
	assert.Equal(t, domain.StatusOpen, rec.Status)
	assert.Equal(t, FeedbackID(domain.SourceGooglePlay, "gp-1"), rec.ID)
}

func TestNormalizeEdgeCases(t *testing.T) {
	tests := []struct {
		name  string
		raw   RawFeedback
		check func(t *testing.T, rec domain.FeedbackRecord)
	}{
		{
			name: "unknown source maps to other",
			raw:  RawFeedback{Source: "tiktok", SourceID: "1", Text: "hi"},
			check: func(t *testing.T, rec domain.FeedbackRecord) {
				assert.Equal(t, domain.SourceOther, rec.Source)
			},
		},
		{
			name: "unparseable date falls back to now",
			raw:  RawFeedback{Source: "app_store", SourceID: "1", Text: "hi", Date: "a while ago"},
			check: func(t *testing.T, rec domain.FeedbackRecord) {
				assert.Equal(t, testNow, rec.Date)
			},
		},
		{
			name: "missing date falls back to now",
			raw:  RawFeedback{Source: "app_store", SourceID: "1", Text: "hi"},
			check: func(t *testing.T, rec domain.FeedbackRecord) {
				assert.Equal(t, testNow, rec.Date)
			},
		},
		{
			name: "out of range rating dropped",
			raw:  RawFeedback{Source: "google_maps", SourceID: "1", Text: "hi", Rating: intPtr(9)},
			check: func(t *testing.T, rec domain.FeedbackRecord) {
				assert.Nil(t, rec.Rating)
				assert.Equal(t, domain.SentimentUnknown, rec.Sentiment)
			},
		},
		{
			name: "zero stars is no rating signal",
			raw:  RawFeedback{Source: "google_maps", SourceID: "1", Text: "hi", Rating: intPtr(0)},
			check: func(t *testing.T, rec domain.FeedbackRecord) {
				require.NotNil(t, rec.Rating)
				assert.Equal(t, 0, *rec.Rating)
				assert.Equal(t, domain.SentimentUnknown, rec.Sentiment)
			},
		},
		{
			name: "rating five is positive",
			raw:  RawFeedback{Source: "google_maps", SourceID: "1", Text: "hi", Rating: intPtr(5)},
			check: func(t *testing.T, rec domain.FeedbackRecord) {
				assert.Equal(t, domain.SentimentPositive, rec.Sentiment)
			},
		},
		{
			name: "missing source id derives a content key",
			raw:  RawFeedback{Source: "instagram", Text: "love it", Author: "a", Date: "2026-01-01"},
			check: func(t *testing.T, rec domain.FeedbackRecord) {
				assert.Contains(t, rec.SourceID, "content:")

				again, err := Normalize(RawFeedback{Source: "instagram", Text: "love it", Author: "a", Date: "2026-01-01"}, testNow.Add(time.Hour))
				require.NoError(t, err)
				assert.Equal(t, rec.ID, again.ID)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, err := Normalize(tt.raw, testNow)
			require.NoError(t, err)
			tt.check(t, rec)
		})
	}
}

func TestNormalizeRejects(t *testing.T) {
	_, err := Normalize(RawFeedback{Source: "google_maps", SourceID: "1", Text: "   "}, testNow)
	assert.ErrorIs(t, err, coreerrors.ErrInvalidInput)

	_, err = Normalize(RawFeedback{Source: "google_maps", SourceID: "1", Text: "x", CompanyID: "acme"}, testNow)
	assert.ErrorIs(t, err, coreerrors.ErrInvalidID)
}

func TestFeedbackIDIsStable(t *testing.T) {
	a := FeedbackID(domain.SourceGoogleMaps, "123")
	assert.Equal(t, a, FeedbackID(domain.SourceGoogleMaps, "123"))
	assert.NotEqual(t, a, FeedbackID(domain.SourceAppStore, "123"))
}

func TestIngestEnqueuesNewAndChanged(t *testing.T) {
	store := mocks.NewStore()
	svc := NewService(store, nil)
	svc.now = func() time.Time { return testNow }
	ctx := context.Background()

	batch := []RawFeedback{
		{Source: "google_play", SourceID: "1", Text: "crash on login", Rating: intPtr(1)},
		{Source: "google_play", SourceID: "2", Text: "great", Rating: intPtr(5)},
		{Source: "google_play", SourceID: "3", Text: ""},
	}

	report, err := svc.Ingest(ctx, batch)
	require.NoError(t, err)
	assert.Equal(t, 2, report.Created)
	assert.Equal(t, 2, report.Enqueued)
	assert.Equal(t, 1, report.Rejected)
	require.Len(t, report.Errors, 1)
	assert.Equal(t, 2, report.Errors[0].Index)

	// Re-ingesting identical data is idempotent.
	report, err = svc.Ingest(ctx, batch[:2])
	require.NoError(t, err)
	assert.Zero(t, report.Created)
	assert.Zero(t, report.Updated)
	assert.Zero(t, report.Enqueued)

	all, err := store.ListFeedback(ctx, domain.FeedbackFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 2)

	// Changed text updates in place; the first item is still pending so
	// it is not queued twice.
	report, err = svc.Ingest(ctx, []RawFeedback{{Source: "google_play", SourceID: "1", Text: "crash on login after update"}})
	require.NoError(t, err)
	assert.Equal(t, 1, report.Updated)
	assert.Zero(t, report.Enqueued)

	stats, err := store.GetQueueStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, stats.Pending)
}

func TestIngestReportsStoreFailures(t *testing.T) {
	svc := NewService(failingRepo{}, nil)

	report, err := svc.Ingest(context.Background(), []RawFeedback{{Source: "other", SourceID: "1", Text: "x"}})
	require.NoError(t, err)
	assert.Equal(t, 1, report.Failed)
	assert.Empty(t, report.IDs)
}

func TestIngestStopsWhenContextDone(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewService(mocks.NewStore(), nil).Ingest(ctx, []RawFeedback{{Source: "other", SourceID: "1", Text: "x"}})
	assert.ErrorIs(t, err, context.Canceled)
}

type failingRepo struct{}

func (failingRepo) UpsertFeedback(context.Context, domain.FeedbackRecord) (domain.UpsertResult, error) {
	return domain.UpsertResult{}, errors.New("db down")
}

func (failingRepo) EnqueueAnalysis(context.Context, string) (bool, error) {
	return false, errors.New("db down")
}

func (failingRepo) GetLatestQueueItem(context.Context, string) (*domain.QueueItem, error) {
	return nil, errors.New("db down")
}

// flakyEnqueueRepo fails the first enqueueFailures enqueue calls.
type flakyEnqueueRepo struct {
	*mocks.Store
	enqueueFailures int
}

func (r *flakyEnqueueRepo) EnqueueAnalysis(ctx context.Context, msgID string) (bool, error) {
	if r.enqueueFailures > 0 {
		r.enqueueFailures--
		return false, errors.New("connection reset")
	}

	return r.Store.EnqueueAnalysis(ctx, msgID)
}

func TestIngestRetriesLostEnqueue(t *testing.T) {
	store := mocks.NewStore()
	repo := &flakyEnqueueRepo{Store: store, enqueueFailures: 1}
	svc := NewService(repo, nil)
	svc.now = func() time.Time { return testNow }
	ctx := context.Background()

	batch := []RawFeedback{{Source: "google_play", SourceID: "1", Text: "refund never arrived", Rating: intPtr(1), Likes: 500}}

	report, err := svc.Ingest(ctx, batch)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Created)
	assert.Zero(t, report.Enqueued)
	assert.Equal(t, 1, report.Failed)
	require.Len(t, report.Errors, 1)
	assert.Equal(t, 0, report.Errors[0].Index)
	assert.Contains(t, report.Errors[0].Error, "connection reset")

	stats, err := store.GetQueueStats(ctx)
	require.NoError(t, err)
	assert.Zero(t, stats.Pending)

	report, err = svc.Ingest(ctx, batch)
	require.NoError(t, err)
	assert.Zero(t, report.Created)
	assert.Zero(t, report.Updated)
	assert.Equal(t, 1, report.Enqueued)
	assert.Zero(t, report.Failed)

	stats, err = store.GetQueueStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Pending)

	// Once queued, identical re-ingests leave the queue alone.
	report, err = svc.Ingest(ctx, batch)
	require.NoError(t, err)
	assert.Zero(t, report.Enqueued)
	assert.Len(t, store.QueueItems(), 1)
}

func TestIngestDoesNotRequeueFailedItems(t *testing.T) {
	store := mocks.NewStore()
	svc := NewService(store, nil)
	ctx := context.Background()

	batch := []RawFeedback{{Source: "app_store", SourceID: "9", Text: "cannot log in"}}

	_, err := svc.Ingest(ctx, batch)
	require.NoError(t, err)

	items := store.QueueItems()
	require.Len(t, items, 1)

	claimed, err := store.ClaimQueueItem(ctx, items[0].ID)
	require.NoError(t, err)
	require.True(t, claimed)
	require.NoError(t, store.FailQueueItem(ctx, items[0].ID, domain.ErrorKindPromptDataNotFound, "no company"))

	report, err := svc.Ingest(ctx, batch)
	require.NoError(t, err)
	assert.Zero(t, report.Enqueued)
	assert.Len(t, store.QueueItems(), 1)
}

func TestStripMarkup(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{in: "plain text", want: "plain text"},
		{in: "I <3 this app", want: "I <3 this app"},
		{in: "The <b>delivery</b> was late", want: "The delivery was late"},
		{in: "Fish &amp; chips", want: "Fish & chips"},
		{in: "first line<br>second line", want: "first line\nsecond line"},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, stripMarkup(tt.in))
		})
	}
}
