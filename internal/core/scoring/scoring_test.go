package scoring

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lueurxax/feedback-triage/internal/core/domain"
)

var testNow = time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

func intPtr(v int) *int { return &v }

func floatPtr(v float64) *float64 { return &v }

func TestScore_Deterministic(t *testing.T) {
	e := New(DefaultConfig())
	rec := domain.FeedbackRecord{
		ID:        "a",
		Sentiment: domain.SentimentNegative,
		Likes:     42,
		Date:      testNow.Add(-72 * time.Hour),
	}

	first := e.Score(rec, testNow)
	second := e.Score(rec, testNow)

	assert.Equal(t, first, second)
}

func TestScore_Scenarios(t *testing.T) {
	e := New(DefaultConfig())

	tests := []struct {
		name string
		rec  domain.FeedbackRecord
		want domain.Priority
	}{
		{
			name: "negative viral today is high",
			rec:  domain.FeedbackRecord{Sentiment: domain.SentimentNegative, Likes: 500, Date: testNow},
			want: domain.PriorityHigh,
		},
		{
			name: "positive stale unengaged is low",
			rec:  domain.FeedbackRecord{Sentiment: domain.SentimentPositive, Likes: 0, Date: testNow.AddDate(-2, 0, 0)},
			want: domain.PriorityLow,
		},
		{
			name: "negative fresh without engagement is medium",
			rec:  domain.FeedbackRecord{Sentiment: domain.SentimentNegative, Date: testNow},
			want: domain.PriorityMedium,
		},
		{
			name: "negative stale without engagement is low",
			rec:  domain.FeedbackRecord{Sentiment: domain.SentimentNegative, Date: testNow.AddDate(-2, 0, 0)},
			want: domain.PriorityLow,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := e.Score(tt.rec, testNow)
			assert.Equal(t, tt.want, got.Priority, "breakdown: %+v", got)
		})
	}
}

func TestScore_MissingRatingNeverLowers(t *testing.T) {
	e := New(DefaultConfig())
	base := domain.FeedbackRecord{Likes: 3, Date: testNow.Add(-time.Hour)}

	neutral := base
	neutral.Rating = intPtr(3)

	noRating := e.Score(base, testNow)
	withNeutral := e.Score(neutral, testNow)

	assert.InDelta(t, sentimentNeutralScore, noRating.SentimentScore, 0.0001)
	assert.InDelta(t, withNeutral.TotalScore, noRating.TotalScore, 0.0001)
	assert.Zero(t, noRating.UrgencyScore)
}

func TestScore_RatingDerivesSentimentWhenUnknown(t *testing.T) {
	e := New(DefaultConfig())

	low := e.Score(domain.FeedbackRecord{Rating: intPtr(1), Date: testNow}, testNow)
	high := e.Score(domain.FeedbackRecord{Rating: intPtr(5), Date: testNow}, testNow)

	assert.InDelta(t, sentimentNegativeScore, low.SentimentScore, 0.0001)
	assert.InDelta(t, sentimentPositiveScore, high.SentimentScore, 0.0001)
	assert.Positive(t, low.UrgencyScore)
}

func TestScore_ExplicitSentimentBeatsRating(t *testing.T) {
	e := New(DefaultConfig())
	rec := domain.FeedbackRecord{Sentiment: domain.SentimentPositive, Rating: intPtr(1), Date: testNow}

	got := e.Score(rec, testNow)

	assert.InDelta(t, sentimentPositiveScore, got.SentimentScore, 0.0001)
	assert.Zero(t, got.UrgencyScore)
}

func TestScore_TotalIsClamped(t *testing.T) {
	e := New(DefaultConfig())
	rec := domain.FeedbackRecord{Sentiment: domain.SentimentNegative, Likes: 1_000_000, Date: testNow}

	got := e.Score(rec, testNow)

	assert.LessOrEqual(t, got.TotalScore, MaxScore)
	assert.GreaterOrEqual(t, got.TotalScore, MinScore)
}

func TestSentimentScore(t *testing.T) {
	tests := []struct {
		name     string
		s        domain.Sentiment
		polarity *float64
		want     float64
	}{
		{"positive", domain.SentimentPositive, nil, 100},
		{"neutral", domain.SentimentNeutral, nil, 50},
		{"negative", domain.SentimentNegative, nil, 0},
		{"unknown", domain.SentimentUnknown, nil, 50},
		{"polarity overrides label", domain.SentimentPositive, floatPtr(-0.5), 25},
		{"polarity clamped", domain.SentimentUnknown, floatPtr(3), 100},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, SentimentScore(tt.s, tt.polarity), 0.0001)
		})
	}
}

func TestLikesScore_MonotonicAndSaturating(t *testing.T) {
	prev := -1.0

	for _, likes := range []int{0, 1, 5, 10, 50, 100, 500, 999, 1000, 5000, 1_000_000} {
		got := LikesScore(likes, 1000)
		require.GreaterOrEqual(t, got, prev, "likes=%d", likes)
		require.LessOrEqual(t, got, MaxScore)

		prev = got
	}

	assert.InDelta(t, MaxScore, LikesScore(1000, 1000), 0.0001)
	assert.InDelta(t, MaxScore, LikesScore(50_000, 1000), 0.0001)
	assert.Zero(t, LikesScore(-3, 1000))
}

func TestRecencyScore(t *testing.T) {
	horizon := 100 * time.Hour

	tests := []struct {
		name string
		age  time.Duration
		want float64
	}{
		{"future", -time.Hour, 100},
		{"now", 0, 100},
		{"half horizon", 50 * time.Hour, 55},
		{"at horizon", horizon, 10},
		{"beyond horizon floors", 10 * horizon, 10},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, RecencyScore(tt.age, horizon, 10), 0.0001)
		})
	}
}

func TestBucket(t *testing.T) {
	e := New(DefaultConfig())

	assert.Equal(t, domain.PriorityHigh, e.Bucket(75))
	assert.Equal(t, domain.PriorityMedium, e.Bucket(74.99))
	assert.Equal(t, domain.PriorityMedium, e.Bucket(55))
	assert.Equal(t, domain.PriorityLow, e.Bucket(54.99))
}

func TestNew_FixesInvalidConfig(t *testing.T) {
	e := New(Config{HighThreshold: 40, MediumThreshold: 60, RecencyFloor: -5})
	cfg := e.Config()

	assert.Equal(t, DefaultConfig().LikesSaturation, cfg.LikesSaturation)
	assert.Equal(t, DefaultConfig().RecencyHorizon, cfg.RecencyHorizon)
	assert.InDelta(t, 40, cfg.MediumThreshold, 0.0001)
	assert.Zero(t, cfg.RecencyFloor)
}
