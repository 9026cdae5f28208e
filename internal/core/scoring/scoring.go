// Package scoring converts a feedback record into a prioritization score.
//
// The engine is a pure function of (record, now): it performs no I/O and holds
// no mutable state, so identical inputs always yield identical breakdowns.
package scoring

import (
	"math"
	"time"

	"github.com/lueurxax/feedback-triage/internal/core/domain"
)

// Score bounds shared by every component.
const (
	MinScore = 0.0
	MaxScore = 100.0
)

const (
	sentimentPositiveScore = 100.0
	sentimentNeutralScore  = 50.0
	sentimentNegativeScore = 0.0
	urgencyBase            = 50.0
	hoursPerDay            = 24
)

// Weights of the score components in the total.
type Weights struct {
	Sentiment float64
	Likes     float64
	Recency   float64
	// Urgency applies only to negative feedback and grows with engagement.
	Urgency float64
}

// Config holds the tunable constants of the engine.
type Config struct {
	Weights Weights

	// LikesSaturation is the engagement count at which LikesScore reaches 100.
	LikesSaturation int

	// RecencyHorizon is the age at which RecencyScore reaches RecencyFloor.
	RecencyHorizon time.Duration
	RecencyFloor   float64

	HighThreshold   float64
	MediumThreshold float64
}

// DefaultConfig returns the production defaults.
func DefaultConfig() Config {
	return Config{
		Weights: Weights{
			Sentiment: 0.5,
			Likes:     0.2,
			Recency:   0.3,
			Urgency:   0.6,
		},
		LikesSaturation: 1000,
		RecencyHorizon:  365 * hoursPerDay * time.Hour,
		RecencyFloor:    5,
		HighThreshold:   75,
		MediumThreshold: 55,
	}
}

// Breakdown is the per-component score of one record.
type Breakdown struct {
	SentimentScore float64         `json:"sentiment_score"`
	LikesScore     float64         `json:"likes_score"`
	RecencyScore   float64         `json:"recency_score"`
	UrgencyScore   float64         `json:"urgency_score"`
	TotalScore     float64         `json:"total_score"`
	Priority       domain.Priority `json:"priority"`
}

// Engine scores feedback records.
type Engine struct {
	cfg Config
}

// New returns an engine, replacing unusable config values with defaults.
func New(cfg Config) *Engine {
	def := DefaultConfig()

	if cfg.LikesSaturation <= 0 {
		cfg.LikesSaturation = def.LikesSaturation
	}

	if cfg.RecencyHorizon <= 0 {
		cfg.RecencyHorizon = def.RecencyHorizon
	}

	cfg.RecencyFloor = clamp(cfg.RecencyFloor)

	if cfg.MediumThreshold > cfg.HighThreshold {
		cfg.MediumThreshold = cfg.HighThreshold
	}

	return &Engine{cfg: cfg}
}

// Config returns the effective configuration.
func (e *Engine) Config() Config {
	return e.cfg
}

// Score computes the breakdown of rec as of now.
func (e *Engine) Score(rec domain.FeedbackRecord, now time.Time) Breakdown {
	sentiment := effectiveSentiment(rec)

	b := Breakdown{
		SentimentScore: SentimentScore(sentiment, rec.SentimentPolarity),
		LikesScore:     LikesScore(rec.Likes, e.cfg.LikesSaturation),
		RecencyScore:   RecencyScore(now.Sub(rec.Date), e.cfg.RecencyHorizon, e.cfg.RecencyFloor),
	}

	if sentiment == domain.SentimentNegative {
		b.UrgencyScore = urgencyBase + b.LikesScore*(MaxScore-urgencyBase)/MaxScore
	}

	w := e.cfg.Weights
	b.TotalScore = clamp(w.Sentiment*b.SentimentScore +
		w.Likes*b.LikesScore +
		w.Recency*b.RecencyScore +
		w.Urgency*b.UrgencyScore)
	b.Priority = e.Bucket(b.TotalScore)

	return b
}

// Bucket maps a total score to a priority.
func (e *Engine) Bucket(total float64) domain.Priority {
	switch {
	case total >= e.cfg.HighThreshold:
		return domain.PriorityHigh
	case total >= e.cfg.MediumThreshold:
		return domain.PriorityMedium
	default:
		return domain.PriorityLow
	}
}

// effectiveSentiment falls back to the rating-derived label, then to neutral.
// A record without rating therefore scores as neutral and is never penalized.
func effectiveSentiment(rec domain.FeedbackRecord) domain.Sentiment {
	if rec.Sentiment != domain.SentimentUnknown {
		return rec.Sentiment
	}

	if s := domain.SentimentFromRating(rec.Rating); s != domain.SentimentUnknown {
		return s
	}

	return domain.SentimentNeutral
}

// SentimentScore maps a sentiment label to 0-100. A polarity in [-1, 1], when
// present, takes precedence as the finer scale.
func SentimentScore(s domain.Sentiment, polarity *float64) float64 {
	if polarity != nil && !math.IsNaN(*polarity) {
		p := math.Max(-1, math.Min(1, *polarity))
		return clamp(sentimentNeutralScore * (1 + p))
	}

	switch s {
	case domain.SentimentPositive:
		return sentimentPositiveScore
	case domain.SentimentNegative:
		return sentimentNegativeScore
	default:
		return sentimentNeutralScore
	}
}

// LikesScore is a logarithmic transform of engagement that saturates at 100.
func LikesScore(likes, saturation int) float64 {
	if likes <= 0 || saturation <= 0 {
		return MinScore
	}

	return clamp(MaxScore * math.Log1p(float64(likes)) / math.Log1p(float64(saturation)))
}

// RecencyScore decays linearly from 100 at age zero to floor at horizon and
// stays at floor afterwards. Future dates score 100.
func RecencyScore(age, horizon time.Duration, floor float64) float64 {
	if age <= 0 {
		return MaxScore
	}

	if horizon <= 0 || age >= horizon {
		return floor
	}

	frac := float64(age) / float64(horizon)

	return clamp(floor + (MaxScore-floor)*(1-frac))
}

func clamp(v float64) float64 {
	if math.IsNaN(v) {
		return MinScore
	}

	return math.Max(MinScore, math.Min(MaxScore, v))
}
