// Package domain holds the source-agnostic feedback model shared by ingest,
// scoring, the Kanban workflow and the triage queue.
package domain

import (
	"strings"
	"time"
)

// Source identifies the platform a feedback record was collected from.
type Source string

// Supported sources. Unknown inputs normalize to SourceOther.
const (
	SourceGoogleMaps   Source = "google_maps"
	SourceGooglePlay   Source = "google_play"
	SourceAppStore     Source = "app_store"
	SourceInstagram    Source = "instagram"
	SourceGoogleSearch Source = "google_search"
	SourceOther        Source = "other"
)

var knownSources = map[Source]struct{}{
	SourceGoogleMaps:   {},
	SourceGooglePlay:   {},
	SourceAppStore:     {},
	SourceInstagram:    {},
	SourceGoogleSearch: {},
	SourceOther:        {},
}

// ParseSource maps a loose source name to a Source. The boolean reports
// whether the input named a known source.
func ParseSource(s string) (Source, bool) {
	src := Source(strings.ToLower(strings.TrimSpace(s)))
	if _, ok := knownSources[src]; ok {
		return src, true
	}

	return SourceOther, false
}

// Valid reports whether s is one of the known sources.
func (s Source) Valid() bool {
	_, ok := knownSources[s]
	return ok
}

// Sentiment is the coarse polarity of a feedback record. Empty means unknown.
type Sentiment string

const (
	SentimentPositive Sentiment = "positive"
	SentimentNeutral  Sentiment = "neutral"
	SentimentNegative Sentiment = "negative"
	SentimentUnknown  Sentiment = ""
)

// ParseSentiment returns the sentiment for s or SentimentUnknown with false.
func ParseSentiment(s string) (Sentiment, bool) {
	switch Sentiment(strings.ToLower(strings.TrimSpace(s))) {
	case SentimentPositive:
		return SentimentPositive, true
	case SentimentNeutral:
		return SentimentNeutral, true
	case SentimentNegative:
		return SentimentNegative, true
	default:
		return SentimentUnknown, false
	}
}

// SentimentFromRating derives a rule-based sentiment from a star rating.
// Zero stars means the author left no rating.
func SentimentFromRating(rating *int) Sentiment {
	if rating == nil {
		return SentimentUnknown
	}

	switch r := *rating; {
	case r < 1:
		return SentimentUnknown
	case r >= 4:
		return SentimentPositive
	case r == 3:
		return SentimentNeutral
	default:
		return SentimentNegative
	}
}

// Priority is the support-facing bucket derived from the total score.
type Priority string

const (
	PriorityHigh   Priority = "high"
	PriorityMedium Priority = "medium"
	PriorityLow    Priority = "low"
)

// Rating bounds.
const (
	MinRating = 0
	MaxRating = 5
)

// FeedbackRecord is the canonical normalized unit of customer feedback.
type FeedbackRecord struct {
	ID                string       `json:"id"`
	CompanyID         string       `json:"company_id,omitempty"`
	Source            Source       `json:"source"`
	SourceID          string       `json:"source_id"`
	Text              string       `json:"text"`
	Context           string       `json:"context,omitempty"`
	Author            string       `json:"author"`
	Date              time.Time    `json:"date"`
	Likes             int          `json:"likes"`
	Rating            *int         `json:"rating,omitempty"`
	Sentiment         Sentiment    `json:"sentiment"`
	SentimentPolarity *float64     `json:"sentiment_polarity,omitempty"`
	Status            KanbanStatus `json:"status"`
	StatusChangedAt   time.Time    `json:"status_changed_at"`
	Priority          Priority     `json:"priority,omitempty"`
	CreatedAt         time.Time    `json:"created_at"`
	UpdatedAt         time.Time    `json:"updated_at"`
}

// FeedbackFilter restricts a feedback listing by exact match. Zero values mean "any".
type FeedbackFilter struct {
	Source Source
	Status KanbanStatus
}

// Matches reports whether rec passes the filter.
func (f FeedbackFilter) Matches(rec FeedbackRecord) bool {
	if f.Source != "" && rec.Source != f.Source {
		return false
	}

	if f.Status != "" && rec.Status != f.Status {
		return false
	}

	return true
}

// StatusEvent is an audit row written for every effective Kanban transition.
type StatusEvent struct {
	FeedbackID string       `json:"feedback_id"`
	From       KanbanStatus `json:"from"`
	To         KanbanStatus `json:"to"`
	ChangedAt  time.Time    `json:"changed_at"`
}

// UpsertResult reports what an upsert did to the stored record.
type UpsertResult struct {
	Created     bool
	TextChanged bool
}
