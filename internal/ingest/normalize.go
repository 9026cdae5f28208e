// Package ingest is the boundary where source adapters hand feedback to the
// service. It normalizes loose adapter payloads into domain records, stores
// them and queues them for triage.
package ingest

import (
	"fmt"
	"strings"
	"time"

	"github.com/araddon/dateparse"
	"github.com/google/uuid"
	"golang.org/x/text/unicode/norm"

	"github.com/lueurxax/feedback-triage/internal/core/domain"
	coreerrors "github.com/lueurxax/feedback-triage/internal/core/errors"
)

// feedbackNamespace seeds the UUIDv5 feedback IDs.
var feedbackNamespace = uuid.MustParse("8c3b6a52-1f0e-4f4e-9a57-3d2f3c8e6b41")

// RawFeedback is what a source adapter emits.
type RawFeedback struct {
	Source    string `json:"source"`
	SourceID  string `json:"source_id"`
	CompanyID string `json:"company_id,omitempty"`
	Text      string `json:"text"`
	Context   string `json:"context,omitempty"`
	Author    string `json:"author,omitempty"`
	Date      string `json:"date,omitempty"`
	Likes     int    `json:"likes"`
	Rating    *int   `json:"rating,omitempty"`
}

// FeedbackID derives the stable record ID of (source, sourceID).
func FeedbackID(source domain.Source, sourceID string) string {
	return uuid.NewSHA1(feedbackNamespace, []byte(string(source)+"\x00"+sourceID)).String()
}

// Normalize turns an adapter payload into a FeedbackRecord. now is used when
// the payload has no usable date.
func Normalize(raw RawFeedback, now time.Time) (domain.FeedbackRecord, error) {
	source, _ := domain.ParseSource(raw.Source)

	text := cleanText(raw.Text)
	if text == "" {
		return domain.FeedbackRecord{Source: source}, fmt.Errorf("%w: text is empty", coreerrors.ErrInvalidInput)
	}

	companyID := strings.TrimSpace(raw.CompanyID)
	if companyID != "" {
		if _, err := uuid.Parse(companyID); err != nil {
			return domain.FeedbackRecord{Source: source}, fmt.Errorf("%w: company_id %q", coreerrors.ErrInvalidID, raw.CompanyID)
		}
	}

	author := cleanText(raw.Author)
	date := parseDate(raw.Date, now)

	sourceID := strings.TrimSpace(raw.SourceID)
	if sourceID == "" {
		sourceID = contentKey(text, author, date)
	}

	rating := raw.Rating
	if rating != nil && (*rating < domain.MinRating || *rating > domain.MaxRating) {
		rating = nil
	}

	return domain.FeedbackRecord{
		ID:        FeedbackID(source, sourceID),
		CompanyID: companyID,
		Source:    source,
		SourceID:  sourceID,
		Text:      text,
		Context:   cleanText(raw.Context),
		Author:    author,
		Date:      date,
		Likes:     max(raw.Likes, 0),
		Rating:    rating,
		Sentiment: domain.SentimentFromRating(rating),
		Status:    domain.DefaultKanbanStatus,
	}, nil
}

func cleanText(s string) string {
	return strings.TrimSpace(norm.NFC.String(stripMarkup(s)))
}

func parseDate(s string, now time.Time) time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return now.UTC()
	}

	t, err := dateparse.ParseIn(s, time.UTC)
	if err != nil {
		return now.UTC()
	}

	return t.UTC()
}

// contentKey identifies a record that arrived without an external ID.
func contentKey(text, author string, date time.Time) string {
	return "content:" + uuid.NewSHA1(feedbackNamespace, []byte(text+"\x00"+author+"\x00"+date.Format(time.RFC3339))).String()
}
