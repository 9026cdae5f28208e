package triage

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/lueurxax/feedback-triage/internal/core/domain"
	"github.com/lueurxax/feedback-triage/internal/core/llm"
	"github.com/lueurxax/feedback-triage/internal/core/ports/mocks"
)

const (
	testMsgID      = "msg-1"
	testTicketType = "tt-complaint"
	testDataSource = "ds-refunds"
)

var testNow = time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

// fakeProvider is a scripted llm.Provider.
type fakeProvider struct {
	CompleteFn func(ctx context.Context, system, user string) (string, error)
	calls      atomic.Int32
}

func (f *fakeProvider) Name() llm.ProviderName { return "fake" }

func (f *fakeProvider) Model() string { return "fake-model" }

func (f *fakeProvider) Complete(ctx context.Context, system, user string) (string, error) {
	f.calls.Add(1)

	return f.CompleteFn(ctx, system, user)
}

func respondWith(raw string) *fakeProvider {
	return &fakeProvider{CompleteFn: func(context.Context, string, string) (string, error) {
		return raw, nil
	}}
}

func testPromptContext(msgID string) domain.PromptContext {
	return domain.PromptContext{
		MsgID:            msgID,
		MessageText:      "Ordered a refund two weeks ago and still nothing",
		MessageCreatedAt: testNow.Add(-time.Hour),
		Source:           domain.SourceGooglePlay,
		BrandTitle:       "Acme",
		CompanyTags:      []string{"refund", "delivery"},
		FAQSources:       []domain.DataSource{{ID: testDataSource, Title: "Refund policy"}},
		AllowedTicketTypes: []domain.TicketType{
			{ID: testTicketType, Title: "Complaint"},
			{ID: "tt-question", Title: "Question"},
		},
	}
}

// seedStore returns a store with one feedback record, its prompt context and
// a pending queue item for it.
func seedStore(msgIDs ...string) *mocks.Store {
	store := mocks.NewStore()
	store.Now = func() time.Time { return testNow }

	for _, id := range msgIDs {
		store.AddFeedback(domain.FeedbackRecord{ID: id, Source: domain.SourceGooglePlay, SourceID: id, Text: "refund", Date: testNow})
		store.SetPromptContext(testPromptContext(id))

		_, _ = store.EnqueueAnalysis(context.Background(), id) //nolint:errcheck // in-memory enqueue cannot fail
	}

	return store
}

const validResponse = `{
	"ticket_type_id": "tt-complaint",
	"theme_text": "refund delay",
	"tone_of_voice_value": "frustrated",
	"tags_array": ["refund", "delay", "refund"],
	"answer_text": "Sorry for the wait, we are checking your refund.",
	"company_answer_data_source_id": "ds-refunds",
	"sentiment": "negative",
	"sentiment_polarity": -0.7
}`
