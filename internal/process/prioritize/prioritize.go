// Package prioritize turns stored feedback into a ranked support worklist.
package prioritize

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/lueurxax/feedback-triage/internal/core/domain"
	"github.com/lueurxax/feedback-triage/internal/core/ports"
	"github.com/lueurxax/feedback-triage/internal/core/scoring"
)

// Filter narrows a ranking. Source and Status are exact matches applied
// before ranking; Limit truncates the ranked list when positive.
type Filter struct {
	Limit  int
	Source domain.Source
	Status domain.KanbanStatus
}

func (f Filter) feedbackFilter() domain.FeedbackFilter {
	return domain.FeedbackFilter{Source: f.Source, Status: f.Status}
}

// ScoredFeedback is a record with its score breakdown.
type ScoredFeedback struct {
	domain.FeedbackRecord
	Score scoring.Breakdown `json:"score"`
}

// Stats counts records per priority bucket.
type Stats struct {
	Total  int `json:"total"`
	High   int `json:"high"`
	Medium int `json:"medium"`
	Low    int `json:"low"`
}

// Service ranks feedback records.
type Service struct {
	repo   ports.FeedbackReader
	engine *scoring.Engine
	now    func() time.Time
}

// Option configures a Service.
type Option func(*Service)

// WithClock overrides the time source used for recency.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

// NewService creates a prioritization service.
func NewService(repo ports.FeedbackReader, engine *scoring.Engine, opts ...Option) *Service {
	if engine == nil {
		engine = scoring.New(scoring.DefaultConfig())
	}

	s := &Service{
		repo:   repo,
		engine: engine,
		now:    time.Now,
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// ListPrioritized returns the filtered records ranked by TotalScore desc,
// Date desc, ID asc.
func (s *Service) ListPrioritized(ctx context.Context, f Filter) ([]ScoredFeedback, error) {
	scored, err := s.scoreAll(ctx, f)
	if err != nil {
		return nil, err
	}

	sort.SliceStable(scored, func(i, j int) bool {
		return Compare(scored[i], scored[j]) < 0
	})

	if f.Limit > 0 && len(scored) > f.Limit {
		scored = scored[:f.Limit]
	}

	return scored, nil
}

// Stats counts the same filtered working set ListPrioritized ranks. Limit is
// ignored so the counts describe the whole set, not the visible page.
func (s *Service) Stats(ctx context.Context, f Filter) (Stats, error) {
	scored, err := s.scoreAll(ctx, f)
	if err != nil {
		return Stats{}, err
	}

	st := Stats{Total: len(scored)}

	for _, sf := range scored {
		switch sf.Score.Priority {
		case domain.PriorityHigh:
			st.High++
		case domain.PriorityMedium:
			st.Medium++
		default:
			st.Low++
		}
	}

	return st, nil
}

// Score computes the breakdown of a single record at the service clock.
func (s *Service) Score(rec domain.FeedbackRecord) scoring.Breakdown {
	return s.engine.Score(rec, s.now())
}

func (s *Service) scoreAll(ctx context.Context, f Filter) ([]ScoredFeedback, error) {
	records, err := s.repo.ListFeedback(ctx, f.feedbackFilter())
	if err != nil {
		return nil, fmt.Errorf("list feedback: %w", err)
	}

	now := s.now()
	filter := f.feedbackFilter()
	out := make([]ScoredFeedback, 0, len(records))

	for _, rec := range records {
		if !filter.Matches(rec) {
			continue
		}

		bd := s.engine.Score(rec, now)
		rec.Priority = bd.Priority
		out = append(out, ScoredFeedback{FeedbackRecord: rec, Score: bd})
	}

	return out, nil
}

// Compare orders two scored records: higher total first, then newer, then
// lexicographically smaller ID. It is a total order over distinct IDs.
func Compare(a, b ScoredFeedback) int {
	switch {
	case a.Score.TotalScore > b.Score.TotalScore:
		return -1
	case a.Score.TotalScore < b.Score.TotalScore:
		return 1
	}

	switch {
	case a.Date.After(b.Date):
		return -1
	case a.Date.Before(b.Date):
		return 1
	}

	switch {
	case a.ID < b.ID:
		return -1
	case a.ID > b.ID:
		return 1
	default:
		return 0
	}
}
