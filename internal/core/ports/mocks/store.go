package mocks

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/lueurxax/feedback-triage/internal/core/domain"
	coreerrors "github.com/lueurxax/feedback-triage/internal/core/errors"
	"github.com/lueurxax/feedback-triage/internal/core/ports"
)

// Store is a thread-safe in-memory implementation of ports.Store.
type Store struct {
	mu sync.RWMutex

	feedback      map[string]domain.FeedbackRecord
	sourceIndex   map[string]string
	events        []domain.StatusEvent
	queue         map[string]*queueEntry
	queueSeq      int
	analyses      map[string]domain.AnalysisResult
	promptContext map[string]domain.PromptContext

	// Now is the store clock. Defaults to time.Now.
	Now func() time.Time

	// ClaimQueueItemFn allows overriding ClaimQueueItem behavior.
	ClaimQueueItemFn func(ctx context.Context, id string) (bool, error)

	// CompleteQueueItemFn allows overriding CompleteQueueItem behavior.
	CompleteQueueItemFn func(ctx context.Context, id string) error

	// FailQueueItemFn allows overriding FailQueueItem behavior.
	FailQueueItemFn func(ctx context.Context, id string, kind domain.ErrorKind, message string) error

	// ListPendingQueueItemsFn allows overriding ListPendingQueueItems behavior.
	ListPendingQueueItemsFn func(ctx context.Context, limit int) ([]domain.QueueItem, error)

	// UpsertAnalysisFn allows overriding UpsertAnalysis behavior.
	UpsertAnalysisFn func(ctx context.Context, a domain.AnalysisResult) error

	// GetPromptContextFn allows overriding GetPromptContext behavior.
	GetPromptContextFn func(ctx context.Context, msgID string) (*domain.PromptContext, error)

	// ListFeedbackFn allows overriding ListFeedback behavior.
	ListFeedbackFn func(ctx context.Context, filter domain.FeedbackFilter) ([]domain.FeedbackRecord, error)

	// TransitionFeedbackStatusFn allows overriding TransitionFeedbackStatus behavior.
	TransitionFeedbackStatusFn func(ctx context.Context, id string, from, to domain.KanbanStatus, at time.Time) error

	// UpdateFeedbackSentimentFn allows overriding UpdateFeedbackSentiment behavior.
	UpdateFeedbackSentimentFn func(ctx context.Context, id string, sentiment domain.Sentiment, polarity *float64) error

	// PingFn allows overriding Ping behavior.
	PingFn func(ctx context.Context) error
}

type queueEntry struct {
	item domain.QueueItem
	seq  int
}

var _ ports.Store = (*Store)(nil)

// NewStore creates a new empty in-memory store.
func NewStore() *Store {
	return &Store{
		feedback:      make(map[string]domain.FeedbackRecord),
		sourceIndex:   make(map[string]string),
		queue:         make(map[string]*queueEntry),
		analyses:      make(map[string]domain.AnalysisResult),
		promptContext: make(map[string]domain.PromptContext),
		Now:           time.Now,
	}
}

func (s *Store) now() time.Time {
	if s.Now == nil {
		return time.Now()
	}

	return s.Now()
}

func sourceKey(source domain.Source, sourceID string) string {
	return string(source) + "\x00" + sourceID
}

// AddFeedback stores rec as is, filling the Kanban status when empty.
func (s *Store) AddFeedback(rec domain.FeedbackRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if rec.Status == "" {
		rec.Status = domain.DefaultKanbanStatus
	}

	s.feedback[rec.ID] = rec
	s.sourceIndex[sourceKey(rec.Source, rec.SourceID)] = rec.ID
}

// SetPromptContext registers the prompt context returned for msgID.
func (s *Store) SetPromptContext(pc domain.PromptContext) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.promptContext[pc.MsgID] = pc
}

// QueueItem returns a snapshot of a queue item.
func (s *Store) QueueItem(id string) (domain.QueueItem, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.queue[id]
	if !ok {
		return domain.QueueItem{}, false
	}

	return cloneQueueItem(e.item), true
}

// QueueItems returns snapshots of every queue item in enqueue order.
func (s *Store) QueueItems() []domain.QueueItem {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entries := s.sortedQueue()
	out := make([]domain.QueueItem, 0, len(entries))

	for _, e := range entries {
		out = append(out, cloneQueueItem(e.item))
	}

	return out
}

// SetClaimedAt rewrites the claim time of a queue item to simulate a stuck worker.
func (s *Store) SetClaimedAt(id string, at time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if e, ok := s.queue[id]; ok {
		e.item.ClaimedAt = &at
	}
}

// Analyses returns the number of stored analysis rows.
func (s *Store) Analyses() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return len(s.analyses)
}

// Events returns the Kanban audit trail across all records.
func (s *Store) Events() []domain.StatusEvent {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return append([]domain.StatusEvent(nil), s.events...)
}

// Ping reports the store as reachable.
func (s *Store) Ping(ctx context.Context) error {
	if s.PingFn != nil {
		return s.PingFn(ctx)
	}

	return nil
}

// UpsertFeedback inserts or updates by (source, source_id).
func (s *Store) UpsertFeedback(_ context.Context, rec domain.FeedbackRecord) (domain.UpsertResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	key := sourceKey(rec.Source, rec.SourceID)

	existingID, ok := s.sourceIndex[key]
	if !ok {
		rec.Status = domain.DefaultKanbanStatus
		rec.StatusChangedAt = now
		rec.CreatedAt = now
		rec.UpdatedAt = now
		s.feedback[rec.ID] = rec
		s.sourceIndex[key] = rec.ID

		return domain.UpsertResult{Created: true}, nil
	}

	prev := s.feedback[existingID]
	textChanged := prev.Text != rec.Text

	next := prev
	if rec.CompanyID != "" {
		next.CompanyID = rec.CompanyID
	}

	next.Text = rec.Text
	next.Context = rec.Context
	next.Author = rec.Author
	next.Date = rec.Date
	next.Likes = rec.Likes
	next.Rating = rec.Rating

	if textChanged || prev.Sentiment == domain.SentimentUnknown {
		next.Sentiment = rec.Sentiment
	}

	if textChanged {
		next.SentimentPolarity = nil
	}

	next.UpdatedAt = now
	s.feedback[existingID] = next

	return domain.UpsertResult{TextChanged: textChanged}, nil
}

// ListFeedback returns records matching filter ordered by date desc, id asc.
func (s *Store) ListFeedback(ctx context.Context, filter domain.FeedbackFilter) ([]domain.FeedbackRecord, error) {
	if s.ListFeedbackFn != nil {
		return s.ListFeedbackFn(ctx, filter)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []domain.FeedbackRecord

	for _, rec := range s.feedback {
		if filter.Matches(rec) {
			out = append(out, rec)
		}
	}

	sort.Slice(out, func(i, j int) bool {
		if !out[i].Date.Equal(out[j].Date) {
			return out[i].Date.After(out[j].Date)
		}

		return out[i].ID < out[j].ID
	})

	return out, nil
}

// GetFeedback returns a record or ErrFeedbackNotFound.
func (s *Store) GetFeedback(_ context.Context, id string) (*domain.FeedbackRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.feedback[id]
	if !ok {
		return nil, coreerrors.ErrFeedbackNotFound
	}

	return &rec, nil
}

// TransitionFeedbackStatus applies the transition only while the record is in from.
func (s *Store) TransitionFeedbackStatus(ctx context.Context, id string, from, to domain.KanbanStatus, at time.Time) error {
	if s.TransitionFeedbackStatusFn != nil {
		return s.TransitionFeedbackStatusFn(ctx, id, from, to, at)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.feedback[id]
	if !ok || rec.Status != from {
		return coreerrors.ErrStatusConflict
	}

	rec.Status = to
	rec.StatusChangedAt = at
	rec.UpdatedAt = at
	s.feedback[id] = rec
	s.events = append(s.events, domain.StatusEvent{FeedbackID: id, From: from, To: to, ChangedAt: at})

	return nil
}

// ListStatusEvents returns the audit trail of one record.
func (s *Store) ListStatusEvents(_ context.Context, id string) ([]domain.StatusEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []domain.StatusEvent

	for _, ev := range s.events {
		if ev.FeedbackID == id {
			out = append(out, ev)
		}
	}

	return out, nil
}

// UpdateFeedbackSentiment stores a triage-derived sentiment.
func (s *Store) UpdateFeedbackSentiment(ctx context.Context, id string, sentiment domain.Sentiment, polarity *float64) error {
	if s.UpdateFeedbackSentimentFn != nil {
		return s.UpdateFeedbackSentimentFn(ctx, id, sentiment, polarity)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.feedback[id]
	if !ok {
		return coreerrors.ErrFeedbackNotFound
	}

	rec.Sentiment = sentiment
	if polarity != nil {
		p := *polarity
		rec.SentimentPolarity = &p
	}

	rec.UpdatedAt = s.now()
	s.feedback[id] = rec

	return nil
}

// PurgeFeedback removes a record with its queue items, analysis and events.
func (s *Store) PurgeFeedback(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.feedback[id]
	if !ok {
		return coreerrors.ErrFeedbackNotFound
	}

	delete(s.feedback, id)
	delete(s.sourceIndex, sourceKey(rec.Source, rec.SourceID))
	delete(s.analyses, id)

	for qid, e := range s.queue {
		if e.item.MsgID == id {
			delete(s.queue, qid)
		}
	}

	kept := s.events[:0]

	for _, ev := range s.events {
		if ev.FeedbackID != id {
			kept = append(kept, ev)
		}
	}

	s.events = kept

	return nil
}

// EnqueueAnalysis adds a pending item unless the message has a live one.
func (s *Store) EnqueueAnalysis(_ context.Context, msgID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, e := range s.queue {
		if e.item.MsgID == msgID && !e.item.Status.IsTerminal() {
			return false, nil
		}
	}

	s.queueSeq++
	id := fmt.Sprintf("q-%d", s.queueSeq)
	s.queue[id] = &queueEntry{
		item: domain.QueueItem{
			ID:        id,
			MsgID:     msgID,
			Status:    domain.QueueStatusPending,
			CreatedAt: s.now(),
		},
		seq: s.queueSeq,
	}

	return true, nil
}

// ListPendingQueueItems returns up to limit pending items, oldest first.
func (s *Store) ListPendingQueueItems(ctx context.Context, limit int) ([]domain.QueueItem, error) {
	if s.ListPendingQueueItemsFn != nil {
		return s.ListPendingQueueItemsFn(ctx, limit)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []domain.QueueItem

	for _, e := range s.sortedQueue() {
		if e.item.Status != domain.QueueStatusPending {
			continue
		}

		out = append(out, cloneQueueItem(e.item))
		if limit > 0 && len(out) == limit {
			break
		}
	}

	return out, nil
}

// ClaimQueueItem moves a pending item to processing.
func (s *Store) ClaimQueueItem(ctx context.Context, id string) (bool, error) {
	if s.ClaimQueueItemFn != nil {
		return s.ClaimQueueItemFn(ctx, id)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.queue[id]
	if !ok || e.item.Status != domain.QueueStatusPending {
		return false, nil
	}

	now := s.now()
	e.item.Status = domain.QueueStatusProcessing
	e.item.Attempts++
	e.item.ClaimedAt = &now
	e.item.ProcessedAt = nil

	return true, nil
}

// CompleteQueueItem marks a processing item completed.
func (s *Store) CompleteQueueItem(ctx context.Context, id string) error {
	if s.CompleteQueueItemFn != nil {
		return s.CompleteQueueItemFn(ctx, id)
	}

	return s.finish(id, domain.QueueStatusCompleted, domain.ErrorKindNone, "")
}

// FailQueueItem marks a processing item failed.
func (s *Store) FailQueueItem(ctx context.Context, id string, kind domain.ErrorKind, message string) error {
	if s.FailQueueItemFn != nil {
		return s.FailQueueItemFn(ctx, id, kind, message)
	}

	return s.finish(id, domain.QueueStatusFailed, kind, message)
}

func (s *Store) finish(id string, status domain.QueueStatus, kind domain.ErrorKind, message string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.queue[id]
	if !ok || e.item.Status != domain.QueueStatusProcessing {
		return fmt.Errorf("finish queue item %s: %w", id, coreerrors.ErrStatusConflict)
	}

	now := s.now()
	e.item.Status = status
	e.item.ProcessedAt = &now
	e.item.ErrorKind = kind
	e.item.ErrorMessage = message

	return nil
}

// RecoverStuckQueueItems returns stale processing items to pending.
func (s *Store) RecoverStuckQueueItems(_ context.Context, staleBefore time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var n int64

	for _, e := range s.queue {
		it := &e.item
		if it.Status == domain.QueueStatusProcessing && it.ProcessedAt == nil &&
			it.ClaimedAt != nil && it.ClaimedAt.Before(staleBefore) {
			it.Status = domain.QueueStatusPending
			it.ClaimedAt = nil
			n++
		}
	}

	return n, nil
}

// RequeueFailedQueueItem moves a failed item back to pending.
func (s *Store) RequeueFailedQueueItem(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.queue[id]
	if !ok {
		return coreerrors.ErrQueueItemNotFound
	}

	if e.item.Status != domain.QueueStatusFailed {
		return coreerrors.ErrNotRequeueable
	}

	for otherID, other := range s.queue {
		if otherID != id && other.item.MsgID == e.item.MsgID && !other.item.Status.IsTerminal() {
			return fmt.Errorf("message already queued: %w", coreerrors.ErrNotRequeueable)
		}
	}

	e.item.Status = domain.QueueStatusPending
	e.item.ClaimedAt = nil
	e.item.ProcessedAt = nil
	e.item.ErrorKind = domain.ErrorKindNone
	e.item.ErrorMessage = ""

	return nil
}

// GetQueueStats counts items by status.
func (s *Store) GetQueueStats(_ context.Context) (domain.QueueStats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var stats domain.QueueStats
	for _, e := range s.queue {
		stats.Add(e.item.Status, 1)
	}

	return stats, nil
}

// GetLatestQueueItem returns the newest item of a message or nil.
func (s *Store) GetLatestQueueItem(_ context.Context, msgID string) (*domain.QueueItem, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var latest *queueEntry

	for _, e := range s.queue {
		if e.item.MsgID == msgID && (latest == nil || e.seq > latest.seq) {
			latest = e
		}
	}

	if latest == nil {
		return nil, nil //nolint:nilnil // nil,nil indicates the message was never queued
	}

	item := cloneQueueItem(latest.item)

	return &item, nil
}

// UpsertAnalysis stores the analysis keyed by message.
func (s *Store) UpsertAnalysis(ctx context.Context, a domain.AnalysisResult) error {
	if s.UpsertAnalysisFn != nil {
		return s.UpsertAnalysisFn(ctx, a)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	if prev, ok := s.analyses[a.MsgID]; ok {
		a.ID = prev.ID
		a.CreatedAt = prev.CreatedAt
	} else {
		a.ID = "a-" + a.MsgID
		a.CreatedAt = now
	}

	a.Tags = append([]string(nil), a.Tags...)
	a.UpdatedAt = now
	s.analyses[a.MsgID] = a

	return nil
}

// GetAnalysis returns the analysis of a message or ErrAnalysisNotFound.
func (s *Store) GetAnalysis(_ context.Context, msgID string) (*domain.AnalysisResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	a, ok := s.analyses[msgID]
	if !ok {
		return nil, coreerrors.ErrAnalysisNotFound
	}

	return &a, nil
}

// GetPromptContext returns the registered prompt context or ErrPromptDataNotFound.
func (s *Store) GetPromptContext(ctx context.Context, msgID string) (*domain.PromptContext, error) {
	if s.GetPromptContextFn != nil {
		return s.GetPromptContextFn(ctx, msgID)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	pc, ok := s.promptContext[msgID]
	if !ok {
		return nil, fmt.Errorf("message %s: %w", msgID, coreerrors.ErrPromptDataNotFound)
	}

	return &pc, nil
}

func (s *Store) sortedQueue() []*queueEntry {
	entries := make([]*queueEntry, 0, len(s.queue))
	for _, e := range s.queue {
		entries = append(entries, e)
	}

	sort.Slice(entries, func(i, j int) bool {
		if !entries[i].item.CreatedAt.Equal(entries[j].item.CreatedAt) {
			return entries[i].item.CreatedAt.Before(entries[j].item.CreatedAt)
		}

		return entries[i].seq < entries[j].seq
	})

	return entries
}

func cloneQueueItem(it domain.QueueItem) domain.QueueItem {
	if it.ClaimedAt != nil {
		t := *it.ClaimedAt
		it.ClaimedAt = &t
	}

	if it.ProcessedAt != nil {
		t := *it.ProcessedAt
		it.ProcessedAt = &t
	}

	return it
}
