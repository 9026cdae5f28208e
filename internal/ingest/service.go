package ingest

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/lueurxax/feedback-triage/internal/core/domain"
	"github.com/lueurxax/feedback-triage/internal/platform/observability"
	db "github.com/lueurxax/feedback-triage/internal/storage"
)

const (
	resultCreated   = "created"
	resultUpdated   = "updated"
	resultUnchanged = "unchanged"
	resultRejected  = "rejected"
	resultError     = "error"

	enqueueQueued    = "queued"
	enqueueDuplicate = "duplicate"
	enqueueError     = "error"
)

// Repository defines the storage operations required by ingestion.
type Repository interface {
	UpsertFeedback(ctx context.Context, rec domain.FeedbackRecord) (domain.UpsertResult, error)
	EnqueueAnalysis(ctx context.Context, msgID string) (bool, error)
	GetLatestQueueItem(ctx context.Context, msgID string) (*domain.QueueItem, error)
}

// Compile-time assertion that *db.DB implements Repository.
var _ Repository = (*db.DB)(nil)

// ItemError describes a rejected or failed input.
type ItemError struct {
	Index    int    `json:"index"`
	SourceID string `json:"source_id,omitempty"`
	Error    string `json:"error"`
}

// Report summarizes one ingest batch. Failed counts records whose store or
// enqueue step failed; a stored record whose enqueue failed is also counted
// as created or updated.
type Report struct {
	Created  int         `json:"created"`
	Updated  int         `json:"updated"`
	Enqueued int         `json:"enqueued"`
	Rejected int         `json:"rejected"`
	Failed   int         `json:"failed"`
	IDs      []string    `json:"ids"`
	Errors   []ItemError `json:"errors,omitempty"`
}

// Service stores normalized feedback and queues it for triage.
type Service struct {
	repo   Repository
	logger *zerolog.Logger
	now    func() time.Time
}

// NewService creates an ingest service.
func NewService(repo Repository, logger *zerolog.Logger) *Service {
	if logger == nil {
		nopLogger := zerolog.Nop()
		logger = &nopLogger
	}

	return &Service{
		repo:   repo,
		logger: logger,
		now:    time.Now,
	}
}

// Ingest normalizes and upserts each record. New records and records whose
// text changed are queued for triage, as are unchanged records that were
// never queued. Bad inputs are reported and skipped; the batch only stops
// early when ctx is done.
func (s *Service) Ingest(ctx context.Context, batch []RawFeedback) (Report, error) {
	report := Report{IDs: make([]string, 0, len(batch))}
	now := s.now()

	for i, raw := range batch {
		if err := ctx.Err(); err != nil {
			return report, fmt.Errorf("ingest interrupted: %w", err)
		}

		rec, err := Normalize(raw, now)
		if err != nil {
			report.Rejected++
			report.Errors = append(report.Errors, ItemError{Index: i, SourceID: raw.SourceID, Error: err.Error()})
			observability.FeedbackIngested.WithLabelValues(string(rec.Source), resultRejected).Inc()

			continue
		}

		res, err := s.repo.UpsertFeedback(ctx, rec)
		if err != nil {
			report.fail(i, rec.SourceID, err)
			observability.FeedbackIngested.WithLabelValues(string(rec.Source), resultError).Inc()
			s.logger.Error().Err(err).Str("source", string(rec.Source)).Str("source_id", rec.SourceID).Msg("failed to store feedback")

			continue
		}

		report.IDs = append(report.IDs, rec.ID)

		switch {
		case res.Created:
			report.Created++
			observability.FeedbackIngested.WithLabelValues(string(rec.Source), resultCreated).Inc()
		case res.TextChanged:
			report.Updated++
			observability.FeedbackIngested.WithLabelValues(string(rec.Source), resultUpdated).Inc()
		default:
			observability.FeedbackIngested.WithLabelValues(string(rec.Source), resultUnchanged).Inc()

			missing, err := s.neverQueued(ctx, rec.ID)
			if err != nil {
				report.fail(i, rec.SourceID, err)
				continue
			}

			if !missing {
				continue
			}
		}

		enqueued, err := s.enqueue(ctx, rec.ID)
		if err != nil {
			report.fail(i, rec.SourceID, err)
			continue
		}

		if enqueued {
			report.Enqueued++
		}
	}

	return report, nil
}

func (r *Report) fail(index int, sourceID string, err error) {
	r.Failed++
	r.Errors = append(r.Errors, ItemError{Index: index, SourceID: sourceID, Error: err.Error()})
}

// neverQueued reports whether msgID has no queue item at all, which happens
// when an earlier enqueue failed after the record was stored.
func (s *Service) neverQueued(ctx context.Context, msgID string) (bool, error) {
	item, err := s.repo.GetLatestQueueItem(ctx, msgID)
	if err != nil {
		return false, fmt.Errorf("check queue for %s: %w", msgID, err)
	}

	return item == nil, nil
}

func (s *Service) enqueue(ctx context.Context, id string) (bool, error) {
	queued, err := s.repo.EnqueueAnalysis(ctx, id)
	if err != nil {
		observability.QueueEnqueued.WithLabelValues(enqueueError).Inc()
		s.logger.Error().Err(err).Str("msg_id", id).Msg("failed to enqueue analysis")

		return false, fmt.Errorf("enqueue %s: %w", id, err)
	}

	if !queued {
		observability.QueueEnqueued.WithLabelValues(enqueueDuplicate).Inc()
		return false, nil
	}

	observability.QueueEnqueued.WithLabelValues(enqueueQueued).Inc()

	return true, nil
}
