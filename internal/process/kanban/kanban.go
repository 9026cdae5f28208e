// Package kanban moves feedback records through the support workflow
// Запит -> Вирішення -> Готово.
package kanban

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/lueurxax/feedback-triage/internal/core/domain"
	coreerrors "github.com/lueurxax/feedback-triage/internal/core/errors"
	"github.com/lueurxax/feedback-triage/internal/core/ports"
	"github.com/lueurxax/feedback-triage/internal/platform/observability"
)

// conflictRetries is how many times a transition is re-read and retried
// after losing a race with a concurrent transition.
const conflictRetries = 1

// Result describes the status of a record after a transition request.
type Result struct {
	ID        string              `json:"id"`
	Status    domain.KanbanStatus `json:"status"`
	Changed   bool                `json:"changed"`
	ChangedAt time.Time           `json:"changed_at"`
}

// Service applies Kanban transitions.
type Service struct {
	repo   ports.StatusRepository
	logger *zerolog.Logger
	now    func() time.Time
}

// NewService creates a Kanban service.
func NewService(repo ports.StatusRepository, logger *zerolog.Logger) *Service {
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

// Close moves a record to Готово. Closing a closed record changes nothing.
func (s *Service) Close(ctx context.Context, id string) (Result, error) {
	return s.Transition(ctx, id, domain.StatusDone)
}

// Reopen moves a closed record back to Запит. Records that are not closed
// are left as they are.
func (s *Service) Reopen(ctx context.Context, id string) (Result, error) {
	return s.apply(ctx, id, func(current domain.KanbanStatus) (domain.KanbanStatus, bool) {
		if !current.IsClosed() {
			return current, false
		}

		return domain.StatusOpen, true
	})
}

// Transition moves a record to status to. A request for the current status
// is a successful no-op and writes no audit event.
func (s *Service) Transition(ctx context.Context, id string, to domain.KanbanStatus) (Result, error) {
	if !to.Valid() {
		return Result{}, fmt.Errorf("%w: %q", coreerrors.ErrInvalidStatus, to)
	}

	return s.apply(ctx, id, func(current domain.KanbanStatus) (domain.KanbanStatus, bool) {
		return to, current != to
	})
}

// History returns the audit trail of a record.
func (s *Service) History(ctx context.Context, id string) ([]domain.StatusEvent, error) {
	if _, err := s.repo.GetFeedback(ctx, id); err != nil {
		return nil, fmt.Errorf("get feedback %s: %w", id, err)
	}

	events, err := s.repo.ListStatusEvents(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("list status events %s: %w", id, err)
	}

	return events, nil
}

// apply reads the current status, asks decide for the target, and writes the
// transition conditionally on the status it read.
func (s *Service) apply(ctx context.Context, id string, decide func(domain.KanbanStatus) (domain.KanbanStatus, bool)) (Result, error) {
	for attempt := 0; ; attempt++ {
		rec, err := s.repo.GetFeedback(ctx, id)
		if err != nil {
			return Result{}, fmt.Errorf("get feedback %s: %w", id, err)
		}

		to, change := decide(rec.Status)
		if !change {
			return Result{ID: id, Status: rec.Status, ChangedAt: rec.StatusChangedAt}, nil
		}

		if !rec.Status.CanTransition(to) {
			return Result{}, fmt.Errorf("%w: %s -> %s", coreerrors.ErrInvalidStatus, rec.Status, to)
		}

		at := s.now().UTC()

		err = s.repo.TransitionFeedbackStatus(ctx, id, rec.Status, to, at)
		if err == nil {
			observability.StatusTransitions.WithLabelValues(string(to)).Inc()
			s.logger.Info().Str("feedback_id", id).Str("from", string(rec.Status)).Str("to", string(to)).Msg("status changed")

			return Result{ID: id, Status: to, Changed: true, ChangedAt: at}, nil
		}

		if !errors.Is(err, coreerrors.ErrStatusConflict) || attempt >= conflictRetries {
			return Result{}, fmt.Errorf("transition %s: %w", id, err)
		}

		s.logger.Debug().Str("feedback_id", id).Msg("status changed concurrently, retrying")
	}
}
