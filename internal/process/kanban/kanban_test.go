package kanban

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lueurxax/feedback-triage/internal/core/domain"
	coreerrors "github.com/lueurxax/feedback-triage/internal/core/errors"
	"github.com/lueurxax/feedback-triage/internal/core/ports/mocks"
)

func newTestService(t *testing.T, status domain.KanbanStatus) (*Service, *mocks.Store) {
	t.Helper()

	store := mocks.NewStore()
	store.AddFeedback(domain.FeedbackRecord{ID: "f1", Source: domain.SourceGoogleMaps, SourceID: "1", Text: "cold food", Status: status})

	return NewService(store, nil), store
}

func TestCloseIsIdempotent(t *testing.T) {
	svc, store := newTestService(t, domain.StatusInProgress)
	ctx := context.Background()

	first, err := svc.Close(ctx, "f1")
	require.NoError(t, err)
	assert.True(t, first.Changed)
	assert.Equal(t, domain.StatusDone, first.Status)

	second, err := svc.Close(ctx, "f1")
	require.NoError(t, err)
	assert.False(t, second.Changed)
	assert.Equal(t, domain.StatusDone, second.Status)
	assert.Equal(t, first.ChangedAt, second.ChangedAt)

	assert.Len(t, store.Events(), 1)
}

func TestReopen(t *testing.T) {
	tests := []struct {
		name        string
		from        domain.KanbanStatus
		wantStatus  domain.KanbanStatus
		wantChanged bool
	}{
		{name: "closed reopens", from: domain.StatusDone, wantStatus: domain.StatusOpen, wantChanged: true},
		{name: "in progress untouched", from: domain.StatusInProgress, wantStatus: domain.StatusInProgress},
		{name: "open untouched", from: domain.StatusOpen, wantStatus: domain.StatusOpen},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, store := newTestService(t, tt.from)

			res, err := svc.Reopen(context.Background(), "f1")
			require.NoError(t, err)
			assert.Equal(t, tt.wantStatus, res.Status)
			assert.Equal(t, tt.wantChanged, res.Changed)

			if tt.wantChanged {
				assert.Len(t, store.Events(), 1)
			} else {
				assert.Empty(t, store.Events())
			}
		})
	}
}

func TestTransitionIsPermissive(t *testing.T) {
	svc, store := newTestService(t, domain.StatusOpen)
	ctx := context.Background()

	steps := []domain.KanbanStatus{domain.StatusDone, domain.StatusInProgress, domain.StatusOpen, domain.StatusInProgress}
	for _, to := range steps {
		res, err := svc.Transition(ctx, "f1", to)
		require.NoError(t, err)
		assert.True(t, res.Changed)
		assert.Equal(t, to, res.Status)
	}

	events := store.Events()
	require.Len(t, events, len(steps))
	assert.Equal(t, domain.StatusOpen, events[0].From)
	assert.Equal(t, domain.StatusDone, events[0].To)

	history, err := svc.History(ctx, "f1")
	require.NoError(t, err)
	assert.Len(t, history, len(steps))
}

func TestTransitionErrors(t *testing.T) {
	svc, _ := newTestService(t, domain.StatusOpen)
	ctx := context.Background()

	_, err := svc.Transition(ctx, "f1", domain.KanbanStatus("archived"))
	assert.ErrorIs(t, err, coreerrors.ErrInvalidStatus)

	_, err = svc.Close(ctx, "missing")
	assert.ErrorIs(t, err, coreerrors.ErrFeedbackNotFound)

	_, err = svc.History(ctx, "missing")
	assert.ErrorIs(t, err, coreerrors.ErrFeedbackNotFound)
}

func TestTransitionRetriesOnceAfterConflict(t *testing.T) {
	svc, store := newTestService(t, domain.StatusOpen)
	ctx := context.Background()

	calls := 0
	store.TransitionFeedbackStatusFn = func(_ context.Context, _ string, _, _ domain.KanbanStatus, _ time.Time) error {
		calls++
		return coreerrors.ErrStatusConflict
	}

	_, err := svc.Close(ctx, "f1")
	require.ErrorIs(t, err, coreerrors.ErrStatusConflict)
	assert.Equal(t, 2, calls)
}

func TestCloseRacesSettleToOneEvent(t *testing.T) {
	svc, store := newTestService(t, domain.StatusOpen)
	ctx := context.Background()

	done := make(chan error, 8)
	for i := 0; i < 8; i++ {
		go func() {
			_, err := svc.Close(ctx, "f1")
			done <- err
		}()
	}

	for i := 0; i < 8; i++ {
		require.NoError(t, <-done)
	}

	assert.Len(t, store.Events(), 1)

	rec, err := store.GetFeedback(ctx, "f1")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusDone, rec.Status)
}
