// Package ports provides domain-centric interfaces for external dependencies.
// These interfaces follow the ports and adapters (hexagonal) architecture pattern,
// allowing business logic to remain independent of infrastructure concerns.
// The PostgreSQL store (*db.DB) satisfies all of them.
package ports

import (
	"context"
	"time"

	"github.com/lueurxax/feedback-triage/internal/core/domain"
)

// FeedbackReader provides read access to normalized feedback records.
type FeedbackReader interface {
	ListFeedback(ctx context.Context, filter domain.FeedbackFilter) ([]domain.FeedbackRecord, error)
	GetFeedback(ctx context.Context, id string) (*domain.FeedbackRecord, error)
}

// FeedbackRepository handles feedback ingestion and score inputs.
type FeedbackRepository interface {
	FeedbackReader
	UpsertFeedback(ctx context.Context, rec domain.FeedbackRecord) (domain.UpsertResult, error)
	UpdateFeedbackSentiment(ctx context.Context, id string, sentiment domain.Sentiment, polarity *float64) error
	PurgeFeedback(ctx context.Context, id string) error
}

// StatusRepository handles Kanban transitions and their audit trail.
type StatusRepository interface {
	GetFeedback(ctx context.Context, id string) (*domain.FeedbackRecord, error)
	TransitionFeedbackStatus(ctx context.Context, id string, from, to domain.KanbanStatus, at time.Time) error
	ListStatusEvents(ctx context.Context, id string) ([]domain.StatusEvent, error)
}

// QueueRepository handles the analysis queue lifecycle.
type QueueRepository interface {
	EnqueueAnalysis(ctx context.Context, msgID string) (bool, error)
	ListPendingQueueItems(ctx context.Context, limit int) ([]domain.QueueItem, error)
	ClaimQueueItem(ctx context.Context, id string) (bool, error)
	CompleteQueueItem(ctx context.Context, id string) error
	FailQueueItem(ctx context.Context, id string, kind domain.ErrorKind, message string) error
	RecoverStuckQueueItems(ctx context.Context, staleBefore time.Time) (int64, error)
	RequeueFailedQueueItem(ctx context.Context, id string) error
	GetQueueStats(ctx context.Context) (domain.QueueStats, error)
	GetLatestQueueItem(ctx context.Context, msgID string) (*domain.QueueItem, error)
}

// AnalysisRepository stores triage results keyed by message.
type AnalysisRepository interface {
	UpsertAnalysis(ctx context.Context, a domain.AnalysisResult) error
	GetAnalysis(ctx context.Context, msgID string) (*domain.AnalysisResult, error)
}

// PromptContextProvider assembles the message and company metadata a triage
// prompt is built from.
type PromptContextProvider interface {
	GetPromptContext(ctx context.Context, msgID string) (*domain.PromptContext, error)
}

// Store is everything the service needs from persistence.
type Store interface {
	FeedbackRepository
	StatusRepository
	QueueRepository
	AnalysisRepository
	PromptContextProvider
	Ping(ctx context.Context) error
}
