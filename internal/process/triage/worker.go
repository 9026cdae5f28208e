// Package triage runs the LLM analysis queue: a processor drains pending
// queue items in batches and a worker classifies each message exactly once
// per claim.
package triage

import (
	"context"
	"errors"
	"fmt"
	"time"
	"unicode/utf8"

	"github.com/rs/zerolog"

	"github.com/lueurxax/feedback-triage/internal/core/domain"
	coreerrors "github.com/lueurxax/feedback-triage/internal/core/errors"
	"github.com/lueurxax/feedback-triage/internal/core/llm"
	"github.com/lueurxax/feedback-triage/internal/core/ports"
	"github.com/lueurxax/feedback-triage/internal/platform/observability"
	"github.com/lueurxax/feedback-triage/internal/platform/worker"
)

const (
	// terminalWriteTimeout bounds the final queue update of an item. It runs
	// on a context detached from the item deadline.
	terminalWriteTimeout = 5 * time.Second

	logFieldQueueID   = "queue_id"
	logFieldMsgID     = "msg_id"
	logFieldErrorKind = "error_kind"
)

// Outcome is the result of processing one queue item.
type Outcome string

const (
	OutcomeCompleted Outcome = "completed"
	OutcomeFailed    Outcome = "failed"
	// OutcomeSkipped means the item was not claimed by this worker.
	OutcomeSkipped Outcome = "skipped"
)

// Result reports what happened to one item.
type Result struct {
	Outcome Outcome
	Kind    domain.ErrorKind
	Err     error
}

// Repository is the persistence the worker needs.
type Repository interface {
	ports.QueueRepository
	ports.AnalysisRepository
	ports.PromptContextProvider
	UpdateFeedbackSentiment(ctx context.Context, id string, sentiment domain.Sentiment, polarity *float64) error
}

// Worker analyzes single queue items.
type Worker struct {
	repo     Repository
	provider llm.Provider
	cfg      Config
	logger   *zerolog.Logger
	now      func() time.Time
}

// NewWorker creates a queue worker.
func NewWorker(repo Repository, provider llm.Provider, cfg Config, logger *zerolog.Logger) *Worker {
	if logger == nil {
		nopLogger := zerolog.Nop()
		logger = &nopLogger
	}

	return &Worker{
		repo:     repo,
		provider: provider,
		cfg:      cfg.withDefaults(),
		logger:   logger,
		now:      time.Now,
	}
}

// Process claims item and, if the claim wins, analyzes and stores the
// result. It never returns with the item left in processing unless the
// terminal write itself failed; the recovery sweep handles that case.
func (w *Worker) Process(ctx context.Context, item domain.QueueItem) Result {
	log := w.logger.With().Str(logFieldQueueID, item.ID).Str(logFieldMsgID, item.MsgID).Logger()

	claimed, err := w.repo.ClaimQueueItem(ctx, item.ID)
	if err != nil {
		log.Error().Err(err).Msg("failed to claim queue item")
		w.record(OutcomeSkipped, domain.ErrorKindNone)

		return Result{Outcome: OutcomeSkipped, Err: fmt.Errorf("claim %s: %w", item.ID, err)}
	}

	if !claimed {
		log.Debug().Msg("queue item already claimed")
		w.record(OutcomeSkipped, domain.ErrorKindNone)

		return Result{Outcome: OutcomeSkipped}
	}

	err = worker.Safe(func() error {
		return w.analyze(ctx, item, &log)
	})
	if err != nil {
		return w.fail(ctx, item, err, &log)
	}

	if err := w.terminalWrite(ctx, func(wctx context.Context) error {
		return w.repo.CompleteQueueItem(wctx, item.ID)
	}); err != nil {
		return w.fail(ctx, item, fmt.Errorf("%w: complete queue item: %w", coreerrors.ErrPersistence, err), &log)
	}

	observability.QueueItemAgeSeconds.Observe(w.now().Sub(item.CreatedAt).Seconds())
	w.record(OutcomeCompleted, domain.ErrorKindNone)
	log.Info().Msg("queue item completed")

	return Result{Outcome: OutcomeCompleted}
}

func (w *Worker) analyze(ctx context.Context, item domain.QueueItem, log *zerolog.Logger) error {
	pc, err := w.repo.GetPromptContext(ctx, item.MsgID)
	if err != nil {
		if errors.Is(err, coreerrors.ErrPromptDataNotFound) {
			return err
		}

		return fmt.Errorf("%w: load prompt context: %w", coreerrors.ErrPersistence, err)
	}

	userPayload, err := BuildUserPayload(pc)
	if err != nil {
		return err
	}

	var raw string

	err = worker.RunWithTimeout(ctx, w.cfg.LLMTimeout, func(llmCtx context.Context) error {
		var cerr error
		raw, cerr = w.provider.Complete(llmCtx, SystemPrompt(), userPayload)

		return cerr
	})
	if err != nil {
		return fmt.Errorf("%w: %s: %w", coreerrors.ErrProvider, w.provider.Name(), err)
	}

	analysis, err := ParseAnalysis(raw, pc)
	if err != nil {
		log.Warn().Err(err).Str("raw_response", truncate(raw, w.cfg.RawLogLimit)).Msg("malformed model response")
		return err
	}

	analysis.Provider = string(w.provider.Name())
	analysis.Model = w.provider.Model()

	if err := w.repo.UpsertAnalysis(ctx, analysis.AnalysisResult); err != nil {
		return fmt.Errorf("%w: upsert analysis: %w", coreerrors.ErrPersistence, err)
	}

	if analysis.Sentiment != domain.SentimentUnknown && w.provider.Name() != llm.ProviderMock {
		if err := w.repo.UpdateFeedbackSentiment(ctx, item.MsgID, analysis.Sentiment, analysis.Polarity); err != nil {
			log.Warn().Err(err).Msg("failed to update feedback sentiment")
		}
	}

	return nil
}

func (w *Worker) fail(ctx context.Context, item domain.QueueItem, cause error, log *zerolog.Logger) Result {
	kind := Classify(cause)

	var panicErr *worker.PanicError
	if errors.As(cause, &panicErr) {
		log.Error().Interface("panic", panicErr.Value).Bytes("stack", panicErr.Stack).Msg("panic while processing queue item")
	}

	if err := w.terminalWrite(ctx, func(wctx context.Context) error {
		return w.repo.FailQueueItem(wctx, item.ID, kind, cause.Error())
	}); err != nil {
		log.Error().Err(err).Msg("failed to record queue item failure")
	}

	w.record(OutcomeFailed, kind)
	log.Warn().Err(cause).Str(logFieldErrorKind, string(kind)).Msg("queue item failed")

	return Result{Outcome: OutcomeFailed, Kind: kind, Err: cause}
}

// terminalWrite runs fn on a context that survives the item deadline.
func (w *Worker) terminalWrite(ctx context.Context, fn func(ctx context.Context) error) error {
	return worker.RunWithTimeout(context.WithoutCancel(ctx), terminalWriteTimeout, fn)
}

func (w *Worker) record(outcome Outcome, kind domain.ErrorKind) {
	observability.QueueItemsProcessed.WithLabelValues(string(outcome), string(kind)).Inc()
}

// Classify maps an error to the queue error kind it is recorded under.
func Classify(err error) domain.ErrorKind {
	var panicErr *worker.PanicError

	switch {
	case err == nil:
		return domain.ErrorKindNone
	case errors.As(err, &panicErr):
		return domain.ErrorKindInternal
	case errors.Is(err, coreerrors.ErrPromptDataNotFound):
		return domain.ErrorKindPromptDataNotFound
	case errors.Is(err, coreerrors.ErrProvider):
		return domain.ErrorKindProvider
	case errors.Is(err, coreerrors.ErrMalformedLLMOutput):
		return domain.ErrorKindMalformedOutput
	case errors.Is(err, coreerrors.ErrPersistence):
		return domain.ErrorKindPersistence
	default:
		return domain.ErrorKindInternal
	}
}

func truncate(s string, limit int) string {
	if limit <= 0 || len(s) <= limit {
		return s
	}

	cut := limit
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}

	return s[:cut] + "..."
}
