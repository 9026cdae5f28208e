package triage

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/lueurxax/feedback-triage/internal/core/domain"
	"github.com/lueurxax/feedback-triage/internal/platform/observability"
	"github.com/lueurxax/feedback-triage/internal/platform/worker"
)

const (
	defaultBatchSize        = 10
	defaultConcurrency      = 1
	defaultInterval         = 30 * time.Second
	defaultItemTimeout      = 60 * time.Second
	defaultLLMTimeout       = 30 * time.Second
	defaultStaleAfter       = 10 * time.Minute
	defaultRecoverySchedule = "@every 1m"
	defaultRawLogLimit      = 2000
)

// Config tunes the queue processor and worker.
type Config struct {
	Interval         time.Duration
	BatchSize        int
	Concurrency      int
	StaleAfter       time.Duration
	RecoverySchedule string
	RawLogLimit      int

	// ItemTimeout and LLMTimeout cancel the context; they bound only work
	// that honors ctx.
	ItemTimeout time.Duration
	LLMTimeout  time.Duration
}

func (c Config) withDefaults() Config {
	if c.Interval <= 0 {
		c.Interval = defaultInterval
	}

	if c.BatchSize <= 0 {
		c.BatchSize = defaultBatchSize
	}

	if c.Concurrency <= 0 {
		c.Concurrency = defaultConcurrency
	}

	if c.ItemTimeout <= 0 {
		c.ItemTimeout = defaultItemTimeout
	}

	if c.LLMTimeout <= 0 {
		c.LLMTimeout = defaultLLMTimeout
	}

	if c.StaleAfter <= 0 {
		c.StaleAfter = defaultStaleAfter
	}

	if c.RecoverySchedule == "" {
		c.RecoverySchedule = defaultRecoverySchedule
	}

	if c.RawLogLimit <= 0 {
		c.RawLogLimit = defaultRawLogLimit
	}

	return c
}

// RunReport aggregates one processor run.
type RunReport struct {
	Completed int     `json:"completed"`
	Failed    int     `json:"failed"`
	Skipped   int     `json:"skipped"`
	Errors    []error `json:"-"`
}

// Processor drains the analysis queue in bounded batches.
type Processor struct {
	repo   Repository
	worker *Worker
	cfg    Config
	logger *zerolog.Logger
	now    func() time.Time
}

// NewProcessor creates a processor running w over repo's pending items.
func NewProcessor(repo Repository, w *Worker, cfg Config, logger *zerolog.Logger) *Processor {
	if logger == nil {
		nopLogger := zerolog.Nop()
		logger = &nopLogger
	}

	return &Processor{
		repo:   repo,
		worker: w,
		cfg:    cfg.withDefaults(),
		logger: logger,
		now:    time.Now,
	}
}

// RunOnce processes up to BatchSize pending items, oldest first, with at
// most Concurrency items in flight. A failing item never aborts the batch.
func (p *Processor) RunOnce(ctx context.Context) RunReport {
	start := time.Now()
	defer func() {
		observability.QueueRunDurationSeconds.Observe(time.Since(start).Seconds())
	}()

	var report RunReport

	items, err := p.repo.ListPendingQueueItems(ctx, p.cfg.BatchSize)
	if err != nil {
		report.Errors = append(report.Errors, fmt.Errorf("list pending queue items: %w", err))
		p.logger.Error().Err(err).Msg("failed to list pending queue items")

		return report
	}

	var (
		mu sync.Mutex
		g  errgroup.Group
	)

	g.SetLimit(p.cfg.Concurrency)

	for _, item := range items {
		if ctx.Err() != nil {
			break
		}

		g.Go(func() error {
			var res Result

			_ = worker.RunWithTimeout(ctx, p.cfg.ItemTimeout, func(itemCtx context.Context) error { //nolint:errcheck // Process reports through Result
				res = p.worker.Process(itemCtx, item)
				return nil
			})

			mu.Lock()
			defer mu.Unlock()

			report.add(res)

			return nil
		})
	}

	_ = g.Wait() //nolint:errcheck // goroutines never return errors

	p.refreshDepth(ctx)

	if len(items) > 0 {
		p.logger.Info().
			Int("completed", report.Completed).
			Int("failed", report.Failed).
			Int("skipped", report.Skipped).
			Msg("queue run finished")
	}

	return report
}

func (r *RunReport) add(res Result) {
	switch res.Outcome {
	case OutcomeCompleted:
		r.Completed++
	case OutcomeFailed:
		r.Failed++
	default:
		r.Skipped++
	}

	if res.Err != nil {
		r.Errors = append(r.Errors, res.Err)
	}
}

// Run drives RunOnce every Interval until ctx is canceled.
func (p *Processor) Run(ctx context.Context) error {
	return worker.SingleTickerLoop(ctx, worker.SingleTickerConfig{
		Name:       "triage-queue",
		Interval:   p.cfg.Interval,
		RunOnStart: true,
		Logger:     p.logger,
		OnTick: func(ctx context.Context) {
			p.RunOnce(ctx)
		},
	})
}

// RunRecovery runs RecoverStuck on the configured cron schedule until ctx is canceled.
func (p *Processor) RunRecovery(ctx context.Context) error {
	return worker.RunCron(ctx, p.logger, worker.CronJob{
		Name:     "triage-recovery",
		Schedule: p.cfg.RecoverySchedule,
		Run: func(ctx context.Context) {
			if _, err := p.RecoverStuck(ctx); err != nil {
				p.logger.Error().Err(err).Msg("stuck queue recovery failed")
			}
		},
	})
}

// RecoverStuck returns items stuck in processing for longer than StaleAfter
// to pending.
func (p *Processor) RecoverStuck(ctx context.Context) (int64, error) {
	n, err := p.repo.RecoverStuckQueueItems(ctx, p.now().Add(-p.cfg.StaleAfter))
	if err != nil {
		return 0, fmt.Errorf("recover stuck queue items: %w", err)
	}

	if n > 0 {
		observability.QueueRecovered.Add(float64(n))
		p.logger.Warn().Int64("count", n).Msg("recovered stuck queue items")
	}

	return n, nil
}

// Requeue moves a failed item back to pending.
func (p *Processor) Requeue(ctx context.Context, id string) error {
	if err := p.repo.RequeueFailedQueueItem(ctx, id); err != nil {
		return fmt.Errorf("requeue %s: %w", id, err)
	}

	p.logger.Info().Str(logFieldQueueID, id).Msg("queue item requeued")

	return nil
}

// Stats returns queue counts by status.
func (p *Processor) Stats(ctx context.Context) (domain.QueueStats, error) {
	stats, err := p.repo.GetQueueStats(ctx)
	if err != nil {
		return domain.QueueStats{}, fmt.Errorf("queue stats: %w", err)
	}

	return stats, nil
}

func (p *Processor) refreshDepth(ctx context.Context) {
	stats, err := p.Stats(ctx)
	if err != nil {
		p.logger.Debug().Err(err).Msg("failed to refresh queue depth")
		return
	}

	observability.QueueDepth.WithLabelValues(string(domain.QueueStatusPending)).Set(float64(stats.Pending))
	observability.QueueDepth.WithLabelValues(string(domain.QueueStatusProcessing)).Set(float64(stats.Processing))
	observability.QueueDepth.WithLabelValues(string(domain.QueueStatusCompleted)).Set(float64(stats.Completed))
	observability.QueueDepth.WithLabelValues(string(domain.QueueStatusFailed)).Set(float64(stats.Failed))
}
