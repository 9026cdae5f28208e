// Package app wires configuration, storage and services together and runs
// the service in one of its modes:
//
//   - api: HTTP API for the support worklist and Kanban actions
//   - worker: triage queue processor and stuck-item recovery
//   - all: both in one process
package app

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/lueurxax/feedback-triage/internal/api"
	"github.com/lueurxax/feedback-triage/internal/core/llm"
	"github.com/lueurxax/feedback-triage/internal/core/ports"
	"github.com/lueurxax/feedback-triage/internal/core/scoring"
	"github.com/lueurxax/feedback-triage/internal/ingest"
	"github.com/lueurxax/feedback-triage/internal/platform/config"
	"github.com/lueurxax/feedback-triage/internal/platform/observability"
	"github.com/lueurxax/feedback-triage/internal/process/kanban"
	"github.com/lueurxax/feedback-triage/internal/process/prioritize"
	"github.com/lueurxax/feedback-triage/internal/process/triage"
)

const (
	logFieldProvider = "provider"
	logFieldModel    = "model"
)

// App holds the application dependencies and provides methods to run different modes.
type App struct {
	cfg         *config.Config
	database    ports.Store
	logger      *zerolog.Logger
	newProvider func(cfg config.LLMConfig, logger *zerolog.Logger) (llm.Provider, error)
}

// New creates a new App instance with the given dependencies.
func New(cfg *config.Config, database ports.Store, logger *zerolog.Logger) *App {
	if logger == nil {
		nopLogger := zerolog.Nop()
		logger = &nopLogger
	}

	return &App{
		cfg:         cfg,
		database:    database,
		logger:      logger,
		newProvider: llm.New,
	}
}

// StartHealthServer starts the health check and metrics server.
func (a *App) StartHealthServer(ctx context.Context) error {
	srv := observability.NewServer(a.database, a.cfg.HTTP.HealthPort, a.logger)

	if err := srv.Start(ctx); err != nil {
		return fmt.Errorf("health server start: %w", err)
	}

	return nil
}

// RunAPI serves the HTTP API until ctx is done.
func (a *App) RunAPI(ctx context.Context) error {
	processor, err := a.newProcessor()
	if err != nil {
		return err
	}

	return a.runAPI(ctx, processor)
}

func (a *App) runAPI(ctx context.Context, processor *triage.Processor) error {
	router := api.NewRouter(api.Deps{
		Prioritizer: prioritize.NewService(a.database, scoring.New(a.cfg.ScoringConfig())),
		Kanban:      kanban.NewService(a.database, a.logger),
		Ingest:      ingest.NewService(a.database, a.logger),
		Queue:       processor,
		Triage:      a.database,
		Purger:      a.database,
	}, api.Options{AllowedOrigins: a.cfg.HTTP.CORSAllowedOrigins}, a.logger)

	if err := api.NewServer(router, a.cfg.HTTP.APIPort, a.logger).Start(ctx); err != nil {
		return fmt.Errorf("api server: %w", err)
	}

	return nil
}

// RunWorker drains the triage queue on an interval and sweeps stuck items on
// the recovery schedule. With once set it processes a single batch and returns.
func (a *App) RunWorker(ctx context.Context, once bool) error {
	processor, err := a.newProcessor()
	if err != nil {
		return err
	}

	return a.runWorker(ctx, processor, once)
}

func (a *App) runWorker(ctx context.Context, processor *triage.Processor, once bool) error {
	if once {
		if _, err := processor.RecoverStuck(ctx); err != nil {
			a.logger.Warn().Err(err).Msg("stuck item recovery failed")
		}

		report := processor.RunOnce(ctx)
		a.logger.Info().
			Int("completed", report.Completed).
			Int("failed", report.Failed).
			Int("skipped", report.Skipped).
			Msg("single queue run finished")

		return nil
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return processor.Run(gctx) })
	g.Go(func() error { return processor.RunRecovery(gctx) })

	if err := g.Wait(); err != nil {
		return fmt.Errorf("worker: %w", err)
	}

	return nil
}

// RunAll runs the API and the worker in one process. Both share one
// processor, so the LLM rate limit and circuit breaker are process-wide.
func (a *App) RunAll(ctx context.Context) error {
	processor, err := a.newProcessor()
	if err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return a.runAPI(gctx, processor) })
	g.Go(func() error { return a.runWorker(gctx, processor, false) })

	if err := g.Wait(); err != nil {
		return fmt.Errorf("run all: %w", err)
	}

	return nil
}

func (a *App) newProcessor() (*triage.Processor, error) {
	provider, err := a.newProvider(a.cfg.LLM, a.logger)
	if err != nil {
		return nil, fmt.Errorf("llm provider init: %w", err)
	}

	a.logger.Info().
		Str(logFieldProvider, string(provider.Name())).
		Str(logFieldModel, provider.Model()).
		Msg("LLM provider configured")

	cfg := a.triageConfig()
	worker := triage.NewWorker(a.database, provider, cfg, a.logger)

	return triage.NewProcessor(a.database, worker, cfg, a.logger), nil
}

func (a *App) triageConfig() triage.Config {
	q := a.cfg.Queue

	return triage.Config{
		Interval:         q.Interval,
		BatchSize:        q.BatchSize,
		Concurrency:      q.Concurrency,
		ItemTimeout:      q.ItemTimeout,
		LLMTimeout:       a.cfg.LLM.Timeout,
		StaleAfter:       q.StaleAfter,
		RecoverySchedule: q.RecoverySchedule,
		RawLogLimit:      q.RawLogLimit,
	}
}
