// Package api exposes the prioritized worklist, Kanban actions, ingestion
// and queue operations over HTTP.
package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/lueurxax/feedback-triage/internal/core/domain"
	"github.com/lueurxax/feedback-triage/internal/ingest"
	"github.com/lueurxax/feedback-triage/internal/process/kanban"
	"github.com/lueurxax/feedback-triage/internal/process/prioritize"
)

const (
	shutdownTimeout   = 5 * time.Second
	readHeaderTimeout = 10 * time.Second
	corsMaxAge        = 12 * time.Hour
	maxIngestBatch    = 500
)

// Prioritizer ranks feedback.
type Prioritizer interface {
	ListPrioritized(ctx context.Context, f prioritize.Filter) ([]prioritize.ScoredFeedback, error)
	Stats(ctx context.Context, f prioritize.Filter) (prioritize.Stats, error)
}

// StatusChanger applies Kanban transitions.
type StatusChanger interface {
	Close(ctx context.Context, id string) (kanban.Result, error)
	Reopen(ctx context.Context, id string) (kanban.Result, error)
	Transition(ctx context.Context, id string, to domain.KanbanStatus) (kanban.Result, error)
	History(ctx context.Context, id string) ([]domain.StatusEvent, error)
}

// Ingester stores incoming feedback batches.
type Ingester interface {
	Ingest(ctx context.Context, batch []ingest.RawFeedback) (ingest.Report, error)
}

// QueueOperator exposes manual queue maintenance.
type QueueOperator interface {
	Requeue(ctx context.Context, id string) error
	RecoverStuck(ctx context.Context) (int64, error)
	Stats(ctx context.Context) (domain.QueueStats, error)
}

// TriageReader reads a record's triage state.
type TriageReader interface {
	GetFeedback(ctx context.Context, id string) (*domain.FeedbackRecord, error)
	GetAnalysis(ctx context.Context, msgID string) (*domain.AnalysisResult, error)
	GetLatestQueueItem(ctx context.Context, msgID string) (*domain.QueueItem, error)
}

// Purger deletes a record and everything derived from it.
type Purger interface {
	PurgeFeedback(ctx context.Context, id string) error
}

// Deps are the services behind the routes.
type Deps struct {
	Prioritizer Prioritizer
	Kanban      StatusChanger
	Ingest      Ingester
	Queue       QueueOperator
	Triage      TriageReader
	Purger      Purger
}

// Options tune the router.
type Options struct {
	AllowedOrigins []string
}

type handler struct {
	deps   Deps
	logger *zerolog.Logger
}

// NewRouter builds the gin engine serving the API.
func NewRouter(deps Deps, opts Options, logger *zerolog.Logger) *gin.Engine {
	if logger == nil {
		nopLogger := zerolog.Nop()
		logger = &nopLogger
	}

	h := &handler{deps: deps, logger: logger}

	r := gin.New()
	r.Use(gin.Recovery(), requestLogger(logger), cors.New(corsConfig(opts.AllowedOrigins)))

	g := r.Group("/api")
	g.GET("/prioritized-feedback", h.listPrioritized)
	g.GET("/prioritized-feedback/stats", h.prioritizedStats)

	g.POST("/feedback", h.ingestFeedback)
	g.POST("/feedback/:id/close", h.closeFeedback)
	g.POST("/feedback/:id/reopen", h.reopenFeedback)
	g.POST("/feedback/:id/status", h.setStatus)
	g.GET("/feedback/:id/history", h.statusHistory)
	g.GET("/feedback/:id/analysis", h.feedbackAnalysis)
	g.DELETE("/feedback/:id", h.purgeFeedback)

	g.GET("/queue/stats", h.queueStats)
	g.POST("/queue/recover", h.recoverQueue)
	g.POST("/queue/:id/requeue", h.requeue)

	return r
}

func corsConfig(origins []string) cors.Config {
	cfg := cors.Config{
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
		AllowHeaders: []string{"Origin", "Content-Type", "Authorization"},
		MaxAge:       corsMaxAge,
	}

	if len(origins) == 0 || (len(origins) == 1 && origins[0] == "*") {
		cfg.AllowAllOrigins = true
	} else {
		cfg.AllowOrigins = origins
	}

	return cfg
}

// Server runs the API router until its context ends.
type Server struct {
	handler http.Handler
	port    int
	logger  *zerolog.Logger
}

func NewServer(handler http.Handler, port int, logger *zerolog.Logger) *Server {
	return &Server{
		handler: handler,
		port:    port,
		logger:  logger,
	}
}

func (s *Server) Start(ctx context.Context) error {
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", s.port),
		Handler:           s.handler,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	go func() {
		<-ctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)

		defer cancel()

		//nolint:errcheck,contextcheck // shutdown in signal handler is best-effort
		_ = srv.Shutdown(shutdownCtx)
	}()

	s.logger.Info().Int("port", s.port).Msg("API server starting")

	if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("api server error: %w", err)
	}

	return nil
}
