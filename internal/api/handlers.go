package api

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/lueurxax/feedback-triage/internal/core/domain"
	coreerrors "github.com/lueurxax/feedback-triage/internal/core/errors"
	"github.com/lueurxax/feedback-triage/internal/ingest"
	"github.com/lueurxax/feedback-triage/internal/process/prioritize"
)

// Triage states reported by the analysis endpoint.
const (
	stateCompleted     = "completed"
	statePendingTriage = "pending_triage"
	stateFailed        = "failed"
	stateNotQueued     = "not_queued"
)

type errorResponse struct {
	Error string `json:"error"`
}

type statusRequest struct {
	Status string `json:"status" binding:"required"`
}

type ingestRequest struct {
	Items []ingest.RawFeedback `json:"items" binding:"required"`
}

type triageResponse struct {
	ID        string                 `json:"id"`
	State     string                 `json:"state"`
	Analysis  *domain.AnalysisResult `json:"analysis,omitempty"`
	QueueItem *domain.QueueItem      `json:"queue_item,omitempty"`
	ErrorKind domain.ErrorKind       `json:"error_kind,omitempty"`
	Error     string                 `json:"error,omitempty"`
}

func (h *handler) listPrioritized(c *gin.Context) {
	filter, err := parseFilter(c, true)
	if err != nil {
		h.respondError(c, err)
		return
	}

	items, err := h.deps.Prioritizer.ListPrioritized(c.Request.Context(), filter)
	if err != nil {
		h.respondError(c, err)
		return
	}

	if items == nil {
		items = []prioritize.ScoredFeedback{}
	}

	c.JSON(http.StatusOK, gin.H{"items": items})
}

func (h *handler) prioritizedStats(c *gin.Context) {
	filter, err := parseFilter(c, false)
	if err != nil {
		h.respondError(c, err)
		return
	}

	stats, err := h.deps.Prioritizer.Stats(c.Request.Context(), filter)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, stats)
}

func (h *handler) closeFeedback(c *gin.Context) {
	res, err := h.deps.Kanban.Close(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, res)
}

func (h *handler) reopenFeedback(c *gin.Context) {
	res, err := h.deps.Kanban.Reopen(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, res)
}

func (h *handler) setStatus(c *gin.Context) {
	var req statusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.respondError(c, fmt.Errorf("%w: %s", coreerrors.ErrInvalidInput, err.Error()))
		return
	}

	to, ok := domain.ParseKanbanStatus(req.Status)
	if !ok {
		h.respondError(c, fmt.Errorf("%w: %q", coreerrors.ErrInvalidStatus, req.Status))
		return
	}

	res, err := h.deps.Kanban.Transition(c.Request.Context(), c.Param("id"), to)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, res)
}

func (h *handler) statusHistory(c *gin.Context) {
	events, err := h.deps.Kanban.History(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.respondError(c, err)
		return
	}

	if events == nil {
		events = []domain.StatusEvent{}
	}

	c.JSON(http.StatusOK, gin.H{"items": events})
}

func (h *handler) ingestFeedback(c *gin.Context) {
	var req ingestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.respondError(c, fmt.Errorf("%w: %s", coreerrors.ErrInvalidInput, err.Error()))
		return
	}

	if len(req.Items) > maxIngestBatch {
		h.respondError(c, fmt.Errorf("%w: batch exceeds %d items", coreerrors.ErrInvalidInput, maxIngestBatch))
		return
	}

	report, err := h.deps.Ingest.Ingest(c.Request.Context(), req.Items)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, report)
}

func (h *handler) feedbackAnalysis(c *gin.Context) {
	ctx := c.Request.Context()
	id := c.Param("id")

	if _, err := h.deps.Triage.GetFeedback(ctx, id); err != nil {
		h.respondError(c, err)
		return
	}

	resp := triageResponse{ID: id}

	analysis, err := h.deps.Triage.GetAnalysis(ctx, id)

	switch {
	case err == nil:
		resp.State = stateCompleted
		resp.Analysis = analysis
		c.JSON(http.StatusOK, resp)

		return
	case !errors.Is(err, coreerrors.ErrAnalysisNotFound):
		h.respondError(c, err)
		return
	}

	item, err := h.deps.Triage.GetLatestQueueItem(ctx, id)
	if err != nil {
		h.respondError(c, err)
		return
	}

	resp.QueueItem = item

	switch {
	case item == nil:
		resp.State = stateNotQueued
	case item.Status == domain.QueueStatusFailed:
		resp.State = stateFailed
		resp.ErrorKind = item.ErrorKind
		resp.Error = item.ErrorMessage
	default:
		resp.State = statePendingTriage
	}

	c.JSON(http.StatusOK, resp)
}

func (h *handler) purgeFeedback(c *gin.Context) {
	id := c.Param("id")

	if err := h.deps.Purger.PurgeFeedback(c.Request.Context(), id); err != nil {
		h.respondError(c, err)
		return
	}

	h.logger.Info().Str("feedback_id", id).Msg("feedback purged")
	c.Status(http.StatusNoContent)
}

func (h *handler) queueStats(c *gin.Context) {
	stats, err := h.deps.Queue.Stats(c.Request.Context())
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, stats)
}

func (h *handler) recoverQueue(c *gin.Context) {
	n, err := h.deps.Queue.RecoverStuck(c.Request.Context())
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"recovered": n})
}

func (h *handler) requeue(c *gin.Context) {
	id := c.Param("id")

	if err := h.deps.Queue.Requeue(c.Request.Context(), id); err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"id": id, "status": domain.QueueStatusPending})
}

func parseFilter(c *gin.Context, withLimit bool) (prioritize.Filter, error) {
	var f prioritize.Filter

	if raw := c.Query("source"); raw != "" {
		src, ok := domain.ParseSource(raw)
		if !ok {
			return f, fmt.Errorf("%w: unknown source %q", coreerrors.ErrInvalidInput, raw)
		}

		f.Source = src
	}

	if raw := c.Query("status"); raw != "" {
		st, ok := domain.ParseKanbanStatus(raw)
		if !ok {
			return f, fmt.Errorf("%w: %q", coreerrors.ErrInvalidStatus, raw)
		}

		f.Status = st
	}

	if raw := c.Query("limit"); withLimit && raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 0 {
			return f, fmt.Errorf("%w: limit must be a non-negative integer", coreerrors.ErrInvalidInput)
		}

		f.Limit = limit
	}

	return f, nil
}

func (h *handler) respondError(c *gin.Context, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		h.logger.Error().Err(err).Str("path", c.Request.URL.Path).Msg("request failed")
	}

	c.AbortWithStatusJSON(status, errorResponse{Error: err.Error()})
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, coreerrors.ErrInvalidInput),
		errors.Is(err, coreerrors.ErrInvalidStatus),
		errors.Is(err, coreerrors.ErrInvalidID):
		return http.StatusBadRequest
	case errors.Is(err, coreerrors.ErrFeedbackNotFound),
		errors.Is(err, coreerrors.ErrQueueItemNotFound),
		errors.Is(err, coreerrors.ErrAnalysisNotFound):
		return http.StatusNotFound
	case errors.Is(err, coreerrors.ErrStatusConflict),
		errors.Is(err, coreerrors.ErrNotRequeueable):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}
