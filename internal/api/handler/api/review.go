package api

import (
	"context"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/newthinker/backtrack/internal/api/job"
	"github.com/newthinker/backtrack/internal/api/response"
	"github.com/newthinker/backtrack/internal/core"
	"github.com/newthinker/backtrack/internal/metrics"
	"github.com/newthinker/backtrack/internal/models"
	"github.com/newthinker/backtrack/internal/review"
)

const (
	reviewJobType = "review"
	reviewTimeout = 3 * time.Minute
)

// BacktestGetter loads one backtest with its trading system.
type BacktestGetter interface {
	GetBacktest(ctx context.Context, id string) (*models.Backtest, error)
}

// ReviewHandler runs LLM backtest reviews as async jobs.
type ReviewHandler struct {
	jobs      *job.Store
	reviewer  *review.Reviewer
	backtests BacktestGetter
	metrics   *metrics.Registry
	logger    *zap.Logger
	timeout   time.Duration
}

// NewReviewHandler creates a review handler. A nil reviewer answers every
// review request with LLM_DISABLED.
func NewReviewHandler(jobs *job.Store, reviewer *review.Reviewer, backtests BacktestGetter, logger *zap.Logger) *ReviewHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ReviewHandler{
		jobs:      jobs,
		reviewer:  reviewer,
		backtests: backtests,
		logger:    logger,
		timeout:   reviewTimeout,
	}
}

func (h *ReviewHandler) SetMetrics(m *metrics.Registry) {
	h.metrics = m
}

// Start handles POST /api/v1/backtests/{id}/review.
func (h *ReviewHandler) Start(w http.ResponseWriter, r *http.Request) {
	if h.reviewer == nil {
		response.Fail(w, core.ErrLLMDisabled)
		return
	}
	id, err := pathID(r)
	if err != nil {
		response.Fail(w, err)
		return
	}
	bt, err := h.backtests.GetBacktest(r.Context(), id)
	if err != nil {
		response.Fail(w, err)
		return
	}

	h.jobs.Cleanup()
	j := h.jobs.Create(reviewJobType, bt.ID)
	h.metrics.SetJobsActive(reviewJobType, h.jobs.Active(reviewJobType))

	go h.run(j.ID, bt)

	response.JSON(w, http.StatusAccepted, map[string]any{
		"job_id":      j.ID,
		"status":      j.Status,
		"backtest_id": bt.ID,
		"provider":    h.reviewer.Provider(),
	})
}

func (h *ReviewHandler) run(jobID string, bt *models.Backtest) {
	_ = h.jobs.Update(jobID, func(j *job.Job) {
		j.Status = job.StatusRunning
		j.Progress = 10
	})

	ctx, cancel := context.WithTimeout(context.Background(), h.timeout)
	defer cancel()

	result, err := h.reviewer.Review(ctx, bt)
	if err != nil {
		h.logger.Warn("backtest review failed",
			zap.String("job_id", jobID),
			zap.String("backtest_id", bt.ID),
			zap.Error(err))
		_ = h.jobs.Update(jobID, func(j *job.Job) { j.Fail(err) })
		h.metrics.RecordReview(string(job.StatusFailed))
	} else {
		_ = h.jobs.Update(jobID, func(j *job.Job) { j.Complete(result) })
		h.metrics.RecordReview(string(job.StatusComplete))
	}
	h.metrics.SetJobsActive(reviewJobType, h.jobs.Active(reviewJobType))
}

// Job handles GET /api/v1/jobs/{id}.
func (h *ReviewHandler) Job(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		response.Fail(w, err)
		return
	}
	j, err := h.jobs.Get(id)
	if err != nil {
		response.Fail(w, err)
		return
	}
	response.JSON(w, http.StatusOK, j)
}

// Jobs handles GET /api/v1/jobs.
func (h *ReviewHandler) Jobs(w http.ResponseWriter, r *http.Request) {
	response.JSON(w, http.StatusOK, h.jobs.List())
}
