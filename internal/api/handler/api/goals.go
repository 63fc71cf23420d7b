package api

import (
	"net/http"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/newthinker/backtrack/internal/api/response"
	"github.com/newthinker/backtrack/internal/core"
	"github.com/newthinker/backtrack/internal/goal"
	"github.com/newthinker/backtrack/internal/models"
)

// GoalHandler exposes goal CRUD and the recompute operations.
type GoalHandler struct {
	svc    *goal.Service
	logger *zap.Logger
}

// NewGoalHandler creates a goal handler.
func NewGoalHandler(svc *goal.Service, logger *zap.Logger) *GoalHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &GoalHandler{svc: svc, logger: logger}
}

// GoalView is a goal plus its derived progress percentage.
type GoalView struct {
	models.Goal
	ProgressPct float64 `json:"progress_pct"`
}

func viewGoal(g *models.Goal) GoalView {
	return GoalView{Goal: *g, ProgressPct: g.ProgressPct()}
}

func (h *GoalHandler) List(w http.ResponseWriter, r *http.Request) {
	goals, err := h.svc.List(r.Context(), optional[models.GoalStatus](r, "status"))
	if err != nil {
		response.Fail(w, err)
		return
	}
	systemID := r.URL.Query().Get("trading_system_id")
	views := make([]GoalView, 0, len(goals))
	for i := range goals {
		if systemID != "" && (goals[i].TradingSystemID == nil || *goals[i].TradingSystemID != systemID) {
			continue
		}
		views = append(views, viewGoal(&goals[i]))
	}
	response.JSON(w, http.StatusOK, views)
}

func (h *GoalHandler) Create(w http.ResponseWriter, r *http.Request) {
	var in goal.CreateInput
	if err := decodeJSON(w, r, &in); err != nil {
		response.Fail(w, err)
		return
	}
	g, err := h.svc.Create(r.Context(), in)
	if err != nil {
		response.Fail(w, err)
		return
	}
	response.JSON(w, http.StatusCreated, viewGoal(g))
}

func (h *GoalHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		response.Fail(w, err)
		return
	}
	g, err := h.svc.Get(r.Context(), id)
	if err != nil {
		response.Fail(w, err)
		return
	}
	response.JSON(w, http.StatusOK, viewGoal(g))
}

func (h *GoalHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		response.Fail(w, err)
		return
	}
	var in goal.UpdateInput
	if err := decodeJSON(w, r, &in); err != nil {
		response.Fail(w, err)
		return
	}
	g, err := h.svc.Update(r.Context(), id, in)
	if err != nil {
		response.Fail(w, err)
		return
	}
	response.JSON(w, http.StatusOK, viewGoal(g))
}

func (h *GoalHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		response.Fail(w, err)
		return
	}
	if err := h.svc.Delete(r.Context(), id); err != nil {
		response.Fail(w, err)
		return
	}
	response.JSON(w, http.StatusOK, deleted(id))
}

// progressRequest sets a goal's current value by hand.
type progressRequest struct {
	CurrentValue *decimal.Decimal `json:"current_value"`
}

// SetProgress stores a caller-supplied current value; status is derived.
func (h *GoalHandler) SetProgress(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		response.Fail(w, err)
		return
	}
	var req progressRequest
	if err := decodeJSON(w, r, &req); err != nil {
		response.Fail(w, err)
		return
	}
	if req.CurrentValue == nil {
		response.Fail(w, core.Invalid("current_value is required"))
		return
	}
	g, err := h.svc.UpdateProgress(r.Context(), id, *req.CurrentValue)
	if err != nil {
		response.Fail(w, err)
		return
	}
	response.JSON(w, http.StatusOK, viewGoal(g))
}

// Recompute reselects one goal's backtests and stores the new value.
func (h *GoalHandler) Recompute(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		response.Fail(w, err)
		return
	}
	g, err := h.svc.Recompute(r.Context(), id)
	if err != nil {
		h.logger.Warn("goal recompute failed", zap.String("goal_id", id), zap.Error(err))
		response.Fail(w, err)
		return
	}
	response.JSON(w, http.StatusOK, viewGoal(g))
}

// Refresh recomputes every in_progress goal and returns the sweep report.
func (h *GoalHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	report, err := h.svc.RefreshAll(r.Context())
	if err != nil {
		response.Fail(w, err)
		return
	}
	response.JSON(w, http.StatusOK, report)
}
