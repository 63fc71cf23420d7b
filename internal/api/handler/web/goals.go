package web

import (
	"fmt"
	"net/http"

	"github.com/newthinker/backtrack/internal/goal"
	"github.com/newthinker/backtrack/internal/models"
)

type GoalsData struct {
	Page
	Goals   []models.Goal
	Systems []models.TradingSystem
	Filter  string
}

// Goals renders goals with their progress bars and the create form.
func (h *Handler) Goals(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	filter := r.URL.Query().Get("status")
	var status *models.GoalStatus
	if s := models.GoalStatus(filter); s.Valid() {
		status = &s
	}
	goals, err := h.goals.List(ctx, status)
	if err != nil {
		h.serverError(w, err)
		return
	}
	systems, err := h.journal.ListSystems(ctx, nil)
	if err != nil {
		h.serverError(w, err)
		return
	}
	h.render(w, "goals.html", GoalsData{
		Page:    newPage(r, "Goals", "goals"),
		Goals:   goals,
		Systems: systems,
		Filter:  filter,
	})
}

// CreateGoal handles the new-goal form.
func (h *Handler) CreateGoal(w http.ResponseWriter, r *http.Request) {
	f, err := parseForm(r)
	if err != nil {
		redirect(w, r, "/goals", "", err)
		return
	}
	in := goal.CreateInput{
		Title:           f.str("title"),
		Description:     f.str("description"),
		Type:            models.GoalType(f.str("type")),
		TargetValue:     f.decimal("target_value"),
		StartDate:       f.date("start_date"),
		EndDate:         f.date("end_date"),
		TradingSystemID: f.optional("trading_system_id"),
	}
	if f.err != nil {
		redirect(w, r, "/goals", "", f.err)
		return
	}
	if _, err := h.goals.Create(r.Context(), in); err != nil {
		redirect(w, r, "/goals", "", err)
		return
	}
	redirect(w, r, "/goals", "Goal created", nil)
}

// RecomputeGoal re-runs the progress calculation for one goal.
func (h *Handler) RecomputeGoal(w http.ResponseWriter, r *http.Request) {
	g, err := h.goals.Recompute(r.Context(), r.PathValue("id"))
	if err != nil {
		redirect(w, r, "/goals", "", err)
		return
	}
	redirect(w, r, "/goals", fmt.Sprintf("%s: %s", g.Title, g.Status), nil)
}

// RefreshGoals sweeps every in-progress goal.
func (h *Handler) RefreshGoals(w http.ResponseWriter, r *http.Request) {
	report, err := h.goals.RefreshAll(r.Context())
	if err != nil {
		redirect(w, r, "/goals", "", err)
		return
	}
	msg := fmt.Sprintf("Refreshed %d of %d goals", report.Updated, report.Total)
	if n := len(report.Failed); n > 0 {
		msg += fmt.Sprintf(", %d failed", n)
	}
	redirect(w, r, "/goals", msg, nil)
}

// DeleteGoal removes a goal.
func (h *Handler) DeleteGoal(w http.ResponseWriter, r *http.Request) {
	if err := h.goals.Delete(r.Context(), r.PathValue("id")); err != nil {
		redirect(w, r, "/goals", "", err)
		return
	}
	redirect(w, r, "/goals", "Goal deleted", nil)
}
