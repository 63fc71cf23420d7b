package web

import (
	"net/http"

	"github.com/newthinker/backtrack/internal/journal"
	"github.com/newthinker/backtrack/internal/models"
)

// DashboardData holds data for the dashboard template
type DashboardData struct {
	Page
	Summary  *journal.Summary
	Statuses []models.GoalStatus
}

// Dashboard renders the dashboard page
func (h *Handler) Dashboard(w http.ResponseWriter, r *http.Request) {
	summary, err := h.journal.Summary(r.Context())
	if err != nil {
		h.serverError(w, err)
		return
	}
	h.render(w, "dashboard.html", DashboardData{
		Page:     newPage(r, "Dashboard", "dashboard"),
		Summary:  summary,
		Statuses: []models.GoalStatus{models.GoalInProgress, models.GoalAchieved, models.GoalFailed},
	})
}
