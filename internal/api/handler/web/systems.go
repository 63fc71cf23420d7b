package web

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/newthinker/backtrack/internal/core"
	"github.com/newthinker/backtrack/internal/journal"
	"github.com/newthinker/backtrack/internal/models"
)

type SystemsData struct {
	Page
	Systems []models.TradingSystem
	Tags    []models.Tag
}

type SystemDetailData struct {
	Page
	System    *models.TradingSystem
	Stats     *journal.SystemStats
	Backtests []models.Backtest
	Notes     []models.Note
}

// Systems renders the trading system list with the create form.
func (h *Handler) Systems(w http.ResponseWriter, r *http.Request) {
	var status *models.SystemStatus
	if s := models.SystemStatus(r.URL.Query().Get("status")); s != "" {
		status = &s
	}
	systems, err := h.journal.ListSystems(r.Context(), status)
	if err != nil {
		h.serverError(w, err)
		return
	}
	tags, err := h.journal.ListTags(r.Context())
	if err != nil {
		h.serverError(w, err)
		return
	}
	h.render(w, "systems.html", SystemsData{
		Page:    newPage(r, "Trading Systems", "systems"),
		Systems: systems,
		Tags:    tags,
	})
}

// CreateSystem handles the new-system form.
func (h *Handler) CreateSystem(w http.ResponseWriter, r *http.Request) {
	f, err := parseForm(r)
	if err != nil {
		redirect(w, r, "/systems", "", err)
		return
	}
	in := journal.SystemInput{
		Name:         f.str("name"),
		Description:  f.str("description"),
		Market:       f.str("market"),
		Timeframe:    f.str("timeframe"),
		StrategyType: f.str("strategy_type"),
		Status:       models.SystemStatus(f.str("status")),
		EntryRules:   f.lines("entry_rules"),
		ExitRules:    f.lines("exit_rules"),
		RiskRules:    f.lines("risk_rules"),
		TagIDs:       f.values("tag_ids"),
	}
	sys, err := h.journal.CreateSystem(r.Context(), in)
	if err != nil {
		redirect(w, r, "/systems", "", err)
		return
	}
	redirect(w, r, "/systems/"+sys.ID, "System created", nil)
}

// SystemDetail renders one system with aggregate stats.
func (h *Handler) SystemDetail(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := r.PathValue("id")
	sys, err := h.journal.GetSystem(ctx, id)
	if err != nil {
		h.pageError(w, r, err)
		return
	}
	stats, err := h.journal.SystemStats(ctx, id)
	if err != nil {
		h.serverError(w, err)
		return
	}
	backtests, _, err := h.journal.ListBacktests(ctx, journal.BacktestFilter{TradingSystemID: id, Limit: 100})
	if err != nil {
		h.serverError(w, err)
		return
	}
	notes, err := h.journal.ListNotes(ctx, journal.NoteFilter{TradingSystemID: id, Limit: 50})
	if err != nil {
		h.serverError(w, err)
		return
	}
	h.render(w, "system_detail.html", SystemDetailData{
		Page:      newPage(r, sys.Name, "systems"),
		System:    sys,
		Stats:     stats,
		Backtests: backtests,
		Notes:     notes,
	})
}

// DeleteSystem removes a system; linked rows are detached.
func (h *Handler) DeleteSystem(w http.ResponseWriter, r *http.Request) {
	if err := h.journal.DeleteSystem(r.Context(), r.PathValue("id")); err != nil {
		redirect(w, r, "/systems", "", err)
		return
	}
	redirect(w, r, "/systems", "System deleted", nil)
}

// pageError renders 404 for missing rows and 500 otherwise.
func (h *Handler) pageError(w http.ResponseWriter, r *http.Request, err error) {
	if core.IsNotFound(err) {
		http.NotFound(w, r)
		return
	}
	h.serverError(w, err)
}

func (h *Handler) serverError(w http.ResponseWriter, err error) {
	h.logger.Error("web handler", zap.Error(err))
	http.Error(w, "internal server error", http.StatusInternalServerError)
}
