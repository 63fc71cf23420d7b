package web

import (
	"net/http"
	"strconv"

	"github.com/newthinker/backtrack/internal/journal"
	"github.com/newthinker/backtrack/internal/models"
)

const backtestsPerPage = 50

type BacktestsData struct {
	Page
	Backtests []models.Backtest
	Systems   []models.TradingSystem
	Tags      []models.Tag
	Total     int64
	Offset    int
	Next      int
	Prev      int
	SystemID  string
	Symbol    string
}

type BacktestDetailData struct {
	Page
	Backtest *models.Backtest
	Notes    []models.Note
	// Chart is the TradingView symbol for the embedded widget.
	Chart string
}

// Backtests renders the backtest list, filterable by system and symbol.
func (h *Handler) Backtests(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	q := r.URL.Query()
	offset, _ := strconv.Atoi(q.Get("offset"))
	if offset < 0 {
		offset = 0
	}
	filter := journal.BacktestFilter{
		TradingSystemID: q.Get("system"),
		Symbol:          q.Get("symbol"),
		Limit:           backtestsPerPage,
		Offset:          offset,
	}
	backtests, total, err := h.journal.ListBacktests(ctx, filter)
	if err != nil {
		h.serverError(w, err)
		return
	}
	systems, err := h.journal.ListSystems(ctx, nil)
	if err != nil {
		h.serverError(w, err)
		return
	}
	tags, err := h.journal.ListTags(ctx)
	if err != nil {
		h.serverError(w, err)
		return
	}

	data := BacktestsData{
		Page:      newPage(r, "Backtests", "backtests"),
		Backtests: backtests,
		Systems:   systems,
		Tags:      tags,
		Total:     total,
		Offset:    offset,
		Next:      -1,
		Prev:      -1,
		SystemID:  filter.TradingSystemID,
		Symbol:    filter.Symbol,
	}
	if int64(offset+backtestsPerPage) < total {
		data.Next = offset + backtestsPerPage
	}
	if offset > 0 {
		data.Prev = max(offset-backtestsPerPage, 0)
	}
	h.render(w, "backtests.html", data)
}

// CreateBacktest handles the record-backtest form.
func (h *Handler) CreateBacktest(w http.ResponseWriter, r *http.Request) {
	f, err := parseForm(r)
	if err != nil {
		redirect(w, r, "/backtests", "", err)
		return
	}
	in := journal.BacktestInput{
		TradingSystemID:      f.optional("trading_system_id"),
		Name:                 f.str("name"),
		Symbol:               f.str("symbol"),
		Timeframe:            f.str("timeframe"),
		StartDate:            f.date("start_date"),
		EndDate:              f.date("end_date"),
		InitialCapital:       f.nullDecimal("initial_capital"),
		FinalCapital:         f.nullDecimal("final_capital"),
		NetProfit:            f.nullDecimal("net_profit"),
		TotalTrades:          f.intPtr("total_trades"),
		WinningTrades:        f.intPtr("winning_trades"),
		LosingTrades:         f.intPtr("losing_trades"),
		WinRate:              f.nullDecimal("win_rate"),
		ProfitFactor:         f.nullDecimal("profit_factor"),
		MaxDrawdown:          f.nullDecimal("max_drawdown"),
		SharpeRatio:          f.nullDecimal("sharpe_ratio"),
		AvgWin:               f.nullDecimal("avg_win"),
		AvgLoss:              f.nullDecimal("avg_loss"),
		MaxConsecutiveWins:   f.intPtr("max_consecutive_wins"),
		MaxConsecutiveLosses: f.intPtr("max_consecutive_losses"),
		Notes:                f.str("notes"),
		TagIDs:               f.values("tag_ids"),
	}
	if f.err != nil {
		redirect(w, r, "/backtests", "", f.err)
		return
	}
	b, err := h.journal.CreateBacktest(r.Context(), in)
	if err != nil {
		redirect(w, r, "/backtests", "", err)
		return
	}
	redirect(w, r, "/backtests/"+b.ID, "Backtest recorded", nil)
}

// BacktestDetail renders one backtest with its price chart.
func (h *Handler) BacktestDetail(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := r.PathValue("id")
	b, err := h.journal.GetBacktest(ctx, id)
	if err != nil {
		h.pageError(w, r, err)
		return
	}
	notes, err := h.journal.ListNotes(ctx, journal.NoteFilter{BacktestID: id, Limit: 50})
	if err != nil {
		h.serverError(w, err)
		return
	}
	h.render(w, "backtest_detail.html", BacktestDetailData{
		Page:     newPage(r, b.Name, "backtests"),
		Backtest: b,
		Notes:    notes,
		Chart:    TradingViewSymbol(b.Symbol),
	})
}

// DeleteBacktest removes a backtest record.
func (h *Handler) DeleteBacktest(w http.ResponseWriter, r *http.Request) {
	if err := h.journal.DeleteBacktest(r.Context(), r.PathValue("id")); err != nil {
		redirect(w, r, "/backtests", "", err)
		return
	}
	redirect(w, r, "/backtests", "Backtest deleted", nil)
}
