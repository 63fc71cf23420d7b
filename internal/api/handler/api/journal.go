package api

import (
	"net/http"

	"github.com/newthinker/backtrack/internal/api/response"
	"github.com/newthinker/backtrack/internal/journal"
	"github.com/newthinker/backtrack/internal/models"
)

// JournalHandler exposes CRUD over systems, backtests, notes, templates and
// tags.
type JournalHandler struct {
	svc *journal.Service
}

// NewJournalHandler creates a journal handler.
func NewJournalHandler(svc *journal.Service) *JournalHandler {
	return &JournalHandler{svc: svc}
}

// Summary returns dashboard counts.
func (h *JournalHandler) Summary(w http.ResponseWriter, r *http.Request) {
	s, err := h.svc.Summary(r.Context())
	if err != nil {
		response.Fail(w, err)
		return
	}
	response.JSON(w, http.StatusOK, s)
}

// Systems

func (h *JournalHandler) ListSystems(w http.ResponseWriter, r *http.Request) {
	items, err := h.svc.ListSystems(r.Context(), optional[models.SystemStatus](r, "status"))
	if err != nil {
		response.Fail(w, err)
		return
	}
	response.JSON(w, http.StatusOK, items)
}

func (h *JournalHandler) CreateSystem(w http.ResponseWriter, r *http.Request) {
	var in journal.SystemInput
	if err := decodeJSON(w, r, &in); err != nil {
		response.Fail(w, err)
		return
	}
	item, err := h.svc.CreateSystem(r.Context(), in)
	if err != nil {
		response.Fail(w, err)
		return
	}
	response.JSON(w, http.StatusCreated, item)
}

func (h *JournalHandler) GetSystem(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		response.Fail(w, err)
		return
	}
	item, err := h.svc.GetSystem(r.Context(), id)
	if err != nil {
		response.Fail(w, err)
		return
	}
	response.JSON(w, http.StatusOK, item)
}

func (h *JournalHandler) UpdateSystem(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		response.Fail(w, err)
		return
	}
	var in journal.SystemInput
	if err := decodeJSON(w, r, &in); err != nil {
		response.Fail(w, err)
		return
	}
	item, err := h.svc.UpdateSystem(r.Context(), id, in)
	if err != nil {
		response.Fail(w, err)
		return
	}
	response.JSON(w, http.StatusOK, item)
}

func (h *JournalHandler) DeleteSystem(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		response.Fail(w, err)
		return
	}
	if err := h.svc.DeleteSystem(r.Context(), id); err != nil {
		response.Fail(w, err)
		return
	}
	response.JSON(w, http.StatusOK, deleted(id))
}

// SystemStats aggregates every backtest recorded for the system.
func (h *JournalHandler) SystemStats(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		response.Fail(w, err)
		return
	}
	stats, err := h.svc.SystemStats(r.Context(), id)
	if err != nil {
		response.Fail(w, err)
		return
	}
	response.JSON(w, http.StatusOK, stats)
}

// Backtests

func (h *JournalHandler) ListBacktests(w http.ResponseWriter, r *http.Request) {
	limit, offset, err := paging(r)
	if err != nil {
		response.Fail(w, err)
		return
	}
	q := r.URL.Query()
	items, total, err := h.svc.ListBacktests(r.Context(), journal.BacktestFilter{
		TradingSystemID: q.Get("trading_system_id"),
		Symbol:          q.Get("symbol"),
		TagID:           q.Get("tag_id"),
		Limit:           limit,
		Offset:          offset,
	})
	if err != nil {
		response.Fail(w, err)
		return
	}
	response.Page(w, items, total, limit, offset)
}

func (h *JournalHandler) CreateBacktest(w http.ResponseWriter, r *http.Request) {
	var in journal.BacktestInput
	if err := decodeJSON(w, r, &in); err != nil {
		response.Fail(w, err)
		return
	}
	item, err := h.svc.CreateBacktest(r.Context(), in)
	if err != nil {
		response.Fail(w, err)
		return
	}
	response.JSON(w, http.StatusCreated, item)
}

func (h *JournalHandler) GetBacktest(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		response.Fail(w, err)
		return
	}
	item, err := h.svc.GetBacktest(r.Context(), id)
	if err != nil {
		response.Fail(w, err)
		return
	}
	response.JSON(w, http.StatusOK, item)
}

func (h *JournalHandler) UpdateBacktest(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		response.Fail(w, err)
		return
	}
	var in journal.BacktestInput
	if err := decodeJSON(w, r, &in); err != nil {
		response.Fail(w, err)
		return
	}
	item, err := h.svc.UpdateBacktest(r.Context(), id, in)
	if err != nil {
		response.Fail(w, err)
		return
	}
	response.JSON(w, http.StatusOK, item)
}

func (h *JournalHandler) DeleteBacktest(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		response.Fail(w, err)
		return
	}
	if err := h.svc.DeleteBacktest(r.Context(), id); err != nil {
		response.Fail(w, err)
		return
	}
	response.JSON(w, http.StatusOK, deleted(id))
}

// Notes

func (h *JournalHandler) ListNotes(w http.ResponseWriter, r *http.Request) {
	limit, offset, err := paging(r)
	if err != nil {
		response.Fail(w, err)
		return
	}
	pinned, err := queryBool(r, "pinned")
	if err != nil {
		response.Fail(w, err)
		return
	}
	q := r.URL.Query()
	items, err := h.svc.ListNotes(r.Context(), journal.NoteFilter{
		TradingSystemID: q.Get("trading_system_id"),
		BacktestID:      q.Get("backtest_id"),
		PinnedOnly:      pinned,
		Query:           q.Get("q"),
		Limit:           limit,
		Offset:          offset,
	})
	if err != nil {
		response.Fail(w, err)
		return
	}
	response.JSON(w, http.StatusOK, items)
}

func (h *JournalHandler) CreateNote(w http.ResponseWriter, r *http.Request) {
	var in journal.NoteInput
	if err := decodeJSON(w, r, &in); err != nil {
		response.Fail(w, err)
		return
	}
	item, err := h.svc.CreateNote(r.Context(), in)
	if err != nil {
		response.Fail(w, err)
		return
	}
	response.JSON(w, http.StatusCreated, item)
}

func (h *JournalHandler) GetNote(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		response.Fail(w, err)
		return
	}
	item, err := h.svc.GetNote(r.Context(), id)
	if err != nil {
		response.Fail(w, err)
		return
	}
	response.JSON(w, http.StatusOK, item)
}

func (h *JournalHandler) UpdateNote(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		response.Fail(w, err)
		return
	}
	var in journal.NoteInput
	if err := decodeJSON(w, r, &in); err != nil {
		response.Fail(w, err)
		return
	}
	item, err := h.svc.UpdateNote(r.Context(), id, in)
	if err != nil {
		response.Fail(w, err)
		return
	}
	response.JSON(w, http.StatusOK, item)
}

func (h *JournalHandler) DeleteNote(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		response.Fail(w, err)
		return
	}
	if err := h.svc.DeleteNote(r.Context(), id); err != nil {
		response.Fail(w, err)
		return
	}
	response.JSON(w, http.StatusOK, deleted(id))
}

// Templates

func (h *JournalHandler) ListTemplates(w http.ResponseWriter, r *http.Request) {
	items, err := h.svc.ListTemplates(r.Context(), optional[models.TemplateCategory](r, "category"))
	if err != nil {
		response.Fail(w, err)
		return
	}
	response.JSON(w, http.StatusOK, items)
}

func (h *JournalHandler) CreateTemplate(w http.ResponseWriter, r *http.Request) {
	var in journal.TemplateInput
	if err := decodeJSON(w, r, &in); err != nil {
		response.Fail(w, err)
		return
	}
	item, err := h.svc.CreateTemplate(r.Context(), in)
	if err != nil {
		response.Fail(w, err)
		return
	}
	response.JSON(w, http.StatusCreated, item)
}

func (h *JournalHandler) GetTemplate(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		response.Fail(w, err)
		return
	}
	item, err := h.svc.GetTemplate(r.Context(), id)
	if err != nil {
		response.Fail(w, err)
		return
	}
	response.JSON(w, http.StatusOK, item)
}

func (h *JournalHandler) UpdateTemplate(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		response.Fail(w, err)
		return
	}
	var in journal.TemplateInput
	if err := decodeJSON(w, r, &in); err != nil {
		response.Fail(w, err)
		return
	}
	item, err := h.svc.UpdateTemplate(r.Context(), id, in)
	if err != nil {
		response.Fail(w, err)
		return
	}
	response.JSON(w, http.StatusOK, item)
}

func (h *JournalHandler) DeleteTemplate(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		response.Fail(w, err)
		return
	}
	if err := h.svc.DeleteTemplate(r.Context(), id); err != nil {
		response.Fail(w, err)
		return
	}
	response.JSON(w, http.StatusOK, deleted(id))
}

// Tags

func (h *JournalHandler) ListTags(w http.ResponseWriter, r *http.Request) {
	items, err := h.svc.ListTags(r.Context())
	if err != nil {
		response.Fail(w, err)
		return
	}
	response.JSON(w, http.StatusOK, items)
}

func (h *JournalHandler) CreateTag(w http.ResponseWriter, r *http.Request) {
	var in journal.TagInput
	if err := decodeJSON(w, r, &in); err != nil {
		response.Fail(w, err)
		return
	}
	item, err := h.svc.CreateTag(r.Context(), in)
	if err != nil {
		response.Fail(w, err)
		return
	}
	response.JSON(w, http.StatusCreated, item)
}

func (h *JournalHandler) UpdateTag(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		response.Fail(w, err)
		return
	}
	var in journal.TagInput
	if err := decodeJSON(w, r, &in); err != nil {
		response.Fail(w, err)
		return
	}
	item, err := h.svc.UpdateTag(r.Context(), id, in)
	if err != nil {
		response.Fail(w, err)
		return
	}
	response.JSON(w, http.StatusOK, item)
}

func (h *JournalHandler) DeleteTag(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		response.Fail(w, err)
		return
	}
	if err := h.svc.DeleteTag(r.Context(), id); err != nil {
		response.Fail(w, err)
		return
	}
	response.JSON(w, http.StatusOK, deleted(id))
}
