package web

import (
	"net/http"

	"github.com/newthinker/backtrack/internal/journal"
	"github.com/newthinker/backtrack/internal/models"
)

type NotesData struct {
	Page
	Notes     []models.Note
	Systems   []models.TradingSystem
	Tags      []models.Tag
	Query     string
	Templates []models.Template
}

// Notes renders the journal notes, pinned first.
func (h *Handler) Notes(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	q := r.URL.Query().Get("q")
	notes, err := h.journal.ListNotes(ctx, journal.NoteFilter{Query: q, Limit: 200})
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
	templates, err := h.journal.ListTemplates(ctx, nil)
	if err != nil {
		h.serverError(w, err)
		return
	}
	h.render(w, "notes.html", NotesData{
		Page:      newPage(r, "Notes", "notes"),
		Notes:     notes,
		Systems:   systems,
		Tags:      tags,
		Query:     q,
		Templates: templates,
	})
}

// CreateNote handles the note form. The form may post back to the page it
// came from via the "return" field.
func (h *Handler) CreateNote(w http.ResponseWriter, r *http.Request) {
	f, err := parseForm(r)
	if err != nil {
		redirect(w, r, "/notes", "", err)
		return
	}
	back := returnPath(f.str("return"), "/notes")
	in := journal.NoteInput{
		Title:           f.str("title"),
		Content:         f.str("content"),
		Pinned:          f.bool("pinned"),
		TradingSystemID: f.optional("trading_system_id"),
		BacktestID:      f.optional("backtest_id"),
		TagIDs:          f.values("tag_ids"),
	}
	if _, err := h.journal.CreateNote(r.Context(), in); err != nil {
		redirect(w, r, back, "", err)
		return
	}
	redirect(w, r, back, "Note saved", nil)
}

// DeleteNote removes a note.
func (h *Handler) DeleteNote(w http.ResponseWriter, r *http.Request) {
	if err := h.journal.DeleteNote(r.Context(), r.PathValue("id")); err != nil {
		redirect(w, r, "/notes", "", err)
		return
	}
	redirect(w, r, "/notes", "Note deleted", nil)
}

// returnPath accepts only local absolute paths.
func returnPath(p, fallback string) string {
	if len(p) < 1 || p[0] != '/' || (len(p) > 1 && (p[1] == '/' || p[1] == '\\')) {
		return fallback
	}
	return p
}
