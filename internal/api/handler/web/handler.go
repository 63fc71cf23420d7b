// Package web renders the server-side HTML pages.
package web

import (
	"embed"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/newthinker/backtrack/internal/goal"
	"github.com/newthinker/backtrack/internal/journal"
	"github.com/newthinker/backtrack/internal/models"
)

//go:embed templates/*
var templateFS embed.FS

// pages lists every page template; each is parsed together with layout.html.
var pages = []string{
	"dashboard.html",
	"systems.html",
	"system_detail.html",
	"backtests.html",
	"backtest_detail.html",
	"goals.html",
	"notes.html",
}

// Handler provides web UI handlers with template rendering
type Handler struct {
	// one template set per page: layout.html + the page
	pageTemplates map[string]*template.Template
	journal       *journal.Service
	goals         *goal.Service
	logger        *zap.Logger
}

// NewHandler creates a web handler with templates loaded from templatesDir.
// If templatesDir is empty, the embedded templates are used.
func NewHandler(templatesDir string, js *journal.Service, gs *goal.Service, logger *zap.Logger) (*Handler, error) {
	var fsys fs.FS
	if templatesDir != "" {
		fsys = os.DirFS(filepath.Clean(templatesDir))
	} else {
		fsys = TemplateFS()
	}
	return NewHandlerWithFS(fsys, js, gs, logger)
}

// NewHandlerWithFS creates a web handler using a custom template filesystem.
func NewHandlerWithFS(fsys fs.FS, js *journal.Service, gs *goal.Service, logger *zap.Logger) (*Handler, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	pageTemplates := make(map[string]*template.Template, len(pages))
	for _, page := range pages {
		tmpl, err := template.New("layout.html").Funcs(funcs).ParseFS(fsys, "layout.html", page)
		if err != nil {
			return nil, fmt.Errorf("parsing template %s: %w", page, err)
		}
		pageTemplates[page] = tmpl
	}
	return &Handler{
		pageTemplates: pageTemplates,
		journal:       js,
		goals:         gs,
		logger:        logger,
	}, nil
}

// TemplateFS returns the embedded template filesystem for external use.
func TemplateFS() fs.FS {
	subFS, err := fs.Sub(templateFS, "templates")
	if err != nil {
		return templateFS
	}
	return subFS
}

// render executes the specified page template with the given data
func (h *Handler) render(w http.ResponseWriter, page string, data any) {
	tmpl, ok := h.pageTemplates[page]
	if !ok {
		http.Error(w, "template not found: "+page, http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := tmpl.ExecuteTemplate(w, "layout.html", data); err != nil {
		h.logger.Error("rendering template", zap.String("page", page), zap.Error(err))
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

// Page is embedded in every page's data.
type Page struct {
	Title  string
	Active string
	Flash  string
	Error  string
}

func newPage(r *http.Request, title, active string) Page {
	q := r.URL.Query()
	return Page{Title: title, Active: active, Flash: q.Get("ok"), Error: q.Get("error")}
}

// redirect answers a form POST with 303 See Other.
func redirect(w http.ResponseWriter, r *http.Request, path, okMsg string, err error) {
	q := url.Values{}
	if err != nil {
		q.Set("error", err.Error())
	} else if okMsg != "" {
		q.Set("ok", okMsg)
	}
	if len(q) > 0 {
		path += "?" + q.Encode()
	}
	http.Redirect(w, r, path, http.StatusSeeOther)
}

var funcs = template.FuncMap{
	"num":      formatNull,
	"dec":      formatDec,
	"int":      formatInt,
	"date":     formatDate,
	"rules":    journal.Rules,
	"tvSymbol": TradingViewSymbol,
	"lower":    strings.ToLower,
	"goalTypes": func() []models.GoalType {
		return models.GoalTypes
	},
}

func formatNull(d decimal.NullDecimal) string {
	if !d.Valid {
		return "—"
	}
	return formatDec(d.Decimal)
}

func formatDec(d decimal.Decimal) string {
	return d.Round(2).String()
}

func formatInt(v *int) string {
	if v == nil {
		return "—"
	}
	return fmt.Sprintf("%d", *v)
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format("2006-01-02")
}

// cryptoQuotes are quote assets that identify a Binance spot pair.
var cryptoQuotes = []string{"USDT", "USDC", "BUSD", "FDUSD", "BTC", "ETH", "BNB"}

// TradingViewSymbol maps a stored symbol to the widget's EXCHANGE:TICKER
// form. Binance pairs get the BINANCE prefix; anything with an exchange
// already is passed through.
func TradingViewSymbol(symbol string) string {
	s := strings.ToUpper(strings.TrimSpace(symbol))
	if s == "" || strings.Contains(s, ":") {
		return s
	}
	for _, q := range cryptoQuotes {
		if len(s) > len(q) && strings.HasSuffix(s, q) {
			return "BINANCE:" + s
		}
	}
	switch {
	case strings.HasSuffix(s, ".HK"):
		return "HKEX:" + strings.TrimLeft(strings.TrimSuffix(s, ".HK"), "0")
	case strings.HasSuffix(s, ".SH"), strings.HasSuffix(s, ".SS"):
		return "SSE:" + s[:len(s)-3]
	case strings.HasSuffix(s, ".SZ"):
		return "SZSE:" + strings.TrimSuffix(s, ".SZ")
	}
	return s
}
