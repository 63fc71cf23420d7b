// Package api wires the HTTP routes for the JSON API, the web UI and metrics.
package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	apihandler "github.com/newthinker/backtrack/internal/api/handler/api"
	"github.com/newthinker/backtrack/internal/api/handler/web"
	"github.com/newthinker/backtrack/internal/api/job"
	"github.com/newthinker/backtrack/internal/api/middleware"
	"github.com/newthinker/backtrack/internal/api/response"
	"github.com/newthinker/backtrack/internal/core"
	"github.com/newthinker/backtrack/internal/db"
	"github.com/newthinker/backtrack/internal/goal"
	"github.com/newthinker/backtrack/internal/journal"
	"github.com/newthinker/backtrack/internal/marketdata"
	"github.com/newthinker/backtrack/internal/metrics"
	"github.com/newthinker/backtrack/internal/review"
)

// Server represents the HTTP server for backtrack
type Server struct {
	httpServer *http.Server
	logger     *zap.Logger
	mux        *http.ServeMux
}

// Config holds server configuration
type Config struct {
	Host         string
	Port         int
	APIKey       string
	TemplatesDir string
	MetricsPath  string
	JobTTL       time.Duration
	MaxJobs      int
}

// Dependencies holds the services the handlers call into.
type Dependencies struct {
	DB         *db.DB
	Journal    *journal.Service
	Goals      *goal.Service
	MarketData *marketdata.Service // optional
	Reviewer   *review.Reviewer    // optional; nil disables reviews
	Metrics    *metrics.Registry   // optional
}

// NewServer creates a new HTTP server
func NewServer(cfg Config, deps Dependencies, logger *zap.Logger) (*Server, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if deps.Journal == nil || deps.Goals == nil {
		return nil, fmt.Errorf("journal and goal services are required")
	}
	mux := http.NewServeMux()

	var handler http.Handler = mux
	if deps.Metrics != nil {
		handler = middleware.Chain(mux, metrics.LoggingMiddleware(logger), metrics.HTTPMiddleware(deps.Metrics))
	} else {
		handler = middleware.Chain(mux, metrics.LoggingMiddleware(logger))
	}

	s := &Server{
		httpServer: &http.Server{
			Addr:         fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
			Handler:      handler,
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 30 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		logger: logger,
		mux:    mux,
	}

	if err := s.setupRoutes(cfg, deps); err != nil {
		return nil, fmt.Errorf("setting up routes: %w", err)
	}

	return s, nil
}

// setupRoutes configures all HTTP routes
func (s *Server) setupRoutes(cfg Config, deps Dependencies) error {
	// Web UI routes
	webHandler, err := web.NewHandler(cfg.TemplatesDir, deps.Journal, deps.Goals, s.logger)
	if err != nil {
		return fmt.Errorf("creating web handler: %w", err)
	}

	s.mux.HandleFunc("GET /{$}", webHandler.Dashboard)
	s.mux.HandleFunc("GET /systems", webHandler.Systems)
	s.mux.HandleFunc("POST /systems", webHandler.CreateSystem)
	s.mux.HandleFunc("GET /systems/{id}", webHandler.SystemDetail)
	s.mux.HandleFunc("POST /systems/{id}/delete", webHandler.DeleteSystem)
	s.mux.HandleFunc("GET /backtests", webHandler.Backtests)
	s.mux.HandleFunc("POST /backtests", webHandler.CreateBacktest)
	s.mux.HandleFunc("GET /backtests/{id}", webHandler.BacktestDetail)
	s.mux.HandleFunc("POST /backtests/{id}/delete", webHandler.DeleteBacktest)
	s.mux.HandleFunc("GET /goals", webHandler.Goals)
	s.mux.HandleFunc("POST /goals", webHandler.CreateGoal)
	s.mux.HandleFunc("POST /goals/refresh", webHandler.RefreshGoals)
	s.mux.HandleFunc("POST /goals/{id}/recompute", webHandler.RecomputeGoal)
	s.mux.HandleFunc("POST /goals/{id}/delete", webHandler.DeleteGoal)
	s.mux.HandleFunc("GET /notes", webHandler.Notes)
	s.mux.HandleFunc("POST /notes", webHandler.CreateNote)
	s.mux.HandleFunc("POST /notes/{id}/delete", webHandler.DeleteNote)

	// Unauthenticated
	s.mux.HandleFunc("GET /api/health", s.handleHealth(deps.DB))
	if deps.Metrics != nil {
		path := cfg.MetricsPath
		if path == "" {
			path = "/metrics"
		}
		s.mux.Handle("GET "+path, promhttp.HandlerFor(deps.Metrics, promhttp.HandlerOpts{}))
	}

	// API v1, behind the optional API key
	v1 := http.NewServeMux()
	goals := apihandler.NewGoalHandler(deps.Goals, s.logger)
	v1.HandleFunc("GET /api/v1/goals", goals.List)
	v1.HandleFunc("POST /api/v1/goals", goals.Create)
	v1.HandleFunc("POST /api/v1/goals/refresh", goals.Refresh)
	v1.HandleFunc("GET /api/v1/goals/{id}", goals.Get)
	v1.HandleFunc("PATCH /api/v1/goals/{id}", goals.Update)
	v1.HandleFunc("DELETE /api/v1/goals/{id}", goals.Delete)
	v1.HandleFunc("POST /api/v1/goals/{id}/recompute", goals.Recompute)
	v1.HandleFunc("POST /api/v1/goals/{id}/progress", goals.SetProgress)

	jh := apihandler.NewJournalHandler(deps.Journal)
	v1.HandleFunc("GET /api/v1/summary", jh.Summary)
	v1.HandleFunc("GET /api/v1/systems", jh.ListSystems)
	v1.HandleFunc("POST /api/v1/systems", jh.CreateSystem)
	v1.HandleFunc("GET /api/v1/systems/{id}", jh.GetSystem)
	v1.HandleFunc("PATCH /api/v1/systems/{id}", jh.UpdateSystem)
	v1.HandleFunc("DELETE /api/v1/systems/{id}", jh.DeleteSystem)
	v1.HandleFunc("GET /api/v1/systems/{id}/stats", jh.SystemStats)
	v1.HandleFunc("GET /api/v1/backtests", jh.ListBacktests)
	v1.HandleFunc("POST /api/v1/backtests", jh.CreateBacktest)
	v1.HandleFunc("GET /api/v1/backtests/{id}", jh.GetBacktest)
	v1.HandleFunc("PATCH /api/v1/backtests/{id}", jh.UpdateBacktest)
	v1.HandleFunc("DELETE /api/v1/backtests/{id}", jh.DeleteBacktest)
	v1.HandleFunc("GET /api/v1/notes", jh.ListNotes)
	v1.HandleFunc("POST /api/v1/notes", jh.CreateNote)
	v1.HandleFunc("GET /api/v1/notes/{id}", jh.GetNote)
	v1.HandleFunc("PATCH /api/v1/notes/{id}", jh.UpdateNote)
	v1.HandleFunc("DELETE /api/v1/notes/{id}", jh.DeleteNote)
	v1.HandleFunc("GET /api/v1/templates", jh.ListTemplates)
	v1.HandleFunc("POST /api/v1/templates", jh.CreateTemplate)
	v1.HandleFunc("GET /api/v1/templates/{id}", jh.GetTemplate)
	v1.HandleFunc("PATCH /api/v1/templates/{id}", jh.UpdateTemplate)
	v1.HandleFunc("DELETE /api/v1/templates/{id}", jh.DeleteTemplate)
	v1.HandleFunc("GET /api/v1/tags", jh.ListTags)
	v1.HandleFunc("POST /api/v1/tags", jh.CreateTag)
	v1.HandleFunc("PATCH /api/v1/tags/{id}", jh.UpdateTag)
	v1.HandleFunc("DELETE /api/v1/tags/{id}", jh.DeleteTag)

	ttl := cfg.JobTTL
	if ttl <= 0 {
		ttl = time.Hour
	}
	maxJobs := cfg.MaxJobs
	if maxJobs <= 0 {
		maxJobs = 100
	}
	rh := apihandler.NewReviewHandler(job.NewStore(maxJobs, ttl), deps.Reviewer, deps.Journal, s.logger)
	rh.SetMetrics(deps.Metrics)
	v1.HandleFunc("POST /api/v1/backtests/{id}/review", rh.Start)
	v1.HandleFunc("GET /api/v1/jobs", rh.Jobs)
	v1.HandleFunc("GET /api/v1/jobs/{id}", rh.Job)

	if deps.MarketData != nil {
		mh := apihandler.NewMarketHandler(deps.MarketData)
		v1.HandleFunc("GET /api/v1/market/binance/klines", mh.BinanceKlines)
		v1.HandleFunc("GET /api/v1/market/yahoo/chart", mh.YahooChart)
	}

	v1.HandleFunc("/api/v1/", func(w http.ResponseWriter, r *http.Request) {
		response.Fail(w, core.WrapError(core.ErrNotFound, fmt.Errorf("no route for %s %s", r.Method, r.URL.Path)))
	})

	s.mux.Handle("/api/v1/", middleware.APIKeyAuth(cfg.APIKey)(v1))
	return nil
}

// Handler returns the root handler including middleware.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// Start starts the HTTP server
func (s *Server) Start() error {
	s.logger.Info("starting HTTP server", zap.String("addr", s.httpServer.Addr))
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down HTTP server")
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) handleHealth(d *db.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		status := map[string]string{"status": "ok", "database": "ok"}
		if err := db.Ping(d); err != nil {
			s.logger.Warn("health check: database unreachable", zap.Error(err))
			status["status"] = "degraded"
			status["database"] = err.Error()
			response.JSON(w, http.StatusServiceUnavailable, status)
			return
		}
		response.JSON(w, http.StatusOK, status)
	}
}
