package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/newthinker/backtrack/internal/api"
	"github.com/newthinker/backtrack/internal/cache"
	"github.com/newthinker/backtrack/internal/core"
	cronrunner "github.com/newthinker/backtrack/internal/cron"
	"github.com/newthinker/backtrack/internal/db"
	"github.com/newthinker/backtrack/internal/goal"
	"github.com/newthinker/backtrack/internal/journal"
	llmfactory "github.com/newthinker/backtrack/internal/llm/factory"
	"github.com/newthinker/backtrack/internal/marketdata"
	"github.com/newthinker/backtrack/internal/metrics"
	notifierfactory "github.com/newthinker/backtrack/internal/notifier/factory"
	gormrepository "github.com/newthinker/backtrack/internal/repository/gorm"
	"github.com/newthinker/backtrack/internal/review"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the backtrack server",
	RunE:  runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	log, err := newLogger(cfg)
	if err != nil {
		return err
	}
	defer log.Sync()

	if cfgFile == "" {
		log.Warn("no config file specified, using defaults")
	}

	d, err := openDB(cfg, log)
	if err != nil {
		return err
	}
	defer db.Close(d)

	store := gormrepository.New(d.Gorm)

	var reg *metrics.Registry
	if cfg.Metrics.Enabled {
		reg = metrics.NewRegistry()
	}

	notifiers, err := notifierfactory.Registry(cfg.Notifiers)
	if err != nil {
		return fmt.Errorf("creating notifiers: %w", err)
	}

	journalSvc := journal.NewService(store, log.Named("journal"))
	goalSvc := goal.NewService(store, log.Named("goal"))
	goalSvc.SetNotifiers(notifiers)
	goalSvc.SetMetrics(reg)
	goalSvc.SetConcurrency(cfg.Goals.RefreshConcurrency)

	cacheStore, err := cache.New(cfg.Cache)
	if err != nil {
		return fmt.Errorf("creating cache: %w", err)
	}
	if c, ok := cacheStore.(io.Closer); ok {
		defer c.Close()
	}
	market := marketdata.NewFromConfig(cfg.MarketData, cacheStore, cfg.Cache.TTL, log.Named("marketdata"))
	market.SetMetrics(reg)

	var reviewer *review.Reviewer
	provider, err := llmfactory.New(cfg.LLM)
	switch {
	case errors.Is(err, core.ErrLLMDisabled):
		log.Info("backtest review disabled: no llm provider configured")
	case err != nil:
		return fmt.Errorf("creating llm provider: %w", err)
	default:
		reviewer = review.NewReviewer(provider, log.Named("review"))
		log.Info("backtest review enabled", zap.String("provider", provider.Name()))
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var runner *cronrunner.Runner
	if cfg.Cron.Enabled {
		runner = cronrunner.New(log.Named("cron"), ctx)
		job := cronrunner.GoalRefresh(goalSvc, 5*time.Minute, log.Named("cron"))
		if _, err := runner.Add(cfg.Cron.GoalRefresh, job); err != nil {
			return fmt.Errorf("scheduling goal refresh %q: %w", cfg.Cron.GoalRefresh, err)
		}
		runner.Start()
		defer runner.Stop()
	}

	server, err := api.NewServer(api.Config{
		Host:         cfg.Server.Host,
		Port:         cfg.Server.Port,
		APIKey:       cfg.Server.APIKey,
		TemplatesDir: cfg.Server.TemplatesDir,
		MetricsPath:  cfg.Metrics.Path,
		JobTTL:       time.Duration(cfg.Server.JobTTLHours) * time.Hour,
		MaxJobs:      cfg.Server.MaxJobs,
	}, api.Dependencies{
		DB:         d,
		Journal:    journalSvc,
		Goals:      goalSvc,
		MarketData: market,
		Reviewer:   reviewer,
		Metrics:    reg,
	}, log.Named("http"))
	if err != nil {
		return fmt.Errorf("creating server: %w", err)
	}

	log.Info("starting backtrack server",
		zap.String("host", cfg.Server.Host),
		zap.Int("port", cfg.Server.Port),
		zap.String("database", cfg.Database.Driver),
		zap.String("cache", cfg.Cache.Type),
		zap.Strings("notifiers", notifiers.Names()),
		zap.Bool("cron", cfg.Cron.Enabled),
	)

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info("shutting down backtrack server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}
