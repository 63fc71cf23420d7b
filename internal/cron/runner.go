// Package cronrunner schedules background jobs such as the goal sweep.
package cronrunner

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/newthinker/backtrack/internal/goal"
)

type Runner struct {
	cron    *cron.Cron
	logger  *zap.Logger
	baseCtx context.Context
}

// New creates a runner whose specs include a seconds field. A run that is
// still going when its next tick fires is skipped.
func New(logger *zap.Logger, baseCtx context.Context) *Runner {
	if logger == nil {
		logger = zap.NewNop()
	}
	if baseCtx == nil {
		baseCtx = context.Background()
	}
	cl := cronLogger{logger}
	return &Runner{
		cron: cron.New(
			cron.WithSeconds(),
			cron.WithLogger(cl),
			cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
		),
		logger:  logger,
		baseCtx: baseCtx,
	}
}

func (r *Runner) Add(spec string, job func(context.Context)) (cron.EntryID, error) {
	return r.cron.AddFunc(spec, func() {
		job(r.baseCtx)
	})
}

func (r *Runner) Start() {
	r.logger.Info("cron started", zap.Int("entries", len(r.cron.Entries())))
	r.cron.Start()
}

func (r *Runner) Stop() {
	ctx := r.cron.Stop()
	<-ctx.Done()
	r.logger.Info("cron stopped")
}

// GoalRefresh returns a job that sweeps in-progress goals, bounded by timeout.
func GoalRefresh(svc *goal.Service, timeout time.Duration, logger *zap.Logger) func(context.Context) {
	if logger == nil {
		logger = zap.NewNop()
	}
	return func(ctx context.Context) {
		if timeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, timeout)
			defer cancel()
		}
		report, err := svc.RefreshAll(ctx)
		if err != nil {
			logger.Error("scheduled goal refresh failed", zap.Error(err))
			return
		}
		logger.Info("scheduled goal refresh",
			zap.Int("total", report.Total),
			zap.Int("updated", report.Updated),
			zap.Int("failed", len(report.Failed)),
			zap.Int("achieved", report.Achieved),
			zap.Int("expired", report.Expired),
		)
	}
}

// cronLogger adapts zap to cron.Logger.
type cronLogger struct {
	l *zap.Logger
}

func (c cronLogger) Info(msg string, keysAndValues ...interface{}) {
	c.l.Debug(msg, zap.Any("kv", keysAndValues))
}

func (c cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	c.l.Error(msg, zap.Error(err), zap.Any("kv", keysAndValues))
}
