package goal

import (
	"context"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/newthinker/backtrack/internal/models"
	"github.com/newthinker/backtrack/internal/notifier"
)

// Failure names a goal that could not be refreshed.
type Failure struct {
	GoalID string `json:"goal_id"`
	Title  string `json:"title"`
	Error  string `json:"error"`
}

// RefreshReport summarizes one sweep over in-progress goals.
type RefreshReport struct {
	Total       int           `json:"total"`
	Updated     int           `json:"updated"`
	Failed      []Failure     `json:"failed"`
	Achieved    int           `json:"achieved"`
	Expired     int           `json:"expired"`
	Duration    time.Duration `json:"duration_ns"`
	Transitions []models.Goal `json:"-"`
}

// RefreshAll recomputes every in_progress goal. A goal that fails is logged
// and reported; the others are still refreshed. The only returned error is
// a failure to list the goals.
func (s *Service) RefreshAll(ctx context.Context) (*RefreshReport, error) {
	start := time.Now()
	status := models.GoalInProgress
	goals, err := s.List(ctx, &status)
	if err != nil {
		return nil, err
	}

	type outcome struct {
		event *notifier.GoalEvent
		err   error
	}
	outcomes := make([]outcome, len(goals))

	var g errgroup.Group
	g.SetLimit(s.concurrency)
	for i := range goals {
		g.Go(func() error {
			event, err := s.recompute(ctx, &goals[i])
			outcomes[i] = outcome{event: event, err: err}
			if err != nil {
				s.logger.Warn("goal refresh failed",
					zap.String("goal_id", goals[i].ID),
					zap.Error(err),
				)
			}
			return nil
		})
	}
	_ = g.Wait()

	report := &RefreshReport{Total: len(goals), Failed: []Failure{}}
	var events []notifier.GoalEvent
	for i, o := range outcomes {
		if o.err != nil {
			report.Failed = append(report.Failed, Failure{
				GoalID: goals[i].ID,
				Title:  goals[i].Title,
				Error:  o.err.Error(),
			})
			continue
		}
		report.Updated++
		switch goals[i].Status {
		case models.GoalAchieved:
			report.Achieved++
		case models.GoalFailed:
			report.Expired++
		}
		if o.event != nil {
			events = append(events, *o.event)
			report.Transitions = append(report.Transitions, goals[i])
		}
	}
	report.Duration = time.Since(start)

	s.metrics.RecordGoalSweep(report.Duration.Seconds(), len(report.Failed))
	s.logger.Info("goal refresh complete",
		zap.Int("total", report.Total),
		zap.Int("updated", report.Updated),
		zap.Int("failed", len(report.Failed)),
		zap.Duration("duration", report.Duration),
	)

	if len(events) > 0 && s.notifiers.Len() > 0 {
		for name, err := range s.notifiers.NotifyAllBatch(ctx, events) {
			s.logger.Error("notifier failed",
				zap.String("notifier", name),
				zap.Int("events", len(events)),
				zap.Error(err),
			)
		}
	}
	return report, nil
}
