package goal

import (
	"context"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/newthinker/backtrack/internal/core"
	"github.com/newthinker/backtrack/internal/metrics"
	"github.com/newthinker/backtrack/internal/models"
	"github.com/newthinker/backtrack/internal/notifier"
	"github.com/newthinker/backtrack/internal/repository"
)

// Store is the persistence the engine needs.
type Store interface {
	repository.GoalRepository
	ListBacktests(ctx context.Context, params repository.ListBacktestsParams) ([]models.Backtest, error)
}

// Service owns goal CRUD and is the only writer of current value and status.
type Service struct {
	store       Store
	logger      *zap.Logger
	notifiers   *notifier.Registry
	metrics     *metrics.Registry
	now         func() time.Time
	concurrency int
}

// NewService creates a goal service. A nil logger discards output.
func NewService(store Store, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		store:       store,
		logger:      logger,
		now:         time.Now,
		concurrency: 1,
	}
}

// SetNotifiers sets the registry that receives status transitions.
func (s *Service) SetNotifiers(r *notifier.Registry) {
	s.notifiers = r
}

// SetMetrics sets the metrics registry.
func (s *Service) SetMetrics(m *metrics.Registry) {
	s.metrics = m
}

// SetClock overrides the time source used for status evaluation.
func (s *Service) SetClock(now func() time.Time) {
	if now != nil {
		s.now = now
	}
}

// SetConcurrency bounds the number of goals refreshed at once.
func (s *Service) SetConcurrency(n int) {
	if n < 1 {
		n = 1
	}
	s.concurrency = n
}

// CreateInput holds the fields accepted when creating a goal.
type CreateInput struct {
	Title           string           `json:"title"`
	Description     string           `json:"description"`
	Type            models.GoalType  `json:"type"`
	TargetValue     decimal.Decimal  `json:"target_value"`
	CurrentValue    *decimal.Decimal `json:"current_value,omitempty"`
	StartDate       time.Time        `json:"start_date"`
	EndDate         time.Time        `json:"end_date"`
	TradingSystemID *string          `json:"trading_system_id,omitempty"`
}

func (in CreateInput) Validate() error {
	if strings.TrimSpace(in.Title) == "" {
		return core.Invalid("title is required")
	}
	if !in.Type.Valid() {
		return core.Invalid("unknown goal type %q", in.Type)
	}
	return validateWindow(in.StartDate, in.EndDate)
}

// UpdateInput is a partial update. Nil fields are left unchanged; an empty
// TradingSystemID detaches the goal from its system.
type UpdateInput struct {
	Title           *string          `json:"title,omitempty"`
	Description     *string          `json:"description,omitempty"`
	Type            *models.GoalType `json:"type,omitempty"`
	TargetValue     *decimal.Decimal `json:"target_value,omitempty"`
	StartDate       *time.Time       `json:"start_date,omitempty"`
	EndDate         *time.Time       `json:"end_date,omitempty"`
	TradingSystemID *string          `json:"trading_system_id,omitempty"`
}

func validateWindow(start, end time.Time) error {
	if start.IsZero() || end.IsZero() {
		return core.Invalid("start_date and end_date are required")
	}
	if end.Before(start) {
		return core.Invalid("end_date must not be before start_date")
	}
	return nil
}

// Create stores a new goal in progress with value 0 or the supplied value.
func (s *Service) Create(ctx context.Context, in CreateInput) (*models.Goal, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}
	g := &models.Goal{
		Title:           strings.TrimSpace(in.Title),
		Description:     in.Description,
		Type:            in.Type,
		TargetValue:     models.Quantize(in.TargetValue),
		Status:          models.GoalInProgress,
		StartDate:       in.StartDate,
		EndDate:         in.EndDate,
		TradingSystemID: normalizeID(in.TradingSystemID),
	}
	if in.CurrentValue != nil {
		g.CurrentValue = models.Quantize(*in.CurrentValue)
	}
	if err := s.store.CreateGoal(ctx, g); err != nil {
		return nil, err
	}
	s.logger.Info("goal created",
		zap.String("goal_id", g.ID),
		zap.String("type", string(g.Type)),
		zap.String("target", g.TargetValue.String()),
	)
	return g, nil
}

// Get returns one goal.
func (s *Service) Get(ctx context.Context, id string) (*models.Goal, error) {
	return s.store.GetGoal(ctx, id)
}

// List returns goals, optionally filtered by status.
func (s *Service) List(ctx context.Context, status *models.GoalStatus) ([]models.Goal, error) {
	if status != nil && !status.Valid() {
		return nil, core.Invalid("unknown goal status %q", *status)
	}
	return s.store.ListGoals(ctx, repository.ListGoalsParams{Status: status})
}

// Update applies a partial update. When the target or the deadline changes
// the status is re-evaluated against the stored current value.
func (s *Service) Update(ctx context.Context, id string, in UpdateInput) (*models.Goal, error) {
	g, err := s.store.GetGoal(ctx, id)
	if err != nil {
		return nil, err
	}

	reevaluate := false
	if in.Title != nil {
		if strings.TrimSpace(*in.Title) == "" {
			return nil, core.Invalid("title is required")
		}
		g.Title = strings.TrimSpace(*in.Title)
	}
	if in.Description != nil {
		g.Description = *in.Description
	}
	if in.Type != nil {
		if !in.Type.Valid() {
			return nil, core.Invalid("unknown goal type %q", *in.Type)
		}
		g.Type = *in.Type
	}
	if in.TargetValue != nil {
		target := models.Quantize(*in.TargetValue)
		reevaluate = reevaluate || !target.Equal(g.TargetValue)
		g.TargetValue = target
	}
	if in.StartDate != nil {
		g.StartDate = *in.StartDate
	}
	if in.EndDate != nil {
		reevaluate = reevaluate || !in.EndDate.Equal(g.EndDate)
		g.EndDate = *in.EndDate
	}
	if in.TradingSystemID != nil {
		g.TradingSystemID = normalizeID(in.TradingSystemID)
		g.TradingSystem = nil
	}
	if err := validateWindow(g.StartDate, g.EndDate); err != nil {
		return nil, err
	}

	if err := s.store.UpdateGoal(ctx, g); err != nil {
		return nil, err
	}
	if reevaluate {
		return s.UpdateProgress(ctx, id, g.CurrentValue)
	}
	return g, nil
}

// Delete removes a goal. Backtests are untouched.
func (s *Service) Delete(ctx context.Context, id string) error {
	if err := s.store.DeleteGoal(ctx, id); err != nil {
		return err
	}
	s.logger.Info("goal deleted", zap.String("goal_id", id))
	return nil
}

// UpdateProgress persists value and the status derived from it now.
func (s *Service) UpdateProgress(ctx context.Context, id string, value decimal.Decimal) (*models.Goal, error) {
	g, err := s.store.GetGoal(ctx, id)
	if err != nil {
		return nil, err
	}
	event, err := s.applyProgress(ctx, g, value)
	if err != nil {
		return nil, err
	}
	s.notify(ctx, event)
	return g, nil
}

// Recompute reselects the goal's backtests and updates its progress.
func (s *Service) Recompute(ctx context.Context, id string) (*models.Goal, error) {
	g, err := s.store.GetGoal(ctx, id)
	if err != nil {
		return nil, err
	}
	event, err := s.recompute(ctx, g)
	if err != nil {
		return nil, err
	}
	s.notify(ctx, event)
	return g, nil
}

// SelectRecords returns the backtests whose own window lies inside the
// goal's window, restricted to the goal's system when it has one.
func (s *Service) SelectRecords(ctx context.Context, g *models.Goal) ([]models.Backtest, error) {
	start, end := g.StartDate, g.EndDate
	return s.store.ListBacktests(ctx, repository.ListBacktestsParams{
		TradingSystemID: g.TradingSystemID,
		From:            &start,
		To:              &end,
	})
}

func (s *Service) recompute(ctx context.Context, g *models.Goal) (*notifier.GoalEvent, error) {
	records, err := s.SelectRecords(ctx, g)
	if err != nil {
		return nil, err
	}
	value, err := Reduce(g, records)
	if err != nil {
		return nil, err
	}
	s.logger.Debug("goal reduced",
		zap.String("goal_id", g.ID),
		zap.Int("records", len(records)),
		zap.String("value", value.String()),
	)
	return s.applyProgress(ctx, g, value)
}

// applyProgress writes value and status, updates g in place, and returns a
// transition event when the goal left in_progress.
func (s *Service) applyProgress(ctx context.Context, g *models.Goal, value decimal.Decimal) (*notifier.GoalEvent, error) {
	now := s.now()
	value = models.Quantize(value)
	status := Evaluate(value, g.TargetValue, g.EndDate, now)
	if err := s.store.UpdateGoalProgress(ctx, g.ID, value, status); err != nil {
		return nil, err
	}
	s.metrics.RecordGoalRecompute(string(status))

	previous := g.Status
	g.CurrentValue = value
	g.Status = status

	if previous != models.GoalInProgress || status == models.GoalInProgress {
		return nil, nil
	}
	s.logger.Info("goal status changed",
		zap.String("goal_id", g.ID),
		zap.String("from", string(previous)),
		zap.String("to", string(status)),
		zap.String("value", value.String()),
	)
	return &notifier.GoalEvent{
		GoalID:       g.ID,
		Title:        g.Title,
		GoalType:     string(g.Type),
		FromStatus:   string(previous),
		ToStatus:     string(status),
		CurrentValue: value.String(),
		TargetValue:  g.TargetValue.String(),
		EndDate:      g.EndDate,
		OccurredAt:   now,
	}, nil
}

func (s *Service) notify(ctx context.Context, event *notifier.GoalEvent) {
	if event == nil || s.notifiers.Len() == 0 {
		return
	}
	for name, err := range s.notifiers.NotifyAll(ctx, *event) {
		s.logger.Error("notifier failed",
			zap.String("notifier", name),
			zap.String("goal_id", event.GoalID),
			zap.Error(err),
		)
	}
}

func normalizeID(id *string) *string {
	if id == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*id)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}
