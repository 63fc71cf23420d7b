// Package repository declares the persistence boundary for the journal.
package repository

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/newthinker/backtrack/internal/models"
)

// GoalRepository persists goals. UpdateGoal never touches current value or
// status; those change only through UpdateGoalProgress.
type GoalRepository interface {
	CreateGoal(ctx context.Context, item *models.Goal) error
	GetGoal(ctx context.Context, id string) (*models.Goal, error)
	ListGoals(ctx context.Context, params ListGoalsParams) ([]models.Goal, error)
	UpdateGoal(ctx context.Context, item *models.Goal) error
	UpdateGoalProgress(ctx context.Context, id string, value decimal.Decimal, status models.GoalStatus) error
	DeleteGoal(ctx context.Context, id string) error
}

type BacktestRepository interface {
	CreateBacktest(ctx context.Context, item *models.Backtest) error
	GetBacktest(ctx context.Context, id string) (*models.Backtest, error)
	ListBacktests(ctx context.Context, params ListBacktestsParams) ([]models.Backtest, error)
	CountBacktests(ctx context.Context, params ListBacktestsParams) (int64, error)
	UpdateBacktest(ctx context.Context, item *models.Backtest) error
	DeleteBacktest(ctx context.Context, id string) error
}

type SystemRepository interface {
	CreateSystem(ctx context.Context, item *models.TradingSystem) error
	GetSystem(ctx context.Context, id string) (*models.TradingSystem, error)
	ListSystems(ctx context.Context, params ListSystemsParams) ([]models.TradingSystem, error)
	UpdateSystem(ctx context.Context, item *models.TradingSystem) error
	// DeleteSystem detaches backtests, goals and notes before removing the row.
	DeleteSystem(ctx context.Context, id string) error
}

type NoteRepository interface {
	CreateNote(ctx context.Context, item *models.Note) error
	GetNote(ctx context.Context, id string) (*models.Note, error)
	ListNotes(ctx context.Context, params ListNotesParams) ([]models.Note, error)
	UpdateNote(ctx context.Context, item *models.Note) error
	DeleteNote(ctx context.Context, id string) error
}

type TemplateRepository interface {
	CreateTemplate(ctx context.Context, item *models.Template) error
	GetTemplate(ctx context.Context, id string) (*models.Template, error)
	ListTemplates(ctx context.Context, params ListTemplatesParams) ([]models.Template, error)
	UpdateTemplate(ctx context.Context, item *models.Template) error
	DeleteTemplate(ctx context.Context, id string) error
}

type TagRepository interface {
	CreateTag(ctx context.Context, item *models.Tag) error
	GetTag(ctx context.Context, id string) (*models.Tag, error)
	ListTags(ctx context.Context) ([]models.Tag, error)
	ListTagsByIDs(ctx context.Context, ids []string) ([]models.Tag, error)
	UpdateTag(ctx context.Context, item *models.Tag) error
	DeleteTag(ctx context.Context, id string) error
}

// Repository is the full store used by the services and the CLI.
type Repository interface {
	GoalRepository
	BacktestRepository
	SystemRepository
	NoteRepository
	TemplateRepository
	TagRepository
}

type ListGoalsParams struct {
	Status          *models.GoalStatus
	TradingSystemID *string
}

// ListBacktestsParams filters backtests. From and To bound the record's own
// window: start_date >= From and end_date <= To.
type ListBacktestsParams struct {
	TradingSystemID *string
	Symbol          string
	TagID           string
	From            *time.Time
	To              *time.Time
	Limit           int
	Offset          int
}

type ListSystemsParams struct {
	Status *models.SystemStatus
}

type ListNotesParams struct {
	TradingSystemID *string
	BacktestID      *string
	PinnedOnly      bool
	Query           string
	Limit           int
	Offset          int
}

type ListTemplatesParams struct {
	Category *models.TemplateCategory
}
