package gormrepository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/newthinker/backtrack/internal/config"
	"github.com/newthinker/backtrack/internal/core"
	"github.com/newthinker/backtrack/internal/db"
	"github.com/newthinker/backtrack/internal/models"
	"github.com/newthinker/backtrack/internal/repository"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	d, err := db.Open(config.DatabaseConfig{Driver: "sqlite", DSN: ":memory:"}, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close(d) })
	require.NoError(t, db.AutoMigrate(d))
	return New(d.Gorm)
}

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestStore_GoalLifecycle(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	g := &models.Goal{
		Title:       "Hit 55% win rate",
		Type:        models.GoalWinRate,
		TargetValue: decimal.RequireFromString("55"),
		StartDate:   day(2024, 1, 1),
		EndDate:     day(2024, 12, 31),
	}
	require.NoError(t, s.CreateGoal(ctx, g))
	require.NotEmpty(t, g.ID)
	assert.Equal(t, models.GoalInProgress, g.Status)

	got, err := s.GetGoal(ctx, g.ID)
	require.NoError(t, err)
	assert.True(t, got.TargetValue.Equal(decimal.NewFromInt(55)))
	assert.True(t, got.CurrentValue.IsZero())
	assert.True(t, got.StartDate.Equal(g.StartDate))

	require.NoError(t, s.UpdateGoalProgress(ctx, g.ID, decimal.RequireFromString("57.5"), models.GoalAchieved))
	got, err = s.GetGoal(ctx, g.ID)
	require.NoError(t, err)
	assert.True(t, got.CurrentValue.Equal(decimal.RequireFromString("57.5")))
	assert.Equal(t, models.GoalAchieved, got.Status)

	// UpdateGoal leaves progress untouched.
	got.Title = "Renamed"
	got.CurrentValue = decimal.Zero
	got.Status = models.GoalFailed
	require.NoError(t, s.UpdateGoal(ctx, got))
	again, err := s.GetGoal(ctx, g.ID)
	require.NoError(t, err)
	assert.Equal(t, "Renamed", again.Title)
	assert.True(t, again.CurrentValue.Equal(decimal.RequireFromString("57.5")))
	assert.Equal(t, models.GoalAchieved, again.Status)

	status := models.GoalInProgress
	open, err := s.ListGoals(ctx, repository.ListGoalsParams{Status: &status})
	require.NoError(t, err)
	assert.Empty(t, open)

	require.NoError(t, s.DeleteGoal(ctx, g.ID))
	_, err = s.GetGoal(ctx, g.ID)
	assert.True(t, errors.Is(err, core.ErrNotFound))
}

func TestStore_NotFound(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	err := s.UpdateGoalProgress(ctx, "missing", decimal.Zero, models.GoalInProgress)
	assert.True(t, errors.Is(err, core.ErrNotFound))

	assert.True(t, errors.Is(s.DeleteGoal(ctx, "missing"), core.ErrNotFound))
	assert.True(t, errors.Is(s.DeleteBacktest(ctx, "missing"), core.ErrNotFound))
	assert.True(t, errors.Is(s.DeleteSystem(ctx, "missing"), core.ErrNotFound))
	assert.True(t, errors.Is(s.DeleteTag(ctx, "missing"), core.ErrNotFound))

	_, err = s.GetBacktest(ctx, "missing")
	assert.True(t, errors.Is(err, core.ErrNotFound))
}

func TestStore_ListBacktestsWindow(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	sys := &models.TradingSystem{Name: "Breakout"}
	require.NoError(t, s.CreateSystem(ctx, sys))

	inside := &models.Backtest{Name: "inside", TradingSystemID: &sys.ID, StartDate: day(2024, 2, 1), EndDate: day(2024, 3, 1)}
	straddle := &models.Backtest{Name: "straddle", TradingSystemID: &sys.ID, StartDate: day(2023, 12, 1), EndDate: day(2024, 2, 1)}
	other := &models.Backtest{Name: "unscoped", StartDate: day(2024, 4, 1), EndDate: day(2024, 5, 1)}
	for _, b := range []*models.Backtest{inside, straddle, other} {
		require.NoError(t, s.CreateBacktest(ctx, b))
	}

	from, to := day(2024, 1, 1), day(2024, 12, 31)
	all, err := s.ListBacktests(ctx, repository.ListBacktestsParams{From: &from, To: &to})
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "inside", all[0].Name)
	assert.Equal(t, "unscoped", all[1].Name)

	scoped, err := s.ListBacktests(ctx, repository.ListBacktestsParams{From: &from, To: &to, TradingSystemID: &sys.ID})
	require.NoError(t, err)
	require.Len(t, scoped, 1)
	assert.Equal(t, inside.ID, scoped[0].ID)
	require.NotNil(t, scoped[0].TradingSystem)
	assert.Equal(t, "Breakout", scoped[0].TradingSystem.Name)

	n, err := s.CountBacktests(ctx, repository.ListBacktestsParams{})
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)
}

func TestStore_ListBacktestsWindowIsInclusive(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	shanghai := time.FixedZone("UTC+8", 8*60*60)
	from := time.Date(2024, 1, 1, 8, 0, 0, 0, shanghai)
	to := time.Date(2024, 12, 31, 8, 0, 0, 0, shanghai)

	edge := &models.Backtest{Name: "edge", StartDate: day(2024, 1, 1), EndDate: day(2024, 12, 31), TotalTrades: models.IntPtr(5)}
	early := &models.Backtest{Name: "early", StartDate: day(2024, 1, 1).Add(-time.Second), EndDate: day(2024, 6, 1)}
	late := &models.Backtest{Name: "late", StartDate: day(2024, 6, 1), EndDate: day(2024, 12, 31).Add(time.Second)}
	for _, b := range []*models.Backtest{edge, early, late} {
		require.NoError(t, s.CreateBacktest(ctx, b))
	}

	got, err := s.ListBacktests(ctx, repository.ListBacktestsParams{From: &from, To: &to})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, edge.ID, got[0].ID)
	assert.Equal(t, 5, *got[0].TotalTrades)
}

func TestStore_WithoutDatabase(t *testing.T) {
	ctx := context.Background()

	for _, s := range []*Store{nil, New(nil)} {
		_, err := s.GetGoal(ctx, "g1")
		assert.True(t, errors.Is(err, core.ErrStoreFailed), "GetGoal: %v", err)

		_, err = s.ListGoals(ctx, repository.ListGoalsParams{})
		assert.True(t, errors.Is(err, core.ErrStoreFailed), "ListGoals: %v", err)

		_, err = s.ListBacktests(ctx, repository.ListBacktestsParams{})
		assert.True(t, errors.Is(err, core.ErrStoreFailed), "ListBacktests: %v", err)

		_, err = s.GetBacktest(ctx, "b1")
		assert.True(t, errors.Is(err, core.ErrStoreFailed), "GetBacktest: %v", err)

		err = s.UpdateGoalProgress(ctx, "g1", decimal.Zero, models.GoalInProgress)
		assert.True(t, errors.Is(err, core.ErrStoreFailed), "UpdateGoalProgress: %v", err)
	}
}

func TestStore_DeleteSystemDetaches(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	tag := &models.Tag{Name: "trend", Color: "#22c55e"}
	require.NoError(t, s.CreateTag(ctx, tag))

	sys := &models.TradingSystem{Name: "Mean reversion", Tags: []models.Tag{*tag}}
	require.NoError(t, s.CreateSystem(ctx, sys))

	bt := &models.Backtest{Name: "bt", TradingSystemID: &sys.ID, StartDate: day(2024, 1, 1), EndDate: day(2024, 2, 1)}
	require.NoError(t, s.CreateBacktest(ctx, bt))
	g := &models.Goal{Title: "g", Type: models.GoalTotalTrades, TargetValue: decimal.NewFromInt(10),
		StartDate: day(2024, 1, 1), EndDate: day(2024, 12, 31), TradingSystemID: &sys.ID}
	require.NoError(t, s.CreateGoal(ctx, g))
	n := &models.Note{Title: "n", TradingSystemID: &sys.ID, BacktestID: &bt.ID}
	require.NoError(t, s.CreateNote(ctx, n))

	require.NoError(t, s.DeleteSystem(ctx, sys.ID))

	gotBT, err := s.GetBacktest(ctx, bt.ID)
	require.NoError(t, err)
	assert.Nil(t, gotBT.TradingSystemID)

	gotGoal, err := s.GetGoal(ctx, g.ID)
	require.NoError(t, err)
	assert.Nil(t, gotGoal.TradingSystemID)

	gotNote, err := s.GetNote(ctx, n.ID)
	require.NoError(t, err)
	assert.Nil(t, gotNote.TradingSystemID)
	require.NotNil(t, gotNote.BacktestID)

	// tag survives
	_, err = s.GetTag(ctx, tag.ID)
	require.NoError(t, err)

	require.NoError(t, s.DeleteBacktest(ctx, bt.ID))
	gotNote, err = s.GetNote(ctx, n.ID)
	require.NoError(t, err)
	assert.Nil(t, gotNote.BacktestID)
}

func TestStore_TagsAndConflicts(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	a := &models.Tag{Name: "alpha"}
	b := &models.Tag{Name: "beta"}
	require.NoError(t, s.CreateTag(ctx, a))
	require.NoError(t, s.CreateTag(ctx, b))

	err := s.CreateTag(ctx, &models.Tag{Name: "alpha"})
	assert.True(t, errors.Is(err, core.ErrConflict), "got %v", err)

	bt := &models.Backtest{Name: "tagged", StartDate: day(2024, 1, 1), EndDate: day(2024, 1, 31), Tags: []models.Tag{*a}}
	require.NoError(t, s.CreateBacktest(ctx, bt))

	bt.Tags = []models.Tag{*b}
	bt.WinRate = models.NullDec(61.5)
	require.NoError(t, s.UpdateBacktest(ctx, bt))

	got, err := s.GetBacktest(ctx, bt.ID)
	require.NoError(t, err)
	require.Len(t, got.Tags, 1)
	assert.Equal(t, "beta", got.Tags[0].Name)
	assert.InDelta(t, 61.5, models.Float(got.WinRate), 1e-9)

	byTag, err := s.ListBacktests(ctx, repository.ListBacktestsParams{TagID: b.ID})
	require.NoError(t, err)
	assert.Len(t, byTag, 1)

	require.NoError(t, s.DeleteTag(ctx, b.ID))
	got, err = s.GetBacktest(ctx, bt.ID)
	require.NoError(t, err)
	assert.Empty(t, got.Tags)

	tags, err := s.ListTagsByIDs(ctx, []string{a.ID, b.ID})
	require.NoError(t, err)
	require.Len(t, tags, 1)
	assert.Equal(t, "alpha", tags[0].Name)
}

func TestStore_NotesAndTemplates(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	require.NoError(t, s.CreateNote(ctx, &models.Note{Title: "Sizing", Content: "Risk 1% per trade"}))
	require.NoError(t, s.CreateNote(ctx, &models.Note{Title: "Pinned idea", Pinned: true}))

	notes, err := s.ListNotes(ctx, repository.ListNotesParams{})
	require.NoError(t, err)
	require.Len(t, notes, 2)
	assert.Equal(t, "Pinned idea", notes[0].Title)

	found, err := s.ListNotes(ctx, repository.ListNotesParams{Query: "RISK"})
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, "Sizing", found[0].Title)

	tpl := &models.Template{Name: "Daily review", Category: models.TemplateNote, Content: []byte(`{"title":"Review"}`)}
	require.NoError(t, s.CreateTemplate(ctx, tpl))
	cat := models.TemplateNote
	list, err := s.ListTemplates(ctx, repository.ListTemplatesParams{Category: &cat})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.JSONEq(t, `{"title":"Review"}`, string(list[0].Content))

	tpl.Description = "used every evening"
	require.NoError(t, s.UpdateTemplate(ctx, tpl))
	got, err := s.GetTemplate(ctx, tpl.ID)
	require.NoError(t, err)
	assert.Equal(t, "used every evening", got.Description)

	require.NoError(t, s.DeleteTemplate(ctx, tpl.ID))
	_, err = s.GetTemplate(ctx, tpl.ID)
	assert.True(t, errors.Is(err, core.ErrNotFound))
}
