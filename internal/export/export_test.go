package export

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/newthinker/backtrack/internal/config"
	"github.com/newthinker/backtrack/internal/core"
	"github.com/newthinker/backtrack/internal/db"
	"github.com/newthinker/backtrack/internal/goal"
	"github.com/newthinker/backtrack/internal/journal"
	"github.com/newthinker/backtrack/internal/models"
	gormrepository "github.com/newthinker/backtrack/internal/repository/gorm"
	"github.com/newthinker/backtrack/internal/storage/archive"
)

func newExporter(t *testing.T) (*Exporter, *journal.Service, *goal.Service, archive.Storage) {
	t.Helper()
	d, err := db.Open(config.DatabaseConfig{Driver: "sqlite", DSN: ":memory:"}, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close(d) })
	require.NoError(t, db.AutoMigrate(d))

	store := gormrepository.New(d.Gorm)
	fs, err := archive.NewLocalFS(t.TempDir())
	require.NoError(t, err)

	e := NewExporter(store, fs, nil)
	e.SetClock(func() time.Time { return time.Date(2024, 6, 1, 23, 30, 0, 0, time.FixedZone("X", -3*3600)) })
	return e, journal.NewService(store, nil), goal.NewService(store, nil), fs
}

func TestPathFor(t *testing.T) {
	ts := time.Date(2024, 6, 1, 23, 30, 0, 0, time.FixedZone("X", -3*3600))
	assert.Equal(t, "exports/2024-06-02/snapshot.json", PathFor(ts))
}

func TestExport_RoundTrip(t *testing.T) {
	e, js, gs, _ := newExporter(t)
	ctx := context.Background()

	sys, err := js.CreateSystem(ctx, journal.SystemInput{Name: "Trend", EntryRules: []string{"breakout"}})
	require.NoError(t, err)
	_, err = js.CreateBacktest(ctx, journal.BacktestInput{
		TradingSystemID: &sys.ID,
		Name:            "bt",
		StartDate:       time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		EndDate:         time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC),
		NetProfit:       models.NullDec(125.5),
	})
	require.NoError(t, err)
	_, err = gs.Create(ctx, goal.CreateInput{
		Title:       "pf",
		Type:        models.GoalProfitFactor,
		TargetValue: decimal.NewFromFloat(1.5),
		StartDate:   time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		EndDate:     time.Date(2024, 12, 31, 0, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)
	_, err = js.CreateNote(ctx, journal.NoteInput{Title: "n"})
	require.NoError(t, err)

	p, snap, err := e.Export(ctx)
	require.NoError(t, err)
	assert.Equal(t, "exports/2024-06-02/snapshot.json", p)
	assert.Equal(t, map[string]int{
		"systems": 1, "backtests": 1, "goals": 1, "notes": 1, "templates": 0, "tags": 0,
	}, snap.Counts())

	loaded, err := e.Load(ctx, p)
	require.NoError(t, err)
	assert.Equal(t, Version, loaded.Version)
	require.Len(t, loaded.Backtests, 1)
	assert.True(t, loaded.Backtests[0].NetProfit.Decimal.Equal(decimal.NewFromFloat(125.5)))
	assert.Equal(t, []string{"breakout"}, journal.Rules(loaded.Systems[0].EntryRules))

	paths, err := e.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{p}, paths)
}

func TestList_NewestFirst(t *testing.T) {
	e, _, _, fs := newExporter(t)
	ctx := context.Background()

	require.NoError(t, fs.Write(ctx, "exports/2024-05-01/snapshot.json", []byte("{}")))
	require.NoError(t, fs.Write(ctx, "exports/2024-05-03/snapshot.json", []byte("{}")))
	require.NoError(t, fs.Write(ctx, "exports/2024-05-02/notes.txt", []byte("x")))

	paths, err := e.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"exports/2024-05-03/snapshot.json", "exports/2024-05-01/snapshot.json"}, paths)
}

func TestLoad_Errors(t *testing.T) {
	e, _, _, fs := newExporter(t)
	ctx := context.Background()

	_, err := e.Load(ctx, "exports/1999-01-01/snapshot.json")
	assert.True(t, core.IsNotFound(err))

	require.NoError(t, fs.Write(ctx, "bad.json", []byte("not json")))
	_, err = e.Load(ctx, "bad.json")
	assert.ErrorIs(t, err, core.ErrValidation)

	require.NoError(t, fs.Write(ctx, "future.json", []byte(`{"version": 99}`)))
	_, err = e.Load(ctx, "future.json")
	assert.ErrorIs(t, err, core.ErrValidation)
}
