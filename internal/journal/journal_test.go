package journal

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/newthinker/backtrack/internal/backtest"
	"github.com/newthinker/backtrack/internal/config"
	"github.com/newthinker/backtrack/internal/core"
	"github.com/newthinker/backtrack/internal/db"
	"github.com/newthinker/backtrack/internal/models"
	gormrepository "github.com/newthinker/backtrack/internal/repository/gorm"
)

func newTestService(t *testing.T) *Service {
	t.Helper()
	d, err := db.Open(config.DatabaseConfig{Driver: "sqlite", DSN: ":memory:"}, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close(d) })
	require.NoError(t, db.AutoMigrate(d))
	return NewService(gormrepository.New(d.Gorm), nil)
}

func nd(s string) decimal.NullDecimal {
	return decimal.NewNullDecimal(decimal.RequireFromString(s))
}

var (
	jan1 = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	feb1 = time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)
	mar1 = time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
)

func TestSystems_CRUD(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t)

	_, err := svc.CreateSystem(ctx, SystemInput{})
	assert.True(t, errors.Is(err, core.ErrValidation))

	_, err = svc.CreateSystem(ctx, SystemInput{Name: "x", Status: "retired"})
	assert.True(t, errors.Is(err, core.ErrValidation))

	tag, err := svc.CreateTag(ctx, TagInput{Name: "swing"})
	require.NoError(t, err)
	assert.Equal(t, defaultTagColor, tag.Color)

	sys, err := svc.CreateSystem(ctx, SystemInput{
		Name:       "Turtle",
		Market:     "crypto",
		EntryRules: []string{"20-day breakout", " "},
		TagIDs:     []string{tag.ID, tag.ID},
	})
	require.NoError(t, err)
	assert.Equal(t, models.SystemActive, sys.Status)
	assert.Equal(t, []string{"20-day breakout"}, Rules(sys.EntryRules))

	_, err = svc.CreateSystem(ctx, SystemInput{Name: "Turtle"})
	assert.True(t, errors.Is(err, core.ErrConflict))

	_, err = svc.CreateSystem(ctx, SystemInput{Name: "Other", TagIDs: []string{"nope"}})
	assert.True(t, errors.Is(err, core.ErrValidation))

	updated, err := svc.UpdateSystem(ctx, sys.ID, SystemInput{Name: "Turtle v2", Status: models.SystemPaused})
	require.NoError(t, err)
	assert.Equal(t, "Turtle v2", updated.Name)
	assert.Equal(t, models.SystemPaused, updated.Status)
	assert.Empty(t, updated.Tags)

	paused := models.SystemPaused
	list, err := svc.ListSystems(ctx, &paused)
	require.NoError(t, err)
	assert.Len(t, list, 1)

	require.NoError(t, svc.DeleteSystem(ctx, sys.ID))
	_, err = svc.GetSystem(ctx, sys.ID)
	assert.True(t, core.IsNotFound(err))
}

func TestBacktests_ValidationAndDerivation(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t)

	neg := -1
	tests := []struct {
		name string
		in   BacktestInput
	}{
		{"missing name", BacktestInput{StartDate: jan1, EndDate: feb1}},
		{"missing dates", BacktestInput{Name: "x"}},
		{"inverted", BacktestInput{Name: "x", StartDate: feb1, EndDate: jan1}},
		{"negative trades", BacktestInput{Name: "x", StartDate: jan1, EndDate: feb1, TotalTrades: &neg}},
		{"win rate over 100", BacktestInput{Name: "x", StartDate: jan1, EndDate: feb1, WinRate: nd("101")}},
		{"split exceeds total", BacktestInput{Name: "x", StartDate: jan1, EndDate: feb1,
			TotalTrades: models.IntPtr(10), WinningTrades: models.IntPtr(6), LosingTrades: models.IntPtr(5)}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.CreateBacktest(ctx, tt.in)
			assert.True(t, errors.Is(err, core.ErrValidation), "got %v", err)
		})
	}

	_, err := svc.CreateBacktest(ctx, BacktestInput{Name: "x", StartDate: jan1, EndDate: feb1, TradingSystemID: ptr("ghost")})
	assert.True(t, errors.Is(err, core.ErrValidation))

	b, err := svc.CreateBacktest(ctx, BacktestInput{
		Name:           "BTC daily",
		Symbol:         " btcusdt ",
		StartDate:      jan1,
		EndDate:        feb1,
		InitialCapital: nd("10000"),
		FinalCapital:   nd("11250.5"),
		TotalTrades:    models.IntPtr(40),
		WinningTrades:  models.IntPtr(22),
	})
	require.NoError(t, err)
	assert.Equal(t, "BTCUSDT", b.Symbol)
	assert.True(t, b.NetProfit.Decimal.Equal(decimal.RequireFromString("1250.5")))
	assert.True(t, b.WinRate.Decimal.Equal(decimal.RequireFromString("55")))
	assert.False(t, b.ProfitFactor.Valid)
}

func ptr(s string) *string { return &s }

func TestBacktests_FromTrades(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t)

	var trades []backtest.Trade
	for i, pnl := range []string{"100", "-220", "110", "210"} {
		exit := jan1.AddDate(0, 0, i+1)
		trades = append(trades, backtest.Trade{
			Side:      backtest.Long,
			EntryTime: jan1,
			ExitTime:  &exit,
			PnL:       nd(pnl),
		})
	}
	// open trades are ignored
	trades = append(trades, backtest.Trade{Side: backtest.Long, EntryTime: jan1, PnL: nd("5000")})

	b, err := svc.CreateBacktest(ctx, BacktestInput{
		Name:           "from log",
		StartDate:      jan1,
		EndDate:        feb1,
		InitialCapital: nd("1000"),
		SharpeRatio:    nd("1.5"),
		Trades:         trades,
	})
	require.NoError(t, err)
	require.NotNil(t, b.TotalTrades)
	assert.Equal(t, 4, *b.TotalTrades)
	assert.Equal(t, 3, *b.WinningTrades)
	assert.Equal(t, 1, *b.LosingTrades)
	assert.True(t, b.WinRate.Decimal.Equal(decimal.NewFromInt(75)), "win rate %s", b.WinRate.Decimal)
	assert.True(t, b.NetProfit.Decimal.Equal(decimal.NewFromInt(200)))
	assert.True(t, b.FinalCapital.Decimal.Equal(decimal.NewFromInt(1200)))
	assert.True(t, b.MaxDrawdown.Decimal.Equal(decimal.NewFromInt(20)), "drawdown %s", b.MaxDrawdown.Decimal)
	assert.True(t, b.SharpeRatio.Decimal.Equal(decimal.RequireFromString("1.5")), "explicit value kept")
	assert.Equal(t, 2, *b.MaxConsecutiveWins)

	bad := []backtest.Trade{{Side: "sideways", EntryTime: jan1}}
	_, err = svc.CreateBacktest(ctx, BacktestInput{Name: "bad", StartDate: jan1, EndDate: feb1, Trades: bad})
	assert.True(t, errors.Is(err, core.ErrValidation))
}

func TestSystemStats(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t)

	sys, err := svc.CreateSystem(ctx, SystemInput{Name: "Grid"})
	require.NoError(t, err)

	_, err = svc.CreateBacktest(ctx, BacktestInput{
		TradingSystemID: &sys.ID, Name: "a", StartDate: jan1, EndDate: feb1,
		NetProfit: nd("300"), WinRate: nd("40"), MaxDrawdown: nd("5"), TotalTrades: models.IntPtr(10),
		SharpeRatio: nd("1.2"), AvgWin: nd("200"), AvgLoss: nd("100"), MaxConsecutiveWins: models.IntPtr(3),
	})
	require.NoError(t, err)
	_, err = svc.CreateBacktest(ctx, BacktestInput{
		TradingSystemID: &sys.ID, Name: "b", StartDate: feb1, EndDate: mar1,
		NetProfit: nd("-100"), WinRate: nd("60"), MaxDrawdown: nd("12"), TotalTrades: models.IntPtr(20),
		MaxConsecutiveWins: models.IntPtr(7),
	})
	require.NoError(t, err)
	_, err = svc.CreateBacktest(ctx, BacktestInput{Name: "unrelated", StartDate: jan1, EndDate: feb1, NetProfit: nd("9999")})
	require.NoError(t, err)

	st, err := svc.SystemStats(ctx, sys.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, st.Backtests)
	assert.True(t, st.NetProfit.Equal(decimal.NewFromInt(200)), "net %s", st.NetProfit)
	assert.True(t, st.TotalTrades.Equal(decimal.NewFromInt(30)))
	assert.True(t, st.AvgWinRate.Equal(decimal.NewFromInt(50)))
	assert.True(t, st.WorstDrawdown.Equal(decimal.NewFromInt(12)))
	assert.True(t, st.BestStreak.Equal(decimal.NewFromInt(7)))
	assert.True(t, st.RiskReward.Equal(decimal.NewFromInt(2)))
	assert.True(t, st.AvgSharpe.Decimal.Equal(decimal.RequireFromString("1.2")))
	assert.True(t, st.BestNetProfit.Decimal.Equal(decimal.NewFromInt(300)))
	assert.True(t, st.WorstNetProfit.Decimal.Equal(decimal.NewFromInt(-100)))
	// Jan 1 to Mar 1 is 60 days, two months.
	assert.True(t, st.MonthlyReturn.Equal(decimal.NewFromInt(100)), "monthly %s", st.MonthlyReturn)

	_, err = svc.SystemStats(ctx, "missing")
	assert.True(t, core.IsNotFound(err))
}

func TestComputeStats_Empty(t *testing.T) {
	st, err := ComputeStats("s", nil)
	require.NoError(t, err)
	assert.Equal(t, 0, st.Backtests)
	assert.Nil(t, st.FirstStart)
	assert.True(t, st.NetProfit.IsZero())
}

func TestNotes_LinksAndSearch(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t)

	b, err := svc.CreateBacktest(ctx, BacktestInput{Name: "bt", StartDate: jan1, EndDate: feb1})
	require.NoError(t, err)

	_, err = svc.CreateNote(ctx, NoteInput{Title: "  "})
	assert.True(t, errors.Is(err, core.ErrValidation))

	_, err = svc.CreateNote(ctx, NoteInput{Title: "x", BacktestID: ptr("ghost")})
	assert.True(t, errors.Is(err, core.ErrValidation))

	n, err := svc.CreateNote(ctx, NoteInput{Title: "Slippage", Content: "Fills were 2 ticks worse", BacktestID: &b.ID})
	require.NoError(t, err)

	found, err := svc.ListNotes(ctx, NoteFilter{BacktestID: b.ID})
	require.NoError(t, err)
	require.Len(t, found, 1)

	found, err = svc.ListNotes(ctx, NoteFilter{Query: "ticks"})
	require.NoError(t, err)
	require.Len(t, found, 1)

	updated, err := svc.UpdateNote(ctx, n.ID, NoteInput{Title: "Slippage", Pinned: true})
	require.NoError(t, err)
	assert.True(t, updated.Pinned)
	assert.Nil(t, updated.BacktestID)

	require.NoError(t, svc.DeleteNote(ctx, n.ID))
}

func TestTemplates_Validation(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t)

	_, err := svc.CreateTemplate(ctx, TemplateInput{Name: "x", Category: "journal"})
	assert.True(t, errors.Is(err, core.ErrValidation))

	_, err = svc.CreateTemplate(ctx, TemplateInput{Name: "x", Category: models.TemplateNote, Content: json.RawMessage(`[1,2]`)})
	assert.True(t, errors.Is(err, core.ErrValidation))

	tpl, err := svc.CreateTemplate(ctx, TemplateInput{Name: "Empty", Category: models.TemplateSystem})
	require.NoError(t, err)
	assert.JSONEq(t, `{}`, string(tpl.Content))

	cat := models.TemplateSystem
	list, err := svc.ListTemplates(ctx, &cat)
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestTags_Validation(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t)

	_, err := svc.CreateTag(ctx, TagInput{Name: "x", Color: "red"})
	assert.True(t, errors.Is(err, core.ErrValidation))

	tag, err := svc.CreateTag(ctx, TagInput{Name: "scalp", Color: "#FF0000"})
	require.NoError(t, err)
	assert.Equal(t, "#ff0000", tag.Color)

	_, err = svc.CreateTag(ctx, TagInput{Name: "scalp"})
	assert.True(t, errors.Is(err, core.ErrConflict))

	renamed, err := svc.UpdateTag(ctx, tag.ID, TagInput{Name: "scalping", Color: "#00ff00"})
	require.NoError(t, err)
	assert.Equal(t, "scalping", renamed.Name)
}

func TestSummary(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t)

	_, err := svc.CreateSystem(ctx, SystemInput{Name: "One"})
	require.NoError(t, err)
	for i := 0; i < 7; i++ {
		_, err := svc.CreateBacktest(ctx, BacktestInput{Name: "bt", StartDate: jan1, EndDate: feb1})
		require.NoError(t, err)
	}
	_, err = svc.CreateNote(ctx, NoteInput{Title: "pinned", Pinned: true})
	require.NoError(t, err)

	sum, err := svc.Summary(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, sum.Systems)
	assert.Equal(t, int64(7), sum.Backtests)
	assert.Len(t, sum.RecentBacktests, 5)
	assert.Len(t, sum.PinnedNotes, 1)
	assert.Equal(t, 0, sum.GoalsByStatus[models.GoalInProgress])
}
