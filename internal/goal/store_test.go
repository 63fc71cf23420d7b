package goal

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/newthinker/backtrack/internal/config"
	"github.com/newthinker/backtrack/internal/db"
	"github.com/newthinker/backtrack/internal/models"
	gormrepository "github.com/newthinker/backtrack/internal/repository/gorm"
)

func newSQLiteService(t *testing.T, now time.Time) (*Service, *gormrepository.Store) {
	t.Helper()
	d, err := db.Open(config.DatabaseConfig{Driver: "sqlite", DSN: ":memory:"}, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close(d) })
	require.NoError(t, db.AutoMigrate(d))

	store := gormrepository.New(d.Gorm)
	svc := NewService(store, nil)
	svc.SetClock(func() time.Time { return now })
	return svc, store
}

// assertStoredConsistent reloads the goal and checks that its persisted
// status follows from its persisted values, and that the returned goal
// matches the row.
func assertStoredConsistent(t *testing.T, store *gormrepository.Store, returned *models.Goal, now time.Time) *models.Goal {
	t.Helper()
	stored, err := store.GetGoal(context.Background(), returned.ID)
	require.NoError(t, err)
	assert.Equal(t, Evaluate(stored.CurrentValue, stored.TargetValue, stored.EndDate, now), stored.Status)
	assert.True(t, returned.CurrentValue.Equal(stored.CurrentValue),
		"returned %s, stored %s", returned.CurrentValue, stored.CurrentValue)
	assert.True(t, returned.TargetValue.Equal(stored.TargetValue),
		"returned %s, stored %s", returned.TargetValue, stored.TargetValue)
	assert.Equal(t, returned.Status, stored.Status)
	return stored
}

func TestService_RecomputeStatusMatchesStoredRow(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	svc, store := newSQLiteService(t, now)

	for i, rate := range []string{"100", "100", "0"} {
		require.NoError(t, store.CreateBacktest(ctx, &models.Backtest{
			Name:      "run",
			StartDate: jan1.AddDate(0, i, 0),
			EndDate:   jan1.AddDate(0, i+1, 0),
			WinRate:   decimal.NewNullDecimal(decimal.RequireFromString(rate)),
		}))
	}

	g, err := svc.Create(ctx, CreateInput{
		Title:       "two in three",
		Type:        models.GoalWinRate,
		TargetValue: decimal.RequireFromString("66.66666666666667"),
		StartDate:   jan1,
		EndDate:     dec31,
	})
	require.NoError(t, err)
	assert.True(t, g.TargetValue.Equal(decimal.RequireFromString("66.66666667")), "target %s", g.TargetValue)

	got, err := svc.Recompute(ctx, g.ID)
	require.NoError(t, err)
	assert.True(t, got.CurrentValue.Equal(decimal.RequireFromString("66.66666667")), "value %s", got.CurrentValue)
	assert.Equal(t, models.GoalAchieved, got.Status)

	assertStoredConsistent(t, store, got, now)
}

func TestService_UpdateProgressRoundsToStoredScale(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	svc, store := newSQLiteService(t, now)

	g, err := svc.Create(ctx, CreateInput{
		Title:       "net profit",
		Type:        models.GoalNetProfit,
		TargetValue: decimal.RequireFromString("1000"),
		StartDate:   jan1,
		EndDate:     dec31,
	})
	require.NoError(t, err)

	// 999.999999996 rounds up to the target at eight places.
	got, err := svc.UpdateProgress(ctx, g.ID, decimal.RequireFromString("999.999999996"))
	require.NoError(t, err)
	assert.True(t, got.CurrentValue.Equal(decimal.NewFromInt(1000)), "value %s", got.CurrentValue)
	assert.Equal(t, models.GoalAchieved, got.Status)

	assertStoredConsistent(t, store, got, now)
}
