package goal

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/newthinker/backtrack/internal/core"
	"github.com/newthinker/backtrack/internal/metrics"
	"github.com/newthinker/backtrack/internal/models"
	"github.com/newthinker/backtrack/internal/notifier"
	"github.com/newthinker/backtrack/internal/repository"
)

// fakeStore is an in-memory Store. Backtest fetches scoped to a system id
// listed in failSystems return an error.
type fakeStore struct {
	mu          sync.Mutex
	goals       map[string]*models.Goal
	backtests   []models.Backtest
	failSystems map[string]bool
	failUpdate  bool
	seq         int
	progress    []string
}

func newFakeStore() *fakeStore {
	return &fakeStore{goals: map[string]*models.Goal{}, failSystems: map[string]bool{}}
}

func (f *fakeStore) CreateGoal(ctx context.Context, item *models.Goal) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.seq++
	if item.ID == "" {
		item.ID = fmt.Sprintf("goal-%d", f.seq)
	}
	cp := *item
	f.goals[item.ID] = &cp
	return nil
}

func (f *fakeStore) GetGoal(ctx context.Context, id string) (*models.Goal, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	g, ok := f.goals[id]
	if !ok {
		return nil, core.ErrNotFound
	}
	cp := *g
	return &cp, nil
}

func (f *fakeStore) ListGoals(ctx context.Context, params repository.ListGoalsParams) ([]models.Goal, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.Goal
	for _, g := range f.goals {
		if params.Status != nil && g.Status != *params.Status {
			continue
		}
		out = append(out, *g)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (f *fakeStore) UpdateGoal(ctx context.Context, item *models.Goal) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	g, ok := f.goals[item.ID]
	if !ok {
		return core.ErrNotFound
	}
	cp := *item
	cp.CurrentValue = g.CurrentValue
	cp.Status = g.Status
	f.goals[item.ID] = &cp
	return nil
}

func (f *fakeStore) UpdateGoalProgress(ctx context.Context, id string, value decimal.Decimal, status models.GoalStatus) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failUpdate {
		return core.WrapError(core.ErrStoreFailed, errors.New("disk full"))
	}
	g, ok := f.goals[id]
	if !ok {
		return core.ErrNotFound
	}
	g.CurrentValue = value
	g.Status = status
	f.progress = append(f.progress, id)
	return nil
}

func (f *fakeStore) DeleteGoal(ctx context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.goals[id]; !ok {
		return core.ErrNotFound
	}
	delete(f.goals, id)
	return nil
}

func (f *fakeStore) ListBacktests(ctx context.Context, params repository.ListBacktestsParams) ([]models.Backtest, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if params.TradingSystemID != nil && f.failSystems[*params.TradingSystemID] {
		return nil, core.WrapError(core.ErrStoreFailed, errors.New("connection reset"))
	}
	var out []models.Backtest
	for _, b := range f.backtests {
		if params.From != nil && b.StartDate.Before(*params.From) {
			continue
		}
		if params.To != nil && b.EndDate.After(*params.To) {
			continue
		}
		if params.TradingSystemID != nil && (b.TradingSystemID == nil || *b.TradingSystemID != *params.TradingSystemID) {
			continue
		}
		out = append(out, b)
	}
	return out, nil
}

type recordingNotifier struct {
	mu      sync.Mutex
	single  []notifier.GoalEvent
	batches [][]notifier.GoalEvent
	fail    bool
}

func (r *recordingNotifier) Name() string                   { return "recording" }
func (r *recordingNotifier) Init(cfg notifier.Config) error { return nil }

func (r *recordingNotifier) Send(ctx context.Context, event notifier.GoalEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.single = append(r.single, event)
	if r.fail {
		return errors.New("unreachable")
	}
	return nil
}

func (r *recordingNotifier) SendBatch(ctx context.Context, events []notifier.GoalEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.batches = append(r.batches, events)
	if r.fail {
		return errors.New("unreachable")
	}
	return nil
}

var (
	fixedNow = time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC)
	jan1     = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	dec31    = time.Date(2024, 12, 31, 0, 0, 0, 0, time.UTC)
)

func newTestService(store *fakeStore) (*Service, *recordingNotifier) {
	svc := NewService(store, nil)
	svc.SetClock(func() time.Time { return fixedNow })
	svc.SetMetrics(metrics.NewRegistry())
	rec := &recordingNotifier{}
	reg := notifier.NewRegistry()
	_ = reg.Register(rec)
	svc.SetNotifiers(reg)
	return svc, rec
}

func strPtr(s string) *string { return &s }

func backtest(system *string, start, end time.Time, winRate string) models.Backtest {
	return models.Backtest{
		TradingSystemID: system,
		StartDate:       start,
		EndDate:         end,
		WinRate:         ndec(winRate),
		NetProfit:       ndec("100"),
	}
}

func TestService_CreateValidation(t *testing.T) {
	svc, _ := newTestService(newFakeStore())
	ctx := context.Background()

	tests := []struct {
		name string
		in   CreateInput
	}{
		{"missing title", CreateInput{Type: models.GoalWinRate, StartDate: jan1, EndDate: dec31}},
		{"blank title", CreateInput{Title: "   ", Type: models.GoalWinRate, StartDate: jan1, EndDate: dec31}},
		{"unknown type", CreateInput{Title: "x", Type: "alpha", StartDate: jan1, EndDate: dec31}},
		{"missing dates", CreateInput{Title: "x", Type: models.GoalWinRate}},
		{"inverted window", CreateInput{Title: "x", Type: models.GoalWinRate, StartDate: dec31, EndDate: jan1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Create(ctx, tt.in)
			require.Error(t, err)
			assert.True(t, errors.Is(err, core.ErrValidation))
		})
	}
}

func TestService_CreateStartsInProgress(t *testing.T) {
	store := newFakeStore()
	svc, _ := newTestService(store)
	ctx := context.Background()

	g, err := svc.Create(ctx, CreateInput{
		Title: " Win more ", Type: models.GoalWinRate, TargetValue: dec("55"),
		StartDate: jan1, EndDate: dec31,
	})
	require.NoError(t, err)
	assert.Equal(t, "Win more", g.Title)
	assert.Equal(t, models.GoalInProgress, g.Status)
	assert.True(t, g.CurrentValue.IsZero())

	// A caller-supplied value above target still starts in progress.
	seeded := dec("80")
	g2, err := svc.Create(ctx, CreateInput{
		Title: "seeded", Type: models.GoalWinRate, TargetValue: dec("55"), CurrentValue: &seeded,
		StartDate: jan1, EndDate: dec31, TradingSystemID: strPtr(""),
	})
	require.NoError(t, err)
	assert.Equal(t, models.GoalInProgress, g2.Status)
	assert.True(t, g2.CurrentValue.Equal(seeded))
	assert.Nil(t, g2.TradingSystemID)
}

func TestService_RecomputeSelectsWindowAndSystem(t *testing.T) {
	store := newFakeStore()
	sys := strPtr("sys-a")
	store.backtests = []models.Backtest{
		backtest(sys, jan1.AddDate(0, 1, 0), jan1.AddDate(0, 2, 0), "40"),
		backtest(sys, jan1.AddDate(0, 3, 0), jan1.AddDate(0, 4, 0), "60"),
		backtest(strPtr("sys-b"), jan1.AddDate(0, 1, 0), jan1.AddDate(0, 2, 0), "90"),
		backtest(sys, jan1.AddDate(-1, 0, 0), jan1.AddDate(0, 1, 0), "10"),   // starts before window
		backtest(sys, dec31.AddDate(0, 0, -5), dec31.AddDate(0, 0, 5), "10"), // ends after window
	}
	svc, _ := newTestService(store)
	ctx := context.Background()

	scoped, err := svc.Create(ctx, CreateInput{
		Title: "scoped", Type: models.GoalWinRate, TargetValue: dec("55"),
		StartDate: jan1, EndDate: dec31, TradingSystemID: sys,
	})
	require.NoError(t, err)
	all, err := svc.Create(ctx, CreateInput{
		Title: "all", Type: models.GoalWinRate, TargetValue: dec("55"),
		StartDate: jan1, EndDate: dec31,
	})
	require.NoError(t, err)

	got, err := svc.Recompute(ctx, scoped.ID)
	require.NoError(t, err)
	assert.True(t, got.CurrentValue.Equal(dec("50")), "got %s", got.CurrentValue)
	assert.Equal(t, models.GoalInProgress, got.Status)

	got, err = svc.Recompute(ctx, all.ID)
	require.NoError(t, err)
	assert.True(t, got.CurrentValue.Equal(dec("63.33333333")), "got %s", got.CurrentValue)
	assert.Equal(t, models.GoalAchieved, got.Status)

	stored, err := store.GetGoal(ctx, all.ID)
	require.NoError(t, err)
	assert.Equal(t, models.GoalAchieved, stored.Status)
}

func TestService_RecomputeEmptySetIsZero(t *testing.T) {
	store := newFakeStore()
	svc, _ := newTestService(store)
	ctx := context.Background()

	seeded := dec("12")
	g, err := svc.Create(ctx, CreateInput{
		Title: "trades", Type: models.GoalTotalTrades, TargetValue: dec("100"), CurrentValue: &seeded,
		StartDate: jan1, EndDate: dec31,
	})
	require.NoError(t, err)

	got, err := svc.Recompute(ctx, g.ID)
	require.NoError(t, err)
	assert.True(t, got.CurrentValue.IsZero())
	assert.Equal(t, models.GoalInProgress, got.Status)
}

func TestService_RecomputeNotFound(t *testing.T) {
	svc, _ := newTestService(newFakeStore())
	_, err := svc.Recompute(context.Background(), "nope")
	assert.True(t, errors.Is(err, core.ErrNotFound))

	_, err = svc.UpdateProgress(context.Background(), "nope", dec("1"))
	assert.True(t, errors.Is(err, core.ErrNotFound))
}

func TestService_RecomputeStoreFailure(t *testing.T) {
	store := newFakeStore()
	svc, _ := newTestService(store)
	ctx := context.Background()

	g, err := svc.Create(ctx, CreateInput{Title: "x", Type: models.GoalNetProfit, TargetValue: dec("1"), StartDate: jan1, EndDate: dec31})
	require.NoError(t, err)

	store.failUpdate = true
	_, err = svc.Recompute(ctx, g.ID)
	assert.True(t, errors.Is(err, core.ErrStoreFailed))
}

func TestService_UpdateProgressFailsPastDeadline(t *testing.T) {
	store := newFakeStore()
	svc, rec := newTestService(store)
	ctx := context.Background()

	g, err := svc.Create(ctx, CreateInput{
		Title: "H1 profit", Type: models.GoalNetProfit, TargetValue: dec("1000"),
		StartDate: jan1, EndDate: jan1.AddDate(0, 3, 0),
	})
	require.NoError(t, err)

	got, err := svc.UpdateProgress(ctx, g.ID, dec("999"))
	require.NoError(t, err)
	assert.Equal(t, models.GoalFailed, got.Status)

	require.Len(t, rec.single, 1)
	assert.Equal(t, "failed", rec.single[0].ToStatus)
	assert.Equal(t, "in_progress", rec.single[0].FromStatus)
	assert.Equal(t, "999", rec.single[0].CurrentValue)

	// Already failed: no second notification.
	_, err = svc.UpdateProgress(ctx, g.ID, dec("999"))
	require.NoError(t, err)
	assert.Len(t, rec.single, 1)
}

func TestService_NotifierErrorDoesNotFailRecompute(t *testing.T) {
	store := newFakeStore()
	svc, rec := newTestService(store)
	rec.fail = true
	ctx := context.Background()

	g, err := svc.Create(ctx, CreateInput{Title: "x", Type: models.GoalNetProfit, TargetValue: dec("10"), StartDate: jan1, EndDate: dec31})
	require.NoError(t, err)

	got, err := svc.UpdateProgress(ctx, g.ID, dec("10"))
	require.NoError(t, err)
	assert.Equal(t, models.GoalAchieved, got.Status)
	assert.Len(t, rec.single, 1)
}

func TestService_UpdatePartial(t *testing.T) {
	store := newFakeStore()
	svc, _ := newTestService(store)
	ctx := context.Background()

	seeded := dec("45")
	g, err := svc.Create(ctx, CreateInput{
		Title: "win rate", Type: models.GoalWinRate, TargetValue: dec("55"), CurrentValue: &seeded,
		StartDate: jan1, EndDate: dec31,
	})
	require.NoError(t, err)

	desc := "tighten entries"
	got, err := svc.Update(ctx, g.ID, UpdateInput{Description: &desc})
	require.NoError(t, err)
	assert.Equal(t, "tighten entries", got.Description)
	assert.Equal(t, models.GoalInProgress, got.Status)
	assert.Empty(t, store.progress, "description change must not touch progress")

	lower := dec("40")
	got, err = svc.Update(ctx, g.ID, UpdateInput{TargetValue: &lower})
	require.NoError(t, err)
	assert.Equal(t, models.GoalAchieved, got.Status)
	assert.True(t, got.CurrentValue.Equal(seeded))
	assert.Equal(t, []string{g.ID}, store.progress)
}

func TestService_UpdateDeadlineReevaluates(t *testing.T) {
	store := newFakeStore()
	svc, _ := newTestService(store)
	ctx := context.Background()

	g, err := svc.Create(ctx, CreateInput{Title: "x", Type: models.GoalTotalTrades, TargetValue: dec("100"), StartDate: jan1, EndDate: dec31})
	require.NoError(t, err)

	past := jan1.AddDate(0, 2, 0)
	got, err := svc.Update(ctx, g.ID, UpdateInput{EndDate: &past})
	require.NoError(t, err)
	assert.Equal(t, models.GoalFailed, got.Status)
}

func TestService_UpdateValidation(t *testing.T) {
	store := newFakeStore()
	svc, _ := newTestService(store)
	ctx := context.Background()

	g, err := svc.Create(ctx, CreateInput{Title: "x", Type: models.GoalTotalTrades, TargetValue: dec("100"), StartDate: jan1, EndDate: dec31})
	require.NoError(t, err)

	blank := ""
	_, err = svc.Update(ctx, g.ID, UpdateInput{Title: &blank})
	assert.True(t, errors.Is(err, core.ErrValidation))

	bad := models.GoalType("calmar")
	_, err = svc.Update(ctx, g.ID, UpdateInput{Type: &bad})
	assert.True(t, errors.Is(err, core.ErrValidation))

	early := jan1.AddDate(-1, 0, 0)
	_, err = svc.Update(ctx, g.ID, UpdateInput{EndDate: &early})
	assert.True(t, errors.Is(err, core.ErrValidation))

	_, err = svc.Update(ctx, "missing", UpdateInput{Title: &blank})
	assert.True(t, errors.Is(err, core.ErrNotFound))
}

func TestService_Delete(t *testing.T) {
	store := newFakeStore()
	store.backtests = []models.Backtest{backtest(nil, jan1, jan1.AddDate(0, 1, 0), "50")}
	svc, _ := newTestService(store)
	ctx := context.Background()

	g, err := svc.Create(ctx, CreateInput{Title: "x", Type: models.GoalWinRate, TargetValue: dec("1"), StartDate: jan1, EndDate: dec31})
	require.NoError(t, err)

	require.NoError(t, svc.Delete(ctx, g.ID))
	assert.True(t, errors.Is(svc.Delete(ctx, g.ID), core.ErrNotFound))
	assert.Len(t, store.backtests, 1)
}

func TestService_ListRejectsUnknownStatus(t *testing.T) {
	svc, _ := newTestService(newFakeStore())
	bad := models.GoalStatus("paused")
	_, err := svc.List(context.Background(), &bad)
	assert.True(t, errors.Is(err, core.ErrValidation))
}

func TestService_RefreshAllIsolatesFailures(t *testing.T) {
	for _, concurrency := range []int{1, 4} {
		t.Run(fmt.Sprintf("concurrency=%d", concurrency), func(t *testing.T) {
			store := newFakeStore()
			good, broken := strPtr("sys-good"), strPtr("sys-broken")
			store.failSystems["sys-broken"] = true
			store.backtests = []models.Backtest{
				backtest(good, jan1.AddDate(0, 1, 0), jan1.AddDate(0, 2, 0), "70"),
			}
			svc, rec := newTestService(store)
			svc.SetConcurrency(concurrency)
			ctx := context.Background()

			mk := func(id string, sys *string, target string) {
				require.NoError(t, store.CreateGoal(ctx, &models.Goal{
					ID: id, Title: id, Type: models.GoalWinRate, TargetValue: dec(target),
					Status: models.GoalInProgress, StartDate: jan1, EndDate: dec31, TradingSystemID: sys,
				}))
			}
			mk("g1", good, "60")
			mk("g2", broken, "60")
			mk("g3", good, "90")
			require.NoError(t, store.CreateGoal(ctx, &models.Goal{
				ID: "g4", Title: "done", Type: models.GoalWinRate, TargetValue: dec("1"),
				Status: models.GoalAchieved, StartDate: jan1, EndDate: dec31,
			}))

			report, err := svc.RefreshAll(ctx)
			require.NoError(t, err)
			assert.Equal(t, 3, report.Total)
			assert.Equal(t, 2, report.Updated)
			assert.Equal(t, 1, report.Achieved)
			require.Len(t, report.Failed, 1)
			assert.Equal(t, "g2", report.Failed[0].GoalID)
			assert.Contains(t, report.Failed[0].Error, "STORE_FAILED")

			g1, _ := store.GetGoal(ctx, "g1")
			g3, _ := store.GetGoal(ctx, "g3")
			g2, _ := store.GetGoal(ctx, "g2")
			assert.Equal(t, models.GoalAchieved, g1.Status)
			assert.True(t, g1.CurrentValue.Equal(dec("70")))
			assert.Equal(t, models.GoalInProgress, g3.Status)
			assert.True(t, g3.CurrentValue.Equal(dec("70")))
			assert.True(t, g2.CurrentValue.IsZero())

			assert.ElementsMatch(t, []string{"g1", "g3"}, store.progress)

			require.Len(t, rec.batches, 1)
			require.Len(t, rec.batches[0], 1)
			assert.Equal(t, "g1", rec.batches[0][0].GoalID)
			assert.Empty(t, rec.single)
		})
	}
}

func TestService_RefreshAllEmpty(t *testing.T) {
	svc, rec := newTestService(newFakeStore())
	report, err := svc.RefreshAll(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, report.Total)
	assert.NotNil(t, report.Failed)
	assert.Empty(t, rec.batches)
}
