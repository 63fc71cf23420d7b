package journal

import (
	"context"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/newthinker/backtrack/internal/goal"
	"github.com/newthinker/backtrack/internal/models"
	"github.com/newthinker/backtrack/internal/repository"
)

// SystemStats aggregates every backtest of one trading system with the same
// reducers the goal engine uses.
type SystemStats struct {
	SystemID        string              `json:"system_id"`
	Backtests       int                 `json:"backtests"`
	TotalTrades     decimal.Decimal     `json:"total_trades"`
	NetProfit       decimal.Decimal     `json:"net_profit"`
	AvgWinRate      decimal.Decimal     `json:"avg_win_rate"`
	AvgProfitFactor decimal.Decimal     `json:"avg_profit_factor"`
	WorstDrawdown   decimal.Decimal     `json:"worst_drawdown"`
	BestStreak      decimal.Decimal     `json:"best_streak"`
	RiskReward      decimal.Decimal     `json:"risk_reward"`
	MonthlyReturn   decimal.Decimal     `json:"monthly_return"`
	AvgSharpe       decimal.NullDecimal `json:"avg_sharpe"`
	BestNetProfit   decimal.NullDecimal `json:"best_net_profit"`
	WorstNetProfit  decimal.NullDecimal `json:"worst_net_profit"`
	FirstStart      *time.Time          `json:"first_start,omitempty"`
	LastEnd         *time.Time          `json:"last_end,omitempty"`
}

func (s *Service) SystemStats(ctx context.Context, id string) (*SystemStats, error) {
	if _, err := s.store.GetSystem(ctx, id); err != nil {
		return nil, err
	}
	records, err := s.store.ListBacktests(ctx, repository.ListBacktestsParams{TradingSystemID: &id})
	if err != nil {
		return nil, err
	}
	return ComputeStats(id, records)
}

// ComputeStats builds stats over records; the monthly figure uses the span
// from the earliest start to the latest end.
func ComputeStats(systemID string, records []models.Backtest) (*SystemStats, error) {
	st := &SystemStats{SystemID: systemID, Backtests: len(records)}
	if len(records) == 0 {
		return st, nil
	}

	first, last := records[0].StartDate, records[0].EndDate
	sharpeSum, sharpeN := decimal.Zero, 0
	for _, b := range records {
		if b.StartDate.Before(first) {
			first = b.StartDate
		}
		if b.EndDate.After(last) {
			last = b.EndDate
		}
		if b.SharpeRatio.Valid {
			sharpeSum = sharpeSum.Add(b.SharpeRatio.Decimal)
			sharpeN++
		}
		if b.NetProfit.Valid {
			if !st.BestNetProfit.Valid || b.NetProfit.Decimal.GreaterThan(st.BestNetProfit.Decimal) {
				st.BestNetProfit = b.NetProfit
			}
			if !st.WorstNetProfit.Valid || b.NetProfit.Decimal.LessThan(st.WorstNetProfit.Decimal) {
				st.WorstNetProfit = b.NetProfit
			}
		}
	}
	st.FirstStart, st.LastEnd = &first, &last
	if sharpeN > 0 {
		st.AvgSharpe = decimal.NewNullDecimal(sharpeSum.DivRound(decimal.NewFromInt(int64(sharpeN)), goal.DivisionPrecision))
	}

	span := &models.Goal{StartDate: first, EndDate: last}
	for typ, dst := range map[models.GoalType]*decimal.Decimal{
		models.GoalTotalTrades:     &st.TotalTrades,
		models.GoalNetProfit:       &st.NetProfit,
		models.GoalWinRate:         &st.AvgWinRate,
		models.GoalProfitFactor:    &st.AvgProfitFactor,
		models.GoalMaxDrawdown:     &st.WorstDrawdown,
		models.GoalConsecutiveWins: &st.BestStreak,
		models.GoalRiskReward:      &st.RiskReward,
		models.GoalMonthlyReturn:   &st.MonthlyReturn,
	} {
		span.Type = typ
		v, err := goal.Reduce(span, records)
		if err != nil {
			return nil, err
		}
		*dst = v
	}
	return st, nil
}

// Summary feeds the dashboard.
type Summary struct {
	Systems         int                       `json:"systems"`
	Backtests       int64                     `json:"backtests"`
	GoalsByStatus   map[models.GoalStatus]int `json:"goals_by_status"`
	Goals           []models.Goal             `json:"goals"`
	RecentBacktests []models.Backtest         `json:"recent_backtests"`
	PinnedNotes     []models.Note             `json:"pinned_notes"`
}

func (s *Service) Summary(ctx context.Context) (*Summary, error) {
	systems, err := s.store.ListSystems(ctx, repository.ListSystemsParams{})
	if err != nil {
		return nil, err
	}
	total, err := s.store.CountBacktests(ctx, repository.ListBacktestsParams{})
	if err != nil {
		return nil, err
	}
	goals, err := s.store.ListGoals(ctx, repository.ListGoalsParams{})
	if err != nil {
		return nil, err
	}
	backtests, err := s.store.ListBacktests(ctx, repository.ListBacktestsParams{})
	if err != nil {
		return nil, err
	}
	notes, err := s.store.ListNotes(ctx, repository.ListNotesParams{PinnedOnly: true, Limit: 5})
	if err != nil {
		return nil, err
	}

	sort.SliceStable(backtests, func(i, j int) bool {
		return backtests[i].CreatedAt.After(backtests[j].CreatedAt)
	})
	if len(backtests) > 5 {
		backtests = backtests[:5]
	}

	byStatus := map[models.GoalStatus]int{
		models.GoalInProgress: 0,
		models.GoalAchieved:   0,
		models.GoalFailed:     0,
	}
	for _, g := range goals {
		byStatus[g.Status]++
	}

	return &Summary{
		Systems:         len(systems),
		Backtests:       total,
		GoalsByStatus:   byStatus,
		Goals:           goals,
		RecentBacktests: backtests,
		PinnedNotes:     notes,
	}, nil
}
