// Package goal computes goal progress from recorded backtests.
//
// A recompute selects the backtests inside the goal's window, reduces them
// to one value for the goal type, evaluates the status against target and
// deadline, and persists both through the progress updater.
package goal

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/newthinker/backtrack/internal/core"
	"github.com/newthinker/backtrack/internal/models"
)

// DivisionPrecision is the number of fractional digits kept by means. It
// matches the stored column scale.
const DivisionPrecision = models.Scale

var thirtyDays = 30 * 24 * time.Hour

// Reduce collapses records into the goal's current value. An empty record
// set yields zero for every type. Unknown goal types are rejected.
func Reduce(g *models.Goal, records []models.Backtest) (decimal.Decimal, error) {
	if !g.Type.Valid() {
		return decimal.Zero, core.Invalid("unknown goal type %q", g.Type)
	}
	if len(records) == 0 {
		return decimal.Zero, nil
	}

	switch g.Type {
	case models.GoalWinRate:
		return mean(records, func(b models.Backtest) decimal.Decimal {
			return models.DecOrZero(b.WinRate)
		}), nil

	case models.GoalProfitFactor:
		return mean(records, func(b models.Backtest) decimal.Decimal {
			return models.DecOrZero(b.ProfitFactor)
		}), nil

	case models.GoalTotalTrades:
		total := 0
		for _, b := range records {
			total += models.IntOrZero(b.TotalTrades)
		}
		return decimal.NewFromInt(int64(total)), nil

	case models.GoalNetProfit:
		return sumNetProfit(records), nil

	case models.GoalMaxDrawdown:
		worst := decimal.Zero
		for _, b := range records {
			worst = decimal.Max(worst, models.DecOrZero(b.MaxDrawdown))
		}
		return worst, nil

	case models.GoalMonthlyReturn:
		months := decimal.NewFromInt(int64(WindowMonths(g.StartDate, g.EndDate)))
		return sumNetProfit(records).DivRound(months, DivisionPrecision), nil

	case models.GoalConsecutiveWins:
		best := 0
		for _, b := range records {
			if n := models.IntOrZero(b.MaxConsecutiveWins); n > best {
				best = n
			}
		}
		return decimal.NewFromInt(int64(best)), nil

	case models.GoalRiskReward:
		return riskReward(records), nil
	}

	return decimal.Zero, core.Invalid("unknown goal type %q", g.Type)
}

// WindowMonths counts whole 30-day months between start and end, at least 1.
func WindowMonths(start, end time.Time) int {
	months := int(end.Sub(start) / thirtyDays)
	if months < 1 {
		return 1
	}
	return months
}

func mean(records []models.Backtest, field func(models.Backtest) decimal.Decimal) decimal.Decimal {
	sum := decimal.Zero
	for _, b := range records {
		sum = sum.Add(field(b))
	}
	return sum.DivRound(decimal.NewFromInt(int64(len(records))), DivisionPrecision)
}

func sumNetProfit(records []models.Backtest) decimal.Decimal {
	sum := decimal.Zero
	for _, b := range records {
		sum = sum.Add(models.DecOrZero(b.NetProfit))
	}
	return sum
}

// riskReward averages avgWin/avgLoss over records with a positive average
// loss and a recorded average win.
func riskReward(records []models.Backtest) decimal.Decimal {
	sum := decimal.Zero
	n := 0
	for _, b := range records {
		if !b.AvgWin.Valid || !b.AvgLoss.Valid || !b.AvgLoss.Decimal.IsPositive() {
			continue
		}
		sum = sum.Add(b.AvgWin.Decimal.DivRound(b.AvgLoss.Decimal, DivisionPrecision))
		n++
	}
	if n == 0 {
		return decimal.Zero
	}
	return sum.DivRound(decimal.NewFromInt(int64(n)), DivisionPrecision)
}
