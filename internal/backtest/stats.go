package backtest

import (
	"math"
	"sort"

	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// CalculateStats computes performance statistics from closed trades, in
// exit order. initialCapital enables drawdown and Sharpe.
func CalculateStats(trades []Trade, initialCapital decimal.NullDecimal) Stats {
	closed := make([]Trade, 0, len(trades))
	for _, t := range trades {
		if t.IsClosed() {
			closed = append(closed, t)
		}
	}
	if len(closed) == 0 {
		return Stats{}
	}
	sort.SliceStable(closed, func(i, j int) bool {
		return closed[i].ExitTime.Before(*closed[j].ExitTime)
	})

	var s Stats
	var winStreak, lossStreak int
	profits := make([]decimal.Decimal, 0, len(closed))

	for _, t := range closed {
		p := t.Profit()
		profits = append(profits, p)
		s.NetProfit = s.NetProfit.Add(p)

		if p.IsPositive() {
			s.WinningTrades++
			s.GrossProfit = s.GrossProfit.Add(p)
			winStreak++
			lossStreak = 0
		} else {
			s.LosingTrades++
			s.GrossLoss = s.GrossLoss.Add(p.Neg())
			lossStreak++
			winStreak = 0
		}
		s.MaxConsecutiveWins = max(s.MaxConsecutiveWins, winStreak)
		s.MaxConsecutiveLosses = max(s.MaxConsecutiveLosses, lossStreak)
	}

	s.TotalTrades = len(closed)
	s.WinRate = decimal.NewFromInt(int64(s.WinningTrades)).Mul(hundred).
		DivRound(decimal.NewFromInt(int64(s.TotalTrades)), 4)

	if s.WinningTrades > 0 {
		s.AvgWin = decimal.NewNullDecimal(s.GrossProfit.DivRound(decimal.NewFromInt(int64(s.WinningTrades)), 8))
	}
	if s.LosingTrades > 0 {
		s.AvgLoss = decimal.NewNullDecimal(s.GrossLoss.DivRound(decimal.NewFromInt(int64(s.LosingTrades)), 8))
	}
	if s.GrossLoss.IsPositive() {
		s.ProfitFactor = decimal.NewNullDecimal(s.GrossProfit.DivRound(s.GrossLoss, 4))
	}

	if initialCapital.Valid && initialCapital.Decimal.IsPositive() {
		s.MaxDrawdown = decimal.NewNullDecimal(calculateMaxDrawdown(initialCapital.Decimal, profits).Round(4))
		if sharpe, ok := calculateSharpeRatio(initialCapital.Decimal, profits); ok {
			s.SharpeRatio = decimal.NewNullDecimal(decimal.NewFromFloat(sharpe).Round(4))
		}
	}
	return s
}

// calculateMaxDrawdown finds the largest peak-to-trough decline of the
// equity curve, as a percentage of the peak.
func calculateMaxDrawdown(initial decimal.Decimal, profits []decimal.Decimal) decimal.Decimal {
	equity := initial
	peak := initial
	maxDD := decimal.Zero

	for _, p := range profits {
		equity = equity.Add(p)
		if equity.GreaterThan(peak) {
			peak = equity
		}
		if peak.IsPositive() {
			dd := peak.Sub(equity).Div(peak).Mul(hundred)
			if dd.GreaterThan(maxDD) {
				maxDD = dd
			}
		}
	}
	return maxDD
}

// calculateSharpeRatio computes risk-adjusted return over per-trade
// returns, risk-free rate 0, annualized with 252 periods.
func calculateSharpeRatio(initial decimal.Decimal, profits []decimal.Decimal) (float64, bool) {
	if len(profits) < 2 {
		return 0, false
	}

	returns := make([]float64, 0, len(profits))
	equity := initial
	for _, p := range profits {
		if !equity.IsPositive() {
			return 0, false
		}
		r, _ := p.Div(equity).Float64()
		returns = append(returns, r)
		equity = equity.Add(p)
	}

	var sum float64
	for _, r := range returns {
		sum += r
	}
	mean := sum / float64(len(returns))

	var variance float64
	for _, r := range returns {
		variance += (r - mean) * (r - mean)
	}
	stdDev := math.Sqrt(variance / float64(len(returns)-1))
	if stdDev == 0 {
		return 0, false
	}

	return mean / stdDev * math.Sqrt(252), true
}
