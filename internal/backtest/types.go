// Package backtest derives backtest metrics from a closed-trade log.
package backtest

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/newthinker/backtrack/internal/core"
)

type Side string

const (
	Long  Side = "long"
	Short Side = "short"
)

// Trade is one round trip. PnL, when set, wins over the price-derived value.
type Trade struct {
	Side       Side                `json:"side"`
	EntryTime  time.Time           `json:"entry_time"`
	ExitTime   *time.Time          `json:"exit_time,omitempty"` // nil while still open
	EntryPrice decimal.Decimal     `json:"entry_price"`
	ExitPrice  decimal.Decimal     `json:"exit_price"`
	Quantity   decimal.Decimal     `json:"quantity"`
	Fees       decimal.Decimal     `json:"fees"`
	PnL        decimal.NullDecimal `json:"pnl"`
}

// Stats holds the metrics a trade log produces. Nullable fields stay null
// when the log cannot support them.
type Stats struct {
	TotalTrades          int
	WinningTrades        int
	LosingTrades         int
	WinRate              decimal.Decimal // percent of closed trades
	NetProfit            decimal.Decimal
	GrossProfit          decimal.Decimal
	GrossLoss            decimal.Decimal // positive magnitude
	ProfitFactor         decimal.NullDecimal
	AvgWin               decimal.NullDecimal
	AvgLoss              decimal.NullDecimal // positive magnitude
	MaxDrawdown          decimal.NullDecimal // percent of peak equity
	SharpeRatio          decimal.NullDecimal
	MaxConsecutiveWins   int
	MaxConsecutiveLosses int
}

// IsClosed returns true if the trade has an exit
func (t Trade) IsClosed() bool {
	return t.ExitTime != nil
}

// Profit is the realized result after fees.
func (t Trade) Profit() decimal.Decimal {
	if t.PnL.Valid {
		return t.PnL.Decimal
	}
	diff := t.ExitPrice.Sub(t.EntryPrice)
	if strings.EqualFold(string(t.Side), string(Short)) {
		diff = diff.Neg()
	}
	return diff.Mul(t.Quantity).Sub(t.Fees)
}

// IsWin returns true if the trade was profitable
func (t Trade) IsWin() bool {
	return t.Profit().IsPositive()
}

// Validate checks one trade; index is used in the message.
func (t Trade) Validate(index int) error {
	switch Side(strings.ToLower(string(t.Side))) {
	case "", Long, Short:
	default:
		return core.Invalid("trades[%d]: side must be long or short", index)
	}
	if t.ExitTime != nil && t.ExitTime.Before(t.EntryTime) {
		return core.Invalid("trades[%d]: exit_time before entry_time", index)
	}
	if !t.PnL.Valid && t.ExitTime != nil {
		if !t.EntryPrice.IsPositive() || !t.ExitPrice.IsPositive() || !t.Quantity.IsPositive() {
			return core.Invalid("trades[%d]: pnl or positive prices and quantity required", index)
		}
	}
	if t.Fees.IsNegative() {
		return core.Invalid("trades[%d]: fees must not be negative", index)
	}
	return nil
}

// ValidateTrades checks every trade in the log.
func ValidateTrades(trades []Trade) error {
	for i, t := range trades {
		if err := t.Validate(i); err != nil {
			return err
		}
	}
	return nil
}
