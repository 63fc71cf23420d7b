package journal

import (
	"context"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/newthinker/backtrack/internal/backtest"
	"github.com/newthinker/backtrack/internal/core"
	"github.com/newthinker/backtrack/internal/models"
	"github.com/newthinker/backtrack/internal/repository"
)

var hundred = decimal.NewFromInt(100)

// BacktestInput is the full set of editable backtest fields. Metrics left
// null stay null, except net profit and win rate which are derived when
// their inputs are present.
type BacktestInput struct {
	TradingSystemID *string   `json:"trading_system_id"`
	Name            string    `json:"name"`
	Symbol          string    `json:"symbol"`
	Timeframe       string    `json:"timeframe"`
	StartDate       time.Time `json:"start_date"`
	EndDate         time.Time `json:"end_date"`

	InitialCapital decimal.NullDecimal `json:"initial_capital"`
	FinalCapital   decimal.NullDecimal `json:"final_capital"`
	NetProfit      decimal.NullDecimal `json:"net_profit"`

	TotalTrades   *int `json:"total_trades"`
	WinningTrades *int `json:"winning_trades"`
	LosingTrades  *int `json:"losing_trades"`

	WinRate      decimal.NullDecimal `json:"win_rate"`
	ProfitFactor decimal.NullDecimal `json:"profit_factor"`
	MaxDrawdown  decimal.NullDecimal `json:"max_drawdown"`
	SharpeRatio  decimal.NullDecimal `json:"sharpe_ratio"`
	AvgWin       decimal.NullDecimal `json:"avg_win"`
	AvgLoss      decimal.NullDecimal `json:"avg_loss"`

	MaxConsecutiveWins   *int `json:"max_consecutive_wins"`
	MaxConsecutiveLosses *int `json:"max_consecutive_losses"`

	Notes  string   `json:"notes"`
	TagIDs []string `json:"tag_ids"`

	// Trades, when present, fill every metric left null above.
	Trades []backtest.Trade `json:"trades,omitempty"`
}

func (in BacktestInput) Validate() error {
	if err := required("name", in.Name); err != nil {
		return err
	}
	if in.StartDate.IsZero() || in.EndDate.IsZero() {
		return core.Invalid("start_date and end_date are required")
	}
	if in.EndDate.Before(in.StartDate) {
		return core.Invalid("end_date must not be before start_date")
	}
	for name, v := range map[string]*int{
		"total_trades":           in.TotalTrades,
		"winning_trades":         in.WinningTrades,
		"losing_trades":          in.LosingTrades,
		"max_consecutive_wins":   in.MaxConsecutiveWins,
		"max_consecutive_losses": in.MaxConsecutiveLosses,
	} {
		if v != nil && *v < 0 {
			return core.Invalid("%s must not be negative", name)
		}
	}
	if in.TotalTrades != nil && in.WinningTrades != nil && in.LosingTrades != nil &&
		*in.WinningTrades+*in.LosingTrades > *in.TotalTrades {
		return core.Invalid("winning_trades + losing_trades exceeds total_trades")
	}
	if in.WinRate.Valid && (in.WinRate.Decimal.IsNegative() || in.WinRate.Decimal.GreaterThan(hundred)) {
		return core.Invalid("win_rate must be between 0 and 100")
	}
	if in.ProfitFactor.Valid && in.ProfitFactor.Decimal.IsNegative() {
		return core.Invalid("profit_factor must not be negative")
	}
	return backtest.ValidateTrades(in.Trades)
}

func (in BacktestInput) apply(b *models.Backtest) {
	b.Name = strings.TrimSpace(in.Name)
	b.Symbol = strings.ToUpper(strings.TrimSpace(in.Symbol))
	b.Timeframe = in.Timeframe
	b.StartDate = in.StartDate.UTC()
	b.EndDate = in.EndDate.UTC()
	b.InitialCapital = in.InitialCapital
	b.FinalCapital = in.FinalCapital
	b.NetProfit = in.NetProfit
	b.TotalTrades = in.TotalTrades
	b.WinningTrades = in.WinningTrades
	b.LosingTrades = in.LosingTrades
	b.WinRate = in.WinRate
	b.ProfitFactor = in.ProfitFactor
	b.MaxDrawdown = in.MaxDrawdown
	b.SharpeRatio = in.SharpeRatio
	b.AvgWin = in.AvgWin
	b.AvgLoss = in.AvgLoss
	b.MaxConsecutiveWins = in.MaxConsecutiveWins
	b.MaxConsecutiveLosses = in.MaxConsecutiveLosses
	b.Notes = in.Notes

	if !b.NetProfit.Valid && b.InitialCapital.Valid && b.FinalCapital.Valid {
		b.NetProfit = decimal.NewNullDecimal(b.FinalCapital.Decimal.Sub(b.InitialCapital.Decimal))
	}
	if len(in.Trades) > 0 {
		fillFromTrades(b, backtest.CalculateStats(in.Trades, in.InitialCapital))
	}
	if !b.WinRate.Valid && b.TotalTrades != nil && *b.TotalTrades > 0 && b.WinningTrades != nil {
		rate := decimal.NewFromInt(int64(*b.WinningTrades)).
			Mul(hundred).
			DivRound(decimal.NewFromInt(int64(*b.TotalTrades)), 4)
		b.WinRate = decimal.NewNullDecimal(rate)
	}
}

// fillFromTrades sets metrics the caller left null.
func fillFromTrades(b *models.Backtest, st backtest.Stats) {
	if st.TotalTrades == 0 {
		return
	}
	fillDec := func(dst *decimal.NullDecimal, v decimal.NullDecimal) {
		if !dst.Valid && v.Valid {
			*dst = v
		}
	}
	fillInt := func(dst **int, v int) {
		if *dst == nil {
			*dst = models.IntPtr(v)
		}
	}

	fillInt(&b.TotalTrades, st.TotalTrades)
	fillInt(&b.WinningTrades, st.WinningTrades)
	fillInt(&b.LosingTrades, st.LosingTrades)
	fillInt(&b.MaxConsecutiveWins, st.MaxConsecutiveWins)
	fillInt(&b.MaxConsecutiveLosses, st.MaxConsecutiveLosses)
	fillDec(&b.NetProfit, decimal.NewNullDecimal(st.NetProfit))
	fillDec(&b.WinRate, decimal.NewNullDecimal(st.WinRate))
	fillDec(&b.ProfitFactor, st.ProfitFactor)
	fillDec(&b.AvgWin, st.AvgWin)
	fillDec(&b.AvgLoss, st.AvgLoss)
	fillDec(&b.MaxDrawdown, st.MaxDrawdown)
	fillDec(&b.SharpeRatio, st.SharpeRatio)
	if !b.FinalCapital.Valid && b.InitialCapital.Valid {
		b.FinalCapital = decimal.NewNullDecimal(b.InitialCapital.Decimal.Add(b.NetProfit.Decimal))
	}
}

func (s *Service) CreateBacktest(ctx context.Context, in BacktestInput) (*models.Backtest, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}
	systemID, err := s.checkSystem(ctx, in.TradingSystemID)
	if err != nil {
		return nil, err
	}
	b := &models.Backtest{TradingSystemID: systemID}
	in.apply(b)
	if b.Tags, err = s.resolveTags(ctx, in.TagIDs); err != nil {
		return nil, err
	}
	if err := s.store.CreateBacktest(ctx, b); err != nil {
		return nil, err
	}
	s.logger.Info("backtest recorded",
		zap.String("backtest_id", b.ID),
		zap.String("symbol", b.Symbol),
		zap.Time("start", b.StartDate),
		zap.Time("end", b.EndDate),
	)
	return b, nil
}

func (s *Service) GetBacktest(ctx context.Context, id string) (*models.Backtest, error) {
	return s.store.GetBacktest(ctx, id)
}

// BacktestFilter narrows a backtest listing.
type BacktestFilter struct {
	TradingSystemID string
	Symbol          string
	TagID           string
	Limit           int
	Offset          int
}

func (s *Service) ListBacktests(ctx context.Context, f BacktestFilter) ([]models.Backtest, int64, error) {
	params := repository.ListBacktestsParams{
		TradingSystemID: normalizeID(&f.TradingSystemID),
		Symbol:          f.Symbol,
		TagID:           f.TagID,
		Limit:           f.Limit,
		Offset:          f.Offset,
	}
	items, err := s.store.ListBacktests(ctx, params)
	if err != nil {
		return nil, 0, err
	}
	total, err := s.store.CountBacktests(ctx, params)
	if err != nil {
		return nil, 0, err
	}
	return items, total, nil
}

func (s *Service) UpdateBacktest(ctx context.Context, id string, in BacktestInput) (*models.Backtest, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}
	b, err := s.store.GetBacktest(ctx, id)
	if err != nil {
		return nil, err
	}
	if b.TradingSystemID, err = s.checkSystem(ctx, in.TradingSystemID); err != nil {
		return nil, err
	}
	b.TradingSystem = nil
	in.apply(b)
	if b.Tags, err = s.resolveTags(ctx, in.TagIDs); err != nil {
		return nil, err
	}
	if err := s.store.UpdateBacktest(ctx, b); err != nil {
		return nil, err
	}
	return s.store.GetBacktest(ctx, id)
}

func (s *Service) DeleteBacktest(ctx context.Context, id string) error {
	if err := s.store.DeleteBacktest(ctx, id); err != nil {
		return err
	}
	s.logger.Info("backtest deleted", zap.String("backtest_id", id))
	return nil
}
