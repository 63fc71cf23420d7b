package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Backtest is the recorded result of one historical strategy simulation.
// Every metric is nullable; consumers treat null as zero.
type Backtest struct {
	ID              string         `gorm:"primaryKey;type:varchar(36)" json:"id"`
	TradingSystemID *string        `gorm:"type:varchar(36);index" json:"trading_system_id,omitempty"`
	TradingSystem   *TradingSystem `gorm:"constraint:OnDelete:SET NULL" json:"trading_system,omitempty"`

	Name      string    `gorm:"type:varchar(120);not null" json:"name"`
	Symbol    string    `gorm:"type:varchar(30);index" json:"symbol"`
	Timeframe string    `gorm:"type:varchar(10)" json:"timeframe"`
	StartDate time.Time `gorm:"not null;index" json:"start_date"`
	EndDate   time.Time `gorm:"not null;index" json:"end_date"`

	InitialCapital decimal.NullDecimal `gorm:"type:numeric(20,8)" json:"initial_capital"`
	FinalCapital   decimal.NullDecimal `gorm:"type:numeric(20,8)" json:"final_capital"`
	NetProfit      decimal.NullDecimal `gorm:"type:numeric(20,8)" json:"net_profit"`

	TotalTrades   *int `json:"total_trades"`
	WinningTrades *int `json:"winning_trades"`
	LosingTrades  *int `json:"losing_trades"`

	WinRate      decimal.NullDecimal `gorm:"type:numeric(10,4)" json:"win_rate"`
	ProfitFactor decimal.NullDecimal `gorm:"type:numeric(12,4)" json:"profit_factor"`
	MaxDrawdown  decimal.NullDecimal `gorm:"type:numeric(10,4)" json:"max_drawdown"`
	SharpeRatio  decimal.NullDecimal `gorm:"type:numeric(12,4)" json:"sharpe_ratio"`
	AvgWin       decimal.NullDecimal `gorm:"type:numeric(20,8)" json:"avg_win"`
	AvgLoss      decimal.NullDecimal `gorm:"type:numeric(20,8)" json:"avg_loss"`

	MaxConsecutiveWins   *int `json:"max_consecutive_wins"`
	MaxConsecutiveLosses *int `json:"max_consecutive_losses"`

	Notes string `gorm:"type:text" json:"notes"`
	Tags  []Tag  `gorm:"many2many:backtest_tags" json:"tags,omitempty"`

	CreatedAt time.Time `gorm:"autoCreateTime;index" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (Backtest) TableName() string {
	return "backtests"
}

func (b *Backtest) BeforeCreate(tx *gorm.DB) error {
	ensureID(&b.ID)
	return nil
}

// ReturnPct is the net profit as a percentage of initial capital.
func (b Backtest) ReturnPct() decimal.NullDecimal {
	if !b.InitialCapital.Valid || b.InitialCapital.Decimal.IsZero() || !b.NetProfit.Valid {
		return decimal.NullDecimal{}
	}
	pct := b.NetProfit.Decimal.Div(b.InitialCapital.Decimal).Mul(decimal.NewFromInt(100))
	return decimal.NewNullDecimal(pct.Round(4))
}
