package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// GoalType names the backtest metric a goal tracks.
type GoalType string

const (
	GoalWinRate         GoalType = "win_rate"
	GoalProfitFactor    GoalType = "profit_factor"
	GoalTotalTrades     GoalType = "total_trades"
	GoalNetProfit       GoalType = "net_profit"
	GoalMaxDrawdown     GoalType = "max_drawdown"
	GoalMonthlyReturn   GoalType = "monthly_return"
	GoalConsecutiveWins GoalType = "consecutive_wins"
	GoalRiskReward      GoalType = "risk_reward"
)

// GoalTypes lists every goal type in display order.
var GoalTypes = []GoalType{
	GoalWinRate,
	GoalProfitFactor,
	GoalTotalTrades,
	GoalNetProfit,
	GoalMaxDrawdown,
	GoalMonthlyReturn,
	GoalConsecutiveWins,
	GoalRiskReward,
}

// Valid reports whether t is a known goal type.
func (t GoalType) Valid() bool {
	for _, known := range GoalTypes {
		if t == known {
			return true
		}
	}
	return false
}

// GoalStatus is derived from current value, target and deadline.
type GoalStatus string

const (
	GoalInProgress GoalStatus = "in_progress"
	GoalAchieved   GoalStatus = "achieved"
	GoalFailed     GoalStatus = "failed"
)

// Valid reports whether s is a known status.
func (s GoalStatus) Valid() bool {
	switch s {
	case GoalInProgress, GoalAchieved, GoalFailed:
		return true
	}
	return false
}

// Goal tracks a target value for one backtest metric over a date window,
// optionally scoped to a single trading system.
type Goal struct {
	ID          string `gorm:"primaryKey;type:varchar(36)" json:"id"`
	Title       string `gorm:"type:varchar(120);not null" json:"title"`
	Description string `gorm:"type:text" json:"description"`

	Type         GoalType        `gorm:"type:varchar(30);not null;index" json:"type"`
	TargetValue  decimal.Decimal `gorm:"type:numeric(20,8);not null" json:"target_value"`
	CurrentValue decimal.Decimal `gorm:"type:numeric(20,8);not null;default:0" json:"current_value"`
	Status       GoalStatus      `gorm:"type:varchar(20);not null;default:'in_progress';index" json:"status"`

	StartDate time.Time `gorm:"not null" json:"start_date"`
	EndDate   time.Time `gorm:"not null" json:"end_date"`

	TradingSystemID *string        `gorm:"type:varchar(36);index" json:"trading_system_id,omitempty"`
	TradingSystem   *TradingSystem `gorm:"constraint:OnDelete:SET NULL" json:"trading_system,omitempty"`

	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (Goal) TableName() string {
	return "goals"
}

func (g *Goal) BeforeCreate(tx *gorm.DB) error {
	ensureID(&g.ID)
	if g.Status == "" {
		g.Status = GoalInProgress
	}
	return nil
}

// ProgressPct is current/target as a percentage capped to [0, 100].
func (g Goal) ProgressPct() float64 {
	if g.TargetValue.IsZero() {
		if g.CurrentValue.IsPositive() {
			return 100
		}
		return 0
	}
	pct, _ := g.CurrentValue.Div(g.TargetValue).Mul(decimal.NewFromInt(100)).Float64()
	switch {
	case pct < 0:
		return 0
	case pct > 100:
		return 100
	}
	return pct
}
