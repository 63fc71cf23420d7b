package models

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// SystemStatus is the lifecycle state of a trading system.
type SystemStatus string

const (
	SystemActive   SystemStatus = "active"
	SystemPaused   SystemStatus = "paused"
	SystemArchived SystemStatus = "archived"
)

// Valid reports whether s is a known status.
func (s SystemStatus) Valid() bool {
	switch s {
	case SystemActive, SystemPaused, SystemArchived:
		return true
	}
	return false
}

// TradingSystem is a named strategy that backtests, goals and notes attach to.
type TradingSystem struct {
	ID           string       `gorm:"primaryKey;type:varchar(36)" json:"id"`
	Name         string       `gorm:"type:varchar(120);uniqueIndex;not null" json:"name"`
	Description  string       `gorm:"type:text" json:"description"`
	Market       string       `gorm:"type:varchar(30)" json:"market"`
	Timeframe    string       `gorm:"type:varchar(10)" json:"timeframe"`
	StrategyType string       `gorm:"type:varchar(30)" json:"strategy_type"`
	Status       SystemStatus `gorm:"type:varchar(20);not null;default:'active';index" json:"status"`

	// Rule lists are free-form JSON arrays of strings.
	EntryRules datatypes.JSON `json:"entry_rules,omitempty"`
	ExitRules  datatypes.JSON `json:"exit_rules,omitempty"`
	RiskRules  datatypes.JSON `json:"risk_rules,omitempty"`

	Tags []Tag `gorm:"many2many:trading_system_tags" json:"tags,omitempty"`

	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (TradingSystem) TableName() string {
	return "trading_systems"
}

func (s *TradingSystem) BeforeCreate(tx *gorm.DB) error {
	ensureID(&s.ID)
	if s.Status == "" {
		s.Status = SystemActive
	}
	return nil
}
