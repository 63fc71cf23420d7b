package models

import (
	"time"

	"gorm.io/gorm"
)

// Note is a free-form journal entry, optionally linked to a system or backtest.
type Note struct {
	ID      string `gorm:"primaryKey;type:varchar(36)" json:"id"`
	Title   string `gorm:"type:varchar(200);not null" json:"title"`
	Content string `gorm:"type:text" json:"content"`
	Pinned  bool   `gorm:"default:false;index" json:"pinned"`

	TradingSystemID *string        `gorm:"type:varchar(36);index" json:"trading_system_id,omitempty"`
	TradingSystem   *TradingSystem `gorm:"constraint:OnDelete:SET NULL" json:"trading_system,omitempty"`
	BacktestID      *string        `gorm:"type:varchar(36);index" json:"backtest_id,omitempty"`
	Backtest        *Backtest      `gorm:"constraint:OnDelete:SET NULL" json:"backtest,omitempty"`

	Tags []Tag `gorm:"many2many:note_tags" json:"tags,omitempty"`

	CreatedAt time.Time `gorm:"autoCreateTime;index" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (Note) TableName() string {
	return "notes"
}

func (n *Note) BeforeCreate(tx *gorm.DB) error {
	ensureID(&n.ID)
	return nil
}
