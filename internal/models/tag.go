package models

import (
	"time"

	"gorm.io/gorm"
)

// Tag labels trading systems, backtests and notes.
type Tag struct {
	ID        string    `gorm:"primaryKey;type:varchar(36)" json:"id"`
	Name      string    `gorm:"type:varchar(50);uniqueIndex;not null" json:"name"`
	Color     string    `gorm:"type:varchar(7);not null;default:'#6b7280'" json:"color"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
}

func (Tag) TableName() string {
	return "tags"
}

func (t *Tag) BeforeCreate(tx *gorm.DB) error {
	ensureID(&t.ID)
	return nil
}
