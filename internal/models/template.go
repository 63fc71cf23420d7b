package models

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// TemplateCategory says which form a template pre-fills.
type TemplateCategory string

const (
	TemplateSystem   TemplateCategory = "system"
	TemplateBacktest TemplateCategory = "backtest"
	TemplateNote     TemplateCategory = "note"
)

// Valid reports whether c is a known category.
func (c TemplateCategory) Valid() bool {
	switch c {
	case TemplateSystem, TemplateBacktest, TemplateNote:
		return true
	}
	return false
}

// Template stores a reusable JSON document used to pre-fill forms.
type Template struct {
	ID          string           `gorm:"primaryKey;type:varchar(36)" json:"id"`
	Name        string           `gorm:"type:varchar(120);not null" json:"name"`
	Category    TemplateCategory `gorm:"type:varchar(20);not null;index" json:"category"`
	Description string           `gorm:"type:text" json:"description"`
	Content     datatypes.JSON   `json:"content"`

	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (Template) TableName() string {
	return "templates"
}

func (t *Template) BeforeCreate(tx *gorm.DB) error {
	ensureID(&t.ID)
	return nil
}
