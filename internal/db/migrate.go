package db

import (
	"github.com/newthinker/backtrack/internal/core"
	"github.com/newthinker/backtrack/internal/models"
)

// AutoMigrate creates or alters every table to match the models.
func AutoMigrate(db *DB) error {
	if db == nil || db.Gorm == nil {
		return nil
	}
	if err := db.Gorm.AutoMigrate(models.AllModels()...); err != nil {
		return core.WrapError(core.ErrStoreFailed, err)
	}
	return nil
}
