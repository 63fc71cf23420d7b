// Package models holds the gorm-mapped tables of the backtest journal.
package models

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

func init() {
	// Decimals leave the API as JSON numbers, not strings.
	decimal.MarshalJSONWithoutQuotes = true
}

// AllModels lists every table for AutoMigrate, parents first.
func AllModels() []any {
	return []any{
		&Tag{},
		&TradingSystem{},
		&Backtest{},
		&Goal{},
		&Note{},
		&Template{},
	}
}

func ensureID(id *string) {
	if *id == "" {
		*id = uuid.NewString()
	}
}
