// Package db opens the gorm connection for the configured driver.
package db

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/glebarez/sqlite"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/newthinker/backtrack/internal/config"
	"github.com/newthinker/backtrack/internal/core"
)

type DB struct {
	Gorm *gorm.DB
	SQL  *sql.DB
}

// Open connects to postgres or sqlite and applies pool settings. Query
// errors and slow queries go to log; a nil log discards them.
func Open(cfg config.DatabaseConfig, log *zap.Logger) (*DB, error) {
	var dialector gorm.Dialector
	switch cfg.Driver {
	case "postgres":
		dialector = postgres.Open(cfg.DSN)
	case "sqlite", "":
		dialector = sqlite.Open(cfg.DSN)
	default:
		return nil, core.WrapError(core.ErrConfigInvalid, fmt.Errorf("unknown database driver %q", cfg.Driver))
	}

	gcfg := &gorm.Config{
		Logger:         NewLogger(log),
		NowFunc:        NowUTC,
		TranslateError: true,
	}

	gdb, err := gorm.Open(dialector, gcfg)
	if err != nil {
		return nil, core.WrapError(core.ErrStoreFailed, err)
	}

	sqldb, err := gdb.DB()
	if err != nil {
		return nil, core.WrapError(core.ErrStoreFailed, err)
	}

	if cfg.Driver == "sqlite" || cfg.Driver == "" {
		// One writer keeps sqlite out of SQLITE_BUSY and lets ":memory:" share a single database.
		sqldb.SetMaxOpenConns(1)
		if _, err := sqldb.Exec("PRAGMA foreign_keys = ON"); err != nil {
			return nil, core.WrapError(core.ErrStoreFailed, err)
		}
	} else {
		sqldb.SetMaxOpenConns(cfg.MaxOpenConns)
		sqldb.SetMaxIdleConns(cfg.MaxIdleConns)
		sqldb.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}

	return &DB{Gorm: gdb, SQL: sqldb}, nil
}

func Close(db *DB) error {
	if db == nil || db.SQL == nil {
		return nil
	}
	return db.SQL.Close()
}

func Ping(db *DB) error {
	if db == nil || db.SQL == nil {
		return nil
	}
	return db.SQL.Ping()
}

func NowUTC() time.Time {
	return time.Now().UTC()
}
