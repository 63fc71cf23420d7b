package main

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/newthinker/backtrack/internal/config"
	"github.com/newthinker/backtrack/internal/db"
	"github.com/newthinker/backtrack/internal/logger"
)

// loadConfig reads --config, or falls back to defaults plus env overrides.
func loadConfig() (*config.Config, error) {
	var cfg *config.Config
	if cfgFile != "" {
		var err error
		cfg, err = config.Load(cfgFile)
		if err != nil {
			return nil, fmt.Errorf("loading config: %w", err)
		}
	} else {
		cfg = config.Defaults()
	}
	if debug {
		cfg.Log.Level = "debug"
		cfg.Log.Development = true
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return cfg, nil
}

func newLogger(cfg *config.Config) (*zap.Logger, error) {
	log, err := logger.New(cfg.Log)
	if err != nil {
		return nil, fmt.Errorf("creating logger: %w", err)
	}
	return log, nil
}

// openDB connects and, when configured, migrates the schema.
func openDB(cfg *config.Config, log *zap.Logger) (*db.DB, error) {
	d, err := db.Open(cfg.Database, log)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	if cfg.Database.AutoMigrate {
		if err := db.AutoMigrate(d); err != nil {
			db.Close(d)
			return nil, fmt.Errorf("migrating database: %w", err)
		}
	}
	log.Debug("database ready", zap.String("driver", cfg.Database.Driver))
	return d, nil
}
