package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/newthinker/backtrack/internal/db"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or update the database schema",
	RunE:  runMigrate,
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}

func runMigrate(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	log, err := newLogger(cfg)
	if err != nil {
		return err
	}
	defer log.Sync()

	d, err := db.Open(cfg.Database, log)
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer db.Close(d)

	if err := db.AutoMigrate(d); err != nil {
		return fmt.Errorf("migrating database: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "schema up to date (%s)\n", cfg.Database.Driver)
	return nil
}
