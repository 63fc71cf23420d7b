package main

import (
	"fmt"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/newthinker/backtrack/internal/db"
	"github.com/newthinker/backtrack/internal/export"
	gormrepository "github.com/newthinker/backtrack/internal/repository/gorm"
	"github.com/newthinker/backtrack/internal/storage/archive"
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Write a JSON snapshot of the journal to archive storage",
	RunE:  runExport,
}

var exportList bool

func init() {
	exportCmd.Flags().BoolVar(&exportList, "list", false, "list stored snapshots instead of writing one")
	rootCmd.AddCommand(exportCmd)
}

func runExport(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	log, err := newLogger(cfg)
	if err != nil {
		return err
	}
	defer log.Sync()

	storage, err := archive.New(cfg.Archive)
	if err != nil {
		return fmt.Errorf("opening archive: %w", err)
	}

	d, err := openDB(cfg, log)
	if err != nil {
		return err
	}
	defer db.Close(d)

	exporter := export.NewExporter(gormrepository.New(d.Gorm), storage, log.Named("export"))
	out := cmd.OutOrStdout()

	if exportList {
		paths, err := exporter.List(cmd.Context())
		if err != nil {
			return err
		}
		for _, p := range paths {
			fmt.Fprintln(out, p)
		}
		return nil
	}

	path, snap, err := exporter.Export(cmd.Context())
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "wrote %s (%s)\n", path, cfg.Archive.Type)

	counts := snap.Counts()
	table := tablewriter.NewWriter(out)
	table.Header("Entity", "Rows")
	for _, name := range []string{"systems", "backtests", "goals", "notes", "templates", "tags"} {
		table.Append(name, fmt.Sprint(counts[name]))
	}
	return table.Render()
}
