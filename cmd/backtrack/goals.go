package main

import (
	"fmt"
	"io"
	"time"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/newthinker/backtrack/internal/db"
	"github.com/newthinker/backtrack/internal/goal"
	"github.com/newthinker/backtrack/internal/models"
	gormrepository "github.com/newthinker/backtrack/internal/repository/gorm"
)

var goalsCmd = &cobra.Command{
	Use:   "goals",
	Short: "Goal operations",
}

var goalsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List goals and their progress",
	RunE:  runGoalsList,
}

var goalsRefreshCmd = &cobra.Command{
	Use:   "refresh",
	Short: "Recompute every in-progress goal",
	RunE:  runGoalsRefresh,
}

var goalsStatus string

func init() {
	goalsListCmd.Flags().StringVar(&goalsStatus, "status", "", "filter by status (in_progress, achieved, failed)")

	goalsCmd.AddCommand(goalsListCmd)
	goalsCmd.AddCommand(goalsRefreshCmd)
	rootCmd.AddCommand(goalsCmd)
}

// withGoals opens the store and hands a goal service to fn.
func withGoals(fn func(svc *goal.Service) error) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	log, err := newLogger(cfg)
	if err != nil {
		return err
	}
	defer log.Sync()

	d, err := openDB(cfg, log)
	if err != nil {
		return err
	}
	defer db.Close(d)

	svc := goal.NewService(gormrepository.New(d.Gorm), log.Named("goal"))
	svc.SetConcurrency(cfg.Goals.RefreshConcurrency)
	return fn(svc)
}

func runGoalsList(cmd *cobra.Command, args []string) error {
	var status *models.GoalStatus
	if goalsStatus != "" {
		s := models.GoalStatus(goalsStatus)
		if !s.Valid() {
			return fmt.Errorf("unknown status %q", goalsStatus)
		}
		status = &s
	}
	return withGoals(func(svc *goal.Service) error {
		goals, err := svc.List(cmd.Context(), status)
		if err != nil {
			return err
		}
		return renderGoals(cmd.OutOrStdout(), goals)
	})
}

func runGoalsRefresh(cmd *cobra.Command, args []string) error {
	return withGoals(func(svc *goal.Service) error {
		report, err := svc.RefreshAll(cmd.Context())
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "refreshed %d/%d goals in %s (achieved %d, failed %d)\n",
			report.Updated, report.Total, report.Duration.Round(time.Millisecond), report.Achieved, report.Expired)

		if len(report.Failed) > 0 {
			table := tablewriter.NewWriter(out)
			table.Header("Goal", "Title", "Error")
			for _, f := range report.Failed {
				table.Append(f.GoalID, f.Title, f.Error)
			}
			if err := table.Render(); err != nil {
				return err
			}
			return fmt.Errorf("%d goals failed to refresh", len(report.Failed))
		}
		return nil
	})
}

func renderGoals(out io.Writer, goals []models.Goal) error {
	if len(goals) == 0 {
		fmt.Fprintln(out, "no goals")
		return nil
	}
	table := tablewriter.NewWriter(out)
	table.Header("ID", "Title", "Type", "Current", "Target", "Progress", "Status", "Ends")
	for _, g := range goals {
		table.Append(
			shortID(g.ID),
			g.Title,
			string(g.Type),
			g.CurrentValue.Round(2).String(),
			g.TargetValue.Round(2).String(),
			fmt.Sprintf("%.0f%%", g.ProgressPct()),
			string(g.Status),
			g.EndDate.Format("2006-01-02"),
		)
	}
	return table.Render()
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
