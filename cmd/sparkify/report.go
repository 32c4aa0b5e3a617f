package main

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/franz/sparkify/internal/report"
	"github.com/franz/sparkify/internal/store"
	"github.com/franz/sparkify/internal/util"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var reportCmd = &cobra.Command{
	Use:   "report [run-id]",
	Short: "Generate a Markdown report of a pipeline run",
	Long: `Generate a Markdown report of a pipeline run from the run ledger.

The report includes:
- Run status, timing and paths
- Flatten statistics (files and rows read, written and dropped)
- Rows loaded into and returned from each query table
- Top errors, when an event log is given

Without a run ID the most recent run is reported.
The report is saved to artifacts/reports/<timestamp>/summary.md`,
	Args: cobra.MaximumNArgs(1),
	RunE: runReport,
}

func init() {
	rootCmd.AddCommand(reportCmd)

	reportCmd.Flags().String("out", "", "Output directory for report (default: artifacts/reports/<timestamp>)")
	reportCmd.Flags().String("event-log", "", "Path to event log file (optional)")
}

func runReport(cmd *cobra.Command, args []string) error {
	applyLogLevel()

	dbPath := viper.GetString("db")
	if dbPath == "" {
		return fmt.Errorf("%w: the run ledger is disabled (--db is empty)", util.ErrInvalidConfig)
	}

	db, err := store.Open(dbPath)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	var runID string
	if len(args) == 1 {
		runID = args[0]
	} else {
		runs, err := db.GetRecentRuns(1)
		if err != nil {
			return fmt.Errorf("failed to list runs: %w", err)
		}
		if len(runs) == 0 {
			return fmt.Errorf("no runs recorded in %s: %w", dbPath, util.ErrNotFound)
		}
		runID = runs[0].ID
	}

	eventLogPath, _ := cmd.Flags().GetString("event-log")

	summary, err := report.GenerateSummaryReport(db, runID, eventLogPath)
	if err != nil {
		return fmt.Errorf("failed to generate report: %w", err)
	}
	summary.DatabasePath = dbPath

	outputDir, _ := cmd.Flags().GetString("out")
	if outputDir == "" {
		timestamp := time.Now().Format("20060102-150405")
		outputDir = filepath.Join(viper.GetString("artifacts"), "reports", timestamp)
	}
	outputPath := filepath.Join(outputDir, "summary.md")

	if err := report.WriteMarkdownReport(summary, outputPath); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}

	util.SuccessLog("Report for run %s saved to: %s", runID, outputPath)
	util.InfoLog("  Status: %s", summary.Run.Status)
	util.InfoLog("  Rows written: %s", util.FormatCount(summary.Run.RowsWritten))
	for _, t := range summary.Tables {
		util.InfoLog("  %s: %s loaded, %d returned", t.Name, util.FormatCount(t.RowsLoaded), t.RowsReturned)
	}
	if len(summary.TopErrors) > 0 {
		util.WarnLog("  Distinct errors: %d", len(summary.TopErrors))
	}
	return nil
}
