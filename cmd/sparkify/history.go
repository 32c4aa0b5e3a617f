package main

import (
	"fmt"
	"strconv"
	"time"

	"github.com/franz/sparkify/internal/frame"
	"github.com/franz/sparkify/internal/store"
	"github.com/franz/sparkify/internal/util"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List recent pipeline runs from the run ledger",
	Long: `List recent pipeline runs recorded in the run ledger (--db), newest first,
with the row counts of every flatten step and query table.

Pass a run ID to show a single run.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runHistory,
}

func init() {
	rootCmd.AddCommand(historyCmd)

	historyCmd.Flags().IntP("limit", "n", 10, "number of runs to list")
}

func runHistory(cmd *cobra.Command, args []string) error {
	applyLogLevel()

	format := viper.GetString("format")
	if err := frame.CheckFormat(format); err != nil {
		return err
	}

	dbPath := viper.GetString("db")
	if dbPath == "" {
		return fmt.Errorf("%w: the run ledger is disabled (--db is empty)", util.ErrInvalidConfig)
	}
	db, err := store.Open(dbPath)
	if err != nil {
		return fmt.Errorf("failed to open run ledger: %w", err)
	}
	defer db.Close()

	var runs []*store.Run
	if len(args) == 1 {
		run, err := db.GetRun(args[0])
		if err != nil {
			return err
		}
		runs = []*store.Run{run}
	} else {
		limit, _ := cmd.Flags().GetInt("limit")
		if runs, err = db.GetRecentRuns(limit); err != nil {
			return fmt.Errorf("failed to list runs: %w", err)
		}
	}

	frames, err := historyFrames(db, runs)
	if err != nil {
		return err
	}
	if err := frame.Render(cmd.OutOrStdout(), format, frames); err != nil {
		return err
	}

	if counts, err := db.CountRunsByStatus(); err == nil {
		util.InfoLog("Runs: %d succeeded, %d failed, %d running",
			counts[store.StatusSucceeded], counts[store.StatusFailed], counts[store.StatusRunning])
	}
	return nil
}

// historyFrames renders runs as one summary frame followed by a frame of
// per-table counts for each run that loaded tables
func historyFrames(db *store.Store, runs []*store.Run) ([]*frame.Frame, error) {
	summary := &frame.Frame{
		Title:   "Recent runs",
		Headers: []string{"Run", "Started", "Duration", "Status", "Files", "Rows", "Dropped", "Error"},
	}
	frames := []*frame.Frame{summary}

	for _, r := range runs {
		duration := "-"
		if d := r.Duration(); d > 0 {
			duration = d.Round(time.Millisecond).String()
		}
		summary.Rows = append(summary.Rows, []string{
			r.ID,
			util.FormatAgo(r.StartedAt),
			duration,
			r.Status,
			strconv.Itoa(r.FilesRead),
			strconv.Itoa(r.RowsWritten),
			strconv.Itoa(r.RowsDropped),
			r.Error,
		})

		tables, err := db.GetRunTables(r.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to load tables of run %s: %w", r.ID, err)
		}
		if len(tables) == 0 {
			continue
		}
		f := &frame.Frame{
			Title:   "Run " + r.ID,
			Headers: []string{"Table", "Rows Loaded", "Rows Returned"},
		}
		for _, t := range tables {
			f.Rows = append(f.Rows, []string{t.TableName, strconv.Itoa(t.RowsLoaded), strconv.Itoa(t.RowsReturned)})
		}
		frames = append(frames, f)
	}
	return frames, nil
}
