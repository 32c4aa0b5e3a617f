package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/franz/sparkify/internal/cassandra"
	"github.com/franz/sparkify/internal/flatten"
	"github.com/franz/sparkify/internal/frame"
	"github.com/franz/sparkify/internal/load"
	"github.com/franz/sparkify/internal/report"
	"github.com/franz/sparkify/internal/store"
	"github.com/franz/sparkify/internal/util"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Flatten the event files, load the query tables, query and drop them",
	Long: `Run the whole pipeline:

1. Flatten: combine every event file under --source into --output,
   keeping only song plays (rows with an artist)
2. Load: create each query table and insert every combined record
3. Query: answer each table's canonical query and print the result
4. Drop: remove the query tables and close the session

The line count of the combined file (header included) and the three result
tables are written to stdout; progress and diagnostics go to stderr.`,
	RunE: runRun,
}

func init() {
	rootCmd.AddCommand(runCmd)
}

func runRun(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return runPipeline(ctx, cmd.OutOrStdout())
}

// openEventLogger creates the JSONL event log, falling back to a no-op logger
func openEventLogger() *report.EventLogger {
	level := report.LevelFor(viper.GetBool("verbose"), viper.GetBool("quiet"))
	logger, err := report.NewEventLogger(viper.GetString("artifacts"), level)
	if err != nil {
		util.WarnLog("Failed to create event logger: %v", err)
		return report.NullLogger()
	}
	util.DebugLog("Event log: %s", logger.Path())
	return logger
}

// openLedger opens the run ledger, or returns nil when it is disabled
func openLedger() (*store.Store, error) {
	dbPath := viper.GetString("db")
	if dbPath == "" {
		return nil, nil
	}
	db, err := store.Open(dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open run ledger: %w", err)
	}
	return db, nil
}

func runPipeline(ctx context.Context, out io.Writer) (err error) {
	applyLogLevel()

	source := viper.GetString("source")
	output := viper.GetString("output")
	renderer, err := frame.NewRenderer(out, viper.GetString("format"))
	if err != nil {
		return err
	}
	defer renderer.Close()

	logger := openEventLogger()
	defer logger.Close()

	ledger, err := openLedger()
	if err != nil {
		return err
	}
	var run *store.Run
	if ledger != nil {
		defer ledger.Close()
		if run, err = ledger.StartRun(source, output); err != nil {
			return err
		}
		logger.SetRunID(run.ID)
		util.DebugLog("Run %s", run.ID)
		defer func() {
			if ferr := ledger.FinishRun(run, err); ferr != nil {
				util.WarnLog("Failed to record run: %v", ferr)
			}
		}()
	}

	startTime := time.Now()

	// Phase 1: Flatten
	util.InfoLog("=== Phase 1: Flatten ===")
	util.InfoLog("Source: %s", source)

	flattener := flatten.New(&flatten.Config{
		Positional: viper.GetBool("positional"),
		Logger:     logger,
	})
	fr, err := flattener.Flatten(ctx, source, output)
	if err != nil {
		logger.LogError(report.EventFlatten, source, err)
		return fmt.Errorf("flatten failed: %w", err)
	}
	if run != nil {
		run.FilesRead = fr.FilesRead
		run.RowsRead = fr.RowsRead
		run.RowsWritten = fr.RowsWritten
		run.RowsDropped = fr.RowsDropped
	}

	lines, err := flattener.CountLines(output)
	if err != nil {
		return err
	}
	fmt.Fprintln(out, lines)

	util.SuccessLog("Wrote %s records to %s (%s, %s dropped)", util.FormatCount(fr.RowsWritten), output,
		util.FormatBytes(fr.Bytes), util.FormatCount(fr.RowsDropped))

	if parquetOut := viper.GetString("parquet-out"); parquetOut != "" {
		n, err := flattener.ExportParquet(ctx, output, parquetOut)
		if err != nil {
			return fmt.Errorf("parquet export failed: %w", err)
		}
		util.InfoLog("Exported %s records to %s", util.FormatCount(n), parquetOut)
	}

	// Phase 2: Load, query and drop
	util.InfoLog("")
	util.InfoLog("=== Phase 2: Query tables ===")

	cassCfg := cassandraConfig()
	util.InfoLog("Cassandra: %v:%d keyspace %s", cassCfg.Hosts, cassCfg.Port, cassCfg.Keyspace)

	sess, err := cassandra.Open(ctx, cassCfg)
	if err != nil {
		logger.LogError(report.EventCreate, "", err)
		return fmt.Errorf("failed to connect to cassandra: %w", err)
	}
	defer sess.Close()

	loader := load.New(&load.Config{
		Session:    sess,
		Params:     queryParams(),
		SinglePass: viper.GetBool("single-pass"),
		Progress:   true,
		Logger:     logger,
		OnTable: func(t load.TableResult) error {
			return renderer.Render(t.Frame)
		},
	})

	res, runErr := loader.Run(ctx, output)

	// tables are dropped even when the run was interrupted
	dropErr := loader.Teardown(context.WithoutCancel(ctx))

	if res != nil {
		if ledger != nil {
			rts := make([]*store.RunTable, 0, len(res.Tables))
			for _, t := range res.Tables {
				rts = append(rts, &store.RunTable{
					RunID:        run.ID,
					TableName:    t.Name,
					RowsLoaded:   t.RowsLoaded,
					RowsReturned: t.Frame.Len(),
				})
			}
			if rerr := ledger.RecordTables(rts); rerr != nil {
				util.WarnLog("%v", rerr)
			}
		}
	}

	if runErr != nil {
		return fmt.Errorf("load failed: %w", errors.Join(runErr, dropErr))
	}
	if dropErr != nil {
		return fmt.Errorf("teardown failed: %w", dropErr)
	}

	util.InfoLog("")
	util.SuccessLog("Done in %v", time.Since(startTime).Round(time.Millisecond))
	return nil
}
