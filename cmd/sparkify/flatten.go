package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/franz/sparkify/internal/flatten"
	"github.com/franz/sparkify/internal/report"
	"github.com/franz/sparkify/internal/util"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var flattenCmd = &cobra.Command{
	Use:   "flatten",
	Short: "Combine the event files into the combined CSV only",
	Long: `Combine every event file under --source into --output without touching
Cassandra. Rows without an artist (non-song events) are dropped.

The number of lines in the combined file, header included, is written to
stdout.`,
	RunE: runFlatten,
}

func init() {
	rootCmd.AddCommand(flattenCmd)
}

func runFlatten(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	applyLogLevel()

	source := viper.GetString("source")
	output := viper.GetString("output")

	logger := openEventLogger()
	defer logger.Close()

	util.InfoLog("Source: %s", source)
	startTime := time.Now()

	flattener := flatten.New(&flatten.Config{
		Positional: viper.GetBool("positional"),
		Logger:     logger,
	})
	res, err := flattener.Flatten(ctx, source, output)
	if err != nil {
		logger.LogError(report.EventFlatten, source, err)
		return fmt.Errorf("flatten failed: %w", err)
	}

	lines, err := flattener.CountLines(output)
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), lines)

	util.SuccessLog("Flatten complete in %v", time.Since(startTime).Round(time.Millisecond))
	util.InfoLog("  Files read: %d", res.FilesRead)
	util.InfoLog("  Rows read: %s", util.FormatCount(res.RowsRead))
	util.InfoLog("  Rows written: %s (%s)", util.FormatCount(res.RowsWritten), util.FormatBytes(res.Bytes))
	if res.RowsDropped > 0 {
		util.InfoLog("  Non-song rows dropped: %s", util.FormatCount(res.RowsDropped))
	}

	if parquetOut := viper.GetString("parquet-out"); parquetOut != "" {
		n, err := flattener.ExportParquet(ctx, output, parquetOut)
		if err != nil {
			return fmt.Errorf("parquet export failed: %w", err)
		}
		util.InfoLog("Exported %s records to %s", util.FormatCount(n), parquetOut)
	}
	return nil
}
