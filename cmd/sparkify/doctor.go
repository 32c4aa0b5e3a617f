package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"syscall"
	"time"

	"github.com/franz/sparkify/internal/cassandra"
	"github.com/franz/sparkify/internal/flatten"
	"github.com/franz/sparkify/internal/store"
	"github.com/franz/sparkify/internal/util"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Run diagnostic checks on the environment and configuration",
	Long: `Run diagnostic checks to ensure sparkify can operate correctly.

This command checks:
- Source directory (readable, contains event files)
- Output path (writable) and free disk space beside it
- Run ledger database accessibility, integrity and network-mount placement
- SQLite version
- Cassandra connectivity and keyspace bootstrap

Use this command to troubleshoot issues before running the pipeline.`,
	RunE: runDoctor,
}

func init() {
	rootCmd.AddCommand(doctorCmd)

	doctorCmd.Flags().Bool("skip-cassandra", false, "do not try to connect to Cassandra")
	doctorCmd.Flags().Duration("cassandra-timeout", 10*time.Second, "time allowed for the Cassandra check")
}

type checkResult struct {
	name    string
	message string
	error   bool
	warning bool
}

func runDoctor(cmd *cobra.Command, args []string) error {
	applyLogLevel()

	util.InfoLog("=== Sparkify Doctor - System Diagnostics ===")
	util.InfoLog("")

	results := []checkResult{
		checkSourceDirectory(viper.GetString("source")),
		checkOutputPath(viper.GetString("output")),
		checkDiskSpace(filepath.Dir(viper.GetString("output")), "output"),
		checkSQLite(),
		checkDatabase(viper.GetString("db")),
	}

	if skip, _ := cmd.Flags().GetBool("skip-cassandra"); !skip {
		timeout, _ := cmd.Flags().GetDuration("cassandra-timeout")
		ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
		results = append(results, checkCassandra(ctx, cassandraConfig()))
		cancel()
	}

	util.InfoLog("")
	util.InfoLog("=== Diagnostic Results ===")
	util.InfoLog("")

	hasErrors := false
	hasWarnings := false

	for _, r := range results {
		symbol := "✓"
		if r.error {
			symbol = "✗"
			hasErrors = true
		} else if r.warning {
			symbol = "⚠"
			hasWarnings = true
		}

		line := fmt.Sprintf("[%s] %s", symbol, r.name)
		if r.message != "" {
			line += fmt.Sprintf(": %s", r.message)
		}

		if r.error {
			util.ErrorLog("%s", line)
		} else if r.warning {
			util.WarnLog("%s", line)
		} else {
			util.SuccessLog("%s", line)
		}
	}

	util.InfoLog("")
	if hasErrors {
		util.ErrorLog("Some critical checks failed. Please resolve errors before running sparkify.")
		return fmt.Errorf("system diagnostics failed")
	} else if hasWarnings {
		util.WarnLog("Some checks produced warnings. Review them before proceeding.")
	} else {
		util.SuccessLog("All checks passed! System is ready to run the pipeline.")
	}
	return nil
}

// checkSourceDirectory verifies the event directory is readable and not empty
func checkSourceDirectory(path string) checkResult {
	const name = "Source directory"
	if path == "" {
		return checkResult{name: name, error: true, message: "no source directory configured (use --source)"}
	}

	files, err := flatten.New(&flatten.Config{}).Discover(path)
	if err != nil {
		return checkResult{name: name, error: true, message: fmt.Sprintf("cannot read %s: %v", path, err)}
	}
	if len(files) == 0 {
		return checkResult{name: name, warning: true, message: fmt.Sprintf("%s contains no event files", path)}
	}

	var size int64
	for _, f := range files {
		if info, err := os.Stat(f); err == nil {
			size += info.Size()
		}
	}
	return checkResult{
		name:    name,
		message: fmt.Sprintf("%s (%d files, %s)", path, len(files), util.FormatBytes(size)),
	}
}

// checkOutputPath verifies the combined file can be written
func checkOutputPath(path string) checkResult {
	const name = "Output file"
	if path == "" {
		return checkResult{name: name, error: true, message: "no output path configured (use --output)"}
	}

	dir := filepath.Dir(path)
	info, err := os.Stat(dir)
	if err != nil {
		return checkResult{name: name, error: true, message: fmt.Sprintf("cannot access %s: %v", dir, err)}
	}
	if !info.IsDir() {
		return checkResult{name: name, error: true, message: fmt.Sprintf("%s is not a directory", dir)}
	}

	if info, err := os.Stat(path); err == nil && info.IsDir() {
		return checkResult{name: name, error: true, message: fmt.Sprintf("%s is a directory", path)}
	}

	// Check write permission by creating a temp file next to the output
	f, err := os.CreateTemp(dir, ".sparkify_write_test")
	if err != nil {
		return checkResult{name: name, error: true, message: fmt.Sprintf("cannot write to %s: %v", dir, err)}
	}
	f.Close()
	os.Remove(f.Name())

	return checkResult{name: name, message: fmt.Sprintf("%s (writable)", path)}
}

// checkDiskSpace verifies available disk space
func checkDiskSpace(path string, label string) checkResult {
	name := fmt.Sprintf("Disk space (%s)", label)

	var stat syscall.Statfs_t
	if err := syscall.Statfs(path, &stat); err != nil {
		return checkResult{name: name, warning: true, message: fmt.Sprintf("cannot determine disk space: %v", err)}
	}

	availBytes := int64(stat.Bavail) * int64(stat.Bsize)
	if availBytes < 1<<30 {
		return checkResult{name: name, warning: true, message: fmt.Sprintf("%s available (low space!)", util.FormatBytes(availBytes))}
	}
	return checkResult{name: name, message: fmt.Sprintf("%s available", util.FormatBytes(availBytes))}
}

// checkSQLite verifies SQLite version
func checkSQLite() checkResult {
	version := store.SQLiteVersion()
	if version == "" {
		return checkResult{name: "SQLite", error: true, message: "unable to determine version"}
	}
	return checkResult{name: "SQLite", message: fmt.Sprintf("version %s (built-in)", version)}
}

// checkDatabase verifies the run ledger is accessible
func checkDatabase(dbPath string) checkResult {
	const name = "Run ledger"
	if dbPath == "" {
		return checkResult{name: name, warning: true, message: "disabled (--db is empty); runs will not be recorded"}
	}

	if util.IsNetworkPath(filepath.Dir(dbPath)) {
		return checkResult{
			name:    name,
			warning: true,
			message: fmt.Sprintf("%s is on a network filesystem; SQLite locking may be unreliable", dbPath),
		}
	}

	info, err := os.Stat(dbPath)
	if err != nil {
		if os.IsNotExist(err) {
			return checkResult{name: name, message: fmt.Sprintf("%s (will be created on first run)", dbPath)}
		}
		return checkResult{name: name, error: true, message: fmt.Sprintf("cannot access %s: %v", dbPath, err)}
	}
	if !info.Mode().IsRegular() {
		return checkResult{name: name, error: true, message: fmt.Sprintf("%s is not a regular file", dbPath)}
	}

	db, err := store.Open(dbPath)
	if err != nil {
		return checkResult{name: name, error: true, message: fmt.Sprintf("cannot open %s: %v", dbPath, err)}
	}
	defer db.Close()

	if err := db.CheckIntegrity(); err != nil {
		return checkResult{name: name, error: true, message: fmt.Sprintf("integrity check failed: %v", err)}
	}

	counts, _ := db.CountRunsByStatus()
	total := 0
	for _, n := range counts {
		total += n
	}
	return checkResult{
		name:    name,
		message: fmt.Sprintf("%s (%s, %d runs)", dbPath, util.FormatBytes(info.Size()), total),
	}
}

// checkCassandra opens a session, which also bootstraps the keyspace
func checkCassandra(ctx context.Context, cfg cassandra.Config) checkResult {
	const name = "Cassandra"
	if err := cfg.Validate(); err != nil {
		return checkResult{name: name, error: true, message: err.Error()}
	}

	sess, err := cassandra.Open(ctx, cfg)
	if err != nil {
		return checkResult{name: name, error: true, message: fmt.Sprintf("cannot connect to %v:%d: %v", cfg.Hosts, cfg.Port, err)}
	}
	defer sess.Close()

	version, err := sess.ReleaseVersion(ctx)
	if err != nil {
		return checkResult{name: name, warning: true, message: fmt.Sprintf("connected but version query failed: %v", err)}
	}
	return checkResult{
		name:    name,
		message: fmt.Sprintf("version %s, keyspace %s ready", version, sess.Keyspace()),
	}
}
