package report

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/franz/sparkify/internal/store"
	"github.com/franz/sparkify/internal/util"
)

// SummaryReport describes one pipeline run
type SummaryReport struct {
	GeneratedAt time.Time
	Run         *store.Run
	Tables      []TableSummary
	TopErrors   []ErrorSummary

	DatabasePath string
	EventLogPath string
}

// TableSummary is the outcome of one query table, with the time spent in
// each lifecycle step when an event log is available
type TableSummary struct {
	Name         string
	RowsLoaded   int
	RowsReturned int
	Durations    map[EventType]time.Duration
}

// ErrorSummary represents an error with its count
type ErrorSummary struct {
	Error string
	Count int
}

// GenerateSummaryReport builds the report of runID from the ledger and,
// when eventLogPath is set, from the events the run logged
func GenerateSummaryReport(db *store.Store, runID, eventLogPath string) (*SummaryReport, error) {
	run, err := db.GetRun(runID)
	if err != nil {
		return nil, err
	}

	report := &SummaryReport{
		GeneratedAt:  time.Now(),
		Run:          run,
		EventLogPath: eventLogPath,
		TopErrors:    make([]ErrorSummary, 0),
	}

	tables, err := db.GetRunTables(runID)
	if err != nil {
		return nil, fmt.Errorf("failed to load run tables: %w", err)
	}
	byName := make(map[string]*TableSummary, len(tables))
	for _, t := range tables {
		report.Tables = append(report.Tables, TableSummary{
			Name:         t.TableName,
			RowsLoaded:   t.RowsLoaded,
			RowsReturned: t.RowsReturned,
			Durations:    make(map[EventType]time.Duration),
		})
	}
	for i := range report.Tables {
		byName[report.Tables[i].Name] = &report.Tables[i]
	}

	if eventLogPath == "" {
		return report, nil
	}

	events, err := ReadEvents(eventLogPath)
	if err != nil {
		return nil, err
	}

	errorCounts := make(map[string]int)
	for _, e := range events {
		if e.RunID != "" && e.RunID != runID {
			continue
		}
		if e.Error != "" {
			errorCounts[e.Error]++
		}
		if t, ok := byName[e.Table]; ok && e.Duration > 0 {
			t.Durations[e.Event] += time.Duration(e.Duration) * time.Millisecond
		}
	}
	report.TopErrors = topErrors(errorCounts, 10)

	return report, nil
}

// ReadEvents parses a JSONL event log
func ReadEvents(path string) ([]Event, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open event log: %w", err)
	}
	defer f.Close()

	var events []Event
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	line := 0
	for scanner.Scan() {
		line++
		if len(strings.TrimSpace(scanner.Text())) == 0 {
			continue
		}
		var e Event
		if err := json.Unmarshal(scanner.Bytes(), &e); err != nil {
			return nil, fmt.Errorf("%s line %d: %w", path, line, err)
		}
		events = append(events, e)
	}
	return events, scanner.Err()
}

func topErrors(counts map[string]int, limit int) []ErrorSummary {
	errors := make([]ErrorSummary, 0, len(counts))
	for err, count := range counts {
		errors = append(errors, ErrorSummary{Error: err, Count: count})
	}

	sort.Slice(errors, func(i, j int) bool {
		if errors[i].Count != errors[j].Count {
			return errors[i].Count > errors[j].Count
		}
		return errors[i].Error < errors[j].Error
	})

	if len(errors) > limit {
		errors = errors[:limit]
	}
	return errors
}

// WriteMarkdownReport writes the summary report as Markdown
func WriteMarkdownReport(report *SummaryReport, outputPath string) error {
	dir := filepath.Dir(outputPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	run := report.Run
	var md strings.Builder

	md.WriteString("# Sparkify Run Report\n\n")
	md.WriteString(fmt.Sprintf("**Run:** `%s`\n\n", run.ID))
	md.WriteString(fmt.Sprintf("**Generated:** %s\n\n", report.GeneratedAt.Format("2006-01-02 15:04:05")))
	if report.DatabasePath != "" {
		md.WriteString(fmt.Sprintf("**Database:** `%s`\n\n", report.DatabasePath))
	}
	if report.EventLogPath != "" {
		md.WriteString(fmt.Sprintf("**Event Log:** `%s`\n\n", report.EventLogPath))
	}

	md.WriteString("---\n\n")

	// Overview
	md.WriteString("## Overview\n\n")
	md.WriteString("| Metric | Value |\n")
	md.WriteString("|--------|-------|\n")
	md.WriteString(fmt.Sprintf("| Status | %s |\n", run.Status))
	md.WriteString(fmt.Sprintf("| Started | %s |\n", run.StartedAt.Local().Format("2006-01-02 15:04:05")))
	if d := run.Duration(); d > 0 {
		md.WriteString(fmt.Sprintf("| Duration | %s |\n", d.Round(time.Millisecond)))
	}
	md.WriteString(fmt.Sprintf("| Source | `%s` |\n", run.SourceDir))
	md.WriteString(fmt.Sprintf("| Combined File | `%s` |\n", run.CombinedPath))
	md.WriteString("\n")

	// Flatten
	md.WriteString("## Flatten\n\n")
	md.WriteString("| Metric | Value |\n")
	md.WriteString("|--------|-------|\n")
	md.WriteString(fmt.Sprintf("| Files Read | %d |\n", run.FilesRead))
	md.WriteString(fmt.Sprintf("| Rows Read | %s |\n", util.FormatCount(run.RowsRead)))
	md.WriteString(fmt.Sprintf("| Rows Written | %s |\n", util.FormatCount(run.RowsWritten)))
	md.WriteString(fmt.Sprintf("| Non-song Rows Dropped | %s |\n", util.FormatCount(run.RowsDropped)))
	md.WriteString("\n")

	// Tables
	if len(report.Tables) > 0 {
		md.WriteString("## Query Tables\n\n")
		md.WriteString("| Table | Rows Loaded | Rows Returned | Load Time |\n")
		md.WriteString("|-------|-------------|---------------|-----------|\n")
		for _, t := range report.Tables {
			load := "-"
			if d := t.Durations[EventLoad]; d > 0 {
				load = d.Round(time.Millisecond).String()
			}
			md.WriteString(fmt.Sprintf("| `%s` | %s | %d | %s |\n",
				t.Name, util.FormatCount(t.RowsLoaded), t.RowsReturned, load))
		}
		md.WriteString("\n")
	}

	// Errors
	if run.Error != "" || len(report.TopErrors) > 0 {
		md.WriteString("## Errors\n\n")
		if run.Error != "" {
			md.WriteString(fmt.Sprintf("Run failed: `%s`\n\n", run.Error))
		}
		if len(report.TopErrors) > 0 {
			md.WriteString("| Count | Error |\n")
			md.WriteString("|-------|-------|\n")
			for _, err := range report.TopErrors {
				md.WriteString(fmt.Sprintf("| %d | %s |\n", err.Count, err.Error))
			}
			md.WriteString("\n")
		}
	}

	md.WriteString("---\n\n")
	md.WriteString("*Generated by sparkify*\n")

	if err := os.WriteFile(outputPath, []byte(md.String()), 0644); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}
	return nil
}
