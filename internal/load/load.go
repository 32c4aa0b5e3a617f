// Package load creates the query tables, fills them from the combined file,
// runs the canonical query of each table and drops them again.
package load

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/franz/sparkify/internal/event"
	"github.com/franz/sparkify/internal/frame"
	"github.com/franz/sparkify/internal/report"
	"github.com/franz/sparkify/internal/tables"
	"github.com/franz/sparkify/internal/util"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/afero"
)

// Session is the subset of a cluster session the loader needs
type Session interface {
	Exec(ctx context.Context, stmt string, values ...interface{}) error
	Select(ctx context.Context, stmt string, values ...interface{}) ([]map[string]interface{}, error)
}

// Config holds loader configuration
type Config struct {
	Session    Session
	Fs         afero.Fs       // defaults to the OS filesystem
	Tables     []tables.Table // defaults to tables.All()
	Params     tables.Params
	SinglePass bool // fill all tables from one read of the combined file
	Progress   bool // show a progress bar on a terminal
	Logger     *report.EventLogger

	// OnTable, if set, is called with each table's result as soon as its
	// query returns. An error aborts the run.
	OnTable func(TableResult) error
}

// Loader drives the table lifecycle against one session
type Loader struct {
	session    Session
	fs         afero.Fs
	tables     []tables.Table
	params     tables.Params
	singlePass bool
	progress   bool
	logger     *report.EventLogger
	onTable    func(TableResult) error
}

// New creates a new Loader
func New(cfg *Config) *Loader {
	fs := cfg.Fs
	if fs == nil {
		fs = afero.NewOsFs()
	}
	tbls := cfg.Tables
	if len(tbls) == 0 {
		tbls = tables.All()
	}
	return &Loader{
		session:    cfg.Session,
		fs:         fs,
		tables:     tbls,
		params:     cfg.Params,
		singlePass: cfg.SinglePass,
		progress:   cfg.Progress,
		logger:     cfg.Logger,
		onTable:    cfg.OnTable,
	}
}

// TableResult is the outcome for one query table
type TableResult struct {
	Name       string
	RowsLoaded int
	Frame      *frame.Frame
}

// Result holds the per-table outcomes in load order
type Result struct {
	Tables []TableResult
}

// Run creates, fills and queries each table. The first failure aborts the
// run; tables already created are left for Teardown.
func (l *Loader) Run(ctx context.Context, combinedPath string) (*Result, error) {
	if l.singlePass {
		return l.runSinglePass(ctx, combinedPath)
	}

	result := &Result{}
	for _, t := range l.tables {
		if err := l.Create(ctx, t); err != nil {
			return result, err
		}
		loaded, err := l.fill(ctx, combinedPath, []tables.Table{t})
		if err != nil {
			return result, err
		}
		f, err := l.Query(ctx, t)
		if err != nil {
			return result, err
		}
		if err := l.record(result, TableResult{Name: t.Name, RowsLoaded: loaded, Frame: f}); err != nil {
			return result, err
		}
	}
	return result, nil
}

func (l *Loader) runSinglePass(ctx context.Context, combinedPath string) (*Result, error) {
	result := &Result{}
	for _, t := range l.tables {
		if err := l.Create(ctx, t); err != nil {
			return result, err
		}
	}
	loaded, err := l.fill(ctx, combinedPath, l.tables)
	if err != nil {
		return result, err
	}
	for _, t := range l.tables {
		f, err := l.Query(ctx, t)
		if err != nil {
			return result, err
		}
		if err := l.record(result, TableResult{Name: t.Name, RowsLoaded: loaded, Frame: f}); err != nil {
			return result, err
		}
	}
	return result, nil
}

// record appends tr to result and hands it to the OnTable callback
func (l *Loader) record(result *Result, tr TableResult) error {
	result.Tables = append(result.Tables, tr)
	if l.onTable == nil {
		return nil
	}
	if err := l.onTable(tr); err != nil {
		return fmt.Errorf("%s: %w", tr.Name, err)
	}
	return nil
}

// Create issues the idempotent CREATE TABLE for t
func (l *Loader) Create(ctx context.Context, t tables.Table) error {
	start := time.Now()
	err := l.session.Exec(ctx, t.CreateCQL())
	_ = l.logger.LogTable(report.EventCreate, t.Name, 0, time.Since(start), err)
	if err != nil {
		return fmt.Errorf("failed to create table %s: %w", t.Name, err)
	}
	util.DebugLog("Created table %s", t.Name)
	return nil
}

// fill streams the combined file once and inserts every record into each of
// tbls. Inserts are issued one at a time and each is awaited.
func (l *Loader) fill(ctx context.Context, combinedPath string, tbls []tables.Table) (int, error) {
	start := time.Now()
	f, err := l.fs.Open(combinedPath)
	if err != nil {
		return 0, fmt.Errorf("failed to open combined file: %w", err)
	}
	defer f.Close()

	r, err := event.NewReader(f)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", combinedPath, err)
	}

	inserts := make([]string, len(tbls))
	names := make([]string, len(tbls))
	for i, t := range tbls {
		inserts[i] = t.InsertCQL()
		names[i] = t.Name
	}

	bar := l.newBar(names)
	loaded := 0
	err = r.Each(func(rec event.Combined) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		for i, t := range tbls {
			values, err := t.Project(rec)
			if err != nil {
				return fmt.Errorf("%s: %w", t.Name, err)
			}
			if err := l.session.Exec(ctx, inserts[i], values...); err != nil {
				return fmt.Errorf("insert into %s: %w", t.Name, err)
			}
		}
		loaded++
		if bar != nil {
			_ = bar.Add(1)
		}
		return nil
	})
	if bar != nil {
		_ = bar.Finish()
	}

	for _, t := range tbls {
		_ = l.logger.LogTable(report.EventLoad, t.Name, loaded, time.Since(start), err)
	}
	if err != nil {
		return loaded, fmt.Errorf("%s: %w", combinedPath, err)
	}
	util.InfoLog("Loaded %s rows into %v", util.FormatCount(loaded), names)
	return loaded, nil
}

func (l *Loader) newBar(names []string) *progressbar.ProgressBar {
	if !l.progress || util.IsQuiet() || !util.IsStdoutTerminal() {
		return nil
	}
	desc := "Loading " + names[0]
	if len(names) > 1 {
		desc = fmt.Sprintf("Loading %d tables", len(names))
	}
	return progressbar.NewOptions(-1,
		progressbar.OptionSetDescription(desc),
		progressbar.OptionSetWidth(40),
		progressbar.OptionShowCount(),
		progressbar.OptionShowIts(),
		progressbar.OptionSetItsString("rows"),
		progressbar.OptionThrottle(200*time.Millisecond),
		progressbar.OptionClearOnFinish(),
	)
}

// Query runs the canonical query of t with the configured parameters
func (l *Loader) Query(ctx context.Context, t tables.Table) (*frame.Frame, error) {
	start := time.Now()
	rows, err := l.session.Select(ctx, t.SelectCQL(), t.QueryArgs(l.params)...)
	_ = l.logger.LogTable(report.EventQuery, t.Name, len(rows), time.Since(start), err)
	if err != nil {
		return nil, fmt.Errorf("failed to query %s: %w", t.Name, err)
	}
	return frame.FromMaps(t.Title(l.params), t.Headers, t.SelectColumns, rows), nil
}

// Teardown drops every configured table. All drops are attempted; failures
// are joined and returned, never retried.
func (l *Loader) Teardown(ctx context.Context) error {
	var errs []error
	for _, t := range l.tables {
		start := time.Now()
		err := l.session.Exec(ctx, t.DropCQL())
		_ = l.logger.LogTable(report.EventDrop, t.Name, 0, time.Since(start), err)
		if err != nil {
			util.ErrorLog("Failed to drop table %s: %v", t.Name, err)
			errs = append(errs, fmt.Errorf("drop %s: %w", t.Name, err))
			continue
		}
		util.DebugLog("Dropped table %s", t.Name)
	}
	return errors.Join(errs...)
}
