// Package flatten concatenates per-session event files into the combined file.
package flatten

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/franz/sparkify/internal/event"
	"github.com/franz/sparkify/internal/report"
	"github.com/franz/sparkify/internal/util"
	"github.com/spf13/afero"
)

// Flattener turns a directory of raw event files into one combined file
type Flattener struct {
	fs         afero.Fs
	positional bool
	logger     *report.EventLogger
}

// Config holds flattener configuration
type Config struct {
	Fs         afero.Fs // defaults to the OS filesystem
	Positional bool     // use the fixed raw index mapping instead of header names
	Logger     *report.EventLogger
}

// New creates a new Flattener
func New(cfg *Config) *Flattener {
	fs := cfg.Fs
	if fs == nil {
		fs = afero.NewOsFs()
	}
	return &Flattener{
		fs:         fs,
		positional: cfg.Positional,
		logger:     cfg.Logger,
	}
}

// Result summarizes a flatten run
type Result struct {
	FilesRead   int
	RowsRead    int
	RowsWritten int
	RowsDropped int
	OutputPath  string
	Bytes       int64
}

// Discover lists the regular files beneath root in lexical order.
// Hidden files and directories are skipped.
func (f *Flattener) Discover(root string) ([]string, error) {
	ok, err := afero.DirExists(f.fs, root)
	if err != nil {
		return nil, fmt.Errorf("failed to stat source directory: %w", err)
	}
	if !ok {
		return nil, fmt.Errorf("source directory %s: %w", root, util.ErrNotFound)
	}

	var files []string
	err = afero.Walk(f.fs, root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return fmt.Errorf("access error: %s: %w", path, err)
		}
		hidden := path != root && strings.HasPrefix(info.Name(), ".")
		if info.IsDir() {
			if hidden {
				return filepath.SkipDir
			}
			return nil
		}
		if hidden || !info.Mode().IsRegular() {
			return nil
		}
		files = append(files, path)
		f.logger.LogDiscover(path, info.Size())
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk error: %w", err)
	}

	sort.Strings(files)
	return files, nil
}

// Flatten writes every non-empty-artist row of every file under root to
// outPath, replacing any existing file. One unreadable file aborts the run.
func (f *Flattener) Flatten(ctx context.Context, root, outPath string) (*Result, error) {
	files, err := f.Discover(root)
	if err != nil {
		return nil, err
	}
	util.InfoLog("Discovered %d event files under %s", len(files), root)

	absOut, _ := filepath.Abs(outPath)

	out, err := f.fs.Create(outPath)
	if err != nil {
		return nil, fmt.Errorf("failed to create combined file: %w", err)
	}
	defer out.Close()

	w, err := event.NewWriter(out)
	if err != nil {
		return nil, err
	}

	result := &Result{OutputPath: outPath}
	for _, path := range files {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if abs, _ := filepath.Abs(path); abs == absOut {
			continue
		}

		read, kept, err := f.flattenFile(path, w)
		if err != nil {
			f.logger.LogError(report.EventFlatten, path, err)
			return nil, err
		}
		result.FilesRead++
		result.RowsRead += read
		result.RowsDropped += read - kept
		f.logger.LogFlatten(path, read, kept)
		util.DebugLog("Flattened %s: %d rows, %d kept", path, read, kept)
	}

	if err := w.Flush(); err != nil {
		return nil, fmt.Errorf("failed to write combined file: %w", err)
	}
	if err := out.Close(); err != nil {
		return nil, fmt.Errorf("failed to close combined file: %w", err)
	}

	result.RowsWritten = w.Records()
	result.Bytes = w.Bytes()
	return result, nil
}

// flattenFile copies one raw file's surviving rows into w
func (f *Flattener) flattenFile(path string, w *event.Writer) (read, kept int, err error) {
	in, err := f.fs.Open(path)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer in.Close()

	r := csv.NewReader(in)
	r.FieldsPerRecord = -1
	r.ReuseRecord = true

	header, err := r.Read()
	if err == io.EOF {
		return 0, 0, nil
	}
	if err != nil {
		return 0, 0, fmt.Errorf("failed to read header of %s: %w", path, err)
	}

	layout := event.PositionalLayout()
	if !f.positional {
		if layout, err = event.LayoutFromHeader(header); err != nil {
			return 0, 0, fmt.Errorf("%s: %w", path, err)
		}
	}

	for {
		row, err := r.Read()
		if err == io.EOF {
			return read, kept, nil
		}
		if err != nil {
			return read, kept, fmt.Errorf("failed to read %s: %w", path, err)
		}
		read++
		if layout.Dropped(row) {
			continue
		}

		rec, err := layout.Decode(row)
		if err != nil {
			line, _ := r.FieldPos(0)
			return read, kept, fmt.Errorf("%s line %d: %w", path, line, err)
		}
		if err := w.Write(rec); err != nil {
			return read, kept, fmt.Errorf("failed to write combined record: %w", err)
		}
		kept++
	}
}

// CountLines returns the number of lines in the combined file at path,
// header included. A final line without a newline still counts.
func (f *Flattener) CountLines(path string) (int, error) {
	in, err := f.fs.Open(path)
	if err != nil {
		return 0, fmt.Errorf("failed to open combined file: %w", err)
	}
	defer in.Close()

	buf := make([]byte, 64*1024)
	lines := 0
	var last byte = '\n'
	for {
		n, err := in.Read(buf)
		if n > 0 {
			lines += bytes.Count(buf[:n], []byte{'\n'})
			last = buf[n-1]
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			return 0, fmt.Errorf("failed to read %s: %w", path, err)
		}
	}
	if last != '\n' {
		lines++
	}
	return lines, nil
}
