package event

import (
	"bufio"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
)

// ErrBadHeader is returned when a combined file does not start with Columns
var ErrBadHeader = errors.New("unexpected combined file header")

// Writer writes combined records with every field quoted.
type Writer struct {
	w       *bufio.Writer
	records int
	bytes   int64
}

// NewWriter writes the combined header to w and returns a record writer.
// Call Flush when done.
func NewWriter(w io.Writer) (*Writer, error) {
	cw := &Writer{w: bufio.NewWriter(w)}
	if err := cw.writeLine(Columns); err != nil {
		return nil, fmt.Errorf("failed to write header: %w", err)
	}
	return cw, nil
}

// Write appends one record.
func (cw *Writer) Write(c Combined) error {
	if err := cw.writeLine(c.Values()); err != nil {
		return err
	}
	cw.records++
	return nil
}

func (cw *Writer) writeLine(fields []string) error {
	var b strings.Builder
	for i, f := range fields {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteByte('"')
		b.WriteString(strings.ReplaceAll(f, `"`, `""`))
		b.WriteByte('"')
	}
	b.WriteByte('\n')
	n, err := cw.w.WriteString(b.String())
	cw.bytes += int64(n)
	return err
}

// Flush writes any buffered data to the underlying writer.
func (cw *Writer) Flush() error {
	return cw.w.Flush()
}

// Records returns the number of records written, header excluded.
func (cw *Writer) Records() int {
	return cw.records
}

// Bytes returns the number of bytes written, header included.
func (cw *Writer) Bytes() int64 {
	return cw.bytes
}

// Reader streams records from a combined file.
type Reader struct {
	r    *csv.Reader
	line int
}

// NewReader checks the combined header and returns a record reader.
func NewReader(r io.Reader) (*Reader, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = len(Columns)
	cr.ReuseRecord = true

	header, err := cr.Read()
	if err == io.EOF {
		return nil, fmt.Errorf("%w: empty file", ErrBadHeader)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read header: %w", err)
	}
	for i, col := range Columns {
		if header[i] != col {
			return nil, fmt.Errorf("%w: column %d is %q, want %q", ErrBadHeader, i+1, header[i], col)
		}
	}
	return &Reader{r: cr, line: 1}, nil
}

// Next returns the next record, or io.EOF after the last one.
func (cr *Reader) Next() (Combined, error) {
	row, err := cr.r.Read()
	if err == io.EOF {
		return Combined{}, io.EOF
	}
	cr.line++
	if err != nil {
		return Combined{}, fmt.Errorf("line %d: %w", cr.line, err)
	}
	return FromValues(row)
}

// Line returns the line number of the last record returned by Next.
func (cr *Reader) Line() int {
	return cr.line
}

// Each calls fn for every record until EOF or the first error.
func (cr *Reader) Each(fn func(Combined) error) error {
	for {
		rec, err := cr.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
		if err := fn(rec); err != nil {
			return fmt.Errorf("line %d: %w", cr.line, err)
		}
	}
}
