// Package frame holds query results as small in-memory tables and renders them.
package frame

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/franz/sparkify/internal/util"
	"gopkg.in/yaml.v3"
)

// Output formats
const (
	FormatTable = "table"
	FormatJSON  = "json"
	FormatYAML  = "yaml"
)

// Frame is an ordered result set with fixed column headers
type Frame struct {
	Title   string     `json:"title" yaml:"title"`
	Headers []string   `json:"headers" yaml:"headers"`
	Rows    [][]string `json:"rows" yaml:"rows"`
}

// FromMaps builds a frame from driver rows. keys selects the map entry for
// each header, in order.
func FromMaps(title string, headers, keys []string, rows []map[string]interface{}) *Frame {
	f := &Frame{
		Title:   title,
		Headers: headers,
		Rows:    make([][]string, 0, len(rows)),
	}
	for _, m := range rows {
		row := make([]string, len(keys))
		for i, k := range keys {
			row[i] = FormatValue(m[k])
		}
		f.Rows = append(f.Rows, row)
	}
	return f
}

// Len returns the number of rows
func (f *Frame) Len() int {
	return len(f.Rows)
}

// Column returns the values of the named header
func (f *Frame) Column(header string) []string {
	idx := -1
	for i, h := range f.Headers {
		if h == header {
			idx = i
			break
		}
	}
	if idx < 0 {
		return nil
	}
	col := make([]string, len(f.Rows))
	for i, r := range f.Rows {
		col[i] = r[idx]
	}
	return col
}

// FormatValue renders a scanned CQL value for display
func FormatValue(v interface{}) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case float32:
		return strconv.FormatFloat(float64(x), 'f', -1, 32)
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	default:
		return fmt.Sprint(x)
	}
}

var (
	titleStyle  = lipgloss.NewStyle().Bold(true)
	headerStyle = lipgloss.NewStyle().Bold(true).Padding(0, 1)
	cellStyle   = lipgloss.NewStyle().Padding(0, 1)
)

// renderTable writes f as a bordered text table, narrowed to maxWidth
// columns when it would not fit. A maxWidth of 0 leaves it unbounded.
func renderTable(w io.Writer, f *Frame, maxWidth int) error {
	t := table.New().
		Border(lipgloss.NormalBorder()).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			return cellStyle
		}).
		Headers(f.Headers...).
		Rows(f.Rows...)

	body := t.Render()
	if maxWidth > 0 && lipgloss.Width(body) > maxWidth {
		body = t.Width(maxWidth).Render()
	}

	rows := "rows"
	if f.Len() == 1 {
		rows = "row"
	}
	_, err := fmt.Fprintf(w, "%s\n%s\n(%d %s)\n\n", titleStyle.Render(f.Title), body, f.Len(), rows)
	return err
}

// Renderer writes frames one at a time as they become available. JSON output
// is a stream of one object per frame, YAML one document per frame.
type Renderer struct {
	w        io.Writer
	format   string
	maxWidth int
	json     *json.Encoder
	yaml     *yaml.Encoder
}

// NewRenderer creates a renderer for format. Tables written to stdout on a
// terminal are narrowed to the terminal width.
func NewRenderer(w io.Writer, format string) (*Renderer, error) {
	if err := CheckFormat(format); err != nil {
		return nil, err
	}
	r := &Renderer{w: w, format: strings.ToLower(format)}
	switch r.format {
	case FormatJSON:
		r.json = json.NewEncoder(w)
		r.json.SetIndent("", "  ")
	case FormatYAML:
		r.yaml = yaml.NewEncoder(w)
		r.yaml.SetIndent(2)
	default:
		r.format = FormatTable
		if out, ok := w.(*os.File); ok && out == os.Stdout && util.IsStdoutTerminal() {
			r.maxWidth = util.GetTerminalWidth()
		}
	}
	return r, nil
}

// Render writes one frame
func (r *Renderer) Render(f *Frame) error {
	switch r.format {
	case FormatJSON:
		return r.json.Encode(f)
	case FormatYAML:
		return r.yaml.Encode(f)
	default:
		return renderTable(r.w, f, r.maxWidth)
	}
}

// Close flushes any buffered output
func (r *Renderer) Close() error {
	if r.yaml != nil {
		return r.yaml.Close()
	}
	return nil
}

// Render writes frames in the given format
func Render(w io.Writer, format string, frames []*Frame) error {
	r, err := NewRenderer(w, format)
	if err != nil {
		return err
	}
	for _, f := range frames {
		if err := r.Render(f); err != nil {
			return err
		}
	}
	return r.Close()
}

// CheckFormat validates an output format name
func CheckFormat(format string) error {
	switch strings.ToLower(format) {
	case "", FormatTable, FormatJSON, FormatYAML:
		return nil
	}
	return fmt.Errorf("%w: unknown output format %q (want table, json or yaml)", util.ErrInvalidConfig, format)
}
