package load

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/franz/sparkify/internal/tables"
)

// fakeSession emulates the primary key semantics of the query tables:
// inserts upsert by primary key, selects filter on a key prefix and return
// rows in clustering order.
type fakeSession struct {
	tables  map[string]*fakeTable
	stmts   []string
	failOn  string // statements containing this fail
	failErr error
}

type fakeTable struct {
	def  tables.Table
	rows map[string][]interface{}
}

func newFakeSession() *fakeSession {
	return &fakeSession{tables: make(map[string]*fakeTable)}
}

func (s *fakeSession) Exec(ctx context.Context, stmt string, values ...interface{}) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.stmts = append(s.stmts, stmt)
	if s.failOn != "" && strings.Contains(stmt, s.failOn) {
		if s.failErr != nil {
			return s.failErr
		}
		return errors.New("injected failure")
	}

	fields := strings.Fields(stmt)
	switch {
	case strings.HasPrefix(stmt, "CREATE TABLE IF NOT EXISTS "):
		name := fields[5]
		if _, ok := s.tables[name]; ok {
			return nil
		}
		def, ok := tables.ByName(name)
		if !ok {
			return fmt.Errorf("unknown table %s", name)
		}
		s.tables[name] = &fakeTable{def: def, rows: make(map[string][]interface{})}
	case strings.HasPrefix(stmt, "INSERT INTO "):
		t, ok := s.tables[fields[2]]
		if !ok {
			return fmt.Errorf("unconfigured table %s", fields[2])
		}
		if len(values) != len(t.def.Columns) {
			return fmt.Errorf("got %d values for %d columns", len(values), len(t.def.Columns))
		}
		key := fmt.Sprint(values[:t.def.PrimaryKeyLen()]...)
		t.rows[key] = append([]interface{}(nil), values...)
	case strings.HasPrefix(stmt, "DROP TABLE IF EXISTS "):
		delete(s.tables, fields[4])
	default:
		return fmt.Errorf("unsupported statement %q", stmt)
	}
	return nil
}

func (s *fakeSession) Select(ctx context.Context, stmt string, values ...interface{}) ([]map[string]interface{}, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.stmts = append(s.stmts, stmt)
	if s.failOn != "" && strings.Contains(stmt, s.failOn) {
		return nil, errors.New("injected failure")
	}

	fields := strings.Fields(stmt)
	var name string
	for i, f := range fields {
		if f == "FROM" && i+1 < len(fields) {
			name = fields[i+1]
		}
	}
	t, ok := s.tables[name]
	if !ok {
		return nil, fmt.Errorf("unconfigured table %s", name)
	}

	var matched [][]interface{}
	for _, row := range t.rows {
		hit := true
		for i, v := range values {
			if row[i] != v {
				hit = false
				break
			}
		}
		if hit {
			matched = append(matched, row)
		}
	}
	n := t.def.PrimaryKeyLen()
	sort.Slice(matched, func(a, b int) bool {
		for i := 0; i < n; i++ {
			if c := compare(matched[a][i], matched[b][i]); c != 0 {
				return c < 0
			}
		}
		return false
	})

	out := make([]map[string]interface{}, len(matched))
	for i, row := range matched {
		m := make(map[string]interface{}, len(row))
		for j, col := range t.def.ColumnNames() {
			m[col] = row[j]
		}
		out[i] = m
	}
	return out, nil
}

// count returns the number of rows stored in a table
func (s *fakeSession) count(name string) int {
	t, ok := s.tables[name]
	if !ok {
		return 0
	}
	return len(t.rows)
}

func compare(a, b interface{}) int {
	switch x := a.(type) {
	case int:
		y := b.(int)
		switch {
		case x < y:
			return -1
		case x > y:
			return 1
		}
		return 0
	case string:
		return strings.Compare(x, b.(string))
	}
	return 0
}
