// Package tables defines the query-shaped Cassandra tables built from the
// combined event file. Each table serves exactly one read query.
package tables

import (
	"fmt"
	"strings"

	"github.com/franz/sparkify/internal/event"
)

// Column is a CQL column definition
type Column struct {
	Name string
	Type string
}

// Clustering orders
const (
	Asc  = "ASC"
	Desc = "DESC"
)

// Table describes one query table. Columns are ordered partition key first,
// then clustering key, then payload; Project returns values in that order.
type Table struct {
	Name        string
	Description string
	Columns     []Column

	// Number of leading Columns forming the partition key
	PartitionKeys int
	// Number of Columns after the partition key forming the clustering key
	ClusteringKeys int
	// Clustering order for each clustering column
	ClusteringOrder []string

	// Result columns of the canonical query, and their display headers
	SelectColumns []string
	Headers       []string

	project func(event.Combined) ([]interface{}, error)
	where   string
	args    func(Params) []interface{}
	title   func(Params) string
}

// Params holds the lookup values of the three canonical queries
type Params struct {
	SessionID     int
	ItemInSession int
	UserID        int
	UserSessionID int
	Song          string
}

// DefaultParams returns the lookup values of the reference run
func DefaultParams() Params {
	return Params{
		SessionID:     338,
		ItemInSession: 4,
		UserID:        10,
		UserSessionID: 182,
		Song:          "All Hands Against His Own",
	}
}

// ColumnNames returns the names of all columns in key-first order
func (t Table) ColumnNames() []string {
	names := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		names[i] = c.Name
	}
	return names
}

// PartitionKey returns the partition key column names
func (t Table) PartitionKey() []string {
	return t.ColumnNames()[:t.PartitionKeys]
}

// ClusteringKey returns the clustering key column names
func (t Table) ClusteringKey() []string {
	return t.ColumnNames()[t.PartitionKeys : t.PartitionKeys+t.ClusteringKeys]
}

// PrimaryKeyLen is the number of columns identifying a row
func (t Table) PrimaryKeyLen() int {
	return t.PartitionKeys + t.ClusteringKeys
}

// Project converts a combined record into insert values
func (t Table) Project(c event.Combined) ([]interface{}, error) {
	return t.project(c)
}

// CreateCQL returns the idempotent CREATE TABLE statement
func (t Table) CreateCQL() string {
	var b strings.Builder
	fmt.Fprintf(&b, "CREATE TABLE IF NOT EXISTS %s (\n", t.Name)
	for _, c := range t.Columns {
		fmt.Fprintf(&b, "\t%s %s,\n", c.Name, c.Type)
	}
	b.WriteString("\t" + t.primaryKeyDef() + "\n)")

	if t.ClusteringKeys > 0 && len(t.ClusteringOrder) == t.ClusteringKeys {
		orders := make([]string, t.ClusteringKeys)
		for i, name := range t.ClusteringKey() {
			orders[i] = name + " " + t.ClusteringOrder[i]
		}
		b.WriteString(" WITH CLUSTERING ORDER BY (" + strings.Join(orders, ", ") + ")")
	}
	return b.String()
}

func (t Table) primaryKeyDef() string {
	s := "PRIMARY KEY ((" + strings.Join(t.PartitionKey(), ", ") + ")"
	if t.ClusteringKeys > 0 {
		s += ", " + strings.Join(t.ClusteringKey(), ", ")
	}
	return s + ")"
}

// InsertCQL returns the parameterized INSERT statement
func (t Table) InsertCQL() string {
	marks := strings.TrimSuffix(strings.Repeat("?, ", len(t.Columns)), ", ")
	return fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		t.Name, strings.Join(t.ColumnNames(), ", "), marks)
}

// SelectCQL returns the canonical parameterized query
func (t Table) SelectCQL() string {
	return fmt.Sprintf("SELECT %s FROM %s WHERE %s",
		strings.Join(t.SelectColumns, ", "), t.Name, t.where)
}

// QueryArgs returns the bind values of SelectCQL for p
func (t Table) QueryArgs(p Params) []interface{} {
	return t.args(p)
}

// Title describes the canonical query for p
func (t Table) Title(p Params) string {
	return t.title(p)
}

// DropCQL returns the idempotent DROP TABLE statement
func (t Table) DropCQL() string {
	return "DROP TABLE IF EXISTS " + t.Name
}
