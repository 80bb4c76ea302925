package dataset

import "fmt"

// Table is a column-oriented table of typed cells. All columns hold the
// same number of rows.
type Table struct {
	Columns map[string][]Value
	rows    int
}

// NewTable returns an empty table.
func NewTable() *Table {
	return &Table{Columns: make(map[string][]Value)}
}

// Set stores a column. The first column fixes the row count; later columns
// must match it.
func (t *Table) Set(name string, col []Value) error {
	if len(t.Columns) > 0 && len(col) != t.rows {
		return fmt.Errorf("column %s has %d rows, table has %d", name, len(col), t.rows)
	}
	t.Columns[name] = col
	t.rows = len(col)
	return nil
}

// Column returns the cells of a column, nil when absent.
func (t *Table) Column(name string) []Value {
	return t.Columns[name]
}

// Len returns the number of rows.
func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return t.rows
}

// Cell returns the value at row i of a column, null when out of range.
func (t *Table) Cell(name string, i int) Value {
	col := t.Columns[name]
	if i < 0 || i >= len(col) {
		return Null()
	}
	return col[i]
}

// Head returns a table holding at most the first n rows. n <= 0 returns t.
func (t *Table) Head(n int) *Table {
	if n <= 0 || n >= t.rows {
		return t
	}
	out := &Table{Columns: make(map[string][]Value, len(t.Columns)), rows: n}
	for name, col := range t.Columns {
		out.Columns[name] = col[:n]
	}
	return out
}

// Dataset is a loaded table with its metadata.
type Dataset struct {
	Table    *Table
	Metadata *Metadata

	// Filename is the canonical base name of the source file.
	Filename string
}

// RowCount returns the source row count, falling back to the loaded rows.
func (d *Dataset) RowCount() int {
	if d.Metadata != nil && d.Metadata.RowCount > 0 {
		return d.Metadata.RowCount
	}
	return d.Table.Len()
}
