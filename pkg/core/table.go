package core

import "time"

// ResultTable is the in-memory result of one query execution.
// Columns are in projection order and every row has len(Columns) values.
type ResultTable struct {
	Columns  []string
	Rows     [][]any
	Duration time.Duration
}

// RowCount returns the number of rows in the table.
func (t *ResultTable) RowCount() int {
	if t == nil {
		return 0
	}
	return len(t.Rows)
}

// ColumnIndex returns the position of the named column, or -1.
func (t *ResultTable) ColumnIndex(name string) int {
	for i, c := range t.Columns {
		if c == name {
			return i
		}
	}
	return -1
}

// Value returns the value at row i for the named column.
// The second result is false if the row or column does not exist.
func (t *ResultTable) Value(i int, column string) (any, bool) {
	idx := t.ColumnIndex(column)
	if idx < 0 || i < 0 || i >= len(t.Rows) {
		return nil, false
	}
	return t.Rows[i][idx], true
}
