package core

import "fmt"

// ConnectionError is returned when the store cannot be opened.
// It is fatal: no analysis can run without a connection.
type ConnectionError struct {
	Type     string
	Location string
	Err      error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("cannot connect to %s store at %q: %v", e.Type, e.Location, e.Err)
}

func (e *ConnectionError) Unwrap() error { return e.Err }

// EntryRef identifies a catalog entry by name and position.
type EntryRef struct {
	Name  string
	Index int
}

// QueryError is returned when the store rejects or fails a statement.
type QueryError struct {
	Entry *EntryRef
	SQL   string
	Err   error
}

func (e *QueryError) Error() string {
	if e.Entry != nil {
		return fmt.Sprintf("query %q (entry %d) failed: %v", e.Entry.Name, e.Entry.Index, e.Err)
	}
	return fmt.Sprintf("query failed: %v\nstatement: %s", e.Err, e.SQL)
}

func (e *QueryError) Unwrap() error { return e.Err }

// MaterializationError is returned when a result value cannot be represented
// in the host result table.
type MaterializationError struct {
	Entry  *EntryRef
	Column string
	Row    int
	Type   string
	Err    error
}

func (e *MaterializationError) Error() string {
	prefix := "materialize"
	if e.Entry != nil {
		prefix = fmt.Sprintf("materialize %q (entry %d)", e.Entry.Name, e.Entry.Index)
	}
	if e.Type != "" {
		return fmt.Sprintf("%s: column %q row %d: unsupported value type %s", prefix, e.Column, e.Row, e.Type)
	}
	return fmt.Sprintf("%s: %v", prefix, e.Err)
}

func (e *MaterializationError) Unwrap() error { return e.Err }
