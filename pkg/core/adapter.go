package core

import (
	"context"
	"database/sql"
)

// Adapter defines the interface that all store adapters must implement.
type Adapter interface {
	// Connect establishes the connection to the store.
	Connect(ctx context.Context, cfg AdapterConfig) error

	// Close releases the connection. Calling it more than once is safe.
	Close() error

	// Exec executes a SQL statement that doesn't return rows.
	Exec(ctx context.Context, sql string) error

	// Query executes a SQL statement that returns rows.
	Query(ctx context.Context, sql string) (*Rows, error)

	// GetTableMetadata retrieves column metadata for a table.
	GetTableMetadata(ctx context.Context, table string) (*TableMetadata, error)

	// LoadCSV loads data from a CSV file with a header row into a table.
	LoadCSV(ctx context.Context, tableName, filePath string) error

	// DialectName returns the SQL dialect used to pick catalog statements.
	DialectName() string
}

// AdapterConfig holds configuration for connecting to a store.
type AdapterConfig struct {
	Type     string
	Path     string
	Host     string
	Port     int
	Database string
	Username string
	Password string
	Schema   string
	Options  map[string]string
	Params   map[string]any

	// Create allows file-backed stores to be created when missing.
	// The dashboard never sets it; only store preparation does.
	Create bool
}

// Location returns a human-readable description of where the store lives.
func (c AdapterConfig) Location() string {
	if c.Path != "" {
		return c.Path
	}
	if c.Host != "" {
		return c.Host + "/" + c.Database
	}
	return c.Database
}

// Column represents a column in a store table.
type Column struct {
	Name       string `json:"name"`
	Type       string `json:"type"`
	Nullable   bool   `json:"nullable"`
	PrimaryKey bool   `json:"primary_key"`
	Position   int    `json:"position"`
}

// TableMetadata holds metadata about a store table.
type TableMetadata struct {
	Schema   string
	Name     string
	Columns  []Column
	RowCount int64
}

// HasColumn reports whether the table has a column with the given name.
func (m *TableMetadata) HasColumn(name string) bool {
	for _, c := range m.Columns {
		if c.Name == name {
			return true
		}
	}
	return false
}

// Rows wraps sql.Rows to provide a consistent interface.
type Rows struct {
	*sql.Rows
}
