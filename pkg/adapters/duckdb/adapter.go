package duckdb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/leapstack-labs/salesdash/pkg/adapter"
	"github.com/leapstack-labs/salesdash/pkg/core"

	_ "github.com/marcboeker/go-duckdb" // duckdb driver
)

// MemoryPath opens an in-memory database.
const MemoryPath = ":memory:"

// ErrStoreNotFound is returned when the database file does not exist and
// the config does not allow creating it.
var ErrStoreNotFound = errors.New("database file does not exist")

var identRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// Adapter implements the adapter.Adapter interface for DuckDB.
type Adapter struct {
	adapter.BaseSQLAdapter
}

// New creates a new DuckDB adapter instance.
// If logger is nil, a discard logger is used.
func New(logger *slog.Logger) *Adapter {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Adapter{
		BaseSQLAdapter: adapter.BaseSQLAdapter{Logger: logger},
	}
}

// DialectName returns the SQL dialect for this adapter.
func (a *Adapter) DialectName() string {
	return "duckdb"
}

// Connect establishes a connection to DuckDB.
// Use ":memory:" as the path for an in-memory database. File databases are
// opened read-only unless cfg.Create is set.
func (a *Adapter) Connect(ctx context.Context, cfg adapter.Config) error {
	params, err := parseParams(cfg.Params)
	if err != nil {
		return err
	}

	path := cfg.Path
	if path == "" {
		path = MemoryPath
	}

	dsn := path
	if path != MemoryPath && !cfg.Create {
		if _, err := os.Stat(path); err != nil {
			if os.IsNotExist(err) {
				return fmt.Errorf("%w: %s", ErrStoreNotFound, path)
			}
			return err
		}
		dsn = path + "?access_mode=read_only"
	}

	db, err := sql.Open("duckdb", dsn)
	if err != nil {
		return fmt.Errorf("failed to open duckdb connection: %w", err)
	}
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to ping duckdb: %w", err)
	}

	if err := applyParams(ctx, db, params); err != nil {
		_ = db.Close()
		return err
	}

	a.DB = db
	a.Cfg = cfg
	a.Logger.Debug("connected to duckdb", slog.String("path", path), slog.Bool("read_only", dsn != path))
	return nil
}

// applyParams loads extensions and applies session settings.
func applyParams(ctx context.Context, db *sql.DB, params *Params) error {
	for _, ext := range params.Extensions {
		if !identRe.MatchString(ext) {
			return fmt.Errorf("invalid extension name %q", ext)
		}
		if _, err := db.ExecContext(ctx, "LOAD "+ext); err != nil {
			return fmt.Errorf("failed to load extension %s: %w", ext, err)
		}
	}

	keys := make([]string, 0, len(params.Settings))
	for k := range params.Settings {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		if !identRe.MatchString(k) {
			return fmt.Errorf("invalid setting name %q", k)
		}
		stmt := fmt.Sprintf("SET %s = '%s'", k, strings.ReplaceAll(params.Settings[k], "'", "''"))
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to apply setting %s: %w", k, err)
		}
	}
	return nil
}

// GetTableMetadata retrieves metadata for a specified table.
// The table may be qualified as schema.table; the default schema is main.
func (a *Adapter) GetTableMetadata(ctx context.Context, table string) (*core.TableMetadata, error) {
	schema := "main"
	tableName := table
	if parts := strings.Split(table, "."); len(parts) == 2 {
		schema = parts[0]
		tableName = parts[1]
	}
	if !identRe.MatchString(schema) || !identRe.MatchString(tableName) {
		return nil, fmt.Errorf("invalid table name %q", table)
	}

	return a.InformationSchemaMetadata(ctx, schema, tableName, func(int) string { return "?" })
}

// LoadCSV loads a CSV file with a header row into a table.
//
// Header names are sanitized the same way as on other stores ("Order ID"
// becomes Order_ID). Dates are kept as text so catalog statements can parse
// them the same way on every store. Rows are appended by name when the
// table exists; header columns it lacks are added as VARCHAR.
func (a *Adapter) LoadCSV(ctx context.Context, tableName string, filePath string) error {
	if a.DB == nil {
		return adapter.ErrNotConnected
	}
	if !identRe.MatchString(tableName) {
		return fmt.Errorf("invalid table name %q", tableName)
	}

	absPath, err := filepath.Abs(filePath)
	if err != nil {
		return fmt.Errorf("failed to get absolute path: %w", err)
	}
	raw, err := adapter.ReadCSVHeader(absPath)
	if err != nil {
		return err
	}

	columns := make([]string, len(raw))
	for i, h := range raw {
		columns[i] = adapter.SanitizeIdentifier(h)
	}
	source := selectCSV(absPath, raw, columns)

	exists, err := a.tableExists(ctx, tableName)
	if err != nil {
		return err
	}

	var query string
	if exists {
		if err := a.addMissingColumns(ctx, tableName, columns); err != nil {
			return err
		}
		query = fmt.Sprintf("INSERT INTO %s BY NAME %s", tableName, source)
	} else {
		query = fmt.Sprintf("CREATE TABLE %s AS %s", tableName, source)
	}

	if err := a.Exec(ctx, query); err != nil {
		return fmt.Errorf("failed to load CSV: %w", err)
	}

	a.Logger.Debug("loaded csv", "table", tableName, "path", absPath)
	return nil
}

// selectCSV builds a SELECT over read_csv_auto that renames raw header
// names to sanitized column names.
func selectCSV(absPath string, raw, columns []string) string {
	projection := make([]string, len(raw))
	for i := range raw {
		projection[i] = fmt.Sprintf(`%s AS "%s"`, quoteIdent(raw[i]), columns[i])
	}
	return fmt.Sprintf(
		"SELECT %s FROM read_csv_auto('%s', header=true, auto_type_candidates=['BIGINT', 'DOUBLE', 'VARCHAR'])",
		strings.Join(projection, ", "),
		strings.ReplaceAll(absPath, "'", "''"),
	)
}

func quoteIdent(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}

func (a *Adapter) tableExists(ctx context.Context, table string) (bool, error) {
	var n int
	err := a.DB.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM information_schema.tables WHERE table_schema = 'main' AND table_name = ?",
		table,
	).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("failed to check table %s: %w", table, err)
	}
	return n > 0, nil
}

// addMissingColumns adds columns the table lacks as VARCHAR.
func (a *Adapter) addMissingColumns(ctx context.Context, table string, columns []string) error {
	meta, err := a.GetTableMetadata(ctx, table)
	if err != nil {
		return err
	}

	for _, name := range columns {
		if hasColumnFold(meta, name) {
			continue
		}
		stmt := fmt.Sprintf(`ALTER TABLE %s ADD COLUMN "%s" VARCHAR`, table, name)
		if err := a.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("failed to add column %s: %w", name, err)
		}
	}
	return nil
}

func hasColumnFold(meta *core.TableMetadata, name string) bool {
	for _, c := range meta.Columns {
		if strings.EqualFold(c.Name, name) {
			return true
		}
	}
	return false
}

// Ensure Adapter implements adapter.Adapter interface
var _ adapter.Adapter = (*Adapter)(nil)
