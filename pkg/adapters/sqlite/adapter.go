package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"regexp"
	"sort"

	"github.com/leapstack-labs/salesdash/pkg/adapter"
	"github.com/leapstack-labs/salesdash/pkg/core"

	_ "modernc.org/sqlite" // sqlite driver
)

// MemoryPath opens a private in-memory database.
const MemoryPath = ":memory:"

// ErrStoreNotFound is returned when the database file does not exist and
// the config does not allow creating it.
var ErrStoreNotFound = errors.New("database file does not exist")

var (
	identRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

	// pragma values are numbers or bare keywords such as WAL or NORMAL
	pragmaValueRe = regexp.MustCompile(`^-?[A-Za-z0-9_.]+$`)
)

// Adapter implements the adapter.Adapter interface for SQLite.
type Adapter struct {
	adapter.BaseSQLAdapter
}

// New creates a new SQLite adapter instance.
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
	return "sqlite"
}

// Connect opens the database file at cfg.Path.
// Without cfg.Create the file must already exist and is opened read-only.
func (a *Adapter) Connect(ctx context.Context, cfg adapter.Config) error {
	params, err := parseParams(cfg.Params)
	if err != nil {
		return err
	}

	if cfg.Path == "" {
		return fmt.Errorf("sqlite target requires a database path")
	}
	for name, value := range params.Pragmas {
		if !identRe.MatchString(name) {
			return fmt.Errorf("invalid pragma name %q", name)
		}
		if !pragmaValueRe.MatchString(value) {
			return fmt.Errorf("invalid value %q for pragma %s", value, name)
		}
	}
	if cfg.Path != MemoryPath && !cfg.Create {
		info, err := os.Stat(cfg.Path)
		if err != nil {
			if os.IsNotExist(err) {
				return fmt.Errorf("%w: %s", ErrStoreNotFound, cfg.Path)
			}
			return err
		}
		if info.IsDir() {
			return fmt.Errorf("%s is a directory, not a database file", cfg.Path)
		}
	}

	db, err := sql.Open("sqlite", buildDSN(cfg, params))
	if err != nil {
		return fmt.Errorf("failed to open sqlite connection: %w", err)
	}

	// One long-lived handle for the whole run.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to ping sqlite: %w", err)
	}

	for _, name := range sortedKeys(params.Pragmas) {
		stmt := fmt.Sprintf("PRAGMA %s = %s", name, params.Pragmas[name])
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			_ = db.Close()
			return fmt.Errorf("failed to apply pragma %s: %w", name, err)
		}
	}

	a.DB = db
	a.Cfg = cfg
	a.Logger.Debug("connected to sqlite", slog.String("path", cfg.Path), slog.Bool("read_only", !cfg.Create))
	return nil
}

// buildDSN constructs the modernc.org/sqlite connection URI.
func buildDSN(cfg adapter.Config, params *Params) string {
	q := url.Values{}
	q.Add("_pragma", fmt.Sprintf("busy_timeout(%d)", params.BusyTimeoutMS))

	if cfg.Path == MemoryPath {
		return MemoryPath + "?" + q.Encode()
	}
	if !cfg.Create {
		q.Set("mode", "ro")
	}
	// SQLite decodes %HH in URI paths, so ? and # in a file name survive.
	return "file:" + (&url.URL{Path: cfg.Path}).EscapedPath() + "?" + q.Encode()
}

// GetTableMetadata retrieves column metadata using PRAGMA table_info.
func (a *Adapter) GetTableMetadata(ctx context.Context, table string) (*core.TableMetadata, error) {
	if a.DB == nil {
		return nil, adapter.ErrNotConnected
	}
	if !identRe.MatchString(table) {
		return nil, fmt.Errorf("invalid table name %q", table)
	}

	columns, err := a.tableColumns(ctx, table)
	if err != nil {
		return nil, err
	}
	if len(columns) == 0 {
		return nil, fmt.Errorf("table %s not found", table)
	}

	var rowCount int64
	//nolint:gosec // table name validated above
	if err := a.DB.QueryRowContext(ctx, fmt.Sprintf(`SELECT COUNT(*) FROM "%s"`, table)).Scan(&rowCount); err != nil {
		rowCount = 0
	}

	return &core.TableMetadata{
		Schema:   "main",
		Name:     table,
		Columns:  columns,
		RowCount: rowCount,
	}, nil
}

func (a *Adapter) tableColumns(ctx context.Context, table string) ([]core.Column, error) {
	// PRAGMA does not accept bind parameters; callers validate table.
	rows, err := a.DB.QueryContext(ctx, fmt.Sprintf(`PRAGMA table_info("%s")`, table))
	if err != nil {
		return nil, fmt.Errorf("failed to query column metadata: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var columns []core.Column
	for rows.Next() {
		var (
			cid     int
			name    string
			colType string
			notNull int
			dflt    sql.NullString
			pk      int
		)
		if err := rows.Scan(&cid, &name, &colType, &notNull, &dflt, &pk); err != nil {
			return nil, fmt.Errorf("failed to scan column metadata: %w", err)
		}
		columns = append(columns, core.Column{
			Name:       name,
			Type:       colType,
			Nullable:   notNull == 0,
			PrimaryKey: pk > 0,
			Position:   cid + 1,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating column metadata: %w", err)
	}
	return columns, nil
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Ensure Adapter implements adapter.Adapter interface
var _ adapter.Adapter = (*Adapter)(nil)
