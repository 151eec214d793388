package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"regexp"
	"sort"
	"strings"

	"github.com/jackc/pgx/v5/stdlib"
	"github.com/leapstack-labs/salesdash/pkg/adapter"
	"github.com/leapstack-labs/salesdash/pkg/core"
)

var identRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

var pgTypes = map[adapter.ColumnKind]string{
	adapter.KindInteger: "BIGINT",
	adapter.KindReal:    "DOUBLE PRECISION",
	adapter.KindText:    "TEXT",
}

// Adapter implements the adapter.Adapter interface for PostgreSQL.
type Adapter struct {
	adapter.BaseSQLAdapter
}

// New creates a new PostgreSQL adapter instance.
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
	return "postgres"
}

// Connect establishes a connection to PostgreSQL.
// Sessions are read-only unless cfg.Create is set.
func (a *Adapter) Connect(ctx context.Context, cfg adapter.Config) error {
	params, err := parseParams(cfg.Params)
	if err != nil {
		return err
	}
	dsn := buildPostgresDSN(cfg, params)

	a.Logger.Debug("connecting to postgres", slog.String("host", cfg.Host), slog.String("database", cfg.Database))

	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return fmt.Errorf("failed to open postgres connection: %w", err)
	}
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to ping postgres: %w", err)
	}

	a.DB = db
	a.Cfg = cfg
	return nil
}

// buildPostgresDSN constructs a PostgreSQL connection string.
// Unknown keys are passed to the server as runtime parameters by pgx.
func buildPostgresDSN(cfg adapter.Config, params *Params) string {
	host := cfg.Host
	if host == "" {
		host = "localhost"
	}

	port := cfg.Port
	if port == 0 {
		port = 5432
	}

	sslmode := "disable"
	if mode, ok := cfg.Options["sslmode"]; ok {
		sslmode = mode
	}

	dsn := fmt.Sprintf("host=%s port=%d dbname=%s sslmode=%s",
		host, port, cfg.Database, sslmode)

	if cfg.Username != "" {
		dsn += fmt.Sprintf(" user=%s", quoteValue(cfg.Username))
	}
	if cfg.Password != "" {
		dsn += fmt.Sprintf(" password=%s", quoteValue(cfg.Password))
	}
	if params.SearchPath != "" {
		dsn += fmt.Sprintf(" search_path=%s", quoteValue(params.SearchPath))
	}
	if params.ConnectTimeout > 0 {
		dsn += fmt.Sprintf(" connect_timeout=%d", params.ConnectTimeout)
	}
	if !cfg.Create {
		dsn += " default_transaction_read_only=on"
	}

	keys := make([]string, 0, len(cfg.Options))
	for k := range cfg.Options {
		if k != "sslmode" {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	for _, k := range keys {
		dsn += fmt.Sprintf(" %s=%s", k, quoteValue(cfg.Options[k]))
	}

	return dsn
}

// quoteValue quotes a DSN value containing spaces, quotes or backslashes.
func quoteValue(v string) string {
	if v != "" && !strings.ContainsAny(v, ` '\`) {
		return v
	}
	v = strings.ReplaceAll(v, `\`, `\\`)
	v = strings.ReplaceAll(v, `'`, `\'`)
	return "'" + v + "'"
}

// GetTableMetadata retrieves metadata for a specified table.
func (a *Adapter) GetTableMetadata(ctx context.Context, table string) (*core.TableMetadata, error) {
	schema := "public"
	tableName := table
	if parts := strings.Split(table, "."); len(parts) == 2 {
		schema = parts[0]
		tableName = parts[1]
	}
	if !identRe.MatchString(schema) || !identRe.MatchString(tableName) {
		return nil, fmt.Errorf("invalid table name %q", table)
	}

	return a.InformationSchemaMetadata(ctx, strings.ToLower(schema), strings.ToLower(tableName), func(n int) string {
		return fmt.Sprintf("$%d", n)
	})
}

// LoadCSV appends a CSV file with a header row to a table using COPY FROM STDIN.
// A missing table is created with inferred column types; header columns an
// existing table lacks are added as TEXT. Column names are folded to lower
// case so unquoted references resolve.
func (a *Adapter) LoadCSV(ctx context.Context, tableName string, filePath string) error {
	if a.DB == nil {
		return adapter.ErrNotConnected
	}
	if !identRe.MatchString(tableName) {
		return fmt.Errorf("invalid table name %q", tableName)
	}

	data, err := adapter.ReadCSV(filePath)
	if err != nil {
		return err
	}

	columns := make([]string, len(data.Header))
	for i, h := range data.Header {
		columns[i] = strings.ToLower(h)
	}

	if err := a.prepareTable(ctx, strings.ToLower(tableName), columns, data); err != nil {
		return err
	}

	file, err := os.Open(data.Path)
	if err != nil {
		return fmt.Errorf("failed to open CSV file: %w", err)
	}
	defer func() { _ = file.Close() }()

	if err := a.copyFromCSV(ctx, copySQL(tableName, columns), file); err != nil {
		return fmt.Errorf("failed to copy data: %w", err)
	}

	a.Logger.Debug("loaded csv", "table", tableName, "rows", len(data.Records), "path", data.Path)
	return nil
}

func (a *Adapter) prepareTable(ctx context.Context, table string, columns []string, data *adapter.CSVData) error {
	meta, err := a.GetTableMetadata(ctx, table)
	if err != nil {
		if err := a.Exec(ctx, createTableSQL(table, columns, data)); err != nil {
			return fmt.Errorf("failed to create table: %w", err)
		}
		return nil
	}

	for _, c := range columns {
		if meta.HasColumn(c) {
			continue
		}
		if err := a.Exec(ctx, fmt.Sprintf(`ALTER TABLE %s ADD COLUMN "%s" TEXT`, table, c)); err != nil {
			return fmt.Errorf("failed to add column %s: %w", c, err)
		}
	}
	return nil
}

func createTableSQL(table string, columns []string, data *adapter.CSVData) string {
	defs := make([]string, len(columns))
	for i, c := range columns {
		defs[i] = fmt.Sprintf(`"%s" %s`, c, pgTypes[data.Kind(i)])
	}
	return fmt.Sprintf("CREATE TABLE %s (%s)", strings.ToLower(table), strings.Join(defs, ", "))
}

func copySQL(table string, columns []string) string {
	quoted := make([]string, len(columns))
	for i, c := range columns {
		quoted[i] = `"` + c + `"`
	}
	return fmt.Sprintf("COPY %s (%s) FROM STDIN WITH (FORMAT csv, HEADER true)",
		strings.ToLower(table), strings.Join(quoted, ", "))
}

// copyFromCSV streams the file through the pgx connection's COPY protocol.
func (a *Adapter) copyFromCSV(ctx context.Context, stmt string, file *os.File) error {
	conn, err := a.DB.Conn(ctx)
	if err != nil {
		return fmt.Errorf("failed to get connection: %w", err)
	}
	defer func() { _ = conn.Close() }()

	return conn.Raw(func(driverConn any) error {
		pgxConn, ok := driverConn.(*stdlib.Conn)
		if !ok {
			return fmt.Errorf("unexpected driver connection %T", driverConn)
		}
		_, err := pgxConn.Conn().PgConn().CopyFrom(ctx, file, stmt)
		return err
	})
}

// Ensure Adapter implements adapter.Adapter interface
var _ adapter.Adapter = (*Adapter)(nil)
