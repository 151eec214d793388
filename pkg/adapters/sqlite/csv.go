package sqlite

import (
	"context"
	"fmt"
	"strings"

	"github.com/leapstack-labs/salesdash/pkg/adapter"
)

var sqliteTypes = map[adapter.ColumnKind]string{
	adapter.KindInteger: "INTEGER",
	adapter.KindReal:    "REAL",
	adapter.KindText:    "TEXT",
}

// LoadCSV appends the rows of a CSV file with a header row to tableName.
//
// If the table does not exist it is created with column types inferred from
// the data (INTEGER, REAL or TEXT). If it exists, header columns it lacks are
// added as TEXT. Empty cells in non-TEXT columns are stored as NULL.
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
	header := data.Header

	types, err := a.prepareTable(ctx, tableName, data)
	if err != nil {
		return err
	}

	tx, err := a.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	quoted := make([]string, len(header))
	marks := make([]string, len(header))
	for i, h := range header {
		quoted[i] = `"` + h + `"`
		marks[i] = "?"
	}
	//nolint:gosec // identifiers sanitized by adapter.ReadCSV
	insertSQL := fmt.Sprintf(`INSERT INTO "%s" (%s) VALUES (%s)`, tableName, strings.Join(quoted, ", "), strings.Join(marks, ", "))

	stmt, err := tx.PrepareContext(ctx, insertSQL)
	if err != nil {
		return fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	for n, record := range data.Records {
		args := make([]any, len(record))
		for i, v := range record {
			if v == "" && types[header[i]] != "TEXT" {
				args[i] = nil
				continue
			}
			args[i] = v
		}
		if _, err := stmt.ExecContext(ctx, args...); err != nil {
			return fmt.Errorf("failed to insert %s line %d: %w", filePath, n+2, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit CSV load: %w", err)
	}

	a.Logger.Debug("loaded csv", "table", tableName, "rows", len(data.Records), "path", data.Path)
	return nil
}

// prepareTable creates or widens tableName so it has every header column.
// It returns the declared type of each column.
func (a *Adapter) prepareTable(ctx context.Context, tableName string, data *adapter.CSVData) (map[string]string, error) {
	header := data.Header
	existing, err := a.tableColumns(ctx, tableName)
	if err != nil {
		return nil, err
	}

	types := make(map[string]string, len(header))

	if len(existing) == 0 {
		defs := make([]string, len(header))
		for i, h := range header {
			types[h] = sqliteTypes[data.Kind(i)]
			defs[i] = fmt.Sprintf(`"%s" %s`, h, types[h])
		}
		createSQL := fmt.Sprintf(`CREATE TABLE "%s" (%s)`, tableName, strings.Join(defs, ", "))
		if err := a.Exec(ctx, createSQL); err != nil {
			return nil, fmt.Errorf("failed to create table %s: %w", tableName, err)
		}
		return types, nil
	}

	for _, c := range existing {
		types[c.Name] = strings.ToUpper(c.Type)
	}
	for _, h := range header {
		if _, ok := types[h]; ok {
			continue
		}
		alterSQL := fmt.Sprintf(`ALTER TABLE "%s" ADD COLUMN "%s" TEXT`, tableName, h)
		if err := a.Exec(ctx, alterSQL); err != nil {
			return nil, fmt.Errorf("failed to add column %s: %w", h, err)
		}
		types[h] = "TEXT"
	}
	return types, nil
}
