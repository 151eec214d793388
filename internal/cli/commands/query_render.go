package commands

import (
	"context"
	"fmt"

	"github.com/leapstack-labs/salesdash/internal/cli/output"
	"github.com/leapstack-labs/salesdash/pkg/core"
)

// tablesSQL lists user tables and views for a dialect.
func tablesSQL(dialect string) string {
	if dialect == "sqlite" {
		return `SELECT name, type
FROM sqlite_master
WHERE type IN ('table', 'view')
  AND name NOT LIKE 'sqlite_%'
  AND name NOT LIKE 'goose_%'
ORDER BY type DESC, name`
	}
	return `SELECT table_name AS name, lower(table_type) AS type
FROM information_schema.tables
WHERE table_schema = current_schema()
ORDER BY table_type, table_name`
}

func renderResult(r *output.Renderer, t *core.ResultTable, format string) error {
	switch format {
	case "json":
		return r.JSON(output.Records(t))
	case "csv":
		return output.WriteCSV(r.Writer(), t)
	case "md", "markdown":
		return output.MarkdownTable(r.Writer(), t)
	default:
		r.Table(t)
		return nil
	}
}

func (s *storeSession) listTables(ctx context.Context, format string) error {
	return s.executeAndRender(ctx, tablesSQL(s.store.DialectName()), format)
}

// tableNames returns the store's table and view names, or nil on error.
func (s *storeSession) tableNames(ctx context.Context) []string {
	t, err := s.exec.Execute(ctx, tablesSQL(s.store.DialectName()))
	if err != nil {
		return nil
	}
	names := make([]string, 0, t.RowCount())
	for _, row := range t.Rows {
		if name, ok := row[0].(string); ok {
			names = append(names, name)
		}
	}
	return names
}

// schemaOutput is the JSON output of the schema subcommand.
type schemaOutput struct {
	Schema   string        `json:"schema"`
	Name     string        `json:"name"`
	RowCount int64         `json:"row_count"`
	Columns  []core.Column `json:"columns"`
}

func (s *storeSession) showSchema(ctx context.Context, table, format string) error {
	meta, err := s.store.GetTableMetadata(ctx, table)
	if err != nil {
		return err
	}

	if format == "json" {
		return s.cc.Renderer.JSON(schemaOutput{
			Schema:   meta.Schema,
			Name:     meta.Name,
			RowCount: meta.RowCount,
			Columns:  meta.Columns,
		})
	}

	t := &core.ResultTable{Columns: []string{"Column", "Type", "Nullable", "Primary Key"}}
	for _, c := range meta.Columns {
		t.Rows = append(t.Rows, []any{c.Name, c.Type, yesNo(c.Nullable), yesNo(c.PrimaryKey)})
	}

	r := s.cc.Renderer
	switch format {
	case "csv":
		return output.WriteCSV(r.Writer(), t)
	case "md", "markdown":
		r.Println(output.FormatHeader(2, fmt.Sprintf("Table: %s.%s", meta.Schema, meta.Name)))
		r.Println("")
		if err := output.MarkdownTable(r.Writer(), t); err != nil {
			return err
		}
		r.Println(output.FormatKeyValue("Rows", r.DisplayValue(meta.RowCount)))
	default:
		r.Header(2, fmt.Sprintf("Table: %s.%s", meta.Schema, meta.Name))
		r.Table(t)
		r.Muted("Rows: " + r.DisplayValue(meta.RowCount))
	}
	return nil
}

func yesNo(b bool) string {
	if b {
		return "YES"
	}
	return "NO"
}
