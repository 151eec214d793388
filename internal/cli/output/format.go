package output

import (
	"encoding/csv"
	"fmt"
	"io"
	"math/big"
	"strconv"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/leapstack-labs/salesdash/pkg/core"
)

// FormatHeader formats a markdown header.
func FormatHeader(level int, text string) string {
	return strings.Repeat("#", max(level, 1)) + " " + text
}

// FormatKeyValue formats a markdown list item with a bold key.
func FormatKeyValue(key, value string) string {
	return fmt.Sprintf("- **%s:** %s", key, value)
}

// FormatValue renders a result value without locale formatting.
func FormatValue(v any) string {
	switch x := v.(type) {
	case nil:
		return "NULL"
	case string:
		return x
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case int64:
		return strconv.FormatInt(x, 10)
	case bool:
		return strconv.FormatBool(x)
	case time.Time:
		return x.Format(time.RFC3339)
	case *big.Int:
		return x.String()
	default:
		return fmt.Sprintf("%v", x)
	}
}

// DisplayValue renders a result value for people: numbers get thousands
// separators and floats two decimals.
func (r *Renderer) DisplayValue(v any) string {
	switch x := v.(type) {
	case float64:
		return r.printer.Sprintf("%.2f", x)
	case int64:
		return r.printer.Sprintf("%d", x)
	default:
		return FormatValue(v)
	}
}

func isNumeric(v any) bool {
	switch v.(type) {
	case int64, float64, *big.Int:
		return true
	}
	return false
}

// Table writes a result as a box-drawn table followed by a row count.
func (r *Renderer) Table(t *core.ResultTable) {
	if t.RowCount() == 0 {
		r.Println(r.styles.Muted.Render("(0 rows)"))
		return
	}

	tw := table.NewWriter()
	tw.SetOutputMirror(r.out)
	style := table.StyleLight
	style.Format.Header = text.FormatDefault
	tw.SetStyle(style)

	header := make(table.Row, len(t.Columns))
	for i, c := range t.Columns {
		header[i] = c
	}
	tw.AppendHeader(header)

	// Right-align columns whose first value is numeric.
	var configs []table.ColumnConfig
	for i := range t.Columns {
		if isNumeric(t.Rows[0][i]) {
			configs = append(configs, table.ColumnConfig{Number: i + 1, Align: text.AlignRight})
		}
	}
	tw.SetColumnConfigs(configs)

	for _, row := range t.Rows {
		out := make(table.Row, len(row))
		for i, v := range row {
			out[i] = r.DisplayValue(v)
		}
		tw.AppendRow(out)
	}

	tw.Render()
	r.Println(r.styles.Muted.Render(rowCount(t.RowCount())))
}

// MarkdownTable writes a result as a pipe table.
func MarkdownTable(w io.Writer, t *core.ResultTable) error {
	if t.RowCount() == 0 {
		_, err := fmt.Fprintln(w, "(0 rows)")
		return err
	}

	var b strings.Builder
	b.WriteString("| " + strings.Join(escapeCells(t.Columns), " | ") + " |\n")
	seps := make([]string, len(t.Columns))
	for i := range seps {
		seps[i] = "---"
	}
	b.WriteString("| " + strings.Join(seps, " | ") + " |\n")

	for _, row := range t.Rows {
		cells := make([]string, len(row))
		for i, v := range row {
			cells[i] = FormatValue(v)
		}
		b.WriteString("| " + strings.Join(escapeCells(cells), " | ") + " |\n")
	}
	b.WriteString("\n" + rowCount(t.RowCount()) + "\n")

	_, err := io.WriteString(w, b.String())
	return err
}

// WriteCSV writes a result as CSV with a header row.
func WriteCSV(w io.Writer, t *core.ResultTable) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(t.Columns); err != nil {
		return err
	}
	for _, row := range t.Rows {
		record := make([]string, len(row))
		for i, v := range row {
			if v != nil {
				record[i] = FormatValue(v)
			}
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// Records converts a result into one map per row for JSON output.
func Records(t *core.ResultTable) []map[string]any {
	out := make([]map[string]any, len(t.Rows))
	for i, row := range t.Rows {
		m := make(map[string]any, len(row))
		for j, c := range t.Columns {
			m[c] = row[j]
		}
		out[i] = m
	}
	return out
}

func escapeCells(cells []string) []string {
	out := make([]string, len(cells))
	for i, c := range cells {
		c = strings.ReplaceAll(c, "|", `\|`)
		out[i] = strings.ReplaceAll(c, "\n", " ")
	}
	return out
}

func rowCount(n int) string {
	if n == 1 {
		return "(1 row)"
	}
	return fmt.Sprintf("(%d rows)", n)
}
