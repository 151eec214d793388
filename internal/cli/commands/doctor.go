package commands

import (
	"context"
	"fmt"
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/leapstack-labs/salesdash/internal/catalog"
	"github.com/leapstack-labs/salesdash/internal/cli/config"
	"github.com/leapstack-labs/salesdash/internal/cli/output"
	"github.com/leapstack-labs/salesdash/internal/query"
	"github.com/leapstack-labs/salesdash/pkg/core"
	"github.com/spf13/cobra"
)

// Check statuses.
const (
	StatusPass  = "pass"
	StatusWarn  = "warn"
	StatusError = "error"
)

// expectedColumns are the columns the catalog queries reference.
var expectedColumns = map[string][]string{
	"customers": {"Customer_ID", "Segment"},
	"orders": {
		"Order_ID", "Customer_ID", "Order_Date", "Ship_Mode", "Country", "Region",
		"Product_ID", "Product_Name", "Category", "Sub_Category",
		"Sales", "Quantity", "Discount", "Profit",
	},
}

// NewDoctorCommand creates the doctor command.
func NewDoctorCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Check the configuration, store and catalog",
		Long: `Check that salesdash can render the dashboard.

The doctor command verifies:
- Configuration: config file, target and catalog
- Store: the store opens and has the customers and orders columns
- Data: header rows loaded as data and malformed order dates
- Catalog: every entry runs against the store

It exits with an error when any check fails.`,
		Example: `  # Run all checks
  salesdash doctor

  # Machine-readable report
  salesdash doctor -o json`,
		RunE: runDoctor,
	}
}

// DoctorOutput is the JSON output for the doctor command.
type DoctorOutput struct {
	ConfigFile string        `json:"config_file,omitempty"`
	Target     string        `json:"target"`
	Store      string        `json:"store"`
	Checks     []HealthCheck `json:"checks"`
	Errors     int           `json:"errors"`
	Warnings   int           `json:"warnings"`
}

// HealthCheck represents a single check result.
type HealthCheck struct {
	Name    string   `json:"name"`
	Group   string   `json:"group"`
	Status  string   `json:"status"`
	Details []string `json:"details,omitempty"`
}

func (o *DoctorOutput) add(group, name, status string, details ...string) {
	o.Checks = append(o.Checks, HealthCheck{Name: name, Group: group, Status: status, Details: details})
	switch status {
	case StatusError:
		o.Errors++
	case StatusWarn:
		o.Warnings++
	}
}

func runDoctor(cmd *cobra.Command, _ []string) error {
	cc, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}

	out := diagnose(cmd.Context(), cc)

	r := cc.Renderer
	switch r.EffectiveMode() {
	case output.ModeJSON:
		err = r.JSON(out)
	case output.ModeMarkdown:
		renderDoctorMarkdown(r, out)
	default:
		renderDoctorText(r, out)
	}
	if err != nil {
		return err
	}

	if out.Errors > 0 {
		return fmt.Errorf("doctor found %d failing checks", out.Errors)
	}
	return nil
}

func diagnose(ctx context.Context, cc *CommandContext) *DoctorOutput {
	cfg := cc.Cfg
	storeCfg := cfg.Store()
	out := &DoctorOutput{
		ConfigFile: config.GetConfigFileUsed(),
		Target:     cfg.Target.Type,
		Store:      storeCfg.Location(),
		Checks:     []HealthCheck{},
	}

	if out.ConfigFile == "" {
		out.add("configuration", "config file", StatusWarn, "no salesdash.yaml found, using defaults")
	} else {
		out.add("configuration", "config file", StatusPass, out.ConfigFile)
	}

	c, err := cfg.LoadCatalog()
	if err != nil {
		out.add("configuration", "catalog", StatusError, err.Error())
	} else {
		out.add("configuration", "catalog", StatusPass, fmt.Sprintf("%s: %d entries", c.Source, len(c.Entries)))
	}

	store, err := cc.OpenStore(ctx)
	if err != nil {
		out.add("store", "connection", StatusError, err.Error())
		return out
	}
	defer func() { _ = store.Close() }()
	out.add("store", "connection", StatusPass, fmt.Sprintf("%s store at %s", store.DialectName(), storeCfg.Location()))

	exec := query.NewExecutor(store, cfg.QueryTimeout, cc.Logger)
	tablesOK := checkTables(ctx, store, out)
	if tablesOK {
		checkData(ctx, exec, out)
	}
	if c != nil && tablesOK {
		checkEntries(ctx, exec, store.DialectName(), c, out)
	}
	return out
}

func checkTables(ctx context.Context, store core.Adapter, out *DoctorOutput) bool {
	ok := true
	for _, table := range []string{"customers", "orders"} {
		meta, err := store.GetTableMetadata(ctx, table)
		if err != nil {
			out.add("store", table, StatusError, err.Error())
			ok = false
			continue
		}

		var missing []string
		for _, col := range expectedColumns[table] {
			if !meta.HasColumn(col) {
				missing = append(missing, col)
			}
		}
		switch {
		case len(missing) > 0:
			out.add("store", table, StatusError, "missing columns: "+strings.Join(missing, ", "))
			ok = false
		case meta.RowCount == 0:
			out.add("store", table, StatusWarn, "table is empty")
		default:
			out.add("store", table, StatusPass, fmt.Sprintf("%d rows, %d columns", meta.RowCount, len(meta.Columns)))
		}
	}
	return ok
}

// dataChecks count rows the catalog's guard clauses exclude.
var dataChecks = []struct {
	name   string
	sql    string
	detail string
}{
	{
		name:   "customer header rows",
		sql:    `SELECT COUNT(*) FROM customers WHERE Customer_ID = 'Customer_ID'`,
		detail: "%d header rows loaded as customers",
	},
	{
		name:   "order header rows",
		sql:    `SELECT COUNT(*) FROM orders WHERE Order_ID = 'Order_ID'`,
		detail: "%d header rows loaded as orders",
	},
	{
		name: "order dates",
		sql: `SELECT COUNT(*) FROM orders
WHERE NOT COALESCE(LENGTH(Order_Date) = 10
    AND SUBSTR(Order_Date, 7, 4) BETWEEN '1000' AND '9999'
    AND SUBSTR(Order_Date, 1, 2) BETWEEN '01' AND '12'
    AND SUBSTR(Order_Date, 4, 2) BETWEEN '01' AND '31', FALSE)`,
		detail: "%d orders have a malformed Order_Date and are left out of monthly sales",
	},
}

func checkData(ctx context.Context, exec *query.Executor, out *DoctorOutput) {
	for _, dc := range dataChecks {
		t, err := exec.Execute(ctx, dc.sql)
		if err != nil {
			out.add("data", dc.name, StatusWarn, "check failed: "+err.Error())
			continue
		}
		n := countOf(t)
		if n > 0 {
			out.add("data", dc.name, StatusWarn, fmt.Sprintf(dc.detail, n))
			continue
		}
		out.add("data", dc.name, StatusPass)
	}
}

func checkEntries(ctx context.Context, exec *query.Executor, dialect string, c *catalog.Catalog, out *DoctorOutput) {
	for i, e := range c.Entries {
		t, err := exec.ExecuteEntry(ctx, c.Ref(i), e.SQLFor(dialect))
		if err != nil {
			out.add("catalog", e.Name, StatusError, err.Error())
			continue
		}
		out.add("catalog", e.Name, StatusPass, fmt.Sprintf("%d rows in %s", t.RowCount(), t.Duration.Round(time.Millisecond)))
	}
}

// countOf reads a single COUNT(*) result.
func countOf(t *core.ResultTable) int64 {
	if t.RowCount() != 1 || len(t.Columns) != 1 {
		return 0
	}
	switch n := t.Rows[0][0].(type) {
	case int64:
		return n
	case float64:
		return int64(n)
	default:
		return 0
	}
}

func statusIcon(r *output.Renderer, status string) string {
	styles := r.Styles()
	switch status {
	case StatusWarn:
		return styles.Warning.Render("!")
	case StatusError:
		return styles.Error.Render("✗")
	default:
		return styles.Success.Render("✓")
	}
}

func renderDoctorText(r *output.Renderer, out *DoctorOutput) {
	styles := r.Styles()

	r.Println("")
	r.Println(styles.Header1.Render("salesdash Health Report"))
	r.Println(styles.Muted.Render(strings.Repeat("=", 55)))
	r.Printf("   Target: %s | Store: %s\n", out.Target, out.Store)
	r.Println("")

	currentGroup := ""
	titleCaser := cases.Title(language.English)
	for _, check := range out.Checks {
		if check.Group != currentGroup {
			currentGroup = check.Group
			r.Println(styles.Bold.Render("   " + titleCaser.String(currentGroup)))
			r.Println(styles.Muted.Render("   " + strings.Repeat("-", 40)))
		}
		r.Printf("   %s %s\n", statusIcon(r, check.Status), check.Name)
		for _, detail := range check.Details {
			r.Println(styles.Muted.Render("       - " + detail))
		}
	}
	r.Println("")
	r.Println(styles.Muted.Render(strings.Repeat("=", 55)))
	r.Printf("   %d errors, %d warnings\n", out.Errors, out.Warnings)
}

func renderDoctorMarkdown(r *output.Renderer, out *DoctorOutput) {
	r.Println("# salesdash Health Report")
	r.Println("")
	r.Println(output.FormatKeyValue("Target", out.Target))
	r.Println(output.FormatKeyValue("Store", out.Store))
	r.Println("")

	currentGroup := ""
	titleCaser := cases.Title(language.English)
	for _, check := range out.Checks {
		if check.Group != currentGroup {
			currentGroup = check.Group
			r.Println(output.FormatHeader(2, titleCaser.String(currentGroup)))
			r.Println("")
		}
		line := fmt.Sprintf("- **%s** %s", check.Name, strings.ToUpper(check.Status))
		if len(check.Details) > 0 {
			line += ": " + strings.Join(check.Details, "; ")
		}
		r.Println(line)
	}
	r.Println("")
	r.Printf("**%d errors, %d warnings**\n", out.Errors, out.Warnings)
}
