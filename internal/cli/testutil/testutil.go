// Package testutil provides test utilities for CLI testing.
package testutil

import (
	"bytes"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"

	"github.com/leapstack-labs/salesdash/internal/cli/output"
)

// CustomersCSV is the customers seed of SetupTestProject. The last line
// repeats the header the way a careless export does.
const CustomersCSV = `Customer_ID,Customer_Name,Segment
C-1,Ada,Consumer
C-2,Grace,Corporate
Customer_ID,Customer_Name,Segment
`

// OrdersCSV is the orders seed of SetupTestProject. O-3 has an ISO date,
// which the monthly query treats as malformed.
const OrdersCSV = `Order_ID,Customer_ID,Order_Date,Ship_Mode,Country,Region,Product_ID,Category,Sub_Category,Product_Name,Sales,Quantity,Discount,Profit
O-1,C-1,11/05/2020,First Class,United States,West,P-1,Technology,Copiers,Copier,300,2,0,90
O-2,C-1,12/01/2020,Standard Class,United States,East,P-2,Furniture,Tables,Table,50,1,0.2,-10
O-3,C-2,2020-11-20,Standard Class,United States,West,P-3,Office Supplies,Paper,Paper,100,5,0,30
`

// SetupTestProject creates a project directory with seeds and a
// salesdash.yaml pointing at sales.db. The store itself is not created.
func SetupTestProject(t *testing.T) string {
	t.Helper()

	dir := t.TempDir()
	seeds := filepath.Join(dir, "seeds")
	if err := os.MkdirAll(seeds, 0o750); err != nil {
		t.Fatalf("failed to create seeds directory: %v", err)
	}

	files := map[string]string{
		filepath.Join(seeds, "customers.csv"): CustomersCSV,
		filepath.Join(seeds, "orders.csv"):    OrdersCSV,
		filepath.Join(dir, "salesdash.yaml"): `database: sales.db
seeds_dir: seeds
target:
  type: sqlite
`,
	}
	for path, content := range files {
		if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
			t.Fatalf("failed to write %s: %v", path, err)
		}
	}
	return dir
}

// TestRenderer wraps a Renderer for testing with captured output buffers.
type TestRenderer struct {
	*output.Renderer
	Out    *bytes.Buffer
	ErrOut *bytes.Buffer
}

// NewTestRenderer creates a test renderer with the specified mode.
// Buffers are never terminals, so auto mode renders markdown.
func NewTestRenderer(mode output.Mode) *TestRenderer {
	out := &bytes.Buffer{}
	errOut := &bytes.Buffer{}
	return &TestRenderer{
		Renderer: output.NewRenderer(out, errOut, mode),
		Out:      out,
		ErrOut:   errOut,
	}
}

// Output returns the stdout output as a string.
func (tr *TestRenderer) Output() string {
	return tr.Out.String()
}

// ErrorOutput returns the stderr output as a string.
func (tr *TestRenderer) ErrorOutput() string {
	return tr.ErrOut.String()
}

// ansiPattern matches ANSI escape codes.
var ansiPattern = regexp.MustCompile(`\x1b\[[0-9;]*[a-zA-Z]`)

// AssertNoANSI checks that a string contains no ANSI escape codes.
func AssertNoANSI(t *testing.T, s string) {
	t.Helper()
	if ansiPattern.MatchString(s) {
		t.Errorf("string contains ANSI escape codes: %q", s)
	}
}

// AssertValidMarkdown performs basic markdown validation.
// It checks for unclosed code fences and empty headers.
func AssertValidMarkdown(t *testing.T, md string) {
	t.Helper()

	if n := strings.Count(md, "```"); n%2 != 0 {
		t.Errorf("unbalanced code fences in markdown: found %d occurrences", n)
	}

	for i, line := range strings.Split(md, "\n") {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "#") && strings.TrimLeft(trimmed, "# ") == "" {
			t.Errorf("empty header at line %d: %q", i+1, line)
		}
	}
}
