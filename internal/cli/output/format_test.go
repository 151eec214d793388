package output

import (
	"bytes"
	"math/big"
	"testing"
	"time"

	"github.com/leapstack-labs/salesdash/pkg/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseMode(t *testing.T) {
	tests := []struct {
		in      string
		want    Mode
		wantErr bool
	}{
		{"", ModeAuto, false},
		{"auto", ModeAuto, false},
		{"TEXT", ModeText, false},
		{"md", ModeMarkdown, false},
		{"markdown", ModeMarkdown, false},
		{" json ", ModeJSON, false},
		{"yaml", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseMode(tt.in)
			if tt.wantErr {
				assert.ErrorContains(t, err, "unknown output format")
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNewRendererUnknownModeFallsBackToAuto(t *testing.T) {
	r := NewRenderer(&bytes.Buffer{}, &bytes.Buffer{}, Mode("bogus"))
	assert.Equal(t, ModeMarkdown, r.EffectiveMode())
	assert.False(t, r.IsTTY())
}

func TestFormatValue(t *testing.T) {
	n, _ := new(big.Int).SetString("18446744073709551615", 10)
	ts := time.Date(2020, 11, 5, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name string
		in   any
		want string
	}{
		{"nil", nil, "NULL"},
		{"string", "Consumer", "Consumer"},
		{"float", 79834.192, "79834.192"},
		{"whole float", 75.0, "75"},
		{"int", int64(1234567), "1234567"},
		{"bool", true, "true"},
		{"time", ts, "2020-11-05T00:00:00Z"},
		{"big", n, "18446744073709551615"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, FormatValue(tt.in))
		})
	}
}

func TestDisplayValue(t *testing.T) {
	r := NewRenderer(&bytes.Buffer{}, &bytes.Buffer{}, ModeText)

	assert.Equal(t, "79,834.19", r.DisplayValue(79834.192))
	assert.Equal(t, "1,234,567", r.DisplayValue(int64(1234567)))
	assert.Equal(t, "NULL", r.DisplayValue(nil))
	assert.Equal(t, "C-1", r.DisplayValue("C-1"))
}

func TestFormatHelpers(t *testing.T) {
	assert.Equal(t, "# Title", FormatHeader(1, "Title"))
	assert.Equal(t, "### Deep", FormatHeader(3, "Deep"))
	assert.Equal(t, "# Zero", FormatHeader(0, "Zero"))
	assert.Equal(t, "- **Rows:** 3", FormatKeyValue("Rows", "3"))
}

func TestMarkdownTableEscapesCells(t *testing.T) {
	var out bytes.Buffer
	require.NoError(t, MarkdownTable(&out, &core.ResultTable{
		Columns: []string{"Product_Name"},
		Rows:    [][]any{{"Pen | Blue\nInk"}},
	}))

	assert.Equal(t, "| Product_Name |\n| --- |\n| Pen \\| Blue Ink |\n\n(1 row)\n", out.String())
}

func TestWriteCSV(t *testing.T) {
	var out bytes.Buffer
	require.NoError(t, WriteCSV(&out, &core.ResultTable{
		Columns: []string{"Ship_Mode", "Total_Sales"},
		Rows:    [][]any{{"Second Class", 120.5}, {nil, int64(3)}, {"a,b", 1.0}},
	}))

	assert.Equal(t, "Ship_Mode,Total_Sales\nSecond Class,120.5\n,3\n\"a,b\",1\n", out.String())
}

func TestRecords(t *testing.T) {
	got := Records(&core.ResultTable{
		Columns: []string{"Segment", "Total_Orders"},
		Rows:    [][]any{{"Consumer", int64(2)}},
	})

	assert.Equal(t, []map[string]any{{"Segment": "Consumer", "Total_Orders": int64(2)}}, got)
}

func TestTextTableRightAlignsNumbers(t *testing.T) {
	var out bytes.Buffer
	r := NewRenderer(&out, &bytes.Buffer{}, ModeText)

	r.Table(&core.ResultTable{
		Columns: []string{"Region", "Total_Sales"},
		Rows:    [][]any{{"West", 1500.5}, {"East", 20.0}},
	})

	s := out.String()
	assert.Contains(t, s, "1,500.50")
	assert.Contains(t, s, "   20.00")
	assert.Contains(t, s, "┌")
	assert.Contains(t, s, "(2 rows)")
}
