package commands

import (
	"bytes"
	"context"
	"log/slog"
	"testing"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/salesdash/internal/cli/config"
	"github.com/leapstack-labs/salesdash/internal/cli/output"
	"github.com/leapstack-labs/salesdash/internal/cli/testutil"
	"github.com/leapstack-labs/salesdash/pkg/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRunCommand(t *testing.T) {
	cmd := NewRunCommand()

	assert.Equal(t, "run", cmd.Use)
	assert.NotEmpty(t, cmd.Short)
	assert.NotEmpty(t, cmd.Example)
	assert.NotNil(t, cmd.Flags().Lookup("select"))
	assert.Equal(t, "s", cmd.Flags().Lookup("select").Shorthand)
}

func TestNewServeCommand(t *testing.T) {
	cmd := NewServeCommand()

	assert.Equal(t, "serve", cmd.Use)
	assert.Contains(t, cmd.Aliases, "ui")
	for _, flag := range []string{"port", "watch"} {
		assert.NotNil(t, cmd.Flags().Lookup(flag), "flag %q should exist", flag)
	}
	assert.Equal(t, "8765", cmd.Flags().Lookup("port").DefValue)
}

func TestNewSeedCommand(t *testing.T) {
	cmd := NewSeedCommand()

	assert.Equal(t, "seed", cmd.Use)
	assert.NotNil(t, cmd.Flags().Lookup("reset"))
}

func TestNewQueryCommand(t *testing.T) {
	cmd := NewQueryCommand()

	assert.Equal(t, "query [SQL]", cmd.Use)
	assert.NotNil(t, cmd.PersistentFlags().Lookup("format"))
	assert.NotNil(t, cmd.Flags().Lookup("input"))

	var subs []string
	for _, c := range cmd.Commands() {
		subs = append(subs, c.Name())
	}
	assert.ElementsMatch(t, []string{"tables", "schema"}, subs)
}

func TestNewCatalogCommand(t *testing.T) {
	cmd := NewCatalogCommand()

	var subs []string
	for _, c := range cmd.Commands() {
		subs = append(subs, c.Name())
	}
	assert.ElementsMatch(t, []string{"list", "show"}, subs)
}

func TestCheckFormat(t *testing.T) {
	for _, f := range []string{"table", "json", "csv", "md", "markdown"} {
		assert.NoError(t, checkFormat(f), f)
	}
	assert.Error(t, checkFormat("xml"))
	assert.Error(t, checkFormat(""))
}

func TestTablesSQL(t *testing.T) {
	assert.Contains(t, tablesSQL("sqlite"), "sqlite_master")
	assert.Contains(t, tablesSQL("sqlite"), "goose_%")
	assert.Contains(t, tablesSQL("duckdb"), "information_schema.tables")
	assert.Contains(t, tablesSQL("postgres"), "current_schema()")
}

func TestCountOf(t *testing.T) {
	tests := []struct {
		name  string
		table *core.ResultTable
		want  int64
	}{
		{"int", &core.ResultTable{Columns: []string{"n"}, Rows: [][]any{{int64(4)}}}, 4},
		{"float", &core.ResultTable{Columns: []string{"n"}, Rows: [][]any{{float64(2)}}}, 2},
		{"null", &core.ResultTable{Columns: []string{"n"}, Rows: [][]any{{nil}}}, 0},
		{"no rows", &core.ResultTable{Columns: []string{"n"}}, 0},
		{"two columns", &core.ResultTable{Columns: []string{"a", "b"}, Rows: [][]any{{int64(1), int64(2)}}}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, countOf(tt.table))
		})
	}
}

func TestRenderResult(t *testing.T) {
	table := &core.ResultTable{
		Columns: []string{"Region", "Total_Sales"},
		Rows:    [][]any{{"West", 400.5}, {"East", nil}},
	}

	t.Run("markdown", func(t *testing.T) {
		tr := testutil.NewTestRenderer(output.ModeAuto)
		require.NoError(t, renderResult(tr.Renderer, table, "md"))
		assert.Equal(t, "| Region | Total_Sales |\n| --- | --- |\n| West | 400.5 |\n| East | NULL |\n\n(2 rows)\n", tr.Output())
	})

	t.Run("csv", func(t *testing.T) {
		tr := testutil.NewTestRenderer(output.ModeAuto)
		require.NoError(t, renderResult(tr.Renderer, table, "csv"))
		assert.Equal(t, "Region,Total_Sales\nWest,400.5\nEast,\n", tr.Output())
	})

	t.Run("json", func(t *testing.T) {
		tr := testutil.NewTestRenderer(output.ModeAuto)
		require.NoError(t, renderResult(tr.Renderer, table, "json"))
		assert.JSONEq(t, `[{"Region":"West","Total_Sales":400.5},{"Region":"East","Total_Sales":null}]`, tr.Output())
	})

	t.Run("table", func(t *testing.T) {
		tr := testutil.NewTestRenderer(output.ModeText)
		require.NoError(t, renderResult(tr.Renderer, table, "table"))
		testutil.AssertNoANSI(t, tr.Output())
		assert.Contains(t, tr.Output(), "West")
		assert.Contains(t, tr.Output(), "(2 rows)")
	})
}

func TestNewCommandContext_UsesRootContextValues(t *testing.T) {
	cfg := &config.Config{Catalog: "from-context.yaml"}
	renderer := output.NewRenderer(&bytes.Buffer{}, &bytes.Buffer{}, output.ModeJSON)
	logger := slog.New(slog.DiscardHandler)

	ctx := context.WithValue(context.Background(), config.ConfigKey(), cfg)
	ctx = context.WithValue(ctx, output.RendererKey(), renderer)
	ctx = context.WithValue(ctx, config.LoggerKey(), logger)

	cmd := &cobra.Command{}
	cmd.SetContext(ctx)

	cc, err := NewCommandContext(cmd)
	require.NoError(t, err)
	assert.Same(t, cfg, cc.Cfg)
	assert.Same(t, renderer, cc.Renderer)
	assert.Same(t, logger, cc.Logger)
}

func TestFromContext_Empty(t *testing.T) {
	assert.Nil(t, config.FromContext(context.Background()))
	assert.Nil(t, output.FromContext(context.Background()))
}
