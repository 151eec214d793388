package commands

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/leapstack-labs/salesdash/internal/query"
	"github.com/leapstack-labs/salesdash/pkg/core"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

// QueryOptions holds options for the query command.
type QueryOptions struct {
	Format string
	Input  string
}

var queryFormats = []string{"table", "json", "csv", "md", "markdown"}

// NewQueryCommand creates the query command.
func NewQueryCommand() *cobra.Command {
	opts := &QueryOptions{}

	cmd := &cobra.Command{
		Use:   "query [SQL]",
		Short: "Run ad-hoc SQL against the sales store",
		Long: `Run SQL against the configured store to explore the data behind the
dashboard. The store is opened read-only.

SQL is taken from the arguments, from --input, or from stdin when it is
piped. Without any of these on a terminal, an interactive REPL starts.`,
		Example: `  # Execute SQL directly
  salesdash query "SELECT Segment, COUNT(*) FROM customers GROUP BY Segment"

  # List available tables
  salesdash query tables

  # Show schema for a table
  salesdash query schema orders

  # Output as CSV
  salesdash query "SELECT * FROM orders" --format csv

  # Interactive mode
  salesdash query`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runQuery(cmd, args, opts)
		},
	}

	cmd.PersistentFlags().StringVarP(&opts.Format, "format", "f", "table", "Output format: table, json, csv, md")
	cmd.Flags().StringVarP(&opts.Input, "input", "i", "", "Read SQL from file")
	_ = cmd.RegisterFlagCompletionFunc("format", func(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
		return queryFormats[:4], cobra.ShellCompDirectiveNoFileComp
	})

	cmd.AddCommand(newQueryTablesCommand(opts))
	cmd.AddCommand(newQuerySchemaCommand(opts))

	return cmd
}

func runQuery(cmd *cobra.Command, args []string, opts *QueryOptions) error {
	if err := checkFormat(opts.Format); err != nil {
		return err
	}

	var sqlQuery string
	switch {
	case len(args) > 0:
		sqlQuery = strings.Join(args, " ")
	case opts.Input != "":
		content, err := os.ReadFile(opts.Input)
		if err != nil {
			return fmt.Errorf("failed to read file: %w", err)
		}
		sqlQuery = string(content)
	case !isTerminal(cmd.InOrStdin()):
		content, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return fmt.Errorf("failed to read stdin: %w", err)
		}
		sqlQuery = string(content)
	}

	return withStore(cmd, func(s *storeSession) error {
		if strings.TrimSpace(sqlQuery) == "" {
			if isTerminal(cmd.InOrStdin()) {
				return runQueryREPL(cmd, s, opts)
			}
			return fmt.Errorf("no SQL given")
		}
		return s.executeAndRender(cmd.Context(), sqlQuery, opts.Format)
	})
}

// newQueryTablesCommand creates the tables subcommand.
func newQueryTablesCommand(opts *QueryOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "tables",
		Short: "List tables and views in the store",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := checkFormat(opts.Format); err != nil {
				return err
			}
			return withStore(cmd, func(s *storeSession) error {
				return s.listTables(cmd.Context(), opts.Format)
			})
		},
	}
}

// newQuerySchemaCommand creates the schema subcommand.
func newQuerySchemaCommand(opts *QueryOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "schema <table>",
		Short: "Show the columns of a table",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := checkFormat(opts.Format); err != nil {
				return err
			}
			return withStore(cmd, func(s *storeSession) error {
				return s.showSchema(cmd.Context(), args[0], opts.Format)
			})
		},
	}
}

// withStore opens the store for the duration of fn.
func withStore(cmd *cobra.Command, fn func(s *storeSession) error) error {
	cc, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}

	store, err := cc.OpenStore(cmd.Context())
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	return fn(&storeSession{
		cc:    cc,
		store: store,
		exec:  query.NewExecutor(store, cc.Cfg.QueryTimeout, cc.Logger),
	})
}

// storeSession is an open store plus the command's output.
type storeSession struct {
	cc    *CommandContext
	store core.Adapter
	exec  *query.Executor
}

func (s *storeSession) executeAndRender(ctx context.Context, sqlQuery, format string) error {
	t, err := s.exec.Execute(ctx, sqlQuery)
	if err != nil {
		return err
	}
	return renderResult(s.cc.Renderer, t, format)
}

func checkFormat(format string) error {
	for _, f := range queryFormats {
		if format == f {
			return nil
		}
	}
	return fmt.Errorf("unknown format %q (expected table, json, csv or md)", format)
}

func isTerminal(r io.Reader) bool {
	f, ok := r.(*os.File)
	return ok && term.IsTerminal(int(f.Fd())) //nolint:gosec // fd fits in int
}
