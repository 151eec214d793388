package commands

import (
	"errors"
	"fmt"

	"github.com/leapstack-labs/salesdash/internal/dashboard"
	"github.com/leapstack-labs/salesdash/pkg/core"
	"github.com/spf13/cobra"
)

// RunOptions holds options for the run command.
type RunOptions struct {
	Select []string
}

// NewRunCommand creates the run command.
func NewRunCommand() *cobra.Command {
	opts := &RunOptions{}

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Render the sales dashboard",
		Long: `Connect to the store, run every catalog query in order and render each
result with its analysis goal and result.

The store is opened read-only and closed when the run ends, whether it
succeeds or not.

Output adapts to environment:
  - Terminal: Styled tables
  - Piped/Scripted: Markdown
  - JSON: One document with every section

Use --output to override: auto, text, markdown, json`,
		Example: `  # Render the whole dashboard
  salesdash run

  # Render two analyses as markdown
  salesdash run --select top_customers,monthly_sales -o markdown

  # Keep going past failing queries and report malformed dates
  salesdash run --failure-policy isolate --date-policy flag`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runRun(cmd, opts)
		},
	}

	cmd.Flags().StringSliceVarP(&opts.Select, "select", "s", nil, "Comma-separated list of entries to render")
	_ = cmd.RegisterFlagCompletionFunc("select", completeEntries)

	return cmd
}

func runRun(cmd *cobra.Command, opts *RunOptions) error {
	cc, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}

	c, err := cc.Cfg.LoadCatalog()
	if err != nil {
		return err
	}
	if c, err = c.Select(opts.Select); err != nil {
		return err
	}

	d := cc.Renderer.Dashboard()
	runOpts := cc.Cfg.DashboardOptions()
	runOpts.Catalog = c
	runOpts.Renderer = d
	runOpts.Logger = cc.Logger

	rep, err := dashboard.Run(cmd.Context(), runOpts)
	if ferr := d.Finish(rep); ferr != nil && err == nil {
		err = ferr
	}

	var cerr *core.ConnectionError
	if errors.As(err, &cerr) && cc.Cfg.Target.IsFile() {
		return fmt.Errorf("%w (run 'salesdash seed' to create it)", err)
	}
	return err
}

// completeEntries completes catalog entry names.
func completeEntries(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
	cfg, err := getConfig()
	if err != nil {
		return nil, cobra.ShellCompDirectiveNoFileComp
	}
	c, err := cfg.LoadCatalog()
	if err != nil {
		return nil, cobra.ShellCompDirectiveNoFileComp
	}
	return c.Names(), cobra.ShellCompDirectiveNoFileComp
}
