// Package cli provides the command-line interface for salesdash.
package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/leapstack-labs/salesdash/internal/cli/commands"
	"github.com/leapstack-labs/salesdash/internal/cli/config"
	"github.com/leapstack-labs/salesdash/internal/cli/output"
	"github.com/spf13/cobra"

	// Store adapters register themselves.
	_ "github.com/leapstack-labs/salesdash/pkg/adapters/duckdb"
	_ "github.com/leapstack-labs/salesdash/pkg/adapters/postgres"
	_ "github.com/leapstack-labs/salesdash/pkg/adapters/sqlite"
)

// Version information (set at build time).
var (
	Version   = "0.1.0"
	BuildDate = "unknown"
	GitCommit = "unknown"
)

// NewRootCmd creates and returns the root command.
func NewRootCmd() *cobra.Command {
	var (
		cfgFile    string
		targetFlag string
	)

	rootCmd := &cobra.Command{
		Use:   "salesdash",
		Short: "salesdash - Sales Trends Dashboard",
		Long: `salesdash renders a sales trends dashboard from a store of orders and
customers.

It runs a fixed catalog of aggregate queries on one connection and shows
each result table with its analysis goal and result, in the terminal, as
markdown or JSON, or in a browser.`,
		Version: Version,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			// Skip config loading for help and completion commands
			if cmd.Name() == "help" || cmd.Name() == "completion" || cmd.Name() == "__complete" || cmd.Name() == "version" {
				return nil
			}

			cfg, err := config.LoadConfigWithTarget(cfgFile, targetFlag, cmd.Flags())
			if err != nil {
				return err
			}

			logger := newLogger(cmd.ErrOrStderr(), cfg.Verbose)
			ctx := context.WithValue(cmd.Context(), config.ConfigKey(), cfg)
			ctx = context.WithValue(ctx, config.LoggerKey(), logger)

			renderer := output.NewRenderer(cmd.OutOrStdout(), cmd.ErrOrStderr(), cfg.Mode())
			ctx = context.WithValue(ctx, output.RendererKey(), renderer)
			cmd.SetContext(ctx)

			if configFile := config.GetConfigFileUsed(); configFile != "" {
				logger.Debug("using config file", "path", configFile)
			}
			if targetFlag != "" {
				logger.Debug("using target", "target", targetFlag)
			}
			logger.Debug("store", "type", cfg.Target.Type, "location", cfg.Store().Location())
			return nil
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.SetVersionTemplate(`{{.Name}} {{.Version}}
Sales trends dashboard
`)

	// Global persistent flags
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&cfgFile, "config", "", "config file (default: ./salesdash.yaml)")
	flags.StringVarP(&targetFlag, "target", "t", "", "Environment to use (e.g., dev, prod)")
	flags.String("database", "", "Path to the sqlite or duckdb store (default: sales.db)")
	flags.String("catalog", "", "Path to a catalog file (default: embedded catalog)")
	flags.String("seeds-dir", "", "Path to seeds directory")
	flags.BoolP("verbose", "v", false, "Verbose output")
	flags.StringP("output", "o", "", "Output format (auto|text|markdown|json)")
	flags.Duration("query-timeout", 0, "Per-query timeout (default: 30s, negative disables)")
	flags.String("failure-policy", "", "On a failing query: abort or isolate")
	flags.String("date-policy", "", "Malformed order dates: drop or flag")

	_ = rootCmd.RegisterFlagCompletionFunc("output", fixedCompletion("auto", "text", "markdown", "json"))
	_ = rootCmd.RegisterFlagCompletionFunc("failure-policy", fixedCompletion("abort", "isolate"))
	_ = rootCmd.RegisterFlagCompletionFunc("date-policy", fixedCompletion("drop", "flag"))
	_ = rootCmd.RegisterFlagCompletionFunc("target", func(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
		if cfg := config.GetCurrentConfig(); cfg != nil {
			names := make([]string, 0, len(cfg.Environments))
			for name := range cfg.Environments {
				names = append(names, name)
			}
			return names, cobra.ShellCompDirectiveNoFileComp
		}
		return []string{"dev", "prod"}, cobra.ShellCompDirectiveNoFileComp
	})

	rootCmd.AddCommand(commands.NewVersionCommand(Version))
	rootCmd.AddCommand(commands.NewRunCommand())
	rootCmd.AddCommand(commands.NewServeCommand())
	rootCmd.AddCommand(commands.NewSeedCommand())
	rootCmd.AddCommand(commands.NewCatalogCommand())
	rootCmd.AddCommand(commands.NewQueryCommand())
	rootCmd.AddCommand(commands.NewDoctorCommand())
	rootCmd.AddCommand(NewCompletionCommand())

	return rootCmd
}

func fixedCompletion(values ...string) func(*cobra.Command, []string, string) ([]string, cobra.ShellCompDirective) {
	return func(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
		return values, cobra.ShellCompDirectiveNoFileComp
	}
}

func newLogger(w io.Writer, verbose bool) *slog.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

// Execute runs the root command.
func Execute() error {
	rootCmd := NewRootCmd()
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return err
	}
	return nil
}

// NewCompletionCommand creates the completion command.
func NewCompletionCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "completion [bash|zsh|fish|powershell]",
		Short: "Generate shell completion scripts",
		Long: `Generate shell completion scripts for salesdash.

To load completions:

Bash:
  $ source <(salesdash completion bash)

Zsh:
  $ salesdash completion zsh > "${fpath[1]}/_salesdash"

Fish:
  $ salesdash completion fish | source

PowerShell:
  PS> salesdash completion powershell | Out-String | Invoke-Expression
`,
		DisableFlagsInUseLine: true,
		ValidArgs:             []string{"bash", "zsh", "fish", "powershell"},
		Args:                  cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			switch args[0] {
			case "bash":
				return cmd.Root().GenBashCompletion(out)
			case "zsh":
				return cmd.Root().GenZshCompletion(out)
			case "fish":
				return cmd.Root().GenFishCompletion(out, true)
			case "powershell":
				return cmd.Root().GenPowerShellCompletionWithDesc(out)
			}
			return nil
		},
	}
	return cmd
}
