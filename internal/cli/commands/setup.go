package commands

import (
	"context"
	"log/slog"

	"github.com/leapstack-labs/salesdash/internal/cli/config"
	"github.com/leapstack-labs/salesdash/internal/cli/output"
	"github.com/leapstack-labs/salesdash/pkg/adapter"
	"github.com/leapstack-labs/salesdash/pkg/core"
	"github.com/spf13/cobra"
)

// CommandContext holds common dependencies for CLI commands.
type CommandContext struct {
	Cfg      *config.Config
	Logger   *slog.Logger
	Renderer *output.Renderer
}

// NewCommandContext creates a CommandContext for cmd from the values the
// root command stored in its context.
func NewCommandContext(cmd *cobra.Command) (*CommandContext, error) {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	cfg := config.FromContext(ctx)
	if cfg == nil {
		var err error
		if cfg, err = getConfig(); err != nil {
			return nil, err
		}
	}

	renderer := output.FromContext(ctx)
	if renderer == nil {
		renderer = output.NewRenderer(cmd.OutOrStdout(), cmd.ErrOrStderr(), cfg.Mode())
	}

	return &CommandContext{
		Cfg:      cfg,
		Logger:   config.GetLogger(ctx),
		Renderer: renderer,
	}, nil
}

// OpenStore connects to the configured store read-only. The caller closes it.
func (c *CommandContext) OpenStore(ctx context.Context) (core.Adapter, error) {
	return adapter.Open(ctx, c.Cfg.Store(), c.Logger)
}

// getConfig returns the configuration loaded by the root command, or loads
// it from the working directory when a command runs on its own.
func getConfig() (*config.Config, error) {
	if cfg := config.GetCurrentConfig(); cfg != nil {
		return cfg, nil
	}
	return config.LoadConfig("", nil)
}
