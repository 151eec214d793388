package commands

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/leapstack-labs/salesdash/internal/cli/config"
	"github.com/leapstack-labs/salesdash/internal/ui"
	"github.com/spf13/cobra"
)

// NewServeCommand creates the serve command.
func NewServeCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the dashboard in a browser",
		Long: `Start a web server that renders the sales dashboard.

Every page load runs the catalog on one long-lived read-only connection.
Each section has a refresh button that re-runs just that entry.

With --watch and an external catalog file, edits to the catalog are picked
up and pushed to open pages.`,
		Aliases: []string{"ui"},
		Example: `  # Start on the default port
  salesdash serve

  # Custom port, reloading an edited catalog
  salesdash serve --port 9000 --catalog ./catalog.yaml --watch`,
		RunE: runServe,
	}

	cmd.Flags().IntP("port", "p", config.DefaultUIPort, "Port to listen on")
	cmd.Flags().Bool("watch", false, "Reload the catalog file when it changes")

	return cmd
}

func runServe(cmd *cobra.Command, _ []string) error {
	cc, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}
	cfg := cc.Cfg

	c, err := cfg.LoadCatalog()
	if err != nil {
		return err
	}

	opts := cfg.DashboardOptions()
	opts.Catalog = c
	opts.Logger = cc.Logger

	uiCfg := cfg.GetUIConfig()
	if uiCfg.Watch && cfg.Catalog == "" {
		cc.Renderer.Warning("--watch has no effect with the embedded catalog; set catalog to a file")
	}

	srv := ui.NewServer(ui.Config{
		Options:     opts,
		CatalogPath: cfg.Catalog,
		Port:        uiCfg.Port,
		Watch:       uiCfg.Watch,
		Logger:      cc.Logger,
	})

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return srv.Serve(ctx)
}
