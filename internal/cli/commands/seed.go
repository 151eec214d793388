package commands

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/leapstack-labs/salesdash/internal/cli/output"
	"github.com/leapstack-labs/salesdash/pkg/adapter"
	"github.com/leapstack-labs/salesdash/pkg/core"
	"github.com/spf13/cobra"
)

// seedTables are loaded from <seeds_dir>/<table>.csv, in this order.
var seedTables = []string{"customers", "orders"}

// migrator is implemented by adapters that create a typed schema before
// seeding.
type migrator interface {
	Migrate(ctx context.Context) error
}

// SeedOptions holds options for the seed command.
type SeedOptions struct {
	Reset bool
}

// SeedInfo describes one loaded seed.
type SeedInfo struct {
	Table    string `json:"table"`
	FilePath string `json:"file_path"`
	Rows     int64  `json:"rows"`
}

// SeedOutput is the JSON output of the seed command.
type SeedOutput struct {
	Store string     `json:"store"`
	Seeds []SeedInfo `json:"seeds"`
}

// NewSeedCommand creates the seed command.
func NewSeedCommand() *cobra.Command {
	opts := &SeedOptions{}

	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Load customers and orders from CSV files",
		Long: `Load customers.csv and orders.csv from the seeds directory into the store.

SQLite stores are created when missing and get the typed sales schema
first. Rows are appended; CSV columns the table lacks are added as TEXT.
A header row repeated inside the data is loaded as-is, the dashboard
queries filter it out.

This is the only command that writes to the store.`,
		Example: `  # Create sales.db from ./seeds
  salesdash seed

  # Reload from scratch into a DuckDB file
  salesdash seed --reset -t prod`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runSeed(cmd, opts)
		},
	}

	cmd.Flags().BoolVar(&opts.Reset, "reset", false, "Delete existing rows before loading")

	return cmd
}

func runSeed(cmd *cobra.Command, opts *SeedOptions) error {
	cc, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}
	ctx := cmd.Context()
	cfg := cc.Cfg

	files := make([]string, len(seedTables))
	for i, table := range seedTables {
		files[i] = filepath.Join(cfg.SeedsDir, table+".csv")
		if _, err := os.Stat(files[i]); err != nil {
			return fmt.Errorf("seed file for %s: %w", table, err)
		}
	}

	storeCfg := cfg.Store()
	storeCfg.Create = true
	if cfg.Target.IsFile() && storeCfg.Path != "" {
		if dir := filepath.Dir(storeCfg.Path); dir != "." {
			if err := os.MkdirAll(dir, 0o750); err != nil {
				return fmt.Errorf("failed to create store directory: %w", err)
			}
		}
	}

	store, err := adapter.Open(ctx, storeCfg, cc.Logger)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	if m, ok := store.(migrator); ok {
		if err := m.Migrate(ctx); err != nil {
			return err
		}
	}

	out := SeedOutput{Store: storeCfg.Location(), Seeds: make([]SeedInfo, 0, len(seedTables))}
	for i, table := range seedTables {
		if opts.Reset {
			if err := resetTable(ctx, store, table); err != nil {
				return err
			}
		}
		if err := store.LoadCSV(ctx, table, files[i]); err != nil {
			return fmt.Errorf("failed to load %s: %w", table, err)
		}

		info := SeedInfo{Table: table, FilePath: files[i], Rows: -1}
		if meta, err := store.GetTableMetadata(ctx, table); err == nil {
			info.Rows = meta.RowCount
		}
		cc.Logger.Info("seed loaded", "table", table, "rows", info.Rows)
		out.Seeds = append(out.Seeds, info)
	}

	return renderSeed(cc.Renderer, out)
}

// resetTable empties table if it exists.
func resetTable(ctx context.Context, store core.Adapter, table string) error {
	if _, err := store.GetTableMetadata(ctx, table); err != nil {
		return nil //nolint:nilerr // nothing to reset
	}
	if err := store.Exec(ctx, "DELETE FROM "+table); err != nil {
		return fmt.Errorf("failed to reset %s: %w", table, err)
	}
	return nil
}

func renderSeed(r *output.Renderer, out SeedOutput) error {
	switch r.EffectiveMode() {
	case output.ModeJSON:
		return r.JSON(out)
	case output.ModeMarkdown:
		r.Println(output.FormatHeader(1, "Seeds Loaded"))
		r.Println("")
		for _, s := range out.Seeds {
			r.Println(output.FormatKeyValue(s.Table, fmt.Sprintf("%d rows from %s", s.Rows, s.FilePath)))
		}
		r.Println("")
		r.Println(output.FormatKeyValue("Store", out.Store))
	default:
		r.Header(2, "Loaded Seeds")
		for _, s := range out.Seeds {
			r.Success(fmt.Sprintf("%s: %s rows", s.Table, r.DisplayValue(s.Rows)))
		}
		r.Println("")
		r.Muted("Store: " + out.Store)
	}
	return nil
}
