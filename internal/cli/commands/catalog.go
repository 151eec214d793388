package commands

import (
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/leapstack-labs/salesdash/internal/catalog"
	"github.com/leapstack-labs/salesdash/internal/cli/output"
	"github.com/spf13/cobra"
)

// NewCatalogCommand creates the catalog command.
func NewCatalogCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "catalog",
		Short: "Inspect the dashboard query catalog",
		Long: `Inspect the entries the dashboard renders.

The embedded catalog is used unless the catalog setting names a file.`,
	}

	cmd.AddCommand(newCatalogListCommand())
	cmd.AddCommand(newCatalogShowCommand())
	return cmd
}

// CatalogEntryInfo is the JSON form of a catalog entry.
type CatalogEntryInfo struct {
	Index    int      `json:"index"`
	Name     string   `json:"name"`
	Kind     string   `json:"kind"`
	Title    string   `json:"title"`
	Goal     string   `json:"goal,omitempty"`
	Result   string   `json:"result,omitempty"`
	SQL      string   `json:"sql,omitempty"`
	Dialects []string `json:"dialects,omitempty"`
	Rejects  string   `json:"rejects,omitempty"`
}

func entryInfo(i int, e catalog.Entry, full bool) CatalogEntryInfo {
	info := CatalogEntryInfo{
		Index:    i,
		Name:     e.Name,
		Kind:     string(e.Kind),
		Title:    e.Title,
		Dialects: slices.Sorted(maps.Keys(e.Dialects)),
	}
	if full {
		info.Goal = e.Goal
		info.Result = e.Result
		info.SQL = e.SQL
		info.Rejects = e.Rejects
	}
	return info
}

func newCatalogListCommand() *cobra.Command {
	return &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List catalog entries in presentation order",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cc, err := NewCommandContext(cmd)
			if err != nil {
				return err
			}
			c, err := cc.Cfg.LoadCatalog()
			if err != nil {
				return err
			}

			r := cc.Renderer
			if r.EffectiveMode() == output.ModeJSON {
				infos := make([]CatalogEntryInfo, len(c.Entries))
				for i, e := range c.Entries {
					infos[i] = entryInfo(i, e, false)
				}
				return r.JSON(infos)
			}

			r.Header(1, c.Title)
			r.Println("")
			for i, e := range c.Entries {
				line := fmt.Sprintf("%2d. %-26s %-8s %s", i+1, e.Name, e.Kind, e.Title)
				if r.EffectiveMode() == output.ModeMarkdown {
					line = fmt.Sprintf("%d. `%s` (%s) %s", i+1, e.Name, e.Kind, e.Title)
				}
				r.Println(line)
			}
			r.Println("")
			if r.EffectiveMode() == output.ModeMarkdown {
				r.Println(output.FormatKeyValue("Source", c.Source))
			} else {
				r.Muted("Source: " + c.Source)
			}
			return nil
		},
	}
}

func newCatalogShowCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show <name>",
		Short: "Show one entry with its SQL",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cc, err := NewCommandContext(cmd)
			if err != nil {
				return err
			}
			c, err := cc.Cfg.LoadCatalog()
			if err != nil {
				return err
			}
			e, i, ok := c.Lookup(args[0])
			if !ok {
				return fmt.Errorf("unknown catalog entry %q (available: %s)", args[0], strings.Join(c.Names(), ", "))
			}

			r := cc.Renderer
			if r.EffectiveMode() == output.ModeJSON {
				return r.JSON(entryInfo(i, e, true))
			}

			r.Header(1, e.Title)
			r.Println("")
			r.Println(output.FormatKeyValue("Name", e.Name))
			r.Println(output.FormatKeyValue("Kind", string(e.Kind)))
			if e.Goal != "" {
				r.Println(output.FormatKeyValue("Analysis Goal", e.Goal))
			}
			if e.Result != "" {
				r.Println(output.FormatKeyValue("Analysis Result", e.Result))
			}
			r.Println("")
			printSQL(r, "SQL", e.SQL)
			for _, d := range entryInfo(i, e, false).Dialects {
				printSQL(r, "SQL ("+d+")", e.Dialects[d])
			}
			if e.Rejects != "" {
				printSQL(r, "Rejected rows", e.Rejects)
			}
			return nil
		},
	}
	cmd.ValidArgsFunction = func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
		if len(args) > 0 {
			return nil, cobra.ShellCompDirectiveNoFileComp
		}
		return completeEntries(cmd, args, toComplete)
	}
	return cmd
}

func printSQL(r *output.Renderer, label, sql string) {
	r.Header(2, label)
	r.Println("")
	r.Println("```sql")
	r.Println(strings.TrimRight(sql, "\n"))
	r.Println("```")
	r.Println("")
}
