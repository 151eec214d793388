package main

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/leapstack-labs/salesdash/internal/cli"
)

// envVars documents the SALESDASH_* overrides read by the config loader.
var envVars = [][]string{
	{"SALESDASH_DATABASE", "Store location"},
	{"SALESDASH_TARGET_TYPE", "Store driver: sqlite, duckdb or postgres"},
	{"SALESDASH_CATALOG", "External catalog file"},
	{"SALESDASH_SEEDS_DIR", "Directory holding customers.csv and orders.csv"},
	{"SALESDASH_QUERY_TIMEOUT", "Per-query timeout"},
	{"SALESDASH_FAILURE_POLICY", "abort or isolate"},
	{"SALESDASH_DATE_POLICY", "drop or flag"},
	{"SALESDASH_UI_PORT", "Port for serve"},
}

// generateCLIDocs writes index.md plus one page per visible command, nested
// commands included ("catalog show" becomes catalog_show.md).
func generateCLIDocs(outDir string) error {
	log.Printf("Generating CLI docs to %s", outDir)

	if err := os.MkdirAll(outDir, 0750); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	root := cli.NewRootCmd()
	cmds := documented(root)

	if err := writePage(outDir, "index.md", indexPage(root, cmds)); err != nil {
		return err
	}
	for _, cmd := range cmds {
		if err := writePage(outDir, pageName(cmd)+".md", commandPage(cmd)); err != nil {
			return fmt.Errorf("failed to generate page for %s: %w", cmd.CommandPath(), err)
		}
	}
	return nil
}

// documented returns every visible command below root, depth first.
func documented(root *cobra.Command) []*cobra.Command {
	var out []*cobra.Command
	for _, cmd := range root.Commands() {
		if !cmd.IsAvailableCommand() || cmd.Name() == "help" {
			continue
		}
		out = append(out, cmd)
		out = append(out, documented(cmd)...)
	}
	return out
}

// pageName maps "salesdash catalog show" to "catalog_show".
func pageName(cmd *cobra.Command) string {
	parts := strings.Fields(cmd.CommandPath())
	return strings.Join(parts[1:], "_")
}

func writePage(outDir, name string, w *MarkdownWriter) error {
	if err := os.WriteFile(filepath.Join(outDir, name), w.Bytes(), 0600); err != nil {
		return err
	}
	log.Printf("  Generated %s", name)
	return nil
}

func indexPage(root *cobra.Command, cmds []*cobra.Command) *MarkdownWriter {
	w := NewMarkdownWriter()
	w.Frontmatter("CLI Reference", "Command-line interface reference for salesdash")
	w.GeneratedMarker()

	w.Header(1, "CLI Reference")
	w.Paragraph("salesdash renders the sales trends dashboard in the terminal or the browser, seeds the sales store, and inspects it with ad-hoc queries.")

	w.Header(2, "Installation")
	w.CodeBlock("bash", "go install github.com/leapstack-labs/salesdash/cmd/salesdash@latest")

	w.Header(2, "Commands")
	rows := make([][]string, 0, len(cmds))
	for _, cmd := range cmds {
		path := strings.TrimPrefix(cmd.CommandPath(), root.Name()+" ")
		rows = append(rows, []string{
			fmt.Sprintf("[%s](/cli/%s)", InlineCode(path), pageName(cmd)),
			cleanDescription(cmd.Short),
		})
	}
	w.Table([]string{"Command", "Description"}, rows)

	w.Header(2, "Global Options")
	flagsTable(w, root.PersistentFlags())

	w.Header(2, "Environment Variables")
	env := make([][]string, 0, len(envVars))
	for _, v := range envVars {
		env = append(env, []string{InlineCode(v[0]), v[1]})
	}
	w.Table([]string{"Variable", "Description"}, env)
	w.Paragraph("Flags override environment variables, which override salesdash.yaml.")

	w.Header(2, "Exit Codes")
	w.Table([]string{"Code", "Meaning"}, [][]string{
		{InlineCode("0"), "Success"},
		{InlineCode("1"), "Error, or at least one failing analysis"},
	})
	return w
}

func commandPage(cmd *cobra.Command) *MarkdownWriter {
	w := NewMarkdownWriter()
	w.Frontmatter(cmd.CommandPath(), cmd.Short)
	w.GeneratedMarker()

	w.Header(1, cmd.CommandPath())
	desc := cmd.Long
	if desc == "" {
		desc = cmd.Short
	}
	w.Paragraph(desc)

	w.Header(2, "Usage")
	w.CodeBlock("bash", cmd.UseLine())

	if len(cmd.Aliases) > 0 {
		w.Header(2, "Aliases")
		aliases := make([]string, len(cmd.Aliases))
		for i, a := range cmd.Aliases {
			aliases[i] = InlineCode(a)
		}
		w.BulletList(aliases)
	}

	if subs := documentedChildren(cmd); len(subs) > 0 {
		w.Header(2, "Subcommands")
		w.Table([]string{"Subcommand", "Description"}, subs)
	}

	if cmd.HasAvailableLocalFlags() {
		w.Header(2, "Options")
		flagsTable(w, cmd.LocalFlags())
	}

	if cmd.Example != "" {
		w.Header(2, "Examples")
		w.CodeBlock("bash", dedent(cmd.Example))
	}
	return w
}

func documentedChildren(cmd *cobra.Command) [][]string {
	var rows [][]string
	for _, sub := range cmd.Commands() {
		if !sub.IsAvailableCommand() || sub.Name() == "help" {
			continue
		}
		link := fmt.Sprintf("[%s](/cli/%s)", InlineCode(sub.Name()), pageName(sub))
		rows = append(rows, []string{link, cleanDescription(sub.Short)})
	}
	return rows
}

func flagsTable(w *MarkdownWriter, flags *pflag.FlagSet) {
	var rows [][]string
	flags.VisitAll(func(f *pflag.Flag) {
		if f.Hidden {
			return
		}
		name := "--" + f.Name
		if f.Shorthand != "" {
			name = "-" + f.Shorthand + ", " + name
		}
		def := f.DefValue
		if def != "" && def != "[]" && f.Value.Type() != "bool" {
			def = InlineCode(def)
		}
		if def == "[]" {
			def = ""
		}
		rows = append(rows, []string{InlineCode(name), def, cleanDescription(f.Usage)})
	})
	w.Table([]string{"Flag", "Default", "Description"}, rows)
}

// dedent strips the indentation shared by all non-blank lines.
func dedent(s string) string {
	lines := strings.Split(s, "\n")
	indent := -1
	for _, l := range lines {
		if strings.TrimSpace(l) == "" {
			continue
		}
		n := len(l) - len(strings.TrimLeft(l, " \t"))
		if indent < 0 || n < indent {
			indent = n
		}
	}
	for i, l := range lines {
		if len(l) >= indent && indent > 0 {
			lines[i] = l[indent:]
		}
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}
