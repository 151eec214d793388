package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/chzyer/readline"
	"github.com/spf13/cobra"
)

const (
	replPrompt   = "salesdash> "
	replContinue = "       ...> "
	replHistory  = ".salesdash_history"
)

func runQueryREPL(cmd *cobra.Command, s *storeSession, opts *QueryOptions) error {
	ctx := cmd.Context()
	format := opts.Format

	rl, err := readline.NewEx(&readline.Config{
		Prompt:          replPrompt,
		HistoryFile:     filepath.Join(s.cc.Cfg.ProjectRoot, replHistory),
		AutoComplete:    newTableCompleter(s.tableNames(ctx)),
		InterruptPrompt: "^C",
		EOFPrompt:       ".quit",
		Stdout:          cmd.OutOrStdout(),
		Stderr:          cmd.ErrOrStderr(),
	})
	if err != nil {
		return fmt.Errorf("failed to initialize REPL: %w", err)
	}
	defer func() { _ = rl.Close() }()

	out := cmd.OutOrStdout()
	_, _ = fmt.Fprintf(out, "salesdash query REPL (%s store: %s)\n", s.store.DialectName(), s.cc.Cfg.Store().Location())
	_, _ = fmt.Fprintln(out, "Type .help for commands, .quit to exit")
	_, _ = fmt.Fprintln(out)

	var buf strings.Builder
	for {
		line, err := rl.Readline()
		if errors.Is(err, readline.ErrInterrupt) {
			buf.Reset()
			rl.SetPrompt(replPrompt)
			continue
		}
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}

		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		if buf.Len() == 0 && strings.HasPrefix(line, ".") {
			quit, next := s.handleDotCommand(ctx, cmd, line, format)
			if quit {
				return nil
			}
			format = next
			continue
		}

		// Statements run once they end with a semicolon.
		buf.WriteString(line)
		if !strings.HasSuffix(line, ";") {
			buf.WriteString("\n")
			rl.SetPrompt(replContinue)
			continue
		}
		rl.SetPrompt(replPrompt)

		sqlQuery := strings.TrimSuffix(buf.String(), ";")
		buf.Reset()

		if err := s.executeAndRender(ctx, sqlQuery, format); err != nil {
			_, _ = fmt.Fprintf(cmd.ErrOrStderr(), "Error: %v\n", err)
		}
		_, _ = fmt.Fprintln(out)
	}
}

// handleDotCommand runs a REPL command. It reports whether the REPL should
// exit and the output format to use from now on.
func (s *storeSession) handleDotCommand(ctx context.Context, cmd *cobra.Command, line, format string) (bool, string) {
	parts := strings.Fields(line)
	errOut := cmd.ErrOrStderr()

	switch strings.ToLower(parts[0]) {
	case ".quit", ".exit":
		return true, format

	case ".help":
		printREPLHelp(cmd.OutOrStdout())

	case ".tables":
		if err := s.listTables(ctx, format); err != nil {
			_, _ = fmt.Fprintf(errOut, "Error: %v\n", err)
		}

	case ".schema":
		if len(parts) < 2 {
			_, _ = fmt.Fprintln(errOut, "Usage: .schema <table>")
			break
		}
		if err := s.showSchema(ctx, parts[1], format); err != nil {
			_, _ = fmt.Fprintf(errOut, "Error: %v\n", err)
		}

	case ".format":
		if len(parts) < 2 {
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "format: %s\n", format)
			break
		}
		if err := checkFormat(parts[1]); err != nil {
			_, _ = fmt.Fprintf(errOut, "Error: %v\n", err)
			break
		}
		return false, parts[1]

	case ".clear":
		_, _ = fmt.Fprint(cmd.OutOrStdout(), "\033[H\033[2J")

	default:
		_, _ = fmt.Fprintf(errOut, "Unknown command: %s (type .help for commands)\n", parts[0])
	}
	return false, format
}

func printREPLHelp(w io.Writer) {
	help := `
Commands:
  .help            Show this help message
  .tables          List tables and views
  .schema <table>  Show the columns of a table
  .format [name]   Show or set the output format (table, json, csv, md)
  .clear           Clear the screen
  .quit / .exit    Exit the REPL

Tips:
  - SQL statements must end with a semicolon (;)
  - Use arrow keys to navigate history
  - Tab completion works for table names
`
	_, _ = fmt.Fprintln(w, help)
}

// newTableCompleter completes table names and dot-commands.
func newTableCompleter(tables []string) *readline.PrefixCompleter {
	items := dynamicItems(tables)
	items = append(items,
		readline.PcItem(".help"),
		readline.PcItem(".tables"),
		readline.PcItem(".schema", dynamicItems(tables)...),
		readline.PcItem(".format", readline.PcItem("table"), readline.PcItem("json"), readline.PcItem("csv"), readline.PcItem("md")),
		readline.PcItem(".clear"),
		readline.PcItem(".quit"),
		readline.PcItem(".exit"),
	)
	return readline.NewPrefixCompleter(items...)
}

func dynamicItems(names []string) []readline.PrefixCompleterInterface {
	items := make([]readline.PrefixCompleterInterface, len(names))
	for i, n := range names {
		items[i] = readline.PcItem(n)
	}
	return items
}
