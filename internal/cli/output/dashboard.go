package output

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/leapstack-labs/salesdash/internal/catalog"
	"github.com/leapstack-labs/salesdash/internal/dashboard"
	"github.com/leapstack-labs/salesdash/pkg/core"
)

// DashboardRenderer is a dashboard.Renderer that can flush buffered output
// after a run that ended early.
type DashboardRenderer interface {
	dashboard.Renderer
	// Finish writes anything still buffered. It is a no-op after End.
	Finish(rep *dashboard.Report) error
}

// Dashboard returns the dashboard renderer for r's effective mode.
func (r *Renderer) Dashboard() DashboardRenderer {
	switch r.EffectiveMode() {
	case ModeJSON:
		return &jsonDashboard{w: r.out}
	case ModeMarkdown:
		return &markdownDashboard{w: r.out}
	default:
		return &textDashboard{r: r}
	}
}

type textDashboard struct {
	r *Renderer
}

func (d *textDashboard) Begin(c *catalog.Catalog) error {
	d.r.Header(1, c.Title)
	if c.Goal != "" {
		d.r.Println(d.r.Wrap(d.r.styles.Bold.Render("Analysis Goal: ") + c.Goal))
		d.r.Println()
	}
	return nil
}

func (d *textDashboard) Section(ref core.EntryRef, e catalog.Entry) error {
	d.r.Header(2, e.Title)
	if e.Goal != "" {
		d.r.Println(d.r.Wrap(d.r.styles.Bold.Render("Analysis Goal: ") + e.Goal))
	}
	return nil
}

func (d *textDashboard) Table(t *core.ResultTable) error {
	d.r.Table(t)
	return nil
}

func (d *textDashboard) Notice(msg string) error {
	d.r.Println(d.r.styles.Warning.Render("! " + msg))
	return nil
}

func (d *textDashboard) Narrative(text string) error {
	d.r.Println(d.r.Wrap(d.r.styles.Bold.Render("Analysis Result: ") + text))
	d.r.Println()
	return nil
}

func (d *textDashboard) EntryError(_ core.EntryRef, err error) error {
	d.r.Println(d.r.styles.Error.Render("✗ " + err.Error()))
	d.r.Println()
	return nil
}

func (d *textDashboard) End(rep *dashboard.Report) error {
	d.r.Println(d.r.styles.Muted.Render(fmt.Sprintf("Rendered %d entries in %s (run %s)",
		len(rep.Entries), rep.Duration.Round(time.Millisecond), rep.RunID)))
	return nil
}

func (d *textDashboard) Finish(*dashboard.Report) error { return nil }

type markdownDashboard struct {
	w   io.Writer
	err error
}

func (d *markdownDashboard) printf(format string, a ...any) error {
	if d.err == nil {
		_, d.err = fmt.Fprintf(d.w, format, a...)
	}
	return d.err
}

func (d *markdownDashboard) Begin(c *catalog.Catalog) error {
	if err := d.printf("%s\n\n", FormatHeader(1, c.Title)); err != nil {
		return err
	}
	if c.Goal != "" {
		return d.printf("**Analysis Goal:** %s\n\n", c.Goal)
	}
	return nil
}

func (d *markdownDashboard) Section(_ core.EntryRef, e catalog.Entry) error {
	if err := d.printf("%s\n\n", FormatHeader(2, e.Title)); err != nil {
		return err
	}
	if e.Goal != "" {
		return d.printf("**Analysis Goal:** %s\n\n", e.Goal)
	}
	return nil
}

func (d *markdownDashboard) Table(t *core.ResultTable) error {
	if d.err != nil {
		return d.err
	}
	if d.err = MarkdownTable(d.w, t); d.err != nil {
		return d.err
	}
	return d.printf("\n")
}

func (d *markdownDashboard) Notice(msg string) error {
	return d.printf("> **Note:** %s\n\n", msg)
}

func (d *markdownDashboard) Narrative(text string) error {
	return d.printf("**Analysis Result:** %s\n\n", text)
}

func (d *markdownDashboard) EntryError(_ core.EntryRef, err error) error {
	return d.printf("> **Error:** %s\n\n", err)
}

func (d *markdownDashboard) End(*dashboard.Report) error { return d.err }

func (d *markdownDashboard) Finish(*dashboard.Report) error { return nil }

// jsonDocument is the JSON output of a dashboard run.
type jsonDocument struct {
	RunID    string        `json:"run_id"`
	Title    string        `json:"title"`
	Goal     string        `json:"goal,omitempty"`
	Catalog  string        `json:"catalog"`
	Dialect  string        `json:"dialect,omitempty"`
	Failed   int           `json:"failed"`
	Sections []jsonSection `json:"sections"`
}

type jsonSection struct {
	Name     string   `json:"name"`
	Kind     string   `json:"kind"`
	Title    string   `json:"title"`
	Goal     string   `json:"goal,omitempty"`
	Columns  []string `json:"columns"`
	Rows     [][]any  `json:"rows"`
	RowCount int      `json:"row_count"`
	Notice   string   `json:"notice,omitempty"`
	Result   string   `json:"result,omitempty"`
	Error    string   `json:"error,omitempty"`
}

// jsonDashboard buffers the run and writes one document.
type jsonDashboard struct {
	w       io.Writer
	doc     jsonDocument
	written bool
}

func (d *jsonDashboard) Begin(c *catalog.Catalog) error {
	d.doc = jsonDocument{Title: c.Title, Goal: c.Goal, Catalog: c.Source, Sections: []jsonSection{}}
	return nil
}

func (d *jsonDashboard) current() *jsonSection {
	return &d.doc.Sections[len(d.doc.Sections)-1]
}

func (d *jsonDashboard) Section(ref core.EntryRef, e catalog.Entry) error {
	d.doc.Sections = append(d.doc.Sections, jsonSection{
		Name:    ref.Name,
		Kind:    string(e.Kind),
		Title:   e.Title,
		Goal:    e.Goal,
		Columns: []string{},
		Rows:    [][]any{},
	})
	return nil
}

func (d *jsonDashboard) Table(t *core.ResultTable) error {
	s := d.current()
	s.Columns = t.Columns
	s.Rows = t.Rows
	s.RowCount = t.RowCount()
	return nil
}

func (d *jsonDashboard) Notice(msg string) error {
	d.current().Notice = msg
	return nil
}

func (d *jsonDashboard) Narrative(text string) error {
	d.current().Result = text
	return nil
}

func (d *jsonDashboard) EntryError(_ core.EntryRef, err error) error {
	d.current().Error = err.Error()
	return nil
}

func (d *jsonDashboard) End(rep *dashboard.Report) error {
	return d.Finish(rep)
}

func (d *jsonDashboard) Finish(rep *dashboard.Report) error {
	if d.written {
		return nil
	}
	d.written = true
	if rep != nil {
		d.doc.RunID = rep.RunID.String()
		d.doc.Dialect = rep.Dialect
		d.doc.Failed = len(rep.Failed())
		if d.doc.Catalog == "" {
			d.doc.Catalog = rep.Catalog
		}
	}
	if d.doc.Sections == nil {
		d.doc.Sections = []jsonSection{}
	}

	enc := json.NewEncoder(d.w)
	enc.SetIndent("", "  ")
	return enc.Encode(d.doc)
}
