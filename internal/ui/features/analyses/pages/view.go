// Package pages holds the dashboard view model and its templ components.
package pages

import (
	"fmt"
	"math/big"
	"time"

	"github.com/leapstack-labs/salesdash/internal/catalog"
	"github.com/leapstack-labs/salesdash/internal/dashboard"
	"github.com/leapstack-labs/salesdash/pkg/core"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// Cell is a formatted result value.
type Cell struct {
	Text    string
	Numeric bool
	Null    bool
}

// SectionView is one rendered catalog entry.
type SectionView struct {
	Name     string
	Kind     string
	Title    string
	Goal     string
	Columns  []string
	Rows     [][]Cell
	RowCount int
	Notice   string
	Result   string
	Error    string
}

// ID is the DOM id patched when the entry is refreshed.
func (s SectionView) ID() string { return "section-" + s.Name }

// View is the whole dashboard page.
type View struct {
	Title    string
	Goal     string
	Sections []SectionView
	Banner   string
	RunID    string
	Duration time.Duration
}

// Builder collects renderer events into a View.
type Builder struct {
	View    View
	printer *message.Printer
}

var _ dashboard.Renderer = (*Builder)(nil)

// NewBuilder creates an empty builder.
func NewBuilder() *Builder {
	return &Builder{printer: message.NewPrinter(language.English)}
}

// Last returns the most recently started section.
func (b *Builder) Last() (SectionView, bool) {
	if len(b.View.Sections) == 0 {
		return SectionView{}, false
	}
	return b.View.Sections[len(b.View.Sections)-1], true
}

func (b *Builder) current() *SectionView {
	return &b.View.Sections[len(b.View.Sections)-1]
}

// Begin implements dashboard.Renderer.
func (b *Builder) Begin(c *catalog.Catalog) error {
	b.View.Title = c.Title
	b.View.Goal = c.Goal
	return nil
}

// Section implements dashboard.Renderer.
func (b *Builder) Section(ref core.EntryRef, e catalog.Entry) error {
	b.View.Sections = append(b.View.Sections, SectionView{
		Name:  ref.Name,
		Kind:  string(e.Kind),
		Title: e.Title,
		Goal:  e.Goal,
	})
	return nil
}

// Table implements dashboard.Renderer.
func (b *Builder) Table(t *core.ResultTable) error {
	s := b.current()
	s.Columns = t.Columns
	s.RowCount = t.RowCount()
	s.Rows = make([][]Cell, len(t.Rows))
	for i, row := range t.Rows {
		cells := make([]Cell, len(row))
		for j, v := range row {
			cells[j] = b.cell(v)
		}
		s.Rows[i] = cells
	}
	return nil
}

// Notice implements dashboard.Renderer.
func (b *Builder) Notice(msg string) error {
	b.current().Notice = msg
	return nil
}

// Narrative implements dashboard.Renderer.
func (b *Builder) Narrative(text string) error {
	b.current().Result = text
	return nil
}

// EntryError implements dashboard.Renderer.
func (b *Builder) EntryError(_ core.EntryRef, err error) error {
	b.current().Error = err.Error()
	return nil
}

// End implements dashboard.Renderer.
func (b *Builder) End(rep *dashboard.Report) error {
	b.View.RunID = rep.RunID.String()
	b.View.Duration = rep.Duration
	return nil
}

func (b *Builder) cell(v any) Cell {
	switch x := v.(type) {
	case nil:
		return Cell{Text: "NULL", Null: true}
	case float64:
		return Cell{Text: b.printer.Sprintf("%.2f", x), Numeric: true}
	case int64:
		return Cell{Text: b.printer.Sprintf("%d", x), Numeric: true}
	case *big.Int:
		return Cell{Text: x.String(), Numeric: true}
	case time.Time:
		return Cell{Text: x.Format(time.RFC3339)}
	case string:
		return Cell{Text: x}
	default:
		return Cell{Text: fmt.Sprint(x)}
	}
}
