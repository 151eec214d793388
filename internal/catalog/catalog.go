// Package catalog holds the ordered list of dashboard queries and the
// narrative text rendered with each result.
//
// The default catalog is embedded from catalog.yaml. A file with the same
// layout can replace it.
package catalog

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/leapstack-labs/salesdash/pkg/core"
	"gopkg.in/yaml.v3"
)

//go:embed catalog.yaml
var defaultCatalog []byte

// DefaultSource names the embedded catalog in errors and reports.
const DefaultSource = "<embedded>"

// Kind classifies an entry.
type Kind string

// Entry kinds.
const (
	// KindDataset dumps a table as-is.
	KindDataset Kind = "dataset"
	// KindAnalysis is an aggregate with a goal and result narrative.
	KindAnalysis Kind = "analysis"
)

// Catalog is an ordered set of entries plus page-level text.
type Catalog struct {
	Version int     `yaml:"version"`
	Title   string  `yaml:"title"`
	Goal    string  `yaml:"goal"`
	Entries []Entry `yaml:"entries"`

	// Source is the file the catalog was read from.
	Source string `yaml:"-"`
}

// Entry is one query with its presentation text.
type Entry struct {
	Name   string `yaml:"name"`
	Kind   Kind   `yaml:"kind"`
	Title  string `yaml:"title"`
	Goal   string `yaml:"goal,omitempty"`
	Result string `yaml:"result,omitempty"`
	SQL    string `yaml:"sql"`

	// Dialects maps a store dialect to a replacement statement.
	Dialects map[string]string `yaml:"dialects,omitempty"`

	// Rejects counts the rows the statement's guard clauses exclude.
	Rejects string `yaml:"rejects,omitempty"`
}

// SQLFor returns the statement to run on the given dialect.
func (e Entry) SQLFor(dialect string) string {
	if s, ok := e.Dialects[dialect]; ok && strings.TrimSpace(s) != "" {
		return s
	}
	return e.SQL
}

// Default returns the embedded catalog.
func Default() (*Catalog, error) {
	return Parse(defaultCatalog, DefaultSource)
}

// Load reads a catalog file. An empty path returns the embedded catalog.
func Load(path string) (*Catalog, error) {
	if path == "" {
		return Default()
	}
	data, err := os.ReadFile(path) //nolint:gosec // catalog path is operator supplied
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog: %w", err)
	}
	return Parse(data, path)
}

// Parse decodes and validates catalog YAML. Unknown keys are errors.
func Parse(data []byte, source string) (*Catalog, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	var c Catalog
	if err := dec.Decode(&c); err != nil {
		return nil, fmt.Errorf("failed to parse catalog %s: %w", source, err)
	}
	c.Source = source

	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("invalid catalog %s: %w", source, err)
	}
	return &c, nil
}

// Validate checks entry names are unique and every entry has a known kind
// and a statement.
func (c *Catalog) Validate() error {
	var errs []error
	if len(c.Entries) == 0 {
		errs = append(errs, errors.New("catalog has no entries"))
	}

	seen := make(map[string]int, len(c.Entries))
	for i, e := range c.Entries {
		if e.Name == "" {
			errs = append(errs, fmt.Errorf("entry %d: name is required", i))
		} else if prev, dup := seen[e.Name]; dup {
			errs = append(errs, fmt.Errorf("entry %d: name %q already used by entry %d", i, e.Name, prev))
		} else {
			seen[e.Name] = i
		}

		switch e.Kind {
		case KindDataset, KindAnalysis:
		default:
			errs = append(errs, fmt.Errorf("entry %d (%s): unknown kind %q", i, e.Name, e.Kind))
		}

		if strings.TrimSpace(e.SQL) == "" {
			errs = append(errs, fmt.Errorf("entry %d (%s): sql is required", i, e.Name))
		}
	}
	return errors.Join(errs...)
}

// Lookup finds an entry by name and returns its position.
func (c *Catalog) Lookup(name string) (Entry, int, bool) {
	for i, e := range c.Entries {
		if e.Name == name {
			return e, i, true
		}
	}
	return Entry{}, -1, false
}

// Ref identifies the entry at position i.
func (c *Catalog) Ref(i int) core.EntryRef {
	return core.EntryRef{Name: c.Entries[i].Name, Index: i}
}

// Names returns entry names in catalog order.
func (c *Catalog) Names() []string {
	names := make([]string, len(c.Entries))
	for i, e := range c.Entries {
		names[i] = e.Name
	}
	return names
}

// Select returns a catalog with only the named entries, in catalog order.
// No names selects everything.
func (c *Catalog) Select(names []string) (*Catalog, error) {
	out := *c
	if len(names) == 0 {
		out.Entries = append([]Entry(nil), c.Entries...)
		return &out, nil
	}

	want := make(map[string]bool, len(names))
	for _, n := range names {
		if _, _, ok := c.Lookup(n); !ok {
			return nil, fmt.Errorf("unknown catalog entry %q (available: %s)", n, strings.Join(c.Names(), ", "))
		}
		want[n] = true
	}

	out.Entries = nil
	for _, e := range c.Entries {
		if want[e.Name] {
			out.Entries = append(out.Entries, e)
		}
	}
	return &out, nil
}
