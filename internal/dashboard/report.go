package dashboard

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Report summarizes one render of the catalog.
type Report struct {
	RunID    uuid.UUID     `json:"run_id"`
	Catalog  string        `json:"catalog"`
	Dialect  string        `json:"dialect,omitempty"`
	State    State         `json:"state"`
	Started  time.Time     `json:"started"`
	Duration time.Duration `json:"duration_ns"`
	Entries  []EntryReport `json:"entries"`
}

// EntryReport is the outcome of a single catalog entry.
type EntryReport struct {
	Name     string        `json:"name"`
	Index    int           `json:"index"`
	Rows     int           `json:"rows"`
	Duration time.Duration `json:"duration_ns"`
	Rejected int64         `json:"rejected,omitempty"`
	Err      error         `json:"-"`
}

// Failed returns the entries that did not render.
func (r *Report) Failed() []EntryReport {
	var out []EntryReport
	for _, e := range r.Entries {
		if e.Err != nil {
			out = append(out, e)
		}
	}
	return out
}

// RunError is returned when entries failed under the isolate policy.
// Every other entry was rendered.
type RunError struct {
	Total    int
	Failures []EntryReport
}

func (e *RunError) Error() string {
	names := make([]string, len(e.Failures))
	for i, f := range e.Failures {
		names[i] = f.Name
	}
	return fmt.Sprintf("%d of %d entries failed: %s", len(e.Failures), e.Total, strings.Join(names, ", "))
}

// Unwrap exposes each entry failure to errors.Is and errors.As.
func (e *RunError) Unwrap() []error {
	errs := make([]error, len(e.Failures))
	for i, f := range e.Failures {
		errs[i] = f.Err
	}
	return errs
}
