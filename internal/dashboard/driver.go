// Package dashboard drives a render of the query catalog: it owns the store
// connection, executes each entry in order and hands results to a Renderer.
package dashboard

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"time"

	"github.com/google/uuid"
	"github.com/leapstack-labs/salesdash/internal/catalog"
	"github.com/leapstack-labs/salesdash/internal/query"
	"github.com/leapstack-labs/salesdash/pkg/adapter"
	"github.com/leapstack-labs/salesdash/pkg/core"
)

// FailurePolicy decides what happens when an entry fails.
type FailurePolicy string

// Failure policies.
const (
	// FailAbort stops the run at the first failing entry.
	FailAbort FailurePolicy = "abort"
	// FailIsolate renders the error in place of the entry and continues.
	FailIsolate FailurePolicy = "isolate"
)

// DatePolicy decides how rows with malformed order dates are reported.
type DatePolicy string

// Date policies.
const (
	// DatesDrop excludes malformed rows silently.
	DatesDrop DatePolicy = "drop"
	// DatesFlag also counts the excluded rows and renders a notice.
	DatesFlag DatePolicy = "flag"
)

// Renderer receives the dashboard as it is produced. Calls for one entry
// arrive in order: Section, then Table and Narrative, or EntryError.
type Renderer interface {
	Begin(c *catalog.Catalog) error
	Section(ref core.EntryRef, e catalog.Entry) error
	Table(t *core.ResultTable) error
	Notice(msg string) error
	Narrative(text string) error
	EntryError(ref core.EntryRef, err error) error
	End(r *Report) error
}

// OpenFunc opens a store connection.
type OpenFunc func(ctx context.Context, cfg core.AdapterConfig, logger *slog.Logger) (core.Adapter, error)

// Options configures a run.
type Options struct {
	Store         core.AdapterConfig
	Catalog       *catalog.Catalog
	Renderer      Renderer
	Logger        *slog.Logger
	QueryTimeout  time.Duration
	FailurePolicy FailurePolicy
	DatePolicy    DatePolicy

	// Open defaults to adapter.Open.
	Open OpenFunc
}

func (o *Options) defaults() {
	if o.Logger == nil {
		o.Logger = slog.New(slog.DiscardHandler)
	}
	if o.FailurePolicy == "" {
		o.FailurePolicy = FailAbort
	}
	if o.DatePolicy == "" {
		o.DatePolicy = DatesDrop
	}
	if o.Open == nil {
		o.Open = adapter.Open
	}
}

// Run opens the store, renders every catalog entry and closes the store.
// The connection is released on every exit path.
//
// A *core.ConnectionError means nothing was executed. Under FailAbort the
// first entry failure is returned as is; under FailIsolate a *RunError lists
// every failed entry.
func Run(ctx context.Context, opts Options) (*Report, error) {
	if opts.Catalog == nil || opts.Renderer == nil {
		return nil, errors.New("dashboard: catalog and renderer are required")
	}

	sess, err := Open(ctx, opts)
	if err != nil {
		return sess.report(opts.Catalog), err
	}

	rep, runErr := sess.Render(ctx, opts.Catalog, opts.Renderer)
	if err := sess.Close(); err != nil && runErr == nil {
		runErr = fmt.Errorf("failed to close store: %w", err)
	}
	rep.State = sess.State()
	return rep, runErr
}

// Session is an open store that can render the catalog repeatedly.
// It is not safe for concurrent use; the single connection serializes
// queries anyway.
type Session struct {
	opts    Options
	store   core.Adapter
	exec    *query.Executor
	state   State
	dialect string
}

// Open connects to the store described by opts.Store. On failure the
// returned session is in StateFailed and cannot render.
func Open(ctx context.Context, opts Options) (*Session, error) {
	opts.defaults()
	s := &Session{opts: opts, state: StateIdle}

	store, err := opts.Open(ctx, opts.Store, opts.Logger)
	if err != nil {
		s.transition(StateFailed)
		var cerr *core.ConnectionError
		if !errors.As(err, &cerr) {
			err = &core.ConnectionError{Type: opts.Store.Type, Location: opts.Store.Location(), Err: err}
		}
		return s, err
	}

	s.store = store
	s.dialect = store.DialectName()
	s.exec = query.NewExecutor(store, opts.QueryTimeout, opts.Logger)
	s.transition(StateConnected)
	return s, nil
}

// State returns the session state.
func (s *Session) State() State { return s.state }

// Close releases the connection. It is safe to call more than once.
func (s *Session) Close() error {
	if s.store == nil {
		return nil
	}
	err := s.store.Close()
	s.store = nil
	if !s.state.Terminal() {
		s.transition(StateClosed)
	}
	return err
}

func (s *Session) transition(to State) {
	if !canTransition(s.state, to) {
		s.opts.Logger.Warn("invalid dashboard state transition", "from", s.state, "to", to)
		return
	}
	s.opts.Logger.Debug("dashboard state", "from", s.state, "to", to)
	s.state = to
}

func (s *Session) report(c *catalog.Catalog) *Report {
	rep := &Report{
		RunID:   uuid.New(),
		Dialect: s.dialect,
		State:   s.state,
		Started: time.Now(),
		Entries: []EntryReport{},
	}
	if c != nil {
		rep.Catalog = c.Source
	}
	return rep
}

// Render executes every entry of c in order and renders it.
func (s *Session) Render(ctx context.Context, c *catalog.Catalog, r Renderer) (*Report, error) {
	rep := s.report(c)
	if s.state != StateConnected {
		return rep, fmt.Errorf("dashboard: cannot render in state %s", s.state)
	}

	logger := s.opts.Logger.With("run_id", rep.RunID.String())
	logger.Info("rendering dashboard", "catalog", c.Source, "entries", len(c.Entries), "dialect", s.dialect)

	err := s.render(ctx, c, r, rep, logger)
	rep.Duration = time.Since(rep.Started)
	rep.State = s.state

	if err != nil {
		logger.Error("dashboard run failed", "error", err)
		return rep, err
	}

	if failed := rep.Failed(); len(failed) > 0 {
		logger.Warn("dashboard rendered with failures", "failed", len(failed), "duration", rep.Duration)
		return rep, &RunError{Total: len(c.Entries), Failures: failed}
	}

	logger.Info("dashboard rendered", "entries", len(rep.Entries), "duration", rep.Duration)
	return rep, nil
}

func (s *Session) render(ctx context.Context, c *catalog.Catalog, r Renderer, rep *Report, logger *slog.Logger) error {
	if err := r.Begin(c); err != nil {
		return s.fail(err)
	}

	for i, e := range c.Entries {
		if err := ctx.Err(); err != nil {
			return s.fail(err)
		}

		s.transition(StateRendering)
		entry, err := s.renderEntry(ctx, c.Ref(i), e, r)
		rep.Entries = append(rep.Entries, entry)
		if err != nil {
			return s.fail(err)
		}
		if entry.Err != nil {
			logger.Warn("entry failed", "entry", e.Name, "error", entry.Err)
		}
	}
	if s.state == StateRendering {
		s.transition(StateConnected)
	}

	if err := r.End(rep); err != nil {
		return s.fail(err)
	}
	return nil
}

// RenderEntry renders the single named entry without Begin or End.
func (s *Session) RenderEntry(ctx context.Context, c *catalog.Catalog, name string, r Renderer) (EntryReport, error) {
	e, i, ok := c.Lookup(name)
	if !ok {
		return EntryReport{Name: name, Index: -1}, fmt.Errorf("unknown catalog entry %q", name)
	}
	if s.state != StateConnected {
		return EntryReport{Name: name, Index: i}, fmt.Errorf("dashboard: cannot render in state %s", s.state)
	}

	s.transition(StateRendering)
	entry, err := s.renderEntry(ctx, c.Ref(i), e, r)
	if err != nil {
		return entry, s.fail(err)
	}
	s.transition(StateConnected)
	return entry, entry.Err
}

// renderEntry runs one entry. A failing entry is rendered with EntryError
// under both policies. An error return aborts the run; under FailIsolate
// entry failures are only recorded in the report.
func (s *Session) renderEntry(ctx context.Context, ref core.EntryRef, e catalog.Entry, r Renderer) (EntryReport, error) {
	rep := EntryReport{Name: ref.Name, Index: ref.Index}

	if err := r.Section(ref, e); err != nil {
		return rep, err
	}

	table, err := s.exec.ExecuteEntry(ctx, ref, e.SQLFor(s.dialect))
	if err != nil {
		rep.Err = err
		if rerr := r.EntryError(ref, err); rerr != nil {
			return rep, rerr
		}
		if s.opts.FailurePolicy != FailIsolate {
			return rep, err
		}
		return rep, nil
	}

	rep.Rows = table.RowCount()
	rep.Duration = table.Duration

	if err := r.Table(table); err != nil {
		return rep, err
	}
	if notice := s.rejectsNotice(ctx, ref, e, &rep); notice != "" {
		if err := r.Notice(notice); err != nil {
			return rep, err
		}
	}
	if e.Result != "" {
		if err := r.Narrative(e.Result); err != nil {
			return rep, err
		}
	}
	return rep, nil
}

// rejectsNotice counts the rows the date guard excluded under DatesFlag.
// A failing count does not fail the entry; its table is already rendered.
func (s *Session) rejectsNotice(ctx context.Context, ref core.EntryRef, e catalog.Entry, rep *EntryReport) string {
	if s.opts.DatePolicy != DatesFlag || e.Rejects == "" {
		return ""
	}
	n, err := s.rejected(ctx, ref, e)
	if err != nil {
		s.opts.Logger.Warn("failed to count rejected rows", "entry", ref.Name, "error", err)
		return fmt.Sprintf("Rows with a malformed Order_Date were excluded, but counting them failed: %v", err)
	}
	rep.Rejected = n
	if n == 0 {
		return ""
	}
	return fmt.Sprintf("%d rows with a malformed Order_Date were excluded.", n)
}

func (s *Session) rejected(ctx context.Context, ref core.EntryRef, e catalog.Entry) (int64, error) {
	table, err := s.exec.ExecuteEntry(ctx, ref, e.Rejects)
	if err != nil {
		return 0, err
	}
	if table.RowCount() != 1 || len(table.Columns) != 1 {
		return 0, &core.QueryError{Entry: &ref, SQL: e.Rejects, Err: errors.New("rejects query must return a single count")}
	}

	switch n := table.Rows[0][0].(type) {
	case int64:
		return n, nil
	case float64:
		return int64(n), nil
	case *big.Int:
		return n.Int64(), nil
	case nil:
		return 0, nil
	default:
		return 0, &core.QueryError{Entry: &ref, SQL: e.Rejects, Err: fmt.Errorf("rejects count has type %T", n)}
	}
}

func (s *Session) fail(err error) error {
	s.transition(StateFailed)
	return err
}
