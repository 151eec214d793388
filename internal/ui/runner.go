package ui

import (
	"context"
	"sync"

	"github.com/leapstack-labs/salesdash/internal/catalog"
	"github.com/leapstack-labs/salesdash/internal/dashboard"
)

// Runner owns the single long-lived store session behind the web dashboard.
// Requests are serialized: the session has one connection and is not safe
// for concurrent use. A session that failed or closed is reopened on the
// next request.
type Runner struct {
	mu      sync.Mutex
	opts    dashboard.Options
	catalog *catalog.Catalog
	session *dashboard.Session
}

// NewRunner creates a runner for opts. opts.Catalog is the initial catalog;
// opts.Renderer is ignored.
func NewRunner(opts dashboard.Options) *Runner {
	return &Runner{opts: opts, catalog: opts.Catalog}
}

// Catalog returns the current catalog.
func (r *Runner) Catalog() *catalog.Catalog {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.catalog
}

// SetCatalog replaces the catalog used by later renders.
func (r *Runner) SetCatalog(c *catalog.Catalog) {
	r.mu.Lock()
	r.catalog = c
	r.mu.Unlock()
}

// Render runs the whole catalog.
func (r *Runner) Render(ctx context.Context, rend dashboard.Renderer) (*dashboard.Report, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	sess, err := r.open(ctx)
	if err != nil {
		return nil, err
	}
	return sess.Render(ctx, r.catalog, rend)
}

// RenderEntry runs a single named entry.
func (r *Runner) RenderEntry(ctx context.Context, name string, rend dashboard.Renderer) (dashboard.EntryReport, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	sess, err := r.open(ctx)
	if err != nil {
		return dashboard.EntryReport{Name: name, Index: -1}, err
	}
	return sess.RenderEntry(ctx, r.catalog, name, rend)
}

// State reports the session state, or StateIdle before the first request.
func (r *Runner) State() dashboard.State {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.session == nil {
		return dashboard.StateIdle
	}
	return r.session.State()
}

// Close releases the connection.
func (r *Runner) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.session == nil {
		return nil
	}
	err := r.session.Close()
	r.session = nil
	return err
}

// open returns a connected session. Caller holds r.mu.
func (r *Runner) open(ctx context.Context) (*dashboard.Session, error) {
	if r.session != nil && r.session.State() == dashboard.StateConnected {
		return r.session, nil
	}
	if r.session != nil {
		_ = r.session.Close()
		r.session = nil
	}

	sess, err := dashboard.Open(ctx, r.opts)
	if err != nil {
		return nil, err
	}
	r.session = sess
	return sess, nil
}
