package analyses

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/leapstack-labs/salesdash/internal/catalog"
	"github.com/leapstack-labs/salesdash/internal/dashboard"
	"github.com/leapstack-labs/salesdash/internal/ui/features/analyses/pages"
	"github.com/leapstack-labs/salesdash/internal/ui/notifier"
	"github.com/leapstack-labs/salesdash/pkg/core"
	"github.com/starfederation/datastar-go/datastar"
)

// Runner executes the catalog against the store.
type Runner interface {
	Catalog() *catalog.Catalog
	Render(ctx context.Context, r dashboard.Renderer) (*dashboard.Report, error)
	RenderEntry(ctx context.Context, name string, r dashboard.Renderer) (dashboard.EntryReport, error)
}

// Handlers provides HTTP handlers for the dashboard feature.
type Handlers struct {
	runner   Runner
	notifier *notifier.Notifier
	logger   *slog.Logger
}

// NewHandlers creates a new Handlers instance.
func NewHandlers(runner Runner, notify *notifier.Notifier, logger *slog.Logger) *Handlers {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Handlers{runner: runner, notifier: notify, logger: logger}
}

// HandlePage renders the whole dashboard. Every request runs the catalog.
func (h *Handlers) HandlePage(w http.ResponseWriter, r *http.Request) {
	view, status := h.buildView(r.Context())

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := pages.Page(view).Render(r.Context(), w); err != nil {
		h.logger.Error("failed to write page", "error", err)
	}
}

// HandleAnalysis re-runs one entry and patches its section.
func (h *Handlers) HandleAnalysis(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	entry, _, ok := h.runner.Catalog().Lookup(name)
	if !ok {
		http.Error(w, fmt.Sprintf("unknown analysis %q", name), http.StatusNotFound)
		return
	}

	sse := datastar.NewSSE(w, r)

	b := pages.NewBuilder()
	_, err := h.runner.RenderEntry(r.Context(), name, b)
	if err != nil {
		h.logger.Warn("analysis failed", "entry", name, "error", err)
	}

	section, started := b.Last()
	if !started {
		// The store could not be opened; the entry never started.
		section = pages.SectionView{Name: name, Kind: string(entry.Kind), Title: entry.Title, Goal: entry.Goal}
		if err != nil {
			section.Error = err.Error()
		}
	}
	if err := sse.PatchElementTempl(pages.Section(section)); err != nil {
		h.logger.Debug("failed to patch section", "entry", name, "error", err)
	}
}

// HandleUpdates is the long-lived SSE stream. On every catalog reload it
// re-runs the dashboard and patches the whole body.
func (h *Handlers) HandleUpdates(w http.ResponseWriter, r *http.Request) {
	sse := datastar.NewSSE(w, r)

	updates := h.notifier.Subscribe()
	defer h.notifier.Unsubscribe(updates)

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-updates:
			if !ok {
				return
			}
			h.logger.Debug("catalog reloaded, refreshing stream", "generation", ev.Generation)
			view, _ := h.buildView(ctx)
			if err := sse.PatchElementTempl(pages.Dashboard(view)); err != nil {
				_ = sse.ConsoleError(err)
			}
		}
	}
}

// buildView runs the catalog and returns the view with the HTTP status
// describing the outcome.
func (h *Handlers) buildView(ctx context.Context) (pages.View, int) {
	b := pages.NewBuilder()
	_, err := h.runner.Render(ctx, b)

	view := b.View
	if view.Title == "" {
		c := h.runner.Catalog()
		view.Title, view.Goal = c.Title, c.Goal
	}
	if err == nil {
		return view, http.StatusOK
	}

	h.logger.Warn("dashboard render failed", "error", err)

	var connErr *core.ConnectionError
	var runErr *dashboard.RunError
	switch {
	case errors.As(err, &connErr):
		view.Banner = connErr.Error()
		return view, http.StatusServiceUnavailable
	case errors.As(err, &runErr):
		view.Banner = runErr.Error()
		return view, http.StatusOK
	default:
		view.Banner = "Dashboard stopped: " + err.Error()
		return view, http.StatusInternalServerError
	}
}
