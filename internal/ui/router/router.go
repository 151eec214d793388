// Package router sets up HTTP routes for the UI server.
package router

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/leapstack-labs/salesdash/internal/dashboard"
	analysesFeature "github.com/leapstack-labs/salesdash/internal/ui/features/analyses"
	"github.com/leapstack-labs/salesdash/internal/ui/notifier"
	"github.com/leapstack-labs/salesdash/internal/ui/resources"
)

// Runner is the dashboard runner exposed to routes.
type Runner interface {
	analysesFeature.Runner
	State() dashboard.State
}

// SetupRoutes configures all routes for the UI server.
func SetupRoutes(router chi.Router, runner Runner, notify *notifier.Notifier, logger *slog.Logger) error {
	router.Handle("/static/*", resources.Handler())
	router.Get("/healthz", health(runner))

	return analysesFeature.SetupRoutes(router, runner, notify, logger)
}

func health(runner Runner) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		c := runner.Catalog()
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"state":   runner.State().String(),
			"catalog": c.Source,
			"entries": len(c.Entries),
		})
	}
}
