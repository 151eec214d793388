// Package analyses serves the dashboard page and its live updates.
package analyses

import (
	"log/slog"

	"github.com/go-chi/chi/v5"
	"github.com/leapstack-labs/salesdash/internal/ui/notifier"
)

// SetupRoutes configures routes for the dashboard feature.
func SetupRoutes(router chi.Router, runner Runner, notify *notifier.Notifier, logger *slog.Logger) error {
	handlers := NewHandlers(runner, notify, logger)

	router.Get("/", handlers.HandlePage)
	router.Get("/analyses/{name}", handlers.HandleAnalysis)
	router.Get("/updates", handlers.HandleUpdates)

	return nil
}
