// Package adapter provides the store adapter contract, shared database/sql
// plumbing, and the registry used to pick an adapter by target type.
//
// Concrete adapters live in pkg/adapters/ subdirectories and register
// themselves from init(). Import them with a blank identifier.
package adapter

import (
	"context"
	"log/slog"

	"github.com/leapstack-labs/salesdash/pkg/core"
)

type (
	// Adapter is an alias for core.Adapter.
	Adapter = core.Adapter

	// Config is an alias for core.AdapterConfig.
	Config = core.AdapterConfig
)

// Open creates the adapter registered for cfg.Type and connects it.
// There is a single attempt; any failure is returned as *core.ConnectionError.
func Open(ctx context.Context, cfg Config, logger *slog.Logger) (Adapter, error) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	a, err := NewAdapter(cfg, logger)
	if err != nil {
		return nil, &core.ConnectionError{Type: cfg.Type, Location: cfg.Location(), Err: err}
	}

	logger.Debug("opening store", "type", cfg.Type, "location", cfg.Location())
	if err := a.Connect(ctx, cfg); err != nil {
		_ = a.Close()
		return nil, &core.ConnectionError{Type: cfg.Type, Location: cfg.Location(), Err: err}
	}
	return a, nil
}
