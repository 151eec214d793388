package adapter

import (
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/leapstack-labs/salesdash/pkg/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUnknownAdapterError_Error(t *testing.T) {
	err := &UnknownAdapterError{
		Type:      "fake_db",
		Available: []string{"duckdb", "sqlite"},
	}

	msg := err.Error()
	assert.Contains(t, msg, "fake_db", "error should mention the unknown type")
	assert.Contains(t, msg, "salesdash.yaml", "error should mention config file")
}

func TestRegister(t *testing.T) {
	Register("test_adapter_internal", func(_ *slog.Logger) Adapter { return nil })

	assert.True(t, IsRegistered("test_adapter_internal"))

	factory, ok := Get("test_adapter_internal")
	assert.True(t, ok)
	assert.NotNil(t, factory)
	assert.Contains(t, ListAdapters(), "test_adapter_internal")
}

func TestNewAdapter_EmptyType(t *testing.T) {
	_, err := NewAdapter(Config{}, nil)
	require.Error(t, err)
	assert.Equal(t, "adapter type not specified", err.Error())
}

func TestNewAdapter_UnknownType(t *testing.T) {
	_, err := NewAdapter(Config{Type: "oracle"}, nil)

	var unknown *UnknownAdapterError
	require.ErrorAs(t, err, &unknown)
	assert.Equal(t, "oracle", unknown.Type)
}

// failingAdapter refuses every connection attempt.
type failingAdapter struct {
	BaseSQLAdapter
	closed int
}

func (f *failingAdapter) Connect(_ context.Context, _ Config) error {
	return errors.New("no such file")
}

func (f *failingAdapter) Close() error {
	f.closed++
	return nil
}

func (f *failingAdapter) GetTableMetadata(_ context.Context, _ string) (*core.TableMetadata, error) {
	return nil, ErrNotConnected
}

func (f *failingAdapter) LoadCSV(_ context.Context, _, _ string) error { return ErrNotConnected }

func (f *failingAdapter) DialectName() string { return "test" }

func TestOpen_ConnectFailureIsConnectionError(t *testing.T) {
	fa := &failingAdapter{}
	Register("test_failing", func(_ *slog.Logger) Adapter { return fa })

	_, err := Open(context.Background(), Config{Type: "test_failing", Path: "/missing/sales.db"}, nil)

	var connErr *core.ConnectionError
	require.ErrorAs(t, err, &connErr)
	assert.Equal(t, "/missing/sales.db", connErr.Location)
	assert.Contains(t, err.Error(), "no such file")
	assert.Equal(t, 1, fa.closed, "failed adapter should be released")
}

func TestOpen_UnknownTypeIsConnectionError(t *testing.T) {
	_, err := Open(context.Background(), Config{Type: "nope"}, nil)

	var connErr *core.ConnectionError
	require.ErrorAs(t, err, &connErr)

	var unknown *UnknownAdapterError
	assert.ErrorAs(t, err, &unknown)
}
