package duckdb

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/leapstack-labs/salesdash/pkg/adapter"
	"github.com/leapstack-labs/salesdash/pkg/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeCSV(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func queryString(t *testing.T, ctx context.Context, adp *Adapter, sql string) string {
	t.Helper()
	rows, err := adp.Query(ctx, sql)
	require.NoError(t, err)
	defer func() { _ = rows.Close() }()

	require.True(t, rows.Next())
	var s string
	require.NoError(t, rows.Scan(&s))
	return s
}

func TestAdapter_Connect(t *testing.T) {
	tests := []struct {
		name      string
		setupPath func(t *testing.T) string
		create    bool
		wantErr   error
		verify    func(t *testing.T, path string)
	}{
		{
			name: "in-memory",
			setupPath: func(_ *testing.T) string {
				return MemoryPath
			},
		},
		{
			name: "empty path is in-memory",
			setupPath: func(_ *testing.T) string {
				return ""
			},
		},
		{
			name: "file-based with create",
			setupPath: func(t *testing.T) string {
				return filepath.Join(t.TempDir(), "test.duckdb")
			},
			create: true,
			verify: func(t *testing.T, path string) {
				_, err := os.Stat(path)
				assert.False(t, os.IsNotExist(err), "database file was not created")
			},
		},
		{
			name: "missing file without create",
			setupPath: func(t *testing.T) string {
				return filepath.Join(t.TempDir(), "missing.duckdb")
			},
			wantErr: ErrStoreNotFound,
			verify: func(t *testing.T, path string) {
				_, err := os.Stat(path)
				assert.True(t, os.IsNotExist(err), "database file should not be created")
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			adp := New(nil)

			dbPath := tt.setupPath(t)
			err := adp.Connect(ctx, core.AdapterConfig{Path: dbPath, Create: tt.create})
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
			} else {
				require.NoError(t, err)
			}
			defer func() { _ = adp.Close() }()

			if tt.verify != nil {
				tt.verify(t, dbPath)
			}
		})
	}
}

func TestAdapter_ReadOnly(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "sales.duckdb")

	writer := New(nil)
	require.NoError(t, writer.Connect(ctx, core.AdapterConfig{Path: path, Create: true}))
	require.NoError(t, writer.Exec(ctx, "CREATE TABLE orders (Order_ID VARCHAR)"))
	require.NoError(t, writer.Close())

	reader := New(nil)
	require.NoError(t, reader.Connect(ctx, core.AdapterConfig{Path: path}))
	defer func() { _ = reader.Close() }()

	assert.Equal(t, "0", queryString(t, ctx, reader, "SELECT CAST(COUNT(*) AS VARCHAR) FROM orders"))
	assert.Error(t, reader.Exec(ctx, "INSERT INTO orders VALUES ('O-1')"))
}

func TestAdapter_Settings(t *testing.T) {
	ctx := context.Background()
	adp := New(nil)

	cfg := core.AdapterConfig{
		Path:   MemoryPath,
		Params: map[string]any{"settings": map[string]any{"threads": "2"}},
	}
	require.NoError(t, adp.Connect(ctx, cfg))
	defer func() { _ = adp.Close() }()

	assert.Equal(t, "2", queryString(t, ctx, adp, "SELECT CAST(current_setting('threads') AS VARCHAR)"))
}

func TestAdapter_InvalidParams(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name   string
		params map[string]any
	}{
		{"unknown key", map[string]any{"bogus": true}},
		{"bad setting name", map[string]any{"settings": map[string]any{"a b": "1"}}},
		{"bad extension name", map[string]any{"extensions": []any{"x;y"}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			adp := New(nil)
			require.Error(t, adp.Connect(ctx, core.AdapterConfig{Path: MemoryPath, Params: tt.params}))
			assert.False(t, adp.IsConnected())
		})
	}
}

func TestAdapter_NotConnected(t *testing.T) {
	ctx := context.Background()
	adp := New(nil)

	assert.ErrorIs(t, adp.Exec(ctx, "SELECT 1"), adapter.ErrNotConnected)

	_, err := adp.Query(ctx, "SELECT 1")
	assert.ErrorIs(t, err, adapter.ErrNotConnected)

	_, err = adp.GetTableMetadata(ctx, "orders")
	assert.ErrorIs(t, err, adapter.ErrNotConnected)

	assert.ErrorIs(t, adp.LoadCSV(ctx, "orders", "orders.csv"), adapter.ErrNotConnected)
}

func TestAdapter_Close(t *testing.T) {
	adp := New(nil)
	require.NoError(t, adp.Connect(context.Background(), core.AdapterConfig{Path: MemoryPath}))

	assert.NoError(t, adp.Close())
	assert.NoError(t, adp.Close())
	assert.False(t, adp.IsConnected())
}

func TestAdapter_GetTableMetadata(t *testing.T) {
	ctx := context.Background()
	adp := New(nil)
	require.NoError(t, adp.Connect(ctx, core.AdapterConfig{Path: MemoryPath}))
	defer func() { _ = adp.Close() }()

	require.NoError(t, adp.Exec(ctx, `
		CREATE TABLE products (
			product_id INTEGER NOT NULL,
			name VARCHAR,
			price DOUBLE
		)
	`))
	require.NoError(t, adp.Exec(ctx, `INSERT INTO products VALUES (1, 'Widget', 9.99), (2, 'Gadget', 19.99)`))

	meta, err := adp.GetTableMetadata(ctx, "products")
	require.NoError(t, err)
	assert.Equal(t, "main", meta.Schema)
	assert.Equal(t, int64(2), meta.RowCount)
	require.Len(t, meta.Columns, 3)
	assert.Equal(t, "INTEGER", meta.Columns[0].Type)
	assert.False(t, meta.Columns[0].Nullable)
	assert.Equal(t, "DOUBLE", meta.Columns[2].Type)

	qualified, err := adp.GetTableMetadata(ctx, "main.products")
	require.NoError(t, err)
	assert.Len(t, qualified.Columns, 3)

	_, err = adp.GetTableMetadata(ctx, "nonexistent_table")
	assert.Error(t, err)

	_, err = adp.GetTableMetadata(ctx, "a.b.c")
	assert.Error(t, err)
}

func TestAdapter_LoadCSV(t *testing.T) {
	ctx := context.Background()
	adp := New(nil)
	require.NoError(t, adp.Connect(ctx, core.AdapterConfig{Path: MemoryPath}))
	defer func() { _ = adp.Close() }()

	first := writeCSV(t, "orders.csv", "Order ID,Order Date,Sub-Category,Sales\nO-1,11/05/2020,Chairs,100.5\nO-2,12/01/2020,Tables,50\n")
	require.NoError(t, adp.LoadCSV(ctx, "orders", first))

	meta, err := adp.GetTableMetadata(ctx, "orders")
	require.NoError(t, err)
	require.True(t, meta.HasColumn("Order_ID"))
	assert.True(t, meta.HasColumn("Sub_Category"))
	assert.Equal(t, int64(2), meta.RowCount)

	types := map[string]string{}
	for _, c := range meta.Columns {
		types[c.Name] = c.Type
	}
	assert.Equal(t, "VARCHAR", types["Order_Date"], "dates stay text")
	assert.Equal(t, "DOUBLE", types["Sales"])

	second := writeCSV(t, "more.csv", "Order ID,Order Date,Sub-Category,Sales,Region\nO-3,01/02/2021,Chairs,10,West\n")
	require.NoError(t, adp.LoadCSV(ctx, "orders", second))

	meta, err = adp.GetTableMetadata(ctx, "orders")
	require.NoError(t, err)
	assert.Equal(t, int64(3), meta.RowCount)
	assert.True(t, meta.HasColumn("Region"))

	assert.Equal(t, "160.5", queryString(t, ctx, adp, "SELECT CAST(SUM(Sales) AS VARCHAR) FROM orders"))

	assert.Error(t, adp.LoadCSV(ctx, "bad name", first))
	assert.Error(t, adp.LoadCSV(ctx, "orders", filepath.Join(t.TempDir(), "missing.csv")))
}
