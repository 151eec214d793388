package ui

import (
	"context"
	"io"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/leapstack-labs/salesdash/internal/catalog"
	"github.com/leapstack-labs/salesdash/internal/dashboard"
	"github.com/leapstack-labs/salesdash/internal/testutil"
	"github.com/leapstack-labs/salesdash/pkg/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const catalogV1 = `version: 1
title: Store Health
goal: Check the store.
entries:
  - name: customer_count
    kind: analysis
    title: Customer count
    result: Three customers.
    sql: SELECT COUNT(*) AS Customers FROM customers
`

const catalogV2 = `version: 1
title: Store Health v2
goal: Check the store again.
entries:
  - name: order_count
    kind: analysis
    title: Order count
    sql: SELECT COUNT(*) AS Orders FROM orders
`

// startServer runs the server on a random port until the test ends.
func startServer(t *testing.T, cfg Config) (*Server, string) {
	t.Helper()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	cfg.Listener = ln
	cfg.Logger = testutil.NewTestLogger(t)

	srv := NewServer(cfg)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Serve(ctx) }()

	t.Cleanup(func() {
		cancel()
		select {
		case err := <-done:
			assert.NoError(t, err)
		case <-time.After(5 * time.Second):
			t.Error("server did not shut down")
		}
	})
	return srv, "http://" + ln.Addr().String()
}

func fetch(t *testing.T, url string) (int, string) {
	t.Helper()
	resp, err := http.Get(url) //nolint:gosec,noctx // test server
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, string(body)
}

func sampleOptions(t *testing.T) dashboard.Options {
	t.Helper()
	store := testutil.NewSalesStore(t)
	store.Sample()

	c, err := catalog.Default()
	require.NoError(t, err)
	return dashboard.Options{Store: store.Config(), Catalog: c}
}

func TestServer_RendersDefaultCatalog(t *testing.T) {
	srv, base := startServer(t, Config{Options: sampleOptions(t)})

	status, body := fetch(t, base+"/")
	assert.Equal(t, http.StatusOK, status)
	assert.Contains(t, body, "<h1>Sales Trends Analysis</h1>")
	assert.Contains(t, body, `id="section-top_customers"`)
	assert.Contains(t, body, `id="section-customer_lifetime_value"`)
	assert.NotContains(t, body, `class="banner"`)
	assert.Equal(t, dashboard.StateConnected, srv.Runner().State())

	// The same connection serves the next request.
	status, again := fetch(t, base+"/")
	assert.Equal(t, http.StatusOK, status)
	assert.Contains(t, again, `id="section-monthly_sales"`)
}

func TestServer_HealthAndStatic(t *testing.T) {
	_, base := startServer(t, Config{Options: sampleOptions(t)})

	status, body := fetch(t, base+"/healthz")
	assert.Equal(t, http.StatusOK, status)
	assert.Contains(t, body, `"state":"idle"`)
	assert.Contains(t, body, `"entries":12`)

	status, css := fetch(t, base+"/static/dashboard.css")
	assert.Equal(t, http.StatusOK, status)
	assert.Contains(t, css, "section.entry")
}

func TestServer_MissingStore(t *testing.T) {
	c, err := catalog.Default()
	require.NoError(t, err)
	missing := filepath.Join(t.TempDir(), "missing.db")

	srv, base := startServer(t, Config{Options: dashboard.Options{
		Store:   core.AdapterConfig{Type: "sqlite", Path: missing},
		Catalog: c,
	}})

	status, body := fetch(t, base+"/")
	assert.Equal(t, http.StatusServiceUnavailable, status)
	assert.Contains(t, body, `class="banner"`)
	assert.Equal(t, dashboard.StateIdle, srv.Runner().State())

	_, statErr := os.Stat(missing)
	assert.True(t, os.IsNotExist(statErr), "store must not be created")
}

func TestServer_WatchReloadsCatalog(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog.yaml")
	require.NoError(t, os.WriteFile(path, []byte(catalogV1), 0o600))

	opts := sampleOptions(t)
	c, err := catalog.Load(path)
	require.NoError(t, err)
	opts.Catalog = c

	srv, base := startServer(t, Config{Options: opts, CatalogPath: path, Watch: true})

	_, body := fetch(t, base+"/")
	assert.Contains(t, body, "<h1>Store Health</h1>")
	assert.Contains(t, body, `id="section-customer_count"`)

	// Give the watcher time to register before writing.
	time.Sleep(200 * time.Millisecond)
	require.NoError(t, os.WriteFile(path, []byte(catalogV2), 0o600))

	require.Eventually(t, func() bool {
		return srv.Runner().Catalog().Title == "Store Health v2"
	}, 5*time.Second, 50*time.Millisecond)
	assert.GreaterOrEqual(t, srv.Notifier().Last().Generation, uint64(1))

	_, body = fetch(t, base+"/")
	assert.Contains(t, body, `id="section-order_count"`)
	assert.NotContains(t, body, `id="section-customer_count"`)

	// A broken file keeps the previous catalog.
	require.NoError(t, os.WriteFile(path, []byte("entries: [\n"), 0o600))
	time.Sleep(500 * time.Millisecond)
	assert.Equal(t, "Store Health v2", srv.Runner().Catalog().Title)
}

func TestRunner_ReopensAfterFailure(t *testing.T) {
	store := testutil.NewSalesStore(t)
	store.Sample()

	c, err := catalog.Parse([]byte(`version: 1
title: T
entries:
  - name: broken
    kind: analysis
    title: Broken
    sql: SELECT * FROM nope
  - name: ok
    kind: analysis
    title: OK
    sql: SELECT COUNT(*) AS n FROM customers
`), "test")
	require.NoError(t, err)

	r := NewRunner(dashboard.Options{Store: store.Config(), Catalog: c, Logger: testutil.NewTestLogger(t)})
	t.Cleanup(func() { _ = r.Close() })

	_, err = r.Render(context.Background(), discard{})
	require.Error(t, err)
	assert.Equal(t, dashboard.StateFailed, r.State())

	entry, err := r.RenderEntry(context.Background(), "ok", discard{})
	require.NoError(t, err)
	assert.Equal(t, 1, entry.Rows)
	assert.Equal(t, dashboard.StateConnected, r.State())

	require.NoError(t, r.Close())
	require.NoError(t, r.Close())
	assert.Equal(t, dashboard.StateIdle, r.State())
}

// discard is a renderer that drops everything.
type discard struct{}

func (discard) Begin(*catalog.Catalog) error               { return nil }
func (discard) Section(core.EntryRef, catalog.Entry) error { return nil }
func (discard) Table(*core.ResultTable) error              { return nil }
func (discard) Notice(string) error                        { return nil }
func (discard) Narrative(string) error                     { return nil }
func (discard) EntryError(core.EntryRef, error) error      { return nil }
func (discard) End(*dashboard.Report) error                { return nil }
