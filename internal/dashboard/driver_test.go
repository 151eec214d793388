package dashboard

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/leapstack-labs/salesdash/internal/catalog"
	"github.com/leapstack-labs/salesdash/internal/testutil"
	"github.com/leapstack-labs/salesdash/pkg/adapter"
	"github.com/leapstack-labs/salesdash/pkg/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	_ "github.com/leapstack-labs/salesdash/pkg/adapters/sqlite"
)

// recorder is a Renderer that records every call.
type recorder struct {
	events []string
	failOn string
}

func (r *recorder) record(ev string) error {
	r.events = append(r.events, ev)
	if r.failOn != "" && ev == r.failOn {
		return errors.New("write failed")
	}
	return nil
}

func (r *recorder) Begin(c *catalog.Catalog) error { return r.record("begin:" + c.Title) }

func (r *recorder) Section(ref core.EntryRef, _ catalog.Entry) error {
	return r.record(fmt.Sprintf("section:%d:%s", ref.Index, ref.Name))
}

func (r *recorder) Table(t *core.ResultTable) error {
	return r.record(fmt.Sprintf("table:%d", t.RowCount()))
}

func (r *recorder) Notice(msg string) error { return r.record("notice:" + msg) }

func (r *recorder) Narrative(string) error { return r.record("narrative") }

func (r *recorder) EntryError(ref core.EntryRef, _ error) error {
	return r.record("error:" + ref.Name)
}

func (r *recorder) End(rep *Report) error { return r.record("end:" + rep.State.String()) }

// trackingStore counts Close calls.
type trackingStore struct {
	core.Adapter
	closed int
}

func (s *trackingStore) Close() error {
	s.closed++
	return s.Adapter.Close()
}

func trackingOpen(stores *[]*trackingStore) OpenFunc {
	return func(ctx context.Context, cfg core.AdapterConfig, logger *slog.Logger) (core.Adapter, error) {
		a, err := adapter.Open(ctx, cfg, logger)
		if err != nil {
			return nil, err
		}
		ts := &trackingStore{Adapter: a}
		*stores = append(*stores, ts)
		return ts, nil
	}
}

func mustParse(t *testing.T, yaml string) *catalog.Catalog {
	t.Helper()
	c, err := catalog.Parse([]byte(yaml), "test.yaml")
	require.NoError(t, err)
	return c
}

const brokenCatalog = `
title: Broken
entries:
  - name: first
    kind: analysis
    title: First
    result: ok
    sql: SELECT COUNT(*) AS n FROM orders
  - name: missing_table
    kind: analysis
    title: Missing
    sql: SELECT * FROM no_such_table
  - name: third
    kind: dataset
    title: Third
    sql: SELECT * FROM customers
`

func TestRun_DefaultCatalog(t *testing.T) {
	store := testutil.NewSalesStore(t)
	store.Sample()

	cat, err := catalog.Default()
	require.NoError(t, err)

	var stores []*trackingStore
	rec := &recorder{}
	rep, err := Run(context.Background(), Options{
		Store:    store.Config(),
		Catalog:  cat,
		Renderer: rec,
		Logger:   testutil.NewTestLogger(t),
		Open:     trackingOpen(&stores),
	})
	require.NoError(t, err)

	assert.Equal(t, StateClosed, rep.State)
	assert.Equal(t, "sqlite", rep.Dialect)
	assert.Equal(t, catalog.DefaultSource, rep.Catalog)
	assert.NotEmpty(t, rep.RunID.String())
	require.Len(t, rep.Entries, len(cat.Entries))
	assert.Empty(t, rep.Failed())

	for i, e := range rep.Entries {
		assert.Equal(t, cat.Entries[i].Name, e.Name)
		assert.Equal(t, i, e.Index)
	}
	assert.Equal(t, 4, rep.Entries[1].Rows)

	assert.Equal(t, "begin:Sales Trends Analysis", rec.events[0])
	assert.Equal(t, []string{"section:0:customers", "table:3", "section:1:orders", "table:4", "section:2:top_customers", "table:3", "narrative"}, rec.events[1:8])
	assert.Equal(t, "end:connected", rec.events[len(rec.events)-1])

	require.Len(t, stores, 1)
	assert.Equal(t, 1, stores[0].closed)
}

func TestRun_ConnectionError(t *testing.T) {
	cat, err := catalog.Default()
	require.NoError(t, err)

	rec := &recorder{}
	missing := filepath.Join(t.TempDir(), "missing.db")
	rep, err := Run(context.Background(), Options{
		Store:    core.AdapterConfig{Type: "sqlite", Path: missing},
		Catalog:  cat,
		Renderer: rec,
	})

	var cerr *core.ConnectionError
	require.ErrorAs(t, err, &cerr)
	assert.Equal(t, missing, cerr.Location)
	assert.Equal(t, StateFailed, rep.State)
	assert.Empty(t, rep.Entries)
	assert.Empty(t, rec.events, "nothing is rendered without a connection")
}

func TestRun_ConnectionErrorFromPlainError(t *testing.T) {
	cat, err := catalog.Default()
	require.NoError(t, err)

	_, err = Run(context.Background(), Options{
		Store:    core.AdapterConfig{Type: "sqlite", Path: "x.db"},
		Catalog:  cat,
		Renderer: &recorder{},
		Open: func(context.Context, core.AdapterConfig, *slog.Logger) (core.Adapter, error) {
			return nil, errors.New("refused")
		},
	})

	var cerr *core.ConnectionError
	require.ErrorAs(t, err, &cerr)
	assert.Equal(t, "x.db", cerr.Location)
}

func TestRun_AbortPolicy(t *testing.T) {
	store := testutil.NewSalesStore(t)
	store.Sample()

	var stores []*trackingStore
	rec := &recorder{}
	rep, err := Run(context.Background(), Options{
		Store:    store.Config(),
		Catalog:  mustParse(t, brokenCatalog),
		Renderer: rec,
		Logger:   testutil.NewTestLogger(t),
		Open:     trackingOpen(&stores),
	})

	var qerr *core.QueryError
	require.ErrorAs(t, err, &qerr)
	require.NotNil(t, qerr.Entry)
	assert.Equal(t, "missing_table", qerr.Entry.Name)
	assert.Equal(t, 1, qerr.Entry.Index)

	assert.Equal(t, StateFailed, rep.State)
	assert.Equal(t, []string{
		"begin:Broken",
		"section:0:first", "table:1", "narrative",
		"section:1:missing_table", "error:missing_table",
	}, rec.events)
	require.Len(t, rep.Entries, 2)
	assert.Error(t, rep.Entries[1].Err)

	require.Len(t, stores, 1)
	assert.Equal(t, 1, stores[0].closed, "connection released on failure")
}

func TestRun_IsolatePolicy(t *testing.T) {
	store := testutil.NewSalesStore(t)
	store.Sample()

	rec := &recorder{}
	rep, err := Run(context.Background(), Options{
		Store:         store.Config(),
		Catalog:       mustParse(t, brokenCatalog),
		Renderer:      rec,
		FailurePolicy: FailIsolate,
	})

	var runErr *RunError
	require.ErrorAs(t, err, &runErr)
	assert.Equal(t, 3, runErr.Total)
	require.Len(t, runErr.Failures, 1)
	assert.Equal(t, "missing_table", runErr.Failures[0].Name)
	assert.Equal(t, "1 of 3 entries failed: missing_table", runErr.Error())

	var qerr *core.QueryError
	assert.ErrorAs(t, err, &qerr, "entry errors are reachable through RunError")

	assert.Equal(t, StateClosed, rep.State)
	assert.Equal(t, []string{
		"begin:Broken",
		"section:0:first", "table:1", "narrative",
		"section:1:missing_table", "error:missing_table",
		"section:2:third", "table:3",
		"end:connected",
	}, rec.events)
}

func TestRun_DatePolicy(t *testing.T) {
	store := testutil.NewSalesStore(t)
	store.AddOrders(
		testutil.Order{ID: "1", Date: "11/05/2020", Sales: 10},
		testutil.Order{ID: "2", Date: "2020-11-05", Sales: 20},
		testutil.Order{ID: "3", Date: "13/01/2020", Sales: 30},
	)

	cat, err := catalog.Default()
	require.NoError(t, err)
	cat, err = cat.Select([]string{"monthly_sales"})
	require.NoError(t, err)

	t.Run("drop", func(t *testing.T) {
		rec := &recorder{}
		rep, err := Run(context.Background(), Options{Store: store.Config(), Catalog: cat, Renderer: rec})
		require.NoError(t, err)
		assert.Equal(t, int64(0), rep.Entries[0].Rejected)
		assert.Contains(t, rec.events, "table:1")
		for _, ev := range rec.events {
			assert.NotContains(t, ev, "notice:")
		}
	})

	t.Run("flag", func(t *testing.T) {
		rec := &recorder{}
		rep, err := Run(context.Background(), Options{Store: store.Config(), Catalog: cat, Renderer: rec, DatePolicy: DatesFlag})
		require.NoError(t, err)
		assert.Equal(t, int64(2), rep.Entries[0].Rejected)
		assert.Equal(t, []string{
			"begin:Sales Trends Analysis",
			"section:0:monthly_sales", "table:1",
			"notice:2 rows with a malformed Order_Date were excluded.",
			"narrative",
			"end:connected",
		}, rec.events)
	})
}

func TestRun_FlagDatesCountFailureKeepsTable(t *testing.T) {
	store := testutil.NewSalesStore(t)
	store.Sample()

	cat := mustParse(t, `
title: Counting
entries:
  - name: orders_count
    kind: analysis
    title: Orders
    result: counted
    sql: SELECT COUNT(*) AS n FROM orders
    rejects: SELECT COUNT(*) FROM no_such_table
`)

	rec := &recorder{}
	rep, err := Run(context.Background(), Options{Store: store.Config(), Catalog: cat, Renderer: rec, DatePolicy: DatesFlag})
	require.NoError(t, err)
	require.Len(t, rep.Entries, 1)
	assert.NoError(t, rep.Entries[0].Err)
	assert.Equal(t, 1, rep.Entries[0].Rows)
	assert.Empty(t, rep.Failed())

	require.Len(t, rec.events, 6)
	assert.Equal(t, "table:1", rec.events[2])
	assert.Contains(t, rec.events[3], "notice:Rows with a malformed Order_Date were excluded, but counting them failed")
	assert.Equal(t, "narrative", rec.events[4])
	assert.NotContains(t, rec.events, "error:orders_count")
}

func TestRun_RendererFailureAborts(t *testing.T) {
	store := testutil.NewSalesStore(t)
	store.Sample()

	rec := &recorder{failOn: "table:1"}
	rep, err := Run(context.Background(), Options{
		Store:         store.Config(),
		Catalog:       mustParse(t, brokenCatalog),
		Renderer:      rec,
		FailurePolicy: FailIsolate,
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "write failed")
	assert.Equal(t, StateFailed, rep.State)
	assert.Equal(t, "table:1", rec.events[len(rec.events)-1])
}

func TestRun_CancelledContext(t *testing.T) {
	store := testutil.NewSalesStore(t)
	store.Sample()

	cat, err := catalog.Default()
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	rec := &recorder{}
	rep, err := Run(ctx, Options{Store: store.Config(), Catalog: cat, Renderer: rec})
	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, StateFailed, rep.State)
	assert.Empty(t, rep.Entries)
}

func TestRun_RequiresCatalogAndRenderer(t *testing.T) {
	_, err := Run(context.Background(), Options{})
	assert.Error(t, err)
}

func TestSession_RenderEntry(t *testing.T) {
	store := testutil.NewSalesStore(t)
	store.Sample()

	cat, err := catalog.Default()
	require.NoError(t, err)

	sess, err := Open(context.Background(), Options{Store: store.Config(), Logger: testutil.NewTestLogger(t)})
	require.NoError(t, err)
	defer func() { _ = sess.Close() }()
	assert.Equal(t, StateConnected, sess.State())

	rec := &recorder{}
	entry, err := sess.RenderEntry(context.Background(), cat, "top_customers", rec)
	require.NoError(t, err)
	assert.Equal(t, 3, entry.Rows)
	assert.Equal(t, 2, entry.Index)
	assert.Equal(t, []string{"section:2:top_customers", "table:3", "narrative"}, rec.events)
	assert.Equal(t, StateConnected, sess.State())

	// The same session renders again.
	rep, err := sess.Render(context.Background(), cat, &recorder{})
	require.NoError(t, err)
	assert.Len(t, rep.Entries, 12)

	_, err = sess.RenderEntry(context.Background(), cat, "nope", rec)
	assert.Error(t, err)

	require.NoError(t, sess.Close())
	require.NoError(t, sess.Close())
	assert.Equal(t, StateClosed, sess.State())

	_, err = sess.RenderEntry(context.Background(), cat, "top_customers", rec)
	assert.Error(t, err)
}
