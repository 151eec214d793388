package query

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/leapstack-labs/salesdash/pkg/core"
)

// DefaultTimeout bounds a single statement when no timeout is configured.
const DefaultTimeout = 30 * time.Second

// Querier is the part of core.Adapter the executor needs.
type Querier interface {
	Query(ctx context.Context, sql string) (*core.Rows, error)
}

// Executor runs statements on one store connection.
type Executor struct {
	q       Querier
	timeout time.Duration
	logger  *slog.Logger
}

// NewExecutor creates an executor. A zero timeout means DefaultTimeout and a
// negative timeout disables the limit.
func NewExecutor(q Querier, timeout time.Duration, logger *slog.Logger) *Executor {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	if timeout == 0 {
		timeout = DefaultTimeout
	}
	return &Executor{q: q, timeout: timeout, logger: logger}
}

// Execute runs sql and returns every row it produces.
func (e *Executor) Execute(ctx context.Context, sql string) (*core.ResultTable, error) {
	return e.execute(ctx, nil, sql)
}

// ExecuteEntry runs the statement of a catalog entry. Errors carry ref so
// the failing entry can be identified.
func (e *Executor) ExecuteEntry(ctx context.Context, ref core.EntryRef, sql string) (*core.ResultTable, error) {
	return e.execute(ctx, &ref, sql)
}

func (e *Executor) execute(ctx context.Context, ref *core.EntryRef, sql string) (*core.ResultTable, error) {
	if e.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.timeout)
		defer cancel()
	}

	start := time.Now()

	rows, err := e.q.Query(ctx, sql)
	if err != nil {
		return nil, &core.QueryError{Entry: ref, SQL: sql, Err: withContextErr(ctx, err)}
	}
	defer func() { _ = rows.Close() }()

	table, err := Materialize(rows)
	if err != nil {
		var merr *core.MaterializationError
		if errors.As(err, &merr) {
			merr.Entry = ref
			return nil, merr
		}
		return nil, &core.QueryError{Entry: ref, SQL: sql, Err: withContextErr(ctx, err)}
	}
	table.Duration = time.Since(start)

	attrs := []any{"rows", table.RowCount(), "duration", table.Duration}
	if ref != nil {
		attrs = append(attrs, "entry", ref.Name)
	}
	e.logger.Debug("executed query", attrs...)

	return table, nil
}

// withContextErr makes timeouts and cancellation visible to errors.Is even
// when the driver reports them with its own error value.
func withContextErr(ctx context.Context, err error) error {
	cerr := ctx.Err()
	if cerr == nil || errors.Is(err, cerr) {
		return err
	}
	return fmt.Errorf("%w: %w", cerr, err)
}
