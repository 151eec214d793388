package query

import (
	"fmt"
	"math"
	"math/big"
	"time"

	"github.com/leapstack-labs/salesdash/pkg/core"
)

// RowSource is the cursor Materialize reads. *sql.Rows implements it.
type RowSource interface {
	Columns() ([]string, error)
	Next() bool
	Scan(dest ...any) error
	Err() error
}

// Materialize reads the column names once and then every row.
//
// Values are normalized to nil, bool, int64, float64, string, time.Time or
// *big.Int. []byte becomes string. Any other driver type is reported as a
// *core.MaterializationError rather than coerced. Duplicate column names
// are rejected because the table is addressed by column name.
func Materialize(rows RowSource) (*core.ResultTable, error) {
	columns, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("failed to get columns: %w", err)
	}

	seen := make(map[string]struct{}, len(columns))
	for _, c := range columns {
		if _, dup := seen[c]; dup {
			return nil, &core.MaterializationError{
				Column: c,
				Row:    -1,
				Err:    fmt.Errorf("duplicate column name %q", c),
			}
		}
		seen[c] = struct{}{}
	}

	table := &core.ResultTable{Columns: columns, Rows: [][]any{}}

	values := make([]any, len(columns))
	ptrs := make([]any, len(columns))
	for i := range values {
		ptrs[i] = &values[i]
	}

	for n := 0; rows.Next(); n++ {
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("failed to scan row %d: %w", n, err)
		}

		row := make([]any, len(columns))
		for i, v := range values {
			nv, ok := normalize(v)
			if !ok {
				return nil, &core.MaterializationError{
					Column: columns[i],
					Row:    n,
					Type:   fmt.Sprintf("%T", v),
				}
			}
			row[i] = nv
		}
		table.Rows = append(table.Rows, row)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}
	return table, nil
}

// normalize maps a driver value onto the supported host types.
func normalize(v any) (any, bool) {
	switch x := v.(type) {
	case nil:
		return nil, true
	case bool, int64, float64, string, time.Time:
		return x, true
	case []byte:
		return string(x), true
	case int:
		return int64(x), true
	case int8:
		return int64(x), true
	case int16:
		return int64(x), true
	case int32:
		return int64(x), true
	case uint8:
		return int64(x), true
	case uint16:
		return int64(x), true
	case uint32:
		return int64(x), true
	case uint64:
		if x > math.MaxInt64 {
			return new(big.Int).SetUint64(x), true
		}
		return int64(x), true
	case float32:
		return float64(x), true
	case *big.Int:
		if x == nil {
			return nil, true
		}
		return x, true
	default:
		return nil, false
	}
}
