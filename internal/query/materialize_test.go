package query

import (
	"errors"
	"math"
	"math/big"
	"testing"
	"time"

	"github.com/leapstack-labs/salesdash/pkg/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeRows is an in-memory RowSource.
type fakeRows struct {
	columns []string
	data    [][]any
	pos     int
	err     error
	colErr  error
}

func (r *fakeRows) Columns() ([]string, error) { return r.columns, r.colErr }

func (r *fakeRows) Next() bool {
	if r.pos >= len(r.data) {
		return false
	}
	r.pos++
	return true
}

func (r *fakeRows) Scan(dest ...any) error {
	for i, v := range r.data[r.pos-1] {
		*(dest[i].(*any)) = v
	}
	return nil
}

func (r *fakeRows) Err() error { return r.err }

func TestMaterialize(t *testing.T) {
	ts := time.Date(2020, 11, 5, 0, 0, 0, 0, time.UTC)
	huge := new(big.Int).Lsh(big.NewInt(1), 70)

	tests := []struct {
		name string
		rows *fakeRows
		want [][]any
	}{
		{
			name: "supported types",
			rows: &fakeRows{
				columns: []string{"n", "b", "i", "f", "s", "raw", "t", "h"},
				data: [][]any{
					{nil, true, int64(7), 1.5, "x", []byte("hi"), ts, huge},
				},
			},
			want: [][]any{
				{nil, true, int64(7), 1.5, "x", "hi", ts, huge},
			},
		},
		{
			name: "narrow numeric types widen",
			rows: &fakeRows{
				columns: []string{"a", "b", "c", "d", "e"},
				data: [][]any{
					{int32(3), int16(4), uint8(5), float32(0.5), uint64(math.MaxUint64)},
				},
			},
			want: [][]any{
				{int64(3), int64(4), int64(5), float64(0.5), new(big.Int).SetUint64(math.MaxUint64)},
			},
		},
		{
			name: "empty result keeps columns",
			rows: &fakeRows{columns: []string{"Month", "Total_Sales"}},
			want: [][]any{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			table, err := Materialize(tt.rows)
			require.NoError(t, err)
			assert.Equal(t, tt.rows.columns, table.Columns)
			assert.Equal(t, tt.want, table.Rows)
			for _, row := range table.Rows {
				assert.Len(t, row, len(table.Columns))
			}
		})
	}
}

func TestMaterialize_UnsupportedType(t *testing.T) {
	rows := &fakeRows{
		columns: []string{"id", "z"},
		data: [][]any{
			{int64(1), 2.0},
			{int64(2), complex(1, 2)},
		},
	}

	_, err := Materialize(rows)
	require.Error(t, err)

	var merr *core.MaterializationError
	require.ErrorAs(t, err, &merr)
	assert.Equal(t, "z", merr.Column)
	assert.Equal(t, 1, merr.Row)
	assert.Equal(t, "complex128", merr.Type)
	assert.Contains(t, err.Error(), "unsupported value type complex128")
}

func TestMaterialize_DuplicateColumns(t *testing.T) {
	_, err := Materialize(&fakeRows{columns: []string{"Total", "Total"}})

	var merr *core.MaterializationError
	require.ErrorAs(t, err, &merr)
	assert.Equal(t, "Total", merr.Column)
	assert.Contains(t, err.Error(), "duplicate column name")
}

func TestMaterialize_CursorErrors(t *testing.T) {
	boom := errors.New("boom")

	_, err := Materialize(&fakeRows{colErr: boom})
	assert.ErrorIs(t, err, boom)

	_, err = Materialize(&fakeRows{columns: []string{"a"}, err: boom})
	assert.ErrorIs(t, err, boom)
}
