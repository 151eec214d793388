package query

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"io"
)

// rawDriver serves one column of fixed values straight from driver.Rows,
// bypassing the value checks sqlmock applies, so tests can feed types the
// materializer must reject.
type rawDriver struct {
	column string
	values []driver.Value
}

func openRawDB(column string, values ...driver.Value) *sql.DB {
	return sql.OpenDB(&rawDriver{column: column, values: values})
}

func (d *rawDriver) Connect(context.Context) (driver.Conn, error) {
	return rawConn{d}, nil
}

func (d *rawDriver) Driver() driver.Driver {
	return d
}

func (d *rawDriver) Open(string) (driver.Conn, error) {
	return rawConn{d}, nil
}

type rawConn struct{ d *rawDriver }

func (c rawConn) Prepare(string) (driver.Stmt, error) {
	return rawStmt{d: c.d}, nil
}

func (c rawConn) Close() error {
	return nil
}

func (c rawConn) Begin() (driver.Tx, error) {
	return nil, errors.New("transactions not supported")
}

type rawStmt struct{ d *rawDriver }

func (s rawStmt) Close() error {
	return nil
}

func (s rawStmt) NumInput() int {
	return 0
}

func (s rawStmt) Exec([]driver.Value) (driver.Result, error) {
	return nil, errors.New("exec not supported")
}

func (s rawStmt) Query([]driver.Value) (driver.Rows, error) {
	return &rawRows{d: s.d}, nil
}

type rawRows struct {
	d   *rawDriver
	pos int
}

func (r *rawRows) Columns() []string {
	return []string{r.d.column}
}

func (r *rawRows) Close() error {
	return nil
}

func (r *rawRows) Next(dest []driver.Value) error {
	if r.pos >= len(r.d.values) {
		return io.EOF
	}
	dest[0] = r.d.values[r.pos]
	r.pos++
	return nil
}
