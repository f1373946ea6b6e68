// Package dbtest provides testify-backed doubles for db.DB.
package dbtest

import (
	"context"
	"fmt"
	"reflect"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/mock"
)

// DB records Exec, Query and QueryRow calls. Expectations receive the
// query arguments as a single []any.
type DB struct {
	mock.Mock
}

func (m *DB) Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error) {
	args := m.Called(ctx, sql, arguments)
	return args.Get(0).(pgconn.CommandTag), args.Error(1)
}

func (m *DB) Query(ctx context.Context, sql string, arguments ...any) (pgx.Rows, error) {
	args := m.Called(ctx, sql, arguments)
	rows, _ := args.Get(0).(pgx.Rows)
	return rows, args.Error(1)
}

func (m *DB) QueryRow(ctx context.Context, sql string, arguments ...any) pgx.Row {
	args := m.Called(ctx, sql, arguments)
	return args.Get(0).(pgx.Row)
}

// RowFunc adapts a scan function to pgx.Row.
type RowFunc func(dest ...any) error

func (f RowFunc) Scan(dest ...any) error { return f(dest...) }

// NoRows is a row that reports pgx.ErrNoRows.
var NoRows = RowFunc(func(...any) error { return pgx.ErrNoRows })

// ErrRow returns a row whose Scan fails with err.
func ErrRow(err error) RowFunc {
	return func(...any) error { return err }
}

// Rows is a pgx.Rows over fixed values. Each value is assigned to the
// matching Scan destination, so its type must match the destination's.
// IterErr is reported by Err after iteration.
type Rows struct {
	data    [][]any
	IterErr error
	pos     int
}

// NewRows returns rows yielding each values slice in order.
func NewRows(values ...[]any) *Rows {
	return &Rows{data: values, pos: -1}
}

func (r *Rows) Next() bool {
	r.pos++
	return r.pos < len(r.data)
}

func (r *Rows) Scan(dest ...any) error {
	if r.pos < 0 || r.pos >= len(r.data) {
		return fmt.Errorf("scan without a current row")
	}
	row := r.data[r.pos]
	if len(dest) != len(row) {
		return fmt.Errorf("scan: %d destinations for %d columns", len(dest), len(row))
	}
	for i, v := range row {
		target := reflect.ValueOf(dest[i]).Elem()
		val := reflect.ValueOf(v)
		if !val.Type().AssignableTo(target.Type()) {
			return fmt.Errorf("scan column %d: cannot assign %s to %s", i, val.Type(), target.Type())
		}
		target.Set(val)
	}
	return nil
}

func (r *Rows) Err() error                                   { return r.IterErr }
func (r *Rows) Close()                                       {}
func (r *Rows) CommandTag() pgconn.CommandTag                { return pgconn.NewCommandTag("SELECT") }
func (r *Rows) FieldDescriptions() []pgconn.FieldDescription { return nil }
func (r *Rows) RawValues() [][]byte                          { return nil }
func (r *Rows) Values() ([]any, error)                       { return nil, nil }
func (r *Rows) Conn() *pgx.Conn                              { return nil }
