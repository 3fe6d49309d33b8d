package postgres_test

import (
	"context"
	"errors"
	"fmt"
	"reflect"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

type call struct {
	sql  string
	args []any
}

// fakePool records statements and replays canned rows.
type fakePool struct {
	calls    []call
	execTag  pgconn.CommandTag
	execErr  error
	row      []any
	rowErr   error
	rows     [][]any
	queryErr error
}

func (p *fakePool) Exec(_ context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	p.calls = append(p.calls, call{sql: sql, args: args})
	return p.execTag, p.execErr
}

func (p *fakePool) QueryRow(_ context.Context, sql string, args ...any) pgx.Row {
	p.calls = append(p.calls, call{sql: sql, args: args})
	return fakeRow{values: p.row, err: p.rowErr}
}

func (p *fakePool) Query(_ context.Context, sql string, args ...any) (pgx.Rows, error) {
	p.calls = append(p.calls, call{sql: sql, args: args})
	if p.queryErr != nil {
		return nil, p.queryErr
	}
	return &fakeRows{data: p.rows, idx: -1}, nil
}

func (p *fakePool) last() call { return p.calls[len(p.calls)-1] }

type fakeRow struct {
	values []any
	err    error
}

func (r fakeRow) Scan(dest ...any) error {
	if r.err != nil {
		return r.err
	}
	if r.values == nil {
		return pgx.ErrNoRows
	}
	return assign(r.values, dest)
}

// assign copies values into scan destinations; a nil value leaves the
// destination at its zero value.
func assign(values, dest []any) error {
	if len(values) != len(dest) {
		return fmt.Errorf("scan: %d values for %d destinations", len(values), len(dest))
	}
	for i, v := range values {
		d := reflect.ValueOf(dest[i]).Elem()
		if v == nil {
			d.Set(reflect.Zero(d.Type()))
			continue
		}
		rv := reflect.ValueOf(v)
		switch {
		case rv.Type().AssignableTo(d.Type()):
			d.Set(rv)
		case rv.Type().ConvertibleTo(d.Type()):
			d.Set(rv.Convert(d.Type()))
		case d.Kind() == reflect.Pointer && rv.Type().AssignableTo(d.Type().Elem()):
			p := reflect.New(d.Type().Elem())
			p.Elem().Set(rv)
			d.Set(p)
		default:
			return fmt.Errorf("scan: column %d: cannot assign %s to %s", i, rv.Type(), d.Type())
		}
	}
	return nil
}

type fakeRows struct {
	data [][]any
	idx  int
	err  error
}

func (r *fakeRows) Close()                                       {}
func (r *fakeRows) Err() error                                   { return r.err }
func (r *fakeRows) CommandTag() pgconn.CommandTag                { return pgconn.CommandTag{} }
func (r *fakeRows) FieldDescriptions() []pgconn.FieldDescription { return nil }
func (r *fakeRows) Values() ([]any, error)                       { return r.data[r.idx], nil }
func (r *fakeRows) RawValues() [][]byte                          { return nil }
func (r *fakeRows) Conn() *pgx.Conn                              { return nil }

func (r *fakeRows) Next() bool {
	r.idx++
	return r.idx < len(r.data)
}

func (r *fakeRows) Scan(dest ...any) error {
	if r.idx < 0 || r.idx >= len(r.data) {
		return errors.New("scan outside of rows")
	}
	return assign(r.data[r.idx], dest)
}
