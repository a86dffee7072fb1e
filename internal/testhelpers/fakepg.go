// Package testhelpers provides in-memory pgx fakes for unit tests and a shared
// PostgreSQL container for integration tests.
package testhelpers

import (
	"context"
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/koltyakov/pgindexhealth/internal/connection"
)

// Rows is a pgx.Rows over a fixed result set.
type Rows struct {
	data   [][]any
	pos    int
	err    error
	closed bool
}

var _ pgx.Rows = (*Rows)(nil)

// NewRows returns rows yielding each record in order.
func NewRows(records ...[]any) *Rows {
	return &Rows{data: records}
}

// WithErr makes Err report err once iteration ends.
func (r *Rows) WithErr(err error) *Rows {
	r.err = err
	return r
}

func (r *Rows) Close()                                       { r.closed = true }
func (r *Rows) Err() error                                   { return r.err }
func (r *Rows) CommandTag() pgconn.CommandTag                { return pgconn.NewCommandTag("SELECT") }
func (r *Rows) FieldDescriptions() []pgconn.FieldDescription { return nil }
func (r *Rows) RawValues() [][]byte                          { return nil }
func (r *Rows) Conn() *pgx.Conn                              { return nil }

// Closed reports whether Close was called.
func (r *Rows) Closed() bool { return r.closed }

func (r *Rows) Next() bool {
	if r.closed || r.pos >= len(r.data) {
		r.closed = true
		return false
	}
	r.pos++
	return true
}

func (r *Rows) Values() ([]any, error) {
	if r.pos == 0 || r.pos > len(r.data) {
		return nil, fmt.Errorf("no current row")
	}
	return r.data[r.pos-1], nil
}

func (r *Rows) Scan(dest ...any) error {
	if r.pos == 0 || r.pos > len(r.data) {
		return fmt.Errorf("no current row")
	}
	return assign(r.data[r.pos-1], dest)
}

// assign copies src values into dest pointers. Nil sources zero the target,
// pointer targets are allocated and numeric kinds are converted.
func assign(src []any, dest []any) error {
	if len(src) != len(dest) {
		return fmt.Errorf("scan: %d values into %d destinations", len(src), len(dest))
	}
	for i, d := range dest {
		dv := reflect.ValueOf(d)
		if dv.Kind() != reflect.Pointer || dv.IsNil() {
			return fmt.Errorf("scan: destination %d is not a non-nil pointer", i)
		}
		target := dv.Elem()
		if src[i] == nil {
			target.Set(reflect.Zero(target.Type()))
			continue
		}
		sv := reflect.ValueOf(src[i])
		if target.Kind() == reflect.Pointer {
			elem := reflect.New(target.Type().Elem())
			if err := set(elem.Elem(), sv, i); err != nil {
				return err
			}
			target.Set(elem)
			continue
		}
		if err := set(target, sv, i); err != nil {
			return err
		}
	}
	return nil
}

func set(target, sv reflect.Value, i int) error {
	switch {
	case sv.Type().AssignableTo(target.Type()):
		target.Set(sv)
	case sv.Type().ConvertibleTo(target.Type()):
		target.Set(sv.Convert(target.Type()))
	default:
		return fmt.Errorf("scan: column %d of type %s is not assignable to %s", i, sv.Type(), target.Type())
	}
	return nil
}

// Row is a pgx.Row over at most one record.
type Row struct {
	record []any
	err    error
}

func (r Row) Scan(dest ...any) error {
	if r.err != nil {
		return r.err
	}
	if r.record == nil {
		return pgx.ErrNoRows
	}
	return assign(r.record, dest)
}

// Result is what a Conn answers to a matching statement.
type Result struct {
	Records [][]any
	Err     error
}

// Conn is a connection.Connection answering by SQL substring. The first
// registered fragment found in the statement wins.
type Conn struct {
	host connection.Host

	mu       sync.Mutex
	patterns []string
	results  map[string]Result
	queries  []string
}

var _ connection.Connection = (*Conn)(nil)

// NewConn returns a fake for host:port.
func NewConn(name string, port int) *Conn {
	return &Conn{
		host: connection.Host{
			Name:         name,
			Port:         port,
			ConnString:   fmt.Sprintf("postgres://%s:%d/test", name, port),
			CanBePrimary: true,
		},
		results: map[string]Result{},
	}
}

// On registers the answer for statements containing fragment.
func (c *Conn) On(fragment string, res Result) *Conn {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.results[fragment]; !ok {
		c.patterns = append(c.patterns, fragment)
	}
	c.results[fragment] = res
	return c
}

// AsPrimary answers the role probe.
func (c *Conn) AsPrimary(primary bool) *Conn {
	return c.On("pg_is_in_recovery", Result{Records: [][]any{{primary}}})
}

// Queries returns every statement seen so far.
func (c *Conn) Queries() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.queries...)
}

// CountQueries counts statements containing fragment.
func (c *Conn) CountQueries(fragment string) int {
	n := 0
	for _, q := range c.Queries() {
		if strings.Contains(q, fragment) {
			n++
		}
	}
	return n
}

func (c *Conn) Host() connection.Host { return c.host }

func (c *Conn) Query(ctx context.Context, sql string, _ ...any) (pgx.Rows, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	res, err := c.lookup(sql)
	if err != nil {
		return nil, err
	}
	if res.Err != nil {
		return nil, res.Err
	}
	return NewRows(res.Records...), nil
}

func (c *Conn) QueryRow(ctx context.Context, sql string, _ ...any) pgx.Row {
	if err := ctx.Err(); err != nil {
		return Row{err: err}
	}
	res, err := c.lookup(sql)
	if err != nil {
		return Row{err: err}
	}
	if res.Err != nil {
		return Row{err: res.Err}
	}
	if len(res.Records) == 0 {
		return Row{}
	}
	return Row{record: res.Records[0]}
}

func (c *Conn) lookup(sql string) (Result, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.queries = append(c.queries, sql)
	for _, p := range c.patterns {
		if strings.Contains(sql, p) {
			return c.results[p], nil
		}
	}
	return Result{}, fmt.Errorf("fake %s: unexpected query %q", c.host, sql)
}
