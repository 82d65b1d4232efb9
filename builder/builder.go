// Package builder is the run-time counterpart of the spec compiler: a
// dynamic condition builder over whitelisted entity fields. Conditions are
// precompiled, either as typed field operators or as parsed custom
// fragments, and appended to an accumulator that a terminal operation
// renders and executes in one shot.
//
// Select queries accumulate on Accumulator; dynamic mutations use
// UpdateBuilder (typed SET assignments plus conditions) and DeleteBuilder
// (conditions only), whose Execute terminals report the affected rows.
//
// An accumulator is single-owner and not safe for concurrent use; Clone
// gives an independent copy with its own argument buffer.
package builder

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"iter"
	"strings"
	"time"

	"github.com/syssam/sqlt/dialect"
	sqlx "github.com/syssam/sqlt/dialect/sql"
	"github.com/syssam/sqlt/schema"
)

// Execution errors of terminal operations.
var (
	// ErrNoRows is returned by One when the query matches nothing.
	ErrNoRows = errors.New("sqlt: no rows in result")
	// ErrManyRows is returned by One when the query matches more than one row.
	ErrManyRows = errors.New("sqlt: more than one row in result")
)

// Queryer is the executor a terminal runs against: a dialect-tagged
// connection such as *sql.Driver or *sql.Tx from dialect/sql.
type Queryer interface {
	sqlx.ExecQuerier
	Dialect() dialect.Dialect
}

// ScanFunc scans the current row into a value.
type ScanFunc[T any] func(rows *sql.Rows) (T, error)

type whereEntry struct {
	cond Cond   // field-operator condition, rendered per dialect
	frag string // pre-rendered custom fragment, used when cond.tmpl == ""
	args []any
}

// Accumulator collects conditions, arguments and ordering for one query
// against one entity.
type Accumulator[T any] struct {
	entity *schema.Entity
	scan   ScanFunc[T]
	wheres []whereEntry
	orders []Order
	err    error

	slowAfter time.Duration
	onSlow    func(query string, elapsed time.Duration)
}

// Query starts an accumulator for the entity. scan maps one result row to
// a value; rows are produced in the entity's field declaration order.
func Query[T any](e *schema.Entity, scan ScanFunc[T]) *Accumulator[T] {
	return &Accumulator[T]{entity: e, scan: scan}
}

// Where appends a field-operator condition.
func (a *Accumulator[T]) Where(c Cond) *Accumulator[T] {
	a.wheres = append(a.wheres, whereEntry{cond: c, args: c.args})
	return a
}

// Apply appends a precompiled custom condition bound to values. The value
// list must match the condition's parameter arity and types; a mismatch is
// recorded and reported by the terminal.
func (a *Accumulator[T]) Apply(c *Condition, vals ...any) *Accumulator[T] {
	if a.err != nil {
		return a
	}
	args, err := c.bind(vals)
	if err != nil {
		a.err = err
		return a
	}
	a.wheres = append(a.wheres, whereEntry{frag: c.frag, args: args})
	return a
}

// OrderBy appends ordering fields.
func (a *Accumulator[T]) OrderBy(orders ...Order) *Accumulator[T] {
	a.orders = append(a.orders, orders...)
	return a
}

// DebugSlow installs a slow-query hook: fn is called with the rendered
// query and its duration whenever a terminal takes at least threshold.
func (a *Accumulator[T]) DebugSlow(threshold time.Duration, fn func(query string, elapsed time.Duration)) *Accumulator[T] {
	a.slowAfter = threshold
	a.onSlow = fn
	return a
}

// Clone returns an independent copy: the condition list, the ordering and
// every argument buffer are deep-copied, so the clone and the original can
// diverge safely.
func (a *Accumulator[T]) Clone() *Accumulator[T] {
	out := &Accumulator[T]{
		entity:    a.entity,
		scan:      a.scan,
		err:       a.err,
		slowAfter: a.slowAfter,
		onSlow:    a.onSlow,
	}
	out.wheres = make([]whereEntry, len(a.wheres))
	for i, w := range a.wheres {
		cp := w
		cp.args = append([]any(nil), w.args...)
		out.wheres[i] = cp
	}
	out.orders = append([]Order(nil), a.orders...)
	return out
}

// render builds the final SQL for the dialect: fragments joined with AND,
// ordering joined with commas, ? markers converted to the dialect's
// positional style last.
func (a *Accumulator[T]) render(d dialect.Dialect, projection string, ordered, paged bool) (string, []any) {
	var b strings.Builder
	b.WriteString("SELECT ")
	b.WriteString(projection)
	b.WriteString(" FROM ")
	b.WriteString(a.entity.Table())
	args := renderWheres(&b, d, a.wheres, nil)
	if ordered && len(a.orders) > 0 {
		b.WriteString(" ORDER BY ")
		for i, o := range a.orders {
			if i > 0 {
				b.WriteString(", ")
			}
			b.WriteString(d.QuoteColumn(o.col))
			if o.desc {
				b.WriteString(" DESC")
			}
		}
	}
	if paged {
		b.WriteString(" LIMIT ? OFFSET ?")
	}
	return convertMarkers(b.String(), d), args
}

func (a *Accumulator[T]) projection(d dialect.Dialect) string {
	names := a.entity.Names()
	cols := make([]string, len(names))
	for i, n := range names {
		cols[i] = d.QuoteColumn(n)
	}
	return strings.Join(cols, ", ")
}

// convertMarkers rewrites ? markers to $N for numbered dialects, skipping
// string literals.
func convertMarkers(query string, d dialect.Dialect) string {
	if !d.Numbered() {
		return query
	}
	var b strings.Builder
	n := 0
	inString := false
	for i := 0; i < len(query); i++ {
		c := query[i]
		switch {
		case c == '\'':
			inString = !inString
			b.WriteByte(c)
		case c == '?' && !inString:
			n++
			fmt.Fprintf(&b, "$%d", n)
		default:
			b.WriteByte(c)
		}
	}
	return b.String()
}

func (a *Accumulator[T]) query(ctx context.Context, q Queryer, sqlText string, args []any) (*sql.Rows, error) {
	start := time.Now()
	rows, err := q.QueryContext(ctx, sqlText, args...)
	if a.onSlow != nil {
		if elapsed := time.Since(start); elapsed >= a.slowAfter {
			a.onSlow(sqlText, elapsed)
		}
	}
	return rows, err
}

// All runs the query and returns every matching row.
func (a *Accumulator[T]) All(ctx context.Context, q Queryer) ([]T, error) {
	if a.err != nil {
		return nil, a.err
	}
	sqlText, args := a.render(q.Dialect(), a.projection(q.Dialect()), true, false)
	rows, err := a.query(ctx, q, sqlText, args)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []T
	for rows.Next() {
		v, err := a.scan(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

// One runs the query and returns exactly one row; zero rows is ErrNoRows
// and more than one is ErrManyRows.
func (a *Accumulator[T]) One(ctx context.Context, q Queryer) (T, error) {
	var zero T
	out, err := a.All(ctx, q)
	if err != nil {
		return zero, err
	}
	switch len(out) {
	case 0:
		return zero, ErrNoRows
	case 1:
		return out[0], nil
	}
	return zero, ErrManyRows
}

// Optional runs the query and returns at most one row; zero rows yields
// nil without error.
func (a *Accumulator[T]) Optional(ctx context.Context, q Queryer) (*T, error) {
	out, err := a.All(ctx, q)
	if err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, nil
	}
	if len(out) > 1 {
		return nil, ErrManyRows
	}
	return &out[0], nil
}

// Count runs the companion COUNT(1) query over the accumulated conditions.
func (a *Accumulator[T]) Count(ctx context.Context, q Queryer) (int64, error) {
	if a.err != nil {
		return 0, a.err
	}
	sqlText, args := a.render(q.Dialect(), "COUNT(1)", false, false)
	rows, err := a.query(ctx, q, sqlText, args)
	if err != nil {
		return 0, err
	}
	defer rows.Close()
	var total int64
	if rows.Next() {
		if err := rows.Scan(&total); err != nil {
			return 0, err
		}
	}
	return total, rows.Err()
}

// Page runs one page of the query plus its total. When the first page
// (offset 0) comes back empty the total is zero by definition and the
// count query is skipped.
func (a *Accumulator[T]) Page(ctx context.Context, q Queryer, limit, offset int64) ([]T, int64, error) {
	if a.err != nil {
		return nil, 0, a.err
	}
	sqlText, args := a.render(q.Dialect(), a.projection(q.Dialect()), true, true)
	args = append(args, limit, offset)
	rows, err := a.query(ctx, q, sqlText, args)
	if err != nil {
		return nil, 0, err
	}
	var out []T
	func() {
		defer rows.Close()
		for rows.Next() {
			v, scanErr := a.scan(rows)
			if scanErr != nil {
				err = scanErr
				return
			}
			out = append(out, v)
		}
		err = rows.Err()
	}()
	if err != nil {
		return nil, 0, err
	}
	if offset == 0 && len(out) == 0 {
		return nil, 0, nil
	}
	total, err := a.Count(ctx, q)
	if err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

// Stream runs the query and yields rows one at a time. Iteration stops on
// the first scan error, which is yielded with a zero value.
func (a *Accumulator[T]) Stream(ctx context.Context, q Queryer) iter.Seq2[T, error] {
	return func(yield func(T, error) bool) {
		var zero T
		if a.err != nil {
			yield(zero, a.err)
			return
		}
		sqlText, args := a.render(q.Dialect(), a.projection(q.Dialect()), true, false)
		rows, err := a.query(ctx, q, sqlText, args)
		if err != nil {
			yield(zero, err)
			return
		}
		defer rows.Close()
		for rows.Next() {
			v, err := a.scan(rows)
			if err != nil {
				yield(zero, err)
				return
			}
			if !yield(v, nil) {
				return
			}
		}
		if err := rows.Err(); err != nil {
			yield(zero, err)
		}
	}
}
