package builder

import (
	"context"
	"fmt"
	"strings"

	"github.com/syssam/sqlt"
	"github.com/syssam/sqlt/dialect"
	"github.com/syssam/sqlt/schema"
)

// UpdateBuilder accumulates typed SET assignments and conditions for a
// dynamic UPDATE against one entity. Like Accumulator it is single-owner
// and not safe for concurrent use.
type UpdateBuilder struct {
	entity *schema.Entity
	sets   []Assign
	wheres []whereEntry
	err    error
}

// Update starts an update builder for the entity.
func Update(e *schema.Entity) *UpdateBuilder {
	return &UpdateBuilder{entity: e}
}

// Set appends assignments in order.
func (u *UpdateBuilder) Set(assigns ...Assign) *UpdateBuilder {
	u.sets = append(u.sets, assigns...)
	return u
}

// Where appends a field-operator condition.
func (u *UpdateBuilder) Where(c Cond) *UpdateBuilder {
	u.wheres = append(u.wheres, whereEntry{cond: c, args: c.args})
	return u
}

// Apply appends a precompiled custom condition bound to values. A value
// mismatch is recorded and reported by Execute.
func (u *UpdateBuilder) Apply(c *Condition, vals ...any) *UpdateBuilder {
	if u.err != nil {
		return u
	}
	args, err := c.bind(vals)
	if err != nil {
		u.err = err
		return u
	}
	u.wheres = append(u.wheres, whereEntry{frag: c.frag, args: args})
	return u
}

// Execute renders and runs the update, returning the affected row count.
// An update without assignments is an error.
func (u *UpdateBuilder) Execute(ctx context.Context, q Queryer) (int64, error) {
	if u.err != nil {
		return 0, u.err
	}
	if len(u.sets) == 0 {
		return 0, sqlt.NewValidateError("update builder has no SET assignments", u.entity.Table())
	}
	d := q.Dialect()
	var b strings.Builder
	b.WriteString("UPDATE ")
	b.WriteString(u.entity.Table())
	b.WriteString(" SET ")
	var args []any
	for i, s := range u.sets {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(d.QuoteColumn(s.col))
		b.WriteString(" = ?")
		args = append(args, s.arg)
	}
	args = renderWheres(&b, d, u.wheres, args)
	res, err := q.ExecContext(ctx, convertMarkers(b.String(), d), args...)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// DeleteBuilder accumulates conditions for a dynamic DELETE against one
// entity. An unconditioned delete removes every row, as in SQL.
type DeleteBuilder struct {
	entity *schema.Entity
	wheres []whereEntry
	err    error
}

// Delete starts a delete builder for the entity.
func Delete(e *schema.Entity) *DeleteBuilder {
	return &DeleteBuilder{entity: e}
}

// Where appends a field-operator condition.
func (d *DeleteBuilder) Where(c Cond) *DeleteBuilder {
	d.wheres = append(d.wheres, whereEntry{cond: c, args: c.args})
	return d
}

// Apply appends a precompiled custom condition bound to values. A value
// mismatch is recorded and reported by Execute.
func (d *DeleteBuilder) Apply(c *Condition, vals ...any) *DeleteBuilder {
	if d.err != nil {
		return d
	}
	args, err := c.bind(vals)
	if err != nil {
		d.err = err
		return d
	}
	d.wheres = append(d.wheres, whereEntry{frag: c.frag, args: args})
	return d
}

// Execute renders and runs the delete, returning the affected row count.
func (d *DeleteBuilder) Execute(ctx context.Context, q Queryer) (int64, error) {
	if d.err != nil {
		return 0, d.err
	}
	dl := q.Dialect()
	var b strings.Builder
	b.WriteString("DELETE FROM ")
	b.WriteString(d.entity.Table())
	args := renderWheres(&b, dl, d.wheres, nil)
	res, err := q.ExecContext(ctx, convertMarkers(b.String(), dl), args...)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// renderWheres appends the accumulated conditions as a WHERE clause,
// fragments parenthesized and joined with AND, and extends args with
// their bound values in order.
func renderWheres(b *strings.Builder, d dialect.Dialect, wheres []whereEntry, args []any) []any {
	for i, w := range wheres {
		if i == 0 {
			b.WriteString(" WHERE ")
		} else {
			b.WriteString(" AND ")
		}
		b.WriteByte('(')
		if w.cond.tmpl != "" {
			fmt.Fprintf(b, w.cond.tmpl, d.QuoteColumn(w.cond.col))
		} else {
			b.WriteString(w.frag)
		}
		b.WriteByte(')')
		args = append(args, w.args...)
	}
	return args
}
