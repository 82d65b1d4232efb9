package builder

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/syssam/sqlt"
	"github.com/syssam/sqlt/compiler"
	"github.com/syssam/sqlt/dialect"
	"github.com/syssam/sqlt/parser"
	"github.com/syssam/sqlt/scan"
	"github.com/syssam/sqlt/schema"
)

// Condition is a custom condition compiled once: the fragment is parsed,
// its identifiers whitelisted against the entity and its parameters fixed
// to an ordered, typed list. Applying a Condition appends the pre-rendered
// fragment and its bound values without re-parsing.
type Condition struct {
	frag   string
	params []condParam
}

type condParam struct {
	name string // "" for a bare ? marker
	typ  schema.Type
}

// CompileCondition parses and validates an ad hoc condition fragment for
// the entity. Placeholders resolve the same way spec fragments do: a $Type
// annotation fixes the type, a placeholder compared against a known column
// borrows that field's type, and bare ? markers accept any value. The
// fragment is rendered for the dialect with every parameter as a ? marker,
// in textual order.
func CompileCondition(d dialect.Dialect, e *schema.Entity, fragment string) (*Condition, error) {
	expr, err := parser.ParseExpr(d, fragment)
	if err != nil {
		return nil, err
	}
	info, err := scan.Fragment(expr)
	if err != nil {
		return nil, err
	}
	for col := range info.Columns {
		if !e.Has(col) {
			return nil, sqlt.NewValidateError("unknown column in condition fragment", col)
		}
	}
	for tbl := range info.Tables {
		if tbl != e.Table() {
			return nil, sqlt.NewValidateError("unknown table in condition fragment", tbl)
		}
	}
	c := &Condition{params: make([]condParam, 0, len(info.Params))}
	for _, p := range info.Params {
		if p.Positional {
			c.params = append(c.params, condParam{typ: schema.TypeOther})
			continue
		}
		ph := p.Named
		switch {
		case ph.Type != "":
			t, ok := compiler.AnnotationType(ph.Type)
			if !ok {
				return nil, sqlt.NewPlaceholderError(ph.Raw, "has unknown type annotation $"+ph.Type)
			}
			c.params = append(c.params, condParam{name: ph.Name, typ: t})
		case p.Column != "":
			f, ok := e.Field(p.Column)
			if !ok {
				return nil, sqlt.NewValidateError("unknown column in condition fragment", p.Column)
			}
			c.params = append(c.params, condParam{name: ph.Name, typ: f.Type})
		default:
			return nil, sqlt.NewPlaceholderError(ph.Raw, "cannot be resolved to a column or type annotation")
		}
	}
	w := parser.NewWriter(d)
	w.Placeholder = func(*parser.NamedPlaceholder) string { return "?" }
	c.frag = w.Render(expr)
	return c, nil
}

// MustCompileCondition is CompileCondition that panics on error, for
// conditions defined at package init.
func MustCompileCondition(d dialect.Dialect, e *schema.Entity, fragment string) *Condition {
	c, err := CompileCondition(d, e, fragment)
	if err != nil {
		panic(err)
	}
	return c
}

// Arity returns the number of values the condition binds.
func (c *Condition) Arity() int { return len(c.params) }

// bind checks the value list against the parameter list and returns the
// arguments in marker order.
func (c *Condition) bind(vals []any) ([]any, error) {
	if len(vals) != len(c.params) {
		return nil, sqlt.NewValidateError(
			fmt.Sprintf("condition takes %d values, got %d", len(c.params), len(vals)), "")
	}
	args := make([]any, len(vals))
	for i, v := range vals {
		p := c.params[i]
		if !valueMatches(p.typ, v) {
			name := p.name
			if name == "" {
				name = fmt.Sprintf("#%d", i+1)
			}
			return nil, sqlt.NewValidateError(
				fmt.Sprintf("condition value %s must be %s", name, p.typ), fmt.Sprintf("%T", v))
		}
		args[i] = v
	}
	return args, nil
}

// valueMatches reports whether a Go value is acceptable for a semantic
// field type. NULL is always acceptable.
func valueMatches(t schema.Type, v any) bool {
	if v == nil {
		return true
	}
	switch t {
	case schema.TypeString:
		_, ok := v.(string)
		return ok
	case schema.TypeInt, schema.TypeInt64:
		switch v.(type) {
		case int, int32, int64:
			return true
		}
		return false
	case schema.TypeFloat:
		switch v.(type) {
		case float32, float64:
			return true
		}
		return false
	case schema.TypeBool:
		_, ok := v.(bool)
		return ok
	case schema.TypeTime:
		_, ok := v.(time.Time)
		return ok
	case schema.TypeUUID:
		switch v.(type) {
		case uuid.UUID, string:
			return true
		}
		return false
	case schema.TypeBytes:
		_, ok := v.([]byte)
		return ok
	}
	return true
}
