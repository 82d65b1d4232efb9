package builder

import (
	"time"

	"github.com/google/uuid"

	"github.com/syssam/sqlt"
	"github.com/syssam/sqlt/schema"
)

// Cond is a precompiled condition: a fragment template with ? markers and
// the values it binds. Applying a Cond never re-parses anything.
type Cond struct {
	col  string
	tmpl string // %s is the dialect-quoted column
	args []any
}

// Order is one ORDER BY element.
type Order struct {
	col  string
	desc bool
}

// Assign is one SET assignment of a dynamic update.
type Assign struct {
	col string
	arg any
}

type column struct {
	name string
}

// Asc orders ascending by the field.
func (c column) Asc() Order { return Order{col: c.name} }

// Desc orders descending by the field.
func (c column) Desc() Order { return Order{col: c.name, desc: true} }

// Fields mints typed field handles for one entity. Handles are usually
// created once per entity at package init, so category or name mismatches
// panic instead of threading errors through every call site.
type Fields struct {
	e *schema.Entity
}

// For returns a handle factory for the entity.
func For(e *schema.Entity) Fields { return Fields{e: e} }

func (f Fields) field(name string, want func(schema.Type) bool, category string) schema.Field {
	fd, ok := f.e.Field(name)
	if !ok {
		panic(sqlt.NewSchemaError(f.e.Table(), name, "unknown field"))
	}
	if !want(fd.Type) {
		panic(sqlt.NewSchemaError(f.e.Table(), name, "field is not a "+category+" field"))
	}
	return fd
}

// String returns a handle for a string field.
func (f Fields) String(name string) StringField {
	f.field(name, func(t schema.Type) bool { return t == schema.TypeString }, "string")
	return StringField{column{name}}
}

// Int returns a handle for an int field.
func (f Fields) Int(name string) NumericField[int] {
	f.field(name, func(t schema.Type) bool { return t == schema.TypeInt }, "int")
	return NumericField[int]{column{name}}
}

// Int64 returns a handle for an int64 field.
func (f Fields) Int64(name string) NumericField[int64] {
	f.field(name, func(t schema.Type) bool { return t == schema.TypeInt64 }, "int64")
	return NumericField[int64]{column{name}}
}

// Float returns a handle for a float field.
func (f Fields) Float(name string) NumericField[float64] {
	f.field(name, func(t schema.Type) bool { return t == schema.TypeFloat }, "float")
	return NumericField[float64]{column{name}}
}

// Time returns a handle for a time field.
func (f Fields) Time(name string) TimeField {
	f.field(name, func(t schema.Type) bool { return t == schema.TypeTime }, "time")
	return TimeField{column{name}}
}

// Bool returns a handle for a bool field.
func (f Fields) Bool(name string) Field[bool] {
	f.field(name, func(t schema.Type) bool { return t == schema.TypeBool }, "bool")
	return Field[bool]{column{name}}
}

// UUID returns a handle for a uuid field.
func (f Fields) UUID(name string) Field[uuid.UUID] {
	f.field(name, func(t schema.Type) bool { return t == schema.TypeUUID }, "uuid")
	return Field[uuid.UUID]{column{name}}
}

// Bytes returns a handle for a bytes field.
func (f Fields) Bytes(name string) Field[[]byte] {
	f.field(name, func(t schema.Type) bool { return t == schema.TypeBytes }, "bytes")
	return Field[[]byte]{column{name}}
}

// Field is the operator set shared by every field category.
type Field[T any] struct {
	column
}

// EQ appends an equality condition.
func (f Field[T]) EQ(v T) Cond { return Cond{col: f.name, tmpl: "%s = ?", args: []any{v}} }

// NEQ appends an inequality condition.
func (f Field[T]) NEQ(v T) Cond { return Cond{col: f.name, tmpl: "%s <> ?", args: []any{v}} }

// Set assigns the value in a dynamic update.
func (f Field[T]) Set(v T) Assign { return Assign{col: f.name, arg: v} }

// SetNull assigns NULL in a dynamic update.
func (f Field[T]) SetNull() Assign { return Assign{col: f.name} }

// IsNull matches NULL.
func (f Field[T]) IsNull() Cond { return Cond{col: f.name, tmpl: "%s IS NULL"} }

// NotNull matches non-NULL.
func (f Field[T]) NotNull() Cond { return Cond{col: f.name, tmpl: "%s IS NOT NULL"} }

// In matches any of the given values.
func (f Field[T]) In(vs ...T) Cond {
	args := make([]any, len(vs))
	for i, v := range vs {
		args[i] = v
	}
	return Cond{col: f.name, tmpl: "%s IN (" + markers(len(vs)) + ")", args: args}
}

// StringField adds pattern operators to the shared set.
type StringField struct {
	column
}

// EQ appends an equality condition.
func (f StringField) EQ(v string) Cond { return Cond{col: f.name, tmpl: "%s = ?", args: []any{v}} }

// NEQ appends an inequality condition.
func (f StringField) NEQ(v string) Cond { return Cond{col: f.name, tmpl: "%s <> ?", args: []any{v}} }

// Set assigns the value in a dynamic update.
func (f StringField) Set(v string) Assign { return Assign{col: f.name, arg: v} }

// SetNull assigns NULL in a dynamic update.
func (f StringField) SetNull() Assign { return Assign{col: f.name} }

// Like appends a LIKE condition with the pattern as given.
func (f StringField) Like(pattern string) Cond {
	return Cond{col: f.name, tmpl: "%s LIKE ?", args: []any{pattern}}
}

// NotLike appends a NOT LIKE condition.
func (f StringField) NotLike(pattern string) Cond {
	return Cond{col: f.name, tmpl: "%s NOT LIKE ?", args: []any{pattern}}
}

// StartsWith matches values beginning with prefix.
func (f StringField) StartsWith(prefix string) Cond {
	return Cond{col: f.name, tmpl: "%s LIKE ?", args: []any{escapeLike(prefix) + "%"}}
}

// EndsWith matches values ending with suffix.
func (f StringField) EndsWith(suffix string) Cond {
	return Cond{col: f.name, tmpl: "%s LIKE ?", args: []any{"%" + escapeLike(suffix)}}
}

// Contains matches values containing the substring.
func (f StringField) Contains(sub string) Cond {
	return Cond{col: f.name, tmpl: "%s LIKE ?", args: []any{"%" + escapeLike(sub) + "%"}}
}

// IsNull matches NULL.
func (f StringField) IsNull() Cond { return Cond{col: f.name, tmpl: "%s IS NULL"} }

// NotNull matches non-NULL.
func (f StringField) NotNull() Cond { return Cond{col: f.name, tmpl: "%s IS NOT NULL"} }

// In matches any of the given values.
func (f StringField) In(vs ...string) Cond {
	args := make([]any, len(vs))
	for i, v := range vs {
		args[i] = v
	}
	return Cond{col: f.name, tmpl: "%s IN (" + markers(len(vs)) + ")", args: args}
}

// Number is the value set of numeric fields.
type Number interface {
	~int | ~int32 | ~int64 | ~float32 | ~float64
}

// NumericField adds range operators to the shared set.
type NumericField[T Number] struct {
	column
}

// EQ appends an equality condition.
func (f NumericField[T]) EQ(v T) Cond { return Cond{col: f.name, tmpl: "%s = ?", args: []any{v}} }

// NEQ appends an inequality condition.
func (f NumericField[T]) NEQ(v T) Cond { return Cond{col: f.name, tmpl: "%s <> ?", args: []any{v}} }

// Set assigns the value in a dynamic update.
func (f NumericField[T]) Set(v T) Assign { return Assign{col: f.name, arg: v} }

// SetNull assigns NULL in a dynamic update.
func (f NumericField[T]) SetNull() Assign { return Assign{col: f.name} }

// GT appends a strictly-greater condition.
func (f NumericField[T]) GT(v T) Cond { return Cond{col: f.name, tmpl: "%s > ?", args: []any{v}} }

// GTE appends a greater-or-equal condition.
func (f NumericField[T]) GTE(v T) Cond { return Cond{col: f.name, tmpl: "%s >= ?", args: []any{v}} }

// LT appends a strictly-less condition.
func (f NumericField[T]) LT(v T) Cond { return Cond{col: f.name, tmpl: "%s < ?", args: []any{v}} }

// LTE appends a less-or-equal condition.
func (f NumericField[T]) LTE(v T) Cond { return Cond{col: f.name, tmpl: "%s <= ?", args: []any{v}} }

// Between matches the closed range [low, high].
func (f NumericField[T]) Between(low, high T) Cond {
	return Cond{col: f.name, tmpl: "%s BETWEEN ? AND ?", args: []any{low, high}}
}

// IsNull matches NULL.
func (f NumericField[T]) IsNull() Cond { return Cond{col: f.name, tmpl: "%s IS NULL"} }

// NotNull matches non-NULL.
func (f NumericField[T]) NotNull() Cond { return Cond{col: f.name, tmpl: "%s IS NOT NULL"} }

// In matches any of the given values.
func (f NumericField[T]) In(vs ...T) Cond {
	args := make([]any, len(vs))
	for i, v := range vs {
		args[i] = v
	}
	return Cond{col: f.name, tmpl: "%s IN (" + markers(len(vs)) + ")", args: args}
}

// TimeField carries the range operators over time values.
type TimeField struct {
	column
}

// EQ appends an equality condition.
func (f TimeField) EQ(v time.Time) Cond { return Cond{col: f.name, tmpl: "%s = ?", args: []any{v}} }

// NEQ appends an inequality condition.
func (f TimeField) NEQ(v time.Time) Cond {
	return Cond{col: f.name, tmpl: "%s <> ?", args: []any{v}}
}

// Set assigns the value in a dynamic update.
func (f TimeField) Set(v time.Time) Assign { return Assign{col: f.name, arg: v} }

// SetNull assigns NULL in a dynamic update.
func (f TimeField) SetNull() Assign { return Assign{col: f.name} }

// GT matches times strictly after v.
func (f TimeField) GT(v time.Time) Cond { return Cond{col: f.name, tmpl: "%s > ?", args: []any{v}} }

// GTE matches times at or after v.
func (f TimeField) GTE(v time.Time) Cond { return Cond{col: f.name, tmpl: "%s >= ?", args: []any{v}} }

// LT matches times strictly before v.
func (f TimeField) LT(v time.Time) Cond { return Cond{col: f.name, tmpl: "%s < ?", args: []any{v}} }

// LTE matches times at or before v.
func (f TimeField) LTE(v time.Time) Cond { return Cond{col: f.name, tmpl: "%s <= ?", args: []any{v}} }

// Between matches the closed range [low, high].
func (f TimeField) Between(low, high time.Time) Cond {
	return Cond{col: f.name, tmpl: "%s BETWEEN ? AND ?", args: []any{low, high}}
}

func markers(n int) string {
	if n == 0 {
		return ""
	}
	out := make([]byte, 0, 3*n-2)
	for i := 0; i < n; i++ {
		if i > 0 {
			out = append(out, ',', ' ')
		}
		out = append(out, '?')
	}
	return string(out)
}

// escapeLike escapes LIKE wildcards in a literal prefix, suffix or
// substring so user input cannot widen the match.
func escapeLike(s string) string {
	out := make([]byte, 0, len(s))
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '%', '_', '\\':
			out = append(out, '\\')
		}
		out = append(out, s[i])
	}
	return string(out)
}
