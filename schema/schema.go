// Package schema describes entities: the tables and typed fields that
// declarative query specs compile against. An Entity is validated once at
// construction and immutable afterwards.
package schema

import "github.com/syssam/sqlt"

// Type is the semantic scalar type of a field. It drives the Go type used
// in generated signatures and the operator set the builder exposes.
type Type string

// Field types.
const (
	TypeString Type = "string"
	TypeInt    Type = "int"
	TypeInt64  Type = "int64"
	TypeFloat  Type = "float"
	TypeBool   Type = "bool"
	TypeTime   Type = "time"
	TypeUUID   Type = "uuid"
	TypeBytes  Type = "bytes"
	TypeOther  Type = "other"
)

// Valid reports whether t is a known field type.
func (t Type) Valid() bool {
	switch t {
	case TypeString, TypeInt, TypeInt64, TypeFloat, TypeBool,
		TypeTime, TypeUUID, TypeBytes, TypeOther:
		return true
	}
	return false
}

// Integer reports whether t is an integer type, the only types allowed to
// carry the optimistic-lock counter.
func (t Type) Integer() bool {
	return t == TypeInt || t == TypeInt64
}

// Numeric reports whether t orders numerically.
func (t Type) Numeric() bool {
	return t.Integer() || t == TypeFloat
}

// Field is one column of an entity.
type Field struct {
	Name     string
	Type     Type
	Nullable bool
	// Generated marks database-generated values (serial keys, defaults
	// computed by the database); they are excluded from INSERT column
	// lists and from UPDATE SET lists.
	Generated bool
	// LockCounter marks the optimistic-lock version column. At most one
	// per entity, integer-typed.
	LockCounter bool
}

// Entity is a named table with its fields. Construct with New; a returned
// Entity is never mutated.
type Entity struct {
	table  string
	fields []Field
	byName map[string]int
}

// New validates and builds an entity. Field names must be non-empty and
// unique, field types known, and at most one field may be the lock counter,
// which must be integer-typed and not database-generated.
func New(table string, fields ...Field) (*Entity, error) {
	if table == "" {
		return nil, sqlt.NewSchemaError("", "", "table name is empty")
	}
	if len(fields) == 0 {
		return nil, sqlt.NewSchemaError(table, "", "entity has no fields")
	}
	e := &Entity{
		table:  table,
		fields: make([]Field, len(fields)),
		byName: make(map[string]int, len(fields)),
	}
	copy(e.fields, fields)
	lock := ""
	for i, f := range e.fields {
		if f.Name == "" {
			return nil, sqlt.NewSchemaError(table, "", "field name is empty")
		}
		if !f.Type.Valid() {
			return nil, sqlt.NewSchemaError(table, f.Name, "unknown field type "+string(f.Type))
		}
		if _, dup := e.byName[f.Name]; dup {
			return nil, sqlt.NewSchemaError(table, f.Name, "duplicate field name")
		}
		if f.LockCounter {
			if lock != "" {
				return nil, sqlt.NewSchemaError(table, f.Name,
					"entity already has lock counter "+lock)
			}
			if !f.Type.Integer() {
				return nil, sqlt.NewSchemaError(table, f.Name,
					"lock counter must be an integer field")
			}
			if f.Generated {
				return nil, sqlt.NewSchemaError(table, f.Name,
					"lock counter cannot be database-generated")
			}
			lock = f.Name
		}
		e.byName[f.Name] = i
	}
	return e, nil
}

// MustNew is New that panics on error, for static entity definitions.
func MustNew(table string, fields ...Field) *Entity {
	e, err := New(table, fields...)
	if err != nil {
		panic(err)
	}
	return e
}

// Table returns the table name.
func (e *Entity) Table() string { return e.table }

// Fields returns the fields in declaration order. The slice is a copy.
func (e *Entity) Fields() []Field {
	out := make([]Field, len(e.fields))
	copy(out, e.fields)
	return out
}

// Field returns the named field.
func (e *Entity) Field(name string) (Field, bool) {
	i, ok := e.byName[name]
	if !ok {
		return Field{}, false
	}
	return e.fields[i], true
}

// Has reports whether the entity has the named field.
func (e *Entity) Has(name string) bool {
	_, ok := e.byName[name]
	return ok
}

// Lock returns the lock-counter field, if the entity has one.
func (e *Entity) Lock() (Field, bool) {
	for _, f := range e.fields {
		if f.LockCounter {
			return f, true
		}
	}
	return Field{}, false
}

// Names returns every field name in declaration order.
func (e *Entity) Names() []string {
	out := make([]string, len(e.fields))
	for i, f := range e.fields {
		out[i] = f.Name
	}
	return out
}
