// Package compiler turns declarative query specs into validated,
// dialect-correct, positionally parameterized SQL with typed signature
// descriptors. Compilation is a pure function: no state survives a call and
// recompiling the same spec yields byte-identical output.
package compiler

import (
	"github.com/syssam/sqlt/dialect"
	"github.com/syssam/sqlt/schema"
)

// Mode is the statement family a spec compiles to.
type Mode string

// Spec modes.
const (
	ModeSelect Mode = "select"
	ModeInsert Mode = "insert"
	ModeUpdate Mode = "update"
	ModeDelete Mode = "delete"
	ModeUpsert Mode = "upsert"
)

// Valid reports whether m is a known mode.
func (m Mode) Valid() bool {
	switch m {
	case ModeSelect, ModeInsert, ModeUpdate, ModeDelete, ModeUpsert:
		return true
	}
	return false
}

// Shape is the result shape of a compiled query, which fixes the return
// type of the generated access function.
type Shape string

// Result shapes.
const (
	// ShapeList returns all rows.
	ShapeList Shape = "list"
	// ShapeSingle returns exactly one row; zero or many is an error.
	ShapeSingle Shape = "single"
	// ShapeOptional returns zero or one row; zero rows is not an error.
	ShapeOptional Shape = "optional"
	// ShapeStream yields rows one at a time.
	ShapeStream Shape = "stream"
	// ShapePage returns one page of rows plus the unpaged total.
	ShapePage Shape = "page"
	// ShapeCount returns a row count.
	ShapeCount Shape = "count"
	// ShapeScalar returns a single scalar value.
	ShapeScalar Shape = "scalar"
	// ShapeRowsAffected returns the mutation's affected-row count.
	ShapeRowsAffected Shape = "rows_affected"
	// ShapeVoid discards the result.
	ShapeVoid Shape = "void"
)

// Valid reports whether s is a known shape.
func (s Shape) Valid() bool {
	switch s {
	case ShapeList, ShapeSingle, ShapeOptional, ShapeStream, ShapePage,
		ShapeCount, ShapeScalar, ShapeRowsAffected, ShapeVoid:
		return true
	}
	return false
}

// OrderField is one ordering column of a spec. Ascending unless Desc.
type OrderField struct {
	Name string `yaml:"name"`
	Desc bool   `yaml:"desc"`
}

// Param is a typed ad hoc parameter: declared up front for raw SQL specs,
// or derived from a $Type annotation in a WHERE fragment.
type Param struct {
	Name string      `yaml:"name"`
	Type schema.Type `yaml:"type"`
}

// Spec is one declarative query specification.
type Spec struct {
	Name    string          `yaml:"name"`
	Mode    Mode            `yaml:"mode"`
	Shape   Shape           `yaml:"shape"`
	Dialect dialect.Dialect `yaml:"dialect"`

	// SQL carries a complete raw statement; when set, By/On/Order/Where
	// must be empty and Params declares the statement's parameters.
	// SQLFile names a file whose contents become SQL at load time.
	SQL     string `yaml:"sql"`
	SQLFile string `yaml:"sql_file"`

	// By lists equality-filter fields. For upserts it is the conflict key.
	By []string `yaml:"by"`
	// On lists the fields an update sets, or an upsert's conflict update
	// sets. Empty means every eligible field.
	On []string `yaml:"on"`
	// Order lists ordering fields for select shapes.
	Order []OrderField `yaml:"order"`
	// Where is an ad hoc condition fragment with named placeholders,
	// ANDed onto the generated WHERE clause.
	Where string `yaml:"where"`
	// Returning adds a RETURNING clause to a mutation.
	Returning bool `yaml:"returning"`
	// Lock names the optimistic-lock field an update or upsert maintains;
	// defaults to the entity's lock counter when one exists.
	Lock string `yaml:"lock"`
	// Params declares the typed parameters of a raw SQL spec.
	Params []Param `yaml:"params"`
}

// Bind is one positional bind slot of a compiled query, in bind order.
// Field names the entity field the slot reads; ad hoc parameters have
// Field empty. Param is the signature parameter supplying the value.
type Bind struct {
	Param string
	Field string
	Type  schema.Type
}

// Signature describes the generated access function: its ordered, typed
// parameters (deduplicated; a value bound twice is still one parameter)
// and result shape.
type Signature struct {
	Name   string
	Entity string
	Params []Param
	Shape  Shape
}

// Compiled is the outcome of compiling one spec. SQL is the data query;
// page and count shapes also carry the companion count query with its own
// bind list.
type Compiled struct {
	Name    string
	Entity  string
	Dialect dialect.Dialect
	Mode    Mode
	Shape   Shape

	SQL   string
	Binds []Bind

	CountSQL   string
	CountBinds []Bind

	Signature Signature
}

// paramTypes maps $Type placeholder annotations to semantic field types.
// The annotation vocabulary follows the scalar names used in annotated
// placeholders such as :status$i32 or :q$str.
var paramTypes = map[string]schema.Type{
	"i32":       schema.TypeInt,
	"int":       schema.TypeInt,
	"i64":       schema.TypeInt64,
	"f32":       schema.TypeFloat,
	"f64":       schema.TypeFloat,
	"float":     schema.TypeFloat,
	"str":       schema.TypeString,
	"string":    schema.TypeString,
	"bool":      schema.TypeBool,
	"time":      schema.TypeTime,
	"timestamp": schema.TypeTime,
	"uuid":      schema.TypeUUID,
	"bytes":     schema.TypeBytes,
}

// AnnotationType resolves a $Type annotation to a field type.
func AnnotationType(ann string) (schema.Type, bool) {
	t, ok := paramTypes[ann]
	return t, ok
}
