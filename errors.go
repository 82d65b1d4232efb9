package sqlt

import (
	"errors"
	"fmt"
	"strings"
)

// Standard sentinel errors for common compilation failures.
var (
	// ErrParse is returned when SQL text cannot be parsed.
	ErrParse = errors.New("sqlt: parse SQL error")

	// ErrPlaceholder is returned when a named placeholder is malformed.
	ErrPlaceholder = errors.New("sqlt: invalid placeholder")

	// ErrValidate is returned when a statement fails validation against its
	// declared mode or parameter set.
	ErrValidate = errors.New("sqlt: validation failed")

	// ErrSchema is returned when an entity schema definition is invalid.
	ErrSchema = errors.New("sqlt: invalid schema")

	// ErrRewrite is returned when a query rewrite cannot be applied.
	ErrRewrite = errors.New("sqlt: rewrite failed")

	// ErrCompile is returned when a query spec cannot be compiled.
	ErrCompile = errors.New("sqlt: compilation failed")
)

// ParseError represents a SQL syntax error at a known offset.
type ParseError struct {
	Dialect string // dialect tag the text was parsed with
	Pos     int    // byte offset of the offending token
	Message string
}

// Error returns the error string.
func (e *ParseError) Error() string {
	if e.Pos > 0 {
		return fmt.Sprintf("sqlt: parse SQL error at offset %d: %s", e.Pos, e.Message)
	}
	return fmt.Sprintf("sqlt: parse SQL error: %s", e.Message)
}

// Is reports whether the target matches the parse sentinel.
func (e *ParseError) Is(err error) bool {
	return err == ErrParse
}

// NewParseError returns a new ParseError for the given dialect and position.
func NewParseError(dialect string, pos int, msg string) *ParseError {
	return &ParseError{Dialect: dialect, Pos: pos, Message: msg}
}

// IsParseError returns true if the error is a ParseError.
func IsParseError(err error) bool {
	if err == nil {
		return false
	}
	var e *ParseError
	return errors.As(err, &e) || errors.Is(err, ErrParse)
}

// PlaceholderError represents a malformed or unresolvable named placeholder.
type PlaceholderError struct {
	Token   string // the placeholder as written, including the leading colon
	Message string
}

// Error returns the error string.
func (e *PlaceholderError) Error() string {
	return fmt.Sprintf("sqlt: placeholder %q %s", e.Token, e.Message)
}

// Is reports whether the target matches the placeholder sentinel.
func (e *PlaceholderError) Is(err error) bool {
	return err == ErrPlaceholder
}

// NewPlaceholderError returns a new PlaceholderError for the given token.
func NewPlaceholderError(token, msg string) *PlaceholderError {
	return &PlaceholderError{Token: token, Message: msg}
}

// IsPlaceholderError returns true if the error is a PlaceholderError.
func IsPlaceholderError(err error) bool {
	if err == nil {
		return false
	}
	var e *PlaceholderError
	return errors.As(err, &e) || errors.Is(err, ErrPlaceholder)
}

// ValidateError represents a statement that failed mode, parameter or
// identifier-whitelist validation.
type ValidateError struct {
	Kind    string // statement kind or offending identifier, if known
	Message string
}

// Error returns the error string.
func (e *ValidateError) Error() string {
	if e.Kind != "" {
		return fmt.Sprintf("sqlt: %s: %s", e.Message, e.Kind)
	}
	return fmt.Sprintf("sqlt: %s", e.Message)
}

// Is reports whether the target matches the validation sentinel.
func (e *ValidateError) Is(err error) bool {
	return err == ErrValidate
}

// NewValidateError returns a new ValidateError naming the offending kind
// or identifier.
func NewValidateError(msg, kind string) *ValidateError {
	return &ValidateError{Kind: kind, Message: msg}
}

// IsValidateError returns true if the error is a ValidateError.
func IsValidateError(err error) bool {
	if err == nil {
		return false
	}
	var e *ValidateError
	return errors.As(err, &e) || errors.Is(err, ErrValidate)
}

// SchemaError represents an entity schema definition error.
type SchemaError struct {
	Entity  string // entity table name
	Field   string // field name, if applicable
	Message string
}

// Error returns the error string.
func (e *SchemaError) Error() string {
	var b strings.Builder
	b.WriteString("sqlt: schema error")
	if e.Entity != "" {
		b.WriteString(" on entity ")
		b.WriteString(e.Entity)
	}
	if e.Field != "" {
		b.WriteString(" field ")
		b.WriteString(e.Field)
	}
	b.WriteString(": ")
	b.WriteString(e.Message)
	return b.String()
}

// Is reports whether the target matches the schema sentinel.
func (e *SchemaError) Is(err error) bool {
	return err == ErrSchema
}

// NewSchemaError returns a new SchemaError for the given entity and field.
func NewSchemaError(entity, field, msg string) *SchemaError {
	return &SchemaError{Entity: entity, Field: field, Message: msg}
}

// IsSchemaError returns true if the error is a SchemaError.
func IsSchemaError(err error) bool {
	if err == nil {
		return false
	}
	var e *SchemaError
	return errors.As(err, &e) || errors.Is(err, ErrSchema)
}

// RewriteError represents a structural condition that prevents a query
// rewrite, such as injecting pagination into an already-limited query.
type RewriteError struct {
	Op      string // rewrite operation ("count", "page", "renumber")
	Message string
}

// Error returns the error string.
func (e *RewriteError) Error() string {
	return fmt.Sprintf("sqlt: %s rewrite: %s", e.Op, e.Message)
}

// Is reports whether the target matches the rewrite sentinel.
func (e *RewriteError) Is(err error) bool {
	return err == ErrRewrite
}

// NewRewriteError returns a new RewriteError for the given operation.
func NewRewriteError(op, msg string) *RewriteError {
	return &RewriteError{Op: op, Message: msg}
}

// IsRewriteError returns true if the error is a RewriteError.
func IsRewriteError(err error) bool {
	if err == nil {
		return false
	}
	var e *RewriteError
	return errors.As(err, &e) || errors.Is(err, ErrRewrite)
}

// CompileError wraps a spec compilation failure with the entity and spec
// it occurred in.
type CompileError struct {
	Entity string // entity table name, empty for free-standing specs
	Spec   string // spec name
	Err    error
}

// Error returns the error string.
func (e *CompileError) Error() string {
	switch {
	case e.Entity != "" && e.Spec != "":
		return fmt.Sprintf("sqlt: compiling %s.%s: %v", e.Entity, e.Spec, e.Err)
	case e.Spec != "":
		return fmt.Sprintf("sqlt: compiling %s: %v", e.Spec, e.Err)
	default:
		return fmt.Sprintf("sqlt: compiling: %v", e.Err)
	}
}

// Unwrap returns the underlying error.
func (e *CompileError) Unwrap() error {
	return e.Err
}

// Is reports whether the target matches the compile sentinel.
func (e *CompileError) Is(err error) bool {
	return err == ErrCompile
}

// NewCompileError returns a new CompileError wrapping err.
func NewCompileError(entity, spec string, err error) *CompileError {
	return &CompileError{Entity: entity, Spec: spec, Err: err}
}

// IsCompileError returns true if the error is a CompileError.
func IsCompileError(err error) bool {
	if err == nil {
		return false
	}
	var e *CompileError
	return errors.As(err, &e) || errors.Is(err, ErrCompile)
}

// AggregateError represents multiple errors collected while compiling a
// project of independent specs.
type AggregateError struct {
	Errors []error
}

// Error returns the error string.
func (e *AggregateError) Error() string {
	if len(e.Errors) == 0 {
		return "sqlt: no errors"
	}
	if len(e.Errors) == 1 {
		return e.Errors[0].Error()
	}
	var sb strings.Builder
	sb.WriteString("sqlt: multiple errors:")
	for i, err := range e.Errors {
		fmt.Fprintf(&sb, "\n  [%d] %v", i+1, err)
	}
	return sb.String()
}

// NewAggregateError returns a new AggregateError if there are errors,
// otherwise returns nil.
func NewAggregateError(errs ...error) error {
	var filtered []error
	for _, err := range errs {
		if err != nil {
			filtered = append(filtered, err)
		}
	}
	if len(filtered) == 0 {
		return nil
	}
	if len(filtered) == 1 {
		return filtered[0]
	}
	return &AggregateError{Errors: filtered}
}
