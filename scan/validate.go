package scan

import (
	"fmt"

	"github.com/syssam/sqlt"
	"github.com/syssam/sqlt/parser"
)

// Mode constrains the statement kind a query is allowed to be.
type Mode string

// Query modes. ModeAny skips the kind check.
const (
	ModeAny    Mode = ""
	ModeSelect Mode = "SELECT"
	ModeInsert Mode = "INSERT"
	ModeUpdate Mode = "UPDATE"
	ModeDelete Mode = "DELETE"
)

// ValidateStatement checks that stmts holds exactly one statement, that its
// kind matches the mode, and that every extracted placeholder name resolves
// against the declared parameter set. It returns the statement and its
// ordered placeholder occurrences.
func ValidateStatement(stmts []parser.Statement, mode Mode, params map[string]bool) (parser.Statement, []Placeholder, error) {
	if len(stmts) != 1 {
		return nil, nil, sqlt.NewValidateError(
			fmt.Sprintf("expected exactly one statement, found %d", len(stmts)), "")
	}
	stmt := stmts[0]
	kind := parser.Kind(stmt)
	if mode != ModeAny && kind != string(mode) {
		return nil, nil, sqlt.NewValidateError(
			fmt.Sprintf("statement kind does not match %s mode", mode), kind)
	}
	placeholders, err := Placeholders(stmt)
	if err != nil {
		return nil, nil, err
	}
	for _, ph := range placeholders {
		if !params[ph.Name] {
			return nil, nil, sqlt.NewPlaceholderError(ph.Raw,
				"does not resolve to any declared parameter")
		}
	}
	return stmt, placeholders, nil
}
