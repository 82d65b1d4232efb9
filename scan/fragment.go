package scan

import (
	"github.com/syssam/sqlt"
	"github.com/syssam/sqlt/dialect"
	"github.com/syssam/sqlt/parser"
)

// FragmentParam is one parameter slot of an ad hoc fragment, in textual
// order. Exactly one of Named or Positional is set.
type FragmentParam struct {
	Named      *Placeholder
	Positional bool
	// Column is the entity column the named placeholder is compared
	// against, when the fragment pins it to exactly one.
	Column string
}

// FragmentInfo is the result of the restricted fragment walk.
type FragmentInfo struct {
	Expr    parser.Expr
	Columns map[string]bool // referenced column names
	Tables  map[string]bool // referenced table qualifiers
	Params  []FragmentParam
}

// Fragment runs the restricted walk over an ad hoc expression fragment.
// Fragments are condition syntax only: subqueries, EXISTS and function
// calls are rejected, identifiers may have at most two parts, and a named
// placeholder compared against two different columns is an error.
func Fragment(expr parser.Expr) (*FragmentInfo, error) {
	fw := &fragmentWalker{
		info: &FragmentInfo{
			Expr:    expr,
			Columns: make(map[string]bool),
			Tables:  make(map[string]bool),
		},
		columnOf: make(map[string]string),
		slotOf:   make(map[string][]int),
	}
	if err := fw.walk(expr); err != nil {
		return nil, err
	}
	return fw.info, nil
}

type fragmentWalker struct {
	info     *FragmentInfo
	columnOf map[string]string // placeholder name -> pinned column
	slotOf   map[string][]int  // placeholder name -> indexes into Params
}

func (fw *fragmentWalker) walk(e parser.Expr) error {
	if e == nil {
		return nil
	}
	switch e := e.(type) {
	case *parser.Ident:
		fw.info.Columns[e.Name] = true
		return nil
	case *parser.Qualified:
		return fw.qualified(e)
	case *parser.NamedPlaceholder:
		_, err := fw.placeholder(e)
		return err
	case *parser.PositionalPlaceholder:
		fw.info.Params = append(fw.info.Params, FragmentParam{Positional: true})
		return nil
	case *parser.StringLit, *parser.NumberLit, *parser.BoolLit, *parser.NullLit:
		return nil
	case *parser.Unary:
		return fw.walk(e.Operand)
	case *parser.Binary:
		return fw.binary(e)
	case *parser.IsExpr:
		return fw.walk(e.Operand)
	case *parser.IsDistinct:
		if err := fw.walk(e.Left); err != nil {
			return err
		}
		return fw.walk(e.Right)
	case *parser.InExpr:
		return fw.in(e)
	case *parser.Between:
		return fw.between(e)
	case *parser.PatternMatch:
		return fw.pattern(e)
	case *parser.CaseExpr:
		if err := fw.walk(e.Operand); err != nil {
			return err
		}
		for _, w := range e.Whens {
			if err := fw.walk(w.Cond); err != nil {
				return err
			}
			if err := fw.walk(w.Then); err != nil {
				return err
			}
		}
		return fw.walk(e.Else)
	case *parser.CastExpr:
		return fw.walk(e.Operand)
	case *parser.Collate:
		return fw.walk(e.Operand)
	case *parser.Tuple:
		for _, item := range e.Items {
			if err := fw.walk(item); err != nil {
				return err
			}
		}
		return nil
	case *parser.ArrayExpr:
		for _, item := range e.Items {
			if err := fw.walk(item); err != nil {
				return err
			}
		}
		return nil
	case *parser.Interval:
		return fw.walk(e.Value)
	case *parser.Paren:
		return fw.walk(e.Inner)
	case *parser.Subquery, *parser.Exists:
		return sqlt.NewValidateError("subqueries are not allowed in condition fragments",
			parser.Render(dialect.Generic, e))
	case *parser.FuncCall:
		return sqlt.NewValidateError("function calls are not allowed in condition fragments", e.Name)
	case *parser.Star:
		return sqlt.NewValidateError("* is not allowed in condition fragments", "*")
	}
	return sqlt.NewValidateError("unsupported fragment construct",
		parser.Render(dialect.Generic, e))
}

func (fw *fragmentWalker) qualified(e *parser.Qualified) error {
	if len(e.Parts) > 2 {
		return sqlt.NewValidateError("identifier has too many parts",
			parser.Render(dialect.Generic, e))
	}
	fw.info.Tables[e.Parts[0].Name] = true
	fw.info.Columns[e.Parts[1].Name] = true
	return nil
}

// placeholder records one occurrence and returns its slot index.
func (fw *fragmentWalker) placeholder(p *parser.NamedPlaceholder) (int, error) {
	ph, err := check(p)
	if err != nil {
		return 0, err
	}
	idx := len(fw.info.Params)
	fw.info.Params = append(fw.info.Params, FragmentParam{Named: &ph})
	fw.slotOf[ph.Name] = append(fw.slotOf[ph.Name], idx)
	return idx, nil
}

// pin binds a placeholder name to a column. Binding the same name to a
// second, different column is an error; every recorded slot of the name is
// updated so duplicate occurrences stay consistent.
func (fw *fragmentWalker) pin(name, column string, raw string) error {
	if prev, ok := fw.columnOf[name]; ok && prev != column {
		return sqlt.NewPlaceholderError(raw, "is mapped to multiple columns")
	}
	fw.columnOf[name] = column
	for _, i := range fw.slotOf[name] {
		fw.info.Params[i].Column = column
	}
	return nil
}

// columnName returns the column a comparison side refers to, unwrapping
// parentheses, or "" when the side is not a plain column reference.
func columnName(e parser.Expr) string {
	switch e := e.(type) {
	case *parser.Ident:
		return e.Name
	case *parser.Qualified:
		if len(e.Parts) == 2 {
			return e.Parts[1].Name
		}
	case *parser.Paren:
		return columnName(e.Inner)
	}
	return ""
}

func placeholderOf(e parser.Expr) *parser.NamedPlaceholder {
	switch e := e.(type) {
	case *parser.NamedPlaceholder:
		return e
	case *parser.Paren:
		return placeholderOf(e.Inner)
	}
	return nil
}

func isComparisonOp(op string) bool {
	switch op {
	case "=", "<>", "!=", "<", ">", "<=", ">=":
		return true
	}
	return false
}

func (fw *fragmentWalker) binary(e *parser.Binary) error {
	if isComparisonOp(e.Op) {
		if col := columnName(e.Left); col != "" {
			if ph := placeholderOf(e.Right); ph != nil {
				return fw.comparePair(e.Left, ph, col)
			}
		}
		if col := columnName(e.Right); col != "" {
			if ph := placeholderOf(e.Left); ph != nil {
				if _, err := fw.placeholder(ph); err != nil {
					return err
				}
				return fw.afterPair(ph, col, e.Right)
			}
		}
	}
	if err := fw.walk(e.Left); err != nil {
		return err
	}
	return fw.walk(e.Right)
}

// comparePair handles `column <op> :name`: walk the column side, record the
// placeholder slot, then pin the mapping.
func (fw *fragmentWalker) comparePair(colSide parser.Expr, ph *parser.NamedPlaceholder, col string) error {
	if err := fw.walk(colSide); err != nil {
		return err
	}
	if _, err := fw.placeholder(ph); err != nil {
		return err
	}
	return fw.pin(ph.Name(), col, ph.Raw())
}

// afterPair handles `:name <op> column`: the placeholder side has already
// been walked, so only the column side and the pin remain.
func (fw *fragmentWalker) afterPair(ph *parser.NamedPlaceholder, col string, colSide parser.Expr) error {
	if err := fw.walk(colSide); err != nil {
		return err
	}
	return fw.pin(ph.Name(), col, ph.Raw())
}

func (fw *fragmentWalker) in(e *parser.InExpr) error {
	if e.Subquery != nil {
		return sqlt.NewValidateError("subqueries are not allowed in condition fragments", "IN")
	}
	col := columnName(e.Operand)
	if err := fw.walk(e.Operand); err != nil {
		return err
	}
	for _, item := range e.List {
		if ph := placeholderOf(item); ph != nil && col != "" {
			if _, err := fw.placeholder(ph); err != nil {
				return err
			}
			if err := fw.pin(ph.Name(), col, ph.Raw()); err != nil {
				return err
			}
			continue
		}
		if err := fw.walk(item); err != nil {
			return err
		}
	}
	return nil
}

func (fw *fragmentWalker) between(e *parser.Between) error {
	col := columnName(e.Operand)
	if err := fw.walk(e.Operand); err != nil {
		return err
	}
	for _, side := range []parser.Expr{e.Low, e.High} {
		if ph := placeholderOf(side); ph != nil && col != "" {
			if _, err := fw.placeholder(ph); err != nil {
				return err
			}
			if err := fw.pin(ph.Name(), col, ph.Raw()); err != nil {
				return err
			}
			continue
		}
		if err := fw.walk(side); err != nil {
			return err
		}
	}
	return nil
}

func (fw *fragmentWalker) pattern(e *parser.PatternMatch) error {
	col := columnName(e.Operand)
	if err := fw.walk(e.Operand); err != nil {
		return err
	}
	if ph := placeholderOf(e.Pattern); ph != nil && col != "" {
		if _, err := fw.placeholder(ph); err != nil {
			return err
		}
		if err := fw.pin(ph.Name(), col, ph.Raw()); err != nil {
			return err
		}
	} else if err := fw.walk(e.Pattern); err != nil {
		return err
	}
	return fw.walk(e.Escape)
}
