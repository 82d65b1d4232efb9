// Package scan extracts and validates placeholders and identifiers from
// parsed statements. It provides the full-statement placeholder walk, the
// restricted walk for ad hoc WHERE fragments, and statement validation
// against a query mode and a declared parameter set.
package scan

import (
	"fmt"

	"github.com/syssam/sqlt"
	"github.com/syssam/sqlt/parser"
)

// Placeholder is one occurrence of a named placeholder. Occurrences are
// never deduplicated: the same name appearing twice yields two entries and,
// after renumbering, two positional slots.
type Placeholder struct {
	Name string // bare name, annotation stripped
	Type string // $Type annotation, "" when absent
	Raw  string // as written, leading colon included
	Pos  int    // byte offset in the source text
}

// Placeholders walks a statement in render order and returns every named
// placeholder occurrence, left to right. Any syntactically invalid
// placeholder fails the whole extraction.
func Placeholders(stmt parser.Statement) ([]Placeholder, error) {
	var out []Placeholder
	err := walkStatement(stmt, func(e parser.Expr) error {
		p, ok := e.(*parser.NamedPlaceholder)
		if !ok {
			return nil
		}
		ph, err := check(p)
		if err != nil {
			return err
		}
		out = append(out, ph)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// check validates placeholder syntax: a non-empty name whose first
// character is not a digit, with an optional non-empty $Type annotation.
// The lexer already restricts the character set to ASCII identifier runs.
func check(p *parser.NamedPlaceholder) (Placeholder, error) {
	name := p.Name()
	if name == "" {
		return Placeholder{}, sqlt.NewPlaceholderError(p.Raw(), "is missing a name")
	}
	if name[0] >= '0' && name[0] <= '9' {
		return Placeholder{}, sqlt.NewPlaceholderError(p.Raw(), "must not start with a digit")
	}
	ann := p.TypeAnnotation()
	if ann == "" && len(p.Text) > len(name) {
		return Placeholder{}, sqlt.NewPlaceholderError(p.Raw(), "has an empty type annotation")
	}
	return Placeholder{Name: name, Type: ann, Raw: p.Raw(), Pos: p.Pos}, nil
}

// visitFunc is called for every expression node, outermost first.
type visitFunc func(parser.Expr) error

// walkStatement visits every expression of a statement in the order the
// statement renders, so extraction order always matches textual order.
func walkStatement(stmt parser.Statement, fn visitFunc) error {
	switch s := stmt.(type) {
	case *parser.SelectStmt:
		return walkSelect(s, fn)
	case *parser.InsertStmt:
		return walkInsert(s, fn)
	case *parser.UpdateStmt:
		return walkUpdate(s, fn)
	case *parser.DeleteStmt:
		return walkDelete(s, fn)
	}
	return sqlt.NewValidateError("unsupported statement", fmt.Sprintf("%T", stmt))
}

func walkWith(w *parser.WithClause, fn visitFunc) error {
	if w == nil {
		return nil
	}
	for i := range w.CTEs {
		if err := walkSelect(w.CTEs[i].Select, fn); err != nil {
			return err
		}
	}
	return nil
}

func walkSelect(s *parser.SelectStmt, fn visitFunc) error {
	if err := walkWith(s.With, fn); err != nil {
		return err
	}
	if err := walkCore(s.Core, fn); err != nil {
		return err
	}
	for _, c := range s.Compounds {
		if err := walkCore(c.Core, fn); err != nil {
			return err
		}
	}
	if err := walkOrder(s.OrderBy, fn); err != nil {
		return err
	}
	if err := walkExpr(s.Limit, fn); err != nil {
		return err
	}
	return walkExpr(s.Offset, fn)
}

func walkCore(c *parser.SelectCore, fn visitFunc) error {
	for _, e := range c.DistinctOn {
		if err := walkExpr(e, fn); err != nil {
			return err
		}
	}
	for i := range c.Items {
		if err := walkExpr(c.Items[i].Expr, fn); err != nil {
			return err
		}
	}
	for _, t := range c.From {
		if err := walkTable(t, fn); err != nil {
			return err
		}
	}
	if err := walkExpr(c.Where, fn); err != nil {
		return err
	}
	for _, e := range c.GroupBy {
		if err := walkExpr(e, fn); err != nil {
			return err
		}
	}
	if err := walkExpr(c.Having, fn); err != nil {
		return err
	}
	for i := range c.Windows {
		if err := walkWindowSpec(&c.Windows[i].Spec, fn); err != nil {
			return err
		}
	}
	return nil
}

func walkTable(t parser.TableExpr, fn visitFunc) error {
	switch t := t.(type) {
	case *parser.TableName:
		return nil
	case *parser.DerivedTable:
		return walkSelect(t.Select, fn)
	case *parser.FuncTable:
		return walkExpr(t.Call, fn)
	case *parser.ParenTable:
		return walkTable(t.Inner, fn)
	case *parser.JoinExpr:
		if err := walkTable(t.Left, fn); err != nil {
			return err
		}
		if err := walkTable(t.Right, fn); err != nil {
			return err
		}
		return walkExpr(t.On, fn)
	}
	return nil
}

func walkInsert(s *parser.InsertStmt, fn visitFunc) error {
	if err := walkWith(s.With, fn); err != nil {
		return err
	}
	for _, row := range s.Values {
		for _, e := range row {
			if err := walkExpr(e, fn); err != nil {
				return err
			}
		}
	}
	if s.Select != nil {
		if err := walkSelect(s.Select, fn); err != nil {
			return err
		}
	}
	if s.OnConflict != nil {
		if err := walkAssignments(s.OnConflict.Updates, fn); err != nil {
			return err
		}
		if err := walkExpr(s.OnConflict.Where, fn); err != nil {
			return err
		}
	}
	if err := walkAssignments(s.OnDuplicate, fn); err != nil {
		return err
	}
	return walkItems(s.Returning, fn)
}

func walkUpdate(s *parser.UpdateStmt, fn visitFunc) error {
	if err := walkWith(s.With, fn); err != nil {
		return err
	}
	if err := walkAssignments(s.Set, fn); err != nil {
		return err
	}
	for _, t := range s.From {
		if err := walkTable(t, fn); err != nil {
			return err
		}
	}
	if err := walkExpr(s.Where, fn); err != nil {
		return err
	}
	return walkItems(s.Returning, fn)
}

func walkDelete(s *parser.DeleteStmt, fn visitFunc) error {
	if err := walkWith(s.With, fn); err != nil {
		return err
	}
	for _, t := range s.Using {
		if err := walkTable(t, fn); err != nil {
			return err
		}
	}
	if err := walkExpr(s.Where, fn); err != nil {
		return err
	}
	if err := walkOrder(s.OrderBy, fn); err != nil {
		return err
	}
	if err := walkExpr(s.Limit, fn); err != nil {
		return err
	}
	return walkItems(s.Returning, fn)
}

func walkAssignments(list []parser.Assignment, fn visitFunc) error {
	for i := range list {
		if err := walkExpr(list[i].Column, fn); err != nil {
			return err
		}
		if err := walkExpr(list[i].Value, fn); err != nil {
			return err
		}
	}
	return nil
}

func walkItems(items []parser.SelectItem, fn visitFunc) error {
	for i := range items {
		if err := walkExpr(items[i].Expr, fn); err != nil {
			return err
		}
	}
	return nil
}

func walkOrder(items []parser.OrderItem, fn visitFunc) error {
	for i := range items {
		if err := walkExpr(items[i].Expr, fn); err != nil {
			return err
		}
	}
	return nil
}

func walkWindowSpec(s *parser.WindowSpec, fn visitFunc) error {
	for _, e := range s.PartitionBy {
		if err := walkExpr(e, fn); err != nil {
			return err
		}
	}
	if err := walkOrder(s.OrderBy, fn); err != nil {
		return err
	}
	if s.Frame != nil {
		if err := walkExpr(s.Frame.Start.Offset, fn); err != nil {
			return err
		}
		if s.Frame.End != nil {
			if err := walkExpr(s.Frame.End.Offset, fn); err != nil {
				return err
			}
		}
	}
	return nil
}

// walkExpr visits e and its children in render order. A nil expression is
// a no-op so optional clauses can be walked unconditionally.
func walkExpr(e parser.Expr, fn visitFunc) error {
	if e == nil {
		return nil
	}
	if err := fn(e); err != nil {
		return err
	}
	switch e := e.(type) {
	case *parser.Unary:
		return walkExpr(e.Operand, fn)
	case *parser.Binary:
		if err := walkExpr(e.Left, fn); err != nil {
			return err
		}
		return walkExpr(e.Right, fn)
	case *parser.IsExpr:
		return walkExpr(e.Operand, fn)
	case *parser.IsDistinct:
		if err := walkExpr(e.Left, fn); err != nil {
			return err
		}
		return walkExpr(e.Right, fn)
	case *parser.InExpr:
		if err := walkExpr(e.Operand, fn); err != nil {
			return err
		}
		if e.Subquery != nil {
			return walkSelect(e.Subquery, fn)
		}
		for _, item := range e.List {
			if err := walkExpr(item, fn); err != nil {
				return err
			}
		}
		return nil
	case *parser.Between:
		if err := walkExpr(e.Operand, fn); err != nil {
			return err
		}
		if err := walkExpr(e.Low, fn); err != nil {
			return err
		}
		return walkExpr(e.High, fn)
	case *parser.PatternMatch:
		if err := walkExpr(e.Operand, fn); err != nil {
			return err
		}
		if err := walkExpr(e.Pattern, fn); err != nil {
			return err
		}
		return walkExpr(e.Escape, fn)
	case *parser.CaseExpr:
		if err := walkExpr(e.Operand, fn); err != nil {
			return err
		}
		for _, w := range e.Whens {
			if err := walkExpr(w.Cond, fn); err != nil {
				return err
			}
			if err := walkExpr(w.Then, fn); err != nil {
				return err
			}
		}
		return walkExpr(e.Else, fn)
	case *parser.CastExpr:
		return walkExpr(e.Operand, fn)
	case *parser.Exists:
		return walkSelect(e.Subquery, fn)
	case *parser.Subquery:
		return walkSelect(e.Select, fn)
	case *parser.FuncCall:
		for _, a := range e.Args {
			if err := walkExpr(a, fn); err != nil {
				return err
			}
		}
		if err := walkExpr(e.Filter, fn); err != nil {
			return err
		}
		if e.Over != nil && e.Over.Spec != nil {
			return walkWindowSpec(e.Over.Spec, fn)
		}
		return nil
	case *parser.Collate:
		return walkExpr(e.Operand, fn)
	case *parser.Tuple:
		for _, item := range e.Items {
			if err := walkExpr(item, fn); err != nil {
				return err
			}
		}
		return nil
	case *parser.ArrayExpr:
		for _, item := range e.Items {
			if err := walkExpr(item, fn); err != nil {
				return err
			}
		}
		return nil
	case *parser.Interval:
		return walkExpr(e.Value, fn)
	case *parser.Paren:
		return walkExpr(e.Inner, fn)
	}
	return nil
}
