// Package rewrite transforms parsed queries: positional renumbering of
// named placeholders, count-query derivation and pagination injection.
// Every transform works on the AST; rewritten SQL is produced by rendering,
// never by splicing the original text.
package rewrite

import (
	"github.com/syssam/sqlt"
	"github.com/syssam/sqlt/dialect"
	"github.com/syssam/sqlt/parser"
	"github.com/syssam/sqlt/scan"
)

// Renumbered is the outcome of placeholder renumbering: the final SQL and
// the source parameter names in positional order. A name occurring twice in
// the input occupies two consecutive slots here.
type Renumbered struct {
	SQL   string
	Names []string
}

// Renumber renders stmt with every named placeholder replaced by the
// dialect's positional marker, numbered consecutively from start in
// left-to-right render order. Placeholder syntax is validated first;
// replacement happens at the placeholder node during rendering.
func Renumber(d dialect.Dialect, stmt parser.Statement, start int) (*Renumbered, error) {
	if start < 1 {
		return nil, sqlt.NewRewriteError("renumber", "start index must be at least 1")
	}
	if _, err := scan.Placeholders(stmt); err != nil {
		return nil, err
	}
	out := &Renumbered{}
	n := start
	w := parser.NewWriter(d)
	w.Placeholder = func(p *parser.NamedPlaceholder) string {
		out.Names = append(out.Names, p.Name())
		marker := d.Placeholder(n)
		n++
		return marker
	}
	out.SQL = w.Render(stmt)
	return out, nil
}

// RenumberExpr renumbers a single expression fragment the same way.
func RenumberExpr(d dialect.Dialect, expr parser.Expr, start int) (*Renumbered, error) {
	if start < 1 {
		return nil, sqlt.NewRewriteError("renumber", "start index must be at least 1")
	}
	out := &Renumbered{}
	n := start
	w := parser.NewWriter(d)
	w.Placeholder = func(p *parser.NamedPlaceholder) string {
		out.Names = append(out.Names, p.Name())
		marker := d.Placeholder(n)
		n++
		return marker
	}
	out.SQL = w.Render(expr)
	return out, nil
}

// Count derives the total-count companion of a SELECT. For a plain
// single-table query the projection is replaced by COUNT(1) and ORDER BY is
// dropped. When the query joins, groups, deduplicates or uses set
// operations, replacing the projection would change the row count, so the
// original query (ORDER BY/LIMIT/OFFSET stripped) is wrapped as a derived
// table instead.
func Count(stmt parser.Statement) (*parser.SelectStmt, error) {
	sel, ok := stmt.(*parser.SelectStmt)
	if !ok {
		return nil, sqlt.NewRewriteError("count", "only SELECT queries have a derived count")
	}
	countItem := parser.SelectItem{Expr: &parser.FuncCall{
		Name: "COUNT",
		Args: []parser.Expr{&parser.NumberLit{Value: "1"}},
	}}
	if needsSubquery(sel) {
		inner := *sel
		inner.OrderBy = nil
		inner.Limit = nil
		inner.Offset = nil
		return &parser.SelectStmt{
			Core: &parser.SelectCore{
				Items: []parser.SelectItem{countItem},
				From: []parser.TableExpr{&parser.DerivedTable{
					Select: &inner,
					Alias:  "count_subquery",
				}},
			},
		}, nil
	}
	core := *sel.Core
	core.Items = []parser.SelectItem{countItem}
	return &parser.SelectStmt{With: sel.With, Core: &core}, nil
}

func needsSubquery(s *parser.SelectStmt) bool {
	if s.HasJoin() || s.HasGroupBy() || len(s.Compounds) > 0 {
		return true
	}
	return s.Core.Distinct || len(s.Core.DistinctOn) > 0
}

// Page injects `LIMIT :limit OFFSET :offset` into a SELECT. A query that
// already carries LIMIT or OFFSET cannot be paginated again and is a hard
// error. The result is re-validated with limit and offset added to the
// declared parameter set.
func Page(stmt parser.Statement, params map[string]bool) (*parser.SelectStmt, error) {
	sel, ok := stmt.(*parser.SelectStmt)
	if !ok {
		return nil, sqlt.NewRewriteError("page", "only SELECT queries can be paginated")
	}
	if sel.Limit != nil || sel.Offset != nil {
		return nil, sqlt.NewRewriteError("page", "query already has OFFSET or LIMIT")
	}
	paged := *sel
	paged.Limit = &parser.NamedPlaceholder{Text: "limit"}
	paged.Offset = &parser.NamedPlaceholder{Text: "offset"}

	withPage := make(map[string]bool, len(params)+2)
	for k, v := range params {
		withPage[k] = v
	}
	withPage["limit"] = true
	withPage["offset"] = true
	if _, _, err := scan.ValidateStatement([]parser.Statement{&paged}, scan.ModeSelect, withPage); err != nil {
		return nil, err
	}
	return &paged, nil
}
