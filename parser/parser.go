// Package parser is a narrow SQL front end: a dialect-aware lexer, a typed
// AST and a recursive-descent parser covering the statement forms the
// compiler works with (SELECT with CTEs, set operations, joins and windows;
// INSERT with conflict clauses; UPDATE; DELETE).
//
// It is a front end for extraction, validation and rewriting, not a full
// grammar for any one engine. Named placeholders (:name, optionally with a
// $Type annotation) are first-class expression nodes.
package parser

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/syssam/sqlt"
	"github.com/syssam/sqlt/dialect"
)

// Parse parses SQL text into a list of statements. Callers that require
// exactly one statement enforce that themselves.
func Parse(d dialect.Dialect, sql string) ([]Statement, error) {
	p, err := newParser(d, sql)
	if err != nil {
		return nil, err
	}
	var stmts []Statement
	for {
		for p.at(SEMICOLON) {
			p.advance()
		}
		if p.at(EOF) {
			break
		}
		stmt, err := p.parseStatement()
		if err != nil {
			return nil, err
		}
		stmts = append(stmts, stmt)
		if !p.at(SEMICOLON) && !p.at(EOF) {
			return nil, p.unexpected("statement separator")
		}
	}
	if len(stmts) == 0 {
		return nil, sqlt.NewParseError(d.String(), 0, "empty input")
	}
	return stmts, nil
}

// ParseExpr parses a single expression, such as an ad hoc WHERE fragment.
func ParseExpr(d dialect.Dialect, sql string) (Expr, error) {
	p, err := newParser(d, sql)
	if err != nil {
		return nil, err
	}
	e, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	if !p.at(EOF) {
		return nil, p.unexpected("end of expression")
	}
	return e, nil
}

type parser struct {
	d    dialect.Dialect
	toks []Token
	i    int
}

func newParser(d dialect.Dialect, sql string) (*parser, error) {
	toks, err := newLexer(d, sql).tokens()
	if err != nil {
		return nil, err
	}
	return &parser{d: d, toks: toks}, nil
}

func (p *parser) cur() Token          { return p.toks[p.i] }
func (p *parser) advance()            { p.i++ }
func (p *parser) at(k TokenKind) bool { return p.cur().Kind == k }

func (p *parser) peek(n int) Token {
	if p.i+n >= len(p.toks) {
		return p.toks[len(p.toks)-1]
	}
	return p.toks[p.i+n]
}

// atKw reports whether the current token is the given bare keyword.
// Quoted identifiers never match keywords.
func (p *parser) atKw(kw string) bool {
	t := p.cur()
	return t.Kind == IDENT && strings.EqualFold(t.Text, kw)
}

func (p *parser) acceptKw(kw string) bool {
	if p.atKw(kw) {
		p.advance()
		return true
	}
	return false
}

func (p *parser) expectKw(kw string) error {
	if p.acceptKw(kw) {
		return nil
	}
	return p.unexpected(kw)
}

func (p *parser) accept(k TokenKind) bool {
	if p.at(k) {
		p.advance()
		return true
	}
	return false
}

func (p *parser) expect(k TokenKind) (Token, error) {
	t := p.cur()
	if t.Kind != k {
		return Token{}, p.unexpected(k.String())
	}
	p.advance()
	return t, nil
}

func (p *parser) atOp(ops ...string) bool {
	t := p.cur()
	if t.Kind != OP {
		return false
	}
	for _, op := range ops {
		if t.Text == op {
			return true
		}
	}
	return false
}

func (p *parser) errorf(pos int, format string, args ...any) error {
	return sqlt.NewParseError(p.d.String(), pos, fmt.Sprintf(format, args...))
}

func (p *parser) unexpected(want string) error {
	t := p.cur()
	return p.errorf(t.Pos, "expected %s, found %s", want, t.describe())
}

// clauseKeywords are bare identifiers that terminate an implicit alias.
var clauseKeywords = map[string]bool{
	"FROM": true, "WHERE": true, "GROUP": true, "HAVING": true,
	"ORDER": true, "LIMIT": true, "OFFSET": true, "FETCH": true,
	"UNION": true, "INTERSECT": true, "EXCEPT": true, "WINDOW": true,
	"ON": true, "USING": true, "JOIN": true, "INNER": true, "LEFT": true,
	"RIGHT": true, "FULL": true, "CROSS": true, "NATURAL": true,
	"RETURNING": true, "SET": true, "VALUES": true, "AS": true,
	"AND": true, "OR": true, "NOT": true, "IS": true, "IN": true,
	"BETWEEN": true, "LIKE": true, "ILIKE": true, "SIMILAR": true,
	"ASC": true, "DESC": true, "NULLS": true, "COLLATE": true,
	"FOR": true, "INTO": true, "ESCAPE": true, "FILTER": true,
	"OVER": true, "DO": true, "WITH": true,
}

func (p *parser) implicitAlias() (string, bool) {
	t := p.cur()
	if t.Kind == QUOTED_IDENT {
		p.advance()
		return t.Text, true
	}
	if t.Kind == IDENT && !clauseKeywords[strings.ToUpper(t.Text)] {
		p.advance()
		return t.Text, true
	}
	return "", false
}

func (p *parser) parseAlias() (string, error) {
	if p.acceptKw("AS") {
		t := p.cur()
		if t.Kind != IDENT && t.Kind != QUOTED_IDENT {
			return "", p.unexpected("alias")
		}
		p.advance()
		return t.Text, nil
	}
	if a, ok := p.implicitAlias(); ok {
		return a, nil
	}
	return "", nil
}

// --- statements ---

func (p *parser) parseStatement() (Statement, error) {
	var with *WithClause
	if p.atKw("WITH") {
		w, err := p.parseWith()
		if err != nil {
			return nil, err
		}
		with = w
	}
	switch {
	case p.atKw("SELECT"):
		return p.parseSelect(with)
	case p.atKw("INSERT"):
		return p.parseInsert(with)
	case p.atKw("UPDATE"):
		return p.parseUpdate(with)
	case p.atKw("DELETE"):
		return p.parseDelete(with)
	case p.at(LPAREN) && with == nil:
		// parenthesized compound select
		return p.parseSelect(nil)
	}
	return nil, p.unexpected("SELECT, INSERT, UPDATE or DELETE")
}

func (p *parser) parseWith() (*WithClause, error) {
	p.advance() // WITH
	w := &WithClause{Recursive: p.acceptKw("RECURSIVE")}
	for {
		name, err := p.expect(IDENT)
		if err != nil {
			return nil, err
		}
		cte := CTE{Name: name.Text}
		if p.accept(LPAREN) {
			cols, err := p.parseNameList()
			if err != nil {
				return nil, err
			}
			cte.Columns = cols
		}
		if err := p.expectKw("AS"); err != nil {
			return nil, err
		}
		if _, err := p.expect(LPAREN); err != nil {
			return nil, err
		}
		sel, err := p.parseSelect(nil)
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(RPAREN); err != nil {
			return nil, err
		}
		cte.Select = sel
		w.CTEs = append(w.CTEs, cte)
		if !p.accept(COMMA) {
			return w, nil
		}
	}
}

func (p *parser) parseSelect(with *WithClause) (*SelectStmt, error) {
	core, err := p.parseSelectCore()
	if err != nil {
		return nil, err
	}
	s := &SelectStmt{With: with, Core: core}
	for {
		var op string
		switch {
		case p.atKw("UNION"):
			op = "UNION"
		case p.atKw("INTERSECT"):
			op = "INTERSECT"
		case p.atKw("EXCEPT"):
			op = "EXCEPT"
		}
		if op == "" {
			break
		}
		p.advance()
		if p.acceptKw("ALL") {
			op += " ALL"
		} else {
			p.acceptKw("DISTINCT")
		}
		next, err := p.parseSelectCore()
		if err != nil {
			return nil, err
		}
		s.Compounds = append(s.Compounds, Compound{Op: op, Core: next})
	}
	if p.acceptKw("ORDER") {
		if err := p.expectKw("BY"); err != nil {
			return nil, err
		}
		items, err := p.parseOrderList()
		if err != nil {
			return nil, err
		}
		s.OrderBy = items
	}
	if p.acceptKw("LIMIT") {
		e, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		s.Limit = e
	}
	if p.acceptKw("OFFSET") {
		e, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		s.Offset = e
		p.acceptKw("ROWS")
		p.acceptKw("ROW")
	}
	// FETCH FIRST n ROWS ONLY is normalized to LIMIT.
	if p.acceptKw("FETCH") {
		if !p.acceptKw("FIRST") && !p.acceptKw("NEXT") {
			return nil, p.unexpected("FIRST or NEXT")
		}
		e, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		if !p.acceptKw("ROWS") {
			p.acceptKw("ROW")
		}
		if err := p.expectKw("ONLY"); err != nil {
			return nil, err
		}
		s.Limit = e
	}
	return s, nil
}

func (p *parser) parseSelectCore() (*SelectCore, error) {
	if p.accept(LPAREN) {
		// parenthesized select body inside a compound
		core, err := p.parseSelectCore()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(RPAREN); err != nil {
			return nil, err
		}
		return core, nil
	}
	if err := p.expectKw("SELECT"); err != nil {
		return nil, err
	}
	core := &SelectCore{}
	if p.acceptKw("DISTINCT") {
		if p.acceptKw("ON") {
			if _, err := p.expect(LPAREN); err != nil {
				return nil, err
			}
			list, err := p.parseExprList()
			if err != nil {
				return nil, err
			}
			if _, err := p.expect(RPAREN); err != nil {
				return nil, err
			}
			core.DistinctOn = list
		} else {
			core.Distinct = true
		}
	} else {
		p.acceptKw("ALL")
	}
	for {
		item, err := p.parseSelectItem()
		if err != nil {
			return nil, err
		}
		core.Items = append(core.Items, item)
		if !p.accept(COMMA) {
			break
		}
	}
	if p.acceptKw("FROM") {
		for {
			t, err := p.parseTableExpr()
			if err != nil {
				return nil, err
			}
			core.From = append(core.From, t)
			if !p.accept(COMMA) {
				break
			}
		}
	}
	if p.acceptKw("WHERE") {
		e, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		core.Where = e
	}
	if p.atKw("GROUP") {
		p.advance()
		if err := p.expectKw("BY"); err != nil {
			return nil, err
		}
		list, err := p.parseExprList()
		if err != nil {
			return nil, err
		}
		core.GroupBy = list
	}
	if p.acceptKw("HAVING") {
		e, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		core.Having = e
	}
	if p.acceptKw("WINDOW") {
		for {
			name, err := p.expect(IDENT)
			if err != nil {
				return nil, err
			}
			if err := p.expectKw("AS"); err != nil {
				return nil, err
			}
			if _, err := p.expect(LPAREN); err != nil {
				return nil, err
			}
			spec, err := p.parseWindowSpec()
			if err != nil {
				return nil, err
			}
			if _, err := p.expect(RPAREN); err != nil {
				return nil, err
			}
			core.Windows = append(core.Windows, WindowDef{Name: name.Text, Spec: *spec})
			if !p.accept(COMMA) {
				break
			}
		}
	}
	return core, nil
}

func (p *parser) parseSelectItem() (SelectItem, error) {
	if p.atOp("*") {
		p.advance()
		return SelectItem{Expr: &Star{}}, nil
	}
	e, err := p.parseExpr()
	if err != nil {
		return SelectItem{}, err
	}
	item := SelectItem{Expr: e}
	alias, err := p.parseAlias()
	if err != nil {
		return SelectItem{}, err
	}
	item.Alias = alias
	return item, nil
}

// --- FROM clause ---

func (p *parser) parseTableExpr() (TableExpr, error) {
	left, err := p.parseTableFactor()
	if err != nil {
		return nil, err
	}
	for {
		join, ok, err := p.parseJoin(left)
		if err != nil {
			return nil, err
		}
		if !ok {
			return left, nil
		}
		left = join
	}
}

func (p *parser) parseJoin(left TableExpr) (TableExpr, bool, error) {
	natural := false
	var jt string
	switch {
	case p.atKw("NATURAL"):
		natural = true
		p.advance()
		jt = p.joinType()
		if jt == "" {
			return nil, false, p.unexpected("join type")
		}
	default:
		jt = p.joinType()
		if jt == "" {
			return nil, false, nil
		}
	}
	right, err := p.parseTableFactor()
	if err != nil {
		return nil, false, err
	}
	j := &JoinExpr{Left: left, Right: right, Type: jt, Natural: natural}
	if jt != "CROSS JOIN" && !natural {
		switch {
		case p.acceptKw("ON"):
			e, err := p.parseExpr()
			if err != nil {
				return nil, false, err
			}
			j.On = e
		case p.acceptKw("USING"):
			if _, err := p.expect(LPAREN); err != nil {
				return nil, false, err
			}
			cols, err := p.parseNameList()
			if err != nil {
				return nil, false, err
			}
			j.Using = cols
		}
	}
	return j, true, nil
}

// joinType consumes and returns a join keyword sequence, or "".
func (p *parser) joinType() string {
	switch {
	case p.acceptKw("JOIN"):
		return "JOIN"
	case p.atKw("INNER"):
		p.advance()
		p.acceptKw("JOIN")
		return "INNER JOIN"
	case p.atKw("LEFT"), p.atKw("RIGHT"), p.atKw("FULL"):
		side := strings.ToUpper(p.cur().Text)
		p.advance()
		outer := ""
		if p.acceptKw("OUTER") {
			outer = " OUTER"
		}
		p.acceptKw("JOIN")
		return side + outer + " JOIN"
	case p.atKw("CROSS"):
		p.advance()
		p.acceptKw("JOIN")
		return "CROSS JOIN"
	}
	return ""
}

func (p *parser) parseTableFactor() (TableExpr, error) {
	if p.at(LPAREN) {
		if k := p.peek(1); k.Kind == IDENT &&
			(strings.EqualFold(k.Text, "SELECT") || strings.EqualFold(k.Text, "WITH")) {
			p.advance()
			sel, err := p.parseSelect(nil)
			if err != nil {
				return nil, err
			}
			if _, err := p.expect(RPAREN); err != nil {
				return nil, err
			}
			alias, err := p.parseAlias()
			if err != nil {
				return nil, err
			}
			return &DerivedTable{Select: sel, Alias: alias}, nil
		}
		p.advance()
		inner, err := p.parseTableExpr()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(RPAREN); err != nil {
			return nil, err
		}
		return &ParenTable{Inner: inner}, nil
	}
	name, err := p.parseObjectName()
	if err != nil {
		return nil, err
	}
	if p.at(LPAREN) && len(name) == 1 {
		call, err := p.parseFuncCall(name[0].Name, name[0].Pos)
		if err != nil {
			return nil, err
		}
		alias, err := p.parseAlias()
		if err != nil {
			return nil, err
		}
		return &FuncTable{Call: call, Alias: alias}, nil
	}
	alias, err := p.parseAlias()
	if err != nil {
		return nil, err
	}
	return &TableName{Name: name, Alias: alias}, nil
}

func (p *parser) parseObjectName() (ObjectName, error) {
	var name ObjectName
	for {
		t := p.cur()
		switch t.Kind {
		case IDENT:
			name = append(name, Ident{Name: t.Text, Pos: t.Pos})
		case QUOTED_IDENT:
			name = append(name, Ident{Name: t.Text, Quoted: true, Pos: t.Pos})
		default:
			return nil, p.unexpected("table name")
		}
		p.advance()
		if !p.accept(DOT) {
			return name, nil
		}
	}
}

func (p *parser) parseNameList() ([]string, error) {
	var names []string
	for {
		t := p.cur()
		if t.Kind != IDENT && t.Kind != QUOTED_IDENT {
			return nil, p.unexpected("column name")
		}
		p.advance()
		names = append(names, t.Text)
		if p.accept(COMMA) {
			continue
		}
		if _, err := p.expect(RPAREN); err != nil {
			return nil, err
		}
		return names, nil
	}
}

// --- INSERT / UPDATE / DELETE ---

func (p *parser) parseInsert(with *WithClause) (*InsertStmt, error) {
	p.advance() // INSERT
	if err := p.expectKw("INTO"); err != nil {
		return nil, err
	}
	name, err := p.parseObjectName()
	if err != nil {
		return nil, err
	}
	s := &InsertStmt{With: with, Table: TableName{Name: name}}
	if p.accept(LPAREN) {
		cols, err := p.parseNameList()
		if err != nil {
			return nil, err
		}
		s.Columns = cols
	}
	switch {
	case p.atKw("VALUES"):
		p.advance()
		for {
			if _, err := p.expect(LPAREN); err != nil {
				return nil, err
			}
			row, err := p.parseExprList()
			if err != nil {
				return nil, err
			}
			if _, err := p.expect(RPAREN); err != nil {
				return nil, err
			}
			s.Values = append(s.Values, row)
			if !p.accept(COMMA) {
				break
			}
		}
	case p.atKw("SELECT") || p.atKw("WITH"):
		sel, err := p.parseStatement()
		if err != nil {
			return nil, err
		}
		inner, ok := sel.(*SelectStmt)
		if !ok {
			return nil, p.errorf(p.cur().Pos, "INSERT source must be a SELECT")
		}
		s.Select = inner
	case p.atKw("DEFAULT"):
		p.advance()
		if err := p.expectKw("VALUES"); err != nil {
			return nil, err
		}
		s.DefaultValues = true
	default:
		return nil, p.unexpected("VALUES, SELECT or DEFAULT VALUES")
	}
	if p.atKw("ON") {
		if err := p.parseInsertConflict(s); err != nil {
			return nil, err
		}
	}
	ret, err := p.parseReturning()
	if err != nil {
		return nil, err
	}
	s.Returning = ret
	return s, nil
}

func (p *parser) parseInsertConflict(s *InsertStmt) error {
	p.advance() // ON
	switch {
	case p.acceptKw("CONFLICT"):
		c := &ConflictClause{}
		if p.accept(LPAREN) {
			cols, err := p.parseNameList()
			if err != nil {
				return err
			}
			c.Columns = cols
		}
		if err := p.expectKw("DO"); err != nil {
			return err
		}
		if p.acceptKw("NOTHING") {
			c.DoNothing = true
			s.OnConflict = c
			return nil
		}
		if err := p.expectKw("UPDATE"); err != nil {
			return err
		}
		if err := p.expectKw("SET"); err != nil {
			return err
		}
		ups, err := p.parseAssignments()
		if err != nil {
			return err
		}
		c.Updates = ups
		if p.acceptKw("WHERE") {
			e, err := p.parseExpr()
			if err != nil {
				return err
			}
			c.Where = e
		}
		s.OnConflict = c
		return nil
	case p.acceptKw("DUPLICATE"):
		if err := p.expectKw("KEY"); err != nil {
			return err
		}
		if err := p.expectKw("UPDATE"); err != nil {
			return err
		}
		ups, err := p.parseAssignments()
		if err != nil {
			return err
		}
		s.OnDuplicate = ups
		return nil
	}
	return p.unexpected("CONFLICT or DUPLICATE")
}

func (p *parser) parseUpdate(with *WithClause) (*UpdateStmt, error) {
	p.advance() // UPDATE
	name, err := p.parseObjectName()
	if err != nil {
		return nil, err
	}
	s := &UpdateStmt{With: with, Table: TableName{Name: name}}
	alias, err := p.parseAliasBefore("SET")
	if err != nil {
		return nil, err
	}
	s.Table.Alias = alias
	if err := p.expectKw("SET"); err != nil {
		return nil, err
	}
	set, err := p.parseAssignments()
	if err != nil {
		return nil, err
	}
	s.Set = set
	if p.acceptKw("FROM") {
		for {
			t, err := p.parseTableExpr()
			if err != nil {
				return nil, err
			}
			s.From = append(s.From, t)
			if !p.accept(COMMA) {
				break
			}
		}
	}
	if p.acceptKw("WHERE") {
		e, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		s.Where = e
	}
	ret, err := p.parseReturning()
	if err != nil {
		return nil, err
	}
	s.Returning = ret
	return s, nil
}

func (p *parser) parseDelete(with *WithClause) (*DeleteStmt, error) {
	p.advance() // DELETE
	if err := p.expectKw("FROM"); err != nil {
		return nil, err
	}
	name, err := p.parseObjectName()
	if err != nil {
		return nil, err
	}
	s := &DeleteStmt{With: with, Table: TableName{Name: name}}
	alias, err := p.parseAliasBefore("")
	if err != nil {
		return nil, err
	}
	s.Table.Alias = alias
	if p.acceptKw("USING") {
		for {
			t, err := p.parseTableExpr()
			if err != nil {
				return nil, err
			}
			s.Using = append(s.Using, t)
			if !p.accept(COMMA) {
				break
			}
		}
	}
	if p.acceptKw("WHERE") {
		e, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		s.Where = e
	}
	if p.acceptKw("ORDER") {
		if err := p.expectKw("BY"); err != nil {
			return nil, err
		}
		items, err := p.parseOrderList()
		if err != nil {
			return nil, err
		}
		s.OrderBy = items
	}
	if p.acceptKw("LIMIT") {
		e, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		s.Limit = e
	}
	ret, err := p.parseReturning()
	if err != nil {
		return nil, err
	}
	s.Returning = ret
	return s, nil
}

// parseAliasBefore reads an optional table alias that must not swallow the
// next expected keyword.
func (p *parser) parseAliasBefore(stop string) (string, error) {
	if p.acceptKw("AS") {
		t := p.cur()
		if t.Kind != IDENT && t.Kind != QUOTED_IDENT {
			return "", p.unexpected("alias")
		}
		p.advance()
		return t.Text, nil
	}
	if stop != "" && p.atKw(stop) {
		return "", nil
	}
	if a, ok := p.implicitAlias(); ok {
		return a, nil
	}
	return "", nil
}

func (p *parser) parseAssignments() ([]Assignment, error) {
	var out []Assignment
	for {
		name, err := p.parseObjectName()
		if err != nil {
			return nil, p.unexpected("assignment target")
		}
		var col Expr
		if len(name) == 1 {
			col = &Ident{Name: name[0].Name, Quoted: name[0].Quoted, Pos: name[0].Pos}
		} else {
			col = &Qualified{Parts: name}
		}
		if !p.atOp("=") {
			return nil, p.unexpected("=")
		}
		p.advance()
		val, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		out = append(out, Assignment{Column: col, Value: val})
		if !p.accept(COMMA) {
			return out, nil
		}
	}
}

func (p *parser) parseReturning() ([]SelectItem, error) {
	if !p.acceptKw("RETURNING") {
		return nil, nil
	}
	var items []SelectItem
	for {
		item, err := p.parseSelectItem()
		if err != nil {
			return nil, err
		}
		items = append(items, item)
		if !p.accept(COMMA) {
			return items, nil
		}
	}
}

// --- expressions ---

func (p *parser) parseExpr() (Expr, error) { return p.parseOr() }

func (p *parser) parseExprList() ([]Expr, error) {
	var list []Expr
	for {
		e, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		list = append(list, e)
		if !p.accept(COMMA) {
			return list, nil
		}
	}
}

func (p *parser) parseOr() (Expr, error) {
	left, err := p.parseAnd()
	if err != nil {
		return nil, err
	}
	for p.acceptKw("OR") {
		right, err := p.parseAnd()
		if err != nil {
			return nil, err
		}
		left = &Binary{Left: left, Op: "OR", Right: right}
	}
	return left, nil
}

func (p *parser) parseAnd() (Expr, error) {
	left, err := p.parseNot()
	if err != nil {
		return nil, err
	}
	for p.atKw("AND") {
		p.advance()
		right, err := p.parseNot()
		if err != nil {
			return nil, err
		}
		left = &Binary{Left: left, Op: "AND", Right: right}
	}
	return left, nil
}

func (p *parser) parseNot() (Expr, error) {
	if p.atKw("NOT") && !p.isNotPrefixOfPostfix() {
		p.advance()
		operand, err := p.parseNot()
		if err != nil {
			return nil, err
		}
		return &Unary{Op: "NOT", Operand: operand}, nil
	}
	return p.parseComparison()
}

// isNotPrefixOfPostfix distinguishes prefix NOT from NOT EXISTS, which is
// handled in primary position.
func (p *parser) isNotPrefixOfPostfix() bool {
	n := p.peek(1)
	return n.Kind == IDENT && strings.EqualFold(n.Text, "EXISTS")
}

func (p *parser) parseComparison() (Expr, error) {
	left, err := p.parseConcat()
	if err != nil {
		return nil, err
	}
	for {
		switch {
		case p.atOp("=", "<>", "!=", "<", ">", "<=", ">="):
			op := p.cur().Text
			p.advance()
			right, err := p.parseConcat()
			if err != nil {
				return nil, err
			}
			left = &Binary{Left: left, Op: op, Right: right}
		case p.atKw("IS"):
			p.advance()
			not := p.acceptKw("NOT")
			switch {
			case p.acceptKw("NULL"):
				left = &IsExpr{Operand: left, Not: not, What: "NULL"}
			case p.acceptKw("TRUE"):
				left = &IsExpr{Operand: left, Not: not, What: "TRUE"}
			case p.acceptKw("FALSE"):
				left = &IsExpr{Operand: left, Not: not, What: "FALSE"}
			case p.acceptKw("DISTINCT"):
				if err := p.expectKw("FROM"); err != nil {
					return nil, err
				}
				right, err := p.parseConcat()
				if err != nil {
					return nil, err
				}
				left = &IsDistinct{Left: left, Not: not, Right: right}
			default:
				return nil, p.unexpected("NULL, TRUE, FALSE or DISTINCT FROM")
			}
		case p.atKw("NOT") && p.postfixFollowsNot():
			p.advance()
			e, err := p.parseNegatablePostfix(left, true)
			if err != nil {
				return nil, err
			}
			left = e
		case p.atKw("IN") || p.atKw("BETWEEN") || p.atKw("LIKE") || p.atKw("ILIKE") || p.atKw("SIMILAR"):
			e, err := p.parseNegatablePostfix(left, false)
			if err != nil {
				return nil, err
			}
			left = e
		default:
			return left, nil
		}
	}
}

func (p *parser) postfixFollowsNot() bool {
	n := p.peek(1)
	if n.Kind != IDENT {
		return false
	}
	switch strings.ToUpper(n.Text) {
	case "IN", "BETWEEN", "LIKE", "ILIKE", "SIMILAR":
		return true
	}
	return false
}

func (p *parser) parseNegatablePostfix(left Expr, not bool) (Expr, error) {
	switch {
	case p.acceptKw("IN"):
		if _, err := p.expect(LPAREN); err != nil {
			return nil, err
		}
		if p.atKw("SELECT") || p.atKw("WITH") {
			sel, err := p.parseSelect(nil)
			if err != nil {
				return nil, err
			}
			if _, err := p.expect(RPAREN); err != nil {
				return nil, err
			}
			return &InExpr{Operand: left, Not: not, Subquery: sel}, nil
		}
		list, err := p.parseExprList()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(RPAREN); err != nil {
			return nil, err
		}
		return &InExpr{Operand: left, Not: not, List: list}, nil
	case p.acceptKw("BETWEEN"):
		low, err := p.parseConcat()
		if err != nil {
			return nil, err
		}
		if err := p.expectKw("AND"); err != nil {
			return nil, err
		}
		high, err := p.parseConcat()
		if err != nil {
			return nil, err
		}
		return &Between{Operand: left, Not: not, Low: low, High: high}, nil
	case p.acceptKw("LIKE"):
		return p.parsePattern(left, not, "LIKE")
	case p.acceptKw("ILIKE"):
		return p.parsePattern(left, not, "ILIKE")
	case p.acceptKw("SIMILAR"):
		if err := p.expectKw("TO"); err != nil {
			return nil, err
		}
		return p.parsePattern(left, not, "SIMILAR TO")
	}
	return nil, p.unexpected("IN, BETWEEN, LIKE, ILIKE or SIMILAR TO")
}

func (p *parser) parsePattern(left Expr, not bool, op string) (Expr, error) {
	pattern, err := p.parseConcat()
	if err != nil {
		return nil, err
	}
	m := &PatternMatch{Operand: left, Not: not, Op: op, Pattern: pattern}
	if p.acceptKw("ESCAPE") {
		esc, err := p.parseConcat()
		if err != nil {
			return nil, err
		}
		m.Escape = esc
	}
	return m, nil
}

func (p *parser) parseConcat() (Expr, error) {
	left, err := p.parseAdditive()
	if err != nil {
		return nil, err
	}
	for p.atOp("||") {
		p.advance()
		right, err := p.parseAdditive()
		if err != nil {
			return nil, err
		}
		left = &Binary{Left: left, Op: "||", Right: right}
	}
	return left, nil
}

func (p *parser) parseAdditive() (Expr, error) {
	left, err := p.parseMultiplicative()
	if err != nil {
		return nil, err
	}
	for p.atOp("+", "-") {
		op := p.cur().Text
		p.advance()
		right, err := p.parseMultiplicative()
		if err != nil {
			return nil, err
		}
		left = &Binary{Left: left, Op: op, Right: right}
	}
	return left, nil
}

func (p *parser) parseMultiplicative() (Expr, error) {
	left, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	for p.atOp("*", "/", "%") {
		op := p.cur().Text
		p.advance()
		right, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		left = &Binary{Left: left, Op: op, Right: right}
	}
	return left, nil
}

func (p *parser) parseUnary() (Expr, error) {
	if p.atOp("-", "+") {
		op := p.cur().Text
		p.advance()
		operand, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return &Unary{Op: op, Operand: operand}, nil
	}
	return p.parsePostfix()
}

func (p *parser) parsePostfix() (Expr, error) {
	e, err := p.parsePrimary()
	if err != nil {
		return nil, err
	}
	for {
		switch {
		case p.atOp("::"):
			p.advance()
			typ, err := p.parseTypeName()
			if err != nil {
				return nil, err
			}
			e = &CastExpr{Operand: e, Type: typ, Operator: true}
		case p.atKw("COLLATE"):
			p.advance()
			t := p.cur()
			if t.Kind != IDENT && t.Kind != QUOTED_IDENT && t.Kind != STRING {
				return nil, p.unexpected("collation name")
			}
			p.advance()
			e = &Collate{Operand: e, Collation: t.Text}
		default:
			return e, nil
		}
	}
}

func (p *parser) parseTypeName() (string, error) {
	t := p.cur()
	if t.Kind != IDENT {
		return "", p.unexpected("type name")
	}
	p.advance()
	name := t.Text
	// multi-word types such as double precision
	if n := p.cur(); n.Kind == IDENT && !clauseKeywords[strings.ToUpper(n.Text)] &&
		(strings.EqualFold(name, "double") || strings.EqualFold(n.Text, "precision") ||
			strings.EqualFold(n.Text, "varying")) {
		name += " " + n.Text
		p.advance()
	}
	if p.accept(LPAREN) {
		var args []string
		for {
			num, err := p.expect(NUMBER)
			if err != nil {
				return "", err
			}
			args = append(args, num.Text)
			if p.accept(COMMA) {
				continue
			}
			if _, err := p.expect(RPAREN); err != nil {
				return "", err
			}
			break
		}
		name += "(" + strings.Join(args, ", ") + ")"
	}
	return name, nil
}

func (p *parser) parsePrimary() (Expr, error) {
	t := p.cur()
	switch t.Kind {
	case NUMBER:
		p.advance()
		return &NumberLit{Value: t.Text}, nil
	case STRING:
		p.advance()
		return &StringLit{Value: t.Text}, nil
	case NAMED_PARAM:
		p.advance()
		return &NamedPlaceholder{Text: t.Text, Pos: t.Pos}, nil
	case DOLLAR_PARAM:
		p.advance()
		n, err := strconv.Atoi(t.Text)
		if err != nil || n < 1 {
			return nil, p.errorf(t.Pos, "invalid positional placeholder $%s", t.Text)
		}
		return &PositionalPlaceholder{N: n}, nil
	case QUESTION:
		p.advance()
		return &PositionalPlaceholder{Question: true}, nil
	case LPAREN:
		return p.parseParenPrimary()
	case OP:
		if t.Text == "*" {
			p.advance()
			return &Star{}, nil
		}
	case QUOTED_IDENT:
		return p.parseIdentExpr()
	case IDENT:
		switch strings.ToUpper(t.Text) {
		case "NULL":
			p.advance()
			return &NullLit{}, nil
		case "TRUE":
			p.advance()
			return &BoolLit{Value: true}, nil
		case "FALSE":
			p.advance()
			return &BoolLit{Value: false}, nil
		case "CASE":
			return p.parseCase()
		case "CAST":
			return p.parseCast()
		case "EXISTS":
			return p.parseExists(false)
		case "NOT":
			p.advance()
			return p.parseExists(true)
		case "ARRAY":
			if p.peek(1).Kind == LBRACKET {
				p.advance()
				p.advance()
				items, err := p.parseExprList()
				if err != nil {
					return nil, err
				}
				if _, err := p.expect(RBRACKET); err != nil {
					return nil, err
				}
				return &ArrayExpr{Items: items}, nil
			}
			return p.parseIdentExpr()
		case "INTERVAL":
			return p.parseInterval()
		}
		return p.parseIdentExpr()
	}
	return nil, p.unexpected("expression")
}

func (p *parser) parseParenPrimary() (Expr, error) {
	if k := p.peek(1); k.Kind == IDENT &&
		(strings.EqualFold(k.Text, "SELECT") || strings.EqualFold(k.Text, "WITH")) {
		p.advance()
		sel, err := p.parseSelect(nil)
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(RPAREN); err != nil {
			return nil, err
		}
		return &Subquery{Select: sel}, nil
	}
	p.advance()
	first, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	if p.accept(COMMA) {
		items := []Expr{first}
		for {
			e, err := p.parseExpr()
			if err != nil {
				return nil, err
			}
			items = append(items, e)
			if !p.accept(COMMA) {
				break
			}
		}
		if _, err := p.expect(RPAREN); err != nil {
			return nil, err
		}
		return &Tuple{Items: items}, nil
	}
	if _, err := p.expect(RPAREN); err != nil {
		return nil, err
	}
	return &Paren{Inner: first}, nil
}

func (p *parser) parseCase() (Expr, error) {
	p.advance() // CASE
	c := &CaseExpr{}
	if !p.atKw("WHEN") {
		operand, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		c.Operand = operand
	}
	for p.acceptKw("WHEN") {
		cond, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		if err := p.expectKw("THEN"); err != nil {
			return nil, err
		}
		then, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		c.Whens = append(c.Whens, When{Cond: cond, Then: then})
	}
	if len(c.Whens) == 0 {
		return nil, p.unexpected("WHEN")
	}
	if p.acceptKw("ELSE") {
		e, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		c.Else = e
	}
	if err := p.expectKw("END"); err != nil {
		return nil, err
	}
	return c, nil
}

func (p *parser) parseCast() (Expr, error) {
	p.advance() // CAST
	if _, err := p.expect(LPAREN); err != nil {
		return nil, err
	}
	operand, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	if err := p.expectKw("AS"); err != nil {
		return nil, err
	}
	typ, err := p.parseTypeName()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(RPAREN); err != nil {
		return nil, err
	}
	return &CastExpr{Operand: operand, Type: typ}, nil
}

func (p *parser) parseExists(not bool) (Expr, error) {
	if err := p.expectKw("EXISTS"); err != nil {
		return nil, err
	}
	if _, err := p.expect(LPAREN); err != nil {
		return nil, err
	}
	sel, err := p.parseSelect(nil)
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(RPAREN); err != nil {
		return nil, err
	}
	return &Exists{Not: not, Subquery: sel}, nil
}

func (p *parser) parseInterval() (Expr, error) {
	p.advance() // INTERVAL
	value, err := p.parsePrimary()
	if err != nil {
		return nil, err
	}
	iv := &Interval{Value: value}
	if t := p.cur(); t.Kind == IDENT && !clauseKeywords[strings.ToUpper(t.Text)] {
		iv.Unit = t.Text
		p.advance()
	}
	return iv, nil
}

// parseIdentExpr parses an identifier chain and its postfix forms: t.c,
// t.*, and function calls with FILTER/OVER.
func (p *parser) parseIdentExpr() (Expr, error) {
	t := p.cur()
	parts := []Ident{{Name: t.Text, Quoted: t.Kind == QUOTED_IDENT, Pos: t.Pos}}
	p.advance()
	for p.at(DOT) {
		p.advance()
		n := p.cur()
		switch {
		case n.Kind == OP && n.Text == "*":
			p.advance()
			var names []string
			for _, part := range parts {
				names = append(names, part.Name)
			}
			return &Star{Table: strings.Join(names, ".")}, nil
		case n.Kind == IDENT || n.Kind == QUOTED_IDENT:
			parts = append(parts, Ident{Name: n.Text, Quoted: n.Kind == QUOTED_IDENT, Pos: n.Pos})
			p.advance()
		default:
			return nil, p.unexpected("identifier or *")
		}
	}
	if p.at(LPAREN) {
		var names []string
		for _, part := range parts {
			if part.Quoted {
				return nil, p.errorf(part.Pos, "quoted identifier cannot name a function")
			}
			names = append(names, part.Name)
		}
		return p.parseFuncCall(strings.Join(names, "."), parts[0].Pos)
	}
	if len(parts) == 1 {
		return &Ident{Name: parts[0].Name, Quoted: parts[0].Quoted, Pos: parts[0].Pos}, nil
	}
	return &Qualified{Parts: parts}, nil
}

func (p *parser) parseFuncCall(name string, pos int) (*FuncCall, error) {
	p.advance() // (
	call := &FuncCall{Name: name, Pos: pos}
	switch {
	case p.at(RPAREN):
		p.advance()
	case p.atOp("*"):
		p.advance()
		call.Star = true
		if _, err := p.expect(RPAREN); err != nil {
			return nil, err
		}
	default:
		call.Distinct = p.acceptKw("DISTINCT")
		args, err := p.parseExprList()
		if err != nil {
			return nil, err
		}
		call.Args = args
		if _, err := p.expect(RPAREN); err != nil {
			return nil, err
		}
	}
	if p.acceptKw("FILTER") {
		if _, err := p.expect(LPAREN); err != nil {
			return nil, err
		}
		if err := p.expectKw("WHERE"); err != nil {
			return nil, err
		}
		cond, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(RPAREN); err != nil {
			return nil, err
		}
		call.Filter = cond
	}
	if p.acceptKw("OVER") {
		ref := &WindowRef{}
		if p.accept(LPAREN) {
			spec, err := p.parseWindowSpec()
			if err != nil {
				return nil, err
			}
			if _, err := p.expect(RPAREN); err != nil {
				return nil, err
			}
			ref.Spec = spec
		} else {
			t, err := p.expect(IDENT)
			if err != nil {
				return nil, err
			}
			ref.Name = t.Text
		}
		call.Over = ref
	}
	return call, nil
}

func (p *parser) parseWindowSpec() (*WindowSpec, error) {
	spec := &WindowSpec{}
	if t := p.cur(); t.Kind == IDENT {
		switch strings.ToUpper(t.Text) {
		case "PARTITION", "ORDER", "ROWS", "RANGE", "GROUPS":
		default:
			spec.Base = t.Text
			p.advance()
		}
	}
	if p.atKw("PARTITION") {
		p.advance()
		if err := p.expectKw("BY"); err != nil {
			return nil, err
		}
		list, err := p.parseExprList()
		if err != nil {
			return nil, err
		}
		spec.PartitionBy = list
	}
	if p.atKw("ORDER") {
		p.advance()
		if err := p.expectKw("BY"); err != nil {
			return nil, err
		}
		items, err := p.parseOrderList()
		if err != nil {
			return nil, err
		}
		spec.OrderBy = items
	}
	if p.atKw("ROWS") || p.atKw("RANGE") || p.atKw("GROUPS") {
		unit := strings.ToUpper(p.cur().Text)
		p.advance()
		frame := &FrameClause{Unit: unit}
		if p.acceptKw("BETWEEN") {
			start, err := p.parseFrameBound()
			if err != nil {
				return nil, err
			}
			if err := p.expectKw("AND"); err != nil {
				return nil, err
			}
			end, err := p.parseFrameBound()
			if err != nil {
				return nil, err
			}
			frame.Start = *start
			frame.End = end
		} else {
			start, err := p.parseFrameBound()
			if err != nil {
				return nil, err
			}
			frame.Start = *start
		}
		spec.Frame = frame
	}
	return spec, nil
}

func (p *parser) parseFrameBound() (*FrameBound, error) {
	switch {
	case p.acceptKw("UNBOUNDED"):
		switch {
		case p.acceptKw("PRECEDING"):
			return &FrameBound{Kind: "UNBOUNDED PRECEDING"}, nil
		case p.acceptKw("FOLLOWING"):
			return &FrameBound{Kind: "UNBOUNDED FOLLOWING"}, nil
		}
		return nil, p.unexpected("PRECEDING or FOLLOWING")
	case p.acceptKw("CURRENT"):
		if err := p.expectKw("ROW"); err != nil {
			return nil, err
		}
		return &FrameBound{Kind: "CURRENT ROW"}, nil
	}
	offset, err := p.parseConcat()
	if err != nil {
		return nil, err
	}
	switch {
	case p.acceptKw("PRECEDING"):
		return &FrameBound{Kind: "PRECEDING", Offset: offset}, nil
	case p.acceptKw("FOLLOWING"):
		return &FrameBound{Kind: "FOLLOWING", Offset: offset}, nil
	}
	return nil, p.unexpected("PRECEDING or FOLLOWING")
}

func (p *parser) parseOrderList() ([]OrderItem, error) {
	var items []OrderItem
	for {
		e, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		item := OrderItem{Expr: e}
		if p.acceptKw("DESC") {
			item.Desc = true
		} else {
			p.acceptKw("ASC")
		}
		if p.acceptKw("NULLS") {
			switch {
			case p.acceptKw("FIRST"):
				item.Nulls = "FIRST"
			case p.acceptKw("LAST"):
				item.Nulls = "LAST"
			default:
				return nil, p.unexpected("FIRST or LAST")
			}
		}
		items = append(items, item)
		if !p.accept(COMMA) {
			return items, nil
		}
	}
}
