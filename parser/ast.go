package parser

import (
	"strconv"
	"strings"

	"github.com/syssam/sqlt/dialect"
)

// Node is any AST element that can render itself back to SQL.
type Node interface {
	writeSQL(w *Writer)
}

// Statement is a top-level SQL statement.
type Statement interface {
	Node
	stmtNode()
}

// Expr is a SQL expression.
type Expr interface {
	Node
	exprNode()
}

// TableExpr is an element of a FROM clause.
type TableExpr interface {
	Node
	tableExpr()
}

// Writer renders AST nodes to SQL text for a dialect. The Placeholder hook,
// when set, replaces the rendering of every named placeholder; the rewriter
// uses it for positional renumbering so that replacement happens at the AST
// node, never by searching the rendered string.
type Writer struct {
	b           strings.Builder
	d           dialect.Dialect
	Placeholder func(p *NamedPlaceholder) string
}

// NewWriter returns a Writer rendering for the given dialect.
func NewWriter(d dialect.Dialect) *Writer {
	return &Writer{d: d}
}

// Render renders the node and returns the accumulated SQL.
func (w *Writer) Render(n Node) string {
	n.writeSQL(w)
	return w.b.String()
}

// Render renders a node to SQL for the given dialect.
func Render(d dialect.Dialect, n Node) string {
	return NewWriter(d).Render(n)
}

func (w *Writer) str(s string) { w.b.WriteString(s) }
func (w *Writer) byte(c byte)  { w.b.WriteByte(c) }
func (w *Writer) node(n Node)  { n.writeSQL(w) }
func (w *Writer) space()       { w.b.WriteByte(' ') }

func (w *Writer) ident(id Ident) {
	if !id.Quoted {
		w.str(id.Name)
		return
	}
	q := byte('"')
	if w.d == dialect.MySQL {
		q = '`'
	}
	w.byte(q)
	for i := 0; i < len(id.Name); i++ {
		if id.Name[i] == q {
			w.byte(q)
		}
		w.byte(id.Name[i])
	}
	w.byte(q)
}

func (w *Writer) exprList(list []Expr) {
	for i, e := range list {
		if i > 0 {
			w.str(", ")
		}
		w.node(e)
	}
}

// Ident is a plain or quoted identifier.
type Ident struct {
	Name   string
	Quoted bool
	Pos    int
}

func (e *Ident) exprNode() {}
func (e *Ident) writeSQL(w *Writer) { w.ident(*e) }

// Qualified is a dotted identifier chain such as t.c. Chains longer than two
// parts parse fine and are rejected by the restricted fragment walk.
type Qualified struct {
	Parts []Ident
}

func (e *Qualified) exprNode() {}
func (e *Qualified) writeSQL(w *Writer) {
	for i, p := range e.Parts {
		if i > 0 {
			w.byte('.')
		}
		w.ident(p)
	}
}

// Star is `*` or `t.*` in a projection or COUNT(*).
type Star struct {
	Table string
}

func (e *Star) exprNode() {}
func (e *Star) writeSQL(w *Writer) {
	if e.Table != "" {
		w.str(e.Table)
		w.byte('.')
	}
	w.byte('*')
}

// StringLit is a single-quoted string literal; Value is unescaped.
type StringLit struct {
	Value string
}

func (e *StringLit) exprNode() {}
func (e *StringLit) writeSQL(w *Writer) {
	w.byte('\'')
	for i := 0; i < len(e.Value); i++ {
		if e.Value[i] == '\'' {
			w.byte('\'')
		}
		w.byte(e.Value[i])
	}
	w.byte('\'')
}

// NumberLit is a numeric literal kept as written.
type NumberLit struct {
	Value string
}

func (e *NumberLit) exprNode() {}
func (e *NumberLit) writeSQL(w *Writer) { w.str(e.Value) }

// BoolLit is TRUE or FALSE.
type BoolLit struct {
	Value bool
}

func (e *BoolLit) exprNode() {}
func (e *BoolLit) writeSQL(w *Writer) {
	if e.Value {
		w.str("TRUE")
	} else {
		w.str("FALSE")
	}
}

// NullLit is NULL.
type NullLit struct{}

func (e *NullLit) exprNode() {}
func (e *NullLit) writeSQL(w *Writer) { w.str("NULL") }

// NamedPlaceholder is a :name token. Text is everything after the colon,
// including any $Type scalar annotation; splitting and syntax validation
// happen in the extractor.
type NamedPlaceholder struct {
	Text string
	Pos  int
}

func (e *NamedPlaceholder) exprNode() {}

// Raw returns the placeholder as written, leading colon included.
func (e *NamedPlaceholder) Raw() string { return ":" + e.Text }

// Name returns the placeholder name with any $Type annotation stripped.
func (e *NamedPlaceholder) Name() string {
	if i := strings.IndexByte(e.Text, '$'); i >= 0 {
		return e.Text[:i]
	}
	return e.Text
}

// TypeAnnotation returns the $Type suffix without the dollar, or "".
func (e *NamedPlaceholder) TypeAnnotation() string {
	if i := strings.IndexByte(e.Text, '$'); i >= 0 {
		return e.Text[i+1:]
	}
	return ""
}

func (e *NamedPlaceholder) writeSQL(w *Writer) {
	if w.Placeholder != nil {
		w.str(w.Placeholder(e))
		return
	}
	w.byte(':')
	w.str(e.Text)
}

// PositionalPlaceholder is $N or ?.
type PositionalPlaceholder struct {
	N        int
	Question bool
}

func (e *PositionalPlaceholder) exprNode() {}
func (e *PositionalPlaceholder) writeSQL(w *Writer) {
	if e.Question {
		w.byte('?')
		return
	}
	w.byte('$')
	w.str(strconv.Itoa(e.N))
}

// Unary is a prefix operator application (NOT, -, +).
type Unary struct {
	Op      string
	Operand Expr
}

func (e *Unary) exprNode() {}
func (e *Unary) writeSQL(w *Writer) {
	w.str(e.Op)
	if e.Op == "NOT" {
		w.space()
	}
	w.node(e.Operand)
}

// Binary is an infix operator application.
type Binary struct {
	Left  Expr
	Op    string
	Right Expr
}

func (e *Binary) exprNode() {}
func (e *Binary) writeSQL(w *Writer) {
	w.node(e.Left)
	w.space()
	w.str(e.Op)
	w.space()
	w.node(e.Right)
}

// IsExpr is `x IS [NOT] NULL|TRUE|FALSE`.
type IsExpr struct {
	Operand Expr
	Not     bool
	What    string // NULL, TRUE or FALSE
}

func (e *IsExpr) exprNode() {}
func (e *IsExpr) writeSQL(w *Writer) {
	w.node(e.Operand)
	w.str(" IS ")
	if e.Not {
		w.str("NOT ")
	}
	w.str(e.What)
}

// IsDistinct is `x IS [NOT] DISTINCT FROM y`.
type IsDistinct struct {
	Left  Expr
	Not   bool
	Right Expr
}

func (e *IsDistinct) exprNode() {}
func (e *IsDistinct) writeSQL(w *Writer) {
	w.node(e.Left)
	w.str(" IS ")
	if e.Not {
		w.str("NOT ")
	}
	w.str("DISTINCT FROM ")
	w.node(e.Right)
}

// InExpr is `x [NOT] IN (list)` or `x [NOT] IN (subquery)`.
type InExpr struct {
	Operand  Expr
	Not      bool
	List     []Expr
	Subquery *SelectStmt
}

func (e *InExpr) exprNode() {}
func (e *InExpr) writeSQL(w *Writer) {
	w.node(e.Operand)
	if e.Not {
		w.str(" NOT")
	}
	w.str(" IN (")
	if e.Subquery != nil {
		w.node(e.Subquery)
	} else {
		w.exprList(e.List)
	}
	w.byte(')')
}

// Between is `x [NOT] BETWEEN low AND high`.
type Between struct {
	Operand   Expr
	Not       bool
	Low, High Expr
}

func (e *Between) exprNode() {}
func (e *Between) writeSQL(w *Writer) {
	w.node(e.Operand)
	if e.Not {
		w.str(" NOT")
	}
	w.str(" BETWEEN ")
	w.node(e.Low)
	w.str(" AND ")
	w.node(e.High)
}

// PatternMatch is LIKE, ILIKE or SIMILAR TO with an optional ESCAPE.
type PatternMatch struct {
	Operand Expr
	Not     bool
	Op      string // LIKE, ILIKE or SIMILAR TO
	Pattern Expr
	Escape  Expr
}

func (e *PatternMatch) exprNode() {}
func (e *PatternMatch) writeSQL(w *Writer) {
	w.node(e.Operand)
	if e.Not {
		w.str(" NOT")
	}
	w.space()
	w.str(e.Op)
	w.space()
	w.node(e.Pattern)
	if e.Escape != nil {
		w.str(" ESCAPE ")
		w.node(e.Escape)
	}
}

// When is one WHEN/THEN arm of a CASE expression.
type When struct {
	Cond Expr
	Then Expr
}

// CaseExpr is a simple or searched CASE.
type CaseExpr struct {
	Operand Expr // nil for the searched form
	Whens   []When
	Else    Expr
}

func (e *CaseExpr) exprNode() {}
func (e *CaseExpr) writeSQL(w *Writer) {
	w.str("CASE")
	if e.Operand != nil {
		w.space()
		w.node(e.Operand)
	}
	for _, wh := range e.Whens {
		w.str(" WHEN ")
		w.node(wh.Cond)
		w.str(" THEN ")
		w.node(wh.Then)
	}
	if e.Else != nil {
		w.str(" ELSE ")
		w.node(e.Else)
	}
	w.str(" END")
}

// CastExpr is CAST(x AS type) or the :: operator form; both render as the
// form they were written in.
type CastExpr struct {
	Operand  Expr
	Type     string
	Operator bool // true for x::type
}

func (e *CastExpr) exprNode() {}
func (e *CastExpr) writeSQL(w *Writer) {
	if e.Operator {
		w.node(e.Operand)
		w.str("::")
		w.str(e.Type)
		return
	}
	w.str("CAST(")
	w.node(e.Operand)
	w.str(" AS ")
	w.str(e.Type)
	w.byte(')')
}

// Exists is [NOT] EXISTS (subquery).
type Exists struct {
	Not      bool
	Subquery *SelectStmt
}

func (e *Exists) exprNode() {}
func (e *Exists) writeSQL(w *Writer) {
	if e.Not {
		w.str("NOT ")
	}
	w.str("EXISTS (")
	w.node(e.Subquery)
	w.byte(')')
}

// Subquery is a scalar subquery in expression position.
type Subquery struct {
	Select *SelectStmt
}

func (e *Subquery) exprNode() {}
func (e *Subquery) writeSQL(w *Writer) {
	w.byte('(')
	w.node(e.Select)
	w.byte(')')
}

// FuncCall is a function invocation, possibly with DISTINCT, a star
// argument, FILTER and a window.
type FuncCall struct {
	Name     string
	Pos      int
	Distinct bool
	Star     bool
	Args     []Expr
	Filter   Expr
	Over     *WindowRef
}

func (e *FuncCall) exprNode() {}
func (e *FuncCall) writeSQL(w *Writer) {
	w.str(e.Name)
	w.byte('(')
	if e.Distinct {
		w.str("DISTINCT ")
	}
	if e.Star {
		w.byte('*')
	} else {
		w.exprList(e.Args)
	}
	w.byte(')')
	if e.Filter != nil {
		w.str(" FILTER (WHERE ")
		w.node(e.Filter)
		w.byte(')')
	}
	if e.Over != nil {
		w.str(" OVER ")
		e.Over.writeSQL(w)
	}
}

// Collate is `x COLLATE name`.
type Collate struct {
	Operand   Expr
	Collation string
}

func (e *Collate) exprNode() {}
func (e *Collate) writeSQL(w *Writer) {
	w.node(e.Operand)
	w.str(" COLLATE ")
	w.str(e.Collation)
}

// Tuple is a parenthesized expression list with two or more elements.
type Tuple struct {
	Items []Expr
}

func (e *Tuple) exprNode() {}
func (e *Tuple) writeSQL(w *Writer) {
	w.byte('(')
	w.exprList(e.Items)
	w.byte(')')
}

// ArrayExpr is ARRAY[...].
type ArrayExpr struct {
	Items []Expr
}

func (e *ArrayExpr) exprNode() {}
func (e *ArrayExpr) writeSQL(w *Writer) {
	w.str("ARRAY[")
	w.exprList(e.Items)
	w.byte(']')
}

// Interval is INTERVAL <value> [unit].
type Interval struct {
	Value Expr
	Unit  string
}

func (e *Interval) exprNode() {}
func (e *Interval) writeSQL(w *Writer) {
	w.str("INTERVAL ")
	w.node(e.Value)
	if e.Unit != "" {
		w.space()
		w.str(e.Unit)
	}
}

// Paren is an explicitly parenthesized expression, preserved so output
// round-trips without re-deriving precedence.
type Paren struct {
	Inner Expr
}

func (e *Paren) exprNode() {}
func (e *Paren) writeSQL(w *Writer) {
	w.byte('(')
	w.node(e.Inner)
	w.byte(')')
}

// OrderItem is one ORDER BY element.
type OrderItem struct {
	Expr  Expr
	Desc  bool
	Nulls string // "", "FIRST" or "LAST"
}

func (o *OrderItem) writeSQL(w *Writer) {
	w.node(o.Expr)
	if o.Desc {
		w.str(" DESC")
	}
	if o.Nulls != "" {
		w.str(" NULLS ")
		w.str(o.Nulls)
	}
}

// WindowSpec is the inside of an OVER (...) or a named window definition.
type WindowSpec struct {
	Base        string // existing window to extend
	PartitionBy []Expr
	OrderBy     []OrderItem
	Frame       *FrameClause
}

func (s *WindowSpec) writeSQL(w *Writer) {
	first := true
	sep := func() {
		if !first {
			w.space()
		}
		first = false
	}
	if s.Base != "" {
		sep()
		w.str(s.Base)
	}
	if len(s.PartitionBy) > 0 {
		sep()
		w.str("PARTITION BY ")
		w.exprList(s.PartitionBy)
	}
	if len(s.OrderBy) > 0 {
		sep()
		w.str("ORDER BY ")
		writeOrderList(w, s.OrderBy)
	}
	if s.Frame != nil {
		sep()
		s.Frame.writeSQL(w)
	}
}

// WindowRef follows OVER: either a window name or an inline spec.
type WindowRef struct {
	Name string
	Spec *WindowSpec
}

func (r *WindowRef) writeSQL(w *Writer) {
	if r.Name != "" {
		w.str(r.Name)
		return
	}
	w.byte('(')
	r.Spec.writeSQL(w)
	w.byte(')')
}

// FrameBound is one end of a window frame.
type FrameBound struct {
	Kind   string // UNBOUNDED PRECEDING, PRECEDING, CURRENT ROW, FOLLOWING, UNBOUNDED FOLLOWING
	Offset Expr   // for PRECEDING/FOLLOWING with an offset
}

func (b *FrameBound) writeSQL(w *Writer) {
	if b.Offset != nil {
		w.node(b.Offset)
		w.space()
	}
	w.str(b.Kind)
}

// FrameClause is a window frame (ROWS, RANGE or GROUPS).
type FrameClause struct {
	Unit  string
	Start FrameBound
	End   *FrameBound
}

func (f *FrameClause) writeSQL(w *Writer) {
	w.str(f.Unit)
	w.space()
	if f.End != nil {
		w.str("BETWEEN ")
		f.Start.writeSQL(w)
		w.str(" AND ")
		f.End.writeSQL(w)
		return
	}
	f.Start.writeSQL(w)
}

// WindowDef is a named window in a WINDOW clause.
type WindowDef struct {
	Name string
	Spec WindowSpec
}

// SelectItem is one projection element.
type SelectItem struct {
	Expr  Expr
	Alias string
}

func (s *SelectItem) writeSQL(w *Writer) {
	w.node(s.Expr)
	if s.Alias != "" {
		w.str(" AS ")
		w.str(s.Alias)
	}
}

// ObjectName is a dotted table or view name.
type ObjectName []Ident

func (n ObjectName) writeSQL(w *Writer) {
	for i, p := range n {
		if i > 0 {
			w.byte('.')
		}
		w.ident(p)
	}
}

// Last returns the final name component.
func (n ObjectName) Last() string {
	if len(n) == 0 {
		return ""
	}
	return n[len(n)-1].Name
}

// TableName is a named table in a FROM clause, with an optional alias.
type TableName struct {
	Name  ObjectName
	Alias string
}

func (t *TableName) tableExpr() {}
func (t *TableName) writeSQL(w *Writer) {
	t.Name.writeSQL(w)
	if t.Alias != "" {
		w.str(" AS ")
		w.str(t.Alias)
	}
}

// DerivedTable is a subquery in a FROM clause.
type DerivedTable struct {
	Select *SelectStmt
	Alias  string
}

func (t *DerivedTable) tableExpr() {}
func (t *DerivedTable) writeSQL(w *Writer) {
	w.byte('(')
	w.node(t.Select)
	w.byte(')')
	if t.Alias != "" {
		w.str(" AS ")
		w.str(t.Alias)
	}
}

// FuncTable is a table-function call in a FROM clause.
type FuncTable struct {
	Call  *FuncCall
	Alias string
}

func (t *FuncTable) tableExpr() {}
func (t *FuncTable) writeSQL(w *Writer) {
	t.Call.writeSQL(w)
	if t.Alias != "" {
		w.str(" AS ")
		w.str(t.Alias)
	}
}

// ParenTable is a parenthesized join tree.
type ParenTable struct {
	Inner TableExpr
}

func (t *ParenTable) tableExpr() {}
func (t *ParenTable) writeSQL(w *Writer) {
	w.byte('(')
	w.node(t.Inner)
	w.byte(')')
}

// JoinExpr is a binary join between two table expressions.
type JoinExpr struct {
	Left    TableExpr
	Right   TableExpr
	Type    string // JOIN, INNER JOIN, LEFT JOIN, ... CROSS JOIN
	Natural bool
	On      Expr
	Using   []string
}

func (t *JoinExpr) tableExpr() {}
func (t *JoinExpr) writeSQL(w *Writer) {
	w.node(t.Left)
	w.space()
	if t.Natural {
		w.str("NATURAL ")
	}
	w.str(t.Type)
	w.space()
	w.node(t.Right)
	if t.On != nil {
		w.str(" ON ")
		w.node(t.On)
	}
	if len(t.Using) > 0 {
		w.str(" USING (")
		w.str(strings.Join(t.Using, ", "))
		w.byte(')')
	}
}

// CTE is one common table expression of a WITH clause.
type CTE struct {
	Name    string
	Columns []string
	Select  *SelectStmt
}

// WithClause is a WITH [RECURSIVE] prefix.
type WithClause struct {
	Recursive bool
	CTEs      []CTE
}

func (c *WithClause) writeSQL(w *Writer) {
	w.str("WITH ")
	if c.Recursive {
		w.str("RECURSIVE ")
	}
	for i, cte := range c.CTEs {
		if i > 0 {
			w.str(", ")
		}
		w.str(cte.Name)
		if len(cte.Columns) > 0 {
			w.str(" (")
			w.str(strings.Join(cte.Columns, ", "))
			w.byte(')')
		}
		w.str(" AS (")
		w.node(cte.Select)
		w.byte(')')
	}
	w.space()
}

// SelectCore is one SELECT body, without set operations or the trailing
// ORDER BY/LIMIT that apply to the whole compound.
type SelectCore struct {
	Distinct   bool
	DistinctOn []Expr
	Items      []SelectItem
	From       []TableExpr
	Where      Expr
	GroupBy    []Expr
	Having     Expr
	Windows    []WindowDef
}

func (c *SelectCore) writeSQL(w *Writer) {
	w.str("SELECT ")
	if len(c.DistinctOn) > 0 {
		w.str("DISTINCT ON (")
		w.exprList(c.DistinctOn)
		w.str(") ")
	} else if c.Distinct {
		w.str("DISTINCT ")
	}
	for i := range c.Items {
		if i > 0 {
			w.str(", ")
		}
		c.Items[i].writeSQL(w)
	}
	if len(c.From) > 0 {
		w.str(" FROM ")
		for i, t := range c.From {
			if i > 0 {
				w.str(", ")
			}
			w.node(t)
		}
	}
	if c.Where != nil {
		w.str(" WHERE ")
		w.node(c.Where)
	}
	if len(c.GroupBy) > 0 {
		w.str(" GROUP BY ")
		w.exprList(c.GroupBy)
	}
	if c.Having != nil {
		w.str(" HAVING ")
		w.node(c.Having)
	}
	if len(c.Windows) > 0 {
		w.str(" WINDOW ")
		for i, wd := range c.Windows {
			if i > 0 {
				w.str(", ")
			}
			w.str(wd.Name)
			w.str(" AS (")
			wd.Spec.writeSQL(w)
			w.byte(')')
		}
	}
}

// Compound is one set-operation arm following the first SELECT core.
type Compound struct {
	Op   string // UNION, UNION ALL, INTERSECT, INTERSECT ALL, EXCEPT, EXCEPT ALL
	Core *SelectCore
}

// SelectStmt is a full SELECT, including set operations and the trailing
// ORDER BY/LIMIT/OFFSET that apply to the whole compound.
type SelectStmt struct {
	With      *WithClause
	Core      *SelectCore
	Compounds []Compound
	OrderBy   []OrderItem
	Limit     Expr
	Offset    Expr
}

func (s *SelectStmt) stmtNode() {}
func (s *SelectStmt) writeSQL(w *Writer) {
	if s.With != nil {
		s.With.writeSQL(w)
	}
	s.Core.writeSQL(w)
	for _, c := range s.Compounds {
		w.space()
		w.str(c.Op)
		w.space()
		c.Core.writeSQL(w)
	}
	if len(s.OrderBy) > 0 {
		w.str(" ORDER BY ")
		writeOrderList(w, s.OrderBy)
	}
	if s.Limit != nil {
		w.str(" LIMIT ")
		w.node(s.Limit)
	}
	if s.Offset != nil {
		w.str(" OFFSET ")
		w.node(s.Offset)
	}
}

// String renders with generic-dialect quoting, for diagnostics.
func (s *SelectStmt) String() string { return Render(dialect.Generic, s) }

// HasJoin reports whether any FROM element in any core is a join.
func (s *SelectStmt) HasJoin() bool {
	cores := []*SelectCore{s.Core}
	for _, c := range s.Compounds {
		cores = append(cores, c.Core)
	}
	for _, core := range cores {
		for _, t := range core.From {
			if containsJoin(t) {
				return true
			}
		}
	}
	return false
}

func containsJoin(t TableExpr) bool {
	switch t := t.(type) {
	case *JoinExpr:
		return true
	case *ParenTable:
		return containsJoin(t.Inner)
	}
	return false
}

// HasGroupBy reports whether any core carries a GROUP BY.
func (s *SelectStmt) HasGroupBy() bool {
	if len(s.Core.GroupBy) > 0 {
		return true
	}
	for _, c := range s.Compounds {
		if len(c.Core.GroupBy) > 0 {
			return true
		}
	}
	return false
}

// Assignment is `column = value` in SET or conflict-update lists.
type Assignment struct {
	Column Expr // Ident or Qualified
	Value  Expr
}

func (a *Assignment) writeSQL(w *Writer) {
	w.node(a.Column)
	w.str(" = ")
	w.node(a.Value)
}

// ConflictClause is Postgres/SQLite ON CONFLICT.
type ConflictClause struct {
	Columns   []string
	DoNothing bool
	Updates   []Assignment
	Where     Expr
}

func (c *ConflictClause) writeSQL(w *Writer) {
	w.str("ON CONFLICT")
	if len(c.Columns) > 0 {
		w.str(" (")
		w.str(strings.Join(c.Columns, ", "))
		w.byte(')')
	}
	if c.DoNothing {
		w.str(" DO NOTHING")
		return
	}
	w.str(" DO UPDATE SET ")
	writeAssignments(w, c.Updates)
	if c.Where != nil {
		w.str(" WHERE ")
		w.node(c.Where)
	}
}

// InsertStmt is INSERT with a VALUES or SELECT source.
type InsertStmt struct {
	With          *WithClause
	Table         TableName
	Columns       []string
	Values        [][]Expr
	Select        *SelectStmt
	DefaultValues bool
	OnConflict    *ConflictClause // Postgres/SQLite
	OnDuplicate   []Assignment    // MySQL ON DUPLICATE KEY UPDATE
	Returning     []SelectItem
}

func (s *InsertStmt) stmtNode() {}
func (s *InsertStmt) writeSQL(w *Writer) {
	if s.With != nil {
		s.With.writeSQL(w)
	}
	w.str("INSERT INTO ")
	s.Table.writeSQL(w)
	if len(s.Columns) > 0 {
		w.str(" (")
		w.str(strings.Join(s.Columns, ", "))
		w.byte(')')
	}
	switch {
	case s.DefaultValues:
		w.str(" DEFAULT VALUES")
	case s.Select != nil:
		w.space()
		w.node(s.Select)
	default:
		w.str(" VALUES ")
		for i, row := range s.Values {
			if i > 0 {
				w.str(", ")
			}
			w.byte('(')
			w.exprList(row)
			w.byte(')')
		}
	}
	if s.OnConflict != nil {
		w.space()
		s.OnConflict.writeSQL(w)
	}
	if len(s.OnDuplicate) > 0 {
		w.str(" ON DUPLICATE KEY UPDATE ")
		writeAssignments(w, s.OnDuplicate)
	}
	writeReturning(w, s.Returning)
}

// String renders with generic-dialect quoting, for diagnostics.
func (s *InsertStmt) String() string { return Render(dialect.Generic, s) }

// UpdateStmt is UPDATE ... SET ... [FROM] [WHERE] [RETURNING].
type UpdateStmt struct {
	With      *WithClause
	Table     TableName
	Set       []Assignment
	From      []TableExpr
	Where     Expr
	Returning []SelectItem
}

func (s *UpdateStmt) stmtNode() {}
func (s *UpdateStmt) writeSQL(w *Writer) {
	if s.With != nil {
		s.With.writeSQL(w)
	}
	w.str("UPDATE ")
	s.Table.writeSQL(w)
	w.str(" SET ")
	writeAssignments(w, s.Set)
	if len(s.From) > 0 {
		w.str(" FROM ")
		for i, t := range s.From {
			if i > 0 {
				w.str(", ")
			}
			w.node(t)
		}
	}
	if s.Where != nil {
		w.str(" WHERE ")
		w.node(s.Where)
	}
	writeReturning(w, s.Returning)
}

// String renders with generic-dialect quoting, for diagnostics.
func (s *UpdateStmt) String() string { return Render(dialect.Generic, s) }

// DeleteStmt is DELETE FROM ... [USING] [WHERE] [ORDER BY/LIMIT] [RETURNING].
type DeleteStmt struct {
	With      *WithClause
	Table     TableName
	Using     []TableExpr
	Where     Expr
	OrderBy   []OrderItem
	Limit     Expr
	Returning []SelectItem
}

func (s *DeleteStmt) stmtNode() {}
func (s *DeleteStmt) writeSQL(w *Writer) {
	if s.With != nil {
		s.With.writeSQL(w)
	}
	w.str("DELETE FROM ")
	s.Table.writeSQL(w)
	if len(s.Using) > 0 {
		w.str(" USING ")
		for i, t := range s.Using {
			if i > 0 {
				w.str(", ")
			}
			w.node(t)
		}
	}
	if s.Where != nil {
		w.str(" WHERE ")
		w.node(s.Where)
	}
	if len(s.OrderBy) > 0 {
		w.str(" ORDER BY ")
		writeOrderList(w, s.OrderBy)
	}
	if s.Limit != nil {
		w.str(" LIMIT ")
		w.node(s.Limit)
	}
	writeReturning(w, s.Returning)
}

// String renders with generic-dialect quoting, for diagnostics.
func (s *DeleteStmt) String() string { return Render(dialect.Generic, s) }

// Kind returns the statement keyword, for mode checks and error messages.
func Kind(s Statement) string {
	switch s.(type) {
	case *SelectStmt:
		return "SELECT"
	case *InsertStmt:
		return "INSERT"
	case *UpdateStmt:
		return "UPDATE"
	case *DeleteStmt:
		return "DELETE"
	}
	return "UNKNOWN"
}

func writeOrderList(w *Writer, items []OrderItem) {
	for i := range items {
		if i > 0 {
			w.str(", ")
		}
		items[i].writeSQL(w)
	}
}

func writeAssignments(w *Writer, list []Assignment) {
	for i := range list {
		if i > 0 {
			w.str(", ")
		}
		list[i].writeSQL(w)
	}
}

func writeReturning(w *Writer, items []SelectItem) {
	if len(items) == 0 {
		return
	}
	w.str(" RETURNING ")
	for i := range items {
		if i > 0 {
			w.str(", ")
		}
		items[i].writeSQL(w)
	}
}
