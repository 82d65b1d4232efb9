package compiler

import (
	"fmt"
	"sort"

	"github.com/syssam/sqlt"
	"github.com/syssam/sqlt/dialect"
	"github.com/syssam/sqlt/parser"
	"github.com/syssam/sqlt/rewrite"
	"github.com/syssam/sqlt/scan"
	"github.com/syssam/sqlt/schema"
)

// Compile compiles one spec against an entity. The entity may be nil only
// for free-standing raw SQL specs. Compilation is pure: the spec and entity
// are never mutated and identical inputs produce identical output.
func Compile(entity *schema.Entity, spec Spec) (*Compiled, error) {
	c, err := newComp(entity, spec)
	if err != nil {
		return nil, wrap(entity, spec, err)
	}
	var out *Compiled
	if c.spec.SQL != "" {
		out, err = c.compileRaw()
	} else {
		out, err = c.compileFields()
	}
	if err != nil {
		return nil, wrap(entity, spec, err)
	}
	return out, nil
}

func wrap(entity *schema.Entity, spec Spec, err error) error {
	table := ""
	if entity != nil {
		table = entity.Table()
	}
	return sqlt.NewCompileError(table, spec.Name, err)
}

type comp struct {
	entity *schema.Entity
	spec   Spec
	d      dialect.Dialect

	// ad hoc parameters from $Type annotations or raw-spec declarations,
	// with insertion order kept for deterministic signatures
	adhoc map[string]schema.Type
	// fragment placeholder name -> entity column it is compared against
	mapped map[string]string
	// filter-key columns; fragment placeholders pinned to one of these
	// reuse the key's parameter instead of minting their own
	byKey map[string]bool
}

func newComp(entity *schema.Entity, spec Spec) (*comp, error) {
	if spec.Name == "" {
		return nil, sqlt.NewValidateError("spec has no name", "")
	}
	if !spec.Mode.Valid() {
		return nil, sqlt.NewValidateError("unknown mode", string(spec.Mode))
	}
	d := spec.Dialect
	if d == "" {
		d = dialect.Generic
	}
	if !d.Valid() {
		return nil, sqlt.NewValidateError("unknown dialect", spec.Dialect.String())
	}
	if spec.SQL == "" && spec.SQLFile != "" {
		return nil, sqlt.NewValidateError("sql_file was not resolved before compiling", spec.SQLFile)
	}
	if spec.SQL == "" && entity == nil {
		return nil, sqlt.NewValidateError("spec without raw SQL requires an entity", spec.Name)
	}
	if spec.SQL != "" && (len(spec.By) > 0 || len(spec.On) > 0 || len(spec.Order) > 0 || spec.Where != "") {
		return nil, sqlt.NewValidateError("raw SQL specs cannot declare filter, set or order fields", spec.Name)
	}
	c := &comp{
		entity: entity,
		spec:   spec,
		d:      d,
		adhoc:  make(map[string]schema.Type),
		mapped: make(map[string]string),
		byKey:  make(map[string]bool),
	}
	c.spec.Shape = defaultShape(c.spec)
	if !c.spec.Shape.Valid() {
		return nil, sqlt.NewValidateError("unknown shape", string(spec.Shape))
	}
	if err := c.checkShape(); err != nil {
		return nil, err
	}
	return c, nil
}

func defaultShape(spec Spec) Shape {
	if spec.Shape != "" {
		return spec.Shape
	}
	if spec.Mode == ModeSelect {
		return ShapeList
	}
	if spec.Returning {
		return ShapeSingle
	}
	return ShapeRowsAffected
}

func (c *comp) checkShape() error {
	s, m := c.spec.Shape, c.spec.Mode
	if m == ModeSelect {
		switch s {
		case ShapeList, ShapeSingle, ShapeOptional, ShapeStream, ShapePage, ShapeCount:
			return nil
		case ShapeScalar:
			if c.spec.SQL == "" {
				return sqlt.NewValidateError("scalar shape requires raw SQL", string(s))
			}
			return nil
		}
		return sqlt.NewValidateError("shape not valid for select mode", string(s))
	}
	if c.spec.Returning {
		if c.d == dialect.MySQL {
			return sqlt.NewValidateError("RETURNING is not supported on mysql", string(m))
		}
		switch s {
		case ShapeSingle, ShapeOptional, ShapeList:
			return nil
		}
		return sqlt.NewValidateError("shape not valid with RETURNING", string(s))
	}
	switch s {
	case ShapeRowsAffected, ShapeVoid:
		return nil
	}
	return sqlt.NewValidateError("shape requires RETURNING", string(s))
}

// --- shared helpers ---

func (c *comp) colIdent(name string) *parser.Ident {
	return &parser.Ident{Name: name, Quoted: c.d.QuoteColumn(name) != name}
}

func (c *comp) tableRef() parser.TableName {
	t := c.entity.Table()
	return parser.TableName{Name: parser.ObjectName{{Name: t}}}
}

func (c *comp) allItems() []parser.SelectItem {
	fields := c.entity.Fields()
	items := make([]parser.SelectItem, len(fields))
	for i, f := range fields {
		items[i] = parser.SelectItem{Expr: c.colIdent(f.Name)}
	}
	return items
}

func andJoin(exprs []parser.Expr) parser.Expr {
	var out parser.Expr
	for _, e := range exprs {
		if e == nil {
			continue
		}
		if out == nil {
			out = e
			continue
		}
		out = &parser.Binary{Left: out, Op: "AND", Right: e}
	}
	return out
}

// checkFields validates a field list against the entity and returns a
// name-sorted copy.
func (c *comp) checkFields(list []string, what string) ([]string, error) {
	seen := make(map[string]bool, len(list))
	out := make([]string, 0, len(list))
	for _, name := range list {
		if !c.entity.Has(name) {
			return nil, sqlt.NewValidateError("unknown "+what+" field", name)
		}
		if seen[name] {
			return nil, sqlt.NewValidateError("duplicate "+what+" field", name)
		}
		seen[name] = true
		out = append(out, name)
	}
	sort.Strings(out)
	return out, nil
}

// equality builds the `f = :f` predicate list for the sorted filter fields.
func (c *comp) equality(fields []string) []parser.Expr {
	out := make([]parser.Expr, len(fields))
	for i, f := range fields {
		out[i] = &parser.Binary{
			Left:  c.colIdent(f),
			Op:    "=",
			Right: &parser.NamedPlaceholder{Text: f},
		}
	}
	return out
}

// resolveFragment parses the spec's ad hoc WHERE fragment, runs the
// restricted walk, whitelists its identifiers and resolves every
// placeholder: a $Type annotation declares an ad hoc parameter, a
// placeholder pinned to a known column borrows that field's type, anything
// else is an error naming the placeholder.
func (c *comp) resolveFragment() (parser.Expr, error) {
	expr, err := parser.ParseExpr(c.d, c.spec.Where)
	if err != nil {
		return nil, err
	}
	info, err := scan.Fragment(expr)
	if err != nil {
		return nil, err
	}
	for _, col := range sortedKeys(info.Columns) {
		if !c.entity.Has(col) {
			return nil, sqlt.NewValidateError("unknown column in condition fragment", col)
		}
	}
	for _, tbl := range sortedKeys(info.Tables) {
		if tbl != c.entity.Table() {
			return nil, sqlt.NewValidateError("unknown table in condition fragment", tbl)
		}
	}
	for _, p := range info.Params {
		if p.Positional {
			return nil, sqlt.NewValidateError("positional markers are not allowed in spec fragments", "?")
		}
		ph := p.Named
		switch {
		case ph.Type != "":
			t, ok := AnnotationType(ph.Type)
			if !ok {
				return nil, sqlt.NewPlaceholderError(ph.Raw, "has unknown type annotation $"+ph.Type)
			}
			if prev, dup := c.adhoc[ph.Name]; dup && prev != t {
				return nil, sqlt.NewPlaceholderError(ph.Raw, "has conflicting type annotations")
			}
			c.adhoc[ph.Name] = t
		case p.Column != "":
			if _, ok := c.entity.Field(p.Column); !ok {
				return nil, sqlt.NewValidateError("unknown column in condition fragment", p.Column)
			}
			c.mapped[ph.Name] = p.Column
		default:
			return nil, sqlt.NewPlaceholderError(ph.Raw, "cannot be resolved to a column or type annotation")
		}
	}
	return expr, nil
}

func (c *comp) markKey(by []string) {
	for _, f := range by {
		c.byKey[f] = true
	}
}

func sortedKeys(m map[string]bool) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// availParams is the parameter set the final statement may reference.
func (c *comp) availParams() map[string]bool {
	set := make(map[string]bool)
	if c.entity != nil {
		for _, f := range c.entity.Fields() {
			set[f.Name] = true
		}
	}
	for name := range c.adhoc {
		set[name] = true
	}
	for name := range c.mapped {
		set[name] = true
	}
	for _, p := range c.spec.Params {
		set[p.Name] = true
	}
	return set
}

// bindFor types one renumbered slot by its source name. Ad hoc annotations
// win over entity fields of the same name.
func (c *comp) bindFor(name string) (Bind, error) {
	if t, ok := c.adhoc[name]; ok {
		return Bind{Param: name, Type: t}, nil
	}
	if col, ok := c.mapped[name]; ok {
		f, _ := c.entity.Field(col)
		if c.byKey[col] {
			return Bind{Param: col, Field: col, Type: f.Type}, nil
		}
		return Bind{Param: name, Field: col, Type: f.Type}, nil
	}
	if c.entity != nil {
		if f, ok := c.entity.Field(name); ok {
			return Bind{Param: name, Field: name, Type: f.Type}, nil
		}
	}
	for _, p := range c.spec.Params {
		if p.Name == name {
			return Bind{Param: name, Type: p.Type}, nil
		}
	}
	if name == "limit" || name == "offset" {
		return Bind{Param: name, Type: schema.TypeInt64}, nil
	}
	return Bind{}, sqlt.NewPlaceholderError(":"+name, "does not resolve to any declared parameter")
}

// finish renumbers a statement and types its bind slots.
func (c *comp) finish(stmt parser.Statement) (string, []Bind, error) {
	ren, err := rewrite.Renumber(c.d, stmt, 1)
	if err != nil {
		return "", nil, err
	}
	binds := make([]Bind, len(ren.Names))
	for i, name := range ren.Names {
		b, err := c.bindFor(name)
		if err != nil {
			return "", nil, err
		}
		binds[i] = b
	}
	return ren.SQL, binds, nil
}

// signature derives the ordered, deduplicated parameter list from the bind
// slots; a value bound into two slots is still one caller parameter.
func (c *comp) signature(binds []Bind) Signature {
	sig := Signature{Name: c.spec.Name, Shape: c.spec.Shape}
	if c.entity != nil {
		sig.Entity = c.entity.Table()
	}
	seen := make(map[string]bool, len(binds))
	for _, b := range binds {
		if seen[b.Param] {
			continue
		}
		seen[b.Param] = true
		sig.Params = append(sig.Params, Param{Name: b.Param, Type: b.Type})
	}
	return sig
}

func (c *comp) result(stmt parser.Statement, countStmt parser.Statement) (*Compiled, error) {
	sql, binds, err := c.finish(stmt)
	if err != nil {
		return nil, err
	}
	out := &Compiled{
		Name:    c.spec.Name,
		Dialect: c.d,
		Mode:    c.spec.Mode,
		Shape:   c.spec.Shape,
		SQL:     sql,
		Binds:   binds,
	}
	if c.entity != nil {
		out.Entity = c.entity.Table()
	}
	if countStmt != nil {
		countSQL, countBinds, err := c.finish(countStmt)
		if err != nil {
			return nil, err
		}
		out.CountSQL = countSQL
		out.CountBinds = countBinds
	}
	out.Signature = c.signature(binds)
	return out, nil
}

// --- field-based compilation ---

func (c *comp) compileFields() (*Compiled, error) {
	switch c.spec.Mode {
	case ModeSelect:
		return c.compileSelect()
	case ModeInsert:
		return c.compileInsert()
	case ModeUpdate:
		return c.compileUpdate()
	case ModeDelete:
		return c.compileDelete()
	case ModeUpsert:
		return c.compileUpsert()
	}
	return nil, sqlt.NewValidateError("unknown mode", string(c.spec.Mode))
}

func (c *comp) whereClause() (parser.Expr, error) {
	by, err := c.checkFields(c.spec.By, "filter")
	if err != nil {
		return nil, err
	}
	c.markKey(by)
	preds := c.equality(by)
	if c.spec.Where != "" {
		frag, err := c.resolveFragment()
		if err != nil {
			return nil, err
		}
		preds = append(preds, &parser.Paren{Inner: frag})
	}
	return andJoin(preds), nil
}

func (c *comp) orderItems() ([]parser.OrderItem, error) {
	if len(c.spec.Order) == 0 {
		return nil, nil
	}
	seen := make(map[string]bool, len(c.spec.Order))
	items := make([]parser.OrderItem, len(c.spec.Order))
	for i, o := range c.spec.Order {
		if !c.entity.Has(o.Name) {
			return nil, sqlt.NewValidateError("unknown order field", o.Name)
		}
		if seen[o.Name] {
			return nil, sqlt.NewValidateError("duplicate order field", o.Name)
		}
		seen[o.Name] = true
		items[i] = parser.OrderItem{Expr: c.colIdent(o.Name), Desc: o.Desc}
	}
	return items, nil
}

func (c *comp) compileSelect() (*Compiled, error) {
	where, err := c.whereClause()
	if err != nil {
		return nil, err
	}
	order, err := c.orderItems()
	if err != nil {
		return nil, err
	}
	table := c.tableRef()
	stmt := &parser.SelectStmt{
		Core: &parser.SelectCore{
			Items: c.allItems(),
			From:  []parser.TableExpr{&table},
			Where: where,
		},
		OrderBy: order,
	}
	switch c.spec.Shape {
	case ShapeCount:
		count, err := rewrite.Count(stmt)
		if err != nil {
			return nil, err
		}
		return c.result(count, nil)
	case ShapePage:
		paged, err := rewrite.Page(stmt, c.availParams())
		if err != nil {
			return nil, err
		}
		count, err := rewrite.Count(stmt)
		if err != nil {
			return nil, err
		}
		return c.result(paged, count)
	}
	return c.result(stmt, nil)
}

func (c *comp) compileDelete() (*Compiled, error) {
	where, err := c.whereClause()
	if err != nil {
		return nil, err
	}
	stmt := &parser.DeleteStmt{Table: c.tableRef(), Where: where}
	if c.spec.Returning {
		stmt.Returning = c.allItems()
	}
	return c.result(stmt, nil)
}

func (c *comp) compileInsert() (*Compiled, error) {
	if len(c.spec.By) > 0 || len(c.spec.On) > 0 || c.spec.Where != "" {
		return nil, sqlt.NewValidateError("insert specs take no filter, set or where fields", c.spec.Name)
	}
	cols, row := c.insertSource()
	stmt := &parser.InsertStmt{
		Table:   c.tableRef(),
		Columns: cols,
		Values:  [][]parser.Expr{row},
	}
	if c.spec.Returning {
		stmt.Returning = c.allItems()
	}
	return c.result(stmt, nil)
}

// insertSource lists the insertable columns (database-generated fields
// excluded) and their placeholder row.
func (c *comp) insertSource() ([]string, []parser.Expr) {
	var cols []string
	var row []parser.Expr
	for _, f := range c.entity.Fields() {
		if f.Generated {
			continue
		}
		cols = append(cols, c.d.QuoteColumn(f.Name))
		row = append(row, &parser.NamedPlaceholder{Text: f.Name})
	}
	return cols, row
}

// lockField resolves the optimistic-lock field for update and upsert specs:
// the spec's explicit choice, or the entity's lock counter.
func (c *comp) lockField() (string, error) {
	if c.spec.Lock == "" {
		if f, ok := c.entity.Lock(); ok {
			return f.Name, nil
		}
		return "", nil
	}
	f, ok := c.entity.Field(c.spec.Lock)
	if !ok {
		return "", sqlt.NewValidateError("unknown lock field", c.spec.Lock)
	}
	if !f.Type.Integer() {
		return "", sqlt.NewValidateError("lock field must be an integer field", c.spec.Lock)
	}
	return f.Name, nil
}

// setFields resolves the caller-supplied SET list: the spec's On fields, or
// every field minus the filter key, the lock counter and generated fields.
func (c *comp) setFields(by []string, lock string) ([]string, error) {
	isKey := make(map[string]bool, len(by))
	for _, f := range by {
		isKey[f] = true
	}
	if len(c.spec.On) > 0 {
		on, err := c.checkFields(c.spec.On, "set")
		if err != nil {
			return nil, err
		}
		for _, name := range on {
			f, _ := c.entity.Field(name)
			switch {
			case f.Generated:
				return nil, sqlt.NewValidateError("cannot set database-generated field", name)
			case name == lock:
				return nil, sqlt.NewValidateError("lock counter is maintained automatically", name)
			case isKey[name]:
				return nil, sqlt.NewValidateError("field is part of the filter key", name)
			}
		}
		return on, nil
	}
	var out []string
	for _, f := range c.entity.Fields() {
		if f.Generated || f.Name == lock || isKey[f.Name] {
			continue
		}
		out = append(out, f.Name)
	}
	sort.Strings(out)
	if len(out) == 0 {
		return nil, sqlt.NewValidateError("no updatable fields remain", c.entity.Table())
	}
	return out, nil
}

// compileUpdate builds UPDATE ... SET ... WHERE. The lock counter, when
// present, is excluded from the caller SET list, incremented in SET, and
// matched against the caller's current value as the last WHERE predicate,
// so the bind order is SET values, filter values, then the lock value.
func (c *comp) compileUpdate() (*Compiled, error) {
	by, err := c.checkFields(c.spec.By, "filter")
	if err != nil {
		return nil, err
	}
	c.markKey(by)
	lock, err := c.lockField()
	if err != nil {
		return nil, err
	}
	set, err := c.setFields(by, lock)
	if err != nil {
		return nil, err
	}
	assigns := make([]parser.Assignment, 0, len(set)+1)
	for _, f := range set {
		assigns = append(assigns, parser.Assignment{
			Column: c.colIdent(f),
			Value:  &parser.NamedPlaceholder{Text: f},
		})
	}
	if lock != "" {
		assigns = append(assigns, parser.Assignment{
			Column: c.colIdent(lock),
			Value:  &parser.Binary{Left: c.colIdent(lock), Op: "+", Right: &parser.NumberLit{Value: "1"}},
		})
	}
	preds := c.equality(by)
	if c.spec.Where != "" {
		frag, err := c.resolveFragment()
		if err != nil {
			return nil, err
		}
		preds = append(preds, &parser.Paren{Inner: frag})
	}
	if lock != "" {
		preds = append(preds, &parser.Binary{
			Left:  c.colIdent(lock),
			Op:    "=",
			Right: &parser.NamedPlaceholder{Text: lock},
		})
	}
	stmt := &parser.UpdateStmt{
		Table: c.tableRef(),
		Set:   assigns,
		Where: andJoin(preds),
	}
	if c.spec.Returning {
		stmt.Returning = c.allItems()
	}
	return c.result(stmt, nil)
}

// compileUpsert builds an insert with a dialect-specific conflict clause.
// Conflict updates read the incoming row (EXCLUDED.x on Postgres and
// SQLite, VALUES(x) on MySQL); the lock counter is instead incremented from
// the stored row, never taken from the incoming one.
func (c *comp) compileUpsert() (*Compiled, error) {
	if len(c.spec.By) == 0 {
		return nil, sqlt.NewValidateError("upsert requires conflict key fields", c.spec.Name)
	}
	if c.spec.Where != "" {
		return nil, sqlt.NewValidateError("upsert specs take no where fragment", c.spec.Name)
	}
	by, err := c.checkFields(c.spec.By, "conflict key")
	if err != nil {
		return nil, err
	}
	lock, err := c.lockField()
	if err != nil {
		return nil, err
	}
	update, err := c.setFields(by, lock)
	if err != nil {
		return nil, err
	}
	cols, row := c.insertSource()
	stmt := &parser.InsertStmt{
		Table:   c.tableRef(),
		Columns: cols,
		Values:  [][]parser.Expr{row},
	}
	assigns := make([]parser.Assignment, 0, len(update)+1)
	for _, f := range update {
		assigns = append(assigns, parser.Assignment{
			Column: c.colIdent(f),
			Value:  c.incomingValue(f),
		})
	}
	if lock != "" {
		assigns = append(assigns, parser.Assignment{
			Column: c.colIdent(lock),
			Value: &parser.Binary{
				Left:  &parser.Qualified{Parts: []parser.Ident{{Name: c.entity.Table()}, {Name: lock}}},
				Op:    "+",
				Right: &parser.NumberLit{Value: "1"},
			},
		})
	}
	if c.d == dialect.MySQL {
		stmt.OnDuplicate = assigns
	} else {
		keyCols := make([]string, len(by))
		for i, f := range by {
			keyCols[i] = c.d.QuoteColumn(f)
		}
		stmt.OnConflict = &parser.ConflictClause{Columns: keyCols, Updates: assigns}
	}
	if c.spec.Returning {
		stmt.Returning = c.allItems()
	}
	return c.result(stmt, nil)
}

// incomingValue references the inserted value of a column inside a
// conflict-update clause.
func (c *comp) incomingValue(field string) parser.Expr {
	if c.d == dialect.MySQL {
		return &parser.FuncCall{Name: "VALUES", Args: []parser.Expr{c.colIdent(field)}}
	}
	return &parser.Qualified{Parts: []parser.Ident{{Name: "EXCLUDED"}, {Name: field}}}
}

// --- raw SQL compilation ---

func (c *comp) compileRaw() (*Compiled, error) {
	declared := make(map[string]bool, len(c.spec.Params))
	for _, p := range c.spec.Params {
		if p.Name == "" {
			return nil, sqlt.NewValidateError("declared parameter has no name", c.spec.Name)
		}
		if !p.Type.Valid() {
			return nil, sqlt.NewValidateError(
				fmt.Sprintf("declared parameter %s has unknown type", p.Name), string(p.Type))
		}
		if declared[p.Name] {
			return nil, sqlt.NewValidateError("duplicate declared parameter", p.Name)
		}
		declared[p.Name] = true
	}
	stmts, err := parser.Parse(c.d, c.spec.SQL)
	if err != nil {
		return nil, err
	}
	if err := c.adoptAnnotations(stmts); err != nil {
		return nil, err
	}
	stmt, _, err := scan.ValidateStatement(stmts, c.scanMode(), c.availParams())
	if err != nil {
		return nil, err
	}
	switch c.spec.Shape {
	case ShapePage:
		paged, err := rewrite.Page(stmt, c.availParams())
		if err != nil {
			return nil, err
		}
		count, err := rewrite.Count(stmt)
		if err != nil {
			return nil, err
		}
		return c.result(paged, count)
	}
	return c.result(stmt, nil)
}

// adoptAnnotations registers $Type-annotated placeholders of a raw
// statement as ad hoc parameters, so they resolve without an up-front
// declaration. Extraction errors are left for ValidateStatement to report.
func (c *comp) adoptAnnotations(stmts []parser.Statement) error {
	if len(stmts) != 1 {
		return nil
	}
	phs, err := scan.Placeholders(stmts[0])
	if err != nil {
		return nil
	}
	for _, ph := range phs {
		if ph.Type == "" {
			continue
		}
		t, ok := AnnotationType(ph.Type)
		if !ok {
			return sqlt.NewPlaceholderError(ph.Raw, "has unknown type annotation $"+ph.Type)
		}
		if prev, dup := c.adhoc[ph.Name]; dup && prev != t {
			return sqlt.NewPlaceholderError(ph.Raw, "has conflicting type annotations")
		}
		c.adhoc[ph.Name] = t
	}
	return nil
}

func (c *comp) scanMode() scan.Mode {
	switch c.spec.Mode {
	case ModeSelect:
		return scan.ModeSelect
	case ModeInsert, ModeUpsert:
		return scan.ModeInsert
	case ModeUpdate:
		return scan.ModeUpdate
	case ModeDelete:
		return scan.ModeDelete
	}
	return scan.ModeAny
}
