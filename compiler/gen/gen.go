// Package gen renders compiled specs into Go source: one file per entity
// holding its row struct, the compiled SQL constants and a typed access
// function per spec. Files are built with jennifer and written in parallel.
package gen

import (
	"context"
	"os"
	"path/filepath"
	"runtime"

	"github.com/dave/jennifer/jen"
	"github.com/go-openapi/inflect"
	"golang.org/x/sync/errgroup"

	"github.com/syssam/sqlt/compiler"
	"github.com/syssam/sqlt/compiler/load"
	"github.com/syssam/sqlt/schema"
)

const execQuerierPkg = "github.com/syssam/sqlt/dialect/sql"

// Generator writes generated access code for a compiled project.
type Generator struct {
	outDir  string
	pkg     string
	workers int
}

// New creates a generator writing into outDir; the package name defaults
// to the directory base name.
func New(outDir string) *Generator {
	return &Generator{
		outDir:  outDir,
		pkg:     filepath.Base(outDir),
		workers: runtime.GOMAXPROCS(0),
	}
}

// WithPackage overrides the output package name.
func (g *Generator) WithPackage(pkg string) *Generator {
	if pkg != "" {
		g.pkg = pkg
	}
	return g
}

// WithWorkers sets the number of parallel file writers.
func (g *Generator) WithWorkers(n int) *Generator {
	if n > 0 {
		g.workers = n
	}
	return g
}

// Generate writes one file per entity plus a file for free-standing
// operations, in parallel.
func (g *Generator) Generate(ctx context.Context, res *load.Result) error {
	if err := os.MkdirAll(g.outDir, 0o755); err != nil {
		return err
	}
	errg, _ := errgroup.WithContext(ctx)
	errg.SetLimit(g.workers)
	for i := range res.Entities {
		er := res.Entities[i]
		errg.Go(func() error {
			f := g.newFile()
			g.entityFile(f, er)
			return g.writeFile(f, inflect.Underscore(er.Entity.Table())+".go")
		})
	}
	if len(res.Freestanding) > 0 {
		errg.Go(func() error {
			f := g.newFile()
			for _, c := range res.Freestanding {
				g.addSpec(f, nil, "", c)
			}
			return g.writeFile(f, "queries.go")
		})
	}
	return errg.Wait()
}

func (g *Generator) newFile() *jen.File {
	f := jen.NewFile(g.pkg)
	f.HeaderComment("Code generated by sqlt. DO NOT EDIT.")
	return f
}

func (g *Generator) writeFile(f *jen.File, name string) error {
	return f.Save(filepath.Join(g.outDir, name))
}

// entityFile renders the row struct and every spec of one entity.
func (g *Generator) entityFile(f *jen.File, er load.EntityResult) {
	structName := structName(er.Entity.Table())
	fields := er.Entity.Fields()
	f.Commentf("%s is the row type of table %s.", structName, er.Entity.Table())
	f.Type().Id(structName).StructFunc(func(s *jen.Group) {
		for _, fd := range fields {
			s.Id(fieldName(fd.Name)).Add(goType(fd))
		}
	})
	for _, c := range er.Compiled {
		g.addSpec(f, er.Entity, structName, c)
	}
}

// addSpec renders the SQL constants and the access function of one spec.
func (g *Generator) addSpec(f *jen.File, entity *schema.Entity, structName string, c *compiler.Compiled) {
	fn := inflect.Camelize(c.Name)
	constName := inflect.CamelizeDownFirst(c.Name) + "SQL"
	f.Const().Id(constName).Op("=").Lit(c.SQL)
	if c.CountSQL != "" {
		f.Const().Id(constName + "Count").Op("=").Lit(c.CountSQL)
	}
	params := []jen.Code{
		jen.Id("ctx").Qual("context", "Context"),
		jen.Id("q").Qual(execQuerierPkg, "ExecQuerier"),
	}
	for _, p := range c.Signature.Params {
		params = append(params, jen.Id(argName(p.Name)).Add(paramType(p.Type)))
	}
	rowShape := entity != nil && returnsEntityRows(c)
	switch {
	case c.Shape == compiler.ShapeVoid:
		f.Commentf("%s executes the %s statement.", fn, c.Mode)
		f.Func().Id(fn).Params(params...).Error().Block(
			jen.List(jen.Id("_"), jen.Err()).Op(":=").Id("q").Dot("ExecContext").Call(execArgs(constName, c.Binds)...),
			jen.Return(jen.Err()),
		)
	case c.Shape == compiler.ShapeRowsAffected:
		f.Commentf("%s executes the %s statement and reports the affected rows.", fn, c.Mode)
		f.Func().Id(fn).Params(params...).Params(jen.Int64(), jen.Error()).Block(
			jen.List(jen.Id("res"), jen.Err()).Op(":=").Id("q").Dot("ExecContext").Call(execArgs(constName, c.Binds)...),
			jen.If(jen.Err().Op("!=").Nil()).Block(jen.Return(jen.Lit(0), jen.Err())),
			jen.Return(jen.Id("res").Dot("RowsAffected").Call()),
		)
	case c.Shape == compiler.ShapeCount:
		f.Commentf("%s returns the matching row count.", fn)
		f.Func().Id(fn).Params(params...).Params(jen.Int64(), jen.Error()).Block(
			scalarBody(constName, c.Binds, jen.Int64())...,
		)
	case c.Shape == compiler.ShapeScalar:
		f.Commentf("%s returns the query's single scalar value.", fn)
		f.Func().Id(fn).Params(params...).Params(jen.Any(), jen.Error()).Block(
			scalarBody(constName, c.Binds, jen.Any())...,
		)
	case !rowShape:
		// raw SQL with an arbitrary projection: hand the rows to the caller
		f.Commentf("%s runs the query and returns its rows for caller-side scanning.", fn)
		f.Func().Id(fn).Params(params...).Params(jen.Op("*").Qual("database/sql", "Rows"), jen.Error()).Block(
			jen.Return(jen.Id("q").Dot("QueryContext").Call(execArgs(constName, c.Binds)...)),
		)
	case c.Shape == compiler.ShapeList:
		f.Commentf("%s returns every matching row.", fn)
		f.Func().Id(fn).Params(params...).Params(jen.Index().Id(structName), jen.Error()).Block(
			listBody(constName, c.Binds, structName, entity)...,
		)
	case c.Shape == compiler.ShapeSingle:
		f.Commentf("%s returns exactly one row; zero or several matches are an error.", fn)
		f.Func().Id(fn).Params(params...).Params(jen.Id(structName), jen.Error()).Block(
			singleBody(fn, constName, c.Binds, structName, entity)...,
		)
	case c.Shape == compiler.ShapeOptional:
		f.Commentf("%s returns at most one row; no match yields nil.", fn)
		f.Func().Id(fn).Params(params...).Params(jen.Op("*").Id(structName), jen.Error()).Block(
			optionalBody(fn, constName, c.Binds, structName, entity)...,
		)
	case c.Shape == compiler.ShapePage:
		f.Commentf("%s returns one page of rows plus the unpaged total.", fn)
		f.Func().Id(fn).Params(params...).Params(jen.Index().Id(structName), jen.Int64(), jen.Error()).Block(
			pageBody(constName, c, structName, entity)...,
		)
	case c.Shape == compiler.ShapeStream:
		f.Commentf("%s yields matching rows one at a time.", fn)
		f.Func().Id(fn).Params(params...).Qual("iter", "Seq2").Index(jen.Id(structName), jen.Error()).Block(
			streamBody(constName, c.Binds, structName, entity)...,
		)
	}
}

// returnsEntityRows reports whether the compiled query projects the full
// entity row, which is the case for every field-based spec and for
// mutations with RETURNING.
func returnsEntityRows(c *compiler.Compiled) bool {
	switch c.Shape {
	case compiler.ShapeList, compiler.ShapeSingle, compiler.ShapeOptional,
		compiler.ShapePage, compiler.ShapeStream:
		return c.Entity != ""
	}
	return false
}

func structName(table string) string {
	return inflect.Camelize(inflect.Singularize(table))
}

func fieldName(name string) string {
	return inflect.Camelize(name)
}

func argName(name string) string {
	n := inflect.CamelizeDownFirst(name)
	switch n {
	case "ctx", "q", "type", "range", "func", "var", "select", "return", "default":
		return n + "Arg"
	}
	return n
}

func goType(f schema.Field) jen.Code {
	base := baseType(f.Type)
	if f.Nullable {
		return jen.Op("*").Add(base)
	}
	return base
}

func paramType(t schema.Type) jen.Code {
	return baseType(t)
}

func baseType(t schema.Type) jen.Code {
	switch t {
	case schema.TypeString:
		return jen.String()
	case schema.TypeInt:
		return jen.Int()
	case schema.TypeInt64:
		return jen.Int64()
	case schema.TypeFloat:
		return jen.Float64()
	case schema.TypeBool:
		return jen.Bool()
	case schema.TypeTime:
		return jen.Qual("time", "Time")
	case schema.TypeUUID:
		return jen.Qual("github.com/google/uuid", "UUID")
	case schema.TypeBytes:
		return jen.Index().Byte()
	}
	return jen.Any()
}

// execArgs builds the QueryContext/ExecContext argument list: context,
// SQL constant, then the bind slots in positional order.
func execArgs(constName string, binds []compiler.Bind) []jen.Code {
	out := []jen.Code{jen.Id("ctx"), jen.Id(constName)}
	for _, b := range binds {
		out = append(out, jen.Id(argName(b.Param)))
	}
	return out
}

func scanTargets(varName string, entity *schema.Entity) []jen.Code {
	fields := entity.Fields()
	out := make([]jen.Code, len(fields))
	for i, f := range fields {
		out[i] = jen.Op("&").Id(varName).Dot(fieldName(f.Name))
	}
	return out
}

// scanLoop renders the rows loop appending scanned values to out.
func scanLoop(structName string, entity *schema.Entity, onErr []jen.Code) []jen.Code {
	return []jen.Code{
		jen.Var().Id("out").Index().Id(structName),
		jen.For(jen.Id("rows").Dot("Next").Call()).Block(
			jen.Var().Id("v").Id(structName),
			jen.If(
				jen.Err().Op(":=").Id("rows").Dot("Scan").Call(scanTargets("v", entity)...),
				jen.Err().Op("!=").Nil(),
			).Block(onErr...),
			jen.Id("out").Op("=").Append(jen.Id("out"), jen.Id("v")),
		),
		jen.If(
			jen.Err().Op(":=").Id("rows").Dot("Err").Call(),
			jen.Err().Op("!=").Nil(),
		).Block(onErr...),
	}
}

func queryPrelude(constName string, binds []compiler.Bind, onErr []jen.Code) []jen.Code {
	return []jen.Code{
		jen.List(jen.Id("rows"), jen.Err()).Op(":=").Id("q").Dot("QueryContext").Call(execArgs(constName, binds)...),
		jen.If(jen.Err().Op("!=").Nil()).Block(onErr...),
		jen.Defer().Id("rows").Dot("Close").Call(),
	}
}

func listBody(constName string, binds []compiler.Bind, structName string, entity *schema.Entity) []jen.Code {
	onErr := []jen.Code{jen.Return(jen.Nil(), jen.Err())}
	body := queryPrelude(constName, binds, onErr)
	body = append(body, scanLoop(structName, entity, onErr)...)
	return append(body, jen.Return(jen.Id("out"), jen.Nil()))
}

func singleBody(fn, constName string, binds []compiler.Bind, structName string, entity *schema.Entity) []jen.Code {
	onErr := []jen.Code{jen.Return(jen.Id(structName).Values(), jen.Err())}
	body := queryPrelude(constName, binds, onErr)
	body = append(body, scanLoop(structName, entity, onErr)...)
	return append(body,
		jen.If(jen.Len(jen.Id("out")).Op("!=").Lit(1)).Block(
			jen.Return(
				jen.Id(structName).Values(),
				jen.Qual("fmt", "Errorf").Call(jen.Lit(fn+": expected one row, got %d"), jen.Len(jen.Id("out"))),
			),
		),
		jen.Return(jen.Id("out").Index(jen.Lit(0)), jen.Nil()),
	)
}

func optionalBody(fn, constName string, binds []compiler.Bind, structName string, entity *schema.Entity) []jen.Code {
	onErr := []jen.Code{jen.Return(jen.Nil(), jen.Err())}
	body := queryPrelude(constName, binds, onErr)
	body = append(body, scanLoop(structName, entity, onErr)...)
	return append(body,
		jen.If(jen.Len(jen.Id("out")).Op("==").Lit(0)).Block(
			jen.Return(jen.Nil(), jen.Nil()),
		),
		jen.If(jen.Len(jen.Id("out")).Op(">").Lit(1)).Block(
			jen.Return(
				jen.Nil(),
				jen.Qual("fmt", "Errorf").Call(jen.Lit(fn+": expected at most one row, got %d"), jen.Len(jen.Id("out"))),
			),
		),
		jen.Return(jen.Op("&").Id("out").Index(jen.Lit(0)), jen.Nil()),
	)
}

func pageBody(constName string, c *compiler.Compiled, structName string, entity *schema.Entity) []jen.Code {
	onErr := []jen.Code{jen.Return(jen.Nil(), jen.Lit(0), jen.Err())}
	body := queryPrelude(constName, c.Binds, onErr)
	body = append(body, scanLoop(structName, entity, onErr)...)
	countArgs := []jen.Code{jen.Id("ctx"), jen.Id(constName + "Count")}
	for _, b := range c.CountBinds {
		countArgs = append(countArgs, jen.Id(argName(b.Param)))
	}
	return append(body,
		// the first empty page settles the total without the count query
		jen.If(jen.Id("offset").Op("==").Lit(0).Op("&&").Len(jen.Id("out")).Op("==").Lit(0)).Block(
			jen.Return(jen.Nil(), jen.Lit(0), jen.Nil()),
		),
		jen.List(jen.Id("cr"), jen.Err()).Op(":=").Id("q").Dot("QueryContext").Call(countArgs...),
		jen.If(jen.Err().Op("!=").Nil()).Block(onErr...),
		jen.Defer().Id("cr").Dot("Close").Call(),
		jen.Var().Id("total").Int64(),
		jen.If(jen.Id("cr").Dot("Next").Call()).Block(
			jen.If(
				jen.Err().Op(":=").Id("cr").Dot("Scan").Call(jen.Op("&").Id("total")),
				jen.Err().Op("!=").Nil(),
			).Block(onErr...),
		),
		jen.If(
			jen.Err().Op(":=").Id("cr").Dot("Err").Call(),
			jen.Err().Op("!=").Nil(),
		).Block(onErr...),
		jen.Return(jen.Id("out"), jen.Id("total"), jen.Nil()),
	)
}

func streamBody(constName string, binds []compiler.Bind, structName string, entity *schema.Entity) []jen.Code {
	return []jen.Code{
		jen.Return(jen.Func().Params(jen.Id("yield").Func().Params(jen.Id(structName), jen.Error()).Bool()).Block(
			jen.List(jen.Id("rows"), jen.Err()).Op(":=").Id("q").Dot("QueryContext").Call(execArgs(constName, binds)...),
			jen.If(jen.Err().Op("!=").Nil()).Block(
				jen.Id("yield").Call(jen.Id(structName).Values(), jen.Err()),
				jen.Return(),
			),
			jen.Defer().Id("rows").Dot("Close").Call(),
			jen.For(jen.Id("rows").Dot("Next").Call()).Block(
				jen.Var().Id("v").Id(structName),
				jen.If(
					jen.Err().Op(":=").Id("rows").Dot("Scan").Call(scanTargets("v", entity)...),
					jen.Err().Op("!=").Nil(),
				).Block(
					jen.Id("yield").Call(jen.Id("v"), jen.Err()),
					jen.Return(),
				),
				jen.If(jen.Op("!").Id("yield").Call(jen.Id("v"), jen.Nil())).Block(jen.Return()),
			),
			jen.If(
				jen.Err().Op(":=").Id("rows").Dot("Err").Call(),
				jen.Err().Op("!=").Nil(),
			).Block(
				jen.Id("yield").Call(jen.Id(structName).Values(), jen.Err()),
			),
		)),
	}
}

func scalarBody(constName string, binds []compiler.Bind, typ jen.Code) []jen.Code {
	return []jen.Code{
		jen.Var().Id("v").Add(typ),
		jen.List(jen.Id("rows"), jen.Err()).Op(":=").Id("q").Dot("QueryContext").Call(execArgs(constName, binds)...),
		jen.If(jen.Err().Op("!=").Nil()).Block(jen.Return(jen.Id("v"), jen.Err())),
		jen.Defer().Id("rows").Dot("Close").Call(),
		jen.If(jen.Id("rows").Dot("Next").Call()).Block(
			jen.If(
				jen.Err().Op(":=").Id("rows").Dot("Scan").Call(jen.Op("&").Id("v")),
				jen.Err().Op("!=").Nil(),
			).Block(jen.Return(jen.Id("v"), jen.Err())),
		),
		jen.Return(jen.Id("v"), jen.Id("rows").Dot("Err").Call()),
	}
}
