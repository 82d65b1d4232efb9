package gen_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/syssam/sqlt/compiler"
	"github.com/syssam/sqlt/compiler/gen"
	"github.com/syssam/sqlt/compiler/load"
	"github.com/syssam/sqlt/dialect"
	"github.com/syssam/sqlt/schema"
)

func compileResult(t *testing.T) *load.Result {
	t.Helper()
	users := schema.MustNew("users",
		schema.Field{Name: "id", Type: schema.TypeUUID},
		schema.Field{Name: "email", Type: schema.TypeString},
		schema.Field{Name: "age", Type: schema.TypeInt, Nullable: true},
	)
	specs := []compiler.Spec{
		{Name: "by_email", Mode: compiler.ModeSelect, Dialect: dialect.Postgres,
			Shape: compiler.ShapeOptional, By: []string{"email"}},
		{Name: "list_adults", Mode: compiler.ModeSelect, Dialect: dialect.Postgres,
			Where: "age >= :min_age$i32"},
		{Name: "page_all", Mode: compiler.ModeSelect, Dialect: dialect.Postgres,
			Shape: compiler.ShapePage, Order: []compiler.OrderField{{Name: "email"}}},
		{Name: "create", Mode: compiler.ModeInsert, Dialect: dialect.Postgres},
		{Name: "delete_by_id", Mode: compiler.ModeDelete, Dialect: dialect.Postgres,
			By: []string{"id"}},
	}
	compiled := make([]*compiler.Compiled, len(specs))
	for i, s := range specs {
		c, err := compiler.Compile(users, s)
		require.NoError(t, err)
		compiled[i] = c
	}
	count, err := compiler.Compile(nil, compiler.Spec{
		Name: "session_count", Mode: compiler.ModeSelect, Dialect: dialect.Postgres,
		Shape: compiler.ShapeCount, SQL: "SELECT COUNT(1) FROM sessions",
	})
	require.NoError(t, err)
	return &load.Result{
		Entities:     []load.EntityResult{{Entity: users, Compiled: compiled}},
		Freestanding: []*compiler.Compiled{count},
	}
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	return string(raw)
}

func TestGenerate(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "sqltgen")
	g := gen.New(dir)
	require.NoError(t, g.Generate(context.Background(), compileResult(t)))

	t.Run("EntityFile", func(t *testing.T) {
		src := readFile(t, filepath.Join(dir, "users.go"))
		assert.Contains(t, src, "Code generated by sqlt. DO NOT EDIT.")
		assert.Contains(t, src, "package sqltgen")
		assert.Contains(t, src, "type User struct")
		assert.Contains(t, src, "Id uuid.UUID")
		assert.Contains(t, src, "Age *int")

		// one access function per spec, typed by shape
		assert.Contains(t, src, "func ByEmail(")
		assert.Contains(t, src, "func ListAdults(")
		assert.Contains(t, src, "func PageAll(")
		assert.Contains(t, src, "func Create(")
		assert.Contains(t, src, "func DeleteById(")

		// the compiled SQL lands in consts
		assert.Contains(t, src, `byEmailSQL = "SELECT id, email, age FROM users WHERE email = $1"`)
		assert.Contains(t, src, "pageAllSQLCount")
	})

	t.Run("FreestandingFile", func(t *testing.T) {
		src := readFile(t, filepath.Join(dir, "queries.go"))
		assert.Contains(t, src, "Code generated by sqlt. DO NOT EDIT.")
		assert.Contains(t, src, "func SessionCount(")
		assert.Contains(t, src, "(int64, error)")
	})
}

func TestGenerateCustomPackage(t *testing.T) {
	dir := t.TempDir()
	g := gen.New(dir).WithPackage("queries")
	require.NoError(t, g.Generate(context.Background(), compileResult(t)))
	src := readFile(t, filepath.Join(dir, "users.go"))
	assert.Contains(t, src, "package queries")
}

func TestGenerateCreatesOutDir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "a", "b", "out")
	g := gen.New(dir)
	require.NoError(t, g.Generate(context.Background(), compileResult(t)))
	_, err := os.Stat(filepath.Join(dir, "users.go"))
	assert.NoError(t, err)
}
