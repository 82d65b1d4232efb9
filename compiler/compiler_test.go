package compiler_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/syssam/sqlt"
	"github.com/syssam/sqlt/compiler"
	"github.com/syssam/sqlt/dialect"
	"github.com/syssam/sqlt/schema"
)

var users = schema.MustNew("users",
	schema.Field{Name: "id", Type: schema.TypeUUID},
	schema.Field{Name: "email", Type: schema.TypeString},
	schema.Field{Name: "name", Type: schema.TypeString},
	schema.Field{Name: "age", Type: schema.TypeInt, Nullable: true},
)

var docs = schema.MustNew("docs",
	schema.Field{Name: "id", Type: schema.TypeInt64, Generated: true},
	schema.Field{Name: "title", Type: schema.TypeString},
	schema.Field{Name: "body", Type: schema.TypeString},
	schema.Field{Name: "lock", Type: schema.TypeInt64, LockCounter: true},
)

var settings = schema.MustNew("settings",
	schema.Field{Name: "key", Type: schema.TypeString},
	schema.Field{Name: "value", Type: schema.TypeString},
	schema.Field{Name: "updated_at", Type: schema.TypeTime},
)

func params(c *compiler.Compiled) []string {
	out := make([]string, len(c.Signature.Params))
	for i, p := range c.Signature.Params {
		out[i] = p.Name
	}
	return out
}

func bindParams(binds []compiler.Bind) []string {
	out := make([]string, len(binds))
	for i, b := range binds {
		out[i] = b.Param
	}
	return out
}

func TestCompileSelect(t *testing.T) {
	t.Run("ByField", func(t *testing.T) {
		c, err := compiler.Compile(users, compiler.Spec{
			Name:    "by_email",
			Mode:    compiler.ModeSelect,
			Dialect: dialect.Postgres,
			By:      []string{"email"},
		})
		require.NoError(t, err)
		assert.Equal(t, "SELECT id, email, name, age FROM users WHERE email = $1", c.SQL)
		assert.Equal(t, compiler.ShapeList, c.Shape)
		assert.Equal(t, "users", c.Entity)
		require.Len(t, c.Binds, 1)
		assert.Equal(t, compiler.Bind{Param: "email", Field: "email", Type: schema.TypeString}, c.Binds[0])
	})

	t.Run("ByFieldsSorted", func(t *testing.T) {
		c, err := compiler.Compile(users, compiler.Spec{
			Name:    "by_name_email",
			Mode:    compiler.ModeSelect,
			Dialect: dialect.Postgres,
			By:      []string{"name", "email"},
		})
		require.NoError(t, err)
		assert.Equal(t, "SELECT id, email, name, age FROM users WHERE email = $1 AND name = $2", c.SQL)
		assert.Equal(t, []string{"email", "name"}, bindParams(c.Binds))
	})

	t.Run("Fragment", func(t *testing.T) {
		c, err := compiler.Compile(users, compiler.Spec{
			Name:    "adults_by_email",
			Mode:    compiler.ModeSelect,
			Dialect: dialect.Postgres,
			By:      []string{"email"},
			Where:   "age >= :min_age$i32 OR age IS NULL",
		})
		require.NoError(t, err)
		assert.Equal(t,
			"SELECT id, email, name, age FROM users WHERE email = $1 AND (age >= $2 OR age IS NULL)",
			c.SQL)
		require.Len(t, c.Binds, 2)
		assert.Equal(t, compiler.Bind{Param: "min_age", Type: schema.TypeInt}, c.Binds[1])
	})

	t.Run("FragmentPinnedColumn", func(t *testing.T) {
		// a placeholder compared against a known column borrows its type
		c, err := compiler.Compile(users, compiler.Spec{
			Name:    "search",
			Mode:    compiler.ModeSelect,
			Dialect: dialect.Postgres,
			Where:   "email LIKE :pattern",
		})
		require.NoError(t, err)
		assert.Equal(t, "SELECT id, email, name, age FROM users WHERE (email LIKE $1)", c.SQL)
		require.Len(t, c.Binds, 1)
		assert.Equal(t, compiler.Bind{Param: "pattern", Field: "email", Type: schema.TypeString}, c.Binds[0])
	})

	t.Run("FragmentPinnedToFilterKeyReusesParam", func(t *testing.T) {
		// :st is pinned to status, which is already a filter key; the
		// slot reuses the status parameter instead of minting st
		orders := schema.MustNew("orders",
			schema.Field{Name: "id", Type: schema.TypeInt64},
			schema.Field{Name: "status", Type: schema.TypeString},
		)
		c, err := compiler.Compile(orders, compiler.Spec{
			Name:    "same_status",
			Mode:    compiler.ModeSelect,
			Dialect: dialect.Postgres,
			By:      []string{"status"},
			Where:   "status <> :st",
		})
		require.NoError(t, err)
		assert.Equal(t,
			"SELECT id, status FROM orders WHERE status = $1 AND (status <> $2)",
			c.SQL)
		assert.Equal(t, []string{"status", "status"}, bindParams(c.Binds))
		assert.Equal(t, []string{"status"}, params(c))
	})

	t.Run("Order", func(t *testing.T) {
		c, err := compiler.Compile(users, compiler.Spec{
			Name:    "all_sorted",
			Mode:    compiler.ModeSelect,
			Dialect: dialect.Postgres,
			Order:   []compiler.OrderField{{Name: "name", Desc: true}, {Name: "id"}},
		})
		require.NoError(t, err)
		assert.Equal(t, "SELECT id, email, name, age FROM users ORDER BY name DESC, id", c.SQL)
	})

	t.Run("Count", func(t *testing.T) {
		c, err := compiler.Compile(users, compiler.Spec{
			Name:    "count_by_name",
			Mode:    compiler.ModeSelect,
			Dialect: dialect.Postgres,
			By:      []string{"name"},
			Shape:   compiler.ShapeCount,
		})
		require.NoError(t, err)
		assert.Equal(t, "SELECT COUNT(1) FROM users WHERE name = $1", c.SQL)
		assert.Empty(t, c.CountSQL)
	})

	t.Run("Page", func(t *testing.T) {
		c, err := compiler.Compile(users, compiler.Spec{
			Name:    "page_by_name",
			Mode:    compiler.ModeSelect,
			Dialect: dialect.Postgres,
			By:      []string{"name"},
			Order:   []compiler.OrderField{{Name: "email"}},
			Shape:   compiler.ShapePage,
		})
		require.NoError(t, err)
		assert.Equal(t,
			"SELECT id, email, name, age FROM users WHERE name = $1 ORDER BY email LIMIT $2 OFFSET $3",
			c.SQL)
		assert.Equal(t, "SELECT COUNT(1) FROM users WHERE name = $1", c.CountSQL)
		assert.Equal(t, []string{"name", "limit", "offset"}, bindParams(c.Binds))
		assert.Equal(t, []string{"name"}, bindParams(c.CountBinds))
		require.Len(t, c.Binds, 3)
		assert.Equal(t, schema.TypeInt64, c.Binds[1].Type)
		assert.Equal(t, []string{"name", "limit", "offset"}, params(c))
	})

	t.Run("MySQLMarkers", func(t *testing.T) {
		c, err := compiler.Compile(users, compiler.Spec{
			Name:    "by_email",
			Mode:    compiler.ModeSelect,
			Dialect: dialect.MySQL,
			By:      []string{"email"},
		})
		require.NoError(t, err)
		assert.Equal(t, "SELECT id, email, name, age FROM users WHERE email = ?", c.SQL)
	})

	t.Run("DefaultDialect", func(t *testing.T) {
		c, err := compiler.Compile(users, compiler.Spec{
			Name: "all",
			Mode: compiler.ModeSelect,
		})
		require.NoError(t, err)
		assert.Equal(t, dialect.Generic, c.Dialect)
		assert.Equal(t, "SELECT id, email, name, age FROM users", c.SQL)
	})

	t.Run("ReservedColumnQuoted", func(t *testing.T) {
		c, err := compiler.Compile(settings, compiler.Spec{
			Name:    "get",
			Mode:    compiler.ModeSelect,
			Dialect: dialect.SQLite,
			By:      []string{"key"},
		})
		require.NoError(t, err)
		assert.Equal(t, `SELECT "key", value, updated_at FROM settings WHERE "key" = ?`, c.SQL)
	})
}

func TestCompileInsert(t *testing.T) {
	t.Run("Postgres", func(t *testing.T) {
		c, err := compiler.Compile(users, compiler.Spec{
			Name:    "create",
			Mode:    compiler.ModeInsert,
			Dialect: dialect.Postgres,
		})
		require.NoError(t, err)
		assert.Equal(t, "INSERT INTO users (id, email, name, age) VALUES ($1, $2, $3, $4)", c.SQL)
		assert.Equal(t, compiler.ShapeRowsAffected, c.Shape)
		assert.Equal(t, []string{"id", "email", "name", "age"}, bindParams(c.Binds))
	})

	t.Run("GeneratedExcluded", func(t *testing.T) {
		c, err := compiler.Compile(docs, compiler.Spec{
			Name:    "create",
			Mode:    compiler.ModeInsert,
			Dialect: dialect.Postgres,
		})
		require.NoError(t, err)
		assert.Equal(t, "INSERT INTO docs (title, body, lock) VALUES ($1, $2, $3)", c.SQL)
	})

	t.Run("Returning", func(t *testing.T) {
		c, err := compiler.Compile(docs, compiler.Spec{
			Name:      "create",
			Mode:      compiler.ModeInsert,
			Dialect:   dialect.Postgres,
			Returning: true,
		})
		require.NoError(t, err)
		assert.Equal(t,
			"INSERT INTO docs (title, body, lock) VALUES ($1, $2, $3) RETURNING id, title, body, lock",
			c.SQL)
		assert.Equal(t, compiler.ShapeSingle, c.Shape)
	})

	t.Run("ReturningOnMySQL", func(t *testing.T) {
		_, err := compiler.Compile(docs, compiler.Spec{
			Name:      "create",
			Mode:      compiler.ModeInsert,
			Dialect:   dialect.MySQL,
			Returning: true,
		})
		require.Error(t, err)
		assert.True(t, sqlt.IsCompileError(err))
		assert.Contains(t, err.Error(), "RETURNING is not supported on mysql")
	})

	t.Run("FilterFieldsRejected", func(t *testing.T) {
		_, err := compiler.Compile(users, compiler.Spec{
			Name:    "create",
			Mode:    compiler.ModeInsert,
			Dialect: dialect.Postgres,
			By:      []string{"email"},
		})
		require.Error(t, err)
		assert.True(t, sqlt.IsValidateError(err))
	})
}

func TestCompileUpdate(t *testing.T) {
	t.Run("LockCounter", func(t *testing.T) {
		c, err := compiler.Compile(docs, compiler.Spec{
			Name:    "update",
			Mode:    compiler.ModeUpdate,
			Dialect: dialect.Postgres,
			By:      []string{"id"},
		})
		require.NoError(t, err)
		assert.Equal(t,
			"UPDATE docs SET body = $1, title = $2, lock = lock + 1 WHERE id = $3 AND lock = $4",
			c.SQL)
		// bind order is SET values, filter values, then the lock value
		assert.Equal(t, []string{"body", "title", "id", "lock"}, bindParams(c.Binds))
	})

	t.Run("NoLock", func(t *testing.T) {
		c, err := compiler.Compile(users, compiler.Spec{
			Name:    "rename",
			Mode:    compiler.ModeUpdate,
			Dialect: dialect.Postgres,
			By:      []string{"email"},
			On:      []string{"name"},
		})
		require.NoError(t, err)
		assert.Equal(t, "UPDATE users SET name = $1 WHERE email = $2", c.SQL)
	})

	t.Run("FragmentAndLock", func(t *testing.T) {
		// the lock predicate stays last even with an ad hoc fragment
		c, err := compiler.Compile(docs, compiler.Spec{
			Name:    "update_titled",
			Mode:    compiler.ModeUpdate,
			Dialect: dialect.Postgres,
			By:      []string{"id"},
			On:      []string{"body"},
			Where:   "title <> :skip$str",
		})
		require.NoError(t, err)
		assert.Equal(t,
			"UPDATE docs SET body = $1, lock = lock + 1 WHERE id = $2 AND (title <> $3) AND lock = $4",
			c.SQL)
		assert.Equal(t, []string{"body", "id", "skip", "lock"}, bindParams(c.Binds))
	})

	t.Run("Returning", func(t *testing.T) {
		c, err := compiler.Compile(docs, compiler.Spec{
			Name:      "update",
			Mode:      compiler.ModeUpdate,
			Dialect:   dialect.Postgres,
			By:        []string{"id"},
			Returning: true,
			Shape:     compiler.ShapeOptional,
		})
		require.NoError(t, err)
		assert.Contains(t, c.SQL, " RETURNING id, title, body, lock")
		assert.Equal(t, compiler.ShapeOptional, c.Shape)
	})

	t.Run("SetLockRejected", func(t *testing.T) {
		_, err := compiler.Compile(docs, compiler.Spec{
			Name:    "update",
			Mode:    compiler.ModeUpdate,
			Dialect: dialect.Postgres,
			By:      []string{"id"},
			On:      []string{"lock"},
		})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "maintained automatically")
	})

	t.Run("SetGeneratedRejected", func(t *testing.T) {
		_, err := compiler.Compile(docs, compiler.Spec{
			Name:    "update",
			Mode:    compiler.ModeUpdate,
			Dialect: dialect.Postgres,
			By:      []string{"title"},
			On:      []string{"id"},
		})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "database-generated")
	})

	t.Run("SetKeyRejected", func(t *testing.T) {
		_, err := compiler.Compile(users, compiler.Spec{
			Name:    "update",
			Mode:    compiler.ModeUpdate,
			Dialect: dialect.Postgres,
			By:      []string{"email"},
			On:      []string{"email"},
		})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "part of the filter key")
	})
}

func TestCompileDelete(t *testing.T) {
	c, err := compiler.Compile(users, compiler.Spec{
		Name:    "delete_by_email",
		Mode:    compiler.ModeDelete,
		Dialect: dialect.Postgres,
		By:      []string{"email"},
	})
	require.NoError(t, err)
	assert.Equal(t, "DELETE FROM users WHERE email = $1", c.SQL)
	assert.Equal(t, compiler.ShapeRowsAffected, c.Shape)
}

func TestCompileUpsert(t *testing.T) {
	t.Run("SQLite", func(t *testing.T) {
		c, err := compiler.Compile(settings, compiler.Spec{
			Name:    "put",
			Mode:    compiler.ModeUpsert,
			Dialect: dialect.SQLite,
			By:      []string{"key"},
		})
		require.NoError(t, err)
		assert.Equal(t,
			`INSERT INTO settings ("key", value, updated_at) VALUES (?, ?, ?) ON CONFLICT ("key") DO UPDATE SET updated_at = EXCLUDED.updated_at, value = EXCLUDED.value`,
			c.SQL)
	})

	t.Run("MySQL", func(t *testing.T) {
		c, err := compiler.Compile(settings, compiler.Spec{
			Name:    "put",
			Mode:    compiler.ModeUpsert,
			Dialect: dialect.MySQL,
			By:      []string{"key"},
		})
		require.NoError(t, err)
		assert.Equal(t,
			"INSERT INTO settings (key, value, updated_at) VALUES (?, ?, ?) ON DUPLICATE KEY UPDATE updated_at = VALUES(updated_at), value = VALUES(value)",
			c.SQL)
	})

	t.Run("LockFromStoredRow", func(t *testing.T) {
		counters := schema.MustNew("counters",
			schema.Field{Name: "name", Type: schema.TypeString},
			schema.Field{Name: "value", Type: schema.TypeInt64},
			schema.Field{Name: "lock", Type: schema.TypeInt64, LockCounter: true},
		)
		c, err := compiler.Compile(counters, compiler.Spec{
			Name:    "put",
			Mode:    compiler.ModeUpsert,
			Dialect: dialect.Postgres,
			By:      []string{"name"},
		})
		require.NoError(t, err)
		assert.Equal(t,
			"INSERT INTO counters (name, value, lock) VALUES ($1, $2, $3) ON CONFLICT (name) DO UPDATE SET value = EXCLUDED.value, lock = counters.lock + 1",
			c.SQL)
	})

	t.Run("RequiresBy", func(t *testing.T) {
		_, err := compiler.Compile(settings, compiler.Spec{
			Name:    "put",
			Mode:    compiler.ModeUpsert,
			Dialect: dialect.Postgres,
		})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "conflict key")
	})

	t.Run("WhereRejected", func(t *testing.T) {
		_, err := compiler.Compile(settings, compiler.Spec{
			Name:    "put",
			Mode:    compiler.ModeUpsert,
			Dialect: dialect.Postgres,
			By:      []string{"key"},
			Where:   "value <> :v$str",
		})
		require.Error(t, err)
		assert.True(t, sqlt.IsValidateError(err))
		assert.Contains(t, err.Error(), "upsert specs take no where fragment")
	})
}

func TestCompileRaw(t *testing.T) {
	t.Run("EntityParams", func(t *testing.T) {
		c, err := compiler.Compile(users, compiler.Spec{
			Name:    "emails",
			Mode:    compiler.ModeSelect,
			Dialect: dialect.Postgres,
			SQL:     "SELECT id, email FROM users WHERE email = :email AND age > :min$i32",
		})
		require.NoError(t, err)
		assert.Equal(t, "SELECT id, email FROM users WHERE email = $1 AND age > $2", c.SQL)
		assert.Equal(t, []compiler.Bind{
			{Param: "email", Field: "email", Type: schema.TypeString},
			{Param: "min", Type: schema.TypeInt},
		}, c.Binds)
	})

	t.Run("DeclaredParams", func(t *testing.T) {
		c, err := compiler.Compile(nil, compiler.Spec{
			Name:    "expired_sessions",
			Mode:    compiler.ModeSelect,
			Dialect: dialect.Postgres,
			Shape:   compiler.ShapeScalar,
			SQL:     "SELECT COUNT(1) FROM sessions WHERE expires_at < :now",
			Params:  []compiler.Param{{Name: "now", Type: schema.TypeTime}},
		})
		require.NoError(t, err)
		assert.Equal(t, "SELECT COUNT(1) FROM sessions WHERE expires_at < $1", c.SQL)
		assert.Equal(t, "", c.Entity)
		require.Len(t, c.Binds, 1)
		assert.Equal(t, schema.TypeTime, c.Binds[0].Type)
	})

	t.Run("DuplicatePlaceholderOneParam", func(t *testing.T) {
		c, err := compiler.Compile(nil, compiler.Spec{
			Name:    "search",
			Mode:    compiler.ModeSelect,
			Dialect: dialect.Postgres,
			SQL:     "SELECT id FROM t WHERE a = :q OR b = :q",
			Params:  []compiler.Param{{Name: "q", Type: schema.TypeString}},
		})
		require.NoError(t, err)
		assert.Equal(t, "SELECT id FROM t WHERE a = $1 OR b = $2", c.SQL)
		assert.Equal(t, []string{"q", "q"}, bindParams(c.Binds))
		assert.Equal(t, []string{"q"}, params(c))
	})

	t.Run("Page", func(t *testing.T) {
		c, err := compiler.Compile(nil, compiler.Spec{
			Name:    "recent",
			Mode:    compiler.ModeSelect,
			Dialect: dialect.Postgres,
			Shape:   compiler.ShapePage,
			SQL:     "SELECT id FROM events WHERE kind = :kind$str ORDER BY id DESC",
		})
		require.NoError(t, err)
		assert.Equal(t,
			"SELECT id FROM events WHERE kind = $1 ORDER BY id DESC LIMIT $2 OFFSET $3",
			c.SQL)
		assert.Equal(t, "SELECT COUNT(1) FROM events WHERE kind = $1", c.CountSQL)
	})

	t.Run("ModeMismatch", func(t *testing.T) {
		_, err := compiler.Compile(nil, compiler.Spec{
			Name:    "oops",
			Mode:    compiler.ModeSelect,
			Dialect: dialect.Postgres,
			SQL:     "DELETE FROM t",
		})
		require.Error(t, err)
		assert.True(t, sqlt.IsValidateError(err))
	})

	t.Run("UndeclaredPlaceholder", func(t *testing.T) {
		_, err := compiler.Compile(nil, compiler.Spec{
			Name:    "oops",
			Mode:    compiler.ModeSelect,
			Dialect: dialect.Postgres,
			SQL:     "SELECT id FROM t WHERE a = :mystery",
		})
		require.Error(t, err)
		assert.True(t, sqlt.IsPlaceholderError(err))
	})

	t.Run("FieldListsRejected", func(t *testing.T) {
		_, err := compiler.Compile(users, compiler.Spec{
			Name:    "oops",
			Mode:    compiler.ModeSelect,
			Dialect: dialect.Postgres,
			SQL:     "SELECT id FROM users",
			By:      []string{"email"},
		})
		require.Error(t, err)
		assert.True(t, sqlt.IsValidateError(err))
	})
}

func TestCompileValidation(t *testing.T) {
	t.Run("NoName", func(t *testing.T) {
		_, err := compiler.Compile(users, compiler.Spec{Mode: compiler.ModeSelect})
		assert.True(t, sqlt.IsValidateError(err))
	})

	t.Run("UnknownMode", func(t *testing.T) {
		_, err := compiler.Compile(users, compiler.Spec{Name: "x", Mode: "merge"})
		assert.True(t, sqlt.IsValidateError(err))
	})

	t.Run("UnknownDialect", func(t *testing.T) {
		_, err := compiler.Compile(users, compiler.Spec{
			Name: "x", Mode: compiler.ModeSelect, Dialect: "oracle",
		})
		assert.True(t, sqlt.IsValidateError(err))
	})

	t.Run("UnknownFilterField", func(t *testing.T) {
		_, err := compiler.Compile(users, compiler.Spec{
			Name: "x", Mode: compiler.ModeSelect, By: []string{"emial"},
		})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "unknown filter field: emial")
	})

	t.Run("DuplicateFilterField", func(t *testing.T) {
		_, err := compiler.Compile(users, compiler.Spec{
			Name: "x", Mode: compiler.ModeSelect, By: []string{"email", "email"},
		})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "duplicate filter field")
	})

	t.Run("UnknownOrderField", func(t *testing.T) {
		_, err := compiler.Compile(users, compiler.Spec{
			Name: "x", Mode: compiler.ModeSelect,
			Order: []compiler.OrderField{{Name: "missing"}},
		})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "unknown order field")
	})

	t.Run("ShapeNotValidForSelect", func(t *testing.T) {
		_, err := compiler.Compile(users, compiler.Spec{
			Name: "x", Mode: compiler.ModeSelect, Shape: compiler.ShapeVoid,
		})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "shape not valid for select mode")
	})

	t.Run("ScalarNeedsRawSQL", func(t *testing.T) {
		_, err := compiler.Compile(users, compiler.Spec{
			Name: "x", Mode: compiler.ModeSelect, Shape: compiler.ShapeScalar,
		})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "scalar shape requires raw SQL")
	})

	t.Run("ShapeRequiresReturning", func(t *testing.T) {
		_, err := compiler.Compile(users, compiler.Spec{
			Name: "x", Mode: compiler.ModeUpdate, By: []string{"email"},
			Shape: compiler.ShapeSingle,
		})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "shape requires RETURNING")
	})

	t.Run("PositionalInFragment", func(t *testing.T) {
		_, err := compiler.Compile(users, compiler.Spec{
			Name: "x", Mode: compiler.ModeSelect, Where: "age > ?",
		})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "positional markers")
	})

	t.Run("UnknownAnnotation", func(t *testing.T) {
		_, err := compiler.Compile(users, compiler.Spec{
			Name: "x", Mode: compiler.ModeSelect, Where: "age > :min$decimal",
		})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "unknown type annotation")
	})

	t.Run("ConflictingAnnotations", func(t *testing.T) {
		_, err := compiler.Compile(users, compiler.Spec{
			Name: "x", Mode: compiler.ModeSelect,
			Where: "age > :v$i32 AND age < :v$str",
		})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "conflicting type annotations")
	})

	t.Run("UnresolvablePlaceholder", func(t *testing.T) {
		_, err := compiler.Compile(users, compiler.Spec{
			Name: "x", Mode: compiler.ModeSelect, Where: "age + :delta > 10",
		})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "cannot be resolved")
	})

	t.Run("UnknownFragmentColumn", func(t *testing.T) {
		_, err := compiler.Compile(users, compiler.Spec{
			Name: "x", Mode: compiler.ModeSelect, Where: "height > :h$i32",
		})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "unknown column")
	})

	t.Run("NilEntityWithoutSQL", func(t *testing.T) {
		_, err := compiler.Compile(nil, compiler.Spec{
			Name: "x", Mode: compiler.ModeSelect, By: []string{"email"},
		})
		require.Error(t, err)
		assert.True(t, sqlt.IsValidateError(err))
	})

	t.Run("WrapNamesEntityAndSpec", func(t *testing.T) {
		_, err := compiler.Compile(users, compiler.Spec{
			Name: "broken", Mode: compiler.ModeSelect, By: []string{"missing"},
		})
		require.Error(t, err)
		assert.True(t, sqlt.IsCompileError(err))
		assert.Contains(t, err.Error(), "users.broken")
	})
}

func TestCompileIdempotent(t *testing.T) {
	spec := compiler.Spec{
		Name:    "page_by_name",
		Mode:    compiler.ModeSelect,
		Dialect: dialect.Postgres,
		By:      []string{"name"},
		Where:   "age >= :min_age$i32",
		Order:   []compiler.OrderField{{Name: "email"}},
		Shape:   compiler.ShapePage,
	}
	a, err := compiler.Compile(users, spec)
	require.NoError(t, err)
	b, err := compiler.Compile(users, spec)
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestAnnotationType(t *testing.T) {
	cases := []struct {
		ann  string
		want schema.Type
	}{
		{"i32", schema.TypeInt},
		{"int", schema.TypeInt},
		{"i64", schema.TypeInt64},
		{"f32", schema.TypeFloat},
		{"f64", schema.TypeFloat},
		{"float", schema.TypeFloat},
		{"str", schema.TypeString},
		{"string", schema.TypeString},
		{"bool", schema.TypeBool},
		{"time", schema.TypeTime},
		{"timestamp", schema.TypeTime},
		{"uuid", schema.TypeUUID},
		{"bytes", schema.TypeBytes},
	}
	for _, tc := range cases {
		got, ok := compiler.AnnotationType(tc.ann)
		require.True(t, ok, tc.ann)
		assert.Equal(t, tc.want, got)
	}
	_, ok := compiler.AnnotationType("decimal")
	assert.False(t, ok)
}
