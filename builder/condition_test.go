package builder_test

import (
	"context"
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/syssam/sqlt"
	"github.com/syssam/sqlt/builder"
	"github.com/syssam/sqlt/dialect"
	sqlx "github.com/syssam/sqlt/dialect/sql"
)

func TestCompileCondition(t *testing.T) {
	t.Run("Arity", func(t *testing.T) {
		c, err := builder.CompileCondition(dialect.Postgres, users,
			"age BETWEEN :low$i32 AND :high$i32 OR email = :email")
		require.NoError(t, err)
		assert.Equal(t, 3, c.Arity())
	})

	t.Run("BareMarkers", func(t *testing.T) {
		c, err := builder.CompileCondition(dialect.Postgres, users, "age > ? AND age < ?")
		require.NoError(t, err)
		assert.Equal(t, 2, c.Arity())
	})

	t.Run("QualifiedColumn", func(t *testing.T) {
		_, err := builder.CompileCondition(dialect.Postgres, users, "users.age > :min$i32")
		assert.NoError(t, err)
	})

	t.Run("UnknownColumn", func(t *testing.T) {
		_, err := builder.CompileCondition(dialect.Postgres, users, "height > :h$i32")
		require.Error(t, err)
		assert.True(t, sqlt.IsValidateError(err))
		assert.Contains(t, err.Error(), "unknown column")
	})

	t.Run("UnknownTable", func(t *testing.T) {
		_, err := builder.CompileCondition(dialect.Postgres, users, "orders.id = :id")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "unknown table")
	})

	t.Run("UnknownAnnotation", func(t *testing.T) {
		_, err := builder.CompileCondition(dialect.Postgres, users, "age > :min$decimal")
		require.Error(t, err)
		assert.True(t, sqlt.IsPlaceholderError(err))
	})

	t.Run("Unresolvable", func(t *testing.T) {
		_, err := builder.CompileCondition(dialect.Postgres, users, "age + :delta > 10")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "cannot be resolved")
	})

	t.Run("SubqueryRejected", func(t *testing.T) {
		_, err := builder.CompileCondition(dialect.Postgres, users,
			"id IN (SELECT user_id FROM orders)")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "subqueries")
	})

	t.Run("ParseError", func(t *testing.T) {
		_, err := builder.CompileCondition(dialect.Postgres, users, "age >")
		require.Error(t, err)
		assert.True(t, sqlt.IsParseError(err))
	})
}

func TestMustCompileCondition(t *testing.T) {
	assert.NotPanics(t, func() {
		builder.MustCompileCondition(dialect.Postgres, users, "age > :min$i32")
	})
	assert.Panics(t, func() {
		builder.MustCompileCondition(dialect.Postgres, users, "height > :h$i32")
	})
}

func TestConditionValueKinds(t *testing.T) {
	apply := func(t *testing.T, fragment string, vals ...any) error {
		t.Helper()
		db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
		require.NoError(t, err)
		t.Cleanup(func() { db.Close() })
		mock.ExpectQuery("SELECT .*").
			WillReturnRows(sqlmock.NewRows([]string{"id", "email", "age"}))
		q := sqlx.OpenDB(dialect.Postgres, db)
		cond := builder.MustCompileCondition(dialect.Postgres, users, fragment)
		_, allErr := builder.Query(users, scanUser).
			Apply(cond, vals...).
			All(context.Background(), q)
		return allErr
	}

	t.Run("UUIDAcceptsString", func(t *testing.T) {
		assert.NoError(t, apply(t, "id = :id", "3b241101-e2bb-4255-8caf-4136c566a962"))
	})

	t.Run("IntAcceptsInt64", func(t *testing.T) {
		assert.NoError(t, apply(t, "age > :min$i32", int64(3)))
	})

	t.Run("NilAlwaysAccepted", func(t *testing.T) {
		assert.NoError(t, apply(t, "email = :email", nil))
	})

	t.Run("BareMarkerAcceptsAnything", func(t *testing.T) {
		assert.NoError(t, apply(t, "age > ?", "not a number"))
	})

	t.Run("BoolRejectsString", func(t *testing.T) {
		err := apply(t, "age > :min$bool", "yes")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "must be bool")
	})
}
