package builder_test

import (
	"context"
	"database/sql"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/syssam/sqlt/builder"
	"github.com/syssam/sqlt/dialect"
	sqlx "github.com/syssam/sqlt/dialect/sql"
	"github.com/syssam/sqlt/schema"
)

var users = schema.MustNew("users",
	schema.Field{Name: "id", Type: schema.TypeUUID},
	schema.Field{Name: "email", Type: schema.TypeString},
	schema.Field{Name: "age", Type: schema.TypeInt, Nullable: true},
)

type user struct {
	ID    string
	Email string
	Age   *int
}

func scanUser(rows *sql.Rows) (user, error) {
	var u user
	err := rows.Scan(&u.ID, &u.Email, &u.Age)
	return u, err
}

func newMock(t *testing.T, d dialect.Dialect) (*sqlx.Driver, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherEqual))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return sqlx.OpenDB(d, db), mock
}

func TestAll(t *testing.T) {
	q, mock := newMock(t, dialect.Postgres)
	age := builder.For(users).Int("age")
	email := builder.For(users).String("email")

	mock.ExpectQuery("SELECT id, email, age FROM users WHERE (age >= $1) ORDER BY email").
		WithArgs(18).
		WillReturnRows(sqlmock.NewRows([]string{"id", "email", "age"}).
			AddRow("u1", "a@example.com", 30).
			AddRow("u2", "b@example.com", nil))

	out, err := builder.Query(users, scanUser).
		Where(age.GTE(18)).
		OrderBy(email.Asc()).
		All(context.Background(), q)
	require.NoError(t, err)
	require.Len(t, out, 2)
	assert.Equal(t, "a@example.com", out[0].Email)
	require.NotNil(t, out[0].Age)
	assert.Equal(t, 30, *out[0].Age)
	assert.Nil(t, out[1].Age)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAllMySQLMarkers(t *testing.T) {
	q, mock := newMock(t, dialect.MySQL)
	age := builder.For(users).Int("age")

	mock.ExpectQuery("SELECT id, email, age FROM users WHERE (age BETWEEN ? AND ?)").
		WithArgs(18, 65).
		WillReturnRows(sqlmock.NewRows([]string{"id", "email", "age"}))

	_, err := builder.Query(users, scanUser).
		Where(age.Between(18, 65)).
		All(context.Background(), q)
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestConditionsJoinedWithAnd(t *testing.T) {
	q, mock := newMock(t, dialect.Postgres)
	f := builder.For(users)

	mock.ExpectQuery("SELECT id, email, age FROM users WHERE (email LIKE $1) AND (age IS NOT NULL)").
		WithArgs("%@example.com").
		WillReturnRows(sqlmock.NewRows([]string{"id", "email", "age"}))

	_, err := builder.Query(users, scanUser).
		Where(f.String("email").EndsWith("@example.com")).
		Where(f.Int("age").NotNull()).
		All(context.Background(), q)
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestOne(t *testing.T) {
	t.Run("Found", func(t *testing.T) {
		q, mock := newMock(t, dialect.Postgres)
		mock.ExpectQuery("SELECT id, email, age FROM users WHERE (email = $1)").
			WithArgs("a@example.com").
			WillReturnRows(sqlmock.NewRows([]string{"id", "email", "age"}).
				AddRow("u1", "a@example.com", 30))

		u, err := builder.Query(users, scanUser).
			Where(builder.For(users).String("email").EQ("a@example.com")).
			One(context.Background(), q)
		require.NoError(t, err)
		assert.Equal(t, "u1", u.ID)
	})

	t.Run("NoRows", func(t *testing.T) {
		q, mock := newMock(t, dialect.Postgres)
		mock.ExpectQuery("SELECT id, email, age FROM users").
			WillReturnRows(sqlmock.NewRows([]string{"id", "email", "age"}))

		_, err := builder.Query(users, scanUser).One(context.Background(), q)
		assert.ErrorIs(t, err, builder.ErrNoRows)
	})

	t.Run("ManyRows", func(t *testing.T) {
		q, mock := newMock(t, dialect.Postgres)
		mock.ExpectQuery("SELECT id, email, age FROM users").
			WillReturnRows(sqlmock.NewRows([]string{"id", "email", "age"}).
				AddRow("u1", "a@example.com", 30).
				AddRow("u2", "b@example.com", 31))

		_, err := builder.Query(users, scanUser).One(context.Background(), q)
		assert.ErrorIs(t, err, builder.ErrManyRows)
	})
}

func TestOptional(t *testing.T) {
	t.Run("Found", func(t *testing.T) {
		q, mock := newMock(t, dialect.Postgres)
		mock.ExpectQuery("SELECT id, email, age FROM users").
			WillReturnRows(sqlmock.NewRows([]string{"id", "email", "age"}).
				AddRow("u1", "a@example.com", 30))

		u, err := builder.Query(users, scanUser).Optional(context.Background(), q)
		require.NoError(t, err)
		require.NotNil(t, u)
		assert.Equal(t, "u1", u.ID)
	})

	t.Run("Missing", func(t *testing.T) {
		q, mock := newMock(t, dialect.Postgres)
		mock.ExpectQuery("SELECT id, email, age FROM users").
			WillReturnRows(sqlmock.NewRows([]string{"id", "email", "age"}))

		u, err := builder.Query(users, scanUser).Optional(context.Background(), q)
		require.NoError(t, err)
		assert.Nil(t, u)
	})
}

func TestCount(t *testing.T) {
	// ordering is dropped from the count query
	q, mock := newMock(t, dialect.Postgres)
	f := builder.For(users)

	mock.ExpectQuery("SELECT COUNT(1) FROM users WHERE (age > $1)").
		WithArgs(21).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(7))

	total, err := builder.Query(users, scanUser).
		Where(f.Int("age").GT(21)).
		OrderBy(f.String("email").Asc()).
		Count(context.Background(), q)
	require.NoError(t, err)
	assert.Equal(t, int64(7), total)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPage(t *testing.T) {
	t.Run("WithTotal", func(t *testing.T) {
		q, mock := newMock(t, dialect.Postgres)
		mock.ExpectQuery("SELECT id, email, age FROM users LIMIT $1 OFFSET $2").
			WithArgs(int64(2), int64(4)).
			WillReturnRows(sqlmock.NewRows([]string{"id", "email", "age"}).
				AddRow("u5", "e@example.com", 40).
				AddRow("u6", "f@example.com", 41))
		mock.ExpectQuery("SELECT COUNT(1) FROM users").
			WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(9))

		out, total, err := builder.Query(users, scanUser).Page(context.Background(), q, 2, 4)
		require.NoError(t, err)
		assert.Len(t, out, 2)
		assert.Equal(t, int64(9), total)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("EmptyFirstPageSkipsCount", func(t *testing.T) {
		q, mock := newMock(t, dialect.Postgres)
		mock.ExpectQuery("SELECT id, email, age FROM users LIMIT $1 OFFSET $2").
			WithArgs(int64(10), int64(0)).
			WillReturnRows(sqlmock.NewRows([]string{"id", "email", "age"}))

		out, total, err := builder.Query(users, scanUser).Page(context.Background(), q, 10, 0)
		require.NoError(t, err)
		assert.Empty(t, out)
		assert.Zero(t, total)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestStream(t *testing.T) {
	t.Run("YieldsAll", func(t *testing.T) {
		q, mock := newMock(t, dialect.Postgres)
		mock.ExpectQuery("SELECT id, email, age FROM users").
			WillReturnRows(sqlmock.NewRows([]string{"id", "email", "age"}).
				AddRow("u1", "a@example.com", 30).
				AddRow("u2", "b@example.com", 31))

		var got []string
		for u, err := range builder.Query(users, scanUser).Stream(context.Background(), q) {
			require.NoError(t, err)
			got = append(got, u.ID)
		}
		assert.Equal(t, []string{"u1", "u2"}, got)
	})

	t.Run("EarlyBreak", func(t *testing.T) {
		q, mock := newMock(t, dialect.Postgres)
		mock.ExpectQuery("SELECT id, email, age FROM users").
			WillReturnRows(sqlmock.NewRows([]string{"id", "email", "age"}).
				AddRow("u1", "a@example.com", 30).
				AddRow("u2", "b@example.com", 31))

		n := 0
		for _, err := range builder.Query(users, scanUser).Stream(context.Background(), q) {
			require.NoError(t, err)
			n++
			break
		}
		assert.Equal(t, 1, n)
	})
}

func TestApply(t *testing.T) {
	t.Run("Renders", func(t *testing.T) {
		q, mock := newMock(t, dialect.Postgres)
		cond := builder.MustCompileCondition(dialect.Postgres, users,
			"email LIKE :pattern OR age IS NULL")

		mock.ExpectQuery("SELECT id, email, age FROM users WHERE (email LIKE $1 OR age IS NULL)").
			WithArgs("a%").
			WillReturnRows(sqlmock.NewRows([]string{"id", "email", "age"}))

		_, err := builder.Query(users, scanUser).
			Apply(cond, "a%").
			All(context.Background(), q)
		require.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("ArityMismatchIsSticky", func(t *testing.T) {
		q, _ := newMock(t, dialect.Postgres)
		cond := builder.MustCompileCondition(dialect.Postgres, users, "age > :min$i32")

		_, err := builder.Query(users, scanUser).
			Apply(cond).
			All(context.Background(), q)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "takes 1 values, got 0")
	})

	t.Run("TypeMismatch", func(t *testing.T) {
		q, _ := newMock(t, dialect.Postgres)
		cond := builder.MustCompileCondition(dialect.Postgres, users, "email = :email")

		_, err := builder.Query(users, scanUser).
			Apply(cond, 42).
			All(context.Background(), q)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "must be string")
	})

	t.Run("MarkerInsideStringLiteralKept", func(t *testing.T) {
		q, mock := newMock(t, dialect.Postgres)
		cond := builder.MustCompileCondition(dialect.Postgres, users,
			"email <> '?' AND email = :email")

		mock.ExpectQuery("SELECT id, email, age FROM users WHERE (email <> '?' AND email = $1)").
			WithArgs("a@example.com").
			WillReturnRows(sqlmock.NewRows([]string{"id", "email", "age"}))

		_, err := builder.Query(users, scanUser).
			Apply(cond, "a@example.com").
			All(context.Background(), q)
		require.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestClone(t *testing.T) {
	q1, mock1 := newMock(t, dialect.Postgres)
	q2, mock2 := newMock(t, dialect.Postgres)
	f := builder.For(users)

	base := builder.Query(users, scanUser).Where(f.Int("age").GTE(18))
	narrowed := base.Clone().Where(f.String("email").EQ("a@example.com"))

	mock1.ExpectQuery("SELECT id, email, age FROM users WHERE (age >= $1)").
		WithArgs(18).
		WillReturnRows(sqlmock.NewRows([]string{"id", "email", "age"}))
	mock2.ExpectQuery("SELECT id, email, age FROM users WHERE (age >= $1) AND (email = $2)").
		WithArgs(18, "a@example.com").
		WillReturnRows(sqlmock.NewRows([]string{"id", "email", "age"}))

	_, err := base.All(context.Background(), q1)
	require.NoError(t, err)
	_, err = narrowed.All(context.Background(), q2)
	require.NoError(t, err)
	assert.NoError(t, mock1.ExpectationsWereMet())
	assert.NoError(t, mock2.ExpectationsWereMet())
}

func TestDebugSlow(t *testing.T) {
	q, mock := newMock(t, dialect.Postgres)
	mock.ExpectQuery("SELECT id, email, age FROM users").
		WillReturnRows(sqlmock.NewRows([]string{"id", "email", "age"}))

	var logged string
	_, err := builder.Query(users, scanUser).
		DebugSlow(0, func(query string, elapsed time.Duration) { logged = query }).
		All(context.Background(), q)
	require.NoError(t, err)
	assert.Equal(t, "SELECT id, email, age FROM users", logged)
}
