package dialect_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/syssam/sqlt/dialect"
)

func TestValid(t *testing.T) {
	assert.True(t, dialect.Generic.Valid())
	assert.True(t, dialect.Postgres.Valid())
	assert.True(t, dialect.MySQL.Valid())
	assert.True(t, dialect.SQLite.Valid())
	assert.False(t, dialect.Dialect("oracle").Valid())
	assert.False(t, dialect.Dialect("").Valid())
}

func TestPlaceholder(t *testing.T) {
	t.Run("Postgres", func(t *testing.T) {
		assert.True(t, dialect.Postgres.Numbered())
		assert.Equal(t, "$1", dialect.Postgres.Placeholder(1))
		assert.Equal(t, "$12", dialect.Postgres.Placeholder(12))
	})

	t.Run("Question", func(t *testing.T) {
		for _, d := range []dialect.Dialect{dialect.Generic, dialect.MySQL, dialect.SQLite} {
			assert.False(t, d.Numbered())
			assert.Equal(t, "?", d.Placeholder(1))
			assert.Equal(t, "?", d.Placeholder(7))
		}
	})
}

func TestQuoteColumn(t *testing.T) {
	t.Run("Plain", func(t *testing.T) {
		assert.Equal(t, "email", dialect.Postgres.QuoteColumn("email"))
		assert.Equal(t, "email", dialect.MySQL.QuoteColumn("email"))
		assert.Equal(t, "email", dialect.SQLite.QuoteColumn("email"))
	})

	t.Run("Reserved", func(t *testing.T) {
		assert.Equal(t, `"order"`, dialect.Postgres.QuoteColumn("order"))
		assert.Equal(t, "`order`", dialect.MySQL.QuoteColumn("order"))
		assert.Equal(t, `"order"`, dialect.SQLite.QuoteColumn("order"))
		// SQLite reserves far more words
		assert.Equal(t, `"key"`, dialect.SQLite.QuoteColumn("key"))
		assert.Equal(t, "key", dialect.Postgres.QuoteColumn("key"))
		assert.Equal(t, "key", dialect.MySQL.QuoteColumn("key"))
	})

	t.Run("CaseInsensitive", func(t *testing.T) {
		assert.Equal(t, `"Order"`, dialect.Postgres.QuoteColumn("Order"))
	})
}
