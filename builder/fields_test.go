package builder_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/syssam/sqlt/builder"
)

func TestForPanics(t *testing.T) {
	f := builder.For(users)

	t.Run("UnknownField", func(t *testing.T) {
		assert.Panics(t, func() { f.String("height") })
	})

	t.Run("CategoryMismatch", func(t *testing.T) {
		assert.Panics(t, func() { f.String("age") })
		assert.Panics(t, func() { f.Int("email") })
		assert.Panics(t, func() { f.Time("id") })
	})

	t.Run("Matching", func(t *testing.T) {
		assert.NotPanics(t, func() {
			f.UUID("id")
			f.String("email")
			f.Int("age")
		})
	})
}
