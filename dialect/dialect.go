// Package dialect provides database dialect abstraction for sqlt.
//
// A dialect selects the lexical rules the parser applies (identifier
// quoting) and the positional placeholder syntax the rewriter emits.
// Everything in between (extraction, validation, rewriting) is
// dialect-agnostic.
package dialect

import "strconv"

// Dialect identifies a supported SQL dialect.
type Dialect string

// Supported dialects.
const (
	// Generic is an ANSI-like dialect with `?` positional parameters.
	Generic Dialect = "generic"
	// Postgres uses `$N` positional parameters.
	Postgres Dialect = "postgres"
	// MySQL uses `?` positional parameters and backtick identifiers.
	MySQL Dialect = "mysql"
	// SQLite uses `?` positional parameters.
	SQLite Dialect = "sqlite"
)

// Valid reports whether d is a known dialect tag.
func (d Dialect) Valid() bool {
	switch d {
	case Generic, Postgres, MySQL, SQLite:
		return true
	}
	return false
}

// String returns the dialect tag.
func (d Dialect) String() string { return string(d) }

// Numbered reports whether the dialect binds parameters by number ($N)
// rather than by position only (?).
func (d Dialect) Numbered() bool { return d == Postgres }

// Placeholder returns the positional parameter marker for slot n (1-based).
func (d Dialect) Placeholder(n int) string {
	if d.Numbered() {
		return "$" + strconv.Itoa(n)
	}
	return "?"
}

// reservedPostgres holds lowercase identifiers that must be quoted when used
// as column names in Postgres or the generic dialect.
var reservedPostgres = map[string]bool{
	"all": true, "any": true, "some": true, "none": true, "between": true,
	"in": true, "like": true, "ilike": true, "similar": true, "order": true,
	"group": true, "where": true, "limit": true, "offset": true,
}

// reservedMySQL holds lowercase identifiers that must be quoted when used
// as column names in MySQL.
var reservedMySQL = map[string]bool{
	"add": true, "all": true, "alter": true, "and": true, "as": true,
	"asc": true, "between": true, "by": true, "case": true, "create": true,
	"database": true, "delete": true, "desc": true, "distinct": true,
	"drop": true, "from": true, "group": true, "having": true, "in": true,
	"insert": true, "into": true, "join": true, "left": true, "like": true,
	"limit": true, "not": true, "null": true, "or": true, "order": true,
	"select": true, "set": true, "table": true, "update": true,
	"values": true, "where": true,
}

// reservedSQLite holds lowercase identifiers that must be quoted when used
// as column names in SQLite. SQLite reserves far more words than the other
// dialects.
var reservedSQLite = map[string]bool{
	"abort": true, "action": true, "add": true, "after": true, "all": true,
	"alter": true, "analyze": true, "and": true, "as": true, "asc": true,
	"attach": true, "autoincrement": true, "before": true, "begin": true,
	"between": true, "by": true, "cascade": true, "case": true, "cast": true,
	"check": true, "collate": true, "column": true, "commit": true,
	"conflict": true, "constraint": true, "create": true, "cross": true,
	"current_date": true, "current_time": true, "current_timestamp": true,
	"database": true, "default": true, "deferrable": true, "deferred": true,
	"delete": true, "desc": true, "detach": true, "distinct": true,
	"drop": true, "each": true, "else": true, "end": true, "escape": true,
	"except": true, "exclusive": true, "exists": true, "explain": true,
	"fail": true, "for": true, "foreign": true, "from": true, "full": true,
	"glob": true, "group": true, "having": true, "if": true, "ignore": true,
	"immediate": true, "in": true, "index": true, "indexed": true,
	"initially": true, "inner": true, "insert": true, "instead": true,
	"intersect": true, "into": true, "is": true, "isnull": true,
	"join": true, "key": true, "left": true, "like": true, "limit": true,
	"match": true, "natural": true, "no": true, "not": true, "notnull": true,
	"null": true, "of": true, "offset": true, "on": true, "or": true,
	"order": true, "outer": true, "plan": true, "pragma": true,
	"primary": true, "query": true, "raise": true, "recursive": true,
	"references": true, "regexp": true, "reindex": true, "release": true,
	"rename": true, "replace": true, "restrict": true, "right": true,
	"rollback": true, "row": true, "savepoint": true, "select": true,
	"set": true, "table": true, "temp": true, "temporary": true,
	"then": true, "to": true, "transaction": true, "trigger": true,
	"union": true, "unique": true, "update": true, "using": true,
	"vacuum": true, "values": true, "view": true, "virtual": true,
	"when": true, "where": true, "with": true, "without": true,
}

// QuoteColumn quotes column when it collides with a reserved word in the
// dialect; otherwise the name is returned unchanged. Field names come from
// the entity schema, so anything beyond reserved-word collisions has
// already been rejected there.
func (d Dialect) QuoteColumn(column string) string {
	lower := lowerASCII(column)
	switch d {
	case MySQL:
		if reservedMySQL[lower] {
			return "`" + column + "`"
		}
	case SQLite:
		if reservedSQLite[lower] {
			return `"` + column + `"`
		}
	default:
		if reservedPostgres[lower] {
			return `"` + column + `"`
		}
	}
	return column
}

func lowerASCII(s string) string {
	b := []byte(s)
	changed := false
	for i, c := range b {
		if c >= 'A' && c <= 'Z' {
			b[i] = c + ('a' - 'A')
			changed = true
		}
	}
	if !changed {
		return s
	}
	return string(b)
}
