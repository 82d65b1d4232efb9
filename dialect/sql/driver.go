// Package sql is a thin adapter over database/sql used by builder
// terminals and generated access functions. It carries the dialect tag
// alongside the connection so compiled, dialect-specific SQL is executed
// against a matching driver.
package sql

import (
	"context"
	"database/sql"
	"database/sql/driver"

	"github.com/syssam/sqlt/dialect"
)

// ExecQuerier wraps the standard Exec and Query methods.
type ExecQuerier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

// Driver pairs a connection with its dialect tag.
type Driver struct {
	Conn
	dialect dialect.Dialect
}

// NewDriver creates a new Driver with the given Conn and dialect.
func NewDriver(d dialect.Dialect, c Conn) *Driver {
	return &Driver{dialect: d, Conn: c}
}

// Open wraps database/sql.Open and tags the connection with a dialect.
func Open(d dialect.Dialect, driverName, source string) (*Driver, error) {
	db, err := sql.Open(driverName, source)
	if err != nil {
		return nil, err
	}
	return NewDriver(d, Conn{db}), nil
}

// OpenDB wraps an existing database/sql.DB with a Driver.
func OpenDB(d dialect.Dialect, db *sql.DB) *Driver {
	return NewDriver(d, Conn{db})
}

// DB returns the underlying *sql.DB instance.
func (d Driver) DB() *sql.DB {
	return d.ExecQuerier.(*sql.DB)
}

// Dialect returns the dialect tag of the connection.
func (d Driver) Dialect() dialect.Dialect {
	return d.dialect
}

// Tx starts and returns a transaction whose Conn keeps the driver's
// dialect tag.
func (d *Driver) Tx(ctx context.Context) (*Tx, error) {
	return d.BeginTx(ctx, nil)
}

// BeginTx starts a transaction with options.
func (d *Driver) BeginTx(ctx context.Context, opts *TxOptions) (*Tx, error) {
	tx, err := d.DB().BeginTx(ctx, opts)
	if err != nil {
		return nil, err
	}
	return &Tx{
		Conn:    Conn{tx},
		Tx:      tx,
		dialect: d.dialect,
	}, nil
}

// Close closes the underlying connection.
func (d *Driver) Close() error { return d.DB().Close() }

// Tx wraps an open transaction.
type Tx struct {
	Conn
	driver.Tx
	dialect dialect.Dialect
}

// Dialect returns the dialect tag of the transaction's connection.
func (t *Tx) Dialect() dialect.Dialect { return t.dialect }

// Conn implements ExecQuerier over a *sql.DB, *sql.Tx or *sql.Conn.
type Conn struct {
	ExecQuerier
}

type (
	// Rows is an alias to sql.Rows.
	Rows = sql.Rows
	// Result is an alias to sql.Result.
	Result = sql.Result
	// NullBool is an alias to sql.NullBool.
	NullBool = sql.NullBool
	// NullInt64 is an alias to sql.NullInt64.
	NullInt64 = sql.NullInt64
	// NullString is an alias to sql.NullString.
	NullString = sql.NullString
	// NullFloat64 is an alias to sql.NullFloat64.
	NullFloat64 = sql.NullFloat64
	// NullTime is an alias to sql.NullTime.
	NullTime = sql.NullTime
	// TxOptions holds the transaction options to be used in DB.BeginTx.
	TxOptions = sql.TxOptions
)
