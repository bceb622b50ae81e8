// Package repository provides database access for the report engine.
//
// Queries are hand-written SQL over database/sql with the pgx stdlib driver.
// The engine never assumes more of the storage layer than read-row-by-id and
// update-row-by-id, each atomic at the row level.
package repository

import (
	"context"
	"database/sql"
)

// DBTX is the subset of database/sql shared by *sql.DB and *sql.Tx.
type DBTX interface {
	ExecContext(context.Context, string, ...interface{}) (sql.Result, error)
	QueryContext(context.Context, string, ...interface{}) (*sql.Rows, error)
	QueryRowContext(context.Context, string, ...interface{}) *sql.Row
}

// Queries holds prepared access to the database.
type Queries struct {
	db DBTX
}

// New creates a Queries backed by the given connection or transaction.
func New(db DBTX) *Queries {
	return &Queries{db: db}
}

// WithTx returns a Queries that runs within the given transaction.
func (q *Queries) WithTx(tx *sql.Tx) *Queries {
	return &Queries{db: tx}
}
