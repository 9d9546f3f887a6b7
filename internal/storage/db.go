package storage

import (
	"context"
	"database/sql"
)

// DBTX is satisfied by both *sql.DB and *sql.Tx.
type DBTX interface {
	ExecContext(context.Context, string, ...interface{}) (sql.Result, error)
	QueryContext(context.Context, string, ...interface{}) (*sql.Rows, error)
	QueryRowContext(context.Context, string, ...interface{}) *sql.Row
}

func New(db DBTX) *Queries {
	return &Queries{db: db}
}

type Queries struct {
	db DBTX
}

func (q *Queries) WithTx(tx *sql.Tx) *Queries {
	return &Queries{db: tx}
}

// Transaction mirrors a row of the transactions table. Dates are stored as
// YYYY-MM-DD text so they sort lexically.
type Transaction struct {
	ID                   int64
	Name                 string
	Value                string
	Category             string
	Mode                 string
	PurchasedAt          string
	FirstInstallmentAt   string
	NumberOfInstallments sql.NullInt64
	LastInstallmentAt    sql.NullString
	Tags                 string
}

type ListTransactionsFromRow struct {
	Transaction
	LatestConfirmation sql.NullString
}
