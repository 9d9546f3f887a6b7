package services

import (
	"context"

	"contas/internal/core"
)

// Queries are the storage operations the ledger needs. Every method is atomic
// on its own; RunInTx groups several into one unit.
type Queries interface {
	// LoadTransaction returns the stored record without its confirmation, or
	// core.ErrTransactionNotFound.
	LoadTransaction(ctx context.Context, id int64) (core.Record, error)
	// LoadLatestConfirmation returns the most recent confirmation month, or
	// nil when the transaction has none.
	LoadLatestConfirmation(ctx context.Context, transactionID int64) (*core.Month, error)
	// InsertConfirmation fails with core.ErrConfirmationConflict when the
	// month is already confirmed.
	InsertConfirmation(ctx context.Context, transactionID int64, month core.Month) error
	DeleteConfirmation(ctx context.Context, transactionID int64, month core.Month) error
	DeleteAllConfirmations(ctx context.Context, transactionID int64) error
	ListConfirmations(ctx context.Context, transactionID int64) ([]core.Month, error)

	CreateTransaction(ctx context.Context, r core.Record) (int64, error)
	// UpdateTransaction rewrites every column of r.ID.
	UpdateTransaction(ctx context.Context, r core.Record) error
	UpdateDetails(ctx context.Context, id int64, d core.Details) error
	// DeleteTransaction removes the transaction and its confirmations.
	DeleteTransaction(ctx context.Context, id int64) error
	// ListTransactions returns records whose last installment is at or after
	// minMonth, or that have none, with LatestConfirmation filled. Order is
	// purchase date descending, then name and id ascending.
	ListTransactions(ctx context.Context, minMonth core.Month) ([]core.Record, error)
}

// Store is a Queries implementation able to run a function atomically.
type Store interface {
	Queries
	RunInTx(ctx context.Context, fn func(q Queries) error) error
	Ping(ctx context.Context) error
	Close() error
}
