package storage

import (
	"context"
	"database/sql"
)

const transactionColumns = `id, name, value, category, mode, purchased_at, first_installment_at,
    number_of_installments, last_installment_at, tags`

func scanTransaction(row interface{ Scan(...any) error }, t *Transaction, extra ...any) error {
	dest := append([]any{
		&t.ID, &t.Name, &t.Value, &t.Category, &t.Mode, &t.PurchasedAt, &t.FirstInstallmentAt,
		&t.NumberOfInstallments, &t.LastInstallmentAt, &t.Tags,
	}, extra...)
	return row.Scan(dest...)
}

const getTransaction = `-- name: GetTransaction :one
SELECT ` + transactionColumns + `
FROM transactions
WHERE id = ?`

func (q *Queries) GetTransaction(ctx context.Context, id int64) (Transaction, error) {
	var t Transaction
	err := scanTransaction(q.db.QueryRowContext(ctx, getTransaction, id), &t)
	return t, err
}

const listTransactionsFrom = `-- name: ListTransactionsFrom :many
SELECT ` + transactionColumns + `,
    (SELECT MAX(c.paid_at)
       FROM transaction_payment_confirmations c
      WHERE c.transaction_id = transactions.id) AS latest_confirmation
FROM transactions
WHERE last_installment_at IS NULL OR last_installment_at >= ?
ORDER BY purchased_at DESC, name ASC, id ASC`

func (q *Queries) ListTransactionsFrom(ctx context.Context, minMonth string) ([]ListTransactionsFromRow, error) {
	rows, err := q.db.QueryContext(ctx, listTransactionsFrom, minMonth)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []ListTransactionsFromRow
	for rows.Next() {
		var i ListTransactionsFromRow
		if err := scanTransaction(rows, &i.Transaction, &i.LatestConfirmation); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const createTransaction = `-- name: CreateTransaction :one
INSERT INTO transactions (
    name, value, category, mode, purchased_at, first_installment_at,
    number_of_installments, last_installment_at, tags
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
RETURNING id`

type CreateTransactionParams struct {
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

func (q *Queries) CreateTransaction(ctx context.Context, arg CreateTransactionParams) (int64, error) {
	row := q.db.QueryRowContext(ctx, createTransaction,
		arg.Name,
		arg.Value,
		arg.Category,
		arg.Mode,
		arg.PurchasedAt,
		arg.FirstInstallmentAt,
		arg.NumberOfInstallments,
		arg.LastInstallmentAt,
		arg.Tags,
	)
	var id int64
	err := row.Scan(&id)
	return id, err
}

const updateTransaction = `-- name: UpdateTransaction :execrows
UPDATE transactions
SET name = ?, value = ?, category = ?, mode = ?, purchased_at = ?, first_installment_at = ?,
    number_of_installments = ?, last_installment_at = ?, tags = ?,
    updated_at = strftime('%Y-%m-%dT%H:%M:%SZ', 'now')
WHERE id = ?`

type UpdateTransactionParams struct {
	CreateTransactionParams
	ID int64
}

func (q *Queries) UpdateTransaction(ctx context.Context, arg UpdateTransactionParams) (int64, error) {
	result, err := q.db.ExecContext(ctx, updateTransaction,
		arg.Name,
		arg.Value,
		arg.Category,
		arg.Mode,
		arg.PurchasedAt,
		arg.FirstInstallmentAt,
		arg.NumberOfInstallments,
		arg.LastInstallmentAt,
		arg.Tags,
		arg.ID,
	)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

const updateTransactionDetails = `-- name: UpdateTransactionDetails :execrows
UPDATE transactions
SET name = ?, value = ?, category = ?, tags = ?,
    updated_at = strftime('%Y-%m-%dT%H:%M:%SZ', 'now')
WHERE id = ?`

type UpdateTransactionDetailsParams struct {
	Name     string
	Value    string
	Category string
	Tags     string
	ID       int64
}

func (q *Queries) UpdateTransactionDetails(ctx context.Context, arg UpdateTransactionDetailsParams) (int64, error) {
	result, err := q.db.ExecContext(ctx, updateTransactionDetails,
		arg.Name, arg.Value, arg.Category, arg.Tags, arg.ID)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

const deleteTransaction = `-- name: DeleteTransaction :execrows
DELETE FROM transactions WHERE id = ?`

func (q *Queries) DeleteTransaction(ctx context.Context, id int64) (int64, error) {
	result, err := q.db.ExecContext(ctx, deleteTransaction, id)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

const getLatestConfirmation = `-- name: GetLatestConfirmation :one
SELECT paid_at
FROM transaction_payment_confirmations
WHERE transaction_id = ?
ORDER BY paid_at DESC
LIMIT 1`

func (q *Queries) GetLatestConfirmation(ctx context.Context, transactionID int64) (string, error) {
	var paidAt string
	err := q.db.QueryRowContext(ctx, getLatestConfirmation, transactionID).Scan(&paidAt)
	return paidAt, err
}

const listConfirmations = `-- name: ListConfirmations :many
SELECT paid_at
FROM transaction_payment_confirmations
WHERE transaction_id = ?
ORDER BY paid_at ASC`

func (q *Queries) ListConfirmations(ctx context.Context, transactionID int64) ([]string, error) {
	rows, err := q.db.QueryContext(ctx, listConfirmations, transactionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []string
	for rows.Next() {
		var paidAt string
		if err := rows.Scan(&paidAt); err != nil {
			return nil, err
		}
		items = append(items, paidAt)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const createConfirmation = `-- name: CreateConfirmation :exec
INSERT INTO transaction_payment_confirmations (transaction_id, paid_at)
VALUES (?, ?)`

type ConfirmationParams struct {
	TransactionID int64
	PaidAt        string
}

func (q *Queries) CreateConfirmation(ctx context.Context, arg ConfirmationParams) error {
	_, err := q.db.ExecContext(ctx, createConfirmation, arg.TransactionID, arg.PaidAt)
	return err
}

const deleteConfirmation = `-- name: DeleteConfirmation :exec
DELETE FROM transaction_payment_confirmations
WHERE transaction_id = ? AND paid_at = ?`

func (q *Queries) DeleteConfirmation(ctx context.Context, arg ConfirmationParams) error {
	_, err := q.db.ExecContext(ctx, deleteConfirmation, arg.TransactionID, arg.PaidAt)
	return err
}

const deleteConfirmations = `-- name: DeleteConfirmations :exec
DELETE FROM transaction_payment_confirmations
WHERE transaction_id = ?`

func (q *Queries) DeleteConfirmations(ctx context.Context, transactionID int64) error {
	_, err := q.db.ExecContext(ctx, deleteConfirmations, transactionID)
	return err
}
