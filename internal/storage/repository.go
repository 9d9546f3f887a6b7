// Package storage persists the ledger in SQLite.
package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/shopspring/decimal"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"contas/internal/core"
	"contas/internal/services"
)

const dateLayout = "2006-01-02"

// SQLiteRepository implements services.Store on a single SQLite file.
type SQLiteRepository struct {
	ledgerQueries
	db *sql.DB
}

var _ services.Store = (*SQLiteRepository)(nil)

// dsn enables foreign keys and waits on a locked database instead of failing.
func dsn(dbPath string) string {
	return "file:" + dbPath + "?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dsn(dbPath))
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	// One writer at a time; SQLite serialises writes anyway.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{ledgerQueries: ledgerQueries{q: New(db)}, db: db}, nil
}

// RunInTx runs fn inside a database transaction, committing when it
// returns nil.
func (r *SQLiteRepository) RunInTx(ctx context.Context, fn func(q services.Queries) error) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	if err := fn(ledgerQueries{q: r.q.WithTx(tx)}); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return errors.Join(err, fmt.Errorf("rollback: %w", rbErr))
		}
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// ledgerQueries maps services.Queries onto the generated queries.
type ledgerQueries struct {
	q *Queries
}

func (l ledgerQueries) LoadTransaction(ctx context.Context, id int64) (core.Record, error) {
	row, err := l.q.GetTransaction(ctx, id)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Record{}, core.ErrTransactionNotFound
	}
	if err != nil {
		return core.Record{}, fmt.Errorf("get transaction: %w", err)
	}
	return toRecord(row, sql.NullString{})
}

func (l ledgerQueries) LoadLatestConfirmation(ctx context.Context, transactionID int64) (*core.Month, error) {
	paidAt, err := l.q.GetLatestConfirmation(ctx, transactionID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get latest confirmation: %w", err)
	}
	m, err := parseMonthColumn(paidAt)
	if err != nil {
		return nil, err
	}
	return &m, nil
}

func (l ledgerQueries) InsertConfirmation(ctx context.Context, transactionID int64, month core.Month) error {
	err := l.q.CreateConfirmation(ctx, ConfirmationParams{TransactionID: transactionID, PaidAt: formatMonth(month)})
	if isUniqueViolation(err) {
		return fmt.Errorf("insert confirmation %s: %w", month, core.ErrConfirmationConflict)
	}
	if err != nil {
		return fmt.Errorf("insert confirmation %s: %w", month, err)
	}
	return nil
}

func (l ledgerQueries) DeleteConfirmation(ctx context.Context, transactionID int64, month core.Month) error {
	if err := l.q.DeleteConfirmation(ctx, ConfirmationParams{TransactionID: transactionID, PaidAt: formatMonth(month)}); err != nil {
		return fmt.Errorf("delete confirmation %s: %w", month, err)
	}
	return nil
}

func (l ledgerQueries) DeleteAllConfirmations(ctx context.Context, transactionID int64) error {
	if err := l.q.DeleteConfirmations(ctx, transactionID); err != nil {
		return fmt.Errorf("delete confirmations: %w", err)
	}
	return nil
}

func (l ledgerQueries) ListConfirmations(ctx context.Context, transactionID int64) ([]core.Month, error) {
	rows, err := l.q.ListConfirmations(ctx, transactionID)
	if err != nil {
		return nil, fmt.Errorf("list confirmations: %w", err)
	}
	out := make([]core.Month, 0, len(rows))
	for _, s := range rows {
		m, err := parseMonthColumn(s)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, nil
}

func (l ledgerQueries) CreateTransaction(ctx context.Context, r core.Record) (int64, error) {
	params, err := toParams(r)
	if err != nil {
		return 0, err
	}
	id, err := l.q.CreateTransaction(ctx, params)
	if err != nil {
		return 0, fmt.Errorf("insert transaction: %w", err)
	}
	return id, nil
}

func (l ledgerQueries) UpdateTransaction(ctx context.Context, r core.Record) error {
	params, err := toParams(r)
	if err != nil {
		return err
	}
	n, err := l.q.UpdateTransaction(ctx, UpdateTransactionParams{CreateTransactionParams: params, ID: r.ID})
	if err != nil {
		return fmt.Errorf("update transaction: %w", err)
	}
	if n == 0 {
		return core.ErrTransactionNotFound
	}
	return nil
}

func (l ledgerQueries) UpdateDetails(ctx context.Context, id int64, d core.Details) error {
	tags, err := encodeTags(d.Tags.Sorted())
	if err != nil {
		return err
	}
	n, err := l.q.UpdateTransactionDetails(ctx, UpdateTransactionDetailsParams{
		Name:     d.Name,
		Value:    d.Value.String(),
		Category: string(d.Category),
		Tags:     tags,
		ID:       id,
	})
	if err != nil {
		return fmt.Errorf("update transaction details: %w", err)
	}
	if n == 0 {
		return core.ErrTransactionNotFound
	}
	return nil
}

func (l ledgerQueries) DeleteTransaction(ctx context.Context, id int64) error {
	if err := l.q.DeleteConfirmations(ctx, id); err != nil {
		return fmt.Errorf("delete confirmations: %w", err)
	}
	n, err := l.q.DeleteTransaction(ctx, id)
	if err != nil {
		return fmt.Errorf("delete transaction: %w", err)
	}
	if n == 0 {
		return core.ErrTransactionNotFound
	}
	return nil
}

func (l ledgerQueries) ListTransactions(ctx context.Context, minMonth core.Month) ([]core.Record, error) {
	rows, err := l.q.ListTransactionsFrom(ctx, formatMonth(minMonth))
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	out := make([]core.Record, 0, len(rows))
	for _, row := range rows {
		rec, err := toRecord(row.Transaction, row.LatestConfirmation)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, nil
}

func toParams(r core.Record) (CreateTransactionParams, error) {
	if err := checkStorableDates(r); err != nil {
		return CreateTransactionParams{}, err
	}
	tags, err := encodeTags(r.Tags)
	if err != nil {
		return CreateTransactionParams{}, err
	}
	p := CreateTransactionParams{
		Name:               r.Name,
		Value:              r.Value.String(),
		Category:           string(r.Category),
		Mode:               string(r.Mode),
		PurchasedAt:        r.PurchasedAt.Format(dateLayout),
		FirstInstallmentAt: formatMonth(r.FirstInstallmentAt),
		Tags:               tags,
	}
	if r.NumberOfInstallments != nil {
		p.NumberOfInstallments = sql.NullInt64{Int64: int64(*r.NumberOfInstallments), Valid: true}
	}
	if r.LastInstallmentAt != nil {
		p.LastInstallmentAt = sql.NullString{String: formatMonth(*r.LastInstallmentAt), Valid: true}
	}
	return p, nil
}

// toRecord decodes a row. Column values are passed through as found so that
// ConvertTransaction can reject inconsistent rows.
func toRecord(t Transaction, latest sql.NullString) (core.Record, error) {
	value, err := decimal.NewFromString(t.Value)
	if err != nil {
		return core.Record{}, fmt.Errorf("transaction %d: decode value %q: %w", t.ID, t.Value, err)
	}
	purchasedAt, err := time.Parse(dateLayout, t.PurchasedAt)
	if err != nil {
		return core.Record{}, fmt.Errorf("transaction %d: decode purchased_at: %w", t.ID, err)
	}
	first, err := parseMonthColumn(t.FirstInstallmentAt)
	if err != nil {
		return core.Record{}, fmt.Errorf("transaction %d: %w", t.ID, err)
	}
	var tags []string
	if err := json.Unmarshal([]byte(t.Tags), &tags); err != nil {
		return core.Record{}, fmt.Errorf("transaction %d: decode tags: %w", t.ID, err)
	}

	rec := core.Record{
		ID:                 t.ID,
		Name:               t.Name,
		Value:              value,
		Category:           core.Category(t.Category),
		Mode:               core.Mode(t.Mode),
		PurchasedAt:        purchasedAt,
		FirstInstallmentAt: first,
		Tags:               tags,
	}
	if t.NumberOfInstallments.Valid {
		n := int(t.NumberOfInstallments.Int64)
		rec.NumberOfInstallments = &n
	}
	if t.LastInstallmentAt.Valid {
		m, err := parseMonthColumn(t.LastInstallmentAt.String)
		if err != nil {
			return core.Record{}, fmt.Errorf("transaction %d: %w", t.ID, err)
		}
		rec.LastInstallmentAt = &m
	}
	if latest.Valid {
		m, err := parseMonthColumn(latest.String)
		if err != nil {
			return core.Record{}, fmt.Errorf("transaction %d: %w", t.ID, err)
		}
		rec.LatestConfirmation = &m
	}
	return rec, nil
}

// checkStorableDates refuses dates that dateLayout cannot read back.
func checkStorableDates(r core.Record) error {
	dates := []time.Time{r.PurchasedAt, r.FirstInstallmentAt.Time}
	if r.LastInstallmentAt != nil {
		dates = append(dates, r.LastInstallmentAt.Time)
	}
	for _, d := range dates {
		if y := d.Year(); y < 1 || y > 9999 {
			return fmt.Errorf("transaction %d: %w: %s", r.ID, core.ErrDateOutOfRange, d.Format(time.RFC3339))
		}
	}
	return nil
}

func formatMonth(m core.Month) string {
	return m.Format(dateLayout)
}

func parseMonthColumn(s string) (core.Month, error) {
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return core.Month{}, fmt.Errorf("decode month %q: %w", s, err)
	}
	return core.TruncateToMonth(t), nil
}

func encodeTags(tags []string) (string, error) {
	if tags == nil {
		tags = []string{}
	}
	b, err := json.Marshal(tags)
	if err != nil {
		return "", fmt.Errorf("encode tags: %w", err)
	}
	return string(b), nil
}

func isUniqueViolation(err error) bool {
	var se *sqlite.Error
	if errors.As(err, &se) {
		return se.Code() == sqlite3.SQLITE_CONSTRAINT_UNIQUE
	}
	return false
}
