package sheets

import (
	"context"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"contas/internal/core"
)

// PaymentRow is a transaction as seen in one month of the payments sheet.
type PaymentRow struct {
	Month         core.Month
	TransactionID int64
	Name          string
	Category      core.Category
	Mode          core.Mode
	// Installment is "n/total" for installment plans and single payments and
	// empty for recurrent transactions.
	Installment string
	// Value is signed: negative for expenses.
	Value  decimal.Decimal
	Status core.Status
	Tags   []string
}

// Ports for outbound adapters.
type (
	// MonthWriter replaces every exported row of a month.
	MonthWriter interface {
		ReplaceMonth(ctx context.Context, month core.Month, rows []PaymentRow) error
	}

	// MonthReader returns the exported rows of a month.
	MonthReader interface {
		ReadMonth(ctx context.Context, month core.Month) ([]PaymentRow, error)
	}

	// TransactionRemover drops every row of a deleted transaction.
	TransactionRemover interface {
		RemoveTransaction(ctx context.Context, transactionID int64) error
	}

	// Exporter is the full export sink used by the worker.
	Exporter interface {
		MonthWriter
		MonthReader
		TransactionRemover
	}
)

// RowsFromStatement flattens a month statement into sheet rows, keeping the
// statement order.
func RowsFromStatement(st core.MonthStatement) []PaymentRow {
	rows := make([]PaymentRow, 0, len(st.Transactions))
	for _, t := range st.Transactions {
		b := t.Base()
		rows = append(rows, PaymentRow{
			Month:         st.Month,
			TransactionID: b.ID,
			Name:          b.Name,
			Category:      b.Category,
			Mode:          t.Mode(),
			Installment:   InstallmentLabel(t, st.Month),
			Value:         core.SignedValue(b.Category, b.Value),
			Status:        core.StatusOf(t, st.Month),
			Tags:          b.Tags.Sorted(),
		})
	}
	return rows
}

// InstallmentLabel renders which installment of t falls in month, e.g. "3/12".
func InstallmentLabel(t core.Transaction, month core.Month) string {
	total, _, ok := core.Installments(t)
	if !ok {
		return ""
	}
	n := core.MonthsBetween(t.Base().FirstInstallmentAt, month) + 1
	return fmt.Sprintf("%d/%d", n, total)
}

// Header is the first row of the payments sheet.
var Header = []string{"Mês", "ID", "Nome", "Categoria", "Modalidade", "Parcela", "Valor", "Status", "Tags"}

// Values encodes the row in Header column order.
func (r PaymentRow) Values() []any {
	return []any{
		r.Month.String(),
		r.TransactionID,
		r.Name,
		r.Category.Label(),
		r.Mode.Label(),
		r.Installment,
		r.Value.StringFixed(2),
		r.Status.Label(),
		strings.Join(r.Tags, ", "),
	}
}

// ParseRow decodes a sheet row written by Values.
func ParseRow(cols []string) (PaymentRow, error) {
	if len(cols) < 8 {
		return PaymentRow{}, fmt.Errorf("row has %d columns, want at least 8", len(cols))
	}
	for i := range cols {
		cols[i] = strings.TrimSpace(cols[i])
	}

	month, err := core.ParseMonth(cols[0])
	if err != nil {
		return PaymentRow{}, fmt.Errorf("month column: %w", err)
	}
	var id int64
	if _, err := fmt.Sscan(cols[1], &id); err != nil {
		return PaymentRow{}, fmt.Errorf("id column %q: %w", cols[1], err)
	}
	category, ok := lookupLabel(core.Categories(), cols[3])
	if !ok {
		return PaymentRow{}, fmt.Errorf("%w: %q", core.ErrInvalidCategory, cols[3])
	}
	mode, ok := lookupLabel(core.Modes(), cols[4])
	if !ok {
		return PaymentRow{}, fmt.Errorf("%w: %q", core.ErrInvalidMode, cols[4])
	}
	value, err := decimal.NewFromString(strings.ReplaceAll(cols[6], ",", "."))
	if err != nil {
		return PaymentRow{}, fmt.Errorf("value column %q: %w", cols[6], err)
	}
	status, ok := lookupLabel(core.Statuses(), cols[7])
	if !ok {
		return PaymentRow{}, fmt.Errorf("%w: %q", core.ErrInvalidStatus, cols[7])
	}

	row := PaymentRow{
		Month:         month,
		TransactionID: id,
		Name:          cols[2],
		Category:      category,
		Mode:          mode,
		Installment:   cols[5],
		Value:         value,
		Status:        status,
	}
	if len(cols) > 8 && cols[8] != "" {
		for _, tag := range strings.Split(cols[8], ",") {
			if tag = strings.TrimSpace(tag); tag != "" {
				row.Tags = append(row.Tags, tag)
			}
		}
	}
	return row, nil
}

type labeled interface {
	~string
	Label() string
}

// lookupLabel accepts either the pt-BR label or the enum name.
func lookupLabel[T labeled](all []T, s string) (T, bool) {
	for _, v := range all {
		if strings.EqualFold(v.Label(), s) || strings.EqualFold(string(v), s) {
			return v, true
		}
	}
	var zero T
	return zero, false
}
