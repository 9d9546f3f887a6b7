package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/xuri/excelize/v2"

	"contas/internal/core"
	"contas/internal/sheets"
)

const (
	paymentsSheet = "Pagamentos"
	summarySheet  = "Resumo"
	// amountFormat is excelize built-in number format 4: "#,##0.00".
	amountFormat = 4
)

// WriteXLSX exports st as a workbook with a payments sheet laid out like the
// Google export and a summary sheet.
func WriteXLSX(w io.Writer, st core.MonthStatement) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", paymentsSheet); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}
	amountStyle, err := f.NewStyle(&excelize.Style{NumFmt: amountFormat})
	if err != nil {
		return fmt.Errorf("create amount style: %w", err)
	}
	headerStyle, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("create header style: %w", err)
	}

	if err := writeRow(f, paymentsSheet, 1, toAny(sheets.Header)); err != nil {
		return err
	}
	rows := sheets.RowsFromStatement(st)
	for i, r := range rows {
		values := r.Values()
		// Keep the amount numeric so the sheet can sum it.
		values[6] = r.Value.Round(2).InexactFloat64()
		if err := writeRow(f, paymentsSheet, i+2, values); err != nil {
			return err
		}
	}
	last := len(rows) + 1
	if err := f.SetCellStyle(paymentsSheet, "A1", "I1", headerStyle); err != nil {
		return fmt.Errorf("style header: %w", err)
	}
	if last > 1 {
		if err := f.SetCellStyle(paymentsSheet, "G2", fmt.Sprintf("G%d", last), amountStyle); err != nil {
			return fmt.Errorf("style amounts: %w", err)
		}
	}
	if err := f.SetColWidth(paymentsSheet, "C", "C", 32); err != nil {
		return fmt.Errorf("set column width: %w", err)
	}

	if _, err := f.NewSheet(summarySheet); err != nil {
		return fmt.Errorf("create summary sheet: %w", err)
	}
	summary := [][]any{
		{"Mês", st.Month.String()},
		{"Receitas", st.Income.Round(2).InexactFloat64()},
		{"Despesas", st.Expense.Neg().Round(2).InexactFloat64()},
		{"Fatura (confirmada)", st.Bill.Round(2).InexactFloat64()},
		{"Saldo projetado", st.Projected.Round(2).InexactFloat64()},
	}
	for _, ma := range st.ByMode {
		summary = append(summary, []any{ma.Mode.Label(), ma.Amount.Round(2).InexactFloat64()})
	}
	for i, values := range summary {
		if err := writeRow(f, summarySheet, i+1, values); err != nil {
			return err
		}
	}
	if err := f.SetCellStyle(summarySheet, "B2", fmt.Sprintf("B%d", len(summary)), amountStyle); err != nil {
		return fmt.Errorf("style summary: %w", err)
	}

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

func writeRow(f *excelize.File, sheet string, row int, values []any) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return err
	}
	if err := f.SetSheetRow(sheet, cell, &values); err != nil {
		return fmt.Errorf("write %s row %d: %w", strings.ToLower(sheet), row, err)
	}
	return nil
}

func toAny(ss []string) []any {
	out := make([]any, len(ss))
	for i, s := range ss {
		out[i] = s
	}
	return out
}
