// Package report renders month statements for people: terminal tables and
// spreadsheet exports.
package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"contas/internal/core"
	"contas/internal/sheets"
)

// Options controls how a statement is printed.
type Options struct {
	Currency Currency
	// Color enables ANSI colours for statuses and amounts.
	Color bool
}

// PrintStatement writes the transactions of st followed by its totals.
func PrintStatement(w io.Writer, st core.MonthStatement, opts Options) {
	rows := sheets.RowsFromStatement(st)
	fmt.Fprintf(w, "Mês %s: %d lançamentos\n\n", st.Month, len(rows))

	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"ID", "Nome", "Categoria", "Modalidade", "Parcela", "Valor", "Status", "Tags"})
	for _, r := range rows {
		t.AppendRow(table.Row{
			r.TransactionID,
			r.Name,
			r.Category.Label(),
			r.Mode.Label(),
			r.Installment,
			colorAmount(opts, r.Value.IsNegative(), opts.Currency.Format(r.Value)),
			colorStatus(opts, r.Status),
			strings.Join(r.Tags, ", "),
		})
	}
	t.SetColumnConfigs([]table.ColumnConfig{
		{Name: "Valor", Align: text.AlignRight, AlignHeader: text.AlignRight},
	})
	t.AppendFooter(table.Row{"", "Fatura", "", "", "", opts.Currency.Format(st.Bill), "", ""})
	t.Render()

	fmt.Fprintln(w)
	summary := table.NewWriter()
	summary.SetOutputMirror(w)
	summary.SetStyle(table.StyleLight)
	summary.AppendHeader(table.Row{"Resumo", "Qtd", "Valor"})
	for _, ma := range st.ByMode {
		summary.AppendRow(table.Row{ma.Mode.Label(), ma.Count, opts.Currency.Format(ma.Amount)})
	}
	summary.AppendSeparator()
	summary.AppendRow(table.Row{"Receitas", "", opts.Currency.Format(st.Income)})
	summary.AppendRow(table.Row{"Despesas", "", opts.Currency.Format(st.Expense.Neg())})
	summary.AppendRow(table.Row{"Fatura (confirmada)", "", opts.Currency.Format(st.Bill)})
	summary.AppendRow(table.Row{"Saldo projetado", "", opts.Currency.Format(st.Projected)})
	summary.SetColumnConfigs([]table.ColumnConfig{
		{Number: 3, Align: text.AlignRight, AlignHeader: text.AlignRight},
	})
	summary.Render()
}

func colorStatus(opts Options, s core.Status) string {
	if !opts.Color {
		return s.Label()
	}
	if s == core.Confirmed {
		return text.FgGreen.Sprint(s.Label())
	}
	return text.FgYellow.Sprint(s.Label())
}

func colorAmount(opts Options, negative bool, s string) string {
	if !opts.Color {
		return s
	}
	if negative {
		return text.FgRed.Sprint(s)
	}
	return text.FgGreen.Sprint(s)
}
