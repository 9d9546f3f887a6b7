package core

import "github.com/shopspring/decimal"

// GetBill is the net confirmed balance of ts for month: income adds, expenses
// subtract, and only transactions whose payment frontier reached month count.
func GetBill(ts []Transaction, month Month) decimal.Decimal {
	total := decimal.Zero
	for _, t := range ts {
		if !CheckPaymentIsConfirmed(t, month) {
			continue
		}
		b := t.Base()
		total = total.Add(SignedValue(b.Category, b.Value))
	}
	return total
}

// GetProjectedBalance sums the signed value of every transaction in ts,
// confirmed or not. It is reported next to the bill and never mixed into it.
func GetProjectedBalance(ts []Transaction) decimal.Decimal {
	total := decimal.Zero
	for _, t := range ts {
		b := t.Base()
		total = total.Add(SignedValue(b.Category, b.Value))
	}
	return total
}

// ModeAmount is an amount aggregated by transaction mode.
type ModeAmount struct {
	Mode   Mode
	Count  int
	Amount decimal.Decimal
}

// MonthStatement is the summary of a filtered month listing.
type MonthStatement struct {
	Month        Month
	Transactions []Transaction
	Income       decimal.Decimal
	Expense      decimal.Decimal
	Bill         decimal.Decimal
	Projected    decimal.Decimal
	ByMode       []ModeAmount
}

// NewMonthStatement filters ts and aggregates the result. Income and Expense
// are gross, unsigned totals of the visible transactions.
func NewMonthStatement(ts []Transaction, f Filters) MonthStatement {
	visible := FilterTransactions(ts, f)
	st := MonthStatement{
		Month:        f.Month,
		Transactions: visible,
		Income:       decimal.Zero,
		Expense:      decimal.Zero,
		Bill:         GetBill(visible, f.Month),
		Projected:    GetProjectedBalance(visible),
	}

	byMode := make(map[Mode]*ModeAmount, 3)
	for _, m := range Modes() {
		byMode[m] = &ModeAmount{Mode: m, Amount: decimal.Zero}
	}
	for _, t := range visible {
		b := t.Base()
		switch b.Category {
		case Income:
			st.Income = st.Income.Add(b.Value)
		case Expense:
			st.Expense = st.Expense.Add(b.Value)
		}
		ma := byMode[t.Mode()]
		ma.Count++
		ma.Amount = ma.Amount.Add(SignedValue(b.Category, b.Value))
	}
	for _, m := range Modes() {
		st.ByMode = append(st.ByMode, *byMode[m])
	}
	return st
}
