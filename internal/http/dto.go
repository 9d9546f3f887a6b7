package http

import (
	"contas/internal/core"
)

// TransactionJSON is the wire shape of a transaction. Amounts are decimal
// strings with two places; months are "YYYY-MM".
type TransactionJSON struct {
	ID                        int64       `json:"id"`
	Name                      string      `json:"name"`
	Value                     string      `json:"value"`
	Category                  string      `json:"category"`
	CategoryLabel             string      `json:"categoryLabel"`
	Mode                      string      `json:"mode"`
	ModeLabel                 string      `json:"modeLabel"`
	PurchasedAt               string      `json:"purchasedAt"`
	FirstInstallmentAt        core.Month  `json:"firstInstallmentAt"`
	LastInstallmentAt         *core.Month `json:"lastInstallmentAt"`
	NumberOfInstallments      *int        `json:"numberOfInstallments"`
	PaidInstallments          *int        `json:"paidInstallments"`
	LastPaymentConfirmationAt *core.Month `json:"lastPaymentConfirmationAt"`
	Tags                      []string    `json:"tags"`
	// Status is set only in month listings.
	Status string `json:"status,omitempty"`
}

func newTransactionJSON(t core.Transaction) TransactionJSON {
	b := t.Base()
	out := TransactionJSON{
		ID:                        b.ID,
		Name:                      b.Name,
		Value:                     b.Value.StringFixed(2),
		Category:                  string(b.Category),
		CategoryLabel:             b.Category.Label(),
		Mode:                      string(t.Mode()),
		ModeLabel:                 t.Mode().Label(),
		PurchasedAt:               b.PurchasedAt.Format("2006-01-02"),
		FirstInstallmentAt:        b.FirstInstallmentAt,
		LastPaymentConfirmationAt: b.LastPaymentConfirmationAt,
		Tags:                      b.Tags.Sorted(),
	}
	if out.Tags == nil {
		out.Tags = []string{}
	}
	if total, paid, ok := core.Installments(t); ok {
		out.NumberOfInstallments, out.PaidInstallments = &total, &paid
	}
	if last, ok := core.LastInstallment(t); ok {
		out.LastInstallmentAt = &last
	}
	return out
}

// ModeAmountJSON is a per-mode subtotal.
type ModeAmountJSON struct {
	Mode   string `json:"mode"`
	Label  string `json:"label"`
	Count  int    `json:"count"`
	Amount string `json:"amount"`
}

// StatementJSON is the response of a month listing.
type StatementJSON struct {
	Month        core.Month        `json:"month"`
	Income       string            `json:"income"`
	Expense      string            `json:"expense"`
	Bill         string            `json:"bill"`
	Projected    string            `json:"projected"`
	ByMode       []ModeAmountJSON  `json:"byMode"`
	Transactions []TransactionJSON `json:"transactions"`
}

func newStatementJSON(st core.MonthStatement) StatementJSON {
	out := StatementJSON{
		Month:        st.Month,
		Income:       st.Income.StringFixed(2),
		Expense:      st.Expense.StringFixed(2),
		Bill:         st.Bill.StringFixed(2),
		Projected:    st.Projected.StringFixed(2),
		ByMode:       make([]ModeAmountJSON, 0, len(st.ByMode)),
		Transactions: make([]TransactionJSON, 0, len(st.Transactions)),
	}
	for _, ma := range st.ByMode {
		out.ByMode = append(out.ByMode, ModeAmountJSON{
			Mode:   string(ma.Mode),
			Label:  ma.Mode.Label(),
			Count:  ma.Count,
			Amount: ma.Amount.StringFixed(2),
		})
	}
	for _, t := range st.Transactions {
		tj := newTransactionJSON(t)
		tj.Status = string(core.StatusOf(t, st.Month))
		out.Transactions = append(out.Transactions, tj)
	}
	return out
}

// ToggleJSON reports the result of a confirmation toggle.
type ToggleJSON struct {
	Action      string          `json:"action"`
	Month       core.Month      `json:"month"`
	Confirmed   bool            `json:"confirmed"`
	Transaction TransactionJSON `json:"transaction"`
}

// ConfirmationsJSON lists the confirmed months of a transaction.
type ConfirmationsJSON struct {
	TransactionID int64        `json:"transactionId"`
	Months        []core.Month `json:"months"`
}
