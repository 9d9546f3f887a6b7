package core

import (
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func newRecurrent(first Month) *RecurrentTransaction {
	return &RecurrentTransaction{BaseTransaction: BaseTransaction{
		ID: 1, Name: "Netflix", Value: decimal.RequireFromString("39.9"), Category: Expense,
		PurchasedAt: first.Time, FirstInstallmentAt: first, Tags: NewTagSet(),
	}}
}

func newSingle(first Month) *SinglePaymentTransaction {
	return &SinglePaymentTransaction{
		BaseTransaction: BaseTransaction{
			ID: 2, Name: "Livro", Value: decimal.RequireFromString("50.0"), Category: Expense,
			PurchasedAt: first.Time.AddDate(0, 0, 14), FirstInstallmentAt: first, Tags: NewTagSet(),
		},
		LastInstallmentAt: first,
	}
}

func newInstallments(first Month, n int) *InInstallmentsTransaction {
	return &InInstallmentsTransaction{
		BaseTransaction: BaseTransaction{
			ID: 3, Name: "Notebook", Value: decimal.RequireFromString("3600"), Category: Expense,
			PurchasedAt: first.Time, FirstInstallmentAt: first, Tags: NewTagSet(),
		},
		NumberOfInstallments: n,
		LastInstallmentAt:    first.AddMonths(n - 1),
	}
}

// toggle applies one accepted toggle or fails the test.
func toggle(t *testing.T, tx Transaction, month Month) (Transaction, ConfirmationOutcome) {
	t.Helper()
	out, err := ToggleConfirmation(tx, month)
	if err != nil {
		t.Fatalf("toggle at %s: %v", month, err)
	}
	return ApplyOutcome(tx, out), out
}

func expectReason(t *testing.T, tx Transaction, month Month, reason string) {
	t.Helper()
	_, err := ToggleConfirmation(tx, month)
	if !errors.Is(err, ErrOutOfSequencePaymentConfirmation) {
		t.Fatalf("toggle at %s: expected out of sequence, got %v", month, err)
	}
	var oos *OutOfSequenceError
	if !errors.As(err, &oos) || oos.Reason != reason {
		t.Fatalf("toggle at %s: expected reason %q, got %v", month, reason, err)
	}
}

func TestToggleSinglePayment(t *testing.T) {
	first := NewMonth(2023, time.July)
	var tx Transaction = newSingle(first)

	tx, out := toggle(t, tx, NewMonth(2030, time.January))
	if out.Action != ActionCreate || !out.Month.Equal(first) || !out.Confirmed || out.PaidInstallments != 1 {
		t.Fatalf("unexpected confirm outcome %+v", out)
	}
	if tx.(*SinglePaymentTransaction).PaidInstallments != 1 {
		t.Fatal("expected one paid installment")
	}

	tx, out = toggle(t, tx, first)
	if out.Action != ActionDeleteAll || out.Confirmed || out.LastPaymentConfirmationAt != nil {
		t.Fatalf("unexpected unconfirm outcome %+v", out)
	}
	if tx.(*SinglePaymentTransaction).PaidInstallments != 0 || tx.Base().LastPaymentConfirmationAt != nil {
		t.Fatal("expected unconfirmed single payment")
	}
}

func TestToggleRecurrent(t *testing.T) {
	jan := NewMonth(2023, time.January)
	var tx Transaction = newRecurrent(jan)

	expectReason(t, tx, NewMonth(2023, time.March), ReasonMustEqualFirstOccurrence)

	tx, out := toggle(t, tx, jan)
	if out.PaidInstallments != 1 {
		t.Fatalf("expected 1 paid, got %d", out.PaidInstallments)
	}
	tx, out = toggle(t, tx, NewMonth(2023, time.February))
	if out.PaidInstallments != 2 || out.Month.String() != "2023-02" {
		t.Fatalf("unexpected outcome %+v", out)
	}

	expectReason(t, tx, NewMonth(2023, time.April), ReasonOutOfSequence)
	expectReason(t, tx, jan, ReasonCannotRemoveEarlier)

	if got := tx.Base().LastPaymentConfirmationAt; got == nil || got.String() != "2023-02" {
		t.Fatalf("rejections must not move the frontier, got %v", got)
	}
}

func TestToggleInstallmentsFullCycle(t *testing.T) {
	first := NewMonth(2023, time.June)
	var tx Transaction = newInstallments(first, 12)
	if got := tx.(*InInstallmentsTransaction).LastInstallmentAt.String(); got != "2024-05" {
		t.Fatalf("last installment = %s", got)
	}

	for i := 0; i < 12; i++ {
		tx, _ = toggle(t, tx, first.AddMonths(i))
	}
	it := tx.(*InInstallmentsTransaction)
	if it.PaidInstallments != 12 {
		t.Fatalf("expected 12 paid, got %d", it.PaidInstallments)
	}
	expectReason(t, tx, NewMonth(2024, time.June), ReasonOutOfSequence)
}

func TestToggleInstallmentsBoundary(t *testing.T) {
	first := NewMonth(2024, time.January)
	var tx Transaction = newInstallments(first, 2)
	tx, _ = toggle(t, tx, first)
	tx, out := toggle(t, tx, NewMonth(2024, time.February))
	if out.PaidInstallments != 2 {
		t.Fatalf("expected 2 paid, got %d", out.PaidInstallments)
	}
	expectReason(t, tx, NewMonth(2024, time.March), ReasonOutOfSequence)
}

func TestToggleRoundTrip(t *testing.T) {
	first := NewMonth(2023, time.June)
	cases := []struct {
		name string
		tx   Transaction
	}{
		{"recurrent", newRecurrent(first)},
		{"installments", newInstallments(first, 6)},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			// From no confirmation back to none.
			confirmed, _ := toggle(t, tc.tx, first)
			back, out := toggle(t, confirmed, first)
			if out.Action != ActionDelete || back.Base().LastPaymentConfirmationAt != nil {
				t.Fatalf("expected no confirmation left, got %+v", out)
			}

			// From a confirmed month back to it.
			two, _ := toggle(t, confirmed, first.AddMonths(1))
			back, _ = toggle(t, two, first.AddMonths(1))
			got := back.Base().LastPaymentConfirmationAt
			if got == nil || !got.Equal(first) {
				t.Fatalf("expected frontier back at %s, got %v", first, got)
			}
		})
	}
}

func TestToggleIgnoresDayOfMonth(t *testing.T) {
	first := NewMonth(2023, time.January)
	tx := newRecurrent(first)
	day := Month{Time: time.Date(2023, 1, 28, 15, 0, 0, 0, time.UTC)}
	out, err := ToggleConfirmation(tx, day)
	if err != nil {
		t.Fatal(err)
	}
	if out.Month.Day() != 1 || !out.Month.Equal(first) {
		t.Fatalf("expected month-truncated confirmation, got %v", out.Month.Time)
	}
}

func TestToggleRejectsMissingMonth(t *testing.T) {
	_, err := ToggleConfirmation(newRecurrent(NewMonth(2023, time.January)), Month{})
	if !errors.Is(err, ErrInvalidPaymentDate) {
		t.Fatalf("expected ErrInvalidPaymentDate, got %v", err)
	}
}

func TestApplyOutcomeDoesNotMutate(t *testing.T) {
	tx := newInstallments(NewMonth(2023, time.June), 3)
	out, err := ToggleConfirmation(tx, tx.FirstInstallmentAt)
	if err != nil {
		t.Fatal(err)
	}
	_ = ApplyOutcome(tx, out)
	if tx.LastPaymentConfirmationAt != nil || tx.PaidInstallments != 0 {
		t.Fatal("ApplyOutcome modified its input")
	}
}
