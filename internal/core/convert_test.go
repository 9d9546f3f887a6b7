package core

import (
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func intPtr(n int) *int { return &n }

func monthPtr(m Month) *Month { return &m }

func baseRecord(mode Mode) Record {
	return Record{
		ID:                 7,
		Name:               "Notebook",
		Value:              decimal.RequireFromString("3600"),
		Category:           Expense,
		Mode:               mode,
		PurchasedAt:        time.Date(2023, 6, 10, 0, 0, 0, 0, time.UTC),
		FirstInstallmentAt: NewMonth(2023, time.June),
		Tags:               []string{"casa", "eletrônicos"},
	}
}

func TestConvertTransaction(t *testing.T) {
	t.Run("recurrent ignores installment columns", func(t *testing.T) {
		r := baseRecord(Recurrent)
		r.NumberOfInstallments = intPtr(5)
		r.LatestConfirmation = monthPtr(NewMonth(2023, time.August))
		got, err := ConvertTransaction(r)
		if err != nil {
			t.Fatal(err)
		}
		rt, ok := got.(*RecurrentTransaction)
		if !ok {
			t.Fatalf("expected *RecurrentTransaction, got %T", got)
		}
		if rt.LastPaymentConfirmationAt == nil || rt.LastPaymentConfirmationAt.String() != "2023-08" {
			t.Fatalf("unexpected last confirmation %v", rt.LastPaymentConfirmationAt)
		}
		if !rt.Tags.Has("casa") || len(rt.Tags) != 2 {
			t.Fatalf("unexpected tags %v", rt.Tags)
		}
	})

	t.Run("single payment", func(t *testing.T) {
		r := baseRecord(SinglePayment)
		r.NumberOfInstallments = intPtr(1)
		r.LastInstallmentAt = monthPtr(r.FirstInstallmentAt)
		r.LatestConfirmation = monthPtr(r.FirstInstallmentAt)
		got, err := ConvertTransaction(r)
		if err != nil {
			t.Fatal(err)
		}
		sp := got.(*SinglePaymentTransaction)
		if sp.PaidInstallments != 1 || !sp.LastInstallmentAt.Equal(sp.FirstInstallmentAt) {
			t.Fatalf("unexpected single payment %+v", sp)
		}
	})

	t.Run("installments derive paid count", func(t *testing.T) {
		r := baseRecord(InInstallments)
		r.NumberOfInstallments = intPtr(12)
		r.LastInstallmentAt = monthPtr(NewMonth(2024, time.May))
		r.LatestConfirmation = monthPtr(NewMonth(2023, time.September))
		got, err := ConvertTransaction(r)
		if err != nil {
			t.Fatal(err)
		}
		it := got.(*InInstallmentsTransaction)
		if it.PaidInstallments != 4 || it.NumberOfInstallments != 12 {
			t.Fatalf("unexpected installments %+v", it)
		}
		total, paid, ok := Installments(it)
		if !ok || total != 12 || paid != 4 {
			t.Fatalf("Installments = %d, %d, %v", total, paid, ok)
		}
	})

	invalid := []struct {
		name   string
		mutate func(*Record)
	}{
		{"single payment with two installments", func(r *Record) {
			r.Mode = SinglePayment
			r.NumberOfInstallments = intPtr(2)
			r.LastInstallmentAt = monthPtr(r.FirstInstallmentAt)
		}},
		{"single payment without count", func(r *Record) {
			r.Mode = SinglePayment
			r.LastInstallmentAt = monthPtr(r.FirstInstallmentAt)
		}},
		{"single payment without last installment", func(r *Record) {
			r.Mode = SinglePayment
			r.NumberOfInstallments = intPtr(1)
		}},
		{"installments without count", func(r *Record) {
			r.Mode = InInstallments
			r.LastInstallmentAt = monthPtr(NewMonth(2024, time.May))
		}},
		{"installments without last installment", func(r *Record) {
			r.Mode = InInstallments
			r.NumberOfInstallments = intPtr(12)
		}},
		{"unknown mode", func(r *Record) {
			r.Mode = Mode("WEEKLY")
		}},
	}
	for _, tc := range invalid {
		t.Run(tc.name, func(t *testing.T) {
			r := baseRecord(Recurrent)
			tc.mutate(&r)
			_, err := ConvertTransaction(r)
			if !errors.Is(err, ErrInvalidTransactionData) {
				t.Fatalf("expected ErrInvalidTransactionData, got %v", err)
			}
			var ide *InvalidTransactionDataError
			if !errors.As(err, &ide) || ide.ID != 7 {
				t.Fatalf("expected typed error with id, got %v", err)
			}
		})
	}
}

func TestToRecordRoundTrip(t *testing.T) {
	r := baseRecord(InInstallments)
	r.NumberOfInstallments = intPtr(3)
	r.LastInstallmentAt = monthPtr(NewMonth(2023, time.August))
	tx, err := ConvertTransaction(r)
	if err != nil {
		t.Fatal(err)
	}
	back := ToRecord(tx)
	if *back.NumberOfInstallments != 3 || !back.LastInstallmentAt.Equal(*r.LastInstallmentAt) || back.Mode != InInstallments {
		t.Fatalf("unexpected record %+v", back)
	}
	if back.Tags[0] != "casa" {
		t.Fatalf("tags must be sorted, got %v", back.Tags)
	}
}

func TestDraftValidate(t *testing.T) {
	valid := Draft{
		Mode:                 InInstallments,
		Name:                 "Sofá",
		Value:                decimal.RequireFromString("1800"),
		Category:             Expense,
		PurchasedAt:          time.Date(2023, 5, 20, 0, 0, 0, 0, time.UTC),
		FirstInstallmentAt:   NewMonth(2023, time.June),
		NumberOfInstallments: 6,
	}
	if err := valid.Validate(); err != nil {
		t.Fatalf("valid draft rejected: %v", err)
	}

	cases := []struct {
		name   string
		mutate func(*Draft)
		want   error
	}{
		{"blank name", func(d *Draft) { d.Name = "  " }, ErrEmptyName},
		{"zero value", func(d *Draft) { d.Value = decimal.Zero }, ErrInvalidAmount},
		{"bad category", func(d *Draft) { d.Category = "GIFT" }, ErrInvalidCategory},
		{"bad mode", func(d *Draft) { d.Mode = "" }, ErrInvalidMode},
		{"one installment", func(d *Draft) { d.NumberOfInstallments = 1 }, ErrInvalidInstallments},
		{"first before purchase", func(d *Draft) { d.FirstInstallmentAt = NewMonth(2023, time.April) }, ErrFirstBeforePurchase},
		{"missing purchase", func(d *Draft) { d.PurchasedAt = time.Time{} }, ErrMissingDate},
		{"too many installments", func(d *Draft) { d.NumberOfInstallments = 100000 }, ErrInvalidInstallments},
		{"last installment after year 9999", func(d *Draft) {
			d.PurchasedAt = time.Date(9999, 1, 10, 0, 0, 0, 0, time.UTC)
			d.FirstInstallmentAt = NewMonth(9999, time.January)
			d.NumberOfInstallments = 13
		}, ErrInvalidInstallments},
		{"purchase after year 9999", func(d *Draft) {
			d.PurchasedAt = time.Date(10000, 1, 1, 0, 0, 0, 0, time.UTC)
			d.FirstInstallmentAt = NewMonth(10000, time.January)
		}, ErrDateOutOfRange},
		{"purchase in year zero", func(d *Draft) { d.PurchasedAt = time.Date(0, 12, 1, 0, 0, 0, 0, time.UTC) }, ErrDateOutOfRange},
		{"first installment after year 9999", func(d *Draft) { d.FirstInstallmentAt = NewMonth(10000, time.March) }, ErrDateOutOfRange},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			d := valid
			tc.mutate(&d)
			if err := d.Validate(); !errors.Is(err, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}
		})
	}
}

func TestDraftNormalize(t *testing.T) {
	d := Draft{Mode: InInstallments, FirstInstallmentAt: NewMonth(2023, time.June), NumberOfInstallments: 12}
	n, last := d.Normalize()
	if *n != 12 || last.String() != "2024-05" {
		t.Fatalf("got %d, %s", *n, last)
	}
	d.Mode = SinglePayment
	n, last = d.Normalize()
	if *n != 1 || !last.Equal(d.FirstInstallmentAt) {
		t.Fatalf("single payment got %d, %s", *n, last)
	}
	d.Mode = Recurrent
	if n, last = d.Normalize(); n != nil || last != nil {
		t.Fatal("recurrent must not carry installment columns")
	}
}

func TestParseEnums(t *testing.T) {
	if m, err := ParseMode("in_installments"); err != nil || m != InInstallments {
		t.Fatalf("ParseMode: %v %v", m, err)
	}
	if _, err := ParseCategory("other"); !errors.Is(err, ErrInvalidCategory) {
		t.Fatalf("ParseCategory: %v", err)
	}
	if s, err := ParseStatus("confirmed"); err != nil || s != Confirmed {
		t.Fatalf("ParseStatus: %v %v", s, err)
	}
	if SinglePayment.Label() != "À vista" || Expense.Label() != "Despesa" || NotConfirmed.Label() != "Não confirmadas" {
		t.Fatal("unexpected labels")
	}
}
