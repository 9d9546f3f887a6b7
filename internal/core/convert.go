package core

import (
	"time"

	"github.com/shopspring/decimal"
)

// Record is a transaction as it is stored: base columns, the nullable
// mode-specific columns and the month of its latest payment confirmation.
type Record struct {
	ID                   int64
	Name                 string
	Value                decimal.Decimal
	Category             Category
	Mode                 Mode
	PurchasedAt          time.Time
	FirstInstallmentAt   Month
	NumberOfInstallments *int
	LastInstallmentAt    *Month
	Tags                 []string
	LatestConfirmation   *Month
}

// ConvertTransaction builds the typed variant for r.Mode. A record whose
// installment columns contradict its mode is rejected with an
// *InvalidTransactionDataError; nothing is coerced.
func ConvertTransaction(r Record) (Transaction, error) {
	base := BaseTransaction{
		ID:                 r.ID,
		Name:               r.Name,
		Value:              r.Value,
		Category:           r.Category,
		PurchasedAt:        r.PurchasedAt,
		FirstInstallmentAt: TruncateToMonth(r.FirstInstallmentAt.Time),
		Tags:               NewTagSet(r.Tags...),
	}
	if r.LatestConfirmation != nil && !r.LatestConfirmation.IsZero() {
		latest := TruncateToMonth(r.LatestConfirmation.Time)
		base.LastPaymentConfirmationAt = &latest
	}

	invalid := func(detail string) error {
		return &InvalidTransactionDataError{ID: r.ID, Mode: r.Mode, Detail: detail}
	}

	switch r.Mode {
	case Recurrent:
		return &RecurrentTransaction{BaseTransaction: base}, nil

	case SinglePayment:
		if r.NumberOfInstallments == nil || *r.NumberOfInstallments != 1 {
			return nil, invalid("number of installments must be 1")
		}
		if r.LastInstallmentAt == nil || r.LastInstallmentAt.IsZero() {
			return nil, invalid("missing last installment")
		}
		return &SinglePaymentTransaction{
			BaseTransaction:   base,
			LastInstallmentAt: TruncateToMonth(r.LastInstallmentAt.Time),
			PaidInstallments:  PaidInstallmentsFromConfirmation(base.FirstInstallmentAt, base.LastPaymentConfirmationAt),
		}, nil

	case InInstallments:
		if r.NumberOfInstallments == nil {
			return nil, invalid("missing number of installments")
		}
		if r.LastInstallmentAt == nil || r.LastInstallmentAt.IsZero() {
			return nil, invalid("missing last installment")
		}
		return &InInstallmentsTransaction{
			BaseTransaction:      base,
			NumberOfInstallments: *r.NumberOfInstallments,
			LastInstallmentAt:    TruncateToMonth(r.LastInstallmentAt.Time),
			PaidInstallments:     PaidInstallmentsFromConfirmation(base.FirstInstallmentAt, base.LastPaymentConfirmationAt),
		}, nil

	default:
		return nil, invalid("unknown mode")
	}
}

// ToRecord is the inverse of ConvertTransaction.
func ToRecord(t Transaction) Record {
	b := t.Base()
	r := Record{
		ID:                 b.ID,
		Name:               b.Name,
		Value:              b.Value,
		Category:           b.Category,
		Mode:               t.Mode(),
		PurchasedAt:        b.PurchasedAt,
		FirstInstallmentAt: b.FirstInstallmentAt,
		Tags:               b.Tags.Sorted(),
		LatestConfirmation: b.LastPaymentConfirmationAt,
	}
	switch v := t.(type) {
	case *RecurrentTransaction:
	case *SinglePaymentTransaction:
		n, last := 1, v.LastInstallmentAt
		r.NumberOfInstallments, r.LastInstallmentAt = &n, &last
	case *InInstallmentsTransaction:
		n, last := v.NumberOfInstallments, v.LastInstallmentAt
		r.NumberOfInstallments, r.LastInstallmentAt = &n, &last
	default:
		unknownTransaction(t)
	}
	return r
}

// RecordFromDraft returns the stored shape of a validated draft.
func RecordFromDraft(id int64, d Draft) Record {
	n, last := d.Normalize()
	return Record{
		ID:                   id,
		Name:                 d.Name,
		Value:                d.Value,
		Category:             d.Category,
		Mode:                 d.Mode,
		PurchasedAt:          d.PurchasedAt,
		FirstInstallmentAt:   d.FirstInstallmentAt,
		NumberOfInstallments: n,
		LastInstallmentAt:    last,
		Tags:                 d.Tags.Sorted(),
	}
}
