package core

import "fmt"

// Action is the single storage mutation a confirmation toggle results in.
type Action string

const (
	ActionCreate    Action = "create"
	ActionDelete    Action = "delete"
	ActionDeleteAll Action = "delete_all"
)

// ConfirmationOutcome describes an accepted toggle. Month is the confirmation
// row to insert or delete; it is zero for ActionDeleteAll.
type ConfirmationOutcome struct {
	Action                    Action
	Month                     Month
	Confirmed                 bool
	PaidInstallments          int
	LastPaymentConfirmationAt *Month
}

// ToggleConfirmation decides how a toggle at paymentMonth changes the
// confirmations of t. It never touches storage; the caller applies the
// returned action. Rejections are *OutOfSequenceError values.
//
// Single payments flip between confirmed and unconfirmed regardless of
// paymentMonth. Recurrent and installment transactions only move their
// frontier by one month per call: forward when paymentMonth is the month
// after the latest confirmation, backward when it is the latest one.
func ToggleConfirmation(t Transaction, paymentMonth Month) (ConfirmationOutcome, error) {
	if paymentMonth.IsZero() {
		return ConfirmationOutcome{}, fmt.Errorf("%w: missing payment month", ErrInvalidPaymentDate)
	}
	paymentMonth = TruncateToMonth(paymentMonth.Time)
	b := t.Base()

	switch v := t.(type) {
	case *SinglePaymentTransaction:
		if b.LastPaymentConfirmationAt == nil {
			first := b.FirstInstallmentAt
			return ConfirmationOutcome{
				Action:                    ActionCreate,
				Month:                     first,
				Confirmed:                 true,
				PaidInstallments:          1,
				LastPaymentConfirmationAt: &first,
			}, nil
		}
		return ConfirmationOutcome{Action: ActionDeleteAll}, nil

	case *RecurrentTransaction:
		return toggleSequenced(b, paymentMonth, nil)

	case *InInstallmentsTransaction:
		last := v.LastInstallmentAt
		return toggleSequenced(b, paymentMonth, &last)

	default:
		unknownTransaction(t)
		return ConfirmationOutcome{}, nil
	}
}

// toggleSequenced is the month-ordered policy shared by recurrent and
// installment transactions. upper bounds the frontier; nil means unbounded.
func toggleSequenced(b *BaseTransaction, paymentMonth Month, upper *Month) (ConfirmationOutcome, error) {
	first := b.FirstInstallmentAt

	if b.LastPaymentConfirmationAt == nil {
		if !paymentMonth.Equal(first) {
			return ConfirmationOutcome{}, &OutOfSequenceError{Reason: ReasonMustEqualFirstOccurrence, Month: paymentMonth}
		}
		return ConfirmationOutcome{
			Action:                    ActionCreate,
			Month:                     first,
			Confirmed:                 true,
			PaidInstallments:          1,
			LastPaymentConfirmationAt: &first,
		}, nil
	}

	latest := *b.LastPaymentConfirmationAt
	next := latest.AddMonths(1)

	switch {
	case paymentMonth.Equal(latest):
		out := ConfirmationOutcome{Action: ActionDelete, Month: latest}
		if prev := latest.AddMonths(-1); !prev.Before(first) {
			out.LastPaymentConfirmationAt = &prev
		}
		out.PaidInstallments = PaidInstallmentsFromConfirmation(first, out.LastPaymentConfirmationAt)
		return out, nil

	case paymentMonth.Equal(next) && (upper == nil || !next.After(*upper)):
		return ConfirmationOutcome{
			Action:                    ActionCreate,
			Month:                     next,
			Confirmed:                 true,
			PaidInstallments:          PaidInstallmentsFromConfirmation(first, &next),
			LastPaymentConfirmationAt: &next,
		}, nil

	case paymentMonth.Before(latest):
		return ConfirmationOutcome{}, &OutOfSequenceError{Reason: ReasonCannotRemoveEarlier, Month: paymentMonth}

	default:
		return ConfirmationOutcome{}, &OutOfSequenceError{Reason: ReasonOutOfSequence, Month: paymentMonth}
	}
}

// ApplyOutcome returns a copy of t reflecting an accepted toggle. t itself is
// not modified.
func ApplyOutcome(t Transaction, o ConfirmationOutcome) Transaction {
	var latest *Month
	if o.LastPaymentConfirmationAt != nil {
		m := *o.LastPaymentConfirmationAt
		latest = &m
	}

	switch v := t.(type) {
	case *RecurrentTransaction:
		c := *v
		c.LastPaymentConfirmationAt = latest
		return &c
	case *SinglePaymentTransaction:
		c := *v
		c.LastPaymentConfirmationAt = latest
		c.PaidInstallments = PaidInstallmentsFromConfirmation(c.FirstInstallmentAt, latest)
		return &c
	case *InInstallmentsTransaction:
		c := *v
		c.LastPaymentConfirmationAt = latest
		c.PaidInstallments = PaidInstallmentsFromConfirmation(c.FirstInstallmentAt, latest)
		return &c
	default:
		unknownTransaction(t)
		return nil
	}
}
