package core

import "strings"

// Filters selects transactions for a month listing. Zero-valued fields are
// not applied.
type Filters struct {
	Month      Month
	Term       string
	Tags       TagSet
	Modes      []Mode
	Categories []Category
	Statuses   []Status
}

// MatchesDate reports whether t is due in month.
func MatchesDate(t Transaction, month Month) bool {
	switch v := t.(type) {
	case *RecurrentTransaction:
		return !v.FirstInstallmentAt.After(month)
	case *SinglePaymentTransaction:
		return v.LastInstallmentAt.Equal(month)
	case *InInstallmentsTransaction:
		return !v.FirstInstallmentAt.After(month) && !month.After(v.LastInstallmentAt)
	default:
		unknownTransaction(t)
		return false
	}
}

// CheckPaymentIsConfirmed reports whether the payment frontier of t has
// reached month.
func CheckPaymentIsConfirmed(t Transaction, month Month) bool {
	last := t.Base().LastPaymentConfirmationAt
	return last != nil && !last.Before(month)
}

// StatusOf returns the confirmation status of t for month.
func StatusOf(t Transaction, month Month) Status {
	if CheckPaymentIsConfirmed(t, month) {
		return Confirmed
	}
	return NotConfirmed
}

func MatchesModes(t Transaction, modes []Mode) bool {
	if len(modes) == 0 {
		return true
	}
	for _, m := range modes {
		if t.Mode() == m {
			return true
		}
	}
	return false
}

func MatchesCategories(t Transaction, categories []Category) bool {
	if len(categories) == 0 {
		return true
	}
	for _, c := range categories {
		if t.Base().Category == c {
			return true
		}
	}
	return false
}

// MatchesStatus keeps t when its status for month is one of statuses.
// Selecting both statuses therefore keeps everything.
func MatchesStatus(t Transaction, month Month, statuses []Status) bool {
	if len(statuses) == 0 {
		return true
	}
	status := StatusOf(t, month)
	for _, s := range statuses {
		if s == status {
			return true
		}
	}
	return false
}

// MatchesTerm is a case-insensitive substring match on the name.
func MatchesTerm(t Transaction, term string) bool {
	term = strings.TrimSpace(term)
	if term == "" {
		return true
	}
	return strings.Contains(strings.ToLower(t.Base().Name), strings.ToLower(term))
}

// MatchesTags keeps t when it carries every tag in tags.
func MatchesTags(t Transaction, tags TagSet) bool {
	return tags.IsSubsetOf(t.Base().Tags)
}

// Matches applies every non-empty filter in f to t.
func (f Filters) Matches(t Transaction) bool {
	if !f.Month.IsZero() && !MatchesDate(t, f.Month) {
		return false
	}
	if !f.Month.IsZero() && !MatchesStatus(t, f.Month, f.Statuses) {
		return false
	}
	return MatchesModes(t, f.Modes) &&
		MatchesCategories(t, f.Categories) &&
		MatchesTerm(t, f.Term) &&
		MatchesTags(t, f.Tags)
}

// FilterTransactions returns the transactions that pass f, in input order.
func FilterTransactions(ts []Transaction, f Filters) []Transaction {
	out := make([]Transaction, 0, len(ts))
	for _, t := range ts {
		if f.Matches(t) {
			out = append(out, t)
		}
	}
	return out
}
