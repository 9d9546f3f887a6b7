package core

import (
	"fmt"
	"sort"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/shopspring/decimal"
)

const (
	Recurrent      Mode = "RECURRENT"
	SinglePayment  Mode = "SINGLE_PAYMENT"
	InInstallments Mode = "IN_INSTALLMENTS"

	Income  Category = "INCOME"
	Expense Category = "EXPENSE"

	Confirmed    Status = "CONFIRMED"
	NotConfirmed Status = "NOT_CONFIRMED"
)

const maxNameLength = 255

// Dates are stored as "YYYY-MM-DD", so every month a transaction touches must
// fall within four-digit years.
const (
	minYear         = 1
	maxYear         = 9999
	maxInstallments = 1200
)

type (
	// Mode discriminates the Transaction variants.
	Mode string

	// Category decides the sign of a transaction in a balance.
	Category string

	// Status is the confirmation state of a transaction for a given month.
	Status string
)

// Modes lists every transaction mode in display order.
func Modes() []Mode { return []Mode{Recurrent, SinglePayment, InInstallments} }

// Categories lists every transaction category in display order.
func Categories() []Category { return []Category{Income, Expense} }

// Statuses lists every confirmation status in display order.
func Statuses() []Status { return []Status{Confirmed, NotConfirmed} }

func (m Mode) IsValid() bool {
	switch m {
	case Recurrent, SinglePayment, InInstallments:
		return true
	}
	return false
}

func (c Category) IsValid() bool {
	return c == Income || c == Expense
}

func (s Status) IsValid() bool {
	return s == Confirmed || s == NotConfirmed
}

// ParseMode parses a mode name, case-insensitively.
func ParseMode(s string) (Mode, error) {
	m := Mode(strings.ToUpper(strings.TrimSpace(s)))
	if !m.IsValid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidMode, s)
	}
	return m, nil
}

// ParseCategory parses a category name, case-insensitively.
func ParseCategory(s string) (Category, error) {
	c := Category(strings.ToUpper(strings.TrimSpace(s)))
	if !c.IsValid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidCategory, s)
	}
	return c, nil
}

// ParseStatus parses a status name, case-insensitively.
func ParseStatus(s string) (Status, error) {
	st := Status(strings.ToUpper(strings.TrimSpace(s)))
	if !st.IsValid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidStatus, s)
	}
	return st, nil
}

var (
	modeLabels = map[Mode]string{
		Recurrent:      "Recorrente",
		SinglePayment:  "À vista",
		InInstallments: "Parcelada",
	}
	categoryLabels = map[Category]string{
		Income:  "Receita",
		Expense: "Despesa",
	}
	statusLabels = map[Status]string{
		Confirmed:    "Confirmadas",
		NotConfirmed: "Não confirmadas",
	}
)

// Label returns the user facing (pt-BR) name of the mode.
func (m Mode) Label() string { return modeLabels[m] }

// Label returns the user facing (pt-BR) name of the category.
func (c Category) Label() string { return categoryLabels[c] }

// Label returns the user facing (pt-BR) name of the status.
func (s Status) Label() string { return statusLabels[s] }

// TagSet is an unordered set of free-form labels.
type TagSet map[string]struct{}

// NewTagSet builds a set from tags, dropping blanks and surrounding spaces.
func NewTagSet(tags ...string) TagSet {
	set := make(TagSet, len(tags))
	for _, t := range tags {
		t = strings.TrimSpace(t)
		if t == "" {
			continue
		}
		set[t] = struct{}{}
	}
	return set
}

func (s TagSet) Has(tag string) bool {
	_, ok := s[tag]
	return ok
}

// IsSubsetOf reports whether every tag in s is also in other.
func (s TagSet) IsSubsetOf(other TagSet) bool {
	for t := range s {
		if !other.Has(t) {
			return false
		}
	}
	return true
}

// Sorted returns the tags in ascending order. Tags are persisted sorted.
func (s TagSet) Sorted() []string {
	out := make([]string, 0, len(s))
	for t := range s {
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}

// BaseTransaction holds the fields shared by every mode.
type BaseTransaction struct {
	ID                        int64
	Name                      string
	Value                     decimal.Decimal
	Category                  Category
	PurchasedAt               time.Time
	FirstInstallmentAt        Month
	Tags                      TagSet
	LastPaymentConfirmationAt *Month
}

// Transaction is the closed set of transaction variants:
// *RecurrentTransaction, *SinglePaymentTransaction and
// *InInstallmentsTransaction.
type Transaction interface {
	Base() *BaseTransaction
	Mode() Mode
	isTransaction()
}

// RecurrentTransaction repeats every month from FirstInstallmentAt onwards.
type RecurrentTransaction struct {
	BaseTransaction
}

// SinglePaymentTransaction is due once, in FirstInstallmentAt.
type SinglePaymentTransaction struct {
	BaseTransaction
	LastInstallmentAt Month
	PaidInstallments  int
}

// InInstallmentsTransaction is split into NumberOfInstallments monthly parts.
type InInstallmentsTransaction struct {
	BaseTransaction
	NumberOfInstallments int
	LastInstallmentAt    Month
	PaidInstallments     int
}

func (t *RecurrentTransaction) Base() *BaseTransaction      { return &t.BaseTransaction }
func (t *SinglePaymentTransaction) Base() *BaseTransaction  { return &t.BaseTransaction }
func (t *InInstallmentsTransaction) Base() *BaseTransaction { return &t.BaseTransaction }

func (*RecurrentTransaction) Mode() Mode      { return Recurrent }
func (*SinglePaymentTransaction) Mode() Mode  { return SinglePayment }
func (*InInstallmentsTransaction) Mode() Mode { return InInstallments }

func (*RecurrentTransaction) isTransaction()      {}
func (*SinglePaymentTransaction) isTransaction()  {}
func (*InInstallmentsTransaction) isTransaction() {}

// NumberOfInstallments is always 1 for a single payment.
func (*SinglePaymentTransaction) NumberOfInstallments() int { return 1 }

// unknownTransaction is called from the default branch of every type switch
// over Transaction. Reaching it means a variant was added without updating
// that switch.
func unknownTransaction(t Transaction) {
	panic(fmt.Sprintf("core: unhandled transaction variant %T", t))
}

// Installments returns the total and paid installment counts. ok is false for
// recurrent transactions, which have no fixed total.
func Installments(t Transaction) (total, paid int, ok bool) {
	switch v := t.(type) {
	case *RecurrentTransaction:
		return 0, 0, false
	case *SinglePaymentTransaction:
		return 1, v.PaidInstallments, true
	case *InInstallmentsTransaction:
		return v.NumberOfInstallments, v.PaidInstallments, true
	default:
		unknownTransaction(t)
		return 0, 0, false
	}
}

// LastInstallment returns the final due month; ok is false for recurrent
// transactions.
func LastInstallment(t Transaction) (Month, bool) {
	switch v := t.(type) {
	case *RecurrentTransaction:
		return Month{}, false
	case *SinglePaymentTransaction:
		return v.LastInstallmentAt, true
	case *InInstallmentsTransaction:
		return v.LastInstallmentAt, true
	default:
		unknownTransaction(t)
		return Month{}, false
	}
}

// Draft is the user input for creating or fully editing a transaction.
// LastInstallmentAt is derived and never supplied.
type Draft struct {
	Mode                 Mode
	Name                 string
	Value                decimal.Decimal
	Category             Category
	PurchasedAt          time.Time
	FirstInstallmentAt   Month
	NumberOfInstallments int
	Tags                 TagSet
}

// Details are the fields that may change after payments were confirmed.
type Details struct {
	Name     string
	Value    decimal.Decimal
	Category Category
	Tags     TagSet
}

func (d Details) Validate() error {
	name := strings.TrimSpace(d.Name)
	if name == "" {
		return ErrEmptyName
	}
	if utf8.RuneCountInString(name) > maxNameLength {
		return ErrNameTooLong
	}
	if err := ValidateAmount(d.Value); err != nil {
		return err
	}
	if !d.Category.IsValid() {
		return ErrInvalidCategory
	}
	return nil
}

func (d Draft) Validate() error {
	if !d.Mode.IsValid() {
		return ErrInvalidMode
	}
	if err := (Details{Name: d.Name, Value: d.Value, Category: d.Category}).Validate(); err != nil {
		return err
	}
	if d.PurchasedAt.IsZero() {
		return fmt.Errorf("%w: purchased at", ErrMissingDate)
	}
	if d.FirstInstallmentAt.IsZero() {
		return fmt.Errorf("%w: first installment", ErrMissingDate)
	}
	if !yearInRange(d.PurchasedAt.Year()) {
		return fmt.Errorf("%w: purchased at %s", ErrDateOutOfRange, d.PurchasedAt.Format("2006-01-02"))
	}
	if !yearInRange(d.FirstInstallmentAt.Year()) {
		return fmt.Errorf("%w: first installment %s", ErrDateOutOfRange, d.FirstInstallmentAt)
	}
	if d.FirstInstallmentAt.Before(TruncateToMonth(d.PurchasedAt)) {
		return ErrFirstBeforePurchase
	}
	if d.Mode == InInstallments {
		if d.NumberOfInstallments < 2 {
			return fmt.Errorf("%w: must be at least 2", ErrInvalidInstallments)
		}
		if d.NumberOfInstallments > maxInstallments {
			return fmt.Errorf("%w: at most %d", ErrInvalidInstallments, maxInstallments)
		}
		if last := d.FirstInstallmentAt.AddMonths(d.NumberOfInstallments - 1); last.Year() > maxYear {
			return fmt.Errorf("%w: last installment after year %d", ErrInvalidInstallments, maxYear)
		}
	}
	return nil
}

func yearInRange(y int) bool {
	return y >= minYear && y <= maxYear
}

// Normalize fills the derived installment fields for the draft's mode and
// returns them as they are persisted: nil for recurrent transactions.
func (d Draft) Normalize() (numberOfInstallments *int, lastInstallmentAt *Month) {
	switch d.Mode {
	case SinglePayment:
		n, last := 1, d.FirstInstallmentAt
		return &n, &last
	case InInstallments:
		n := d.NumberOfInstallments
		last := d.FirstInstallmentAt.AddMonths(n - 1)
		return &n, &last
	default:
		return nil, nil
	}
}
