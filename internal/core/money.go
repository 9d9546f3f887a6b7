// Money parsing and handling utilities.
//
// Amounts are currency-agnostic decimals. Values stored on a transaction are
// always positive; the sign comes from the category.

package core

import (
	"strings"
	"unicode"

	"github.com/shopspring/decimal"
)

// ParseAmount converts a user supplied decimal string into a positive amount.
//
// It accepts both dot (12.34) and comma (12,34) decimal separators. When both
// appear, the last one is the decimal separator and the other must group the
// integer part in thousands. Signs, exponents and zero are rejected.
//
// Examples:
//
//	ParseAmount("12.34")    -> 12.34, nil
//	ParseAmount("12,34")    -> 12.34, nil
//	ParseAmount("1.234,56") -> 1234.56, nil
//	ParseAmount("-1")       -> 0, ErrInvalidAmount
func ParseAmount(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, ErrInvalidAmount
	}
	comma, dot := strings.LastIndex(s, ","), strings.LastIndex(s, ".")
	if comma >= 0 && dot >= 0 {
		sep, group := comma, "."
		if dot > comma {
			sep, group = dot, ","
		}
		intPart, ok := ungroup(s[:sep], group)
		if !ok {
			return decimal.Zero, ErrInvalidAmount
		}
		s = intPart + "." + s[sep+1:]
	} else {
		s = strings.ReplaceAll(s, ",", ".")
	}
	if strings.Count(s, ".") > 1 {
		return decimal.Zero, ErrInvalidAmount
	}
	for _, r := range s {
		if r != '.' && !unicode.IsDigit(r) {
			return decimal.Zero, ErrInvalidAmount
		}
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, ErrInvalidAmount
	}
	if !d.IsPositive() {
		return decimal.Zero, ErrInvalidAmount
	}
	return d, nil
}

// ungroup strips thousands separators: a leading group of one to three
// digits followed by groups of exactly three.
func ungroup(s, sep string) (string, bool) {
	groups := strings.Split(s, sep)
	for i, g := range groups {
		if g == "" || len(g) > 3 || (i > 0 && len(g) != 3) {
			return "", false
		}
		for _, r := range g {
			if !unicode.IsDigit(r) {
				return "", false
			}
		}
	}
	return strings.Join(groups, ""), true
}

// ValidateAmount checks that a stored amount is strictly positive.
func ValidateAmount(d decimal.Decimal) error {
	if !d.IsPositive() {
		return ErrInvalidAmount
	}
	return nil
}

// SignedValue returns +value for income and -value for expenses.
func SignedValue(category Category, value decimal.Decimal) decimal.Decimal {
	if category == Expense {
		return value.Neg()
	}
	return value
}
