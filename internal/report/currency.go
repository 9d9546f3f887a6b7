package report

import (
	"strings"

	"github.com/shopspring/decimal"
	"golang.org/x/text/currency"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"
)

// symbolOverrides replaces the x/text narrow symbol where it is not the one
// people expect.
var symbolOverrides = map[string]string{
	"BRL": "R$",
}

// Currency formats amounts with a locale's separators and a currency symbol.
type Currency struct {
	Code    string
	unit    currency.Unit
	printer *message.Printer
}

// DefaultCurrency is the Brazilian real with pt-BR formatting.
func DefaultCurrency() Currency {
	c, _ := NewCurrency("BRL", language.BrazilianPortuguese)
	return c
}

// NewCurrency returns the currency for an ISO code, formatted for tag. An
// unknown code is reported but still usable: it formats with the code as
// symbol.
func NewCurrency(code string, tag language.Tag) (Currency, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	unit, err := currency.ParseISO(code)
	c := Currency{Code: code, unit: unit, printer: message.NewPrinter(tag)}
	if err != nil {
		c.unit = currency.XXX
		return c, err
	}
	return c, nil
}

func (c Currency) symbol() string {
	if sym, ok := symbolOverrides[c.Code]; ok {
		return sym
	}
	if c.unit == currency.XXX {
		return c.Code
	}
	return c.printer.Sprint(currency.NarrowSymbol(c.unit))
}

// Format renders amount with two fraction digits, e.g. "R$ 1.234,50" or
// "-R$ 10,00".
func (c Currency) Format(amount decimal.Decimal) string {
	abs := amount.Abs().Round(2).InexactFloat64()
	formatted := c.printer.Sprint(number.Decimal(abs, number.MinFractionDigits(2), number.MaxFractionDigits(2)))
	out := c.symbol() + " " + formatted
	if amount.Round(2).IsNegative() {
		return "-" + out
	}
	return out
}
