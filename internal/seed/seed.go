// Package seed loads sample transactions from YAML into a ledger.
package seed

import (
	"bytes"
	"context"
	_ "embed"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"contas/internal/core"
	"contas/internal/services"
)

//go:embed default.yaml
var defaultSeed []byte

// File is the document layout of a seed file.
type File struct {
	Transactions []Entry `yaml:"transactions"`
}

// Entry is one transaction. Dates are "YYYY-MM-DD" (purchasedAt) and
// "YYYY-MM" (firstInstallmentAt, confirmedThrough).
type Entry struct {
	Name                 string   `yaml:"name"`
	Value                string   `yaml:"value"`
	Category             string   `yaml:"category"`
	Mode                 string   `yaml:"mode"`
	PurchasedAt          string   `yaml:"purchasedAt"`
	FirstInstallmentAt   string   `yaml:"firstInstallmentAt"`
	NumberOfInstallments int      `yaml:"numberOfInstallments,omitempty"`
	Tags                 []string `yaml:"tags,omitempty"`
	// ConfirmedThrough confirms every installment up to this month.
	ConfirmedThrough string `yaml:"confirmedThrough,omitempty"`
}

// Ledger is the part of services.LedgerService seeding needs.
type Ledger interface {
	Create(ctx context.Context, d core.Draft) (core.Transaction, error)
	TogglePaymentConfirmation(ctx context.Context, id int64, paymentMonth core.Month) (services.ToggleResult, error)
}

// Default returns the embedded sample ledger.
func Default() (File, error) {
	return Decode(bytes.NewReader(defaultSeed))
}

// LoadFile reads a seed file from disk.
func LoadFile(path string) (File, error) {
	f, err := os.Open(path)
	if err != nil {
		return File{}, fmt.Errorf("open seed file: %w", err)
	}
	defer f.Close()
	return Decode(f)
}

// Decode parses a seed document. Unknown keys are rejected so typos do not
// silently drop data.
func Decode(r io.Reader) (File, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	var f File
	if err := dec.Decode(&f); err != nil && !errors.Is(err, io.EOF) {
		return File{}, fmt.Errorf("parsing seed file: %w", err)
	}
	return f, nil
}

// Draft converts the entry to validated ledger input.
func (e Entry) Draft() (core.Draft, error) {
	mode, err := core.ParseMode(e.Mode)
	if err != nil {
		return core.Draft{}, err
	}
	category, err := core.ParseCategory(e.Category)
	if err != nil {
		return core.Draft{}, err
	}
	value, err := core.ParseAmount(e.Value)
	if err != nil {
		return core.Draft{}, fmt.Errorf("value %q: %w", e.Value, err)
	}
	purchasedAt, err := core.ParseDay(e.PurchasedAt)
	if err != nil {
		return core.Draft{}, fmt.Errorf("purchasedAt: %w", err)
	}
	first, err := core.ParseMonth(e.FirstInstallmentAt)
	if err != nil {
		return core.Draft{}, fmt.Errorf("firstInstallmentAt: %w", err)
	}
	d := core.Draft{
		Mode:                 mode,
		Name:                 e.Name,
		Value:                value,
		Category:             category,
		PurchasedAt:          purchasedAt,
		FirstInstallmentAt:   first,
		NumberOfInstallments: e.NumberOfInstallments,
		Tags:                 core.NewTagSet(e.Tags...),
	}
	if err := d.Validate(); err != nil {
		return core.Draft{}, err
	}
	return d, nil
}

// Apply creates every entry of f and replays its confirmations in month
// order. It stops at the first error and reports how many entries were
// created.
func Apply(ctx context.Context, ledger Ledger, f File) (int, error) {
	for i, e := range f.Transactions {
		d, err := e.Draft()
		if err != nil {
			return i, fmt.Errorf("entry %d (%s): %w", i+1, e.Name, err)
		}
		t, err := ledger.Create(ctx, d)
		if err != nil {
			return i, fmt.Errorf("create %s: %w", e.Name, err)
		}
		if e.ConfirmedThrough == "" {
			continue
		}
		through, err := core.ParseMonth(e.ConfirmedThrough)
		if err != nil {
			return i + 1, fmt.Errorf("entry %d (%s) confirmedThrough: %w", i+1, e.Name, err)
		}
		if err := confirmThrough(ctx, ledger, t, through); err != nil {
			return i + 1, fmt.Errorf("confirm %s: %w", e.Name, err)
		}
	}
	return len(f.Transactions), nil
}

func confirmThrough(ctx context.Context, ledger Ledger, t core.Transaction, through core.Month) error {
	id := t.Base().ID
	if _, ok := t.(*core.SinglePaymentTransaction); ok {
		_, err := ledger.TogglePaymentConfirmation(ctx, id, t.Base().FirstInstallmentAt)
		return err
	}
	last, bounded := core.LastInstallment(t)
	for m := t.Base().FirstInstallmentAt; !m.After(through); m = m.AddMonths(1) {
		if bounded && m.After(last) {
			break
		}
		if _, err := ledger.TogglePaymentConfirmation(ctx, id, m); err != nil {
			return err
		}
	}
	return nil
}
