package memory

import (
	"context"
	"slices"
	"sync"

	"contas/internal/core"
	"contas/internal/sheets"
)

// Sink keeps the exported payment rows in memory, keyed by month.
type Sink struct {
	mu     sync.Mutex
	months map[string][]sheets.PaymentRow
	writes int
}

var _ sheets.Exporter = (*Sink)(nil)

func New() *Sink {
	return &Sink{months: make(map[string][]sheets.PaymentRow)}
}

// ReplaceMonth stores a copy of rows as the content of month.
func (s *Sink) ReplaceMonth(_ context.Context, month core.Month, rows []sheets.PaymentRow) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.writes++
	if len(rows) == 0 {
		delete(s.months, month.String())
		return nil
	}
	s.months[month.String()] = slices.Clone(rows)
	return nil
}

func (s *Sink) ReadMonth(_ context.Context, month core.Month) ([]sheets.PaymentRow, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.months[month.String()]), nil
}

func (s *Sink) RemoveTransaction(_ context.Context, transactionID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for key, rows := range s.months {
		kept := slices.DeleteFunc(slices.Clone(rows), func(r sheets.PaymentRow) bool {
			return r.TransactionID == transactionID
		})
		if len(kept) == 0 {
			delete(s.months, key)
			continue
		}
		s.months[key] = kept
	}
	return nil
}

// Writes counts ReplaceMonth calls.
func (s *Sink) Writes() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.writes
}
