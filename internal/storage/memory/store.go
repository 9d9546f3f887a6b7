// Package memory is an in-process ledger store for development and tests.
package memory

import (
	"context"
	"fmt"
	"slices"
	"sort"
	"sync"

	"contas/internal/core"
	"contas/internal/services"
)

type state struct {
	nextID        int64
	transactions  map[int64]core.Record
	confirmations map[int64][]core.Month // ascending
}

func (s *state) clone() *state {
	c := &state{
		nextID:        s.nextID,
		transactions:  make(map[int64]core.Record, len(s.transactions)),
		confirmations: make(map[int64][]core.Month, len(s.confirmations)),
	}
	for id, r := range s.transactions {
		r.Tags = slices.Clone(r.Tags)
		c.transactions[id] = r
	}
	for id, ms := range s.confirmations {
		c.confirmations[id] = slices.Clone(ms)
	}
	return c
}

// Store keeps records and confirmations in maps guarded by one mutex.
type Store struct {
	mu sync.Mutex
	st *state
}

func New() *Store {
	return &Store{st: &state{
		nextID:        1,
		transactions:  make(map[int64]core.Record),
		confirmations: make(map[int64][]core.Month),
	}}
}

var _ services.Store = (*Store)(nil)

// RunInTx runs fn with exclusive access. Changes are discarded when fn fails.
func (s *Store) RunInTx(ctx context.Context, fn func(q services.Queries) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	snapshot := s.st.clone()
	if err := fn(txQueries{st: s.st}); err != nil {
		s.st = snapshot
		return err
	}
	return nil
}

func (s *Store) locked() (txQueries, func()) {
	s.mu.Lock()
	return txQueries{st: s.st}, s.mu.Unlock
}

func (s *Store) LoadTransaction(ctx context.Context, id int64) (core.Record, error) {
	q, unlock := s.locked()
	defer unlock()
	return q.LoadTransaction(ctx, id)
}

func (s *Store) LoadLatestConfirmation(ctx context.Context, id int64) (*core.Month, error) {
	q, unlock := s.locked()
	defer unlock()
	return q.LoadLatestConfirmation(ctx, id)
}

func (s *Store) InsertConfirmation(ctx context.Context, id int64, m core.Month) error {
	q, unlock := s.locked()
	defer unlock()
	return q.InsertConfirmation(ctx, id, m)
}

func (s *Store) DeleteConfirmation(ctx context.Context, id int64, m core.Month) error {
	q, unlock := s.locked()
	defer unlock()
	return q.DeleteConfirmation(ctx, id, m)
}

func (s *Store) DeleteAllConfirmations(ctx context.Context, id int64) error {
	q, unlock := s.locked()
	defer unlock()
	return q.DeleteAllConfirmations(ctx, id)
}

func (s *Store) ListConfirmations(ctx context.Context, id int64) ([]core.Month, error) {
	q, unlock := s.locked()
	defer unlock()
	return q.ListConfirmations(ctx, id)
}

func (s *Store) CreateTransaction(ctx context.Context, r core.Record) (int64, error) {
	q, unlock := s.locked()
	defer unlock()
	return q.CreateTransaction(ctx, r)
}

func (s *Store) UpdateTransaction(ctx context.Context, r core.Record) error {
	q, unlock := s.locked()
	defer unlock()
	return q.UpdateTransaction(ctx, r)
}

func (s *Store) UpdateDetails(ctx context.Context, id int64, d core.Details) error {
	q, unlock := s.locked()
	defer unlock()
	return q.UpdateDetails(ctx, id, d)
}

func (s *Store) DeleteTransaction(ctx context.Context, id int64) error {
	q, unlock := s.locked()
	defer unlock()
	return q.DeleteTransaction(ctx, id)
}

func (s *Store) ListTransactions(ctx context.Context, minMonth core.Month) ([]core.Record, error) {
	q, unlock := s.locked()
	defer unlock()
	return q.ListTransactions(ctx, minMonth)
}

func (s *Store) Ping(context.Context) error { return nil }

func (s *Store) Close() error { return nil }

// txQueries operates on state without locking; callers hold Store.mu.
type txQueries struct {
	st *state
}

func (q txQueries) LoadTransaction(_ context.Context, id int64) (core.Record, error) {
	r, ok := q.st.transactions[id]
	if !ok {
		return core.Record{}, core.ErrTransactionNotFound
	}
	r.Tags = slices.Clone(r.Tags)
	return r, nil
}

func (q txQueries) LoadLatestConfirmation(_ context.Context, id int64) (*core.Month, error) {
	ms := q.st.confirmations[id]
	if len(ms) == 0 {
		return nil, nil
	}
	latest := ms[len(ms)-1]
	return &latest, nil
}

func (q txQueries) InsertConfirmation(_ context.Context, id int64, m core.Month) error {
	if _, ok := q.st.transactions[id]; !ok {
		return core.ErrTransactionNotFound
	}
	m = core.TruncateToMonth(m.Time)
	ms := q.st.confirmations[id]
	i, found := slices.BinarySearchFunc(ms, m, core.CompareMonths)
	if found {
		return fmt.Errorf("insert confirmation %s: %w", m, core.ErrConfirmationConflict)
	}
	q.st.confirmations[id] = slices.Insert(ms, i, m)
	return nil
}

func (q txQueries) DeleteConfirmation(_ context.Context, id int64, m core.Month) error {
	ms := q.st.confirmations[id]
	if i, found := slices.BinarySearchFunc(ms, m, core.CompareMonths); found {
		q.st.confirmations[id] = slices.Delete(ms, i, i+1)
	}
	return nil
}

func (q txQueries) DeleteAllConfirmations(_ context.Context, id int64) error {
	delete(q.st.confirmations, id)
	return nil
}

func (q txQueries) ListConfirmations(_ context.Context, id int64) ([]core.Month, error) {
	return slices.Clone(q.st.confirmations[id]), nil
}

func (q txQueries) CreateTransaction(_ context.Context, r core.Record) (int64, error) {
	id := q.st.nextID
	q.st.nextID++
	r.ID = id
	r.LatestConfirmation = nil
	r.Tags = slices.Clone(r.Tags)
	sort.Strings(r.Tags)
	q.st.transactions[id] = r
	return id, nil
}

func (q txQueries) UpdateTransaction(_ context.Context, r core.Record) error {
	if _, ok := q.st.transactions[r.ID]; !ok {
		return core.ErrTransactionNotFound
	}
	r.LatestConfirmation = nil
	r.Tags = slices.Clone(r.Tags)
	sort.Strings(r.Tags)
	q.st.transactions[r.ID] = r
	return nil
}

func (q txQueries) UpdateDetails(_ context.Context, id int64, d core.Details) error {
	r, ok := q.st.transactions[id]
	if !ok {
		return core.ErrTransactionNotFound
	}
	r.Name, r.Value, r.Category, r.Tags = d.Name, d.Value, d.Category, d.Tags.Sorted()
	q.st.transactions[id] = r
	return nil
}

func (q txQueries) DeleteTransaction(_ context.Context, id int64) error {
	if _, ok := q.st.transactions[id]; !ok {
		return core.ErrTransactionNotFound
	}
	delete(q.st.transactions, id)
	delete(q.st.confirmations, id)
	return nil
}

func (q txQueries) ListTransactions(ctx context.Context, minMonth core.Month) ([]core.Record, error) {
	out := make([]core.Record, 0, len(q.st.transactions))
	for id, r := range q.st.transactions {
		if r.LastInstallmentAt != nil && r.LastInstallmentAt.Before(minMonth) {
			continue
		}
		r.Tags = slices.Clone(r.Tags)
		r.LatestConfirmation, _ = q.LoadLatestConfirmation(ctx, id)
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if !a.PurchasedAt.Equal(b.PurchasedAt) {
			return a.PurchasedAt.After(b.PurchasedAt)
		}
		if a.Name != b.Name {
			return a.Name < b.Name
		}
		return a.ID < b.ID
	})
	return out, nil
}
