// Package services orchestrates the ledger: it loads transactions from a
// Store, runs the core rules and publishes ledger events.
package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"golang.org/x/sync/singleflight"

	"contas/internal/amqp"
	"contas/internal/cache"
	"contas/internal/core"
	"contas/internal/log"
)

// EventPublisher is satisfied by *amqp.Client.
type EventPublisher interface {
	PublishLedgerEvent(ctx context.Context, ev *amqp.LedgerEvent) error
}

// ToggleResult is the state of a transaction after an accepted toggle.
type ToggleResult struct {
	Transaction core.Transaction
	Outcome     core.ConfirmationOutcome
}

type LedgerService struct {
	store     Store
	publisher EventPublisher
	listings  cache.Cache[[]core.Transaction]
	clock     core.Clock
	locks     *KeyedMutex

	// fills collapses concurrent cache misses of one month and generation.
	fills singleflight.Group
	// genMu guards generation, which every invalidation bumps. A listing
	// read under an older generation is never cached.
	genMu      sync.Mutex
	generation uint64

	logger    *log.Logger
	events    *log.StructuredLogger
}

// Config carries the optional collaborators of a LedgerService. Nil fields
// disable the matching feature.
type Config struct {
	Publisher EventPublisher
	Listings  cache.Cache[[]core.Transaction]
	Clock     core.Clock
	Logger    *log.Logger
}

func NewLedgerService(store Store, cfg Config) *LedgerService {
	logger := cfg.Logger
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	logger = logger.WithComponent(log.ComponentLedger)
	clock := cfg.Clock
	if clock == nil {
		clock = &core.ZoneClock{}
	}
	return &LedgerService{
		store:     store,
		publisher: cfg.Publisher,
		listings:  cfg.Listings,
		clock:     clock,
		locks:     NewKeyedMutex(),
		logger:    logger,
		events:    log.NewStructuredLogger(logger),
	}
}

// CurrentMonth is the default listing month.
func (s *LedgerService) CurrentMonth() core.Month {
	return s.clock.CurrentMonth()
}

func loadTransaction(ctx context.Context, q Queries, id int64) (core.Transaction, error) {
	rec, err := q.LoadTransaction(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("load transaction %d: %w", id, err)
	}
	latest, err := q.LoadLatestConfirmation(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("load latest confirmation of %d: %w", id, err)
	}
	rec.LatestConfirmation = latest
	t, err := core.ConvertTransaction(rec)
	if err != nil {
		return nil, fmt.Errorf("convert transaction %d: %w", id, err)
	}
	return t, nil
}

func normalizeDraft(d core.Draft) (core.Draft, error) {
	d.Name = strings.TrimSpace(d.Name)
	d.FirstInstallmentAt = core.TruncateToMonth(d.FirstInstallmentAt.Time)
	if d.Tags == nil {
		d.Tags = core.NewTagSet()
	}
	if err := d.Validate(); err != nil {
		return d, err
	}
	return d, nil
}

// Create stores a new transaction with no confirmations.
func (s *LedgerService) Create(ctx context.Context, d core.Draft) (core.Transaction, error) {
	d, err := normalizeDraft(d)
	if err != nil {
		return nil, fmt.Errorf("validate transaction: %w", err)
	}
	id, err := s.store.CreateTransaction(ctx, core.RecordFromDraft(0, d))
	if err != nil {
		return nil, fmt.Errorf("create transaction: %w", err)
	}
	s.invalidate()
	s.publish(ctx, amqp.NewLedgerEvent(amqp.EventTransactionCreated, id, core.Month{}))

	s.logger.InfoContext(ctx, "Transaction created",
		log.NewFields().WithTransaction(id, string(d.Mode), string(d.Category)).WithOperation(log.OpCreate).ToSlice()...)
	return loadTransaction(ctx, s.store, id)
}

func (s *LedgerService) Get(ctx context.Context, id int64) (core.Transaction, error) {
	return loadTransaction(ctx, s.store, id)
}

// Update replaces every field of a transaction. It is refused once any
// payment was confirmed, since mode and dates drive the confirmation rules.
func (s *LedgerService) Update(ctx context.Context, id int64, d core.Draft) (core.Transaction, error) {
	d, err := normalizeDraft(d)
	if err != nil {
		return nil, fmt.Errorf("validate transaction: %w", err)
	}

	unlock := s.locks.Lock(id)
	defer unlock()

	err = s.store.RunInTx(ctx, func(q Queries) error {
		if _, err := q.LoadTransaction(ctx, id); err != nil {
			return fmt.Errorf("load transaction %d: %w", id, err)
		}
		latest, err := q.LoadLatestConfirmation(ctx, id)
		if err != nil {
			return fmt.Errorf("load latest confirmation of %d: %w", id, err)
		}
		if latest != nil {
			return fmt.Errorf("update transaction %d: %w", id, core.ErrTransactionHasConfirmations)
		}
		return q.UpdateTransaction(ctx, core.RecordFromDraft(id, d))
	})
	if err != nil {
		return nil, err
	}
	s.invalidate()
	s.publish(ctx, amqp.NewLedgerEvent(amqp.EventTransactionUpdated, id, core.Month{}))
	return loadTransaction(ctx, s.store, id)
}

// UpdateDetails changes name, value, category and tags. It is allowed
// regardless of confirmations.
func (s *LedgerService) UpdateDetails(ctx context.Context, id int64, d core.Details) (core.Transaction, error) {
	d.Name = strings.TrimSpace(d.Name)
	if d.Tags == nil {
		d.Tags = core.NewTagSet()
	}
	if err := d.Validate(); err != nil {
		return nil, fmt.Errorf("validate details: %w", err)
	}

	unlock := s.locks.Lock(id)
	defer unlock()

	err := s.store.RunInTx(ctx, func(q Queries) error {
		if _, err := q.LoadTransaction(ctx, id); err != nil {
			return fmt.Errorf("load transaction %d: %w", id, err)
		}
		return q.UpdateDetails(ctx, id, d)
	})
	if err != nil {
		return nil, err
	}
	s.invalidate()
	s.publish(ctx, amqp.NewLedgerEvent(amqp.EventTransactionUpdated, id, core.Month{}))
	return loadTransaction(ctx, s.store, id)
}

// Delete removes a transaction together with its confirmations.
func (s *LedgerService) Delete(ctx context.Context, id int64) error {
	unlock := s.locks.Lock(id)
	defer unlock()

	// The row is not decoded, so a record that no longer converts can still
	// be removed.
	err := s.store.RunInTx(ctx, func(q Queries) error {
		return q.DeleteTransaction(ctx, id)
	})
	if err != nil {
		return fmt.Errorf("delete transaction %d: %w", id, err)
	}
	s.invalidate()
	s.publish(ctx, amqp.NewLedgerEvent(amqp.EventTransactionDeleted, id, core.Month{}))
	s.logger.InfoContext(ctx, "Transaction deleted", log.FieldTransactionID, id)
	return nil
}

// TogglePaymentConfirmation confirms or unconfirms the installment of id due
// in paymentMonth. Toggles of the same transaction are serialised; the read,
// decision and write happen in a single storage transaction.
func (s *LedgerService) TogglePaymentConfirmation(ctx context.Context, id int64, paymentMonth core.Month) (ToggleResult, error) {
	if paymentMonth.IsZero() {
		return ToggleResult{}, fmt.Errorf("toggle confirmation: %w", core.ErrInvalidPaymentDate)
	}

	unlock := s.locks.Lock(id)
	defer unlock()

	var result ToggleResult
	err := s.store.RunInTx(ctx, func(q Queries) error {
		t, err := loadTransaction(ctx, q, id)
		if err != nil {
			return err
		}
		out, err := core.ToggleConfirmation(t, paymentMonth)
		if err != nil {
			return err
		}
		switch out.Action {
		case core.ActionCreate:
			err = q.InsertConfirmation(ctx, id, out.Month)
		case core.ActionDelete:
			err = q.DeleteConfirmation(ctx, id, out.Month)
		case core.ActionDeleteAll:
			err = q.DeleteAllConfirmations(ctx, id)
		default:
			err = fmt.Errorf("unknown confirmation action %q", out.Action)
		}
		if err != nil {
			return fmt.Errorf("apply %s confirmation for %d: %w", out.Action, id, err)
		}
		result = ToggleResult{Transaction: core.ApplyOutcome(t, out), Outcome: out}
		return nil
	})
	if err != nil {
		return ToggleResult{}, err
	}

	s.invalidate()
	s.events.LogConfirmationToggled(ctx, id, string(result.Transaction.Mode()),
		paymentMonth.String(), string(result.Outcome.Action), result.Outcome.PaidInstallments)
	s.publish(ctx, toggleEvent(id, result.Outcome))
	return result, nil
}

func toggleEvent(id int64, out core.ConfirmationOutcome) *amqp.LedgerEvent {
	switch out.Action {
	case core.ActionCreate:
		return amqp.NewLedgerEvent(amqp.EventPaymentConfirmed, id, out.Month)
	case core.ActionDelete:
		return amqp.NewLedgerEvent(amqp.EventPaymentUnconfirmed, id, out.Month)
	default:
		return amqp.NewLedgerEvent(amqp.EventConfirmationsCleared, id, core.Month{})
	}
}

// Confirmations lists every confirmed month of id, oldest first.
func (s *LedgerService) Confirmations(ctx context.Context, id int64) ([]core.Month, error) {
	if _, err := s.store.LoadTransaction(ctx, id); err != nil {
		return nil, fmt.Errorf("load transaction %d: %w", id, err)
	}
	months, err := s.store.ListConfirmations(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("list confirmations of %d: %w", id, err)
	}
	return months, nil
}

// Transactions returns every transaction that may be visible in month or
// later, before any filter is applied.
func (s *LedgerService) Transactions(ctx context.Context, month core.Month) ([]core.Transaction, error) {
	if s.listings == nil {
		return s.listTransactions(ctx, month)
	}
	key := month.String()
	if ts, ok := s.listings.Get(key); ok {
		return ts, nil
	}

	gen := s.currentGeneration()
	v, err, _ := s.fills.Do(fmt.Sprintf("%s#%d", key, gen), func() (any, error) {
		ts, err := s.listTransactions(ctx, month)
		if err != nil {
			return nil, err
		}
		s.genMu.Lock()
		if s.generation == gen {
			s.listings.Set(key, ts)
		}
		s.genMu.Unlock()
		return ts, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]core.Transaction), nil
}

func (s *LedgerService) listTransactions(ctx context.Context, month core.Month) ([]core.Transaction, error) {
	records, err := s.store.ListTransactions(ctx, month)
	if err != nil {
		return nil, fmt.Errorf("list transactions for %s: %w", month, err)
	}
	ts := make([]core.Transaction, 0, len(records))
	for _, rec := range records {
		t, err := core.ConvertTransaction(rec)
		if err != nil {
			return nil, fmt.Errorf("convert transaction %d: %w", rec.ID, err)
		}
		ts = append(ts, t)
	}
	return ts, nil
}

func (s *LedgerService) currentGeneration() uint64 {
	s.genMu.Lock()
	defer s.genMu.Unlock()
	return s.generation
}

// Statement lists the transactions matching f with their totals. A zero
// f.Month selects the current month.
func (s *LedgerService) Statement(ctx context.Context, f core.Filters) (core.MonthStatement, error) {
	if f.Month.IsZero() {
		f.Month = s.clock.CurrentMonth()
	}
	ts, err := s.Transactions(ctx, f.Month)
	if err != nil {
		return core.MonthStatement{}, err
	}
	return core.NewMonthStatement(ts, f), nil
}

func (s *LedgerService) invalidate() {
	if s.listings == nil {
		return
	}
	s.genMu.Lock()
	s.generation++
	s.listings.Purge()
	s.genMu.Unlock()
}

func (s *LedgerService) publish(ctx context.Context, ev *amqp.LedgerEvent) {
	if s.publisher == nil {
		return
	}
	// The ledger write already succeeded; a lost event only delays the export.
	if err := s.publisher.PublishLedgerEvent(ctx, ev); err != nil {
		s.logger.ErrorContext(ctx, "Failed to publish ledger event",
			log.FieldEventID, ev.ID,
			"type", ev.Type,
			log.FieldTransactionID, ev.TransactionID,
			log.FieldError, err)
	}
}

// Ping checks the store.
func (s *LedgerService) Ping(ctx context.Context) error {
	return s.store.Ping(ctx)
}

// Close releases the store.
func (s *LedgerService) Close() error {
	var errs []error
	if s.store != nil {
		if err := s.store.Close(); err != nil {
			errs = append(errs, fmt.Errorf("storage: %w", err))
		}
	}
	return errors.Join(errs...)
}
