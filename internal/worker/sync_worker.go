// Package worker mirrors the ledger into an export sink.
package worker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"contas/internal/amqp"
	"contas/internal/core"
	"contas/internal/log"
	"contas/internal/sheets"
)

// Ledger is the read side of the ledger the worker needs. It is satisfied by
// *services.LedgerService.
type Ledger interface {
	Get(ctx context.Context, id int64) (core.Transaction, error)
	Statement(ctx context.Context, f core.Filters) (core.MonthStatement, error)
	CurrentMonth() core.Month
}

// EventSource delivers ledger events. It is satisfied by *amqp.Client.
type EventSource interface {
	ConsumeLedgerEvents(ctx context.Context, handler func(context.Context, *amqp.LedgerEvent) error) error
}

// SyncWorker keeps the export sink in line with the ledger. Every write
// replaces a whole month, so replaying an event is harmless.
type SyncWorker struct {
	ledger Ledger
	sink   sheets.Exporter
	// months is how many months, ending at the current one, a resync covers.
	months int
	logger *log.Logger
}

func NewSyncWorker(ledger Ledger, sink sheets.Exporter, months int, logger *log.Logger) *SyncWorker {
	if months < 1 {
		months = 1
	}
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	return &SyncWorker{
		ledger: ledger,
		sink:   sink,
		months: months,
		logger: logger.WithComponent(log.ComponentWorker),
	}
}

// HandleLedgerEvent processes a single ledger event from AMQP.
func (w *SyncWorker) HandleLedgerEvent(ctx context.Context, ev *amqp.LedgerEvent) error {
	w.logger.InfoContext(ctx, "Processing ledger event",
		log.FieldEventID, ev.ID,
		"type", ev.Type,
		log.FieldTransactionID, ev.TransactionID,
		log.FieldPaymentMonth, ev.Month.String())

	switch ev.Type {
	case amqp.EventTransactionDeleted:
		if err := w.sink.RemoveTransaction(ctx, ev.TransactionID); err != nil {
			return fmt.Errorf("remove transaction %d: %w", ev.TransactionID, err)
		}
		return nil
	case amqp.EventPaymentConfirmed, amqp.EventPaymentUnconfirmed:
		return w.SyncMonth(ctx, ev.Month)
	default:
		return w.syncTransaction(ctx, ev.TransactionID)
	}
}

// syncTransaction rewrites every month of the window in which the transaction
// is due. Its old rows are dropped first since an edit can move its months.
func (w *SyncWorker) syncTransaction(ctx context.Context, id int64) error {
	t, err := w.ledger.Get(ctx, id)
	if errors.Is(err, core.ErrTransactionNotFound) {
		// Deleted after the event was published; the delete event follows.
		w.logger.InfoContext(ctx, "Transaction no longer exists, skipping", log.FieldTransactionID, id)
		return nil
	}
	if err != nil {
		return fmt.Errorf("load transaction %d: %w", id, err)
	}

	if err := w.sink.RemoveTransaction(ctx, id); err != nil {
		return fmt.Errorf("remove transaction %d: %w", id, err)
	}
	for _, m := range w.window() {
		if !core.MatchesDate(t, m) {
			continue
		}
		if err := w.SyncMonth(ctx, m); err != nil {
			return err
		}
	}
	return nil
}

// SyncMonth replaces the sink rows of month with the current ledger state.
func (w *SyncWorker) SyncMonth(ctx context.Context, month core.Month) error {
	if month.IsZero() {
		return fmt.Errorf("sync month: %w", core.ErrInvalidPaymentDate)
	}
	st, err := w.ledger.Statement(ctx, core.Filters{Month: month})
	if err != nil {
		return fmt.Errorf("statement for %s: %w", month, err)
	}
	rows := sheets.RowsFromStatement(st)
	if err := w.sink.ReplaceMonth(ctx, month, rows); err != nil {
		return fmt.Errorf("export %s: %w", month, err)
	}
	w.logger.InfoContext(ctx, "Month synced",
		log.FieldListingMonth, month.String(),
		"rows", len(rows),
		log.FieldOperation, log.OpSync)
	return nil
}

// Resync rewrites every month of the window. It is the backup mechanism for
// lost events and runs at startup and on every tick.
func (w *SyncWorker) Resync(ctx context.Context) error {
	var errs []error
	for _, m := range w.window() {
		if err := w.SyncMonth(ctx, m); err != nil {
			w.logger.ErrorContext(ctx, "Failed to sync month",
				log.FieldListingMonth, m.String(), log.FieldError, err)
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// window lists the resync months, oldest first, ending at the current month.
func (w *SyncWorker) window() []core.Month {
	current := w.ledger.CurrentMonth()
	out := make([]core.Month, 0, w.months)
	for i := w.months - 1; i >= 0; i-- {
		out = append(out, current.AddMonths(-i))
	}
	return out
}

// Run consumes events and resyncs every interval until ctx is done. A zero
// interval disables the periodic resync.
func (w *SyncWorker) Run(ctx context.Context, events EventSource, interval time.Duration) error {
	if err := w.Resync(ctx); err != nil {
		w.logger.ErrorContext(ctx, "Startup resync failed", log.FieldError, err)
	}

	g, ctx := errgroup.WithContext(ctx)
	if events != nil {
		g.Go(func() error {
			return events.ConsumeLedgerEvents(ctx, w.HandleLedgerEvent)
		})
	}
	if interval > 0 {
		g.Go(func() error {
			ticker := time.NewTicker(interval)
			defer ticker.Stop()
			for {
				select {
				case <-ctx.Done():
					return ctx.Err()
				case <-ticker.C:
					if err := w.Resync(ctx); err != nil {
						w.logger.ErrorContext(ctx, "Periodic resync failed", log.FieldError, err)
					}
				}
			}
		})
	}
	err := g.Wait()
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
