package worker

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"contas/internal/amqp"
	"contas/internal/core"
	"contas/internal/log"
	"contas/internal/services"
	sheetsmem "contas/internal/sheets/memory"
	"contas/internal/storage/memory"
)

var july = core.NewMonth(2023, time.July)

func quietLogger() *log.Logger {
	return log.New(log.Config{Level: slog.LevelError, Output: io.Discard})
}

func setup(t *testing.T, months int) (*SyncWorker, *services.LedgerService, *sheetsmem.Sink) {
	t.Helper()
	svc := services.NewLedgerService(memory.New(), services.Config{
		Clock:  core.FixedClock(july),
		Logger: quietLogger(),
	})
	sink := sheetsmem.New()
	return NewSyncWorker(svc, sink, months, quietLogger()), svc, sink
}

func createInstallments(t *testing.T, svc *services.LedgerService) core.Transaction {
	t.Helper()
	first := core.NewMonth(2023, time.June)
	tx, err := svc.Create(context.Background(), core.Draft{
		Mode:                 core.InInstallments,
		Name:                 "Geladeira",
		Value:                decimal.RequireFromString("250"),
		Category:             core.Expense,
		PurchasedAt:          first.Time,
		FirstInstallmentAt:   first,
		NumberOfInstallments: 10,
	})
	if err != nil {
		t.Fatal(err)
	}
	return tx
}

func TestSyncWorker_CreatedEventExportsVisibleMonths(t *testing.T) {
	ctx := context.Background()
	w, svc, sink := setup(t, 3)
	tx := createInstallments(t, svc)

	ev := amqp.NewLedgerEvent(amqp.EventTransactionCreated, tx.Base().ID, core.Month{})
	if err := w.HandleLedgerEvent(ctx, ev); err != nil {
		t.Fatal(err)
	}

	// Window is May..July; the plan starts in June.
	if rows, _ := sink.ReadMonth(ctx, core.NewMonth(2023, time.May)); len(rows) != 0 {
		t.Fatalf("May must stay empty, got %+v", rows)
	}
	rows, _ := sink.ReadMonth(ctx, july)
	if len(rows) != 1 {
		t.Fatalf("expected one July row, got %+v", rows)
	}
	r := rows[0]
	if r.Installment != "2/10" || !r.Value.Equal(decimal.RequireFromString("-250")) || r.Status != core.NotConfirmed {
		t.Fatalf("unexpected row %+v", r)
	}
	if sink.Writes() != 2 {
		t.Fatalf("expected June and July writes, got %d", sink.Writes())
	}
}

func TestSyncWorker_PaymentEventRefreshesStatus(t *testing.T) {
	ctx := context.Background()
	w, svc, sink := setup(t, 1)
	tx := createInstallments(t, svc)
	june := core.NewMonth(2023, time.June)

	if _, err := svc.TogglePaymentConfirmation(ctx, tx.Base().ID, june); err != nil {
		t.Fatal(err)
	}
	if err := w.HandleLedgerEvent(ctx, amqp.NewLedgerEvent(amqp.EventPaymentConfirmed, tx.Base().ID, june)); err != nil {
		t.Fatal(err)
	}
	rows, _ := sink.ReadMonth(ctx, june)
	if len(rows) != 1 || rows[0].Status != core.Confirmed || rows[0].Installment != "1/10" {
		t.Fatalf("unexpected June rows %+v", rows)
	}
}

func TestSyncWorker_DeletedEventRemovesRows(t *testing.T) {
	ctx := context.Background()
	w, svc, sink := setup(t, 2)
	tx := createInstallments(t, svc)
	id := tx.Base().ID

	if err := w.Resync(ctx); err != nil {
		t.Fatal(err)
	}
	if rows, _ := sink.ReadMonth(ctx, july); len(rows) != 1 {
		t.Fatalf("resync should export July, got %+v", rows)
	}

	if err := svc.Delete(ctx, id); err != nil {
		t.Fatal(err)
	}
	// A stale update event for a deleted transaction is not an error.
	if err := w.HandleLedgerEvent(ctx, amqp.NewLedgerEvent(amqp.EventTransactionUpdated, id, core.Month{})); err != nil {
		t.Fatalf("stale event: %v", err)
	}
	if err := w.HandleLedgerEvent(ctx, amqp.NewLedgerEvent(amqp.EventTransactionDeleted, id, core.Month{})); err != nil {
		t.Fatal(err)
	}
	for _, m := range []core.Month{core.NewMonth(2023, time.June), july} {
		if rows, _ := sink.ReadMonth(ctx, m); len(rows) != 0 {
			t.Fatalf("%s rows should be gone, got %+v", m, rows)
		}
	}
}

func TestSyncWorker_SyncMonthRejectsZeroMonth(t *testing.T) {
	w, _, _ := setup(t, 1)
	err := w.HandleLedgerEvent(context.Background(), amqp.NewLedgerEvent(amqp.EventPaymentConfirmed, 1, core.Month{}))
	if !errors.Is(err, core.ErrInvalidPaymentDate) {
		t.Fatalf("expected invalid payment date, got %v", err)
	}
}

type chanSource struct {
	events chan *amqp.LedgerEvent
	mu     sync.Mutex
	errs   []error
}

func (s *chanSource) ConsumeLedgerEvents(ctx context.Context, handler func(context.Context, *amqp.LedgerEvent) error) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev := <-s.events:
			err := handler(ctx, ev)
			s.mu.Lock()
			s.errs = append(s.errs, err)
			s.mu.Unlock()
		}
	}
}

func TestSyncWorker_RunConsumesUntilCancelled(t *testing.T) {
	w, svc, sink := setup(t, 1)
	tx := createInstallments(t, svc)
	src := &chanSource{events: make(chan *amqp.LedgerEvent)}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx, src, time.Hour) }()

	src.events <- amqp.NewLedgerEvent(amqp.EventTransactionDeleted, tx.Base().ID, core.Month{})
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run should stop cleanly, got %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not stop")
	}
	if rows, _ := sink.ReadMonth(context.Background(), july); len(rows) != 0 {
		t.Fatalf("delete event was not applied: %+v", rows)
	}
}
