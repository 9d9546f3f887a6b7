package amqp

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"contas/internal/core"
)

// EventType names what happened to a transaction.
type EventType string

const (
	EventTransactionCreated   EventType = "transaction.created"
	EventTransactionUpdated   EventType = "transaction.updated"
	EventTransactionDeleted   EventType = "transaction.deleted"
	EventPaymentConfirmed     EventType = "payment.confirmed"
	EventPaymentUnconfirmed   EventType = "payment.unconfirmed"
	EventConfirmationsCleared EventType = "payment.cleared"
)

func (t EventType) IsValid() bool {
	switch t {
	case EventTransactionCreated, EventTransactionUpdated, EventTransactionDeleted,
		EventPaymentConfirmed, EventPaymentUnconfirmed, EventConfirmationsCleared:
		return true
	}
	return false
}

// LedgerEvent is a lightweight notification; consumers reload the
// transaction from storage when they need its current state.
type LedgerEvent struct {
	ID            string     `json:"id"`
	Type          EventType  `json:"type"`
	TransactionID int64      `json:"transaction_id"`
	Month         core.Month `json:"month"`
	Timestamp     time.Time  `json:"timestamp"`
}

// NewLedgerEvent stamps a fresh event id and time. month is zero for events
// not tied to a payment month.
func NewLedgerEvent(typ EventType, transactionID int64, month core.Month) *LedgerEvent {
	return &LedgerEvent{
		ID:            uuid.NewString(),
		Type:          typ,
		TransactionID: transactionID,
		Month:         month,
		Timestamp:     time.Now().UTC(),
	}
}

func (m *LedgerEvent) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// LedgerEventFromJSON decodes and validates an event body.
func LedgerEventFromJSON(data []byte) (*LedgerEvent, error) {
	var msg LedgerEvent
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	if !msg.Type.IsValid() {
		return nil, fmt.Errorf("unknown event type %q", msg.Type)
	}
	if _, err := uuid.Parse(msg.ID); err != nil {
		return nil, fmt.Errorf("invalid event id: %w", err)
	}
	return &msg, nil
}
