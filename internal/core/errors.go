package core

import (
	"errors"
	"fmt"
)

var (
	ErrTransactionNotFound              = errors.New("transaction not found")
	ErrInvalidTransactionData           = errors.New("invalid transaction data")
	ErrInvalidPaymentDate               = errors.New("invalid payment date")
	ErrOutOfSequencePaymentConfirmation = errors.New("payment confirmation out of sequence")
	ErrConfirmationConflict             = errors.New("payment confirmation already exists for this month")
	ErrTransactionHasConfirmations      = errors.New("transaction has payment confirmations")

	ErrInvalidAmount       = errors.New("invalid amount")
	ErrEmptyName           = errors.New("empty name")
	ErrNameTooLong         = errors.New("name too long (max 255 characters)")
	ErrInvalidMode         = errors.New("invalid transaction mode")
	ErrInvalidCategory     = errors.New("invalid transaction category")
	ErrInvalidStatus       = errors.New("invalid transaction status")
	ErrInvalidInstallments = errors.New("invalid number of installments")
	ErrFirstBeforePurchase = errors.New("first installment cannot be before the purchase month")
	ErrMissingDate         = errors.New("missing date")
	ErrDateOutOfRange      = errors.New("date out of range")
)

// InvalidTransactionDataError reports a stored record that contradicts its
// declared mode.
type InvalidTransactionDataError struct {
	ID     int64
	Mode   Mode
	Detail string
}

func (e *InvalidTransactionDataError) Error() string {
	return fmt.Sprintf("invalid %s transaction %d: %s", e.Mode, e.ID, e.Detail)
}

func (e *InvalidTransactionDataError) Unwrap() error {
	return ErrInvalidTransactionData
}

// Rejection reasons for out-of-sequence confirmation toggles.
const (
	ReasonMustEqualFirstOccurrence = "payment date must equal the first occurrence"
	ReasonCannotRemoveEarlier      = "cannot remove a confirmation earlier than the latest one"
	ReasonOutOfSequence            = "cannot confirm a payment out of sequence"
)

// OutOfSequenceError is returned when a toggle would break the month order of
// confirmations. Reason is safe to show to users.
type OutOfSequenceError struct {
	Reason string
	Month  Month
}

func (e *OutOfSequenceError) Error() string {
	return fmt.Sprintf("%s (payment month %s)", e.Reason, e.Month)
}

func (e *OutOfSequenceError) Unwrap() error {
	return ErrOutOfSequencePaymentConfirmation
}
