//go:build integration

package google

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"contas/internal/core"
	ports "contas/internal/sheets"
)

// Integration tests require real Google Sheets credentials
// Run with: go test -tags=integration ./internal/sheets/google

func TestIntegration_PaymentsSheetFlow(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	spreadsheetID := os.Getenv("GOOGLE_SPREADSHEET_ID")
	if spreadsheetID == "" {
		t.Skip("GOOGLE_SPREADSHEET_ID not set, skipping integration test")
	}
	if os.Getenv("GOOGLE_SERVICE_ACCOUNT_JSON") == "" && os.Getenv("GOOGLE_SERVICE_ACCOUNT_FILE") == "" &&
		os.Getenv("GOOGLE_APPLICATION_CREDENTIALS") == "" {
		t.Skip("service account credentials not configured, skipping integration test")
	}

	ctx := context.Background()
	client, err := New(ctx, spreadsheetID, os.Getenv("GOOGLE_SHEET_NAME"))
	if err != nil {
		t.Fatalf("Failed to create client: %v", err)
	}

	// A month far in the past so real data is not touched.
	month := core.NewMonth(1999, time.January)
	row := ports.PaymentRow{
		Month: month, TransactionID: 999999, Name: "Integration Test",
		Category: core.Expense, Mode: core.SinglePayment, Installment: "1/1",
		Value: decimal.RequireFromString("-12.34"), Status: core.NotConfirmed,
	}

	if err := client.ReplaceMonth(ctx, month, []ports.PaymentRow{row}); err != nil {
		t.Fatalf("ReplaceMonth: %v", err)
	}
	got, err := client.ReadMonth(ctx, month)
	if err != nil {
		t.Fatalf("ReadMonth: %v", err)
	}
	if len(got) != 1 || got[0].TransactionID != row.TransactionID {
		t.Fatalf("unexpected rows %+v", got)
	}
	if err := client.RemoveTransaction(ctx, row.TransactionID); err != nil {
		t.Fatalf("RemoveTransaction: %v", err)
	}
}
