package google

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync"

	"contas/internal/core"
	ports "contas/internal/sheets"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"
)

// DefaultSheetName is used when no sheet name is configured.
const DefaultSheetName = "Pagamentos"

// Client mirrors payment rows into a single sheet of a spreadsheet. The
// first row holds the header; every other row is one transaction in one month.
type Client struct {
	svc           *gsheet.Service
	spreadsheetID string
	sheetName     string

	// mu serialises the read-modify-write cycle of the sheet.
	mu sync.Mutex
}

var _ ports.Exporter = (*Client)(nil)

// New creates a client authenticated with a service account.
// Credentials come from GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE
// or GOOGLE_APPLICATION_CREDENTIALS.
func New(ctx context.Context, spreadsheetID, sheetName string) (*Client, error) {
	if strings.TrimSpace(spreadsheetID) == "" {
		return nil, errors.New("missing GOOGLE_SPREADSHEET_ID")
	}
	svc, err := newSheetsService(ctx)
	if err != nil {
		return nil, fmt.Errorf("sheets service: %w", err)
	}
	return NewWithService(svc, spreadsheetID, sheetName), nil
}

// NewWithService wraps an existing Sheets service.
func NewWithService(svc *gsheet.Service, spreadsheetID, sheetName string) *Client {
	sheetName = strings.TrimSpace(sheetName)
	if sheetName == "" {
		sheetName = DefaultSheetName
	}
	return &Client{svc: svc, spreadsheetID: strings.TrimSpace(spreadsheetID), sheetName: sheetName}
}

// newSheetsService initializes a Sheets Service using Service Account credentials.
func newSheetsService(ctx context.Context) (*gsheet.Service, error) {
	serviceAccountJSON := strings.TrimSpace(os.Getenv("GOOGLE_SERVICE_ACCOUNT_JSON"))
	serviceAccountFile := strings.TrimSpace(os.Getenv("GOOGLE_SERVICE_ACCOUNT_FILE"))
	if serviceAccountJSON == "" && serviceAccountFile == "" {
		serviceAccountFile = strings.TrimSpace(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"))
	}

	var credentialsJSON []byte
	switch {
	case serviceAccountJSON != "":
		slog.InfoContext(ctx, "Using inline JSON credentials")
		credentialsJSON = []byte(serviceAccountJSON)
	case serviceAccountFile != "":
		slog.InfoContext(ctx, "Reading credentials from file", "path", serviceAccountFile)
		b, err := os.ReadFile(serviceAccountFile)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
		credentialsJSON = b
	default:
		return nil, errors.New("missing service account credentials (set GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, or GOOGLE_APPLICATION_CREDENTIALS)")
	}

	service, err := gsheet.NewService(ctx,
		goption.WithCredentialsJSON(credentialsJSON),
		goption.WithScopes(gsheet.SpreadsheetsScope))
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	return service, nil
}

func (c *Client) sheetRange() string {
	return fmt.Sprintf("'%s'!A:I", c.sheetName)
}

// ReplaceMonth rewrites the rows of month, leaving the other months intact.
func (c *Client) ReplaceMonth(ctx context.Context, month core.Month, rows []ports.PaymentRow) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	existing, err := c.readAll(ctx)
	if err != nil {
		return err
	}
	merged := replaceMonthRows(existing, month, rows)
	if err := c.writeAll(ctx, merged); err != nil {
		return fmt.Errorf("replace month %s: %w", month, err)
	}
	slog.InfoContext(ctx, "Sheet month replaced",
		"sheet", c.sheetName, "month", month.String(), "rows", len(rows))
	return nil
}

func (c *Client) ReadMonth(ctx context.Context, month core.Month) ([]ports.PaymentRow, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	rows, err := c.readAll(ctx)
	if err != nil {
		return nil, err
	}
	var out []ports.PaymentRow
	for _, r := range rows {
		if r.Month.Equal(month) {
			out = append(out, r)
		}
	}
	return out, nil
}

func (c *Client) RemoveTransaction(ctx context.Context, transactionID int64) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	rows, err := c.readAll(ctx)
	if err != nil {
		return err
	}
	kept := rows[:0]
	for _, r := range rows {
		if r.TransactionID != transactionID {
			kept = append(kept, r)
		}
	}
	if len(kept) == len(rows) {
		return nil
	}
	if err := c.writeAll(ctx, kept); err != nil {
		return fmt.Errorf("remove transaction %d: %w", transactionID, err)
	}
	return nil
}

func (c *Client) readAll(ctx context.Context) ([]ports.PaymentRow, error) {
	if c.svc == nil {
		return nil, errors.New("sheets service not initialized")
	}
	rng := c.sheetRange()
	resp, err := c.svc.Spreadsheets.Values.Get(c.spreadsheetID, rng).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", rng, err)
	}
	rows, skipped := decodeRows(resp.Values)
	if skipped > 0 {
		slog.WarnContext(ctx, "Skipped unreadable sheet rows", "sheet", c.sheetName, "count", skipped)
	}
	return rows, nil
}

func (c *Client) writeAll(ctx context.Context, rows []ports.PaymentRow) error {
	if c.svc == nil {
		return errors.New("sheets service not initialized")
	}
	rng := c.sheetRange()
	if _, err := c.svc.Spreadsheets.Values.Clear(c.spreadsheetID, rng, &gsheet.ClearValuesRequest{}).Context(ctx).Do(); err != nil {
		return fmt.Errorf("clear %s: %w", rng, err)
	}
	vr := &gsheet.ValueRange{Values: encodeRows(rows)}
	start := fmt.Sprintf("'%s'!A1", c.sheetName)
	if _, err := c.svc.Spreadsheets.Values.Update(c.spreadsheetID, start, vr).
		ValueInputOption("RAW").Context(ctx).Do(); err != nil {
		return fmt.Errorf("write %s: %w", start, err)
	}
	return nil
}
