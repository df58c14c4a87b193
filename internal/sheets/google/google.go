package google

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"notaspese/internal/core"

	ports "notaspese/internal/sheets"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"
)

// Client mirrors committed reports into the shared accounting spreadsheet:
// one tab per card per year, one row per movement.
type Client struct {
	svc           *gsheet.Service
	spreadsheetID string
	// Base tab name without card/year; code suffixes "<base> <last4> <year>".
	tabBase string
}

// Ensure interface conformance
var _ ports.LedgerMirror = (*Client)(nil)

// NewFromEnv creates a Sheets client using environment variables.
// Required: GOOGLE_SPREADSHEET_ID
// Auth: GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, or
// GOOGLE_APPLICATION_CREDENTIALS.
// Optional: GOOGLE_LEDGER_TAB_NAME (default "Nota Spese").
func NewFromEnv(ctx context.Context) (*Client, error) {
	spreadsheetID := strings.TrimSpace(os.Getenv("GOOGLE_SPREADSHEET_ID"))
	if spreadsheetID == "" {
		return nil, errors.New("missing GOOGLE_SPREADSHEET_ID")
	}

	tabBase := strings.TrimSpace(os.Getenv("GOOGLE_LEDGER_TAB_NAME"))
	if tabBase == "" {
		tabBase = "Nota Spese"
	}

	svc, err := newSheetsService(ctx)
	if err != nil {
		return nil, fmt.Errorf("sheets service: %w", err)
	}

	return &Client{
		svc:           svc,
		spreadsheetID: spreadsheetID,
		tabBase:       tabBase,
	}, nil
}

// newSheetsService initializes a Sheets Service using Service Account credentials.
func newSheetsService(ctx context.Context) (*gsheet.Service, error) {
	serviceAccountJSON := strings.TrimSpace(os.Getenv("GOOGLE_SERVICE_ACCOUNT_JSON"))
	serviceAccountFile := strings.TrimSpace(os.Getenv("GOOGLE_SERVICE_ACCOUNT_FILE"))

	if serviceAccountJSON == "" && serviceAccountFile == "" {
		serviceAccountFile = strings.TrimSpace(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"))
	}

	var credentialsJSON []byte
	var err error

	switch {
	case serviceAccountJSON != "":
		credentialsJSON = []byte(serviceAccountJSON)
	case serviceAccountFile != "":
		credentialsJSON, err = os.ReadFile(serviceAccountFile)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
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

// MirrorReport appends the report's movements to the card's ledger tab,
// preceded by a month separator row. Rows land after the current last
// occupied row of the tab.
func (c *Client) MirrorReport(ctx context.Context, cardLast4 string, rep core.ExpenseReport) error {
	if c.svc == nil {
		return errors.New("sheets service not initialized")
	}

	tab := c.tabName(cardLast4, time.Now().Year())

	rng := fmt.Sprintf("%s!A:A", tab)
	resp, err := c.svc.Spreadsheets.Values.Get(c.spreadsheetID, rng).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("get ledger dimensions for %s: %w", tab, err)
	}
	nextRow := len(resp.Values) + 1

	values := [][]any{{rep.MonthLabel, "", "", "", ""}}
	for _, row := range rep.Rows {
		amount, _ := row.Amount.Float64()
		values = append(values, []any{
			core.FormatDate(row.Date),
			row.Movement,
			row.Category,
			row.DetailDescription,
			amount,
		})
	}

	dataRange := fmt.Sprintf("%s!A%d:E%d", tab, nextRow, nextRow+len(values)-1)
	vr := &gsheet.ValueRange{Values: values}
	_, err = c.svc.Spreadsheets.Values.Update(c.spreadsheetID, dataRange, vr).
		ValueInputOption("USER_ENTERED").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("update ledger rows in %s: %w", tab, err)
	}

	slog.InfoContext(ctx, "Report mirrored to ledger",
		"tab", tab,
		"report_id", rep.ID,
		"rows", len(rep.Rows),
		"range", dataRange)
	return nil
}

func (c *Client) tabName(cardLast4 string, year int) string {
	return fmt.Sprintf("%s %s %d", c.tabBase, cardLast4, year)
}
