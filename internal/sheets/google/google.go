package google

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sort"
	"strconv"
	"strings"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"

	"fintrack/internal/core"
	ports "fintrack/internal/sheets"
)

const defaultSheetName = "Transactions"

type Client struct {
	svc           *gsheet.Service
	spreadsheetID string
	// base name without year (e.g. "Transactions"); rows go to "<year> <base>".
	sheetBase string
}

var _ ports.TransactionMirror = (*Client)(nil)

// NewFromEnv creates a Sheets client using environment variables.
// Required: GOOGLE_SPREADSHEET_ID
// Optional: GOOGLE_SHEET_NAME (default "Transactions")
// Auth: GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE or GOOGLE_APPLICATION_CREDENTIALS.
func NewFromEnv(ctx context.Context) (*Client, error) {
	spreadsheetID := strings.TrimSpace(os.Getenv("GOOGLE_SPREADSHEET_ID"))
	if spreadsheetID == "" {
		return nil, errors.New("missing GOOGLE_SPREADSHEET_ID")
	}

	base := strings.TrimSpace(os.Getenv("GOOGLE_SHEET_NAME"))
	if base == "" {
		base = defaultSheetName
	}

	svc, err := newSheetsService(ctx)
	if err != nil {
		return nil, fmt.Errorf("sheets service: %w", err)
	}

	return &Client{svc: svc, spreadsheetID: spreadsheetID, sheetBase: base}, nil
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

// AppendTransactions writes txs to the yearly sheets matching their dates.
// Transactions already present (by ID column) are skipped.
func (c *Client) AppendTransactions(ctx context.Context, txs []core.TransactionDetail) (int, error) {
	if c.svc == nil {
		return 0, errors.New("sheets service not initialized")
	}

	written := 0
	for _, group := range groupByYear(txs) {
		sheet := yearPrefixedName(c.sheetBase, group.year)

		existing, err := c.readIDs(ctx, sheet)
		if err != nil {
			return written, err
		}
		values := pendingValues(group.txs, existing)
		if len(values) == 0 {
			continue
		}

		rng := fmt.Sprintf("%s!A:G", sheet)
		_, err = c.svc.Spreadsheets.Values.Append(c.spreadsheetID, rng, &gsheet.ValueRange{Values: values}).
			ValueInputOption("USER_ENTERED").
			InsertDataOption("INSERT_ROWS").
			Context(ctx).
			Do()
		if err != nil {
			return written, fmt.Errorf("append to sheet %s: %w", sheet, err)
		}
		written += len(values)

		slog.InfoContext(ctx, "Transactions mirrored to sheet",
			"sheet", sheet,
			"rows", len(values),
			"skipped", len(group.txs)-len(values))
	}
	return written, nil
}

func (c *Client) readIDs(ctx context.Context, sheet string) (map[string]struct{}, error) {
	rng := fmt.Sprintf("%s!G:G", sheet)
	resp, err := c.svc.Spreadsheets.Values.Get(c.spreadsheetID, rng).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", rng, err)
	}
	return parseIDColumn(resp.Values), nil
}

type yearGroup struct {
	year int
	txs  []core.TransactionDetail
}

// groupByYear splits txs by calendar year, years ascending, order kept within a year.
func groupByYear(txs []core.TransactionDetail) []yearGroup {
	byYear := map[int][]core.TransactionDetail{}
	for _, t := range txs {
		byYear[t.Date.Year] = append(byYear[t.Date.Year], t)
	}
	groups := make([]yearGroup, 0, len(byYear))
	for y, list := range byYear {
		groups = append(groups, yearGroup{year: y, txs: list})
	}
	sort.Slice(groups, func(i, j int) bool { return groups[i].year < groups[j].year })
	return groups
}

func pendingValues(txs []core.TransactionDetail, existing map[string]struct{}) [][]any {
	var values [][]any
	for _, t := range txs {
		if _, ok := existing[t.ID]; ok {
			continue
		}
		cells := ports.Row(t)
		row := make([]any, len(cells))
		for i, v := range cells {
			row[i] = v
		}
		values = append(values, row)
		existing[t.ID] = struct{}{}
	}
	return values
}

// yearPrefixedName returns "<year> <base>" unless base already starts with a 4-digit year.
func yearPrefixedName(base string, year int) string {
	base = strings.TrimSpace(base)
	if base == "" {
		return base
	}
	if len(base) >= 5 {
		if y, err := strconv.Atoi(base[0:4]); err == nil && base[4] == ' ' && y > 1900 && y < 3000 {
			return base
		}
	}
	return fmt.Sprintf("%d %s", year, base)
}
