package google

import (
	"context"
	"os"
	"strings"
	"testing"

	"cloud.google.com/go/civil"

	"fintrack/internal/core"
)

func TestNewFromEnv_MissingSpreadsheetID(t *testing.T) {
	t.Setenv("GOOGLE_SPREADSHEET_ID", "")

	_, err := NewFromEnv(context.Background())
	if err == nil {
		t.Fatal("expected error for missing GOOGLE_SPREADSHEET_ID")
	}
	if err.Error() != "missing GOOGLE_SPREADSHEET_ID" {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestNewFromEnv_MissingCredentials(t *testing.T) {
	t.Setenv("GOOGLE_SPREADSHEET_ID", "test-id")
	t.Setenv("GOOGLE_SERVICE_ACCOUNT_JSON", "")
	t.Setenv("GOOGLE_SERVICE_ACCOUNT_FILE", "")
	t.Setenv("GOOGLE_APPLICATION_CREDENTIALS", "")

	_, err := NewFromEnv(context.Background())
	if err == nil {
		t.Fatal("expected error without credentials")
	}
	if !strings.Contains(err.Error(), "missing service account credentials") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestNewFromEnv_UnreadableCredentialsFile(t *testing.T) {
	t.Setenv("GOOGLE_SPREADSHEET_ID", "test-id")
	t.Setenv("GOOGLE_SERVICE_ACCOUNT_JSON", "")
	t.Setenv("GOOGLE_SERVICE_ACCOUNT_FILE", t.TempDir()+string(os.PathSeparator)+"missing.json")

	_, err := NewFromEnv(context.Background())
	if err == nil || !strings.Contains(err.Error(), "read service account file") {
		t.Fatalf("expected read error, got %v", err)
	}
}

func TestAppendWithoutService(t *testing.T) {
	c := &Client{spreadsheetID: "test", sheetBase: "Transactions"}
	if _, err := c.AppendTransactions(context.Background(), nil); err == nil {
		t.Fatal("expected error when service is not initialized")
	}
}

func TestYearPrefixedName(t *testing.T) {
	tests := []struct {
		base string
		year int
		want string
	}{
		{"Transactions", 2024, "2024 Transactions"},
		{" Transactions ", 2025, "2025 Transactions"},
		{"2023 Transactions", 2024, "2023 Transactions"},
		{"", 2024, ""},
	}
	for _, tt := range tests {
		if got := yearPrefixedName(tt.base, tt.year); got != tt.want {
			t.Errorf("yearPrefixedName(%q, %d) = %q, want %q", tt.base, tt.year, got, tt.want)
		}
	}
}

func TestParseIDColumn(t *testing.T) {
	ids := parseIDColumn([][]interface{}{
		{"ID"},
		{"a"},
		{},
		{"  b "},
		{""},
	})
	if len(ids) != 2 {
		t.Fatalf("expected 2 ids, got %v", ids)
	}
	for _, id := range []string{"a", "b"} {
		if _, ok := ids[id]; !ok {
			t.Errorf("missing id %q", id)
		}
	}
}

func detail(id string, y int) core.TransactionDetail {
	return core.TransactionDetail{
		Transaction: core.Transaction{
			ID:     id,
			Amount: -12340,
			Payee:  "Shop",
			Date:   civil.Date{Year: y, Month: 3, Day: 4},
		},
		Account: "Checking",
	}
}

func TestGroupByYear(t *testing.T) {
	groups := groupByYear([]core.TransactionDetail{detail("a", 2025), detail("b", 2024), detail("c", 2025)})
	if len(groups) != 2 {
		t.Fatalf("expected 2 groups, got %d", len(groups))
	}
	if groups[0].year != 2024 || groups[1].year != 2025 {
		t.Fatalf("groups must be sorted by year: %+v", groups)
	}
	if groups[1].txs[0].ID != "a" || groups[1].txs[1].ID != "c" {
		t.Fatalf("order within a year must be kept")
	}
}

func TestPendingValuesSkipsKnownIDs(t *testing.T) {
	existing := map[string]struct{}{"a": {}}
	values := pendingValues([]core.TransactionDetail{detail("a", 2024), detail("b", 2024), detail("b", 2024)}, existing)
	if len(values) != 1 {
		t.Fatalf("expected 1 new row, got %d", len(values))
	}
	row := values[0]
	if row[0] != "2024-03-04" || row[2] != "-12.34" || row[4] != core.UncategorizedCategoryName || row[6] != "b" {
		t.Fatalf("unexpected row %v", row)
	}
}
