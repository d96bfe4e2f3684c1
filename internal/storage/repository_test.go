package storage

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"cloud.google.com/go/civil"

	"fintrack/internal/core"
)

func newTestRepo(t *testing.T) *SQLiteRepository {
	t.Helper()
	repo, err := NewSQLiteRepository(filepath.Join(t.TempDir(), "fintrack.db"))
	if err != nil {
		t.Fatalf("open repository: %v", err)
	}
	t.Cleanup(func() { repo.Close() })
	return repo
}

func day(y, m, d int) civil.Date {
	return civil.Date{Year: y, Month: time.Month(m), Day: d}
}

func strptr(s string) *string { return &s }

func january() core.Period {
	return core.Period{Start: day(2024, 1, 1), End: day(2024, 1, 31)}
}

func TestAccountsAreScopedToOwner(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)

	acc, err := repo.CreateAccount(ctx, "alice", "  Checking ")
	if err != nil {
		t.Fatalf("create account: %v", err)
	}
	if acc.Name != "Checking" || acc.UserID != "alice" || acc.ID == "" {
		t.Fatalf("unexpected account %+v", acc)
	}

	if _, err := repo.GetAccount(ctx, "bob", acc.ID); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected not found for another user, got %v", err)
	}
	if _, err := repo.UpdateAccount(ctx, "bob", acc.ID, "Stolen"); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected not found on foreign update, got %v", err)
	}
	if _, err := repo.DeleteAccount(ctx, "bob", acc.ID); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected not found on foreign delete, got %v", err)
	}

	updated, err := repo.UpdateAccount(ctx, "alice", acc.ID, "Savings")
	if err != nil || updated.Name != "Savings" {
		t.Fatalf("update account: %+v, %v", updated, err)
	}

	bobs, err := repo.ListAccounts(ctx, "bob")
	if err != nil || len(bobs) != 0 {
		t.Fatalf("bob should see no accounts, got %v (err=%v)", bobs, err)
	}
}

func TestBulkDeleteIgnoresForeignIDs(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)

	a1, _ := repo.CreateCategory(ctx, "alice", "Food")
	a2, _ := repo.CreateCategory(ctx, "alice", "Rent")
	b1, _ := repo.CreateCategory(ctx, "bob", "Games")

	n, err := repo.DeleteCategories(ctx, "alice", []string{a1.ID, a2.ID, b1.ID})
	if err != nil {
		t.Fatalf("bulk delete: %v", err)
	}
	if n != 2 {
		t.Fatalf("expected 2 deleted, got %d", n)
	}
	if _, err := repo.GetCategory(ctx, "bob", b1.ID); err != nil {
		t.Fatalf("bob's category must survive: %v", err)
	}
	if _, err := repo.DeleteCategories(ctx, "alice", nil); !errors.Is(err, core.ErrEmptyIDs) {
		t.Fatalf("expected ErrEmptyIDs, got %v", err)
	}
}

func TestCreateTransactionsIsAtomic(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)

	mine, _ := repo.CreateAccount(ctx, "alice", "Checking")
	theirs, _ := repo.CreateAccount(ctx, "bob", "Checking")

	batch := []core.NewTransaction{
		{Amount: -1000, Payee: "Shop", Date: day(2024, 1, 2), AccountID: mine.ID},
		{Amount: -2000, Payee: "Shop", Date: day(2024, 1, 3), AccountID: theirs.ID},
	}
	if _, err := repo.CreateTransactions(ctx, "alice", batch); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected not found for foreign account, got %v", err)
	}

	list, err := repo.ListTransactions(ctx, "alice", core.TransactionFilter{Period: january()})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 0 {
		t.Fatalf("nothing must be inserted, got %d rows", len(list))
	}

	batch[1].AccountID = mine.ID
	created, err := repo.CreateTransactions(ctx, "alice", batch)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if len(created) != 2 || created[0].ID == created[1].ID {
		t.Fatalf("unexpected created rows %+v", created)
	}
}

func TestCreateTransactionRejectsForeignCategory(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)

	acc, _ := repo.CreateAccount(ctx, "alice", "Checking")
	cat, _ := repo.CreateCategory(ctx, "bob", "Food")

	_, err := repo.CreateTransaction(ctx, "alice", core.NewTransaction{
		Amount: -100, Payee: "Shop", Date: day(2024, 1, 2), AccountID: acc.ID, CategoryID: &cat.ID,
	})
	if !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func seed(t *testing.T, repo *SQLiteRepository) (core.Account, core.Account, core.Category) {
	t.Helper()
	ctx := context.Background()

	checking, _ := repo.CreateAccount(ctx, "alice", "Checking")
	savings, _ := repo.CreateAccount(ctx, "alice", "Savings")
	food, _ := repo.CreateCategory(ctx, "alice", "Food")

	_, err := repo.CreateTransactions(ctx, "alice", []core.NewTransaction{
		{Amount: 100000, Payee: "Salary", Date: day(2024, 1, 5), AccountID: checking.ID},
		{Amount: -30000, Payee: "Market", Date: day(2024, 1, 10), AccountID: checking.ID, CategoryID: &food.ID},
		{Amount: -20000, Payee: "Misc", Date: day(2024, 1, 31), AccountID: checking.ID},
		{Amount: -5000, Payee: "Bakery", Date: day(2024, 1, 1), AccountID: savings.ID, CategoryID: &food.ID},
		{Amount: -50000, Payee: "Old", Date: day(2023, 12, 31), AccountID: checking.ID},
	})
	if err != nil {
		t.Fatalf("seed transactions: %v", err)
	}
	return checking, savings, food
}

func TestAggregate(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)
	checking, savings, _ := seed(t, repo)

	got, err := repo.Aggregate(ctx, "alice", "", january())
	if err != nil {
		t.Fatalf("aggregate: %v", err)
	}
	want := core.FinancialSummary{Income: 100000, Expenses: -55000, Remaining: 45000}
	if got != want {
		t.Fatalf("got %+v, want %+v", got, want)
	}

	got, _ = repo.Aggregate(ctx, "alice", savings.ID, january())
	if got != (core.FinancialSummary{Expenses: -5000, Remaining: -5000}) {
		t.Fatalf("unexpected savings summary %+v", got)
	}

	got, _ = repo.Aggregate(ctx, "alice", checking.ID, core.Period{Start: day(2023, 12, 1), End: day(2023, 12, 31)})
	if got != (core.FinancialSummary{Expenses: -50000, Remaining: -50000}) {
		t.Fatalf("unexpected december summary %+v", got)
	}

	got, _ = repo.Aggregate(ctx, "bob", "", january())
	if got != (core.FinancialSummary{}) {
		t.Fatalf("bob must see zeros, got %+v", got)
	}
}

func TestAggregateMatchesListedAmounts(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)
	checking, savings, _ := seed(t, repo)

	periods := []core.Period{
		january(),
		{Start: day(2023, 12, 1), End: day(2024, 1, 31)},
		{Start: day(2024, 1, 6), End: day(2024, 1, 30)},
	}
	for _, p := range periods {
		for _, accountID := range []string{"", checking.ID, savings.ID} {
			listed, err := repo.ListTransactions(ctx, "alice", core.TransactionFilter{Period: p, AccountID: accountID})
			if err != nil {
				t.Fatalf("list %s: %v", p, err)
			}
			amounts := make([]int64, len(listed))
			for i, tx := range listed {
				amounts[i] = tx.Amount
			}

			got, err := repo.Aggregate(ctx, "alice", accountID, p)
			if err != nil {
				t.Fatalf("aggregate %s: %v", p, err)
			}
			if want := core.Totals(amounts); got != want {
				t.Fatalf("period %s account %q: got %+v, want %+v", p, accountID, got, want)
			}
		}
	}
}

func TestCategoryTotals(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)
	_, _, food := seed(t, repo)

	got, err := repo.CategoryTotals(ctx, "alice", "", january())
	if err != nil {
		t.Fatalf("category totals: %v", err)
	}
	want := []core.CategoryAmount{{Name: "Food", Value: 35000}, {Name: core.UncategorizedCategoryName, Value: 20000}}
	if len(got) != len(want) || got[0] != want[0] || got[1] != want[1] {
		t.Fatalf("got %+v, want %+v", got, want)
	}

	if _, err := repo.DeleteCategory(ctx, "alice", food.ID); err != nil {
		t.Fatalf("delete category: %v", err)
	}
	got, _ = repo.CategoryTotals(ctx, "alice", "", january())
	if len(got) != 1 || got[0].Name != core.UncategorizedCategoryName || got[0].Value != 55000 {
		t.Fatalf("deleted category must fall back to uncategorized, got %+v", got)
	}
}

func TestListTransactions(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)
	checking, _, _ := seed(t, repo)

	list, err := repo.ListTransactions(ctx, "alice", core.TransactionFilter{Period: january(), AccountID: checking.ID})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 3 {
		t.Fatalf("expected 3 transactions, got %d", len(list))
	}
	if list[0].Date != day(2024, 1, 31) || list[2].Date != day(2024, 1, 5) {
		t.Fatalf("expected newest first, got %v .. %v", list[0].Date, list[2].Date)
	}
	if list[0].Account != "Checking" || list[0].Category != nil {
		t.Fatalf("unexpected joined names %+v", list[0])
	}
	if list[1].Category == nil || *list[1].Category != "Food" {
		t.Fatalf("expected Food category on %+v", list[1])
	}
}

func TestUpdateAndDeleteTransaction(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)

	acc, _ := repo.CreateAccount(ctx, "alice", "Checking")
	cat, _ := repo.CreateCategory(ctx, "alice", "Food")
	tx, err := repo.CreateTransaction(ctx, "alice", core.NewTransaction{
		Amount: -100, Payee: "Shop", Date: day(2024, 1, 2), AccountID: acc.ID, Notes: strptr("n"),
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	amount := int64(-250)
	updated, err := repo.UpdateTransaction(ctx, "alice", tx.ID, core.TransactionPatch{
		Amount: &amount, CategoryID: &cat.ID, Notes: strptr(""),
	})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.Amount != -250 || updated.Category == nil || *updated.Category != "Food" || updated.Notes != nil {
		t.Fatalf("unexpected update result %+v", updated)
	}
	if updated.Payee != "Shop" {
		t.Fatalf("untouched fields must survive, got payee %q", updated.Payee)
	}

	if _, err := repo.UpdateTransaction(ctx, "bob", tx.ID, core.TransactionPatch{Amount: &amount}); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected not found for bob, got %v", err)
	}
	if _, err := repo.DeleteTransaction(ctx, "bob", tx.ID); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected not found for bob, got %v", err)
	}

	if _, err := repo.DeleteTransaction(ctx, "alice", tx.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := repo.GetTransaction(ctx, "alice", tx.ID); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected not found after delete, got %v", err)
	}
}

func TestDeleteAccountCascades(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)
	checking, _, _ := seed(t, repo)

	if _, err := repo.DeleteAccount(ctx, "alice", checking.ID); err != nil {
		t.Fatalf("delete account: %v", err)
	}
	list, err := repo.ListTransactions(ctx, "alice", core.TransactionFilter{Period: core.Period{Start: day(2023, 1, 1), End: day(2024, 12, 31)}})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 1 || list[0].Payee != "Bakery" {
		t.Fatalf("only the savings transaction should remain, got %+v", list)
	}
}

func TestDeleteTransactionsCountsOwnedRows(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)
	seed(t, repo)

	list, _ := repo.ListTransactions(ctx, "alice", core.TransactionFilter{Period: january()})
	ids := []string{list[0].ID, list[1].ID, "missing"}

	n, err := repo.DeleteTransactions(ctx, "bob", ids)
	if err != nil || n != 0 {
		t.Fatalf("bob must delete nothing, got %d (err=%v)", n, err)
	}
	n, err = repo.DeleteTransactions(ctx, "alice", ids)
	if err != nil || n != 2 {
		t.Fatalf("expected 2 deleted, got %d (err=%v)", n, err)
	}
}
