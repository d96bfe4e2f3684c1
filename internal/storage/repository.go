package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"fintrack/internal/core"

	_ "modernc.org/sqlite"
)

type SQLiteRepository struct {
	db      *sql.DB
	queries *Queries
}

// dsn enables foreign keys on every pooled connection so that deleting an
// account cascades to its transactions.
func dsn(dbPath string) string {
	return "file:" + dbPath + "?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dsn(dbPath))
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{
		db:      db,
		queries: New(db),
	}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// Ping reports whether the database is reachable.
func (r *SQLiteRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// withTx runs fn inside a single SQL transaction and rolls back on any error.
func (r *SQLiteRepository) withTx(ctx context.Context, fn func(q *Queries) error) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	if err := fn(r.queries.WithTx(tx)); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			slog.ErrorContext(ctx, "Failed to roll back transaction", "error", rbErr)
		}
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// Accounts

func (r *SQLiteRepository) ListAccounts(ctx context.Context, userID string) ([]core.Account, error) {
	rows, err := r.queries.listNamed(ctx, accountsTable, userID)
	if err != nil {
		return nil, fmt.Errorf("list accounts: %w", err)
	}
	accounts := make([]core.Account, len(rows))
	for i, row := range rows {
		accounts[i] = core.Account(row)
	}
	return accounts, nil
}

func (r *SQLiteRepository) GetAccount(ctx context.Context, userID, id string) (core.Account, error) {
	row, err := r.queries.getNamed(ctx, accountsTable, userID, id)
	if err != nil {
		return core.Account{}, notFound("get account", err)
	}
	return core.Account(row), nil
}

func (r *SQLiteRepository) CreateAccount(ctx context.Context, userID, name string) (core.Account, error) {
	row := namedRow{ID: uuid.NewString(), Name: strings.TrimSpace(name), UserID: userID}
	if err := r.queries.insertNamed(ctx, accountsTable, row); err != nil {
		return core.Account{}, fmt.Errorf("create account: %w", err)
	}
	slog.InfoContext(ctx, "Account created", "id", row.ID, "user_id", userID)
	return core.Account(row), nil
}

func (r *SQLiteRepository) UpdateAccount(ctx context.Context, userID, id, name string) (core.Account, error) {
	n, err := r.queries.renameNamed(ctx, accountsTable, userID, id, strings.TrimSpace(name))
	if err != nil {
		return core.Account{}, fmt.Errorf("update account: %w", err)
	}
	if n == 0 {
		return core.Account{}, fmt.Errorf("update account %s: %w", id, core.ErrNotFound)
	}
	return r.GetAccount(ctx, userID, id)
}

// DeleteAccount removes the account and, through the foreign key, its transactions.
func (r *SQLiteRepository) DeleteAccount(ctx context.Context, userID, id string) (core.Account, error) {
	acc, err := r.GetAccount(ctx, userID, id)
	if err != nil {
		return core.Account{}, err
	}
	if _, err := r.queries.removeNamed(ctx, accountsTable, userID, id); err != nil {
		return core.Account{}, fmt.Errorf("delete account: %w", err)
	}
	slog.InfoContext(ctx, "Account deleted", "id", id, "user_id", userID)
	return acc, nil
}

func (r *SQLiteRepository) DeleteAccounts(ctx context.Context, userID string, ids []string) (int64, error) {
	if len(ids) == 0 {
		return 0, core.ErrEmptyIDs
	}
	n, err := r.queries.removeManyNamed(ctx, accountsTable, userID, ids)
	if err != nil {
		return 0, fmt.Errorf("bulk delete accounts: %w", err)
	}
	return n, nil
}

// Categories

func (r *SQLiteRepository) ListCategories(ctx context.Context, userID string) ([]core.Category, error) {
	rows, err := r.queries.listNamed(ctx, categoriesTable, userID)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	categories := make([]core.Category, len(rows))
	for i, row := range rows {
		categories[i] = core.Category(row)
	}
	return categories, nil
}

func (r *SQLiteRepository) GetCategory(ctx context.Context, userID, id string) (core.Category, error) {
	row, err := r.queries.getNamed(ctx, categoriesTable, userID, id)
	if err != nil {
		return core.Category{}, notFound("get category", err)
	}
	return core.Category(row), nil
}

func (r *SQLiteRepository) CreateCategory(ctx context.Context, userID, name string) (core.Category, error) {
	row := namedRow{ID: uuid.NewString(), Name: strings.TrimSpace(name), UserID: userID}
	if err := r.queries.insertNamed(ctx, categoriesTable, row); err != nil {
		return core.Category{}, fmt.Errorf("create category: %w", err)
	}
	slog.InfoContext(ctx, "Category created", "id", row.ID, "user_id", userID)
	return core.Category(row), nil
}

func (r *SQLiteRepository) UpdateCategory(ctx context.Context, userID, id, name string) (core.Category, error) {
	n, err := r.queries.renameNamed(ctx, categoriesTable, userID, id, strings.TrimSpace(name))
	if err != nil {
		return core.Category{}, fmt.Errorf("update category: %w", err)
	}
	if n == 0 {
		return core.Category{}, fmt.Errorf("update category %s: %w", id, core.ErrNotFound)
	}
	return r.GetCategory(ctx, userID, id)
}

// DeleteCategory removes the category; its transactions become uncategorized.
func (r *SQLiteRepository) DeleteCategory(ctx context.Context, userID, id string) (core.Category, error) {
	cat, err := r.GetCategory(ctx, userID, id)
	if err != nil {
		return core.Category{}, err
	}
	if _, err := r.queries.removeNamed(ctx, categoriesTable, userID, id); err != nil {
		return core.Category{}, fmt.Errorf("delete category: %w", err)
	}
	slog.InfoContext(ctx, "Category deleted", "id", id, "user_id", userID)
	return cat, nil
}

func (r *SQLiteRepository) DeleteCategories(ctx context.Context, userID string, ids []string) (int64, error) {
	if len(ids) == 0 {
		return 0, core.ErrEmptyIDs
	}
	n, err := r.queries.removeManyNamed(ctx, categoriesTable, userID, ids)
	if err != nil {
		return 0, fmt.Errorf("bulk delete categories: %w", err)
	}
	return n, nil
}

// Transactions

func (r *SQLiteRepository) ListTransactions(ctx context.Context, userID string, f core.TransactionFilter) ([]core.TransactionDetail, error) {
	rows, err := r.queries.listTransactions(ctx, userID, f.AccountID, f.Period)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	out := make([]core.TransactionDetail, 0, len(rows))
	for _, row := range rows {
		d, err := row.toDetail()
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, nil
}

func (r *SQLiteRepository) GetTransaction(ctx context.Context, userID, id string) (core.TransactionDetail, error) {
	return r.getTransaction(ctx, r.queries, userID, id)
}

func (r *SQLiteRepository) getTransaction(ctx context.Context, q *Queries, userID, id string) (core.TransactionDetail, error) {
	row, err := q.getTransaction(ctx, userID, id)
	if err != nil {
		return core.TransactionDetail{}, notFound("get transaction", err)
	}
	return row.toDetail()
}

func (r *SQLiteRepository) CreateTransaction(ctx context.Context, userID string, t core.NewTransaction) (core.Transaction, error) {
	created, err := r.CreateTransactions(ctx, userID, []core.NewTransaction{t})
	if err != nil {
		return core.Transaction{}, err
	}
	return created[0], nil
}

// CreateTransactions inserts the whole batch in one SQL transaction. Either
// every row is stored or none is. Every referenced account and category must
// belong to userID.
func (r *SQLiteRepository) CreateTransactions(ctx context.Context, userID string, batch []core.NewTransaction) ([]core.Transaction, error) {
	if len(batch) == 0 {
		return nil, core.ErrEmptyBatch
	}

	created := make([]core.Transaction, 0, len(batch))
	err := r.withTx(ctx, func(q *Queries) error {
		if err := checkOwnership(ctx, q, userID, batch); err != nil {
			return err
		}
		for _, t := range batch {
			id := uuid.NewString()
			if err := q.insertTransaction(ctx, id, t); err != nil {
				return fmt.Errorf("insert transaction: %w", err)
			}
			created = append(created, core.Transaction{
				ID:         id,
				Amount:     t.Amount,
				Payee:      t.Payee,
				Date:       t.Date,
				AccountID:  t.AccountID,
				CategoryID: t.CategoryID,
				Notes:      t.Notes,
			})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	slog.InfoContext(ctx, "Transactions created", "user_id", userID, "count", len(created))
	return created, nil
}

func checkOwnership(ctx context.Context, q *Queries, userID string, batch []core.NewTransaction) error {
	accounts := map[string]struct{}{}
	categories := map[string]struct{}{}
	for _, t := range batch {
		accounts[t.AccountID] = struct{}{}
		if t.CategoryID != nil {
			categories[*t.CategoryID] = struct{}{}
		}
	}

	if err := checkOwned(ctx, q, accountsTable, userID, keys(accounts)); err != nil {
		return fmt.Errorf("account: %w", err)
	}
	if len(categories) > 0 {
		if err := checkOwned(ctx, q, categoriesTable, userID, keys(categories)); err != nil {
			return fmt.Errorf("category: %w", err)
		}
	}
	return nil
}

func checkOwned(ctx context.Context, q *Queries, t namedTable, userID string, ids []string) error {
	n, err := q.countOwned(ctx, t, userID, ids)
	if err != nil {
		return fmt.Errorf("check ownership: %w", err)
	}
	if n != len(ids) {
		return core.ErrNotFound
	}
	return nil
}

// UpdateTransaction applies patch to an owned transaction.
func (r *SQLiteRepository) UpdateTransaction(ctx context.Context, userID, id string, patch core.TransactionPatch) (core.TransactionDetail, error) {
	err := r.withTx(ctx, func(q *Queries) error {
		current, err := r.getTransaction(ctx, q, userID, id)
		if err != nil {
			return err
		}

		t := current.Transaction
		if patch.Amount != nil {
			t.Amount = *patch.Amount
		}
		if patch.Payee != nil {
			t.Payee = strings.TrimSpace(*patch.Payee)
		}
		if patch.Date != nil {
			t.Date = *patch.Date
		}
		if patch.Notes != nil {
			t.Notes = blankToNil(*patch.Notes)
		}
		if patch.CategoryID != nil {
			t.CategoryID = blankToNil(*patch.CategoryID)
			if t.CategoryID != nil {
				if err := checkOwned(ctx, q, categoriesTable, userID, []string{*t.CategoryID}); err != nil {
					return fmt.Errorf("category: %w", err)
				}
			}
		}

		if err := q.updateTransaction(ctx, t); err != nil {
			return fmt.Errorf("update transaction: %w", err)
		}
		return nil
	})
	if err != nil {
		return core.TransactionDetail{}, err
	}
	return r.GetTransaction(ctx, userID, id)
}

func (r *SQLiteRepository) DeleteTransaction(ctx context.Context, userID, id string) (core.TransactionDetail, error) {
	t, err := r.GetTransaction(ctx, userID, id)
	if err != nil {
		return core.TransactionDetail{}, err
	}
	if _, err := r.queries.deleteTransaction(ctx, userID, id); err != nil {
		return core.TransactionDetail{}, fmt.Errorf("delete transaction: %w", err)
	}
	return t, nil
}

func (r *SQLiteRepository) DeleteTransactions(ctx context.Context, userID string, ids []string) (int64, error) {
	if len(ids) == 0 {
		return 0, core.ErrEmptyIDs
	}
	n, err := r.queries.deleteTransactions(ctx, userID, ids)
	if err != nil {
		return 0, fmt.Errorf("bulk delete transactions: %w", err)
	}
	return n, nil
}

// Aggregation

// Aggregate sums the user's transactions dated inside p. An empty accountID
// covers every account of the user.
func (r *SQLiteRepository) Aggregate(ctx context.Context, userID, accountID string, p core.Period) (core.FinancialSummary, error) {
	s, err := r.queries.aggregate(ctx, userID, accountID, p)
	if err != nil {
		return core.FinancialSummary{}, fmt.Errorf("aggregate %s: %w", p, err)
	}
	return s, nil
}

// CategoryTotals returns absolute spending per category name, largest first.
func (r *SQLiteRepository) CategoryTotals(ctx context.Context, userID, accountID string, p core.Period) ([]core.CategoryAmount, error) {
	totals, err := r.queries.categoryTotals(ctx, userID, accountID, p)
	if err != nil {
		return nil, fmt.Errorf("category totals %s: %w", p, err)
	}
	return totals, nil
}

func notFound(op string, err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%s: %w", op, core.ErrNotFound)
	}
	return fmt.Errorf("%s: %w", op, err)
}

func keys(m map[string]struct{}) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	return out
}

func blankToNil(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}
