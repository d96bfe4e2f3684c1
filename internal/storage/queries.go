package storage

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"cloud.google.com/go/civil"

	"fintrack/internal/core"
)

type DBTX interface {
	ExecContext(context.Context, string, ...interface{}) (sql.Result, error)
	QueryContext(context.Context, string, ...interface{}) (*sql.Rows, error)
	QueryRowContext(context.Context, string, ...interface{}) *sql.Row
}

// Queries holds the hand-written statements of the schema. It runs against
// either the pool or a *sql.Tx.
type Queries struct {
	db DBTX
}

func New(db DBTX) *Queries {
	return &Queries{db: db}
}

func (q *Queries) WithTx(tx *sql.Tx) *Queries {
	return &Queries{db: tx}
}

// namedTable holds the statements shared by accounts and categories.
type namedTable struct {
	list       string
	get        string
	insert     string
	rename     string
	remove     string
	removeMany string
	owned      string
}

func newNamedTable(table string) namedTable {
	return namedTable{
		list:       fmt.Sprintf("SELECT id, name, user_id FROM %s WHERE user_id = ? ORDER BY name, id", table),
		get:        fmt.Sprintf("SELECT id, name, user_id FROM %s WHERE id = ? AND user_id = ?", table),
		insert:     fmt.Sprintf("INSERT INTO %s (id, name, user_id) VALUES (?, ?, ?)", table),
		rename:     fmt.Sprintf("UPDATE %s SET name = ? WHERE id = ? AND user_id = ?", table),
		remove:     fmt.Sprintf("DELETE FROM %s WHERE id = ? AND user_id = ?", table),
		removeMany: fmt.Sprintf("DELETE FROM %s WHERE user_id = ? AND id IN (%%s)", table),
		owned:      fmt.Sprintf("SELECT COUNT(*) FROM %s WHERE user_id = ? AND id IN (%%s)", table),
	}
}

var (
	accountsTable   = newNamedTable("accounts")
	categoriesTable = newNamedTable("categories")
)

type namedRow struct {
	ID     string
	Name   string
	UserID string
}

func (q *Queries) listNamed(ctx context.Context, t namedTable, userID string) ([]namedRow, error) {
	rows, err := q.db.QueryContext(ctx, t.list, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []namedRow
	for rows.Next() {
		var i namedRow
		if err := rows.Scan(&i.ID, &i.Name, &i.UserID); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	return items, rows.Err()
}

func (q *Queries) getNamed(ctx context.Context, t namedTable, userID, id string) (namedRow, error) {
	var i namedRow
	err := q.db.QueryRowContext(ctx, t.get, id, userID).Scan(&i.ID, &i.Name, &i.UserID)
	return i, err
}

func (q *Queries) insertNamed(ctx context.Context, t namedTable, row namedRow) error {
	_, err := q.db.ExecContext(ctx, t.insert, row.ID, row.Name, row.UserID)
	return err
}

func (q *Queries) renameNamed(ctx context.Context, t namedTable, userID, id, name string) (int64, error) {
	res, err := q.db.ExecContext(ctx, t.rename, name, id, userID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (q *Queries) removeNamed(ctx context.Context, t namedTable, userID, id string) (int64, error) {
	res, err := q.db.ExecContext(ctx, t.remove, id, userID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (q *Queries) removeManyNamed(ctx context.Context, t namedTable, userID string, ids []string) (int64, error) {
	query, args := inClause(t.removeMany, userID, ids)
	res, err := q.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// countOwned returns how many of the distinct ids belong to userID.
func (q *Queries) countOwned(ctx context.Context, t namedTable, userID string, ids []string) (int, error) {
	query, args := inClause(t.owned, userID, ids)
	var n int
	err := q.db.QueryRowContext(ctx, query, args...).Scan(&n)
	return n, err
}

const transactionColumns = `t.id, t.amount, t.payee, t.notes, t.date, t.account_id, t.category_id, a.name, c.name`

const listTransactions = `SELECT ` + transactionColumns + `
FROM transactions t
INNER JOIN accounts a ON a.id = t.account_id
LEFT JOIN categories c ON c.id = t.category_id
WHERE a.user_id = ?
  AND (? = '' OR t.account_id = ?)
  AND t.date BETWEEN ? AND ?
ORDER BY t.date DESC, t.rowid DESC`

const getTransaction = `SELECT ` + transactionColumns + `
FROM transactions t
INNER JOIN accounts a ON a.id = t.account_id
LEFT JOIN categories c ON c.id = t.category_id
WHERE t.id = ? AND a.user_id = ?`

const insertTransaction = `INSERT INTO transactions (id, amount, payee, notes, date, account_id, category_id)
VALUES (?, ?, ?, ?, ?, ?, ?)`

const updateTransaction = `UPDATE transactions
SET amount = ?, payee = ?, notes = ?, date = ?, category_id = ?
WHERE id = ?`

const deleteTransaction = `DELETE FROM transactions
WHERE id = ? AND account_id IN (SELECT id FROM accounts WHERE user_id = ?)`

const deleteTransactions = `DELETE FROM transactions
WHERE account_id IN (SELECT id FROM accounts WHERE user_id = ?) AND id IN (%s)`

const aggregateTransactions = `SELECT
    COALESCE(SUM(CASE WHEN t.amount >= 0 THEN t.amount ELSE 0 END), 0) AS income,
    COALESCE(SUM(CASE WHEN t.amount < 0 THEN t.amount ELSE 0 END), 0) AS expenses,
    COALESCE(SUM(t.amount), 0) AS remaining
FROM transactions t
INNER JOIN accounts a ON a.id = t.account_id
WHERE a.user_id = ?
  AND (? = '' OR t.account_id = ?)
  AND t.date BETWEEN ? AND ?`

const categoryTotals = `SELECT
    COALESCE(c.name, '` + core.UncategorizedCategoryName + `') AS category_name,
    SUM(ABS(t.amount)) AS total
FROM transactions t
INNER JOIN accounts a ON a.id = t.account_id
LEFT JOIN categories c ON c.id = t.category_id
WHERE a.user_id = ?
  AND (? = '' OR t.account_id = ?)
  AND t.amount < 0
  AND t.date BETWEEN ? AND ?
GROUP BY COALESCE(c.name, '` + core.UncategorizedCategoryName + `')
ORDER BY total DESC, category_name ASC`

type transactionRow struct {
	ID           string
	Amount       int64
	Payee        string
	Notes        sql.NullString
	Date         string
	AccountID    string
	CategoryID   sql.NullString
	AccountName  string
	CategoryName sql.NullString
}

func (r transactionRow) toDetail() (core.TransactionDetail, error) {
	d, err := civil.ParseDate(r.Date)
	if err != nil {
		return core.TransactionDetail{}, fmt.Errorf("parse stored date %q: %w", r.Date, err)
	}
	return core.TransactionDetail{
		Transaction: core.Transaction{
			ID:         r.ID,
			Amount:     r.Amount,
			Payee:      r.Payee,
			Date:       d,
			AccountID:  r.AccountID,
			CategoryID: nullToPtr(r.CategoryID),
			Notes:      nullToPtr(r.Notes),
		},
		Account:  r.AccountName,
		Category: nullToPtr(r.CategoryName),
	}, nil
}

func scanTransaction(s interface{ Scan(...any) error }) (transactionRow, error) {
	var r transactionRow
	err := s.Scan(&r.ID, &r.Amount, &r.Payee, &r.Notes, &r.Date, &r.AccountID, &r.CategoryID, &r.AccountName, &r.CategoryName)
	return r, err
}

func (q *Queries) listTransactions(ctx context.Context, userID, accountID string, p core.Period) ([]transactionRow, error) {
	rows, err := q.db.QueryContext(ctx, listTransactions, userID, accountID, accountID, p.Start.String(), p.End.String())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []transactionRow
	for rows.Next() {
		r, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, r)
	}
	return items, rows.Err()
}

func (q *Queries) getTransaction(ctx context.Context, userID, id string) (transactionRow, error) {
	return scanTransaction(q.db.QueryRowContext(ctx, getTransaction, id, userID))
}

func (q *Queries) insertTransaction(ctx context.Context, id string, t core.NewTransaction) error {
	_, err := q.db.ExecContext(ctx, insertTransaction,
		id, t.Amount, t.Payee, ptrToNull(t.Notes), t.Date.String(), t.AccountID, ptrToNull(t.CategoryID))
	return err
}

func (q *Queries) updateTransaction(ctx context.Context, t core.Transaction) error {
	_, err := q.db.ExecContext(ctx, updateTransaction,
		t.Amount, t.Payee, ptrToNull(t.Notes), t.Date.String(), ptrToNull(t.CategoryID), t.ID)
	return err
}

func (q *Queries) deleteTransaction(ctx context.Context, userID, id string) (int64, error) {
	res, err := q.db.ExecContext(ctx, deleteTransaction, id, userID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (q *Queries) deleteTransactions(ctx context.Context, userID string, ids []string) (int64, error) {
	query, args := inClause(deleteTransactions, userID, ids)
	res, err := q.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (q *Queries) aggregate(ctx context.Context, userID, accountID string, p core.Period) (core.FinancialSummary, error) {
	var s core.FinancialSummary
	err := q.db.QueryRowContext(ctx, aggregateTransactions, userID, accountID, accountID, p.Start.String(), p.End.String()).
		Scan(&s.Income, &s.Expenses, &s.Remaining)
	return s, err
}

func (q *Queries) categoryTotals(ctx context.Context, userID, accountID string, p core.Period) ([]core.CategoryAmount, error) {
	rows, err := q.db.QueryContext(ctx, categoryTotals, userID, accountID, accountID, p.Start.String(), p.End.String())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := []core.CategoryAmount{}
	for rows.Next() {
		var c core.CategoryAmount
		if err := rows.Scan(&c.Name, &c.Value); err != nil {
			return nil, err
		}
		items = append(items, c)
	}
	return items, rows.Err()
}

// inClause expands the %s placeholder of query into one ? per id.
// The first bound argument is always the owner.
func inClause(query, userID string, ids []string) (string, []any) {
	args := make([]any, 0, len(ids)+1)
	args = append(args, userID)
	marks := make([]string, len(ids))
	for i, id := range ids {
		marks[i] = "?"
		args = append(args, id)
	}
	return fmt.Sprintf(query, strings.Join(marks, ", ")), args
}

func nullToPtr(s sql.NullString) *string {
	if !s.Valid {
		return nil
	}
	v := s.String
	return &v
}

func ptrToNull(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}
