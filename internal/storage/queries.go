package storage

import (
	"context"
	"database/sql"
)

// DBTX is satisfied by *sql.DB and *sql.Tx.
type DBTX interface {
	ExecContext(context.Context, string, ...interface{}) (sql.Result, error)
	QueryContext(context.Context, string, ...interface{}) (*sql.Rows, error)
	QueryRowContext(context.Context, string, ...interface{}) *sql.Row
}

type Queries struct {
	db DBTX
}

func New(db DBTX) *Queries {
	return &Queries{db: db}
}

func (q *Queries) WithTx(tx *sql.Tx) *Queries {
	return &Queries{db: tx}
}

// Row types mirror the table columns. Timestamps and dates are stored as text.
type (
	ExpenseRow struct {
		ID                 string
		Amount             float64
		Category           string
		Date               string
		Note               string
		IsRecurring        bool
		RecurringFrequency string
		CreatedAt          string
		UpdatedAt          string
	}

	BudgetRow struct {
		ID        string
		Category  string
		Amount    float64
		Period    string
		CreatedAt string
		UpdatedAt string
	}

	CategoryRow struct {
		ID        string
		Name      string
		Icon      string
		Color     string
		IsDefault bool
	}
)

const expenseColumns = `id, amount, category, date, note, is_recurring, recurring_frequency, created_at, updated_at`

const listExpenses = `SELECT ` + expenseColumns + ` FROM expenses ORDER BY created_at, rowid`

func (q *Queries) ListExpenses(ctx context.Context) ([]ExpenseRow, error) {
	rows, err := q.db.QueryContext(ctx, listExpenses)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []ExpenseRow
	for rows.Next() {
		var i ExpenseRow
		if err := scanExpense(rows, &i); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	return items, rows.Err()
}

const getExpense = `SELECT ` + expenseColumns + ` FROM expenses WHERE id = ?`

func (q *Queries) GetExpense(ctx context.Context, id string) (ExpenseRow, error) {
	var i ExpenseRow
	err := scanExpense(q.db.QueryRowContext(ctx, getExpense, id), &i)
	return i, err
}

const createExpense = `INSERT INTO expenses (` + expenseColumns + `) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`

func (q *Queries) CreateExpense(ctx context.Context, arg ExpenseRow) error {
	_, err := q.db.ExecContext(ctx, createExpense,
		arg.ID, arg.Amount, arg.Category, arg.Date, arg.Note,
		arg.IsRecurring, arg.RecurringFrequency, arg.CreatedAt, arg.UpdatedAt)
	return err
}

const updateExpense = `UPDATE expenses
SET amount = ?, category = ?, date = ?, note = ?, is_recurring = ?, recurring_frequency = ?, updated_at = ?
WHERE id = ?`

func (q *Queries) UpdateExpense(ctx context.Context, arg ExpenseRow) (int64, error) {
	res, err := q.db.ExecContext(ctx, updateExpense,
		arg.Amount, arg.Category, arg.Date, arg.Note,
		arg.IsRecurring, arg.RecurringFrequency, arg.UpdatedAt, arg.ID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

const deleteExpense = `DELETE FROM expenses WHERE id = ?`

func (q *Queries) DeleteExpense(ctx context.Context, id string) (int64, error) {
	res, err := q.db.ExecContext(ctx, deleteExpense, id)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

const budgetColumns = `id, category, amount, period, created_at, updated_at`

const listBudgets = `SELECT ` + budgetColumns + ` FROM budgets ORDER BY created_at, rowid`

func (q *Queries) ListBudgets(ctx context.Context) ([]BudgetRow, error) {
	rows, err := q.db.QueryContext(ctx, listBudgets)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []BudgetRow
	for rows.Next() {
		var i BudgetRow
		if err := rows.Scan(&i.ID, &i.Category, &i.Amount, &i.Period, &i.CreatedAt, &i.UpdatedAt); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	return items, rows.Err()
}

const upsertBudget = `INSERT INTO budgets (` + budgetColumns + `) VALUES (?, ?, ?, ?, ?, ?)
ON CONFLICT (category, period) DO UPDATE SET amount = excluded.amount, updated_at = excluded.updated_at
RETURNING ` + budgetColumns

// UpsertBudget inserts arg or, when (category, period) exists, updates the
// amount and updated_at of the existing row. The stored row is returned.
func (q *Queries) UpsertBudget(ctx context.Context, arg BudgetRow) (BudgetRow, error) {
	row := q.db.QueryRowContext(ctx, upsertBudget,
		arg.ID, arg.Category, arg.Amount, arg.Period, arg.CreatedAt, arg.UpdatedAt)
	var i BudgetRow
	err := row.Scan(&i.ID, &i.Category, &i.Amount, &i.Period, &i.CreatedAt, &i.UpdatedAt)
	return i, err
}

const deleteBudget = `DELETE FROM budgets WHERE id = ?`

func (q *Queries) DeleteBudget(ctx context.Context, id string) (int64, error) {
	res, err := q.db.ExecContext(ctx, deleteBudget, id)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

const listCategories = `SELECT id, name, icon, color, is_default FROM categories ORDER BY seq`

func (q *Queries) ListCategories(ctx context.Context) ([]CategoryRow, error) {
	rows, err := q.db.QueryContext(ctx, listCategories)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []CategoryRow
	for rows.Next() {
		var i CategoryRow
		if err := rows.Scan(&i.ID, &i.Name, &i.Icon, &i.Color, &i.IsDefault); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	return items, rows.Err()
}

const createCategory = `INSERT INTO categories (id, name, icon, color, is_default) VALUES (?, ?, ?, ?, ?)`

func (q *Queries) CreateCategory(ctx context.Context, arg CategoryRow) error {
	_, err := q.db.ExecContext(ctx, createCategory, arg.ID, arg.Name, arg.Icon, arg.Color, arg.IsDefault)
	return err
}

const deleteCustomCategory = `DELETE FROM categories WHERE id = ? AND is_default = 0`

// DeleteCustomCategory never removes a default category.
func (q *Queries) DeleteCustomCategory(ctx context.Context, id string) (int64, error) {
	res, err := q.db.ExecContext(ctx, deleteCustomCategory, id)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

const deleteAllCategories = `DELETE FROM categories`

func (q *Queries) DeleteAllCategories(ctx context.Context) error {
	_, err := q.db.ExecContext(ctx, deleteAllCategories)
	return err
}

const getSetting = `SELECT value FROM settings WHERE key = ?`

func (q *Queries) GetSetting(ctx context.Context, key string) (string, error) {
	var value string
	err := q.db.QueryRowContext(ctx, getSetting, key).Scan(&value)
	return value, err
}

const putSetting = `INSERT INTO settings (key, value) VALUES (?, ?)
ON CONFLICT (key) DO UPDATE SET value = excluded.value`

func (q *Queries) PutSetting(ctx context.Context, key, value string) error {
	_, err := q.db.ExecContext(ctx, putSetting, key, value)
	return err
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanExpense(s scanner, i *ExpenseRow) error {
	return s.Scan(&i.ID, &i.Amount, &i.Category, &i.Date, &i.Note,
		&i.IsRecurring, &i.RecurringFrequency, &i.CreatedAt, &i.UpdatedAt)
}
