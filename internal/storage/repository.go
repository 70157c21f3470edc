package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"budgetwatch/internal/core"
	"budgetwatch/internal/currency"
	"budgetwatch/internal/log"
	"budgetwatch/internal/store"

	_ "modernc.org/sqlite"
)

const (
	timestampLayout = time.RFC3339Nano
	currencyKey     = "currency"
)

// ErrCorruptRow is returned when a stored value can no longer be decoded.
var ErrCorruptRow = errors.New("corrupt row")

type SQLiteRepository struct {
	store.Signals

	db      *sql.DB
	queries *Queries
	now     func() time.Time
	logger  *log.Logger
}

var _ store.Repository = (*SQLiteRepository)(nil)

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	// A single writer keeps SQLite from returning SQLITE_BUSY under concurrent use.
	db.SetMaxOpenConns(1)

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
		now:     time.Now,
		logger:  log.Wrap(nil, log.ComponentStorage),
	}, nil
}

// WithClock replaces the timestamp source. Intended for tests.
func (r *SQLiteRepository) WithClock(now func() time.Time) *SQLiteRepository {
	r.now = now
	return r
}

func (r *SQLiteRepository) WithLogger(l *log.Logger) *SQLiteRepository {
	if l != nil {
		r.logger = l
	}
	return r
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

func (r *SQLiteRepository) ListExpenses(ctx context.Context) ([]core.Expense, error) {
	rows, err := r.queries.ListExpenses(ctx)
	if err != nil {
		return nil, fmt.Errorf("list expenses: %w", err)
	}
	expenses := make([]core.Expense, 0, len(rows))
	for _, row := range rows {
		e, err := expenseFromRow(row)
		if err != nil {
			return nil, err
		}
		expenses = append(expenses, e)
	}
	return expenses, nil
}

func (r *SQLiteRepository) CreateExpense(ctx context.Context, e core.Expense) (core.Expense, error) {
	if err := e.Validate(); err != nil {
		return core.Expense{}, err
	}
	now := r.now().UTC()
	e.ID = uuid.NewString()
	e.CreatedAt, e.UpdatedAt = now, now

	if err := r.queries.CreateExpense(ctx, expenseToRow(e)); err != nil {
		return core.Expense{}, fmt.Errorf("create expense: %w", err)
	}

	fields := log.NewFields().WithOperation(log.OpCreate).WithExpense(e.ID, e.Category, e.Amount)
	r.logger.InfoContext(ctx, "Expense saved to SQLite", append(fields.ToSlice(), "date", e.Date.String())...)

	r.ExpenseChanged(store.OpCreate, e.ID)
	return e, nil
}

func (r *SQLiteRepository) UpdateExpense(ctx context.Context, id string, patch core.ExpensePatch) (core.Expense, bool, error) {
	row, err := r.queries.GetExpense(ctx, id)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Expense{}, false, nil
	}
	if err != nil {
		return core.Expense{}, false, fmt.Errorf("get expense %s: %w", id, err)
	}
	current, err := expenseFromRow(row)
	if err != nil {
		return core.Expense{}, false, err
	}

	updated := current.Apply(patch)
	if err := updated.Validate(); err != nil {
		return core.Expense{}, false, err
	}
	updated.UpdatedAt = r.now().UTC()

	n, err := r.queries.UpdateExpense(ctx, expenseToRow(updated))
	if err != nil {
		return core.Expense{}, false, fmt.Errorf("update expense %s: %w", id, err)
	}
	if n == 0 {
		return core.Expense{}, false, nil
	}

	r.ExpenseChanged(store.OpUpdate, id)
	return updated, true, nil
}

func (r *SQLiteRepository) DeleteExpense(ctx context.Context, id string) (bool, error) {
	n, err := r.queries.DeleteExpense(ctx, id)
	if err != nil {
		return false, fmt.Errorf("delete expense %s: %w", id, err)
	}
	if n > 0 {
		r.logger.InfoContext(ctx, "Expense deleted from SQLite",
			log.FieldOperation, log.OpDelete,
			log.FieldExpenseID, id)
	}
	return n > 0, nil
}

func (r *SQLiteRepository) ListBudgets(ctx context.Context) ([]core.Budget, error) {
	rows, err := r.queries.ListBudgets(ctx)
	if err != nil {
		return nil, fmt.Errorf("list budgets: %w", err)
	}
	budgets := make([]core.Budget, 0, len(rows))
	for _, row := range rows {
		b, err := budgetFromRow(row)
		if err != nil {
			return nil, err
		}
		budgets = append(budgets, b)
	}
	return budgets, nil
}

func (r *SQLiteRepository) SaveBudget(ctx context.Context, b core.Budget) (core.Budget, error) {
	if err := b.Validate(); err != nil {
		return core.Budget{}, err
	}
	now := r.now().UTC()
	row, err := r.queries.UpsertBudget(ctx, BudgetRow{
		ID:        uuid.NewString(),
		Category:  core.BudgetCategory(b),
		Amount:    b.Amount,
		Period:    string(b.Period),
		CreatedAt: now.Format(timestampLayout),
		UpdatedAt: now.Format(timestampLayout),
	})
	if err != nil {
		return core.Budget{}, fmt.Errorf("save budget: %w", err)
	}
	return budgetFromRow(row)
}

func (r *SQLiteRepository) DeleteBudget(ctx context.Context, id string) (bool, error) {
	n, err := r.queries.DeleteBudget(ctx, id)
	if err != nil {
		return false, fmt.Errorf("delete budget %s: %w", id, err)
	}
	return n > 0, nil
}

func (r *SQLiteRepository) ListCategories(ctx context.Context) ([]core.Category, error) {
	rows, err := r.queries.ListCategories(ctx)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	categories := make([]core.Category, len(rows))
	for i, row := range rows {
		categories[i] = core.Category(row)
	}
	return categories, nil
}

func (r *SQLiteRepository) CreateCategory(ctx context.Context, c core.Category) (core.Category, error) {
	if err := c.Validate(); err != nil {
		return core.Category{}, err
	}
	c.ID = uuid.NewString()
	c.IsDefault = false
	if err := r.queries.CreateCategory(ctx, CategoryRow(c)); err != nil {
		return core.Category{}, fmt.Errorf("create category: %w", err)
	}
	return c, nil
}

func (r *SQLiteRepository) DeleteCategory(ctx context.Context, id string) (bool, error) {
	n, err := r.queries.DeleteCustomCategory(ctx, id)
	if err != nil {
		return false, fmt.Errorf("delete category %s: %w", id, err)
	}
	return n > 0, nil
}

// ResetCategories replaces the category set with the default seed in one transaction.
func (r *SQLiteRepository) ResetCategories(ctx context.Context) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin reset categories: %w", err)
	}
	defer tx.Rollback()

	q := r.queries.WithTx(tx)
	if err := q.DeleteAllCategories(ctx); err != nil {
		return fmt.Errorf("clear categories: %w", err)
	}
	for _, c := range core.DefaultCategories() {
		if err := q.CreateCategory(ctx, CategoryRow(c)); err != nil {
			return fmt.Errorf("seed category %s: %w", c.Name, err)
		}
	}
	return tx.Commit()
}

func (r *SQLiteRepository) Currency(ctx context.Context) (currency.Code, error) {
	value, err := r.queries.GetSetting(ctx, currencyKey)
	if errors.Is(err, sql.ErrNoRows) {
		return currency.Base, nil
	}
	if err != nil {
		return "", fmt.Errorf("get currency preference: %w", err)
	}
	code, err := currency.ParseCode(value)
	if err != nil {
		r.logger.WarnContext(ctx, "Stored currency preference is unknown, using base",
			log.FieldCurrency, value)
		return currency.Base, nil
	}
	return code, nil
}

func (r *SQLiteRepository) SetCurrency(ctx context.Context, code currency.Code) error {
	code, err := currency.ParseCode(string(code))
	if err != nil {
		return err
	}
	if err := r.queries.PutSetting(ctx, currencyKey, string(code)); err != nil {
		return fmt.Errorf("set currency preference: %w", err)
	}
	r.logger.InfoContext(ctx, "Currency preference saved", log.FieldCurrency, string(code))
	r.CurrencyChanged(code)
	return nil
}

func expenseToRow(e core.Expense) ExpenseRow {
	return ExpenseRow{
		ID:                 e.ID,
		Amount:             e.Amount,
		Category:           e.Category,
		Date:               e.Date.String(),
		Note:               e.Note,
		IsRecurring:        e.IsRecurring,
		RecurringFrequency: string(e.RecurringFrequency),
		CreatedAt:          e.CreatedAt.Format(timestampLayout),
		UpdatedAt:          e.UpdatedAt.Format(timestampLayout),
	}
}

func expenseFromRow(row ExpenseRow) (core.Expense, error) {
	date, err := core.ParseDate(row.Date)
	if err != nil {
		return core.Expense{}, fmt.Errorf("%w: expense %s date %q", ErrCorruptRow, row.ID, row.Date)
	}
	created, err := parseTimestamp(row.CreatedAt)
	if err != nil {
		return core.Expense{}, fmt.Errorf("%w: expense %s created_at: %v", ErrCorruptRow, row.ID, err)
	}
	updated, err := parseTimestamp(row.UpdatedAt)
	if err != nil {
		return core.Expense{}, fmt.Errorf("%w: expense %s updated_at: %v", ErrCorruptRow, row.ID, err)
	}
	return core.Expense{
		ID:                 row.ID,
		Amount:             row.Amount,
		Category:           row.Category,
		Date:               date,
		Note:               row.Note,
		IsRecurring:        row.IsRecurring,
		RecurringFrequency: core.Frequency(row.RecurringFrequency),
		CreatedAt:          created,
		UpdatedAt:          updated,
	}, nil
}

func budgetFromRow(row BudgetRow) (core.Budget, error) {
	created, err := parseTimestamp(row.CreatedAt)
	if err != nil {
		return core.Budget{}, fmt.Errorf("%w: budget %s created_at: %v", ErrCorruptRow, row.ID, err)
	}
	updated, err := parseTimestamp(row.UpdatedAt)
	if err != nil {
		return core.Budget{}, fmt.Errorf("%w: budget %s updated_at: %v", ErrCorruptRow, row.ID, err)
	}
	return core.Budget{
		ID:        row.ID,
		Category:  row.Category,
		Amount:    row.Amount,
		Period:    core.Period(row.Period),
		CreatedAt: created,
		UpdatedAt: updated,
	}, nil
}

func parseTimestamp(s string) (time.Time, error) {
	return time.Parse(timestampLayout, s)
}
