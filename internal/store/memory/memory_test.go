package memory

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"budgetwatch/internal/core"
	"budgetwatch/internal/currency"
	"budgetwatch/internal/store"
)

func food(amount float64) core.Expense {
	return core.Expense{Amount: amount, Category: "Alimentation", Date: core.NewDate(2025, 3, 10)}
}

func TestExpenseLifecycleSignalsCreateAndUpdateOnly(t *testing.T) {
	ctx := context.Background()
	s := New()
	var changes []store.ExpenseChange
	unsubscribe := s.SubscribeExpenseChanges(func(c store.ExpenseChange) { changes = append(changes, c) })
	defer unsubscribe()

	created, err := s.CreateExpense(ctx, food(100))
	require.NoError(t, err)
	assert.NotEmpty(t, created.ID)
	assert.False(t, created.CreatedAt.IsZero())

	amount := 250.0
	updated, ok, err := s.UpdateExpense(ctx, created.ID, core.ExpensePatch{Amount: &amount})
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 250.0, updated.Amount)
	assert.Equal(t, "Alimentation", updated.Category)

	deleted, err := s.DeleteExpense(ctx, created.ID)
	require.NoError(t, err)
	assert.True(t, deleted)

	require.Len(t, changes, 2)
	assert.Equal(t, store.OpCreate, changes[0].Op)
	assert.Equal(t, store.OpUpdate, changes[1].Op)
	assert.Equal(t, created.ID, changes[1].ExpenseID)

	list, err := s.ListExpenses(ctx)
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestUpdateAndDeleteMissingExpense(t *testing.T) {
	ctx := context.Background()
	s := New()
	calls := 0
	s.SubscribeExpenseChanges(func(store.ExpenseChange) { calls++ })

	note := "x"
	_, ok, err := s.UpdateExpense(ctx, "missing", core.ExpensePatch{Note: &note})
	require.NoError(t, err)
	assert.False(t, ok)

	deleted, err := s.DeleteExpense(ctx, "missing")
	require.NoError(t, err)
	assert.False(t, deleted)
	assert.Zero(t, calls)
}

func TestCreateExpenseRejectsInvalid(t *testing.T) {
	_, err := New().CreateExpense(context.Background(), food(-1))
	assert.ErrorIs(t, err, core.ErrInvalidAmount)
}

func TestSaveBudgetUpsertsOnCategoryAndPeriod(t *testing.T) {
	ctx := context.Background()
	clock := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	s := New().WithClock(func() time.Time { return clock })

	first, err := s.SaveBudget(ctx, core.Budget{Category: "Transport", Amount: 500, Period: core.Monthly})
	require.NoError(t, err)

	clock = clock.Add(time.Hour)
	second, err := s.SaveBudget(ctx, core.Budget{Category: "Transport", Amount: 800, Period: core.Monthly})
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, 800.0, second.Amount)
	assert.Equal(t, first.CreatedAt, second.CreatedAt)
	assert.True(t, second.UpdatedAt.After(first.UpdatedAt))

	yearly, err := s.SaveBudget(ctx, core.Budget{Category: "Transport", Amount: 9000, Period: core.Yearly})
	require.NoError(t, err)
	assert.NotEqual(t, first.ID, yearly.ID)

	budgets, err := s.ListBudgets(ctx)
	require.NoError(t, err)
	assert.Len(t, budgets, 2)

	ok, err := s.DeleteBudget(ctx, yearly.ID)
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = s.DeleteBudget(ctx, yearly.ID)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestCategoryRules(t *testing.T) {
	ctx := context.Background()
	s := New()

	cats, err := s.ListCategories(ctx)
	require.NoError(t, err)
	require.Len(t, cats, 6)

	ok, err := s.DeleteCategory(ctx, "1")
	require.NoError(t, err)
	assert.False(t, ok, "default categories cannot be deleted")

	ok, err = s.DeleteCategory(ctx, "nope")
	require.NoError(t, err)
	assert.False(t, ok)

	custom, err := s.CreateCategory(ctx, core.Category{Name: "Voyage", Icon: "✈️", IsDefault: true})
	require.NoError(t, err)
	assert.False(t, custom.IsDefault)

	ok, err = s.DeleteCategory(ctx, custom.ID)
	require.NoError(t, err)
	assert.True(t, ok)

	_, err = s.CreateCategory(ctx, core.Category{Name: "Cadeaux"})
	require.NoError(t, err)
	require.NoError(t, s.ResetCategories(ctx))
	cats, _ = s.ListCategories(ctx)
	assert.Equal(t, core.DefaultCategories(), cats)
}

func TestCurrencyPreference(t *testing.T) {
	ctx := context.Background()
	s := New()

	code, err := s.Currency(ctx)
	require.NoError(t, err)
	assert.Equal(t, currency.Base, code)

	var seen []currency.Code
	s.SubscribeCurrencyChanges(func(c currency.Code) { seen = append(seen, c) })

	require.NoError(t, s.SetCurrency(ctx, currency.EUR))
	code, _ = s.Currency(ctx)
	assert.Equal(t, currency.EUR, code)
	assert.Equal(t, []currency.Code{currency.EUR}, seen)

	assert.ErrorIs(t, s.SetCurrency(ctx, "XYZ"), currency.ErrUnknownCurrency)
}

func TestNewFromFilesSeedsAndDedupe(t *testing.T) {
	dir := t.TempDir()
	s := NewFromFiles(dir)
	cats, _ := s.ListCategories(context.Background())
	assert.Len(t, cats, 6, "defaults when the seed file is missing")

	content := "# header\nVoyage|✈️|#0ea5e9\nVoyage\n\nTransport\nCadeaux\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "seed_categories.txt"), []byte(content), 0o644))

	s = NewFromFiles(dir)
	cats, _ = s.ListCategories(context.Background())
	require.Len(t, cats, 8)
	assert.Equal(t, "Voyage", cats[6].Name)
	assert.Equal(t, "✈️", cats[6].Icon)
	assert.Equal(t, "#0ea5e9", cats[6].Color)
	assert.False(t, cats[6].IsDefault)
	assert.Equal(t, "Cadeaux", cats[7].Name)
	assert.Equal(t, "📦", cats[7].Icon)
}
