package services

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"budgetwatch/internal/core"
	"budgetwatch/internal/currency"
	"budgetwatch/internal/log"
	"budgetwatch/internal/store"
	"budgetwatch/internal/store/memory"
)

type publishCall struct {
	id string
	op string
}

type fakePublisher struct {
	calls    []publishCall
	err      error
	closeErr error
	closed   bool
}

func (p *fakePublisher) PublishExpenseChanged(_ context.Context, id, op string) error {
	p.calls = append(p.calls, publishCall{id, op})
	return p.err
}

func (p *fakePublisher) Close() error {
	p.closed = true
	return p.closeErr
}

func newService(t *testing.T, pub ChangePublisher) (*ExpenseService, *memory.Store) {
	t.Helper()
	repo := memory.New()
	return NewExpenseService(repo, pub, log.Discard()), repo
}

func TestCreateExpensePublishesAfterSave(t *testing.T) {
	pub := &fakePublisher{}
	svc, repo := newService(t, pub)
	ctx := context.Background()

	var signalled []store.ExpenseChange
	repo.SubscribeExpenseChanges(func(c store.ExpenseChange) { signalled = append(signalled, c) })

	created, err := svc.CreateExpense(ctx, core.Expense{
		Amount: 5000, Category: "Transport", Date: core.NewDate(2025, 3, 1),
	})
	require.NoError(t, err)
	require.NotEmpty(t, created.ID)

	assert.Equal(t, []publishCall{{created.ID, "create"}}, pub.calls)
	assert.Len(t, signalled, 1)
}

func TestCreateExpenseKeepsLocalWriteWhenPublishFails(t *testing.T) {
	pub := &fakePublisher{err: errors.New("connection refused")}
	svc, repo := newService(t, pub)

	created, err := svc.CreateExpense(context.Background(), core.Expense{
		Amount: 100, Category: "Autres", Date: core.NewDate(2025, 3, 1),
	})
	require.NoError(t, err)

	expenses, err := repo.ListExpenses(context.Background())
	require.NoError(t, err)
	require.Len(t, expenses, 1)
	assert.Equal(t, created.ID, expenses[0].ID)
}

func TestCreateExpenseWithoutPublisher(t *testing.T) {
	svc, _ := newService(t, nil)

	_, err := svc.CreateExpense(context.Background(), core.Expense{
		Amount: 100, Category: "Autres", Date: core.NewDate(2025, 3, 1),
	})
	assert.NoError(t, err)
}

func TestCreateExpenseRejectsInvalid(t *testing.T) {
	pub := &fakePublisher{}
	svc, _ := newService(t, pub)

	_, err := svc.CreateExpense(context.Background(), core.Expense{
		Amount: -1, Category: "Autres", Date: core.NewDate(2025, 3, 1),
	})
	assert.ErrorIs(t, err, core.ErrInvalidAmount)
	assert.Empty(t, pub.calls)
}

func TestCreateFromInput(t *testing.T) {
	svc, _ := newService(t, &fakePublisher{})
	ctx := context.Background()

	t.Run("converts display currency to base", func(t *testing.T) {
		e, err := svc.CreateFromInput(ctx, ExpenseInput{
			Amount:   "12,50",
			Currency: currency.EUR,
			Category: "transport",
			Date:     "2025-03-10",
			Note:     "  taxi ",
		})
		require.NoError(t, err)
		assert.InDelta(t, 112500, e.Amount, 1e-6)
		assert.Equal(t, "Transport", e.Category)
		assert.Equal(t, "taxi", e.Note)
		assert.Equal(t, "2025-03-10", e.Date.String())
	})

	t.Run("base currency uses dot thousands", func(t *testing.T) {
		e, err := svc.CreateFromInput(ctx, ExpenseInput{
			Amount: "1.500", Category: "Santé", Date: "2025-03-10",
		})
		require.NoError(t, err)
		assert.InDelta(t, 1500, e.Amount, 1e-9)
	})

	t.Run("frequency ignored when not recurring", func(t *testing.T) {
		e, err := svc.CreateFromInput(ctx, ExpenseInput{
			Amount: "10", Category: "Autres", Date: "2025-03-10",
			RecurringFrequency: core.Weekly,
		})
		require.NoError(t, err)
		assert.Empty(t, e.RecurringFrequency)
	})

	tests := []struct {
		name    string
		in      ExpenseInput
		wantErr error
	}{
		{"missing amount", ExpenseInput{Category: "Autres", Date: "2025-03-10"}, core.ErrInvalidAmount},
		{"bad date", ExpenseInput{Amount: "1", Category: "Autres", Date: "10/03/2025"}, core.ErrInvalidDate},
		{"empty category", ExpenseInput{Amount: "1", Date: "2025-03-10"}, core.ErrEmptyCategory},
		{"unknown category", ExpenseInput{Amount: "1", Category: "Casino", Date: "2025-03-10"}, ErrUnknownCategory},
		{"bad frequency", ExpenseInput{Amount: "1", Category: "Autres", Date: "2025-03-10", IsRecurring: true, RecurringFrequency: "hourly"}, core.ErrInvalidFrequency},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.CreateFromInput(ctx, tt.in)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestUpdateExpense(t *testing.T) {
	pub := &fakePublisher{}
	svc, _ := newService(t, pub)
	ctx := context.Background()

	created, err := svc.CreateExpense(ctx, core.Expense{
		Amount: 100, Category: "Autres", Date: core.NewDate(2025, 3, 1),
	})
	require.NoError(t, err)

	category := "loisirs"
	updated, ok, err := svc.UpdateExpense(ctx, created.ID, core.ExpensePatch{Category: &category})
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "Loisirs", updated.Category)
	assert.Equal(t, []publishCall{{created.ID, "create"}, {created.ID, "update"}}, pub.calls)

	_, ok, err = svc.UpdateExpense(ctx, "missing", core.ExpensePatch{})
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Len(t, pub.calls, 2)
}

func TestDeleteExpenseIsNotAnnounced(t *testing.T) {
	pub := &fakePublisher{}
	svc, _ := newService(t, pub)
	ctx := context.Background()

	created, err := svc.CreateExpense(ctx, core.Expense{
		Amount: 100, Category: "Autres", Date: core.NewDate(2025, 3, 1),
	})
	require.NoError(t, err)

	deleted, err := svc.DeleteExpense(ctx, created.ID)
	require.NoError(t, err)
	assert.True(t, deleted)

	deleted, err = svc.DeleteExpense(ctx, created.ID)
	require.NoError(t, err)
	assert.False(t, deleted)
	assert.Len(t, pub.calls, 1)
}

func TestSetBudget(t *testing.T) {
	svc, repo := newService(t, nil)
	ctx := context.Background()

	first, err := svc.SetBudget(ctx, BudgetInput{Category: "Logement", Amount: "100", Currency: currency.USD})
	require.NoError(t, err)
	assert.Equal(t, core.Monthly, first.Period)
	assert.InDelta(t, 850000, first.Amount, 1e-6)

	second, err := svc.SetBudget(ctx, BudgetInput{Category: "Logement", Amount: "200.000"})
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)

	budgets, err := repo.ListBudgets(ctx)
	require.NoError(t, err)
	require.Len(t, budgets, 1)
	assert.InDelta(t, 200000, budgets[0].Amount, 1e-9)

	_, err = svc.SetBudget(ctx, BudgetInput{Category: "Logement", Amount: "0"})
	assert.ErrorIs(t, err, core.ErrInvalidAmount)

	_, err = svc.SetBudget(ctx, BudgetInput{Category: "Logement", Amount: "10", Period: "weekly"})
	assert.ErrorIs(t, err, core.ErrInvalidPeriod)
}

func TestExpenseService_Close(t *testing.T) {
	t.Run("nil components", func(t *testing.T) {
		service := &ExpenseService{}
		assert.NoError(t, service.Close())
	})

	t.Run("closes publisher and joins errors", func(t *testing.T) {
		pub := &fakePublisher{closeErr: errors.New("channel closed")}
		svc, _ := newService(t, pub)

		err := svc.Close()
		require.Error(t, err)
		assert.True(t, pub.closed)
		assert.Contains(t, err.Error(), "publisher: channel closed")
	})
}
