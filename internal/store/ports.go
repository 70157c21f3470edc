package store

import (
	"context"

	"budgetwatch/internal/core"
	"budgetwatch/internal/currency"
)

// Ports consumed by analytics, the budget monitor and the CLI.
type (
	ExpenseLister interface {
		ListExpenses(ctx context.Context) ([]core.Expense, error)
	}

	BudgetLister interface {
		ListBudgets(ctx context.Context) ([]core.Budget, error)
	}

	CategoryLister interface {
		ListCategories(ctx context.Context) ([]core.Category, error)
	}

	// ChangeNotifier delivers a signal after an expense is created or updated.
	// Deletions are not signalled.
	ChangeNotifier interface {
		SubscribeExpenseChanges(fn func(ExpenseChange)) (unsubscribe func())
	}

	Reader interface {
		ExpenseLister
		BudgetLister
		CategoryLister
	}

	// Store is what the budget monitor needs: snapshots plus change signals.
	Store interface {
		Reader
		ChangeNotifier
	}

	ExpenseWriter interface {
		CreateExpense(ctx context.Context, e core.Expense) (core.Expense, error)
		// UpdateExpense returns ok=false when id does not exist.
		UpdateExpense(ctx context.Context, id string, patch core.ExpensePatch) (updated core.Expense, ok bool, err error)
		DeleteExpense(ctx context.Context, id string) (bool, error)
	}

	BudgetWriter interface {
		// SaveBudget upserts on (category, period).
		SaveBudget(ctx context.Context, b core.Budget) (core.Budget, error)
		DeleteBudget(ctx context.Context, id string) (bool, error)
	}

	CategoryWriter interface {
		CreateCategory(ctx context.Context, c core.Category) (core.Category, error)
		// DeleteCategory returns false for unknown or default categories.
		DeleteCategory(ctx context.Context, id string) (bool, error)
		ResetCategories(ctx context.Context) error
	}

	// Preferences holds the display currency choice.
	Preferences interface {
		Currency(ctx context.Context) (currency.Code, error)
		SetCurrency(ctx context.Context, code currency.Code) error
		SubscribeCurrencyChanges(fn func(currency.Code)) (unsubscribe func())
	}

	Repository interface {
		Store
		ExpenseWriter
		BudgetWriter
		CategoryWriter
		Preferences
		Close() error
	}
)
