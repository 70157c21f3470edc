package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"budgetwatch/internal/core"
	"budgetwatch/internal/currency"
	"budgetwatch/internal/log"
	"budgetwatch/internal/store"
)

var ErrUnknownCategory = errors.New("unknown category")

// ChangePublisher forwards expense changes to other processes.
type ChangePublisher interface {
	PublishExpenseChanged(ctx context.Context, expenseID, op string) error
	Close() error
}

// ExpenseInput is an expense as typed by a user: the amount is free text in
// the display currency.
type ExpenseInput struct {
	Amount             string
	Currency           currency.Code
	Category           string
	Date               string
	Note               string
	IsRecurring        bool
	RecurringFrequency core.Frequency
}

// BudgetInput is a budget as typed by a user.
type BudgetInput struct {
	Category string
	Amount   string
	Currency currency.Code
	Period   core.Period
}

// ExpenseService orchestrates writes across the repository and the change
// publisher. The repository write always comes first; a publish failure is
// logged and never undoes it.
type ExpenseService struct {
	repo      store.Repository
	publisher ChangePublisher
	converter *currency.Converter
	logger    *log.Logger
}

func NewExpenseService(repo store.Repository, publisher ChangePublisher, logger *log.Logger) *ExpenseService {
	if logger == nil {
		logger = log.Wrap(nil, log.ComponentExpense)
	}
	return &ExpenseService{
		repo:      repo,
		publisher: publisher,
		converter: currency.Default,
		logger:    logger,
	}
}

// CreateExpense saves an expense locally and publishes a change message.
func (s *ExpenseService) CreateExpense(ctx context.Context, e core.Expense) (core.Expense, error) {
	created, err := s.repo.CreateExpense(ctx, e)
	if err != nil {
		return core.Expense{}, fmt.Errorf("save expense: %w", err)
	}

	s.publish(ctx, created.ID, log.OpCreate)
	return created, nil
}

// CreateFromInput parses and converts user input into base currency before
// saving it. The category must exist.
func (s *ExpenseService) CreateFromInput(ctx context.Context, in ExpenseInput) (core.Expense, error) {
	e, err := s.expenseFromInput(ctx, in)
	if err != nil {
		return core.Expense{}, err
	}
	return s.CreateExpense(ctx, e)
}

func (s *ExpenseService) expenseFromInput(ctx context.Context, in ExpenseInput) (core.Expense, error) {
	date, err := core.ParseDate(in.Date)
	if err != nil {
		return core.Expense{}, fmt.Errorf("date %q: %w", in.Date, err)
	}
	if strings.TrimSpace(in.Amount) == "" {
		return core.Expense{}, fmt.Errorf("amount is required: %w", core.ErrInvalidAmount)
	}
	category, err := s.resolveCategory(ctx, in.Category)
	if err != nil {
		return core.Expense{}, err
	}

	e := core.Expense{
		Amount:      s.toBase(in.Amount, in.Currency),
		Category:    category,
		Date:        date,
		Note:        strings.TrimSpace(in.Note),
		IsRecurring: in.IsRecurring,
	}
	if in.IsRecurring {
		e.RecurringFrequency = in.RecurringFrequency
	}
	return e, e.Validate()
}

// UpdateExpense applies patch and publishes a change message. ok is false
// when id does not exist.
func (s *ExpenseService) UpdateExpense(ctx context.Context, id string, patch core.ExpensePatch) (core.Expense, bool, error) {
	if patch.Category != nil {
		category, err := s.resolveCategory(ctx, *patch.Category)
		if err != nil {
			return core.Expense{}, false, err
		}
		patch.Category = &category
	}

	updated, ok, err := s.repo.UpdateExpense(ctx, id, patch)
	if err != nil {
		return core.Expense{}, false, fmt.Errorf("update expense: %w", err)
	}
	if !ok {
		return core.Expense{}, false, nil
	}

	s.publish(ctx, id, log.OpUpdate)
	return updated, true, nil
}

// DeleteExpense removes an expense. Deletions are not announced.
func (s *ExpenseService) DeleteExpense(ctx context.Context, id string) (bool, error) {
	deleted, err := s.repo.DeleteExpense(ctx, id)
	if err != nil {
		return false, fmt.Errorf("delete expense: %w", err)
	}
	return deleted, nil
}

// SetBudget creates or replaces the budget for (category, period).
func (s *ExpenseService) SetBudget(ctx context.Context, in BudgetInput) (core.Budget, error) {
	category, err := s.resolveCategory(ctx, in.Category)
	if err != nil {
		return core.Budget{}, err
	}
	period := in.Period
	if period == "" {
		period = core.Monthly
	}

	b := core.Budget{
		Category: category,
		Amount:   s.toBase(in.Amount, in.Currency),
		Period:   period,
	}
	if err := b.Validate(); err != nil {
		return core.Budget{}, err
	}

	saved, err := s.repo.SaveBudget(ctx, b)
	if err != nil {
		return core.Budget{}, fmt.Errorf("save budget: %w", err)
	}
	s.logger.InfoContext(ctx, "Budget saved",
		log.FieldBudgetID, saved.ID,
		log.FieldCategory, saved.Category,
		log.FieldPeriod, string(saved.Period),
		log.FieldAmount, saved.Amount)
	return saved, nil
}

func (s *ExpenseService) toBase(text string, code currency.Code) float64 {
	if code == "" {
		code = currency.Base
	}
	return s.converter.ParseInput(strings.TrimSpace(text), code)
}

// resolveCategory matches name case-insensitively against known categories
// and returns the stored spelling.
func (s *ExpenseService) resolveCategory(ctx context.Context, name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", core.ErrEmptyCategory
	}
	categories, err := s.repo.ListCategories(ctx)
	if err != nil {
		return "", fmt.Errorf("list categories: %w", err)
	}
	for _, c := range categories {
		if strings.EqualFold(c.Name, name) {
			return c.Name, nil
		}
	}
	return "", fmt.Errorf("%w: %s", ErrUnknownCategory, name)
}

func (s *ExpenseService) publish(ctx context.Context, id, op string) {
	if s.publisher == nil {
		s.logger.DebugContext(ctx, "No change publisher configured, skipping change message",
			log.FieldExpenseID, id)
		return
	}
	if err := s.publisher.PublishExpenseChanged(ctx, id, op); err != nil {
		// The expense is saved locally; a lost message only delays remote monitors.
		s.logger.ErrorContext(ctx, "Failed to publish expense change",
			log.FieldExpenseID, id,
			log.FieldOperation, op,
			log.FieldError, err)
	}
}

// Close closes both the repository and the publisher.
func (s *ExpenseService) Close() error {
	var errs []error

	if s.repo != nil {
		if err := s.repo.Close(); err != nil {
			errs = append(errs, fmt.Errorf("repository: %w", err))
		}
	}

	if s.publisher != nil {
		if err := s.publisher.Close(); err != nil {
			errs = append(errs, fmt.Errorf("publisher: %w", err))
		}
	}

	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("close expense service: %w", err)
	}
	return nil
}
