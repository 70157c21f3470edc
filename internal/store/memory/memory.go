package memory

import (
	"bufio"
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"budgetwatch/internal/core"
	"budgetwatch/internal/currency"
	"budgetwatch/internal/store"
)

// Store keeps every record in process memory. It is used by tests, the demo
// backend and as the reference behaviour for the SQLite store.
type Store struct {
	store.Signals

	mu         sync.Mutex
	expenses   []core.Expense
	budgets    []core.Budget
	categories []core.Category
	currency   currency.Code
	now        func() time.Time
}

var _ store.Repository = (*Store)(nil)

// New returns a store seeded with the default categories plus extra.
func New(extra ...core.Category) *Store {
	s := &Store{currency: currency.Base, now: time.Now}
	s.categories = mergeCategories(core.DefaultCategories(), extra)
	return s
}

// NewFromFiles seeds custom categories from base/seed_categories.txt.
// Each line is "name[|icon[|color]]"; blank lines and # comments are ignored.
// A missing file leaves only the defaults.
func NewFromFiles(base string) *Store {
	var extra []core.Category
	for _, line := range readLines(filepath.Join(base, "seed_categories.txt")) {
		parts := strings.Split(line, "|")
		c := core.Category{Name: strings.TrimSpace(parts[0]), Icon: "📦", Color: "#6b7280"}
		if len(parts) > 1 && strings.TrimSpace(parts[1]) != "" {
			c.Icon = strings.TrimSpace(parts[1])
		}
		if len(parts) > 2 && strings.TrimSpace(parts[2]) != "" {
			c.Color = strings.TrimSpace(parts[2])
		}
		extra = append(extra, c)
	}
	return New(extra...)
}

// WithClock replaces the timestamp source. Intended for tests.
func (s *Store) WithClock(now func() time.Time) *Store {
	s.mu.Lock()
	s.now = now
	s.mu.Unlock()
	return s
}

func (s *Store) Close() error { return nil }

func (s *Store) ListExpenses(_ context.Context) ([]core.Expense, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]core.Expense(nil), s.expenses...), nil
}

func (s *Store) ListBudgets(_ context.Context) ([]core.Budget, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]core.Budget(nil), s.budgets...), nil
}

func (s *Store) ListCategories(_ context.Context) ([]core.Category, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]core.Category(nil), s.categories...), nil
}

// CreateExpense stores e under a fresh id and signals the change.
func (s *Store) CreateExpense(_ context.Context, e core.Expense) (core.Expense, error) {
	if err := e.Validate(); err != nil {
		return core.Expense{}, err
	}
	s.mu.Lock()
	now := s.now()
	e.ID = uuid.NewString()
	e.CreatedAt, e.UpdatedAt = now, now
	s.expenses = append(s.expenses, e)
	s.mu.Unlock()

	s.ExpenseChanged(store.OpCreate, e.ID)
	return e, nil
}

func (s *Store) UpdateExpense(_ context.Context, id string, patch core.ExpensePatch) (core.Expense, bool, error) {
	s.mu.Lock()
	idx := s.expenseIndex(id)
	if idx < 0 {
		s.mu.Unlock()
		return core.Expense{}, false, nil
	}
	updated := s.expenses[idx].Apply(patch)
	if err := updated.Validate(); err != nil {
		s.mu.Unlock()
		return core.Expense{}, false, err
	}
	updated.UpdatedAt = s.now()
	s.expenses[idx] = updated
	s.mu.Unlock()

	s.ExpenseChanged(store.OpUpdate, id)
	return updated, true, nil
}

// DeleteExpense removes the expense. Deletions are not signalled.
func (s *Store) DeleteExpense(_ context.Context, id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	idx := s.expenseIndex(id)
	if idx < 0 {
		return false, nil
	}
	s.expenses = append(s.expenses[:idx], s.expenses[idx+1:]...)
	return true, nil
}

// SaveBudget upserts on (category, period). An existing budget keeps its id
// and creation time; only the amount and update time change.
func (s *Store) SaveBudget(_ context.Context, b core.Budget) (core.Budget, error) {
	if err := b.Validate(); err != nil {
		return core.Budget{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	for i, existing := range s.budgets {
		if core.BudgetCategory(existing) == core.BudgetCategory(b) && existing.Period == b.Period {
			existing.Amount = b.Amount
			existing.UpdatedAt = now
			s.budgets[i] = existing
			return existing, nil
		}
	}
	b.ID = uuid.NewString()
	b.CreatedAt, b.UpdatedAt = now, now
	s.budgets = append(s.budgets, b)
	return b, nil
}

func (s *Store) DeleteBudget(_ context.Context, id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, b := range s.budgets {
		if b.ID == id {
			s.budgets = append(s.budgets[:i], s.budgets[i+1:]...)
			return true, nil
		}
	}
	return false, nil
}

func (s *Store) CreateCategory(_ context.Context, c core.Category) (core.Category, error) {
	if err := c.Validate(); err != nil {
		return core.Category{}, err
	}
	c.ID = uuid.NewString()
	c.IsDefault = false
	s.mu.Lock()
	s.categories = append(s.categories, c)
	s.mu.Unlock()
	return c, nil
}

// DeleteCategory refuses unknown ids and default categories.
func (s *Store) DeleteCategory(_ context.Context, id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, c := range s.categories {
		if c.ID != id {
			continue
		}
		if c.IsDefault {
			return false, nil
		}
		s.categories = append(s.categories[:i], s.categories[i+1:]...)
		return true, nil
	}
	return false, nil
}

func (s *Store) ResetCategories(_ context.Context) error {
	s.mu.Lock()
	s.categories = core.DefaultCategories()
	s.mu.Unlock()
	return nil
}

func (s *Store) Currency(_ context.Context) (currency.Code, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.currency, nil
}

func (s *Store) SetCurrency(_ context.Context, code currency.Code) error {
	code, err := currency.ParseCode(string(code))
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.currency = code
	s.mu.Unlock()

	s.CurrencyChanged(code)
	return nil
}

// expenseIndex must be called with s.mu held.
func (s *Store) expenseIndex(id string) int {
	for i, e := range s.expenses {
		if e.ID == id {
			return i
		}
	}
	return -1
}

// mergeCategories appends extra to base, skipping names already present.
func mergeCategories(base, extra []core.Category) []core.Category {
	names := make([]string, 0, len(base)+len(extra))
	byName := make(map[string]core.Category, len(base)+len(extra))
	for _, c := range base {
		names = append(names, c.Name)
		byName[c.Name] = c
	}
	for _, c := range extra {
		c.Name = strings.TrimSpace(c.Name)
		if c.Validate() != nil {
			continue
		}
		names = append(names, c.Name)
		if _, ok := byName[c.Name]; !ok {
			c.ID = uuid.NewString()
			c.IsDefault = false
			byName[c.Name] = c
		}
	}
	out := make([]core.Category, 0, len(byName))
	for _, name := range dedupe(names) {
		out = append(out, byName[name])
	}
	return out
}

func readLines(path string) []string {
	f, err := os.Open(path)
	if err != nil {
		return nil
	}
	defer f.Close()
	var out []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		out = append(out, line)
	}
	return out
}

// dedupe keeps the first occurrence of each value, preserving input order.
func dedupe(in []string) []string {
	seen := map[string]struct{}{}
	out := make([]string, 0, len(in))
	for _, v := range in {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}
