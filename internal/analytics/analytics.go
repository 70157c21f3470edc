// Package analytics aggregates expense records: per-category totals, monthly
// totals, budget progress and multi-month trends.
//
// Every function is pure and works on an in-memory slice. Date windows are
// inclusive on both ends and compared at day granularity.
package analytics

import (
	"math"
	"time"

	"budgetwatch/internal/core"
)

// DefaultTrendMonths is the trend length used when callers do not pick one.
const DefaultTrendMonths = 6

type (
	// Progress is the state of one budget within its current period.
	Progress struct {
		Spent      float64
		Budget     float64
		Percentage float64 // +Inf or NaN when Budget is 0
		Remaining  float64 // negative when over budget
	}

	TrendPoint struct {
		Month time.Time // first day of the month
		Label string
		Total float64
	}
)

// IsOverBudget reports whether spending exceeded the budget amount.
func (p Progress) IsOverBudget() bool {
	return p.Remaining < 0
}

// Evaluable reports whether the percentage can be compared against thresholds.
// Zero-amount budgets produce a non-finite percentage and are never evaluable.
func (p Progress) Evaluable() bool {
	return p.Budget > 0 && !math.IsNaN(p.Percentage) && !math.IsInf(p.Percentage, 0)
}

// MonthWindow returns the first and last day of the calendar month containing ref.
func MonthWindow(ref time.Time) (core.Date, core.Date) {
	start := core.NewDate(ref.Year(), int(ref.Month()), 1)
	end := core.Date{Time: start.AddDate(0, 1, -1)}
	return start, end
}

// YearWindow returns January 1st and December 31st of ref's year.
func YearWindow(ref time.Time) (core.Date, core.Date) {
	return core.NewDate(ref.Year(), 1, 1), core.NewDate(ref.Year(), 12, 31)
}

// PeriodWindow returns the budget window for period around ref.
func PeriodWindow(period core.Period, ref time.Time) (core.Date, core.Date) {
	if period == core.Yearly {
		return YearWindow(ref)
	}
	return MonthWindow(ref)
}

// TotalByCategory sums amounts per category for expenses dated in [start, end].
// Categories without expenses in the window are absent from the result.
func TotalByCategory(expenses []core.Expense, start, end core.Date) map[string]float64 {
	totals := make(map[string]float64)
	for _, e := range expenses {
		if e.Date.Within(start, end) {
			totals[core.ExpenseCategory(e)] += e.Amount
		}
	}
	return totals
}

// Total sums amounts for expenses dated in [start, end].
func Total(expenses []core.Expense, start, end core.Date) float64 {
	return sumWhere(expenses, start, end, func(core.Expense) bool { return true })
}

// MonthlyTotal sums the calendar month containing ref.
func MonthlyTotal(expenses []core.Expense, ref time.Time) float64 {
	start, end := MonthWindow(ref)
	return Total(expenses, start, end)
}

// BudgetProgress computes spending against b over the month (monthly budgets)
// or year (yearly budgets) containing ref.
func BudgetProgress(expenses []core.Expense, b core.Budget, ref time.Time) Progress {
	start, end := PeriodWindow(b.Period, ref)
	category := core.BudgetCategory(b)
	spent := sumWhere(expenses, start, end, func(e core.Expense) bool {
		return core.ExpenseCategory(e) == category
	})
	return Progress{
		Spent:      spent,
		Budget:     b.Amount,
		Percentage: spent / b.Amount * 100,
		Remaining:  b.Amount - spent,
	}
}

// MonthlyTrend returns monthsCount monthly totals, oldest first, ending with
// the current month.
func MonthlyTrend(expenses []core.Expense, monthsCount int) []TrendPoint {
	return MonthlyTrendAt(expenses, monthsCount, time.Now())
}

// MonthlyTrendAt is MonthlyTrend with an explicit current time.
func MonthlyTrendAt(expenses []core.Expense, monthsCount int, now time.Time) []TrendPoint {
	return trend(expenses, monthsCount, now, func(core.Expense) bool { return true })
}

// CategoryTrend is MonthlyTrend restricted to one category.
func CategoryTrend(expenses []core.Expense, category string, monthsCount int) []TrendPoint {
	return CategoryTrendAt(expenses, category, monthsCount, time.Now())
}

// CategoryTrendAt is CategoryTrend with an explicit current time.
func CategoryTrendAt(expenses []core.Expense, category string, monthsCount int, now time.Time) []TrendPoint {
	category = core.CategoryRef(category)
	return trend(expenses, monthsCount, now, func(e core.Expense) bool {
		return core.ExpenseCategory(e) == category
	})
}

func trend(expenses []core.Expense, monthsCount int, now time.Time, keep func(core.Expense) bool) []TrendPoint {
	if monthsCount <= 0 {
		return []TrendPoint{}
	}
	current, _ := MonthWindow(now)
	points := make([]TrendPoint, monthsCount)
	for i := 0; i < monthsCount; i++ {
		offset := monthsCount - 1 - i
		month := current.AddDate(0, -offset, 0)
		start, end := MonthWindow(month)
		points[i] = TrendPoint{
			Month: start.Time,
			Label: MonthLabel(start.Time),
			Total: sumWhere(expenses, start, end, keep),
		}
	}
	return points
}

func sumWhere(expenses []core.Expense, start, end core.Date, keep func(core.Expense) bool) float64 {
	var total float64
	for _, e := range expenses {
		if e.Date.Within(start, end) && keep(e) {
			total += e.Amount
		}
	}
	return total
}
