package notify

import (
	"fmt"
	"math"
	"time"

	"budgetwatch/internal/analytics"
	"budgetwatch/internal/core"
)

// BudgetAlert is built fresh for each notification decision and never stored.
type BudgetAlert struct {
	Key        string
	BudgetID   string
	Category   string
	Period     core.Period
	Percentage float64
	Spent      float64
	Budget     float64
	Remaining  float64
	OverBudget bool
	Severity   Severity
	At         time.Time
}

// NewBudgetAlert captures progress for b. Severity is critical once the
// percentage reaches criticalPercent.
func NewBudgetAlert(b core.Budget, p analytics.Progress, criticalPercent float64, at time.Time) BudgetAlert {
	severity := SeverityWarning
	if p.Percentage >= criticalPercent {
		severity = SeverityCritical
	}
	return BudgetAlert{
		Key:        b.Key(),
		BudgetID:   b.ID,
		Category:   core.BudgetCategory(b),
		Period:     b.Period,
		Percentage: p.Percentage,
		Spent:      p.Spent,
		Budget:     p.Budget,
		Remaining:  p.Remaining,
		OverBudget: severity == SeverityCritical,
		Severity:   severity,
		At:         at,
	}
}

// Tag groups notifications per category so a newer alert replaces the older one.
func Tag(category string) string {
	return "budget-" + category
}

// Render turns an alert into notification text. Amounts are shown in the
// base unit with two decimals.
func Render(a BudgetAlert) Notification {
	n := Notification{Tag: Tag(a.Category), Severity: a.Severity}
	if a.OverBudget {
		n.Title = fmt.Sprintf("🚨 Budget dépassé : %s", a.Category)
		n.Body = fmt.Sprintf("Vous avez dépassé votre budget de %.2f FG. Dépensé : %.2f / %.2f FG",
			math.Abs(a.Remaining), a.Spent, a.Budget)
		return n
	}
	n.Title = fmt.Sprintf("⚠️ Attention : Budget %s", a.Category)
	n.Body = fmt.Sprintf("Vous avez utilisé %.0f%% de votre budget. Il reste %.2f FG.", a.Percentage, a.Remaining)
	return n
}
