package core

// CategoryRef resolves the category an expense or budget points at.
// References are by name today; renaming a category orphans historical records.
func CategoryRef(name string) string {
	return name
}

// ExpenseCategory returns the join key of an expense.
func ExpenseCategory(e Expense) string {
	return CategoryRef(e.Category)
}

// BudgetCategory returns the join key of a budget.
func BudgetCategory(b Budget) string {
	return CategoryRef(b.Category)
}

var defaultCategories = []Category{
	{ID: "1", Name: "Alimentation", Icon: "🍔", Color: "#10b981", IsDefault: true},
	{ID: "2", Name: "Transport", Icon: "🚗", Color: "#3b82f6", IsDefault: true},
	{ID: "3", Name: "Loisirs", Icon: "🎮", Color: "#8b5cf6", IsDefault: true},
	{ID: "4", Name: "Santé", Icon: "🏥", Color: "#ef4444", IsDefault: true},
	{ID: "5", Name: "Logement", Icon: "🏠", Color: "#f59e0b", IsDefault: true},
	{ID: "6", Name: "Autres", Icon: "📦", Color: "#6b7280", IsDefault: true},
}

// DefaultCategories returns a fresh copy of the seed category set.
func DefaultCategories() []Category {
	return append([]Category(nil), defaultCategories...)
}
