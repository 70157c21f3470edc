package log

// Common field names for structured logging
const (
	FieldComponent  = "component"
	FieldError      = "error"
	FieldOperation  = "operation"
	FieldDuration   = "duration_ms"
	FieldTrigger    = "trigger"
	FieldPassID     = "pass_id"
	FieldExpenseID  = "expense_id"
	FieldCategory   = "category"
	FieldAmount     = "amount"
	FieldBudgetID   = "budget_id"
	FieldBudgetKey  = "budget_key"
	FieldPeriod     = "period"
	FieldPercentage = "percentage"
	FieldSeverity   = "severity"
	FieldTag        = "tag"
	FieldCurrency   = "currency"
	FieldBackend    = "backend"
	FieldQueue      = "queue"
	FieldRoutingKey = "routing_key"
)

// Components defines standard component names
const (
	ComponentApp      = "app"
	ComponentCLI      = "cli"
	ComponentExpense  = "expense"
	ComponentStorage  = "storage"
	ComponentAMQP     = "amqp"
	ComponentMonitor  = "monitor"
	ComponentNotify   = "notify"
	ComponentCache    = "cache"
	ComponentBackend  = "backend"
	ComponentNotifier = "notifier"
)

// Operations defines standard operation names
const (
	OpCreate    = "create"
	OpUpdate    = "update"
	OpDelete    = "delete"
	OpReconcile = "reconcile"
	OpNotify    = "notify"
	OpPublish   = "publish"
	OpConsume   = "consume"
	OpShutdown  = "shutdown"
	OpStartup   = "startup"
)

// LogFields provides a builder pattern for structured log fields
type LogFields map[string]any

func NewFields() LogFields {
	return make(LogFields)
}

func (f LogFields) WithOperation(op string) LogFields {
	f[FieldOperation] = op
	return f
}

func (f LogFields) WithError(err error) LogFields {
	if err != nil {
		f[FieldError] = err.Error()
	}
	return f
}

// WithBudget adds the fields that identify a budget evaluation.
func (f LogFields) WithBudget(key, category string, percentage float64) LogFields {
	f[FieldBudgetKey] = key
	f[FieldCategory] = category
	f[FieldPercentage] = percentage
	return f
}

func (f LogFields) WithExpense(id, category string, amount float64) LogFields {
	f[FieldExpenseID] = id
	f[FieldCategory] = category
	f[FieldAmount] = amount
	return f
}

// ToSlice converts LogFields to a slice for slog
func (f LogFields) ToSlice() []any {
	slice := make([]any, 0, len(f)*2)
	for k, v := range f {
		slice = append(slice, k, v)
	}
	return slice
}
