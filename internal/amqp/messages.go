package amqp

import (
	"encoding/json"
	"time"

	"budgetwatch/internal/notify"
)

// ExpenseChangedMessage is a lightweight signal: consumers re-read the store
// rather than trusting a payload.
type ExpenseChangedMessage struct {
	ExpenseID string    `json:"expense_id"`
	Op        string    `json:"op"`
	Timestamp time.Time `json:"timestamp"`
}

func NewExpenseChangedMessage(expenseID, op string) *ExpenseChangedMessage {
	return &ExpenseChangedMessage{
		ExpenseID: expenseID,
		Op:        op,
		Timestamp: time.Now(),
	}
}

func (m *ExpenseChangedMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func ExpenseChangedMessageFromJSON(data []byte) (*ExpenseChangedMessage, error) {
	var msg ExpenseChangedMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}

// BudgetAlertMessage carries a fired alert plus its rendered text.
type BudgetAlertMessage struct {
	Key        string    `json:"key"`
	BudgetID   string    `json:"budget_id"`
	Category   string    `json:"category"`
	Period     string    `json:"period"`
	Severity   string    `json:"severity"`
	Percentage float64   `json:"percentage"`
	Spent      float64   `json:"spent"`
	Budget     float64   `json:"budget"`
	Remaining  float64   `json:"remaining"`
	OverBudget bool      `json:"over_budget"`
	Title      string    `json:"title"`
	Body       string    `json:"body"`
	Tag        string    `json:"tag"`
	Timestamp  time.Time `json:"timestamp"`
}

func NewBudgetAlertMessage(a notify.BudgetAlert) *BudgetAlertMessage {
	n := notify.Render(a)
	return &BudgetAlertMessage{
		Key:        a.Key,
		BudgetID:   a.BudgetID,
		Category:   a.Category,
		Period:     string(a.Period),
		Severity:   string(a.Severity),
		Percentage: a.Percentage,
		Spent:      a.Spent,
		Budget:     a.Budget,
		Remaining:  a.Remaining,
		OverBudget: a.OverBudget,
		Title:      n.Title,
		Body:       n.Body,
		Tag:        n.Tag,
		Timestamp:  a.At,
	}
}

func (m *BudgetAlertMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func BudgetAlertMessageFromJSON(data []byte) (*BudgetAlertMessage, error) {
	var msg BudgetAlertMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
