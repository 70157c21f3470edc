package core

import (
	"errors"
	"strings"
	"time"
)

const (
	Monthly Period = "monthly"
	Yearly  Period = "yearly"
)

const (
	Daily       Frequency = "daily"
	Weekly      Frequency = "weekly"
	MonthlyFreq Frequency = "monthly"
	YearlyFreq  Frequency = "yearly"
)

const dateLayout = "2006-01-02"

type (
	// Period is the window over which a budget's spending is evaluated.
	Period string

	// Frequency describes how often a recurring expense repeats.
	// It is descriptive metadata only.
	Frequency string

	// Date is a calendar day. Only year, month and day are meaningful.
	Date struct {
		time.Time
	}

	Expense struct {
		ID                 string
		Amount             float64 // base currency unit
		Category           string  // Category.Name, not ID
		Date               Date
		Note               string
		IsRecurring        bool
		RecurringFrequency Frequency
		CreatedAt          time.Time
		UpdatedAt          time.Time
	}

	// ExpensePatch carries the fields of an update; nil fields are left unchanged.
	ExpensePatch struct {
		Amount             *float64
		Category           *string
		Date               *Date
		Note               *string
		IsRecurring        *bool
		RecurringFrequency *Frequency
	}

	Budget struct {
		ID        string
		Category  string
		Amount    float64 // base currency unit
		Period    Period
		CreatedAt time.Time
		UpdatedAt time.Time
	}

	Category struct {
		ID        string
		Name      string
		Icon      string
		Color     string
		IsDefault bool
	}
)

var (
	ErrInvalidDate      = errors.New("invalid date")
	ErrInvalidAmount    = errors.New("invalid amount")
	ErrEmptyCategory    = errors.New("empty category")
	ErrEmptyName        = errors.New("empty category name")
	ErrInvalidPeriod    = errors.New("invalid budget period")
	ErrInvalidFrequency = errors.New("invalid recurring frequency")
)

// NewDate creates a new Date from year, month, day
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// DateOf truncates t to its calendar day, keeping t's own calendar.
func DateOf(t time.Time) Date {
	return NewDate(t.Year(), int(t.Month()), t.Day())
}

// ParseDate parses an ISO calendar date (2006-01-02). Full RFC 3339 timestamps
// are accepted too and truncated to their day.
func ParseDate(s string) (Date, error) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse(dateLayout, s); err == nil {
		return DateOf(t), nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return Date{}, ErrInvalidDate
	}
	return DateOf(t), nil
}

func (d Date) String() string {
	return d.Format(dateLayout)
}

func (d Date) Validate() error {
	if d.IsZero() {
		return ErrInvalidDate
	}
	return nil
}

// Within reports whether d falls in [start, end], both bounds inclusive and
// compared at day granularity.
func (d Date) Within(start, end Date) bool {
	return !d.Before(start.Time) && !d.After(end.Time)
}

func (p Period) IsValid() bool {
	return p == Monthly || p == Yearly
}

func (f Frequency) IsValid() bool {
	switch f {
	case Daily, Weekly, MonthlyFreq, YearlyFreq:
		return true
	default:
		return false
	}
}

func (e Expense) Validate() error {
	if err := e.Date.Validate(); err != nil {
		return err
	}
	if e.Amount < 0 {
		return ErrInvalidAmount
	}
	if strings.TrimSpace(e.Category) == "" {
		return ErrEmptyCategory
	}
	if e.IsRecurring && e.RecurringFrequency != "" && !e.RecurringFrequency.IsValid() {
		return ErrInvalidFrequency
	}
	return nil
}

// Apply returns a copy of e with the patch fields merged in.
func (e Expense) Apply(p ExpensePatch) Expense {
	if p.Amount != nil {
		e.Amount = *p.Amount
	}
	if p.Category != nil {
		e.Category = *p.Category
	}
	if p.Date != nil {
		e.Date = *p.Date
	}
	if p.Note != nil {
		e.Note = *p.Note
	}
	if p.IsRecurring != nil {
		e.IsRecurring = *p.IsRecurring
	}
	if p.RecurringFrequency != nil {
		e.RecurringFrequency = *p.RecurringFrequency
	}
	return e
}

func (b Budget) Validate() error {
	if b.Amount <= 0 {
		return ErrInvalidAmount
	}
	if strings.TrimSpace(b.Category) == "" {
		return ErrEmptyCategory
	}
	if !b.Period.IsValid() {
		return ErrInvalidPeriod
	}
	return nil
}

// Key identifies the budget for notification bookkeeping.
func (b Budget) Key() string {
	return b.ID + "-" + string(b.Period)
}

func (c Category) Validate() error {
	if strings.TrimSpace(c.Name) == "" {
		return ErrEmptyName
	}
	return nil
}
