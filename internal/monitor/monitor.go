// Package monitor watches budgets and raises one notification per threshold
// excursion.
//
// Each budget is tracked under its (id, period) key. A reconciliation pass
// recomputes every budget's progress and walks the per-key state machine:
//
//   - below the warning threshold the key is re-armed and nothing fires;
//   - a key that already fired for the current excursion stays quiet;
//   - a key that fired less than the cooldown ago stays quiet;
//   - otherwise one alert fires (critical at or above the critical
//     threshold, warning below it) and the key is flagged.
//
// Passes are triggered on Start, on a fixed interval and whenever the store
// signals an expense change. They never overlap. State lives only as long
// as the monitor runs; a restart re-arms every key.
package monitor

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"budgetwatch/internal/analytics"
	"budgetwatch/internal/core"
	"budgetwatch/internal/log"
	"budgetwatch/internal/notify"
	"budgetwatch/internal/store"
)

const (
	TriggerStartup        Trigger = "startup"
	TriggerTimer          Trigger = "timer"
	TriggerExpenseChanged Trigger = "expense_changed"
	TriggerManual         Trigger = "manual"
)

var ErrAlreadyRunning = errors.New("budget monitor is already running")

// Trigger names the event source that started a reconciliation pass.
type Trigger string

// Config holds the monitor thresholds and timings.
type Config struct {
	// Interval between timer-driven passes (default: 5m)
	Interval time.Duration

	// Cooldown is the minimum gap between two alerts for one key (default: 60s)
	Cooldown time.Duration

	// WarnPercent and CriticalPercent are inclusive thresholds (default: 80, 100)
	WarnPercent     float64
	CriticalPercent float64
}

func DefaultConfig() Config {
	return Config{
		Interval:        5 * time.Minute,
		Cooldown:        60 * time.Second,
		WarnPercent:     80,
		CriticalPercent: 100,
	}
}

func (c Config) Validate() error {
	var errs []error
	if c.Interval <= 0 {
		errs = append(errs, fmt.Errorf("interval must be positive, got %s", c.Interval))
	}
	if c.Cooldown < 0 {
		errs = append(errs, fmt.Errorf("cooldown cannot be negative, got %s", c.Cooldown))
	}
	if c.WarnPercent <= 0 {
		errs = append(errs, fmt.Errorf("warn percent must be positive, got %g", c.WarnPercent))
	}
	if c.CriticalPercent < c.WarnPercent {
		errs = append(errs, fmt.Errorf("critical percent %g is below warn percent %g", c.CriticalPercent, c.WarnPercent))
	}
	return errors.Join(errs...)
}

// AlertHandler receives every fired alert, whether or not the sink may show it.
type AlertHandler func(ctx context.Context, alert notify.BudgetAlert) error

type keyState struct {
	lastNotifiedAt time.Time // zero until the first alert
	flagged        bool
}

type Monitor struct {
	store    store.Store
	sink     notify.Sink
	config   Config
	logger   *log.Logger
	now      func() time.Time
	handlers []AlertHandler

	// pass serialises reconciliation passes, delivery included.
	pass sync.Mutex

	// mu guards the fields below it and is never held while delivering.
	mu                  sync.Mutex
	state               map[string]*keyState
	permissionRequested bool
	permitted           bool

	// Lifecycle management
	lifecycle   sync.Mutex
	running     bool
	stopCh      chan struct{}
	doneCh      chan struct{}
	changes     chan struct{}
	unsubscribe func()
}

type Option func(*Monitor)

func WithClock(now func() time.Time) Option {
	return func(m *Monitor) { m.now = now }
}

func WithLogger(l *log.Logger) Option {
	return func(m *Monitor) { m.logger = l }
}

// WithAlertHandlers registers extra consumers of fired alerts, such as a
// message bus publisher.
func WithAlertHandlers(h ...AlertHandler) Option {
	return func(m *Monitor) { m.handlers = append(m.handlers, h...) }
}

func New(s store.Store, sink notify.Sink, config Config, opts ...Option) *Monitor {
	m := &Monitor{
		store:  s,
		sink:   sink,
		config: config,
		now:    time.Now,
		state:  make(map[string]*keyState),
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.logger == nil {
		m.logger = log.Wrap(nil, log.ComponentMonitor)
	}
	return m
}

// Start requests notification permission, subscribes to expense changes and
// begins the reconciliation loop with an immediate pass. Returns an error if
// already running.
func (m *Monitor) Start(ctx context.Context) error {
	m.lifecycle.Lock()
	defer m.lifecycle.Unlock()
	if m.running {
		return ErrAlreadyRunning
	}

	m.mu.Lock()
	m.state = make(map[string]*keyState)
	m.permissionRequested = false
	m.mu.Unlock()
	m.ensurePermission(ctx)

	m.running = true
	m.stopCh = make(chan struct{})
	m.doneCh = make(chan struct{})
	m.changes = make(chan struct{}, 1)
	changes := m.changes
	m.unsubscribe = m.store.SubscribeExpenseChanges(func(store.ExpenseChange) {
		select {
		case changes <- struct{}{}:
		default:
			// a pass is already pending
		}
	})

	go m.runLoop(ctx, m.stopCh, m.doneCh, changes)

	m.logger.InfoContext(ctx, "Budget monitor started",
		log.FieldOperation, log.OpStartup,
		"interval", m.config.Interval,
		"cooldown", m.config.Cooldown,
		"warn_percent", m.config.WarnPercent,
		"critical_percent", m.config.CriticalPercent)
	return nil
}

// Stop deregisters the change listener, stops the timer, waits for the
// current pass and discards all per-key state. If ctx ends first the monitor
// stays stopping and a later Stop waits for the pass again.
func (m *Monitor) Stop(ctx context.Context) error {
	m.lifecycle.Lock()
	defer m.lifecycle.Unlock()
	if !m.running {
		return nil
	}

	if m.stopCh != nil {
		m.unsubscribe()
		m.unsubscribe = nil
		close(m.stopCh)
		m.stopCh = nil
	}

	select {
	case <-m.doneCh:
		m.logger.InfoContext(ctx, "Budget monitor stopped gracefully", log.FieldOperation, log.OpShutdown)
	case <-ctx.Done():
		m.logger.WarnContext(ctx, "Budget monitor stop timed out, pass still in flight",
			log.FieldOperation, log.OpShutdown)
		return ctx.Err()
	}

	m.running = false
	m.mu.Lock()
	m.state = make(map[string]*keyState)
	m.mu.Unlock()
	return nil
}

func (m *Monitor) IsRunning() bool {
	m.lifecycle.Lock()
	defer m.lifecycle.Unlock()
	return m.running
}

func (m *Monitor) runLoop(ctx context.Context, stop <-chan struct{}, done chan<- struct{}, changes <-chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(m.config.Interval)
	defer ticker.Stop()

	m.runPass(ctx, TriggerStartup)

	for {
		select {
		case <-stop:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.runPass(ctx, TriggerTimer)
		case <-changes:
			m.runPass(ctx, TriggerExpenseChanged)
		}
	}
}

func (m *Monitor) runPass(ctx context.Context, trigger Trigger) {
	if _, err := m.Reconcile(ctx, trigger); err != nil {
		m.logger.ErrorContext(ctx, "Budget reconciliation failed",
			append(log.NewFields().WithOperation(log.OpReconcile).WithError(err).ToSlice(),
				log.FieldTrigger, string(trigger))...)
	}
}

// Reconcile runs one pass over a fresh snapshot of budgets and expenses and
// returns the alerts it fired. Only store failures are returned as errors;
// sink and handler failures are logged.
func (m *Monitor) Reconcile(ctx context.Context, trigger Trigger) ([]notify.BudgetAlert, error) {
	m.pass.Lock()
	defer m.pass.Unlock()

	started := time.Now()
	m.ensurePermission(ctx)
	logger := m.logger.With(log.FieldPassID, newPassID(), log.FieldTrigger, string(trigger))

	budgets, err := m.store.ListBudgets(ctx)
	if err != nil {
		return nil, fmt.Errorf("list budgets: %w", err)
	}
	expenses, err := m.store.ListExpenses(ctx)
	if err != nil {
		return nil, fmt.Errorf("list expenses: %w", err)
	}

	fired, permitted := m.advance(ctx, logger, budgets, expenses)

	logger.DebugContext(ctx, "Budget reconciliation complete",
		log.FieldOperation, log.OpReconcile,
		"budgets", len(budgets),
		"fired", len(fired),
		log.FieldDuration, time.Since(started).Milliseconds())

	for _, alert := range fired {
		m.deliver(ctx, logger, alert, permitted)
	}
	return fired, nil
}

// advance walks every budget through the state machine and prunes keys whose
// budget is gone. It reports whether fired alerts may be shown.
func (m *Monitor) advance(ctx context.Context, logger *log.Logger, budgets []core.Budget, expenses []core.Expense) ([]notify.BudgetAlert, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	seen := make(map[string]struct{}, len(budgets))
	var fired []notify.BudgetAlert

	for _, b := range budgets {
		key := b.Key()
		seen[key] = struct{}{}

		progress := analytics.BudgetProgress(expenses, b, now)
		if !progress.Evaluable() {
			logger.DebugContext(ctx, "Budget skipped, amount not positive",
				log.NewFields().WithBudget(key, b.Category, progress.Percentage).ToSlice()...)
			continue
		}

		if alert, ok := m.step(b, progress, now); ok {
			fired = append(fired, alert)
		}
	}

	for key := range m.state {
		if _, ok := seen[key]; !ok {
			delete(m.state, key)
		}
	}

	return fired, m.permitted
}

// step advances the state of one key. It must be called with m.mu held.
func (m *Monitor) step(b core.Budget, p analytics.Progress, now time.Time) (notify.BudgetAlert, bool) {
	key := b.Key()
	st, ok := m.state[key]
	if !ok {
		st = &keyState{}
		m.state[key] = st
	}

	switch {
	case p.Percentage < m.config.WarnPercent:
		st.flagged = false
		return notify.BudgetAlert{}, false
	case st.flagged:
		return notify.BudgetAlert{}, false
	case !st.lastNotifiedAt.IsZero() && now.Sub(st.lastNotifiedAt) < m.config.Cooldown:
		return notify.BudgetAlert{}, false
	}

	st.flagged = true
	st.lastNotifiedAt = now
	return notify.NewBudgetAlert(b, p, m.config.CriticalPercent, now), true
}

// deliver shows alert and hands it to every handler. Handlers may block on
// the network, so it runs without m.mu.
func (m *Monitor) deliver(ctx context.Context, logger *log.Logger, alert notify.BudgetAlert, permitted bool) {
	fields := func() log.LogFields {
		return log.NewFields().WithBudget(alert.Key, alert.Category, alert.Percentage)
	}
	logger.InfoContext(ctx, "Budget alert fired",
		append(fields().ToSlice(), log.FieldSeverity, string(alert.Severity))...)

	if permitted {
		if err := m.sink.Show(ctx, notify.Render(alert)); err != nil {
			logger.WarnContext(ctx, "Failed to show budget notification",
				fields().WithOperation(log.OpNotify).WithError(err).ToSlice()...)
		}
	}

	for _, h := range m.handlers {
		if err := h(ctx, alert); err != nil {
			logger.WarnContext(ctx, "Budget alert handler failed",
				fields().WithOperation(log.OpPublish).WithError(err).ToSlice()...)
		}
	}
}

// ensurePermission asks the sink once per monitor run. A failed or refused
// request leaves the monitor running with notifications disabled.
func (m *Monitor) ensurePermission(ctx context.Context) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.permissionRequested {
		return
	}
	m.permissionRequested = true

	granted, err := m.sink.RequestPermission(ctx)
	if err != nil {
		m.logger.WarnContext(ctx, "Notification permission request failed", log.FieldError, err)
		granted = false
	}
	m.permitted = granted
	if !granted {
		m.logger.InfoContext(ctx, "Notifications disabled, alerts will only be tracked")
	}
}

// newPassID returns a short id correlating the log lines of one pass.
func newPassID() string {
	return uuid.NewString()[:8]
}

// Flagged reports whether key currently has an outstanding alert.
func (m *Monitor) Flagged(key string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	st, ok := m.state[key]
	return ok && st.flagged
}
