package store

import (
	"sort"
	"sync"
	"time"

	"budgetwatch/internal/currency"
)

const (
	OpCreate ChangeOp = "create"
	OpUpdate ChangeOp = "update"
)

type (
	ChangeOp string

	// ExpenseChange describes a create or update of one expense.
	ExpenseChange struct {
		Op        ChangeOp
		ExpenseID string
		At        time.Time
	}
)

// Feed is an explicit observer registry. Publish calls every subscriber
// synchronously, in subscription order, outside the registry lock.
type Feed[T any] struct {
	mu   sync.Mutex
	next int
	subs map[int]func(T)
}

// Subscribe registers fn and returns the function that removes it.
// Calling the returned function more than once is harmless.
func (f *Feed[T]) Subscribe(fn func(T)) (unsubscribe func()) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.subs == nil {
		f.subs = make(map[int]func(T))
	}
	id := f.next
	f.next++
	f.subs[id] = fn

	var once sync.Once
	return func() {
		once.Do(func() {
			f.mu.Lock()
			delete(f.subs, id)
			f.mu.Unlock()
		})
	}
}

func (f *Feed[T]) Publish(v T) {
	for _, fn := range f.snapshot() {
		fn(v)
	}
}

// Len returns the number of live subscriptions.
func (f *Feed[T]) Len() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.subs)
}

func (f *Feed[T]) snapshot() []func(T) {
	f.mu.Lock()
	defer f.mu.Unlock()
	ids := make([]int, 0, len(f.subs))
	for id := range f.subs {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	fns := make([]func(T), len(ids))
	for i, id := range ids {
		fns[i] = f.subs[id]
	}
	return fns
}

// Signals bundles the change feeds a store exposes. Embed it to satisfy
// ChangeNotifier and the subscription half of Preferences.
type Signals struct {
	expenses Feed[ExpenseChange]
	currency Feed[currency.Code]
}

func (s *Signals) SubscribeExpenseChanges(fn func(ExpenseChange)) func() {
	return s.expenses.Subscribe(fn)
}

func (s *Signals) SubscribeCurrencyChanges(fn func(currency.Code)) func() {
	return s.currency.Subscribe(fn)
}

func (s *Signals) ExpenseChanged(op ChangeOp, id string) {
	s.expenses.Publish(ExpenseChange{Op: op, ExpenseID: id, At: time.Now()})
}

func (s *Signals) CurrencyChanged(code currency.Code) {
	s.currency.Publish(code)
}

type joined struct {
	Reader
	ChangeNotifier
}

// Join pairs snapshot reads with a change source living elsewhere, such as a
// message broker feed.
func Join(r Reader, n ChangeNotifier) Store {
	return joined{Reader: r, ChangeNotifier: n}
}

type merged []ChangeNotifier

// MergeNotifiers fans a subscription out to every notifier. The returned
// unsubscribe function detaches from all of them.
func MergeNotifiers(ns ...ChangeNotifier) ChangeNotifier {
	return merged(ns)
}

func (m merged) SubscribeExpenseChanges(fn func(ExpenseChange)) func() {
	stops := make([]func(), 0, len(m))
	for _, n := range m {
		stops = append(stops, n.SubscribeExpenseChanges(fn))
	}
	return func() {
		for _, stop := range stops {
			stop()
		}
	}
}
