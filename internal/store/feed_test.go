package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFeedDeliversInSubscriptionOrder(t *testing.T) {
	var f Feed[int]
	var got []string
	f.Subscribe(func(v int) { got = append(got, "a") })
	f.Subscribe(func(v int) { got = append(got, "b") })

	f.Publish(1)

	assert.Equal(t, []string{"a", "b"}, got)
}

func TestFeedUnsubscribe(t *testing.T) {
	var f Feed[string]
	calls := 0
	unsubscribe := f.Subscribe(func(string) { calls++ })
	assert.Equal(t, 1, f.Len())

	unsubscribe()
	unsubscribe()
	f.Publish("x")

	assert.Zero(t, calls)
	assert.Zero(t, f.Len())
}

func TestFeedSubscriberMayUnsubscribeDuringPublish(t *testing.T) {
	var f Feed[int]
	var unsubscribe func()
	calls := 0
	unsubscribe = f.Subscribe(func(int) {
		calls++
		unsubscribe()
	})

	f.Publish(1)
	f.Publish(2)

	assert.Equal(t, 1, calls)
}

func TestSignals(t *testing.T) {
	var s Signals
	var got []ExpenseChange
	stop := s.SubscribeExpenseChanges(func(c ExpenseChange) { got = append(got, c) })

	s.ExpenseChanged(OpCreate, "e1")
	stop()
	s.ExpenseChanged(OpUpdate, "e1")

	if assert.Len(t, got, 1) {
		assert.Equal(t, OpCreate, got[0].Op)
		assert.Equal(t, "e1", got[0].ExpenseID)
		assert.False(t, got[0].At.IsZero())
	}
}

func TestMergeNotifiers(t *testing.T) {
	var a, b Signals
	calls := 0
	stop := MergeNotifiers(&a, &b).SubscribeExpenseChanges(func(ExpenseChange) { calls++ })

	a.ExpenseChanged(OpCreate, "1")
	b.ExpenseChanged(OpUpdate, "1")
	stop()
	a.ExpenseChanged(OpCreate, "2")

	assert.Equal(t, 2, calls)
}
