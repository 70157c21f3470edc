package notify

import (
	"bytes"
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"budgetwatch/internal/analytics"
	"budgetwatch/internal/core"
	"budgetwatch/internal/log"
)

type recorder struct {
	mu        sync.Mutex
	shown     []Notification
	dismissed []DismissReason
	err       error
}

func (r *recorder) Present(_ context.Context, n Notification) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.shown = append(r.shown, n)
	return r.err
}

func (r *recorder) Dismiss(_ context.Context, _ Notification, reason DismissReason) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.dismissed = append(r.dismissed, reason)
}

type clock struct{ now time.Time }

func (c *clock) Now() time.Time          { return c.now }
func (c *clock) Advance(d time.Duration) { c.now = c.now.Add(d) }

func newTestCenter(opts ...CenterOption) (*Center, *recorder, *clock) {
	rec := &recorder{}
	clk := &clock{now: time.Date(2025, 3, 15, 12, 0, 0, 0, time.UTC)}
	base := []CenterOption{
		WithPresenters(rec),
		WithCenterClock(clk.Now),
		WithCenterLogger(log.Discard()),
	}
	return NewCenter(append(base, opts...)...), rec, clk
}

func TestRenderWarning(t *testing.T) {
	b := core.Budget{ID: "b1", Category: "Transport", Amount: 1000, Period: core.Monthly}
	a := NewBudgetAlert(b, analytics.Progress{Spent: 850, Budget: 1000, Percentage: 85, Remaining: 150}, 100, time.Time{})

	n := Render(a)

	assert.Equal(t, SeverityWarning, a.Severity)
	assert.Equal(t, "b1-monthly", a.Key)
	assert.Equal(t, "⚠️ Attention : Budget Transport", n.Title)
	assert.Equal(t, "Vous avez utilisé 85% de votre budget. Il reste 150.00 FG.", n.Body)
	assert.Equal(t, "budget-Transport", n.Tag)
}

func TestRenderOverBudget(t *testing.T) {
	b := core.Budget{ID: "b2", Category: "Loisirs", Amount: 1000, Period: core.Yearly}
	a := NewBudgetAlert(b, analytics.Progress{Spent: 1200, Budget: 1000, Percentage: 120, Remaining: -200}, 100, time.Time{})

	n := Render(a)

	assert.True(t, a.OverBudget)
	assert.Equal(t, SeverityCritical, n.Severity)
	assert.Equal(t, "🚨 Budget dépassé : Loisirs", n.Title)
	assert.Equal(t, "Vous avez dépassé votre budget de 200.00 FG. Dépensé : 1200.00 / 1000.00 FG", n.Body)
}

func TestRenderExactlyAtCriticalIsOverBudget(t *testing.T) {
	b := core.Budget{ID: "b3", Category: "Santé", Amount: 500, Period: core.Monthly}
	a := NewBudgetAlert(b, analytics.Progress{Spent: 500, Budget: 500, Percentage: 100, Remaining: 0}, 100, time.Time{})
	assert.Equal(t, SeverityCritical, a.Severity)
	assert.Contains(t, Render(a).Body, "de 0.00 FG")
}

func TestPermissionIsRequestedOnce(t *testing.T) {
	prompts := 0
	c, _, _ := newTestCenter(WithPrompt(func(context.Context) (Permission, error) {
		prompts++
		return PermissionGranted, nil
	}))
	assert.Equal(t, PermissionDefault, c.Permission())

	for i := 0; i < 3; i++ {
		ok, err := c.RequestPermission(context.Background())
		require.NoError(t, err)
		assert.True(t, ok)
	}
	assert.Equal(t, 1, prompts)
	assert.Equal(t, PermissionGranted, c.Permission())
}

func TestDeniedAndUnsupportedDropNotifications(t *testing.T) {
	ctx := context.Background()
	for name, prompt := range map[string]PromptFunc{
		"denied":      func(context.Context) (Permission, error) { return PermissionDenied, nil },
		"unsupported": Unsupported,
	} {
		t.Run(name, func(t *testing.T) {
			c, rec, _ := newTestCenter(WithPrompt(prompt))
			ok, err := c.RequestPermission(ctx)
			require.NoError(t, err)
			assert.False(t, ok)

			require.NoError(t, c.Show(ctx, Notification{Title: "t", Tag: "x"}))
			assert.Empty(t, rec.shown)
			assert.Empty(t, c.Active())
		})
	}
}

func TestPromptFailureIsReported(t *testing.T) {
	boom := errors.New("dbus unavailable")
	c, _, _ := newTestCenter(WithPrompt(func(context.Context) (Permission, error) { return "", boom }))
	ok, err := c.RequestPermission(context.Background())
	assert.False(t, ok)
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, PermissionDefault, c.Permission())
}

func TestSameTagReplaces(t *testing.T) {
	ctx := context.Background()
	c, rec, _ := newTestCenter()
	_, _ = c.RequestPermission(ctx)

	require.NoError(t, c.Show(ctx, Notification{Title: "first", Tag: "budget-Transport"}))
	require.NoError(t, c.Show(ctx, Notification{Title: "second", Tag: "budget-Transport"}))
	require.NoError(t, c.Show(ctx, Notification{Title: "other", Tag: "budget-Loisirs"}))

	active := c.Active()
	require.Len(t, active, 2)
	titles := []string{active[0].Title, active[1].Title}
	assert.ElementsMatch(t, []string{"second", "other"}, titles)
	assert.Len(t, rec.shown, 3)
	assert.Equal(t, []DismissReason{DismissReplaced}, rec.dismissed)
}

func TestAutoDismissAfterDisplayDuration(t *testing.T) {
	ctx := context.Background()
	c, rec, clk := newTestCenter()
	_, _ = c.RequestPermission(ctx)

	require.NoError(t, c.Show(ctx, Notification{Title: "t", Tag: "budget-Santé"}))
	clk.Advance(4 * time.Second)
	assert.Zero(t, c.Sweep())
	assert.Len(t, c.Active(), 1)

	clk.Advance(2 * time.Second)
	assert.Equal(t, 1, c.Sweep())
	assert.Empty(t, c.Active())
	assert.Equal(t, []DismissReason{DismissTimeout}, rec.dismissed)
}

func TestClickFocusesAndDismisses(t *testing.T) {
	ctx := context.Background()
	focused := 0
	c, rec, _ := newTestCenter(WithFocus(func() { focused++ }))
	_, _ = c.RequestPermission(ctx)

	require.NoError(t, c.Show(ctx, Notification{Title: "t", Tag: "budget-Logement"}))
	assert.True(t, c.Click("budget-Logement"))
	assert.False(t, c.Click("budget-Logement"))

	assert.Equal(t, 1, focused)
	assert.Empty(t, c.Active())
	assert.Equal(t, []DismissReason{DismissClicked}, rec.dismissed)
}

func TestPresenterErrorsAreJoined(t *testing.T) {
	ctx := context.Background()
	bad := &recorder{err: errors.New("write failed")}
	c, good, _ := newTestCenter(WithPresenters(bad))
	_, _ = c.RequestPermission(ctx)

	err := c.Show(ctx, Notification{Title: "t", Tag: "x"})
	assert.ErrorContains(t, err, "write failed")
	assert.Len(t, good.shown, 1)
	assert.Len(t, bad.shown, 1)
}

func TestCloseDismissesEverything(t *testing.T) {
	ctx := context.Background()
	c, rec, _ := newTestCenter()
	_, _ = c.RequestPermission(ctx)
	c.Start()

	require.NoError(t, c.Show(ctx, Notification{Title: "a", Tag: "a"}))
	require.NoError(t, c.Show(ctx, Notification{Title: "b", Tag: "b"}))
	c.Close()

	assert.Empty(t, c.Active())
	assert.Equal(t, []DismissReason{DismissClosed, DismissClosed}, rec.dismissed)
}

func TestTerminalPresenter(t *testing.T) {
	var buf bytes.Buffer
	p := NewTerminalPresenter(&buf)

	require.NoError(t, p.Present(context.Background(), Notification{
		Title:    "🚨 Budget dépassé : Transport",
		Body:     "Dépensé : 1200.00 / 1000.00 FG",
		Severity: SeverityCritical,
	}))

	out := buf.String()
	assert.Contains(t, out, "Budget dépassé : Transport")
	assert.Contains(t, out, "1200.00 / 1000.00 FG")
}

func TestLogPresenter(t *testing.T) {
	var buf bytes.Buffer
	p := NewLogPresenter(log.New(log.Config{Output: &buf, Component: log.ComponentNotify}))

	require.NoError(t, p.Present(context.Background(), Notification{Title: "hello", Tag: "budget-Autres", Severity: SeverityWarning}))

	assert.Contains(t, buf.String(), "tag=budget-Autres")
	assert.Contains(t, buf.String(), "severity=warning")
}
