package notify

import (
	"context"
	"errors"
	"sync"
	"time"

	"budgetwatch/internal/cache"
	"budgetwatch/internal/log"
)

const (
	DefaultDisplayDuration = 5 * time.Second
	defaultMaxActive       = 64
)

// PromptFunc asks the host for notification permission.
type PromptFunc func(ctx context.Context) (Permission, error)

// AlwaysGrant is the prompt used by hosts that can always notify, such as a
// terminal or a log.
func AlwaysGrant(context.Context) (Permission, error) { return PermissionGranted, nil }

// Unsupported is the prompt for hosts with no notification surface.
func Unsupported(context.Context) (Permission, error) { return PermissionUnsupported, ErrUnsupported }

// Center is an in-process notification center. It implements Sink.
type Center struct {
	mu         sync.Mutex
	permission Permission
	prompt     PromptFunc
	presenters []Presenter
	focus      func()
	logger     *log.Logger

	display time.Duration
	now     func() time.Time
	active  *cache.LRUCache[Notification]
	sweeper *cache.Manager
}

var _ Sink = (*Center)(nil)

type CenterOption func(*Center)

func WithPresenters(p ...Presenter) CenterOption {
	return func(c *Center) { c.presenters = append(c.presenters, p...) }
}

func WithPrompt(prompt PromptFunc) CenterOption {
	return func(c *Center) { c.prompt = prompt }
}

// WithFocus sets the callback run when a notification is clicked.
func WithFocus(focus func()) CenterOption {
	return func(c *Center) { c.focus = focus }
}

func WithDisplayDuration(d time.Duration) CenterOption {
	return func(c *Center) { c.display = d }
}

func WithCenterClock(now func() time.Time) CenterOption {
	return func(c *Center) { c.now = now }
}

func WithCenterLogger(l *log.Logger) CenterOption {
	return func(c *Center) { c.logger = l }
}

func NewCenter(opts ...CenterOption) *Center {
	c := &Center{
		permission: PermissionDefault,
		prompt:     AlwaysGrant,
		display:    DefaultDisplayDuration,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.logger == nil {
		c.logger = log.Wrap(nil, log.ComponentNotify)
	}
	c.active = cache.NewLRUCache[Notification](defaultMaxActive, c.display,
		cache.WithClock[Notification](c.now),
		cache.WithEvictionCallback(c.onEvict))
	c.sweeper = cache.NewManager(c.logger.WithComponent(log.ComponentCache).Slog())
	c.sweeper.Register(c.active)
	return c
}

// Start runs the auto-dismiss sweep until Close.
func (c *Center) Start() {
	interval := c.display / 10
	if interval < 50*time.Millisecond {
		interval = 50 * time.Millisecond
	}
	c.sweeper.StartCleanup(interval)
}

// Close stops the sweep and dismisses everything still on screen.
func (c *Center) Close() {
	c.sweeper.Stop()
	for _, tag := range c.active.Keys() {
		c.dismiss(tag, DismissClosed)
	}
}

// RequestPermission prompts the host the first time and then returns the
// remembered answer. Denied and unsupported are final.
func (c *Center) RequestPermission(ctx context.Context) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.permission != PermissionDefault {
		return c.permission.Granted(), nil
	}

	p, err := c.prompt(ctx)
	if errors.Is(err, ErrUnsupported) {
		c.logger.WarnContext(ctx, "Notifications are not supported on this host")
		c.permission = PermissionUnsupported
		return false, nil
	}
	if err != nil {
		return false, err
	}
	c.permission = p
	return p.Granted(), nil
}

// Permission reports the current permission state without prompting.
func (c *Center) Permission() Permission {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.permission
}

// Show presents n unless permission is missing, in which case it is dropped.
// A live notification with the same tag is replaced.
func (c *Center) Show(ctx context.Context, n Notification) error {
	if !c.Permission().Granted() {
		c.logger.DebugContext(ctx, "Notification dropped, permission not granted", log.FieldTag, n.Tag)
		return nil
	}

	c.active.Set(n.Tag, n)

	var errs []error
	for _, p := range c.presenters {
		if err := p.Present(ctx, n); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Click simulates the user activating the notification tagged tag: the host
// is focused and the notification dismissed. It reports whether tag was live.
func (c *Center) Click(tag string) bool {
	if _, ok := c.active.Get(tag); !ok {
		return false
	}
	if c.focus != nil {
		c.focus()
	}
	return c.dismiss(tag, DismissClicked)
}

// Active lists the notifications currently on screen, newest first.
func (c *Center) Active() []Notification {
	var out []Notification
	for _, tag := range c.active.Keys() {
		if n, ok := c.active.Get(tag); ok {
			out = append(out, n)
		}
	}
	return out
}

// Sweep dismisses expired notifications immediately.
func (c *Center) Sweep() int {
	return c.sweeper.Sweep()
}

func (c *Center) dismiss(tag string, reason DismissReason) bool {
	n, ok := c.active.Get(tag)
	if !ok {
		return false
	}
	c.active.Delete(tag)
	c.retract(n, reason)
	return true
}

func (c *Center) onEvict(_ string, n Notification, reason cache.EvictReason) {
	switch reason {
	case cache.Expired:
		c.retract(n, DismissTimeout)
	case cache.Replaced:
		c.retract(n, DismissReplaced)
	case cache.Evicted:
		c.retract(n, DismissClosed)
	}
}

func (c *Center) retract(n Notification, reason DismissReason) {
	ctx := context.Background()
	for _, p := range c.presenters {
		if d, ok := p.(Dismisser); ok {
			d.Dismiss(ctx, n, reason)
		}
	}
}
