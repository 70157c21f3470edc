// Package notify delivers budget alerts to the user.
//
// A Sink is the narrow contract the budget monitor depends on: ask for
// permission once, then show title/body/tag notifications. Center is the
// in-process implementation. It keeps at most one live notification per
// tag, dismisses them after a fixed display duration, and fans each
// notification out to one or more Presenters (log, terminal, message bus).
package notify

import (
	"context"
	"errors"
)

const (
	SeverityWarning  Severity = "warning"
	SeverityCritical Severity = "critical"
)

const (
	PermissionDefault Permission = "default"
	PermissionGranted Permission = "granted"
	PermissionDenied  Permission = "denied"
	// PermissionUnsupported means the host has no way to show notifications.
	PermissionUnsupported Permission = "unsupported"
)

// ErrUnsupported is returned by permission prompts on hosts without a
// notification surface.
var ErrUnsupported = errors.New("notifications not supported")

type (
	Severity string

	Permission string

	Notification struct {
		Title    string
		Body     string
		Tag      string
		Severity Severity
	}

	// Sink is the notification primitive used by the budget monitor.
	Sink interface {
		// RequestPermission is idempotent. A false result without error means
		// notifications will be dropped.
		RequestPermission(ctx context.Context) (bool, error)
		Show(ctx context.Context, n Notification) error
	}

	// Presenter renders a notification on some surface.
	Presenter interface {
		Present(ctx context.Context, n Notification) error
	}

	// Dismisser is implemented by presenters that need to retract a
	// notification when it expires, is replaced or is clicked.
	Dismisser interface {
		Dismiss(ctx context.Context, n Notification, reason DismissReason)
	}

	DismissReason string
)

const (
	DismissTimeout  DismissReason = "timeout"
	DismissReplaced DismissReason = "replaced"
	DismissClicked  DismissReason = "clicked"
	DismissClosed   DismissReason = "closed"
)

func (p Permission) Granted() bool {
	return p == PermissionGranted
}
