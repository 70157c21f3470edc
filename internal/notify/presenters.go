package notify

import (
	"context"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/charmbracelet/lipgloss"

	"budgetwatch/internal/log"
	"budgetwatch/internal/ui"
)

// LogPresenter writes notifications to the structured log.
type LogPresenter struct {
	logger *log.Logger
}

func NewLogPresenter(logger *log.Logger) *LogPresenter {
	if logger == nil {
		logger = log.Wrap(nil, log.ComponentNotify)
	}
	return &LogPresenter{logger: logger}
}

func (p *LogPresenter) Present(ctx context.Context, n Notification) error {
	p.logger.InfoContext(ctx, n.Title,
		"body", n.Body,
		log.FieldTag, n.Tag,
		log.FieldSeverity, string(n.Severity))
	return nil
}

func (p *LogPresenter) Dismiss(ctx context.Context, n Notification, reason DismissReason) {
	p.logger.DebugContext(ctx, "Notification dismissed", log.FieldTag, n.Tag, "reason", string(reason))
}

// TerminalPresenter prints a bordered banner per notification.
type TerminalPresenter struct {
	mu    sync.Mutex
	out   io.Writer
	theme ui.Theme
}

func NewTerminalPresenter(out io.Writer) *TerminalPresenter {
	if out == nil {
		out = os.Stdout
	}
	return &TerminalPresenter{out: out, theme: ui.Default}
}

func (p *TerminalPresenter) Present(_ context.Context, n Notification) error {
	accent := p.theme.Warning
	if n.Severity == SeverityCritical {
		accent = p.theme.Error
	}
	title := p.theme.Title.Foreground(accent).Render(n.Title)
	box := p.theme.BannerWith(accent).Render(lipgloss.JoinVertical(lipgloss.Left, title, n.Body))

	p.mu.Lock()
	defer p.mu.Unlock()
	if _, err := fmt.Fprintln(p.out, box); err != nil {
		return fmt.Errorf("write terminal notification: %w", err)
	}
	return nil
}
