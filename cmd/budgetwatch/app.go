package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"budgetwatch/internal/amqp"
	"budgetwatch/internal/cli"
	"budgetwatch/internal/config"
	"budgetwatch/internal/currency"
	"budgetwatch/internal/log"
	"budgetwatch/internal/services"
	"budgetwatch/internal/store"
	"budgetwatch/internal/ui"
)

// rootFlags override the environment for a single invocation.
type rootFlags struct {
	backend  string
	dbPath   string
	currency string
	logLevel string
}

// app is everything a subcommand needs, opened once per invocation.
type app struct {
	cfg     *config.Config
	repo    store.Repository
	service *services.ExpenseService
	broker  *amqp.Client // nil without AMQP_URL
	logger  *log.Logger
	theme   ui.Theme
	now     func() time.Time
	close   func() error

	// display overrides the stored currency preference when set
	display currency.Code
}

type openFunc func(ctx context.Context, flags *rootFlags, stderr io.Writer) (*app, error)

type appKey struct{}

func openApp(ctx context.Context, flags *rootFlags, stderr io.Writer) (*app, error) {
	cli.LoadEnvFile()
	if flags.backend != "" {
		os.Setenv("DATA_BACKEND", flags.backend)
	}
	if flags.dbPath != "" {
		os.Setenv("SQLITE_DB_PATH", flags.dbPath)
	}
	if flags.logLevel != "" {
		os.Setenv("LOG_LEVEL", flags.logLevel)
	}

	cfg, err := cli.LoadConfig()
	if err != nil {
		return nil, err
	}
	logger := cli.SetupLogger(cfg.LogLevel, stderr).WithComponent(log.ComponentCLI)

	result, err := cli.OpenBackend(ctx, logger, cfg)
	if err != nil {
		return nil, err
	}

	a := &app{
		cfg:     cfg,
		repo:    result.Repository,
		service: result.Service,
		broker:  result.AMQP,
		logger:  logger,
		theme:   ui.Default,
		now:     time.Now,
		close:   result.Cleanup,
	}
	if flags.currency != "" {
		code, err := currency.ParseCode(flags.currency)
		if err != nil {
			result.Cleanup()
			return nil, err
		}
		a.display = code
	}
	return a, nil
}

func appFrom(cmd *cobra.Command) (*app, error) {
	a, ok := cmd.Context().Value(appKey{}).(*app)
	if !ok || a == nil {
		return nil, errors.New("application not initialized")
	}
	return a, nil
}

// displayCurrency is the --currency flag or the stored preference.
func (a *app) displayCurrency(ctx context.Context) currency.Code {
	if a.display != "" {
		return a.display
	}
	code, err := a.repo.Currency(ctx)
	if err != nil {
		a.logger.WarnContext(ctx, "Failed to read currency preference", log.FieldError, err)
		return currency.Base
	}
	return code
}

func (a *app) money(amount float64, code currency.Code) string {
	return currency.Format(amount, code)
}

func (a *app) success(w io.Writer, format string, args ...any) {
	fmt.Fprintln(w, a.theme.Good.Render("✓ "+fmt.Sprintf(format, args...)))
}

func withApp(ctx context.Context, a *app) context.Context {
	return context.WithValue(ctx, appKey{}, a)
}
