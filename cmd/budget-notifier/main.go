package main

import (
	"context"
	"os"
	"time"

	"golang.org/x/sync/errgroup"

	"budgetwatch/internal/amqp"
	"budgetwatch/internal/cli"
	"budgetwatch/internal/config"
	"budgetwatch/internal/log"
	"budgetwatch/internal/monitor"
	"budgetwatch/internal/notify"
	"budgetwatch/internal/store"
)

const shutdownTimeout = 15 * time.Second

func main() {
	cli.LoadEnvFile()
	bootstrap := cli.SetupLogger("info", os.Stdout)
	cfg := cli.LoadAndValidateConfig(bootstrap)
	logger := cli.SetupLogger(cfg.LogLevel, os.Stdout).WithComponent(log.ComponentNotifier)

	result := cli.InitBackend(context.Background(), logger, cfg)

	center := notify.NewCenter(
		notify.WithPresenters(cli.NewPresenter(cfg, logger, os.Stdout)),
		notify.WithDisplayDuration(cfg.NotifyDisplayDuration),
		notify.WithCenterLogger(logger.WithComponent(log.ComponentNotify)),
		notify.WithFocus(func() { logger.Info("Notification clicked, focusing budgetwatch") }),
	)
	center.Start()

	watched, feed, handlers := wireBroker(cfg, result.Repository, result.AMQP, logger)
	mon := monitor.New(watched, center, cli.MonitorConfig(cfg),
		monitor.WithLogger(logger.WithComponent(log.ComponentMonitor)),
		monitor.WithAlertHandlers(handlers...))

	stop := func(ctx context.Context) {
		if err := mon.Stop(ctx); err != nil {
			logger.Error("Failed to stop budget monitor", log.FieldError, err)
		}
		center.Close()
	}

	ctx, done := cli.GracefulShutdown(logger, shutdownTimeout, stop)
	g, gctx := errgroup.WithContext(ctx)

	if err := mon.Start(gctx); err != nil {
		logger.Error("Failed to start budget monitor", log.FieldError, err)
		os.Exit(1)
	}
	if feed != nil {
		g.Go(func() error { return feed.Run(gctx) })
	}

	logger.Info("Budget notifier running",
		log.FieldBackend, cfg.DataBackend,
		"amqp_enabled", feed != nil,
		"presenter", cfg.NotifyPresenter)

	if err := g.Wait(); err != nil {
		logger.Error("Change feed stopped", log.FieldError, err)
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		stop(shutdownCtx)
		cancel()
		closeBackend(logger, result.Cleanup)
		os.Exit(1)
	}

	cli.WaitForShutdown(ctx, done)
	closeBackend(logger, result.Cleanup)
}

// wireBroker merges broker change messages into the monitor's change signal
// and forwards fired alerts to the alert queue. Without a broker the monitor
// only sees changes made in this process.
func wireBroker(cfg *config.Config, repo store.Repository, client *amqp.Client, logger *log.Logger) (store.Store, *amqp.ChangeFeed, []monitor.AlertHandler) {
	if client == nil {
		if cfg.AMQPEnabled() {
			logger.Warn("Broker unreachable, watching local changes only")
		}
		return repo, nil, nil
	}

	feed := amqp.NewChangeFeed(client, logger.WithComponent(log.ComponentAMQP))
	watched := store.Join(repo, store.MergeNotifiers(repo, feed))
	handlers := []monitor.AlertHandler{amqp.NewAlertPublisher(client).Handle}
	return watched, feed, handlers
}

func closeBackend(logger *log.Logger, cleanup func() error) {
	if cleanup == nil {
		return
	}
	if err := cleanup(); err != nil {
		logger.Error("Failed to close backend", log.FieldError, err)
	}
}
