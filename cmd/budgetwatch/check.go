package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"budgetwatch/internal/amqp"
	"budgetwatch/internal/log"
	"budgetwatch/internal/monitor"
	"budgetwatch/internal/notify"
)

func checkCmd() *cobra.Command {
	var publish bool

	cmd := &cobra.Command{
		Use:   "check",
		Short: "Evaluate every budget once and print the alerts it raises",
		Long: `Run a single budget reconciliation pass. Every budget at or above the warning
threshold raises one alert; budget-notifier does the same continuously and
remembers what it already reported.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			a, err := appFrom(cmd)
			if err != nil {
				return err
			}

			center := notify.NewCenter(
				notify.WithPresenters(notify.NewTerminalPresenter(cmd.OutOrStdout())),
				notify.WithDisplayDuration(a.cfg.NotifyDisplayDuration),
				notify.WithCenterLogger(a.logger.WithComponent(log.ComponentNotify)),
			)
			defer center.Close()

			opts := []monitor.Option{
				monitor.WithLogger(a.logger.WithComponent(log.ComponentMonitor)),
				monitor.WithClock(a.now),
			}
			if publish {
				if a.broker == nil {
					return fmt.Errorf("--publish needs a reachable broker: set AMQP_URL")
				}
				opts = append(opts, monitor.WithAlertHandlers(amqp.NewAlertPublisher(a.broker).Handle))
			}

			mon := monitor.New(a.repo, center, monitorConfig(a), opts...)
			alerts, err := mon.Reconcile(ctx, monitor.TriggerManual)
			if err != nil {
				return err
			}

			if len(alerts) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), a.theme.Good.Render("All budgets are below the warning threshold."))
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&publish, "publish", false, "also publish raised alerts to the AMQP alert queue")

	return cmd
}

func monitorConfig(a *app) monitor.Config {
	cfg := monitor.DefaultConfig()
	if a.cfg == nil {
		return cfg
	}
	if a.cfg.NotifyWarnPercent > 0 {
		cfg.WarnPercent = a.cfg.NotifyWarnPercent
	}
	if a.cfg.NotifyCriticalPercent > 0 {
		cfg.CriticalPercent = a.cfg.NotifyCriticalPercent
	}
	return cfg
}
