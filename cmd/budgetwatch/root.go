package main

import (
	"github.com/spf13/cobra"
)

func newRootCmd(open openFunc) *cobra.Command {
	flags := &rootFlags{}
	var opened *app

	cmd := &cobra.Command{
		Use:   "budgetwatch",
		Short: "Track expenses and budgets, and get warned before you overspend",
		Long: `budgetwatch records expenses in Guinean francs, tracks monthly and yearly
budgets per category and reports spending in FG, EUR or USD.

Run budget-notifier next to it to be alerted when a budget crosses its
warning or critical threshold.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			a, err := open(cmd.Context(), flags, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			opened = a
			cmd.SetContext(withApp(cmd.Context(), a))
			return nil
		},
		PersistentPostRunE: func(*cobra.Command, []string) error {
			if opened == nil || opened.close == nil {
				return nil
			}
			return opened.close()
		},
	}

	cmd.PersistentFlags().StringVar(&flags.backend, "backend", "", "data backend (memory, sqlite); overrides DATA_BACKEND")
	cmd.PersistentFlags().StringVar(&flags.dbPath, "db", "", "SQLite database path; overrides SQLITE_DB_PATH")
	cmd.PersistentFlags().StringVar(&flags.currency, "currency", "", "display currency for this command (FG, EUR, USD)")
	cmd.PersistentFlags().StringVar(&flags.logLevel, "log-level", "", "log level (debug, info, warn, error)")

	cmd.AddCommand(expensesCmd())
	cmd.AddCommand(budgetsCmd())
	cmd.AddCommand(categoriesCmd())
	cmd.AddCommand(analyticsCmd())
	cmd.AddCommand(currencyCmd())
	cmd.AddCommand(checkCmd())

	return cmd
}
