package main

import (
	"fmt"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"budgetwatch/internal/analytics"
	"budgetwatch/internal/core"
	"budgetwatch/internal/services"
)

func budgetsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "budgets",
		Aliases: []string{"budget"},
		Short:   "Manage spending limits per category",
	}

	cmd.AddCommand(setBudgetCmd())
	cmd.AddCommand(listBudgetsCmd())
	cmd.AddCommand(deleteBudgetCmd())

	return cmd
}

func setBudgetCmd() *cobra.Command {
	var period string

	cmd := &cobra.Command{
		Use:   "set <category> <amount>",
		Short: "Create or replace the budget of a category",
		Long: `Set the spending limit of a category for a period. Setting a budget that
already exists for the same category and period replaces its amount.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := appFrom(cmd)
			if err != nil {
				return err
			}

			code := a.displayCurrency(ctx)
			b, err := a.service.SetBudget(ctx, services.BudgetInput{
				Category: args[0],
				Amount:   args[1],
				Currency: code,
				Period:   core.Period(strings.ToLower(period)),
			})
			if err != nil {
				return fmt.Errorf("set budget: %w", err)
			}

			a.success(cmd.OutOrStdout(), "Budget %s for %s set to %s (id %s)",
				b.Period, b.Category, a.money(b.Amount, code), b.ID)
			return nil
		},
	}

	cmd.Flags().StringVarP(&period, "period", "p", string(core.Monthly), "budget period: monthly or yearly")

	return cmd
}

func listBudgetsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "Show budgets with their current progress",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			a, err := appFrom(cmd)
			if err != nil {
				return err
			}

			budgets, err := a.repo.ListBudgets(ctx)
			if err != nil {
				return fmt.Errorf("list budgets: %w", err)
			}
			out := cmd.OutOrStdout()
			if len(budgets) == 0 {
				fmt.Fprintln(out, a.theme.Faint.Render("No budgets yet. Use 'budgetwatch budgets set <category> <amount>' to add one."))
				return nil
			}
			expenses, err := a.repo.ListExpenses(ctx)
			if err != nil {
				return fmt.Errorf("list expenses: %w", err)
			}

			sort.SliceStable(budgets, func(i, j int) bool {
				if budgets[i].Category != budgets[j].Category {
					return budgets[i].Category < budgets[j].Category
				}
				return budgets[i].Period < budgets[j].Period
			})

			renderBudgetTable(a, cmd, budgets, expenses)
			return nil
		},
	}
}

func renderBudgetTable(a *app, cmd *cobra.Command, budgets []core.Budget, expenses []core.Expense) {
	ctx := cmd.Context()
	code := a.displayCurrency(ctx)
	now := a.now()

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	defer w.Flush()
	fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
		a.theme.Header.Render("CATEGORY"),
		a.theme.Header.Render("PERIOD"),
		a.theme.Header.Render("SPENT"),
		a.theme.Header.Render("BUDGET"),
		a.theme.Header.Render("USAGE"),
		a.theme.Header.Render("ID"))

	for _, b := range budgets {
		p := analytics.BudgetProgress(expenses, b, now)
		usage := a.theme.Faint.Render("n/a")
		if p.Evaluable() {
			style := a.theme.ForPercentage(p.Percentage, a.cfg.NotifyWarnPercent, a.cfg.NotifyCriticalPercent)
			usage = style.Render(fmt.Sprintf("%s %5.1f%%", a.theme.ProgressBar(p.Percentage, 10), p.Percentage))
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
			b.Category, b.Period, a.money(p.Spent, code), a.money(p.Budget, code), usage, a.theme.Faint.Render(b.ID))
	}
}

func deleteBudgetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a budget",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := appFrom(cmd)
			if err != nil {
				return err
			}

			deleted, err := a.repo.DeleteBudget(cmd.Context(), args[0])
			if err != nil {
				return fmt.Errorf("delete budget: %w", err)
			}
			if !deleted {
				return fmt.Errorf("budget %s not found", args[0])
			}

			a.success(cmd.OutOrStdout(), "Deleted budget %s", args[0])
			return nil
		},
	}
}
