package main

import (
	"fmt"
	"sort"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"budgetwatch/internal/analytics"
)

const trendBarWidth = 24

func analyticsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "analytics",
		Short: "Spending totals, budget usage and monthly trends",
	}

	cmd.AddCommand(summaryCmd())
	cmd.AddCommand(trendCmd())

	return cmd
}

func summaryCmd() *cobra.Command {
	var month string

	cmd := &cobra.Command{
		Use:   "summary",
		Short: "Totals per category for a month, plus budget usage",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			a, err := appFrom(cmd)
			if err != nil {
				return err
			}

			ref := a.now()
			if month != "" {
				if ref, err = time.Parse("2006-01", month); err != nil {
					return fmt.Errorf("invalid month %q: want YYYY-MM", month)
				}
			}

			expenses, err := a.repo.ListExpenses(ctx)
			if err != nil {
				return fmt.Errorf("list expenses: %w", err)
			}
			budgets, err := a.repo.ListBudgets(ctx)
			if err != nil {
				return fmt.Errorf("list budgets: %w", err)
			}

			code := a.displayCurrency(ctx)
			out := cmd.OutOrStdout()
			start, end := analytics.MonthWindow(ref)
			byCategory := analytics.TotalByCategory(expenses, start, end)

			fmt.Fprintln(out, a.theme.Title.Render(fmt.Sprintf("%s %d", analytics.MonthLabel(ref), ref.Year())))
			fmt.Fprintf(out, "%s %s\n\n", a.theme.Header.Render("Total:"), a.money(analytics.MonthlyTotal(expenses, ref), code))

			if len(byCategory) == 0 {
				fmt.Fprintln(out, a.theme.Faint.Render("No expenses this month."))
			} else {
				names := make([]string, 0, len(byCategory))
				for name := range byCategory {
					names = append(names, name)
				}
				sort.Slice(names, func(i, j int) bool {
					if byCategory[names[i]] != byCategory[names[j]] {
						return byCategory[names[i]] > byCategory[names[j]]
					}
					return names[i] < names[j]
				})

				w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
				fmt.Fprintf(w, "%s\t%s\n", a.theme.Header.Render("CATEGORY"), a.theme.Header.Render("SPENT"))
				for _, name := range names {
					fmt.Fprintf(w, "%s\t%s\n", name, a.money(byCategory[name], code))
				}
				if err := w.Flush(); err != nil {
					return err
				}
			}

			if len(budgets) > 0 {
				fmt.Fprintln(out)
				fmt.Fprintln(out, a.theme.Title.Render("Budgets"))
				// Budget usage is always measured against the current period.
				renderBudgetTable(a, cmd, budgets, expenses)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&month, "month", "", "month to summarise (YYYY-MM, default: current)")

	return cmd
}

func trendCmd() *cobra.Command {
	var (
		months   int
		category string
	)

	cmd := &cobra.Command{
		Use:   "trend",
		Short: "Monthly totals for the last months, oldest first",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			a, err := appFrom(cmd)
			if err != nil {
				return err
			}
			if months <= 0 {
				return fmt.Errorf("--months must be positive, got %d", months)
			}

			expenses, err := a.repo.ListExpenses(ctx)
			if err != nil {
				return fmt.Errorf("list expenses: %w", err)
			}

			var points []analytics.TrendPoint
			if category != "" {
				points = analytics.CategoryTrendAt(expenses, category, months, a.now())
			} else {
				points = analytics.MonthlyTrendAt(expenses, months, a.now())
			}

			var peak float64
			for _, p := range points {
				if p.Total > peak {
					peak = p.Total
				}
			}

			code := a.displayCurrency(ctx)
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			defer w.Flush()
			for _, p := range points {
				bar := ""
				if peak > 0 {
					bar = strings.TrimRight(a.theme.ProgressBar(p.Total/peak*100, trendBarWidth), "░")
				}
				fmt.Fprintf(w, "%s %d\t%s\t%s\n", p.Label, p.Month.Year(), a.money(p.Total, code), a.theme.Good.Render(bar))
			}
			return nil
		},
	}

	cmd.Flags().IntVarP(&months, "months", "m", analytics.DefaultTrendMonths, "number of months")
	cmd.Flags().StringVarP(&category, "category", "c", "", "restrict to one category")

	return cmd
}
