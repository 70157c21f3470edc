package main

import (
	"fmt"
	"sort"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"budgetwatch/internal/analytics"
	"budgetwatch/internal/core"
	"budgetwatch/internal/currency"
	"budgetwatch/internal/services"
)

func expensesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "expenses",
		Aliases: []string{"expense"},
		Short:   "Record and review expenses",
	}

	cmd.AddCommand(addExpenseCmd())
	cmd.AddCommand(listExpensesCmd())
	cmd.AddCommand(updateExpenseCmd())
	cmd.AddCommand(deleteExpenseCmd())

	return cmd
}

func addExpenseCmd() *cobra.Command {
	var (
		category  string
		date      string
		note      string
		recurring string
	)

	cmd := &cobra.Command{
		Use:   "add <amount>",
		Short: "Record a new expense",
		Long: `Record an expense. The amount is read in the display currency and stored in
Guinean francs: "1.500" in FG, "12,50" in EUR or USD.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := appFrom(cmd)
			if err != nil {
				return err
			}
			if date == "" {
				date = core.DateOf(a.now()).String()
			}

			code := a.displayCurrency(ctx)
			in := services.ExpenseInput{
				Amount:   args[0],
				Currency: code,
				Category: category,
				Date:     date,
				Note:     note,
			}
			if recurring != "" {
				in.IsRecurring = true
				in.RecurringFrequency = core.Frequency(strings.ToLower(recurring))
			}

			e, err := a.service.CreateFromInput(ctx, in)
			if err != nil {
				return fmt.Errorf("add expense: %w", err)
			}

			a.success(cmd.OutOrStdout(), "Recorded %s in %s on %s (id %s)",
				a.money(e.Amount, code), e.Category, e.Date, e.ID)
			return nil
		},
	}

	cmd.Flags().StringVarP(&category, "category", "c", "", "category name (required)")
	cmd.Flags().StringVarP(&date, "date", "d", "", "expense date as YYYY-MM-DD (default: today)")
	cmd.Flags().StringVarP(&note, "note", "n", "", "free text note")
	cmd.Flags().StringVar(&recurring, "recurring", "", "mark as recurring: daily, weekly, monthly or yearly")
	_ = cmd.MarkFlagRequired("category")

	return cmd
}

func listExpensesCmd() *cobra.Command {
	var (
		month    string
		category string
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List expenses, newest first",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			a, err := appFrom(cmd)
			if err != nil {
				return err
			}

			expenses, err := a.repo.ListExpenses(ctx)
			if err != nil {
				return fmt.Errorf("list expenses: %w", err)
			}

			if month != "" {
				ref, err := time.Parse("2006-01", month)
				if err != nil {
					return fmt.Errorf("invalid month %q: want YYYY-MM", month)
				}
				start, end := analytics.MonthWindow(ref)
				expenses = filterExpenses(expenses, func(e core.Expense) bool { return e.Date.Within(start, end) })
			}
			if category != "" {
				expenses = filterExpenses(expenses, func(e core.Expense) bool { return strings.EqualFold(e.Category, category) })
			}

			out := cmd.OutOrStdout()
			if len(expenses) == 0 {
				fmt.Fprintln(out, a.theme.Faint.Render("No expenses found. Use 'budgetwatch expenses add' to record one."))
				return nil
			}

			sort.SliceStable(expenses, func(i, j int) bool {
				if !expenses[i].Date.Equal(expenses[j].Date.Time) {
					return expenses[i].Date.After(expenses[j].Date.Time)
				}
				return expenses[i].CreatedAt.After(expenses[j].CreatedAt)
			})

			code := a.displayCurrency(ctx)
			w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
				a.theme.Header.Render("DATE"),
				a.theme.Header.Render("CATEGORY"),
				a.theme.Header.Render("AMOUNT"),
				a.theme.Header.Render("NOTE"),
				a.theme.Header.Render("ID"))

			var total float64
			for _, e := range expenses {
				note := e.Note
				if e.IsRecurring {
					note = strings.TrimSpace(note + " ↻ " + string(e.RecurringFrequency))
				}
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
					e.Date, e.Category, a.money(e.Amount, code), note, a.theme.Faint.Render(e.ID))
				total += e.Amount
			}
			if err := w.Flush(); err != nil {
				return err
			}

			fmt.Fprintf(out, "\n%s %s (%d expenses)\n",
				a.theme.Header.Render("Total:"), a.money(total, code), len(expenses))
			return nil
		},
	}

	cmd.Flags().StringVar(&month, "month", "", "only show expenses of this month (YYYY-MM)")
	cmd.Flags().StringVarP(&category, "category", "c", "", "only show this category")

	return cmd
}

func updateExpenseCmd() *cobra.Command {
	var (
		amount    string
		category  string
		date      string
		note      string
		recurring string
	)

	cmd := &cobra.Command{
		Use:   "update <id>",
		Short: "Change fields of an existing expense",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := appFrom(cmd)
			if err != nil {
				return err
			}

			flags := cmd.Flags()
			var patch core.ExpensePatch
			if flags.Changed("amount") {
				v := currency.ParseInput(amount, a.displayCurrency(ctx))
				patch.Amount = &v
			}
			if flags.Changed("category") {
				patch.Category = &category
			}
			if flags.Changed("date") {
				d, err := core.ParseDate(date)
				if err != nil {
					return fmt.Errorf("date %q: %w", date, err)
				}
				patch.Date = &d
			}
			if flags.Changed("note") {
				patch.Note = &note
			}
			if flags.Changed("recurring") {
				isRecurring := recurring != "" && recurring != "none"
				freq := core.Frequency("")
				if isRecurring {
					freq = core.Frequency(strings.ToLower(recurring))
				}
				patch.IsRecurring = &isRecurring
				patch.RecurringFrequency = &freq
			}
			if patch == (core.ExpensePatch{}) {
				return fmt.Errorf("nothing to update: pass at least one of --amount, --category, --date, --note, --recurring")
			}

			updated, ok, err := a.service.UpdateExpense(ctx, args[0], patch)
			if err != nil {
				return err
			}
			if !ok {
				return fmt.Errorf("expense %s not found", args[0])
			}

			a.success(cmd.OutOrStdout(), "Updated expense %s: %s in %s on %s",
				updated.ID, a.money(updated.Amount, a.displayCurrency(ctx)), updated.Category, updated.Date)
			return nil
		},
	}

	cmd.Flags().StringVarP(&amount, "amount", "a", "", "new amount in the display currency")
	cmd.Flags().StringVarP(&category, "category", "c", "", "new category")
	cmd.Flags().StringVarP(&date, "date", "d", "", "new date (YYYY-MM-DD)")
	cmd.Flags().StringVarP(&note, "note", "n", "", "new note")
	cmd.Flags().StringVar(&recurring, "recurring", "", "daily, weekly, monthly, yearly or none")

	return cmd
}

func deleteExpenseCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete an expense",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := appFrom(cmd)
			if err != nil {
				return err
			}

			deleted, err := a.service.DeleteExpense(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if !deleted {
				return fmt.Errorf("expense %s not found", args[0])
			}

			a.success(cmd.OutOrStdout(), "Deleted expense %s", args[0])
			return nil
		},
	}
}

func filterExpenses(in []core.Expense, keep func(core.Expense) bool) []core.Expense {
	out := in[:0:0]
	for _, e := range in {
		if keep(e) {
			out = append(out, e)
		}
	}
	return out
}
