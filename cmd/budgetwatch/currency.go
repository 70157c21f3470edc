package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"budgetwatch/internal/currency"
)

func currencyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "currency",
		Short: "Display currency preference and conversions",
	}

	cmd.AddCommand(getCurrencyCmd())
	cmd.AddCommand(setCurrencyCmd())
	cmd.AddCommand(convertCmd())

	return cmd
}

func getCurrencyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get",
		Short: "Show the display currency and the rate table",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := appFrom(cmd)
			if err != nil {
				return err
			}

			selected := a.displayCurrency(cmd.Context())
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			defer w.Flush()

			fmt.Fprintf(w, "%s\t%s\t%s\t%s\n",
				a.theme.Header.Render(""),
				a.theme.Header.Render("CODE"),
				a.theme.Header.Render("NAME"),
				a.theme.Header.Render("RATE"))
			for _, info := range currency.Default.Currencies() {
				marker := " "
				if info.Code == selected {
					marker = a.theme.Good.Render("*")
				}
				fmt.Fprintf(w, "%s\t%s\t%s\t1 %s = %s\n", marker, info.Code, info.Name, info.Symbol,
					currency.Format(info.Rate, currency.Base))
			}
			return nil
		},
	}
}

func setCurrencyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "set <code>",
		Short: "Persist the display currency (FG, EUR or USD)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := appFrom(cmd)
			if err != nil {
				return err
			}

			code, err := currency.ParseCode(args[0])
			if err != nil {
				return err
			}
			if err := a.repo.SetCurrency(cmd.Context(), code); err != nil {
				return fmt.Errorf("save currency preference: %w", err)
			}

			a.success(cmd.OutOrStdout(), "Display currency set to %s", code)
			return nil
		},
	}
}

func convertCmd() *cobra.Command {
	var from, to string

	cmd := &cobra.Command{
		Use:   "convert <amount>",
		Short: "Convert an amount between currencies",
		Example: `  budgetwatch currency convert 10 --from EUR --to FG
  budgetwatch currency convert 1.000.000 --to USD`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := appFrom(cmd)
			if err != nil {
				return err
			}

			source, err := currency.ParseCode(from)
			if err != nil {
				return fmt.Errorf("--from: %w", err)
			}
			target := a.displayCurrency(cmd.Context())
			if to != "" {
				if target, err = currency.ParseCode(to); err != nil {
					return fmt.Errorf("--to: %w", err)
				}
			}

			base := currency.ParseInput(args[0], source)
			fmt.Fprintf(cmd.OutOrStdout(), "%s = %s\n",
				currency.Format(base, source),
				a.theme.Title.Render(currency.Format(base, target)))
			return nil
		},
	}

	cmd.Flags().StringVar(&from, "from", string(currency.Base), "currency of the amount")
	cmd.Flags().StringVar(&to, "to", "", "target currency (default: display currency)")

	return cmd
}
