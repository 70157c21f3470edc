package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"budgetwatch/internal/core"
)

func categoriesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "categories",
		Short: "Manage expense categories",
		Long:  `List, add and delete the categories expenses and budgets refer to.`,
	}

	cmd.AddCommand(listCategoriesCmd())
	cmd.AddCommand(addCategoryCmd())
	cmd.AddCommand(deleteCategoryCmd())
	cmd.AddCommand(resetCategoriesCmd())

	return cmd
}

func listCategoriesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List all categories",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := appFrom(cmd)
			if err != nil {
				return err
			}

			categories, err := a.repo.ListCategories(cmd.Context())
			if err != nil {
				return fmt.Errorf("failed to get categories: %w", err)
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			defer w.Flush()

			fmt.Fprintf(w, "%s\t%s\t%s\t%s\n",
				a.theme.Header.Render("ID"),
				a.theme.Header.Render("NAME"),
				a.theme.Header.Render("COLOR"),
				a.theme.Header.Render("KIND"))

			for _, c := range categories {
				kind := a.theme.Faint.Render("custom")
				if c.IsDefault {
					kind = "default"
				}
				swatch := lipgloss.NewStyle().Foreground(lipgloss.Color(c.Color)).Render("●")
				fmt.Fprintf(w, "%s\t%s %s\t%s %s\t%s\n", c.ID, c.Icon, c.Name, swatch, c.Color, kind)
			}
			return nil
		},
	}
}

func addCategoryCmd() *cobra.Command {
	var icon, color string

	cmd := &cobra.Command{
		Use:   "add <name>",
		Short: "Add a custom category",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := appFrom(cmd)
			if err != nil {
				return err
			}

			existing, err := a.repo.ListCategories(ctx)
			if err != nil {
				return fmt.Errorf("failed to check existing categories: %w", err)
			}
			for _, c := range existing {
				if c.Name == args[0] {
					return fmt.Errorf("category %q already exists", args[0])
				}
			}

			c, err := a.repo.CreateCategory(ctx, core.Category{Name: args[0], Icon: icon, Color: color})
			if err != nil {
				return fmt.Errorf("failed to create category: %w", err)
			}

			a.success(cmd.OutOrStdout(), "Created category %s %s (id %s)", c.Icon, c.Name, c.ID)
			return nil
		},
	}

	cmd.Flags().StringVar(&icon, "icon", "📦", "emoji shown next to the name")
	cmd.Flags().StringVar(&color, "color", "#6b7280", "hex color")

	return cmd
}

func deleteCategoryCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a custom category",
		Long:  `Delete a custom category. Default categories cannot be deleted.`,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := appFrom(cmd)
			if err != nil {
				return err
			}

			deleted, err := a.repo.DeleteCategory(cmd.Context(), args[0])
			if err != nil {
				return fmt.Errorf("failed to delete category: %w", err)
			}
			if !deleted {
				return fmt.Errorf("category %s not found or is a default category", args[0])
			}

			a.success(cmd.OutOrStdout(), "Deleted category %s", args[0])
			return nil
		},
	}
}

func resetCategoriesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "reset",
		Short: "Restore the default categories, removing custom ones",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := appFrom(cmd)
			if err != nil {
				return err
			}

			if err := a.repo.ResetCategories(cmd.Context()); err != nil {
				return fmt.Errorf("failed to reset categories: %w", err)
			}

			a.success(cmd.OutOrStdout(), "Categories reset to the %d defaults", len(core.DefaultCategories()))
			return nil
		},
	}
}
