package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/jmvallecillo/kakebo-advisor/internal/model"
	"github.com/spf13/cobra"
)

func budgetCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "budget",
		Short: "Manage monthly category budgets",
	}

	cmd.AddCommand(budgetSetCmd())
	cmd.AddCommand(budgetListCmd())

	return cmd
}

func budgetSetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "set <category> <amount>",
		Short: "Set the monthly budget for a category",
		Args:  cobra.ExactArgs(2),
		RunE:  runBudgetSet,
	}
}

func runBudgetSet(cmd *cobra.Command, args []string) error {
	category := model.Category(strings.ToLower(args[0]))
	if !category.Valid() {
		return fmt.Errorf("unknown category %q, expected one of: %s", args[0], categoryList())
	}

	amount, err := strconv.ParseFloat(strings.ReplaceAll(args[1], ",", "."), 64)
	if err != nil || amount < 0 {
		return fmt.Errorf("invalid amount %q", args[1])
	}

	store, err := initStorage(cmd.Context())
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer func() { _ = store.Close() }()

	if err := store.SetBudget(cmd.Context(), ownerID(), category, amount); err != nil {
		return fmt.Errorf("failed to set budget: %w", err)
	}

	fmt.Printf("Monthly budget for %s set to %.2f\n", category, amount)
	return nil
}

func budgetListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "Show configured budgets",
		RunE:  runBudgetList,
	}
}

func runBudgetList(cmd *cobra.Command, _ []string) error {
	store, err := initStorage(cmd.Context())
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer func() { _ = store.Close() }()

	budgets, err := store.GetBudgets(cmd.Context(), ownerID())
	if err != nil {
		return fmt.Errorf("failed to load budgets: %w", err)
	}
	if len(budgets) == 0 {
		fmt.Println("No budgets configured. Use 'advisor budget set <category> <amount>'.")
		return nil
	}

	var total float64
	for _, category := range model.Categories() {
		limit, ok := budgets[category]
		if !ok {
			continue
		}
		fmt.Printf("  %-10s %10.2f\n", category, limit)
		total += limit
	}
	fmt.Printf("  %-10s %10.2f\n", "total", total)
	return nil
}
