package main

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/jmvallecillo/kakebo-advisor/internal/model"
	"github.com/spf13/cobra"
)

func addCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "add <concept> <amount> <category>",
		Short: "Record an expense",
		Long: `Record a single expense in the database.

Categories: survival, optional, culture, extra.`,
		Args: cobra.MinimumNArgs(3),
		RunE: runAdd,
	}

	cmd.Flags().String("date", "", "expense date (YYYY-MM-DD, default today)")

	return cmd
}

func runAdd(cmd *cobra.Command, args []string) error {
	category := model.Category(strings.ToLower(args[len(args)-1]))
	if !category.Valid() {
		return fmt.Errorf("unknown category %q, expected one of: %s", args[len(args)-1], categoryList())
	}

	amount, err := strconv.ParseFloat(strings.ReplaceAll(args[len(args)-2], ",", "."), 64)
	if err != nil || amount <= 0 {
		return fmt.Errorf("invalid amount %q", args[len(args)-2])
	}

	concept := strings.Join(args[:len(args)-2], " ")
	if strings.TrimSpace(concept) == "" {
		return fmt.Errorf("concept must not be empty")
	}

	date := time.Now()
	if raw, _ := cmd.Flags().GetString("date"); raw != "" {
		date, err = time.Parse("2006-01-02", raw)
		if err != nil {
			return fmt.Errorf("invalid date %q, expected YYYY-MM-DD", raw)
		}
	}

	store, err := initStorage(cmd.Context())
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer func() { _ = store.Close() }()

	expense := model.Expense{
		OwnerID:  ownerID(),
		Concept:  concept,
		Category: category,
		Amount:   amount,
		Date:     date,
	}
	if err := store.SaveExpenses(cmd.Context(), []model.Expense{expense}); err != nil {
		return fmt.Errorf("failed to save expense: %w", err)
	}

	fmt.Printf("Recorded %.2f in %s: %s (%s)\n", amount, category, concept, date.Format("2006-01-02"))
	return nil
}
