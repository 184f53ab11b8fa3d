package main

import (
	"fmt"
	"strings"

	"github.com/jmvallecillo/kakebo-advisor/internal/learning"
	"github.com/jmvallecillo/kakebo-advisor/internal/model"
	"github.com/spf13/cobra"
)

func correctCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "correct <concept> <category>",
		Short: "Correct an expense's category",
		Long: `Record a categorization correction. The advisor learns a merchant rule
from it and keeps the correction as a future classification example.

Categories: survival, optional, culture, extra.`,
		Args: cobra.MinimumNArgs(2),
		RunE: runCorrect,
	}

	cmd.Flags().String("from", "", "category the expense was wrongly assigned to")

	return cmd
}

func runCorrect(cmd *cobra.Command, args []string) error {
	newCategory := model.Category(strings.ToLower(args[len(args)-1]))
	if !newCategory.Valid() {
		return fmt.Errorf("unknown category %q, expected one of: %s", args[len(args)-1], categoryList())
	}
	concept := strings.Join(args[:len(args)-1], " ")

	var oldCategory model.Category
	if from, _ := cmd.Flags().GetString("from"); from != "" {
		oldCategory = model.Category(strings.ToLower(from))
		if !oldCategory.Valid() {
			return fmt.Errorf("unknown category %q, expected one of: %s", from, categoryList())
		}
	}

	store, err := initStorage(cmd.Context())
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer func() { _ = store.Close() }()

	engine := learning.NewRuleEngine(store, nil)
	result, err := engine.RecordCorrection(cmd.Context(), ownerID(), learning.Correction{
		Concept:     concept,
		OldCategory: oldCategory,
		NewCategory: newCategory,
	})
	if err != nil {
		return err
	}

	fmt.Println(result.Message)
	return nil
}

func categoryList() string {
	names := make([]string, 0, 4)
	for _, cat := range model.Categories() {
		names = append(names, string(cat))
	}
	return strings.Join(names, ", ")
}
