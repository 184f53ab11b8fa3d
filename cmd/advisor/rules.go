package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/jmvallecillo/kakebo-advisor/internal/common"
	"github.com/jmvallecillo/kakebo-advisor/internal/learning"
	"github.com/spf13/cobra"
)

func rulesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rules",
		Short: "Inspect learned merchant rules",
	}

	cmd.AddCommand(rulesShowCmd())

	return cmd
}

func rulesShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <concept>",
		Short: "Show the rules that would categorize a concept",
		Long: `Extract the merchant from a concept and print your own rule and the
shared global rule for it, if any exist.`,
		Args: cobra.MinimumNArgs(1),
		RunE: runRulesShow,
	}
}

func runRulesShow(cmd *cobra.Command, args []string) error {
	concept := strings.Join(args, " ")

	store, err := initStorage(cmd.Context())
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer func() { _ = store.Close() }()

	engine := learning.NewRuleEngine(store, nil)
	set, err := engine.Lookup(cmd.Context(), ownerID(), concept)
	if err != nil {
		if errors.Is(err, common.ErrNoMerchant) {
			fmt.Printf("No merchant could be identified in %q, so no rule applies.\n", concept)
			return nil
		}
		return err
	}

	fmt.Printf("Merchant: %s\n", set.Merchant)
	if set.Personal != nil {
		fmt.Printf("  your rule:   %s (confidence %.2f)\n", set.Personal.Category, set.Personal.Confidence)
	} else {
		fmt.Println("  your rule:   none")
	}
	if set.Global != nil {
		fmt.Printf("  global rule: %s (%d votes)\n", set.Global.Category, set.Global.VoteCount)
	} else {
		fmt.Println("  global rule: none")
	}
	return nil
}
