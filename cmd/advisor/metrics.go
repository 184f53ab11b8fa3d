package main

import (
	"fmt"

	"github.com/jmvallecillo/kakebo-advisor/internal/learning"
	"github.com/spf13/cobra"
)

func metricsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "metrics",
		Short: "Show learning health",
		Long: `Summarize how well the advisor is learning from you over the last two
weeks: merchant rules, correction examples and search feedback precision,
combined into a 0-100 health score.`,
		RunE: runMetrics,
	}
}

func runMetrics(cmd *cobra.Command, _ []string) error {
	store, err := initStorage(cmd.Context())
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer func() { _ = store.Close() }()

	aggregator := learning.NewMetricsAggregator(store, nil)
	snapshot := aggregator.Aggregate(cmd.Context(), ownerID())

	fmt.Printf("Learning health score: %d/100\n\n", snapshot.Score)

	fmt.Println("Merchant rules")
	fmt.Printf("  total: %d  high confidence: %d  avg confidence: %.2f  trend: %s\n",
		snapshot.Rules.Total, snapshot.Rules.HighConfidence,
		snapshot.Rules.AvgConfidence, snapshot.Rules.Trend)

	fmt.Println("Correction examples")
	fmt.Printf("  total: %d  usages: %d  avg usages: %.1f\n",
		snapshot.Examples.Total, snapshot.Examples.TotalUsages, snapshot.Examples.AvgUsages)
	for _, pair := range snapshot.Examples.TopMisclassifications {
		fmt.Printf("  %s -> %s: %d corrections\n", pair.OldCategory, pair.NewCategory, pair.Count)
	}

	fmt.Println("Search feedback")
	fmt.Printf("  total: %d  correct: %d  incorrect: %d  precision: %.0f%%\n",
		snapshot.Feedback.Total, snapshot.Feedback.Correct,
		snapshot.Feedback.Incorrect, snapshot.Feedback.Precision)
	for _, query := range snapshot.Feedback.TopIncorrectQueries {
		fmt.Printf("  %q marked incorrect %d times\n", query.Query, query.Count)
	}

	return nil
}
