package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/jmvallecillo/kakebo-advisor/internal/learning"
	"github.com/jmvallecillo/kakebo-advisor/internal/model"
	"github.com/spf13/cobra"
)

func feedbackCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "feedback <query> <expense-id> <correct|incorrect>",
		Short: "Mark a search result as right or wrong",
		Long: `Record whether an expense was a good match for a search query.
Your own feedback always applies to your searches; once enough users agree,
it also ranks everyone else's results.`,
		Args: cobra.ExactArgs(3),
		RunE: runFeedback,
	}
}

func runFeedback(cmd *cobra.Command, args []string) error {
	expenseID, err := strconv.ParseInt(args[1], 10, 64)
	if err != nil {
		return fmt.Errorf("invalid expense id %q", args[1])
	}

	var typ model.FeedbackType
	switch strings.ToLower(args[2]) {
	case "correct":
		typ = model.FeedbackCorrect
	case "incorrect":
		typ = model.FeedbackIncorrect
	default:
		return fmt.Errorf("verdict must be correct or incorrect, got %q", args[2])
	}

	store, err := initStorage(cmd.Context())
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer func() { _ = store.Close() }()

	engine := learning.NewFeedbackEngine(store, learning.DefaultConsensusConfig(), nil)
	if err := engine.Record(cmd.Context(), ownerID(), args[0], expenseID, typ); err != nil {
		return err
	}

	fmt.Printf("Recorded: expense %d is %s for %q\n", expenseID, typ, args[0])
	return nil
}
