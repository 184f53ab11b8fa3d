package main

import (
	"bufio"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/jmvallecillo/kakebo-advisor/internal/learning"
	"github.com/jmvallecillo/kakebo-advisor/internal/llm"
	"github.com/jmvallecillo/kakebo-advisor/internal/model"
	"github.com/jmvallecillo/kakebo-advisor/internal/orchestrator"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// historyWindow caps how many past messages are replayed into each turn.
const historyWindow = 20

func chatCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "chat [question]",
		Short: "Ask about your spending",
		Long: `Start an interactive session with the advisor, or ask a single
question by passing it as arguments.

The assistant answers from your expense database using analysis tools and
discloses how much data backs each figure.`,
		RunE: runChat,
	}

	cmd.Flags().Bool("personal-feedback-only", false, "Rank search results with your own feedback only, ignoring community consensus")
	_ = viper.BindPFlag("chat.personal_feedback_only", cmd.Flags().Lookup("personal-feedback-only"))

	return cmd
}

func runChat(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	store, err := initStorage(ctx)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer func() { _ = store.Close() }()

	client, err := llm.NewClient(llmConfig())
	if err != nil {
		return fmt.Errorf("failed to create model client: %w", err)
	}
	if closer, ok := client.(io.Closer); ok {
		defer func() { _ = closer.Close() }()
	}

	opts := orchestrator.DefaultOptions()
	opts.UseHybridFeedback = !viper.GetBool("chat.personal_feedback_only")

	feedback := learning.NewFeedbackEngine(store, learning.DefaultConsensusConfig(), nil)
	executor := orchestrator.NewExecutor(store, feedback, opts, nil)
	engine := orchestrator.NewEngine(client, executor, nil)

	owner := ownerID()

	if len(args) > 0 {
		return runTurn(cmd, engine, owner, strings.Join(args, " "), nil)
	}

	fmt.Println("Ask about your spending. Empty line or Ctrl-D to exit.")
	scanner := bufio.NewScanner(os.Stdin)
	var history []model.HistoryMessage
	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			break
		}
		question := strings.TrimSpace(scanner.Text())
		if question == "" {
			break
		}

		result, err := processTurn(cmd, engine, owner, question, history)
		if err != nil {
			fmt.Fprintln(os.Stderr, explainError(err))
			continue
		}
		fmt.Println(result.Message)

		history = append(history,
			model.HistoryMessage{Role: model.RoleUser, Content: question},
			model.HistoryMessage{Role: model.RoleAssistant, Content: result.Message})
		if len(history) > historyWindow {
			history = history[len(history)-historyWindow:]
		}
	}
	return scanner.Err()
}

func runTurn(cmd *cobra.Command, engine *orchestrator.Engine, owner, question string, history []model.HistoryMessage) error {
	result, err := processTurn(cmd, engine, owner, question, history)
	if err != nil {
		return err
	}
	fmt.Println(result.Message)
	return nil
}

func processTurn(cmd *cobra.Command, engine *orchestrator.Engine, owner, question string, history []model.HistoryMessage) (orchestrator.Result, error) {
	result, err := engine.Process(cmd.Context(), question, history, owner)
	if err != nil {
		return orchestrator.Result{}, err
	}
	slog.Debug("turn finished",
		"turn", result.Metrics.TurnID,
		"tools", result.ToolsUsed,
		"tool_failures", result.Metrics.ToolFailures,
		"tokens", result.Metrics.Usage.Total())
	return result, nil
}
