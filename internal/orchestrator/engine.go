package orchestrator

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/jmvallecillo/kakebo-advisor/internal/common"
	"github.com/jmvallecillo/kakebo-advisor/internal/llm"
	"github.com/jmvallecillo/kakebo-advisor/internal/model"
	"github.com/jmvallecillo/kakebo-advisor/internal/service"
	"github.com/jmvallecillo/kakebo-advisor/internal/toolcheck"
)

// Metrics reports what one turn cost.
type Metrics struct {
	TurnID       string
	Usage        llm.Usage
	ModelCalls   int
	ToolFailures int
}

// Result is the outcome of one conversation turn.
type Result struct {
	Message   string
	ToolsUsed []string
	Metrics   Metrics
}

// Engine runs the turn state machine: model call, tool execution, validation
// and synthesis. A tool failure is never forwarded raw; it becomes a
// validation-shaped payload the model must disclose.
type Engine struct {
	client    llm.Client
	executor  *Executor
	validator *toolcheck.Validator
	logger    *slog.Logger
	retry     service.RetryOptions
}

// NewEngine creates an engine over a model client and a tool executor.
func NewEngine(client llm.Client, executor *Executor, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{
		client:    client,
		executor:  executor,
		validator: toolcheck.NewValidator(toolcheck.DefaultConfig()),
		logger:    logger,
		retry:     service.RetryOptions{MaxAttempts: 3},
	}
}

// toolOutcome is one executed tool call with its enhanced payload.
type toolOutcome struct {
	call    llm.ToolCall
	payload string
	failed  bool
}

// Process runs one turn for a user.
func (e *Engine) Process(ctx context.Context, userText string, history []model.HistoryMessage, ownerID string) (Result, error) {
	turnID := uuid.NewString()
	metrics := Metrics{TurnID: turnID}

	messages := e.buildMessages(userText, history)

	response, err := e.chat(ctx, messages, e.executor.Catalogue(), &metrics)
	if err != nil {
		return Result{Metrics: metrics}, common.NewUserError("the assistant is unavailable right now", err)
	}

	if len(response.ToolCalls) == 0 {
		e.logger.Info("turn complete without tools", "turn", turnID, "tokens", metrics.Usage.Total())
		return Result{Message: response.Text, Metrics: metrics}, nil
	}

	outcomes := e.runTools(ctx, ownerID, response.ToolCalls)

	toolsUsed := make([]string, 0, len(response.ToolCalls))
	assistantMsg := llm.Message{Role: llm.RoleAssistant, Content: response.Text, ToolCalls: response.ToolCalls}
	messages = append(messages, assistantMsg)
	for _, outcome := range outcomes {
		toolsUsed = append(toolsUsed, outcome.call.Name)
		if outcome.failed {
			metrics.ToolFailures++
		}
		messages = append(messages, llm.Message{
			Role:       llm.RoleTool,
			ToolCallID: outcome.call.ID,
			Content:    outcome.payload,
		})
	}

	synthesis, err := e.chat(ctx, messages, nil, &metrics)
	if err != nil {
		return Result{ToolsUsed: toolsUsed, Metrics: metrics},
			common.NewUserError("the assistant is unavailable right now", err)
	}

	e.logger.Info("turn complete",
		"turn", turnID,
		"tools", toolsUsed,
		"tool_failures", metrics.ToolFailures,
		"tokens", metrics.Usage.Total())

	return Result{Message: synthesis.Text, ToolsUsed: toolsUsed, Metrics: metrics}, nil
}

func (e *Engine) buildMessages(userText string, history []model.HistoryMessage) []llm.Message {
	messages := make([]llm.Message, 0, len(history)+2)
	messages = append(messages, llm.Message{Role: llm.RoleSystem, Content: systemPrompt(e.executor.now())})
	for _, entry := range history {
		role := llm.RoleUser
		if entry.Role == model.RoleAssistant {
			role = llm.RoleAssistant
		}
		messages = append(messages, llm.Message{Role: role, Content: entry.Content})
	}
	return append(messages, llm.Message{Role: llm.RoleUser, Content: userText})
}

func (e *Engine) chat(ctx context.Context, messages []llm.Message, tools []llm.Tool, metrics *Metrics) (llm.Response, error) {
	var response llm.Response
	err := common.WithRetry(ctx, func() error {
		var chatErr error
		response, chatErr = e.client.Chat(ctx, messages, tools)
		return chatErr
	}, e.retry)

	metrics.ModelCalls++
	metrics.Usage.Add(response.Usage)
	return response, err
}

// runTools executes the requested calls concurrently. Order of outcomes
// matches the request order; individual failures become failure payloads.
func (e *Engine) runTools(ctx context.Context, ownerID string, calls []llm.ToolCall) []toolOutcome {
	outcomes := make([]toolOutcome, len(calls))

	group, groupCtx := errgroup.WithContext(ctx)
	for i, call := range calls {
		i, call := i, call
		group.Go(func() error {
			outcomes[i] = e.runTool(groupCtx, ownerID, call)
			return nil
		})
	}
	_ = group.Wait()

	return outcomes
}

func (e *Engine) runTool(ctx context.Context, ownerID string, call llm.ToolCall) toolOutcome {
	result, err := e.executor.Execute(ctx, ownerID, call)
	if err != nil {
		e.logger.Warn("tool execution failed", "tool", call.Name, "error", err)
		return toolOutcome{
			call:    call,
			failed:  true,
			payload: marshalPayload(toolcheck.NewFailurePayload(call.Name, "the tool could not be executed", nil)),
		}
	}

	report := e.validator.Validate(result)
	if !report.Valid {
		e.logger.Warn("tool output failed validation",
			"tool", call.Name, "errors", report.Errors)
		return toolOutcome{
			call:    call,
			failed:  true,
			payload: marshalPayload(toolcheck.NewFailurePayload(call.Name, "the tool output failed validation", report.Errors)),
		}
	}

	if len(report.Warnings) > 0 {
		return toolOutcome{call: call, payload: marshalPayload(toolcheck.Annotate(result, report.Warnings))}
	}
	return toolOutcome{call: call, payload: marshalPayload(result)}
}

func marshalPayload(payload any) string {
	data, err := json.Marshal(payload)
	if err != nil {
		// Payloads are plain structs; this cannot realistically fail.
		return fmt.Sprintf(`{"error": %q}`, err.Error())
	}
	return string(data)
}
