package orchestrator

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/jmvallecillo/kakebo-advisor/internal/llm"
	"github.com/jmvallecillo/kakebo-advisor/internal/model"
	"github.com/jmvallecillo/kakebo-advisor/internal/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockLLM replays scripted responses and records every request it gets.
type mockLLM struct {
	responses []llm.Response
	requests  [][]llm.Message
	errs      []error
	call      int
}

func (m *mockLLM) Chat(_ context.Context, messages []llm.Message, _ []llm.Tool) (llm.Response, error) {
	m.requests = append(m.requests, messages)
	idx := m.call
	m.call++

	if idx < len(m.errs) && m.errs[idx] != nil {
		return llm.Response{}, m.errs[idx]
	}
	if idx >= len(m.responses) {
		return llm.Response{Text: "unscripted response"}, nil
	}
	return m.responses[idx], nil
}

// lastToolMessages returns the tool-role payloads of the synthesis request.
func (m *mockLLM) lastToolMessages(t *testing.T) []string {
	t.Helper()
	require.NotEmpty(t, m.requests)

	var payloads []string
	for _, msg := range m.requests[len(m.requests)-1] {
		if msg.Role == llm.RoleTool {
			payloads = append(payloads, msg.Content)
		}
	}
	return payloads
}

func newTestEngine(store service.Store, client llm.Client) *Engine {
	executor := NewExecutor(store, nil, DefaultOptions(), nil)
	executor.now = func() time.Time {
		return time.Date(2026, 8, 20, 12, 0, 0, 0, time.UTC)
	}
	engine := NewEngine(client, executor, nil)
	engine.retry = service.RetryOptions{MaxAttempts: 1, InitialDelay: time.Millisecond}
	return engine
}

func toolCallRequest(name, args string) llm.Response {
	return llm.Response{
		ToolCalls: []llm.ToolCall{{ID: "call-1", Name: name, Arguments: json.RawMessage(args)}},
		Usage:     llm.Usage{InputTokens: 100, OutputTokens: 10},
	}
}

func TestProcess_DirectReply(t *testing.T) {
	client := &mockLLM{responses: []llm.Response{
		{Text: "¡Hola! ¿En qué te ayudo con tus gastos?", Usage: llm.Usage{InputTokens: 50, OutputTokens: 12}},
	}}
	engine := newTestEngine(&service.MockStore{}, client)

	result, err := engine.Process(context.Background(), "hola", nil, "user-1")
	require.NoError(t, err)

	assert.Equal(t, "¡Hola! ¿En qué te ayudo con tus gastos?", result.Message)
	assert.Empty(t, result.ToolsUsed)
	assert.Equal(t, 1, result.Metrics.ModelCalls)
	assert.Equal(t, int64(62), result.Metrics.Usage.Total())
	assert.NotEmpty(t, result.Metrics.TurnID)
}

func TestProcess_ValidToolResultPassesThroughUnchanged(t *testing.T) {
	expenses := make([]model.Expense, 12)
	for i := range expenses {
		expenses[i] = model.Expense{
			ID: int64(i + 1), OwnerID: "user-1",
			Date:     time.Date(2026, 8, i+1, 0, 0, 0, 0, time.UTC),
			Concept:  "compra", Category: model.CategorySurvival, Amount: 10,
		}
	}
	store := &service.MockStore{
		GetExpensesFunc: func(_ context.Context, _ string, from, _ time.Time) ([]model.Expense, error) {
			if from.Month() == time.July {
				return expenses, nil
			}
			return nil, nil
		},
		GetTopExpensesFunc: func(_ context.Context, _ string, _, _ time.Time, n int) ([]model.Expense, error) {
			return expenses[:n], nil
		},
	}

	client := &mockLLM{responses: []llm.Response{
		toolCallRequest("analyze_spending_patterns", `{"period":"month"}`),
		{Text: "Gastaste 120,00 € en 12 transacciones el último mes.", Usage: llm.Usage{InputTokens: 200, OutputTokens: 30}},
	}}
	engine := newTestEngine(store, client)

	result, err := engine.Process(context.Background(), "¿cuánto gasté este mes?", nil, "user-1")
	require.NoError(t, err)

	assert.Equal(t, "Gastaste 120,00 € en 12 transacciones el último mes.", result.Message)
	assert.Equal(t, []string{"analyze_spending_patterns"}, result.ToolsUsed)
	assert.Zero(t, result.Metrics.ToolFailures)
	assert.Equal(t, 2, result.Metrics.ModelCalls)

	payloads := client.lastToolMessages(t)
	require.Len(t, payloads, 1)
	assert.Contains(t, payloads[0], `"transactionCount":12`, "valid data reaches synthesis unmodified")
	assert.NotContains(t, payloads[0], "must not be used")
}

func TestProcess_ToolErrorBecomesFailurePayload(t *testing.T) {
	store := &service.MockStore{
		GetExpensesFunc: func(_ context.Context, _ string, _, _ time.Time) ([]model.Expense, error) {
			return nil, errors.New("store timeout")
		},
	}

	client := &mockLLM{responses: []llm.Response{
		toolCallRequest("analyze_spending_patterns", `{"period":"month"}`),
		{Text: "No he podido consultar tus gastos ahora mismo."},
	}}
	engine := newTestEngine(store, client)

	result, err := engine.Process(context.Background(), "¿cuánto gasté?", nil, "user-1")
	require.NoError(t, err, "a tool failure never fails the turn")

	assert.Equal(t, 1, result.Metrics.ToolFailures)
	assert.Equal(t, "No he podido consultar tus gastos ahora mismo.", result.Message)

	payloads := client.lastToolMessages(t)
	require.Len(t, payloads, 1)
	assert.Contains(t, payloads[0], "must not be used", "raw errors are converted, never forwarded")
	assert.Contains(t, payloads[0], "Do not invent")
	assert.NotContains(t, payloads[0], "store timeout", "internal error detail stays out of the model's view")
}

func TestProcess_InvalidToolOutputIsBlocked(t *testing.T) {
	store := &service.MockStore{
		GetBudgetsFunc: func(_ context.Context, _ string) (map[model.Category]float64, error) {
			return map[model.Category]float64{model.CategorySurvival: -500}, nil
		},
		GetCategorySummaryFunc: func(_ context.Context, _ string, _, _ time.Time) (map[model.Category]float64, error) {
			return map[model.Category]float64{}, nil
		},
	}

	client := &mockLLM{responses: []llm.Response{
		toolCallRequest("get_budget_status", `{}`),
		{Text: "No he podido procesar los datos de tu presupuesto."},
	}}
	engine := newTestEngine(store, client)

	result, err := engine.Process(context.Background(), "¿cómo va mi presupuesto?", nil, "user-1")
	require.NoError(t, err)

	assert.Equal(t, 1, result.Metrics.ToolFailures)

	payloads := client.lastToolMessages(t)
	require.Len(t, payloads, 1)
	assert.Contains(t, payloads[0], "failed validation")
	assert.Contains(t, payloads[0], "must not be used")
	assert.NotContains(t, payloads[0], `"totalBudget":-500`, "the invalid payload itself is withheld")
}

func TestProcess_ModelFailureSurfacesAsUserError(t *testing.T) {
	client := &mockLLM{errs: []error{errors.New("connection refused")}}
	engine := newTestEngine(&service.MockStore{}, client)

	_, err := engine.Process(context.Background(), "hola", nil, "user-1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unavailable")
}

func TestProcess_MultipleToolsKeepRequestOrder(t *testing.T) {
	store := &service.MockStore{}
	client := &mockLLM{responses: []llm.Response{
		{ToolCalls: []llm.ToolCall{
			{ID: "call-1", Name: "predict_end_of_month", Arguments: json.RawMessage(`{}`)},
			{ID: "call-2", Name: "get_category_trends", Arguments: json.RawMessage(`{"months":3}`)},
		}},
		{Text: "resumen"},
	}}
	engine := newTestEngine(store, client)

	result, err := engine.Process(context.Background(), "dame un resumen", nil, "user-1")
	require.NoError(t, err)

	assert.Equal(t, []string{"predict_end_of_month", "get_category_trends"}, result.ToolsUsed)
}

func TestProcess_HistoryIsForwarded(t *testing.T) {
	client := &mockLLM{responses: []llm.Response{{Text: "ok"}}}
	engine := newTestEngine(&service.MockStore{}, client)

	history := []model.HistoryMessage{
		{Role: model.RoleUser, Content: "¿cuánto gasté en julio?"},
		{Role: model.RoleAssistant, Content: "Gastaste 340 € en julio."},
	}

	_, err := engine.Process(context.Background(), "¿y en agosto?", history, "user-1")
	require.NoError(t, err)

	require.Len(t, client.requests, 1)
	messages := client.requests[0]
	require.Len(t, messages, 4, "system + history + current user text")
	assert.Equal(t, llm.RoleSystem, messages[0].Role)
	assert.Equal(t, "Gastaste 340 € en julio.", messages[2].Content)
	assert.Equal(t, llm.RoleAssistant, messages[2].Role)
	assert.Equal(t, "¿y en agosto?", messages[3].Content)
}
