// Package orchestrator drives one conversation turn: model call, tool
// execution, output validation and final synthesis.
package orchestrator

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/jmvallecillo/kakebo-advisor/internal/anomaly"
	"github.com/jmvallecillo/kakebo-advisor/internal/intent"
	"github.com/jmvallecillo/kakebo-advisor/internal/learning"
	"github.com/jmvallecillo/kakebo-advisor/internal/llm"
	"github.com/jmvallecillo/kakebo-advisor/internal/merchant"
	"github.com/jmvallecillo/kakebo-advisor/internal/model"
	"github.com/jmvallecillo/kakebo-advisor/internal/rank"
	"github.com/jmvallecillo/kakebo-advisor/internal/service"
	"github.com/jmvallecillo/kakebo-advisor/internal/toolcheck"
)

// Options configures the tool executors.
type Options struct {
	// AnomalySensitivity is the default when the model does not pass one.
	AnomalySensitivity anomaly.Sensitivity
	// SearchLimit caps search_expenses results.
	SearchLimit int
	// UseHybridFeedback blends global consensus into personal search feedback.
	UseHybridFeedback bool
}

// topExpenseCount caps the top-expenses list in a spending patterns report.
const topExpenseCount = 5

// DefaultOptions returns the standard executor policy.
func DefaultOptions() Options {
	return Options{
		AnomalySensitivity: anomaly.SensitivityMedium,
		SearchLimit:        10,
		UseHybridFeedback:  true,
	}
}

// Executor runs the tool catalogue against the store.
type Executor struct {
	store    service.Store
	feedback *learning.FeedbackEngine
	reranker *rank.Reranker
	logger   *slog.Logger
	now      func() time.Time
	opts     Options
}

// NewExecutor creates an executor over the store.
func NewExecutor(store service.Store, feedback *learning.FeedbackEngine, opts Options, logger *slog.Logger) *Executor {
	if logger == nil {
		logger = slog.Default()
	}
	if opts.SearchLimit <= 0 {
		opts.SearchLimit = DefaultOptions().SearchLimit
	}
	if opts.AnomalySensitivity == "" {
		opts.AnomalySensitivity = anomaly.SensitivityMedium
	}
	return &Executor{
		store:    store,
		feedback: feedback,
		reranker: rank.New(),
		logger:   logger,
		now:      time.Now,
		opts:     opts,
	}
}

func schema(body string) json.RawMessage {
	return json.RawMessage(body)
}

// Catalogue returns the tool definitions offered to the model on every turn.
func (e *Executor) Catalogue() []llm.Tool {
	periodSchema := schema(`{
		"type": "object",
		"properties": {
			"period": {"type": "string", "enum": ["week", "month", "quarter"], "description": "Time period to analyze"}
		},
		"required": ["period"]
	}`)

	return []llm.Tool{
		{
			Name:        toolcheck.ToolSpendingPatterns,
			Description: "Totals, top expenses and spending trend for a period",
			Parameters:  periodSchema,
		},
		{
			Name:        toolcheck.ToolBudgetStatus,
			Description: "Current month budget consumption per category",
			Parameters:  schema(`{"type": "object", "properties": {}}`),
		},
		{
			Name:        toolcheck.ToolDetectAnomalies,
			Description: "Expenses that deviate from the user's historical baseline",
			Parameters: schema(`{
				"type": "object",
				"properties": {
					"sensitivity": {"type": "string", "enum": ["low", "medium", "high"], "description": "Detection sensitivity"}
				}
			}`),
		},
		{
			Name:        toolcheck.ToolPredictMonth,
			Description: "Projected total spending by the end of the current month",
			Parameters:  schema(`{"type": "object", "properties": {}}`),
		},
		{
			Name:        toolcheck.ToolCategoryTrends,
			Description: "Per-month spending totals by category",
			Parameters: schema(`{
				"type": "object",
				"properties": {
					"months": {"type": "integer", "description": "How many recent months to include"}
				}
			}`),
		},
		{
			Name:        toolcheck.ToolSearchExpenses,
			Description: "Find expenses matching a text query, ranked by relevance",
			Parameters: schema(`{
				"type": "object",
				"properties": {
					"query": {"type": "string", "description": "Text to search for"}
				},
				"required": ["query"]
			}`),
		},
	}
}

// Execute dispatches one tool call. Unknown tools and bad arguments are
// errors; the engine converts them into failure payloads.
func (e *Executor) Execute(ctx context.Context, ownerID string, call llm.ToolCall) (toolcheck.ToolResult, error) {
	switch call.Name {
	case toolcheck.ToolSpendingPatterns:
		return e.spendingPatterns(ctx, ownerID, call.Arguments)
	case toolcheck.ToolBudgetStatus:
		return e.budgetStatus(ctx, ownerID)
	case toolcheck.ToolDetectAnomalies:
		return e.detectAnomalies(ctx, ownerID, call.Arguments)
	case toolcheck.ToolPredictMonth:
		return e.predictMonth(ctx, ownerID)
	case toolcheck.ToolCategoryTrends:
		return e.categoryTrends(ctx, ownerID, call.Arguments)
	case toolcheck.ToolSearchExpenses:
		return e.searchExpenses(ctx, ownerID, call.Arguments)
	default:
		return nil, fmt.Errorf("unknown tool %q", call.Name)
	}
}

func periodBounds(now time.Time, period string) (time.Time, time.Time, error) {
	switch period {
	case "week":
		return now.AddDate(0, 0, -7), now, nil
	case "month", "":
		return now.AddDate(0, -1, 0), now, nil
	case "quarter":
		return now.AddDate(0, -3, 0), now, nil
	default:
		return time.Time{}, time.Time{}, fmt.Errorf("unknown period %q", period)
	}
}

func (e *Executor) spendingPatterns(ctx context.Context, ownerID string, args json.RawMessage) (toolcheck.ToolResult, error) {
	var params struct {
		Period string `json:"period"`
	}
	if len(args) > 0 {
		if err := json.Unmarshal(args, &params); err != nil {
			return nil, fmt.Errorf("invalid arguments: %w", err)
		}
	}

	now := e.now()
	from, to, err := periodBounds(now, params.Period)
	if err != nil {
		return nil, err
	}

	expenses, err := e.store.GetExpenses(ctx, ownerID, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to load expenses: %w", err)
	}

	var total float64
	byCategory := make(map[model.Category]float64)
	for _, expense := range expenses {
		total += expense.Amount
		byCategory[expense.Category] += expense.Amount
	}

	top, err := e.store.GetTopExpenses(ctx, ownerID, from, to, topExpenseCount)
	if err != nil {
		return nil, fmt.Errorf("failed to load top expenses: %w", err)
	}

	summaries := make([]toolcheck.ExpenseSummary, 0, len(top))
	for _, expense := range top {
		summaries = append(summaries, toolcheck.ExpenseSummary{
			Concept:  expense.Concept,
			Category: expense.Category,
			Date:     expense.Date.Format("2006-01-02"),
			Amount:   expense.Amount,
		})
	}

	trend, trendPct := e.trendAgainstPrevious(ctx, ownerID, from, to, total)

	patterns := toolcheck.SpendingPatterns{
		PeriodStart:      from.Format("2006-01-02"),
		PeriodEnd:        to.Format("2006-01-02"),
		Trend:            trend,
		TrendPct:         trendPct,
		TopExpenses:      summaries,
		TotalAmount:      total,
		TransactionCount: len(expenses),
		Insights:         spendingInsights(byCategory, total),
	}
	return patterns, nil
}

// trendAgainstPrevious compares the period total against the preceding
// period of equal length. No previous data means a stable trend.
func (e *Executor) trendAgainstPrevious(ctx context.Context, ownerID string, from, to time.Time, total float64) (string, float64) {
	length := to.Sub(from)
	previous, err := e.store.GetExpenses(ctx, ownerID, from.Add(-length), from)
	if err != nil {
		e.logger.Warn("previous period lookup failed, reporting stable trend",
			"owner", ownerID, "error", err)
		return "stable", 0
	}

	var previousTotal float64
	for _, expense := range previous {
		previousTotal += expense.Amount
	}
	if previousTotal == 0 {
		return "stable", 0
	}

	pct := (total - previousTotal) / previousTotal * 100
	switch {
	case pct > 5:
		return "increasing", pct
	case pct < -5:
		return "decreasing", pct
	default:
		return "stable", pct
	}
}

func spendingInsights(byCategory map[model.Category]float64, total float64) []string {
	if total == 0 {
		return nil
	}

	var top model.Category
	var topAmount float64
	for _, category := range model.Categories() {
		if byCategory[category] > topAmount {
			top = category
			topAmount = byCategory[category]
		}
	}

	return []string{fmt.Sprintf("%s is the largest category at %.1f%% of spending",
		top, topAmount/total*100)}
}

func (e *Executor) budgetStatus(ctx context.Context, ownerID string) (toolcheck.ToolResult, error) {
	budgets, err := e.store.GetBudgets(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("failed to load budgets: %w", err)
	}

	now := e.now()
	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
	summary, err := e.store.GetCategorySummary(ctx, ownerID, monthStart, now)
	if err != nil {
		return nil, fmt.Errorf("failed to load spending summary: %w", err)
	}

	status := toolcheck.BudgetStatus{Status: "safe"}
	for _, category := range model.Categories() {
		budget, ok := budgets[category]
		if !ok {
			continue
		}
		spent := summary[category]
		pct := 0.0
		if budget > 0 {
			pct = spent / budget * 100
		}

		status.Categories = append(status.Categories, toolcheck.CategoryBudget{
			Category: category,
			Budget:   budget,
			Spent:    spent,
			Pct:      pct,
		})
		status.TotalBudget += budget
		status.TotalSpent += spent

		switch {
		case pct > 100 && status.Status != "exceeded":
			status.Status = "exceeded"
		case pct >= 80 && status.Status == "safe":
			status.Status = "warning"
		}
	}
	status.Remaining = status.TotalBudget - status.TotalSpent
	return status, nil
}

func (e *Executor) detectAnomalies(ctx context.Context, ownerID string, args json.RawMessage) (toolcheck.ToolResult, error) {
	var params struct {
		Sensitivity string `json:"sensitivity"`
	}
	if len(args) > 0 {
		if err := json.Unmarshal(args, &params); err != nil {
			return nil, fmt.Errorf("invalid arguments: %w", err)
		}
	}

	sensitivity := e.opts.AnomalySensitivity
	if params.Sensitivity != "" {
		sensitivity = anomaly.Sensitivity(params.Sensitivity)
	}

	now := e.now()
	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())

	current, err := e.store.GetExpenses(ctx, ownerID, monthStart, now)
	if err != nil {
		return nil, fmt.Errorf("failed to load current expenses: %w", err)
	}
	historical, err := e.store.GetExpenses(ctx, ownerID, monthStart.AddDate(0, -3, 0), monthStart)
	if err != nil {
		return nil, fmt.Errorf("failed to load historical expenses: %w", err)
	}

	result := anomaly.Detect(current, historical, sensitivity)
	report := toolcheck.AnomalyReport{
		Message:         result.Message,
		Anomalies:       result.Anomalies,
		HistoricalCount: result.HistoricalCount,
	}
	return report, nil
}

func (e *Executor) predictMonth(ctx context.Context, ownerID string) (toolcheck.ToolResult, error) {
	now := e.now()
	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
	monthEnd := monthStart.AddDate(0, 1, 0)

	expenses, err := e.store.GetExpenses(ctx, ownerID, monthStart, now)
	if err != nil {
		return nil, fmt.Errorf("failed to load expenses: %w", err)
	}

	var spent float64
	for _, expense := range expenses {
		spent += expense.Amount
	}

	daysElapsed := now.Day()
	daysRemaining := int(monthEnd.Sub(now).Hours() / 24)
	dailyAverage := spent / float64(daysElapsed)

	confidence := "high"
	switch {
	case len(expenses) < 10 || daysElapsed < 5:
		confidence = "low"
	case daysElapsed < 15:
		confidence = "medium"
	}

	prediction := toolcheck.Prediction{
		Confidence:     confidence,
		SpentSoFar:     spent,
		DailyAverage:   dailyAverage,
		DaysRemaining:  daysRemaining,
		ProjectedTotal: spent + dailyAverage*float64(daysRemaining),
	}
	return prediction, nil
}

func (e *Executor) categoryTrends(ctx context.Context, ownerID string, args json.RawMessage) (toolcheck.ToolResult, error) {
	var params struct {
		Months int `json:"months"`
	}
	if len(args) > 0 {
		if err := json.Unmarshal(args, &params); err != nil {
			return nil, fmt.Errorf("invalid arguments: %w", err)
		}
	}
	if params.Months <= 0 {
		params.Months = 6
	}

	totals, err := e.store.GetMonthlyTotals(ctx, ownerID, params.Months)
	if err != nil {
		return nil, fmt.Errorf("failed to load monthly totals: %w", err)
	}
	if totals == nil {
		// An empty history is a disclosed limitation, not missing data.
		totals = []model.MonthTotal{}
	}

	trends := toolcheck.CategoryTrends{Months: params.Months, Data: totals}
	return trends, nil
}

// searchExpenses finds matching expenses and ranks them: text match from the
// store, confidence from the reranker, then the user's (and optionally the
// crowd's) feedback filters and boosts the result.
func (e *Executor) searchExpenses(ctx context.Context, ownerID string, args json.RawMessage) (toolcheck.ToolResult, error) {
	var params struct {
		Query string `json:"query"`
	}
	if err := json.Unmarshal(args, &params); err != nil {
		return nil, fmt.Errorf("invalid arguments: %w", err)
	}
	if strings.TrimSpace(params.Query) == "" {
		return nil, fmt.Errorf("query must not be empty")
	}

	matches, err := e.searchCandidates(ctx, ownerID, params.Query)
	if err != nil {
		return nil, err
	}

	expected, _ := intent.Infer(params.Query)

	results := make([]model.ConfidenceResult, 0, len(matches))
	for _, expense := range matches {
		results = append(results, model.ConfidenceResult{
			Expense:    expense,
			Similarity: querySimilarity(params.Query, expense.Concept),
		})
	}
	results = e.reranker.Rerank(results, expected)

	if e.feedback != nil {
		var verdicts learning.Verdicts
		if e.opts.UseHybridFeedback {
			verdicts = e.feedback.HybridVerdicts(ctx, ownerID, params.Query)
		} else {
			verdicts = e.feedback.PersonalVerdicts(ctx, ownerID, params.Query)
		}
		results = e.feedback.Apply(verdicts, results)
	}

	search := toolcheck.SearchResults{Query: params.Query, Results: results}
	return search, nil
}

// searchCandidates gathers matches for the full query plus, when one is
// identifiable, the extracted merchant token. The merchant pass catches
// expenses phrased differently from the query.
func (e *Executor) searchCandidates(ctx context.Context, ownerID, query string) ([]model.Expense, error) {
	matches, err := e.store.SearchExpenses(ctx, ownerID, query, e.opts.SearchLimit)
	if err != nil {
		return nil, fmt.Errorf("failed to search expenses: %w", err)
	}

	seen := make(map[int64]bool, len(matches))
	for _, expense := range matches {
		seen[expense.ID] = true
	}

	if extraction := merchant.Extract(query); extraction.Found() && extraction.Merchant != strings.ToLower(query) {
		extra, err := e.store.SearchExpenses(ctx, ownerID, extraction.Merchant, e.opts.SearchLimit)
		if err != nil {
			e.logger.Warn("merchant search pass failed, using direct matches only",
				"owner", ownerID, "merchant", extraction.Merchant, "error", err)
		} else {
			for _, expense := range extra {
				if !seen[expense.ID] {
					seen[expense.ID] = true
					matches = append(matches, expense)
				}
			}
		}
	}
	return matches, nil
}

// querySimilarity scores how much of the query's useful tokens appear in the
// concept. Full coverage scores 1.0.
func querySimilarity(query, concept string) float64 {
	conceptLower := strings.ToLower(concept)
	tokens := strings.Fields(strings.ToLower(query))

	var useful, hits int
	for _, token := range tokens {
		if len(token) < 3 {
			continue
		}
		useful++
		if strings.Contains(conceptLower, token) {
			hits++
		}
	}
	if useful == 0 {
		return 0.5
	}
	return float64(hits) / float64(useful)
}
