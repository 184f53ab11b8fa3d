// Package toolcheck validates tool outputs before they reach the language model.
//
// Tool payloads form a closed tagged union: one struct per tool, each
// implementing ToolResult. The validator dispatches on the concrete type, so
// a new tool cannot be added without deciding how to check it.
package toolcheck

import (
	"github.com/jmvallecillo/kakebo-advisor/internal/model"
)

// Tool names as exposed in the model's tool catalogue.
const (
	ToolSpendingPatterns = "analyze_spending_patterns"
	ToolBudgetStatus     = "get_budget_status"
	ToolDetectAnomalies  = "detect_anomalies"
	ToolPredictMonth     = "predict_end_of_month"
	ToolCategoryTrends   = "get_category_trends"
	ToolSearchExpenses   = "search_expenses"
)

// ToolResult is implemented by every tool payload variant.
type ToolResult interface {
	ToolName() string
}

// ExpenseSummary is a compact expense line inside a tool payload.
type ExpenseSummary struct {
	Concept  string         `json:"concept"`
	Category model.Category `json:"category"`
	Date     string         `json:"date"`
	Amount   float64        `json:"amount"`
}

// SpendingPatterns reports totals and trend for a period.
type SpendingPatterns struct {
	PeriodStart      string           `json:"periodStart"`
	PeriodEnd        string           `json:"periodEnd"`
	Trend            string           `json:"trend"` // increasing | decreasing | stable
	Insights         []string         `json:"insights"`
	TopExpenses      []ExpenseSummary `json:"topExpenses"`
	TotalAmount      float64          `json:"totalAmount"`
	TrendPct         float64          `json:"trendPct"`
	TransactionCount int              `json:"transactionCount"`
}

// ToolName implements ToolResult.
func (SpendingPatterns) ToolName() string { return ToolSpendingPatterns }

// CategoryBudget is one category line of a budget status.
type CategoryBudget struct {
	Category model.Category `json:"category"`
	Budget   float64        `json:"budget"`
	Spent    float64        `json:"spent"`
	Pct      float64        `json:"pct"`
}

// BudgetStatus reports budget consumption per category.
type BudgetStatus struct {
	Status      string           `json:"status"` // safe | warning | exceeded
	Categories  []CategoryBudget `json:"categories"`
	TotalBudget float64          `json:"totalBudget"`
	TotalSpent  float64          `json:"totalSpent"`
	Remaining   float64          `json:"remaining"`
}

// ToolName implements ToolResult.
func (BudgetStatus) ToolName() string { return ToolBudgetStatus }

// AnomalyReport wraps the detector output for the model.
type AnomalyReport struct {
	Message         string          `json:"message"`
	Anomalies       []model.Anomaly `json:"anomalies"`
	HistoricalCount int             `json:"historicalCount"`
}

// ToolName implements ToolResult.
func (AnomalyReport) ToolName() string { return ToolDetectAnomalies }

// Prediction is the projected end-of-month spend.
type Prediction struct {
	Confidence     string  `json:"confidence"` // low | medium | high
	ProjectedTotal float64 `json:"projectedTotal"`
	SpentSoFar     float64 `json:"spentSoFar"`
	DailyAverage   float64 `json:"dailyAverage"`
	DaysRemaining  int     `json:"daysRemaining"`
}

// ToolName implements ToolResult.
func (Prediction) ToolName() string { return ToolPredictMonth }

// CategoryTrends reports per-month category totals.
type CategoryTrends struct {
	Data   []model.MonthTotal `json:"data"`
	Months int                `json:"months"`
}

// ToolName implements ToolResult.
func (CategoryTrends) ToolName() string { return ToolCategoryTrends }

// SearchResults carries reranked, feedback-adjusted expense matches.
type SearchResults struct {
	Query   string                   `json:"query"`
	Results []model.ConfidenceResult `json:"results"`
}

// ToolName implements ToolResult.
func (SearchResults) ToolName() string { return ToolSearchExpenses }
