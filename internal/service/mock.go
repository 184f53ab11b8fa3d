package service

import (
	"context"
	"time"

	"github.com/jmvallecillo/kakebo-advisor/internal/model"
)

// MockStore is a configurable Store implementation for tests. Unset functions
// return zero values so tests only wire what they exercise.
type MockStore struct {
	GetExpensesFunc             func(ctx context.Context, ownerID string, from, to time.Time) ([]model.Expense, error)
	SearchExpensesFunc          func(ctx context.Context, ownerID, query string, limit int) ([]model.Expense, error)
	GetCategorySummaryFunc      func(ctx context.Context, ownerID string, from, to time.Time) (map[model.Category]float64, error)
	GetTopExpensesFunc          func(ctx context.Context, ownerID string, from, to time.Time, n int) ([]model.Expense, error)
	GetMonthlyTotalsFunc        func(ctx context.Context, ownerID string, months int) ([]model.MonthTotal, error)
	GetBudgetsFunc              func(ctx context.Context, ownerID string) (map[model.Category]float64, error)
	GetMerchantRuleFunc         func(ctx context.Context, ownerID, merchant string) (*model.MerchantRule, error)
	GetGlobalRuleFunc           func(ctx context.Context, merchant string) (*model.MerchantRule, error)
	UpsertMerchantRuleFunc      func(ctx context.Context, rule *model.MerchantRule) (bool, error)
	IncrementRuleVotesFunc      func(ctx context.Context, ruleID int64) error
	GetRuleStatsFunc            func(ctx context.Context, ownerID string, since time.Time) (RuleStats, error)
	SaveCorrectionExampleFunc   func(ctx context.Context, example *model.CorrectionExample) error
	GetRelevantExamplesFunc     func(ctx context.Context, ownerID string, category model.Category, minConfidence float64, limit int) ([]model.CorrectionExample, error)
	GetRecentExamplesFunc       func(ctx context.Context, ownerID string, minConfidence float64, limit int) ([]model.CorrectionExample, error)
	SearchExamplesByKeywordFunc func(ctx context.Context, ownerID string, keywords []string, minConfidence float64, limit int) ([]model.CorrectionExample, error)
	IncrementExampleUsageFunc   func(ctx context.Context, exampleID int64) error
	GetExampleStatsFunc         func(ctx context.Context, ownerID string) (ExampleStats, error)
	UpsertSearchFeedbackFunc    func(ctx context.Context, feedback *model.SearchFeedback) error
	GetFeedbackForQueryFunc     func(ctx context.Context, ownerID, query string) ([]model.SearchFeedback, error)
	GetGlobalFeedbackFunc       func(ctx context.Context, query string) ([]model.SearchFeedback, error)
	GetFeedbackStatsFunc        func(ctx context.Context, ownerID string, since time.Time) (FeedbackStats, error)
}

// GetExpenses implements Store.
func (m *MockStore) GetExpenses(ctx context.Context, ownerID string, from, to time.Time) ([]model.Expense, error) {
	if m.GetExpensesFunc != nil {
		return m.GetExpensesFunc(ctx, ownerID, from, to)
	}
	return nil, nil
}

// SearchExpenses implements Store.
func (m *MockStore) SearchExpenses(ctx context.Context, ownerID, query string, limit int) ([]model.Expense, error) {
	if m.SearchExpensesFunc != nil {
		return m.SearchExpensesFunc(ctx, ownerID, query, limit)
	}
	return nil, nil
}

// GetCategorySummary implements Store.
func (m *MockStore) GetCategorySummary(ctx context.Context, ownerID string, from, to time.Time) (map[model.Category]float64, error) {
	if m.GetCategorySummaryFunc != nil {
		return m.GetCategorySummaryFunc(ctx, ownerID, from, to)
	}
	return nil, nil
}

// GetTopExpenses implements Store.
func (m *MockStore) GetTopExpenses(ctx context.Context, ownerID string, from, to time.Time, n int) ([]model.Expense, error) {
	if m.GetTopExpensesFunc != nil {
		return m.GetTopExpensesFunc(ctx, ownerID, from, to, n)
	}
	return nil, nil
}

// GetMonthlyTotals implements Store.
func (m *MockStore) GetMonthlyTotals(ctx context.Context, ownerID string, months int) ([]model.MonthTotal, error) {
	if m.GetMonthlyTotalsFunc != nil {
		return m.GetMonthlyTotalsFunc(ctx, ownerID, months)
	}
	return nil, nil
}

// GetBudgets implements Store.
func (m *MockStore) GetBudgets(ctx context.Context, ownerID string) (map[model.Category]float64, error) {
	if m.GetBudgetsFunc != nil {
		return m.GetBudgetsFunc(ctx, ownerID)
	}
	return nil, nil
}

// GetMerchantRule implements Store.
func (m *MockStore) GetMerchantRule(ctx context.Context, ownerID, merchant string) (*model.MerchantRule, error) {
	if m.GetMerchantRuleFunc != nil {
		return m.GetMerchantRuleFunc(ctx, ownerID, merchant)
	}
	return nil, nil
}

// GetGlobalRule implements Store.
func (m *MockStore) GetGlobalRule(ctx context.Context, merchant string) (*model.MerchantRule, error) {
	if m.GetGlobalRuleFunc != nil {
		return m.GetGlobalRuleFunc(ctx, merchant)
	}
	return nil, nil
}

// UpsertMerchantRule implements Store.
func (m *MockStore) UpsertMerchantRule(ctx context.Context, rule *model.MerchantRule) (bool, error) {
	if m.UpsertMerchantRuleFunc != nil {
		return m.UpsertMerchantRuleFunc(ctx, rule)
	}
	return false, nil
}

// IncrementRuleVotes implements Store.
func (m *MockStore) IncrementRuleVotes(ctx context.Context, ruleID int64) error {
	if m.IncrementRuleVotesFunc != nil {
		return m.IncrementRuleVotesFunc(ctx, ruleID)
	}
	return nil
}

// GetRuleStats implements Store.
func (m *MockStore) GetRuleStats(ctx context.Context, ownerID string, since time.Time) (RuleStats, error) {
	if m.GetRuleStatsFunc != nil {
		return m.GetRuleStatsFunc(ctx, ownerID, since)
	}
	return RuleStats{}, nil
}

// SaveCorrectionExample implements Store.
func (m *MockStore) SaveCorrectionExample(ctx context.Context, example *model.CorrectionExample) error {
	if m.SaveCorrectionExampleFunc != nil {
		return m.SaveCorrectionExampleFunc(ctx, example)
	}
	return nil
}

// GetRelevantExamples implements Store.
func (m *MockStore) GetRelevantExamples(ctx context.Context, ownerID string, category model.Category, minConfidence float64, limit int) ([]model.CorrectionExample, error) {
	if m.GetRelevantExamplesFunc != nil {
		return m.GetRelevantExamplesFunc(ctx, ownerID, category, minConfidence, limit)
	}
	return nil, nil
}

// GetRecentExamples implements Store.
func (m *MockStore) GetRecentExamples(ctx context.Context, ownerID string, minConfidence float64, limit int) ([]model.CorrectionExample, error) {
	if m.GetRecentExamplesFunc != nil {
		return m.GetRecentExamplesFunc(ctx, ownerID, minConfidence, limit)
	}
	return nil, nil
}

// SearchExamplesByKeyword implements Store.
func (m *MockStore) SearchExamplesByKeyword(ctx context.Context, ownerID string, keywords []string, minConfidence float64, limit int) ([]model.CorrectionExample, error) {
	if m.SearchExamplesByKeywordFunc != nil {
		return m.SearchExamplesByKeywordFunc(ctx, ownerID, keywords, minConfidence, limit)
	}
	return nil, nil
}

// IncrementExampleUsage implements Store.
func (m *MockStore) IncrementExampleUsage(ctx context.Context, exampleID int64) error {
	if m.IncrementExampleUsageFunc != nil {
		return m.IncrementExampleUsageFunc(ctx, exampleID)
	}
	return nil
}

// GetExampleStats implements Store.
func (m *MockStore) GetExampleStats(ctx context.Context, ownerID string) (ExampleStats, error) {
	if m.GetExampleStatsFunc != nil {
		return m.GetExampleStatsFunc(ctx, ownerID)
	}
	return ExampleStats{}, nil
}

// UpsertSearchFeedback implements Store.
func (m *MockStore) UpsertSearchFeedback(ctx context.Context, feedback *model.SearchFeedback) error {
	if m.UpsertSearchFeedbackFunc != nil {
		return m.UpsertSearchFeedbackFunc(ctx, feedback)
	}
	return nil
}

// GetFeedbackForQuery implements Store.
func (m *MockStore) GetFeedbackForQuery(ctx context.Context, ownerID, query string) ([]model.SearchFeedback, error) {
	if m.GetFeedbackForQueryFunc != nil {
		return m.GetFeedbackForQueryFunc(ctx, ownerID, query)
	}
	return nil, nil
}

// GetGlobalFeedback implements Store.
func (m *MockStore) GetGlobalFeedback(ctx context.Context, query string) ([]model.SearchFeedback, error) {
	if m.GetGlobalFeedbackFunc != nil {
		return m.GetGlobalFeedbackFunc(ctx, query)
	}
	return nil, nil
}

// GetFeedbackStats implements Store.
func (m *MockStore) GetFeedbackStats(ctx context.Context, ownerID string, since time.Time) (FeedbackStats, error) {
	if m.GetFeedbackStatsFunc != nil {
		return m.GetFeedbackStatsFunc(ctx, ownerID, since)
	}
	return FeedbackStats{}, nil
}
