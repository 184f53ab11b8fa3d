// Package service defines the interfaces between the core and its collaborators.
package service

import (
	"context"
	"time"

	"github.com/jmvallecillo/kakebo-advisor/internal/model"
)

// RetryOptions configures retry behavior for operations against remote services.
type RetryOptions struct {
	MaxAttempts  int
	InitialDelay time.Duration
	MaxDelay     time.Duration
	Multiplier   float64
}

// RuleStats summarizes merchant rules for the learning metrics window.
type RuleStats struct {
	Total           int
	HighConfidence  int
	AvgConfidence   float64
	CreatedThisWeek int
	CreatedLastWeek int
}

// MisclassificationPair counts how often one category was corrected to another.
type MisclassificationPair struct {
	OldCategory model.Category
	NewCategory model.Category
	Count       int
}

// ExampleStats summarizes stored correction examples.
type ExampleStats struct {
	Pairs       []MisclassificationPair
	Total       int
	TotalUsages int
}

// QueryCount pairs a search query with its incorrect-feedback count.
type QueryCount struct {
	Query string
	Count int
}

// FeedbackStats summarizes search feedback in a window.
type FeedbackStats struct {
	TopIncorrectQueries []QueryCount
	Total               int
	Correct             int
	Incorrect           int
}

// Store is the persistent collaborator. Implementations must make every
// write idempotent by unique key; concurrent corrections resolve
// last-write-wins at the store.
type Store interface {
	// Expenses.
	GetExpenses(ctx context.Context, ownerID string, from, to time.Time) ([]model.Expense, error)
	SearchExpenses(ctx context.Context, ownerID, query string, limit int) ([]model.Expense, error)
	GetCategorySummary(ctx context.Context, ownerID string, from, to time.Time) (map[model.Category]float64, error)
	GetTopExpenses(ctx context.Context, ownerID string, from, to time.Time, n int) ([]model.Expense, error)
	GetMonthlyTotals(ctx context.Context, ownerID string, months int) ([]model.MonthTotal, error)
	GetBudgets(ctx context.Context, ownerID string) (map[model.Category]float64, error)

	// Merchant rules.
	GetMerchantRule(ctx context.Context, ownerID, merchant string) (*model.MerchantRule, error)
	GetGlobalRule(ctx context.Context, merchant string) (*model.MerchantRule, error)
	UpsertMerchantRule(ctx context.Context, rule *model.MerchantRule) (created bool, err error)
	IncrementRuleVotes(ctx context.Context, ruleID int64) error
	GetRuleStats(ctx context.Context, ownerID string, since time.Time) (RuleStats, error)

	// Correction examples.
	SaveCorrectionExample(ctx context.Context, example *model.CorrectionExample) error
	GetRelevantExamples(ctx context.Context, ownerID string, category model.Category, minConfidence float64, limit int) ([]model.CorrectionExample, error)
	GetRecentExamples(ctx context.Context, ownerID string, minConfidence float64, limit int) ([]model.CorrectionExample, error)
	SearchExamplesByKeyword(ctx context.Context, ownerID string, keywords []string, minConfidence float64, limit int) ([]model.CorrectionExample, error)
	IncrementExampleUsage(ctx context.Context, exampleID int64) error
	GetExampleStats(ctx context.Context, ownerID string) (ExampleStats, error)

	// Search feedback.
	UpsertSearchFeedback(ctx context.Context, feedback *model.SearchFeedback) error
	GetFeedbackForQuery(ctx context.Context, ownerID, query string) ([]model.SearchFeedback, error)
	GetGlobalFeedback(ctx context.Context, query string) ([]model.SearchFeedback, error)
	GetFeedbackStats(ctx context.Context, ownerID string, since time.Time) (FeedbackStats, error)
}
