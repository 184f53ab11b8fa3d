package learning

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jmvallecillo/kakebo-advisor/internal/model"
	"github.com/jmvallecillo/kakebo-advisor/internal/service"
	"github.com/stretchr/testify/assert"
)

func TestCompositeScore(t *testing.T) {
	tests := []struct {
		name        string
		ruleTotal   int
		precision   float64
		totalUsages int
		want        int
	}{
		{"nothing learned yet", 0, 100, 0, 35},
		{"both saturations reached", 10, 100, 20, 100},
		{"beyond saturation stays capped", 50, 100, 200, 100},
		{"half rules only", 5, 0, 0, 20},
		{"usage only", 0, 0, 10, 13},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := compositeScore(tt.ruleTotal, tt.precision, tt.totalUsages)
			assert.Equal(t, tt.want, got)
			assert.LessOrEqual(t, got, 100)
			assert.GreaterOrEqual(t, got, 0)
		})
	}
}

func TestAggregate_TrendDirection(t *testing.T) {
	tests := []struct {
		name     string
		thisWeek int
		lastWeek int
		want     string
	}{
		{"more rules this week", 5, 2, TrendImproving},
		{"fewer rules this week", 1, 4, TrendDeclining},
		{"same velocity", 3, 3, TrendStable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := &service.MockStore{
				GetRuleStatsFunc: func(_ context.Context, _ string, _ time.Time) (service.RuleStats, error) {
					return service.RuleStats{CreatedThisWeek: tt.thisWeek, CreatedLastWeek: tt.lastWeek}, nil
				},
			}

			snapshot := NewMetricsAggregator(store, nil).Aggregate(context.Background(), "user-1")
			assert.Equal(t, tt.want, snapshot.Rules.Trend)
		})
	}
}

func TestAggregate_SectionFaultIsolation(t *testing.T) {
	store := &service.MockStore{
		GetRuleStatsFunc: func(_ context.Context, _ string, _ time.Time) (service.RuleStats, error) {
			return service.RuleStats{}, errors.New("db locked")
		},
		GetExampleStatsFunc: func(_ context.Context, _ string) (service.ExampleStats, error) {
			return service.ExampleStats{Total: 4, TotalUsages: 8}, nil
		},
		GetFeedbackStatsFunc: func(_ context.Context, _ string, _ time.Time) (service.FeedbackStats, error) {
			return service.FeedbackStats{}, errors.New("db locked")
		},
	}

	snapshot := NewMetricsAggregator(store, nil).Aggregate(context.Background(), "user-1")

	assert.Equal(t, TrendStable, snapshot.Rules.Trend)
	assert.Zero(t, snapshot.Rules.Total)
	assert.Equal(t, 100.0, snapshot.Feedback.Precision, "no feedback data defaults precision to 100")
	assert.Equal(t, 8, snapshot.Examples.TotalUsages, "healthy sections still report")
	// 0 rules, 100 precision, 8 usages: 0 + 35 + 0.25*40 = 45
	assert.Equal(t, 45, snapshot.Score)
}

func TestAggregate_FullSnapshot(t *testing.T) {
	store := &service.MockStore{
		GetRuleStatsFunc: func(_ context.Context, _ string, _ time.Time) (service.RuleStats, error) {
			return service.RuleStats{Total: 12, HighConfidence: 9, AvgConfidence: 0.91, CreatedThisWeek: 4, CreatedLastWeek: 1}, nil
		},
		GetExampleStatsFunc: func(_ context.Context, _ string) (service.ExampleStats, error) {
			return service.ExampleStats{
				Total:       10,
				TotalUsages: 25,
				Pairs: []service.MisclassificationPair{
					{OldCategory: model.CategoryOptional, NewCategory: model.CategorySurvival, Count: 6},
				},
			}, nil
		},
		GetFeedbackStatsFunc: func(_ context.Context, _ string, _ time.Time) (service.FeedbackStats, error) {
			return service.FeedbackStats{Total: 20, Correct: 18, Incorrect: 2}, nil
		},
	}

	snapshot := NewMetricsAggregator(store, nil).Aggregate(context.Background(), "user-1")

	assert.Equal(t, TrendImproving, snapshot.Rules.Trend)
	assert.Equal(t, 12, snapshot.Rules.Total)
	assert.Equal(t, 2.5, snapshot.Examples.AvgUsages)
	assert.Equal(t, 90.0, snapshot.Feedback.Precision)
	// rules saturated (40) + 0.35*90 (31.5) + usages saturated (25) = 96.5 -> 97
	assert.Equal(t, 97, snapshot.Score)
	assert.Len(t, snapshot.Examples.TopMisclassifications, 1)
}
