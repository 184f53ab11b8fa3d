package learning

import (
	"context"
	"log/slog"
	"math"
	"time"

	"github.com/jmvallecillo/kakebo-advisor/internal/service"
)

// Trend direction for the weekly rule velocity.
const (
	TrendImproving = "improving"
	TrendStable    = "stable"
	TrendDeclining = "declining"
)

// metricsWindowDays is the rolling window for all three sub-aggregations.
const metricsWindowDays = 14

// highConfidenceFloor marks a rule as high-confidence.
const highConfidenceFloor = 0.9

// Composite score weights and saturation points.
const (
	ruleWeight      = 0.40
	precisionWeight = 0.35
	usageWeight     = 0.25
	ruleSaturation  = 10
	usageSaturation = 20
)

// RuleMetrics summarizes merchant-rule health.
type RuleMetrics struct {
	Trend          string
	Total          int
	HighConfidence int
	AvgConfidence  float64
}

// ExampleMetrics summarizes correction-example usage.
type ExampleMetrics struct {
	TopMisclassifications []service.MisclassificationPair
	Total                 int
	TotalUsages           int
	AvgUsages             float64
}

// FeedbackMetrics summarizes search-feedback precision.
type FeedbackMetrics struct {
	TopIncorrectQueries []service.QueryCount
	Total               int
	Correct             int
	Incorrect           int
	Precision           float64
}

// Snapshot is the aggregated learning health for one user.
type Snapshot struct {
	Rules    RuleMetrics
	Examples ExampleMetrics
	Feedback FeedbackMetrics
	Score    int
}

// MetricsAggregator computes learning health over a rolling window. Each of
// the three sections is fault-isolated: a failing store query degrades that
// section to a neutral default, and the composite score still computes.
type MetricsAggregator struct {
	store  service.Store
	logger *slog.Logger
	now    func() time.Time
}

// NewMetricsAggregator creates an aggregator backed by the store.
func NewMetricsAggregator(store service.Store, logger *slog.Logger) *MetricsAggregator {
	if logger == nil {
		logger = slog.Default()
	}
	return &MetricsAggregator{store: store, logger: logger, now: time.Now}
}

// Aggregate builds the learning snapshot for a user.
func (a *MetricsAggregator) Aggregate(ctx context.Context, ownerID string) Snapshot {
	since := a.now().AddDate(0, 0, -metricsWindowDays)

	snapshot := Snapshot{
		Rules:    a.ruleMetrics(ctx, ownerID, since),
		Examples: a.exampleMetrics(ctx, ownerID),
		Feedback: a.feedbackMetrics(ctx, ownerID, since),
	}
	snapshot.Score = compositeScore(snapshot.Rules.Total, snapshot.Feedback.Precision, snapshot.Examples.TotalUsages)
	return snapshot
}

func (a *MetricsAggregator) ruleMetrics(ctx context.Context, ownerID string, since time.Time) RuleMetrics {
	stats, err := a.store.GetRuleStats(ctx, ownerID, since)
	if err != nil {
		a.logger.Warn("rule metrics unavailable, using neutral defaults",
			"owner", ownerID, "error", err)
		return RuleMetrics{Trend: TrendStable}
	}

	trend := TrendStable
	switch {
	case stats.CreatedThisWeek > stats.CreatedLastWeek:
		trend = TrendImproving
	case stats.CreatedThisWeek < stats.CreatedLastWeek:
		trend = TrendDeclining
	}

	return RuleMetrics{
		Total:          stats.Total,
		HighConfidence: stats.HighConfidence,
		AvgConfidence:  stats.AvgConfidence,
		Trend:          trend,
	}
}

func (a *MetricsAggregator) exampleMetrics(ctx context.Context, ownerID string) ExampleMetrics {
	stats, err := a.store.GetExampleStats(ctx, ownerID)
	if err != nil {
		a.logger.Warn("example metrics unavailable, using neutral defaults",
			"owner", ownerID, "error", err)
		return ExampleMetrics{}
	}

	avg := 0.0
	if stats.Total > 0 {
		avg = float64(stats.TotalUsages) / float64(stats.Total)
	}

	return ExampleMetrics{
		Total:                 stats.Total,
		TotalUsages:           stats.TotalUsages,
		AvgUsages:             avg,
		TopMisclassifications: stats.Pairs,
	}
}

func (a *MetricsAggregator) feedbackMetrics(ctx context.Context, ownerID string, since time.Time) FeedbackMetrics {
	stats, err := a.store.GetFeedbackStats(ctx, ownerID, since)
	if err != nil {
		a.logger.Warn("feedback metrics unavailable, using neutral defaults",
			"owner", ownerID, "error", err)
		return FeedbackMetrics{Precision: 100}
	}

	// No data means nothing has been wrong yet; precision defaults to 100.
	precision := 100.0
	if stats.Total > 0 {
		precision = float64(stats.Correct) / float64(stats.Total) * 100
	}

	return FeedbackMetrics{
		Total:               stats.Total,
		Correct:             stats.Correct,
		Incorrect:           stats.Incorrect,
		Precision:           precision,
		TopIncorrectQueries: stats.TopIncorrectQueries,
	}
}

// compositeScore blends rule volume, feedback precision and example usage
// into a 0-100 health score.
func compositeScore(ruleTotal int, precision float64, totalUsages int) int {
	ruleComponent := math.Min(float64(ruleTotal)/ruleSaturation, 1) * 100
	usageComponent := math.Min(float64(totalUsages)/usageSaturation, 1) * 100
	score := ruleWeight*ruleComponent + precisionWeight*precision + usageWeight*usageComponent
	return int(math.Round(score))
}
