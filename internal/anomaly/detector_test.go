package anomaly

import (
	"fmt"
	"testing"
	"time"

	"github.com/jmvallecillo/kakebo-advisor/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func day(d int) time.Time {
	return time.Date(2026, 8, d, 12, 0, 0, 0, time.UTC)
}

// survivalHistory builds n survival expenses of the given amount.
func survivalHistory(n int, amount float64) []model.Expense {
	expenses := make([]model.Expense, n)
	for i := range expenses {
		expenses[i] = model.Expense{
			ID:       int64(1000 + i),
			Amount:   amount,
			Category: model.CategorySurvival,
			Date:     day(1 + i%28),
			Concept:  fmt.Sprintf("compra %d", i),
		}
	}
	return expenses
}

func TestDetect_InsufficientHistory(t *testing.T) {
	historical := survivalHistory(12, 20)
	current := []model.Expense{{ID: 1, Amount: 900, Category: model.CategorySurvival, Date: day(1)}}

	got := Detect(current, historical, SensitivityMedium)

	assert.Empty(t, got.Anomalies)
	assert.Equal(t, 12, got.HistoricalCount)
	assert.Contains(t, got.Message, "12 historical expenses")
	assert.Contains(t, got.Message, "at least 20")
}

func TestDetect_UnusuallyHighAmount(t *testing.T) {
	// 24 points at 20 with a little spread so sigma is small but non-zero.
	historical := survivalHistory(24, 20)
	historical[0].Amount = 22
	historical[1].Amount = 18

	current := []model.Expense{
		{ID: 1, Amount: 90, Category: model.CategorySurvival, Date: day(3), Concept: "marisco"},
		{ID: 2, Amount: 20, Category: model.CategorySurvival, Date: day(4), Concept: "pan"},
	}

	got := Detect(current, historical, SensitivityMedium)

	require.Len(t, got.Anomalies, 1)
	a := got.Anomalies[0]
	assert.Equal(t, int64(1), a.Expense.ID)
	assert.Equal(t, model.ReasonUnusuallyHighAmount, a.Reason)
	assert.Equal(t, model.SeverityHigh, a.Severity, "90 vs mean 20 is >200%% deviation")
	assert.InDelta(t, 20, a.HistoricalAverage, 0.2)
	assert.Greater(t, a.DeviationPct, 200.0)
}

func TestDetect_RareCategory(t *testing.T) {
	historical := survivalHistory(22, 20)
	// Two culture points only: rare, not enough for amount stats.
	historical = append(historical,
		model.Expense{ID: 900, Amount: 15, Category: model.CategoryCulture, Date: day(2)},
		model.Expense{ID: 901, Amount: 25, Category: model.CategoryCulture, Date: day(9)},
	)

	current := []model.Expense{
		{ID: 1, Amount: 30, Category: model.CategoryCulture, Date: day(12), Concept: "museo"},
	}

	got := Detect(current, historical, SensitivityMedium)

	require.Len(t, got.Anomalies, 1)
	assert.Equal(t, model.ReasonRareCategory, got.Anomalies[0].Reason)
	assert.Equal(t, model.SeverityMedium, got.Anomalies[0].Severity)
}

func TestDetect_RareCategoryBoundary(t *testing.T) {
	// Rare covers 1-4 historical points; amount stats need more than 5.
	// A category with exactly 4, 5 or 6 points sits on the boundary.
	tests := []struct {
		name        string
		points      int
		wantReasons []model.AnomalyReason
	}{
		{"four points is rare", 4, []model.AnomalyReason{model.ReasonRareCategory}},
		{"five points is neither rare nor baselined", 5, nil},
		{"six points uses amount stats", 6, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			historical := survivalHistory(22, 20)
			for i := 0; i < tt.points; i++ {
				historical = append(historical, model.Expense{
					ID: int64(910 + i), Amount: 15,
					Category: model.CategoryCulture, Date: day(1 + i),
				})
			}

			// 14 sits below the 15 baseline mean, so six points produce no
			// amount flag either.
			current := []model.Expense{
				{ID: 1, Amount: 14, Category: model.CategoryCulture, Date: day(12), Concept: "museo"},
			}

			got := Detect(current, historical, SensitivityMedium)

			var reasons []model.AnomalyReason
			for _, a := range got.Anomalies {
				reasons = append(reasons, a.Reason)
			}
			assert.Equal(t, tt.wantReasons, reasons)
		})
	}
}

func TestDetect_UnusualTiming(t *testing.T) {
	// Mean 60 with real spread so none of the current amounts trip the
	// deviation threshold.
	historical := make([]model.Expense, 30)
	for i := range historical {
		amount := 40.0
		if i%2 == 0 {
			amount = 80.0
		}
		historical[i] = model.Expense{
			ID: int64(1000 + i), Amount: amount,
			Category: model.CategorySurvival, Date: day(1 + i%28),
		}
	}

	// Three same-day expenses averaging above 50, none anomalous by amount.
	current := []model.Expense{
		{ID: 1, Amount: 60, Category: model.CategorySurvival, Date: day(15)},
		{ID: 2, Amount: 70, Category: model.CategorySurvival, Date: day(15)},
		{ID: 3, Amount: 55, Category: model.CategorySurvival, Date: day(15)},
	}

	got := Detect(current, historical, SensitivityLow)

	// At most the first two expenses on the day get flagged.
	require.Len(t, got.Anomalies, 2)
	for _, a := range got.Anomalies {
		assert.Equal(t, model.ReasonUnusualTiming, a.Reason)
		assert.Equal(t, model.SeverityLow, a.Severity)
		assert.Zero(t, a.HistoricalAverage, "timing flags carry no baseline figure")
	}
	assert.Equal(t, int64(1), got.Anomalies[0].Expense.ID)
	assert.Equal(t, int64(2), got.Anomalies[1].Expense.ID)
}

func TestDetect_SeveritySortAndSummary(t *testing.T) {
	historical := survivalHistory(25, 20)
	historical[0].Amount = 22
	historical[1].Amount = 18
	historical = append(historical,
		model.Expense{ID: 902, Amount: 10, Category: model.CategoryExtra, Date: day(1)},
	)

	current := []model.Expense{
		// Rare category first in input, medium severity.
		{ID: 1, Amount: 12, Category: model.CategoryExtra, Date: day(3)},
		// High severity amount anomaly second.
		{ID: 2, Amount: 120, Category: model.CategorySurvival, Date: day(5)},
	}

	got := Detect(current, historical, SensitivityMedium)

	require.Len(t, got.Anomalies, 2)
	assert.Equal(t, model.SeverityHigh, got.Anomalies[0].Severity)
	assert.Equal(t, model.SeverityMedium, got.Anomalies[1].Severity)
	assert.Contains(t, got.Message, "2 anomalies detected")
	assert.Contains(t, got.Message, "1 high")
	assert.Contains(t, got.Message, "1 medium")
}

func TestDetect_SensitivityMultipliers(t *testing.T) {
	// Baseline mean 20, sigma 2 (half the points at 18, half at 22).
	historical := make([]model.Expense, 24)
	for i := range historical {
		amount := 18.0
		if i%2 == 0 {
			amount = 22.0
		}
		historical[i] = model.Expense{
			ID: int64(2000 + i), Amount: amount,
			Category: model.CategorySurvival, Date: day(1 + i%28),
		}
	}

	// 25 is +2.5 sigma: flagged at high (1.5σ) and medium (2σ), not at low (3σ).
	current := []model.Expense{{ID: 1, Amount: 25, Category: model.CategorySurvival, Date: day(10)}}

	assert.Len(t, Detect(current, historical, SensitivityHigh).Anomalies, 1)
	assert.Len(t, Detect(current, historical, SensitivityMedium).Anomalies, 1)
	assert.Empty(t, Detect(current, historical, SensitivityLow).Anomalies)
}
