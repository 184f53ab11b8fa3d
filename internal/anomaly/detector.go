// Package anomaly flags expenses that deviate from a user's historical baseline.
package anomaly

import (
	"fmt"
	"math"
	"sort"

	"github.com/jmvallecillo/kakebo-advisor/internal/model"
)

// Sensitivity selects how aggressive the deviation threshold is.
type Sensitivity string

// Sensitivity levels and their sigma multipliers.
const (
	SensitivityLow    Sensitivity = "low"    // 3 sigma
	SensitivityMedium Sensitivity = "medium" // 2 sigma
	SensitivityHigh   Sensitivity = "high"   // 1.5 sigma
)

// MinHistory is the minimum number of historical expenses required before any
// anomaly can be reported. Below this the baseline is statistically useless
// and the detector must say so rather than report "no anomalies".
const MinHistory = 20

// minCategoryPoints is the minimum history a category needs before amount
// deviations are trusted. Categories with 1..minCategoryPoints-1 points are
// flagged as rare instead.
const minCategoryPoints = 5

// timingClusterSize and timingAvgFloor define the unusual-timing flag: a
// single day with timingClusterSize+ expenses averaging above the floor.
const (
	timingClusterSize = 3
	timingAvgFloor    = 50.0
	timingMaxFlags    = 2
)

// Result carries the detected anomalies plus a human-readable summary. When
// the baseline is too small the summary discloses that limitation explicitly.
type Result struct {
	Message         string
	Anomalies       []model.Anomaly
	HistoricalCount int
}

// categoryStats holds the per-category historical baseline.
type categoryStats struct {
	mean   float64
	stdDev float64
	count  int
}

// Detect compares current-period expenses against a historical baseline.
func Detect(current, historical []model.Expense, sensitivity Sensitivity) Result {
	if len(historical) < MinHistory {
		return Result{
			HistoricalCount: len(historical),
			Message: fmt.Sprintf(
				"not enough history to detect anomalies: %d historical expenses, at least %d required",
				len(historical), MinHistory),
		}
	}

	stats := baseline(historical)
	multiplier := sigmaMultiplier(sensitivity)

	var anomalies []model.Anomaly
	flagged := make(map[int64]bool)

	for _, exp := range current {
		st, ok := stats[exp.Category]
		if !ok {
			continue
		}

		if st.count > minCategoryPoints {
			threshold := st.mean + multiplier*st.stdDev
			if exp.Amount > threshold && st.mean > 0 {
				deviation := (exp.Amount - st.mean) / st.mean * 100
				anomalies = append(anomalies, model.Anomaly{
					Expense:           exp,
					Reason:            model.ReasonUnusuallyHighAmount,
					Severity:          amountSeverity(deviation),
					HistoricalAverage: st.mean,
					DeviationPct:      deviation,
				})
				flagged[exp.ID] = true
			}
		} else if st.count >= 1 && st.count < minCategoryPoints {
			deviation := 0.0
			if st.mean > 0 {
				deviation = (exp.Amount - st.mean) / st.mean * 100
			}
			anomalies = append(anomalies, model.Anomaly{
				Expense:           exp,
				Reason:            model.ReasonRareCategory,
				Severity:          model.SeverityMedium,
				HistoricalAverage: st.mean,
				DeviationPct:      deviation,
			})
			flagged[exp.ID] = true
		}
	}

	anomalies = append(anomalies, timingAnomalies(current, flagged)...)

	// Severity descending; input order breaks ties.
	sort.SliceStable(anomalies, func(i, j int) bool {
		return anomalies[i].Severity.Rank() > anomalies[j].Severity.Rank()
	})

	return Result{
		Anomalies:       anomalies,
		HistoricalCount: len(historical),
		Message:         summarize(anomalies),
	}
}

// baseline computes mean and population standard deviation per category.
func baseline(historical []model.Expense) map[model.Category]categoryStats {
	sums := make(map[model.Category]float64)
	counts := make(map[model.Category]int)
	for _, exp := range historical {
		sums[exp.Category] += exp.Amount
		counts[exp.Category]++
	}

	stats := make(map[model.Category]categoryStats, len(sums))
	for cat, count := range counts {
		mean := sums[cat] / float64(count)
		var sq float64
		for _, exp := range historical {
			if exp.Category == cat {
				d := exp.Amount - mean
				sq += d * d
			}
		}
		stats[cat] = categoryStats{
			mean:   mean,
			stdDev: math.Sqrt(sq / float64(count)),
			count:  count,
		}
	}
	return stats
}

// timingAnomalies flags days with an unusual cluster of spending. At most
// timingMaxFlags not-already-flagged expenses are reported per day.
func timingAnomalies(current []model.Expense, flagged map[int64]bool) []model.Anomaly {
	byDay := make(map[string][]model.Expense)
	var dayOrder []string
	for _, exp := range current {
		day := exp.Date.Format("2006-01-02")
		if _, seen := byDay[day]; !seen {
			dayOrder = append(dayOrder, day)
		}
		byDay[day] = append(byDay[day], exp)
	}

	var anomalies []model.Anomaly
	for _, day := range dayOrder {
		expenses := byDay[day]
		if len(expenses) < timingClusterSize {
			continue
		}
		var total float64
		for _, exp := range expenses {
			total += exp.Amount
		}
		avg := total / float64(len(expenses))
		if avg <= timingAvgFloor {
			continue
		}

		added := 0
		for _, exp := range expenses {
			if flagged[exp.ID] {
				continue
			}
			// Timing flags have no per-day baseline, so the historical
			// average stays zero.
			anomalies = append(anomalies, model.Anomaly{
				Expense:  exp,
				Reason:   model.ReasonUnusualTiming,
				Severity: model.SeverityLow,
			})
			flagged[exp.ID] = true
			added++
			if added == timingMaxFlags {
				break
			}
		}
	}
	return anomalies
}

func sigmaMultiplier(s Sensitivity) float64 {
	switch s {
	case SensitivityHigh:
		return 1.5
	case SensitivityMedium:
		return 2.0
	default:
		return 3.0
	}
}

func amountSeverity(deviationPct float64) model.Severity {
	switch {
	case deviationPct > 200:
		return model.SeverityHigh
	case deviationPct > 100:
		return model.SeverityMedium
	default:
		return model.SeverityLow
	}
}

func summarize(anomalies []model.Anomaly) string {
	if len(anomalies) == 0 {
		return "no anomalies detected"
	}
	counts := map[model.Severity]int{}
	for _, a := range anomalies {
		counts[a.Severity]++
	}
	return fmt.Sprintf("%d anomalies detected: %d high, %d medium, %d low",
		len(anomalies), counts[model.SeverityHigh], counts[model.SeverityMedium], counts[model.SeverityLow])
}
