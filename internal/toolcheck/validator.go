package toolcheck

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Report is the validator verdict for one tool payload.
type Report struct {
	Errors   []string
	Warnings []string
	Valid    bool
}

// Config holds the validation policy knobs. The tolerance has no documented
// derivation; it is policy, so it lives in config rather than in the checks.
type Config struct {
	// TolerancePct is the allowed reconciliation slack between a reported
	// total and the sum of its parts, in percent.
	TolerancePct float64
	// PctWarnThreshold flags absurd per-category percentages.
	PctWarnThreshold float64
	// MaxPlausibleAmount flags predictions beyond any household budget.
	MaxPlausibleAmount float64
	// MaxAnomalies warns when a report is too noisy to be useful.
	MaxAnomalies int
	// ExtremeDeviationPct warns on deviation percentages that suggest a
	// computation bug rather than real spending.
	ExtremeDeviationPct float64
}

// DefaultConfig returns the standard validation policy.
func DefaultConfig() Config {
	return Config{
		TolerancePct:        5,
		PctWarnThreshold:    500,
		MaxPlausibleAmount:  1_000_000,
		MaxAnomalies:        20,
		ExtremeDeviationPct: 1000,
	}
}

// Validator checks tool payloads for structural and numeric consistency.
type Validator struct {
	cfg Config
}

// NewValidator creates a validator with the given policy.
func NewValidator(cfg Config) *Validator {
	if cfg.TolerancePct <= 0 {
		cfg = DefaultConfig()
	}
	return &Validator{cfg: cfg}
}

// Validate dispatches to the check for the payload's concrete type.
// Unknown payload types pass: only tools with a registered variant carry
// numeric claims worth guarding.
func (v *Validator) Validate(result ToolResult) Report {
	var r Report
	switch p := result.(type) {
	case SpendingPatterns:
		r = v.checkSpendingPatterns(p)
	case *SpendingPatterns:
		r = v.checkSpendingPatterns(*p)
	case BudgetStatus:
		r = v.checkBudgetStatus(p)
	case *BudgetStatus:
		r = v.checkBudgetStatus(*p)
	case AnomalyReport:
		r = v.checkAnomalyReport(p)
	case *AnomalyReport:
		r = v.checkAnomalyReport(*p)
	case Prediction:
		r = v.checkPrediction(p)
	case *Prediction:
		r = v.checkPrediction(*p)
	case CategoryTrends:
		r = v.checkCategoryTrends(p)
	case *CategoryTrends:
		r = v.checkCategoryTrends(*p)
	default:
		r = Report{}
	}
	r.Valid = len(r.Errors) == 0
	return r
}

func (v *Validator) checkSpendingPatterns(p SpendingPatterns) Report {
	var r Report

	if p.TotalAmount < 0 {
		r.Errors = append(r.Errors, fmt.Sprintf("totalAmount must be non-negative, got %.2f", p.TotalAmount))
	}
	if p.TransactionCount < 0 {
		r.Errors = append(r.Errors, fmt.Sprintf("transactionCount must be non-negative, got %d", p.TransactionCount))
	}

	switch p.Trend {
	case "increasing", "decreasing", "stable":
	default:
		r.Errors = append(r.Errors, fmt.Sprintf("trend must be increasing, decreasing or stable, got %q", p.Trend))
	}

	// The reported top expenses must reconcile with the total. Decimal sums
	// keep the 5% comparison exact across many small amounts.
	topSum := decimal.Zero
	for _, e := range p.TopExpenses {
		if e.Amount < 0 {
			r.Errors = append(r.Errors, fmt.Sprintf("top expense %q has negative amount %.2f", e.Concept, e.Amount))
		}
		topSum = topSum.Add(decimal.NewFromFloat(e.Amount))
	}
	if p.TotalAmount >= 0 {
		limit := decimal.NewFromFloat(p.TotalAmount).
			Mul(decimal.NewFromFloat(1 + v.cfg.TolerancePct/100))
		if topSum.GreaterThan(limit) {
			r.Errors = append(r.Errors, fmt.Sprintf(
				"sum of top expenses (%.2f) exceeds totalAmount (%.2f) by more than %.0f%%",
				topSum.InexactFloat64(), p.TotalAmount, v.cfg.TolerancePct))
		}
	}

	if p.TotalAmount == 0 && len(p.Insights) == 0 {
		r.Warnings = append(r.Warnings, "totalAmount is zero with no insights; the period may have no data")
	}
	if p.TrendPct > v.cfg.PctWarnThreshold || p.TrendPct < -v.cfg.PctWarnThreshold {
		r.Warnings = append(r.Warnings, fmt.Sprintf("trend percentage %.1f%% looks extreme", p.TrendPct))
	}

	return r
}

func (v *Validator) checkBudgetStatus(p BudgetStatus) Report {
	var r Report

	if p.TotalBudget < 0 {
		r.Errors = append(r.Errors, fmt.Sprintf("totalBudget must be non-negative, got %.2f", p.TotalBudget))
	}
	if p.TotalSpent < 0 {
		r.Errors = append(r.Errors, fmt.Sprintf("totalSpent must be non-negative, got %.2f", p.TotalSpent))
	}

	switch p.Status {
	case "safe", "warning", "exceeded":
	default:
		r.Errors = append(r.Errors, fmt.Sprintf("status must be safe, warning or exceeded, got %q", p.Status))
	}

	spentSum := decimal.Zero
	for _, c := range p.Categories {
		if c.Spent < 0 {
			r.Errors = append(r.Errors, fmt.Sprintf("category %s has negative spent %.2f", c.Category, c.Spent))
		}
		spentSum = spentSum.Add(decimal.NewFromFloat(c.Spent))

		if c.Pct > v.cfg.PctWarnThreshold {
			r.Warnings = append(r.Warnings, fmt.Sprintf("category %s at %.0f%% of budget looks implausible", c.Category, c.Pct))
		}
		if c.Budget > 0 && c.Spent > 3*c.Budget {
			r.Warnings = append(r.Warnings, fmt.Sprintf("category %s spent %.2f, more than 3x its budget %.2f", c.Category, c.Spent, c.Budget))
		}
	}

	// Per-category sums must reconcile with totalSpent within tolerance.
	if len(p.Categories) > 0 && p.TotalSpent >= 0 {
		total := decimal.NewFromFloat(p.TotalSpent)
		tolerance := total.Abs().Mul(decimal.NewFromFloat(v.cfg.TolerancePct / 100))
		if spentSum.Sub(total).Abs().GreaterThan(tolerance) {
			r.Errors = append(r.Errors, fmt.Sprintf(
				"sum of category spending (%.2f) doesn't match totalSpent (%.2f) within %.0f%%",
				spentSum.InexactFloat64(), p.TotalSpent, v.cfg.TolerancePct))
		}
	}

	return r
}

func (v *Validator) checkAnomalyReport(p AnomalyReport) Report {
	var r Report

	for i, a := range p.Anomalies {
		if a.Expense.Amount <= 0 {
			r.Errors = append(r.Errors, fmt.Sprintf("anomaly %d has non-positive amount %.2f", i, a.Expense.Amount))
		}
		if !a.Severity.Valid() {
			r.Errors = append(r.Errors, fmt.Sprintf("anomaly %d has invalid severity %q", i, a.Severity))
		}
		if a.DeviationPct > v.cfg.ExtremeDeviationPct {
			r.Warnings = append(r.Warnings, fmt.Sprintf("anomaly %d deviation %.0f%% looks extreme", i, a.DeviationPct))
		}
	}
	if len(p.Anomalies) > v.cfg.MaxAnomalies {
		r.Warnings = append(r.Warnings, fmt.Sprintf("%d anomalies reported; the detector may be oversensitive", len(p.Anomalies)))
	}

	return r
}

func (v *Validator) checkPrediction(p Prediction) Report {
	var r Report

	if p.ProjectedTotal < 0 {
		r.Errors = append(r.Errors, fmt.Sprintf("projectedTotal must be non-negative, got %.2f", p.ProjectedTotal))
	}

	switch p.Confidence {
	case "low", "medium", "high":
	default:
		r.Warnings = append(r.Warnings, fmt.Sprintf("confidence %q is not a known level", p.Confidence))
	}
	if p.ProjectedTotal > v.cfg.MaxPlausibleAmount {
		r.Warnings = append(r.Warnings, fmt.Sprintf("projectedTotal %.2f is implausibly large", p.ProjectedTotal))
	}

	return r
}

func (v *Validator) checkCategoryTrends(p CategoryTrends) Report {
	var r Report

	if p.Data == nil {
		r.Errors = append(r.Errors, "trend data array is missing")
	} else if len(p.Data) == 0 {
		r.Warnings = append(r.Warnings, "trend data is empty; disclose that no trend information is available")
	}

	return r
}
