package model

// AnomalyReason identifies why an expense was flagged.
type AnomalyReason string

// Anomaly reasons.
const (
	ReasonUnusuallyHighAmount AnomalyReason = "unusually_high_amount"
	ReasonRareCategory        AnomalyReason = "rare_category"
	ReasonUnusualTiming       AnomalyReason = "unusual_timing"
)

// Severity grades how far an expense deviates from its baseline.
type Severity string

// Severity levels, ordered low to high.
const (
	SeverityLow    Severity = "low"
	SeverityMedium Severity = "medium"
	SeverityHigh   Severity = "high"
)

// Rank returns an ordinal for sorting, higher is more severe.
func (s Severity) Rank() int {
	switch s {
	case SeverityHigh:
		return 3
	case SeverityMedium:
		return 2
	case SeverityLow:
		return 1
	}
	return 0
}

// Valid reports whether s is a known severity.
func (s Severity) Valid() bool {
	return s.Rank() > 0
}

// Anomaly is a derived deviation flag. Anomalies are computed per request
// and never persisted.
type Anomaly struct {
	Reason            AnomalyReason
	Severity          Severity
	Expense           Expense
	HistoricalAverage float64
	DeviationPct      float64
}
