package model

// ConfidenceSignals are the individual components behind a blended confidence.
type ConfidenceSignals struct {
	Semantic      float64
	Recency       float64
	CategoryMatch float64
}

// ConfidenceResult is a search result with its blended ranking confidence.
// Results are computed per request and never stored.
type ConfidenceResult struct {
	Expense    Expense
	Signals    ConfidenceSignals
	Similarity float64
	Confidence float64
}
