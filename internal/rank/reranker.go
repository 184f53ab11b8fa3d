// Package rank orders search results by a blended confidence score.
package rank

import (
	"math"
	"sort"
	"time"

	"github.com/jmvallecillo/kakebo-advisor/internal/model"
)

// Weights blend the three ranking signals. They are renormalized to sum to 1.
type Weights struct {
	Semantic      float64
	Recency       float64
	CategoryMatch float64
}

// DefaultWeights favors semantic similarity.
func DefaultWeights() Weights {
	return Weights{Semantic: 0.6, Recency: 0.2, CategoryMatch: 0.2}
}

// DefaultHalfLifeDays is the recency half-life: a result this old scores 0.5.
const DefaultHalfLifeDays = 30.0

const mismatchScore = 0.5

// Reranker computes blended confidences and sorts results.
type Reranker struct {
	now          func() time.Time
	weights      Weights
	halfLifeDays float64
}

// Option customizes a Reranker.
type Option func(*Reranker)

// WithWeights overrides the signal weights.
func WithWeights(w Weights) Option {
	return func(r *Reranker) { r.weights = w }
}

// WithHalfLife overrides the recency half-life in days.
func WithHalfLife(days float64) Option {
	return func(r *Reranker) { r.halfLifeDays = days }
}

// WithClock overrides the time source, for tests.
func WithClock(now func() time.Time) Option {
	return func(r *Reranker) { r.now = now }
}

// New creates a Reranker with defaults plus any options.
func New(opts ...Option) *Reranker {
	r := &Reranker{
		weights:      DefaultWeights(),
		halfLifeDays: DefaultHalfLifeDays,
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	r.weights = normalize(r.weights)
	if r.halfLifeDays <= 0 {
		r.halfLifeDays = DefaultHalfLifeDays
	}
	return r
}

// normalize rescales weights to sum to 1; a degenerate zero sum falls back
// to the defaults.
func normalize(w Weights) Weights {
	sum := w.Semantic + w.Recency + w.CategoryMatch
	if sum <= 0 {
		return DefaultWeights()
	}
	return Weights{
		Semantic:      w.Semantic / sum,
		Recency:       w.Recency / sum,
		CategoryMatch: w.CategoryMatch / sum,
	}
}

// Rerank scores each result and returns them sorted by confidence
// descending. Ties keep input order. Confidence is rounded to 3 decimals.
// expected is the inferred category set; nil means no inference was made
// and category match is neutral.
func (r *Reranker) Rerank(results []model.ConfidenceResult, expected []model.Category) []model.ConfidenceResult {
	out := make([]model.ConfidenceResult, len(results))
	copy(out, results)

	for i := range out {
		semantic := clamp01(out[i].Similarity)
		recency := r.Recency(out[i].Expense.Date)
		catMatch := categoryMatch(out[i].Expense.Category, expected)

		out[i].Signals = model.ConfidenceSignals{
			Semantic:      semantic,
			Recency:       recency,
			CategoryMatch: catMatch,
		}
		out[i].Confidence = round3(
			r.weights.Semantic*semantic +
				r.weights.Recency*recency +
				r.weights.CategoryMatch*catMatch)
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Confidence > out[j].Confidence
	})
	return out
}

// Recency maps a date to (0,1] with exponential half-life decay. Future
// dates clamp to 1.0.
func (r *Reranker) Recency(date time.Time) float64 {
	days := r.now().Sub(date).Hours() / 24
	if days <= 0 {
		return 1.0
	}
	return math.Exp(-math.Ln2 * days / r.halfLifeDays)
}

// categoryMatch is 1.0 when the expense category is in the expected set, or
// when no set was inferred; mismatches score 0.5 rather than 0 because the
// inference is a hint, not a filter.
func categoryMatch(cat model.Category, expected []model.Category) float64 {
	if len(expected) == 0 {
		return 1.0
	}
	for _, e := range expected {
		if e == cat {
			return 1.0
		}
	}
	return mismatchScore
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func round3(v float64) float64 {
	return math.Round(v*1000) / 1000
}
