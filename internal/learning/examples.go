package learning

import (
	"context"
	"log/slog"
	"strings"

	"github.com/jmvallecillo/kakebo-advisor/internal/model"
	"github.com/jmvallecillo/kakebo-advisor/internal/service"
)

// Retriever defaults.
const (
	DefaultExampleLimit     = 3
	DefaultMinConfidence    = 0.8
	similarityMinKeywordLen = 4
)

// ExampleRetriever supplies few-shot correction examples. Every read path
// fails closed: a store error yields an empty list, never an error, because
// classification must proceed without examples.
type ExampleRetriever struct {
	store         service.Store
	logger        *slog.Logger
	minConfidence float64
	limit         int
}

// NewExampleRetriever creates a retriever with the default confidence floor
// and limit.
func NewExampleRetriever(store service.Store, logger *slog.Logger) *ExampleRetriever {
	if logger == nil {
		logger = slog.Default()
	}
	return &ExampleRetriever{
		store:         store,
		logger:        logger,
		minConfidence: DefaultMinConfidence,
		limit:         DefaultExampleLimit,
	}
}

// ForCategory returns examples whose corrected category matches, scoped to
// rows the user owns plus global ones, at or above the confidence floor.
func (r *ExampleRetriever) ForCategory(ctx context.Context, ownerID string, category model.Category) []model.CorrectionExample {
	examples, err := r.store.GetRelevantExamples(ctx, ownerID, category, r.minConfidence, r.limit)
	if err != nil {
		r.logger.Warn("example lookup failed, proceeding without examples",
			"owner", ownerID, "category", category, "error", err)
		return nil
	}
	return examples
}

// Recent returns the most recent qualifying examples with no category filter.
func (r *ExampleRetriever) Recent(ctx context.Context, ownerID string) []model.CorrectionExample {
	examples, err := r.store.GetRecentExamples(ctx, ownerID, r.minConfidence, r.limit)
	if err != nil {
		r.logger.Warn("recent example lookup failed, proceeding without examples",
			"owner", ownerID, "error", err)
		return nil
	}
	return examples
}

// Similar returns examples whose concept shares a keyword with the target
// concept. Keywords shorter than four characters are ignored; a concept with
// no usable keyword yields no examples.
func (r *ExampleRetriever) Similar(ctx context.Context, ownerID, concept string) []model.CorrectionExample {
	keywords := extractKeywords(concept)
	if len(keywords) == 0 {
		return nil
	}

	examples, err := r.store.SearchExamplesByKeyword(ctx, ownerID, keywords, r.minConfidence, r.limit)
	if err != nil {
		r.logger.Warn("similar example lookup failed, proceeding without examples",
			"owner", ownerID, "concept", concept, "error", err)
		return nil
	}
	return examples
}

// MarkUsed increments the usage counter of each example, tolerating
// individual failures.
func (r *ExampleRetriever) MarkUsed(ctx context.Context, examples []model.CorrectionExample) {
	for _, ex := range examples {
		if err := r.store.IncrementExampleUsage(ctx, ex.ID); err != nil {
			r.logger.Warn("example usage increment failed",
				"example_id", ex.ID, "error", err)
		}
	}
}

func extractKeywords(concept string) []string {
	var keywords []string
	for _, token := range strings.Fields(strings.ToLower(concept)) {
		if len(token) >= similarityMinKeywordLen {
			keywords = append(keywords, token)
		}
	}
	return keywords
}
