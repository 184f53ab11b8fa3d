package learning

import (
	"context"
	"log/slog"
	"sort"
	"time"

	"github.com/jmvallecillo/kakebo-advisor/internal/common"
	"github.com/jmvallecillo/kakebo-advisor/internal/model"
	"github.com/jmvallecillo/kakebo-advisor/internal/service"
)

// ConsensusConfig holds the voting policy. The thresholds are product policy
// without a documented derivation; they are configurable, not constants.
type ConsensusConfig struct {
	// MinVotes is the minimum total votes on a (query, expense) pair before
	// any global verdict is issued.
	MinVotes int
	// MajorityRatio is the fraction of agreeing votes required for a verdict.
	MajorityRatio float64
}

// DefaultConsensusConfig returns the standard 3-vote / 60% policy.
func DefaultConsensusConfig() ConsensusConfig {
	return ConsensusConfig{MinVotes: 3, MajorityRatio: 0.6}
}

// Verdicts maps expense ids to a correct/incorrect judgment. An expense is
// never in both sets.
type Verdicts struct {
	Correct   map[int64]bool
	Incorrect map[int64]bool
}

// correctBoost is applied to correct-marked results, capped at 1.0.
const correctBoost = 1.2

// FeedbackEngine records search feedback and aggregates it into verdicts.
type FeedbackEngine struct {
	store  service.Store
	logger *slog.Logger
	cfg    ConsensusConfig
}

// NewFeedbackEngine creates a feedback engine with the given policy.
func NewFeedbackEngine(store service.Store, cfg ConsensusConfig, logger *slog.Logger) *FeedbackEngine {
	if cfg.MinVotes <= 0 {
		cfg = DefaultConsensusConfig()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &FeedbackEngine{store: store, cfg: cfg, logger: logger}
}

// Record upserts one user's verdict on a (query, expense) pair. This is a
// primary write: the error surfaces so the caller can tell the user the
// feedback was not saved.
func (e *FeedbackEngine) Record(ctx context.Context, ownerID, query string, expenseID int64, typ model.FeedbackType) error {
	fb := &model.SearchFeedback{
		OwnerID:   ownerID,
		Query:     query,
		ExpenseID: expenseID,
		Type:      typ,
		CreatedAt: time.Now(),
	}
	if err := e.store.UpsertSearchFeedback(ctx, fb); err != nil {
		return common.NewUserError("your feedback could not be saved", err)
	}
	return nil
}

// PersonalVerdicts returns the user's own feedback for a query. Fails closed.
func (e *FeedbackEngine) PersonalVerdicts(ctx context.Context, ownerID, query string) Verdicts {
	rows, err := e.store.GetFeedbackForQuery(ctx, ownerID, query)
	if err != nil {
		e.logger.Warn("personal feedback lookup failed, proceeding without",
			"owner", ownerID, "query", query, "error", err)
		return emptyVerdicts()
	}

	v := emptyVerdicts()
	for _, row := range rows {
		// Rows are unique per (owner, query, expense); last submission wins
		// at the store, so each expense appears once.
		if row.Type == model.FeedbackCorrect {
			v.Correct[row.ExpenseID] = true
		} else {
			v.Incorrect[row.ExpenseID] = true
		}
	}
	return v
}

// GlobalVerdicts aggregates every user's votes per expense for a query.
// A verdict needs at least MinVotes total and a MajorityRatio majority.
// Fails closed.
func (e *FeedbackEngine) GlobalVerdicts(ctx context.Context, query string) Verdicts {
	rows, err := e.store.GetGlobalFeedback(ctx, query)
	if err != nil {
		e.logger.Warn("global feedback lookup failed, proceeding without",
			"query", query, "error", err)
		return emptyVerdicts()
	}

	type tally struct{ correct, incorrect int }
	tallies := make(map[int64]*tally)
	for _, row := range rows {
		t, ok := tallies[row.ExpenseID]
		if !ok {
			t = &tally{}
			tallies[row.ExpenseID] = t
		}
		if row.Type == model.FeedbackCorrect {
			t.correct++
		} else {
			t.incorrect++
		}
	}

	v := emptyVerdicts()
	for expenseID, t := range tallies {
		total := t.correct + t.incorrect
		if total < e.cfg.MinVotes {
			continue
		}
		switch {
		case float64(t.correct)/float64(total) >= e.cfg.MajorityRatio:
			v.Correct[expenseID] = true
		case float64(t.incorrect)/float64(total) >= e.cfg.MajorityRatio:
			v.Incorrect[expenseID] = true
		}
	}
	return v
}

// HybridVerdicts merges personal and global feedback. Personal verdicts
// always win; global fills the gaps. Mutual exclusivity is enforced: an
// expense is never both correct and incorrect.
func (e *FeedbackEngine) HybridVerdicts(ctx context.Context, ownerID, query string) Verdicts {
	personal := e.PersonalVerdicts(ctx, ownerID, query)
	global := e.GlobalVerdicts(ctx, query)

	merged := emptyVerdicts()
	for id := range personal.Correct {
		merged.Correct[id] = true
	}
	for id := range personal.Incorrect {
		merged.Incorrect[id] = true
	}
	for id := range global.Correct {
		if !merged.Correct[id] && !merged.Incorrect[id] {
			merged.Correct[id] = true
		}
	}
	for id := range global.Incorrect {
		if !merged.Correct[id] && !merged.Incorrect[id] {
			merged.Incorrect[id] = true
		}
	}
	return merged
}

// Apply filters and reweights a result set: incorrect-marked expenses are
// dropped, correct-marked ones get a 20% confidence boost capped at 1.0,
// and the survivors are re-sorted.
func (e *FeedbackEngine) Apply(v Verdicts, results []model.ConfidenceResult) []model.ConfidenceResult {
	out := make([]model.ConfidenceResult, 0, len(results))
	for _, res := range results {
		if v.Incorrect[res.Expense.ID] {
			continue
		}
		if v.Correct[res.Expense.ID] {
			res.Confidence = min(res.Confidence*correctBoost, 1.0)
		}
		out = append(out, res)
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Confidence > out[j].Confidence
	})
	return out
}

func emptyVerdicts() Verdicts {
	return Verdicts{
		Correct:   make(map[int64]bool),
		Incorrect: make(map[int64]bool),
	}
}
