// Package learning implements the adaptive feedback loop: merchant rules
// learned from corrections, few-shot correction examples, search feedback
// consensus and the health metrics over all of it.
package learning

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jmvallecillo/kakebo-advisor/internal/common"
	"github.com/jmvallecillo/kakebo-advisor/internal/merchant"
	"github.com/jmvallecillo/kakebo-advisor/internal/model"
	"github.com/jmvallecillo/kakebo-advisor/internal/service"
)

// Correction is one user categorization fix.
type Correction struct {
	Concept     string
	OldCategory model.Category
	NewCategory model.Category
}

// CorrectionResult reports what a single correction produced. A correction
// with no identifiable merchant is a success with no rule, not an error.
type CorrectionResult struct {
	Merchant    string
	Message     string
	Err         error
	RuleCreated bool
	RuleUpdated bool
}

// RuleEngine turns corrections into merchant rules and correction examples.
type RuleEngine struct {
	store  service.Store
	logger *slog.Logger
}

// NewRuleEngine creates a rule engine backed by the given store.
func NewRuleEngine(store service.Store, logger *slog.Logger) *RuleEngine {
	if logger == nil {
		logger = slog.Default()
	}
	return &RuleEngine{store: store, logger: logger}
}

// RecordCorrection applies one correction: it saves a correction example,
// upserts the user-scoped merchant rule at confidence 1.0, and reinforces a
// matching global rule's vote count. The example and rule writes are primary
// writes and surface their errors; the global vote is best-effort.
func (e *RuleEngine) RecordCorrection(ctx context.Context, ownerID string, c Correction) (CorrectionResult, error) {
	if !c.NewCategory.Valid() {
		return CorrectionResult{}, fmt.Errorf("invalid corrected category %q", c.NewCategory)
	}

	extraction := merchant.Extract(c.Concept)

	example := &model.CorrectionExample{
		OwnerID:     ownerID,
		Concept:     c.Concept,
		Merchant:    extraction.Merchant,
		OldCategory: c.OldCategory,
		NewCategory: c.NewCategory,
		Confidence:  1.0, // explicit corrections are always fully trusted
		CreatedAt:   time.Now(),
	}
	if err := e.store.SaveCorrectionExample(ctx, example); err != nil {
		return CorrectionResult{}, common.NewUserError("your correction could not be saved", err)
	}

	if !extraction.Found() {
		e.logger.Debug("correction without identifiable merchant",
			"owner", ownerID, "concept", c.Concept)
		return CorrectionResult{
			Message: "correction saved; no merchant could be identified, so no reusable rule was created",
		}, nil
	}

	rule := &model.MerchantRule{
		OwnerID:    ownerID,
		Scope:      model.ScopeUser,
		Merchant:   extraction.Merchant,
		Category:   c.NewCategory,
		Confidence: 1.0,
	}
	created, err := e.store.UpsertMerchantRule(ctx, rule)
	if err != nil {
		return CorrectionResult{}, common.NewUserError("your correction could not be saved", err)
	}

	e.reinforceGlobalRule(ctx, extraction.Merchant, c.NewCategory)

	result := CorrectionResult{
		Merchant:    extraction.Merchant,
		RuleCreated: created,
		RuleUpdated: !created,
	}
	if created {
		result.Message = fmt.Sprintf("learned a new rule: %q is now %s", extraction.Merchant, c.NewCategory)
	} else {
		result.Message = fmt.Sprintf("updated the rule for %q to %s", extraction.Merchant, c.NewCategory)
	}

	e.logger.Info("correction recorded",
		"owner", ownerID,
		"merchant", extraction.Merchant,
		"category", c.NewCategory,
		"created", created)

	return result, nil
}

// RecordCorrections processes corrections independently, never fail-fast:
// one result per input item, in order.
func (e *RuleEngine) RecordCorrections(ctx context.Context, ownerID string, corrections []Correction) []CorrectionResult {
	results := make([]CorrectionResult, len(corrections))
	for i, c := range corrections {
		result, err := e.RecordCorrection(ctx, ownerID, c)
		if err != nil {
			e.logger.Warn("correction failed, continuing batch",
				"owner", ownerID, "concept", c.Concept, "error", err)
			result = CorrectionResult{Err: err, Message: "this correction could not be saved"}
		}
		results[i] = result
	}
	return results
}

// RuleSet is the stored categorization for one merchant: the user's own rule
// and the shared global rule. Either may be absent.
type RuleSet struct {
	Personal *model.MerchantRule
	Global   *model.MerchantRule
	Merchant string
}

// Lookup returns the rules that would categorize the concept's merchant.
// A concept with no identifiable merchant returns ErrNoMerchant.
func (e *RuleEngine) Lookup(ctx context.Context, ownerID, concept string) (RuleSet, error) {
	extraction := merchant.Extract(concept)
	if !extraction.Found() {
		return RuleSet{}, fmt.Errorf("%w in %q", common.ErrNoMerchant, concept)
	}

	set := RuleSet{Merchant: extraction.Merchant}

	personal, err := e.store.GetMerchantRule(ctx, ownerID, extraction.Merchant)
	switch {
	case err == nil:
		set.Personal = personal
	case !errors.Is(err, common.ErrNotFound):
		return RuleSet{}, fmt.Errorf("failed to load rule for %q: %w", extraction.Merchant, err)
	}

	global, err := e.store.GetGlobalRule(ctx, extraction.Merchant)
	switch {
	case err == nil:
		set.Global = global
	case !errors.Is(err, common.ErrNotFound):
		return RuleSet{}, fmt.Errorf("failed to load global rule for %q: %w", extraction.Merchant, err)
	}

	return set, nil
}

// reinforceGlobalRule adds a vote to a global rule when a user correction
// agrees with it. Failures are logged, never surfaced: reinforcement is a
// side effect of the correction, not part of its contract.
func (e *RuleEngine) reinforceGlobalRule(ctx context.Context, merchantToken string, category model.Category) {
	global, err := e.store.GetGlobalRule(ctx, merchantToken)
	if err != nil {
		if !errors.Is(err, common.ErrNotFound) {
			e.logger.Warn("global rule lookup failed", "merchant", merchantToken, "error", err)
		}
		return
	}
	if global == nil || global.Category != category {
		return
	}
	if err := e.store.IncrementRuleVotes(ctx, global.ID); err != nil {
		e.logger.Warn("global rule vote increment failed",
			"merchant", merchantToken, "rule_id", global.ID, "error", err)
	}
}
