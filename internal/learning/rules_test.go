package learning

import (
	"context"
	"errors"
	"testing"

	"github.com/jmvallecillo/kakebo-advisor/internal/common"
	"github.com/jmvallecillo/kakebo-advisor/internal/model"
	"github.com/jmvallecillo/kakebo-advisor/internal/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordCorrection_CreatesRule(t *testing.T) {
	var savedRule *model.MerchantRule
	var savedExample *model.CorrectionExample

	store := &service.MockStore{
		SaveCorrectionExampleFunc: func(_ context.Context, ex *model.CorrectionExample) error {
			savedExample = ex
			return nil
		},
		UpsertMerchantRuleFunc: func(_ context.Context, rule *model.MerchantRule) (bool, error) {
			savedRule = rule
			return true, nil
		},
	}

	engine := NewRuleEngine(store, nil)
	result, err := engine.RecordCorrection(context.Background(), "user-1", Correction{
		Concept:     "compra mercadona semanal",
		OldCategory: model.CategoryOptional,
		NewCategory: model.CategorySurvival,
	})

	require.NoError(t, err)
	assert.True(t, result.RuleCreated)
	assert.False(t, result.RuleUpdated)
	assert.Equal(t, "mercadona", result.Merchant)
	assert.Contains(t, result.Message, "learned a new rule")

	require.NotNil(t, savedRule)
	assert.Equal(t, model.ScopeUser, savedRule.Scope)
	assert.Equal(t, 1.0, savedRule.Confidence, "explicit corrections always set confidence 1.0")
	assert.Equal(t, model.CategorySurvival, savedRule.Category)

	require.NotNil(t, savedExample)
	assert.Equal(t, model.CategoryOptional, savedExample.OldCategory)
	assert.Equal(t, model.CategorySurvival, savedExample.NewCategory)
	assert.Equal(t, 1.0, savedExample.Confidence)
}

func TestRecordCorrection_UpdateWording(t *testing.T) {
	store := &service.MockStore{
		UpsertMerchantRuleFunc: func(_ context.Context, _ *model.MerchantRule) (bool, error) {
			return false, nil // rule existed
		},
	}

	engine := NewRuleEngine(store, nil)
	result, err := engine.RecordCorrection(context.Background(), "user-1", Correction{
		Concept: "netflix mensual", OldCategory: model.CategoryExtra, NewCategory: model.CategoryOptional,
	})

	require.NoError(t, err)
	assert.True(t, result.RuleUpdated)
	assert.Contains(t, result.Message, "updated the rule")
}

func TestRecordCorrection_NoMerchantIsSoftSuccess(t *testing.T) {
	upserts := 0
	store := &service.MockStore{
		UpsertMerchantRuleFunc: func(_ context.Context, _ *model.MerchantRule) (bool, error) {
			upserts++
			return true, nil
		},
	}

	engine := NewRuleEngine(store, nil)
	result, err := engine.RecordCorrection(context.Background(), "user-1", Correction{
		Concept: "a 1 €", OldCategory: model.CategoryOptional, NewCategory: model.CategoryExtra,
	})

	require.NoError(t, err, "missing merchant is a soft no-op, not an error")
	assert.False(t, result.RuleCreated)
	assert.Contains(t, result.Message, "no merchant")
	assert.Zero(t, upserts)
}

func TestRecordCorrection_GlobalVoteReinforcement(t *testing.T) {
	var votedRuleID int64
	store := &service.MockStore{
		UpsertMerchantRuleFunc: func(_ context.Context, _ *model.MerchantRule) (bool, error) {
			return true, nil
		},
		GetGlobalRuleFunc: func(_ context.Context, m string) (*model.MerchantRule, error) {
			return &model.MerchantRule{ID: 42, Merchant: m, Scope: model.ScopeGlobal, Category: model.CategorySurvival}, nil
		},
		IncrementRuleVotesFunc: func(_ context.Context, id int64) error {
			votedRuleID = id
			return nil
		},
	}

	engine := NewRuleEngine(store, nil)
	_, err := engine.RecordCorrection(context.Background(), "user-1", Correction{
		Concept: "lidl compra", OldCategory: model.CategoryOptional, NewCategory: model.CategorySurvival,
	})

	require.NoError(t, err)
	assert.Equal(t, int64(42), votedRuleID)
}

func TestRecordCorrection_GlobalVoteSkippedOnCategoryMismatch(t *testing.T) {
	voted := false
	store := &service.MockStore{
		UpsertMerchantRuleFunc: func(_ context.Context, _ *model.MerchantRule) (bool, error) {
			return true, nil
		},
		GetGlobalRuleFunc: func(_ context.Context, m string) (*model.MerchantRule, error) {
			return &model.MerchantRule{ID: 42, Merchant: m, Scope: model.ScopeGlobal, Category: model.CategoryCulture}, nil
		},
		IncrementRuleVotesFunc: func(_ context.Context, _ int64) error {
			voted = true
			return nil
		},
	}

	engine := NewRuleEngine(store, nil)
	_, err := engine.RecordCorrection(context.Background(), "user-1", Correction{
		Concept: "lidl compra", OldCategory: model.CategoryOptional, NewCategory: model.CategorySurvival,
	})

	require.NoError(t, err)
	assert.False(t, voted)
}

func TestRecordCorrection_SaveFailureSurfaces(t *testing.T) {
	store := &service.MockStore{
		SaveCorrectionExampleFunc: func(_ context.Context, _ *model.CorrectionExample) error {
			return errors.New("disk full")
		},
	}

	engine := NewRuleEngine(store, nil)
	_, err := engine.RecordCorrection(context.Background(), "user-1", Correction{
		Concept: "mercadona", OldCategory: model.CategoryOptional, NewCategory: model.CategorySurvival,
	})

	require.Error(t, err, "primary writes surface their failures")
	assert.Contains(t, err.Error(), "could not be saved")
}

func TestRecordCorrections_NeverFailFast(t *testing.T) {
	calls := 0
	store := &service.MockStore{
		SaveCorrectionExampleFunc: func(_ context.Context, _ *model.CorrectionExample) error {
			calls++
			if calls == 2 {
				return errors.New("transient store error")
			}
			return nil
		},
		UpsertMerchantRuleFunc: func(_ context.Context, _ *model.MerchantRule) (bool, error) {
			return true, nil
		},
	}

	engine := NewRuleEngine(store, nil)
	results := engine.RecordCorrections(context.Background(), "user-1", []Correction{
		{Concept: "mercadona", NewCategory: model.CategorySurvival},
		{Concept: "netflix", NewCategory: model.CategoryOptional},
		{Concept: "farmacia cruz", NewCategory: model.CategorySurvival},
	})

	require.Len(t, results, 3, "one result per input item")
	assert.NoError(t, results[0].Err)
	assert.Error(t, results[1].Err)
	assert.NoError(t, results[2].Err)
	assert.True(t, results[2].RuleCreated, "items after a failure still process")
}

func TestRecordCorrection_InvalidCategory(t *testing.T) {
	engine := NewRuleEngine(&service.MockStore{}, nil)
	_, err := engine.RecordCorrection(context.Background(), "user-1", Correction{
		Concept: "mercadona", NewCategory: "groceries",
	})
	assert.Error(t, err)
}

func TestLookup_ReturnsPersonalAndGlobalRules(t *testing.T) {
	store := &service.MockStore{
		GetMerchantRuleFunc: func(_ context.Context, owner, m string) (*model.MerchantRule, error) {
			return &model.MerchantRule{OwnerID: owner, Merchant: m, Scope: model.ScopeUser, Category: model.CategorySurvival, Confidence: 1.0}, nil
		},
		GetGlobalRuleFunc: func(_ context.Context, m string) (*model.MerchantRule, error) {
			return &model.MerchantRule{Merchant: m, Scope: model.ScopeGlobal, Category: model.CategorySurvival, VoteCount: 7}, nil
		},
	}

	engine := NewRuleEngine(store, nil)
	set, err := engine.Lookup(context.Background(), "user-1", "compra mercadona semanal")

	require.NoError(t, err)
	assert.Equal(t, "mercadona", set.Merchant)
	require.NotNil(t, set.Personal)
	assert.Equal(t, model.CategorySurvival, set.Personal.Category)
	require.NotNil(t, set.Global)
	assert.Equal(t, 7, set.Global.VoteCount)
}

func TestLookup_MissingRulesAreAbsentNotErrors(t *testing.T) {
	store := &service.MockStore{
		GetMerchantRuleFunc: func(_ context.Context, _, _ string) (*model.MerchantRule, error) {
			return nil, common.ErrNotFound
		},
		GetGlobalRuleFunc: func(_ context.Context, _ string) (*model.MerchantRule, error) {
			return nil, common.ErrNotFound
		},
	}

	engine := NewRuleEngine(store, nil)
	set, err := engine.Lookup(context.Background(), "user-1", "netflix mensual")

	require.NoError(t, err)
	assert.Equal(t, "netflix", set.Merchant)
	assert.Nil(t, set.Personal)
	assert.Nil(t, set.Global)
}

func TestLookup_NoMerchant(t *testing.T) {
	engine := NewRuleEngine(&service.MockStore{}, nil)
	_, err := engine.Lookup(context.Background(), "user-1", "a 1 €")
	assert.ErrorIs(t, err, common.ErrNoMerchant)
}

func TestLookup_StoreFailureSurfaces(t *testing.T) {
	store := &service.MockStore{
		GetMerchantRuleFunc: func(_ context.Context, _, _ string) (*model.MerchantRule, error) {
			return nil, errors.New("database is locked")
		},
	}

	engine := NewRuleEngine(store, nil)
	_, err := engine.Lookup(context.Background(), "user-1", "compra mercadona")
	assert.Error(t, err)
}
