package storage

import (
	"context"
	"testing"

	"github.com/jmvallecillo/kakebo-advisor/internal/common"
	"github.com/jmvallecillo/kakebo-advisor/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func saveExample(t *testing.T, store *SQLiteStorage, owner, concept string, newCat model.Category, confidence float64, global bool) *model.CorrectionExample {
	t.Helper()
	example := &model.CorrectionExample{
		OwnerID:     owner,
		Concept:     concept,
		Merchant:    "",
		OldCategory: model.CategoryOptional,
		NewCategory: newCat,
		Confidence:  confidence,
		IsGlobal:    global,
	}
	require.NoError(t, store.SaveCorrectionExample(context.Background(), example))
	return example
}

func TestGetRelevantExamples_FiltersByCategoryOwnerAndConfidence(t *testing.T) {
	store := createTestStorage(t)
	ctx := context.Background()

	saveExample(t, store, "user-1", "compra mercadona", model.CategorySurvival, 1.0, false)
	saveExample(t, store, "user-1", "netflix", model.CategoryOptional, 1.0, false)
	saveExample(t, store, "user-1", "farmacia", model.CategorySurvival, 0.5, false)
	saveExample(t, store, "user-2", "lidl semanal", model.CategorySurvival, 1.0, true)
	saveExample(t, store, "user-2", "carrefour", model.CategorySurvival, 1.0, false)

	got, err := store.GetRelevantExamples(ctx, "user-1", model.CategorySurvival, 0.8, 10)
	require.NoError(t, err)
	require.Len(t, got, 2)

	concepts := []string{got[0].Concept, got[1].Concept}
	assert.Contains(t, concepts, "compra mercadona", "own example qualifies")
	assert.Contains(t, concepts, "lidl semanal", "global example qualifies")
	assert.NotContains(t, concepts, "farmacia", "below the confidence floor")
	assert.NotContains(t, concepts, "carrefour", "another user's private example")
}

func TestSearchExamplesByKeyword(t *testing.T) {
	store := createTestStorage(t)
	ctx := context.Background()

	gym := saveExample(t, store, "user-1", "gimnasio mensual", model.CategoryOptional, 1.0, false)
	saveExample(t, store, "user-1", "compra mercadona", model.CategorySurvival, 1.0, false)

	require.NoError(t, store.IncrementExampleUsage(ctx, gym.ID))

	got, err := store.SearchExamplesByKeyword(ctx, "user-1", []string{"gimnasio"}, 0.8, 5)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "gimnasio mensual", got[0].Concept)
	assert.Equal(t, 1, got[0].TimesUsed)
}

func TestSearchExamplesByKeyword_NoKeywords(t *testing.T) {
	store := createTestStorage(t)

	got, err := store.SearchExamplesByKeyword(context.Background(), "user-1", nil, 0.8, 5)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestIncrementExampleUsage_Missing(t *testing.T) {
	store := createTestStorage(t)
	err := store.IncrementExampleUsage(context.Background(), 12345)
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestGetExampleStats(t *testing.T) {
	store := createTestStorage(t)
	ctx := context.Background()

	first := saveExample(t, store, "user-1", "mercadona", model.CategorySurvival, 1.0, false)
	saveExample(t, store, "user-1", "lidl", model.CategorySurvival, 1.0, false)
	saveExample(t, store, "user-1", "cine", model.CategoryCulture, 1.0, false)

	require.NoError(t, store.IncrementExampleUsage(ctx, first.ID))
	require.NoError(t, store.IncrementExampleUsage(ctx, first.ID))

	stats, err := store.GetExampleStats(ctx, "user-1")
	require.NoError(t, err)

	assert.Equal(t, 3, stats.Total)
	assert.Equal(t, 2, stats.TotalUsages)
	require.NotEmpty(t, stats.Pairs)
	assert.Equal(t, model.CategoryOptional, stats.Pairs[0].OldCategory)
	assert.Equal(t, model.CategorySurvival, stats.Pairs[0].NewCategory)
	assert.Equal(t, 2, stats.Pairs[0].Count, "most frequent pair first")
}
