package storage

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/jmvallecillo/kakebo-advisor/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Helper function to create migrated test storage.
func createTestStorage(t *testing.T) *SQLiteStorage {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")

	store, err := NewSQLiteStorage(dbPath)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	require.NoError(t, store.Migrate(context.Background()))
	return store
}

func testExpense(owner, concept string, category model.Category, amount float64, daysAgo int) model.Expense {
	return model.Expense{
		OwnerID:  owner,
		Date:     time.Now().AddDate(0, 0, -daysAgo),
		Concept:  concept,
		Category: category,
		Amount:   amount,
	}
}

func TestMigrate_Idempotent(t *testing.T) {
	store := createTestStorage(t)
	assert.NoError(t, store.Migrate(context.Background()), "migrating twice is a no-op")
}

func TestSaveAndGetExpenses(t *testing.T) {
	store := createTestStorage(t)
	ctx := context.Background()

	expenses := []model.Expense{
		testExpense("user-1", "compra mercadona", model.CategorySurvival, 42.50, 2),
		testExpense("user-1", "cine yelmo", model.CategoryCulture, 18.00, 1),
		testExpense("user-2", "netflix", model.CategoryOptional, 12.99, 1),
	}
	require.NoError(t, store.SaveExpenses(ctx, expenses))

	from := time.Now().AddDate(0, 0, -7)
	to := time.Now()
	got, err := store.GetExpenses(ctx, "user-1", from, to)
	require.NoError(t, err)
	require.Len(t, got, 2, "other users' expenses stay invisible")

	assert.Equal(t, "cine yelmo", got[0].Concept, "newest first")
	assert.Equal(t, model.CategoryCulture, got[0].Category, "storage token round-trips to the enum")
}

func TestGetExpenses_RejectsInvertedRange(t *testing.T) {
	store := createTestStorage(t)

	from := time.Now()
	to := from.AddDate(0, 0, -7)
	_, err := store.GetExpenses(context.Background(), "user-1", from, to)
	assert.ErrorIs(t, err, ErrInvalidDateRange)
}

func TestSearchExpenses(t *testing.T) {
	store := createTestStorage(t)
	ctx := context.Background()

	require.NoError(t, store.SaveExpenses(ctx, []model.Expense{
		testExpense("user-1", "gimnasio mensual", model.CategoryOptional, 35, 3),
		testExpense("user-1", "compra mercadona", model.CategorySurvival, 50, 2),
	}))

	got, err := store.SearchExpenses(ctx, "user-1", "gimnasio", 10)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "gimnasio mensual", got[0].Concept)
}

func TestGetCategorySummary(t *testing.T) {
	store := createTestStorage(t)
	ctx := context.Background()

	require.NoError(t, store.SaveExpenses(ctx, []model.Expense{
		testExpense("user-1", "mercadona", model.CategorySurvival, 40, 2),
		testExpense("user-1", "lidl", model.CategorySurvival, 25, 1),
		testExpense("user-1", "cine", model.CategoryCulture, 15, 1),
	}))

	summary, err := store.GetCategorySummary(ctx, "user-1", time.Now().AddDate(0, 0, -7), time.Now())
	require.NoError(t, err)
	assert.InDelta(t, 65, summary[model.CategorySurvival], 1e-9)
	assert.InDelta(t, 15, summary[model.CategoryCulture], 1e-9)
}

func TestBudgets_Upsert(t *testing.T) {
	store := createTestStorage(t)
	ctx := context.Background()

	require.NoError(t, store.SetBudget(ctx, "user-1", model.CategorySurvival, 600))
	require.NoError(t, store.SetBudget(ctx, "user-1", model.CategorySurvival, 650))
	require.NoError(t, store.SetBudget(ctx, "user-1", model.CategoryCulture, 100))

	budgets, err := store.GetBudgets(ctx, "user-1")
	require.NoError(t, err)
	assert.Len(t, budgets, 2)
	assert.InDelta(t, 650, budgets[model.CategorySurvival], 1e-9, "second write wins")
}

func TestGetTopExpenses(t *testing.T) {
	store := createTestStorage(t)
	ctx := context.Background()

	require.NoError(t, store.SaveExpenses(ctx, []model.Expense{
		testExpense("user-1", "alquiler", model.CategorySurvival, 700, 5),
		testExpense("user-1", "mercadona", model.CategorySurvival, 80, 3),
		testExpense("user-1", "cine", model.CategoryCulture, 18, 2),
		testExpense("user-1", "viaje antiguo", model.CategoryExtra, 400, 60),
		testExpense("user-2", "alquiler ajeno", model.CategorySurvival, 900, 4),
	}))

	from := time.Now().AddDate(0, 0, -30)
	to := time.Now()

	got, err := store.GetTopExpenses(ctx, "user-1", from, to, 2)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "alquiler", got[0].Concept, "largest amount first")
	assert.Equal(t, "mercadona", got[1].Concept)

	all, err := store.GetTopExpenses(ctx, "user-1", from, to, 0)
	require.NoError(t, err)
	assert.Len(t, all, 3, "non-positive limit falls back to the default and the out-of-range expense stays excluded")
}

func TestGetMonthlyTotals(t *testing.T) {
	store := createTestStorage(t)
	ctx := context.Background()

	require.NoError(t, store.SaveExpenses(ctx, []model.Expense{
		{OwnerID: "user-1", Date: time.Date(2026, 7, 10, 0, 0, 0, 0, time.UTC), Concept: "a", Category: model.CategorySurvival, Amount: 100},
		{OwnerID: "user-1", Date: time.Date(2026, 8, 5, 0, 0, 0, 0, time.UTC), Concept: "b", Category: model.CategorySurvival, Amount: 120},
		{OwnerID: "user-1", Date: time.Date(2026, 8, 20, 0, 0, 0, 0, time.UTC), Concept: "c", Category: model.CategoryCulture, Amount: 30},
	}))

	totals, err := store.GetMonthlyTotals(ctx, "user-1", 6)
	require.NoError(t, err)
	require.Len(t, totals, 2)

	assert.Equal(t, "2026-07", totals[0].Month, "oldest month first")
	assert.InDelta(t, 100, totals[0].Totals[model.CategorySurvival], 1e-9)
	assert.InDelta(t, 120, totals[1].Totals[model.CategorySurvival], 1e-9)
	assert.InDelta(t, 30, totals[1].Totals[model.CategoryCulture], 1e-9)
}
