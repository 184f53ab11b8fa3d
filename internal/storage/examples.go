package storage

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/jmvallecillo/kakebo-advisor/internal/common"
	"github.com/jmvallecillo/kakebo-advisor/internal/model"
	"github.com/jmvallecillo/kakebo-advisor/internal/service"
)

// topMisclassificationPairs caps how many (old, new) pairs the stats report.
const topMisclassificationPairs = 5

// SaveCorrectionExample stores one correction as a few-shot example.
func (s *SQLiteStorage) SaveCorrectionExample(ctx context.Context, example *model.CorrectionExample) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateExample(example); err != nil {
		return err
	}

	result, err := s.db.ExecContext(ctx, `
		INSERT INTO correction_examples
			(owner_id, concept, merchant, old_category, new_category, confidence, times_used, is_global)
		VALUES (?, ?, ?, ?, ?, ?, 0, ?)
	`, example.OwnerID, example.Concept, example.Merchant,
		example.OldCategory.Storage(), example.NewCategory.Storage(),
		example.Confidence, example.IsGlobal)
	if err != nil {
		return fmt.Errorf("failed to save correction example: %w", err)
	}
	example.ID, _ = result.LastInsertId()
	return nil
}

// GetRelevantExamples returns examples whose corrected category matches,
// owned by the user or shared globally, at or above the confidence floor.
// Most recent first.
func (s *SQLiteStorage) GetRelevantExamples(ctx context.Context, ownerID string, category model.Category, minConfidence float64, limit int) ([]model.CorrectionExample, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(ownerID, "ownerID"); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = 3
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, owner_id, concept, merchant, old_category, new_category, confidence, times_used, is_global, created_at
		FROM correction_examples
		WHERE (owner_id = ? OR is_global = 1)
			AND new_category = ?
			AND confidence >= ?
		ORDER BY created_at DESC
		LIMIT ?
	`, ownerID, category.Storage(), minConfidence, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query relevant examples: %w", err)
	}
	defer func() { _ = rows.Close() }()

	return scanExamples(rows)
}

// GetRecentExamples returns the newest qualifying examples regardless of category.
func (s *SQLiteStorage) GetRecentExamples(ctx context.Context, ownerID string, minConfidence float64, limit int) ([]model.CorrectionExample, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(ownerID, "ownerID"); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = 3
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, owner_id, concept, merchant, old_category, new_category, confidence, times_used, is_global, created_at
		FROM correction_examples
		WHERE (owner_id = ? OR is_global = 1) AND confidence >= ?
		ORDER BY created_at DESC
		LIMIT ?
	`, ownerID, minConfidence, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query recent examples: %w", err)
	}
	defer func() { _ = rows.Close() }()

	return scanExamples(rows)
}

// SearchExamplesByKeyword returns examples whose concept contains any of the
// keywords, most used first so the best-proven examples surface.
func (s *SQLiteStorage) SearchExamplesByKeyword(ctx context.Context, ownerID string, keywords []string, minConfidence float64, limit int) ([]model.CorrectionExample, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(ownerID, "ownerID"); err != nil {
		return nil, err
	}
	if len(keywords) == 0 {
		return nil, nil
	}
	if limit <= 0 {
		limit = 3
	}

	conditions := make([]string, 0, len(keywords))
	args := []any{ownerID, minConfidence}
	for _, keyword := range keywords {
		conditions = append(conditions, "concept LIKE '%' || ? || '%'")
		args = append(args, keyword)
	}
	args = append(args, limit)

	query := fmt.Sprintf(`
		SELECT id, owner_id, concept, merchant, old_category, new_category, confidence, times_used, is_global, created_at
		FROM correction_examples
		WHERE (owner_id = ? OR is_global = 1)
			AND confidence >= ?
			AND (%s)
		ORDER BY times_used DESC, created_at DESC
		LIMIT ?
	`, strings.Join(conditions, " OR "))

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to search examples: %w", err)
	}
	defer func() { _ = rows.Close() }()

	return scanExamples(rows)
}

// IncrementExampleUsage bumps an example's usage counter.
func (s *SQLiteStorage) IncrementExampleUsage(ctx context.Context, exampleID int64) error {
	if err := validateContext(ctx); err != nil {
		return err
	}

	result, err := s.db.ExecContext(ctx, `
		UPDATE correction_examples SET times_used = times_used + 1 WHERE id = ?
	`, exampleID)
	if err != nil {
		return fmt.Errorf("failed to increment example usage: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check usage increment: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("%w: correction example %d", common.ErrNotFound, exampleID)
	}
	return nil
}

// GetExampleStats summarizes a user's correction examples, including the most
// frequent (old, new) misclassification pairs.
func (s *SQLiteStorage) GetExampleStats(ctx context.Context, ownerID string) (service.ExampleStats, error) {
	if err := validateContext(ctx); err != nil {
		return service.ExampleStats{}, err
	}
	if err := validateString(ownerID, "ownerID"); err != nil {
		return service.ExampleStats{}, err
	}

	var stats service.ExampleStats
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*), COALESCE(SUM(times_used), 0)
		FROM correction_examples
		WHERE owner_id = ?
	`, ownerID).Scan(&stats.Total, &stats.TotalUsages)
	if err != nil {
		return service.ExampleStats{}, fmt.Errorf("failed to query example stats: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT old_category, new_category, COUNT(*) AS pair_count
		FROM correction_examples
		WHERE owner_id = ?
		GROUP BY old_category, new_category
		ORDER BY pair_count DESC
		LIMIT ?
	`, ownerID, topMisclassificationPairs)
	if err != nil {
		return service.ExampleStats{}, fmt.Errorf("failed to query misclassification pairs: %w", err)
	}
	defer func() { _ = rows.Close() }()

	for rows.Next() {
		var oldToken, newToken string
		var pair service.MisclassificationPair
		if err := rows.Scan(&oldToken, &newToken, &pair.Count); err != nil {
			return service.ExampleStats{}, fmt.Errorf("failed to scan pair: %w", err)
		}
		if oldToken != "" {
			oldCategory, err := model.CategoryFromStorage(oldToken)
			if err != nil {
				return service.ExampleStats{}, err
			}
			pair.OldCategory = oldCategory
		}
		newCategory, err := model.CategoryFromStorage(newToken)
		if err != nil {
			return service.ExampleStats{}, err
		}
		pair.NewCategory = newCategory
		stats.Pairs = append(stats.Pairs, pair)
	}
	return stats, rows.Err()
}

func scanExamples(rows *sql.Rows) ([]model.CorrectionExample, error) {
	var examples []model.CorrectionExample
	for rows.Next() {
		var example model.CorrectionExample
		var oldToken, newToken string
		var merchant sql.NullString
		if err := rows.Scan(&example.ID, &example.OwnerID, &example.Concept,
			&merchant, &oldToken, &newToken, &example.Confidence,
			&example.TimesUsed, &example.IsGlobal, &example.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan example: %w", err)
		}
		example.Merchant = merchant.String

		// Old category can be absent when the correction arrived without one.
		if oldToken != "" {
			oldCategory, err := model.CategoryFromStorage(oldToken)
			if err != nil {
				return nil, err
			}
			example.OldCategory = oldCategory
		}
		newCategory, err := model.CategoryFromStorage(newToken)
		if err != nil {
			return nil, err
		}
		example.NewCategory = newCategory
		examples = append(examples, example)
	}
	return examples, rows.Err()
}
