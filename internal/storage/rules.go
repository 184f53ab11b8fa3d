package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmvallecillo/kakebo-advisor/internal/common"
	"github.com/jmvallecillo/kakebo-advisor/internal/model"
	"github.com/jmvallecillo/kakebo-advisor/internal/service"
)

// GetMerchantRule retrieves a user-scoped rule for a merchant.
func (s *SQLiteStorage) GetMerchantRule(ctx context.Context, ownerID, merchant string) (*model.MerchantRule, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(ownerID, "ownerID"); err != nil {
		return nil, err
	}
	if err := validateString(merchant, "merchant"); err != nil {
		return nil, err
	}

	return s.getRule(ctx, `
		SELECT id, owner_id, scope, merchant, category, confidence, vote_count, created_at, updated_at
		FROM merchant_rules
		WHERE owner_id = ? AND scope = ? AND merchant = ?
	`, ownerID, string(model.ScopeUser), merchant)
}

// GetGlobalRule retrieves the shared rule for a merchant.
func (s *SQLiteStorage) GetGlobalRule(ctx context.Context, merchant string) (*model.MerchantRule, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(merchant, "merchant"); err != nil {
		return nil, err
	}

	return s.getRule(ctx, `
		SELECT id, owner_id, scope, merchant, category, confidence, vote_count, created_at, updated_at
		FROM merchant_rules
		WHERE scope = ? AND merchant = ?
	`, string(model.ScopeGlobal), merchant)
}

func (s *SQLiteStorage) getRule(ctx context.Context, query string, args ...any) (*model.MerchantRule, error) {
	var rule model.MerchantRule
	var scope, token string

	err := s.db.QueryRowContext(ctx, query, args...).Scan(
		&rule.ID, &rule.OwnerID, &scope, &rule.Merchant,
		&token, &rule.Confidence, &rule.VoteCount,
		&rule.CreatedAt, &rule.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: merchant rule", common.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get merchant rule: %w", err)
	}

	category, err := model.CategoryFromStorage(token)
	if err != nil {
		return nil, err
	}
	rule.Scope = model.RuleScope(scope)
	rule.Category = category
	return &rule, nil
}

// UpsertMerchantRule inserts a rule or overwrites the category and confidence
// of the existing one with the same (owner, scope, merchant) key. Concurrent
// corrections resolve last-write-wins. Returns whether a new rule was created.
func (s *SQLiteStorage) UpsertMerchantRule(ctx context.Context, rule *model.MerchantRule) (bool, error) {
	if err := validateContext(ctx); err != nil {
		return false, err
	}
	if err := validateRule(rule); err != nil {
		return false, err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var existingID int64
	err = tx.QueryRowContext(ctx, `
		SELECT id FROM merchant_rules WHERE owner_id = ? AND scope = ? AND merchant = ?
	`, rule.OwnerID, string(rule.Scope), rule.Merchant).Scan(&existingID)

	switch {
	case errors.Is(err, sql.ErrNoRows):
		result, insertErr := tx.ExecContext(ctx, `
			INSERT INTO merchant_rules (owner_id, scope, merchant, category, confidence, vote_count)
			VALUES (?, ?, ?, ?, ?, ?)
		`, rule.OwnerID, string(rule.Scope), rule.Merchant,
			rule.Category.Storage(), rule.Confidence, rule.VoteCount)
		if insertErr != nil {
			return false, fmt.Errorf("failed to insert merchant rule: %w", insertErr)
		}
		rule.ID, _ = result.LastInsertId()
		if commitErr := tx.Commit(); commitErr != nil {
			return false, fmt.Errorf("failed to commit rule insert: %w", commitErr)
		}
		return true, nil
	case err != nil:
		return false, fmt.Errorf("failed to look up merchant rule: %w", err)
	}

	if _, updateErr := tx.ExecContext(ctx, `
		UPDATE merchant_rules
		SET category = ?, confidence = ?, updated_at = CURRENT_TIMESTAMP
		WHERE id = ?
	`, rule.Category.Storage(), rule.Confidence, existingID); updateErr != nil {
		return false, fmt.Errorf("failed to update merchant rule: %w", updateErr)
	}
	rule.ID = existingID
	if commitErr := tx.Commit(); commitErr != nil {
		return false, fmt.Errorf("failed to commit rule update: %w", commitErr)
	}
	return false, nil
}

// IncrementRuleVotes adds one reinforcement vote to a rule.
func (s *SQLiteStorage) IncrementRuleVotes(ctx context.Context, ruleID int64) error {
	if err := validateContext(ctx); err != nil {
		return err
	}

	result, err := s.db.ExecContext(ctx, `
		UPDATE merchant_rules
		SET vote_count = vote_count + 1, updated_at = CURRENT_TIMESTAMP
		WHERE id = ?
	`, ruleID)
	if err != nil {
		return fmt.Errorf("failed to increment rule votes: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check vote increment: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("%w: merchant rule %d", common.ErrNotFound, ruleID)
	}
	return nil
}

// GetRuleStats summarizes a user's rules over a two-week window starting at
// since: rules created in the second week count as this week, the first week
// as last week.
func (s *SQLiteStorage) GetRuleStats(ctx context.Context, ownerID string, since time.Time) (service.RuleStats, error) {
	if err := validateContext(ctx); err != nil {
		return service.RuleStats{}, err
	}
	if err := validateString(ownerID, "ownerID"); err != nil {
		return service.RuleStats{}, err
	}

	weekBoundary := since.AddDate(0, 0, 7)

	var stats service.RuleStats
	var avg sql.NullFloat64
	err := s.db.QueryRowContext(ctx, `
		SELECT
			COUNT(*),
			COALESCE(SUM(CASE WHEN confidence >= 0.9 THEN 1 ELSE 0 END), 0),
			AVG(confidence),
			COALESCE(SUM(CASE WHEN created_at >= ? THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN created_at >= ? AND created_at < ? THEN 1 ELSE 0 END), 0)
		FROM merchant_rules
		WHERE owner_id = ? AND scope = ?
	`, weekBoundary, since, weekBoundary, ownerID, string(model.ScopeUser)).Scan(
		&stats.Total, &stats.HighConfidence, &avg,
		&stats.CreatedThisWeek, &stats.CreatedLastWeek,
	)
	if err != nil {
		return service.RuleStats{}, fmt.Errorf("failed to query rule stats: %w", err)
	}
	if avg.Valid {
		stats.AvgConfidence = avg.Float64
	}
	return stats, nil
}
