package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jmvallecillo/kakebo-advisor/internal/model"
	"github.com/jmvallecillo/kakebo-advisor/internal/service"
)

// topIncorrectQueries caps how many problem queries the stats report.
const topIncorrectQueries = 5

// UpsertSearchFeedback records one voter's verdict on a (query, expense)
// pair. Resubmitting overwrites the previous verdict, last write wins.
func (s *SQLiteStorage) UpsertSearchFeedback(ctx context.Context, feedback *model.SearchFeedback) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateFeedback(feedback); err != nil {
		return err
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO search_feedback (owner_id, query, expense_id, feedback_type, created_at)
		VALUES (?, ?, ?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(owner_id, query, expense_id) DO UPDATE SET
			feedback_type = excluded.feedback_type,
			created_at = CURRENT_TIMESTAMP
	`, feedback.OwnerID, feedback.Query, feedback.ExpenseID, string(feedback.Type))
	if err != nil {
		return fmt.Errorf("failed to upsert search feedback: %w", err)
	}
	return nil
}

// GetFeedbackForQuery returns one user's feedback rows for a query.
func (s *SQLiteStorage) GetFeedbackForQuery(ctx context.Context, ownerID, query string) ([]model.SearchFeedback, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(ownerID, "ownerID"); err != nil {
		return nil, err
	}
	if err := validateString(query, "query"); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, owner_id, query, expense_id, feedback_type, created_at
		FROM search_feedback
		WHERE owner_id = ? AND query = ?
	`, ownerID, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query feedback: %w", err)
	}
	defer func() { _ = rows.Close() }()

	return scanFeedback(rows)
}

// GetGlobalFeedback returns every user's feedback rows for a query.
func (s *SQLiteStorage) GetGlobalFeedback(ctx context.Context, query string) ([]model.SearchFeedback, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(query, "query"); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, owner_id, query, expense_id, feedback_type, created_at
		FROM search_feedback
		WHERE query = ?
	`, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query global feedback: %w", err)
	}
	defer func() { _ = rows.Close() }()

	return scanFeedback(rows)
}

// GetFeedbackStats summarizes a user's feedback since a point in time,
// including the queries with the most incorrect verdicts.
func (s *SQLiteStorage) GetFeedbackStats(ctx context.Context, ownerID string, since time.Time) (service.FeedbackStats, error) {
	if err := validateContext(ctx); err != nil {
		return service.FeedbackStats{}, err
	}
	if err := validateString(ownerID, "ownerID"); err != nil {
		return service.FeedbackStats{}, err
	}

	var stats service.FeedbackStats
	err := s.db.QueryRowContext(ctx, `
		SELECT
			COUNT(*),
			COALESCE(SUM(CASE WHEN feedback_type = ? THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN feedback_type = ? THEN 1 ELSE 0 END), 0)
		FROM search_feedback
		WHERE owner_id = ? AND created_at >= ?
	`, string(model.FeedbackCorrect), string(model.FeedbackIncorrect), ownerID, since).Scan(
		&stats.Total, &stats.Correct, &stats.Incorrect,
	)
	if err != nil {
		return service.FeedbackStats{}, fmt.Errorf("failed to query feedback stats: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT query, COUNT(*) AS incorrect_count
		FROM search_feedback
		WHERE owner_id = ? AND created_at >= ? AND feedback_type = ?
		GROUP BY query
		ORDER BY incorrect_count DESC
		LIMIT ?
	`, ownerID, since, string(model.FeedbackIncorrect), topIncorrectQueries)
	if err != nil {
		return service.FeedbackStats{}, fmt.Errorf("failed to query problem queries: %w", err)
	}
	defer func() { _ = rows.Close() }()

	for rows.Next() {
		var qc service.QueryCount
		if err := rows.Scan(&qc.Query, &qc.Count); err != nil {
			return service.FeedbackStats{}, fmt.Errorf("failed to scan query count: %w", err)
		}
		stats.TopIncorrectQueries = append(stats.TopIncorrectQueries, qc)
	}
	return stats, rows.Err()
}

func scanFeedback(rows *sql.Rows) ([]model.SearchFeedback, error) {
	var feedback []model.SearchFeedback
	for rows.Next() {
		var row model.SearchFeedback
		var typ string
		if err := rows.Scan(&row.ID, &row.OwnerID, &row.Query,
			&row.ExpenseID, &typ, &row.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan feedback: %w", err)
		}
		row.Type = model.FeedbackType(typ)
		feedback = append(feedback, row)
	}
	return feedback, rows.Err()
}
